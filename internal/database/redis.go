package database

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// InitRedis connects the client backing the token denylist. A missing
// Redis is not fatal: the server runs without it and logout becomes a
// no-op until it comes back.
func InitRedis() *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.host") + ":" + viper.GetString("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("[REDIS] Connection failed, continuing without token denylist: %v", err)
		return nil
	}

	log.Println("[REDIS] Connection established")
	return rdb
}
