package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type contextKey string

// UserIDKey is the request-context key carrying the authenticated user id.
const UserIDKey contextKey = "userID"

var denylist *redis.Client

// InitAuthMiddleware wires the Redis client used for revoked-token
// lookups. A nil client disables revocation checks.
func InitAuthMiddleware(redisClient *redis.Client) {
	denylist = redisClient
}

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		userID, jti, err := validateToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		if denylist != nil && jti != "" {
			key := fmt.Sprintf("denylist:%s", jti)
			if exists, err := denylist.Exists(r.Context(), key).Result(); err == nil && exists > 0 {
				http.Error(w, "Token revoked", http.StatusUnauthorized)
				return
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validateToken(tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid claims")
	}

	userID := fmt.Sprintf("%v", claims["user_id"])
	jti, _ := claims["jti"].(string)
	return userID, jti, nil
}
