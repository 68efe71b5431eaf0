package config

import (
	"os"
	"strconv"
)

type LedgerConfig struct {
	MaxDailySequence    int    // highest sequence the 5-digit slot can carry
	AccountSuffixLength int    // random tail of the account number
	DefaultTransferMemo string // description used when the caller sends none
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		MaxDailySequence:    getEnvAsInt("LEDGER_MAX_DAILY_SEQUENCE", 99999),
		AccountSuffixLength: getEnvAsInt("LEDGER_ACCOUNT_SUFFIX_LENGTH", 3),
		DefaultTransferMemo: getEnv("LEDGER_DEFAULT_TRANSFER_MEMO", "Transfer between accounts"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
