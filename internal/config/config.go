package config

import (
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL       string
	JWTSecret         string
	Port              string
	FCMServiceAccount string

	// Completion aggregator tuning. Cross-group reads fan out in
	// fixed-size batches with an optional delay in between so slow
	// client networks aren't saturated by the reminder check.
	CompletionBatchSize    int
	CompletionBatchDelayMs int
}

func Load() *Config {
	return &Config{
		DatabaseURL:            getEnv("DATABASE_URL", "studyplans.db"),
		JWTSecret:              getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		Port:                   getEnv("PORT", "8080"),
		FCMServiceAccount:      getEnv("FCM_SERVICE_ACCOUNT", ""),
		CompletionBatchSize:    getEnvInt("COMPLETION_BATCH_SIZE", 10),
		CompletionBatchDelayMs: getEnvInt("COMPLETION_BATCH_DELAY_MS", 100),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
