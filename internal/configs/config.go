package configs

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  int
	DatabaseURL string
	DBMaxConn   int
	JWTSecret   string
}

func Load() (*Config, error) {
	// Load .env file (optional - for local development)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:  getEnvAsInt("SERVER_PORT", 8084),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMaxConn:   getEnvAsInt("DB_MAX_CONN", 10),
		JWTSecret:   getEnv("JWT_SECRET", ""),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
