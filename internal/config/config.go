package config

import (
	"errors"
	"os"
	"strconv"
)

// Config holds the environment-derived parameters. RedisAddr is optional:
// when empty, cross-instance presence fan-out is disabled and everything
// runs in process memory.
type Config struct {
	Port         string
	ClientOrigin string
	RedisAddr    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnvOrDefault("PORT", "5000"),
		ClientOrigin: getEnvOrDefault("CLIENT_ORIGIN", "http://localhost:3000"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return errors.New("PORT must be numeric, got: " + cfg.Port)
	}
	if cfg.ClientOrigin == "" {
		return errors.New("CLIENT_ORIGIN must not be empty")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
