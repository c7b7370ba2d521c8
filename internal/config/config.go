// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the recommend service.
type Config struct {
	Port               string
	DatabaseURL        string
	RedisURL           string // optional: cache + events disabled when empty
	SweepIntervalHours int    // how often the maintenance sweep fires
	CacheTTLSeconds    int    // response cache TTL; 0 disables caching
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	interval := 6
	if s := os.Getenv("SWEEP_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SWEEP_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		interval = v
	}

	cacheTTL := 300
	if s := os.Getenv("CACHE_TTL_SECONDS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("CACHE_TTL_SECONDS must be a non-negative integer, got %q", s)
		}
		cacheTTL = v
	}

	port := os.Getenv("RECOMMEND_PORT")
	if port == "" {
		port = "8083"
	}

	return &Config{
		Port:               port,
		DatabaseURL:        dbURL,
		RedisURL:           os.Getenv("REDIS_URL"),
		SweepIntervalHours: interval,
		CacheTTLSeconds:    cacheTTL,
	}, nil
}
