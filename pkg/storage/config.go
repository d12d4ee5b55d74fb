// Package storage owns the shared Postgres connection pool and schema
// migrations used by every durable component (packet store, graph state,
// compliance reporter). Centralizing it here means the pool-sizing policy of
// spec §5 (min 5, max 15) is enforced in exactly one place.
package storage

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Postgres connection parameters, read from the
// SUBSTRATE_DB_* environment variables.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MinConns        int32
	MaxConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN renders cfg as a libpq connection string.
func (cfg Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}

// LoadConfigFromEnv loads Config from environment variables, defaulting the
// pool bounds to spec §5's min 5 / max 15.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("SUBSTRATE_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SUBSTRATE_DB_PORT: %w", err)
	}
	minConns, err := strconv.Atoi(getEnvOrDefault("SUBSTRATE_DB_MIN_CONNS", "5"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SUBSTRATE_DB_MIN_CONNS: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnvOrDefault("SUBSTRATE_DB_MAX_CONNS", "15"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SUBSTRATE_DB_MAX_CONNS: %w", err)
	}
	lifetime, err := time.ParseDuration(getEnvOrDefault("SUBSTRATE_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SUBSTRATE_DB_CONN_MAX_LIFETIME: %w", err)
	}
	idleTime, err := time.ParseDuration(getEnvOrDefault("SUBSTRATE_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SUBSTRATE_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	return Config{
		Host:            getEnvOrDefault("SUBSTRATE_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("SUBSTRATE_DB_USER", "substrate"),
		Password:        os.Getenv("SUBSTRATE_DB_PASSWORD"),
		Database:        getEnvOrDefault("SUBSTRATE_DB_NAME", "substrate"),
		SSLMode:         getEnvOrDefault("SUBSTRATE_DB_SSLMODE", "disable"),
		MinConns:        int32(minConns),
		MaxConns:        int32(maxConns),
		ConnMaxLifetime: lifetime,
		ConnMaxIdleTime: idleTime,
	}, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
