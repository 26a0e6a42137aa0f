package config

import (
	"os"
	"strconv"
	"time"
)

// StoreMode selects the record store backing the services.
type StoreMode string

const (
	// StoreModeMemory keeps records in process memory and seeds demo data.
	StoreModeMemory StoreMode = "memory"
	// StoreModePostgres persists records in PostgreSQL.
	StoreModePostgres StoreMode = "postgres"
	// StoreModeRemote forwards records to an external records API over HTTP.
	StoreModeRemote StoreMode = "remote"
)

// Server captures process-level configuration sourced from the environment.
type Server struct {
	Addr           string
	StoreMode      StoreMode
	PostgresURL    string
	RecordsBaseURL string
	RedisURL       string
	SeedDemoData   bool
	OutboxInterval time.Duration
	OutboxAttempts int
}

// RedisConfig tunes the optional Redis connection used for sequence counters.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("QUALIS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	mode := StoreMode(os.Getenv("QUALIS_STORE_MODE"))
	switch mode {
	case StoreModePostgres, StoreModeRemote:
	default:
		mode = StoreModeMemory
	}

	interval := 2 * time.Second
	if raw := os.Getenv("QUALIS_OUTBOX_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			interval = d
		}
	}

	attempts := 8
	if raw := os.Getenv("QUALIS_OUTBOX_ATTEMPTS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			attempts = n
		}
	}

	return Server{
		Addr:           addr,
		StoreMode:      mode,
		PostgresURL:    os.Getenv("QUALIS_POSTGRES_URL"),
		RecordsBaseURL: os.Getenv("QUALIS_RECORDS_URL"),
		RedisURL:       os.Getenv("QUALIS_REDIS_URL"),
		SeedDemoData:   os.Getenv("QUALIS_SEED_DEMO") != "false",
		OutboxInterval: interval,
		OutboxAttempts: attempts,
	}
}

// Redis builds the Redis config with pool defaults applied.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
