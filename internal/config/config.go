package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	HTTPPort           string
	DatabaseDriver     string // "postgres" or "sqlite"
	DatabaseDSN        string
	CORSOrigins        string
	NikasiSource       string // "storage" or "grading": which buckets nikasi debits
	AllocateMaxRetries int    // conflict retries before surfacing to the caller
}

const defaultPostgresDSN = "host=localhost user=postgres password=postgres dbname=coldstore port=5432 sslmode=disable"

func Load() *Config {
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseDriver:     getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseDSN:        getEnv("DATABASE_DSN", defaultPostgresDSN),
		CORSOrigins:        getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		NikasiSource:       getEnv("NIKASI_SOURCE", "storage"),
		AllocateMaxRetries: getEnvInt("ALLOCATE_MAX_RETRIES", 3),
	}

	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		log.Fatalf("[FATAL] DATABASE_DRIVER must be postgres or sqlite, got %q", cfg.DatabaseDriver)
	}
	if cfg.NikasiSource != "storage" && cfg.NikasiSource != "grading" {
		log.Fatalf("[FATAL] NIKASI_SOURCE must be storage or grading, got %q", cfg.NikasiSource)
	}
	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseDSN == defaultPostgresDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value, set your own Postgres connection for production.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the default value, set your own domain for production.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("[FATAL] %s must be an integer, got %q", key, v)
	}
	return n
}
