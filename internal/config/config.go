// Package config loads dashboard settings from the environment, with an
// optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every runtime setting of the API, CLI and migrate binaries.
type Config struct {
	Port                string
	DatabasePath        string
	AllowMemoryFallback bool
	LogLevel            string

	IngestChunkSize int
	BatchPolicy     string // "first" or "last"
	RulesFile       string

	GCSBucket string

	BigQueryProject string
	BigQueryDataset string
	BigQueryTable   string

	GeminiModel string

	NotionToken      string
	NotionDatabaseID string

	RateLimitRPS   float64
	RateLimitBurst int
	ReportCacheTTL time.Duration
	MaxUploadBytes int64
}

// Load reads .env (if present) and the process environment.
// Invalid values fall back to defaults with a warning.
func Load(log zerolog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, using process environment")
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		DatabasePath:        getEnv("DATABASE_PATH", "./finance.db"),
		AllowMemoryFallback: getEnvAsBool(log, "ALLOW_MEMORY_FALLBACK", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),

		IngestChunkSize: getEnvAsInt(log, "INGEST_CHUNK_SIZE", 200),
		BatchPolicy:     strings.ToLower(getEnv("BATCH_POLICY", "last")),
		RulesFile:       getEnv("RULES_FILE", ""),

		GCSBucket: getEnv("GCS_BUCKET", ""),

		BigQueryProject: getEnv("BQ_PROJECT", ""),
		BigQueryDataset: getEnv("BQ_DATASET", "finance"),
		BigQueryTable:   getEnv("BQ_TABLE", "dashboard_transactions"),

		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DB_ID", ""),

		RateLimitRPS:   getEnvAsFloat(log, "RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt(log, "RATE_LIMIT_BURST", 20),
		ReportCacheTTL: getEnvAsDuration(log, "REPORT_CACHE_TTL", 5*time.Minute),
		MaxUploadBytes: int64(getEnvAsInt(log, "MAX_UPLOAD_BYTES", 10<<20)),
	}

	if cfg.IngestChunkSize <= 0 {
		log.Warn().Int("value", cfg.IngestChunkSize).Msg("INGEST_CHUNK_SIZE must be positive, using 200")
		cfg.IngestChunkSize = 200
	}
	if cfg.BatchPolicy != "first" && cfg.BatchPolicy != "last" {
		log.Warn().Str("value", cfg.BatchPolicy).Msg("Unknown BATCH_POLICY, using last")
		cfg.BatchPolicy = "last"
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(log zerolog.Logger, key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid integer, using default")
		return fallback
	}
	return v
}

func getEnvAsFloat(log zerolog.Logger, key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid number, using default")
		return fallback
	}
	return v
}

func getEnvAsBool(log zerolog.Logger, key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid boolean, using default")
		return fallback
	}
	return v
}

func getEnvAsDuration(log zerolog.Logger, key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid duration, using default")
		return fallback
	}
	return v
}
