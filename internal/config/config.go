package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ServiceName  string
	CORSOrigin   string

	PostgresDSN   string
	ClickHouseDSN string
	RedisAddr     string

	// OperationalTZ is the timezone the daily sync window is anchored to.
	// The warehouse partitions event time in this zone, so "yesterday" must
	// be computed in it rather than in server-local time.
	OperationalTZ string
	// SyncAt is the daily wall-clock trigger time ("HH:MM") in OperationalTZ.
	SyncAt          string
	SyncBatchSize   int
	ImportBatchSize int
	LegacyCSVPath   string
	SyncLeaseTTL    time.Duration

	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	// ClickHouse connection pooling configuration
	CHMaxOpenConns    int
	CHMaxIdleConns    int
	CHConnMaxLifetime time.Duration
	CHConnMaxIdleTime time.Duration

	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "4000")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 30*time.Second)
	cfg.ServiceName = getenv("SERVICE_NAME", "es-analytics-api")
	cfg.CORSOrigin = getenv("CORS_ORIGIN", "http://localhost:3000")

	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000/default")
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")

	cfg.OperationalTZ = getenv("OPERATIONAL_TZ", "Asia/Kolkata")
	cfg.SyncAt = getenv("SYNC_AT", "12:30")
	cfg.SyncBatchSize = envInt("SYNC_BATCH_SIZE", 2500)
	cfg.ImportBatchSize = envInt("IMPORT_BATCH_SIZE", 2000)
	cfg.LegacyCSVPath = getenv("LEGACY_CSV_PATH", "legacy_data.csv")
	cfg.SyncLeaseTTL = envDuration("SYNC_LEASE_TTL", 15*time.Minute)

	// Database connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// ClickHouse sees one analytical query per sync run, so the pool stays small.
	cfg.CHMaxOpenConns = envInt("CH_MAX_OPEN_CONNS", 10)
	cfg.CHMaxIdleConns = envInt("CH_MAX_IDLE_CONNS", 2)
	cfg.CHConnMaxLifetime = envDuration("CH_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.CHConnMaxIdleTime = envDuration("CH_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
