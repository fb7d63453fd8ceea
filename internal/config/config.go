package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL settings for the conversion job history.
// The history is optional: it is enabled only when Host is set.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Enabled reports whether a job-history database was configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// ArchiveConfig holds the optional S3-compatible artifact archive settings.
// Enabled only when Endpoint is set.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether artifact archiving was configured.
func (c ArchiveConfig) Enabled() bool { return c.Endpoint != "" }

// EngineConfig holds settings for the local conversion engine.
type EngineConfig struct {
	BrowserBin       string // optional headless-browser binary for PDF rendering
	RenderTimeoutSec int
}

// AppConfig is the centralized configuration struct for the gateway.
// It is populated from environment variables.
type AppConfig struct {
	Port     string
	Database DatabaseConfig
	Archive  ArchiveConfig
	Engine   EngineConfig
}

// Load reads configuration from environment variables. A .env file can be
// auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence.
//
// The listening port is resolved in priority order:
// INVOICE_API_PORT, then PORT, then "8080".
func Load() *AppConfig {
	return &AppConfig{
		Port: getEnv("INVOICE_API_PORT", getEnv("PORT", "8080")),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Archive: ArchiveConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "invoice-artifacts"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Engine: EngineConfig{
			BrowserBin:       getEnv("ROD_BROWSER_BIN", ""),
			RenderTimeoutSec: getEnvInt("RENDER_TIMEOUT_SEC", 30),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
