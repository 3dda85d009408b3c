package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL connection settings, used when the
// document store runs with the postgres driver.
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

// MinIOConfig holds S3-compatible object storage settings, used when blob
// storage runs with the minio driver.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StoreConfig selects the document record backend: "memory" (default) or "postgres".
type StoreConfig struct {
	Driver string
}

// StorageConfig selects the blob backend: "local" (default) or "minio".
// UploadDir is the base directory for the local driver.
type StorageConfig struct {
	Driver    string
	UploadDir string
}

// GeminiConfig holds the AI summarization service settings.
type GeminiConfig struct {
	APIKey     string
	Model      string
	TimeoutSec int
}

// AppConfig is the centralized configuration struct for the application,
// populated from environment variables. Sensitive values are never hardcoded.
type AppConfig struct {
	Port           string
	MaxUploadBytes int64
	Store          StoreConfig
	Storage        StorageConfig
	Database       DatabaseConfig
	MinIO          MinIOConfig
	Gemini         GeminiConfig
}

// Load reads configuration from environment variables. A .env file can be
// auto-loaded by importing _ "github.com/joho/godotenv/autoload"; real
// environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:           getEnv("PORT", "8080"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10*1024*1024),
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "memory"),
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "local"),
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		},
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
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			TimeoutSec: getEnvInt("GEMINI_TIMEOUT_SEC", 60),
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

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
