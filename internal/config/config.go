// Package config loads application configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultMaxUploadBytes is the relay's size ceiling (25 MiB).
const DefaultMaxUploadBytes int64 = 25 * 1024 * 1024

// Config holds all runtime configuration for the relay server.
type Config struct {
	Port      string
	AppEnv    string
	LogLevel  string
	LogFormat string

	// CORS: callers outside the allow-list get DefaultOrigin reflected back.
	AllowedOrigins []string
	DefaultOrigin  string

	MaxUploadBytes int64

	// PublicBaseURL is the externally reachable base of this service; blob
	// URLs handed to Telegram are built from it.
	PublicBaseURL string
	BlobSecret    string
	BlobTTL       time.Duration
	BlobCacheSize int

	// Blob storage: "memory" (default) or "minio" (any S3-compatible provider).
	StorageBackend   string
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool

	TelegramBotToken    string
	TelegramAPIEndpoint string // empty means the public Bot API
}

// ClientConfig holds configuration for the sharectl client.
type ClientConfig struct {
	RelayURL       string
	PrepareURL     string
	UploadTimeout  time.Duration
	PrepareTimeout time.Duration
	DownloadDir    string

	TelegramBotToken string
	LogLevel         string
	LogFormat        string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	loadDotEnv()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "https://negroni.work,https://www.negroni.work,null")),
		DefaultOrigin:  getEnv("DEFAULT_ORIGIN", "https://negroni.work"),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),

		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		BlobSecret:    getEnv("BLOB_SECRET", "change_me_in_production"),
		BlobTTL:       getEnvDuration("BLOB_TTL", 5*time.Minute),
		BlobCacheSize: int(getEnvInt64("BLOB_CACHE_SIZE", 256)),

		StorageBackend:   getEnv("STORAGE_BACKEND", "memory"),
		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "relay-blobs"),
		StorageUseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",

		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIEndpoint: getEnv("TELEGRAM_API_ENDPOINT", ""),
	}
}

// LoadClient reads sharectl configuration the same way Load does.
func LoadClient() *ClientConfig {
	loadDotEnv()

	relayURL := strings.TrimRight(getEnv("RELAY_URL", "https://api.negroni.work"), "/")
	return &ClientConfig{
		RelayURL:       relayURL,
		PrepareURL:     getEnv("PREPARE_URL", relayURL+"/prepare"),
		UploadTimeout:  getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second),
		PrepareTimeout: getEnvDuration("PREPARE_TIMEOUT", 30*time.Second),
		DownloadDir:    getEnv("DOWNLOAD_DIR", "."),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// TelegramEnabled reports whether the share-handle provider can reach Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, reading from environment")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer in environment, using default", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration in environment, using default", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
