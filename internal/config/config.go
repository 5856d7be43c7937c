package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings. It is read from the environment once at
// startup, after an optional .env file has been applied.
type Config struct {
	Port       string
	DBPath     string
	BaseURL    string
	JWTSecret  string
	SessionTTL time.Duration

	LogLevel  string
	LogFormat string

	// Object storage for item images. Storage is disabled when S3Bucket is empty.
	S3Endpoint  string
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	PostmarkToken string
	FromEmail     string
}

// StorageEnabled reports whether object storage is configured.
func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != ""
}

// EmailEnabled reports whether invitation emails can be sent.
func (c *Config) EmailEnabled() bool {
	return c.PostmarkToken != "" && c.FromEmail != ""
}

// Load reads the configuration. envFiles are loaded first without overriding
// variables already set; missing files are ignored. Every missing required
// variable is reported in a single error.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	var missing []string

	cfg.JWTSecret = os.Getenv("TANDEM_JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "TANDEM_JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}

	cfg.Port = getEnvString("TANDEM_PORT", "8080")
	cfg.DBPath = getEnvString("TANDEM_DB_PATH", "tandem.db")
	cfg.BaseURL = strings.TrimRight(getEnvString("TANDEM_BASE_URL", "http://localhost:"+cfg.Port), "/")
	cfg.SessionTTL = getEnvDuration("TANDEM_SESSION_TTL", 720*time.Hour)
	cfg.LogLevel = getEnvString("TANDEM_LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("TANDEM_LOG_FORMAT", "text")

	cfg.S3Endpoint = os.Getenv("TANDEM_S3_ENDPOINT")
	cfg.S3Bucket = os.Getenv("TANDEM_S3_BUCKET")
	cfg.S3Region = getEnvString("TANDEM_S3_REGION", "us-east-1")
	cfg.S3AccessKey = os.Getenv("TANDEM_S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("TANDEM_S3_SECRET_KEY")

	cfg.PostmarkToken = os.Getenv("TANDEM_POSTMARK_TOKEN")
	cfg.FromEmail = os.Getenv("TANDEM_FROM_EMAIL")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
