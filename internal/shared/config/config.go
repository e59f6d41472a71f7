package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv     string
	ListenAddr string

	StoreDriver   string // "postgres" or "memory"
	DatabaseURL   string
	RedisURL      string
	EncryptionKey string

	SMSProvider string // "dev" or "smsc"
	SMSCLogin   string
	SMSCPass    string
	SMSCSender  string

	LivenessProvider string // "stub" or "http"
	LivenessAPIURL   string
	LivenessAPIKey   string

	OCRProvider string // "stub" or "http"
	OCRAPIURL   string
	OCRAPIKey   string

	S3Bucket   string
	S3Region   string
	S3Endpoint string

	QueueWorkers      int
	QueueBuffer       int
	RetentionInterval time.Duration
}

// bindings maps viper keys to environment variables.
var bindings = map[string]string{
	"app.env":            "APP_ENV",
	"app.listen":         "LISTEN_ADDR",
	"store.driver":       "STORE_DRIVER",
	"db.url":             "DATABASE_URL",
	"redis.url":          "REDIS_URL",
	"encryption.key":     "ENCRYPTION_KEY",
	"sms.provider":       "SMS_PROVIDER",
	"sms.smsc.login":     "SMSC_LOGIN",
	"sms.smsc.pass":      "SMSC_PASS",
	"sms.smsc.sender":    "SMSC_SENDER",
	"liveness.provider":  "LIVENESS_PROVIDER",
	"liveness.api.url":   "LIVENESS_API_URL",
	"liveness.api.key":   "LIVENESS_API_KEY",
	"ocr.provider":       "OCR_PROVIDER",
	"ocr.api.url":        "OCR_API_URL",
	"ocr.api.key":        "OCR_API_KEY",
	"s3.bucket":          "S3_BUCKET",
	"s3.region":          "S3_REGION",
	"s3.endpoint":        "S3_ENDPOINT",
	"queue.workers":      "QUEUE_WORKERS",
	"queue.buffer":       "QUEUE_BUFFER",
	"retention.interval": "RETENTION_INTERVAL",
}

// Load loads configuration from environment variables, with .env support
// for local development.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine; OS-set env vars still apply.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	viper.SetDefault("app.env", "dev")
	viper.SetDefault("app.listen", ":8080")
	viper.SetDefault("store.driver", "postgres")
	viper.SetDefault("sms.provider", "dev")
	viper.SetDefault("liveness.provider", "stub")
	viper.SetDefault("ocr.provider", "stub")
	viper.SetDefault("s3.region", "eu-central-1")
	viper.SetDefault("queue.workers", 4)
	viper.SetDefault("queue.buffer", 256)
	viper.SetDefault("retention.interval", "10m")

	cfg := Config{
		AppEnv:            viper.GetString("app.env"),
		ListenAddr:        viper.GetString("app.listen"),
		StoreDriver:       viper.GetString("store.driver"),
		DatabaseURL:       viper.GetString("db.url"),
		RedisURL:          viper.GetString("redis.url"),
		EncryptionKey:     viper.GetString("encryption.key"),
		SMSProvider:       viper.GetString("sms.provider"),
		SMSCLogin:         viper.GetString("sms.smsc.login"),
		SMSCPass:          viper.GetString("sms.smsc.pass"),
		SMSCSender:        viper.GetString("sms.smsc.sender"),
		LivenessProvider:  viper.GetString("liveness.provider"),
		LivenessAPIURL:    viper.GetString("liveness.api.url"),
		LivenessAPIKey:    viper.GetString("liveness.api.key"),
		OCRProvider:       viper.GetString("ocr.provider"),
		OCRAPIURL:         viper.GetString("ocr.api.url"),
		OCRAPIKey:         viper.GetString("ocr.api.key"),
		S3Bucket:          viper.GetString("s3.bucket"),
		S3Region:          viper.GetString("s3.region"),
		S3Endpoint:        viper.GetString("s3.endpoint"),
		QueueWorkers:      viper.GetInt("queue.workers"),
		QueueBuffer:       viper.GetInt("queue.buffer"),
		RetentionInterval: viper.GetDuration("retention.interval"),
	}

	if cfg.EncryptionKey == "" {
		return nil, errors.New("ENCRYPTION_KEY is not set in environment or .env file")
	}
	if len(cfg.EncryptionKey) != 64 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(cfg.EncryptionKey))
	}
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required with the postgres store driver")
	}
	if cfg.SMSProvider == "smsc" && (cfg.SMSCLogin == "" || cfg.SMSCPass == "") {
		return nil, errors.New("SMSC_LOGIN and SMSC_PASS are required with the smsc provider")
	}

	return &cfg, nil
}

// DevMode reports whether human-readable logging should be used.
func (c *Config) DevMode() bool {
	return c.AppEnv == "dev"
}

// EncryptionKeyBytes decodes the hex key for the cipher.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
	}
	return key, nil
}
