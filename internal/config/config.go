package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const defaultMaxMediaBytes = 100 * 1024 * 1024

// Config holds the environment driven configuration for the media service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"media-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"MEDIA_API_PORT" envDefault:"3000"`
	LogLevel        string        `env:"MEDIA_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"MEDIA_LOG_FORMAT" envDefault:"json"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"MEDIA_REQUEST_TIMEOUT" envDefault:"0s"` // 0 disables the per-request deadline

	// Database (optional: an empty DSN runs the metadata store in degraded mode)
	DBPostgresqlWriteDSN string `env:"DB_POSTGRESQL_WRITE_DSN"`

	// Database Connection Pool
	DBMaxIdleConns  int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime  time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBProbeInterval time.Duration `env:"DB_PROBE_INTERVAL" envDefault:"15s"`

	// Storage Backend Selection
	StorageBackend string `env:"MEDIA_STORAGE_BACKEND" envDefault:"local"` // Options: "local", "s3" or "minio"

	// Local Storage Configuration
	LocalStoragePath string `env:"MEDIA_LOCAL_STORAGE_PATH" envDefault:"./uploads"`

	// S3 Storage Configuration
	S3Endpoint     string `env:"MEDIA_S3_ENDPOINT"`
	S3Region       string `env:"MEDIA_S3_REGION" envDefault:"us-west-2"`
	S3Bucket       string `env:"MEDIA_S3_BUCKET"`
	S3AccessKeyID  string `env:"MEDIA_S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"MEDIA_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `env:"MEDIA_S3_USE_PATH_STYLE" envDefault:"true"`
	S3SpoolDir     string `env:"MEDIA_S3_SPOOL_DIR"` // temp directory for sizing uploads before PutObject

	// MinIO Storage Configuration
	MinIOEndpoint  string `env:"MEDIA_MINIO_ENDPOINT"` // "minio:9000" or "http://minio:9000"
	MinIOAccessKey string `env:"MEDIA_MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MEDIA_MINIO_SECRET_KEY"`
	MinIOBucket    string `env:"MEDIA_MINIO_BUCKET"`

	// Media Configuration
	MaxMediaBytes  int64  `env:"MEDIA_MAX_BYTES" envDefault:"104857600"`
	AcceptedPrefix string `env:"MEDIA_ACCEPTED_PREFIX" envDefault:"video/"`
	SniffContent   bool   `env:"MEDIA_SNIFF_CONTENT" envDefault:"false"`
	UploadField    string `env:"MEDIA_UPLOAD_FIELD" envDefault:"video"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.DBPostgresqlWriteDSN = strings.TrimSpace(c.DBPostgresqlWriteDSN)
	c.LocalStoragePath = strings.TrimSpace(c.LocalStoragePath)
	c.S3Bucket = strings.TrimSpace(c.S3Bucket)
	c.S3AccessKeyID = strings.TrimSpace(c.S3AccessKeyID)
	c.S3SecretKey = strings.TrimSpace(c.S3SecretKey)
	c.S3Endpoint = strings.TrimSpace(c.S3Endpoint)
	c.MinIOEndpoint = strings.TrimSpace(c.MinIOEndpoint)
	c.MinIOBucket = strings.TrimSpace(c.MinIOBucket)
	c.AcceptedPrefix = strings.ToLower(strings.TrimSpace(c.AcceptedPrefix))
	c.UploadField = strings.TrimSpace(c.UploadField)

	if c.MaxMediaBytes <= 0 {
		c.MaxMediaBytes = defaultMaxMediaBytes
	}
	if c.AcceptedPrefix == "" {
		c.AcceptedPrefix = "video/"
	}
	if c.UploadField == "" {
		c.UploadField = "video"
	}
	if c.DBProbeInterval <= 0 {
		c.DBProbeInterval = 15 * time.Second
	}

	switch c.backend() {
	case "local":
		if c.LocalStoragePath == "" {
			return fmt.Errorf("MEDIA_LOCAL_STORAGE_PATH is required for the local storage backend")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("MEDIA_S3_BUCKET is required for the s3 storage backend")
		}
	case "minio":
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" {
			return fmt.Errorf("MEDIA_MINIO_ENDPOINT and MEDIA_MINIO_BUCKET are required for the minio storage backend")
		}
	default:
		return fmt.Errorf("unsupported MEDIA_STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

func (c *Config) backend() string {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	if backend == "" {
		return "local"
	}
	return backend
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// HasDatabase reports whether a metadata database is configured at all.
func (c *Config) HasDatabase() bool {
	return c.DBPostgresqlWriteDSN != ""
}

// IsLocalStorage returns true if local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	return c.backend() == "local"
}

// IsS3Storage returns true if S3 storage backend is configured.
func (c *Config) IsS3Storage() bool {
	return c.backend() == "s3"
}

// IsMinIOStorage returns true if the MinIO storage backend is configured.
func (c *Config) IsMinIOStorage() bool {
	return c.backend() == "minio"
}

// StorageProvider names the active blob backend.
func (c *Config) StorageProvider() string {
	return c.backend()
}
