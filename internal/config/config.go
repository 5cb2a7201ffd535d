package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the dashboard service
type Config struct {
	// Server configuration
	Port string `env:"PORT,default=8981"`

	// Styling
	StylesheetPath string `env:"STYLESHEET_PATH,default=./static/styles.css"`

	// Export storage configuration
	StorageMode    string `env:"STORAGE_MODE,default=local"`
	LocalExportDir string `env:"LOCAL_EXPORT_DIR,default=./exports"`
	GCPProjectID   string `env:"GCP_PROJECT_ID"`
	GCSBucket      string `env:"GCS_BUCKET"`

	// Data loading
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT,default=30s"`
	FetchRetryCount int           `env:"FETCH_RETRY_COUNT,default=0"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES,default=33554432"`

	// Sessions
	SessionTTL time.Duration `env:"SESSION_TTL,default=2h"`

	// Local testing configuration
	MockupMode bool   `env:"MOCKUP_MODE,default=false"`
	MocksDir   string `env:"MOCKS_DIR,default=./internal/mocks"`

	// Service configuration
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=auto"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express
func (c *Config) Validate() error {
	switch c.StorageMode {
	case "local":
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when STORAGE_MODE=gcs")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_MODE %q (want local or gcs)", c.StorageMode)
	}
	if c.FetchRetryCount < 0 {
		return fmt.Errorf("FETCH_RETRY_COUNT must not be negative, got %d", c.FetchRetryCount)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
