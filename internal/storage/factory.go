package storage

import (
	"context"
	"fmt"

	"chartdash/internal/config"
	"chartdash/internal/logger"
)

// DeploymentMode selects the export storage backend
type DeploymentMode string

const (
	DeploymentLocal DeploymentMode = "local"
	DeploymentGCS   DeploymentMode = "gcs"
)

// NewStorageClient creates a storage client based on deployment mode and configuration
func NewStorageClient(ctx context.Context, deploymentMode DeploymentMode, cfg *config.Config) (StorageClient, error) {
	switch deploymentMode {
	case DeploymentLocal:
		exportDir := cfg.LocalExportDir
		if exportDir == "" {
			exportDir = "exports"
		}

		localClient, err := NewLocalStorageClient(exportDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage client: %w", err)
		}
		return localClient, nil

	case DeploymentGCS:
		gcsClient, err := NewGCSClient(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
		}
		logger.Info("Using GCS export storage", logger.Fields{
			"bucket":  cfg.GCSBucket,
			"project": cfg.GCPProjectID,
		})
		return gcsClient, nil

	default:
		return nil, fmt.Errorf("unsupported deployment mode: %s", deploymentMode)
	}
}
