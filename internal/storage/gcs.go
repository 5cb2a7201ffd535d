package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"chartdash/internal/logger"
)

// GCSClient stores exports in a Google Cloud Storage bucket
type GCSClient struct {
	client *storage.Client
	bucket string
	log    *logger.Logger
}

// NewGCSClient creates a new GCS client
func NewGCSClient(ctx context.Context, bucketName string) (*GCSClient, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("GCS bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSClient{
		client: client,
		bucket: bucketName,
		log:    logger.Component("storage").With(logger.Fields{"backend": "gcs", "bucket": bucketName}),
	}, nil
}

// Close closes the GCS client
func (g *GCSClient) Close() error {
	return g.client.Close()
}

// StoreFile uploads data as object filePath
func (g *GCSClient) StoreFile(ctx context.Context, filePath string, data []byte) error {
	objectPath, err := CleanPath(filePath)
	if err != nil {
		return err
	}

	writer := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	writer.ContentType = GetContentType(objectPath)
	writer.CacheControl = "public, max-age=3600"
	writer.Metadata = map[string]string{
		"generated-at": time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write file to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS file upload: %w", err)
	}

	g.log.Debug("File stored", logger.Fields{"object": objectPath, "bytes": len(data)})
	return nil
}

// GetFile downloads object filePath
func (g *GCSClient) GetFile(ctx context.Context, filePath string) ([]byte, error) {
	objectPath, err := CleanPath(filePath)
	if err != nil {
		return nil, err
	}

	reader, err := g.client.Bucket(g.bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
		}
		return nil, fmt.Errorf("failed to create reader for file %s: %w", filePath, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return data, nil
}

// FileExists reports whether object filePath exists
func (g *GCSClient) FileExists(ctx context.Context, filePath string) (bool, error) {
	objectPath, err := CleanPath(filePath)
	if err != nil {
		return false, err
	}

	_, err = g.client.Bucket(g.bucket).Object(objectPath).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object %s: %w", objectPath, err)
	}
	return true, nil
}

// ListExports lists export folders in the bucket, newest first
func (g *GCSClient) ListExports(ctx context.Context, limit int) ([]string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{})

	var indexes []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, "/"+ExportIndexFile) {
			indexes = append(indexes, attrs.Name)
		}
	}

	return exportFolders(indexes, limit), nil
}
