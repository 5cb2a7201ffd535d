package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"chartdash/internal/logger"
)

// LocalStorageClient stores exports on the local file system
type LocalStorageClient struct {
	baseDir string
	log     *logger.Logger
}

// NewLocalStorageClient creates a client rooted at baseDir, creating it if
// needed
func NewLocalStorageClient(baseDir string) (*LocalStorageClient, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", baseDir, err)
	}

	return &LocalStorageClient{
		baseDir: baseDir,
		log:     logger.Component("storage").With(logger.Fields{"backend": "local"}),
	}, nil
}

// Close is a no-op for local storage (implements same interface as GCSClient)
func (l *LocalStorageClient) Close() error {
	return nil
}

// BaseDir returns the storage root
func (l *LocalStorageClient) BaseDir() string {
	return l.baseDir
}

func (l *LocalStorageClient) resolve(filePath string) (string, error) {
	cleaned, err := CleanPath(filePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.baseDir, filepath.FromSlash(cleaned)), nil
}

// StoreFile writes data below the base directory
func (l *LocalStorageClient) StoreFile(ctx context.Context, filePath string, data []byte) error {
	full, err := l.resolve(filePath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", full, err)
	}

	l.log.Debug("File stored", logger.Fields{"path": filePath, "bytes": len(data)})
	return nil
}

// GetFile reads a file below the base directory
func (l *LocalStorageClient) GetFile(ctx context.Context, filePath string) ([]byte, error) {
	full, err := l.resolve(filePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return data, nil
}

// FileExists reports whether a regular file exists at filePath
func (l *LocalStorageClient) FileExists(ctx context.Context, filePath string) (bool, error) {
	full, err := l.resolve(filePath)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", filePath, err)
	}
	return !info.IsDir(), nil
}

// ListExports lists export folders below the base directory, newest first
func (l *LocalStorageClient) ListExports(ctx context.Context, limit int) ([]string, error) {
	var indexes []string

	err := filepath.WalkDir(l.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() || d.Name() != ExportIndexFile {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if strings.Contains(rel, "/") {
			indexes = append(indexes, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk export directory: %w", err)
	}

	return exportFolders(indexes, limit), nil
}
