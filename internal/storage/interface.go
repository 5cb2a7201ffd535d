package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a stored file does not exist
var ErrNotFound = errors.New("file not found")

// ErrInvalidPath is returned for paths that escape the storage root
var ErrInvalidPath = errors.New("invalid storage path")

// StorageClient defines the operations dashboard exports need from a backend.
// Paths are slash-separated and relative to the storage root.
type StorageClient interface {
	// Close releases the client
	Close() error

	// StoreFile writes data at filePath, creating parent folders as needed
	StoreFile(ctx context.Context, filePath string, data []byte) error

	// GetFile reads the file at filePath
	GetFile(ctx context.Context, filePath string) ([]byte, error)

	// FileExists reports whether a file exists at filePath
	FileExists(ctx context.Context, filePath string) (bool, error)

	// ListExports returns the folders of stored exports, newest first
	ListExports(ctx context.Context, limit int) ([]string, error)
}
