package reports

import (
	"context"
	"fmt"
	"path"
	"sort"

	"chartdash/internal/logger"
	"chartdash/internal/storage"
)

// StorageOrchestrator handles the business logic of storing generated files
type StorageOrchestrator struct {
	storage storage.StorageClient
}

// NewStorageOrchestrator creates a new storage orchestrator
func NewStorageOrchestrator(client storage.StorageClient) *StorageOrchestrator {
	return &StorageOrchestrator{storage: client}
}

// StoreAllFiles writes every generated file below files.FolderPath and
// returns the stored paths, index page first
func (so *StorageOrchestrator) StoreAllFiles(ctx context.Context, files *GeneratedFiles) ([]string, error) {
	indexPath := path.Join(files.FolderPath, storage.ExportIndexFile)
	if err := so.storage.StoreFile(ctx, indexPath, []byte(files.HTMLContent)); err != nil {
		return nil, fmt.Errorf("failed to store HTML page: %w", err)
	}
	stored := []string{indexPath}

	for _, group := range []map[string][]byte{files.JSONFiles, files.AssetFiles} {
		names := make([]string, 0, len(group))
		for name := range group {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			p := path.Join(files.FolderPath, name)
			if err := so.storage.StoreFile(ctx, p, group[name]); err != nil {
				return stored, fmt.Errorf("failed to store %s: %w", name, err)
			}
			stored = append(stored, p)
		}
	}

	logger.Info("Export files stored", logger.Fields{
		"folder": files.FolderPath,
		"files":  len(stored),
	})
	return stored, nil
}
