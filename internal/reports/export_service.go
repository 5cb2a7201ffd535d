package reports

import (
	"context"
	"fmt"
	"path"
	"time"

	"chartdash/internal/logger"
	"chartdash/internal/render"
	"chartdash/internal/storage"
)

// ExportResult describes a stored dashboard export
type ExportResult struct {
	Folder string   `json:"folder"`
	Index  string   `json:"index"`
	Files  []string `json:"files"`
}

// ExportService orchestrates dashboard exports
type ExportService struct {
	files   *FileGenerator
	storage *StorageOrchestrator
}

// NewExportService creates an export service writing to client
func NewExportService(htmlBuilder *HTMLBuilder, png *render.PNGRenderer, client storage.StorageClient) *ExportService {
	return &ExportService{
		files:   NewFileGenerator(htmlBuilder, png),
		storage: NewStorageOrchestrator(client),
	}
}

// Export generates and stores a snapshot of the dashboard
func (s *ExportService) Export(ctx context.Context, snap Snapshot) (*ExportResult, error) {
	start := time.Now()

	files, err := s.files.GenerateAllFiles(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to generate export files: %w", err)
	}

	stored, err := s.storage.StoreAllFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	logger.Info("Dashboard exported", logger.Fields{
		"folder":   files.FolderPath,
		"charts":   len(snap.Charts),
		"duration": time.Since(start).String(),
	})

	return &ExportResult{
		Folder: files.FolderPath,
		Index:  path.Join(files.FolderPath, storage.ExportIndexFile),
		Files:  stored,
	}, nil
}
