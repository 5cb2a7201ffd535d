package mocks

import (
	"fmt"
	"os"
	"path/filepath"

	"chartdash/internal/fetchers"
	"chartdash/internal/logger"
	"chartdash/internal/session"
)

// SampleDatasetFile is the dataset new sessions start with in mockup mode
const SampleDatasetFile = "sample.csv"

// MockService handles loading mock data for testing
type MockService struct {
	mocksDir string
}

// NewMockService creates a new mock service
func NewMockService(mocksDir string) *MockService {
	return &MockService{
		mocksDir: filepath.Join(mocksDir, "data"),
	}
}

// LoadMockDataset parses the sample dataset
func (m *MockService) LoadMockDataset() (*fetchers.Source, error) {
	filePath := filepath.Join(m.mocksDir, SampleDatasetFile)
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mock dataset: %w", err)
	}

	src, err := fetchers.LoadUpload(SampleDatasetFile, "text/csv", content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mock dataset: %w", err)
	}
	src.Fingerprint = "mock:" + SampleDatasetFile
	return src, nil
}

// Seed loads the sample dataset into a new session. It matches
// session.SeedFunc.
func (m *MockService) Seed(st *session.State) error {
	src, err := m.LoadMockDataset()
	if err != nil {
		return err
	}
	st.Load(src, false)
	logger.Debug("Session seeded with mock dataset", logger.Fields{"rows": src.Dataset.RowCount()})
	return nil
}
