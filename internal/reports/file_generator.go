package reports

import (
	"encoding/json"
	"fmt"
	"time"

	"chartdash/internal/dashboard"
	"chartdash/internal/logger"
	"chartdash/internal/models"
	"chartdash/internal/render"
	"chartdash/internal/storage"
	"chartdash/internal/summary"
)

// Snapshot is the state of one dashboard at export time
type Snapshot struct {
	Timestamp  time.Time
	SourceName string
	Dataset    *models.Dataset
	Charts     []dashboard.Chart
}

// GeneratedFiles contains all files generated for an export
type GeneratedFiles struct {
	HTMLContent string
	JSONFiles   map[string][]byte
	AssetFiles  map[string][]byte // PNG renders, markdown
	FolderPath  string
}

// FileGenerator handles generation of all export files
type FileGenerator struct {
	htmlBuilder *HTMLBuilder
	png         *render.PNGRenderer
}

// NewFileGenerator creates a new file generator
func NewFileGenerator(htmlBuilder *HTMLBuilder, png *render.PNGRenderer) *FileGenerator {
	return &FileGenerator{
		htmlBuilder: htmlBuilder,
		png:         png,
	}
}

// PNGFileName is the name of the PNG render of the chart at index inside an
// export folder
func PNGFileName(index int) string {
	return fmt.Sprintf("chart-%d.png", index+1)
}

// GenerateAllFiles creates all export files (HTML page, PNGs, JSON)
func (fg *FileGenerator) GenerateAllFiles(snap Snapshot) (*GeneratedFiles, error) {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	files := &GeneratedFiles{
		JSONFiles:  make(map[string][]byte),
		AssetFiles: make(map[string][]byte),
		FolderPath: storage.GenerateExportFolderPath(snap.Timestamp),
	}

	// 1. Evaluated chart configuration
	if err := fg.generateChartsJSON(snap, files); err != nil {
		return nil, err
	}

	// 2. Data overview
	if snap.Dataset != nil {
		if err := fg.generateSummaryFiles(snap.Dataset, files); err != nil {
			logger.Warn("Failed to generate summary files", logger.Fields{"error": err.Error()})
		}
	}

	// 3. PNG renders; a chart that fails to render is left out
	for _, c := range snap.Charts {
		data, err := fg.png.RenderBytes(c.Figure)
		if err != nil {
			logger.Warn("Failed to render chart PNG", logger.Fields{"chart": c.Header, "error": err.Error()})
			continue
		}
		files.AssetFiles[PNGFileName(c.Index)] = data
	}

	// 4. Static HTML page
	page, err := fg.htmlBuilder.BuildPage(PageInput{
		SourceName:  snap.SourceName,
		Dataset:     snap.Dataset,
		Charts:      snap.Charts,
		PNGPath:     PNGFileName,
		GeneratedAt: snap.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}
	files.HTMLContent = page

	return files, nil
}

// exportedChart is the JSON form of one chart in charts.json
type exportedChart struct {
	Index  int                   `json:"index"`
	Header string                `json:"header"`
	Kind   models.ChartKind      `json:"kind"`
	Rows   int                   `json:"rows"`
	Config models.ResolvedConfig `json:"config"`
}

func (fg *FileGenerator) generateChartsJSON(snap Snapshot, files *GeneratedFiles) error {
	out := struct {
		GeneratedAt time.Time       `json:"generated_at"`
		Source      string          `json:"source,omitempty"`
		Charts      []exportedChart `json:"charts"`
	}{
		GeneratedAt: snap.Timestamp,
		Source:      snap.SourceName,
		Charts:      make([]exportedChart, 0, len(snap.Charts)),
	}
	for _, c := range snap.Charts {
		out.Charts = append(out.Charts, exportedChart{
			Index:  c.Index,
			Header: c.Header,
			Kind:   c.Kind,
			Rows:   c.Rows,
			Config: c.Config,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chart configuration: %w", err)
	}
	files.JSONFiles["charts.json"] = data
	logger.Debug("Generated charts JSON", logger.Fields{"bytes": len(data)})
	return nil
}

func (fg *FileGenerator) generateSummaryFiles(ds *models.Dataset, files *GeneratedFiles) error {
	s := summary.Build(ds)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	files.JSONFiles["summary.json"] = data
	files.AssetFiles["summary.md"] = []byte(SummaryMarkdown(s))
	return nil
}
