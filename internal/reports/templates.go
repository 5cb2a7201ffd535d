package reports

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"chartdash/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Stylesheet is the custom CSS applied to generated pages
type Stylesheet struct {
	CSS string
	// Warning is set when a configured stylesheet could not be used
	Warning string
}

// TemplateLoader handles loading HTML templates and CSS styles
type TemplateLoader struct {
	stylesheetPath string
}

// NewTemplateLoader creates a loader reading custom styles from
// stylesheetPath. An empty path disables custom styles.
func NewTemplateLoader(stylesheetPath string) *TemplateLoader {
	return &TemplateLoader{stylesheetPath: stylesheetPath}
}

// LoadHTMLTemplate returns the dashboard page template
func (t *TemplateLoader) LoadHTMLTemplate() (string, error) {
	content, err := templateFS.ReadFile("templates/dashboard.html")
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// LoadStylesheet reads the stylesheet on every call so edits show up without
// a restart. A missing file is not an error: the page renders unstyled and
// carries a warning.
func (t *TemplateLoader) LoadStylesheet() Stylesheet {
	if t.stylesheetPath == "" {
		return Stylesheet{}
	}

	content, err := os.ReadFile(t.stylesheetPath)
	if err != nil {
		var warning string
		if errors.Is(err, fs.ErrNotExist) {
			warning = fmt.Sprintf("CSS file not found at %s. Skipping custom styles.", t.stylesheetPath)
		} else {
			warning = fmt.Sprintf("CSS file at %s could not be read. Skipping custom styles.", t.stylesheetPath)
		}
		logger.Warn(warning, logger.Fields{"error": err.Error()})
		return Stylesheet{Warning: warning}
	}
	return Stylesheet{CSS: string(content)}
}
