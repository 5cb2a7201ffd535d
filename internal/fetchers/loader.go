package fetchers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"chartdash/internal/logger"
	"chartdash/internal/models"
)

// Format is a supported dataset encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Source is a parsed dataset together with where it came from
type Source struct {
	Name        string
	ContentType string
	Format      Format
	// Fingerprint identifies the source; loading a source with the same
	// fingerprint again yields the same dataset
	Fingerprint string
	Dataset     *models.Dataset
}

var log = logger.Component("loader")

// FormatFromContentType dispatches on a declared content type. The checks
// are substring matches so "text/csv; charset=utf-8" and
// "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" match.
func FormatFromContentType(contentType string) (Format, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "csv"):
		return FormatCSV, nil
	case strings.Contains(ct, "json"):
		return FormatJSON, nil
	case strings.Contains(ct, "excel"), strings.Contains(ct, "spreadsheetml"):
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, contentType)
}

// FormatFromExtension dispatches on a file name
func FormatFromExtension(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: file %q", ErrUnsupportedFormat, name)
}

// UploadFormat picks the format of an uploaded file. Browsers send an empty
// or generic type for some files, in which case the extension decides.
func UploadFormat(contentType, filename string) (Format, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") {
		return FormatFromExtension(filename)
	}
	return FormatFromContentType(contentType)
}

// Parse decodes data in the given format
func Parse(format Format, data []byte) (*models.Dataset, error) {
	var (
		ds  *models.Dataset
		err error
	)
	switch format {
	case FormatCSV:
		ds, err = parseCSV(bytes.NewReader(data))
	case FormatJSON:
		ds, err = parseJSON(data)
	case FormatXLSX:
		ds, err = parseXLSX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, format, err)
	}
	return ds, nil
}

// UploadFingerprint identifies uploaded content by its bytes and declared type
func UploadFingerprint(contentType string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(contentType))
	h.Write([]byte{0})
	h.Write(data)
	return "upload:" + hex.EncodeToString(h.Sum(nil))
}

// URLFingerprint identifies a remote source by its address
func URLFingerprint(url string) string {
	return "url:" + url
}

// LoadUpload parses an uploaded file
func LoadUpload(filename, contentType string, data []byte) (*Source, error) {
	format, err := UploadFormat(contentType, filename)
	if err != nil {
		return nil, err
	}

	ds, err := Parse(format, data)
	if err != nil {
		return nil, err
	}

	log.Info("Dataset loaded from upload", logger.Fields{
		"file":    filename,
		"format":  string(format),
		"rows":    ds.RowCount(),
		"columns": len(ds.Columns),
	})

	return &Source{
		Name:        filename,
		ContentType: contentType,
		Format:      format,
		Fingerprint: UploadFingerprint(contentType, data),
		Dataset:     ds,
	}, nil
}
