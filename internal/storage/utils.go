package storage

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// ExportIndexFile is the page stored at the root of every export folder
const ExportIndexFile = "index.html"

// GenerateExportFolderPath generates a consistent folder path for exports
// Format: YYYY/MM/DD/Dashboard-YYYY-MM-DD-HH-MM-SS
func GenerateExportFolderPath(timestamp time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d/Dashboard-%04d-%02d-%02d-%02d-%02d-%02d",
		timestamp.Year(), timestamp.Month(), timestamp.Day(),
		timestamp.Year(), timestamp.Month(), timestamp.Day(),
		timestamp.Hour(), timestamp.Minute(), timestamp.Second())
}

// CleanPath normalizes a client supplied path and rejects anything that
// would leave the storage root
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// exportFolders turns index file paths into export folders, newest first.
// Folder names embed the timestamp, so reverse lexical order is newest first.
func exportFolders(indexPaths []string, limit int) []string {
	folders := make([]string, 0, len(indexPaths))
	for _, p := range indexPaths {
		folders = append(folders, path.Dir(p))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(folders)))
	if limit > 0 && limit < len(folders) {
		folders = folders[:limit]
	}
	return folders
}

// GetContentType determines the MIME content type based on file extension
func GetContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
