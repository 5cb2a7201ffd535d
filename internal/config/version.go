package config

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const fallbackVersion = "0.1.0"

// GetVersion returns the version from APP_VERSION, or the VERSION file
// suffixed with the short VCS revision the binary was built from.
func GetVersion() string {
	if envVersion := os.Getenv("APP_VERSION"); envVersion != "" {
		return envVersion
	}

	base := getBaseVersion()
	if rev := buildRevision(); rev != "" {
		return base + "+" + rev
	}
	return base
}

// getBaseVersion reads the VERSION file from the working directory or its parent
func getBaseVersion() string {
	for _, p := range []string{"VERSION", filepath.Join("..", "VERSION")} {
		if content, err := os.ReadFile(p); err == nil {
			if v := strings.TrimSpace(string(content)); v != "" {
				return v
			}
		}
	}
	return fallbackVersion
}

// buildRevision returns the first 7 characters of the embedded vcs.revision
func buildRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
