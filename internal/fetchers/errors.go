package fetchers

import "errors"

var (
	// ErrUnsupportedFormat is returned when the content type (or, for
	// uploads, the file extension) names no supported format
	ErrUnsupportedFormat = errors.New("unsupported data format")
	// ErrFetch is returned when a URL cannot be retrieved
	ErrFetch = errors.New("failed to fetch data")
	// ErrParse is returned when content of a supported format is malformed
	ErrParse = errors.New("failed to parse data")
)
