package fetchers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"chartdash/internal/logger"
)

// DataFetcher retrieves datasets from remote URLs
type DataFetcher struct {
	client *resty.Client
}

// NewDataFetcher creates a fetcher with the given request timeout and
// transport-level retry count
func NewDataFetcher(timeout time.Duration, retryCount int) *DataFetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(retryCount)
	client.SetRetryWaitTime(2 * time.Second)

	return &DataFetcher{
		client: client,
	}
}

// NewDataFetcherWithClient wraps an existing resty client
func NewDataFetcherWithClient(client *resty.Client) *DataFetcher {
	return &DataFetcher{client: client}
}

// Fetch downloads rawURL and parses it according to the response
// Content-Type. Transport failures and non-2xx responses fail with ErrFetch;
// a content type naming no supported format fails with ErrUnsupportedFormat.
func (f *DataFetcher) Fetch(ctx context.Context, rawURL string) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrFetch, rawURL)
	}

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv, application/json, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*").
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, rawURL, err)
	}
	if resp.IsError() || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, rawURL, resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	format, err := FormatFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	ds, err := Parse(format, resp.Body())
	if err != nil {
		return nil, err
	}

	log.Info("Dataset fetched from URL", logger.Fields{
		"url":      rawURL,
		"format":   string(format),
		"rows":     ds.RowCount(),
		"columns":  len(ds.Columns),
		"duration": time.Since(start).String(),
	})

	return &Source{
		Name:        rawURL,
		ContentType: contentType,
		Format:      format,
		Fingerprint: URLFingerprint(rawURL),
		Dataset:     ds,
	}, nil
}
