package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"chartdash/internal/charts"
	"chartdash/internal/fetchers"
	"chartdash/internal/logger"
	"chartdash/internal/models"
	"chartdash/internal/storage"
)

var (
	errBadRequest = errors.New("bad request")
	errNoDataset  = errors.New("no dataset loaded")
)

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, fetchers.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, fetchers.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, fetchers.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, charts.ErrIndexOutOfRange), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, charts.ErrKindMismatch),
		errors.Is(err, charts.ErrUnknownKind),
		errors.Is(err, storage.ErrInvalidPath),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errNoDataset):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.Fields{"error": err.Error()})
	}
}

// writeError reports err to the client with its mapped status
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	fields := logger.Fields{"method": r.Method, "path": r.URL.Path, "status": status}
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", err, fields)
	} else {
		fields["error"] = err.Error()
		s.log.Warn("Request rejected", fields)
	}

	if wantsHTML(r) {
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, status, map[string]interface{}{
		"error":  err.Error(),
		"status": status,
	})
}

// wantsHTML reports whether the request came from a browser form, which
// gets a redirect back to the page instead of JSON
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// redirectHome sends browser form submissions back to the dashboard
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// chartIndex parses the {index} path segment
func chartIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", charts.ErrIndexOutOfRange, raw)
	}
	return i, nil
}

// isJSON reports whether the request body is JSON
func isJSON(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

// asBadRequest marks err as a client error, keeping its chain for errors.As
func asBadRequest(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", errBadRequest, msg, err)
}

// formFlag reads a checkbox or boolean form value
func formFlag(v string) bool {
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// decodeConfig parses a JSON configuration for kind
func decodeConfig(kind models.ChartKind, data []byte) (models.ChartConfig, error) {
	cfg, err := models.DecodeConfig(kind, data)
	if err != nil {
		return nil, asBadRequest("invalid configuration", err)
	}
	return cfg, nil
}

var (
	flagFields = map[string]bool{
		charts.FieldShowGrid:   true,
		charts.FieldShowLegend: true,
		charts.FieldShowTicks:  true,
	}
	intFields = map[string]bool{
		charts.FieldMaxDataPoints: true,
		charts.FieldMarkerSize:    true,
	}
)

// configFromForm builds a configuration from the page form of a chart.
// Unchecked checkboxes are absent from the form and read as false; empty
// text and select values are left unset so they resolve to defaults.
func configFromForm(kind models.ChartKind, form url.Values) (models.ChartConfig, error) {
	fields := make(map[string]interface{})
	for _, name := range charts.FieldsFor(kind) {
		raw := strings.TrimSpace(form.Get(name))
		switch {
		case flagFields[name]:
			fields[name] = formFlag(raw)
		case raw == "":
		case intFields[name]:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be a whole number, got %q", errBadRequest, name, raw)
			}
			fields[name] = n
		default:
			fields[name] = raw
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return decodeConfig(kind, data)
}
