package charts

import (
	"strings"

	"chartdash/internal/models"
)

// Defaults applied to unset or invalid fields
const (
	DefaultColor           = "#1f77b4"
	DefaultBackgroundColor = "#ffffff"
	DefaultMarkerSize      = 10
	DefaultMaxDataPoints   = 100

	MinMarkerSize    = 5
	MaxMarkerSize    = 20
	MinDataPoints    = 1
	MaxDataPointsCap = 1000
)

// Resolve computes the configuration used to render entry against ds. Every
// stored value that is present and valid is kept unchanged; everything else
// gets its default. Column-valued fields that name a column missing from ds
// are replaced by a positional default: the first column for x_axis, names
// and sort_by, the second column (or the first when there is only one) for
// y_axis and values.
//
// Resolve has no side effects. Callers write the result back with
// ResolvedConfig.WriteBack.
func Resolve(entry models.ChartEntry, ds *models.Dataset) models.ResolvedConfig {
	var opts models.Options
	if entry.Config != nil {
		opts = *entry.Config.Common()
	}

	first, second := defaultColumns(ds)

	title := ""
	if spec, ok := Lookup(entry.Kind); ok {
		title = spec.DefaultTitle
	}

	rc := models.ResolvedConfig{
		Kind:            entry.Kind,
		Title:           stringOr(opts.Title, title),
		Subtitle:        stringOr(opts.Subtitle, ""),
		Color:           colorOr(opts.Color, DefaultColor),
		BackgroundColor: colorOr(opts.BackgroundColor, DefaultBackgroundColor),
		ShowGrid:        boolOr(opts.ShowGrid, true),
		ShowLegend:      boolOr(opts.ShowLegend, true),
		ShowTicks:       boolOr(opts.ShowTicks, true),
		MaxDataPoints:   boundedOr(opts.MaxDataPoints, MinDataPoints, MaxDataPointsCap, DefaultMaxDataPoints),
		SortOrder:       models.SortNone,
	}
	if opts.SortOrder != nil && opts.SortOrder.Valid() {
		rc.SortOrder = *opts.SortOrder
	}
	if rc.SortOrder != models.SortNone {
		rc.SortBy = columnOr(opts.SortBy, ds, first)
	}

	switch cfg := entry.Config.(type) {
	case models.XYConfig:
		xy := cfg.XY()
		rc.XAxis = columnOr(xy.XAxis, ds, first)
		rc.YAxis = columnOr(xy.YAxis, ds, second)
		rc.MarkerSize = boundedOr(xy.MarkerSize, MinMarkerSize, MaxMarkerSize, DefaultMarkerSize)
	case *models.PieConfig:
		rc.Names = columnOr(cfg.Names, ds, first)
		rc.Values = columnOr(cfg.Values, ds, second)
	case nil:
		// an entry without a config resolves like an empty one of its kind
		switch {
		case entry.Kind.IsXY():
			rc.XAxis, rc.YAxis = first, second
			rc.MarkerSize = DefaultMarkerSize
		case entry.Kind == models.PieChart:
			rc.Names, rc.Values = first, second
		}
	}

	return rc
}

func defaultColumns(ds *models.Dataset) (first, second string) {
	names := ds.ColumnNames()
	switch len(names) {
	case 0:
		return "", ""
	case 1:
		return names[0], names[0]
	default:
		return names[0], names[1]
	}
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// boundedOr keeps v when it lies in [lo, hi]. Out-of-range values are
// replaced by the default, not clamped.
func boundedOr(v *int, lo, hi, def int) int {
	if v == nil || *v < lo || *v > hi {
		return def
	}
	return *v
}

func columnOr(v *string, ds *models.Dataset, def string) string {
	if v == nil || !ds.HasColumn(*v) {
		return def
	}
	return *v
}

func colorOr(v *string, def string) string {
	if v == nil {
		return def
	}
	if c, ok := NormalizeColor(*v); ok {
		return c
	}
	return def
}

// NormalizeColor validates an RGB hex color ("#rgb" or "#rrggbb") and returns
// it in lower-case "#rrggbb" form
func NormalizeColor(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "#") {
		return "", false
	}
	hex := s[1:]
	for _, ch := range hex {
		if !(ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'f') {
			return "", false
		}
	}
	switch len(hex) {
	case 6:
		return s, true
	case 3:
		return "#" + string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}), true
	}
	return "", false
}
