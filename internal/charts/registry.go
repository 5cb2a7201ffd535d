package charts

import (
	"errors"
	"fmt"
	"strings"

	"chartdash/internal/models"
)

// Configuration field names as they appear in stored and resolved configs
const (
	FieldTitle           = "title"
	FieldSubtitle        = "subtitle"
	FieldColor           = "color"
	FieldBackgroundColor = "background_color"
	FieldShowGrid        = "show_grid"
	FieldShowLegend      = "show_legend"
	FieldShowTicks       = "show_ticks"
	FieldMaxDataPoints   = "max_data_points"
	FieldSortOrder       = "sort_order"
	FieldSortBy          = "sort_by"
	FieldXAxis           = "x_axis"
	FieldYAxis           = "y_axis"
	FieldNames           = "names"
	FieldValues          = "values"
	FieldMarkerSize      = "marker_size"
)

// ErrUnknownKind is returned by ParseKind for names that match no chart kind
var ErrUnknownKind = errors.New("unknown chart kind")

// KindSpec describes how one chart kind is configured
type KindSpec struct {
	Kind         models.ChartKind
	Label        string
	DefaultTitle string
	// AxisFields lists the column-valued role fields, primary role first
	AxisFields []string
	MarkerSize bool
}

var universalFields = []string{
	FieldTitle,
	FieldSubtitle,
	FieldColor,
	FieldBackgroundColor,
	FieldShowGrid,
	FieldShowLegend,
	FieldShowTicks,
	FieldMaxDataPoints,
	FieldSortOrder,
}

var kindOrder = []models.ChartKind{
	models.BarChart,
	models.LineChart,
	models.PieChart,
	models.ScatterPlot,
}

var registry = map[models.ChartKind]KindSpec{
	models.BarChart: {
		Kind:         models.BarChart,
		Label:        "Bar Chart",
		DefaultTitle: "Bar Chart",
		AxisFields:   []string{FieldXAxis, FieldYAxis},
		MarkerSize:   true,
	},
	models.LineChart: {
		Kind:         models.LineChart,
		Label:        "Line Chart",
		DefaultTitle: "Line Chart",
		AxisFields:   []string{FieldXAxis, FieldYAxis},
		MarkerSize:   true,
	},
	models.PieChart: {
		Kind:         models.PieChart,
		Label:        "Pie Chart",
		DefaultTitle: "Pie Chart",
		AxisFields:   []string{FieldNames, FieldValues},
	},
	models.ScatterPlot: {
		Kind:         models.ScatterPlot,
		Label:        "Scatter Plot",
		DefaultTitle: "Scatter Plot",
		AxisFields:   []string{FieldXAxis, FieldYAxis},
		MarkerSize:   true,
	},
}

// Kinds returns the supported chart kinds in display order
func Kinds() []models.ChartKind {
	return append([]models.ChartKind(nil), kindOrder...)
}

// Lookup returns the registry entry for kind
func Lookup(kind models.ChartKind) (KindSpec, bool) {
	spec, ok := registry[kind]
	return spec, ok
}

// Label returns the human label of kind, or the raw identifier when the
// kind is not registered
func Label(kind models.ChartKind) string {
	if spec, ok := registry[kind]; ok {
		return spec.Label
	}
	return string(kind)
}

// FieldsFor returns the configuration fields used by kind: the universal
// fields followed by the kind's axis fields and marker_size where it applies.
// sort_by is listed because it may appear; it is only resolved when
// sort_order is not None.
func FieldsFor(kind models.ChartKind) []string {
	fields := append([]string(nil), universalFields...)
	fields = append(fields, FieldSortBy)

	spec, ok := registry[kind]
	if !ok {
		return fields
	}
	fields = append(fields, spec.AxisFields...)
	if spec.MarkerSize {
		fields = append(fields, FieldMarkerSize)
	}
	return fields
}

// ParseKind accepts identifiers ("BarChart"), short names ("bar") and labels
// ("Scatter Plot") in any case
func ParseKind(name string) (models.ChartKind, error) {
	key := strings.ToLower(name)
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)

	switch key {
	case "bar", "barchart":
		return models.BarChart, nil
	case "line", "linechart":
		return models.LineChart, nil
	case "pie", "piechart":
		return models.PieChart, nil
	case "scatter", "scatterplot", "scatterchart":
		return models.ScatterPlot, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
