package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChartKind identifies one of the supported visualization types
type ChartKind string

const (
	BarChart    ChartKind = "BarChart"
	LineChart   ChartKind = "LineChart"
	PieChart    ChartKind = "PieChart"
	ScatterPlot ChartKind = "ScatterPlot"
)

// SortOrder controls the sort applied after truncation
type SortOrder string

const (
	SortNone       SortOrder = "None"
	SortAscending  SortOrder = "Ascending"
	SortDescending SortOrder = "Descending"
)

// Valid reports whether s is one of the three known orders
func (s SortOrder) Valid() bool {
	switch s {
	case SortNone, SortAscending, SortDescending:
		return true
	}
	return false
}

// Ptr returns a pointer to v, for filling optional config fields
func Ptr[T any](v T) *T {
	return &v
}

// Options are the fields every chart kind accepts. A nil field is unset and
// resolves to its default.
type Options struct {
	Title           *string    `json:"title,omitempty"`
	Subtitle        *string    `json:"subtitle,omitempty"`
	Color           *string    `json:"color,omitempty"`
	BackgroundColor *string    `json:"background_color,omitempty"`
	ShowGrid        *bool      `json:"show_grid,omitempty"`
	ShowLegend      *bool      `json:"show_legend,omitempty"`
	ShowTicks       *bool      `json:"show_ticks,omitempty"`
	MaxDataPoints   *int       `json:"max_data_points,omitempty"`
	SortOrder       *SortOrder `json:"sort_order,omitempty"`
	SortBy          *string    `json:"sort_by,omitempty"`
}

// XYOptions are the axis fields of bar, line and scatter charts
type XYOptions struct {
	XAxis      *string `json:"x_axis,omitempty"`
	YAxis      *string `json:"y_axis,omitempty"`
	MarkerSize *int    `json:"marker_size,omitempty"`
}

// PieOptions are the role fields of pie charts
type PieOptions struct {
	Names  *string `json:"names,omitempty"`
	Values *string `json:"values,omitempty"`
}

// ChartConfig is the stored, user-editable configuration of one chart.
// Each kind has its own variant holding exactly the fields valid for it.
type ChartConfig interface {
	Kind() ChartKind
	Common() *Options
}

// XYConfig is implemented by the bar, line and scatter variants
type XYConfig interface {
	ChartConfig
	XY() *XYOptions
}

// BarConfig configures a bar chart
type BarConfig struct {
	Options
	XYOptions
}

// LineConfig configures a line chart
type LineConfig struct {
	Options
	XYOptions
}

// ScatterConfig configures a scatter plot
type ScatterConfig struct {
	Options
	XYOptions
}

// PieConfig configures a pie chart
type PieConfig struct {
	Options
	PieOptions
}

func (c *BarConfig) Kind() ChartKind     { return BarChart }
func (c *BarConfig) Common() *Options    { return &c.Options }
func (c *BarConfig) XY() *XYOptions      { return &c.XYOptions }
func (c *LineConfig) Kind() ChartKind    { return LineChart }
func (c *LineConfig) Common() *Options   { return &c.Options }
func (c *LineConfig) XY() *XYOptions     { return &c.XYOptions }
func (c *ScatterConfig) Kind() ChartKind { return ScatterPlot }
func (c *ScatterConfig) Common() *Options {
	return &c.Options
}
func (c *ScatterConfig) XY() *XYOptions { return &c.XYOptions }
func (c *PieConfig) Kind() ChartKind    { return PieChart }
func (c *PieConfig) Common() *Options   { return &c.Options }

// NewConfig returns the empty configuration variant for kind, or nil when
// the kind is unknown
func NewConfig(kind ChartKind) ChartConfig {
	switch kind {
	case BarChart:
		return &BarConfig{}
	case LineChart:
		return &LineConfig{}
	case ScatterPlot:
		return &ScatterConfig{}
	case PieChart:
		return &PieConfig{}
	}
	return nil
}

// DecodeConfig parses JSON into the variant for kind. Fields that do not
// belong to the kind (names on a bar chart, marker_size on a pie chart)
// are rejected.
func DecodeConfig(kind ChartKind, data []byte) (ChartConfig, error) {
	cfg := NewConfig(kind)
	if cfg == nil {
		return nil, fmt.Errorf("unknown chart kind %q", kind)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("invalid %s configuration: %w", kind, err)
	}
	return cfg, nil
}

// ChartEntry is one chart of the dashboard. Kind never changes after creation.
type ChartEntry struct {
	Kind   ChartKind   `json:"kind"`
	Config ChartConfig `json:"config"`
}

// ResolvedConfig is the fully defaulted configuration used for one render
// pass. Kind-specific and conditional fields are empty when they do not
// apply: MarkerSize is 0 for pie charts and SortBy is "" when SortOrder is
// SortNone.
type ResolvedConfig struct {
	Kind            ChartKind `json:"kind"`
	Title           string    `json:"title"`
	Subtitle        string    `json:"subtitle"`
	Color           string    `json:"color"`
	BackgroundColor string    `json:"background_color"`
	ShowGrid        bool      `json:"show_grid"`
	ShowLegend      bool      `json:"show_legend"`
	ShowTicks       bool      `json:"show_ticks"`
	MarkerSize      int       `json:"marker_size,omitempty"`
	MaxDataPoints   int       `json:"max_data_points"`
	SortOrder       SortOrder `json:"sort_order"`
	SortBy          string    `json:"sort_by,omitempty"`
	XAxis           string    `json:"x_axis,omitempty"`
	YAxis           string    `json:"y_axis,omitempty"`
	Names           string    `json:"names,omitempty"`
	Values          string    `json:"values,omitempty"`
}

// IsXY reports whether the kind maps data onto x/y axes
func (k ChartKind) IsXY() bool {
	return k == BarChart || k == LineChart || k == ScatterPlot
}

// WriteBack returns a stored configuration holding every resolved value.
// Resolving it again against the same dataset yields the same result.
func (r ResolvedConfig) WriteBack() ChartConfig {
	cfg := NewConfig(r.Kind)
	if cfg == nil {
		return nil
	}
	opts := cfg.Common()
	opts.Title = Ptr(r.Title)
	opts.Subtitle = Ptr(r.Subtitle)
	opts.Color = Ptr(r.Color)
	opts.BackgroundColor = Ptr(r.BackgroundColor)
	opts.ShowGrid = Ptr(r.ShowGrid)
	opts.ShowLegend = Ptr(r.ShowLegend)
	opts.ShowTicks = Ptr(r.ShowTicks)
	opts.MaxDataPoints = Ptr(r.MaxDataPoints)
	opts.SortOrder = Ptr(r.SortOrder)
	if r.SortOrder != SortNone && r.SortBy != "" {
		opts.SortBy = Ptr(r.SortBy)
	}

	switch c := cfg.(type) {
	case XYConfig:
		xy := c.XY()
		if r.XAxis != "" {
			xy.XAxis = Ptr(r.XAxis)
		}
		if r.YAxis != "" {
			xy.YAxis = Ptr(r.YAxis)
		}
		xy.MarkerSize = Ptr(r.MarkerSize)
	case *PieConfig:
		if r.Names != "" {
			c.Names = Ptr(r.Names)
		}
		if r.Values != "" {
			c.Values = Ptr(r.Values)
		}
	}
	return cfg
}
