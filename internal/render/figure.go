package render

import (
	"chartdash/internal/models"
)

// PlaceholderTitle is the title of the empty figure drawn for kinds no
// back-end knows how to draw
const PlaceholderTitle = "Unsupported Chart Type"

// Trace is the single data series of a figure. For bar, line and scatter
// charts X holds the x-axis cells; for pie charts it holds the slice names.
// Y holds the y-axis cells or slice values.
type Trace struct {
	Name string
	X    []models.Value
	Y    []models.Value
}

// Len returns the number of points in the trace
func (t Trace) Len() int {
	return len(t.X)
}

// Labels formats the X cells as text
func (t Trace) Labels() []string {
	out := make([]string, len(t.X))
	for i, v := range t.X {
		out[i] = v.String()
	}
	return out
}

// NumericX returns the X cells as numbers when every non-null cell is numeric
func (t Trace) NumericX() ([]float64, bool) {
	out := make([]float64, len(t.X))
	for i, v := range t.X {
		if v.Kind != models.KindNumber {
			return nil, false
		}
		out[i] = v.Num
	}
	return out, len(out) > 0
}

// Figure is a back-end independent description of one chart, built from a
// transformed dataset and its resolved configuration
type Figure struct {
	Kind        models.ChartKind
	Title       string
	Subtitle    string
	Color       string
	Background  string
	ShowGrid    bool
	ShowLegend  bool
	ShowTicks   bool
	MarkerSize  int
	XTitle      string
	YTitle      string
	Trace       Trace
	Placeholder bool
}

// BuildFigure maps the transformed rows onto one trace according to the chart
// kind: x_axis/y_axis for bar, line and scatter charts, names/values for pie
// charts. Unknown kinds produce an empty placeholder figure. Missing columns
// produce an empty trace rather than an error.
func BuildFigure(ds *models.Dataset, rc models.ResolvedConfig) Figure {
	var xCol, yCol string
	switch {
	case rc.Kind.IsXY():
		xCol, yCol = rc.XAxis, rc.YAxis
	case rc.Kind == models.PieChart:
		xCol, yCol = rc.Names, rc.Values
	default:
		return Placeholder()
	}

	fig := Figure{
		Kind:       rc.Kind,
		Title:      rc.Title,
		Subtitle:   rc.Subtitle,
		Color:      rc.Color,
		Background: rc.BackgroundColor,
		ShowGrid:   rc.ShowGrid,
		ShowLegend: rc.ShowLegend,
		ShowTicks:  rc.ShowTicks,
		MarkerSize: rc.MarkerSize,
		XTitle:     xCol,
		YTitle:     yCol,
		Trace:      Trace{Name: yCol},
	}

	xs, errX := ds.Column(xCol)
	ys, errY := ds.Column(yCol)
	if errX != nil || errY != nil {
		return fig
	}
	fig.Trace.X = xs
	fig.Trace.Y = ys
	return fig
}

// Placeholder returns the empty figure used for unsupported chart kinds
func Placeholder() Figure {
	return Figure{
		Title:       PlaceholderTitle,
		Color:       "#1f77b4",
		Background:  "#ffffff",
		Placeholder: true,
	}
}
