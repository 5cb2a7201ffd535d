package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"chartdash/internal/models"
)

// PNGRenderer draws figures as static images with go-chart
type PNGRenderer struct {
	Width  int
	Height int
}

// NewPNGRenderer creates a renderer with the export image size
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{
		Width:  800,
		Height: 450,
	}
}

// Render writes fig to w as a PNG image
func (r *PNGRenderer) Render(w io.Writer, fig Figure) error {
	var err error
	switch {
	case fig.Placeholder || fig.Trace.Len() == 0:
		err = r.empty(fig).Render(chart.PNG, w)
	case fig.Kind == models.BarChart:
		err = r.bar(fig).Render(chart.PNG, w)
	case fig.Kind == models.PieChart:
		err = r.pie(fig).Render(chart.PNG, w)
	case fig.Kind == models.LineChart, fig.Kind == models.ScatterPlot:
		err = r.xy(fig).Render(chart.PNG, w)
	default:
		err = r.empty(Placeholder()).Render(chart.PNG, w)
	}
	if err != nil {
		return fmt.Errorf("failed to render %s image: %w", fig.Kind, err)
	}
	return nil
}

// RenderBytes returns fig as PNG bytes
func (r *PNGRenderer) RenderBytes(fig Figure) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, fig); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}

func (r *PNGRenderer) background(fig Figure) chart.Style {
	return chart.Style{
		FillColor: hexColor(fig.Background),
		Padding: chart.Box{
			Top:    50,
			Left:   20,
			Right:  20,
			Bottom: 40,
		},
	}
}

func titleStyle() chart.Style {
	return chart.Style{
		FontSize:  14,
		FontColor: drawing.ColorBlack,
	}
}

func gridStyle(show bool) chart.Style {
	return chart.Style{
		Hidden:      !show,
		StrokeColor: drawing.ColorFromHex("dddddd"),
		StrokeWidth: 1.0,
	}
}

// subtitle draws text centered along the bottom edge of the image
func subtitle(text string, width, height int) chart.Renderable {
	return func(r chart.Renderer, _ chart.Box, defaults chart.Style) {
		r.SetFont(defaults.GetFont())
		r.SetFontSize(10)
		r.SetFontColor(drawing.ColorFromHex("555555"))
		tb := r.MeasureText(text)
		r.Text(text, (width-tb.Width())/2, height-10)
	}
}

func (r *PNGRenderer) elements(fig Figure) []chart.Renderable {
	if fig.Subtitle == "" {
		return nil
	}
	return []chart.Renderable{subtitle(fig.Subtitle, r.Width, r.Height)}
}

// numericY returns the y values that can be plotted along with their
// positions in the trace
func numericY(t Trace) (ys []float64, idx []int) {
	for i, v := range t.Y {
		if f, ok := v.Float(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			ys = append(ys, f)
			idx = append(idx, i)
		}
	}
	return ys, idx
}

func (r *PNGRenderer) bar(fig Figure) chart.BarChart {
	labels := fig.Trace.Labels()
	ys, idx := numericY(fig.Trace)

	bars := make([]chart.Value, len(ys))
	for i, y := range ys {
		bars[i] = chart.Value{
			Value: y,
			Label: labels[idx[i]],
			Style: chart.Style{
				FillColor:   hexColor(fig.Color),
				StrokeColor: hexColor(fig.Color),
			},
		}
	}
	if len(bars) == 0 {
		bars = []chart.Value{{Value: 0, Label: "", Style: chart.Style{Hidden: true}}}
	}

	return chart.BarChart{
		Title:      fig.Title,
		TitleStyle: titleStyle(),
		Width:      r.Width,
		Height:     r.Height,
		Background: r.background(fig),
		Canvas:     chart.Style{FillColor: hexColor(fig.Background)},
		Bars:       bars,
		XAxis:      chart.Style{Hidden: !fig.ShowTicks, FontSize: 9},
		YAxis: chart.YAxis{
			Name:           fig.YTitle,
			Style:          chart.Style{Hidden: !fig.ShowTicks, FontSize: 9},
			Range:          barRange(ys),
			GridMajorStyle: gridStyle(fig.ShowGrid),
		},
		Elements: r.elements(fig),
	}
}

// barRange always includes zero so bars grow from the baseline
func barRange(vs []float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func (r *PNGRenderer) pie(fig Figure) chart.PieChart {
	labels := fig.Trace.Labels()
	ys, idx := numericY(fig.Trace)

	var values []chart.Value
	for i, y := range ys {
		if y <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: y,
			Label: labels[idx[i]],
			Style: chart.Style{
				FillColor:   hexColor(fig.Color),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1.0,
			},
		})
	}
	if len(values) == 0 {
		values = []chart.Value{{Value: 1, Label: "no data", Style: chart.Style{FillColor: drawing.ColorFromHex("eeeeee")}}}
	}

	return chart.PieChart{
		Title:      fig.Title,
		TitleStyle: titleStyle(),
		Width:      r.Width,
		Height:     r.Height,
		Background: r.background(fig),
		Canvas:     chart.Style{FillColor: hexColor(fig.Background)},
		Values:     values,
		Elements:   r.elements(fig),
	}
}

func (r *PNGRenderer) xy(fig Figure) chart.Chart {
	ys, idx := numericY(fig.Trace)
	if len(ys) == 0 {
		return r.empty(fig)
	}
	labels := fig.Trace.Labels()

	xs := make([]float64, len(ys))
	numericX, isNumeric := fig.Trace.NumericX()
	var ticks []chart.Tick
	for i, j := range idx {
		if isNumeric {
			xs[i] = numericX[j]
			continue
		}
		xs[i] = float64(j)
		ticks = append(ticks, chart.Tick{Value: float64(j), Label: labels[j]})
	}
	if len(ticks) > 0 {
		ticks = padTicks(ticks)
	}

	color := hexColor(fig.Color)
	style := chart.Style{
		StrokeColor: color,
		StrokeWidth: 2.0,
		DotColor:    color,
		DotWidth:    float64(fig.MarkerSize) / 2,
	}
	if fig.Kind == models.ScatterPlot {
		style.StrokeWidth = chart.Disabled
	}

	graph := chart.Chart{
		Title:      fig.Title,
		TitleStyle: titleStyle(),
		Width:      r.Width,
		Height:     r.Height,
		Background: r.background(fig),
		Canvas:     chart.Style{FillColor: hexColor(fig.Background)},
		XAxis: chart.XAxis{
			Name:           fig.XTitle,
			Style:          chart.Style{Hidden: !fig.ShowTicks, FontSize: 9},
			Ticks:          ticks,
			Range:          paddedRange(xs),
			GridMajorStyle: gridStyle(fig.ShowGrid),
		},
		YAxis: chart.YAxis{
			Name:           fig.YTitle,
			Style:          chart.Style{Hidden: !fig.ShowTicks, FontSize: 9},
			Range:          paddedRange(ys),
			GridMajorStyle: gridStyle(fig.ShowGrid),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    fig.Trace.Name,
				XValues: xs,
				YValues: ys,
				Style:   style,
			},
		},
		Elements: r.elements(fig),
	}
	if fig.ShowLegend {
		graph.Elements = append(graph.Elements, chart.Legend(&graph))
	}
	return graph
}

// padTicks adds unlabeled ticks half a slot outside the first and last
// category. go-chart takes the x range from the tick extent, so a lone
// category would otherwise collapse it to zero width.
func padTicks(ticks []chart.Tick) []chart.Tick {
	first, last := ticks[0].Value, ticks[len(ticks)-1].Value
	padded := make([]chart.Tick, 0, len(ticks)+2)
	padded = append(padded, chart.Tick{Value: first - 0.5})
	padded = append(padded, ticks...)
	return append(padded, chart.Tick{Value: last + 0.5})
}

// paddedRange widens a degenerate range so single-point and constant series
// still render
func paddedRange(vs []float64) *chart.ContinuousRange {
	if len(vs) == 0 {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// empty draws a titled blank canvas. go-chart refuses charts without a
// visible series, so the canvas carries one with stroke and dots disabled.
func (r *PNGRenderer) empty(fig Figure) chart.Chart {
	return chart.Chart{
		Title:      fig.Title,
		TitleStyle: titleStyle(),
		Width:      r.Width,
		Height:     r.Height,
		Background: r.background(fig),
		Canvas:     chart.Style{FillColor: hexColor(fig.Background)},
		XAxis: chart.XAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		YAxis: chart.YAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    chart.Disabled,
				},
			},
		},
		Elements: r.elements(fig),
	}
}
