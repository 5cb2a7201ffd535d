package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"chartdash/internal/models"
)

// Charter is a go-echarts chart that can be rendered alone or added to a page
type Charter interface {
	components.Charter
	Render(w io.Writer) error
}

// EChartsRenderer draws figures as interactive go-echarts HTML
type EChartsRenderer struct {
	Width  string
	Height string
}

// NewEChartsRenderer creates a renderer with the dashboard's default size
func NewEChartsRenderer() *EChartsRenderer {
	return &EChartsRenderer{
		Width:  "900px",
		Height: "500px",
	}
}

// Chart builds the go-echarts chart for fig. id becomes the DOM id of the
// chart container and must be unique within a page.
func (r *EChartsRenderer) Chart(fig Figure, id string) Charter {
	global := r.globalOptions(fig, id)

	var c Charter
	switch {
	case fig.Placeholder:
		bar := charts.NewBar()
		bar.SetGlobalOptions(global...)
		c = bar
	case fig.Kind == models.BarChart:
		c = r.bar(fig, global)
	case fig.Kind == models.LineChart:
		c = r.line(fig, global)
	case fig.Kind == models.ScatterPlot:
		c = r.scatter(fig, global)
	case fig.Kind == models.PieChart:
		c = r.pie(fig, global)
	default:
		bar := charts.NewBar()
		bar.SetGlobalOptions(r.globalOptions(Placeholder(), id)...)
		return bar
	}

	if fig.Subtitle != "" {
		if js, ok := c.(jsFuncAdder); ok {
			js.AddJSFuncStrs(subtitleScript(fig.Subtitle))
		}
	}
	return c
}

type jsFuncAdder interface {
	AddJSFuncStrs(fn ...types.FuncStr)
}

// subtitleScript places text as a centered annotation below the plot area.
// The text is JSON encoded, which also escapes <, > and &.
func subtitleScript(text string) types.FuncStr {
	quoted, _ := json.Marshal(text)
	return types.FuncStr(fmt.Sprintf(
		`%%MY_ECHARTS%%.setOption({graphic: [{type: "text", left: "center", bottom: 8, style: {text: %s, fill: "#555555", fontSize: 12}}]});`,
		quoted,
	))
}

// Render writes fig as a standalone HTML document
func (r *EChartsRenderer) Render(w io.Writer, fig Figure, id string) error {
	if err := r.Chart(fig, id).Render(w); err != nil {
		return fmt.Errorf("failed to render %s chart: %w", fig.Kind, err)
	}
	return nil
}

// RenderHTML returns fig as a standalone HTML document
func (r *EChartsRenderer) RenderHTML(fig Figure, id string) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, fig, id); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPage writes all figures into a single go-echarts page
func (r *EChartsRenderer) RenderPage(w io.Writer, title string, figs []Figure) error {
	page := components.NewPage()
	page.PageTitle = title
	page.Layout = components.PageFlexLayout

	for i, fig := range figs {
		page.AddCharts(r.Chart(fig, ChartID(i)))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render dashboard page: %w", err)
	}
	return nil
}

// ChartID returns the DOM id used for the chart at position index. go-echarts
// also derives JavaScript variable names from it, so it must stay a valid
// identifier.
func ChartID(index int) string {
	return fmt.Sprintf("chart_%d", index)
}

func (r *EChartsRenderer) globalOptions(fig Figure, id string) []charts.GlobalOpts {
	legend := opts.Legend{
		Show: opts.Bool(fig.ShowLegend && !fig.Placeholder),
		Top:  "bottom",
	}
	if fig.Subtitle != "" {
		// leave the bottom edge to the subtitle
		legend.Top = ""
		legend.Bottom = "30"
	}

	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       fig.Title,
			ChartID:         id,
			Width:           r.Width,
			Height:          r.Height,
			BackgroundColor: fig.Background,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fig.Title,
			Left:  "center",
		}),
		charts.WithLegendOpts(legend),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(!fig.Placeholder)}),
	}

	if fig.Kind != models.PieChart {
		global = append(global,
			charts.WithXAxisOpts(opts.XAxis{
				Name:      fig.XTitle,
				SplitLine: &opts.SplitLine{Show: opts.Bool(fig.ShowGrid)},
				AxisLabel: &opts.AxisLabel{Show: opts.Bool(fig.ShowTicks)},
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Name:      fig.YTitle,
				SplitLine: &opts.SplitLine{Show: opts.Bool(fig.ShowGrid)},
				AxisLabel: &opts.AxisLabel{Show: opts.Bool(fig.ShowTicks)},
			}),
		)
	}
	return global
}

func (r *EChartsRenderer) bar(fig Figure, global []charts.GlobalOpts) Charter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(global...)

	data := make([]opts.BarData, fig.Trace.Len())
	for i, v := range fig.Trace.Y {
		data[i] = opts.BarData{Value: v.Interface()}
	}

	bar.SetXAxis(fig.Trace.Labels()).
		AddSeries(fig.Trace.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: fig.Color}))
	return bar
}

func (r *EChartsRenderer) line(fig Figure, global []charts.GlobalOpts) Charter {
	line := charts.NewLine()
	line.SetGlobalOptions(global...)

	data := make([]opts.LineData, fig.Trace.Len())
	for i, v := range fig.Trace.Y {
		data[i] = opts.LineData{Value: v.Interface(), SymbolSize: fig.MarkerSize}
	}

	line.SetXAxis(fig.Trace.Labels()).
		AddSeries(fig.Trace.Name, data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: fig.Color}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: fig.Color}),
		)
	return line
}

func (r *EChartsRenderer) scatter(fig Figure, global []charts.GlobalOpts) Charter {
	scatter := charts.NewScatter()

	data := make([]opts.ScatterData, fig.Trace.Len())
	if xs, ok := fig.Trace.NumericX(); ok {
		// numeric x values are placed on a value axis as [x, y] pairs
		global = append(global, charts.WithXAxisOpts(opts.XAxis{
			Type:      "value",
			Name:      fig.XTitle,
			SplitLine: &opts.SplitLine{Show: opts.Bool(fig.ShowGrid)},
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(fig.ShowTicks)},
		}))
		for i, v := range fig.Trace.Y {
			data[i] = opts.ScatterData{Value: []interface{}{xs[i], v.Interface()}, SymbolSize: fig.MarkerSize}
		}
	} else {
		scatter.SetXAxis(fig.Trace.Labels())
		for i, v := range fig.Trace.Y {
			data[i] = opts.ScatterData{Value: v.Interface(), SymbolSize: fig.MarkerSize}
		}
	}

	scatter.SetGlobalOptions(global...)
	scatter.AddSeries(fig.Trace.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: fig.Color}))
	return scatter
}

func (r *EChartsRenderer) pie(fig Figure, global []charts.GlobalOpts) Charter {
	pie := charts.NewPie()
	pie.SetGlobalOptions(global...)

	labels := fig.Trace.Labels()
	data := make([]opts.PieData, fig.Trace.Len())
	for i, v := range fig.Trace.Y {
		data[i] = opts.PieData{Name: labels[i], Value: v.Interface()}
	}

	pie.AddSeries(fig.Trace.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: fig.Color}))
	return pie
}
