package reports

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"chartdash/internal/charts"
	"chartdash/internal/config"
	"chartdash/internal/dashboard"
	"chartdash/internal/logger"
	"chartdash/internal/models"
	"chartdash/internal/render"
	"chartdash/internal/summary"
)

// DashboardTitle heads every generated page
const DashboardTitle = "Data Visualization Dashboard"

// HTMLBuilder handles HTML generation with goldmark
type HTMLBuilder struct {
	templateLoader *TemplateLoader
	goldmark       goldmark.Markdown
	echarts        *render.EChartsRenderer
	log            *logger.Logger
}

// NewHTMLBuilder creates an HTML builder
func NewHTMLBuilder(templateLoader *TemplateLoader, echarts *render.EChartsRenderer) *HTMLBuilder {
	// Cell text is escaped before it reaches markdown, raw HTML stays disabled
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	return &HTMLBuilder{
		templateLoader: templateLoader,
		goldmark:       md,
		echarts:        echarts,
		log:            logger.Component("html"),
	}
}

// PageInput is everything a dashboard page shows
type PageInput struct {
	SourceName  string
	Dataset     *models.Dataset
	Charts      []dashboard.Chart
	Interactive bool
	// PNGPath returns the link to the PNG render of the chart at index
	PNGPath     func(index int) string
	GeneratedAt time.Time
}

// TemplateData represents the data structure for the HTML template
type TemplateData struct {
	Title             string
	GeneratedAt       string
	Version           string
	CSS               template.CSS
	StylesheetWarning string
	Interactive       bool
	HasData           bool
	SourceName        string
	Summary           template.HTML
	Kinds             []KindOption
	Charts            []ChartView
}

// KindOption is one entry of the chart type selector
type KindOption struct {
	Value string
	Label string
}

// ChartView is one chart section of the page
type ChartView struct {
	ID      string
	Index   int
	Header  string
	HTML    string
	PNGPath string
	Fields  []FieldView
}

// FieldView is one input of a chart configuration form
type FieldView struct {
	Name    string
	Label   string
	Input   string
	Value   string
	Checked bool
	Options []string
	Min     int
	Max     int
}

// ConvertMarkdownToHTML converts markdown to HTML using goldmark
func (h *HTMLBuilder) ConvertMarkdownToHTML(markdownContent string) (string, error) {
	var buf bytes.Buffer
	if err := h.goldmark.Convert([]byte(markdownContent), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}

// SummaryMarkdown renders the data overview as GFM tables
func SummaryMarkdown(s summary.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### Glimpse of the data\n\n")
	if s.Glimpse != nil && len(s.Glimpse.Columns) > 0 {
		writeTableHeader(&b, s.Glimpse.ColumnNames())
		for _, row := range s.Glimpse.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = v.String()
			}
			writeTableRow(&b, cells)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d rows, %d columns\n\n", s.RowCount, s.ColumnCount)

	fmt.Fprintf(&b, "### Column information\n\n")
	writeTableHeader(&b, []string{"Column Name", "Data Type", "Missing Values", "Unique Values"})
	for _, c := range s.Columns {
		writeTableRow(&b, []string{c.Name, c.Type, strconv.Itoa(c.Missing), strconv.Itoa(c.Unique)})
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "### Basic statistics\n\n")
	if s.Message != "" {
		b.WriteString(markdownCell(s.Message) + "\n")
		return b.String()
	}
	writeTableHeader(&b, []string{"Column", "Count", "Mean", "Std Dev", "Min", "25%", "Median", "75%", "Max"})
	for _, st := range s.Stats {
		writeTableRow(&b, []string{
			st.Column,
			strconv.Itoa(st.Count),
			formatStat(st.Mean),
			formatStat(st.StdDev),
			formatStat(st.Min),
			formatStat(st.Q25),
			formatStat(st.Median),
			formatStat(st.Q75),
			formatStat(st.Max),
		})
	}
	return b.String()
}

func writeTableHeader(b *strings.Builder, names []string) {
	writeTableRow(b, names)
	b.WriteString("|")
	for range names {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
}

func writeTableRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" " + markdownCell(c) + " |")
	}
	b.WriteString("\n")
}

// BuildPage renders the complete dashboard page
func (h *HTMLBuilder) BuildPage(in PageInput) (string, error) {
	start := time.Now()
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now().UTC()
	}

	css := h.templateLoader.LoadStylesheet()
	data := TemplateData{
		Title:             DashboardTitle,
		GeneratedAt:       in.GeneratedAt.Format("2006-01-02 15:04:05 UTC"),
		Version:           config.GetVersion(),
		CSS:               template.CSS(css.CSS),
		StylesheetWarning: css.Warning,
		Interactive:       in.Interactive,
		HasData:           in.Dataset != nil,
		SourceName:        in.SourceName,
	}

	for _, kind := range charts.Kinds() {
		data.Kinds = append(data.Kinds, KindOption{Value: string(kind), Label: charts.Label(kind)})
	}

	if in.Dataset != nil {
		summaryHTML, err := h.ConvertMarkdownToHTML(SummaryMarkdown(summary.Build(in.Dataset)))
		if err != nil {
			return "", err
		}
		data.Summary = template.HTML(summaryHTML)

		columns := in.Dataset.ColumnNames()
		for _, c := range in.Charts {
			view, err := h.chartView(c, columns, in.PNGPath)
			if err != nil {
				return "", err
			}
			data.Charts = append(data.Charts, view)
		}
	}

	page, err := h.executeTemplate(data)
	if err != nil {
		return "", err
	}

	h.log.Debug("Dashboard page built", logger.Fields{
		"charts":   len(data.Charts),
		"bytes":    len(page),
		"duration": time.Since(start).String(),
	})
	return page, nil
}

func (h *HTMLBuilder) chartView(c dashboard.Chart, columns []string, pngPath func(int) string) (ChartView, error) {
	id := render.ChartID(c.Index)
	chartHTML, err := h.echarts.RenderHTML(c.Figure, id)
	if err != nil {
		return ChartView{}, err
	}

	view := ChartView{
		ID:     id,
		Index:  c.Index,
		Header: c.Header,
		HTML:   chartHTML,
	}
	if pngPath != nil {
		view.PNGPath = pngPath(c.Index)
	}
	for _, name := range c.Fields {
		view.Fields = append(view.Fields, fieldView(name, c.Config, columns))
	}
	return view, nil
}

func fieldView(name string, rc models.ResolvedConfig, columns []string) FieldView {
	f := FieldView{Name: name, Label: FieldLabel(name), Input: "text"}

	switch name {
	case charts.FieldTitle:
		f.Value = rc.Title
	case charts.FieldSubtitle:
		f.Value = rc.Subtitle
	case charts.FieldColor:
		f.Input, f.Value = "color", rc.Color
	case charts.FieldBackgroundColor:
		f.Input, f.Value = "color", rc.BackgroundColor
	case charts.FieldShowGrid:
		f.Input, f.Checked = "checkbox", rc.ShowGrid
	case charts.FieldShowLegend:
		f.Input, f.Checked = "checkbox", rc.ShowLegend
	case charts.FieldShowTicks:
		f.Input, f.Checked = "checkbox", rc.ShowTicks
	case charts.FieldMaxDataPoints:
		f.Input, f.Value = "number", strconv.Itoa(rc.MaxDataPoints)
		f.Min, f.Max = charts.MinDataPoints, charts.MaxDataPointsCap
	case charts.FieldMarkerSize:
		f.Input, f.Value = "number", strconv.Itoa(rc.MarkerSize)
		f.Min, f.Max = charts.MinMarkerSize, charts.MaxMarkerSize
	case charts.FieldSortOrder:
		f.Input, f.Value = "select", string(rc.SortOrder)
		f.Options = []string{string(models.SortNone), string(models.SortAscending), string(models.SortDescending)}
	case charts.FieldSortBy:
		f.Input, f.Value, f.Options = "select", rc.SortBy, columns
	case charts.FieldXAxis:
		f.Input, f.Value, f.Options = "select", rc.XAxis, columns
	case charts.FieldYAxis:
		f.Input, f.Value, f.Options = "select", rc.YAxis, columns
	case charts.FieldNames:
		f.Input, f.Value, f.Options = "select", rc.Names, columns
	case charts.FieldValues:
		f.Input, f.Value, f.Options = "select", rc.Values, columns
	}
	return f
}

// executeTemplate executes the HTML template with the provided data
func (h *HTMLBuilder) executeTemplate(data TemplateData) (string, error) {
	htmlTemplate, err := h.templateLoader.LoadHTMLTemplate()
	if err != nil {
		return "", fmt.Errorf("failed to load HTML template: %w", err)
	}

	tmpl, err := template.New("dashboard").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
