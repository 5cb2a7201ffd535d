package dashboard

import (
	"testing"

	"chartdash/internal/charts"
	"chartdash/internal/models"
	"chartdash/internal/render"
)

func sampleDataset() *models.Dataset {
	return models.NewDatasetFromStrings(
		[]string{"A", "B", "C"},
		[][]string{
			{"1", "5", "x"},
			{"2", "3", "y"},
			{"3", "4", "z"},
		},
	)
}

func values(vs []models.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEvaluateDefaultBarChart(t *testing.T) {
	store := charts.NewStore()
	store.Append(models.BarChart)

	out := Evaluate(sampleDataset(), store)
	if len(out) != 1 {
		t.Fatalf("Expected 1 chart, got %d", len(out))
	}

	c := out[0]
	if c.Header != "Bar Chart 1" {
		t.Errorf("Expected header 'Bar Chart 1', got %q", c.Header)
	}
	if c.Config.XAxis != "A" || c.Config.YAxis != "B" || c.Config.Title != "Bar Chart" {
		t.Errorf("Unexpected resolution: %+v", c.Config)
	}
	if c.Rows != 3 {
		t.Errorf("Expected 3 rows, got %d", c.Rows)
	}
	if got := values(c.Figure.Trace.X); !equal(got, []string{"1", "2", "3"}) {
		t.Errorf("Expected x=[1 2 3], got %v", got)
	}
	if got := values(c.Figure.Trace.Y); !equal(got, []string{"5", "3", "4"}) {
		t.Errorf("Expected y=[5 3 4], got %v", got)
	}
}

func TestEvaluateWritesBack(t *testing.T) {
	store := charts.NewStore()
	store.Append(models.PieChart)

	Evaluate(sampleDataset(), store)

	entry, err := store.At(0)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	cfg, ok := entry.Config.(*models.PieConfig)
	if !ok {
		t.Fatalf("Expected *PieConfig, got %T", entry.Config)
	}
	if cfg.Names == nil || *cfg.Names != "A" || cfg.Values == nil || *cfg.Values != "B" {
		t.Errorf("Expected names=A values=B written back, got %+v", cfg.PieOptions)
	}
	if cfg.Color == nil || *cfg.Color != charts.DefaultColor {
		t.Errorf("Expected default color written back, got %v", cfg.Color)
	}
	if cfg.SortBy != nil {
		t.Errorf("Expected sort_by to stay unset, got %q", *cfg.SortBy)
	}
}

func TestEvaluateSortedTruncated(t *testing.T) {
	store := charts.NewStore()
	store.Append(models.LineChart)
	cfg := &models.LineConfig{}
	cfg.SortOrder = models.Ptr(models.SortDescending)
	cfg.SortBy = models.Ptr("B")
	cfg.MaxDataPoints = models.Ptr(2)
	if err := store.Update(0, cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	out := Evaluate(sampleDataset(), store)
	if got := values(out[0].Figure.Trace.X); !equal(got, []string{"1", "2"}) {
		t.Errorf("Expected x=[1 2], got %v", got)
	}
	if out[0].Config.SortBy != "B" {
		t.Errorf("Expected sort_by B, got %q", out[0].Config.SortBy)
	}
}

func TestEvaluateHealsAfterNewDataset(t *testing.T) {
	store := charts.NewStore()
	store.Append(models.ScatterPlot)
	Evaluate(sampleDataset(), store)

	next := models.NewDatasetFromStrings([]string{"p", "q"}, [][]string{{"1", "2"}})
	out := Evaluate(next, store)
	if out[0].Config.XAxis != "p" || out[0].Config.YAxis != "q" {
		t.Errorf("Expected stale axes to heal to p/q, got %s/%s", out[0].Config.XAxis, out[0].Config.YAxis)
	}
}

func TestEvaluateHeadersAndNilDataset(t *testing.T) {
	store := charts.NewStore()
	store.Append(models.BarChart)
	store.Append(models.ScatterPlot)
	store.Append(models.BarChart)

	out := Evaluate(nil, store)
	expected := []string{"Bar Chart 1", "Scatter Plot 2", "Bar Chart 3"}
	for i, c := range out {
		if c.Header != expected[i] {
			t.Errorf("Expected header %q, got %q", expected[i], c.Header)
		}
		if c.Rows != 0 || c.Figure.Trace.Len() != 0 {
			t.Errorf("Expected empty chart without a dataset, got %d rows", c.Rows)
		}
	}

	figs := Figures(out)
	if len(figs) != 3 || figs[1].Kind != models.ScatterPlot {
		t.Errorf("Expected figures in entry order, got %d", len(figs))
	}
}

func TestEvaluateUnsupportedKind(t *testing.T) {
	store := charts.NewStore()
	store.Append(models.ChartKind("Heatmap"))

	out := Evaluate(sampleDataset(), store)
	if !out[0].Figure.Placeholder || out[0].Figure.Title != render.PlaceholderTitle {
		t.Errorf("Expected placeholder figure, got %+v", out[0].Figure)
	}
}
