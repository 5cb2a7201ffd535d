package summary

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"chartdash/internal/models"
)

const (
	// GlimpseRows is the number of leading rows shown in the data overview
	GlimpseRows = 10

	// NoNumericMessage replaces the statistics table when nothing is numeric
	NoNumericMessage = "No numerical columns to display statistics."
)

// ColumnInfo describes one column of the loaded dataset
type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
}

// Stats holds the basic statistics of one numeric column. Values that are
// undefined for the sample (std of a single value, anything of an all-null
// column) are nil.
type Stats struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"q25"`
	Median *float64 `json:"median"`
	Q75    *float64 `json:"q75"`
	Max    *float64 `json:"max"`
}

// Summary is the data overview shown above the charts
type Summary struct {
	RowCount    int             `json:"row_count"`
	ColumnCount int             `json:"column_count"`
	Glimpse     *models.Dataset `json:"glimpse"`
	Columns     []ColumnInfo    `json:"columns"`
	Stats       []Stats         `json:"stats,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// Build computes the complete overview of ds
func Build(ds *models.Dataset) Summary {
	st, msg := Describe(ds)
	return Summary{
		RowCount:    ds.RowCount(),
		ColumnCount: len(ds.ColumnNames()),
		Glimpse:     Glimpse(ds),
		Columns:     Columns(ds),
		Stats:       st,
		Message:     msg,
	}
}

// Glimpse returns the first GlimpseRows rows of ds
func Glimpse(ds *models.Dataset) *models.Dataset {
	if ds == nil {
		return &models.Dataset{}
	}
	return ds.Head(GlimpseRows)
}

// Columns reports type, missing-value count and distinct-value count per
// column. Nulls are not counted as a distinct value.
func Columns(ds *models.Dataset) []ColumnInfo {
	if ds == nil {
		return nil
	}

	out := make([]ColumnInfo, len(ds.Columns))
	for j, col := range ds.Columns {
		info := ColumnInfo{Name: col.Name, Type: string(col.Type)}
		seen := make(map[models.Value]struct{})
		for _, row := range ds.Rows {
			v := row[j]
			if v.IsNull() {
				info.Missing++
				continue
			}
			seen[v] = struct{}{}
		}
		info.Unique = len(seen)
		out[j] = info
	}
	return out
}

// Describe computes statistics for every numeric column. When the dataset
// has no numeric column it returns NoNumericMessage instead.
func Describe(ds *models.Dataset) ([]Stats, string) {
	if ds == nil {
		return nil, NoNumericMessage
	}

	var out []Stats
	for j, col := range ds.Columns {
		if col.Type != models.ColumnNumber {
			continue
		}
		xs := make([]float64, 0, len(ds.Rows))
		for _, row := range ds.Rows {
			if f, ok := row[j].Float(); ok && !math.IsNaN(f) {
				xs = append(xs, f)
			}
		}
		out = append(out, describe(col.Name, xs))
	}

	if len(out) == 0 {
		return nil, NoNumericMessage
	}
	return out, ""
}

func describe(name string, xs []float64) Stats {
	st := Stats{Column: name, Count: len(xs)}
	if len(xs) == 0 {
		return st
	}

	sort.Float64s(xs)
	sample := stats.Sample{Xs: xs, Sorted: true}
	min, max := stats.Bounds(xs)

	st.Mean = ptr(stats.Mean(xs))
	st.Min = ptr(min)
	st.Q25 = ptr(sample.Quantile(0.25))
	st.Median = ptr(sample.Quantile(0.5))
	st.Q75 = ptr(sample.Quantile(0.75))
	st.Max = ptr(max)
	if len(xs) > 1 {
		st.StdDev = ptr(stats.StdDev(xs))
	}
	return st
}

func ptr(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
