package dashboard

import (
	"fmt"
	"time"

	"chartdash/internal/charts"
	"chartdash/internal/logger"
	"chartdash/internal/models"
	"chartdash/internal/render"
)

var log = logger.Component("dashboard")

// Chart is the result of one evaluation pass for one entry
type Chart struct {
	Index  int                   `json:"index"`
	Header string                `json:"header"`
	Kind   models.ChartKind      `json:"kind"`
	Fields []string              `json:"fields"`
	Config models.ResolvedConfig `json:"config"`
	Rows   int                   `json:"rows"`
	Figure render.Figure         `json:"-"`
}

// Header returns the display header of the entry at index, e.g. "Pie Chart 2"
func Header(kind models.ChartKind, index int) string {
	return fmt.Sprintf("%s %d", charts.Label(kind), index+1)
}

// Evaluate runs the pipeline for every entry of store against ds: resolve,
// write the resolved values back into the store, transform, build the
// figure. It must be called after every change to the store or dataset.
// ds may be nil; charts then resolve and render empty.
func Evaluate(ds *models.Dataset, store *charts.Store) []Chart {
	start := time.Now()

	entries := store.Entries()
	out := make([]Chart, 0, len(entries))
	for i, entry := range entries {
		rc := charts.Resolve(entry, ds)
		if cfg := rc.WriteBack(); cfg != nil {
			if err := store.Update(i, cfg); err != nil {
				log.Warn("Failed to write back resolved configuration", logger.Fields{
					"index": i,
					"kind":  string(entry.Kind),
					"error": err.Error(),
				})
			}
		}

		data := charts.Transform(ds, rc)
		out = append(out, Chart{
			Index:  i,
			Header: Header(entry.Kind, i),
			Kind:   entry.Kind,
			Fields: charts.FieldsFor(entry.Kind),
			Config: rc,
			Rows:   data.RowCount(),
			Figure: render.BuildFigure(data, rc),
		})
	}

	log.Debug("Dashboard evaluated", logger.Fields{
		"charts":   len(out),
		"rows":     ds.RowCount(),
		"duration": time.Since(start).String(),
	})
	return out
}

// Figures returns the figures of evaluated charts in order
func Figures(evaluated []Chart) []render.Figure {
	figs := make([]render.Figure, len(evaluated))
	for i, c := range evaluated {
		figs[i] = c.Figure
	}
	return figs
}
