package charts

import (
	"sort"

	"chartdash/internal/models"
)

// Transform produces the rows to render for one chart: the first
// MaxDataPoints rows in original order, then, when a sort order is set, a
// stable sort on SortBy. Null cells sort last in both directions. The input
// dataset is never modified.
func Transform(ds *models.Dataset, rc models.ResolvedConfig) *models.Dataset {
	if ds == nil {
		return &models.Dataset{}
	}

	out := ds.Head(rc.MaxDataPoints)
	if rc.SortOrder == models.SortNone {
		return out
	}

	idx, ok := out.ColumnIndex(rc.SortBy)
	if !ok {
		return out
	}

	descending := rc.SortOrder == models.SortDescending
	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i][idx], out.Rows[j][idx]
		switch {
		case a.IsNull():
			return false
		case b.IsNull():
			return true
		}
		c := models.Compare(a, b)
		if descending {
			return c > 0
		}
		return c < 0
	})
	return out
}
