package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnType is the inferred type of a dataset column
type ColumnType string

const (
	ColumnNumber ColumnType = "number"
	ColumnText   ColumnType = "text"
	ColumnBool   ColumnType = "bool"
)

// Column describes one dataset column
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Dataset is an ordered set of typed columns and rows. A Dataset is treated
// as immutable once built: every transformation returns a new one.
type Dataset struct {
	Columns []Column  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// NewDataset builds a dataset from column names and raw rows, inferring each
// column's type. Short rows are padded with nulls, long rows are cut.
func NewDataset(names []string, rows [][]Value) *Dataset {
	ds := &Dataset{
		Columns: make([]Column, len(names)),
		Rows:    make([][]Value, len(rows)),
	}
	for i, row := range rows {
		r := make([]Value, len(names))
		copy(r, row)
		ds.Rows[i] = r
	}
	for i, name := range names {
		ds.Columns[i] = Column{Name: name, Type: inferType(ds.Rows, i)}
	}
	return ds
}

// NewDatasetFromStrings builds a dataset from textual cells (CSV, spreadsheet
// rows). Cells are parsed into numbers or bools when the whole column agrees;
// empty cells, missing-value tokens such as NA and non-finite numbers become
// nulls.
func NewDatasetFromStrings(names []string, records [][]string) *Dataset {
	rows := make([][]Value, len(records))
	for i, rec := range records {
		row := make([]Value, len(names))
		for j := range names {
			if j < len(rec) {
				row[j] = textCell(rec[j])
			} else {
				row[j] = Null()
			}
		}
		rows[i] = row
	}

	for j := range names {
		switch {
		case columnParses(rows, j, parseNumber):
			convertColumn(rows, j, parseNumber)
		case columnParses(rows, j, parseBool):
			convertColumn(rows, j, parseBool)
		}
	}
	return NewDataset(names, rows)
}

// missingTokens are the cell spellings spreadsheets and exports use for
// absent values
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
}

func textCell(s string) Value {
	if missingTokens[strings.ToLower(strings.TrimSpace(s))] {
		return Null()
	}
	return Text(s)
}

func parseNumber(s string) (Value, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Value{}, false
	}
	return Number(f), true
}

func parseBool(s string) (Value, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return Bool(true), true
	case "false":
		return Bool(false), true
	}
	return Value{}, false
}

func columnParses(rows [][]Value, j int, parse func(string) (Value, bool)) bool {
	seen := false
	for _, row := range rows {
		if row[j].IsNull() {
			continue
		}
		if _, ok := parse(row[j].Str); !ok {
			return false
		}
		seen = true
	}
	return seen
}

func convertColumn(rows [][]Value, j int, parse func(string) (Value, bool)) {
	for _, row := range rows {
		if row[j].IsNull() {
			continue
		}
		row[j], _ = parse(row[j].Str)
	}
}

func inferType(rows [][]Value, j int) ColumnType {
	var kind ValueKind
	for _, row := range rows {
		v := row[j]
		if v.IsNull() {
			continue
		}
		if kind == KindNull {
			kind = v.Kind
			continue
		}
		if v.Kind != kind {
			return ColumnText
		}
	}
	switch kind {
	case KindNumber:
		return ColumnNumber
	case KindBool:
		return ColumnBool
	default:
		return ColumnText
	}
}

// ColumnNames returns the column names in order
func (d *Dataset) ColumnNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	if d == nil {
		return -1, false
	}
	for i, c := range d.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// HasColumn reports whether the dataset has a column with the given name
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.ColumnIndex(name)
	return ok
}

// RowCount returns the number of rows
func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Column returns the cells of the named column in row order
func (d *Dataset) Column(name string) ([]Value, error) {
	idx, ok := d.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]Value, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Head returns a new dataset holding the first n rows in original order.
// The row slices are shared with the receiver; cells are never mutated.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	out := &Dataset{
		Columns: append([]Column(nil), d.Columns...),
		Rows:    make([][]Value, n),
	}
	copy(out.Rows, d.Rows[:n])
	return out
}
