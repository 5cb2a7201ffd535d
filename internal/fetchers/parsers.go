package fetchers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"chartdash/internal/models"
)

// headerNames fills blank header cells and disambiguates duplicates the way
// spreadsheet tools do: "Unnamed: 3", "price.1"
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

func parseCSV(r io.Reader) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("no header row")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return models.NewDatasetFromStrings(headerNames(header), records[1:]), nil
}

func parseXLSX(r io.Reader) (*models.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	// GetRows trims trailing empty cells, so the header defines the width
	width := len(rows[0])
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	header := make([]string, width)
	copy(header, rows[0])

	return models.NewDatasetFromStrings(headerNames(header), rows[1:]), nil
}

// parseJSON accepts the layouts tabular JSON usually comes in:
//
//	[{"a": 1, "b": 2}, ...]        records
//	[[1, 2], [3, 4]]               rows, columns named "0", "1", ...
//	{"a": [1, 3], "b": [2, 4]}     columns
//	{"a": {"0": 1, "1": 3}, ...}   columns keyed by row label
//
// Column order follows first appearance in the document.
func parseJSON(data []byte) (*models.Dataset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return jsonRows(items)
	case '{':
		keys, values, err := orderedObject(trimmed)
		if err != nil {
			return nil, err
		}
		return jsonColumns(keys, values)
	}
	return nil, errors.New("document is neither an array nor an object")
}

func jsonRows(items []json.RawMessage) (*models.Dataset, error) {
	var names []string
	index := make(map[string]int)
	addColumn := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(names)
		names = append(names, name)
		return len(names) - 1
	}

	rows := make([]map[int]models.Value, len(items))
	for r, item := range items {
		row := make(map[int]models.Value)
		trimmed := bytes.TrimSpace(item)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '{':
			keys, values, err := orderedObject(trimmed)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", r, err)
			}
			for _, k := range keys {
				row[addColumn(k)] = models.FromInterface(values[k])
			}
		case len(trimmed) > 0 && trimmed[0] == '[':
			var cells []interface{}
			if err := decodeNumbers(trimmed, &cells); err != nil {
				return nil, fmt.Errorf("row %d: %w", r, err)
			}
			for c, cell := range cells {
				row[addColumn(strconv.Itoa(c))] = models.FromInterface(cell)
			}
		default:
			var cell interface{}
			if err := decodeNumbers(trimmed, &cell); err != nil {
				return nil, fmt.Errorf("row %d: %w", r, err)
			}
			row[addColumn("0")] = models.FromInterface(cell)
		}
		rows[r] = row
	}

	out := make([][]models.Value, len(rows))
	for r, row := range rows {
		cells := make([]models.Value, len(names))
		for c, v := range row {
			cells[c] = v
		}
		out[r] = cells
	}
	return models.NewDataset(names, out), nil
}

// jsonColumns aligns columns by row label. Arrays and scalars are labeled by
// position, so a row is the set of cells sharing a label and labels missing
// from a column become nulls. Rows follow the order labels are first seen.
func jsonColumns(keys []string, values map[string]interface{}) (*models.Dataset, error) {
	var labels []string
	rowOf := make(map[string]int)
	columns := make([]map[string]models.Value, len(keys))

	add := func(c int, label string, cell interface{}) {
		if _, ok := rowOf[label]; !ok {
			rowOf[label] = len(labels)
			labels = append(labels, label)
		}
		columns[c][label] = models.FromInterface(cell)
	}

	for c, k := range keys {
		columns[c] = make(map[string]models.Value)
		switch v := values[k].(type) {
		case []interface{}:
			for i, cell := range v {
				add(c, strconv.Itoa(i), cell)
			}
		case orderedMap:
			for _, label := range v.keys {
				add(c, label, v.values[label])
			}
		default:
			add(c, "0", v)
		}
	}

	rows := make([][]models.Value, len(labels))
	for r, label := range labels {
		row := make([]models.Value, len(keys))
		for c, col := range columns {
			row[c] = col[label]
		}
		rows[r] = row
	}
	return models.NewDataset(keys, rows), nil
}

// orderedMap is a nested JSON object whose key order matters
type orderedMap struct {
	keys   []string
	values map[string]interface{}
}

// MarshalJSON keeps the original key order when a nested object ends up as
// cell text
func (m orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// orderedObject decodes a JSON object keeping key order. Nested objects are
// returned as orderedMap, numbers as json.Number.
func orderedObject(data []byte) ([]string, map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("expected object")
	}

	var keys []string
	values := make(map[string]interface{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, errors.New("expected object key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}

		var value interface{}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			nestedKeys, nestedValues, err := orderedObject(trimmed)
			if err != nil {
				return nil, nil, err
			}
			value = orderedMap{keys: nestedKeys, values: nestedValues}
		} else if err := decodeNumbers(trimmed, &value); err != nil {
			return nil, nil, err
		}

		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func decodeNumbers(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
