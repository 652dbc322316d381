package encoding

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
)

// scalarColumn is the column used for list elements that are not maps.
const scalarColumn = "value"

type csvCodec struct{}

// NewCSVCodec creates the csv codec. The first row is the header and every
// cell decodes to a string.
func NewCSVCodec() Codec {
	return csvCodec{}
}

func (csvCodec) Format() string      { return "csv" }
func (csvCodec) ContentType() string { return "text/csv" }

// Parse returns one map per data row keyed by the header. Blank lines are
// skipped and rows must have as many cells as the header.
func (c csvCodec) Parse(input interface{}) (interface{}, error) {
	text, err := inputText(c.Format(), input)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []interface{}{}, nil
	}
	if err != nil {
		return nil, &ParseError{Format: c.Format(), Err: err}
	}

	records := make([]interface{}, 0)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Format: c.Format(), Err: err}
		}
		rec := make(map[string]interface{}, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

// Serialize writes a header row and one row per record. A non-list value is
// a single record. Columns are the first record's keys in sorted order,
// followed by keys first seen in later records. Nested values are written
// as JSON.
func (csvCodec) Serialize(v interface{}) (string, error) {
	records, ok := v.([]interface{})
	if !ok {
		records = []interface{}{v}
	}

	columns := csvColumns(records)
	if len(columns) == 0 {
		return "", nil
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(columns); err != nil {
		return "", err
	}

	row := make([]string, len(columns))
	for _, rec := range records {
		m, isMap := rec.(map[string]interface{})
		for i, col := range columns {
			var cell interface{}
			if isMap {
				cell = m[col]
			} else if col == scalarColumn {
				cell = rec
			}
			text, err := csvCell(cell)
			if err != nil {
				return "", err
			}
			row[i] = text
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func csvColumns(records []interface{}) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		var fresh []string
		if m, ok := rec.(map[string]interface{}); ok {
			for k := range m {
				if !seen[k] {
					seen[k] = true
					fresh = append(fresh, k)
				}
			}
		} else if !seen[scalarColumn] {
			seen[scalarColumn] = true
			fresh = append(fresh, scalarColumn)
		}
		sort.Strings(fresh)
		columns = append(columns, fresh...)
	}
	return columns
}

func csvCell(v interface{}) (string, error) {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return formatScalar(v), nil
	}
}
