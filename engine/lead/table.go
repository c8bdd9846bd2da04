package lead

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

const utf8BOM = "\ufeff"

// RawTable is CSV content as read from a source: a header row and data rows
// whose cells line up with the header by position.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ReadCSV reads a header row followed by data rows. Rows shorter than the
// header leave the trailing fields absent; rows longer than the header are
// rejected. Input without even a header row yields ErrEmptyInput.
func ReadCSV(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	raw := &RawTable{Header: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
		}
		if len(row) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf(
				"%w: line %d has %d fields but the header has %d",
				ErrMalformedCSV, line, len(row), len(header),
			)
		}
		raw.Rows = append(raw.Rows, row)
	}
	return raw, nil
}

// Record is one lead keyed by field name. Empty cells are absent, so every
// read goes through Get and its presence flag.
type Record struct {
	values map[string]string
}

// Get returns the value of field and whether it is present.
func (r Record) Get(field string) (string, bool) {
	v, ok := r.values[field]
	return v, ok
}

func (r *Record) set(field, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	r.values[field] = value
}

// Table is an ordered set of records sharing one column list.
type Table struct {
	columns []string
	records []Record
}

// NewTable builds a table from a header and positional rows. When a column
// name repeats, the first column with that name wins and later ones are
// dropped.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{records: make([]Record, 0, len(rows))}
	keep := make([]int, 0, len(header))
	for i, name := range header {
		if slices.Contains(t.columns, name) {
			continue
		}
		t.columns = append(t.columns, name)
		keep = append(keep, i)
	}
	for _, row := range rows {
		var rec Record
		for _, i := range keep {
			if i < len(row) && row[i] != "" {
				rec.set(header[i], row[i])
			}
		}
		t.records = append(t.records, rec)
	}
	return t
}

// ParseTable reads CSV text into a table, keeping column names verbatim.
func ParseTable(r io.Reader) (*Table, error) {
	raw, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return NewTable(raw.Header, raw.Rows), nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether the table carries a column named name.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.columns, name)
}

// Records returns the records in order.
func (t *Table) Records() []Record {
	return t.records
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

func (t *Table) addColumn(name string) {
	if !t.HasColumn(name) {
		t.columns = append(t.columns, name)
	}
}

// WriteCSV writes the header row and one row per record; absent values are
// written as empty cells.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	row := make([]string, len(t.columns))
	for _, rec := range t.records {
		for i, col := range t.columns {
			row[i], _ = rec.Get(col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeCSV returns the table as CSV text.
func (t *Table) EncodeCSV() (string, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
