// Package table holds delimited tables in memory and provides the column
// operations the pipeline stages join their files with.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMissingColumn is returned when a table lacks a column an operation
// needs.
var ErrMissingColumn = errors.New("missing column")

// Table is a header plus rows. Every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// New creates an empty table with the given columns.
func New(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Read parses a CSV document whose first record is the header. Short rows
// are padded with empty cells and long rows are truncated to the header.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("failed to read header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := New(header...)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(t.Rows)+1, err)
		}
		t.Append(record)
	}

	return t, nil
}

// ReadFile reads a CSV table from path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteFile writes the table to path, replacing any existing file.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}

	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds a row, fitting it to the header width.
func (t *Table) Append(row []string) {
	fitted := make([]string, len(t.Header))
	copy(fitted, row)
	t.Rows = append(t.Rows, fitted)
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether every named column exists.
func (t *Table) Has(names ...string) bool {
	for _, name := range names {
		if t.Index(name) < 0 {
			return false
		}
	}
	return true
}

// Require returns ErrMissingColumn naming the first absent column.
func (t *Table) Require(names ...string) error {
	for _, name := range names {
		if t.Index(name) < 0 {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

// Get returns the cell of row in column name, or "" when the column does
// not exist.
func (t *Table) Get(row []string, name string) string {
	i := t.Index(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Column returns every value of column name in row order.
func (t *Table) Column(name string) ([]string, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}

	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, row[i])
	}
	return values, nil
}

// Filter returns a new table holding the rows keep accepts.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := New(t.Header...)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out
}

// Rename renames columns in place. Names not present are ignored.
func (t *Table) Rename(names map[string]string) {
	for i, h := range t.Header {
		if to, ok := names[h]; ok {
			t.Header[i] = to
		}
	}
}

// Drop removes the named columns in place. Names not present are ignored.
func (t *Table) Drop(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}

	var keep []int
	var header []string
	for i, h := range t.Header {
		if !drop[h] {
			keep = append(keep, i)
			header = append(header, h)
		}
	}

	for r, row := range t.Rows {
		fitted := make([]string, len(keep))
		for j, i := range keep {
			fitted[j] = row[i]
		}
		t.Rows[r] = fitted
	}
	t.Header = header
}

// AddColumn appends a column holding value on every row. An existing column
// of the same name is overwritten instead.
func (t *Table) AddColumn(name, value string) {
	if i := t.Index(name); i >= 0 {
		for _, row := range t.Rows {
			row[i] = value
		}
		return
	}

	t.Header = append(t.Header, name)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], value)
	}
}

// Concat stacks tables vertically. The result has the union of their
// columns in first seen order; cells a table lacks are empty.
func Concat(tables ...*Table) *Table {
	out := New()
	for _, t := range tables {
		for _, h := range t.Header {
			if out.Index(h) < 0 {
				out.Header = append(out.Header, h)
			}
		}
	}

	for _, t := range tables {
		positions := make([]int, len(t.Header))
		for i, h := range t.Header {
			positions[i] = out.Index(h)
		}
		for _, row := range t.Rows {
			merged := make([]string, len(out.Header))
			for i, cell := range row {
				merged[positions[i]] = cell
			}
			out.Rows = append(out.Rows, merged)
		}
	}

	return out
}

// Duplicated counts the rows whose value in column name already appeared in
// an earlier row. A missing column counts as no duplicates.
func (t *Table) Duplicated(name string) int {
	i := t.Index(name)
	if i < 0 {
		return 0
	}

	seen := make(map[string]bool, len(t.Rows))
	count := 0
	for _, row := range t.Rows {
		if seen[row[i]] {
			count++
			continue
		}
		seen[row[i]] = true
	}
	return count
}

// DedupBy returns a new table keeping only the first row for each value of
// column name.
func (t *Table) DedupBy(name string) (*Table, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}

	seen := make(map[string]bool, len(t.Rows))
	return t.Filter(func(row []string) bool {
		if seen[row[i]] {
			return false
		}
		seen[row[i]] = true
		return true
	}), nil
}
