// Package dataset holds tabular data as an ordered header plus string cells.
//
// Cells keep their original text so a frame written back to CSV reproduces
// the values it was read from. Numeric interpretation happens on demand via
// FloatColumn and InferKind.
package dataset

import (
	"fmt"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
)

// Frame is an immutable table of string cells.
type Frame struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// New builds a frame. Every row must have len(header) cells and column
// names must be unique.
func New(header []string, rows [][]string) (*Frame, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; dup {
			return nil, errors.NewValueError("dataset.New", fmt.Sprintf("duplicate column %q", name))
		}
		index[name] = i
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, errors.NewDimensionError(fmt.Sprintf("dataset.New row %d", i), len(header), len(row), 1)
		}
	}
	return &Frame{
		header: append([]string(nil), header...),
		index:  index,
		rows:   rows,
	}, nil
}

// Header returns a copy of the column names.
func (f *Frame) Header() []string {
	return append([]string(nil), f.header...)
}

// NRows returns the number of data rows.
func (f *Frame) NRows() int { return len(f.rows) }

// NCols returns the number of columns.
func (f *Frame) NCols() int { return len(f.header) }

// HasColumn reports whether name is a column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []string {
	return append([]string(nil), f.rows[i]...)
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, errors.NewValueError("Frame.Column", fmt.Sprintf("unknown column %q", name))
	}
	out := make([]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[j]
	}
	return out, nil
}

// FloatColumn parses the named column. Missing cells become NaN; any other
// unparseable cell is an error naming the row.
func (f *Frame) FloatColumn(name string) ([]float64, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(col))
	for i, s := range col {
		v, ok := ParseFloat(s)
		if !ok {
			return nil, errors.NewValueError("Frame.FloatColumn",
				fmt.Sprintf("column %q row %d: %q is not numeric", name, i, s))
		}
		out[i] = v
	}
	return out, nil
}

// Take returns a frame with the rows at idx, in idx order. Rows are shared
// with f.
func (f *Frame) Take(idx []int) *Frame {
	rows := make([][]string, len(idx))
	for i, r := range idx {
		rows[i] = f.rows[r]
	}
	return &Frame{header: f.header, index: f.index, rows: rows}
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]int, len(names))
	for i, name := range names {
		j, ok := f.index[name]
		if !ok {
			return nil, errors.NewValueError("Frame.Select", fmt.Sprintf("unknown column %q", name))
		}
		cols[i] = j
	}
	rows := make([][]string, len(f.rows))
	for i, row := range f.rows {
		out := make([]string, len(cols))
		for k, j := range cols {
			out[k] = row[j]
		}
		rows[i] = out
	}
	return New(names, rows)
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !f.HasColumn(name) {
			return nil, errors.NewValueError("Frame.Drop", fmt.Sprintf("unknown column %q", name))
		}
		drop[name] = true
	}
	keep := make([]string, 0, len(f.header)-len(drop))
	for _, name := range f.header {
		if !drop[name] {
			keep = append(keep, name)
		}
	}
	return f.Select(keep...)
}

// FromRecord builds a one-row frame from a map keyed by column name. Every
// column in header must be present in record.
func FromRecord(header []string, record map[string]string) (*Frame, error) {
	row := make([]string, len(header))
	for i, name := range header {
		v, ok := record[name]
		if !ok {
			return nil, errors.NewValueError("dataset.FromRecord", fmt.Sprintf("missing column %q", name))
		}
		row[i] = v
	}
	return New(header, [][]string{row})
}
