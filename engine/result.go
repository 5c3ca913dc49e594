// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package engine // import "github.com/Falcon-OS/platform-external-perfetto/engine"

import (
	"fmt"
)

// ColumnType describes the value type of a result column.
type ColumnType uint8

const (
	// ColumnLong holds 64-bit signed integers.
	ColumnLong ColumnType = iota
	// ColumnDouble holds 64-bit floating point values.
	ColumnDouble
	// ColumnString holds text values.
	ColumnString
)

func (t ColumnType) String() string {
	switch t {
	case ColumnLong:
		return "long"
	case ColumnDouble:
		return "double"
	case ColumnString:
		return "string"
	default:
		return fmt.Sprintf("<invalid column type %d>", uint8(t))
	}
}

// Column is one named, nullable column of a QueryResult. Exactly one of the
// value slices is populated, matching Type. Nulls marks null cells; a nil
// Nulls slice means the column has no null values.
type Column struct {
	Name    string
	Type    ColumnType
	Longs   []int64
	Doubles []float64
	Strs    []string
	Nulls   []bool
}

// LongColumn builds a non-null integer column.
func LongColumn(name string, values []int64) Column {
	return Column{Name: name, Type: ColumnLong, Longs: values}
}

// DoubleColumn builds a non-null floating point column.
func DoubleColumn(name string, values []float64) Column {
	return Column{Name: name, Type: ColumnDouble, Doubles: values}
}

// StrColumn builds a non-null text column.
func StrColumn(name string, values []string) Column {
	return Column{Name: name, Type: ColumnString, Strs: values}
}

// WithNulls returns a copy of the column with the given null mask attached.
func (c Column) WithNulls(nulls []bool) Column {
	c.Nulls = nulls
	return c
}

func (c *Column) numRows() int {
	switch c.Type {
	case ColumnDouble:
		return len(c.Doubles)
	case ColumnString:
		return len(c.Strs)
	default:
		return len(c.Longs)
	}
}

// QueryResult is the columnar result of a single query: a set of named
// columns with equal row counts. Values are addressed by column name and
// row index through the typed accessors, which report absent, null or
// type-mismatched cells via their ok return.
type QueryResult struct {
	cols   []Column
	byName map[string]int
	rows   int
}

// NewQueryResult validates the columns and assembles them into a result.
// Column names must be unique and non-empty, every value slice must match
// its declared type, and all columns must agree on the row count.
func NewQueryResult(cols []Column) (*QueryResult, error) {
	res := &QueryResult{
		cols:   cols,
		byName: make(map[string]int, len(cols)),
	}
	for i := range cols {
		c := &cols[i]
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, exists := res.byName[c.Name]; exists {
			return nil, fmt.Errorf("duplicate column name '%s'", c.Name)
		}
		switch c.Type {
		case ColumnLong:
			if c.Doubles != nil || c.Strs != nil {
				return nil, fmt.Errorf("column '%s': long column carries "+
					"non-long values", c.Name)
			}
		case ColumnDouble:
			if c.Longs != nil || c.Strs != nil {
				return nil, fmt.Errorf("column '%s': double column carries "+
					"non-double values", c.Name)
			}
		case ColumnString:
			if c.Longs != nil || c.Doubles != nil {
				return nil, fmt.Errorf("column '%s': string column carries "+
					"non-string values", c.Name)
			}
		default:
			return nil, fmt.Errorf("column '%s': unknown type %d",
				c.Name, c.Type)
		}
		n := c.numRows()
		if i == 0 {
			res.rows = n
		} else if n != res.rows {
			return nil, fmt.Errorf("column '%s' has %d rows, expected %d",
				c.Name, n, res.rows)
		}
		if c.Nulls != nil && len(c.Nulls) != n {
			return nil, fmt.Errorf("column '%s': null mask covers %d of %d rows",
				c.Name, len(c.Nulls), n)
		}
		res.byName[c.Name] = i
	}
	return res, nil
}

// EmptyResult returns a result with no columns and no rows.
func EmptyResult() *QueryResult {
	return &QueryResult{byName: map[string]int{}}
}

// NumRows returns the number of rows shared by all columns.
func (r *QueryResult) NumRows() int {
	return r.rows
}

// NumColumns returns the number of columns.
func (r *QueryResult) NumColumns() int {
	return len(r.cols)
}

// ColumnNames returns the column names in result order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.cols))
	for i := range r.cols {
		names[i] = r.cols[i].Name
	}
	return names
}

// HasColumn reports whether a column with the given name exists.
func (r *QueryResult) HasColumn(name string) bool {
	_, ok := r.byName[name]
	return ok
}

func (r *QueryResult) cell(name string, row int) *Column {
	idx, ok := r.byName[name]
	if !ok || row < 0 || row >= r.rows {
		return nil
	}
	c := &r.cols[idx]
	if c.Nulls != nil && c.Nulls[row] {
		return nil
	}
	return c
}

// Long returns the integer value at (column, row). ok is false if the
// column does not exist, the row is out of range, the cell is null or the
// column is not a long column.
func (r *QueryResult) Long(name string, row int) (int64, bool) {
	c := r.cell(name, row)
	if c == nil || c.Type != ColumnLong {
		return 0, false
	}
	return c.Longs[row], true
}

// Double returns the floating point value at (column, row). Long columns
// are widened to double, since engines emit aggregates as either depending
// on the expression.
func (r *QueryResult) Double(name string, row int) (float64, bool) {
	c := r.cell(name, row)
	if c == nil {
		return 0, false
	}
	switch c.Type {
	case ColumnDouble:
		return c.Doubles[row], true
	case ColumnLong:
		return float64(c.Longs[row]), true
	default:
		return 0, false
	}
}

// Str returns the text value at (column, row).
func (r *QueryResult) Str(name string, row int) (string, bool) {
	c := r.cell(name, row)
	if c == nil || c.Type != ColumnString {
		return "", false
	}
	return c.Strs[row], true
}
