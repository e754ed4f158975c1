// Package tbl adapts tabular data for display and editing.
//
// A [Frame] is either a column-major [*DataFrame] or a row-major [*Table].
// Values implementing [Compatible] are converted to a DataFrame once, by
// [AsFrame]; all other operations work on the two native variants and always
// return the variant they are given.
package tbl

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"src.elv.sh/pkg/eval/vals"

	"github.com/elves/elvx/pkg/htm"
)

// Frame is a tabular frame. It is implemented by [*DataFrame] and [*Table]
// only.
type Frame interface {
	isFrame()
}

// Compatible is implemented by values that can convert themselves into a
// DataFrame.
type Compatible interface {
	ToDataFrame() (*DataFrame, error)
}

// UnsupportedTypeError is returned when a value is neither a frame nor
// compatible with one.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return "unsupported frame type " + e.Type +
		"; use a *tbl.DataFrame, a *tbl.Table, or a value with a ToDataFrame method"
}

// IndexError is returned when a row or column position is out of range, or a
// column name does not exist.
type IndexError struct {
	What  string
	Index int
	Name  string
	Len   int
}

func (e *IndexError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no such %s: %s", e.What, e.Name)
	}
	return fmt.Sprintf("%s index out of range: %d, must be from 0 to %d",
		e.What, e.Index, e.Len-1)
}

// ColumnNameError is returned when a column label is not a string.
type ColumnNameError struct {
	Index int
	Label any
}

func (e *ColumnNameError) Error() string {
	return fmt.Sprintf("column name must be a string, but column %d has name %s of kind %s",
		e.Index, vals.ReprPlain(e.Label), vals.Kind(e.Label))
}

// PatchTypeError is returned when a value does not fit the type of a Table
// column.
type PatchTypeError struct {
	Column string
	Type   string
	Value  any
}

func (e *PatchTypeError) Error() string {
	return fmt.Sprintf("column %s of type %s cannot hold %s",
		e.Column, e.Type, vals.ReprPlain(e.Value))
}

// CategoryError is returned when a value is not one of the categories of a
// categorical column.
type CategoryError struct {
	Column any
	Value  any
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("%s is not a category of column %s",
		vals.ReprPlain(e.Value), vals.ToString(e.Column))
}

// ShapeError is returned when frame data is ragged.
type ShapeError struct {
	Row, Column int
	Want, Got   int
}

func (e *ShapeError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("column %d has %d values, want %d", e.Column, e.Got, e.Want)
	}
	return fmt.Sprintf("row %d has %d values, want %d", e.Row, e.Got, e.Want)
}

// AsFrame returns data as a Frame, converting Compatible values.
func AsFrame(data any) (Frame, error) {
	switch data := data.(type) {
	case *DataFrame:
		if data != nil {
			return data, nil
		}
	case *Table:
		if data != nil {
			return data, nil
		}
	case Compatible:
		return data.ToDataFrame()
	}
	return nil, &UnsupportedTypeError{Type: typeName(data)}
}

func typeName(v any) string {
	switch v.(type) {
	case nil, string, bool, vals.List, vals.Map:
		return vals.Kind(v)
	}
	return reflect.TypeOf(v).String()
}

// Shape returns the number of rows and columns.
func Shape(f Frame) (rows, cols int) {
	switch f := f.(type) {
	case *DataFrame:
		return f.nrows, len(f.cols)
	case *Table:
		return len(f.rows), len(f.schema)
	}
	panic("unreachable")
}

// ColumnNames returns the names of the columns. It fails if a DataFrame has a
// label that is not a string.
func ColumnNames(f Frame) ([]string, error) {
	switch f := f.(type) {
	case *DataFrame:
		names := make([]string, len(f.cols))
		for i, c := range f.cols {
			s, ok := c.Label.(string)
			if !ok {
				return nil, &ColumnNameError{Index: i, Label: c.Label}
			}
			names[i] = s
		}
		return names, nil
	case *Table:
		names := make([]string, len(f.schema))
		for i, field := range f.schema {
			names[i] = field.Name
		}
		return names, nil
	}
	panic("unreachable")
}

// Column is a read-only view of a column of a frame.
type Column struct {
	label      any
	class      columnClass
	categories []string
	n          int
	at         func(i int) any
}

type columnClass int

const (
	otherClass columnClass = iota
	textClass
	numericClass
	categoricalClass
)

func classOf(d Dtype) columnClass {
	switch d {
	case String:
		return textClass
	case Int, Float:
		return numericClass
	case Categorical:
		return categoricalClass
	}
	return otherClass
}

// Label returns the label of the column.
func (c Column) Label() any { return c.label }

// Len returns the number of values.
func (c Column) Len() int { return c.n }

// At returns the i-th value.
func (c Column) At(i int) any { return c.at(i) }

// Values returns all values.
func (c Column) Values() []any {
	vs := make([]any, c.n)
	for i := range vs {
		vs[i] = c.at(i)
	}
	return vs
}

// Categories returns the categories of a categorical column, in the order
// reported by the source.
func (c Column) Categories() []string { return c.categories }

// Columns returns views of all columns.
func Columns(f Frame) []Column {
	switch f := f.(type) {
	case *DataFrame:
		cols := make([]Column, len(f.cols))
		for i, s := range f.cols {
			s := s
			cols[i] = Column{
				label: s.Label, class: classOf(s.Dtype), categories: s.Categories,
				n: len(s.Values), at: func(i int) any { return s.Values[i] }}
		}
		return cols
	case *Table:
		cols := make([]Column, len(f.schema))
		for j, field := range f.schema {
			j := j
			cols[j] = Column{
				label: field.Name, class: classOf(field.Type.dtype()),
				categories: f.dicts[j],
				n:          len(f.rows), at: func(i int) any { return f.rows[i][j] }}
		}
		return cols
	}
	panic("unreachable")
}

// Cell returns the value at the given position.
func Cell(f Frame, row, col int) (any, error) {
	nrows, ncols := Shape(f)
	if row < 0 || row >= nrows {
		return nil, &IndexError{What: "row", Index: row, Len: nrows}
	}
	if col < 0 || col >= ncols {
		return nil, &IndexError{What: "column", Index: col, Len: ncols}
	}
	switch f := f.(type) {
	case *DataFrame:
		return f.cols[col].Values[row], nil
	case *Table:
		return f.rows[row][col], nil
	}
	panic("unreachable")
}

// Copy returns a deep copy of f that shares nothing with it.
func Copy(f Frame) Frame {
	switch f := f.(type) {
	case *DataFrame:
		cols := make([]*Series, len(f.cols))
		for i, s := range f.cols {
			cols[i] = s.clone()
		}
		return &DataFrame{cols: cols, nrows: f.nrows}
	case *Table:
		t := f.shallowCopy()
		for i, row := range t.rows {
			t.rows[i] = append([]any(nil), row...)
		}
		return t
	}
	panic("unreachable")
}

// convertForDtype converts v to the representation used by columns of dtype
// d. It returns false if such columns cannot hold v.
func convertForDtype(d Dtype, v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch d {
	case Object:
		return v, true
	case Int:
		switch v := v.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case *big.Int:
			if v.IsInt64() {
				return int(v.Int64()), true
			}
		}
	case Float:
		switch v := v.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case *big.Int:
			f, _ := new(big.Float).SetInt(v).Float64()
			return f, true
		case *big.Rat:
			f, _ := v.Float64()
			return f, true
		}
	case String:
		if _, ok := v.(string); ok || htm.IsHTMLCapable(v) {
			return v, true
		}
	case Bool:
		if _, ok := v.(bool); ok {
			return v, true
		}
	case Categorical:
		if _, ok := v.(string); ok {
			return v, true
		}
	case Datetime:
		if _, ok := v.(time.Time); ok {
			return v, true
		}
	}
	return nil, false
}

func isWholeFloat(f float64) bool {
	return !math.IsInf(f, 0) && f == math.Trunc(f)
}
