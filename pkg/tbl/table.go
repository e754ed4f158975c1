package tbl

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"src.elv.sh/pkg/eval/vals"
)

// DataType is the type of a [Table] column.
type DataType int

// Possible values of DataType.
const (
	ObjectType DataType = iota
	Int64
	Float64
	Utf8
	Boolean
	Cat
	Time
)

var dataTypeNames = [...]string{
	ObjectType: "object", Int64: "i64", Float64: "f64", Utf8: "str",
	Boolean: "bool", Cat: "cat", Time: "datetime",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseDataType parses the name of a data type. It also accepts the dtype
// names understood by [ParseDtype].
func ParseDataType(s string) (DataType, bool) {
	for i, name := range dataTypeNames {
		if s == name {
			return DataType(i), true
		}
	}
	if d, ok := ParseDtype(s); ok {
		return dtypeToDataType[d], true
	}
	return 0, false
}

var dtypeToDataType = map[Dtype]DataType{
	Object: ObjectType, Int: Int64, Float: Float64, String: Utf8,
	Bool: Boolean, Categorical: Cat, Datetime: Time,
}

// DataTypeOf returns the Table column type corresponding to a dtype.
func DataTypeOf(d Dtype) DataType { return dtypeToDataType[d] }

func (t DataType) dtype() Dtype {
	for d, dt := range dtypeToDataType {
		if dt == t {
			return d
		}
	}
	return Object
}

// Field describes a column of a [Table].
type Field struct {
	Name string
	Type DataType
}

// Table is a row-major frame with a fixed schema. Column names are always
// strings. Patching a Table shares the rows that are not touched.
type Table struct {
	schema []Field
	rows   [][]any
	// Dictionaries of Cat columns, in order of first appearance.
	dicts map[int][]string
}

// NewTable creates a Table. Every row must have one value per field, and
// every value must fit the type of its field.
func NewTable(schema []Field, rows [][]any) (*Table, error) {
	t := &Table{
		schema: append([]Field(nil), schema...),
		rows:   make([][]any, len(rows)),
		dicts:  make(map[int][]string),
	}
	for i, row := range rows {
		if len(row) != len(schema) {
			return nil, &ShapeError{Row: i, Want: len(schema), Got: len(row)}
		}
		t.rows[i] = make([]any, len(row))
		for j, v := range row {
			if err := t.set(i, j, v); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// Schema returns the schema of the table.
func (t *Table) Schema() []Field { return append([]Field(nil), t.schema...) }

// set stores v in a row that is owned by t.
func (t *Table) set(i, j int, v any) error {
	f := t.schema[j]
	cv, ok := convertForDtype(f.Type.dtype(), v)
	if !ok {
		return &PatchTypeError{Column: f.Name, Type: f.Type.String(), Value: v}
	}
	if f.Type == Cat && cv != nil && !contains(t.dicts[j], cv.(string)) {
		t.dicts[j] = append(t.dicts[j], cv.(string))
	}
	t.rows[i][j] = cv
	return nil
}

func (t *Table) shallowCopy() *Table {
	dicts := make(map[int][]string, len(t.dicts))
	for j, d := range t.dicts {
		dicts[j] = append([]string(nil), d...)
	}
	return &Table{
		schema: append([]Field(nil), t.schema...),
		rows:   append([][]any(nil), t.rows...),
		dicts:  dicts,
	}
}

func (*Table) isFrame() {}

// Kind returns "tbl:table".
func (*Table) Kind() string { return "tbl:table" }

// Repr renders the table as text, with a header of names and types.
func (t *Table) Repr(int) string {
	cells := make([][]string, len(t.rows)+2)
	cells[0] = make([]string, len(t.schema))
	cells[1] = make([]string, len(t.schema))
	for j, f := range t.schema {
		cells[0][j] = f.Name
		cells[1][j] = f.Type.String()
	}
	for i, row := range t.rows {
		cells[i+2] = make([]string, len(row))
		for j, v := range row {
			if v == nil {
				cells[i+2][j] = "null"
			} else {
				cells[i+2][j] = vals.ToString(v)
			}
		}
	}
	widths := make([]int, len(t.schema))
	for _, row := range cells {
		for j, s := range row {
			widths[j] = max(widths[j], utf8.RuneCountInString(s))
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "shape: (%d, %d)", len(t.rows), len(t.schema))
	for i, row := range cells {
		sb.WriteString("\n│")
		for j, s := range row {
			sb.WriteString(" " + s + strings.Repeat(" ", widths[j]-utf8.RuneCountInString(s)) + " │")
		}
		if i == 1 {
			sb.WriteString("\n╞")
			for _, w := range widths {
				sb.WriteString(strings.Repeat("═", w+2) + "╡")
			}
		}
	}
	return sb.String()
}

// Equal reports whether other is a Table with the same schema and values.
func (t *Table) Equal(other any) bool {
	o, ok := other.(*Table)
	if !ok || len(o.schema) != len(t.schema) || len(o.rows) != len(t.rows) {
		return false
	}
	for j, f := range t.schema {
		if o.schema[j] != f || !equalStrings(t.dicts[j], o.dicts[j]) {
			return false
		}
	}
	for i, row := range t.rows {
		if !equalValues(row, o.rows[i]) {
			return false
		}
	}
	return true
}
