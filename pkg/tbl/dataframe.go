package tbl

import (
	"fmt"

	"src.elv.sh/pkg/eval/vals"

	"github.com/elves/elvx/pkg/htm"
)

// Dtype is the element type of a [Series].
type Dtype int

// Possible values of Dtype.
const (
	Object Dtype = iota
	Int
	Float
	String
	Bool
	Categorical
	Datetime
)

var dtypeNames = [...]string{
	Object: "object", Int: "int", Float: "float", String: "string",
	Bool: "bool", Categorical: "categorical", Datetime: "datetime",
}

func (d Dtype) String() string {
	if int(d) < len(dtypeNames) {
		return dtypeNames[d]
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// ParseDtype parses the name of a dtype.
func ParseDtype(s string) (Dtype, bool) {
	for i, name := range dtypeNames {
		if s == name {
			return Dtype(i), true
		}
	}
	return 0, false
}

// Series is a column of a [DataFrame]. A Series must not be modified once it
// is part of a DataFrame, since DataFrames share unmodified Series.
type Series struct {
	// Label is the column label. It is usually a string, but any value is
	// accepted, mirroring libraries that allow non-string labels.
	Label any
	Dtype Dtype
	// Categories is the ordered set of allowed values of a Categorical Series.
	Categories []string
	Values     []any
}

// NewSeries creates a Series, converting values to the dtype. A value that
// the dtype cannot hold widens the dtype, as it would when patched.
func NewSeries(label any, dtype Dtype, values []any) *Series {
	s := &Series{Label: label, Dtype: dtype, Values: make([]any, len(values))}
	if dtype == Categorical {
		s.Categories = distinctStrings(values)
	}
	for i, v := range values {
		if s.set(i, v) != nil {
			s.upcast(v)
			s.Values[i] = v
		}
	}
	return s
}

// NewCategorical creates a Categorical Series with the given categories, in
// the given order. Values must be nil or one of the categories.
func NewCategorical(label any, categories []string, values []string) (*Series, error) {
	s := &Series{Label: label, Dtype: Categorical,
		Categories: append([]string(nil), categories...),
		Values:     make([]any, len(values))}
	for i, v := range values {
		if !contains(categories, v) {
			return nil, &CategoryError{Column: label, Value: v}
		}
		s.Values[i] = v
	}
	return s, nil
}

func (s *Series) clone() *Series {
	return &Series{
		Label: s.Label, Dtype: s.Dtype,
		Categories: append([]string(nil), s.Categories...),
		Values:     append([]any(nil), s.Values...),
	}
}

// upcast widens the dtype so that it can hold v: integers become floats
// when v is a float, everything else becomes Object.
func (s *Series) upcast(v any) {
	if s.Dtype == Int {
		if _, ok := v.(float64); ok {
			s.Dtype = Float
			for i, x := range s.Values {
				if f, ok := convertForDtype(Float, x); ok {
					s.Values[i] = f
				}
			}
			return
		}
	}
	s.Dtype = Object
	s.Categories = nil
}

// set stores v at row i, widening the dtype if needed.
func (s *Series) set(i int, v any) error {
	if cv, ok := convertForDtype(s.Dtype, v); ok {
		if s.Dtype == Categorical && cv != nil && !contains(s.Categories, cv.(string)) {
			return &CategoryError{Column: s.Label, Value: v}
		}
		s.Values[i] = cv
		return nil
	}
	if s.Dtype == Categorical {
		return &CategoryError{Column: s.Label, Value: v}
	}
	s.upcast(v)
	cv, ok := convertForDtype(s.Dtype, v)
	if !ok {
		cv = v
	}
	s.Values[i] = cv
	return nil
}

// DataFrame is a column-major frame. Patching a DataFrame shares the Series
// that are not touched.
type DataFrame struct {
	cols  []*Series
	nrows int
}

// NewDataFrame creates a DataFrame from Series, which must all have the same
// length.
func NewDataFrame(cols ...*Series) (*DataFrame, error) {
	df := &DataFrame{cols: cols}
	for i, c := range cols {
		if i == 0 {
			df.nrows = len(c.Values)
		} else if len(c.Values) != df.nrows {
			return nil, &ShapeError{Column: i, Want: df.nrows, Got: len(c.Values)}
		}
	}
	return df, nil
}

// Series returns a copy of the i-th column. Frames produced by ApplyPatches
// share untouched columns with their input, so columns are never handed out
// directly.
func (df *DataFrame) Series(i int) *Series { return df.cols[i].clone() }

func (*DataFrame) isFrame() {}

// Kind returns "tbl:data-frame".
func (*DataFrame) Kind() string { return "tbl:data-frame" }

// Repr returns a short description.
func (df *DataFrame) Repr(int) string {
	return fmt.Sprintf("<tbl:data-frame %dx%d>", df.nrows, len(df.cols))
}

// Equal reports whether other is a DataFrame with the same labels, dtypes and
// values.
func (df *DataFrame) Equal(other any) bool {
	o, ok := other.(*DataFrame)
	if !ok || o.nrows != df.nrows || len(o.cols) != len(df.cols) {
		return false
	}
	for i, c := range df.cols {
		oc := o.cols[i]
		if !vals.Equal(c.Label, oc.Label) || c.Dtype != oc.Dtype ||
			!equalStrings(c.Categories, oc.Categories) ||
			!equalValues(c.Values, oc.Values) {
			return false
		}
	}
	return true
}

// RenderHTML renders the DataFrame as an HTML table.
func (df *DataFrame) RenderHTML() string {
	head := htm.New("tr")
	for _, c := range df.cols {
		head.Append(htm.New("th", vals.ToString(c.Label)))
	}
	body := htm.New("tbody")
	for i := 0; i < df.nrows; i++ {
		tr := htm.New("tr")
		for _, c := range df.cols {
			tr.Append(htm.New("td", cellText(c.Values[i])))
		}
		body.Append(tr)
	}
	return htm.Render(htm.New("table", htm.Attr{Name: "class", Value: "dataframe"},
		htm.New("thead", head), body))
}

func cellText(v any) any {
	if v == nil {
		return ""
	}
	if htm.IsHTMLCapable(v) {
		return v
	}
	return vals.ToString(v)
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func distinctStrings(values []any) []string {
	var out []string
	for _, v := range values {
		if s, ok := v.(string); ok && !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalValues(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !vals.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
