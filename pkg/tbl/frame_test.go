package tbl

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.elv.sh/pkg/eval/vals"

	"github.com/elves/elvx/pkg/htm"
)

func mustDataFrame(t *testing.T, cols ...*Series) *DataFrame {
	t.Helper()
	df, err := NewDataFrame(cols...)
	if err != nil {
		t.Fatal(err)
	}
	return df
}

func mustTable(t *testing.T, schema []Field, rows ...[]any) *Table {
	t.Helper()
	tb, err := NewTable(schema, rows)
	if err != nil {
		t.Fatal(err)
	}
	return tb
}

// abFrames returns a DataFrame and a Table with the same content: an integer
// column a and a string column b, over three rows.
func abFrames(t *testing.T) []Frame {
	df := mustDataFrame(t,
		NewSeries("a", Int, []any{1, 2, 3}),
		NewSeries("b", String, []any{"x", "y", "z"}))
	tb := mustTable(t, []Field{{"a", Int64}, {"b", Utf8}},
		[]any{1, "x"}, []any{2, "y"}, []any{3, "z"})
	return []Frame{df, tb}
}

func sameVariant(a, b Frame) bool {
	switch a.(type) {
	case *DataFrame:
		_, ok := b.(*DataFrame)
		return ok
	case *Table:
		_, ok := b.(*Table)
		return ok
	}
	return false
}

func TestShapeAndNames(t *testing.T) {
	for _, f := range abFrames(t) {
		if r, c := Shape(f); r != 3 || c != 2 {
			t.Errorf("Shape(%T) = (%d, %d), want (3, 2)", f, r, c)
		}
		names, err := ColumnNames(f)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
			t.Errorf("ColumnNames(%T) (-want +got):\n%s", f, diff)
		}
		cols := Columns(f)
		if diff := cmp.Diff([]any{"x", "y", "z"}, cols[1].Values()); diff != "" {
			t.Errorf("Columns(%T)[1] (-want +got):\n%s", f, diff)
		}
	}
}

func TestColumnNames_NonStringLabel(t *testing.T) {
	df := mustDataFrame(t, NewSeries(0, Int, []any{1}), NewSeries("b", Int, []any{2}))
	// Other operations still work; only names are rejected.
	if r, c := Shape(df); r != 1 || c != 2 {
		t.Errorf("Shape = (%d, %d), want (1, 2)", r, c)
	}
	_, err := ColumnNames(df)
	var nameErr *ColumnNameError
	if !errors.As(err, &nameErr) || nameErr.Index != 0 {
		t.Errorf("ColumnNames -> %v, want ColumnNameError for column 0", err)
	}
}

func TestCell(t *testing.T) {
	for _, f := range abFrames(t) {
		v, err := Cell(f, 1, 1)
		if v != "y" || err != nil {
			t.Errorf("Cell(%T, 1, 1) = (%v, %v), want (y, nil)", f, v, err)
		}
		for _, pos := range [][2]int{{3, 0}, {-1, 0}, {0, 2}} {
			_, err := Cell(f, pos[0], pos[1])
			var indexErr *IndexError
			if !errors.As(err, &indexErr) {
				t.Errorf("Cell(%T, %d, %d) -> %v, want IndexError", f, pos[0], pos[1], err)
			}
		}
	}
}

func TestSubset(t *testing.T) {
	for _, f := range abFrames(t) {
		sub, err := Subset(f, []int{1}, []ColSel{ByName("b")})
		if err != nil {
			t.Fatal(err)
		}
		if !sameVariant(f, sub) {
			t.Errorf("Subset(%T) returned %T", f, sub)
		}
		if r, c := Shape(sub); r != 1 || c != 1 {
			t.Errorf("Subset(%T) shape = (%d, %d), want (1, 1)", f, r, c)
		}
		got, _ := Cell(sub, 0, 0)
		want, _ := Cell(f, 1, 1)
		if got != want {
			t.Errorf("Subset(%T) cell = %v, want %v", f, got, want)
		}

		all, err := Subset(f, nil, nil)
		if err != nil || !vals.Equal(all, Copy(f)) {
			t.Errorf("Subset(%T, nil, nil) -> (%v, %v), want a copy", f, all, err)
		}

		reordered, _ := Subset(f, []int{2, 0}, []ColSel{ByIndex(1), ByName("a")})
		names, _ := ColumnNames(reordered)
		if diff := cmp.Diff([]string{"b", "a"}, names); diff != "" {
			t.Errorf("reordered names (-want +got):\n%s", diff)
		}
		if v, _ := Cell(reordered, 0, 1); v != 3 {
			t.Errorf("reordered cell (0, 1) = %v, want 3", v)
		}

		for _, bad := range []struct {
			rows []int
			cols []ColSel
		}{
			{[]int{3}, nil},
			{nil, []ColSel{ByIndex(5)}},
			{nil, []ColSel{ByName("nope")}},
		} {
			_, err := Subset(f, bad.rows, bad.cols)
			var indexErr *IndexError
			if !errors.As(err, &indexErr) {
				t.Errorf("Subset(%T, %v, %v) -> %v, want IndexError",
					f, bad.rows, bad.cols, err)
			}
		}
	}
}

func TestApplyPatches_EmptyEqualsCopy(t *testing.T) {
	for _, f := range abFrames(t) {
		patched, err := ApplyPatches(f, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !vals.Equal(patched, Copy(f)) {
			t.Errorf("ApplyPatches(%T, nil) differs from Copy", f)
		}
		if patched == f {
			t.Errorf("ApplyPatches(%T, nil) returned the input itself", f)
		}
	}
}

func TestApplyPatches_LaterPatchWins(t *testing.T) {
	for _, f := range abFrames(t) {
		before := Copy(f)
		patched, err := ApplyPatches(f, []CellPatch{
			{RowIndex: 0, ColumnIndex: 1, Value: "a"},
			{RowIndex: 0, ColumnIndex: 1, Value: "b"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !sameVariant(f, patched) {
			t.Errorf("ApplyPatches(%T) returned %T", f, patched)
		}
		if !vals.Equal(f, before) {
			t.Errorf("ApplyPatches(%T) modified its input", f)
		}
		nrows, ncols := Shape(f)
		for i := 0; i < nrows; i++ {
			for j := 0; j < ncols; j++ {
				got, _ := Cell(patched, i, j)
				want, _ := Cell(f, i, j)
				if i == 0 && j == 1 {
					want = "b"
				}
				if !vals.Equal(got, want) {
					t.Errorf("%T cell (%d, %d) = %v, want %v", f, i, j, got, want)
				}
			}
		}
	}
}

func TestApplyPatches_SharesUntouchedData(t *testing.T) {
	frames := abFrames(t)
	df := frames[0].(*DataFrame)
	out, _ := ApplyPatches(df, []CellPatch{{RowIndex: 1, ColumnIndex: 1, Value: "q"}})
	pdf := out.(*DataFrame)
	if pdf.cols[0] != df.cols[0] {
		t.Errorf("untouched series was copied")
	}
	if pdf.cols[1] == df.cols[1] {
		t.Errorf("touched series was shared")
	}

	tb := frames[1].(*Table)
	out, _ = ApplyPatches(tb, []CellPatch{{RowIndex: 1, ColumnIndex: 1, Value: "q"}})
	ptb := out.(*Table)
	if &ptb.rows[0][0] != &tb.rows[0][0] {
		t.Errorf("untouched row was copied")
	}
	if &ptb.rows[1][0] == &tb.rows[1][0] {
		t.Errorf("touched row was shared")
	}
}

func TestDataFrame_SeriesIsACopy(t *testing.T) {
	df := mustDataFrame(t, NewSeries("i", Int, []any{1, 2}))
	out, err := ApplyPatches(df, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := df.Series(0)
	s.Values[0] = 100
	s.Dtype = Object
	for _, f := range []*DataFrame{df, out.(*DataFrame)} {
		if got := f.Series(0); got.Dtype != Int || got.Values[0] != 1 {
			t.Errorf("series changed through a copy: %v", got)
		}
	}
}

func TestApplyPatches_DataFrameUpcasts(t *testing.T) {
	df := mustDataFrame(t,
		NewSeries("i", Int, []any{1, 2}),
		NewSeries("j", Int, []any{1, 2}))
	out, err := ApplyPatches(df, []CellPatch{
		{RowIndex: 0, ColumnIndex: 0, Value: 1.5},
		{RowIndex: 0, ColumnIndex: 1, Value: "text"},
	})
	if err != nil {
		t.Fatal(err)
	}
	pdf := out.(*DataFrame)
	if pdf.Series(0).Dtype != Float || pdf.Series(0).Values[1] != 2.0 {
		t.Errorf("int column patched with a float: %v", pdf.Series(0))
	}
	if pdf.Series(1).Dtype != Object || pdf.Series(1).Values[1] != 2 {
		t.Errorf("int column patched with a string: %v", pdf.Series(1))
	}
	if df.Series(0).Dtype != Int {
		t.Errorf("input series changed dtype")
	}
}

func TestApplyPatches_Categories(t *testing.T) {
	cat, err := NewCategorical("c", []string{"lo", "hi"}, []string{"hi", "lo"})
	if err != nil {
		t.Fatal(err)
	}
	df := mustDataFrame(t, cat)
	if _, err := ApplyPatches(df, []CellPatch{{0, 0, "lo"}}); err != nil {
		t.Errorf("patching with a known category -> %v", err)
	}
	_, err = ApplyPatches(df, []CellPatch{{0, 0, "mid"}})
	var catErr *CategoryError
	if !errors.As(err, &catErr) {
		t.Errorf("patching with an unknown category -> %v, want CategoryError", err)
	}

	tb := mustTable(t, []Field{{"c", Cat}}, []any{"b"}, []any{"a"})
	out, err := ApplyPatches(tb, []CellPatch{{0, 0, "z"}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "a", "z"}, Columns(out)[0].Categories()); diff != "" {
		t.Errorf("categories after patch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "a"}, Columns(tb)[0].Categories()); diff != "" {
		t.Errorf("input categories changed (-want +got):\n%s", diff)
	}
}

func TestApplyPatches_TableRejectsMismatch(t *testing.T) {
	tb := abFrames(t)[1]
	_, err := ApplyPatches(tb, []CellPatch{{0, 0, "not a number"}})
	var typeErr *PatchTypeError
	if !errors.As(err, &typeErr) || typeErr.Column != "a" {
		t.Errorf("ApplyPatches -> %v, want PatchTypeError for column a", err)
	}
	_, err = ApplyPatches(tb, []CellPatch{{5, 0, 1}})
	var indexErr *IndexError
	if !errors.As(err, &indexErr) {
		t.Errorf("ApplyPatches with bad row -> %v, want IndexError", err)
	}
}

func TestCopy_Independent(t *testing.T) {
	for _, f := range abFrames(t) {
		c := Copy(f)
		switch c := c.(type) {
		case *DataFrame:
			c.cols[1].Values[0] = "changed"
		case *Table:
			c.rows[0][1] = "changed"
		}
		if v, _ := Cell(f, 0, 1); v != "x" {
			t.Errorf("modifying a copy of %T changed the original", f)
		}
	}
}

type compatible struct{ n int }

func (c compatible) ToDataFrame() (*DataFrame, error) {
	return NewDataFrame(NewSeries("n", Int, []any{c.n}))
}

func TestAsFrame(t *testing.T) {
	frames := abFrames(t)
	for _, f := range frames {
		got, err := AsFrame(f)
		if got != f || err != nil {
			t.Errorf("AsFrame(%T) = (%v, %v), want the input", f, got, err)
		}
	}

	_, err := AsFrame(vals.MakeMap("a", vals.MakeList("1", "2")))
	var typeErr *UnsupportedTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("AsFrame(map) -> %v, want UnsupportedTypeError", err)
	}
	msg := err.Error()
	for _, want := range []string{"map", "*tbl.DataFrame", "*tbl.Table", "ToDataFrame"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q does not mention %q", msg, want)
		}
	}

	got, err := AsFrame(compatible{7})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := Cell(got, 0, 0); v != 7 {
		t.Errorf("converted cell = %v, want 7", v)
	}
	if _, ok := got.(*DataFrame); !ok {
		t.Errorf("compatible value converted to %T", got)
	}
}

func TestClassifyDtype(t *testing.T) {
	cat, _ := NewCategorical("c", []string{"z", "a"}, []string{"a"})
	df := mustDataFrame(t,
		NewSeries("num", Float, []any{1.5}),
		NewSeries("str", String, []any{"s"}),
		NewSeries("html", String, []any{htm.New("b", "x")}),
		cat,
		NewSeries("bool", Bool, []any{true}),
		NewSeries("obj", Object, []any{htm.HTML("<i></i>")}),
	)
	var got []FrameDtype
	for _, c := range Columns(df) {
		got = append(got, ClassifyDtype(c))
	}
	want := []FrameDtype{
		{Type: TypeNumeric},
		{Type: TypeString},
		{Type: TypeHTML},
		{Type: TypeCategorical, Categories: []string{"z", "a"}},
		{Type: TypeUnknown},
		{Type: TypeHTML},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dtypes (-want +got):\n%s", diff)
	}
}

func TestParsePatches(t *testing.T) {
	patches, err := ParsePatches([]byte(
		`[{"row_index":0,"column_index":1,"value":"x"},` +
			`{"row_index":2,"column_index":0,"value":3},` +
			`{"row_index":1,"column_index":0,"value":2.5},` +
			`{"row_index":1,"column_index":0,"value":null}]`))
	if err != nil {
		t.Fatal(err)
	}
	want := []CellPatch{{0, 1, "x"}, {2, 0, 3}, {1, 0, 2.5}, {1, 0, nil}}
	if diff := cmp.Diff(want, patches); diff != "" {
		t.Errorf("patches (-want +got):\n%s", diff)
	}

	if _, err := ParsePatches([]byte(`[{"row_index":0,"column_index":0,"value":[1]}]`)); err == nil {
		t.Errorf("ParsePatches accepted a non-primitive value")
	}
}
