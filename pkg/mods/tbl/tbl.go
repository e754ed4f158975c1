// Package tbl implements the tbl: module, which exposes frames to express
// apps.
package tbl

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"src.elv.sh/pkg/eval"
	"src.elv.sh/pkg/eval/vals"

	// Registers the "sqlite" driver used by tbl:query.
	_ "modernc.org/sqlite"

	"github.com/elves/elvx/pkg/tbl"
)

// DElvCode contains the content of the .d.elv file for this module.
//
//go:embed *.d.elv
var DElvCode string

// Ns returns the tbl: namespace. The context is used when frames are
// serialized, and may carry a session.
func Ns(ctx context.Context) *eval.Ns {
	if ctx == nil {
		ctx = context.Background()
	}
	return eval.BuildNsNamed("tbl").
		AddGoFns(map[string]any{
			"data-frame": dataFrame,
			"table":      table,
			"query":      query,

			"shape":        shape,
			"columns":      columns,
			"column-names": columnNames,
			"cell":         cell,
			"subset":       subset,
			"patch":        patch,
			"copy":         copyFrame,
			"dtypes":       dtypes,
			"to-json": func(data any) (string, error) {
				return toJSON(ctx, data)
			},
		}).
		Ns()
}

type frameOpts struct {
	Dtypes     any
	Categories any
}

func (*frameOpts) SetDefaultOptions() {}

// A frame being built from Elvish values, column by column.
type columnData struct {
	labels []any
	dtypes []tbl.Dtype
	cats   [][]string
	cells  [][]any
}

func collectColumns(opts frameOpts, columns, rows any) (*columnData, error) {
	labels, err := vals.Collect(columns)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	rowList, err := vals.Collect(rows)
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	cd := &columnData{
		labels: labels,
		dtypes: make([]tbl.Dtype, len(labels)),
		cats:   make([][]string, len(labels)),
		cells:  make([][]any, len(labels)),
	}
	for i, r := range rowList {
		row, err := vals.Collect(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if len(row) != len(labels) {
			return nil, &tbl.ShapeError{Row: i, Want: len(labels), Got: len(row)}
		}
		for j, v := range row {
			cd.cells[j] = append(cd.cells[j], v)
		}
	}
	for j, label := range labels {
		name := vals.ToString(label)
		if s, ok := lookupOpt(opts.Dtypes, name); ok {
			d, ok := tbl.ParseDtype(vals.ToString(s))
			if !ok {
				if dt, ok := tbl.ParseDataType(vals.ToString(s)); ok {
					d = dtypeOf(dt)
				} else {
					return nil, fmt.Errorf("unknown dtype %s for column %s",
						vals.ReprPlain(s), name)
				}
			}
			cd.dtypes[j] = d
			for i, v := range cd.cells[j] {
				cd.cells[j][i] = coerce(d, v)
			}
		} else {
			cd.dtypes[j] = tbl.InferDtype(cd.cells[j])
		}
		if c, ok := lookupOpt(opts.Categories, name); ok {
			cats, err := collectStrings(c)
			if err != nil {
				return nil, fmt.Errorf("categories of column %s: %w", name, err)
			}
			cd.cats[j] = cats
			cd.dtypes[j] = tbl.Categorical
		}
	}
	return cd, nil
}

func lookupOpt(m any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, err := vals.Index(m, key)
	if err != nil {
		return nil, false
	}
	return v, true
}

func collectStrings(v any) ([]string, error) {
	items, err := vals.Collect(v)
	if err != nil {
		return nil, err
	}
	ss := make([]string, len(items))
	for i, item := range items {
		ss[i] = vals.ToString(item)
	}
	return ss, nil
}

func dtypeOf(t tbl.DataType) tbl.Dtype {
	for _, d := range []tbl.Dtype{tbl.Object, tbl.Int, tbl.Float, tbl.String,
		tbl.Bool, tbl.Categorical, tbl.Datetime} {
		if tbl.DataTypeOf(d) == t {
			return d
		}
	}
	return tbl.Object
}

// Converts a value written in Elvish to the Go type of a dtype. Elvish number
// literals are strings, so strings are parsed for numeric, boolean and time
// dtypes. Values that cannot be parsed are left alone.
func coerce(d tbl.Dtype, v any) any {
	switch d {
	case tbl.Int:
		var i int
		if vals.ScanToGo(v, &i) == nil {
			return i
		}
	case tbl.Float:
		var f float64
		if vals.ScanToGo(v, &f) == nil {
			return f
		}
	case tbl.Bool:
		switch v {
		case "true":
			return true
		case "false":
			return false
		}
	case tbl.Datetime:
		if s, ok := v.(string); ok {
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, s); err == nil {
					return t
				}
			}
		}
	}
	return v
}

func dataFrame(opts frameOpts, columns, rows any) (*tbl.DataFrame, error) {
	cd, err := collectColumns(opts, columns, rows)
	if err != nil {
		return nil, err
	}
	series := make([]*tbl.Series, len(cd.labels))
	for j, label := range cd.labels {
		if cd.cats[j] == nil {
			series[j] = tbl.NewSeries(label, cd.dtypes[j], cd.cells[j])
			continue
		}
		values := make([]string, len(cd.cells[j]))
		for i, v := range cd.cells[j] {
			values[i] = vals.ToString(v)
		}
		series[j], err = tbl.NewCategorical(label, cd.cats[j], values)
		if err != nil {
			return nil, err
		}
	}
	return tbl.NewDataFrame(series...)
}

// ErrTableCategories is returned when categories are given for a table, whose
// categorical columns take their categories from the data.
var ErrTableCategories = errors.New("tables do not support the categories option")

func table(opts frameOpts, columns, rows any) (*tbl.Table, error) {
	if opts.Categories != nil {
		return nil, ErrTableCategories
	}
	cd, err := collectColumns(opts, columns, rows)
	if err != nil {
		return nil, err
	}
	schema := make([]tbl.Field, len(cd.labels))
	for j, label := range cd.labels {
		name, ok := label.(string)
		if !ok {
			return nil, &tbl.ColumnNameError{Index: j, Label: label}
		}
		schema[j] = tbl.Field{Name: name, Type: tbl.DataTypeOf(cd.dtypes[j])}
	}
	tableRows := make([][]any, 0)
	if len(cd.labels) > 0 {
		tableRows = make([][]any, len(cd.cells[0]))
		for i := range tableRows {
			row := make([]any, len(cd.labels))
			for j := range row {
				row[j] = cd.cells[j][i]
			}
			tableRows[i] = row
		}
	}
	return tbl.NewTable(schema, tableRows)
}

type queryOpts struct{ Driver string }

func (o *queryOpts) SetDefaultOptions() { o.Driver = "sqlite" }

func query(opts queryOpts, dsn, text string, args ...any) (tbl.Frame, error) {
	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return tbl.AsFrame(tbl.Query{DB: db, Text: text, Args: args})
}

func shape(fm *eval.Frame, data any) error {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return err
	}
	rows, cols := tbl.Shape(f)
	out := fm.ValueOutput()
	if err := out.Put(rows); err != nil {
		return err
	}
	return out.Put(cols)
}

func columns(fm *eval.Frame, data any) error {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return err
	}
	out := fm.ValueOutput()
	for _, c := range tbl.Columns(f) {
		m := vals.MakeMap(
			"label", c.Label(),
			"type", tbl.ClassifyDtype(c).Type,
			"values", vals.MakeList(c.Values()...))
		if err := out.Put(m); err != nil {
			return err
		}
	}
	return nil
}

func columnNames(fm *eval.Frame, data any) error {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return err
	}
	names, err := tbl.ColumnNames(f)
	if err != nil {
		return err
	}
	out := fm.ValueOutput()
	for _, name := range names {
		if err := out.Put(name); err != nil {
			return err
		}
	}
	return nil
}

func cell(data any, row, col int) (any, error) {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return nil, err
	}
	return tbl.Cell(f, row, col)
}

type subsetOpts struct {
	Rows any
	Cols any
}

func (*subsetOpts) SetDefaultOptions() {}

func subset(opts subsetOpts, data any) (tbl.Frame, error) {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return nil, err
	}
	var rows []int
	if opts.Rows != nil {
		items, err := vals.Collect(opts.Rows)
		if err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		rows = make([]int, len(items))
		for i, item := range items {
			if err := vals.ScanToGo(item, &rows[i]); err != nil {
				return nil, fmt.Errorf("rows: %w", err)
			}
		}
	}
	var cols []tbl.ColSel
	if opts.Cols != nil {
		items, err := vals.Collect(opts.Cols)
		if err != nil {
			return nil, fmt.Errorf("cols: %w", err)
		}
		cols = make([]tbl.ColSel, len(items))
		for i, item := range items {
			if name, ok := item.(string); ok {
				cols[i] = tbl.ByName(name)
				continue
			}
			var j int
			if err := vals.ScanToGo(item, &j); err != nil {
				return nil, fmt.Errorf("cols: %w", err)
			}
			cols[i] = tbl.ByIndex(j)
		}
	}
	return tbl.Subset(f, rows, cols)
}

func patch(data, patches any) (tbl.Frame, error) {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return nil, err
	}
	ps, err := toPatches(patches)
	if err != nil {
		return nil, err
	}
	return tbl.ApplyPatches(f, ps)
}

// Converts a JSON string in the cell edit format, or a list of maps with the
// same keys, to patches.
func toPatches(v any) ([]tbl.CellPatch, error) {
	if s, ok := v.(string); ok {
		return tbl.ParsePatches([]byte(s))
	}
	items, err := vals.Collect(v)
	if err != nil {
		return nil, err
	}
	patches := make([]tbl.CellPatch, len(items))
	for i, item := range items {
		p := &patches[i]
		for key, ptr := range map[string]*int{"row_index": &p.RowIndex, "column_index": &p.ColumnIndex} {
			x, err := vals.Index(item, key)
			if err != nil {
				return nil, fmt.Errorf("patch %d: %w", i, err)
			}
			if err := vals.ScanToGo(x, ptr); err != nil {
				return nil, fmt.Errorf("patch %d: %s: %w", i, key, err)
			}
		}
		p.Value, err = vals.Index(item, "value")
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
	}
	return patches, nil
}

func copyFrame(data any) (tbl.Frame, error) {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return nil, err
	}
	return tbl.Copy(f), nil
}

func dtypes(fm *eval.Frame, data any) error {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return err
	}
	out := fm.ValueOutput()
	for _, c := range tbl.Columns(f) {
		d := tbl.ClassifyDtype(c)
		m := vals.MakeMap("type", d.Type)
		if d.Categories != nil {
			cats := make([]any, len(d.Categories))
			for i, s := range d.Categories {
				cats[i] = s
			}
			m = m.Assoc("categories", vals.MakeList(cats...))
		}
		if err := out.Put(m); err != nil {
			return err
		}
	}
	return nil
}

func toJSON(ctx context.Context, data any) (string, error) {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return "", err
	}
	j, err := tbl.Serialize(ctx, f)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
