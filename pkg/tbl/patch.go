package tbl

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CellPatch replaces the value of one cell.
type CellPatch struct {
	RowIndex    int `json:"row_index"`
	ColumnIndex int `json:"column_index"`
	Value       any `json:"value"`
}

// ApplyPatches returns a new frame with the patches applied in order. The
// input frame is not modified. Columns (of a DataFrame) or rows (of a Table)
// that no patch touches are shared with the input.
func ApplyPatches(f Frame, patches []CellPatch) (Frame, error) {
	nrows, ncols := Shape(f)
	for _, p := range patches {
		if p.RowIndex < 0 || p.RowIndex >= nrows {
			return nil, &IndexError{What: "row", Index: p.RowIndex, Len: nrows}
		}
		if p.ColumnIndex < 0 || p.ColumnIndex >= ncols {
			return nil, &IndexError{What: "column", Index: p.ColumnIndex, Len: ncols}
		}
	}

	switch f := f.(type) {
	case *DataFrame:
		out := &DataFrame{cols: append([]*Series(nil), f.cols...), nrows: f.nrows}
		cloned := make(map[int]bool)
		for _, p := range patches {
			j := p.ColumnIndex
			if !cloned[j] {
				out.cols[j] = f.cols[j].clone()
				cloned[j] = true
			}
			if err := out.cols[j].set(p.RowIndex, p.Value); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *Table:
		out := f.shallowCopy()
		cloned := make(map[int]bool)
		for _, p := range patches {
			i := p.RowIndex
			if !cloned[i] {
				out.rows[i] = append([]any(nil), f.rows[i]...)
				cloned[i] = true
			}
			if err := out.set(i, p.ColumnIndex, p.Value); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	panic("unreachable")
}

// ParsePatches decodes a JSON array of cell patches. Numbers that are whole
// become ints; other numbers become float64.
func ParsePatches(data []byte) ([]CellPatch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var patches []CellPatch
	if err := dec.Decode(&patches); err != nil {
		return nil, fmt.Errorf("bad cell patches: %w", err)
	}
	for i := range patches {
		v, err := normalizeJSON(patches[i].Value)
		if err != nil {
			return nil, fmt.Errorf("bad value in cell patch %d: %w", i, err)
		}
		patches[i].Value = v
	}
	return patches, nil
}

func normalizeJSON(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		if isWholeFloat(f) && f >= -(1<<53) && f <= 1<<53 {
			return int(f), nil
		}
		return f, nil
	case string, bool, nil:
		return v, nil
	}
	return nil, fmt.Errorf("value must be a JSON primitive, got %T", v)
}
