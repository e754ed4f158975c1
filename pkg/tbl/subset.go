package tbl

// ColSel selects a column by position or by name.
type ColSel struct {
	index  int
	name   string
	byName bool
}

// ByIndex selects the column at position i.
func ByIndex(i int) ColSel { return ColSel{index: i} }

// ByName selects the first column named name.
func ByName(name string) ColSel { return ColSel{name: name, byName: true} }

func (s ColSel) resolve(f Frame) (int, error) {
	_, ncols := Shape(f)
	if !s.byName {
		if s.index < 0 || s.index >= ncols {
			return 0, &IndexError{What: "column", Index: s.index, Len: ncols}
		}
		return s.index, nil
	}
	for i, c := range Columns(f) {
		if name, ok := c.label.(string); ok && name == s.name {
			return i, nil
		}
	}
	return 0, &IndexError{What: "column", Name: s.name}
}

// Subset returns a frame with the given rows and columns, in the given order.
// A nil slice selects everything along its axis.
func Subset(f Frame, rows []int, cols []ColSel) (Frame, error) {
	nrows, ncols := Shape(f)
	if rows == nil {
		rows = make([]int, nrows)
		for i := range rows {
			rows[i] = i
		}
	}
	for _, r := range rows {
		if r < 0 || r >= nrows {
			return nil, &IndexError{What: "row", Index: r, Len: nrows}
		}
	}
	colIdx := make([]int, 0, ncols)
	if cols == nil {
		for i := 0; i < ncols; i++ {
			colIdx = append(colIdx, i)
		}
	} else {
		for _, sel := range cols {
			i, err := sel.resolve(f)
			if err != nil {
				return nil, err
			}
			colIdx = append(colIdx, i)
		}
	}

	switch f := f.(type) {
	case *DataFrame:
		out := &DataFrame{cols: make([]*Series, len(colIdx)), nrows: len(rows)}
		for k, j := range colIdx {
			src := f.cols[j]
			s := &Series{Label: src.Label, Dtype: src.Dtype,
				Categories: append([]string(nil), src.Categories...),
				Values:     make([]any, len(rows))}
			for i, r := range rows {
				s.Values[i] = src.Values[r]
			}
			out.cols[k] = s
		}
		return out, nil
	case *Table:
		out := &Table{
			schema: make([]Field, len(colIdx)),
			rows:   make([][]any, len(rows)),
			dicts:  make(map[int][]string),
		}
		for k, j := range colIdx {
			out.schema[k] = f.schema[j]
			if d, ok := f.dicts[j]; ok {
				out.dicts[k] = append([]string(nil), d...)
			}
		}
		for i, r := range rows {
			row := make([]any, len(colIdx))
			for k, j := range colIdx {
				row[k] = f.rows[r][j]
			}
			out.rows[i] = row
		}
		return out, nil
	}
	panic("unreachable")
}
