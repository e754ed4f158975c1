package tbl

import (
	"database/sql"
	"time"
)

// Query is a SQL query whose result can be shown as a frame. It implements
// [Compatible].
type Query struct {
	DB   *sql.DB
	Text string
	Args []any
}

// ToDataFrame runs the query and converts the result.
func (q Query) ToDataFrame() (*DataFrame, error) {
	rows, err := q.DB.Query(q.Text, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return FromRows(rows)
}

// FromRows reads all remaining rows into a DataFrame, inferring the dtype of
// each column with [InferDtype]. It does not close rows.
func FromRows(rows *sql.Rows) (*DataFrame, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([][]any, len(names))
	dest := make([]any, len(names))
	for rows.Next() {
		for j := range dest {
			dest[j] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for j, d := range dest {
			v := *(d.(*any))
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if i, ok := v.(int64); ok {
				v = int(i)
			}
			values[j] = append(values[j], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	cols := make([]*Series, len(names))
	for j, name := range names {
		cols[j] = NewSeries(name, InferDtype(values[j]), values[j])
	}
	return NewDataFrame(cols...)
}

// InferDtype returns the narrowest dtype that holds all of vs. NULLs fit any
// dtype; mixed columns are Object columns, except that integers and floats mix
// into Float.
func InferDtype(vs []any) Dtype {
	d, seen := Object, false
	for _, v := range vs {
		var vd Dtype
		switch v.(type) {
		case nil:
			continue
		case int:
			vd = Int
		case float64:
			vd = Float
		case string:
			vd = String
		case bool:
			vd = Bool
		case time.Time:
			vd = Datetime
		default:
			return Object
		}
		switch {
		case !seen:
			d, seen = vd, true
		case d == vd:
		case (d == Int && vd == Float) || (d == Float && vd == Int):
			d = Float
		default:
			return Object
		}
	}
	if !seen {
		return Object
	}
	return d
}
