package tbl

import (
	"context"
	"math"
	"math/big"
	"time"

	"src.elv.sh/pkg/eval/vals"

	"github.com/elves/elvx/pkg/htm"
	"github.com/elves/elvx/pkg/session"
)

// FrameJSON is the form of a frame sent to clients. Columns, TypeHints and
// every row of Data have the same length.
type FrameJSON struct {
	Columns   []string     `json:"columns"`
	Data      [][]any      `json:"data"`
	TypeHints []FrameDtype `json:"typeHints"`
}

// Serialize converts a frame to its client form. Cells of html columns that
// are HTML-capable are rendered with the session carried by ctx, which is
// only required when such a column exists. Cells that JSON cannot represent
// directly are converted to text.
func Serialize(ctx context.Context, f Frame) (*FrameJSON, error) {
	names, err := ColumnNames(f)
	if err != nil {
		return nil, err
	}
	cols := Columns(f)
	hints := make([]FrameDtype, len(cols))
	var sess *session.Session
	for j, c := range cols {
		hints[j] = ClassifyDtype(c)
		if hints[j].Type == TypeHTML && sess == nil {
			sess, err = session.Require(ctx)
			if err != nil {
				return nil, err
			}
		}
	}

	nrows, _ := Shape(f)
	data := make([][]any, nrows)
	for i := range data {
		row := make([]any, len(cols))
		for j, c := range cols {
			v := c.At(i)
			if hints[j].Type == TypeHTML && htm.IsHTMLCapable(v) {
				row[j] = sess.RenderHTML(v)
			} else {
				row[j] = jsonCell(v)
			}
		}
		data[i] = row
	}
	return &FrameJSON{Columns: names, Data: data, TypeHints: hints}, nil
}

// jsonCell converts a cell to a value encoding/json can encode, falling back
// to the text of the value.
func jsonCell(v any) any {
	switch v := v.(type) {
	case nil, bool, string, int, int64:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return vals.ToString(v)
		}
		return v
	case *big.Int:
		if v.IsInt64() {
			return v.Int64()
		}
		return v.String()
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	}
	return vals.ToString(v)
}
