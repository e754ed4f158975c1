package tbl

import "github.com/elves/elvx/pkg/htm"

// Type tags of FrameDtype.
const (
	TypeNumeric     = "numeric"
	TypeString      = "string"
	TypeHTML        = "html"
	TypeCategorical = "categorical"
	TypeUnknown     = "unknown"
)

// FrameDtype describes the type of a column to clients.
type FrameDtype struct {
	Type       string   `json:"type"`
	Categories []string `json:"categories,omitempty"`
}

// ClassifyDtype determines the FrameDtype of a column.
//
// Text columns are html if any cell is HTML-capable and string otherwise.
// Numeric and categorical columns are never html. Other columns are unknown,
// unless a cell is HTML-capable.
func ClassifyDtype(c Column) FrameDtype {
	switch c.class {
	case textClass:
		if hasHTML(c) {
			return FrameDtype{Type: TypeHTML}
		}
		return FrameDtype{Type: TypeString}
	case numericClass:
		return FrameDtype{Type: TypeNumeric}
	case categoricalClass:
		return FrameDtype{Type: TypeCategorical,
			Categories: append([]string{}, c.categories...)}
	}
	if hasHTML(c) {
		return FrameDtype{Type: TypeHTML}
	}
	return FrameDtype{Type: TypeUnknown}
}

func hasHTML(c Column) bool {
	for i := 0; i < c.n; i++ {
		if htm.IsHTMLCapable(c.at(i)) {
			return true
		}
	}
	return false
}
