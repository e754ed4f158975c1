package htm

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/elves/elvx/pkg/logutil"
)

type fancy struct{}

func (fancy) RenderHTML() string { return "<b>fancy</b>" }

type widget struct{ label string }

func (w widget) Tagify() Node { return New("button", w.label) }

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"empty tag", New("div"), "<div></div>"},
		{"text is escaped", New("p", "a < b"), "<p>a &lt; b</p>"},
		{"raw html is not escaped", New("div", HTML("<i>x</i>")), "<div><i>x</i></div>"},
		{"attributes keep order",
			New("a", Attr{"href", "/x"}, Attr{"title", `"q"`}, "link"),
			`<a href="/x" title="&#34;q&#34;">link</a>`},
		{"class accumulates",
			New("div", Attr{"class", "card"}, Attr{"class", "wide"}),
			`<div class="card wide"></div>`},
		{"tag list", TagList{New("br"), Text("x")}, "<br/>x"},
		{"renderer child", New("td", fancy{}), "<td><b>fancy</b></td>"},
		{"tagifier child", New("div", widget{"ok"}), "<div><button>ok</button></div>"},
		{"nil children dropped", New("div", nil, "a"), "<div>a</div>"},
		{"nested list flattened",
			New("ul", TagList{New("li", "1"), New("li", "2")}),
			"<ul><li>1</li><li>2</li></ul>"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Render(test.node); got != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
		})
	}
}

func TestRenderDocument(t *testing.T) {
	got := RenderDocument(New("html", New("body", "hi")))
	want := "<!DOCTYPE html><html><body>hi</body></html>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRender_LogsErrors(t *testing.T) {
	var buf bytes.Buffer
	logutil.SetOutput(&buf)
	t.Cleanup(func() { logutil.SetOutput(io.Discard) })

	// A void element may not have children.
	Render(New("img", "child"))
	if !strings.Contains(buf.String(), "rendering <img>: ") {
		t.Errorf("got log %q, want it to mention <img>", buf.String())
	}

	buf.Reset()
	RenderDocument(New("br", "child"))
	if !strings.Contains(buf.String(), "rendering document: ") {
		t.Errorf("got log %q, want a document rendering error", buf.String())
	}
}

func TestAsNode(t *testing.T) {
	var nilTag *Tag
	tests := []struct {
		v      any
		want   Node
		wantOK bool
	}{
		{New("p"), New("p"), true},
		{HTML("<i></i>"), HTML("<i></i>"), true},
		{fancy{}, HTML("<b>fancy</b>"), true},
		{widget{"w"}, New("button", "w"), true},
		{"text", nil, false},
		{5, nil, false},
		{nilTag, nil, false},
	}
	for _, test := range tests {
		got, ok := AsNode(test.v)
		if ok != test.wantOK || !cmp.Equal(got, test.want) {
			t.Errorf("AsNode(%#v) -> (%v, %v), want (%v, %v)",
				test.v, got, ok, test.want, test.wantOK)
		}
		if IsHTMLCapable(test.v) != test.wantOK {
			t.Errorf("IsHTMLCapable(%#v) -> %v, want %v",
				test.v, !test.wantOK, test.wantOK)
		}
	}
}

func TestTagClasses(t *testing.T) {
	tag := New("div", Attr{"class", "a b"}, Attr{"class", "c"})
	if diff := cmp.Diff([]string{"a", "b", "c"}, tag.Classes()); diff != "" {
		t.Errorf("Classes (-want +got):\n%s", diff)
	}
}
