// Package htm implements the UI tree produced by express apps: tags, tag
// lists, raw HTML fragments and text.
package htm

import (
	"fmt"
	"reflect"
	"strings"
)

// Node is a node in a UI tree. The set of node types is closed; values that
// know how to present themselves as UI implement [Tagifier] or [Renderer]
// instead.
type Node interface {
	isNode()
}

// Renderer is implemented by values that can render themselves as an HTML
// fragment.
type Renderer interface {
	RenderHTML() string
}

// Tagifier is implemented by values that can convert themselves into a UI
// tree.
type Tagifier interface {
	Tagify() Node
}

// Attr is an attribute of a tag. Attributes keep the order in which they were
// added.
type Attr struct {
	Name, Value string
}

// Tag is an HTML element.
type Tag struct {
	Name     string
	Attrs    []Attr
	Children []Node
}

// TagList is a sequence of nodes without an enclosing element.
type TagList []Node

// HTML is a fragment of HTML that is rendered verbatim.
type HTML string

// Text is a piece of text, escaped when rendered.
type Text string

func (*Tag) isNode()   {}
func (TagList) isNode() {}
func (HTML) isNode()    {}
func (Text) isNode()    {}

// New builds a tag. Each child is converted with [Child]; [Attr] values among
// children become attributes.
func New(name string, children ...any) *Tag {
	t := &Tag{Name: name}
	for _, c := range children {
		t.Append(c)
	}
	return t
}

// Append adds a child or an attribute to the tag and returns the tag.
func (t *Tag) Append(c any) *Tag {
	switch c := c.(type) {
	case Attr:
		t.SetAttr(c.Name, c.Value)
	case []Attr:
		for _, a := range c {
			t.SetAttr(a.Name, a.Value)
		}
	case TagList:
		t.Children = append(t.Children, c...)
	default:
		if n := Child(c); n != nil {
			t.Children = append(t.Children, n)
		}
	}
	return t
}

// SetAttr sets an attribute. The "class" attribute accumulates values.
func (t *Tag) SetAttr(name, value string) {
	for i, a := range t.Attrs {
		if a.Name == name {
			if name == "class" && a.Value != "" {
				t.Attrs[i].Value = a.Value + " " + value
			} else {
				t.Attrs[i].Value = value
			}
			return
		}
	}
	t.Attrs = append(t.Attrs, Attr{name, value})
}

// Attr returns the value of an attribute.
func (t *Tag) Attr(name string) (string, bool) {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child converts a value to a node used as a child of a tag. Nodes are kept,
// HTML-capable values are converted, nil becomes nil and anything else
// becomes text.
func Child(v any) Node {
	if v == nil {
		return nil
	}
	if n, ok := AsNode(v); ok {
		return n
	}
	switch v := v.(type) {
	case string:
		return Text(v)
	case fmt.Stringer:
		return Text(v.String())
	}
	return Text(fmt.Sprint(v))
}

// AsNode converts an HTML-capable value to a node. It returns false for
// values that are not HTML-capable.
func AsNode(v any) (Node, bool) {
	switch v := v.(type) {
	case Node:
		if isNilPointer(v) {
			return nil, false
		}
		return v, true
	case Tagifier:
		return v.Tagify(), true
	case Renderer:
		return HTML(v.RenderHTML()), true
	}
	return nil, false
}

// IsHTMLCapable reports whether v is a node or can present itself as one.
func IsHTMLCapable(v any) bool {
	switch v := v.(type) {
	case Node:
		return !isNilPointer(v)
	case Tagifier, Renderer:
		return true
	}
	return false
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Elvish value protocol.

func (*Tag) Kind() string   { return "htm:tag" }
func (TagList) Kind() string { return "htm:tag-list" }
func (HTML) Kind() string    { return "htm:html" }
func (Text) Kind() string    { return "string" }

func (t *Tag) Repr(int) string    { return "<htm:tag " + Render(t) + ">" }
func (l TagList) Repr(int) string { return "<htm:tag-list " + Render(l) + ">" }
func (h HTML) Repr(int) string    { return "<htm:html " + string(h) + ">" }

func (t *Tag) String() string    { return Render(t) }
func (l TagList) String() string { return Render(l) }
func (h HTML) String() string    { return string(h) }
func (t Text) String() string    { return string(t) }

func (t *Tag) Equal(other any) bool    { return reflect.DeepEqual(t, other) }
func (l TagList) Equal(other any) bool { return reflect.DeepEqual(l, other) }

// RenderHTML implements [Renderer], so that nodes stored in tables and other
// containers render the same way as top-level nodes.
func (t *Tag) RenderHTML() string    { return Render(t) }
func (l TagList) RenderHTML() string { return Render(l) }
func (h HTML) RenderHTML() string    { return string(h) }

// Classes returns the class names of a tag.
func (t *Tag) Classes() []string {
	c, _ := t.Attr("class")
	return strings.Fields(c)
}
