// Package ui contains the page and layout functions that express apps are
// rendered with. Each function has the signature of a recall.Func: it takes
// the values collected by a recall context and returns a UI node.
package ui

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	"github.com/yuin/goldmark"
	"src.elv.sh/pkg/eval/vals"

	"github.com/elves/elvx/pkg/htm"
)

//go:embed page.css
var pageCSS string

// PageFluid builds a complete page whose body is a fluid container of args.
// It understands the keyword arguments "title", "lang" and "fillable"; other
// keyword arguments become attributes of the container.
func PageFluid(args []any, kwargs map[string]any) (any, error) {
	container := htm.New("div", htm.Attr{Name: "class", Value: "container-fluid"})
	if truthy(kwargs["fillable"]) {
		container.SetAttr("class", "fillable")
	}
	addAttrs(container, kwargs, "title", "lang", "fillable")
	appendAll(container, args)
	return page(kwargs, container), nil
}

// PageSidebar builds a complete page with a sidebar. The first argument that
// is a sidebar (see [Sidebar]) becomes the sidebar; the other arguments form
// the main area, in order. It understands the same keyword arguments as
// [PageFluid].
func PageSidebar(args []any, kwargs map[string]any) (any, error) {
	var sidebar htm.Node
	main := htm.New("main", htm.Attr{Name: "class", Value: "main"})
	for _, arg := range args {
		if sidebar == nil && isSidebar(arg) {
			sidebar = arg.(htm.Node)
			continue
		}
		main.Append(arg)
	}
	if sidebar == nil {
		return nil, fmt.Errorf("page-sidebar needs a sidebar among its arguments")
	}
	layout := htm.New("div",
		htm.Attr{Name: "class", Value: "bslib-page-sidebar"}, sidebar, main)
	if truthy(kwargs["fillable"]) {
		layout.SetAttr("class", "fillable")
	}
	addAttrs(layout, kwargs, "title", "lang", "fillable")
	return page(kwargs, layout), nil
}

func isSidebar(v any) bool {
	t, ok := v.(*htm.Tag)
	if !ok || t.Name != "aside" {
		return false
	}
	for _, c := range t.Classes() {
		if c == "sidebar" {
			return true
		}
	}
	return false
}

func page(kwargs map[string]any, body htm.Node) htm.Node {
	head := htm.New("head",
		htm.New("meta", htm.Attr{Name: "charset", Value: "utf-8"}),
		htm.New("meta",
			htm.Attr{Name: "name", Value: "viewport"},
			htm.Attr{Name: "content", Value: "width=device-width, initial-scale=1"}),
		htm.New("style", htm.HTML(pageCSS)))
	if title, ok := kwargs["title"]; ok {
		head.Append(htm.New("title", vals.ToString(title)))
	}
	lang := "en"
	if l, ok := kwargs["lang"]; ok {
		lang = vals.ToString(l)
	}
	return htm.New("html", htm.Attr{Name: "lang", Value: lang},
		head, htm.New("body", body))
}

// Sidebar builds a sidebar. The keyword argument "title" adds a heading.
func Sidebar(args []any, kwargs map[string]any) (any, error) {
	aside := htm.New("aside", htm.Attr{Name: "class", Value: "sidebar"})
	if title, ok := kwargs["title"]; ok {
		aside.Append(htm.New("h2", vals.ToString(title)))
	}
	addAttrs(aside, kwargs, "title")
	appendAll(aside, args)
	return aside, nil
}

// Card builds a card. The keyword argument "title" adds a header.
func Card(args []any, kwargs map[string]any) (any, error) {
	card := htm.New("div", htm.Attr{Name: "class", Value: "card"})
	if title, ok := kwargs["title"]; ok {
		card.Append(htm.New("div",
			htm.Attr{Name: "class", Value: "card-header"}, vals.ToString(title)))
	}
	addAttrs(card, kwargs, "title")
	body := htm.New("div", htm.Attr{Name: "class", Value: "card-body"})
	appendAll(body, args)
	return card.Append(body), nil
}

// LayoutColumns lays args out in columns of equal width. The keyword
// argument "widths" is a list of relative widths.
func LayoutColumns(args []any, kwargs map[string]any) (any, error) {
	n := max(len(args), 1)
	template := fmt.Sprintf("repeat(%d, 1fr)", n)
	if w, ok := kwargs["widths"]; ok {
		widths, err := vals.Collect(w)
		if err != nil {
			return nil, fmt.Errorf("widths must be a list: %w", err)
		}
		template = ""
		for i, x := range widths {
			if i > 0 {
				template += " "
			}
			template += vals.ToString(x) + "fr"
		}
	}
	div := htm.New("div",
		htm.Attr{Name: "class", Value: "layout-columns"},
		htm.Attr{Name: "style", Value: "grid-template-columns: " + template})
	addAttrs(div, kwargs, "widths")
	for _, arg := range args {
		div.Append(htm.New("div", arg))
	}
	return div, nil
}

// Markdown converts Markdown text to HTML.
func Markdown(text string) (htm.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return htm.HTML(buf.String()), nil
}

// Block returns a function that wraps its arguments in a tag with the given
// name. Keyword arguments become attributes.
func Block(name string) func([]any, map[string]any) (any, error) {
	return func(args []any, kwargs map[string]any) (any, error) {
		t := htm.New(name)
		addAttrs(t, kwargs)
		appendAll(t, args)
		return t, nil
	}
}

func appendAll(t *htm.Tag, args []any) {
	for _, arg := range args {
		t.Append(arg)
	}
}

// addAttrs adds keyword arguments other than the reserved ones as attributes,
// sorted by name.
func addAttrs(t *htm.Tag, kwargs map[string]any, reserved ...string) {
	names := make([]string, 0, len(kwargs))
outer:
	for name := range kwargs {
		for _, r := range reserved {
			if name == r {
				continue outer
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.SetAttr(name, vals.ToString(kwargs[name]))
	}
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	return vals.Bool(v)
}
