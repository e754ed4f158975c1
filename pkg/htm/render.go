package htm

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/elves/elvx/pkg/logutil"
)

var logger = logutil.GetLogger("[htm] ")

// Render renders a node as HTML.
func Render(n Node) string {
	var buf bytes.Buffer
	for _, hn := range toHTML(n) {
		// The partial output is kept when rendering fails.
		if err := html.Render(&buf, hn); err != nil {
			logger.Printf("rendering <%s>: %v", hn.Data, err)
		}
	}
	return buf.String()
}

// RenderDocument renders a node as a complete HTML document, preceded by a
// doctype.
func RenderDocument(n Node) string {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	for _, hn := range toHTML(n) {
		doc.AppendChild(hn)
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		logger.Printf("rendering document: %v", err)
	}
	return buf.String()
}

func toHTML(n Node) []*html.Node {
	switch n := n.(type) {
	case nil:
		return nil
	case *Tag:
		if n == nil {
			return nil
		}
		e := &html.Node{
			Type: html.ElementNode, Data: n.Name, DataAtom: atom.Lookup([]byte(n.Name))}
		for _, a := range n.Attrs {
			e.Attr = append(e.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
		for _, c := range n.Children {
			for _, hc := range toHTML(c) {
				e.AppendChild(hc)
			}
		}
		return []*html.Node{e}
	case TagList:
		var nodes []*html.Node
		for _, c := range n {
			nodes = append(nodes, toHTML(c)...)
		}
		return nodes
	case HTML:
		return []*html.Node{{Type: html.RawNode, Data: string(n)}}
	case Text:
		return []*html.Node{{Type: html.TextNode, Data: string(n)}}
	}
	return nil
}
