// Package ui implements the ui: module, which express apps use to build their
// pages.
//
// Tag builtins output UI nodes like any other value. Block builtins take a
// body and collect what the body displays; see [recall] for how the collected
// values become a UI node.
package ui

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"src.elv.sh/pkg/eval"
	"src.elv.sh/pkg/eval/vals"

	"github.com/elves/elvx/pkg/htm"
	"github.com/elves/elvx/pkg/logutil"
	"github.com/elves/elvx/pkg/recall"
	"github.com/elves/elvx/pkg/session"
	"github.com/elves/elvx/pkg/tbl"
	uifn "github.com/elves/elvx/pkg/ui"
)

var logger = logutil.GetLogger("[mods/ui] ")

// DElvCode contains the content of the .d.elv file for this module.
//
//go:embed *.d.elv
var DElvCode string

// PatchSource supplies the cell patches recorded for a data frame output.
type PatchSource interface {
	Patches(output string) ([]tbl.CellPatch, error)
}

// Config configures the module for one execution of an app.
type Config struct {
	// Page receives the values displayed by block builtins. Required.
	Page *recall.Page
	// Context may carry a session, which data frame outputs register with.
	Context context.Context
	// Patches, if not nil, supplies the patches applied to data frame
	// outputs.
	Patches PatchSource
}

// TagNames lists the HTML tags that have builtins.
var TagNames = []string{
	"a", "b", "blockquote", "br", "button", "code", "div", "em", "footer",
	"form", "h1", "h2", "h3", "h4", "h5", "h6", "header", "hr", "i", "img",
	"input", "label", "li", "nav", "ol", "option", "p", "pre", "section",
	"select", "small", "span", "strong", "table", "tbody", "td", "textarea",
	"th", "thead", "tr", "ul",
}

type module struct {
	Config
	nextFrame int
}

// Ns returns the ui: namespace for one execution of an app.
func Ns(cfg Config) *eval.Ns {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	m := &module{Config: cfg}
	fns := map[string]any{
		"html":     html,
		"markdown": uifn.Markdown,
		"tags":     tags,
		"tag": func(opts eval.RawOptions, name string, children ...any) (*htm.Tag, error) {
			return tag(name)(opts, children...)
		},

		"page-opts":      m.pageOpts,
		"card":           m.block(uifn.Card, nil),
		"sidebar":        m.block(uifn.Sidebar, sidebarPage),
		"layout-columns": m.block(uifn.LayoutColumns, nil),
		"block":          m.namedBlock,

		"data-frame": m.dataFrame,
	}
	for _, name := range TagNames {
		fns[name] = tag(name)
	}
	return eval.BuildNsNamed("ui").AddGoFns(fns).Ns()
}

func sidebarPage() *recall.Context { return recall.New(uifn.PageSidebar) }

// Returns a builtin that outputs a tag. Options become attributes; a list
// option value becomes a space-separated attribute value.
func tag(name string) func(eval.RawOptions, ...any) (*htm.Tag, error) {
	return func(opts eval.RawOptions, children ...any) (*htm.Tag, error) {
		t := htm.New(name)
		for _, attr := range sortedAttrs(opts) {
			t.SetAttr(attr.Name, attr.Value)
		}
		for _, c := range children {
			if err := appendChild(t, c); err != nil {
				return nil, err
			}
		}
		return t, nil
	}
}

func appendChild(t *htm.Tag, c any) error {
	if l, ok := c.(vals.List); ok {
		return vals.Iterate(l, func(v any) bool {
			t.Append(v)
			return true
		})
	}
	t.Append(c)
	return nil
}

func sortedAttrs(opts map[string]any) []htm.Attr {
	attrs := make([]htm.Attr, 0, len(opts))
	for name, v := range opts {
		attrs = append(attrs, htm.Attr{Name: name, Value: attrValue(v)})
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
	return attrs
}

func attrValue(v any) string {
	if l, ok := v.(vals.List); ok {
		var parts []string
		vals.Iterate(l, func(v any) bool {
			parts = append(parts, vals.ToString(v))
			return true
		})
		return strings.Join(parts, " ")
	}
	return vals.ToString(v)
}

func html(s string) htm.HTML { return htm.HTML(s) }

// Outputs its arguments as one tag list.
func tags(children ...any) htm.TagList {
	l := make(htm.TagList, 0, len(children))
	for _, c := range children {
		if n := htm.Child(c); n != nil {
			l = append(l, n)
		}
	}
	return l
}

func (m *module) pageOpts(opts eval.RawOptions) {
	kwargs := make(map[string]any, len(opts))
	for k, v := range opts {
		kwargs[k] = v
	}
	m.Page.SetOpts(kwargs)
}

// ErrNoBody is returned when a block builtin is not given a body.
var ErrNoBody = errors.New("the last argument must be a body")

// Returns a block builtin. The builtin takes any number of leading arguments
// and a body as the last argument. The leading arguments and the options are
// the initial arguments of a recall context wrapping fn; the body runs with
// the context active. If defaultPage is not nil, entering the context also
// replaces the top-level context of the page with a new default page.
func (m *module) block(fn recall.Func, defaultPage func() *recall.Context) func(*eval.Frame, eval.RawOptions, ...any) error {
	return func(fm *eval.Frame, opts eval.RawOptions, args ...any) error {
		if len(args) == 0 {
			return ErrNoBody
		}
		body, ok := args[len(args)-1].(eval.Callable)
		if !ok {
			return ErrNoBody
		}
		recallOpts := []recall.Option{
			recall.WithArgs(args[:len(args)-1]...), recall.WithKwargs(opts)}
		if defaultPage != nil {
			recallOpts = append(recallOpts, recall.WithDefaultPage(defaultPage()))
		}
		return m.run(fm, recall.New(fn, recallOpts...), body)
	}
}

func (m *module) namedBlock(fm *eval.Frame, opts eval.RawOptions, name string, args ...any) error {
	return m.block(uifn.Block(name), nil)(fm, opts, args...)
}

// Runs body with rc active. Values output by body are displayed in order once
// body finishes; the value produced by rc is output by the builtin.
func (m *module) run(fm *eval.Frame, rc *recall.Context, body eval.Callable) error {
	out := fm.ValueOutput()
	var putErr error
	scope := m.Page.Scope().Child(func(v any) {
		if err := out.Put(v); err != nil && putErr == nil {
			putErr = err
		}
	})
	err := rc.Call(scope, func() error {
		vs, err := fm.CaptureOutput(func(fm *eval.Frame) error {
			return body.Call(fm, eval.NoArgs, eval.NoOpts)
		})
		for _, v := range vs {
			scope.Display(v)
		}
		return err
	})
	if err != nil {
		return err
	}
	return putErr
}

func (m *module) dataFrame(opts eval.RawOptions, data any) (*htm.Tag, error) {
	f, err := tbl.AsFrame(data)
	if err != nil {
		return nil, err
	}
	m.nextFrame++
	id := fmt.Sprintf("data-frame-%d", m.nextFrame)
	if v, ok := opts["id"]; ok {
		id = vals.ToString(v)
	}
	if m.Patches != nil {
		patches, err := m.Patches.Patches(id)
		if err != nil {
			return nil, err
		}
		if len(patches) > 0 {
			logger.Printf("applying %d patches to %s", len(patches), id)
			f, err = tbl.ApplyPatches(f, patches)
			if err != nil {
				return nil, err
			}
		}
	}
	if sess, ok := session.FromContext(m.Context); ok {
		sess.SetOutput(id, f)
	}
	j, err := tbl.Serialize(m.Context, f)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return htm.New("div",
		htm.Attr{Name: "class", Value: "elvx-data-frame"},
		htm.Attr{Name: "id", Value: id},
		htm.New("script",
			htm.Attr{Name: "type", Value: "application/json"},
			htm.HTML(payload))), nil
}
