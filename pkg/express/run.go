// Package express runs express apps: Elvish scripts whose top-level output
// becomes the UI of a page.
//
// Each top-level statement of a script runs in turn. The values it outputs are
// displayed on the page, and the page function turns everything displayed into
// a UI tree once the script finishes.
package express

import (
	"context"
	"os"
	"path/filepath"

	"src.elv.sh/pkg/eval"
	"src.elv.sh/pkg/eval/vars"
	"src.elv.sh/pkg/parse"

	"github.com/elves/elvx/pkg/htm"
	"github.com/elves/elvx/pkg/logutil"
	"github.com/elves/elvx/pkg/mods"
	modtbl "github.com/elves/elvx/pkg/mods/tbl"
	modui "github.com/elves/elvx/pkg/mods/ui"
	"github.com/elves/elvx/pkg/recall"
	"github.com/elves/elvx/pkg/ui"
)

var logger = logutil.GetLogger("[express] ")

// DefaultPage is the page function used unless a script replaces it.
var DefaultPage recall.Func = ui.PageFluid

// Runner runs express apps. The zero value is ready to use. Every run is
// independent of other runs, including concurrent ones.
type Runner struct {
	// Patches, if not nil, supplies patches for data frame outputs.
	Patches modui.PatchSource
	// Stderr, if not nil, receives the byte output scripts write to stderr.
	Stderr *os.File
}

// Run runs the script at path and returns the UI it builds.
func (r *Runner) Run(ctx context.Context, path string) (htm.Node, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return r.Exec(ctx, parse.Source{Name: path, Code: string(code), IsFile: true})
}

// Exec runs a script and returns the UI it builds. Parse errors and
// exceptions are returned unchanged.
func (r *Runner) Exec(ctx context.Context, src parse.Source) (htm.Node, error) {
	tree, err := parse.Parse(src, parse.Config{})
	if err != nil {
		return nil, err
	}
	p := Rewrite(tree)

	page := recall.NewPage(DefaultPage)
	ev := eval.NewEvaler()
	mods.AddTo(ev)
	ev.ExtendGlobal(eval.BuildNs().
		AddVar("express-file", vars.NewReadOnly(src.Name)).
		AddGoFn(DisplayFn, display).
		AddNs("ui", modui.Ns(modui.Config{Page: page, Context: ctx, Patches: r.Patches})).
		AddNs("tbl", modtbl.Ns(ctx)))

	page.Start()
	v, err := page.Finish(r.execStatements(ctx, ev, page, p, src))
	if err != nil {
		return nil, err
	}
	if n, ok := htm.AsNode(v); ok {
		return n, nil
	}
	return htm.Child(v), nil
}

func (r *Runner) execStatements(ctx context.Context, ev *eval.Evaler, page *recall.Page, p *Script, src parse.Source) error {
	errPort := eval.DummyOutputPort
	if r.Stderr != nil {
		errPort = &eval.Port{File: r.Stderr, Chan: eval.BlackholeChan}
	}
	for i, st := range p.Statements {
		if err := ctx.Err(); err != nil {
			return err
		}
		stSrc := parse.Source{Name: src.Name, Code: st.Code, IsFile: src.IsFile}
		if st.Def {
			err := ev.Eval(stSrc, eval.EvalCfg{
				Ports: []*eval.Port{eval.DummyInputPort, eval.DummyOutputPort, errPort}})
			if err != nil {
				return err
			}
			continue
		}
		port, collect, err := eval.ValueCapturePort()
		if err != nil {
			return err
		}
		err = ev.Eval(stSrc, eval.EvalCfg{
			Ports: []*eval.Port{eval.DummyInputPort, port, errPort}})
		vs := collect()
		logger.Printf("statement %d of %s displayed %d values", i, src.Name, len(vs))
		for _, v := range vs {
			page.Scope().Display(v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Runs body and outputs the values it outputs, except nil.
func display(fm *eval.Frame, body eval.Callable) error {
	vs, err := fm.CaptureOutput(func(fm *eval.Frame) error {
		return body.Call(fm, eval.NoArgs, eval.NoOpts)
	})
	out := fm.ValueOutput()
	for _, v := range vs {
		if v == nil {
			continue
		}
		if err := out.Put(v); err != nil {
			return err
		}
	}
	return err
}

// Check parses and rewrites a script without running it.
func Check(src parse.Source) (*Script, error) {
	tree, err := parse.Parse(src, parse.Config{})
	if err != nil {
		return nil, err
	}
	return Rewrite(tree), nil
}

// Run runs the script at path with a zero Runner.
func Run(ctx context.Context, path string) (htm.Node, error) {
	return (&Runner{}).Run(ctx, path)
}
