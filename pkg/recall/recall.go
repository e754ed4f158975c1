// Package recall implements recall contexts, which collect the values
// displayed while they are active and call a UI-building function with them
// when they exit.
//
// A [Page] holds the state of one script execution: the top-level context and
// the outermost [Scope]. Nothing in this package is global, so independent
// executions may run concurrently.
package recall

import (
	"src.elv.sh/pkg/eval/vals"

	"github.com/elves/elvx/pkg/htm"
)

// Func is a UI-building function called by a context when it exits.
type Func func(args []any, kwargs map[string]any) (any, error)

// Hook receives displayed values.
type Hook func(v any)

// State is the state of a [Context].
type State int

// Possible values of State.
const (
	Idle State = iota
	Capturing
	Exited
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Exited:
		return "exited"
	}
	return "unknown"
}

// Context collects displayed values as arguments to a [Func].
type Context struct {
	fn          Func
	defaultPage *Context
	// Args and Kwargs are the arguments collected so far.
	Args   []any
	Kwargs map[string]any

	state State
	scope *Scope
	saved Hook
}

// Option configures a [Context].
type Option func(*Context)

// WithDefaultPage makes the context replace the page's top-level context with
// page when entered.
func WithDefaultPage(page *Context) Option {
	return func(c *Context) { c.defaultPage = page }
}

// WithArgs sets the initial positional arguments.
func WithArgs(args ...any) Option {
	return func(c *Context) { c.Args = append(c.Args, args...) }
}

// WithKwargs sets the initial keyword arguments.
func WithKwargs(kwargs map[string]any) Option {
	return func(c *Context) {
		for k, v := range kwargs {
			c.Kwargs[k] = v
		}
	}
}

// New creates a context wrapping fn. It does not call fn.
func New(fn Func, opts ...Option) *Context {
	c := &Context{fn: fn, Kwargs: make(map[string]any)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wrap turns fn into a constructor of contexts, each with its own initial
// arguments.
func Wrap(fn Func, opts ...Option) func(args []any, kwargs map[string]any) *Context {
	return func(args []any, kwargs map[string]any) *Context {
		all := append([]Option{WithArgs(args...), WithKwargs(kwargs)}, opts...)
		return New(fn, all...)
	}
}

// State returns the state of the context.
func (c *Context) State() State { return c.state }

// Enter activates the context on s. If the context has a default page, it
// first replaces the top-level context of the page s belongs to. Afterwards
// every value displayed on s is appended to the context's arguments until
// Exit is called.
func (c *Context) Enter(s *Scope) {
	if c.defaultPage != nil && s.page != nil {
		s.page.Replace(c.defaultPage, false)
	}
	c.enter(s)
}

// AppendArg appends a displayed value to the context's arguments. UI nodes
// and values that can convert themselves to UI nodes are appended as nodes.
// Nil is dropped. Other values are shown as preformatted text of their
// representation.
func (c *Context) AppendArg(v any) {
	if v == nil {
		return
	}
	switch v := v.(type) {
	case htm.Node:
		c.Args = append(c.Args, v)
	case htm.Tagifier:
		c.Args = append(c.Args, v)
	case htm.Renderer:
		c.Args = append(c.Args, htm.HTML(v.RenderHTML()))
	default:
		c.Args = append(c.Args, htm.New("pre", vals.ReprPlain(v)))
	}
}

// Exit deactivates the context. The hook saved by Enter is always restored.
// If err is nil, the wrapped function is called with the collected arguments
// and its result is displayed on the scope, now routed to the restored hook.
// Exit never suppresses err; it returns err itself or the error from the
// wrapped function.
func (c *Context) Exit(err error) error {
	if c.state != Capturing {
		return err
	}
	s := c.scope
	s.hook = c.saved
	c.saved, c.scope = nil, nil
	c.state = Exited
	if err != nil {
		return err
	}
	res, err := c.fn(c.Args, c.Kwargs)
	if err != nil {
		return err
	}
	s.Display(res)
	return nil
}

// Call runs body with the context active on s, exiting the context on every
// path including panics.
func (c *Context) Call(s *Scope, body func() error) (err error) {
	c.Enter(s)
	exited := false
	defer func() {
		if !exited {
			c.Exit(errAborted)
		}
	}()
	err = body()
	exited = true
	return c.Exit(err)
}

type abortedError struct{}

func (abortedError) Error() string { return "aborted" }

var errAborted error = abortedError{}
