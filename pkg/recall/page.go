package recall

// Scope is a place where values are displayed. Displayed values are routed to
// the hook installed on the scope, which is the AppendArg method of the
// innermost active context.
type Scope struct {
	page *Page
	hook Hook
}

// Display routes v to the hook currently installed on the scope. It does
// nothing if no hook is installed.
func (s *Scope) Display(v any) {
	if s.hook != nil {
		s.hook(v)
	}
}

// Child returns a new scope on the same page with h as its initial hook.
func (s *Scope) Child(h Hook) *Scope {
	return &Scope{page: s.page, hook: h}
}

// Page returns the page the scope belongs to.
func (s *Scope) Page() *Page { return s.page }

// Page keeps the state of one execution: the top-level context, whether it has
// been replaced, and the result produced when the top-level context exits.
type Page struct {
	top      *Context
	replaced bool
	scope    *Scope
	result   any
	done     bool
}

// NewPage creates a page whose top-level context wraps fn.
func NewPage(fn Func, opts ...Option) *Page {
	p := &Page{top: New(fn, opts...)}
	p.scope = &Scope{page: p, hook: p.setResult}
	return p
}

func (p *Page) setResult(v any) {
	p.result = v
	p.done = true
}

// Scope returns the top-level scope of the page.
func (p *Page) Scope() *Scope { return p.scope }

// Top returns the current top-level context.
func (p *Page) Top() *Context { return p.top }

// Replaced reports whether the top-level context has been replaced.
func (p *Page) Replaced() bool { return p.replaced }

// Start enters the top-level context.
func (p *Page) Start() {
	if p.top.state == Idle {
		p.top.enter(p.scope)
	}
}

// Finish exits the top-level context with err and returns the value produced
// by the page function. When err is not nil, the page function is not called
// and err is returned unchanged.
func (p *Page) Finish(err error) (any, error) {
	if err := p.top.Exit(err); err != nil {
		return nil, err
	}
	return p.result, nil
}

// Result returns the value produced by the page function, and whether it has
// been produced yet.
func (p *Page) Result() (any, bool) { return p.result, p.done }

// Replace makes rc the top-level context of the page and returns the previous
// one. The arguments collected by the previous context become a prefix of
// rc's arguments, and its keyword arguments serve as defaults for rc's. The
// previous context exits without calling its function.
//
// Only the first replacement takes effect unless force is true; later calls
// return the current top-level context and change nothing.
func (p *Page) Replace(rc *Context, force bool) *Context {
	if p.replaced && !force {
		return p.top
	}
	old := p.top
	rc.Args = append(append([]any(nil), old.Args...), rc.Args...)
	kwargs := make(map[string]any, len(old.Kwargs)+len(rc.Kwargs))
	for k, v := range old.Kwargs {
		kwargs[k] = v
	}
	for k, v := range rc.Kwargs {
		kwargs[k] = v
	}
	rc.Kwargs = kwargs

	wasActive := old.state == Capturing
	old.Exit(errAborted)
	if wasActive {
		rc.enter(p.scope)
	}
	p.top = rc
	p.replaced = true
	return old
}

// SetOpts sets keyword arguments of the current top-level context.
func (p *Page) SetOpts(kwargs map[string]any) {
	for k, v := range kwargs {
		p.top.Kwargs[k] = v
	}
}

func (c *Context) enter(s *Scope) {
	c.scope = s
	c.saved = s.hook
	s.hook = c.AppendArg
	c.state = Capturing
}
