package lsp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"src.elv.sh/pkg/diag"
	"src.elv.sh/pkg/parse"

	"github.com/elves/elvx/pkg/elvdoc"
	"github.com/elves/elvx/pkg/express"
	modtbl "github.com/elves/elvx/pkg/mods/tbl"
	modui "github.com/elves/elvx/pkg/mods/ui"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// Module prefixes whose builtins are known to the server.
var modulePrefixes = []string{"ui:", "tbl:"}

type server struct {
	mu      sync.Mutex
	content map[lsp.DocumentURI]string

	docs  map[string]elvdoc.Entry
	names []string
}

func newServer() (*server, error) {
	entries, err := elvdoc.ExtractModules(map[string]string{
		"ui:":  modui.DElvCode,
		"tbl:": modtbl.DElvCode,
	})
	if err != nil {
		return nil, err
	}
	s := &server{content: make(map[lsp.DocumentURI]string), docs: make(map[string]elvdoc.Entry)}
	for _, e := range entries {
		s.docs[e.Name] = e
	}
	// Tag builtins share the documentation of ui:div.
	if div, ok := s.docs["ui:div"]; ok {
		for _, tag := range modui.TagNames {
			name := "ui:" + tag
			if _, ok := s.docs[name]; !ok {
				e := div
				e.Name = name
				e.Usage = strings.Replace(div.Usage, "ui:div", name, 1)
				s.docs[name] = e
			}
		}
	}
	for name := range s.docs {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s, nil
}

func handler(s *server) jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"initialize":              s.initialize,
		"textDocument/didOpen":    s.didOpen,
		"textDocument/didChange":  s.didChange,
		"textDocument/didClose":   s.didClose,
		"textDocument/hover":      s.hover,
		"textDocument/completion": s.completion,

		// Required by the protocol.
		"initialized": noop,
		"shutdown":    noop,
		"exit":        noop,
		// Called by clients even when server doesn't advertise support:
		// https://microsoft.github.io/language-server-protocol/specification#workspace_didChangeWatchedFiles
		"workspace/didChangeWatchedFiles": noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func noop(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, nil
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. These are all called synchronously.

func (s *server) initialize(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKFull,
				},
			},
			HoverProvider:      true,
			CompletionProvider: &lsp.CompletionOptions{TriggerCharacters: []string{":"}},
		},
	}, nil
}

func (s *server) didOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	uri, content := params.TextDocument.URI, params.TextDocument.Text
	s.setContent(uri, content)
	go s.publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didChange(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil || len(params.ContentChanges) == 0 {
		return nil, errInvalidParams
	}

	// ContentChanges includes full text since the server is only advertised to
	// support that; see the initialize method.
	uri, content := params.TextDocument.URI, params.ContentChanges[0].Text
	s.setContent(uri, content)
	go s.publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *server) didClose(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.content, params.TextDocument.URI)
	return nil, nil
}

func (s *server) setContent(uri lsp.DocumentURI, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[uri] = content
}

func (s *server) getContent(uri lsp.DocumentURI) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content[uri]
}

func (s *server) hover(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.TextDocumentPositionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	content := s.getContent(params.TextDocument.URI)
	from, to := nameAround(content, lspPositionToIdx(content, params.Position))
	e, ok := s.docs[content[from:to]]
	if !ok {
		return lsp.Hover{}, nil
	}
	r := lspRangeFromRange(content, diag.Ranging{From: from, To: to})
	return lsp.Hover{
		Contents: []lsp.MarkedString{lsp.RawMarkedString(e.FullContent())},
		Range:    &r,
	}, nil
}

func (s *server) completion(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.CompletionParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	content := s.getContent(params.TextDocument.URI)
	idx := lspPositionToIdx(content, params.Position)
	from, _ := nameAround(content, idx)
	seed := content[from:idx]
	lspRange := lspRangeFromRange(content, diag.Ranging{From: from, To: idx})

	items := []lsp.CompletionItem{}
	for _, name := range s.names {
		if !strings.HasPrefix(name, seed) {
			continue
		}
		e := s.docs[name]
		items = append(items, lsp.CompletionItem{
			Label:         name,
			Kind:          lsp.CIKFunction,
			Detail:        e.Usage,
			Documentation: e.Content,
			TextEdit:      &lsp.TextEdit{Range: lspRange, NewText: name},
		})
	}
	return items, nil
}

func (s *server) publishDiagnostics(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, content string) {
	conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: s.diagnostics(uri, content)})
}

func (s *server) diagnostics(uri lsp.DocumentURI, content string) []lsp.Diagnostic {
	p, err := express.Check(parse.Source{Name: string(uri), Code: content})
	if err != nil {
		entries := parse.UnpackErrors(err)
		diags := make([]lsp.Diagnostic, len(entries))
		for i, err := range entries {
			diags[i] = lsp.Diagnostic{
				Range:    lspRangeFromRange(content, err),
				Severity: lsp.Error,
				Source:   "parse",
				Message:  err.Message,
			}
		}
		return diags
	}

	diags := []lsp.Diagnostic{}
	walk(p.Tree.Root, func(n parse.Node) {
		form, ok := n.(*parse.Form)
		if !ok || form.Head == nil {
			return
		}
		name := parse.SourceText(form.Head)
		if !hasModulePrefix(name) {
			return
		}
		if _, ok := s.docs[name]; !ok {
			diags = append(diags, lsp.Diagnostic{
				Range:    lspRangeFromRange(content, form.Head),
				Severity: lsp.Warning,
				Source:   "elvx",
				Message:  "unknown builtin " + name,
			})
		}
	})
	return diags
}

func walk(n parse.Node, f func(parse.Node)) {
	f(n)
	for _, ch := range parse.Children(n) {
		walk(ch, f)
	}
}

func hasModulePrefix(name string) bool {
	for _, prefix := range modulePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Returns the range of the command name around idx.
func nameAround(s string, idx int) (from, to int) {
	from, to = idx, idx
	for from > 0 && isNameByte(s[from-1]) {
		from--
	}
	for to < len(s) && isNameByte(s[to]) {
		to++
	}
	return from, to
}

func isNameByte(b byte) bool {
	return b >= 0x80 || b == '-' || b == '_' || b == ':' || b == '.' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func lspRangeFromRange(s string, r diag.Ranger) lsp.Range {
	rg := r.Range()
	return lsp.Range{
		Start: lspPositionFromIdx(s, rg.From),
		End:   lspPositionFromIdx(s, rg.To),
	}
}

func lspPositionToIdx(s string, pos lsp.Position) int {
	var idx int
	walkString(s, func(i int, p lsp.Position) bool {
		idx = i
		return p.Line < pos.Line || (p.Line == pos.Line && p.Character < pos.Character)
	})
	return idx
}

func lspPositionFromIdx(s string, idx int) lsp.Position {
	var pos lsp.Position
	walkString(s, func(i int, p lsp.Position) bool {
		pos = p
		return i < idx
	})
	return pos
}

// Generates (index, lspPosition) pairs in s, stopping if f returns false.
func walkString(s string, f func(i int, p lsp.Position) bool) {
	var p lsp.Position
	for i, r := range s {
		if !f(i, p) {
			return
		}
		switch {
		case r == '\n', r == '\r' && !strings.HasPrefix(s[i+1:], "\n"):
			p.Line++
			p.Character = 0
		case r <= 0xFFFF:
			// Encoded in UTF-16 with one unit; this includes the \r of \r\n,
			// which ends its line at the \n.
			p.Character++
		default:
			// Encoded in UTF-16 with two units
			p.Character += 2
		}
	}
	f(len(s), p)
}
