package lsp

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

const testURI = lsp.DocumentURI("file:///app.elv")

func mustNewServer(t *testing.T) *server {
	t.Helper()
	s, err := newServer()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func rng(l1, c1, l2, c2 int) lsp.Range {
	return lsp.Range{
		Start: lsp.Position{Line: l1, Character: c1},
		End:   lsp.Position{Line: l2, Character: c2},
	}
}

func callRaw(t *testing.T, m method, params any) any {
	t.Helper()
	data, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	res, err := m(context.Background(), nil, data)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestDiagnostics(t *testing.T) {
	s := mustNewServer(t)

	diags := s.diagnostics(testURI, "put (")
	if len(diags) == 0 {
		t.Fatalf("got no diagnostics for parse error")
	}
	if diags[0].Source != "parse" || diags[0].Severity != lsp.Error {
		t.Errorf("got %+v, want parse error", diags[0])
	}

	diags = s.diagnostics(testURI, "ui:p x\nui:bogus { tbl:nope }")
	want := []lsp.Diagnostic{
		{Range: rng(1, 0, 1, 8), Severity: lsp.Warning, Source: "elvx",
			Message: "unknown builtin ui:bogus"},
		{Range: rng(1, 11, 1, 19), Severity: lsp.Warning, Source: "elvx",
			Message: "unknown builtin tbl:nope"},
	}
	if diff := cmp.Diff(want, diags); diff != "" {
		t.Errorf("diagnostics (-want +got):\n%s", diff)
	}

	if diags := s.diagnostics(testURI, "ui:h1 x\ntbl:shape $f\nput ui:bogus"); len(diags) != 0 {
		t.Errorf("got %v, want no diagnostics", diags)
	}
}

func TestHover(t *testing.T) {
	s := mustNewServer(t)
	s.setContent(testURI, "put x\nui:card { ui:h1 hi }")

	hover := func(line, char int) lsp.Hover {
		return callRaw(t, s.hover, lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
			Position:     lsp.Position{Line: line, Character: char},
		}).(lsp.Hover)
	}

	h := hover(1, 3)
	if len(h.Contents) != 1 || h.Contents[0].Value != s.docs["ui:card"].FullContent() {
		t.Errorf("got %v, want documentation of ui:card", h.Contents)
	}
	if h.Range == nil || *h.Range != rng(1, 0, 1, 7) {
		t.Errorf("got range %v, want the range of ui:card", h.Range)
	}

	h = hover(1, 12)
	if len(h.Contents) != 1 || h.Contents[0].Value != s.docs["ui:h1"].FullContent() {
		t.Errorf("got %v, want documentation of ui:h1", h)
	}

	if h := hover(0, 1); len(h.Contents) != 0 {
		t.Errorf("got %v for put, want empty hover", h)
	}
}

func TestAliasDocumentation(t *testing.T) {
	s := mustNewServer(t)
	e, ok := s.docs["ui:h1"]
	if !ok {
		t.Fatal("no documentation for ui:h1")
	}
	if e.Usage != "ui:h1 $children..." {
		t.Errorf("got usage %q", e.Usage)
	}
	if e.Content != s.docs["ui:div"].Content {
		t.Errorf("ui:h1 does not share the documentation of ui:div")
	}
}

func TestCompletion(t *testing.T) {
	s := mustNewServer(t)
	s.setContent(testURI, "put x\nui:ca")

	items := callRaw(t, s.completion, lsp.CompletionParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
			Position:     lsp.Position{Line: 1, Character: 5},
		},
	}).([]lsp.CompletionItem)

	card := s.docs["ui:card"]
	want := []lsp.CompletionItem{{
		Label:         "ui:card",
		Kind:          lsp.CIKFunction,
		Detail:        card.Usage,
		Documentation: card.Content,
		TextEdit:      &lsp.TextEdit{Range: rng(1, 0, 1, 5), NewText: "ui:card"},
	}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("completion (-want +got):\n%s", diff)
	}
}

func TestCompletion_AllNames(t *testing.T) {
	s := mustNewServer(t)
	s.setContent(testURI, "tbl:")
	items := callRaw(t, s.completion, lsp.CompletionParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
			Position:     lsp.Position{Line: 0, Character: 4},
		},
	}).([]lsp.CompletionItem)
	var labels []string
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	want := []string{
		"tbl:cell", "tbl:column-names", "tbl:columns", "tbl:copy",
		"tbl:data-frame", "tbl:dtypes", "tbl:patch", "tbl:query",
		"tbl:shape", "tbl:subset", "tbl:table", "tbl:to-json",
	}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
}

func TestInvalidParams(t *testing.T) {
	s := mustNewServer(t)
	for name, m := range map[string]method{
		"hover": s.hover, "completion": s.completion,
		"didOpen": s.didOpen, "didChange": s.didChange, "didClose": s.didClose,
	} {
		if _, err := m(context.Background(), nil, json.RawMessage("[")); err != errInvalidParams {
			t.Errorf("%s: got %v, want errInvalidParams", name, err)
		}
	}
}

var positionTests = []struct {
	s   string
	idx int
	pos lsp.Position
}{
	{"foo", 0, lsp.Position{Line: 0, Character: 0}},
	{"foo", 3, lsp.Position{Line: 0, Character: 3}},
	{"a\nb", 2, lsp.Position{Line: 1, Character: 0}},
	{"a\r\nb", 3, lsp.Position{Line: 1, Character: 0}},
	{"a\r\nb", 2, lsp.Position{Line: 0, Character: 2}},
	{"a\r\n\r\nb", 5, lsp.Position{Line: 2, Character: 0}},
	{"a\rb", 2, lsp.Position{Line: 1, Character: 0}},
	// U+1F600 takes two UTF-16 units.
	{"\U0001F600x", 4, lsp.Position{Line: 0, Character: 2}},
	{"你x", 3, lsp.Position{Line: 0, Character: 1}},
}

func TestPositions(t *testing.T) {
	for _, test := range positionTests {
		if got := lspPositionFromIdx(test.s, test.idx); got != test.pos {
			t.Errorf("lspPositionFromIdx(%q, %d) -> %v, want %v", test.s, test.idx, got, test.pos)
		}
		if got := lspPositionToIdx(test.s, test.pos); got != test.idx {
			t.Errorf("lspPositionToIdx(%q, %v) -> %d, want %d", test.s, test.pos, got, test.idx)
		}
	}
}

func TestNameAround(t *testing.T) {
	s := "put (ui:card {ui:p x})"
	for _, test := range []struct {
		idx      int
		from, to int
	}{
		{0, 0, 3},
		{6, 5, 12},
		{12, 5, 12},
		{16, 14, 18},
		{13, 13, 13},
	} {
		from, to := nameAround(s, test.idx)
		if from != test.from || to != test.to {
			t.Errorf("nameAround(%q, %d) -> %d, %d, want %d, %d",
				s, test.idx, from, to, test.from, test.to)
		}
	}
}

func TestConnection(t *testing.T) {
	s := mustNewServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverSide, clientSide := net.Pipe()
	jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(serverSide, jsonrpc2.VSCodeObjectCodec{}), handler(s))

	diagsCh := make(chan lsp.PublishDiagnosticsParams, 1)
	client := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
			if req.Method == "textDocument/publishDiagnostics" && req.Params != nil {
				var params lsp.PublishDiagnosticsParams
				if err := json.Unmarshal(*req.Params, &params); err == nil {
					diagsCh <- params
				}
			}
			return nil, nil
		}))
	defer client.Close()

	var init lsp.InitializeResult
	if err := client.Call(ctx, "initialize", lsp.InitializeParams{}, &init); err != nil {
		t.Fatal(err)
	}
	if !init.Capabilities.HoverProvider || init.Capabilities.CompletionProvider == nil {
		t.Errorf("got capabilities %+v", init.Capabilities)
	}

	err := client.Call(ctx, "no-such-method", nil, nil)
	if rpcErr, ok := err.(*jsonrpc2.Error); !ok || rpcErr.Code != jsonrpc2.CodeMethodNotFound {
		t.Errorf("got %v, want method not found", err)
	}

	err = client.Notify(ctx, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: testURI, Text: "ui:nope"}})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case params := <-diagsCh:
		if params.URI != testURI || len(params.Diagnostics) != 1 ||
			params.Diagnostics[0].Message != "unknown builtin ui:nope" {
			t.Errorf("got diagnostics %+v", params)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for diagnostics")
	}
}
