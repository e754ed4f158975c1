package express

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.elv.sh/pkg/parse"
)

func mustRewrite(t *testing.T, code string) *Script {
	t.Helper()
	tree, err := parse.Parse(parse.Source{Name: "[test]", Code: code}, parse.Config{})
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return Rewrite(tree)
}

var rewriteTests = []struct {
	name string
	code string
	want string
	// Number of wrapped bodies, checked when want is empty.
	wrapped int
}{
	{
		name: "no function definitions",
		code: "put a; put b",
		want: "put a; put b",
	},
	{
		name: "function definition",
		code: "fn f { put x }",
		want: "fn f { -express-display { put x }}",
	},
	{
		name:    "empty body",
		code:    "fn f { }",
		wrapped: 1,
	},
	{
		name: "nested definitions",
		code: "fn f { fn g { put x }; g }",
		want: "fn f { -express-display { fn g { -express-display { put x }}; g }}",
	},
	{
		name: "definition inside a block",
		code: "if $true { fn f { put x } }",
		want: "if $true { fn f { -express-display { put x }} }",
	},
	{
		name: "body whose last line has a hash",
		code: "fn f { put '#' }",
		want: "fn f { -express-display { put '#' \n}}",
	},
	{
		name:    "lambda arguments",
		code:    "fn f {|a| put $a }",
		wrapped: 1,
	},
	{
		name:    "multi-line bodies",
		code:    "fn f {\n  fn g { put inner }\n  g\n  put outer\n}",
		wrapped: 2,
	},
	{
		name:    "body ending with a comment",
		code:    "fn f {\n  put x # comment\n}",
		wrapped: 1,
	},
	{
		name: "fn as an argument is left alone",
		code: "echo fn { x }",
		want: "echo fn { x }",
	},
}

func TestRewrite(t *testing.T) {
	for _, test := range rewriteTests {
		t.Run(test.name, func(t *testing.T) {
			got := mustRewrite(t, test.code).Code
			if test.want != "" && got != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
			if test.wrapped > 0 {
				if n := strings.Count(got, DisplayFn+" { "); n != test.wrapped {
					t.Errorf("got %d wrapped bodies in %q, want %d", n, got, test.wrapped)
				}
			}
			_, err := parse.Parse(parse.Source{Name: "[rewritten]", Code: got}, parse.Config{})
			if err != nil {
				t.Errorf("rewritten code %q does not parse: %v", got, err)
			}
		})
	}
}

// Every wrapped body must be a lambda passed as the sole argument of
// DisplayFn, not a braced list.
func TestRewrite_WrappedBodyIsLambda(t *testing.T) {
	code := mustRewrite(t, "fn f { put hello; put $nil }").Code
	tree, err := parse.Parse(parse.Source{Name: "[rewritten]", Code: code}, parse.Config{})
	if err != nil {
		t.Fatal(err)
	}
	var calls int
	walk(tree.Root, func(n parse.Node) {
		form, ok := n.(*parse.Form)
		if !ok || form.Head == nil || parse.SourceText(form.Head) != DisplayFn {
			return
		}
		calls++
		if len(form.Args) != 1 {
			t.Errorf("%s called with %d arguments, want 1", DisplayFn, len(form.Args))
			return
		}
		pn := form.Args[0].Indexings[0].Head
		if pn.Type != parse.Lambda {
			t.Errorf("argument of %s is %v, want lambda", DisplayFn, pn.Type)
		}
	})
	if calls != 1 {
		t.Errorf("got %d calls to %s, want 1", calls, DisplayFn)
	}
}

func TestRewrite_Statements(t *testing.T) {
	p := mustRewrite(t, "put a\nfn f { put b }\nf")

	var codes []string
	var defs []bool
	for _, st := range p.Statements {
		codes = append(codes, st.Code)
		defs = append(defs, st.Def)
	}
	wantCodes := []string{
		"put a\n" + "              \n" + " ",
		"     \n" + "fn f { -express-display { put b }}\n" + " ",
		"     \n" + "              \n" + "f",
	}
	if diff := cmp.Diff(wantCodes, codes); diff != "" {
		t.Errorf("statement codes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, true, false}, defs); diff != "" {
		t.Errorf("statement defs (-want +got):\n%s", diff)
	}
	if r := p.Statements[2].Range; r.From != 21 || r.To != 22 {
		t.Errorf("range of last statement is %v", r)
	}
}

func TestCheck(t *testing.T) {
	p, err := Check(parse.Source{Name: "[test]", Code: "put a\nput b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Statements) != 2 {
		t.Errorf("got %d statements, want 2", len(p.Statements))
	}
	_, err = Check(parse.Source{Name: "[test]", Code: "put ["})
	if len(parse.UnpackErrors(err)) == 0 {
		t.Errorf("got %v, want parse error", err)
	}
}
