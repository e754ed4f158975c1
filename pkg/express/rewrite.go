package express

import (
	"sort"
	"strings"

	"src.elv.sh/pkg/diag"
	"src.elv.sh/pkg/parse"
)

// DisplayFn is the name of the function that the bodies of function
// definitions are wrapped in. It runs its body and outputs the non-nil values
// the body outputs, so that they are displayed wherever the function is
// called.
const DisplayFn = "-express-display"

// Script is a rewritten script, split into top-level statements.
type Script struct {
	// Name of the script.
	Name string
	// Code is the whole rewritten script.
	Code       string
	Statements []Statement
	// Tree is the parse tree of the original script.
	Tree parse.Tree
}

// Statement is a top-level pipeline of a rewritten script.
type Statement struct {
	// Code is the rewritten script with everything outside the statement
	// replaced by spaces, keeping newlines. Evaluating it evaluates just the
	// statement, and positions in error messages are still line-accurate.
	Code string
	// Def is true if the statement is a function definition.
	Def bool
	// Range is the range of the statement in the original script.
	Range diag.Ranging
}

type insertion struct {
	pos  int
	text string
}

// Rewrite rewrites the bodies of all function definitions in tree, at any
// depth, so that they run inside DisplayFn, and splits the result into
// top-level statements.
func Rewrite(tree parse.Tree) *Script {
	src := tree.Source.Code
	var ins []insertion
	walk(tree.Root, func(n parse.Node) {
		form, ok := n.(*parse.Form)
		if !ok {
			return
		}
		if body := fnBody(form); body != nil {
			r := body.Range()
			// The body range starts after the whitespace following "{", and
			// "{" only opens a lambda when whitespace follows it.
			ins = append(ins,
				insertion{r.From, DisplayFn + " { "},
				insertion{r.To, closer(src[r.From:r.To])})
		}
	})
	// Openers of empty bodies must stay before their closers.
	sort.SliceStable(ins, func(i, j int) bool { return ins[i].pos < ins[j].pos })

	p := &Script{Name: tree.Source.Name, Code: apply(src, ins, 0, len(src)), Tree: tree}
	for _, pn := range tree.Root.Pipelines {
		r := pn.Range()
		p.Statements = append(p.Statements, Statement{
			Code:  apply(src, ins, r.From, r.To),
			Def:   isDef(pn),
			Range: r,
		})
	}
	return p
}

func walk(n parse.Node, f func(parse.Node)) {
	f(n)
	for _, ch := range parse.Children(n) {
		walk(ch, f)
	}
}

// Returns the body of a form like "fn name { body }", or nil if the form is
// not a function definition.
func fnBody(form *parse.Form) *parse.Chunk {
	if form.Head == nil || parse.SourceText(form.Head) != "fn" || len(form.Args) < 2 {
		return nil
	}
	lambda := form.Args[1]
	if len(lambda.Indexings) != 1 || len(lambda.Indexings[0].Indices) != 0 {
		return nil
	}
	if pn := lambda.Indexings[0].Head; pn != nil && pn.Type == parse.Lambda {
		return pn.Chunk
	}
	return nil
}

func isDef(pn *parse.Pipeline) bool {
	return len(pn.Forms) == 1 && fnBody(pn.Forms[0]) != nil
}

// Returns the text that closes a wrapped body. A body whose last line has a
// comment needs the closing brace on a new line.
func closer(body string) string {
	lastLine := body[strings.LastIndexByte(body, '\n')+1:]
	if strings.ContainsRune(lastLine, '#') {
		return "\n}"
	}
	return "}"
}

// Applies insertions to src, blanking everything outside [from, to) except
// newlines. Insertions at to are applied.
func apply(src string, ins []insertion, from, to int) string {
	var sb strings.Builder
	k := 0
	for i := 0; i <= len(src); i++ {
		for ; k < len(ins) && ins[k].pos == i; k++ {
			if from <= i && i <= to {
				sb.WriteString(ins[k].text)
			}
		}
		if i == len(src) {
			break
		}
		switch {
		case from <= i && i < to, src[i] == '\n':
			sb.WriteByte(src[i])
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
