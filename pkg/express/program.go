package express

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"src.elv.sh/pkg/parse"

	"github.com/elves/elvx/pkg/env"
	"github.com/elves/elvx/pkg/htm"
	"github.com/elves/elvx/pkg/prog"
	"github.com/elves/elvx/pkg/session"
	"github.com/elves/elvx/pkg/store"
)

// Program is the subprogram that renders or checks an express app. It should
// be the last of the subprograms, since it reports a usage error when no other
// subprogram was chosen.
type Program struct {
	render, check bool
	json          *bool
	db            *string
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.render, "render", false, "Run an express app and write its page to stdout")
	fs.BoolVar(&p.check, "check", false, "Parse an express app and report errors without running it")
	p.json = fs.JSON()
	p.db = fs.DB()
}

func (p *Program) Run(fds [3]*os.File, args []string) error {
	if !p.render && !p.check {
		return prog.BadUsage("one of -web, -render, -check or -lsp must be given")
	}
	if len(args) > 1 {
		return prog.BadUsage("at most one script may be given")
	}
	file := ""
	if len(args) == 1 {
		file = args[0]
	}
	if p.check {
		return p.runCheck(fds, file)
	}

	r := &Runner{Stderr: fds[2]}
	db := *p.db
	if db == "" {
		db = os.Getenv(env.ELVX_DB)
	}
	if db != "" {
		st, err := store.Open(db)
		if err != nil {
			return err
		}
		defer st.Close()
		r.Patches = st
	}
	app, err := WrapApp(file, r)
	if err != nil {
		return err
	}
	fmt.Fprintln(fds[1], htm.RenderDocument(app.UI))
	return nil
}

type checkResult struct {
	ParseErrors []parseError `json:"parseErrors"`
	Statements  int          `json:"statements"`
}

type parseError struct {
	Message string `json:"message"`
	From    int    `json:"from"`
	To      int    `json:"to"`
}

func (p *Program) runCheck(fds [3]*os.File, file string) error {
	if file == "" {
		return prog.BadUsage("-check needs a script")
	}
	code, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	program, err := Check(parse.Source{Name: file, Code: string(code), IsFile: true})
	if *p.json {
		res := checkResult{ParseErrors: []parseError{}}
		if program != nil {
			res.Statements = len(program.Statements)
		}
		for _, e := range parse.UnpackErrors(err) {
			r := e.Range()
			res.ParseErrors = append(res.ParseErrors, parseError{e.Message, r.From, r.To})
		}
		data, jsonErr := json.Marshal(res)
		if jsonErr != nil {
			return jsonErr
		}
		fmt.Fprintln(fds[1], string(data))
		if err != nil {
			return prog.Exit(2)
		}
		return nil
	}
	return err
}

// RenderSession runs the script for a fresh session and returns the session
// along with the page.
func RenderSession(ctx context.Context, r *Runner, file string) (*session.Session, htm.Node, error) {
	sess := session.New()
	ui, err := r.Run(session.NewContext(ctx, sess), file)
	return sess, ui, err
}
