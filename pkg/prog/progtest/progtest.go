// Package progtest contains utilities for testing subprograms.
package progtest

import (
	"io"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/elves/elvx/pkg/prog"
)

// Case is a test case that can be used in [Test].
type Case struct {
	args  []string
	stdin string
	want  result
}

type result struct {
	exitStatus int
	out        output
	err        output
}

type output struct {
	content  string
	contains []string
	check    bool
}

func (out output) matches(s string) bool {
	if out.check && s != out.content {
		return false
	}
	for _, c := range out.contains {
		if !strings.Contains(s, c) {
			return false
		}
	}
	return true
}

// ThatElvx returns a new Case with the specified CLI arguments.
//
// The new Case expects the program run to exit with 0, and write nothing to
// stdout or stderr.
//
// When combined with subsequent method calls, a test case reads like English.
// For example, a test for the fact that "elvx -bad-flag" exits with 2 reads
// like:
//
//	ThatElvx("-bad-flag").ExitsWith(2)
func ThatElvx(args ...string) Case {
	return Case{args: append([]string{"elvx"}, args...),
		want: result{out: output{check: true}, err: output{check: true}}}
}

// WithStdin returns an altered Case that provides the given input to stdin of
// the program.
func (c Case) WithStdin(s string) Case {
	c.stdin = s
	return c
}

// DoesNothing returns c itself. It is useful to mark tests that otherwise
// don't have any expectations, for example:
//
//	ThatElvx("-version").DoesNothing()
func (c Case) DoesNothing() Case { return c }

// ExitsWith returns an altered Case that requires the program run to return
// with the given exit status.
func (c Case) ExitsWith(code int) Case {
	c.want.exitStatus = code
	return c
}

// WritesStdout returns an altered Case that requires the program run to write
// exactly the given text to stdout.
func (c Case) WritesStdout(s string) Case {
	c.want.out = output{content: s, check: true}
	return c
}

// WritesStdoutContaining returns an altered Case that requires the program
// run to write output to stdout that contains the given text as a substring.
func (c Case) WritesStdoutContaining(s string) Case {
	c.want.out.check = false
	c.want.out.contains = append(c.want.out.contains, s)
	return c
}

// WritesStderr returns an altered Case that requires the program run to write
// exactly the given text to stderr.
func (c Case) WritesStderr(s string) Case {
	c.want.err = output{content: s, check: true}
	return c
}

// WritesStderrContaining returns an altered Case that requires the program
// run to write output to stderr that contains the given text as a substring.
func (c Case) WritesStderrContaining(s string) Case {
	c.want.err.check = false
	c.want.err.contains = append(c.want.err.contains, s)
	return c
}

// Test runs test cases against a given program.
func Test(t *testing.T, p prog.Program, cases ...Case) {
	t.Helper()
	for _, c := range cases {
		t.Run(strings.Join(c.args, " "), func(t *testing.T) {
			t.Helper()
			r := run(p, c.args, c.stdin)
			if r.exitStatus != c.want.exitStatus {
				t.Errorf("got exit status %v, want %v", r.exitStatus, c.want.exitStatus)
			}
			if !c.want.out.matches(r.out.content) {
				t.Errorf("got stdout %q, want %s", r.out.content, c.want.out.describe())
			}
			if !c.want.err.matches(r.err.content) {
				t.Errorf("got stderr %q, want %s", r.err.content, c.want.err.describe())
			}
		})
	}
}

func (out output) describe() string {
	if out.check {
		return "exactly " + strconv.Quote(out.content)
	}
	quoted := make([]string, len(out.contains))
	for i, s := range out.contains {
		quoted[i] = strconv.Quote(s)
	}
	return "containing " + strings.Join(quoted, " and ")
}

// Run runs a Program with the given arguments. It returns the Program's
// exit status and output to stdout and stderr.
func Run(p prog.Program, args ...string) (exit int, stdout, stderr string) {
	r := run(p, append([]string{"elvx"}, args...), "")
	return r.exitStatus, r.out.content, r.err.content
}

func run(p prog.Program, args []string, stdin string) result {
	r0, w0 := mustPipe()
	r1, w1 := mustPipe()
	r2, w2 := mustPipe()

	go func() {
		io.WriteString(w0, stdin)
		w0.Close()
	}()
	outCh := readAllAsync(r1)
	errCh := readAllAsync(r2)

	exit := prog.Run([3]*os.File{r0, w1, w2}, args, p)
	w1.Close()
	w2.Close()
	r0.Close()
	return result{exitStatus: exit,
		out: output{content: <-outCh}, err: output{content: <-errCh}}
}

func readAllAsync(r *os.File) <-chan string {
	ch := make(chan string, 1)
	go func() {
		b, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			panic(err)
		}
		ch <- string(b)
	}()
	return ch
}

func mustPipe() (*os.File, *os.File) {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	return r, w
}
