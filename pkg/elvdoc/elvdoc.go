// Package elvdoc extracts the doc comments of functions from the .d.elv files
// of modules.
package elvdoc

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"src.elv.sh/pkg/parse"
)

// Entry is the documentation of one function.
type Entry struct {
	// Name is qualified with the module prefix, like "ui:card".
	Name string
	// Content is the doc comment, in Markdown.
	Content string
	// 1-based line number of the first line of Content, or 0 if Content is
	// empty.
	LineNo int
	// The signature without surrounding pipes, like "a @b".
	Signature string
	// Usage converted from the signature, like "ui:card $args... $body".
	Usage string
}

// FullContent returns the content prepended with the usage.
func (e Entry) FullContent() string {
	return fmt.Sprintf("```elvish\n%s\n```\n\n%s", e.Usage, e.Content)
}

const (
	singleQuoted = `'(?:[^']|'')*'`
	doubleQuoted = `"(?:[^\\"]|\\.)*"`
	// Bareword, single-quoted and double-quoted. The bareword pattern covers
	// more than what Elvish allows; it is only matched where a string literal
	// is expected.
	stringLiteralGroup = `([^ '"]+|` + singleQuoted + `|` + doubleQuoted + `)`
	// Runs of non-pipe non-quote runes, or quoted strings.
	signatureGroup = `((?:[^|'"]|` + singleQuoted + `|` + doubleQuoted + `)*)`
)

// Groups: 1. name; 2. signature.
var fnRegexp = regexp.MustCompile(`^fn +` + stringLiteralGroup + ` +\{(?: *\|` + signatureGroup + `\|)?`)

// Extract extracts the doc comments of the functions defined in r. Names are
// prefixed with prefix.
//
// A doc comment is a block of consecutive lines that are "#" or start with
// "# ", directly followed by a fn line.
func Extract(r io.Reader, prefix string) ([]Entry, error) {
	var entries []Entry
	var lines []string
	startLineNo := 0
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNo++
		switch {
		case line == "#" || strings.HasPrefix(line, "# "):
			if len(lines) == 0 {
				startLineNo = lineNo
			}
			lines = append(lines, strings.TrimPrefix(line[1:], " "))
		default:
			if m := fnRegexp.FindStringSubmatch(line); m != nil {
				name, sig := unquote(m[1]), m[2]
				e := Entry{Name: prefix + name, Signature: sig, Usage: fnUsage(prefix+name, sig)}
				if len(lines) > 0 {
					e.Content = strings.Join(lines, "\n") + "\n"
					e.LineNo = startLineNo
				}
				entries = append(entries, e)
			}
			lines = nil
		}
	}
	return entries, scanner.Err()
}

// ExtractModules extracts the doc comments of several modules, given as a map
// from module prefixes like "ui:" to .d.elv sources. The result is sorted by
// name.
func ExtractModules(sources map[string]string) ([]Entry, error) {
	var all []Entry
	for prefix, code := range sources {
		entries, err := Extract(strings.NewReader(code), prefix)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", prefix, err)
		}
		all = append(all, entries...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func unquote(s string) string {
	pn := &parse.Primary{}
	if parse.ParseAs(parse.Source{Code: s}, pn, parse.Config{}) != nil {
		return s
	}
	return pn.Value
}

func fnUsage(name, sig string) string {
	var sb strings.Builder
	sb.WriteString(parse.QuoteCommandName(name))
	for _, field := range sigFields(sig) {
		sb.WriteByte(' ')
		if strings.HasPrefix(field, "&") {
			sb.WriteString(field)
		} else if strings.HasPrefix(field, "@") {
			sb.WriteString("$" + field[1:] + "...")
		} else {
			sb.WriteString("$" + field)
		}
	}
	return sb.String()
}

func sigFields(sig string) []string {
	pn := &parse.Primary{}
	if parse.ParseAs(parse.Source{Code: "{|" + sig + "|}"}, pn, parse.Config{}) != nil {
		return strings.Fields(sig)
	}
	var fields []string
	for _, n := range parse.Children(pn) {
		if _, isSep := n.(*parse.Sep); isSep {
			continue
		}
		s := strings.TrimSpace(parse.SourceText(n))
		if s != "" {
			fields = append(fields, s)
		}
	}
	return fields
}
