// Elvx runs express apps: Elvish scripts whose output becomes a web page.
//
// Run "elvx -web app.elv" to serve an app, "elvx -render app.elv" to write its
// page to stdout, and "elvx -check app.elv" to report parse errors. "elvx
// -lsp" starts a language server for editing apps.
package main

import (
	"os"

	"github.com/elves/elvx/pkg/buildinfo"
	"github.com/elves/elvx/pkg/express"
	"github.com/elves/elvx/pkg/lsp"
	"github.com/elves/elvx/pkg/prog"
	"github.com/elves/elvx/pkg/web"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			&buildinfo.Program{}, &lsp.Program{}, &web.Program{},
			&express.Program{})))
}
