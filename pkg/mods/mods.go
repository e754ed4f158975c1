// Package mods collects the modules available to express apps.
//
// The ui: and tbl: modules are always in scope. The Elvish standard library
// modules added by AddTo can be imported with use.
package mods

import (
	"src.elv.sh/pkg/eval"
	"src.elv.sh/pkg/mods/math"
	"src.elv.sh/pkg/mods/path"
	"src.elv.sh/pkg/mods/platform"
	"src.elv.sh/pkg/mods/re"
	"src.elv.sh/pkg/mods/str"
)

// StandardModules lists the names of the modules added by AddTo.
var StandardModules = []string{"math", "path", "platform", "re", "str"}

// AddTo adds the standard library modules that make sense in express apps to
// the Evaler. Modules that touch the terminal or the file system are left out.
func AddTo(ev *eval.Evaler) {
	ev.AddModule("math", math.Ns)
	ev.AddModule("path", path.Ns)
	ev.AddModule("platform", platform.Ns)
	ev.AddModule("re", re.Ns)
	ev.AddModule("str", str.Ns)
}
