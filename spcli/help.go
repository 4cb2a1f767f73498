package spcli

import (
	"fmt"
	"path/filepath"

	"oss.terrastruct.com/sketchpad/lib/version"
	"oss.terrastruct.com/sketchpad/lib/xmain"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `%[1]s %[2]s
Usage:
  %[1]s [--watch=false] [--grid] [--snap] script.yaml [out.png | out.svg | out.pdf | out.gif]
  %[1]s play [script.yaml]
  %[1]s version

%[1]s replays the editing session in script.yaml and exports the final canvas to
out.png | out.svg | out.pdf. A .gif output animates every undo history step instead.
It defaults to script.png if an output path is not provided.

Use - to have %[1]s read from stdin or write to stdout.

Flags:
%[3]s

Subcommands:
  %[1]s play [script.yaml] - Opens the editor in a browser, starting from script.yaml if given
  %[1]s version - Prints the version
`, filepath.Base(ms.Name), version.Version, ms.Opts.Help())
}
