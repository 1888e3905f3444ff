// Command pilc is the compiler's CLI surface (spec §6.4): out of the
// core per §1 ("CLI/build tooling remain external collaborators"),
// specified here as a thin driver over internal/libdb (the
// `pilc config` subcommand).
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "config":
		err = runConfig(os.Args[2:])
	case "help", "--help", "-h":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "pilc: unknown command %q; use --help to see list.\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, colorError(err.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: pilc <command> [options]

Commands:
    config    Print include/library paths and compiler/linker flags
              for the installed pilc runtime (see 'pilc config --help').
`)
}
