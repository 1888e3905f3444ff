package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pilc-lang/pilc/internal/libdb"
)

const pilcVersion = "0.1.0"

func configUsage() {
	fmt.Fprint(os.Stderr, `Usage: pilc config [options]

General options:
    --version       Print the pilc version.
    --help          Print this usage summary.
    --init          (Re)create and seed the backing database.
    --db PATH       Use PATH instead of the default database location.

Options controlling what to include in output:
    --compiler      Output flags for the compiler frontend.
    --runtime       Output flags for the runtime support library.
    --debug         Output flags for the debug build flavor.

Compiler and linker flags:
    --cflags        Print flags for the C compiler (--runtime only).
    --cxxflags      Print flags for the C++ compiler.
    --ldflags       Print flags for the linker.
    --libs          Print libraries for the linker.

Example: pilc config --compiler --cxxflags --debug
`)
}

func defaultDBPath() string {
	if p := os.Getenv("PILC_DB"); p != "" {
		return p
	}
	return "pilc.sqlite"
}

// runConfig implements `pilc config`, the hilti-config-style
// compiler/runtime flag reporter (spec §6.4), backed by internal/libdb
// instead of hilti-config's baked-in autogen config structs, following
// original_source/tools/hilti-config.cc's two-pass argument handling:
// a first pass collects the --compiler/--runtime/--debug control
// flags, a second pass prints the requested flag lists and other
// queries in argument order.
func runConfig(args []string) error {
	wantCompiler := false
	wantRuntime := false
	wantDebug := false
	dbPath := defaultDBPath()
	doInit := false

	var queries []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			configUsage()
			return nil
		case "--compiler":
			wantCompiler = true
		case "--runtime":
			wantRuntime = true
		case "--debug":
			wantDebug = true
		case "--init":
			doInit = true
		case "--db":
			i++
			if i >= len(args) {
				return fmt.Errorf("--db requires a path argument")
			}
			dbPath = args[i]
		default:
			queries = append(queries, args[i])
		}
	}

	db, err := libdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if doInit {
		if err := libdb.Seed(db, pilcVersion); err != nil {
			return err
		}
	}

	needComponent := false
	var out strings.Builder

	for _, q := range queries {
		switch q {
		case "--version":
			fmt.Fprintf(&out, "pilc %s\n", pilcVersion)
		case "--cflags":
			needComponent = true
			if err := printFlags(&out, db, wantCompiler, wantRuntime, wantDebug, flagCFlags); err != nil {
				return err
			}
		case "--cxxflags":
			needComponent = true
			if err := printFlags(&out, db, wantCompiler, wantRuntime, wantDebug, flagCXXFlags); err != nil {
				return err
			}
		case "--ldflags":
			needComponent = true
			if err := printFlags(&out, db, wantCompiler, wantRuntime, wantDebug, flagLDFlags); err != nil {
				return err
			}
		case "--libs":
			needComponent = true
			if err := printFlags(&out, db, wantCompiler, wantRuntime, wantDebug, flagLibs); err != nil {
				return err
			}
		default:
			return fmt.Errorf("config: unknown option %q; use --help to see list", q)
		}
	}

	if needComponent && !wantCompiler && !wantRuntime {
		return fmt.Errorf("config: either --compiler or --runtime (or both) must be given when printing flags")
	}

	fmt.Print(out.String())
	return nil
}

type flagKind int

const (
	flagCFlags flagKind = iota
	flagCXXFlags
	flagLDFlags
	flagLibs
)

func printFlags(out *strings.Builder, db *libdb.DB, compiler, runtime, debug bool, kind flagKind) error {
	var all []string
	if compiler {
		rows, err := db.All(libdb.ComponentCompiler, debug)
		if err != nil {
			return err
		}
		all = append(all, flagsFor(rows, kind)...)
	}
	if runtime {
		rows, err := db.All(libdb.ComponentRuntime, debug)
		if err != nil {
			return err
		}
		all = append(all, flagsFor(rows, kind)...)
	}
	fmt.Fprintln(out, strings.Join(all, " "))
	return nil
}

func flagsFor(rows []libdb.Library, kind flagKind) []string {
	var out []string
	for _, r := range rows {
		switch kind {
		case flagCFlags:
			out = append(out, r.CFlags...)
		case flagCXXFlags:
			out = append(out, r.CXXFlags...)
		case flagLDFlags:
			out = append(out, r.LDFlags...)
		case flagLibs:
			out = append(out, r.Libs...)
		}
	}
	return out
}
