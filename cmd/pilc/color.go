package main

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// colorEnabled caches whether stderr is a real terminal — grounded on
// builtinTermBufferStart's companion detectColorLevel in funxy's
// builtins_term.go, narrowed down to the on/off decision pilc's
// diagnostics need rather than funxy's full color-depth ladder.
var (
	colorOnce    sync.Once
	colorEnabled bool
)

func wantColor() bool {
	colorOnce.Do(func() {
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return
		}
		fd := os.Stderr.Fd()
		colorEnabled = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	})
	return colorEnabled
}

func colorError(msg string) string {
	if !wantColor() {
		return "pilc: " + msg
	}
	return "\x1b[31mpilc: " + msg + "\x1b[0m"
}
