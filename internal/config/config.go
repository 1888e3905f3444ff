// Package config loads the compiler's options record (internal/options)
// from a project file, the way funxy's internal/ext package decodes
// funxy.yaml: a thin yaml.v3 struct mirroring the in-memory record,
// translated into the real type after load so the rest of the
// compiler never has to think about yaml tags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pilc-lang/pilc/internal/options"
)

// FileName is the conventional project configuration file name.
const FileName = "pilc.yaml"

// fileFormat is the on-disk shape of FileName.
type fileFormat struct {
	Debug       string   `yaml:"debug,omitempty"` // "off" | "on" | "verbose"
	Optimize    bool     `yaml:"optimize,omitempty"`
	Profile     bool     `yaml:"profile,omitempty"`
	CgDebug     []string `yaml:"cg_debug,omitempty"`
	JIT         bool     `yaml:"jit,omitempty"`
	LibraryDirs []string `yaml:"library_dirs,omitempty"`
}

// Load reads and decodes a pilc.yaml file into an options.Options.
func Load(path string) (*options.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	opts := options.Default()
	switch ff.Debug {
	case "", "off":
		opts.Debug = options.DebugOff
	case "on":
		opts.Debug = options.DebugOn
	case "verbose":
		opts.Debug = options.DebugVerbose
	default:
		return nil, fmt.Errorf("%s: invalid debug level %q", path, ff.Debug)
	}
	opts.Optimize = ff.Optimize
	opts.Profile = ff.Profile
	opts.JIT = ff.JIT
	opts.LibraryDirs = ff.LibraryDirs
	for _, s := range ff.CgDebug {
		opts.CgDebug[s] = true
	}
	return opts, nil
}

// Save serializes an options.Options back out to a pilc.yaml-shaped
// file.
func Save(path string, opts *options.Options) error {
	ff := fileFormat{
		Optimize:    opts.Optimize,
		Profile:     opts.Profile,
		JIT:         opts.JIT,
		LibraryDirs: opts.LibraryDirs,
	}
	switch opts.Debug {
	case options.DebugOff:
		ff.Debug = "off"
	case options.DebugOn:
		ff.Debug = "on"
	case options.DebugVerbose:
		ff.Debug = "verbose"
	}
	for s := range opts.CgDebug {
		ff.CgDebug = append(ff.CgDebug, s)
	}

	data, err := yaml.Marshal(ff)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
