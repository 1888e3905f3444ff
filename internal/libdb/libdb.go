// Package libdb is the backing store for `pilc config`, a
// hilti-config-style CLI reporting include/library paths and
// compiler/linker flags for the installed runtime libraries (spec
// §6.4), grounded on original_source/tools/hilti-config.cc's
// component/kind-scoped flag lists (cflags/cxxflags/ldflags/libs per
// compiler-vs-runtime, per HILTI-vs-BinPAC++ component). Where
// hilti-config reads baked-in autogen config structs, libdb reads the
// same rows out of a small sqlite database instead, via the pure-Go
// modernc.org/sqlite driver (no cgo).
package libdb

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Component names a flag set the way hilti-config scopes --compiler
// vs --runtime output.
type Component string

const (
	ComponentCompiler Component = "compiler"
	ComponentRuntime  Component = "runtime"
)

// Library is one row of the libraries table: an installed runtime
// library's version, install path, and the flag lists hilti-config
// would otherwise print for it.
type Library struct {
	Name      string
	Version   string
	Path      string
	Component Component
	Debug     bool
	CFlags    []string
	CXXFlags  []string
	LDFlags   []string
	Libs      []string
}

// DB wraps the sqlite connection backing the libraries table.
type DB struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS libraries (
	name      TEXT NOT NULL,
	version   TEXT NOT NULL,
	path      TEXT NOT NULL,
	component TEXT NOT NULL,
	debug     INTEGER NOT NULL DEFAULT 0,
	cflags    TEXT NOT NULL DEFAULT '',
	cxxflags  TEXT NOT NULL DEFAULT '',
	ldflags   TEXT NOT NULL DEFAULT '',
	libs      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (name, component, debug)
);
`

// Open opens (creating if necessary) the sqlite database at path and
// ensures the libraries table exists.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("libdb: open %s: %w", path, err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("libdb: create schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the underlying sqlite connection.
func (db *DB) Close() error { return db.conn.Close() }

// Put inserts or replaces one library row.
func (db *DB) Put(lib Library) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO libraries
			(name, version, path, component, debug, cflags, cxxflags, ldflags, libs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lib.Name, lib.Version, lib.Path, string(lib.Component), boolToInt(lib.Debug),
		strings.Join(lib.CFlags, " "), strings.Join(lib.CXXFlags, " "),
		strings.Join(lib.LDFlags, " "), strings.Join(lib.Libs, " "),
	)
	if err != nil {
		return fmt.Errorf("libdb: put %s: %w", lib.Name, err)
	}
	return nil
}

// Lookup fetches one library's row for a component and debug flavor.
func (db *DB) Lookup(name string, component Component, debug bool) (Library, bool, error) {
	row := db.conn.QueryRow(
		`SELECT name, version, path, component, debug, cflags, cxxflags, ldflags, libs
		 FROM libraries WHERE name = ? AND component = ? AND debug = ?`,
		name, string(component), boolToInt(debug),
	)
	var lib Library
	var debugInt int
	var cflags, cxxflags, ldflags, libs string
	err := row.Scan(&lib.Name, &lib.Version, &lib.Path, (*string)(&lib.Component), &debugInt, &cflags, &cxxflags, &ldflags, &libs)
	if err == sql.ErrNoRows {
		return Library{}, false, nil
	}
	if err != nil {
		return Library{}, false, fmt.Errorf("libdb: lookup %s: %w", name, err)
	}
	lib.Debug = debugInt != 0
	lib.CFlags = splitNonEmpty(cflags)
	lib.CXXFlags = splitNonEmpty(cxxflags)
	lib.LDFlags = splitNonEmpty(ldflags)
	lib.Libs = splitNonEmpty(libs)
	return lib, true, nil
}

// All returns every row for a component, ordered by name — the set
// `pilc config` folds together the way hilti-config's appendList
// accumulates across HILTI and BinPAC++ rows before printing.
func (db *DB) All(component Component, debug bool) ([]Library, error) {
	rows, err := db.conn.Query(
		`SELECT name, version, path, component, debug, cflags, cxxflags, ldflags, libs
		 FROM libraries WHERE component = ? AND debug = ? ORDER BY name`,
		string(component), boolToInt(debug),
	)
	if err != nil {
		return nil, fmt.Errorf("libdb: list %s: %w", component, err)
	}
	defer rows.Close()

	var out []Library
	for rows.Next() {
		var lib Library
		var debugInt int
		var cflags, cxxflags, ldflags, libs string
		if err := rows.Scan(&lib.Name, &lib.Version, &lib.Path, (*string)(&lib.Component), &debugInt, &cflags, &cxxflags, &ldflags, &libs); err != nil {
			return nil, fmt.Errorf("libdb: scan row: %w", err)
		}
		lib.Debug = debugInt != 0
		lib.CFlags = splitNonEmpty(cflags)
		lib.CXXFlags = splitNonEmpty(cxxflags)
		lib.LDFlags = splitNonEmpty(ldflags)
		lib.Libs = splitNonEmpty(libs)
		out = append(out, lib)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, " ")
}

// Seed populates a freshly created database with the two components
// pilc itself ships — the compiler frontend and its runtime support
// library — the way hilti-config's autogen config structs are baked
// in at HILTI's own build time.
func Seed(db *DB, version string) error {
	rows := []Library{
		{
			Name: "pilc", Version: version, Path: "/usr/local", Component: ComponentCompiler,
			CXXFlags: []string{"-I/usr/local/include/pilc"},
			LDFlags:  []string{"-L/usr/local/lib"},
			Libs:     []string{"-lpilc"},
		},
		{
			Name: "pilc-runtime", Version: version, Path: "/usr/local", Component: ComponentRuntime,
			CFlags:  []string{"-I/usr/local/include/pilc"},
			LDFlags: []string{"-L/usr/local/lib"},
			Libs:    []string{"-lpilc-runtime"},
		},
	}
	for _, lib := range rows {
		if err := db.Put(lib); err != nil {
			return err
		}
	}
	return nil
}
