package libdb

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pilc.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedThenLookupRoundTrips(t *testing.T) {
	db := openTestDB(t)
	if err := Seed(db, "1.0.0"); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	lib, ok, err := db.Lookup("pilc", ComponentCompiler, false)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected pilc compiler row to exist after Seed")
	}
	if lib.Version != "1.0.0" {
		t.Errorf("Version = %q, want 1.0.0", lib.Version)
	}
	if len(lib.Libs) != 1 || lib.Libs[0] != "-lpilc" {
		t.Errorf("Libs = %v, want [-lpilc]", lib.Libs)
	}
}

func TestLookupMissingRowReturnsFalseNotError(t *testing.T) {
	db := openTestDB(t)
	_, ok, err := db.Lookup("nonexistent", ComponentRuntime, false)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatalf("expected no row for an unseeded name")
	}
}

func TestAllOrdersByNameAndScopesByComponent(t *testing.T) {
	db := openTestDB(t)
	if err := Seed(db, "2.3.4"); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := db.Put(Library{Name: "aaa-extra", Version: "2.3.4", Component: ComponentCompiler}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rows, err := db.All(ComponentCompiler, false)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 compiler rows, got %d", len(rows))
	}
	if rows[0].Name != "aaa-extra" {
		t.Errorf("expected aaa-extra to sort first, got %q", rows[0].Name)
	}

	runtimeRows, err := db.All(ComponentRuntime, false)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(runtimeRows) != 1 || runtimeRows[0].Name != "pilc-runtime" {
		t.Fatalf("expected only the runtime row to be scoped in, got %v", runtimeRows)
	}
}

func TestPutReplacesExistingRow(t *testing.T) {
	db := openTestDB(t)
	if err := db.Put(Library{Name: "x", Version: "1", Component: ComponentCompiler}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Put(Library{Name: "x", Version: "2", Component: ComponentCompiler}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	lib, ok, err := db.Lookup("x", ComponentCompiler, false)
	if err != nil || !ok {
		t.Fatalf("Lookup: %v, ok=%v", err, ok)
	}
	if lib.Version != "2" {
		t.Fatalf("expected replace to update version, got %q", lib.Version)
	}
}
