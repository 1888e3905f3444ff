package ilwire

import (
	"testing"

	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/il"
)

func sampleModule() *il.Module {
	m := il.NewModule(ids.New("Sample"), "sample.pilc")
	m.Imports = append(m.Imports, ids.New("Other"))
	m.Globals = append(m.Globals, &il.Declaration{ID: ids.New("g"), Kind: il.DeclGlobal})

	fn := &il.FuncDecl{ID: ids.New("compose_U_internal"), Exported: false}
	body := &il.Body{}
	block := il.NewBlock("entry", nil)
	block.Emit(il.Instruction{Op: il.OpCallVoid, Args: []il.Value{il.IDValue{ID: ids.New("hook_U_init")}}})
	body.Blocks = append(body.Blocks, block)
	fn.Bodies = append(fn.Bodies, body)
	m.Functions = append(m.Functions, &il.Declaration{ID: fn.ID, Kind: il.DeclFunction, Func: fn})

	return m
}

func TestEncodeDecodeRoundTripsModuleMetadata(t *testing.T) {
	m := sampleModule()
	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty wire bytes")
	}

	info, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if info.ID != m.ID.String() {
		t.Errorf("ID = %q, want %q", info.ID, m.ID.String())
	}
	if info.Path != m.Path {
		t.Errorf("Path = %q, want %q", info.Path, m.Path)
	}
	if len(info.Imports) != 1 || info.Imports[0] != "Other" {
		t.Errorf("Imports = %v, want [Other]", info.Imports)
	}
	if len(info.Globals) != 1 || info.Globals[0].Kind != "global" {
		t.Errorf("Globals = %v", info.Globals)
	}
	if len(info.Functions) != 1 {
		t.Fatalf("expected one function, got %d", len(info.Functions))
	}
	fn := info.Functions[0]
	if fn.ID != "compose_U_internal" {
		t.Errorf("Function.ID = %q", fn.ID)
	}
	if fn.BodyText == "" {
		t.Errorf("expected a non-empty body dump")
	}
}

func TestDumpBodyRendersEveryInstruction(t *testing.T) {
	block := il.NewBlock("entry", nil)
	block.Emit(il.Instruction{Op: il.OpCallVoid, Args: []il.Value{il.IDValue{ID: ids.New("f")}}})
	block.Emit(il.Instruction{Op: il.OpThrow, Comment: "compose error"})
	body := &il.Body{Blocks: []*il.Block{block}}

	text := dumpBody(body)
	if text == "" {
		t.Fatalf("expected non-empty dump")
	}
	if n := countOccurrences(text, "call.void"); n != 1 {
		t.Errorf("expected one call.void line, got %d", n)
	}
	if n := countOccurrences(text, "throw"); n != 1 {
		t.Errorf("expected one throw line, got %d", n)
	}
}

func countOccurrences(s, substr string) int {
	n := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			n++
			i += len(substr) - 1
		}
	}
	return n
}
