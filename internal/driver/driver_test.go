package driver

import (
	"testing"

	"github.com/pilc-lang/pilc/internal/ast"
	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/options"
	"github.com/pilc-lang/pilc/internal/types"
)

func TestCompileSingleUnitProducesExportedComposeFunction(t *testing.T) {
	unit := ast.NewUnit(ids.New("U"))
	field := ast.NewField(ids.New("x"), types.Integer{Width: 8}, ast.NewVariable(types.Integer{Width: 8}))
	unit.AddField(field)

	res, err := Compile("Sample", "sample.pilc", []Unit{{AST: unit, Exported: true}}, options.Default())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.Diagnostics())
	}

	found := false
	for _, d := range res.Module.Functions {
		if d.Func != nil && d.Func.ID.String() == "compose_U" && d.Func.Exported {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an exported compose_U function, got %+v", res.Module.Functions)
	}
}

func TestCompileResolvesForwardReferencedChildUnit(t *testing.T) {
	child := ast.NewUnit(ids.New("Inner"))
	child.AddField(ast.NewField(ids.New("v"), types.Integer{Width: 8}, ast.NewVariable(types.Integer{Width: 8})))

	parent := ast.NewUnit(ids.New("Outer"))
	parent.AddField(ast.NewField(ids.New("inner"), types.Unknown, ast.NewChildGrammar(child)))

	res, err := Compile("Nested", "nested.pilc", []Unit{
		{AST: parent, Exported: true},
		{AST: child, Exported: false},
	}, options.Default())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.Diagnostics())
	}
}

func TestCompileDefaultsOptionsWhenNil(t *testing.T) {
	unit := ast.NewUnit(ids.New("Empty"))
	if _, err := Compile("M", "m.pilc", []Unit{{AST: unit}}, nil); err != nil {
		t.Fatalf("Compile with nil options: %v", err)
	}
}
