package ast

import (
	"testing"

	"github.com/pilc-lang/pilc/internal/ast/expr"
	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/types"
)

func buildSimpleUnit() *Unit {
	u := NewUnit(ids.New("test::Packet"))
	u.AddField(NewField(ids.New("version"), types.Integer{Width: 8}, NewVariable(types.Integer{Width: 8})))
	u.AddField(NewField(ids.New("payload"), types.Bytes, NewVariable(types.Bytes)))
	return u
}

func TestGrammarBuilderAssignsUniqueSymbols(t *testing.T) {
	u := buildSimpleUnit()
	gr := NewGrammarBuilder(u).Build()

	seen := make(map[string]bool)
	var walk func(Production)
	walk = func(p Production) {
		sym := p.Meta().Symbol
		if sym == "" {
			t.Fatalf("production %T got an empty symbol", p)
		}
		if seen[sym] {
			t.Fatalf("duplicate symbol %q", sym)
		}
		seen[sym] = true
		for _, c := range Children(p) {
			walk(c)
		}
	}
	walk(gr.Root)
}

func TestGrammarBuilderAtomicityPropagates(t *testing.T) {
	u := buildSimpleUnit()
	gr := NewGrammarBuilder(u).Build()

	if !IsAtomic(gr.Root) {
		t.Fatalf("a sequence of two atomic variable fields should itself be atomic")
	}
}

func TestGrammarBuilderNonAtomicChildMakesSequenceNonAtomic(t *testing.T) {
	u := NewUnit(ids.New("test::Wrapper"))
	inner := NewUnit(ids.New("test::Inner"))
	inner.AddField(NewField(ids.New("x"), types.Integer{Width: 8}, NewVariable(types.Integer{Width: 8})))
	child := NewChildGrammar(inner)
	child.Meta().Atomic = false // a child grammar is never inlined
	u.AddField(NewField(ids.New("nested"), types.Unknown, child))

	gr := NewGrammarBuilder(u).Build()
	if IsAtomic(gr.Root) {
		t.Fatalf("sequence containing a non-atomic child grammar must not be atomic")
	}
}

func TestFieldContainerDetectsIterableTypes(t *testing.T) {
	f := NewField(ids.New("xs"), types.Vector{Elem: types.Integer{Width: 32}}, NewEpsilon())
	elem, ok := f.Container()
	if !ok {
		t.Fatalf("expected vector field to report a container element type")
	}
	if !types.Equal(elem, types.Integer{Width: 32}) {
		t.Fatalf("expected element type uint32, got %s", elem)
	}

	scalar := NewField(ids.New("n"), types.Integer{Width: 8}, NewEpsilon())
	if _, ok := scalar.Container(); ok {
		t.Fatalf("scalar field should not report a container element type")
	}
}

func TestUnitFieldByNameAndHooksFor(t *testing.T) {
	u := buildSimpleUnit()
	if _, ok := u.FieldByName("version"); !ok {
		t.Fatalf("expected to find field %q", "version")
	}
	if _, ok := u.FieldByName("missing"); ok {
		t.Fatalf("did not expect to find field %q", "missing")
	}

	u.AddHook(&Hook{Event: "%init", Priority: 0})
	u.AddHook(&Hook{Event: "version", Priority: 5})
	u.AddHook(&Hook{Event: "version", Priority: 1})

	hooks := u.HooksFor("version")
	if len(hooks) != 2 {
		t.Fatalf("expected 2 hooks on field version, got %d", len(hooks))
	}
}

func TestSwitchCarriesExpressionDiscriminant(t *testing.T) {
	discr := expr.NewFieldRef("tag", types.Integer{Width: 8}, ids.Location{})
	sw := NewSwitch(discr, []SwitchCase{
		{Values: []expr.Expr{expr.NewIntLit(1, types.Integer{Width: 8}, ids.Location{})}, Body: NewEpsilon()},
	}, nil)
	if sw.Expr.String() != "tag" {
		t.Fatalf("expected switch discriminant %q, got %q", "tag", sw.Expr.String())
	}
	if sw.Default != nil {
		t.Fatalf("expected no default arm")
	}
}
