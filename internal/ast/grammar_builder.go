package ast

// GrammarBuilder stands in for the out-of-scope surface-syntax and
// grammar-analysis stage: given a Unit whose fields already carry
// productions, it assembles the Sequence-of-fields root production and
// assigns each node its PGMeta (symbol name, atomicity) the way that
// stage would, so internal/compose and its tests have something to
// consume without needing a parser front end.
type GrammarBuilder struct {
	unit *Unit
	next int
}

func NewGrammarBuilder(unit *Unit) *GrammarBuilder {
	return &GrammarBuilder{unit: unit}
}

// Build walks the unit's fields in order, wraps each field's
// production in an Enclosure tying it back to the field, assigns
// symbols/atomicity bottom-up, and returns the finished Grammar.
func (g *GrammarBuilder) Build() *Grammar {
	items := make([]Production, 0, len(g.unit.Fields))
	for _, f := range g.unit.Fields {
		enc := NewEnclosure(f.Production)
		enc.Meta().Field = f
		g.assign(enc)
		items = append(items, enc)
	}
	root := NewSequence(items...)
	g.assign(root)
	gr := &Grammar{Unit: g.unit, Root: root}
	g.unit.Grammar = gr
	return gr
}

// assign gives p (and its children, depth-first) a symbol name and
// computes Atomic bottom-up: a node is atomic iff it and every child
// is atomic (spec §4.3.2's inlining criterion, generalized to nested
// productions since this builder doesn't know field-recursion cycles
// ahead of time — a real grammar-analysis pass would break cycles via
// explicit recursion detection instead).
func (g *GrammarBuilder) assign(p Production) {
	for _, child := range Children(p) {
		g.assign(child)
	}
	meta := p.Meta()
	if meta.Symbol == "" {
		meta.Symbol = Symbol(g.unit.ID.Name(), g.next, kindTag(p))
		g.next++
	}
	switch p.(type) {
	case *Literal, *Variable, *Epsilon:
		meta.Atomic = true
	case *ChildGrammar:
		// A child grammar is never inlined: it always composes through
		// its own compose_<Unit>[_internal] function so the state push
		// in Composer.Compose can run (spec §4.3.4).
		meta.Atomic = false
	default:
		meta.Atomic = allAtomic(Children(p))
	}
}

func allAtomic(children []Production) bool {
	for _, c := range children {
		if !IsAtomic(c) {
			return false
		}
	}
	return true
}

func kindTag(p Production) string {
	switch p.(type) {
	case *Literal:
		return "lit"
	case *Variable:
		return "var"
	case *Epsilon:
		return "eps"
	case *Sequence:
		return "seq"
	case *LookAhead:
		return "la"
	case *Switch:
		return "sw"
	case *Counter:
		return "cnt"
	case *ByteBlock:
		return "blk"
	case *Boolean:
		return "bool"
	case *Loop:
		return "loop"
	case *ChildGrammar:
		return "child"
	case *Enclosure:
		return "enc"
	default:
		return "p"
	}
}
