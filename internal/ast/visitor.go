package ast

// Visitor dispatches over the closed Production set by a type switch
// (spec §4.4: "visited as a closed tagged union, not via a virtual
// dispatch hierarchy" — Go has no inheritance to misuse here anyway,
// but the shape still reads the way the composer's production walk
// does in the original). Walk calls the matching method for p's
// dynamic type and falls through to Default for anything unhandled.
type Visitor struct {
	Literal      func(*Literal)
	Variable     func(*Variable)
	Epsilon      func(*Epsilon)
	Sequence     func(*Sequence)
	LookAhead    func(*LookAhead)
	Switch       func(*Switch)
	Counter      func(*Counter)
	ByteBlock    func(*ByteBlock)
	Boolean      func(*Boolean)
	Loop         func(*Loop)
	ChildGrammar func(*ChildGrammar)
	Enclosure    func(*Enclosure)
	Default      func(Production)
}

// Walk dispatches p to the Visitor's matching field, or Default if
// that field is nil.
func (v *Visitor) Walk(p Production) {
	switch n := p.(type) {
	case *Literal:
		if v.Literal != nil {
			v.Literal(n)
			return
		}
	case *Variable:
		if v.Variable != nil {
			v.Variable(n)
			return
		}
	case *Epsilon:
		if v.Epsilon != nil {
			v.Epsilon(n)
			return
		}
	case *Sequence:
		if v.Sequence != nil {
			v.Sequence(n)
			return
		}
	case *LookAhead:
		if v.LookAhead != nil {
			v.LookAhead(n)
			return
		}
	case *Switch:
		if v.Switch != nil {
			v.Switch(n)
			return
		}
	case *Counter:
		if v.Counter != nil {
			v.Counter(n)
			return
		}
	case *ByteBlock:
		if v.ByteBlock != nil {
			v.ByteBlock(n)
			return
		}
	case *Boolean:
		if v.Boolean != nil {
			v.Boolean(n)
			return
		}
	case *Loop:
		if v.Loop != nil {
			v.Loop(n)
			return
		}
	case *ChildGrammar:
		if v.ChildGrammar != nil {
			v.ChildGrammar(n)
			return
		}
	case *Enclosure:
		if v.Enclosure != nil {
			v.Enclosure(n)
			return
		}
	}
	if v.Default != nil {
		v.Default(p)
	}
}

// Children returns a production's immediate sub-productions, for
// generic tree walks (symbol assignment, atomicity computation) that
// don't need per-kind behavior.
func Children(p Production) []Production {
	switch n := p.(type) {
	case *Sequence:
		return n.Items
	case *LookAhead:
		return n.Alternatives
	case *Switch:
		var out []Production
		for _, c := range n.Cases {
			out = append(out, c.Body)
		}
		if n.Default != nil {
			out = append(out, n.Default)
		}
		return out
	case *Counter:
		return []Production{n.Body}
	case *Boolean:
		out := []Production{n.True}
		if n.False != nil {
			out = append(out, n.False)
		}
		return out
	case *Loop:
		return []Production{n.Body}
	case *Enclosure:
		return []Production{n.Child}
	default:
		return nil
	}
}

// IsAtomic reports whether a production is atomic in the sense spec
// §4.3.2 uses it: a leaf that never recurses into the unit's own
// field productions, and so can be inlined into its caller's IL
// function without risking infinite recursion through mutual field
// references. Literal, Variable and Epsilon are always atomic;
// everything else defers to its PGMeta.Atomic flag as computed by the
// (out-of-scope) grammar-analysis stage.
func IsAtomic(p Production) bool {
	switch p.(type) {
	case *Literal, *Variable, *Epsilon:
		return true
	default:
		return p.Meta().Atomic
	}
}
