// Package ast implements the grammar/production model (spec §3.3,
// §3.4, §4.4): the recursive, tagged-union grammar built from unit
// declarations. Grammar construction itself (turning surface syntax
// into a well-formed, pg-meta-annotated production tree) happens in
// the out-of-scope AST-analysis stage; this package is the shape that
// stage produces and the composer (internal/compose) consumes, plus a
// GrammarBuilder test helper standing in for that stage.
package ast

import (
	"github.com/pilc-lang/pilc/internal/ast/expr"
	"github.com/pilc-lang/pilc/internal/types"
)

// PGMeta is the resolved production/grammar metadata every Production
// carries (spec §3.3): the unit field it corresponds to (if any), a
// symbolic name unique within its unit (used to derive generated IL
// function names, spec §4.3.3 step 5), and whether it is atomic
// (inlinable without a wrapper function).
type PGMeta struct {
	Field  *Field
	Symbol string
	Atomic bool
}

// Production is the sealed grammar-node interface (spec §3.3).
type Production interface {
	Meta() *PGMeta
	productionMarker()
}

type base struct{ meta PGMeta }

func (b *base) Meta() *PGMeta     { return &b.meta }
func (b *base) productionMarker() {}

// LiteralKind distinguishes the three literal sub-forms (spec §3.3
// "Literal(bytes|int|regex)").
type LiteralKind int

const (
	LiteralBytes LiteralKind = iota
	LiteralInt
	LiteralRegExp
)

// Literal is a fixed-value production: a byte-string constructor, an
// integer constant, or a regular expression.
type Literal struct {
	base
	Kind    LiteralKind
	Bytes   []byte
	IntVal  int64
	IntType types.Type
	Regex   string
	TokenID int
}

func NewLiteralBytes(b []byte) *Literal {
	return &Literal{Kind: LiteralBytes, Bytes: b}
}

func NewLiteralInt(v int64, t types.Type) *Literal {
	return &Literal{Kind: LiteralInt, IntVal: v, IntType: t}
}

func NewLiteralRegExp(pattern string) *Literal {
	return &Literal{Kind: LiteralRegExp, Regex: pattern}
}

// Variable is a field whose value comes from parsing/composing a
// single instance of a type.
type Variable struct {
	base
	Type types.Type
}

func NewVariable(t types.Type) *Variable { return &Variable{Type: t} }

// Epsilon consumes/produces nothing.
type Epsilon struct{ base }

func NewEpsilon() *Epsilon { return &Epsilon{} }

// Sequence composes a fixed ordered list of sub-productions.
type Sequence struct {
	base
	Items []Production
}

func NewSequence(items ...Production) *Sequence { return &Sequence{Items: items} }

// LookAhead records a set of lookahead alternatives; unsupported in
// the compose direction (spec §4.3.4, §9 open question).
type LookAhead struct {
	base
	Alternatives []Production
}

func NewLookAhead(alts ...Production) *LookAhead { return &LookAhead{Alternatives: alts} }

// SwitchCase is one `value -> production` arm.
type SwitchCase struct {
	Values []expr.Expr
	Body   Production
}

// Switch dispatches on an expression to one of several productions.
type Switch struct {
	base
	Expr    expr.Expr
	Cases   []SwitchCase
	Default Production // nil if no default arm
}

func NewSwitch(e expr.Expr, cases []SwitchCase, def Production) *Switch {
	return &Switch{Expr: e, Cases: cases, Default: def}
}

// Counter repeats Body a fixed number of times (count_expr).
type Counter struct {
	base
	Count expr.Expr
	Body  Production
}

func NewCounter(count expr.Expr, body Production) *Counter {
	return &Counter{Count: count, Body: body}
}

// ByteBlock reads/writes a block of raw bytes; unsupported in the
// compose direction (spec §4.3.4, §9 open question).
type ByteBlock struct{ base }

func NewByteBlock() *ByteBlock { return &ByteBlock{} }

// Boolean branches on a condition; unsupported in the compose
// direction (spec §4.3.4, §9 open question) — not to be confused with
// a field-level `if (cond)` guard, which is handled per-field in
// §4.3.3 step 2, not via this production.
type Boolean struct {
	base
	Cond  expr.Expr
	True  Production
	False Production
}

func NewBoolean(cond expr.Expr, t, f Production) *Boolean {
	return &Boolean{Cond: cond, True: t, False: f}
}

// Loop repeats Body until an optional `until` condition holds, or
// (for composing) for as many elements as the bound container has.
type Loop struct {
	base
	Body  Production
	Until expr.Expr // nil if unbounded / count-driven
}

func NewLoop(body Production, until expr.Expr) *Loop {
	return &Loop{Body: body, Until: until}
}

// ChildGrammar composes/parses a nested unit.
type ChildGrammar struct {
	base
	ChildType *Unit
}

func NewChildGrammar(child *Unit) *ChildGrammar { return &ChildGrammar{ChildType: child} }

// Enclosure delegates to a child production while keeping the
// enclosing field's identity (spec §4.3.4: "compose child with the
// enclosing field").
type Enclosure struct {
	base
	Child Production
}

func NewEnclosure(child Production) *Enclosure { return &Enclosure{Child: child} }

// Symbol derives a per-unit-unique symbolic name for a production, the
// way the grammar builder would (spec §3.3 pg-meta "symbolic name
// derived from its unit and position"). Exposed for the GrammarBuilder
// test helper and for internal/compose's memoization key construction.
func Symbol(unitName string, position int, kindTag string) string {
	return unitName + "_" + kindTag + "_" + itoa(position)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
