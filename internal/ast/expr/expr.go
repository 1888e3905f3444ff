// Package expr models the small slice of binpac-level expressions the
// composer needs to inspect directly: field conditions (spec §3.4),
// switch discriminants and case labels (§4.3.4), loop/counter bounds,
// and attribute values (§4.5). Full expression evaluation — constant
// folding, overload resolution, the expression type checker — belongs
// to the out-of-scope surface-syntax/analysis stage (spec §1); this
// package only carries what composer lowering and diagnostics need to
// read back out.
package expr

import (
	"fmt"

	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/types"
)

// Expr is the sealed expression interface.
type Expr interface {
	fmt.Stringer
	Type() types.Type
	Loc() ids.Location
}

type base struct {
	T types.Type
	L ids.Location
}

func (b base) Type() types.Type  { return b.T }
func (b base) Loc() ids.Location { return b.L }

// FieldRef references another field of the enclosing unit by name,
// e.g. the `n` in `xs: uint8[] &count=n`.
type FieldRef struct {
	base
	Name string
}

func NewFieldRef(name string, t types.Type, loc ids.Location) FieldRef {
	return FieldRef{base: base{T: t, L: loc}, Name: name}
}

func (f FieldRef) String() string { return f.Name }

// IntLit is an integer constant expression.
type IntLit struct {
	base
	Value int64
}

func NewIntLit(v int64, t types.Type, loc ids.Location) IntLit {
	return IntLit{base: base{T: t, L: loc}, Value: v}
}

func (i IntLit) String() string { return fmt.Sprintf("%d", i.Value) }

// BoolLit is a boolean constant expression.
type BoolLit struct {
	base
	Value bool
}

func NewBoolLit(v bool, loc ids.Location) BoolLit {
	return BoolLit{base: base{T: types.Bool, L: loc}, Value: v}
}

func (b BoolLit) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// StringLit is a string constant expression, used for IDs referenced
// symbolically in attributes (e.g. a byte-order enum label name).
type StringLit struct {
	base
	Value string
}

func NewStringLit(v string, loc ids.Location) StringLit {
	return StringLit{base: base{T: types.String, L: loc}, Value: v}
}

func (s StringLit) String() string { return s.Value }

// BinOp is a binary comparison/arithmetic expression, e.g. `x > 0` in
// a field condition.
type BinOpKind int

const (
	OpEq BinOpKind = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

func (k BinOpKind) String() string {
	switch k {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

type BinOp struct {
	base
	Op          BinOpKind
	Left, Right Expr
}

func NewBinOp(op BinOpKind, left, right Expr, loc ids.Location) BinOp {
	return BinOp{base: base{T: types.Bool, L: loc}, Op: op, Left: left, Right: right}
}

func (b BinOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}
