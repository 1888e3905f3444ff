package ast

import (
	"github.com/pilc-lang/pilc/internal/ast/expr"
	"github.com/pilc-lang/pilc/internal/ids"
)

// Hook is a unit-level or field-level hook declaration (spec §4.3.9):
// either a pseudo-event ("%init", "%done") or a field name, with a
// priority determining run order among hooks on the same event and a
// group tying it to a &requires/&provides dependency cluster.
type Hook struct {
	Event    string // "%init", "%done", or a field ID's Name()
	Priority int64
	Group    int64
	Body     Production // for hooks lowered through the grammar; may be nil
}

// Grammar is the root production plus the unit it was derived from,
// the unit of work the composer (internal/compose) receives.
type Grammar struct {
	Unit *Unit
	Root Production
}

// Unit is a protocol grammar declaration (spec §3.4): an ordered list
// of fields, an optional guard condition gating the whole unit, the
// ForComposing flag (the same declaration compiles differently for
// parsing vs. composing, spec §4.3.1), and its hooks.
type Unit struct {
	ID           ids.ID
	Fields       []*Field
	Condition    expr.Expr
	ForComposing bool
	Hooks        []*Hook
	Grammar      *Grammar
}

// NewUnit constructs an empty unit ready to have fields appended.
func NewUnit(id ids.ID) *Unit {
	return &Unit{ID: id}
}

// AddField appends a field in declaration order — field order is
// significant (spec §3.4 "fields are ordered"; composing walks them
// in sequence).
func (u *Unit) AddField(f *Field) { u.Fields = append(u.Fields, f) }

// AddHook appends a hook declaration.
func (u *Unit) AddHook(h *Hook) { u.Hooks = append(u.Hooks, h) }

// HooksFor returns the hooks attached to a given event/field name, in
// the order they were declared. The composer runs them in this order;
// nothing sorts them by priority.
func (u *Unit) HooksFor(event string) []*Hook {
	var out []*Hook
	for _, h := range u.Hooks {
		if h.Event == event {
			out = append(out, h)
		}
	}
	return out
}

// FieldByName looks up a field by its unqualified ID name, used to
// resolve &count/&until expressions' FieldRef operands (spec §4.5).
func (u *Unit) FieldByName(name string) (*Field, bool) {
	for _, f := range u.Fields {
		if f.ID.Name() == name {
			return f, true
		}
	}
	return nil, false
}
