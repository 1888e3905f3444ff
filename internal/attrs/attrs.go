// Package attrs implements the string-keyed attribute map attached to
// unit fields (spec §4.5): &until, &byteorder, &ipv4, try, and so on.
package attrs

import "github.com/pilc-lang/pilc/internal/ast/expr"

// Set is a string-keyed map from attribute name to an optional
// expression value (boolean attributes like &try carry no expression).
type Set struct {
	values map[string]expr.Expr
	present map[string]bool
}

func NewSet() *Set {
	return &Set{values: make(map[string]expr.Expr), present: make(map[string]bool)}
}

// Add records an attribute, with or without a value expression.
func (s *Set) Add(name string, value expr.Expr) {
	s.present[name] = true
	if value != nil {
		s.values[name] = value
	}
}

// Has reports whether the attribute is present at all (value or not).
func (s *Set) Has(name string) bool {
	if s == nil {
		return false
	}
	return s.present[name]
}

// Lookup returns the attribute's expression value, if any.
func (s *Set) Lookup(name string) (expr.Expr, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Chain supports inherited-attribute lookup: a field's containing-unit
// chain (spec §4.5 "Inherited attributes traverse a field's
// containing-unit chain").
type Chain struct {
	Own    *Set
	Parent *Chain
}

// InheritedLookup walks from the field's own attributes outward
// through enclosing units until an attribute is found or the chain is
// exhausted.
func (c *Chain) InheritedLookup(name string) (expr.Expr, bool) {
	for cur := c; cur != nil; cur = cur.Parent {
		if v, ok := cur.Own.Lookup(name); ok {
			return v, true
		}
		if cur.Own.Has(name) {
			return nil, false // present but valueless, stop here
		}
	}
	return nil, false
}
