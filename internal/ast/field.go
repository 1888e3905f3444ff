package ast

import (
	"github.com/pilc-lang/pilc/internal/ast/expr"
	"github.com/pilc-lang/pilc/internal/attrs"
	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/types"
)

// Field is one member of a Unit declaration (spec §3.4): a name, the
// production that parses/composes it, its attribute set, and whether
// it is anonymous (unnamed, value discarded on parse / must still be
// supplied on compose) or conditional.
type Field struct {
	ID         ids.ID
	Type       types.Type
	Production Production
	Attrs      *attrs.Set
	Anonymous  bool
	Condition  expr.Expr // nil if unconditional
	ForEach    bool      // field is a `foreach` loop binder, not a stored value
}

// Container reports the element type if this field's declared type is
// one of the container kinds (spec §4.3.5 "container iteration
// protocol"), or ok=false for scalar fields.
func (f *Field) Container() (elem types.Type, ok bool) {
	switch t := f.Type.(type) {
	case types.List:
		return t.Elem, true
	case types.Vector:
		return t.Elem, true
	case types.Set:
		return t.Elem, true
	case types.Map:
		return t.Value, true
	default:
		return nil, false
	}
}

// NewField constructs a named, unconditional, non-anonymous field —
// the common case; callers flip the bool fields afterward for the
// less common ones.
func NewField(id ids.ID, t types.Type, prod Production) *Field {
	return &Field{ID: id, Type: t, Production: prod, Attrs: attrs.NewSet()}
}
