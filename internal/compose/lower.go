package compose

import (
	"github.com/pilc-lang/pilc/internal/ast"
	"github.com/pilc-lang/pilc/internal/il"
	"github.com/pilc-lang/pilc/internal/types"
)

// Visitor dispatches a production to its kind-specific lowering
// (spec §4.3.4), mirroring the original composer's per-kind visit
// methods as a Go type switch instead of virtual dispatch.
type Visitor struct{ c *Composer }

func (v *Visitor) Walk(p ast.Production) {
	switch n := p.(type) {
	case *ast.Literal:
		v.literal(n)
	case *ast.Variable:
		v.variable(n)
	case *ast.Epsilon:
		// nothing to compose
	case *ast.Sequence:
		v.sequence(n)
	case *ast.Switch:
		v.switchProd(n)
	case *ast.Counter:
		v.counter(n)
	case *ast.Loop:
		v.loop(n)
	case *ast.ChildGrammar:
		v.childGrammar(n)
	case *ast.Enclosure:
		v.enclosure(n)
	case *ast.LookAhead:
		v.c.diags.Internal("compose: composing production::LookAhead not implemented")
	case *ast.Boolean:
		v.c.diags.Internal("compose: composing production::Boolean not implemented")
	case *ast.ByteBlock:
		v.c.diags.Internal("compose: composing production::ByteBlock not implemented")
	default:
		v.c.diags.Internal("compose: unhandled production kind %T", p)
	}
}

func (v *Visitor) literal(l *ast.Literal) {
	c := v.c
	field := c.currentField
	switch l.Kind {
	case ast.LiteralBytes:
		c.dataComposed(il.ConstValue{Type: types.Bytes, Go: l.Bytes}, field)
	case ast.LiteralInt:
		d := il.ConstValue{Type: l.IntType, Go: l.IntVal}
		fmtVal := c.intPackFormat(l.IntType, field)
		c.pack(field, d, fmtVal)
	case ast.LiteralRegExp:
		c.dataComposed(c.objectFor(field), field)
	}
}

func (v *Visitor) variable(vr *ast.Variable) {
	c := v.c
	field := c.currentField
	c.composeByType(vr.Type, field)
}

// composeByType implements the per-storage-kind compose semantics
// (spec §4.3.6): how a scalar/opaque value becomes bytes.
func (c *Composer) composeByType(t types.Type, field *ast.Field) {
	switch tt := t.(type) {
	case types.Integer:
		fmtVal := c.intPackFormat(tt, field)
		c.pack(field, c.objectFor(field), fmtVal)
	case types.AddressType:
		c.composeAddress(field)
	case types.Bitfield:
		c.composeBitfield(tt, field)
	default:
		if types.Equal(t, types.Bytes) {
			c.composeBytes(field)
			return
		}
		if types.Equal(t, types.RegExp) {
			c.dataComposed(c.objectFor(field), field)
			return
		}
		c.diags.Internal("compose: composing type %s not implemented", t)
	}
}

// composeBytes delivers the field's raw byte value, then — the
// &until terminator delivery supplement — if the field carries an
// &until attribute, delivers the terminator's bytes immediately
// after, the way a framed bytes field composes its own end marker.
func (c *Composer) composeBytes(field *ast.Field) {
	c.dataComposed(c.objectFor(field), field)
	if until, ok := field.Attrs.Lookup("until"); ok {
		c.dataComposed(c.evalCondition(until), field)
	}
}

func (v *Visitor) sequence(s *ast.Sequence) {
	for _, item := range s.Items {
		v.c.Compose(item, nil, nil)
	}
}

func (v *Visitor) switchProd(s *ast.Switch) {
	c := v.c
	field := c.currentField // the switch's own field governs every arm
	contBB := c.b.PushBuilder("switch-cont")
	c.b.PopBuilderTop()

	var cases []il.SwitchCase
	for _, arm := range s.Cases {
		caseBB := c.b.PushBuilder("switch-case")
		c.Compose(arm.Body, nil, field)
		c.b.CurrentBuilder().Emit(il.Instruction{Op: il.OpJump, Args: []il.Value{il.BlockValue{Block: contBB.Block()}}})
		c.b.PopBuilder(caseBB)

		var values []il.Value
		for _, ve := range arm.Values {
			values = append(values, c.evalCondition(ve))
		}
		cases = append(cases, il.SwitchCase{Values: values, Target: caseBB.Block()})
	}

	defaultBB := c.b.PushBuilder("switch-default")
	if s.Default != nil {
		c.Compose(s.Default, nil, field)
	} else {
		c.composeError("no matching switch case")
	}
	c.b.CurrentBuilder().Emit(il.Instruction{Op: il.OpJump, Args: []il.Value{il.BlockValue{Block: contBB.Block()}}})
	c.b.PopBuilder(defaultBB)

	discr := c.evalCondition(s.Expr)
	c.b.CurrentBuilder().Emit(il.Instruction{
		Op:    il.OpSwitch,
		Args:  []il.Value{discr},
		Cases: append(cases, il.SwitchCase{Target: defaultBB.Block()}),
	})

	c.b.PushExistingBuilder(contBB)
}

func (v *Visitor) counter(cnt *ast.Counter) {
	c := v.c
	field := c.currentField
	elemType, ok := field.Container()
	if !ok {
		c.diags.Internal("compose: composing counter of field %s not implemented", field.ID.Name())
		return
	}
	c.composeContainer(c.objectFor(field), cnt.Body, elemType, field)
}

func (v *Visitor) loop(l *ast.Loop) {
	c := v.c
	field := c.currentField
	elemType, ok := field.Container()
	if !ok {
		c.diags.Internal("compose: composing loop of field %s not implemented", field.ID.Name())
		return
	}
	c.composeContainer(c.objectFor(field), l.Body, elemType, field)
}

func (v *Visitor) childGrammar(cg *ast.ChildGrammar) {
	c := v.c
	field := c.currentField
	childFn := c.CreateInternalFunction(cg.ChildType)

	// childSelf is whatever value is being composed here: the current
	// object override when one is set (composing a container element,
	// or inherited from an enclosing Compose call), otherwise the
	// field's own value on __self.
	childSelf := c.objectFor(field)

	cstate := c.state().clone()
	cstate.Unit = cg.ChildType
	cstate.Self = childSelf
	c.pushState(cstate)

	if c.opts.DebugEnabled() {
		if field != nil && !field.Anonymous {
			c.debug(field.ID.Name())
		} else if field != nil {
			c.debug(field.Type.String())
		}
		c.debugPushIndent()
	}
	c.callComposeFunction(childFn)
	if c.opts.DebugEnabled() {
		c.debugPopIndent()
	}
	c.popState()
}

func (v *Visitor) enclosure(e *ast.Enclosure) {
	v.c.Compose(e.Child, nil, e.Meta().Field)
}
