package compose

import (
	"github.com/pilc-lang/pilc/internal/ast"
	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/il"
	"github.com/pilc-lang/pilc/internal/types"
)

// objectFor fetches the value being composed for field: either the
// composer's current object override (set while iterating a
// container, or inherited from the caller) or a field access on
// __self (spec §4.3.1 hiltiObject).
func (c *Composer) objectFor(field *ast.Field) il.Value {
	if c.object != nil {
		return c.object
	}
	if field == nil {
		c.diags.Internal("compose: objectFor called with no field and no current object")
	}
	return il.IDValue{ID: ids.New(field.ID.Name())}
}

// dataComposed delivers composed bytes to the output function (spec
// §4.3.7): `data` is handed to __outfunc along with the field's own
// value (for hooks/debugging) or null for anonymous fields.
func (c *Composer) dataComposed(data il.Value, field *ast.Field) {
	if c.opts.DebugEnabled() && field != nil {
		if _, isUnit := field.Type.(types.Struct); !isUnit {
			c.b.CurrentBuilder().Emit(il.Instruction{
				Op:      il.OpDebugMsg,
				Comment: "binpac-compose",
				Args:    []il.Value{il.ConstValue{Type: types.String, Go: field.ID.Name() + " = %s"}, data},
			})
		}
	}

	var obj il.Value = il.NullValue{Type: types.Any}
	if field != nil && !field.Anonymous {
		obj = c.objectFor(field)
	}

	c.b.CurrentBuilder().Emit(il.Instruction{
		Op:   il.OpCallVoid,
		Args: []il.Value{c.state().OutputFn, data, obj, c.state().Cookie},
	})
}

// pack implements hiltiPack: packs a value with the given pack format
// into a temporary, then delivers it.
func (c *Composer) pack(field *ast.Field, value, format il.Value) {
	tmp := c.b.AddTmp("packed", types.Bytes, nil, false)
	c.b.CurrentBuilder().Emit(il.Instruction{
		Target: il.IDValue{ID: tmp.ID},
		Op:     il.OpPack,
		Args:   []il.Value{value, format},
	})
	c.dataComposed(il.IDValue{ID: tmp.ID}, field)
}

// intPackFormat resolves the field's own &byteorder attribute (Big if
// absent) into a pack-format constant for an integer of the given
// width/sign. Attributes of the enclosing unit are not consulted.
func (c *Composer) intPackFormat(t types.Type, field *ast.Field) il.Value {
	width, signed := 32, false
	if it, ok := t.(types.Integer); ok {
		width, signed = it.Width, it.Signed
	}
	byteorder := "Big"
	if field != nil {
		if bo, ok := field.Attrs.Lookup("byteorder"); ok {
			byteorder = bo.String()
		}
	}
	kind := "Int"
	if signed {
		kind = "SInt"
	}
	name := byteorder + kind + itoa(width)
	return il.ConstValue{Type: types.Unknown, Go: name}
}

func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return string(buf)
}

// composeAddress implements the Address 3-way SelectValue table
// supplement: the pack format is chosen among Little/Big/Host by the
// field's own &byteorder (Big if absent; the enclosing unit's
// attributes are not consulted) via a SelectValue instruction, rather
// than a chain of ifs, matching how the original picks among
// IPv4Little/IPv4Big/IPv4 (host) at runtime.
func (c *Composer) composeAddress(field *ast.Field) {
	family := "IPv6"
	if field != nil && field.Attrs.Has("ipv4") {
		family = "IPv4"
	}
	byteorder := il.Value(il.ConstValue{Type: types.Unknown, Go: "Big"})
	if field != nil {
		if bo, ok := field.Attrs.Lookup("byteorder"); ok {
			byteorder = c.evalCondition(bo)
		}
	}

	selectTable := il.ConstValue{Type: types.Unknown, Go: [3][2]string{
		{"Little", family + "Little"},
		{"Big", family + "Big"},
		{"Host", family},
	}}

	fmtTmp := c.b.AddTmp("fmt", types.Unknown, nil, false)
	c.b.CurrentBuilder().Emit(il.Instruction{
		Target: il.IDValue{ID: fmtTmp.ID},
		Op:     il.OpSelectValue,
		Args:   []il.Value{byteorder, selectTable},
	})

	c.pack(field, c.objectFor(field), il.IDValue{ID: fmtTmp.ID})
}

// composeBitfield packs each declared bit range of a bitfield value
// back into a single integer before delivering it (spec §4.3.6).
func (c *Composer) composeBitfield(bf types.Bitfield, field *ast.Field) {
	ival := c.b.AddTmp("ival", types.Integer{Width: bf.Width}, nil, false)
	bval := c.objectFor(field)

	for i, bit := range bf.Bits {
		elem := c.b.AddTmp("elem", types.Integer{Width: bf.Width}, nil, false)
		c.b.CurrentBuilder().Emit(il.Instruction{
			Target: il.IDValue{ID: elem.ID},
			Op:     il.OpTupleIndex,
			Args:   []il.Value{bval, il.ConstValue{Type: types.Integer{Width: 32}, Go: int64(i)}},
		})
		// ival |= elem << bit.Lower
		shiftAmt := il.ConstValue{Type: types.Integer{Width: 32}, Go: int64(bit.Lower)}
		c.b.CurrentBuilder().Emit(il.Instruction{
			Target: il.IDValue{ID: ival.ID},
			Op:     il.OpBitOr,
			Args:   []il.Value{il.IDValue{ID: ival.ID}, il.IDValue{ID: elem.ID}, shiftAmt},
		})
	}

	fmtVal := c.intPackFormat(types.Integer{Width: bf.Width}, field)
	c.pack(field, il.IDValue{ID: ival.ID}, fmtVal)
}

// composeContainer implements the container iteration protocol (spec
// §4.3.5): begin/end iterators, a loop block that composes each
// element through body, and a done block the caller continues in.
func (c *Composer) composeContainer(value il.Value, body ast.Production, elemType types.Type, field *ast.Field) {
	iterType := types.Iterator{Container: field.Type}
	i := c.b.AddTmp("i", iterType, nil, false)
	elem := c.b.AddTmp("elem", elemType, nil, false)
	end := c.b.AddTmp("end", iterType, nil, false)
	atend := c.b.AddTmp("atend", types.Bool, nil, false)

	contBB := c.b.PushBuilder("container-done")
	c.b.PopBuilderTop()
	composeOneBB := c.b.PushBuilder("container-compose-one")
	c.b.PopBuilderTop()
	loopBB := c.b.PushBuilder("container-loop")
	c.b.PopBuilderTop()

	cur := c.b.CurrentBuilder()
	cur.Emit(il.Instruction{Target: il.IDValue{ID: i.ID}, Op: il.OpBegin, Args: []il.Value{value}})
	cur.Emit(il.Instruction{Target: il.IDValue{ID: end.ID}, Op: il.OpEnd, Args: []il.Value{value}})
	cur.Emit(il.Instruction{Op: il.OpJump, Args: []il.Value{il.BlockValue{Block: loopBB.Block()}}})

	c.b.PushExistingBuilder(loopBB)
	loopBB.Emit(il.Instruction{
		Target: il.IDValue{ID: atend.ID},
		Op:     il.OpEqual,
		Args:   []il.Value{il.IDValue{ID: i.ID}, il.IDValue{ID: end.ID}},
	})
	loopBB.Emit(il.Instruction{
		Op:    il.OpIfElse,
		Args:  []il.Value{il.IDValue{ID: atend.ID}},
		Cases: []il.SwitchCase{{Target: contBB.Block()}, {Target: composeOneBB.Block()}},
	})
	c.b.PopBuilder(loopBB)

	c.b.PushExistingBuilder(composeOneBB)
	composeOneBB.Emit(il.Instruction{Target: il.IDValue{ID: elem.ID}, Op: il.OpDeref, Args: []il.Value{il.IDValue{ID: i.ID}}})
	c.Compose(body, il.IDValue{ID: elem.ID}, field)
	composeOneBB.Emit(il.Instruction{Target: il.IDValue{ID: i.ID}, Op: il.OpIncr, Args: []il.Value{il.IDValue{ID: i.ID}}})
	composeOneBB.Emit(il.Instruction{Op: il.OpJump, Args: []il.Value{il.BlockValue{Block: loopBB.Block()}}})
	c.b.PopBuilder(composeOneBB)

	c.b.PushExistingBuilder(contBB)
}

// composeError raises a runtime compose failure: an IL-level
// exception thrown from the generated code, never surfaced through
// diag.Bag (spec §7 tier 3, §4.3.8 failure model).
func (c *Composer) composeError(msg string) {
	c.debugVerbose("triggering compose error")
	excTmp := c.b.AddTmp("__compose_error_excpt", types.Exception{Base: types.Unknown, Arg: types.String}, nil, false)
	c.b.CurrentBuilder().Emit(il.Instruction{
		Target: il.IDValue{ID: excTmp.ID},
		Op:     il.OpNewException,
		Args:   []il.Value{il.ConstValue{Type: types.Unknown, Go: "ComposeError"}, il.ConstValue{Type: types.String, Go: msg}},
	})
	c.b.CurrentBuilder().Emit(il.Instruction{Op: il.OpThrow, Args: []il.Value{il.IDValue{ID: excTmp.ID}}})
}

// --- hooks ---------------------------------------------------------------

// runFieldHooks runs the hooks attached to a field, in declaration
// order (priority ordering among same-event hooks is resolved by the
// out-of-scope analysis stage, which sorts Unit.Hooks before the
// composer ever sees them).
func (c *Composer) runFieldHooks(field *ast.Field) {
	c.runHooksFor(field.ID.Name())
}

// runHook runs a unit-level pseudo-event hook (%init / %done).
func (c *Composer) runHook(unit *ast.Unit, event string) {
	for _, h := range unit.HooksFor(event) {
		c.emitHookCall(h)
	}
}

func (c *Composer) runHooksFor(event string) {
	for _, h := range c.state().Unit.HooksFor(event) {
		c.emitHookCall(h)
	}
}

func (c *Composer) emitHookCall(h *ast.Hook) {
	name := "hook_" + c.state().Unit.ID.Name() + "_" + sanitizeEvent(h.Event)
	c.b.CurrentBuilder().Emit(il.Instruction{
		Op:   il.OpCallVoid,
		Args: append([]il.Value{il.IDValue{ID: ids.New(name)}}, c.state().arguments()...),
	})
}

func sanitizeEvent(event string) string {
	out := make([]byte, 0, len(event))
	for i := 0; i < len(event); i++ {
		if event[i] == '%' {
			continue
		}
		out = append(out, event[i])
	}
	return string(out)
}

// --- debug bracketing ------------------------------------------------------

// debug, debugVerbose, debugPushIndent and debugPopIndent implement
// the debug-indent bracketing supplement (spec §4.3.9, original
// source's cg()->builder()->debugPushIndent()/debugPopIndent() pair
// around nested-unit composition): every level of ChildGrammar
// recursion indents its debug stream one level deeper, so composing a
// deeply nested protocol reads like an indented trace instead of a
// flat one.
func (c *Composer) debug(msg string) {
	if !c.opts.DebugEnabled() {
		return
	}
	c.b.CurrentBuilder().Emit(il.Instruction{Op: il.OpDebugMsg, Comment: "binpac-compose", Args: []il.Value{il.ConstValue{Type: types.String, Go: msg}}})
}

func (c *Composer) debugVerbose(msg string) {
	if !c.opts.CgDebugStream("binpac-compose-verbose") {
		return
	}
	c.b.CurrentBuilder().Emit(il.Instruction{Op: il.OpDebugMsg, Comment: "binpac-compose-verbose", Args: []il.Value{il.ConstValue{Type: types.String, Go: "- " + msg}}})
}

func (c *Composer) debugPushIndent() {
	c.b.CurrentBuilder().Emit(il.Instruction{Op: il.OpDebugPushIndent})
}

func (c *Composer) debugPopIndent() {
	c.b.CurrentBuilder().Emit(il.Instruction{Op: il.OpDebugPopIndent})
}
