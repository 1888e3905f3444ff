// Package compose implements the composer (spec §4.3): the code
// generator that lowers a unit's grammar into IL functions that
// serialize values back into bytes, the mirror image of parsing. It
// walks the same Production tree the (out-of-scope) parser-generator
// walks, but in the opposite direction — producing bytes instead of
// consuming them — and delivers each chunk to a caller-supplied output
// function rather than returning a single buffer, so composed output
// can be streamed.
package compose

import (
	"fmt"
	"strings"

	"github.com/pilc-lang/pilc/internal/ast"
	"github.com/pilc-lang/pilc/internal/ast/expr"
	"github.com/pilc-lang/pilc/internal/diag"
	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/il"
	"github.com/pilc-lang/pilc/internal/ilbuilder"
	"github.com/pilc-lang/pilc/internal/options"
	"github.com/pilc-lang/pilc/internal/types"
)

// ComposerState is the current unit/self/output-function/cookie tuple
// (spec §4.3.1). States nest: composing a nested unit (ChildGrammar)
// pushes a new state carrying the child's own self/unit while
// inheriting the outer output function and cookie.
type ComposerState struct {
	Unit     *ast.Unit
	Self     il.Value
	OutputFn il.Value
	Cookie   il.Value
}

// clone copies a state so a nested unit can override Unit/Self while
// keeping the same OutputFn/Cookie (spec §4.3.4 ChildGrammar).
func (s *ComposerState) clone() *ComposerState {
	c := *s
	return &c
}

// arguments renders the state as the (self, outfunc, cookie) tuple
// every generated compose function is called with.
func (s *ComposerState) arguments() []il.Value {
	return []il.Value{s.Self, s.OutputFn, s.Cookie}
}

// Composer is the per-compilation composer instance: one Composer
// builds compose functions for every unit in a module via the shared
// Builder.
type Composer struct {
	b     *ilbuilder.Builder
	reg   *types.Registry
	diags *diag.Bag
	opts  *options.Options

	states       []*ComposerState
	object       il.Value   // current "object" override; nil means "look it up on self"
	currentField *ast.Field // the field governing the production currently being lowered
}

func New(b *ilbuilder.Builder, reg *types.Registry, diags *diag.Bag, opts *options.Options) *Composer {
	return &Composer{b: b, reg: reg, diags: diags, opts: opts}
}

func (c *Composer) pushState(s *ComposerState) { c.states = append(c.states, s) }

func (c *Composer) popState() {
	if len(c.states) == 0 {
		c.diags.Internal("compose: popState with no state pushed")
	}
	c.states = c.states[:len(c.states)-1]
}

func (c *Composer) state() *ComposerState {
	if len(c.states) == 0 {
		c.diags.Internal("compose: state() with no state pushed")
	}
	return c.states[len(c.states)-1]
}

// outputFuncType is the signature every generated compose function's
// __outfunc parameter carries: void(ref<bytes> data, any obj, cookie).
var outputFuncType = types.HiltiFunction{Sig: types.FunctionSig{
	Params: []types.Type{types.Bytes, types.Any, types.Unknown},
	Result: types.Void,
}}

// CreateHostFunction builds the module's externally exported
// `compose_<Unit>` entry point, the function outside code calls to
// serialize a value of this unit (spec §4.3.1 hiltiCreateHostFunction).
func (c *Composer) CreateHostFunction(unit *ast.Unit) *il.FuncDecl {
	name := "compose_" + unit.ID.Name()
	decl := &il.FuncDecl{
		ID: ids.New(name),
		Params: []il.Param{
			{ID: ids.New("__self"), Type: types.TypeType{Inner: types.Unknown}},
			{ID: ids.New("__outfunc"), Type: outputFuncType},
			{ID: ids.New("__cookie"), Type: types.Unknown},
		},
		CC:       il.CCHILTIC,
		Exported: true,
	}
	c.b.PushFunction(decl, false)
	c.b.ExportID(name)

	self := il.IDValue{ID: ids.New("__self")}
	outfunc := il.IDValue{ID: ids.New("__outfunc")}
	cookie := il.IDValue{ID: ids.New("__cookie")}
	c.pushState(&ComposerState{Unit: unit, Self: self, OutputFn: outfunc, Cookie: cookie})

	internalFn := c.CreateInternalFunction(unit)

	if c.opts.DebugEnabled() {
		c.debug(unit.ID.Name())
		c.debugPushIndent()
	}
	c.callComposeFunction(internalFn)
	if c.opts.DebugEnabled() {
		c.debugPopIndent()
	}

	c.popState()
	return c.b.PopFunction()
}

// CreateInternalFunction builds (or returns the cached) `compose_<Unit>
// _internal` function that runs %init, composes the unit's grammar
// root, and runs %done (spec §4.3.1 hiltiCreateComposeFunction,
// §4.3.9 hooks).
func (c *Composer) CreateInternalFunction(unit *ast.Unit) *il.FuncDecl {
	name := "compose_" + unit.ID.Name() + "_internal"
	if cached, ok := c.b.LookupNode("create-compose-function", name); ok {
		return cached.(*il.FuncDecl)
	}

	decl := c.newComposeFunction(name, unit)
	c.b.CacheNode("create-compose-function", name, decl)

	c.runHook(unit, "%init")
	if unit.Grammar == nil {
		unit.Grammar = ast.NewGrammarBuilder(unit).Build()
	}
	c.lower(unit.Grammar.Root, nil, nil)
	c.runHook(unit, "%done")

	c.finishComposeFunction()
	return decl
}

// newComposeFunction pushes a fresh (self, outfunc, cookie) function
// and a matching ComposerState, without running any of the grammar.
func (c *Composer) newComposeFunction(name string, unit *ast.Unit) *il.FuncDecl {
	decl := &il.FuncDecl{
		ID: ids.New(name),
		Params: []il.Param{
			{ID: ids.New("__self"), Type: types.TypeType{Inner: types.Unknown}},
			{ID: ids.New("__outfunc"), Type: outputFuncType},
			{ID: ids.New("__cookie"), Type: types.Unknown},
		},
		CC: il.CCHILTIC,
	}
	c.b.PushFunction(decl, false)
	c.pushState(&ComposerState{
		Unit:     unit,
		Self:     il.IDValue{ID: ids.New("__self")},
		OutputFn: il.IDValue{ID: ids.New("__outfunc")},
		Cookie:   il.IDValue{ID: ids.New("__cookie")},
	})
	return decl
}

func (c *Composer) finishComposeFunction() {
	c.popState()
	c.b.PopFunction()
}

func (c *Composer) callComposeFunction(target *il.FuncDecl) {
	bb := c.b.CurrentBuilder()
	bb.Emit(il.Instruction{
		Op:   il.OpCallVoid,
		Args: append([]il.Value{il.IDValue{ID: target.ID}}, c.state().arguments()...),
	})
}

// Compose lowers a production, memoizing non-atomic ones into their
// own IL function to break recursion through mutual field references
// (spec §4.3.2). obj overrides the value being composed (used when
// iterating a container); field carries the attributes/hooks/condition
// governing this step.
func (c *Composer) Compose(p ast.Production, obj il.Value, field *ast.Field) {
	if ast.IsAtomic(p) {
		c.lower(p, obj, field)
		return
	}

	child, isChild := p.(*ast.ChildGrammar)
	if isChild && obj != nil {
		pstate := &ComposerState{Unit: child.ChildType, Self: obj, OutputFn: c.state().OutputFn, Cookie: c.state().Cookie}
		c.pushState(pstate)
		obj = il.IDValue{ID: ids.New("__self")}
	}

	name := strings.ReplaceAll(fmt.Sprintf("__compose_%s_%s", c.state().Unit.ID.Name(), p.Meta().Symbol), ":", "_")

	cached, ok := c.b.LookupNode("compose-func", name)
	var fn *il.FuncDecl
	if !ok {
		fn = c.newComposeFunction(name, c.state().Unit)
		c.b.CacheNode("compose-func", name, fn)
		c.lower(p, obj, field)
		c.finishComposeFunction()
	} else {
		fn = cached.(*il.FuncDecl)
	}
	c.callComposeFunction(fn)

	if isChild && obj != nil {
		c.popState()
	}
}

// lower is the per-production dispatch (spec §4.3.3/§4.3.4): handles
// the field-level condition guard, &try (unsupported, an open
// question per spec §9), hook execution, and then the kind-specific
// lowering.
func (c *Composer) lower(p ast.Production, obj il.Value, f *ast.Field) {
	field := f
	if field == nil {
		field = p.Meta().Field
	}

	if field != nil && !fieldForComposing(field) {
		return
	}

	// The guard, &try check and hooks belong to the field's own step;
	// sub-productions lowered again for the same field skip them.
	own := field != nil && field != c.currentField

	var trueBB, contBB *ilbuilder.BlockBuilder
	if own && field.Condition != nil {
		trueBB, contBB = c.addIf(field.Condition)
		c.b.PushExistingBuilder(trueBB)
	}

	if own && field.Attrs.Has("try") {
		c.diags.Internal("compose: &try attribute semantics not implemented")
	}

	if own {
		c.runFieldHooks(field)
	}

	prevObject := c.object
	if obj != nil {
		c.object = obj
	} else if field != nil {
		c.object = nil
	}

	prevField := c.currentField
	c.currentField = field

	c.startingProduction(p)
	v := &Visitor{c: c}
	v.Walk(p)
	c.finishedProduction()

	c.object = prevObject
	c.currentField = prevField

	if trueBB != nil {
		trueBB.Emit(il.Instruction{Op: il.OpJump, Args: []il.Value{il.BlockValue{Block: contBB.Block()}}})
		c.b.PopBuilder(trueBB)
		c.b.PushExistingBuilder(contBB)
	}
}

// fieldForComposing mirrors type::unit::item::Field::forComposing():
// a field takes part in composing exactly when it has a production.
func fieldForComposing(f *ast.Field) bool {
	return f.Production != nil
}

func (c *Composer) addIf(cond expr.Expr) (trueBB, contBB *ilbuilder.BlockBuilder) {
	contBB = c.b.PushBuilder("cont")
	c.b.PopBuilderTop()
	trueBB = c.b.PushBuilder("true")
	c.b.PopBuilderTop()

	cur := c.b.CurrentBuilder()
	condVal := c.evalCondition(cond)
	cur.Emit(il.Instruction{
		Op:     il.OpIfElse,
		Args:   []il.Value{condVal},
		Cases:  []il.SwitchCase{{Target: trueBB.Block()}, {Target: contBB.Block()}},
		Loc:    cond.Loc(),
		Target: nil,
	})
	return trueBB, contBB
}

// evalCondition lowers the small expr.Expr subset the composer needs
// to read field conditions/discriminants directly into an IL operand.
// Full expression code generation belongs to the out-of-scope
// analysis/codegen stage; this only covers constants, field refs and
// binary operators over those.
func (c *Composer) evalCondition(e expr.Expr) il.Value {
	switch v := e.(type) {
	case expr.BoolLit:
		return il.ConstValue{Type: types.Bool, Go: v.Value}
	case expr.IntLit:
		return il.ConstValue{Type: v.Type(), Go: v.Value}
	case expr.StringLit:
		return il.ConstValue{Type: types.String, Go: v.Value}
	case expr.FieldRef:
		return c.objectFor(&ast.Field{ID: ids.New(v.Name), Type: v.Type()})
	case expr.BinOp:
		tmp := c.b.AddTmp("cond", types.Bool, nil, false)
		c.b.CurrentBuilder().Emit(il.Instruction{
			Target: il.IDValue{ID: tmp.ID},
			Op:     binOpcode(v.Op),
			Args:   []il.Value{c.evalCondition(v.Left), c.evalCondition(v.Right)},
		})
		return il.IDValue{ID: tmp.ID}
	default:
		c.diags.Internal("compose: unsupported condition expression %T", e)
		return nil
	}
}

func binOpcode(op expr.BinOpKind) il.Opcode {
	switch op {
	case expr.OpEq:
		return il.OpEqual
	case expr.OpNe:
		return il.OpNotEqual
	case expr.OpLt:
		return il.OpLess
	case expr.OpLe:
		return il.OpLessEqual
	case expr.OpGt:
		return il.OpGreater
	case expr.OpGe:
		return il.OpGreaterEqual
	case expr.OpAnd:
		return il.OpLogicalAnd
	case expr.OpOr:
		return il.OpLogicalOr
	default:
		return il.OpEqual
	}
}

func (c *Composer) startingProduction(p ast.Production) {
	bb := c.b.CurrentBuilder()
	bb.Emit(il.Instruction{Op: il.OpComment, Comment: "production: " + p.Meta().Symbol})
	c.debugVerbose("composing " + p.Meta().Symbol)
}

func (c *Composer) finishedProduction() {
	c.b.CurrentBuilder().Emit(il.Instruction{Op: il.OpComment})
	c.object = nil
}
