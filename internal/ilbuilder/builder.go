// Package ilbuilder implements the stateful module-construction facade
// (spec §4.2): a single Builder owns nested stacks of functions,
// bodies and block builders, mints unique labels and temporary names,
// and is the only way the rest of the compiler constructs an
// il.Module. It is a direct generalization of a HILTI-style module
// builder to an arbitrary target IL, keeping the same push/pop
// discipline and the same three declaration styles.
package ilbuilder

import (
	"fmt"
	"strings"

	"github.com/pilc-lang/pilc/internal/diag"
	"github.com/pilc-lang/pilc/internal/ids"
	"github.com/pilc-lang/pilc/internal/il"
	"github.com/pilc-lang/pilc/internal/options"
	"github.com/pilc-lang/pilc/internal/types"
)

// DeclStyle selects how AddGlobal/AddLocal/AddType behave when the
// requested name already exists (spec §4.2 "three declaration
// styles").
type DeclStyle int

const (
	// Reuse returns the existing declaration if kind and type match,
	// and otherwise adds a new declaration under a suffixed name, as
	// MakeUnique does. This is the default: most add calls are
	// idempotent re-declarations of the same thing.
	Reuse DeclStyle = iota
	// CheckUnique raises an internal error if the name already exists,
	// regardless of kind/type.
	CheckUnique
	// MakeUnique appends a numeric suffix until the name is free.
	MakeUnique
)

type declEntry struct {
	kind string
	typ  types.Type
	decl *il.Declaration
}

// BlockBuilder wraps a single il.Block plus the function it belongs
// to, so instructions emitted through it land in the right place and
// PopBuilder can identify "everything above me on the stack".
type BlockBuilder struct {
	block *il.Block
	owner *functionState
}

// Block returns the underlying IL block being built.
func (b *BlockBuilder) Block() *il.Block { return b.block }

// Emit appends an instruction to the block under construction.
func (b *BlockBuilder) Emit(i il.Instruction) { b.block.Emit(i) }

type bodyState struct {
	body     *il.Body
	builders []*BlockBuilder
}

type functionState struct {
	decl   *il.FuncDecl
	bodies []*bodyState
	locals map[string]*declEntry
	labels map[string]bool
}

func (f *functionState) currentBody() *bodyState {
	if len(f.bodies) == 0 {
		return nil
	}
	return f.bodies[len(f.bodies)-1]
}

func (f *functionState) currentBuilder() *BlockBuilder {
	b := f.currentBody()
	if b == nil || len(b.builders) == 0 {
		return nil
	}
	return b.builders[len(b.builders)-1]
}

// Builder is the module-construction facade. It is not safe for
// concurrent use — one Builder is owned by exactly one goroutine
// compiling exactly one module (spec §5).
type Builder struct {
	module *il.Module
	diags  *diag.Bag
	opts   *options.Options

	functions   []*functionState // stack; last is current
	moduleInit  *functionState   // the module's single implicit init function, created lazily
	moduleInitN int              // push/pop balance for PushModuleInit/PopModuleInit
	globals     map[string]*declEntry
	constants   map[string]*declEntry
	typeDecls   map[string]*declEntry
	importedIDs map[string]bool // lower-cased module names, for EqualModule semantics

	nodeCache         map[string]any
	blockBuilderCache map[string]*BlockBuilder

	finalized bool
}

// NewBuilder starts building a new module (spec §4.2 ModuleBuilder
// constructor).
func NewBuilder(id ids.ID, path string, opts *options.Options, diags *diag.Bag) *Builder {
	return &Builder{
		module:            il.NewModule(id, path),
		diags:             diags,
		opts:              opts,
		globals:           make(map[string]*declEntry),
		constants:         make(map[string]*declEntry),
		typeDecls:         make(map[string]*declEntry),
		importedIDs:       make(map[string]bool),
		nodeCache:         make(map[string]any),
		blockBuilderCache: make(map[string]*BlockBuilder),
	}
}

// Module returns the module AST being built. Before Finalize, it may
// still contain unresolved forward references.
func (b *Builder) Module() *il.Module { return b.module }

// ImportModule records an import, idempotently: importing the same
// module name twice (case-insensitively, spec §4.2 import idempotence)
// is a no-op the second time.
func (b *Builder) ImportModule(id ids.ID) {
	key := strings.ToLower(id.String())
	if b.importedIDs[key] {
		return
	}
	b.importedIDs[key] = true
	b.module.Imports = append(b.module.Imports, id)
}

// Imported reports whether a module of the given name has been
// imported.
func (b *Builder) Imported(id ids.ID) bool {
	return b.importedIDs[strings.ToLower(id.String())]
}

// ExportID marks an ID as externally visible.
func (b *Builder) ExportID(name string) { b.module.Export(name) }

// SetDomainMode flags the module for downstream protocol-parser
// specific optimization, the generalized form of
// ModuleBuilder::buildForBinPAC.
func (b *Builder) SetDomainMode(mode il.DomainMode) { b.module.Mode = mode }

// AddContext installs the module's at-most-one context declaration.
func (b *Builder) AddContext(t types.Type) {
	b.module.Context = &il.ContextDecl{Type: t}
}

// --- function / hook stack -------------------------------------------------

// PushFunction pushes a function onto the stack of those currently
// being built. Unless noBody is set, it also pushes an initial body
// and block builder, so CurrentBuilder() immediately returns something
// usable.
func (b *Builder) PushFunction(decl *il.FuncDecl, noBody bool) *il.Declaration {
	fs := &functionState{decl: decl, locals: make(map[string]*declEntry), labels: make(map[string]bool)}
	b.functions = append(b.functions, fs)

	entry := &il.Declaration{ID: decl.ID, Kind: declKindFor(decl), Func: decl}
	b.module.Functions = append(b.module.Functions, entry)

	decl.NoBody = noBody
	if !noBody {
		b.PushBody(false)
	}
	return entry
}

func declKindFor(decl *il.FuncDecl) il.DeclKind {
	if decl.IsHook {
		return il.DeclHook
	}
	return il.DeclFunction
}

// PushHook is PushFunction specialized for hooks: it stamps IsHook,
// Priority and Group on the declaration before pushing.
func (b *Builder) PushHook(decl *il.FuncDecl, priority, group int64, noBody bool) *il.Declaration {
	decl.IsHook = true
	decl.Priority = priority
	decl.Group = group
	return b.PushFunction(decl, noBody)
}

// PopFunction pops the top function from the stack currently being
// built; it is a fatal internal error to call this with an empty
// stack (spec §7: compiler-internal invariant violation).
func (b *Builder) PopFunction() *il.FuncDecl {
	if len(b.functions) == 0 {
		b.diags.Internal("ilbuilder: PopFunction with no function pushed")
	}
	top := b.functions[len(b.functions)-1]
	b.functions = b.functions[:len(b.functions)-1]
	return top.decl
}

// PopHook is an alias for PopFunction — hooks and functions share one
// stack (spec §4.2).
func (b *Builder) PopHook() *il.FuncDecl { return b.PopFunction() }

func (b *Builder) currentFunction() *functionState {
	if len(b.functions) == 0 {
		return nil
	}
	return b.functions[len(b.functions)-1]
}

// --- body stack --------------------------------------------------------

// PushBody pushes a new body (a series of blocks sharing a scope) onto
// the current function's stack. Unless noBuilder is set, it also
// pushes an initial block builder and returns it.
func (b *Builder) PushBody(noBuilder bool) *BlockBuilder {
	fs := b.currentFunction()
	if fs == nil {
		b.diags.Internal("ilbuilder: PushBody outside of any function")
	}
	parentScope := b.module.Scope
	if cur := fs.currentBody(); cur != nil {
		parentScope = cur.body.Scope
	}
	body := &il.Body{Scope: il.NewScope(parentScope)}
	fs.decl.Bodies = append(fs.decl.Bodies, body)
	fs.bodies = append(fs.bodies, &bodyState{body: body})

	if noBuilder {
		return nil
	}
	return b.PushBuilder(b.newLabel(fs, "entry"))
}

// PopBody pops the top body from the current function's stack.
func (b *Builder) PopBody() *il.Body {
	fs := b.currentFunction()
	if fs == nil || len(fs.bodies) == 0 {
		b.diags.Internal("ilbuilder: PopBody with no body pushed")
	}
	top := fs.bodies[len(fs.bodies)-1]
	fs.bodies = fs.bodies[:len(fs.bodies)-1]
	return top.body
}

// --- block builder stack ------------------------------------------------

// NewLabel mints a unique block label within the current function,
// the way ModuleBuilder::newBuilder does: "@"-prefixed, any "-"
// replaced with "_", and a numeric suffix appended until it doesn't
// collide with any label already used in this function.
func (b *Builder) NewLabel(hint string) string {
	fs := b.currentFunction()
	return b.newLabel(fs, hint)
}

func (b *Builder) newLabel(fs *functionState, hint string) string {
	clean := strings.ReplaceAll(hint, "-", "_")
	base := "@" + clean
	if fs == nil {
		return base
	}
	label := base
	for n := 1; fs.labels[label]; n++ {
		label = fmt.Sprintf("%s_%d", base, n)
	}
	fs.labels[label] = true
	return label
}

// PushBuilder creates a new block under the given label hint, pushes
// it onto the current body's builder stack, and returns it.
func (b *Builder) PushBuilder(labelHint string) *BlockBuilder {
	fs := b.currentFunction()
	if fs == nil {
		b.diags.Internal("ilbuilder: PushBuilder outside of any function")
	}
	body := fs.currentBody()
	if body == nil {
		b.diags.Internal("ilbuilder: PushBuilder with no body pushed")
	}
	label := labelHint
	if !strings.HasPrefix(label, "@") {
		label = b.newLabel(fs, label)
	}
	block := il.NewBlock(label, body.body.Scope)
	body.body.Blocks = append(body.body.Blocks, block)
	bb := &BlockBuilder{block: block, owner: fs}
	body.builders = append(body.builders, bb)
	return bb
}

// PushExistingBuilder pushes an already-constructed BlockBuilder (e.g.
// one retrieved from CacheBlockBuilder) back onto its owning function's
// current body stack.
func (b *Builder) PushExistingBuilder(bb *BlockBuilder) *BlockBuilder {
	body := bb.owner.currentBody()
	if body == nil {
		b.diags.Internal("ilbuilder: PushExistingBuilder with no body on owning function")
	}
	body.builders = append(body.builders, bb)
	return bb
}

// PopBuilder removes a previously pushed block builder from its
// function's stack, discarding everything pushed on top of it too
// (spec §4.2 popBuilder(builder): "removes ... including everything on
// top of it").
func (b *Builder) PopBuilder(target *BlockBuilder) *BlockBuilder {
	body := target.owner.currentBody()
	if body == nil {
		b.diags.Internal("ilbuilder: PopBuilder on a function with no current body")
	}
	for i := len(body.builders) - 1; i >= 0; i-- {
		if body.builders[i] == target {
			body.builders = body.builders[:i]
			return target
		}
	}
	b.diags.Internal("ilbuilder: PopBuilder target not found on its function's stack")
	return nil
}

// PopBuilderTop removes just the top-most block builder from the
// current function's current body.
func (b *Builder) PopBuilderTop() *BlockBuilder {
	fs := b.currentFunction()
	if fs == nil {
		b.diags.Internal("ilbuilder: PopBuilderTop outside of any function")
	}
	body := fs.currentBody()
	if body == nil || len(body.builders) == 0 {
		b.diags.Internal("ilbuilder: PopBuilderTop with no builder pushed")
	}
	top := body.builders[len(body.builders)-1]
	body.builders = body.builders[:len(body.builders)-1]
	return top
}

// CurrentFunction returns the function currently being built, or nil
// if none.
func (b *Builder) CurrentFunction() *il.FuncDecl {
	if fs := b.currentFunction(); fs != nil {
		return fs.decl
	}
	return nil
}

// CurrentBuilder returns the top builder on the current function's
// body stack.
func (b *Builder) CurrentBuilder() *BlockBuilder {
	fs := b.currentFunction()
	if fs == nil {
		return nil
	}
	return fs.currentBuilder()
}

// --- module-init pseudo-function ---------------------------------------

// PushModuleInit makes the module's implicit init function the current
// function, used to initialize globals that need more than a constant
// expression. The first call creates the function and its entry body;
// later calls add a fresh "init" block builder to that body. Must be
// matched with PopModuleInit.
func (b *Builder) PushModuleInit() *BlockBuilder {
	if b.moduleInit == nil {
		initID := ids.New(b.module.ID.String() + "::__init")
		decl := &il.FuncDecl{ID: initID, CC: il.CCHILTI}
		b.moduleInit = &functionState{
			decl:   decl,
			locals: make(map[string]*declEntry),
			labels: make(map[string]bool),
		}
		b.module.Functions = append(b.module.Functions, &il.Declaration{ID: initID, Kind: il.DeclFunction, Func: decl})
	}
	fs := b.moduleInit
	b.functions = append(b.functions, fs)
	b.moduleInitN++
	if fs.currentBody() == nil {
		b.PushBody(false)
		return fs.currentBuilder()
	}
	return b.PushBuilder(b.newLabel(fs, "init"))
}

// PopModuleInit pops the init function frame pushed by the most recent
// PushModuleInit.
func (b *Builder) PopModuleInit() {
	if b.moduleInitN == 0 {
		b.diags.Internal("ilbuilder: PopModuleInit with no module-init body pushed")
	}
	b.moduleInitN--
	if len(b.functions) > 0 {
		b.functions = b.functions[:len(b.functions)-1]
	}
}

// --- declarations --------------------------------------------------------

func (b *Builder) uniqueName(decls map[string]*declEntry, name, kind string, t types.Type, style DeclStyle) (string, *declEntry, bool) {
	existing, ok := decls[name]
	switch style {
	case Reuse:
		if !ok {
			return name, nil, false
		}
		if existing.kind != kind || !types.Equal(existing.typ, t) {
			return b.uniqueName(decls, name, kind, t, MakeUnique)
		}
		return name, existing, true
	case CheckUnique:
		if ok {
			b.diags.Internal("ilbuilder: %q already declared", name)
		}
		return name, nil, false
	case MakeUnique:
		if !ok {
			return name, nil, false
		}
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s_%d", name, n)
			if _, taken := decls[candidate]; !taken {
				return candidate, nil, false
			}
		}
	default:
		return name, nil, false
	}
}

// AddGlobal adds a global variable declaration to the module.
func (b *Builder) AddGlobal(id ids.ID, t types.Type, init il.Value, style DeclStyle) *il.Declaration {
	name, existing, reused := b.uniqueName(b.globals, id.Name(), "global", t, style)
	if reused {
		return existing.decl
	}
	finalID := ids.NewAt(name, id.Location)
	decl := &il.Declaration{ID: finalID, Kind: il.DeclGlobal, Type: t, Init: init}
	b.globals[name] = &declEntry{kind: "global", typ: t, decl: decl}
	b.module.Globals = append(b.module.Globals, decl)
	b.module.Scope.Bind(name, decl)
	return decl
}

// AddConstant adds a global constant declaration to the module.
func (b *Builder) AddConstant(id ids.ID, t types.Type, init il.Value, style DeclStyle) *il.Declaration {
	name, existing, reused := b.uniqueName(b.constants, id.Name(), "constant", t, style)
	if reused {
		return existing.decl
	}
	finalID := ids.NewAt(name, id.Location)
	decl := &il.Declaration{ID: finalID, Kind: il.DeclConstant, Type: t, Init: init}
	b.constants[name] = &declEntry{kind: "constant", typ: t, decl: decl}
	b.module.Constants = append(b.module.Constants, decl)
	b.module.Scope.Bind(name, decl)
	return decl
}

// AddType adds a type declaration to the module.
func (b *Builder) AddType(id ids.ID, t types.Type, style DeclStyle) *il.Declaration {
	name, existing, reused := b.uniqueName(b.typeDecls, id.Name(), "type", t, style)
	if reused {
		return existing.decl
	}
	finalID := ids.NewAt(name, id.Location)
	decl := &il.Declaration{ID: finalID, Kind: il.DeclType, Type: t}
	b.typeDecls[name] = &declEntry{kind: "type", typ: t, decl: decl}
	b.module.Types = append(b.module.Types, decl)
	b.module.Scope.Bind(name, decl)
	return decl
}

// HasType reports whether a type of the given name has been declared.
func (b *Builder) HasType(name string) bool {
	_, ok := b.typeDecls[name]
	return ok
}

// LookupType resolves a declared type's name back to its types.Type.
func (b *Builder) LookupType(name string) (types.Type, bool) {
	e, ok := b.typeDecls[name]
	if !ok {
		return nil, false
	}
	return e.typ, true
}

// AddLocal adds a local variable to the current function.
func (b *Builder) AddLocal(id ids.ID, t types.Type, init il.Value, style DeclStyle) *il.Declaration {
	fs := b.currentFunction()
	if fs == nil {
		b.diags.Internal("ilbuilder: AddLocal outside of any function")
	}
	name, existing, reused := b.uniqueName(fs.locals, id.Name(), "local", t, style)
	if reused {
		return existing.decl
	}
	finalID := ids.NewAt(name, id.Location)
	decl := &il.Declaration{ID: finalID, Kind: il.DeclLocal, Type: t, Init: init}
	fs.locals[name] = &declEntry{kind: "local", typ: t, decl: decl}
	if len(fs.bodies) > 0 {
		fs.bodies[0].body.Scope.Bind(name, decl)
	}
	return decl
}

// HasLocal reports whether a local of the given name exists in the
// current function.
func (b *Builder) HasLocal(name string) bool {
	fs := b.currentFunction()
	if fs == nil {
		return false
	}
	_, ok := fs.locals[name]
	return ok
}

// AddTmp adds a temporary variable to the current function. Temps are
// always prefixed "__tmp_" and, unless reuse is set, are always minted
// fresh (spec §4.2 addTmp).
func (b *Builder) AddTmp(hint string, t types.Type, init il.Value, reuse bool) *il.Declaration {
	fs := b.currentFunction()
	if fs == nil {
		b.diags.Internal("ilbuilder: AddTmp outside of any function")
	}
	name := "__tmp_" + hint
	style := MakeUnique
	if reuse {
		style = Reuse
	}
	resolved, existing, reused := b.uniqueName(fs.locals, name, "tmp", t, style)
	if reused {
		return existing.decl
	}
	decl := &il.Declaration{ID: ids.New(resolved), Kind: il.DeclTmp, Type: t, Init: init}
	fs.locals[resolved] = &declEntry{kind: "tmp", typ: t, decl: decl}
	if len(fs.bodies) > 0 {
		fs.bodies[0].body.Scope.Bind(resolved, decl)
	}
	return decl
}

// --- node / block-builder caching ---------------------------------------

func cacheKey(component, idx string) string { return component + "\x00" + idx }

// CacheNode stores an arbitrary built value (a production's lowered
// function declaration, typically) under a (component, idx) key, so
// repeated requests to lower the same production return the same IL
// rather than re-emitting it (spec §4.3.2 memoization).
func (b *Builder) CacheNode(component, idx string, node any) {
	b.nodeCache[cacheKey(component, idx)] = node
}

// LookupNode retrieves a previously cached value.
func (b *Builder) LookupNode(component, idx string) (any, bool) {
	v, ok := b.nodeCache[cacheKey(component, idx)]
	return v, ok
}

// CacheBlockBuilder builds a block the first time it is requested
// under a given tag within the current function, then returns the
// cached builder on subsequent calls without invoking build again.
func (b *Builder) CacheBlockBuilder(tag string, build func(*BlockBuilder)) *BlockBuilder {
	fs := b.currentFunction()
	if fs == nil {
		b.diags.Internal("ilbuilder: CacheBlockBuilder outside of any function")
	}
	key := fmt.Sprintf("%p:%s", fs, tag)
	if bb, ok := b.blockBuilderCache[key]; ok {
		return bb
	}
	bb := b.PushBuilder(tag)
	build(bb)
	b.PopBuilder(bb)
	b.blockBuilderCache[key] = bb
	return bb
}

// Finalize completes the building process. It must be called before
// the module is handed to a downstream consumer.
func (b *Builder) Finalize() *il.Module {
	b.finalized = true
	if b.diags.HasErrors() {
		return nil
	}
	return b.module
}
