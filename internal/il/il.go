// Package il models the intermediate typed imperative language the
// compiler core emits (spec §3.5): modules own declarations, functions
// and hooks share a declaration stack, blocks are ordered instruction
// lists in a lexical scope. Nothing in this package executes IL or
// lowers it further — that's the out-of-scope downstream backend
// (spec §1); this is purely the construction-time AST for it.
package il

import "github.com/pilc-lang/pilc/internal/ids"

// CallingConvention mirrors hilti::type::function::CallingConvention —
// the core only ever emits HILTI_C (the one consumed by generated
// compose functions, §6.2) but the type exists so the module builder's
// function declarations carry the field, same as the original.
type CallingConvention int

const (
	CCHILTI CallingConvention = iota
	CCHILTIC
)

// Scope chains to a parent by shared reference, per spec §3.5
// ("scopes chain to parent scopes by shared reference"). Declarations
// are looked up by walking outward.
type Scope struct {
	Parent *Scope
	names  map[string]*Declaration
}

func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, names: make(map[string]*Declaration)}
}

func (s *Scope) Bind(name string, d *Declaration) { s.names[name] = d }

func (s *Scope) Lookup(name string) (*Declaration, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if d, ok := sc.names[name]; ok {
			return d, true
		}
	}
	return nil, false
}

func (s *Scope) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// DeclKind distinguishes the kinds of declarations a module/function
// can own.
type DeclKind int

const (
	DeclGlobal DeclKind = iota
	DeclLocal
	DeclTmp
	DeclConstant
	DeclType
	DeclFunction
	DeclHook
	DeclContext
)

// Declaration is one named entity owned by a Module (globals,
// constants, types, functions, hooks) or by a Function's first body
// (locals, tmps).
type Declaration struct {
	ID   ids.ID
	Kind DeclKind
	Type TypeRef
	Init Value
	// Function/Hook bodies live on FuncDecl; non-function declarations
	// leave this nil.
	Func *FuncDecl
}

// TypeRef is an opaque handle into internal/types' Type interface.
// il doesn't import internal/types to avoid a cycle (types' Registry
// lowers to il.StorageType); instead declarations carry the type as
// an "any" satisfying a narrow interface the types package implements.
// types.Type already defines String() for diagnostics, so that's the
// method TypeRef asks for — no separate method name needed.
type TypeRef interface {
	// String renders the type for IL text dumps / error messages.
	String() string
}

// Value is an IL-level operand: a reference to a declaration, a
// constant, or the result of a prior instruction.
type Value interface {
	valueMarker()
}

// IDValue references a declared global/local/tmp/function by ID.
type IDValue struct{ ID ids.ID }

func (IDValue) valueMarker() {}

// ConstValue is an immediate constant operand.
type ConstValue struct {
	Type TypeRef
	Go   any // Go-native representation: int64, float64, bool, string, []byte
}

func (ConstValue) valueMarker() {}

// NullValue is the null reference constant.
type NullValue struct{ Type TypeRef }

func (NullValue) valueMarker() {}

// BlockValue references a Block by its label, for flow instructions
// such as Jump. IfElse and Switch targets are carried in
// Instruction.Cases instead.
type BlockValue struct{ Block *Block }

func (BlockValue) valueMarker() {}

// Opcode enumerates the instruction mnemonics the composer (and the
// module builder's own bookkeeping) emits. This is a small, purpose-
// built subset of the full HILTI instruction set (spec §6.2), not an
// attempt to reproduce it exhaustively — only what composing a unit
// needs.
type Opcode int

const (
	OpComment Opcode = iota
	OpAssign
	OpCallVoid
	OpCall
	OpJump
	OpIfElse
	OpSwitch
	OpBegin // iterator begin
	OpEnd   // iterator end
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpLogicalAnd
	OpLogicalOr
	OpDeref
	OpIncr
	OpPack
	OpSelectValue
	OpBitOr
	OpTupleIndex
	OpNewException
	OpThrow
	OpDebugMsg
	OpDebugPushIndent
	OpDebugPopIndent
)

// SwitchCase is one arm of an OpSwitch instruction: the constant
// values that select it, and the block to jump to.
type SwitchCase struct {
	Values []Value
	Target *Block
}

// Instruction is one IL statement: a target (optional, for
// expression-valued ops), an opcode, and its operands.
type Instruction struct {
	Target  Value // nil for void instructions
	Op      Opcode
	Args    []Value
	Cases   []SwitchCase // only for OpSwitch and OpIfElse
	Comment string       // only for OpComment and OpDebugMsg
	Loc     ids.Location
}

// Block is an ordered instruction list in a lexical scope, identified
// by a unique label within its owning function (spec §8.1 "label
// uniqueness within function").
type Block struct {
	Label        string
	Scope        *Scope
	Instructions []Instruction
}

func NewBlock(label string, parent *Scope) *Block {
	return &Block{Label: label, Scope: NewScope(parent)}
}

func (b *Block) Emit(i Instruction) { b.Instructions = append(b.Instructions, i) }

func (b *Block) Len() int { return len(b.Instructions) }

// Body is a statement block whose scope chains to the enclosing scope
// (spec §4.2 pushBody/popBody) — in practice, a function's first body
// holds its locals/tmps and its sequence of Blocks.
type Body struct {
	Scope  *Scope
	Blocks []*Block
}

// Param is one function/hook parameter.
type Param struct {
	ID   ids.ID
	Type TypeRef
}

// FuncDecl is a function or hook declaration. Hooks are a subtype
// carrying Priority/Group (spec §3.5, §4.2): they share the same
// stack and struct, distinguished by IsHook.
type FuncDecl struct {
	ID         ids.ID
	Params     []Param
	ResultType TypeRef // nil for void
	CC         CallingConvention
	Exported   bool
	NoBody     bool
	Bodies     []*Body

	IsHook   bool
	Priority int64
	Group    int64
}

// ContextDecl is the module's at-most-one context declaration (spec
// design-notes supplement: per-connection/per-parse state distinct
// from a unit's own fields). The core does not interpret its
// contents.
type ContextDecl struct {
	Type TypeRef
}

// DomainMode flags a downstream-optimization request the module
// carries but does not itself interpret (design-notes supplement,
// grounded on hilti::builder::ModuleBuilder::buildForBinPAC).
type DomainMode int

const (
	DomainModeNone DomainMode = iota
	DomainModeProtocolParser
)

// Module owns a statement body, a set of global declarations, and a
// list of imported module paths (spec §3.5). The AST forms a tree
// with back-edges held as weak references — in Go terms, cross-module
// references are ids.ID lookups against Module.Scope, never pointers
// into another module's declaration list.
type Module struct {
	ID      ids.ID
	Path    string
	Scope   *Scope
	Imports []ids.ID

	Globals   []*Declaration
	Constants []*Declaration
	Types     []*Declaration
	Functions []*Declaration // DeclFunction / DeclHook

	Context *ContextDecl
	Mode    DomainMode

	exportedIDs map[string]bool
}

func NewModule(id ids.ID, path string) *Module {
	return &Module{
		ID:          id,
		Path:        path,
		Scope:       NewScope(nil),
		exportedIDs: make(map[string]bool),
	}
}

// Export marks an ID as externally visible (spec §4.2 exportID).
func (m *Module) Export(name string) { m.exportedIDs[name] = true }

// Exported reports whether a given ID was exported.
func (m *Module) Exported(name string) bool { return m.exportedIDs[name] }
