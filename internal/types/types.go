// Package types implements the compiler's closed-set type system and
// the RTTI builder that lowers each type to a runtime descriptor
// (spec §3.2, §3.6, §4.1). The Type variants mirror a Hindley-Milner-
// free, trait-tagged taxonomy: no unification, no type variables —
// every Type is fully concrete by the time the composer sees it.
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pilc-lang/pilc/internal/ids"
)

// Trait is one orthogonal capability tag a Type variant can carry.
// Traits drive downstream behavior (storage layout, RTTI function
// pointers, composer dispatch) rather than being mere documentation.
type Trait uint32

const (
	TraitValueType Trait = 1 << iota
	TraitHeapType
	TraitParameterized
	TraitTypeList
	TraitIterable
	TraitContainer
	TraitHashable
	TraitAtomic
	TraitUnpackable
	TraitClassifiable
	TraitBlockable
	TraitGarbageCollected
)

func (t Trait) Has(flag Trait) bool { return t&flag != 0 }

// Type is the interface every variant implements. Variants are told
// apart with type switches; key() is the structural key that Equal and
// the RTTI cache use.
type Type interface {
	// String renders the type the way it would appear in IL text dumps
	// and diagnostics.
	String() string
	// Traits returns this type's orthogonal capability tags.
	Traits() Trait
	// key returns a structural equality key, ignoring source location,
	// used to memoize RTTI descriptors (spec invariant: "rtti(T1) ==
	// rtti(T2) whenever T1.equal(T2)").
	key() string
}

// Equal implements the Parameterized::equal invariant: reflexive,
// symmetric, transitive, and location-independent. It is just
// structural-key equality.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.key() == b.key()
}

// --- simple, unparameterized primitives -----------------------------------

type simple struct {
	name   string
	traits Trait
}

func (s simple) String() string { return s.name }
func (s simple) Traits() Trait  { return s.traits }
func (s simple) key() string    { return s.name }

var (
	Void    Type = simple{"void", TraitValueType}
	Any     Type = simple{"any", 0}
	Unknown Type = simple{"unknown", 0}
	Label   Type = simple{"label", TraitValueType}
	Block   Type = simple{"block", TraitValueType}
	Module  Type = simple{"module", TraitValueType}
	Unset   Type = simple{"unset", TraitValueType}
	String  Type = simple{"string", TraitValueType | TraitHashable | TraitAtomic}
	Bool    Type = simple{"bool", TraitValueType | TraitHashable | TraitAtomic}
	Double  Type = simple{"double", TraitValueType | TraitAtomic}
	Network Type = simple{"net", TraitValueType | TraitHashable | TraitAtomic}
	Port    Type = simple{"port", TraitValueType | TraitHashable | TraitAtomic}
	Interval Type = simple{"interval", TraitValueType | TraitAtomic}
	Time    Type = simple{"time", TraitValueType | TraitAtomic}
	CAddr   Type = simple{"caddr", TraitValueType}
	Bytes   Type = simple{"bytes", TraitHeapType | TraitGarbageCollected | TraitIterable | TraitContainer | TraitUnpackable}
	RegExp  Type = simple{"regexp", TraitHeapType | TraitGarbageCollected}
	File    Type = simple{"file", TraitHeapType | TraitGarbageCollected}
	Callable Type = simple{"callable", TraitHeapType | TraitGarbageCollected}
	Timer   Type = simple{"timer", TraitHeapType | TraitGarbageCollected}
	TimerMgr Type = simple{"timer_mgr", TraitHeapType | TraitGarbageCollected}
	MatchTokenState Type = simple{"match_token_state", TraitHeapType | TraitGarbageCollected}
	Context Type = simple{"context", TraitHeapType | TraitGarbageCollected}
)

// UnknownID is the `Unknown(id)` variant (spec §3.2 primitive list):
// a type name yet to be resolved via the enclosing module's scope.
type UnknownID struct{ ID ids.ID }

func (u UnknownID) String() string { return "unknown<" + u.ID.String() + ">" }
func (u UnknownID) Traits() Trait  { return 0 }
func (u UnknownID) key() string    { return "unknown<" + u.ID.String() + ">" }

// Address requires exactly one of &ipv4/&ipv6 at the field-attribute
// level (composer concern, spec §4.3.6); the type itself is a single
// variant.
type AddressType struct{}

func (AddressType) String() string { return "addr" }
func (AddressType) Traits() Trait  { return TraitValueType | TraitHashable | TraitAtomic }
func (AddressType) key() string    { return "addr" }

var Address Type = AddressType{}

// IOSourceKind distinguishes the IOSource(kind) parameterization.
type IOSourceKind int

const (
	IOSourcePacket IOSourceKind = iota
	IOSourceFile
)

type IOSource struct{ Kind IOSourceKind }

func (s IOSource) String() string { return fmt.Sprintf("iosrc<%d>", s.Kind) }
func (s IOSource) Traits() Trait  { return TraitHeapType | TraitGarbageCollected | TraitParameterized }
func (s IOSource) key() string    { return s.String() }

// Integer(width, signed).
type Integer struct {
	Width  int
	Signed bool
}

func (i Integer) String() string {
	sign := "u"
	if i.Signed {
		sign = ""
	}
	return fmt.Sprintf("%sint%d", sign, i.Width)
}
func (i Integer) Traits() Trait {
	return TraitValueType | TraitHashable | TraitAtomic | TraitParameterized | TraitUnpackable
}
func (i Integer) key() string { return i.String() }

// Bitset(labels) / Enum(labels): ordered (value, label) pairs.
type EnumLabel struct {
	Name  string
	Value int64
}

type Bitset struct{ Labels []EnumLabel }

func (b Bitset) String() string {
	parts := make([]string, len(b.Labels))
	for i, l := range b.Labels {
		parts[i] = l.Name
	}
	return "bitset<" + strings.Join(parts, ",") + ">"
}
func (b Bitset) Traits() Trait {
	return TraitValueType | TraitHashable | TraitAtomic | TraitParameterized
}
func (b Bitset) key() string { return b.String() }

type Enum struct{ Labels []EnumLabel }

func (e Enum) String() string {
	parts := make([]string, len(e.Labels))
	for i, l := range e.Labels {
		parts[i] = l.Name
	}
	return "enum<" + strings.Join(parts, ",") + ">"
}
func (e Enum) Traits() Trait {
	return TraitValueType | TraitHashable | TraitAtomic | TraitParameterized
}
func (e Enum) key() string { return e.String() }

// Channel<T>.
type Channel struct{ Elem Type }

func (c Channel) String() string { return "channel<" + c.Elem.String() + ">" }
func (c Channel) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized
}
func (c Channel) key() string { return c.String() }

// Exception(base, arg).
type Exception struct {
	Base Type // nil for the root exception type
	Arg  Type // nil if the exception carries no argument
}

func (e Exception) String() string {
	argS := "void"
	if e.Arg != nil {
		argS = e.Arg.String()
	}
	return "exception<" + argS + ">"
}
func (e Exception) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized
}
func (e Exception) key() string { return e.String() }

// Reference<T> requires T: HeapType (invariant d).
type Reference struct{ Target Type }

func NewReference(target Type) (Reference, error) {
	if target != nil && !target.Traits().Has(TraitHeapType) {
		return Reference{}, fmt.Errorf("reference<T> requires T to be a heap type, got %s", target)
	}
	return Reference{Target: target}, nil
}

func (r Reference) String() string {
	if r.Target == nil {
		return "ref<*>"
	}
	return "ref<" + r.Target.String() + ">"
}
func (r Reference) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized
}
func (r Reference) key() string { return r.String() }

// Iterator<T> requires T: Iterable (invariant e).
type Iterator struct{ Container Type }

func NewIterator(container Type) (Iterator, error) {
	if container != nil && !container.Traits().Has(TraitIterable) {
		return Iterator{}, fmt.Errorf("iterator<T> requires T to be iterable, got %s", container)
	}
	return Iterator{Container: container}, nil
}

func (it Iterator) String() string {
	if it.Container == nil {
		return "iterator<*>"
	}
	return "iterator<" + it.Container.String() + ">"
}
func (it Iterator) Traits() Trait {
	return TraitValueType | TraitParameterized
}
func (it Iterator) key() string { return it.String() }

// Tuple(names?, types) — a TypeList.
type Tuple struct {
	Names []string // parallel to Elems; empty string where unnamed
	Elems []Type    // nil (wildcard Tuple<*>) is represented by Elems == nil, Wildcard == true
	Wildcard bool
}

func (t Tuple) String() string {
	if t.Wildcard {
		return "tuple<*>"
	}
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		if i < len(t.Names) && t.Names[i] != "" {
			parts[i] = t.Names[i] + ": " + e.String()
		} else {
			parts[i] = e.String()
		}
	}
	return "tuple<" + strings.Join(parts, ",") + ">"
}
func (t Tuple) Traits() Trait {
	return TraitValueType | TraitParameterized | TraitTypeList
}
func (t Tuple) key() string { return t.String() }
func (t Tuple) TypeList() []Type { return t.Elems }

// Map<K,V>, Set<T>, List<T>, Vector<T> — Containers (subset of Iterable).
type Map struct{ Key, Value Type }

func (m Map) String() string { return "map<" + m.Key.String() + "," + m.Value.String() + ">" }
func (m Map) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized | TraitIterable | TraitContainer
}
func (m Map) key() string { return m.String() }
func (m Map) ElementType() Type { return m.Value }
func (m Map) IterType() Type    { it, _ := NewIterator(m); return it }

type Set struct{ Elem Type }

func (s Set) String() string { return "set<" + s.Elem.String() + ">" }
func (s Set) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized | TraitIterable | TraitContainer
}
func (s Set) key() string { return s.String() }
func (s Set) ElementType() Type { return s.Elem }
func (s Set) IterType() Type    { it, _ := NewIterator(s); return it }

type List struct{ Elem Type }

func (l List) String() string { return "list<" + l.Elem.String() + ">" }
func (l List) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized | TraitIterable | TraitContainer
}
func (l List) key() string { return l.String() }
func (l List) ElementType() Type { return l.Elem }
func (l List) IterType() Type    { it, _ := NewIterator(l); return it }

type Vector struct{ Elem Type }

func (v Vector) String() string { return "vector<" + v.Elem.String() + ">" }
func (v Vector) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized | TraitIterable | TraitContainer
}
func (v Vector) key() string { return v.String() }
func (v Vector) ElementType() Type { return v.Elem }
func (v Vector) IterType() Type    { it, _ := NewIterator(v); return it }

// Field is one named member of a Struct/Union/Overlay.
type Field struct {
	Name string
	Type Type
}

// validateUniqueFieldNames enforces invariant (f): names unique within
// the composite.
func validateUniqueFieldNames(fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			continue // anonymous fields don't participate in uniqueness
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name %q in composite type", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Struct(fields).
type Struct struct{ Fields []Field }

func NewStruct(fields []Field) (Struct, error) {
	if err := validateUniqueFieldNames(fields); err != nil {
		return Struct{}, err
	}
	return Struct{Fields: fields}, nil
}

func (s Struct) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "struct{" + strings.Join(parts, ",") + "}"
}
func (s Struct) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized
}
func (s Struct) key() string { return s.String() }

// Union(fields, anonymous?).
type Union struct {
	Fields    []Field
	Anonymous bool
}

func NewUnion(fields []Field, anonymous bool) (Union, error) {
	if err := validateUniqueFieldNames(fields); err != nil {
		return Union{}, err
	}
	return Union{Fields: fields, Anonymous: anonymous}, nil
}

func (u Union) String() string {
	parts := make([]string, len(u.Fields))
	for i, f := range u.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "union{" + strings.Join(parts, ",") + "}"
}
func (u Union) Traits() Trait {
	return TraitValueType | TraitParameterized
}
func (u Union) key() string { return u.String() }

// Overlay(fields): like Struct but backed by an offset-addressed byte
// buffer rather than a packed record; only the composer's field-offset
// aux data (shared with Struct) distinguishes it downstream.
type Overlay struct{ Fields []Field }

func (o Overlay) String() string {
	parts := make([]string, len(o.Fields))
	for i, f := range o.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return "overlay{" + strings.Join(parts, ",") + "}"
}
func (o Overlay) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized
}
func (o Overlay) key() string { return o.String() }

// ClassifierRule is one (value, type) match arm of a Classifier.
type ClassifierRule struct {
	Value Type
}

type Classifier struct {
	Rules []ClassifierRule
	Value Type
}

func (c Classifier) String() string { return "classifier<" + c.Value.String() + ">" }
func (c Classifier) Traits() Trait {
	return TraitHeapType | TraitGarbageCollected | TraitParameterized | TraitClassifiable
}
func (c Classifier) key() string { return c.String() }

// FunctionSig describes a callable's signature for HiltiFunction/Hook.
type FunctionSig struct {
	Params []Type
	Result Type // nil for void
}

func (s FunctionSig) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	res := "void"
	if s.Result != nil {
		res = s.Result.String()
	}
	return "(" + strings.Join(parts, ",") + ")->" + res
}

type HiltiFunction struct{ Sig FunctionSig }

func (f HiltiFunction) String() string { return "function" + f.Sig.String() }
func (f HiltiFunction) Traits() Trait  { return TraitValueType | TraitParameterized }
func (f HiltiFunction) key() string    { return f.String() }

type Hook struct{ Sig FunctionSig }

func (h Hook) String() string { return "hook" + h.Sig.String() }
func (h Hook) Traits() Trait  { return TraitValueType | TraitParameterized }
func (h Hook) key() string    { return h.String() }

// TypeType(T): a first-class reference to a type itself (used by
// expression::Type in the composer's Variable(type) dispatch).
type TypeType struct{ Inner Type }

func (t TypeType) String() string { return "type<" + t.Inner.String() + ">" }
func (t TypeType) Traits() Trait  { return TraitValueType | TraitParameterized }
func (t TypeType) key() string    { return t.String() }

// Bitfield(w, bits) is a field-level attribute type composed into an
// Integer on the wire (spec §4.3.6), not a top-level primitive in the
// §3.2 list, but needed by the composer's per-field dispatch.
type BitRange struct {
	Name  string
	Lower int
	Upper int
}

type Bitfield struct {
	Width int
	Bits  []BitRange
}

func (b Bitfield) String() string { return fmt.Sprintf("bitfield(%d)", b.Width) }
func (b Bitfield) Traits() Trait  { return TraitValueType | TraitParameterized }
func (b Bitfield) key() string    { return b.String() }

// sortedKeys returns m's keys in ascending order, for emitting a
// deterministic order where a map intermediate is unavoidable. Nothing
// in the package calls it.
func sortedKeys(m map[int64]string) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
