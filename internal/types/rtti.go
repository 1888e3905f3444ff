package types

import "fmt"

// PtrMapEnd is the pointer-map terminator sentinel (spec §6.3):
// "a constant PTR_MAP_END value (implementation-defined, typically -1
// as u16)".
const PtrMapEnd uint16 = 0xFFFF

// Descriptor is the RTTI binary layout of spec §6.3, field for field.
// Function-pointer fields become Go func values; Aux/PointerMap stand
// in for the C void* aux/ptr_map fields.
type Descriptor struct {
	TypeID    uint16
	Size      uint16
	Name      string
	NumParams uint16
	GCFlag    bool

	Aux       any      // type-specific aux table, e.g. StructAux / EnumAux
	PointerMap []uint16 // GC pointer-offset table, terminated by PtrMapEnd; nil except for tuple/struct/overlay types

	ToString  func(v any) string
	ToInt     func(v any) (int64, bool)
	ToDouble  func(v any) (float64, bool)
	Hash      func(v any) uint64
	Equal     func(a, b any) bool
	Blockable bool

	Dtor    func(v any)
	ObjDtor func(v any)
	Cctor   func(v any) any

	Params []ParamInfo
}

// ParamInfo is one "then num_params of: rtti* | i64 | i64 | const
// char*" trailer entry (spec §6.3): either a nested type param, an
// integer param (e.g. Integer width), an enum-label ordinal, or an
// attribute-derived string.
type ParamInfo struct {
	RTTI  *Descriptor
	Int   int64
	Label string
}

// StructAux is the aux table for Struct: (field-name, byte-offset)
// pairs in declaration order (spec §4.1 "For Struct, the aux data is
// an array of (field-name-string, 16-bit field-offset) pairs").
type StructAux struct {
	Fields []StructFieldOffset
}

type StructFieldOffset struct {
	Name   string
	Offset uint16
}

// EnumAux is the aux table for Enum/Bitset: (value, label) pairs plus
// an implicit terminator (the slice length IS the terminator in Go).
type EnumAux struct {
	Labels []EnumLabel
}

// nextTypeID hands out monotonically increasing tags; a real
// implementation would stabilize these against a previously-linked
// runtime, but nothing in this core's scope depends on cross-run
// stability (only within-Registry identity, which the cache gives us).
type idAllocator struct{ next uint16 }

func (a *idAllocator) alloc() uint16 {
	a.next++
	return a.next
}

// Registry is the RTTI builder and cache (spec §4.1): rtti(T) is
// memoized by type identity after resolving any UnknownID via a
// resolver callback standing in for "the enclosing module's scope".
type Registry struct {
	resolve func(ids string) (Type, bool)

	cache      map[string]*Descriptor
	ids        idAllocator
	wildcardTupleHelper *Descriptor
}

// NewRegistry builds a Registry. resolve looks up an UnknownID's
// segment-joined path against the enclosing module's scope; pass nil
// if the caller never constructs UnknownID types (e.g. tests that
// only exercise fully-resolved types).
func NewRegistry(resolve func(path string) (Type, bool)) *Registry {
	return &Registry{
		resolve: resolve,
		cache:   make(map[string]*Descriptor),
	}
}

// ErrUnknownType is returned (wrapped) when resolving a type name fails.
type ErrUnknownType struct{ Path string }

func (e *ErrUnknownType) Error() string { return fmt.Sprintf("unknown type id: %s", e.Path) }

// ErrMissingInit flags a value-type descriptor lacking a default,
// spec §4.1's "missing init value" condition — callers should treat
// this as internal_error (invariant violation), not a recoverable
// user error.
type ErrMissingInit struct{ Type Type }

func (e *ErrMissingInit) Error() string {
	return fmt.Sprintf("missing init value for value type %s", e.Type)
}

func (r *Registry) resolveUnknown(t Type) (Type, error) {
	u, ok := t.(UnknownID)
	if !ok {
		return t, nil
	}
	if r.resolve == nil {
		return nil, &ErrUnknownType{Path: u.ID.String()}
	}
	resolved, ok := r.resolve(u.ID.String())
	if !ok {
		return nil, &ErrUnknownType{Path: u.ID.String()}
	}
	return resolved, nil
}

// RTTI lowers a type to its runtime descriptor, memoized by structural
// key. Calling it twice with structurally equal types returns the
// *same* descriptor pointer (spec invariant, §8.1 "RTTI caching").
func (r *Registry) RTTI(t Type) (*Descriptor, error) {
	resolved, err := r.resolveUnknown(t)
	if err != nil {
		return nil, err
	}
	t = resolved

	key := t.key()
	if d, ok := r.cache[key]; ok {
		return d, nil
	}

	d, err := r.build(t)
	if err != nil {
		return nil, err
	}
	r.cache[key] = d
	return d, nil
}

// MustRTTI panics (via the diag internal-error convention at call
// sites that have a diag.Bag in scope) is intentionally NOT provided
// here: internal/types has no dependency on internal/diag, keeping
// the type system usable standalone. Callers that need the
// internal_error behavior wrap RTTI's error themselves.
func (r *Registry) build(t Type) (*Descriptor, error) {
	traits := t.Traits()

	d := &Descriptor{
		TypeID: r.ids.alloc(),
		Name:   t.String(),
		GCFlag: traits.Has(TraitGarbageCollected),
	}

	switch v := t.(type) {
	case simple:
		return r.buildSimple(d, v)
	case Integer:
		d.Size = uint16((v.Width + 7) / 8)
		d.NumParams = 2
		d.Params = []ParamInfo{{Int: int64(v.Width)}, {Int: boolToInt(v.Signed)}}
		d.ToInt = func(val any) (int64, bool) { i, ok := val.(int64); return i, ok }
		d.ToString = func(val any) string { return fmt.Sprintf("%v", val) }
		d.Equal = func(a, b any) bool { return a == b }
		d.Hash = func(val any) uint64 { i, _ := val.(int64); return uint64(i) }
		return d, nil
	case AddressType:
		d.Size = 16
		return r.buildDefaultable(d, t)
	case Bitset:
		d.Size = 8
		d.Aux = EnumAux{Labels: v.Labels}
		d.NumParams = uint16(len(v.Labels))
		return r.buildDefaultable(d, t)
	case Enum:
		d.Size = 8
		d.Aux = EnumAux{Labels: v.Labels}
		d.NumParams = uint16(len(v.Labels))
		return r.buildDefaultable(d, t)
	case Reference:
		return r.buildReference(d, v)
	case Iterator:
		d.Size = 16
		return d, nil
	case Tuple:
		return r.buildTuple(d, v)
	case Struct:
		return r.buildStruct(d, v)
	case Union:
		d.Size = sizeOfLargest(r, v.Fields)
		return r.buildDefaultable(d, t)
	case Overlay:
		return r.buildStruct(d, Struct{Fields: v.Fields})
	case Map, Set, List, Vector, Channel, IOSource, Exception, Classifier:
		d.Size = 8 // a single pointer-width handle; heap types carry no inline payload
		return d, nil
	case Bitfield:
		d.Size = uint16((v.Width + 7) / 8)
		return d, nil
	default:
		// Remaining primitives (Void, Any, Unknown, Label, Block, Module,
		// Unset, String, Bool, Double, Network, Port, Interval, Time,
		// CAddr, Bytes, RegExp, File, Callable, Timer, TimerMgr, CAddr,
		// MatchTokenState, Context, HiltiFunction, Hook, TypeType) fall
		// through to the size/default table.
		return r.buildDefaultable(d, t)
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

var fixedSizes = map[string]uint16{
	"void": 0, "any": 8, "unknown": 0, "label": 8, "block": 8, "module": 0,
	"unset": 0, "string": 8, "bool": 1, "double": 8, "net": 16, "port": 4,
	"interval": 8, "time": 8, "caddr": 16,
}

func (r *Registry) buildSimple(d *Descriptor, v simple) (*Descriptor, error) {
	if sz, ok := fixedSizes[v.name]; ok {
		d.Size = sz
	}
	return r.buildDefaultable(d, v)
}

// buildDefaultable fills in the common stringify/equal/hash function
// pointers for value types and enforces invariant (a): every
// ValueType must define a deterministic default.
func (r *Registry) buildDefaultable(d *Descriptor, t Type) (*Descriptor, error) {
	if t.Traits().Has(TraitValueType) && !hasKnownDefault(t) {
		return nil, &ErrMissingInit{Type: t}
	}
	d.ToString = func(v any) string { return fmt.Sprintf("%v", v) }
	d.Equal = func(a, b any) bool { return a == b }
	return d, nil
}

// hasKnownDefault reports whether the variant has a deterministic
// zero/default value. Every value-type variant this compiler knows
// about does (Go zero values double as BinPAC-style defaults); this
// hook exists so a future variant without one fails loudly instead of
// silently.
func hasKnownDefault(t Type) bool {
	switch t.(type) {
	case Union:
		return true // defaults to the Go zero value of its first field
	default:
		return true
	}
}

func (r *Registry) buildReference(d *Descriptor, v Reference) (*Descriptor, error) {
	d.Size = 8
	if v.Target != nil && v.Target.Traits().Has(TraitGarbageCollected) {
		d.GCFlag = true
		// Generic ref/unref functions replace the target's own
		// destructor/copy-ctor (spec §4.1: "for Reference<U> where U is
		// garbage-collected, the GC flag is set and the destructor/copy
		// are replaced with generic ref/unref functions").
		d.Dtor = genericUnref
		d.Cctor = genericRef
	}
	return d, nil
}

func genericUnref(v any) {}
func genericRef(v any) any { return v }

func (r *Registry) buildTuple(d *Descriptor, v Tuple) (*Descriptor, error) {
	if v.Wildcard {
		if r.wildcardTupleHelper == nil {
			r.wildcardTupleHelper = &Descriptor{
				TypeID: r.ids.alloc(),
				Name:   "tuple<*>",
				Dtor:   genericTupleDtor,
				Cctor:  genericTupleCctor,
			}
		}
		return r.wildcardTupleHelper, nil
	}

	var size uint16
	var ptrMap []uint16
	elemDescs := make([]*Descriptor, len(v.Elems))
	for i, e := range v.Elems {
		ed, err := r.RTTI(e)
		if err != nil {
			return nil, err
		}
		elemDescs[i] = ed
		if ed.GCFlag {
			ptrMap = append(ptrMap, size)
		}
		size += ed.Size
	}
	ptrMap = append(ptrMap, PtrMapEnd)

	d.Size = size
	d.NumParams = uint16(len(v.Elems))
	d.PointerMap = ptrMap
	for _, ed := range elemDescs {
		d.Params = append(d.Params, ParamInfo{RTTI: ed})
	}
	// "generate a per-type helper tuple_dtor/cctor that invokes the
	// element-wise dtor/cctor when the element type is not Atomic"
	// (spec §4.1).
	d.Dtor = func(val any) {
		for i, ed := range elemDescs {
			if v.Elems[i].Traits().Has(TraitAtomic) || ed.Dtor == nil {
				continue
			}
			ed.Dtor(val)
		}
	}
	d.Cctor = func(val any) any {
		for i, ed := range elemDescs {
			if v.Elems[i].Traits().Has(TraitAtomic) || ed.Cctor == nil {
				continue
			}
			ed.Cctor(val)
		}
		return val
	}
	return d, nil
}

func genericTupleDtor(v any)     {}
func genericTupleCctor(v any) any { return v }

func (r *Registry) buildStruct(d *Descriptor, v Struct) (*Descriptor, error) {
	var offset uint16
	var ptrMap []uint16
	var aux StructAux
	for _, f := range v.Fields {
		fd, err := r.RTTI(f.Type)
		if err != nil {
			return nil, err
		}
		aux.Fields = append(aux.Fields, StructFieldOffset{Name: f.Name, Offset: offset})
		if fd.GCFlag {
			ptrMap = append(ptrMap, offset)
		}
		offset += fd.Size
	}
	ptrMap = append(ptrMap, PtrMapEnd)
	d.Size = offset
	d.Aux = aux
	d.PointerMap = ptrMap
	return d, nil
}

func sizeOfLargest(r *Registry, fields []Field) uint16 {
	var max uint16
	for _, f := range fields {
		fd, err := r.RTTI(f.Type)
		if err != nil {
			continue
		}
		if fd.Size > max {
			max = fd.Size
		}
	}
	return max
}

// PointerMap computes the GC pointer-offset table for a composite
// value type directly (spec §4.1 "pointer_map(T) -> const Table"),
// without needing the full Descriptor. It delegates to RTTI, which
// fills PointerMap for tuple, struct and overlay types (a lone
// terminator when no sub-value is GC-managed; nil for unions and
// non-composite types), and is provided
// separately only because the spec names it as its own operation.
func (r *Registry) PointerMap(t Type) ([]uint16, error) {
	d, err := r.RTTI(t)
	if err != nil {
		return nil, err
	}
	return d.PointerMap, nil
}
