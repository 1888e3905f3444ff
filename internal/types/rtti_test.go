package types

import (
	"testing"

	"github.com/pilc-lang/pilc/internal/ids"
)

func TestRTTICachingReturnsSamePointer(t *testing.T) {
	reg := NewRegistry(nil)

	t1 := Integer{Width: 16, Signed: false}
	t2 := Integer{Width: 16, Signed: false}

	d1, err := reg.RTTI(t1)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := reg.RTTI(t2)
	if err != nil {
		t.Fatal(err)
	}

	if d1 != d2 {
		t.Fatalf("expected structurally-equal types to share a descriptor pointer, got %p != %p", d1, d2)
	}
}

func TestRTTIDistinctTypesGetDistinctDescriptors(t *testing.T) {
	reg := NewRegistry(nil)

	d1, err := reg.RTTI(Integer{Width: 16, Signed: false})
	if err != nil {
		t.Fatal(err)
	}
	d2, err := reg.RTTI(Integer{Width: 32, Signed: false})
	if err != nil {
		t.Fatal(err)
	}

	if d1 == d2 {
		t.Fatalf("expected distinct types to get distinct descriptors")
	}
}

func TestPointerMapWellFormed(t *testing.T) {
	reg := NewRegistry(nil)

	bytesRef, err := NewReference(Bytes)
	if err != nil {
		t.Fatal(err)
	}

	st, err := NewStruct([]Field{
		{Name: "a", Type: Integer{Width: 32, Signed: false}},
		{Name: "b", Type: bytesRef},
		{Name: "c", Type: Integer{Width: 8, Signed: false}},
		{Name: "d", Type: bytesRef},
	})
	if err != nil {
		t.Fatal(err)
	}

	d, err := reg.RTTI(st)
	if err != nil {
		t.Fatal(err)
	}

	// 2 GC-managed sub-fields (b, d) => N+1 = 3 entries.
	if len(d.PointerMap) != 3 {
		t.Fatalf("expected 3 pointer-map entries (2 offsets + terminator), got %d: %v", len(d.PointerMap), d.PointerMap)
	}
	if d.PointerMap[len(d.PointerMap)-1] != PtrMapEnd {
		t.Fatalf("expected terminator sentinel at end, got %v", d.PointerMap)
	}
	for _, off := range d.PointerMap[:len(d.PointerMap)-1] {
		if off >= d.Size {
			t.Fatalf("pointer map offset %d out of range [0, %d)", off, d.Size)
		}
	}
}

func TestStructDuplicateFieldNamesRejected(t *testing.T) {
	_, err := NewStruct([]Field{
		{Name: "x", Type: Bool},
		{Name: "x", Type: Integer{Width: 8, Signed: false}},
	})
	if err == nil {
		t.Fatal("expected error for duplicate field name")
	}
}

func TestReferenceRequiresHeapType(t *testing.T) {
	_, err := NewReference(Integer{Width: 32, Signed: false})
	if err == nil {
		t.Fatal("expected error constructing ref<int32>")
	}

	ref, err := NewReference(Bytes)
	if err != nil {
		t.Fatalf("ref<bytes> should be valid: %v", err)
	}
	if !ref.Traits().Has(TraitGarbageCollected) {
		t.Fatal("ref<bytes> should be garbage collected")
	}
}

func TestIteratorRequiresIterable(t *testing.T) {
	_, err := NewIterator(Integer{Width: 32, Signed: false})
	if err == nil {
		t.Fatal("expected error constructing iterator<int32>")
	}

	_, err = NewIterator(Bytes)
	if err != nil {
		t.Fatalf("iterator<bytes> should be valid: %v", err)
	}
}

func TestEqualIgnoresLocationAndIsTransitive(t *testing.T) {
	a := Integer{Width: 16, Signed: true}
	b := Integer{Width: 16, Signed: true}
	c := Integer{Width: 16, Signed: true}

	if !Equal(a, b) || !Equal(b, a) {
		t.Fatal("Equal should be reflexive/symmetric")
	}
	if !Equal(a, c) {
		t.Fatal("Equal should be transitive (a==b, b==c => a==c)")
	}

	la := UnknownID{ID: ids.NewAt("Foo::Bar", ids.Location{File: "a.pac", Line: 1})}
	lb := UnknownID{ID: ids.NewAt("Foo::Bar", ids.Location{File: "b.pac", Line: 7})}
	if !Equal(la, lb) {
		t.Fatal("Equal should ignore source locations")
	}
}

func TestWildcardTupleSharesOneHelper(t *testing.T) {
	reg := NewRegistry(nil)

	d1, err := reg.RTTI(Tuple{Wildcard: true})
	if err != nil {
		t.Fatal(err)
	}
	d2, err := reg.RTTI(Tuple{Wildcard: true})
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Fatal("expected the wildcard tuple helper to be shared across calls")
	}
}

func TestUnknownTypeResolution(t *testing.T) {
	reg := NewRegistry(func(path string) (Type, bool) {
		if path == "Foo::Bar" {
			return Integer{Width: 8, Signed: false}, true
		}
		return nil, false
	})

	d, err := reg.RTTI(UnknownID{})
	_ = d
	if err == nil {
		t.Fatal("expected unknown type id error for an empty/unresolvable id")
	}
}
