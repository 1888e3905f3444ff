package types

import "fmt"

// StorageKind tags the shape of an IL-level storage representation.
type StorageKind int

const (
	StorageScalar StorageKind = iota
	StorageRecord
	StoragePointer
	StorageOpaquePointer
)

// StorageType is the IL-level representation of a Type (spec §4.1
// storage_type): a scalar of the right width for primitives, a named
// record of {gchdr, bitmask, fields...} for Struct, a record of
// elements for Tuple, a pointer to storage_type(U) for Reference<U>,
// or an opaque pointer for a generic Reference<*>.
type StorageType struct {
	Kind       StorageKind
	Name       string
	BitWidth   int           // for StorageScalar
	Fields     []StorageField // for StorageRecord
	Pointee    *StorageType  // for StoragePointer
}

type StorageField struct {
	Name string
	Type *StorageType
}

func (s *StorageType) String() string {
	switch s.Kind {
	case StorageScalar:
		return fmt.Sprintf("i%d", s.BitWidth)
	case StorageRecord:
		return "record<" + s.Name + ">"
	case StoragePointer:
		return "ptr<" + s.Pointee.String() + ">"
	case StorageOpaquePointer:
		return "ptr<opaque>"
	default:
		return "?"
	}
}

func (r *Registry) StorageType(t Type) (*StorageType, error) {
	resolved, err := r.resolveUnknown(t)
	if err != nil {
		return nil, err
	}
	t = resolved

	switch v := t.(type) {
	case Integer:
		return &StorageType{Kind: StorageScalar, BitWidth: v.Width}, nil
	case simple:
		switch v.name {
		case "bool":
			return &StorageType{Kind: StorageScalar, BitWidth: 1}, nil
		case "double":
			return &StorageType{Kind: StorageScalar, BitWidth: 64}, nil
		case "void":
			return &StorageType{Kind: StorageScalar, BitWidth: 0}, nil
		default:
			return &StorageType{Kind: StorageOpaquePointer}, nil
		}
	case Reference:
		if v.Target == nil {
			return &StorageType{Kind: StorageOpaquePointer}, nil
		}
		pointee, err := r.StorageType(v.Target)
		if err != nil {
			return nil, err
		}
		return &StorageType{Kind: StoragePointer, Pointee: pointee}, nil
	case Struct:
		return r.structStorage(v.Fields, "struct")
	case Overlay:
		return r.structStorage(v.Fields, "overlay")
	case Tuple:
		if v.Wildcard {
			return &StorageType{Kind: StorageOpaquePointer}, nil
		}
		var fields []StorageField
		for i, e := range v.Elems {
			fs, err := r.StorageType(e)
			if err != nil {
				return nil, err
			}
			name := ""
			if i < len(v.Names) {
				name = v.Names[i]
			}
			fields = append(fields, StorageField{Name: name, Type: fs})
		}
		return &StorageType{Kind: StorageRecord, Name: "tuple", Fields: fields}, nil
	default:
		if t.Traits().Has(TraitHeapType) {
			return &StorageType{Kind: StoragePointer, Pointee: &StorageType{Kind: StorageOpaquePointer}}, nil
		}
		return &StorageType{Kind: StorageOpaquePointer}, nil
	}
}

// structStorage builds {gchdr, bitmask, fields...} (spec §4.1).
func (r *Registry) structStorage(compFields []Field, name string) (*StorageType, error) {
	fields := []StorageField{
		{Name: "gchdr", Type: &StorageType{Kind: StorageOpaquePointer}},
		{Name: "bitmask", Type: &StorageType{Kind: StorageScalar, BitWidth: 32}},
	}
	for _, f := range compFields {
		fs, err := r.StorageType(f.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, StorageField{Name: f.Name, Type: fs})
	}
	return &StorageType{Kind: StorageRecord, Name: name, Fields: fields}, nil
}
