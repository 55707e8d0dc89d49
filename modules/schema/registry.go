// Package schema describes the runtime type catalogue and turns it into
// default value trees and wire bytes.
package schema

import (
	"errors"
	"fmt"

	"tx-composer/modules/tree"

	"github.com/moznion/go-optional"
)

var (
	ErrUnknownType    = errors.New("unknown type")
	ErrUnsupported    = errors.New("unsupported type")
	ErrIncomplete     = errors.New("value not set")
	ErrLengthMismatch = errors.New("length mismatch")
)

type TypeID = tree.TypeID

type DefKind uint8

const (
	KindComposite DefKind = iota
	KindVariant
	KindSequence
	KindArray
	KindTuple
	KindPrimitive
	KindCompact
	KindBitSequence
)

type Field struct {
	Name     string
	Type     TypeID
	TypeName string
	Docs     []string
}

type VariantDef struct {
	Name   string
	Index  uint8
	Fields []Field
	Docs   []string
}

type Param struct {
	Name string
	Type optional.Option[TypeID]
}

type Type struct {
	ID     TypeID
	Path   []string
	Params []Param
	Docs   []string

	Kind DefKind
	// composite
	Fields []Field
	// variant
	Variants []VariantDef
	// sequence, array and compact element
	Elem TypeID
	// array
	Len uint32
	// tuple
	Tuple []TypeID
	// primitive name, e.g. "u8", "bool", "str"
	Primitive string
}

// Name is the last segment of the type path.
func (t *Type) Name() string {
	if len(t.Path) == 0 {
		return ""
	}
	return t.Path[len(t.Path)-1]
}

func (t *Type) Param(name string) (TypeID, bool) {
	for _, p := range t.Params {
		if p.Name == name && p.Type.IsSome() {
			return p.Type.Unwrap(), true
		}
	}
	return 0, false
}

type ExtensionDef struct {
	Identifier string
	Type       TypeID
	Additional TypeID
}

type ExtrinsicDef struct {
	Version    uint8
	Address    TypeID
	Call       TypeID
	Signature  TypeID
	Extensions []ExtensionDef
}

type Registry struct {
	Types     map[TypeID]*Type
	Extrinsic ExtrinsicDef
}

func (r *Registry) Lookup(id TypeID) (*Type, error) {
	t, ok := r.Types[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, id)
	}
	return t, nil
}

// Validate checks that every referenced type exists.
func (r *Registry) Validate() error {
	refs := []TypeID{r.Extrinsic.Address, r.Extrinsic.Call, r.Extrinsic.Signature}
	for _, e := range r.Extrinsic.Extensions {
		refs = append(refs, e.Type, e.Additional)
	}
	for _, t := range r.Types {
		for _, f := range t.Fields {
			refs = append(refs, f.Type)
		}
		for _, v := range t.Variants {
			for _, f := range v.Fields {
				refs = append(refs, f.Type)
			}
		}
		switch t.Kind {
		case KindSequence, KindArray, KindCompact:
			refs = append(refs, t.Elem)
		case KindTuple:
			refs = append(refs, t.Tuple...)
		case KindPrimitive:
			if _, err := primitiveOf(t.Primitive); err != nil {
				return fmt.Errorf("type %d: %w", t.ID, err)
			}
		}
	}
	for _, id := range refs {
		if _, err := r.Lookup(id); err != nil {
			return err
		}
	}
	return nil
}

type primitiveDef struct {
	kind tree.PrimitiveKind
	bits int
}

func primitiveOf(name string) (primitiveDef, error) {
	switch name {
	case "bool":
		return primitiveDef{tree.Bool, 8}, nil
	case "char":
		return primitiveDef{tree.Char, 32}, nil
	case "str":
		return primitiveDef{tree.Str, 0}, nil
	case "u8", "u16", "u32", "u64", "u128", "u256":
		return primitiveDef{tree.Unsigned, bitsOf(name)}, nil
	case "i8", "i16", "i32", "i64", "i128", "i256":
		return primitiveDef{tree.Signed, bitsOf(name)}, nil
	default:
		return primitiveDef{}, fmt.Errorf("%w: primitive %q", ErrUnsupported, name)
	}
}

func bitsOf(name string) int {
	bits := 0
	for _, c := range name[1:] {
		bits = bits*10 + int(c-'0')
	}
	return bits
}

// Env carries the chain facts that prefill a new transaction.
type Env struct {
	Genesis     [32]byte
	SpecVersion uint32
	TxVersion   uint32
}
