package schema

import (
	"fmt"

	"tx-composer/lib/scale"

	"github.com/moznion/go-optional"
)

// "meta" little endian
const metadataMagic uint32 = 0x6174656d

const metadataV14 = 14

var primitiveNames = []string{
	"bool", "char", "str",
	"u8", "u16", "u32", "u64", "u128", "u256",
	"i8", "i16", "i32", "i64", "i128", "i256",
}

// FromMetadata builds a registry from SCALE encoded runtime metadata
// (state_getMetadata). Only version 14 is understood.
func FromMetadata(raw []byte) (*Registry, error) {
	d := scale.NewDecoder(raw)

	magic, err := d.U32()
	if err != nil {
		return nil, err
	}
	if magic != metadataMagic {
		return nil, fmt.Errorf("%w: bad metadata magic 0x%08x", ErrUnsupported, magic)
	}
	version, err := d.U8()
	if err != nil {
		return nil, err
	}
	if version != metadataV14 {
		return nil, fmt.Errorf("%w: metadata version %d", ErrUnsupported, version)
	}

	reg := &Registry{Types: make(map[TypeID]*Type)}
	if err := decodeTypes(d, reg); err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}
	if err := skipPallets(d); err != nil {
		return nil, fmt.Errorf("pallets: %w", err)
	}
	if err := decodeExtrinsic(d, reg); err != nil {
		return nil, fmt.Errorf("extrinsic: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func compactID(d *scale.Decoder) (TypeID, error) {
	v, err := d.Compact()
	if err != nil {
		return 0, err
	}
	if v > uint64(^TypeID(0)) {
		return 0, fmt.Errorf("type id %d out of range", v)
	}
	return TypeID(v), nil
}

func optionalText(d *scale.Decoder) (string, error) {
	some, err := d.Option()
	if err != nil || !some {
		return "", err
	}
	return d.Text()
}

// count reads a vector length, bounded by the remaining input.
func count(d *scale.Decoder) (int, error) {
	n, err := d.Compact()
	if err != nil {
		return 0, err
	}
	if n > uint64(d.Remaining()) {
		return 0, fmt.Errorf("%w: vector of %d", scale.ErrUnexpectedEOF, n)
	}
	return int(n), nil
}

func decodeFields(d *scale.Decoder) ([]Field, error) {
	n, err := count(d)
	if err != nil {
		return nil, err
	}
	res := make([]Field, 0, n)
	for i := 0; i < n; i++ {
		var f Field
		if f.Name, err = optionalText(d); err != nil {
			return nil, err
		}
		if f.Type, err = compactID(d); err != nil {
			return nil, err
		}
		if f.TypeName, err = optionalText(d); err != nil {
			return nil, err
		}
		if f.Docs, err = d.Texts(); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, nil
}

func decodeTypes(d *scale.Decoder, reg *Registry) error {
	n, err := count(d)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		t := &Type{}
		if t.ID, err = compactID(d); err != nil {
			return err
		}
		if t.Path, err = d.Texts(); err != nil {
			return err
		}
		if t.Params, err = decodeParams(d); err != nil {
			return err
		}
		if err := decodeDef(d, t); err != nil {
			return fmt.Errorf("type %d: %w", t.ID, err)
		}
		if t.Docs, err = d.Texts(); err != nil {
			return err
		}
		reg.Types[t.ID] = t
	}
	return nil
}

func decodeParams(d *scale.Decoder) ([]Param, error) {
	n, err := count(d)
	if err != nil {
		return nil, err
	}
	res := make([]Param, 0, n)
	for i := 0; i < n; i++ {
		p := Param{Type: optional.None[TypeID]()}
		if p.Name, err = d.Text(); err != nil {
			return nil, err
		}
		some, err := d.Option()
		if err != nil {
			return nil, err
		}
		if some {
			id, err := compactID(d)
			if err != nil {
				return nil, err
			}
			p.Type = optional.Some(id)
		}
		res = append(res, p)
	}
	return res, nil
}

func decodeDef(d *scale.Decoder, t *Type) error {
	tag, err := d.U8()
	if err != nil {
		return err
	}
	switch tag {
	case 0:
		t.Kind = KindComposite
		t.Fields, err = decodeFields(d)
		return err
	case 1:
		t.Kind = KindVariant
		n, err := count(d)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			var v VariantDef
			if v.Name, err = d.Text(); err != nil {
				return err
			}
			if v.Fields, err = decodeFields(d); err != nil {
				return err
			}
			if v.Index, err = d.U8(); err != nil {
				return err
			}
			if v.Docs, err = d.Texts(); err != nil {
				return err
			}
			t.Variants = append(t.Variants, v)
		}
		return nil
	case 2:
		t.Kind = KindSequence
		t.Elem, err = compactID(d)
		return err
	case 3:
		t.Kind = KindArray
		if t.Len, err = d.U32(); err != nil {
			return err
		}
		t.Elem, err = compactID(d)
		return err
	case 4:
		t.Kind = KindTuple
		n, err := count(d)
		if err != nil {
			return err
		}
		t.Tuple = make([]TypeID, 0, n)
		for i := 0; i < n; i++ {
			id, err := compactID(d)
			if err != nil {
				return err
			}
			t.Tuple = append(t.Tuple, id)
		}
		return nil
	case 5:
		t.Kind = KindPrimitive
		p, err := d.U8()
		if err != nil {
			return err
		}
		if int(p) >= len(primitiveNames) {
			return fmt.Errorf("%w: primitive tag %d", ErrUnsupported, p)
		}
		t.Primitive = primitiveNames[p]
		return nil
	case 6:
		t.Kind = KindCompact
		t.Elem, err = compactID(d)
		return err
	case 7:
		t.Kind = KindBitSequence
		if t.Elem, err = compactID(d); err != nil {
			return err
		}
		// bit order type
		_, err = compactID(d)
		return err
	default:
		return fmt.Errorf("%w: type definition tag %d", ErrUnsupported, tag)
	}
}

func skipOptionalID(d *scale.Decoder) error {
	some, err := d.Option()
	if err != nil || !some {
		return err
	}
	_, err = compactID(d)
	return err
}

// skipPallets walks over the pallet list, nothing in it is needed to
// build extrinsics.
func skipPallets(d *scale.Decoder) error {
	n, err := count(d)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		name, err := d.Text()
		if err != nil {
			return err
		}
		if err := skipStorage(d); err != nil {
			return fmt.Errorf("pallet %s storage: %w", name, err)
		}
		// calls, events
		for j := 0; j < 2; j++ {
			if err := skipOptionalID(d); err != nil {
				return fmt.Errorf("pallet %s: %w", name, err)
			}
		}
		if err := skipConstants(d); err != nil {
			return fmt.Errorf("pallet %s constants: %w", name, err)
		}
		// errors
		if err := skipOptionalID(d); err != nil {
			return fmt.Errorf("pallet %s: %w", name, err)
		}
		// index
		if _, err := d.U8(); err != nil {
			return err
		}
	}
	return nil
}

func skipStorage(d *scale.Decoder) error {
	some, err := d.Option()
	if err != nil || !some {
		return err
	}
	// prefix
	if _, err := d.Text(); err != nil {
		return err
	}
	n, err := count(d)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		// name, modifier
		if _, err := d.Text(); err != nil {
			return err
		}
		if _, err := d.U8(); err != nil {
			return err
		}
		kind, err := d.U8()
		if err != nil {
			return err
		}
		switch kind {
		case 0:
			if _, err := compactID(d); err != nil {
				return err
			}
		case 1:
			// hashers, key, value
			if _, err := d.ByteSlice(); err != nil {
				return err
			}
			for j := 0; j < 2; j++ {
				if _, err := compactID(d); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: storage entry kind %d", ErrUnsupported, kind)
		}
		// default value, docs
		if _, err := d.ByteSlice(); err != nil {
			return err
		}
		if _, err := d.Texts(); err != nil {
			return err
		}
	}
	return nil
}

func skipConstants(d *scale.Decoder) error {
	n, err := count(d)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if _, err := d.Text(); err != nil {
			return err
		}
		if _, err := compactID(d); err != nil {
			return err
		}
		if _, err := d.ByteSlice(); err != nil {
			return err
		}
		if _, err := d.Texts(); err != nil {
			return err
		}
	}
	return nil
}

func decodeExtrinsic(d *scale.Decoder, reg *Registry) error {
	extrinsicType, err := compactID(d)
	if err != nil {
		return err
	}
	if reg.Extrinsic.Version, err = d.U8(); err != nil {
		return err
	}
	n, err := count(d)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		var e ExtensionDef
		if e.Identifier, err = d.Text(); err != nil {
			return err
		}
		if e.Type, err = compactID(d); err != nil {
			return err
		}
		if e.Additional, err = compactID(d); err != nil {
			return err
		}
		reg.Extrinsic.Extensions = append(reg.Extrinsic.Extensions, e)
	}

	// the unchecked extrinsic type names the address, call and signature
	// types through its parameters
	t, err := reg.Lookup(extrinsicType)
	if err != nil {
		return err
	}
	params := map[string]*TypeID{
		"Address":   &reg.Extrinsic.Address,
		"Call":      &reg.Extrinsic.Call,
		"Signature": &reg.Extrinsic.Signature,
	}
	for name, dst := range params {
		id, ok := t.Param(name)
		if !ok {
			return fmt.Errorf("%w: extrinsic type %d has no %s parameter", ErrUnsupported, t.ID, name)
		}
		*dst = id
	}
	return nil
}
