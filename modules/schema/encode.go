package schema

import (
	"fmt"
	"math/big"
	"math/bits"
	"unicode/utf8"

	"tx-composer/lib/scale"
	"tx-composer/modules/tree"

	"github.com/holiman/uint256"
)

// the version byte of a signed extrinsic has its top bit set
const signedFlag byte = 0x80

// Encode appends the SCALE encoding of n.
func Encode(e *scale.Encoder, n *tree.Node) error {
	switch c := n.Content.(type) {
	case *tree.Primitive:
		return encodePrimitive(e, c)
	case *tree.FixedBytes:
		if len(c.Bytes) != c.Length {
			return fmt.Errorf("%w: %s has %d bytes, expected %d", ErrLengthMismatch, label(n), len(c.Bytes), c.Length)
		}
		e.Write(c.Bytes)
	case *tree.VariableBytes:
		e.ByteSlice(c.Bytes)
	case *tree.Sequence:
		e.Compact(uint64(len(c.Elements)))
		return encodeAll(e, c.Elements)
	case *tree.Composite:
		return encodeAll(e, c.Fields)
	case *tree.Tuple:
		return encodeAll(e, c.Elements)
	case *tree.Variant:
		e.U8(c.Current().Index)
		return encodeAll(e, c.Fields)
	case *tree.EmptyVariant:
		// uninhabited, nothing to write
	case *tree.Account:
		if c.Value.IsNone() {
			return fmt.Errorf("%w: %s has no account", ErrIncomplete, label(n))
		}
		v := c.Value.Unwrap()
		e.Write(v[:])
	case *tree.Hash:
		e.Write(c.Value[:])
	case *tree.Era:
		encodeEra(e, c)
	case *tree.Signature:
		if c.Value.IsNone() {
			return fmt.Errorf("%w: transaction is not signed", ErrIncomplete)
		}
		sig := c.Value.Unwrap()
		if len(sig) != c.Scheme.SignatureLength() {
			return fmt.Errorf("%w: %s signature of %d bytes", ErrLengthMismatch, c.Scheme, len(sig))
		}
		e.Write(sig)
	default:
		return fmt.Errorf("%w: node content %T", ErrUnsupported, n.Content)
	}
	return nil
}

func label(n *tree.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("value of type %d", n.Type)
}

func encodeAll(e *scale.Encoder, nodes []*tree.Node) error {
	for _, n := range nodes {
		if err := Encode(e, n); err != nil {
			return err
		}
	}
	return nil
}

func encodePrimitive(e *scale.Encoder, p *tree.Primitive) error {
	switch p.Kind {
	case tree.Unsigned, tree.CompactUnsigned:
		v, err := uint256.FromDecimal(p.Value)
		if err != nil {
			return fmt.Errorf("%w: %q", tree.ErrInvalidInput, p.Value)
		}
		if p.Kind == tree.CompactUnsigned {
			e.CompactBig(v)
		} else {
			e.Uint(v, p.Bits)
		}
	case tree.Signed:
		v, ok := new(big.Int).SetString(p.Value, 10)
		if !ok {
			return fmt.Errorf("%w: %q", tree.ErrInvalidInput, p.Value)
		}
		// two's complement within the declared width
		if v.Sign() < 0 {
			v.Add(v, new(big.Int).Lsh(big.NewInt(1), uint(p.Bits)))
		}
		u, overflow := uint256.FromBig(v)
		if overflow {
			return fmt.Errorf("%w: %q", tree.ErrInvalidInput, p.Value)
		}
		e.Uint(u, p.Bits)
	case tree.Bool:
		e.Bool(p.Value == "true")
	case tree.Char:
		r, _ := utf8.DecodeRuneInString(p.Value)
		e.U32(uint32(r))
	case tree.Str:
		e.Text(p.Value)
	}
	return nil
}

// encodeEra writes the two byte mortal form: the low four bits hold
// log2(period)-1, the rest the quantized phase.
func encodeEra(e *scale.Encoder, era *tree.Era) {
	if era.Immortal {
		e.U8(0)
		return
	}
	low := bits.TrailingZeros64(era.Period) - 1
	if low < 1 {
		low = 1
	}
	if low > 15 {
		low = 15
	}
	phase := era.Phase / era.QuantizeFactor()
	e.U16(uint16(low) | uint16(phase<<4))
}

func encodeExtensions(e *scale.Encoder, tx *tree.Transaction, additional bool) error {
	for _, ext := range tx.Extensions {
		if ext.Additional != additional {
			continue
		}
		if err := Encode(e, ext.Value); err != nil {
			return fmt.Errorf("extension %s: %w", ext.Identifier, err)
		}
	}
	return nil
}

// Signable is the payload handed to the signer: the call, the extension
// extras and the additional signed values.
func Signable(tx *tree.Transaction) ([]byte, error) {
	e := scale.NewEncoder()
	if err := Encode(e, tx.Call); err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}
	if err := encodeExtensions(e, tx, false); err != nil {
		return nil, err
	}
	if err := encodeExtensions(e, tx, true); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Finalized is the length prefixed signed extrinsic ready for submission.
func Finalized(tx *tree.Transaction) ([]byte, error) {
	body := scale.NewEncoder()
	body.U8(signedFlag | tx.Version)
	if err := Encode(body, tx.Author); err != nil {
		return nil, fmt.Errorf("author: %w", err)
	}
	if err := Encode(body, tx.Signature); err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	if err := encodeExtensions(body, tx, false); err != nil {
		return nil, err
	}
	if err := Encode(body, tx.Call); err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}

	e := scale.NewEncoder()
	e.ByteSlice(body.Bytes())
	return e.Bytes(), nil
}
