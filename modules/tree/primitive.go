package tree

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/holiman/uint256"
)

var ErrInvalidInput = errors.New("invalid input")

type PrimitiveKind uint8

const (
	Unsigned PrimitiveKind = iota
	CompactUnsigned
	Signed
	// the remaining kinds are the non numeric primitives
	Bool
	Char
	Str
)

type Specialty uint8

const (
	SpecialtyNone Specialty = iota
	SpecialtyNonce
	SpecialtyTip
	SpecialtySpecVersion
	SpecialtyTxVersion
)

func (s Specialty) String() string {
	switch s {
	case SpecialtyNonce:
		return "Nonce"
	case SpecialtyTip:
		return "Tip"
	case SpecialtySpecVersion:
		return "SpecVersion"
	case SpecialtyTxVersion:
		return "TxVersion"
	default:
		return ""
	}
}

// Primitive keeps its value as canonical text. Bits is the width of
// integer kinds.
type Primitive struct {
	Kind      PrimitiveKind
	Bits      int
	Specialty Specialty
	Value     string
}

func NewPrimitive(kind PrimitiveKind, bits int) *Primitive {
	p := &Primitive{Kind: kind, Bits: bits}
	switch kind {
	case Bool:
		p.Value = "false"
	case Char:
		p.Value = "\x00"
	case Str:
		p.Value = ""
	default:
		p.Value = "0"
	}
	return p
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Parse validates text against the kind's grammar and returns the
// canonical form.
func (p *Primitive) Parse(text string) (string, error) {
	switch p.Kind {
	case Unsigned, CompactUnsigned:
		if !isDigits(text) {
			return "", fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidInput, text)
		}
		v, err := uint256.FromDecimal(text)
		if err != nil || v.BitLen() > p.Bits {
			return "", fmt.Errorf("%w: %q does not fit in %d bits", ErrInvalidInput, text, p.Bits)
		}
		return v.Dec(), nil
	case Signed:
		digits := text
		if len(digits) > 0 && digits[0] == '-' {
			digits = digits[1:]
		}
		if !isDigits(digits) {
			return "", fmt.Errorf("%w: %q is not an integer", ErrInvalidInput, text)
		}
		v, _ := new(big.Int).SetString(text, 10)
		limit := new(big.Int).Lsh(big.NewInt(1), uint(p.Bits-1))
		if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
			return "", fmt.Errorf("%w: %q does not fit in %d bits", ErrInvalidInput, text, p.Bits)
		}
		return v.String(), nil
	case Bool:
		if text != "true" && text != "false" {
			return "", fmt.Errorf("%w: %q is not a boolean", ErrInvalidInput, text)
		}
		return text, nil
	case Char:
		if utf8.RuneCountInString(text) != 1 {
			return "", fmt.Errorf("%w: %q is not a single character", ErrInvalidInput, text)
		}
		return text, nil
	default:
		return text, nil
	}
}

// Set replaces the value when text parses. The value is unchanged on error.
func (p *Primitive) Set(text string) error {
	v, err := p.Parse(text)
	if err != nil {
		return err
	}
	p.Value = v
	return nil
}

func (p *Primitive) Numeric() bool {
	return p.Kind == Unsigned || p.Kind == CompactUnsigned || p.Kind == Signed
}
