// Package tree holds the editable value tree of a transaction and the
// slot numbering used to address it.
package tree

import (
	"tx-composer/modules/keyring"

	"github.com/moznion/go-optional"
)

type TypeID = uint32

// Hint tells default construction which role a value plays inside the
// transaction. It is kept on growable nodes so that elements and
// alternatives built later get the same treatment.
type Hint uint8

const (
	HintNone Hint = iota
	HintSignature
	HintNonce
	HintTip
	HintSpecVersion
	HintTxVersion
	HintGenesis
	HintBlockHash
)

type Node struct {
	// field name, empty for unnamed fields and roots
	Name string
	// documentation lines from the type catalogue
	Info    []string
	Type    TypeID
	Content Content
}

// Content is implemented by the node kinds of this package only.
type Content interface {
	isContent()
}

type FixedBytes struct {
	Bytes []byte
	// declared length, never changes after construction
	Length int
}

type VariableBytes struct {
	Bytes []byte
}

type Sequence struct {
	Elements []*Node
	Element  TypeID
	Hint     Hint
}

type Composite struct {
	Fields []*Node
}

type Tuple struct {
	Elements []*Node
}

type Alternative struct {
	Name  string
	Index uint8
	Docs  []string
}

type Variant struct {
	Available []Alternative
	// last committed alternative, Fields always belong to it
	Selected int
	// alternative the user is pointing at, not yet committed
	Candidate int
	Fields    []*Node
	Hint      Hint
}

func (v *Variant) Names() []string {
	res := make([]string, len(v.Available))
	for i, a := range v.Available {
		res[i] = a.Name
	}
	return res
}

func (v *Variant) Current() Alternative {
	return v.Available[v.Selected]
}

// Step moves the candidate by dir without wrapping at either end.
func (v *Variant) Step(dir int) {
	next := v.Candidate + dir
	if next < 0 || next >= len(v.Available) {
		return
	}
	v.Candidate = next
}

type EmptyVariant struct{}

type Account struct {
	Value optional.Option[[32]byte]
}

type HashRole uint8

const (
	HashOther HashRole = iota
	HashGenesis
	HashBlock
)

func (r HashRole) String() string {
	switch r {
	case HashGenesis:
		return "Genesis"
	case HashBlock:
		return "Block"
	default:
		return ""
	}
}

type Hash struct {
	Value [32]byte
	Role  HashRole
}

const (
	DefaultEraPeriod uint64 = 64
	minEraPeriod     uint64 = 4
	maxEraPeriod     uint64 = 1 << 16
)

type Era struct {
	Immortal bool
	Period   uint64
	Phase    uint64
}

func MortalEra(period uint64) *Era {
	return &Era{Period: normalizePeriod(period)}
}

// normalizePeriod rounds up to a power of two within [4, 65536].
func normalizePeriod(period uint64) uint64 {
	p := minEraPeriod
	for p < period && p < maxEraPeriod {
		p <<= 1
	}
	return p
}

// QuantizeFactor is the granularity of the phase that survives encoding.
func (e *Era) QuantizeFactor() uint64 {
	q := e.Period >> 12
	if q < 1 {
		q = 1
	}
	return q
}

// Toggle switches between immortal and a fresh default mortal window.
func (e *Era) Toggle() {
	if e.Immortal {
		*e = *MortalEra(DefaultEraPeriod)
	} else {
		*e = Era{Immortal: true}
	}
}

// Anchor sets the phase so the window starts at block number.
func (e *Era) Anchor(number uint64) {
	if e.Immortal {
		return
	}
	q := e.QuantizeFactor()
	e.Phase = (number % e.Period) / q * q
}

type Signature struct {
	Scheme keyring.Scheme
	Value  optional.Option[[]byte]
}

func (*Primitive) isContent()     {}
func (*FixedBytes) isContent()    {}
func (*VariableBytes) isContent() {}
func (*Sequence) isContent()      {}
func (*Composite) isContent()     {}
func (*Tuple) isContent()         {}
func (*Variant) isContent()       {}
func (*EmptyVariant) isContent()  {}
func (*Account) isContent()       {}
func (*Hash) isContent()          {}
func (*Era) isContent()           {}
func (*Signature) isContent()     {}

// Extension is one signed extension value. Extras come first and are
// followed by the values that are signed without being transmitted.
type Extension struct {
	Identifier string
	Additional bool
	Value      *Node
}

type Transaction struct {
	Author     *Node
	Call       *Node
	Extensions []Extension
	Signature  *Node

	Genesis [32]byte
	// extrinsic format version
	Version uint8
}

// Roots lists the top level trees in slot order.
func (tx *Transaction) Roots() []*Node {
	res := make([]*Node, 0, len(tx.Extensions)+3)
	res = append(res, tx.Author, tx.Call)
	for _, ext := range tx.Extensions {
		res = append(res, ext.Value)
	}
	return append(res, tx.Signature)
}
