package schema

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"tx-composer/lib/utils"
	"tx-composer/modules/keyring"
	"tx-composer/modules/tree"

	"github.com/moznion/go-optional"
)

const (
	// nesting limit for default construction of recursive types
	maxDepth = 64
	// node limit for one default construction
	maxNodes      = 1 << 16
	maxFixedBytes = 1 << 20
)

// budget counts the nodes one construction may still create.
type budget struct {
	left int
}

func newBudget() *budget {
	return &budget{left: maxNodes}
}

func (b *budget) take(id TypeID) error {
	b.left--
	if b.left < 0 {
		return fmt.Errorf("%w: type %d builds more than %d nodes", ErrUnsupported, id, maxNodes)
	}
	return nil
}

type extensionRole struct {
	extra      tree.Hint
	additional tree.Hint
}

var extensionRoles = map[string]extensionRole{
	"CheckNonce":               {extra: tree.HintNonce},
	"ChargeTransactionPayment": {extra: tree.HintTip},
	"ChargeAssetTxPayment":     {extra: tree.HintTip},
	"CheckSpecVersion":         {additional: tree.HintSpecVersion},
	"CheckTxVersion":           {additional: tree.HintTxVersion},
	"CheckGenesis":             {additional: tree.HintGenesis},
	"CheckMortality":           {additional: tree.HintBlockHash},
	"CheckEra":                 {additional: tree.HintBlockHash},
}

// field names a hint may flow into when a composite has several fields
var hintFields = map[tree.Hint]string{
	tree.HintNonce: "nonce",
	tree.HintTip:   "tip",
}

// Constructor builds default value trees from a registry.
type Constructor struct {
	reg    *Registry
	env    Env
	logger *slog.Logger
}

func NewConstructor(reg *Registry, env Env, logger *slog.Logger) *Constructor {
	return &Constructor{
		reg:    reg,
		env:    env,
		logger: logger.With("sub-service", "schema"),
	}
}

func (c *Constructor) Env() Env {
	return c.env
}

// NewTransaction builds the four default trees: author, call, every
// extension extra followed by every additional signed value, signature.
func (c *Constructor) NewTransaction() (*tree.Transaction, error) {
	ext := c.reg.Extrinsic

	author, err := c.Default(ext.Address, tree.HintNone)
	if err != nil {
		return nil, fmt.Errorf("author: %w", err)
	}
	call, err := c.Default(ext.Call, tree.HintNone)
	if err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}

	extensions := make([]tree.Extension, 0, 2*len(ext.Extensions))
	for _, additional := range []bool{false, true} {
		for _, e := range ext.Extensions {
			role := extensionRoles[e.Identifier]
			id, hint := e.Type, role.extra
			if additional {
				id, hint = e.Additional, role.additional
			}
			n, err := c.Default(id, hint)
			if err != nil {
				return nil, fmt.Errorf("extension %s: %w", e.Identifier, err)
			}
			extensions = append(extensions, tree.Extension{
				Identifier: e.Identifier,
				Additional: additional,
				Value:      n,
			})
		}
	}

	sig, err := c.Default(ext.Signature, tree.HintSignature)
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}

	c.logger.Debug("constructed transaction", "extensions", len(ext.Extensions))
	return &tree.Transaction{
		Author:     author,
		Call:       call,
		Extensions: extensions,
		Signature:  sig,
		Genesis:    c.env.Genesis,
		Version:    ext.Version,
	}, nil
}

// Default builds the default value of type id.
func (c *Constructor) Default(id TypeID, hint tree.Hint) (*tree.Node, error) {
	return c.build(id, hint, 0, newBudget())
}

// Alternative builds fresh fields for alternative i of variant type id.
func (c *Constructor) Alternative(id TypeID, i int, hint tree.Hint) ([]*tree.Node, error) {
	return c.alternative(id, i, hint, 0, newBudget())
}

// Resize drops trailing elements of seq or appends default ones until it
// holds n. Nothing changes when an element cannot be built.
func (c *Constructor) Resize(seq *tree.Sequence, n int) error {
	n = max(n, 0)
	if n <= len(seq.Elements) {
		seq.Elements = seq.Elements[:n]
		return nil
	}
	grown := make([]*tree.Node, 0, n-len(seq.Elements))
	b := newBudget()
	for i := len(seq.Elements); i < n; i++ {
		el, err := c.build(seq.Element, seq.Hint, 0, b)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		grown = append(grown, el)
	}
	seq.Elements = append(seq.Elements, grown...)
	return nil
}

func (c *Constructor) alternative(id TypeID, i int, hint tree.Hint, depth int, b *budget) ([]*tree.Node, error) {
	t, err := c.reg.Lookup(id)
	if err != nil {
		return nil, err
	}
	if t.Kind != KindVariant || i < 0 || i >= len(t.Variants) {
		return nil, fmt.Errorf("%w: type %d has no alternative %d", ErrUnsupported, id, i)
	}
	alt := t.Variants[i]

	if hint == tree.HintSignature {
		if n, ok := c.signatureLeaf(alt); ok {
			return []*tree.Node{n}, nil
		}
	}

	return c.fields(alt.Fields, tree.HintNone, depth, b)
}

// signatureLeaf turns a MultiSignature alternative wrapping a byte array
// into a signature leaf of the matching scheme.
func (c *Constructor) signatureLeaf(alt VariantDef) (*tree.Node, bool) {
	scheme, err := keyring.SchemeFromName(alt.Name)
	if err != nil || len(alt.Fields) != 1 {
		return nil, false
	}
	f := alt.Fields[0]
	if c.byteArrayLen(f.Type) != scheme.SignatureLength() {
		return nil, false
	}
	return &tree.Node{
		Name: f.Name,
		Info: f.Docs,
		Type: f.Type,
		Content: &tree.Signature{
			Scheme: scheme,
			Value:  optional.None[[]byte](),
		},
	}, true
}

// bareSignature matches a signature type used without a MultiSignature
// wrapper, such as sp_core::sr25519::Signature.
func (c *Constructor) bareSignature(t *Type) (*tree.Signature, bool) {
	if t.Name() != "Signature" || len(t.Path) < 2 {
		return nil, false
	}
	scheme, err := keyring.SchemeFromName(t.Path[len(t.Path)-2])
	if err != nil || c.byteArrayLen(t.ID) != scheme.SignatureLength() {
		return nil, false
	}
	return &tree.Signature{Scheme: scheme, Value: optional.None[[]byte]()}, true
}

// byteArrayLen sees through single field composites down to [u8; N].
// It returns -1 for anything else.
func (c *Constructor) byteArrayLen(id TypeID) int {
	for i := 0; i < maxDepth; i++ {
		t, err := c.reg.Lookup(id)
		if err != nil {
			return -1
		}
		switch {
		case t.Kind == KindComposite && len(t.Fields) == 1:
			id = t.Fields[0].Type
		case t.Kind == KindArray && c.isByte(t.Elem):
			return int(t.Len)
		default:
			return -1
		}
	}
	return -1
}

func (c *Constructor) isByte(id TypeID) bool {
	t, err := c.reg.Lookup(id)
	return err == nil && t.Kind == KindPrimitive && t.Primitive == "u8"
}

func (c *Constructor) fields(defs []Field, hint tree.Hint, depth int, b *budget) ([]*tree.Node, error) {
	res := make([]*tree.Node, 0, len(defs))
	for _, f := range defs {
		fieldHint := tree.HintNone
		if len(defs) == 1 || strings.EqualFold(f.Name, hintFields[hint]) {
			fieldHint = hint
		}
		n, err := c.build(f.Type, fieldHint, depth+1, b)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		n.Name = f.Name
		if len(f.Docs) > 0 {
			n.Info = f.Docs
		}
		res = append(res, n)
	}
	return res, nil
}

func (c *Constructor) build(id TypeID, hint tree.Hint, depth int, b *budget) (*tree.Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: type %d nests deeper than %d", ErrUnsupported, id, maxDepth)
	}
	if err := b.take(id); err != nil {
		return nil, err
	}
	t, err := c.reg.Lookup(id)
	if err != nil {
		return nil, err
	}
	content, err := c.content(t, hint, depth, b)
	if err != nil {
		return nil, err
	}
	return &tree.Node{Info: t.Docs, Type: id, Content: content}, nil
}

func (c *Constructor) special(t *Type, hint tree.Hint) (tree.Content, bool) {
	if hint == tree.HintSignature {
		if sig, ok := c.bareSignature(t); ok {
			return sig, true
		}
	}
	switch t.Name() {
	case "AccountId32":
		return &tree.Account{Value: optional.None[[32]byte]()}, true
	case "H256":
		switch hint {
		case tree.HintGenesis:
			return &tree.Hash{Value: c.env.Genesis, Role: tree.HashGenesis}, true
		case tree.HintBlockHash:
			// stays valid for immortal transactions until a tip is known
			return &tree.Hash{Value: c.env.Genesis, Role: tree.HashBlock}, true
		default:
			return &tree.Hash{Role: tree.HashOther}, true
		}
	case "Era":
		return tree.MortalEra(tree.DefaultEraPeriod), true
	}
	return nil, false
}

func (c *Constructor) content(t *Type, hint tree.Hint, depth int, b *budget) (tree.Content, error) {
	if content, ok := c.special(t, hint); ok {
		return content, nil
	}

	switch t.Kind {
	case KindComposite:
		fields, err := c.fields(t.Fields, hint, depth, b)
		if err != nil {
			return nil, err
		}
		return &tree.Composite{Fields: fields}, nil

	case KindVariant:
		if len(t.Variants) == 0 {
			return &tree.EmptyVariant{}, nil
		}
		v := &tree.Variant{Hint: hint}
		for _, alt := range t.Variants {
			v.Available = append(v.Available, tree.Alternative{Name: alt.Name, Index: alt.Index, Docs: alt.Docs})
		}
		if hint == tree.HintSignature {
			if i := utils.IndexOf(v.Names(), keyring.Sr25519.String()); i >= 0 {
				v.Selected = i
			}
		}
		v.Candidate = v.Selected
		fields, err := c.alternative(t.ID, v.Selected, hint, depth, b)
		if err != nil {
			return nil, err
		}
		v.Fields = fields
		return v, nil

	case KindSequence:
		if c.isByte(t.Elem) {
			return &tree.VariableBytes{Bytes: []byte{}}, nil
		}
		return &tree.Sequence{Element: t.Elem, Hint: hint}, nil

	case KindArray:
		if c.isByte(t.Elem) {
			if t.Len > maxFixedBytes {
				return nil, fmt.Errorf("%w: type %d holds %d bytes", ErrUnsupported, t.ID, t.Len)
			}
			return &tree.FixedBytes{Bytes: make([]byte, t.Len), Length: int(t.Len)}, nil
		}
		if int(t.Len) > b.left {
			return nil, fmt.Errorf("%w: type %d builds more than %d nodes", ErrUnsupported, t.ID, maxNodes)
		}
		elems := make([]*tree.Node, 0, t.Len)
		for i := uint32(0); i < t.Len; i++ {
			n, err := c.build(t.Elem, tree.HintNone, depth+1, b)
			if err != nil {
				return nil, err
			}
			elems = append(elems, n)
		}
		return &tree.Tuple{Elements: elems}, nil

	case KindTuple:
		elems := make([]*tree.Node, 0, len(t.Tuple))
		for _, id := range t.Tuple {
			elemHint := tree.HintNone
			if len(t.Tuple) == 1 {
				elemHint = hint
			}
			n, err := c.build(id, elemHint, depth+1, b)
			if err != nil {
				return nil, err
			}
			elems = append(elems, n)
		}
		return &tree.Tuple{Elements: elems}, nil

	case KindPrimitive:
		def, err := primitiveOf(t.Primitive)
		if err != nil {
			return nil, err
		}
		return c.primitive(def.kind, def.bits, hint), nil

	case KindCompact:
		bits, err := c.compactBits(t.Elem)
		if err != nil {
			return nil, fmt.Errorf("compact type %d: %w", t.ID, err)
		}
		return c.primitive(tree.CompactUnsigned, bits, hint), nil

	default:
		return nil, fmt.Errorf("%w: type %d (kind %d)", ErrUnsupported, t.ID, t.Kind)
	}
}

// compactBits finds the unsigned integer behind a compact, seeing
// through single field wrappers such as Perbill.
func (c *Constructor) compactBits(id TypeID) (int, error) {
	for i := 0; i < maxDepth; i++ {
		t, err := c.reg.Lookup(id)
		if err != nil {
			return 0, err
		}
		switch {
		case t.Kind == KindPrimitive:
			def, err := primitiveOf(t.Primitive)
			if err != nil {
				return 0, err
			}
			if def.kind != tree.Unsigned {
				return 0, fmt.Errorf("%w: compact %s", ErrUnsupported, t.Primitive)
			}
			return def.bits, nil
		case t.Kind == KindComposite && len(t.Fields) == 1:
			id = t.Fields[0].Type
		case t.Kind == KindTuple && len(t.Tuple) == 1:
			id = t.Tuple[0]
		default:
			return 0, fmt.Errorf("%w: compact of type %d", ErrUnsupported, id)
		}
	}
	return 0, fmt.Errorf("%w: compact nesting", ErrUnsupported)
}

func (c *Constructor) primitive(kind tree.PrimitiveKind, bits int, hint tree.Hint) *tree.Primitive {
	p := tree.NewPrimitive(kind, bits)
	if !p.Numeric() {
		return p
	}
	switch hint {
	case tree.HintNonce:
		p.Specialty = tree.SpecialtyNonce
	case tree.HintTip:
		p.Specialty = tree.SpecialtyTip
	case tree.HintSpecVersion:
		p.Specialty = tree.SpecialtySpecVersion
		p.Value = strconv.FormatUint(uint64(c.env.SpecVersion), 10)
	case tree.HintTxVersion:
		p.Specialty = tree.SpecialtyTxVersion
		p.Value = strconv.FormatUint(uint64(c.env.TxVersion), 10)
	}
	return p
}
