package schema_test

import (
	"io"
	"log/slog"
	"testing"

	"tx-composer/lib/logger"
	"tx-composer/modules/keyring"
	"tx-composer/modules/schema"
	"tx-composer/modules/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return logger.New("test", slog.LevelError, io.Discard)
}

func sampleConstructor(t *testing.T) *schema.Constructor {
	t.Helper()
	reg, env := loadSample(t)
	return schema.NewConstructor(reg, env, testLogger())
}

func TestNewTransactionCards(t *testing.T) {
	tx, err := sampleConstructor(t).NewTransaction()
	require.NoError(t, err)

	genesis := "0x" + westendGenesis
	want := []tree.Card{
		{Text: "Id", Indent: 0},
		{Text: "AccountId32", Indent: 1},
		{Text: "System", Indent: 0},
		{Text: "remark", Indent: 1},
		{Text: "remark: 0x", Indent: 2},
		{Text: "Phase: 0 Period: 64", Indent: 0},
		{Text: "Nonce: 0", Indent: 0},
		{Text: "Tip: 0", Indent: 0},
		{Text: "mode: Disabled", Indent: 0},
		{Text: "SpecVersion: 1017001", Indent: 0},
		{Text: "TxVersion: 27", Indent: 0},
		{Text: "Genesis H256: " + genesis, Indent: 0},
		{Text: "Block H256: " + genesis, Indent: 0},
		{Text: "None", Indent: 0},
		{Text: "Sr25519", Indent: 0},
		{Text: ">>>Sign here!<<<", Indent: 1},
	}

	assert.Equal(t, len(want), tx.Count())
	assert.Equal(t, want, tree.Cards(tx, 42))
	assert.Equal(t, uint8(4), tx.Version)
}

func TestExtensionOrder(t *testing.T) {
	tx, err := sampleConstructor(t).NewTransaction()
	require.NoError(t, err)
	require.Len(t, tx.Extensions, 18)

	for i, ext := range tx.Extensions {
		assert.Equal(t, i >= 9, ext.Additional, ext.Identifier)
	}
	assert.Equal(t, "CheckNonZeroSender", tx.Extensions[0].Identifier)
	assert.Equal(t, "CheckNonZeroSender", tx.Extensions[9].Identifier)
}

func TestSignatureLeaf(t *testing.T) {
	c := sampleConstructor(t)
	tx, err := c.NewTransaction()
	require.NoError(t, err)

	v, ok := tx.Signature.Content.(*tree.Variant)
	require.True(t, ok)
	assert.Equal(t, 1, v.Selected)
	assert.Equal(t, v.Selected, v.Candidate)
	require.Len(t, v.Fields, 1)
	sig, ok := v.Fields[0].Content.(*tree.Signature)
	require.True(t, ok)
	assert.Equal(t, keyring.Sr25519, sig.Scheme)
	assert.True(t, sig.Value.IsNone())

	fields, err := c.Alternative(21, 2, tree.HintSignature)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, keyring.Ecdsa, fields[0].Content.(*tree.Signature).Scheme)

	// without the hint the raw array is kept
	fields, err = c.Alternative(21, 0, tree.HintNone)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	inner := fields[0].Content.(*tree.Composite).Fields[0]
	assert.Equal(t, 64, inner.Content.(*tree.FixedBytes).Length)
}

func TestAlternative(t *testing.T) {
	c := sampleConstructor(t)

	fields, err := c.Alternative(11, 1, tree.HintNone)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "dest", fields[0].Name)
	assert.Equal(t, "value", fields[1].Name)
	value := fields[1].Content.(*tree.Primitive)
	assert.Equal(t, tree.CompactUnsigned, value.Kind)
	assert.Equal(t, 128, value.Bits)

	_, err = c.Alternative(11, 2, tree.HintNone)
	assert.ErrorIs(t, err, schema.ErrUnsupported)
	_, err = c.Alternative(2, 0, tree.HintNone)
	assert.ErrorIs(t, err, schema.ErrUnsupported)
	_, err = c.Alternative(99, 0, tree.HintNone)
	assert.ErrorIs(t, err, schema.ErrUnknownType)
}

func TestDefaults(t *testing.T) {
	c := sampleConstructor(t)

	n, err := c.Default(15, tree.HintNone)
	require.NoError(t, err)
	seq := n.Content.(*tree.Sequence)
	assert.Empty(t, seq.Elements)
	assert.Equal(t, schema.TypeID(13), seq.Element)

	n, err = c.Default(1, tree.HintNone)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), n.Content.(*tree.FixedBytes).Bytes)

	n, err = c.Default(10, tree.HintNone)
	require.NoError(t, err)
	assert.Equal(t, tree.HashOther, n.Content.(*tree.Hash).Role)

	n, err = c.Default(9, tree.HintNone)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Count(n))
}

func TestRecursionLimit(t *testing.T) {
	reg, _, err := schema.LoadYAML([]byte(`
extrinsic: { address: 0, call: 0, signature: 0 }
types:
  - id: 0
    kind: composite
    fields: [{ name: next, type: 0 }]
`))
	require.NoError(t, err)

	c := schema.NewConstructor(reg, schema.Env{}, testLogger())
	_, err = c.Default(0, tree.HintNone)
	assert.ErrorIs(t, err, schema.ErrUnsupported)
}

func TestBitSequenceUnsupported(t *testing.T) {
	reg, _, err := schema.LoadYAML([]byte(`
extrinsic: { address: 0, call: 0, signature: 0 }
types:
  - { id: 0, kind: primitive, primitive: u8 }
  - { id: 1, kind: bitsequence, elem: 0 }
`))
	require.NoError(t, err)

	c := schema.NewConstructor(reg, schema.Env{}, testLogger())
	_, err = c.Default(1, tree.HintNone)
	assert.ErrorIs(t, err, schema.ErrUnsupported)
}

func TestResize(t *testing.T) {
	c := sampleConstructor(t)
	n, err := c.Default(15, tree.HintNone)
	require.NoError(t, err)
	seq := n.Content.(*tree.Sequence)

	require.NoError(t, c.Resize(seq, 2))
	require.Len(t, seq.Elements, 2)
	assert.Equal(t, "System", seq.Elements[1].Content.(*tree.Variant).Current().Name)
	// self slot plus three per element
	assert.Equal(t, 7, tree.Count(n))

	first := seq.Elements[0]
	require.NoError(t, c.Resize(seq, 1))
	assert.Equal(t, []*tree.Node{first}, seq.Elements)
	require.NoError(t, c.Resize(seq, -1))
	assert.Empty(t, seq.Elements)
}

func TestOversizedArrays(t *testing.T) {
	reg, _, err := schema.LoadYAML([]byte(`
extrinsic: { address: 0, call: 3, signature: 0 }
types:
  - { id: 0, kind: primitive, primitive: u32 }
  - { id: 1, kind: array, len: 2000, elem: 0 }
  - { id: 2, kind: array, len: 2000, elem: 1 }
  - { id: 3, kind: composite, fields: [{ name: grid, type: 2 }] }
  - { id: 4, kind: primitive, primitive: u8 }
  - { id: 5, kind: array, len: 4294967295, elem: 4 }
  - { id: 6, kind: array, len: 100, elem: 0 }
`))
	require.NoError(t, err)
	c := schema.NewConstructor(reg, schema.Env{}, testLogger())

	_, err = c.Default(3, tree.HintNone)
	assert.ErrorIs(t, err, schema.ErrUnsupported)
	_, err = c.NewTransaction()
	assert.ErrorIs(t, err, schema.ErrUnsupported)
	_, err = c.Default(5, tree.HintNone)
	assert.ErrorIs(t, err, schema.ErrUnsupported)

	n, err := c.Default(6, tree.HintNone)
	require.NoError(t, err)
	assert.Equal(t, 100, tree.Count(n))
}

func TestBareSignature(t *testing.T) {
	reg, _, err := schema.LoadYAML([]byte(`
extrinsic: { address: 1, call: 4, signature: 3 }
types:
  - { id: 0, kind: primitive, primitive: u8 }
  - { id: 1, kind: array, len: 32, elem: 0 }
  - { id: 2, kind: array, len: 64, elem: 0 }
  - id: 3
    path: [sp_core, sr25519, Signature]
    kind: composite
    fields: [{ type: 2 }]
  - { id: 4, kind: variant, variants: [{ name: A, index: 0 }] }
  - id: 5
    path: [sp_core, ecdsa, Signature]
    kind: composite
    fields: [{ type: 2 }]
`))
	require.NoError(t, err)
	c := schema.NewConstructor(reg, schema.Env{}, testLogger())

	tx, err := c.NewTransaction()
	require.NoError(t, err)
	sig, ok := tx.Signature.Content.(*tree.Signature)
	require.True(t, ok)
	assert.Equal(t, keyring.Sr25519, sig.Scheme)
	assert.True(t, sig.Value.IsNone())

	// only the signature position turns into a signature leaf
	n, err := c.Default(3, tree.HintNone)
	require.NoError(t, err)
	assert.IsType(t, &tree.Composite{}, n.Content)

	// ecdsa signatures are 65 bytes, so 64 stays raw
	n, err = c.Default(5, tree.HintSignature)
	require.NoError(t, err)
	assert.IsType(t, &tree.Composite{}, n.Content)
}
