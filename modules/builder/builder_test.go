package builder_test

import (
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"testing"

	"tx-composer/lib/logger"
	"tx-composer/modules/builder"
	"tx-composer/modules/keyring"
	"tx-composer/modules/schema"
	"tx-composer/modules/tree"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slots of a new transaction:
//
//	0 author account
//	1 call variant
//	2   dest
//	3   value
//	4 nonce
//	5 genesis hash
//	6 MultiSignature
//	7   signature
const transferCatalogue = `
runtime:
  genesis: "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"
  specVersion: 1
  txVersion: 1
extrinsic:
  address: 2
  call: 5
  signature: 8
  extensions:
    - { identifier: CheckNonce, type: 12, additional: 13 }
    - { identifier: CheckGenesis, type: 13, additional: 14 }
types:
  - { id: 0, kind: primitive, primitive: u8 }
  - { id: 1, kind: array, len: 32, elem: 0 }
  - { id: 2, path: [sp_core, crypto, AccountId32], kind: composite, fields: [{ type: 1 }] }
  - { id: 3, kind: primitive, primitive: u128 }
  - { id: 4, kind: compact, elem: 3 }
  - id: 5
    path: [runtime, Call]
    kind: variant
    variants:
      - name: Transfer
        index: 0
        docs: ["Move funds."]
        fields:
          - { name: dest, type: 2 }
          - { name: value, type: 4 }
      - name: Remark
        index: 1
        docs: ["Store a note."]
        fields:
          - { name: data, type: 1 }
  - { id: 6, kind: array, len: 64, elem: 0 }
  - { id: 7, path: [sp_core, sr25519, Signature], kind: composite, fields: [{ type: 6 }] }
  - { id: 8, path: [sp_runtime, MultiSignature], kind: variant, variants: [{ name: Sr25519, index: 1, fields: [{ type: 7 }] }] }
  - { id: 10, kind: primitive, primitive: u32 }
  - { id: 11, kind: compact, elem: 10 }
  - { id: 12, path: [CheckNonce], kind: composite, fields: [{ type: 11 }] }
  - { id: 13, kind: tuple }
  - { id: 14, path: [primitive_types, H256], kind: composite, fields: [{ type: 1 }] }
`

const (
	alice       = 2
	publicOnly  = 1
	aliceEd     = 8
	alicePublic = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
)

func testLogger() *slog.Logger {
	return logger.New("test", slog.LevelError, io.Discard)
}

func newBuilder(t *testing.T, catalogue []byte) *builder.Builder {
	t.Helper()
	reg, env, err := schema.LoadYAML(catalogue)
	require.NoError(t, err)
	require.True(t, env.IsSome())

	ids, err := keyring.New(testLogger(), 42, keyring.DefaultEntries())
	require.NoError(t, err)

	b, err := builder.New(testLogger(), ids, schema.NewConstructor(reg, env.Unwrap(), testLogger()), 42)
	require.NoError(t, err)
	return b
}

func moveTo(b *builder.Builder, slot int) {
	b.MoveCursor(slot - b.Cursor())
}

func pick(b *builder.Builder, slot, index int) {
	moveTo(b, slot)
	b.ToggleEdit()
	b.MoveCursor(index)
	b.ToggleEdit()
}

func typeIn(b *builder.Builder, slot int, text string) {
	moveTo(b, slot)
	b.ToggleEdit()
	for _, r := range text {
		b.PushChar(r)
	}
	b.ToggleEdit()
}

func texts(cards []tree.Card) []string {
	res := make([]string, len(cards))
	for i, c := range cards {
		res[i] = c.Text
	}
	return res
}

func TestMoveCursorClamps(t *testing.T) {
	b := newBuilder(t, []byte(transferCatalogue))
	require.Len(t, b.Cards(), 8)

	b.MoveCursor(-1)
	assert.Equal(t, 0, b.Cursor())
	for i := 0; i < 20; i++ {
		b.MoveCursor(1)
	}
	assert.Equal(t, 7, b.Cursor())
	b.MoveCursor(-3)
	assert.Equal(t, 4, b.Cursor())
}

func TestVariantCommit(t *testing.T) {
	b := newBuilder(t, []byte(transferCatalogue))
	moveTo(b, 1)

	b.ToggleEdit()
	assert.Equal(t, builder.Edit, b.Mode())
	sel := b.Details().Selection
	require.True(t, sel.IsSome())
	assert.Equal(t, []string{"Transfer", "Remark"}, sel.Unwrap().Labels)
	assert.Equal(t, 0, sel.Unwrap().Index())

	b.MoveCursor(1)
	assert.Equal(t, 1, b.Details().Selection.Unwrap().Index())
	// the cursor itself stays while editing
	assert.Equal(t, 1, b.Cursor())

	b.ToggleEdit()
	assert.Equal(t, builder.Browse, b.Mode())
	v := b.Transaction().Call.Content.(*tree.Variant)
	assert.Equal(t, 1, v.Selected)
	assert.Equal(t, 1, v.Candidate)
	require.Len(t, v.Fields, 1)
	assert.Equal(t, "data", v.Fields[0].Name)
	assert.Equal(t, 7, b.Transaction().Count())
	assert.Len(t, b.Cards(), 7)
	assert.True(t, b.Details().Selection.IsNone())
}

func TestFixedBytesCommit(t *testing.T) {
	b := newBuilder(t, []byte(transferCatalogue))
	pick(b, 1, 1)

	typeIn(b, 2, "aaaa")
	data := b.Transaction().Call.Content.(*tree.Variant).Fields[0].Content.(*tree.FixedBytes)
	assert.Equal(t, []byte("aaaa"), data.Bytes)
	assert.Equal(t, 32, data.Length)
	assert.Contains(t, b.Details().Content, "String: aaaa")
	assert.Contains(t, b.Details().Content, "Length: 4 of 32")

	_, err := b.SignablePayload()
	assert.ErrorIs(t, err, schema.ErrLengthMismatch)
}

func TestPrimitiveCommit(t *testing.T) {
	b := newBuilder(t, []byte(transferCatalogue))

	typeIn(b, 3, "12")
	assert.Equal(t, "value: 12", b.Cards()[3].Text)

	moveTo(b, 3)
	b.ToggleEdit()
	b.Paste("twelve")
	b.PopChar()
	assert.Equal(t, "twelv", b.Details().Buffer.Unwrap())
	b.ToggleEdit()
	assert.Equal(t, "value: 12", b.Cards()[3].Text)
	assert.Equal(t, builder.Browse, b.Mode())
}

func TestBufferOnlyInEditMode(t *testing.T) {
	b := newBuilder(t, []byte(transferCatalogue))
	b.PushChar('x')
	b.Paste("yz")
	b.PopChar()
	assert.Equal(t, "", b.Buffer())
	assert.True(t, b.Details().Buffer.IsNone())
}

func TestAccountCommit(t *testing.T) {
	b := newBuilder(t, []byte(transferCatalogue))

	moveTo(b, 0)
	b.ToggleEdit()
	sel := b.Details().Selection.Unwrap()
	assert.Len(t, sel.Labels, len(keyring.DefaultEntries()))
	assert.Equal(t, "[-] ", sel.Labels[publicOnly][:4])
	b.MoveCursor(alice)
	b.ToggleEdit()

	author := b.Author()
	require.True(t, author.IsSome())
	acc := author.Unwrap()
	assert.Equal(t, alicePublic, hex.EncodeToString(acc[:]))
	assert.Equal(t, "address: 5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", b.Cards()[0].Text)

	b.SetSS58Prefix(0)
	assert.Equal(t, "address: 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5", b.Cards()[0].Text)
}

func TestAccountSelectorOpensAtCurrent(t *testing.T) {
	b := newBuilder(t, []byte(transferCatalogue))
	pick(b, 0, alice)

	b.ToggleEdit()
	assert.Equal(t, alice, b.Details().Selection.Unwrap().Index())
	// committing again without moving keeps the author
	b.ToggleEdit()
	acc := b.Author().Unwrap()
	assert.Equal(t, alicePublic, hex.EncodeToString(acc[:]))

	pick(b, 0, 1)
	b.ToggleEdit()
	assert.Equal(t, alice+1, b.Details().Selection.Unwrap().Index())
}

func TestChainHashesAreNotEditable(t *testing.T) {
	b := newBuilder(t, []byte(transferCatalogue))
	before := b.Cards()[5].Text
	typeIn(b, 5, "0x"+alicePublic)
	assert.Equal(t, before, b.Cards()[5].Text)
}

func readyTransfer(t *testing.T, author int) *builder.Builder {
	t.Helper()
	b := newBuilder(t, []byte(transferCatalogue))
	pick(b, 0, author)
	pick(b, 2, alice)
	typeIn(b, 3, "1000")
	return b
}

func TestSign(t *testing.T) {
	b := readyTransfer(t, alice)
	assert.True(t, b.FinalizedPayload().IsNone())

	moveTo(b, 7)
	b.ToggleEdit()
	b.ToggleEdit()

	sig := b.Transaction().Signature.Content.(*tree.Variant).Fields[0].Content.(*tree.Signature)
	require.True(t, sig.Value.IsSome())
	assert.Len(t, sig.Value.Unwrap(), 64)
	assert.True(t, b.Signed())

	out := b.FinalizedPayload()
	require.True(t, out.IsSome())
	raw := out.Unwrap()
	assert.NotEmpty(t, raw)
	// length prefix, then the signed version byte and the author
	assert.Equal(t, byte(0x84), raw[2])
	assert.Equal(t, alicePublic, hex.EncodeToString(raw[3:35]))

	// any edit drops the signature
	typeIn(b, 3, "1001")
	assert.False(t, b.Signed())
	assert.True(t, b.FinalizedPayload().IsNone())
}

func TestSignBareSignature(t *testing.T) {
	catalogue := strings.Replace(transferCatalogue, "signature: 8", "signature: 7", 1)
	b := newBuilder(t, []byte(catalogue))
	pick(b, 0, alice)
	pick(b, 2, alice)
	require.Equal(t, 7, b.Transaction().Count())

	moveTo(b, 6)
	b.ToggleEdit()
	b.ToggleEdit()

	sig := b.Transaction().Signature.Content.(*tree.Signature)
	require.True(t, sig.Value.IsSome())
	assert.True(t, b.FinalizedPayload().IsSome())
}

func TestSignUnavailable(t *testing.T) {
	for name, author := range map[string]int{"public only": publicOnly, "other scheme": aliceEd} {
		t.Run(name, func(t *testing.T) {
			b := readyTransfer(t, author)
			moveTo(b, 7)
			b.ToggleEdit()
			b.ToggleEdit()
			assert.False(t, b.Signed())
			assert.Equal(t, ">>>Sign here!<<<", b.Cards()[7].Text)
			assert.True(t, b.FinalizedPayload().IsNone())
		})
	}

	b := newBuilder(t, []byte(transferCatalogue))
	moveTo(b, 7)
	b.ToggleEdit()
	b.ToggleEdit()
	assert.False(t, b.Signed())
}

func TestAutofillLeavesSignedTransaction(t *testing.T) {
	b := readyTransfer(t, alice)
	b.Autofill(builder.Tip{Number: 5}, optional.Some[uint64](3))
	assert.Equal(t, "Nonce: 3", b.Cards()[4].Text)

	moveTo(b, 7)
	b.ToggleEdit()
	b.ToggleEdit()
	require.True(t, b.Signed())

	b.Autofill(builder.Tip{Number: 6}, optional.Some[uint64](4))
	assert.Equal(t, "Nonce: 3", b.Cards()[4].Text)
	assert.True(t, b.Signed())
}

func TestDetails(t *testing.T) {
	b := newBuilder(t, []byte(transferCatalogue))
	moveTo(b, 1)
	d := b.Details()
	assert.Equal(t, "Transfer: Move funds.", d.Content)
	assert.True(t, d.Buffer.IsNone())

	b.Cycle(1)
	assert.Equal(t, "Transfer: Move funds.\n\nnext Remark: Store a note.", b.Details().Content)

	b.ToggleEdit()
	d = b.Details()
	assert.Equal(t, "", d.Buffer.Unwrap())
	// selection starts at the candidate
	assert.Equal(t, "Remark", d.Selection.Unwrap().Selected())

	// the returned selection is a copy
	d.Selection.Unwrap().Dec()
	assert.Equal(t, 1, b.Details().Selection.Unwrap().Index())
}
