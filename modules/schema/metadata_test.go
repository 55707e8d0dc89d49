package schema_test

import (
	"testing"

	"tx-composer/lib/scale"
	"tx-composer/modules/schema"
	"tx-composer/modules/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metaWriter struct {
	*scale.Encoder
}

func (w metaWriter) texts(s ...string) {
	w.Compact(uint64(len(s)))
	for _, v := range s {
		w.Text(v)
	}
}

func (w metaWriter) none() { w.U8(0) }

func (w metaWriter) someText(s string) {
	w.U8(1)
	w.Text(s)
}

func (w metaWriter) someID(id uint64) {
	w.U8(1)
	w.Compact(id)
}

// header writes id, path, params
func (w metaWriter) header(id uint64, path []string, params ...any) {
	w.Compact(id)
	w.texts(path...)
	w.Compact(uint64(len(params) / 2))
	for i := 0; i < len(params); i += 2 {
		w.Text(params[i].(string))
		if ty, ok := params[i+1].(int); ok {
			w.someID(uint64(ty))
		} else {
			w.none()
		}
	}
}

// field writes an unnamed field with no type name or docs, or a named one.
func (w metaWriter) field(name string, ty uint64) {
	if name == "" {
		w.none()
	} else {
		w.someText(name)
	}
	w.Compact(ty)
	w.none()
	w.texts()
}

func (w metaWriter) primitive(id uint64, tag uint8) {
	w.header(id, nil)
	w.U8(5)
	w.U8(tag)
	w.texts()
}

func (w metaWriter) array(id uint64, n uint32, elem uint64) {
	w.header(id, nil)
	w.U8(3)
	w.U32(n)
	w.Compact(elem)
	w.texts()
}

func metadataBlob() []byte {
	w := metaWriter{scale.NewEncoder()}
	w.U32(0x6174656d)
	w.U8(14)

	w.Compact(12)
	w.primitive(0, 3) // u8
	w.array(1, 32, 0)

	w.header(2, []string{"sp_core", "crypto", "AccountId32"})
	w.U8(0)
	w.Compact(1)
	w.field("", 1)
	w.texts()

	w.header(3, []string{"frame_system", "pallet", "Call"})
	w.U8(1)
	w.Compact(1)
	w.Text("remark")
	w.Compact(1)
	w.field("remark", 4)
	w.U8(0)
	w.texts("Make some on-chain remark.")
	w.texts()

	w.header(4, nil)
	w.U8(2)
	w.Compact(0)
	w.texts()

	w.header(5, []string{"sp_runtime", "MultiSignature"})
	w.U8(1)
	w.Compact(1)
	w.Text("Sr25519")
	w.Compact(1)
	w.field("", 6)
	w.U8(1)
	w.texts()
	w.texts()

	w.array(6, 64, 0)

	w.header(7, []string{"sp_runtime", "generic", "unchecked_extrinsic", "UncheckedExtrinsic"},
		"Address", 2, "Call", 3, "Signature", 5, "Extra", nil)
	w.U8(0)
	w.Compact(0)
	w.texts()

	w.header(8, nil)
	w.U8(4)
	w.Compact(0)
	w.texts()

	w.header(9, nil)
	w.U8(6)
	w.Compact(10)
	w.texts()

	w.primitive(10, 5) // u32

	w.header(11, []string{"BitVec"})
	w.U8(7)
	w.Compact(0)
	w.Compact(8)
	w.texts()

	// one pallet
	w.Compact(1)
	w.Text("System")
	w.U8(1)
	w.Text("System")
	w.Compact(2)
	w.Text("Number")
	w.U8(0)
	w.U8(0)
	w.Compact(10)
	w.ByteSlice([]byte{0, 0, 0, 0})
	w.texts()
	w.Text("Account")
	w.U8(1)
	w.U8(1)
	w.ByteSlice([]byte{2})
	w.Compact(2)
	w.Compact(10)
	w.ByteSlice(nil)
	w.texts("The full account information for a particular account ID.")
	w.someID(3)
	w.none()
	w.Compact(1)
	w.Text("BlockHashCount")
	w.Compact(10)
	w.ByteSlice([]byte{0x60, 0x09, 0, 0})
	w.texts()
	w.none()
	w.U8(0)

	// extrinsic
	w.Compact(7)
	w.U8(4)
	w.Compact(1)
	w.Text("CheckNonce")
	w.Compact(9)
	w.Compact(8)

	return w.Bytes()
}

func TestFromMetadata(t *testing.T) {
	reg, err := schema.FromMetadata(metadataBlob())
	require.NoError(t, err)

	assert.Len(t, reg.Types, 12)
	assert.Equal(t, schema.TypeID(2), reg.Extrinsic.Address)
	assert.Equal(t, schema.TypeID(3), reg.Extrinsic.Call)
	assert.Equal(t, schema.TypeID(5), reg.Extrinsic.Signature)
	assert.Equal(t, uint8(4), reg.Extrinsic.Version)
	assert.Equal(t, []schema.ExtensionDef{{Identifier: "CheckNonce", Type: 9, Additional: 8}}, reg.Extrinsic.Extensions)

	call, err := reg.Lookup(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Make some on-chain remark."}, call.Variants[0].Docs)
	assert.Equal(t, "remark", call.Variants[0].Fields[0].Name)

	bits, err := reg.Lookup(11)
	require.NoError(t, err)
	assert.Equal(t, schema.KindBitSequence, bits.Kind)

	c := schema.NewConstructor(reg, schema.Env{}, testLogger())
	tx, err := c.NewTransaction()
	require.NoError(t, err)
	cards := tree.Cards(tx, 42)
	require.Len(t, cards, 6)
	assert.Equal(t, "AccountId32", cards[0].Text)
	assert.Equal(t, "remark", cards[1].Text)
	assert.Equal(t, "Nonce: 0", cards[3].Text)
	assert.Equal(t, ">>>Sign here!<<<", cards[5].Text)
}

func TestFromMetadataErrors(t *testing.T) {
	blob := metadataBlob()

	bad := append([]byte{}, blob...)
	bad[0] = 0
	_, err := schema.FromMetadata(bad)
	assert.ErrorIs(t, err, schema.ErrUnsupported)

	bad = append([]byte{}, blob...)
	bad[4] = 15
	_, err = schema.FromMetadata(bad)
	assert.ErrorIs(t, err, schema.ErrUnsupported)

	_, err = schema.FromMetadata(blob[:len(blob)/2])
	assert.Error(t, err)

	_, err = schema.FromMetadata(blob[:len(blob)-1])
	assert.ErrorIs(t, err, scale.ErrUnexpectedEOF)
}
