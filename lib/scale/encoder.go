// SCALE codec used by the runtime for extrinsics and metadata.
// https://docs.substrate.io/reference/scale-codec/
package scale

import (
	"encoding/binary"
	"math/bits"

	"github.com/holiman/uint256"
)

/* compact modes, stored in the two low bits of the first byte */
const (
	compactSingle byte = 0b00
	compactTwo    byte = 0b01
	compactFour   byte = 0b10
	compactBig    byte = 0b11
)

type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) Len() int {
	return len(e.buf)
}

// Write appends raw bytes without a length prefix.
func (e *Encoder) Write(b []byte) {
	e.buf = append(e.buf, b...)
}

func (e *Encoder) U8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) U16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *Encoder) U32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) U64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
	} else {
		e.U8(0)
	}
}

// Uint writes v as a fixed width little endian integer of size bits.
// Higher bits that do not fit are dropped.
func (e *Encoder) Uint(v *uint256.Int, size int) {
	be := v.Bytes32()
	n := size / 8
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, be[31-i])
	}
}

func (e *Encoder) Compact(v uint64) {
	switch {
	case v < 1<<6:
		e.U8(byte(v<<2) | compactSingle)
	case v < 1<<14:
		e.U16(uint16(v<<2) | uint16(compactTwo))
	case v < 1<<30:
		e.U32(uint32(v<<2) | uint32(compactFour))
	default:
		n := (bits.Len64(v) + 7) / 8
		if n < 4 {
			n = 4
		}
		e.U8(byte(n-4)<<2 | compactBig)
		for i := 0; i < n; i++ {
			e.U8(byte(v >> (8 * i)))
		}
	}
}

func (e *Encoder) CompactBig(v *uint256.Int) {
	if v.IsUint64() {
		e.Compact(v.Uint64())
		return
	}
	n := (v.BitLen() + 7) / 8
	be := v.Bytes32()
	e.U8(byte(n-4)<<2 | compactBig)
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, be[31-i])
	}
}

// ByteSlice writes a compact length prefix followed by b.
func (e *Encoder) ByteSlice(b []byte) {
	e.Compact(uint64(len(b)))
	e.Write(b)
}

func (e *Encoder) Text(s string) {
	e.ByteSlice([]byte(s))
}
