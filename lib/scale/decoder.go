package scale

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrUnexpectedEOF   = errors.New("unexpected end of input")
	ErrCompactOverflow = errors.New("compact value does not fit in 64 bits")
	ErrInvalidBool     = errors.New("invalid boolean byte")
	ErrInvalidOption   = errors.New("invalid option tag")
)

type Decoder struct {
	data []byte
	pos  int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

func (d *Decoder) Offset() int {
	return d.pos
}

// Bytes reads exactly n raw bytes.
func (d *Decoder) Bytes(n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d", ErrUnexpectedEOF, n, d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) U8() (uint8, error) {
	b, err := d.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) U16() (uint16, error) {
	b, err := d.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *Decoder) U32() (uint32, error) {
	b, err := d.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Decoder) U64() (uint64, error) {
	b, err := d.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *Decoder) Bool() (bool, error) {
	b, err := d.U8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: 0x%02x", ErrInvalidBool, b)
	}
}

// Option reads the tag of an Option<T> and reports whether a value follows.
func (d *Decoder) Option() (bool, error) {
	b, err := d.U8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: 0x%02x", ErrInvalidOption, b)
	}
}

func (d *Decoder) Compact() (uint64, error) {
	first, err := d.U8()
	if err != nil {
		return 0, err
	}
	switch first & 0b11 {
	case compactSingle:
		return uint64(first >> 2), nil
	case compactTwo:
		next, err := d.U8()
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16([]byte{first, next}) >> 2), nil
	case compactFour:
		rest, err := d.Bytes(3)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32([]byte{first, rest[0], rest[1], rest[2]}) >> 2), nil
	default:
		n := int(first>>2) + 4
		b, err := d.Bytes(n)
		if err != nil {
			return 0, err
		}
		var v uint64
		for i, x := range b {
			if i >= 8 {
				if x != 0 {
					return 0, ErrCompactOverflow
				}
				continue
			}
			v |= uint64(x) << (8 * i)
		}
		return v, nil
	}
}

// ByteSlice reads a compact length prefix and that many bytes.
func (d *Decoder) ByteSlice() ([]byte, error) {
	n, err := d.Compact()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, fmt.Errorf("%w: length %d exceeds input", ErrUnexpectedEOF, n)
	}
	return d.Bytes(int(n))
}

func (d *Decoder) Text() (string, error) {
	b, err := d.ByteSlice()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Texts reads a Vec<String>.
func (d *Decoder) Texts() ([]string, error) {
	n, err := d.Compact()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, fmt.Errorf("%w: %d strings", ErrUnexpectedEOF, n)
	}
	res := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		s, err := d.Text()
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}
