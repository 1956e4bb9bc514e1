package wire

import (
	"fmt"
	"io"
)

// Decoder reads a D-Bus wire format byte stream, handling the
// alignment padding the format requires.
//
// Methods advance the read cursor to account for alignment, except
// [Decoder.Read] which reads bytes verbatim.
type Decoder struct {
	// Order is the byte order used to decode multi-byte values.
	Order ByteOrder
	// In is the input stream.
	In io.Reader

	// offset tracks bytes consumed so far; alignment depends on the
	// message-global offset, not local context.
	offset int
}

// Pad consumes padding bytes so the next read starts at a multiple of
// align bytes from the start of the message. If already aligned, it
// is a no-op.
func (d *Decoder) Pad(align int) error {
	extra := d.offset % align
	if extra == 0 {
		return nil
	}
	skip := align - extra
	if _, err := io.CopyN(io.Discard, d.In, int64(skip)); err != nil {
		return err
	}
	d.offset += skip
	return nil
}

// Read reads exactly n bytes, with no framing or padding.
func (d *Decoder) Read(n int) ([]byte, error) {
	bs := make([]byte, n)
	if _, err := io.ReadFull(d.In, bs); err != nil {
		return nil, err
	}
	d.offset += n
	return bs, nil
}

// Bytes reads a D-Bus byte array: a uint32 length prefix followed by
// that many raw bytes.
func (d *Decoder) Bytes() ([]byte, error) {
	ln, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	return d.Read(int(ln))
}

// String reads a D-Bus string: a uint32 byte-length prefix, the UTF-8
// bytes, and a trailing NUL.
func (d *Decoder) String() (string, error) {
	ln, err := d.Uint32()
	if err != nil {
		return "", err
	}
	raw, err := d.Read(int(ln) + 1)
	if err != nil {
		return "", err
	}
	return string(raw[:len(raw)-1]), nil
}

// Uint8 reads a single byte.
func (d *Decoder) Uint8() (uint8, error) {
	bs, err := d.Read(1)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

// Uint16 reads a uint16, aligned to 2 bytes.
func (d *Decoder) Uint16() (uint16, error) {
	if err := d.Pad(2); err != nil {
		return 0, err
	}
	bs, err := d.Read(2)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint16(bs), nil
}

// Uint32 reads a uint32, aligned to 4 bytes.
func (d *Decoder) Uint32() (uint32, error) {
	if err := d.Pad(4); err != nil {
		return 0, err
	}
	bs, err := d.Read(4)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint32(bs), nil
}

// Uint64 reads a uint64, aligned to 8 bytes.
func (d *Decoder) Uint64() (uint64, error) {
	if err := d.Pad(8); err != nil {
		return 0, err
	}
	bs, err := d.Read(8)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint64(bs), nil
}

// Array reads a D-Bus array. readElement is called repeatedly, once
// per element at increasing index, until the array's byte length is
// consumed; it must not read past the array boundary. containsStructs
// must be true when the array holds structs, so the 8-byte struct
// alignment pad is consumed even for a zero-length array.
//
// Array returns the number of elements read.
func (d *Decoder) Array(containsStructs bool, readElement func(idx int) error) (int, error) {
	ln, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	if containsStructs {
		if err := d.Pad(8); err != nil {
			return 0, err
		}
	}
	if ln == 0 {
		return 0, nil
	}
	outer := d.In
	limit := &io.LimitedReader{R: outer, N: int64(ln)}
	d.In = limit
	defer func() { d.In = outer }()
	idx := 0
	for limit.N > 0 {
		if err := readElement(idx); err != nil {
			return idx, err
		}
		idx++
	}
	return idx, nil
}

// Struct reads a D-Bus struct: an 8-byte alignment pad, then the
// fields read by fields.
func (d *Decoder) Struct(fields func() error) error {
	if err := d.Pad(8); err != nil {
		return err
	}
	return fields()
}

// ByteOrderFlag reads the single-byte order marker ('l' or 'B') and
// sets d.Order to match.
func (d *Decoder) ByteOrderFlag() error {
	v, err := d.Uint8()
	if err != nil {
		return err
	}
	order, ok := ByteOrderForFlag(v)
	if !ok {
		return fmt.Errorf("unknown byte order flag %q", v)
	}
	d.Order = order
	return nil
}
