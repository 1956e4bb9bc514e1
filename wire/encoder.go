package wire

// Encoder builds a D-Bus wire format byte stream, handling the
// alignment padding the format requires.
//
// Methods insert padding as needed to conform to D-Bus alignment
// rules, except [Encoder.Write] which appends bytes verbatim.
type Encoder struct {
	// Order is the byte order used to encode multi-byte values.
	Order ByteOrder
	// Out accumulates the encoded output.
	Out []byte
}

// Pad inserts padding bytes so the next write starts at a multiple of
// align bytes from the start of Out. If already aligned, it is a
// no-op.
func (e *Encoder) Pad(align int) {
	extra := len(e.Out) % align
	if extra == 0 {
		return
	}
	var zero [8]byte
	e.Out = append(e.Out, zero[:align-extra]...)
}

// Write appends bs to the output with no padding or framing.
func (e *Encoder) Write(bs []byte) {
	e.Out = append(e.Out, bs...)
}

// Bytes writes a D-Bus byte array: a uint32 length prefix followed by
// the raw bytes.
func (e *Encoder) Bytes(bs []byte) {
	e.Pad(4)
	e.Uint32(uint32(len(bs)))
	e.Out = append(e.Out, bs...)
}

// String writes a D-Bus string: a uint32 byte-length prefix, the
// UTF-8 bytes, and a trailing NUL.
func (e *Encoder) String(s string) {
	e.Pad(4)
	e.Uint32(uint32(len(s)))
	e.Out = append(e.Out, s...)
	e.Out = append(e.Out, 0)
}

// Uint8 writes a single byte.
func (e *Encoder) Uint8(v uint8) { e.Out = append(e.Out, v) }

// Uint16 writes a uint16, aligned to 2 bytes.
func (e *Encoder) Uint16(v uint16) {
	e.Pad(2)
	e.Out = e.Order.AppendUint16(e.Out, v)
}

// Uint32 writes a uint32, aligned to 4 bytes.
func (e *Encoder) Uint32(v uint32) {
	e.Pad(4)
	e.Out = e.Order.AppendUint32(e.Out, v)
}

// Uint64 writes a uint64, aligned to 8 bytes.
func (e *Encoder) Uint64(v uint64) {
	e.Pad(8)
	e.Out = e.Order.AppendUint64(e.Out, v)
}

// Array writes a D-Bus array: a uint32 byte-length placeholder,
// patched once elements has written the element bytes. containsStructs
// must be true when the array's elements are structs, so the header
// is padded to the element's 8-byte alignment even for an empty
// array.
func (e *Encoder) Array(containsStructs bool, elements func() error) error {
	e.Pad(4)
	offset := len(e.Out)
	e.Uint32(0)
	if containsStructs {
		e.Pad(8)
	}
	start := len(e.Out)
	err := elements()
	end := len(e.Out)
	e.Order.PutUint32(e.Out[offset:], uint32(end-start))
	return err
}

// Struct writes a D-Bus struct: an 8-byte alignment pad, then the
// fields written by elements.
func (e *Encoder) Struct(elements func() error) error {
	e.Pad(8)
	return elements()
}

// ByteOrderFlag writes the single-byte order marker ('l' or 'B') that
// matches e.Order.
func (e *Encoder) ByteOrderFlag() {
	e.Write([]byte{e.Order.DBusFlag()})
}
