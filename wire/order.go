// Package wire provides low-level, type-agnostic encoding and
// decoding primitives for the D-Bus binary wire format: padding,
// alignment, byte order, and the array/struct framing rules.
//
// This package knows nothing about D-Bus's type algebra; it is driven
// by explicit calls from a caller that knows what shape of data is
// coming next. The root package's default WireCodec is such a caller,
// walking a Value tree and issuing the matching Encoder/Decoder calls.
package wire

import (
	"encoding/binary"

	"golang.org/x/sys/cpu"
)

// ByteOrder wraps encoding/binary.ByteOrder with the extra bit D-Bus
// needs on the wire: the single-byte flag ('l' or 'B') that precedes
// every message and declares which order its header+body use.
type ByteOrder interface {
	byteOrder
	DBusFlag() byte
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

type wrapStd struct {
	byteOrder
}

func (w wrapStd) DBusFlag() byte {
	switch w.byteOrder {
	case binary.BigEndian:
		return 'B'
	case binary.LittleEndian:
		return 'l'
	case binary.NativeEndian:
		if cpu.IsBigEndian {
			return 'B'
		}
		return 'l'
	default:
		panic("unknown ByteOrder")
	}
}

// ByteOrderForFlag returns the ByteOrder matching a wire flag byte
// ('l' or 'B'), or false if flag is neither.
func ByteOrderForFlag(flag byte) (ByteOrder, bool) {
	switch flag {
	case 'B':
		return BigEndian, true
	case 'l':
		return LittleEndian, true
	default:
		return nil, false
	}
}

var (
	BigEndian    ByteOrder = wrapStd{binary.BigEndian}
	LittleEndian ByteOrder = wrapStd{binary.LittleEndian}
	NativeEndian ByteOrder = wrapStd{binary.NativeEndian}
)
