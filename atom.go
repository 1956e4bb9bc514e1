package dbus

import (
	"fmt"
	"math"
)

// Atom is a single scalar or string datum: the leaf values that make
// up a [Value]. Atom is comparable and totally ordered, so an Atom is
// a valid map key (as required for a [Value] of kind Map).
type Atom struct {
	kind Kind
	bits uint64 // Bool, Word*, Int*, Double: raw bit pattern
	str  string // String, Signature, ObjectPath
}

func (a Atom) typeOf() Type {
	switch a.kind {
	case KindBoolean:
		return Boolean
	case KindWord8:
		return Word8
	case KindWord16:
		return Word16
	case KindWord32:
		return Word32
	case KindWord64:
		return Word64
	case KindInt16:
		return Int16
	case KindInt32:
		return Int32
	case KindInt64:
		return Int64
	case KindDouble:
		return Double
	case KindString:
		return String
	case KindSignature:
		return Signature_
	case KindObjectPath:
		return ObjectPath_
	default:
		panic(fmt.Sprintf("Atom has invalid kind %d", a.kind))
	}
}

// AtomBool returns the Atom true/false.
func AtomBool(v bool) Atom {
	var b uint64
	if v {
		b = 1
	}
	return Atom{kind: KindBoolean, bits: b}
}

// AtomWord8 returns the Atom for an unsigned 8-bit value.
func AtomWord8(v uint8) Atom { return Atom{kind: KindWord8, bits: uint64(v)} }

// AtomWord16 returns the Atom for an unsigned 16-bit value.
func AtomWord16(v uint16) Atom { return Atom{kind: KindWord16, bits: uint64(v)} }

// AtomWord32 returns the Atom for an unsigned 32-bit value.
func AtomWord32(v uint32) Atom { return Atom{kind: KindWord32, bits: uint64(v)} }

// AtomWord64 returns the Atom for an unsigned 64-bit value.
func AtomWord64(v uint64) Atom { return Atom{kind: KindWord64, bits: v} }

// AtomInt16 returns the Atom for a signed 16-bit value.
func AtomInt16(v int16) Atom { return Atom{kind: KindInt16, bits: uint64(uint16(v))} }

// AtomInt32 returns the Atom for a signed 32-bit value.
func AtomInt32(v int32) Atom { return Atom{kind: KindInt32, bits: uint64(uint32(v))} }

// AtomInt64 returns the Atom for a signed 64-bit value.
func AtomInt64(v int64) Atom { return Atom{kind: KindInt64, bits: uint64(v)} }

// AtomDouble returns the Atom for an IEEE 754 double.
func AtomDouble(v float64) Atom { return Atom{kind: KindDouble, bits: math.Float64bits(v)} }

// AtomText returns the Atom for a UTF-8 string.
func AtomText(v string) Atom { return Atom{kind: KindString, str: v} }

// AtomSignature returns the Atom wrapping a parsed Signature's text.
func AtomSignature(v Signature) Atom { return Atom{kind: KindSignature, str: v.String()} }

// AtomObjectPath returns the Atom wrapping an ObjectPath's text.
func AtomObjectPath(v ObjectPath) Atom { return Atom{kind: KindObjectPath, str: string(v)} }

// Kind returns a's kind.
func (a Atom) Kind() Kind { return a.kind }

// Bool returns a's value as a bool. It panics if a is not KindBoolean.
func (a Atom) Bool() bool { a.mustBe(KindBoolean); return a.bits != 0 }

// Word8 returns a's value. It panics if a is not KindWord8.
func (a Atom) Word8() uint8 { a.mustBe(KindWord8); return uint8(a.bits) }

// Word16 returns a's value. It panics if a is not KindWord16.
func (a Atom) Word16() uint16 { a.mustBe(KindWord16); return uint16(a.bits) }

// Word32 returns a's value. It panics if a is not KindWord32.
func (a Atom) Word32() uint32 { a.mustBe(KindWord32); return uint32(a.bits) }

// Word64 returns a's value. It panics if a is not KindWord64.
func (a Atom) Word64() uint64 { a.mustBe(KindWord64); return a.bits }

// Int16 returns a's value. It panics if a is not KindInt16.
func (a Atom) Int16() int16 { a.mustBe(KindInt16); return int16(uint16(a.bits)) }

// Int32 returns a's value. It panics if a is not KindInt32.
func (a Atom) Int32() int32 { a.mustBe(KindInt32); return int32(uint32(a.bits)) }

// Int64 returns a's value. It panics if a is not KindInt64.
func (a Atom) Int64() int64 { a.mustBe(KindInt64); return int64(a.bits) }

// Double returns a's value. It panics if a is not KindDouble.
func (a Atom) Double() float64 { a.mustBe(KindDouble); return math.Float64frombits(a.bits) }

// Text returns a's value. It panics if a is not KindString.
func (a Atom) Text() string { a.mustBe(KindString); return a.str }

// SignatureText returns the signature text wrapped by a. It panics if
// a is not KindSignature.
func (a Atom) SignatureText() string { a.mustBe(KindSignature); return a.str }

// ObjectPathText returns the object path text wrapped by a. It panics
// if a is not KindObjectPath.
func (a Atom) ObjectPathText() string { a.mustBe(KindObjectPath); return a.str }

func (a Atom) mustBe(k Kind) {
	if a.kind != k {
		panic(fmt.Sprintf("Atom is %s, not %s", atomKindNames[a.kind], atomKindNames[k]))
	}
}

// String renders a's value in a human-readable form, not the wire
// format.
func (a Atom) String() string {
	switch a.kind {
	case KindBoolean:
		return fmt.Sprint(a.Bool())
	case KindWord8, KindWord16, KindWord32, KindWord64:
		return fmt.Sprint(a.bits)
	case KindInt16:
		return fmt.Sprint(a.Int16())
	case KindInt32:
		return fmt.Sprint(a.Int32())
	case KindInt64:
		return fmt.Sprint(a.Int64())
	case KindDouble:
		return fmt.Sprint(a.Double())
	case KindString, KindSignature, KindObjectPath:
		return a.str
	default:
		return "<invalid atom>"
	}
}
