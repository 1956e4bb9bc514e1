package dbus

import "fmt"

// ValueKind identifies which case of [Value] is populated.
type ValueKind uint8

const (
	ValueInvalid ValueKind = iota
	ValueAtom
	ValueVariant
	ValueBytes
	ValueVector
	ValueMap
	ValueStructure
)

// Value is a tagged variant carrying any D-Bus datum: a scalar
// [Atom], a self-describing [Variant], a raw byte sequence, a
// homogeneous vector, an atom-keyed map, or a heterogeneous
// structure.
//
// Bytes is a representation optimization for Array(Word8): a Value of
// kind Bytes and a Value of kind Vector over Word8 holding the same
// elements compare equal (see [Value.Equal]).
type Value struct {
	kind   ValueKind
	atom   Atom
	vrnt   *Variant
	bytes  []byte
	elem   Type    // Vector element type
	vec    []Value // Vector elements
	keyTy  Type    // Map key type
	valTy  Type    // Map value type
	mapv   map[Atom]Value
	fields []Value // Structure fields
}

// ValueFromAtom wraps an Atom as a Value.
func ValueFromAtom(a Atom) Value { return Value{kind: ValueAtom, atom: a} }

// ValueFromVariant wraps a Variant as a Value.
func ValueFromVariant(v Variant) Value { return Value{kind: ValueVariant, vrnt: &v} }

// ValueFromBytes returns the Value for a raw byte sequence (Array of
// Word8).
func ValueFromBytes(b []byte) Value {
	return Value{kind: ValueBytes, bytes: append([]byte(nil), b...)}
}

// ValueFromVector returns the Value for a homogeneous sequence of
// elem-typed values. It panics if any element's type does not match
// elem.
func ValueFromVector(elem Type, elems []Value) Value {
	for i, e := range elems {
		if !e.typeOfUnchecked().Equal(elem) {
			panic(fmt.Sprintf("ValueFromVector: element %d has type %s, want %s", i, e.typeOfUnchecked(), elem))
		}
	}
	return Value{kind: ValueVector, elem: elem, vec: append([]Value(nil), elems...)}
}

// ValueFromMap returns the Value for an atom-keyed mapping. keyTy
// must be atomic, and every key's runtime type must match keyTy,
// every value's type must match valTy.
func ValueFromMap(keyTy, valTy Type, m map[Atom]Value) (Value, error) {
	if !keyTy.IsAtomic() {
		return Value{}, fmt.Errorf("map key type %s is not atomic", keyTy)
	}
	cp := make(map[Atom]Value, len(m))
	for k, v := range m {
		if !k.typeOf().Equal(keyTy) {
			return Value{}, fmt.Errorf("map key %v has type %s, want %s", k, k.typeOf(), keyTy)
		}
		if !v.typeOfUnchecked().Equal(valTy) {
			return Value{}, fmt.Errorf("map value for key %v has type %s, want %s", k, v.typeOfUnchecked(), valTy)
		}
		cp[k] = v
	}
	return Value{kind: ValueMap, keyTy: keyTy, valTy: valTy, mapv: cp}, nil
}

// ValueFromStructure returns the Value for a fixed-arity heterogeneous
// tuple. It panics if fields is empty.
func ValueFromStructure(fields ...Value) Value {
	if len(fields) == 0 {
		panic("ValueFromStructure: empty structure is not representable")
	}
	return Value{kind: ValueStructure, fields: append([]Value(nil), fields...)}
}

// Kind returns v's kind.
func (v Value) Kind() ValueKind { return v.kind }

// Atom returns v's wrapped Atom. It panics if v is not ValueAtom.
func (v Value) Atom() Atom {
	v.mustBe(ValueAtom)
	return v.atom
}

// Variant returns v's wrapped Variant. It panics if v is not
// ValueVariant.
func (v Value) Variant() Variant {
	v.mustBe(ValueVariant)
	return *v.vrnt
}

// Bytes returns v's raw byte sequence. It panics if v is not
// ValueBytes.
func (v Value) Bytes() []byte {
	v.mustBe(ValueBytes)
	return append([]byte(nil), v.bytes...)
}

// VectorElem returns the element type of a ValueVector. It panics if
// v is not ValueVector.
func (v Value) VectorElem() Type {
	v.mustBe(ValueVector)
	return v.elem
}

// Vector returns the elements of a ValueVector. It panics if v is not
// ValueVector.
func (v Value) Vector() []Value {
	v.mustBe(ValueVector)
	return append([]Value(nil), v.vec...)
}

// MapTypes returns the key and value types of a ValueMap. It panics
// if v is not ValueMap.
func (v Value) MapTypes() (key, val Type) {
	v.mustBe(ValueMap)
	return v.keyTy, v.valTy
}

// Map returns the entries of a ValueMap. It panics if v is not
// ValueMap.
func (v Value) Map() map[Atom]Value {
	v.mustBe(ValueMap)
	cp := make(map[Atom]Value, len(v.mapv))
	for k, val := range v.mapv {
		cp[k] = val
	}
	return cp
}

// Structure returns the fields of a ValueStructure. It panics if v is
// not ValueStructure.
func (v Value) Structure() []Value {
	v.mustBe(ValueStructure)
	return append([]Value(nil), v.fields...)
}

func (v Value) mustBe(k ValueKind) {
	if v.kind != k {
		panic(fmt.Sprintf("Value is kind %d, not %d", v.kind, k))
	}
}

// TypeOf returns v's D-Bus type.
func (v Value) TypeOf() Type { return v.typeOfUnchecked() }

func (v Value) typeOfUnchecked() Type {
	switch v.kind {
	case ValueAtom:
		return v.atom.typeOf()
	case ValueVariant:
		return VariantType
	case ValueBytes:
		return Array(Word8)
	case ValueVector:
		return Array(v.elem)
	case ValueMap:
		return MustDictionary(v.keyTy, v.valTy)
	case ValueStructure:
		ts := make([]Type, len(v.fields))
		for i, f := range v.fields {
			ts[i] = f.typeOfUnchecked()
		}
		return MustStructure(ts...)
	default:
		panic("TypeOf called on invalid Value")
	}
}

// Equal reports whether v and o represent the same D-Bus value. A
// ValueBytes and an equivalent ValueVector of Word8 atoms compare
// equal.
func (v Value) Equal(o Value) bool {
	vb, vIsBytes := v.asByteSlice()
	ob, oIsBytes := o.asByteSlice()
	if vIsBytes && oIsBytes {
		if len(vb) != len(ob) {
			return false
		}
		for i := range vb {
			if vb[i] != ob[i] {
				return false
			}
		}
		return true
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueAtom:
		return v.atom == o.atom
	case ValueVariant:
		return v.vrnt.Equal(*o.vrnt)
	case ValueVector:
		if !v.elem.Equal(o.elem) || len(v.vec) != len(o.vec) {
			return false
		}
		for i := range v.vec {
			if !v.vec[i].Equal(o.vec[i]) {
				return false
			}
		}
		return true
	case ValueMap:
		if !v.keyTy.Equal(o.keyTy) || !v.valTy.Equal(o.valTy) || len(v.mapv) != len(o.mapv) {
			return false
		}
		for k, val := range v.mapv {
			ov, ok := o.mapv[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	case ValueStructure:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if !v.fields[i].Equal(o.fields[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// asByteSlice reports whether v is representable as a byte slice
// (either ValueBytes, or ValueVector of Word8), returning that slice.
func (v Value) asByteSlice() ([]byte, bool) {
	switch v.kind {
	case ValueBytes:
		return v.bytes, true
	case ValueVector:
		if v.elem.kind != KindWord8 {
			return nil, false
		}
		b := make([]byte, len(v.vec))
		for i, e := range v.vec {
			b[i] = e.Atom().Word8()
		}
		return b, true
	default:
		return nil, false
	}
}
