package dbus

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a [Type].
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBoolean
	KindWord8
	KindWord16
	KindWord32
	KindWord64
	KindInt16
	KindInt32
	KindInt64
	KindDouble
	KindString
	KindSignature
	KindObjectPath
	KindVariant
	KindArray
	KindDictionary
	KindStructure
)

// Type is a D-Bus type descriptor.
//
// Type is a recursive tagged variant: the atomic kinds carry no
// further data, [Array] and [Dictionary] carry their element type(s),
// and [Structure] carries an ordered list of field types. The zero
// Type is invalid; use one of the constructor functions below.
type Type struct {
	kind   Kind
	key    *Type  // Dictionary key type
	elem   *Type  // Array element type, or Dictionary value type
	fields []Type // Structure field types, non-empty
}

// Atomic scalar/string type constructors. These are the only types
// that may appear as a Dictionary key (see IsAtomic).
var (
	Boolean    = Type{kind: KindBoolean}
	Word8      = Type{kind: KindWord8}
	Word16     = Type{kind: KindWord16}
	Word32     = Type{kind: KindWord32}
	Word64     = Type{kind: KindWord64}
	Int16      = Type{kind: KindInt16}
	Int32      = Type{kind: KindInt32}
	Int64      = Type{kind: KindInt64}
	Double     = Type{kind: KindDouble}
	String     = Type{kind: KindString}
	Signature_ = Type{kind: KindSignature}
	ObjectPath_ = Type{kind: KindObjectPath}

	// VariantType is the type of a self-describing value. It is not
	// atomic, and so cannot be used as a Dictionary key.
	VariantType = Type{kind: KindVariant}
)

// Array returns the type of a variable-length sequence of elem.
func Array(elem Type) Type {
	e := elem
	return Type{kind: KindArray, elem: &e}
}

// Dictionary returns the type of a mapping from key to value.
//
// Dictionary returns an error if key is not atomic (see IsAtomic):
// this is a structural constraint of the data model, not merely an
// API convenience.
func Dictionary(key, value Type) (Type, error) {
	if !key.IsAtomic() {
		return Type{}, fmt.Errorf("dictionary key type %s is not atomic", key)
	}
	k, v := key, value
	return Type{kind: KindDictionary, key: &k, elem: &v}, nil
}

// MustDictionary is like Dictionary but panics on error. It is
// intended for dictionary types known to be valid at authoring time.
func MustDictionary(key, value Type) Type {
	t, err := Dictionary(key, value)
	if err != nil {
		panic(err)
	}
	return t
}

// Structure returns the type of a fixed-length, heterogeneous tuple.
//
// Structure returns an error if fields is empty: an empty structure
// is not representable in the D-Bus wire format.
func Structure(fields ...Type) (Type, error) {
	if len(fields) == 0 {
		return Type{}, fmt.Errorf("structure type must have at least one field")
	}
	return Type{kind: KindStructure, fields: append([]Type(nil), fields...)}, nil
}

// MustStructure is like Structure but panics on error.
func MustStructure(fields ...Type) Type {
	t, err := Structure(fields...)
	if err != nil {
		panic(err)
	}
	return t
}

// Kind returns t's kind.
func (t Type) Kind() Kind { return t.kind }

// IsZero reports whether t is the zero Type, which is not a valid
// D-Bus type.
func (t Type) IsZero() bool { return t.kind == KindInvalid }

// IsAtomic reports whether t is one of the twelve scalar or string
// kinds, i.e. a type that may be used as a Dictionary key.
func (t Type) IsAtomic() bool {
	return t.kind >= KindBoolean && t.kind <= KindObjectPath
}

// Elem returns the element type of an Array, or the value type of a
// Dictionary. It panics if t is not an Array or Dictionary.
func (t Type) Elem() Type {
	switch t.kind {
	case KindArray, KindDictionary:
		return *t.elem
	default:
		panic(fmt.Sprintf("Elem called on non-container type %s", t))
	}
}

// Key returns the key type of a Dictionary. It panics if t is not a
// Dictionary.
func (t Type) Key() Type {
	if t.kind != KindDictionary {
		panic(fmt.Sprintf("Key called on non-Dictionary type %s", t))
	}
	return *t.key
}

// Fields returns the field types of a Structure. It panics if t is
// not a Structure.
func (t Type) Fields() []Type {
	if t.kind != KindStructure {
		panic(fmt.Sprintf("Fields called on non-Structure type %s", t))
	}
	return append([]Type(nil), t.fields...)
}

// Equal reports whether t and o describe the same type.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindArray:
		return t.elem.Equal(*o.elem)
	case KindDictionary:
		return t.key.Equal(*o.key) && t.elem.Equal(*o.elem)
	case KindStructure:
		if len(t.fields) != len(o.fields) {
			return false
		}
		for i := range t.fields {
			if !t.fields[i].Equal(o.fields[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

var atomKindNames = map[Kind]string{
	KindBoolean:    "Bool",
	KindWord8:      "Word8",
	KindWord16:     "Word16",
	KindWord32:     "Word32",
	KindWord64:     "Word64",
	KindInt16:      "Int16",
	KindInt32:      "Int32",
	KindInt64:      "Int64",
	KindDouble:     "Double",
	KindString:     "String",
	KindSignature:  "Signature",
	KindObjectPath: "ObjectPath",
	KindVariant:    "Variant",
}

// String renders t the way the reference invariants expect: atoms by
// their fixed name, Array(t) as "[t]", Dictionary(k,v) as "Map k v"
// (parenthesised when nested), and Structure(ts) as "(t1, t2, …)".
func (t Type) String() string {
	return t.show(false)
}

func (t Type) show(nested bool) string {
	if name, ok := atomKindNames[t.kind]; ok {
		return name
	}
	switch t.kind {
	case KindArray:
		return "[" + t.elem.show(false) + "]"
	case KindDictionary:
		s := fmt.Sprintf("Map %s %s", t.key.show(true), t.elem.show(true))
		if nested {
			return "(" + s + ")"
		}
		return s
	case KindStructure:
		parts := make([]string, len(t.fields))
		for i, f := range t.fields {
			parts[i] = f.show(false)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return "<invalid type>"
	}
}
