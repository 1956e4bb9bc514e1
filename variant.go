package dbus

import (
	"fmt"
	"reflect"
)

// Variant wraps a [Value], recording its D-Bus type at runtime so the
// type is recoverable without inspecting any host-language type tag.
type Variant struct {
	value Value
}

// NewVariant wraps v as a Variant.
func NewVariant(v Value) Variant { return Variant{value: v} }

// Value returns the Value wrapped by v.
func (v Variant) Value() Value { return v.value }

// Type returns the D-Bus type of the value wrapped by v.
func (v Variant) Type() Type { return v.value.TypeOf() }

// Equal reports whether v and o wrap values of the same type that
// compare equal.
func (v Variant) Equal(o Variant) bool {
	return v.Type().Equal(o.Type()) && v.value.Equal(o.value)
}

// ToVariant converts a host Go value into a Variant. The conversion
// is total: any Go value that has a defined mapping to the D-Bus
// value algebra succeeds, and anything else is reported as an error
// rather than silently dropped.
//
// Supported host shapes: the Go boolean/numeric/string types that
// correspond to an [Atom]; byte slices and byte arrays (Bytes); other
// slices and arrays (Vector);
// maps with an atomic-convertible key type; structs (Structure, field
// by field, in declaration order — this is the tuple-of-2..15
// conversion required for structure marshalling); [Value], [Variant]
// and [Atom] themselves, passed through unchanged.
func ToVariant(x any) (Variant, error) {
	val, err := toValue(reflect.ValueOf(x))
	if err != nil {
		return Variant{}, err
	}
	return NewVariant(val), nil
}

// MustToVariant is like ToVariant but panics on error.
func MustToVariant(x any) Variant {
	v, err := ToVariant(x)
	if err != nil {
		panic(err)
	}
	return v
}

func toValue(rv reflect.Value) (Value, error) {
	if !rv.IsValid() {
		return Value{}, fmt.Errorf("ToVariant: nil has no D-Bus representation")
	}
	switch x := rv.Interface().(type) {
	case Value:
		return x, nil
	case Variant:
		return ValueFromVariant(x), nil
	case Atom:
		return ValueFromAtom(x), nil
	case ObjectPath:
		return ValueFromAtom(AtomObjectPath(x)), nil
	case Signature:
		return ValueFromAtom(AtomSignature(x)), nil
	}
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return Value{}, fmt.Errorf("ToVariant: nil pointer has no D-Bus representation")
		}
		return toValue(rv.Elem())
	}
	switch rv.Kind() {
	case reflect.Bool:
		return ValueFromAtom(AtomBool(rv.Bool())), nil
	case reflect.Uint8:
		return ValueFromAtom(AtomWord8(uint8(rv.Uint()))), nil
	case reflect.Uint16:
		return ValueFromAtom(AtomWord16(uint16(rv.Uint()))), nil
	case reflect.Uint32:
		return ValueFromAtom(AtomWord32(uint32(rv.Uint()))), nil
	case reflect.Uint, reflect.Uint64:
		return ValueFromAtom(AtomWord64(rv.Uint())), nil
	case reflect.Int16:
		return ValueFromAtom(AtomInt16(int16(rv.Int()))), nil
	case reflect.Int32:
		return ValueFromAtom(AtomInt32(int32(rv.Int()))), nil
	case reflect.Int, reflect.Int64:
		return ValueFromAtom(AtomInt64(rv.Int())), nil
	case reflect.Float32, reflect.Float64:
		return ValueFromAtom(AtomDouble(rv.Float())), nil
	case reflect.String:
		return ValueFromAtom(AtomText(rv.String())), nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return ValueFromBytes(b), nil
		}
		elems := make([]Value, rv.Len())
		var elemTy Type
		for i := 0; i < rv.Len(); i++ {
			v, err := toValue(rv.Index(i))
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
			elemTy = v.TypeOf()
		}
		if rv.Len() == 0 {
			et, err := elemTypeFor(rv.Type().Elem())
			if err != nil {
				return Value{}, err
			}
			elemTy = et
		}
		return ValueFromVector(elemTy, elems), nil
	case reflect.Map:
		m := make(map[Atom]Value, rv.Len())
		var keyTy, valTy Type
		iter := rv.MapRange()
		for iter.Next() {
			kv, err := toValue(iter.Key())
			if err != nil {
				return Value{}, err
			}
			if kv.Kind() != ValueAtom {
				return Value{}, fmt.Errorf("ToVariant: map key type %s is not atomic", kv.TypeOf())
			}
			vv, err := toValue(iter.Value())
			if err != nil {
				return Value{}, err
			}
			m[kv.Atom()] = vv
			keyTy, valTy = kv.TypeOf(), vv.TypeOf()
		}
		if rv.Len() == 0 {
			kt, err := elemTypeFor(rv.Type().Key())
			if err != nil {
				return Value{}, err
			}
			vt, err := elemTypeFor(rv.Type().Elem())
			if err != nil {
				return Value{}, err
			}
			keyTy, valTy = kt, vt
		}
		mv, err := ValueFromMap(keyTy, valTy, m)
		if err != nil {
			return Value{}, err
		}
		return mv, nil
	case reflect.Struct:
		n := rv.NumField()
		if n == 0 || n > 15 {
			return Value{}, fmt.Errorf("ToVariant: structure must have 1..15 fields, got %d", n)
		}
		fields := make([]Value, n)
		for i := 0; i < n; i++ {
			v, err := toValue(rv.Field(i))
			if err != nil {
				return Value{}, err
			}
			fields[i] = v
		}
		return ValueFromStructure(fields...), nil
	default:
		return Value{}, fmt.Errorf("ToVariant: unsupported Go type %s", rv.Type())
	}
}

// elemTypeFor derives a Type for an empty slice/map's static element
// type, since there are no elements to sample.
func elemTypeFor(t reflect.Type) (Type, error) {
	switch t.Kind() {
	case reflect.Bool:
		return Boolean, nil
	case reflect.Uint8:
		return Word8, nil
	case reflect.Uint16:
		return Word16, nil
	case reflect.Uint32:
		return Word32, nil
	case reflect.Uint, reflect.Uint64:
		return Word64, nil
	case reflect.Int16:
		return Int16, nil
	case reflect.Int32:
		return Int32, nil
	case reflect.Int, reflect.Int64:
		return Int64, nil
	case reflect.Float32, reflect.Float64:
		return Double, nil
	case reflect.String:
		return String, nil
	default:
		return Type{}, fmt.Errorf("ToVariant: cannot derive element type for empty %s", t)
	}
}

// FromVariant converts v's wrapped Value into *dst. It returns false,
// leaving *dst untouched, if v's dynamic type does not match dst's
// type (including dst's element/field types, for containers).
func FromVariant(v Variant, dst any) bool {
	return FromValue(v.Value(), dst)
}

// FromValue converts val into *dst, following the same rules as
// [ToVariant] in reverse. It returns false if val's dynamic type does
// not match dst's static type.
func FromValue(val Value, dst any) bool {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return false
	}
	return fromValue(val, rv.Elem())
}

func fromValue(val Value, rv reflect.Value) bool {
	switch rv.Interface().(type) {
	case Value:
		rv.Set(reflect.ValueOf(val))
		return true
	case Variant:
		if val.Kind() != ValueVariant {
			return false
		}
		rv.Set(reflect.ValueOf(val.Variant()))
		return true
	case Atom:
		if val.Kind() != ValueAtom {
			return false
		}
		rv.Set(reflect.ValueOf(val.Atom()))
		return true
	case ObjectPath:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindObjectPath {
			return false
		}
		rv.SetString(val.Atom().ObjectPathText())
		return true
	case Signature:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindSignature {
			return false
		}
		sig, err := ParseSignature(val.Atom().SignatureText())
		if err != nil {
			return false
		}
		rv.Set(reflect.ValueOf(sig))
		return true
	}
	switch rv.Kind() {
	case reflect.Bool:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindBoolean {
			return false
		}
		rv.SetBool(val.Atom().Bool())
		return true
	case reflect.Uint8:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindWord8 {
			return false
		}
		rv.SetUint(uint64(val.Atom().Word8()))
		return true
	case reflect.Uint16:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindWord16 {
			return false
		}
		rv.SetUint(uint64(val.Atom().Word16()))
		return true
	case reflect.Uint32:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindWord32 {
			return false
		}
		rv.SetUint(uint64(val.Atom().Word32()))
		return true
	case reflect.Uint, reflect.Uint64:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindWord64 {
			return false
		}
		rv.SetUint(val.Atom().Word64())
		return true
	case reflect.Int16:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindInt16 {
			return false
		}
		rv.SetInt(int64(val.Atom().Int16()))
		return true
	case reflect.Int32:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindInt32 {
			return false
		}
		rv.SetInt(int64(val.Atom().Int32()))
		return true
	case reflect.Int, reflect.Int64:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindInt64 {
			return false
		}
		rv.SetInt(val.Atom().Int64())
		return true
	case reflect.Float32, reflect.Float64:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindDouble {
			return false
		}
		rv.SetFloat(val.Atom().Double())
		return true
	case reflect.String:
		if val.Kind() != ValueAtom || val.Atom().Kind() != KindString {
			return false
		}
		rv.SetString(val.Atom().Text())
		return true
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b, ok := val.asByteSlice()
			if !ok {
				return false
			}
			rv.SetBytes(append([]byte(nil), b...))
			return true
		}
		if val.Kind() != ValueVector {
			return false
		}
		elems := val.Vector()
		out := reflect.MakeSlice(rv.Type(), len(elems), len(elems))
		for i, e := range elems {
			if !fromValue(e, out.Index(i)) {
				return false
			}
		}
		rv.Set(out)
		return true
	case reflect.Map:
		if val.Kind() != ValueMap {
			return false
		}
		m := val.Map()
		out := reflect.MakeMapWithSize(rv.Type(), len(m))
		for k, v := range m {
			kv := reflect.New(rv.Type().Key()).Elem()
			if !fromValue(ValueFromAtom(k), kv) {
				return false
			}
			vv := reflect.New(rv.Type().Elem()).Elem()
			if !fromValue(v, vv) {
				return false
			}
			out.SetMapIndex(kv, vv)
		}
		rv.Set(out)
		return true
	case reflect.Struct:
		if val.Kind() != ValueStructure {
			return false
		}
		fields := val.Structure()
		if len(fields) != rv.NumField() {
			return false
		}
		out := reflect.New(rv.Type()).Elem()
		for i := range fields {
			if !fromValue(fields[i], out.Field(i)) {
				return false
			}
		}
		rv.Set(out)
		return true
	default:
		return false
	}
}
