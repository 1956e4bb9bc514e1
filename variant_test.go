package dbus

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sigComparer lets cmp.Diff see through Signature's unexported
// memoized text field and compare by rendered form instead.
var sigComparer = cmp.Comparer(func(a, b Signature) bool {
	return a.String() == b.String()
})

func TestToVariantFromVariantRoundTrip(t *testing.T) {
	type simple struct {
		A int16
		B bool
	}

	tests := []struct {
		name string
		in   any
		dst  any
	}{
		{"byte", uint8(5), new(uint8)},
		{"bool", true, new(bool)},
		{"uint16 slice", []uint16{1, 2, 3}, new([]uint16)},
		{"byte slice", []byte{1, 2, 3}, new([]byte)},
		{"string", "hello", new(string)},
		{"map", map[string]int64{"a": 1, "b": 2}, new(map[string]int64)},
		{"struct", simple{A: 2, B: true}, new(simple)},
		{"object path", ObjectPath("/a/b"), new(ObjectPath)},
		{"signature", MustParseSignature("uu"), new(Signature)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ToVariant(tc.in)
			if err != nil {
				t.Fatalf("ToVariant(%v): %v", tc.in, err)
			}
			if !FromVariant(v, tc.dst) {
				t.Fatalf("FromVariant into %T failed", tc.dst)
			}
			got := derefAny(tc.dst)
			if diff := cmp.Diff(tc.in, got, sigComparer); diff != "" {
				t.Errorf("round trip through Variant changed value (-want +got):\n%s", diff)
			}
		})
	}
}

// derefAny unwraps the pointer a round-trip test decoded into, so
// cmp.Diff compares like against like (e.g. uint8 against uint8, not
// uint8 against *uint8).
func derefAny(p any) any {
	return reflect.ValueOf(p).Elem().Interface()
}

func TestToVariantRejectsUnsupportedType(t *testing.T) {
	if _, err := ToVariant(func() {}); err == nil {
		t.Errorf("ToVariant(func): expected error, got none")
	}
	if _, err := ToVariant(nil); err == nil {
		t.Errorf("ToVariant(nil): expected error, got none")
	}
}

func TestToVariantRejectsNonAtomicMapKey(t *testing.T) {
	type pair struct{ A, B int32 }
	if _, err := ToVariant(map[pair]bool{}); err == nil {
		t.Errorf("ToVariant(map with structure key): expected error, got none")
	}
}

func TestVariantWrapsVariant(t *testing.T) {
	inner := MustToVariant(uint16(42))
	outer := MustToVariant(inner)
	if outer.Type().Kind() != KindVariant {
		t.Fatalf("outer.Type().Kind() = %v, want KindVariant", outer.Type().Kind())
	}
	var got Variant
	if !FromVariant(outer, &got) {
		t.Fatalf("FromVariant into *Variant failed")
	}
	if !got.Equal(inner) {
		t.Errorf("got %v, want %v", got, inner)
	}
}

func TestVariantEqual(t *testing.T) {
	a := MustToVariant([]byte{1, 2, 3})
	b := NewVariant(ValueFromVector(Word8, []Value{
		ValueFromAtom(AtomWord8(1)),
		ValueFromAtom(AtomWord8(2)),
		ValueFromAtom(AtomWord8(3)),
	}))
	if !a.Equal(b) {
		t.Errorf("Bytes value and equivalent Vector(Word8) value should compare equal")
	}
}

func TestFromVariantTypeMismatchReturnsFalse(t *testing.T) {
	v := MustToVariant(uint16(42))
	var dst string
	if FromVariant(v, &dst) {
		t.Errorf("FromVariant(uint16 variant, *string): expected false, got true")
	}
}
