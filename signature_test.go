package dbus

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// typeComparer lets cmp.Diff compare Types with Type.Equal, since
// Type carries unexported pointers for its nested shape.
var typeComparer = cmp.Comparer(func(a, b Type) bool { return a.Equal(b) })

func TestParseSignatureRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"y", "b", "n", "q", "i", "u", "x", "t", "d", "s", "o", "g", "v",
		"ay",
		"a(si)",
		"a{sv}",
		"(ii)",
		"((ii)s)",
		"a{s(iii)}",
		"aas",
		"(ybnqiuxtdsog)",
	}
	for _, c := range cases {
		sig, err := ParseSignature(c)
		if err != nil {
			t.Errorf("ParseSignature(%q): %v", c, err)
			continue
		}
		if got := sig.String(); got != c {
			t.Errorf("ParseSignature(%q).String() = %q, want %q", c, got, c)
		}
	}
}

func TestParseSignatureRejects(t *testing.T) {
	cases := []string{
		"r",      // bare struct code
		"e",      // bare dict-entry code
		"()",     // empty structure
		"a{vy}",  // non-atomic dictionary key
		"h",      // file descriptors are unsupported
		"(",      // unterminated structure
		"a{sv",   // unterminated dict entry
		"a{si}}", // unbalanced close
		"z",      // unknown code
	}
	for _, c := range cases {
		if _, err := ParseSignature(c); err == nil {
			t.Errorf("ParseSignature(%q): expected error, got none", c)
		}
	}
}

func TestParseSignatureTooLong(t *testing.T) {
	long := make([]byte, maxSignatureLen+1)
	for i := range long {
		long[i] = 'y'
	}
	if _, err := ParseSignature(string(long)); err == nil {
		t.Errorf("ParseSignature of %d-byte input: expected error, got none", len(long))
	}
}

func TestNewSignatureFromTypes(t *testing.T) {
	sig, err := NewSignature(String, Int32, Array(Word8))
	if err != nil {
		t.Fatalf("NewSignature: %v", err)
	}
	if got, want := sig.String(), "siay"; got != want {
		t.Errorf("NewSignature(...).String() = %q, want %q", got, want)
	}
	if sig.Empty() {
		t.Errorf("sig.Empty() = true, want false")
	}
	want := []Type{String, Int32, Array(Word8)}
	if diff := cmp.Diff(want, sig.Types(), typeComparer); diff != "" {
		t.Errorf("sig.Types() diff (-want +got):\n%s", diff)
	}
}

func TestEmptySignature(t *testing.T) {
	sig, err := NewSignature()
	if err != nil {
		t.Fatalf("NewSignature(): %v", err)
	}
	if !sig.Empty() {
		t.Errorf("sig.Empty() = false, want true")
	}
	if sig.String() != "" {
		t.Errorf("sig.String() = %q, want empty", sig.String())
	}
}

func TestNewSignatureAcceptsSingleFieldStructure(t *testing.T) {
	if _, err := NewSignature(MustStructure(String)); err != nil {
		t.Fatalf("NewSignature(single-field structure): %v", err)
	}
}

func TestSignatureTypesIsACopy(t *testing.T) {
	sig := MustSignature(String, Int32)
	types := sig.Types()
	types[0] = Boolean
	if sig.Types()[0].Equal(Boolean) {
		t.Errorf("mutating the slice returned by Types() affected the Signature")
	}
}

func TestSignatureOfDictionary(t *testing.T) {
	sig := MustSignature(MustDictionary(String, VariantType))
	if got, want := sig.String(), "a{sv}"; got != want {
		t.Errorf("sig.String() = %q, want %q", got, want)
	}
}
