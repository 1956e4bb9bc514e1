package dbus

import (
	"fmt"
	"strings"
)

// maxSignatureLen is the wire-format limit on an encoded signature,
// in bytes. It applies equally to parsing and to construction from a
// list of Types.
const maxSignatureLen = 255

// Signature is a sequence of top-level [Type]s whose byte-encoded
// form is at most 255 octets. The zero Signature is the empty
// signature.
type Signature struct {
	types []Type
	text  string // memoized encoded form
}

// SignatureFormatError reports that a signature could not be parsed
// or constructed, either because its byte form did not match the
// grammar or because its encoded length exceeds the 255-byte limit.
type SignatureFormatError struct {
	Input string
	Msg   string
}

func (e *SignatureFormatError) Error() string {
	return fmt.Sprintf("invalid signature %q: %s", e.Input, e.Msg)
}

// byte codes, one per atomic Type plus the container markers.
const (
	codeBoolean    = 'b'
	codeWord8      = 'y'
	codeWord16     = 'q'
	codeWord32     = 'u'
	codeWord64     = 't'
	codeInt16      = 'n'
	codeInt32      = 'i'
	codeInt64      = 'x'
	codeDouble     = 'd'
	codeString     = 's'
	codeSignature  = 'g'
	codeObjectPath = 'o'
	codeVariant    = 'v'
	codeArray       = 'a'
	codeStructOpen  = '('
	codeStructClose = ')'
	codeDictOpen    = '{'
	codeDictClose   = '}'

	// codeFileDescr is rejected at parse time: the Non-goal named in
	// the type model (fd-passing is unsupported).
	codeFileDescr = 'h'
)

var atomCodeToType = map[byte]Type{
	codeBoolean:    Boolean,
	codeWord8:      Word8,
	codeWord16:     Word16,
	codeWord32:     Word32,
	codeWord64:     Word64,
	codeInt16:      Int16,
	codeInt32:      Int32,
	codeInt64:      Int64,
	codeDouble:     Double,
	codeString:     String,
	codeSignature:  Signature_,
	codeObjectPath: ObjectPath_,
}

var typeKindToCode = map[Kind]byte{
	KindBoolean:    codeBoolean,
	KindWord8:      codeWord8,
	KindWord16:     codeWord16,
	KindWord32:     codeWord32,
	KindWord64:     codeWord64,
	KindInt16:      codeInt16,
	KindInt32:      codeInt32,
	KindInt64:      codeInt64,
	KindDouble:     codeDouble,
	KindString:     codeString,
	KindSignature:  codeSignature,
	KindObjectPath: codeObjectPath,
	KindVariant:    codeVariant,
}

// EmptySignature is the signature of zero types.
var EmptySignature = Signature{}

// NewSignature builds a Signature from an ordered list of top-level
// types, rejecting it if the resulting encoded form would exceed 255
// bytes.
func NewSignature(types ...Type) (Signature, error) {
	s := Signature{types: append([]Type(nil), types...)}
	text, err := formatTypes(s.types)
	if err != nil {
		return Signature{}, err
	}
	if len(text) > maxSignatureLen {
		return Signature{}, &SignatureFormatError{Input: text, Msg: "encoded signature exceeds 255 bytes"}
	}
	s.text = text
	return s, nil
}

// MustSignature is like NewSignature but panics on error.
func MustSignature(types ...Type) Signature {
	s, err := NewSignature(types...)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSignature parses the compact byte-encoded signature language
// described by the type codec grammar: atom codes `b y q u t n i x d
// s g o`, `v` for variant, `a` array prefix, `(...)` structure,
// `a{K V}` dictionary. It rejects bare `r`, bare `e`, empty `()`,
// dictionaries with a non-atomic key, the file-descriptor code `h`,
// any byte outside the grammar, unbalanced brackets, and any input
// whose length would exceed 255 bytes.
func ParseSignature(s string) (Signature, error) {
	if len(s) > maxSignatureLen {
		return Signature{}, &SignatureFormatError{Input: s, Msg: "signature text exceeds 255 bytes"}
	}
	p := &sigParser{s: s}
	var types []Type
	for p.pos < len(p.s) {
		t, err := p.parseOne()
		if err != nil {
			return Signature{}, err
		}
		types = append(types, t)
	}
	return Signature{types: types, text: s}, nil
}

// MustParseSignature is like ParseSignature but panics on error.
func MustParseSignature(s string) Signature {
	sig, err := ParseSignature(s)
	if err != nil {
		panic(err)
	}
	return sig
}

type sigParser struct {
	s   string
	pos int
}

func (p *sigParser) errf(format string, args ...any) error {
	return &SignatureFormatError{Input: p.s, Msg: fmt.Sprintf(format, args...)}
}

// parseOne implements the top-level production: any single type,
// starting at p.pos.
func (p *sigParser) parseOne() (Type, error) {
	if p.pos >= len(p.s) {
		return Type{}, p.errf("unexpected end of signature")
	}
	c := p.s[p.pos]
	switch c {
	case codeFileDescr:
		return Type{}, p.errf("file descriptor type %q is not supported", c)
	case codeVariant:
		p.pos++
		return VariantType, nil
	case codeArray:
		p.pos++
		return p.parseArrayTail()
	case codeStructOpen:
		p.pos++
		return p.parseStructBody()
	case codeStructClose, codeDictOpen, codeDictClose:
		return Type{}, p.errf("unexpected %q", c)
	case 'r':
		return Type{}, p.errf("bare 'r' is not a valid type")
	case 'e':
		return Type{}, p.errf("bare 'e' is not a valid type")
	default:
		if t, ok := atomCodeToType[c]; ok {
			p.pos++
			return t, nil
		}
		return Type{}, p.errf("unrecognized type code %q", c)
	}
}

// parseArrayTail implements the array-tail production: after
// consuming 'a', the next token is either '{k v}' (dictionary), or
// another type (array of that type).
func (p *sigParser) parseArrayTail() (Type, error) {
	if p.pos < len(p.s) && p.s[p.pos] == codeDictOpen {
		p.pos++
		key, err := p.parseOne()
		if err != nil {
			return Type{}, err
		}
		if !key.IsAtomic() {
			return Type{}, p.errf("dictionary key type %s is not atomic", key)
		}
		val, err := p.parseOne()
		if err != nil {
			return Type{}, err
		}
		if p.pos >= len(p.s) || p.s[p.pos] != codeDictClose {
			return Type{}, p.errf("dictionary entry missing closing '}'")
		}
		p.pos++
		return MustDictionary(key, val), nil
	}
	elem, err := p.parseOne()
	if err != nil {
		return Type{}, err
	}
	return Array(elem), nil
}

// parseStructBody implements the structure-body production: one or
// more types terminated by ')'.
func (p *sigParser) parseStructBody() (Type, error) {
	var fields []Type
	for {
		if p.pos >= len(p.s) {
			return Type{}, p.errf("structure missing closing ')'")
		}
		if p.s[p.pos] == codeStructClose {
			p.pos++
			break
		}
		f, err := p.parseOne()
		if err != nil {
			return Type{}, err
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return Type{}, p.errf("empty structure '()' is not representable")
	}
	return MustStructure(fields...), nil
}

func formatTypes(types []Type) (string, error) {
	var b strings.Builder
	for _, t := range types {
		if err := formatType(&b, t); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func formatType(b *strings.Builder, t Type) error {
	if code, ok := typeKindToCode[t.kind]; ok {
		b.WriteByte(code)
		return nil
	}
	switch t.kind {
	case KindArray:
		b.WriteByte(codeArray)
		return formatType(b, *t.elem)
	case KindDictionary:
		b.WriteByte(codeArray)
		b.WriteByte(codeDictOpen)
		if err := formatType(b, *t.key); err != nil {
			return err
		}
		if err := formatType(b, *t.elem); err != nil {
			return err
		}
		b.WriteByte(codeDictClose)
		return nil
	case KindStructure:
		if len(t.fields) == 0 {
			return fmt.Errorf("empty structure '()' is not representable")
		}
		b.WriteByte(codeStructOpen)
		for _, f := range t.fields {
			if err := formatType(b, f); err != nil {
				return err
			}
		}
		b.WriteByte(codeStructClose)
		return nil
	default:
		return fmt.Errorf("invalid type %v", t)
	}
}

// Types returns the top-level types of s.
func (s Signature) Types() []Type { return append([]Type(nil), s.types...) }

// Empty reports whether s has zero top-level types.
func (s Signature) Empty() bool { return len(s.types) == 0 }

// String returns s's byte-encoded text form.
func (s Signature) String() string { return s.text }
