package dbus

import (
	"fmt"
	"strings"
)

// NameFormatError reports that a candidate name string does not match
// the grammar required for its kind.
type NameFormatError struct {
	Kind  string
	Input string
}

func (e *NameFormatError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Kind, e.Input)
}

const maxNameLen = 255

// ObjectPath is a D-Bus object path: either "/", or "/" followed by
// one or more "/"-separated elements drawn from [A-Za-z0-9_], with no
// trailing slash. Unlike the other name types, ObjectPath has no
// 255-character cap.
type ObjectPath string

// NewObjectPath validates s as an object path.
func NewObjectPath(s string) (ObjectPath, error) {
	if !isValidObjectPath(s) {
		return "", &NameFormatError{Kind: "object path", Input: s}
	}
	return ObjectPath(s), nil
}

// MustObjectPath is like NewObjectPath but panics on error.
func MustObjectPath(s string) ObjectPath {
	p, err := NewObjectPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func isValidObjectPath(s string) bool {
	if s == "/" {
		return true
	}
	if !strings.HasPrefix(s, "/") || strings.HasSuffix(s, "/") {
		return false
	}
	for _, elem := range strings.Split(s[1:], "/") {
		if elem == "" || !isPathElementChars(elem) {
			return false
		}
	}
	return true
}

func isPathElementChars(s string) bool {
	for _, r := range s {
		if !isAlnumUnderscore(r) {
			return false
		}
	}
	return true
}

func isAlnumUnderscore(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isAlphaUnderscore(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// InterfaceName is a D-Bus interface name: two or more "."-separated
// elements, each beginning with a letter or underscore and continuing
// with letters, digits, or underscores. Capped at 255 characters.
type InterfaceName string

// NewInterfaceName validates s as an interface name.
func NewInterfaceName(s string) (InterfaceName, error) {
	if !isValidDottedName(s, false) {
		return "", &NameFormatError{Kind: "interface name", Input: s}
	}
	return InterfaceName(s), nil
}

// MustInterfaceName is like NewInterfaceName but panics on error.
func MustInterfaceName(s string) InterfaceName {
	n, err := NewInterfaceName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// isValidDottedName implements the shared grammar for InterfaceName
// and ErrorName: two or more elements, joined by '.', each matching
// [A-Za-z_][A-Za-z0-9_]*. allowDash additionally permits '-' in any
// position of each element, the leading one included, as used by
// well-known BusName.
func isValidDottedName(s string, allowDash bool) bool {
	if len(s) == 0 || len(s) > maxNameLen {
		return false
	}
	elems := strings.Split(s, ".")
	if len(elems) < 2 {
		return false
	}
	for _, e := range elems {
		if !isValidSingleElement(e, allowDash) {
			return false
		}
	}
	return true
}

func isValidSingleElement(e string, allowDash bool) bool {
	if e == "" {
		return false
	}
	for i, r := range e {
		if i == 0 {
			if !isAlphaUnderscore(r) && !(allowDash && r == '-') {
				return false
			}
			continue
		}
		if !isAlnumUnderscore(r) && !(allowDash && r == '-') {
			return false
		}
	}
	return true
}

// MemberName is a D-Bus method, signal, or property name: a single
// element beginning with a letter or underscore and continuing with
// letters, digits, or underscores. Capped at 255 characters.
type MemberName string

// NewMemberName validates s as a member name.
func NewMemberName(s string) (MemberName, error) {
	if len(s) == 0 || len(s) > maxNameLen || !isValidSingleElement(s, false) {
		return "", &NameFormatError{Kind: "member name", Input: s}
	}
	return MemberName(s), nil
}

// MustMemberName is like NewMemberName but panics on error.
func MustMemberName(s string) MemberName {
	n, err := NewMemberName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// ErrorName is a D-Bus error name, using the same grammar as
// InterfaceName.
type ErrorName string

// NewErrorName validates s as an error name.
func NewErrorName(s string) (ErrorName, error) {
	if !isValidDottedName(s, false) {
		return "", &NameFormatError{Kind: "error name", Input: s}
	}
	return ErrorName(s), nil
}

// MustErrorName is like NewErrorName but panics on error.
func MustErrorName(s string) ErrorName {
	n, err := NewErrorName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// BusName is either a well-known bus name (InterfaceName grammar,
// with '-' additionally permitted in any position of an element), or
// a unique connection name: a leading ':' followed by two or more
// "."-separated elements whose characters are letters, digits,
// underscore, or dash (digits permitted in the leading position only
// for unique names). Capped at 255 characters.
type BusName string

// NewBusName validates s as a bus name.
func NewBusName(s string) (BusName, error) {
	if len(s) == 0 || len(s) > maxNameLen {
		return "", &NameFormatError{Kind: "bus name", Input: s}
	}
	if strings.HasPrefix(s, ":") {
		if !isValidUniqueName(s[1:]) {
			return "", &NameFormatError{Kind: "bus name", Input: s}
		}
		return BusName(s), nil
	}
	if !isValidDottedName(s, true) {
		return "", &NameFormatError{Kind: "bus name", Input: s}
	}
	return BusName(s), nil
}

// MustBusName is like NewBusName but panics on error.
func MustBusName(s string) BusName {
	n, err := NewBusName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func isValidUniqueName(s string) bool {
	elems := strings.Split(s, ".")
	if len(elems) < 2 {
		return false
	}
	for _, e := range elems {
		if e == "" {
			return false
		}
		for _, r := range e {
			if !isAlnumUnderscore(r) && r != '-' {
				return false
			}
		}
	}
	return true
}
