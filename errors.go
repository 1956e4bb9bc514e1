package dbus

import "fmt"

// ClientError reports a failure of the client itself, as opposed to a
// D-Bus-level error returned by a peer: a closed connection, a
// transport error, or a decode failure on the receive loop.
type ClientError struct {
	Msg    string
	Serial Serial // stranded serial, if this error drains a pending call
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("org.haskell.hackage.dbus.ClientError: %s", e.Msg)
}

// MethodErr is the D-Bus-level error a peer returned for a method
// call: an error name plus a variant payload, as delivered in a
// MethodError message.
type MethodErr struct {
	Name ErrorName
	Body []Variant
}

func (e *MethodErr) Error() string {
	if len(e.Body) > 0 {
		var s string
		if FromVariant(e.Body[0], &s) {
			return fmt.Sprintf("%s: %s", e.Name, s)
		}
	}
	return string(e.Name)
}

// MethodExc is the structured exception a user-supplied method
// handler raises to control the D-Bus error sent back to the caller.
// Any other error returned by a handler is reported to the caller as
// org.freedesktop.DBus.Error.Failed, with the error's Error() string
// as the sole (string) variant in the body.
type MethodExc struct {
	Name ErrorName
	Body []Variant
}

func (e *MethodExc) Error() string {
	if len(e.Body) > 0 {
		var s string
		if FromVariant(e.Body[0], &s) {
			return fmt.Sprintf("%s: %s", e.Name, s)
		}
	}
	return string(e.Name)
}

// NewMethodExc builds a MethodExc carrying msg as its single string
// variant.
func NewMethodExc(name ErrorName, msg string) *MethodExc {
	return &MethodExc{Name: name, Body: []Variant{MustToVariant(msg)}}
}

// errUnknownMethod is the standard error returned for a method call
// against a path/interface/member that has no registered handler.
var errUnknownMethod = MustErrorName("org.freedesktop.DBus.Error.UnknownMethod")

// errFailed is the standard error name used to report an unstructured
// (non-MethodExc) error raised by a method handler.
var errFailed = MustErrorName("org.freedesktop.DBus.Error.Failed")
