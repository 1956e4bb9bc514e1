package dbus

import (
	"strings"

	"github.com/creachadair/mds/value"
)

// Match is a filter predicate over signal messages: a conjunction of
// the present fields. An absent field matches anything.
type Match struct {
	Sender      value.Maybe[BusName]
	Destination value.Maybe[BusName]
	Path        value.Maybe[ObjectPath]
	Interface   value.Maybe[InterfaceName]
	Member      value.Maybe[MemberName]
}

// filterString renders m in the daemon's match-rule string syntax:
// comma-joined key='value' predicates in the fixed order sender,
// destination, path, interface, member. Fields that are absent from m
// are omitted from the string.
func (m Match) filterString() string {
	var parts []string
	if s, ok := m.Sender.GetOK(); ok {
		parts = append(parts, "sender='"+string(s)+"'")
	}
	if s, ok := m.Destination.GetOK(); ok {
		parts = append(parts, "destination='"+string(s)+"'")
	}
	if s, ok := m.Path.GetOK(); ok {
		parts = append(parts, "path='"+string(s)+"'")
	}
	if s, ok := m.Interface.GetOK(); ok {
		parts = append(parts, "interface='"+string(s)+"'")
	}
	if s, ok := m.Member.GetOK(); ok {
		parts = append(parts, "member='"+string(s)+"'")
	}
	return strings.Join(parts, ",")
}

// matchesSignal reports whether sig satisfies every field present in
// m. The handler invokes the user callback only when the message's
// sender is present and every present field of m agrees with the
// corresponding field of sig.
func (m Match) matchesSignal(sig *Signal, sender BusName) bool {
	if sender == "" {
		return false
	}
	if s, ok := m.Sender.GetOK(); ok && s != sender {
		return false
	}
	if s, ok := m.Destination.GetOK(); ok && (sig.Destination == nil || s != *sig.Destination) {
		return false
	}
	if s, ok := m.Path.GetOK(); ok && s != sig.Path {
		return false
	}
	if s, ok := m.Interface.GetOK(); ok && s != sig.Interface {
		return false
	}
	if s, ok := m.Member.GetOK(); ok && s != sig.Member {
		return false
	}
	return true
}
