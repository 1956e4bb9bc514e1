package dbus

import (
	"testing"

	"github.com/creachadair/mds/value"
)

func sig(path ObjectPath, iface InterfaceName, member MemberName, sender BusName) *Signal {
	return &Signal{Path: path, Interface: iface, Member: member, Sender: sender}
}

func TestMatchFilterString(t *testing.T) {
	m := Match{
		Sender:    value.Just(BusName("org.foo")),
		Path:      value.Just(ObjectPath("/foo")),
		Interface: value.Just(InterfaceName("org.foo.Iface")),
		Member:    value.Just(MemberName("Changed")),
	}
	want := "sender='org.foo',path='/foo',interface='org.foo.Iface',member='Changed'"
	if got := m.filterString(); got != want {
		t.Errorf("filterString() = %q, want %q", got, want)
	}
}

func TestMatchFilterStringEmpty(t *testing.T) {
	var m Match
	if got := m.filterString(); got != "" {
		t.Errorf("filterString() = %q, want empty", got)
	}
}

func TestMatchesSignalEmptySender(t *testing.T) {
	var m Match
	s := sig("/foo", "org.foo", "Changed", "")
	if m.matchesSignal(s, "") {
		t.Errorf("matchesSignal with empty sender should always be false")
	}
}

func TestMatchesSignalAllAbsentMatchesAnySender(t *testing.T) {
	var m Match
	s := sig("/foo", "org.foo", "Changed", "org.foo")
	if !m.matchesSignal(s, "org.foo") {
		t.Errorf("matchesSignal with no fields set should match any non-empty sender")
	}
}

func TestMatchesSignalFieldConjunction(t *testing.T) {
	m := Match{
		Interface: value.Just(InterfaceName("org.foo.Iface")),
		Member:    value.Just(MemberName("Changed")),
	}
	good := sig("/foo", "org.foo.Iface", "Changed", "org.foo")
	if !m.matchesSignal(good, "org.foo") {
		t.Errorf("expected match")
	}

	wrongMember := sig("/foo", "org.foo.Iface", "Other", "org.foo")
	if m.matchesSignal(wrongMember, "org.foo") {
		t.Errorf("expected no match: member differs")
	}

	wrongIface := sig("/foo", "org.bar.Iface", "Changed", "org.foo")
	if m.matchesSignal(wrongIface, "org.foo") {
		t.Errorf("expected no match: interface differs")
	}
}

func TestMatchesSignalSenderFilter(t *testing.T) {
	m := Match{Sender: value.Just(BusName("org.foo"))}
	fromFoo := sig("/foo", "org.foo.Iface", "Changed", "org.foo")
	if !m.matchesSignal(fromFoo, "org.foo") {
		t.Errorf("expected match: sender equals filter")
	}
	fromBar := sig("/foo", "org.foo.Iface", "Changed", "org.bar")
	if m.matchesSignal(fromBar, "org.bar") {
		t.Errorf("expected no match: sender differs from filter")
	}
}

func TestMatchesSignalDestinationFilter(t *testing.T) {
	dest := BusName(":1.1")
	m := Match{Destination: value.Just(dest)}
	s := sig("/foo", "org.foo.Iface", "Changed", "org.foo")
	s.Destination = &dest
	if !m.matchesSignal(s, "org.foo") {
		t.Errorf("expected match: destination equals filter")
	}

	s2 := sig("/foo", "org.foo.Iface", "Changed", "org.foo")
	if m.matchesSignal(s2, "org.foo") {
		t.Errorf("expected no match: signal has no destination")
	}
}
