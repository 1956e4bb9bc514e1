package dbus

import (
	"context"
	"encoding/xml"
	"fmt"
)

// Object is a fluent handle to a single object path hosted by a Peer.
type Object struct {
	p    Peer
	path ObjectPath
}

// Peer returns the peer hosting o.
func (o Object) Peer() Peer { return o.p }

// Path returns o's object path.
func (o Object) Path() ObjectPath { return o.path }

func (o Object) String() string {
	return fmt.Sprintf("%s%s", o.p, o.path)
}

// Interface returns a handle to the named interface of o.
func (o Object) Interface(name InterfaceName) Interface {
	return Interface{o: o, name: name}
}

// Introspect calls org.freedesktop.DBus.Introspectable.Introspect on o
// and parses the reply.
func (o Object) Introspect(ctx context.Context) (*ObjectDescription, error) {
	body, err := o.p.c.Call(ctx, o.p.name, o.path, ifaceIntrospectable, "Introspect")
	if err != nil {
		return nil, err
	}
	var xmlText string
	if len(body) == 0 || !FromVariant(body[0], &xmlText) {
		return nil, &ClientError{Msg: "Introspect: unexpected reply shape"}
	}
	var desc ObjectDescription
	if err := xml.Unmarshal([]byte(xmlText), &desc); err != nil {
		return nil, fmt.Errorf("parsing introspection XML: %w", err)
	}
	return &desc, nil
}

// ManagedObjects calls org.freedesktop.DBus.ObjectManager.GetManagedObjects
// on o and returns each managed object keyed by its path, together
// with the interfaces it implements.
func (o Object) ManagedObjects(ctx context.Context) (map[ObjectPath][]Interface, error) {
	body, err := o.p.c.Call(ctx, o.p.name, o.path, "org.freedesktop.DBus.ObjectManager", "GetManagedObjects")
	if err != nil {
		return nil, err
	}
	var resp map[ObjectPath]map[string]map[string]Variant
	if len(body) == 0 || !FromVariant(body[0], &resp) {
		return nil, &ClientError{Msg: "GetManagedObjects: unexpected reply shape"}
	}
	ret := make(map[ObjectPath][]Interface, len(resp))
	for path, ifaces := range resp {
		child := o.p.Object(path)
		names := make([]Interface, 0, len(ifaces))
		for name := range ifaces {
			names = append(names, child.Interface(InterfaceName(name)))
		}
		ret[path] = names
	}
	return ret, nil
}
