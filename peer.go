package dbus

import "context"

// Peer is a fluent handle bound to a single bus name, used to reach
// objects hosted by that name without repeating it at every call
// site.
type Peer struct {
	c    *Client
	name BusName
}

// Client returns the connection p was obtained from.
func (p Peer) Client() *Client { return p.c }

// Name returns the bus name p is bound to.
func (p Peer) Name() BusName { return p.name }

func (p Peer) String() string {
	if p.c == nil {
		return "<no peer>"
	}
	return string(p.name)
}

// Object returns a handle to the object at path, hosted by p.
func (p Peer) Object(path ObjectPath) Object {
	return Object{p: p, path: path}
}

// Ping calls the standard org.freedesktop.DBus.Peer.Ping method,
// which every connection answers regardless of what it has exported.
func (p Peer) Ping(ctx context.Context) error {
	_, err := p.c.Call(ctx, p.name, rootPath, ifacePeer, "Ping")
	return err
}
