package dbus

import (
	"context"
	"fmt"
)

// Interface is a set of methods, properties and signals offered by an
// [Object].
type Interface struct {
	o    Object
	name InterfaceName
}

// Peer returns the Peer offering the interface.
func (f Interface) Peer() Peer { return f.o.Peer() }

// Object returns the Object that implements the interface.
func (f Interface) Object() Object { return f.o }

// Name returns the interface's name.
func (f Interface) Name() InterfaceName { return f.name }

func (f Interface) String() string {
	if f.name == "" {
		return fmt.Sprintf("%s:<no interface>", f.o)
	}
	return fmt.Sprintf("%s:%s", f.o, f.name)
}

// Call invokes method on the interface and returns its reply body.
//
// This is a low-level calling API: it is the caller's responsibility
// to build args and decode the reply to match the signature of the
// method being invoked.
func (f Interface) Call(ctx context.Context, method MemberName, args ...Variant) ([]Variant, error) {
	return f.o.p.c.Call(ctx, f.o.p.name, f.o.path, f.name, method, args...)
}

// CallChecked introspects the interface's object, verifies that args
// match the arity and signature the peer advertises for method, and
// only then performs the call. It costs an extra round trip over
// [Interface.Call], so it's best suited to exploratory tooling rather
// than hot paths where the caller already knows the method's shape.
func (f Interface) CallChecked(ctx context.Context, method MemberName, args ...Variant) ([]Variant, error) {
	desc, err := f.o.Introspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspecting %s before call: %w", f, err)
	}
	m, ok := desc.Method(string(f.name), string(method))
	if !ok {
		return nil, &ClientError{Msg: fmt.Sprintf("%s has no method %s.%s", f, f.name, method)}
	}
	wantIn, err := m.InSignature()
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", f.name, method, err)
	}
	if len(wantIn.Types()) != len(args) {
		return nil, &ClientError{Msg: fmt.Sprintf("%s.%s expects %d argument(s), got %d", f.name, method, len(wantIn.Types()), len(args))}
	}
	gotTypes := make([]Type, len(args))
	for i, a := range args {
		gotTypes[i] = a.Type()
	}
	got, err := NewSignature(gotTypes...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", f.name, method, err)
	}
	if got.String() != wantIn.String() {
		return nil, &ClientError{Msg: fmt.Sprintf("%s.%s expects arguments %s, got %s", f.name, method, wantIn, got)}
	}
	return f.Call(ctx, method, args...)
}

// OneWay invokes method on the interface and tells the peer not to
// send a reply. It returns once the call has been sent; since the
// reply is suppressed at the protocol level, there is no way to know
// whether the call was delivered to, or acted upon by, anyone.
func (f Interface) OneWay(ctx context.Context, method MemberName, args ...Variant) error {
	msg := &MethodCall{
		Path:        f.o.path,
		Member:      method,
		Interface:   f.name,
		Destination: f.o.p.name,
		Flags:       FlagNoReplyExpected,
		Body:        args,
	}
	_, err := f.o.p.c.socket.Send(ctx, msg, nil)
	if err != nil {
		return &ClientError{Msg: fmt.Sprintf("send failed: %v", err)}
	}
	return nil
}

// GetProperty reads the named property's current value through
// org.freedesktop.DBus.Properties.Get.
func (f Interface) GetProperty(ctx context.Context, name string) (Variant, error) {
	body, err := f.o.p.c.Call(ctx, f.o.p.name, f.o.path, ifaceProperties, "Get",
		MustToVariant(string(f.name)), MustToVariant(name))
	if err != nil {
		return Variant{}, err
	}
	if len(body) != 1 || body[0].Value().Kind() != ValueVariant {
		return Variant{}, &ClientError{Msg: "Properties.Get: unexpected reply shape"}
	}
	return body[0].Value().Variant(), nil
}

// SetProperty sets the named property through
// org.freedesktop.DBus.Properties.Set.
func (f Interface) SetProperty(ctx context.Context, name string, value Variant) error {
	_, err := f.o.p.c.Call(ctx, f.o.p.name, f.o.path, ifaceProperties, "Set",
		MustToVariant(string(f.name)), MustToVariant(name), NewVariant(ValueFromVariant(value)))
	return err
}

// GetAllProperties reads every property of the interface through
// org.freedesktop.DBus.Properties.GetAll.
func (f Interface) GetAllProperties(ctx context.Context) (map[string]Variant, error) {
	body, err := f.o.p.c.Call(ctx, f.o.p.name, f.o.path, ifaceProperties, "GetAll", MustToVariant(string(f.name)))
	if err != nil {
		return nil, err
	}
	if len(body) != 1 || body[0].Value().Kind() != ValueMap {
		return nil, &ClientError{Msg: "Properties.GetAll: unexpected reply shape"}
	}
	out := make(map[string]Variant)
	for k, v := range body[0].Value().Map() {
		if v.Kind() != ValueVariant {
			continue
		}
		out[k.Text()] = v.Variant()
	}
	return out, nil
}
