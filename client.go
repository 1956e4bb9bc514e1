package dbus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// MemberKind distinguishes a method from a signal declaration in an
// exported object's registry, for introspection purposes.
type MemberKind uint8

const (
	MemberMethod MemberKind = iota
	MemberSignal
)

// MethodHandler implements one exported method. body is the incoming
// call's argument list. A returned error that is a *MethodExc controls
// the D-Bus error name and body sent back to the caller; any other
// error is reported as org.freedesktop.DBus.Error.Failed, carrying the
// error's message as its sole string argument.
type MethodHandler func(ctx context.Context, path ObjectPath, body []Variant) ([]Variant, error)

// MemberInfo describes one registered interface member.
type MemberInfo struct {
	Kind         MemberKind
	InSignature  Signature
	OutSignature Signature
	Handler      MethodHandler // only set for MemberMethod
}

// MethodDesc is one method registration passed to [Client.Export].
type MethodDesc struct {
	Interface    InterfaceName
	Member       MemberName
	InSignature  Signature
	OutSignature Signature
	Handler      MethodHandler
}

// SignalDesc is one signal declaration passed to [Client.Export],
// recorded only so introspection can describe it; emitting the signal
// itself is done with [Client.Emit].
type SignalDesc struct {
	Interface InterfaceName
	Member    MemberName
	Signature Signature
}

type pendingCall struct {
	done chan struct{}
	ret  *MethodReturn
	err  error
}

type signalHandler struct {
	match Match
	fn    func(*Signal)
}

// Client is a single connection to a D-Bus bus: the dispatcher that
// correlates outgoing calls with their replies, delivers signals to
// registered handlers, and answers incoming calls against a registry
// of exported objects.
//
// A Client is safe for concurrent use by multiple goroutines.
type Client struct {
	socket    Socket
	localName BusName

	callMu sync.Mutex
	calls  map[Serial]*pendingCall

	sigMu    sync.Mutex
	handlers []*signalHandler

	objMu   sync.Mutex
	objects map[ObjectPath]map[InterfaceName]map[MemberName]*MemberInfo

	closeOnce sync.Once
	closed    bool
}

// Connect opens a connection to address over the default Unix-domain
// transport and completes the attach sequence: it spawns the receive
// loop, which answers the built-in Introspectable and Peer calls on
// every path without any export, and calls org.freedesktop.DBus.Hello
// to obtain this connection's unique name.
func Connect(ctx context.Context, address string) (*Client, error) {
	return ConnectWith(ctx, address, ClientOptions{})
}

// ConnectWith is like Connect but accepts explicit options.
func ConnectWith(ctx context.Context, address string, opts ClientOptions) (*Client, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	sockOpts := SocketOptions{Transports: opts.Transports, Authenticators: opts.Authenticators}
	socket, err := OpenSocket(ctx, sockOpts, address)
	if err != nil {
		return nil, &ClientError{Msg: fmt.Sprintf("opening socket: %v", err)}
	}
	return attach(ctx, socket)
}

// SystemBus connects to the well-known system bus socket.
func SystemBus(ctx context.Context) (*Client, error) {
	return Connect(ctx, "/run/dbus/system_bus_socket")
}

// SessionBus connects to the bus named by $DBUS_SESSION_BUS_ADDRESS,
// which must be a "unix:path=..." (or "unix:abstract=...") address.
func SessionBus(ctx context.Context) (*Client, error) {
	addr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	if addr == "" {
		return nil, &ClientError{Msg: "DBUS_SESSION_BUS_ADDRESS is not set"}
	}
	path, err := sessionSocketPath(addr)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, path)
}

func sessionSocketPath(addr string) (string, error) {
	first := strings.SplitN(addr, ";", 2)[0]
	scheme, rest, ok := strings.Cut(first, ":")
	if !ok || scheme != "unix" {
		return "", &ClientError{Msg: fmt.Sprintf("unsupported bus address %q", first)}
	}
	for _, kv := range strings.Split(rest, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "path":
			return v, nil
		case "abstract":
			return "@" + v, nil
		}
	}
	return "", &ClientError{Msg: fmt.Sprintf("bus address %q has no path or abstract key", first)}
}

func attach(ctx context.Context, socket Socket) (*Client, error) {
	c := &Client{
		socket:  socket,
		calls:   map[Serial]*pendingCall{},
		objects: map[ObjectPath]map[InterfaceName]map[MemberName]*MemberInfo{},
	}

	go c.receiveLoop()

	var name string
	if err := c.callInto(ctx, busDestination, busPath, busInterface, "Hello", &name); err != nil {
		c.Disconnect()
		return nil, err
	}
	c.localName = BusName(name)
	return c, nil
}

// LocalName returns the unique connection name the bus assigned
// during Hello.
func (c *Client) LocalName() BusName { return c.localName }

// Peer returns a fluent handle bound to the bus name.
func (c *Client) Peer(name BusName) Peer { return Peer{c: c, name: name} }

// Call invokes member on destination/path/iface and blocks for the
// reply. A MethodErr is returned unwrapped as err if the peer replies
// with a D-Bus error.
func (c *Client) Call(ctx context.Context, destination BusName, path ObjectPath, iface InterfaceName, member MemberName, body ...Variant) ([]Variant, error) {
	msg := &MethodCall{
		Path:        path,
		Member:      member,
		Interface:   iface,
		Destination: destination,
		Body:        body,
	}

	pend := &pendingCall{done: make(chan struct{})}
	var serial Serial
	onSerial := func(s Serial) {
		serial = s
		msg.Serial = s
		c.callMu.Lock()
		if c.closed {
			pend.err = &ClientError{Msg: "connection closed", Serial: s}
			close(pend.done)
			c.callMu.Unlock()
			return
		}
		c.calls[s] = pend
		c.callMu.Unlock()
	}

	if _, err := c.socket.Send(ctx, msg, onSerial); err != nil {
		c.callMu.Lock()
		delete(c.calls, serial)
		c.callMu.Unlock()
		return nil, &ClientError{Msg: fmt.Sprintf("send failed: %v", err), Serial: serial}
	}

	select {
	case <-pend.done:
	case <-ctx.Done():
		c.callMu.Lock()
		delete(c.calls, serial)
		c.callMu.Unlock()
		return nil, ctx.Err()
	}

	if pend.err != nil {
		return nil, pend.err
	}
	return pend.ret.Body, nil
}

// callInto calls member with no arguments and decodes the first reply
// argument into dst, for the built-in calls the Client itself makes.
func (c *Client) callInto(ctx context.Context, destination BusName, path ObjectPath, iface InterfaceName, member MemberName, dst any) error {
	body, err := c.Call(ctx, destination, path, iface, member)
	if err != nil {
		return err
	}
	if len(body) == 0 || !FromVariant(body[0], dst) {
		return &ClientError{Msg: fmt.Sprintf("%s: unexpected reply shape", member)}
	}
	return nil
}

// Emit sends a signal from path/iface/member. Signals are fire-and-
// forget: there is no reply to wait for.
func (c *Client) Emit(ctx context.Context, path ObjectPath, iface InterfaceName, member MemberName, body ...Variant) error {
	msg := &Signal{Path: path, Interface: iface, Member: member, Body: body}
	if _, err := c.socket.Send(ctx, msg, nil); err != nil {
		return &ClientError{Msg: fmt.Sprintf("emit failed: %v", err)}
	}
	return nil
}

// Listen registers fn to be called for every incoming signal matching
// m, and asks the bus daemon to route matching signals to this
// connection. fn runs on the goroutine dispatching that signal, after
// any handler registered before it.
func (c *Client) Listen(ctx context.Context, m Match, fn func(*Signal)) error {
	c.sigMu.Lock()
	c.handlers = append(c.handlers, &signalHandler{match: m, fn: fn})
	c.sigMu.Unlock()

	_, err := c.Call(ctx, busDestination, busPath, busInterface, "AddMatch", MustToVariant(m.filterString()))
	return err
}

// Export registers methods against path, merging at the member level
// with whatever is already registered there: a repeated call adding
// methods on a different interface, or a different member of the same
// interface, does not disturb previously exported members.
func (c *Client) Export(path ObjectPath, methods ...MethodDesc) {
	c.objMu.Lock()
	defer c.objMu.Unlock()
	ifaces, ok := c.objects[path]
	if !ok {
		ifaces = map[InterfaceName]map[MemberName]*MemberInfo{}
		c.objects[path] = ifaces
	}
	for _, m := range methods {
		members, ok := ifaces[m.Interface]
		if !ok {
			members = map[MemberName]*MemberInfo{}
			ifaces[m.Interface] = members
		}
		members[m.Member] = &MemberInfo{
			Kind:         MemberMethod,
			InSignature:  m.InSignature,
			OutSignature: m.OutSignature,
			Handler:      m.Handler,
		}
	}
}

// ExportSignals records signal declarations against path so
// introspection can describe them. It does not affect Emit, which
// needs no prior declaration.
func (c *Client) ExportSignals(path ObjectPath, signals ...SignalDesc) {
	c.objMu.Lock()
	defer c.objMu.Unlock()
	ifaces, ok := c.objects[path]
	if !ok {
		ifaces = map[InterfaceName]map[MemberName]*MemberInfo{}
		c.objects[path] = ifaces
	}
	for _, s := range signals {
		members, ok := ifaces[s.Interface]
		if !ok {
			members = map[MemberName]*MemberInfo{}
			ifaces[s.Interface] = members
		}
		members[s.Member] = &MemberInfo{Kind: MemberSignal, InSignature: s.Signature}
	}
}

// Disconnect tears the connection down: every pending call fails with
// a ClientError, signal handlers and the object registry are cleared,
// and the underlying socket is closed. Disconnect is idempotent.
func (c *Client) Disconnect() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.callMu.Lock()
		c.closed = true
		pending := c.calls
		c.calls = map[Serial]*pendingCall{}
		c.callMu.Unlock()

		for serial, p := range pending {
			p.err = &ClientError{Msg: "connection closed during call", Serial: serial}
			close(p.done)
		}

		c.sigMu.Lock()
		c.handlers = nil
		c.sigMu.Unlock()

		c.objMu.Lock()
		c.objects = map[ObjectPath]map[InterfaceName]map[MemberName]*MemberInfo{}
		c.objMu.Unlock()

		closeErr = c.socket.Close()
	})
	return closeErr
}

func (c *Client) receiveLoop() {
	for {
		msg, err := c.socket.Receive(context.Background())
		if err != nil {
			log.Printf("dbus: receive loop stopped: %v", err)
			c.Disconnect()
			return
		}
		go c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg ReceivedMessage) {
	switch msg.Kind {
	case ReceivedMethodReturn:
		c.dispatchReturn(msg.Return)
	case ReceivedMethodError:
		c.dispatchError(msg.Err)
	case ReceivedSignal:
		c.dispatchSignal(msg.Signal)
	case ReceivedMethodCall:
		c.dispatchCall(msg.Call)
	}
}

func (c *Client) dispatchReturn(ret *MethodReturn) {
	c.callMu.Lock()
	p, ok := c.calls[ret.ReplySerial]
	if ok {
		delete(c.calls, ret.ReplySerial)
	}
	c.callMu.Unlock()
	if !ok {
		return
	}
	p.ret = ret
	close(p.done)
}

func (c *Client) dispatchError(e *MethodError) {
	c.callMu.Lock()
	p, ok := c.calls[e.ReplySerial]
	if ok {
		delete(c.calls, e.ReplySerial)
	}
	c.callMu.Unlock()
	if !ok {
		return
	}
	p.err = &MethodErr{Name: e.ErrorName, Body: e.Body}
	close(p.done)
}

func (c *Client) dispatchSignal(sig *Signal) {
	c.sigMu.Lock()
	handlers := append([]*signalHandler(nil), c.handlers...)
	c.sigMu.Unlock()
	for _, h := range handlers {
		if h.match.matchesSignal(sig, sig.Sender) {
			h.fn(sig)
		}
	}
}

func (c *Client) dispatchCall(call *MethodCall) {
	switch {
	case call.Interface == ifaceIntrospectable && call.Member == "Introspect":
		c.handleIntrospect(call)
		return
	case call.Interface == ifacePeer:
		c.handlePeer(call)
		return
	}

	info, ok := c.lookupMethod(call.Path, call.Interface, call.Member)
	if !ok {
		c.replyErr(call, errUnknownMethod, fmt.Sprintf("no such method %s.%s at %s", call.Interface, call.Member, call.Path))
		return
	}

	body, err := c.invokeHandler(info, call)
	if err != nil {
		var exc *MethodExc
		if errors.As(err, &exc) {
			c.replyErrBody(call, exc.Name, exc.Body)
			return
		}
		c.replyErr(call, errFailed, err.Error())
		return
	}
	c.reply(call, body)
}

func (c *Client) invokeHandler(info *MemberInfo, call *MethodCall) (body []Variant, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("method handler panicked: %v", r)
		}
	}()
	return info.Handler(context.Background(), call.Path, call.Body)
}

func (c *Client) lookupMethod(path ObjectPath, iface InterfaceName, member MemberName) (*MemberInfo, bool) {
	c.objMu.Lock()
	defer c.objMu.Unlock()
	ifaces, ok := c.objects[path]
	if !ok {
		return nil, false
	}
	members, ok := ifaces[iface]
	if !ok {
		return nil, false
	}
	info, ok := members[member]
	if !ok || info.Kind != MemberMethod {
		return nil, false
	}
	return info, true
}

func (c *Client) handlePeer(call *MethodCall) {
	switch call.Member {
	case "Ping":
		c.reply(call, nil)
	case "GetMachineId":
		id, err := machineID()
		if err != nil {
			c.replyErr(call, errFailed, err.Error())
			return
		}
		c.reply(call, []Variant{MustToVariant(id)})
	default:
		c.replyErr(call, errUnknownMethod, fmt.Sprintf("no such method %s.%s", call.Interface, call.Member))
	}
}

func (c *Client) reply(call *MethodCall, body []Variant) {
	if call.Flags.Has(FlagNoReplyExpected) {
		return
	}
	msg := &MethodReturn{ReplySerial: call.Serial, Destination: call.Sender, Body: body}
	if _, err := c.socket.Send(context.Background(), msg, nil); err != nil {
		log.Printf("dbus: sending reply to serial %d: %v", call.Serial, err)
	}
}

func (c *Client) replyErr(call *MethodCall, name ErrorName, msg string) {
	var body []Variant
	if msg != "" {
		body = []Variant{MustToVariant(msg)}
	}
	c.replyErrBody(call, name, body)
}

func (c *Client) replyErrBody(call *MethodCall, name ErrorName, body []Variant) {
	if call.Flags.Has(FlagNoReplyExpected) {
		return
	}
	msg := &MethodError{ErrorName: name, ReplySerial: call.Serial, Destination: call.Sender, Body: body}
	if _, err := c.socket.Send(context.Background(), msg, nil); err != nil {
		log.Printf("dbus: sending error reply to serial %d: %v", call.Serial, err)
	}
}
