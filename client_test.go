package dbus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeSocket is a minimal in-memory [Socket] good enough to drive the
// dispatcher end to end, without a real bus daemon. It auto-replies
// to the Hello call attach() issues, and otherwise just records what
// was sent and lets the test feed back whatever it likes.
type fakeSocket struct {
	mu       sync.Mutex
	serial   uint32
	sent     []any
	incoming chan ReceivedMessage
	closed   bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{incoming: make(chan ReceivedMessage, 16)}
}

func (f *fakeSocket) Send(ctx context.Context, msg any, onSerial func(Serial)) (Serial, error) {
	f.mu.Lock()
	f.serial++
	s := Serial(f.serial)
	f.mu.Unlock()

	if onSerial != nil {
		onSerial(s)
	}

	f.mu.Lock()
	f.sent = append(f.sent, msg)
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return s, fmt.Errorf("fakeSocket: send after close")
	}

	if call, ok := msg.(*MethodCall); ok && call.Interface == busInterface && call.Member == "Hello" {
		f.deliver(ReceivedMessage{
			Kind:   ReceivedMethodReturn,
			Return: &MethodReturn{ReplySerial: s, Body: []Variant{MustToVariant("test.unique.name")}},
		})
	}
	return s, nil
}

// deliver queues msg as though it had arrived from the bus.
func (f *fakeSocket) deliver(msg ReceivedMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.incoming <- msg
}

func (f *fakeSocket) Receive(ctx context.Context) (ReceivedMessage, error) {
	msg, ok := <-f.incoming
	if !ok {
		return ReceivedMessage{}, fmt.Errorf("fakeSocket: closed")
	}
	return msg, nil
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.incoming)
	}
	return nil
}

// sentLen returns how many messages have been sent so far.
func (f *fakeSocket) sentLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// lastSent returns the most recently sent message, or nil if none.
func (f *fakeSocket) lastSent() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// waitForSent polls until at least n messages have been sent, or
// fails the test after a short deadline. Dispatch runs on its own
// goroutine per message, so tests can't just read f.sent synchronously
// after delivering a message.
func waitForSent(t *testing.T, f *fakeSocket, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.sentLen() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sent message(s), got %d", n, f.sentLen())
}

func newTestClient(t *testing.T) (*Client, *fakeSocket) {
	t.Helper()
	f := newFakeSocket()
	c, err := attach(context.Background(), f)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	t.Cleanup(func() { c.Disconnect() })
	return c, f
}

// TestClientCallCorrelation checks that a Call's reply is matched to
// the right pending call by ReplySerial, even when an unrelated
// message the client has no matching serial for arrives first.
func TestClientCallCorrelation(t *testing.T) {
	c, f := newTestClient(t)

	// Stray return for a serial nobody is waiting on; dispatchReturn
	// should drop it silently rather than panic or wedge later calls.
	f.deliver(ReceivedMessage{Kind: ReceivedMethodReturn, Return: &MethodReturn{ReplySerial: 9999}})

	type result struct {
		body []Variant
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := c.Call(context.Background(), BusName("com.example.Peer"), ObjectPath("/obj"), InterfaceName("com.example.Iface"), MemberName("Method"))
		done <- result{body, err}
	}()

	// Wait for the outgoing call to be sent (index 1: Hello was index 0),
	// then answer it using the serial the dispatcher actually assigned.
	waitForSent(t, f, 2)
	call, ok := f.lastSent().(*MethodCall)
	if !ok {
		t.Fatalf("lastSent() = %#v, want *MethodCall", f.lastSent())
	}
	f.deliver(ReceivedMessage{
		Kind:   ReceivedMethodReturn,
		Return: &MethodReturn{ReplySerial: call.Serial, Body: []Variant{MustToVariant(uint32(42))}},
	})

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Call: %v", r.err)
		}
		var got uint32
		if len(r.body) != 1 || !FromVariant(r.body[0], &got) || got != 42 {
			t.Errorf("Call reply body = %v, want [42]", r.body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not return after matching reply arrived")
	}
}

// TestClientCallMethodError checks that a MethodError reply surfaces
// as a *MethodErr from Call, correlated by ReplySerial like a normal
// return.
func TestClientCallMethodError(t *testing.T) {
	c, f := newTestClient(t)

	done := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), BusName("com.example.Peer"), ObjectPath("/obj"), InterfaceName("com.example.Iface"), MemberName("Method"))
		done <- err
	}()

	waitForSent(t, f, 2)
	call := f.lastSent().(*MethodCall)
	f.deliver(ReceivedMessage{
		Kind: ReceivedMethodError,
		Err:  &MethodError{ReplySerial: call.Serial, ErrorName: errFailed, Body: []Variant{MustToVariant("boom")}},
	})

	select {
	case err := <-done:
		var exc *MethodErr
		if err == nil {
			t.Fatal("Call: expected error, got nil")
		}
		if !asMethodErr(err, &exc) || exc.Name != errFailed {
			t.Errorf("Call error = %v, want *MethodErr{Name: %s}", err, errFailed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not return after error reply arrived")
	}
}

func asMethodErr(err error, target **MethodErr) bool {
	if e, ok := err.(*MethodErr); ok {
		*target = e
		return true
	}
	return false
}

// TestClientDispatchUnknownMethod checks that an incoming call against
// a path/interface/member with no registered handler gets an
// UnknownMethod error reply, not silence or a panic.
func TestClientDispatchUnknownMethod(t *testing.T) {
	_, f := newTestClient(t)

	f.deliver(ReceivedMessage{
		Kind: ReceivedMethodCall,
		Call: &MethodCall{
			Serial:    7,
			Path:      ObjectPath("/no/such/object"),
			Interface: InterfaceName("com.example.Nope"),
			Member:    MemberName("DoThing"),
		},
	})

	waitForSent(t, f, 2)
	errMsg, ok := f.lastSent().(*MethodError)
	if !ok {
		t.Fatalf("lastSent() = %#v, want *MethodError", f.lastSent())
	}
	if errMsg.ReplySerial != 7 {
		t.Errorf("ReplySerial = %d, want 7", errMsg.ReplySerial)
	}
	if errMsg.ErrorName != errUnknownMethod {
		t.Errorf("ErrorName = %s, want %s", errMsg.ErrorName, errUnknownMethod)
	}
}

// TestClientDispatchExportedMethod checks that a call against a
// registered method reaches its handler and the handler's reply is
// sent back as a MethodReturn.
func TestClientDispatchExportedMethod(t *testing.T) {
	c, f := newTestClient(t)

	invoked := make(chan []Variant, 1)
	c.Export(ObjectPath("/obj"), MethodDesc{
		Interface: InterfaceName("com.example.Iface"),
		Member:    MemberName("Method"),
		Handler: func(ctx context.Context, path ObjectPath, body []Variant) ([]Variant, error) {
			invoked <- body
			return []Variant{MustToVariant("ok")}, nil
		},
	})

	f.deliver(ReceivedMessage{
		Kind: ReceivedMethodCall,
		Call: &MethodCall{
			Serial:    11,
			Path:      ObjectPath("/obj"),
			Interface: InterfaceName("com.example.Iface"),
			Member:    MemberName("Method"),
			Body:      []Variant{MustToVariant(int32(1))},
		},
	})

	select {
	case body := <-invoked:
		var got int32
		if len(body) != 1 || !FromVariant(body[0], &got) || got != 1 {
			t.Errorf("handler body = %v, want [1]", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("exported handler was never invoked")
	}

	waitForSent(t, f, 2)
	ret, ok := f.lastSent().(*MethodReturn)
	if !ok {
		t.Fatalf("lastSent() = %#v, want *MethodReturn", f.lastSent())
	}
	if ret.ReplySerial != 11 {
		t.Errorf("ReplySerial = %d, want 11", ret.ReplySerial)
	}
}

// TestClientDisconnectDrainsPendingCalls checks that Disconnect fails
// every call still waiting on a reply, rather than leaving its
// goroutine blocked forever.
func TestClientDisconnectDrainsPendingCalls(t *testing.T) {
	c, f := newTestClient(t)

	done := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), BusName("com.example.Peer"), ObjectPath("/obj"), InterfaceName("com.example.Iface"), MemberName("Method"))
		done <- err
	}()
	waitForSent(t, f, 2)

	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Call: expected error after Disconnect, got nil")
		}
		if _, ok := err.(*ClientError); !ok {
			t.Errorf("Call error = %T(%v), want *ClientError", err, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not unblock after Disconnect")
	}

	// A second Disconnect must be a harmless no-op.
	if err := c.Disconnect(); err != nil {
		t.Errorf("second Disconnect: %v", err)
	}
}
