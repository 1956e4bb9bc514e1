package dbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/halvard/dbus/transport"
)

// SocketOptions configures [OpenSocket]. The zero value selects the
// default Unix-domain transport and the EXTERNAL SASL mechanism, the
// only pairing a Unix socket needs.
type SocketOptions struct {
	// Transports, if non-empty, lists the transport schemes to try, in
	// order. The default Socket only understands "unix".
	Transports []string
	// Authenticators lists SASL mechanisms. OpenSocket does not read
	// it: the default Socket always speaks EXTERNAL, whatever this list
	// holds.
	Authenticators []string
}

// DefaultSocketOptions returns the options the default Socket uses
// when ClientOptions leaves Transports/Authenticators unset.
func DefaultSocketOptions() SocketOptions {
	return SocketOptions{Transports: []string{"unix"}, Authenticators: []string{"EXTERNAL"}}
}

// Socket is the narrow contract the client dispatcher uses to reach a
// bus: dial, frame and send outgoing messages, receive and decode
// incoming ones, and close the connection. It is the boundary
// spec.md §6 places between the core and the socket transport/SASL
// handshake/wire codec collaborators; tests substitute a fake Socket
// to drive the dispatcher without a real bus.
type Socket interface {
	// Send renders msg as a wire frame and writes it. onSerial, if
	// non-nil, is invoked synchronously with the assigned serial before
	// any byte of the frame reaches the transport, so a caller can
	// publish the serial into a correlation table before a reply could
	// possibly arrive for it.
	Send(ctx context.Context, msg any, onSerial func(Serial)) (Serial, error)
	// Receive blocks until one complete message has been read off the
	// transport and decoded.
	Receive(ctx context.Context) (ReceivedMessage, error)
	// Close releases the underlying transport.
	Close() error
}

// OpenSocket dials address using the transport named by opts (or the
// default Unix-domain transport) and returns a ready-to-use Socket.
// It does not perform the bus Hello call; that is the dispatcher's
// job as part of its attach sequence.
func OpenSocket(ctx context.Context, opts SocketOptions, address string) (Socket, error) {
	transports := opts.Transports
	if len(transports) == 0 {
		transports = []string{"unix"}
	}
	for _, scheme := range transports {
		if scheme != "unix" {
			continue
		}
		t, err := transport.DialUnix(ctx, address)
		if err != nil {
			return nil, err
		}
		return &defaultSocket{t: t, codec: DefaultWireCodec{}}, nil
	}
	return nil, fmt.Errorf("no usable transport among %v", transports)
}

// defaultSocket is the Socket collaborator wired to a real Unix
// transport and [DefaultWireCodec].
type defaultSocket struct {
	t     transport.Transport
	codec WireCodec

	mu     sync.Mutex
	serial uint32
}

func (s *defaultSocket) Send(ctx context.Context, msg any, onSerial func(Serial)) (Serial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.serial++
	if s.serial == 0 {
		// Serial 0 is never valid; skip it on wraparound.
		s.serial++
	}
	serial := Serial(s.serial)
	if onSerial != nil {
		onSerial(serial)
	}

	frame, err := s.codec.Encode(msg, serial)
	if err != nil {
		return serial, err
	}
	if _, err := s.t.Write(frame); err != nil {
		return serial, err
	}
	return serial, nil
}

func (s *defaultSocket) Receive(ctx context.Context) (ReceivedMessage, error) {
	return s.codec.Decode(s.t)
}

func (s *defaultSocket) Close() error {
	return s.t.Close()
}
