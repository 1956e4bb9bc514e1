package dbus

import "time"

// ClientOptions configures [ConnectWith]. The zero value is usable:
// it connects over the default transport and authenticator for the
// address scheme, with no connect timeout.
type ClientOptions struct {
	// Transports, if non-empty, overrides the list of transports tried
	// to reach the address's scheme. The default Socket only knows the
	// "unix" scheme, dialed by the transport subpackage.
	Transports []string
	// Authenticators is passed on to OpenSocket as
	// SocketOptions.Authenticators. OpenSocket does not read it: the
	// default Socket always speaks EXTERNAL, whatever this list holds.
	Authenticators []string
	// Timeout bounds the connect phase (dialing and the Hello call).
	// Zero means no timeout.
	Timeout time.Duration
	// Reconnect is reserved for a future automatic-reconnect behavior.
	// The base contract does not specify what reconnection would look
	// like, so this flag is currently unhonored regardless of value.
	Reconnect bool
}
