package dbus

// Serial is the correlation key for a method call and its reply. It
// is an unsigned 32-bit counter that wraps.
type Serial uint32

// MessageFlags carries the header flag bits of an outgoing or
// incoming message.
type MessageFlags uint8

const (
	// FlagNoReplyExpected tells the peer not to send a MethodReturn or
	// MethodError for this call.
	FlagNoReplyExpected MessageFlags = 1 << iota
	// FlagNoAutoStart tells the bus not to launch a service to own the
	// destination name if it is not already running.
	FlagNoAutoStart
)

// Has reports whether f includes every bit set in other.
func (f MessageFlags) Has(other MessageFlags) bool { return f&other == other }

// MethodCall is an outgoing or incoming method invocation.
type MethodCall struct {
	Serial      Serial
	Path        ObjectPath
	Member      MemberName
	Interface   InterfaceName // may be empty: optional per the wire format
	Sender      BusName       // optional; empty if unset
	Destination BusName       // optional; empty if unset
	Flags       MessageFlags
	Body        []Variant
}

// MethodReturn is a successful reply to a MethodCall.
type MethodReturn struct {
	Serial      Serial
	ReplySerial Serial
	Sender      BusName
	Destination BusName
	Body        []Variant
}

// MethodError is an error reply to a MethodCall.
type MethodError struct {
	Serial      Serial
	ErrorName   ErrorName
	ReplySerial Serial
	Sender      BusName
	Destination BusName
	Body        []Variant
}

// Signal is a broadcast or directed signal emission.
type Signal struct {
	Serial      Serial
	Path        ObjectPath
	Interface   InterfaceName
	Member      MemberName
	Sender      BusName
	Destination *BusName // nil if the signal is not unicast
	Body        []Variant
}

// ReceivedMessageKind identifies which case of [ReceivedMessage] is
// populated.
type ReceivedMessageKind uint8

const (
	ReceivedInvalid ReceivedMessageKind = iota
	ReceivedMethodCall
	ReceivedMethodReturn
	ReceivedMethodError
	ReceivedSignal
)

// ReceivedMessage is a tagged enum over the four message kinds the
// wire codec can produce, each carrying the message's own serial.
type ReceivedMessage struct {
	Kind   ReceivedMessageKind
	Call   *MethodCall
	Return *MethodReturn
	Err    *MethodError
	Signal *Signal
}

// SerialNumber returns the serial number of whichever message m carries.
func (m ReceivedMessage) SerialNumber() Serial {
	switch m.Kind {
	case ReceivedMethodCall:
		return m.Call.Serial
	case ReceivedMethodReturn:
		return m.Return.Serial
	case ReceivedMethodError:
		return m.Err.Serial
	case ReceivedSignal:
		return m.Signal.Serial
	default:
		return 0
	}
}
