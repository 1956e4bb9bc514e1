package dbus

// Well-known bus destination, object path and interface names used by
// the built-in bus-daemon and Peer/Introspectable/Properties calls
// every connection can make or must answer.
const (
	busDestination BusName       = "org.freedesktop.DBus"
	busPath        ObjectPath    = "/org/freedesktop/DBus"
	busInterface   InterfaceName = "org.freedesktop.DBus"

	rootPath ObjectPath = "/"

	ifaceIntrospectable InterfaceName = "org.freedesktop.DBus.Introspectable"
	ifacePeer           InterfaceName = "org.freedesktop.DBus.Peer"
	ifaceProperties     InterfaceName = "org.freedesktop.DBus.Properties"
)
