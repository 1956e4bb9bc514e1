// Package dbus is a client library for the D-Bus message bus
// protocol.
//
// The package models D-Bus's wire data model as an explicit value
// algebra ([Type], [Value], [Variant]) rather than deriving it from
// Go's reflect package, so that arbitrary D-Bus data can be
// constructed, inspected and round-tripped without a matching Go
// struct definition.
//
// [Signature] parses and formats the compact byte-encoded type
// signature language used throughout the protocol. [Client] owns a
// single transport connection and multiplexes it into outgoing method
// calls, signal broadcast and receipt, and server-side method export,
// correlating replies to calls by their serial number.
//
// The actual bytes on the wire, the socket transport and its SASL
// handshake, and the XML introspection format are deliberately kept
// behind narrow collaborator interfaces ([WireCodec], [Socket],
// [Introspector]): this package defines the contracts and the default
// implementations used by [Connect] ([DefaultWireCodec],
// [DefaultIntrospection] and the Socket returned by [OpenSocket]),
// built on the transport and wire subpackages.
package dbus
