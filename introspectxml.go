package dbus

import (
	"encoding/xml"
	"slices"
)

// Introspector renders an [ObjectDescription] as the XML document
// org.freedesktop.DBus.Introspectable.Introspect returns. It is the
// encode-side counterpart to ObjectDescription.UnmarshalXML, which
// decodes that same document when this client is the caller instead
// of the callee.
type Introspector interface {
	ToXML(desc *ObjectDescription) (string, bool)
}

// DefaultIntrospection is the Introspector the Client uses to answer
// Introspect calls against its own exported object registry.
var DefaultIntrospection Introspector = xmlIntrospector{}

const introspectDoctype = `<!DOCTYPE node PUBLIC "-//freedesktop//DTD D-BUS Object Introspection 1.0//EN" "http://www.freedesktop.org/standards/dbus/1.0/introspect.dtd">
`

type xmlIntrospector struct{}

func (xmlIntrospector) ToXML(desc *ObjectDescription) (string, bool) {
	if desc == nil {
		return "", false
	}

	var node xmlOutNode
	names := make([]string, 0, len(desc.Interfaces))
	for name := range desc.Interfaces {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		iface := desc.Interfaces[name]
		xi := xmlOutInterface{Name: name}
		for _, m := range iface.Methods {
			xm := xmlOutMethod{Name: m.Name}
			for _, a := range m.In {
				xm.Args = append(xm.Args, xmlOutArg{Name: a.Name, Type: a.Type.String(), Direction: "in"})
			}
			for _, a := range m.Out {
				xm.Args = append(xm.Args, xmlOutArg{Name: a.Name, Type: a.Type.String(), Direction: "out"})
			}
			xi.Methods = append(xi.Methods, xm)
		}
		for _, s := range iface.Signals {
			xs := xmlOutSignal{Name: s.Name}
			for _, a := range s.Args {
				xs.Args = append(xs.Args, xmlOutArg{Name: a.Name, Type: a.Type.String()})
			}
			xi.Signals = append(xi.Signals, xs)
		}
		for _, p := range iface.Properties {
			xi.Properties = append(xi.Properties, xmlOutProperty{
				Name:   p.Name,
				Type:   p.Type.String(),
				Access: propertyAccess(p),
			})
		}
		node.Interfaces = append(node.Interfaces, xi)
	}

	children := append([]string(nil), desc.Children...)
	slices.Sort(children)
	for _, c := range children {
		node.Children = append(node.Children, xmlOutChild{Name: c})
	}

	out, err := xml.MarshalIndent(node, "", "  ")
	if err != nil {
		return "", false
	}
	return introspectDoctype + string(out), true
}

func propertyAccess(p *PropertyDescription) string {
	switch {
	case p.Readable && p.Writable:
		return "readwrite"
	case p.Writable:
		return "write"
	default:
		return "read"
	}
}

// xmlOutNode and friends mirror the introspection XML schema for
// encoding only; ObjectDescription and its fields carry the decode
// (UnmarshalXML) side, since the two directions don't share a
// convenient struct shape (attribute vs. element layout differs, and
// the decode side needs the annotation children the encode side never
// emits for a handwritten registry).
type xmlOutNode struct {
	XMLName    xml.Name          `xml:"node"`
	Interfaces []xmlOutInterface `xml:"interface"`
	Children   []xmlOutChild     `xml:"node"`
}

type xmlOutInterface struct {
	Name       string           `xml:"name,attr"`
	Methods    []xmlOutMethod   `xml:"method"`
	Signals    []xmlOutSignal   `xml:"signal"`
	Properties []xmlOutProperty `xml:"property"`
}

type xmlOutMethod struct {
	Name string     `xml:"name,attr"`
	Args []xmlOutArg `xml:"arg"`
}

type xmlOutSignal struct {
	Name string     `xml:"name,attr"`
	Args []xmlOutArg `xml:"arg"`
}

type xmlOutProperty struct {
	Name   string `xml:"name,attr"`
	Type   string `xml:"type,attr"`
	Access string `xml:"access,attr"`
}

type xmlOutArg struct {
	Name      string `xml:"name,attr,omitempty"`
	Type      string `xml:"type,attr"`
	Direction string `xml:"direction,attr,omitempty"`
}

type xmlOutChild struct {
	Name string `xml:"name,attr"`
}
