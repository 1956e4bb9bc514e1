package dbus

import (
	"os"
	"strings"
	"sync"
)

func (c *Client) handleIntrospect(call *MethodCall) {
	desc := c.describeObject(call.Path)
	xmlText, ok := DefaultIntrospection.ToXML(desc)
	if !ok {
		c.replyErr(call, errFailed, "failed to render introspection XML")
		return
	}
	c.reply(call, []Variant{MustToVariant(xmlText)})
}

// describeObject builds the ObjectDescription for path out of the
// exported registry: its own interfaces/members, plus, as a child
// node, the first path element below path of every other exported
// path beneath it (for the root path, every other exported path).
func (c *Client) describeObject(path ObjectPath) *ObjectDescription {
	c.objMu.Lock()
	defer c.objMu.Unlock()

	desc := &ObjectDescription{Interfaces: map[string]*InterfaceDescription{}}
	for ifaceName, members := range c.objects[path] {
		id := &InterfaceDescription{Name: string(ifaceName)}
		for memberName, info := range members {
			switch info.Kind {
			case MemberMethod:
				id.Methods = append(id.Methods, &MethodDescription{
					Name: string(memberName),
					In:   argsFromSignature(info.InSignature),
					Out:  argsFromSignature(info.OutSignature),
				})
			case MemberSignal:
				id.Signals = append(id.Signals, &SignalDescription{
					Name: string(memberName),
					Args: argsFromSignature(info.InSignature),
				})
			}
		}
		desc.Interfaces[string(ifaceName)] = id
	}

	seen := map[string]bool{}
	for p := range c.objects {
		if p == path || !isChildPath(path, p) {
			continue
		}
		child := childElement(path, p)
		if !seen[child] {
			seen[child] = true
			desc.Children = append(desc.Children, child)
		}
	}
	return desc
}

func isChildPath(parent, candidate ObjectPath) bool {
	if parent == rootPath {
		return strings.HasPrefix(string(candidate), "/") && candidate != rootPath
	}
	return strings.HasPrefix(string(candidate), string(parent)+"/")
}

func childElement(parent, candidate ObjectPath) string {
	rest := strings.TrimPrefix(string(candidate), string(parent))
	rest = strings.TrimPrefix(rest, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

func argsFromSignature(sig Signature) []ArgumentDescription {
	types := sig.Types()
	if len(types) == 0 {
		return nil
	}
	out := make([]ArgumentDescription, len(types))
	for i, t := range types {
		out[i] = ArgumentDescription{Type: MustSignature(t)}
	}
	return out
}

var machineIDOnce = sync.OnceValues(func() (string, error) {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		b, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(b)), nil
		}
	}
	return "", &ClientError{Msg: "no machine-id file found"}
})

func machineID() (string, error) { return machineIDOnce() }
