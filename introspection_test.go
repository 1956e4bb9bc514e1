package dbus

import "testing"

func sampleObjectDescription() *ObjectDescription {
	return &ObjectDescription{
		Interfaces: map[string]*InterfaceDescription{
			"com.example.Iface": {
				Name: "com.example.Iface",
				Methods: []*MethodDescription{
					{
						Name: "Concat",
						In: []ArgumentDescription{
							{Name: "a", Type: MustSignature(String)},
							{Name: "b", Type: MustSignature(String)},
						},
						Out: []ArgumentDescription{
							{Name: "result", Type: MustSignature(String)},
						},
					},
				},
				Signals: []*SignalDescription{
					{
						Name: "Changed",
						Args: []ArgumentDescription{{Name: "value", Type: MustSignature(Int32)}},
					},
				},
				Properties: []*PropertyDescription{
					{Name: "Count", Type: MustSignature(Int32), Readable: true},
				},
			},
		},
	}
}

func TestObjectDescriptionMethodLookup(t *testing.T) {
	desc := sampleObjectDescription()

	m, ok := desc.Method("com.example.Iface", "Concat")
	if !ok {
		t.Fatal("Method(Iface, Concat): not found")
	}
	if m.Name != "Concat" {
		t.Errorf("Name = %q, want Concat", m.Name)
	}

	if _, ok := desc.Method("com.example.Iface", "NoSuchMethod"); ok {
		t.Error("Method(Iface, NoSuchMethod): expected not found")
	}
	if _, ok := desc.Method("com.example.NoSuchIface", "Concat"); ok {
		t.Error("Method(NoSuchIface, Concat): expected not found")
	}
}

func TestInterfaceDescriptionSignalAndPropertyLookup(t *testing.T) {
	desc := sampleObjectDescription()
	id := desc.Interfaces["com.example.Iface"]

	if _, ok := id.Signal("Changed"); !ok {
		t.Error("Signal(Changed): not found")
	}
	if _, ok := id.Signal("NoSuchSignal"); ok {
		t.Error("Signal(NoSuchSignal): expected not found")
	}
	if p, ok := id.Property("Count"); !ok || !p.Readable {
		t.Errorf("Property(Count) = %v, %v, want a readable property", p, ok)
	}
	if _, ok := id.Property("NoSuchProperty"); ok {
		t.Error("Property(NoSuchProperty): expected not found")
	}
}

func TestMethodDescriptionSignatures(t *testing.T) {
	desc := sampleObjectDescription()
	m, _ := desc.Method("com.example.Iface", "Concat")

	in, err := m.InSignature()
	if err != nil {
		t.Fatalf("InSignature: %v", err)
	}
	if got, want := in.String(), "ss"; got != want {
		t.Errorf("InSignature().String() = %q, want %q", got, want)
	}

	out, err := m.OutSignature()
	if err != nil {
		t.Fatalf("OutSignature: %v", err)
	}
	if got, want := out.String(), "s"; got != want {
		t.Errorf("OutSignature().String() = %q, want %q", got, want)
	}
}

func TestSignalDescriptionArgSignature(t *testing.T) {
	desc := sampleObjectDescription()
	id := desc.Interfaces["com.example.Iface"]
	s, _ := id.Signal("Changed")

	sig, err := s.ArgSignature()
	if err != nil {
		t.Fatalf("ArgSignature: %v", err)
	}
	if got, want := sig.String(), "i"; got != want {
		t.Errorf("ArgSignature().String() = %q, want %q", got, want)
	}
}
