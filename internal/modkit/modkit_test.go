package modkit

import "testing"

type stub struct {
	name  string
	ports any
}

func (s *stub) Ports() any   { return s.ports }
func (s *stub) Name() string { return s.name }

var _ Module = (*stub)(nil)

func newStub(_ Deps, opts ...Option) Module {
	built := Build(opts...)
	return &stub{name: built.Name, ports: built.Ports}
}

func TestBuild_AppliesOptions(t *testing.T) {
	t.Parallel()

	m := newStub(Deps{}, WithName("render"), WithPorts("ok"))
	if m.Name() != "render" {
		t.Fatalf("Name = %q, want render", m.Name())
	}
	if p := m.Ports(); p != "ok" {
		t.Fatalf("Ports = %v, want ok", p)
	}
}

func TestBuild_Defaults(t *testing.T) {
	t.Parallel()
	b := Build()
	if b.Name != "" || b.Ports != nil {
		t.Fatalf("default Built = %+v", b)
	}
}

func TestWithPorts_LastWins(t *testing.T) {
	t.Parallel()
	type ports struct{ N int }
	b := Build(WithPorts(ports{N: 1}), WithPorts(ports{N: 2}))
	if got, ok := b.Ports.(ports); !ok || got.N != 2 {
		t.Fatalf("Ports = %#v", b.Ports)
	}
}
