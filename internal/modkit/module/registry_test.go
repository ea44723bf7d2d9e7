package module

import (
	"sync"
	"testing"
)

type ingestPorts struct {
	Dataset string
	Retries int
}

func TestRegistryLookup(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register("ingest", ingestPorts{Dataset: "rki-quoten", Retries: 3})

	got, ok := PortsAs[ingestPorts]("ingest")
	if !ok || got.Dataset != "rki-quoten" {
		t.Fatalf("PortsAs = %+v, %v", got, ok)
	}
	if _, ok := PortsAs[ingestPorts]("render"); ok {
		t.Fatal("unregistered name reported ok")
	}
	if n, ok := PortsAs[int]("ingest"); ok || n != 0 {
		t.Fatalf("type mismatch reported ok with %d", n)
	}

	Register("ingest", ingestPorts{Dataset: "pavel-series"})
	if got, _ := PortsAs[ingestPorts]("ingest"); got.Dataset != "pavel-series" {
		t.Fatalf("re-registration not applied: %+v", got)
	}

	Reset()
	if _, ok := PortsAs[ingestPorts]("ingest"); ok {
		t.Fatal("Reset kept registrations")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Register("ingest", ingestPorts{Retries: i})
		}()
		go func() {
			defer wg.Done()
			_, _ = PortsAs[ingestPorts]("ingest")
		}()
	}
	wg.Wait()
	if _, ok := PortsAs[ingestPorts]("ingest"); !ok {
		t.Fatal("registration lost")
	}
}
