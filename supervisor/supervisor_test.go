package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/skywatch/telemetryhub/broadcast"
	"github.com/skywatch/telemetryhub/listener"
	"github.com/skywatch/telemetryhub/metrics"
	"github.com/skywatch/telemetryhub/persist"
	"github.com/skywatch/telemetryhub/portscan"
	"github.com/skywatch/telemetryhub/telemetry"
)

type fakeStore struct{}

func (fakeStore) SaveAll(records []telemetry.DroneState) error { return nil }
func (fakeStore) FindByPort(port int) (*telemetry.DroneState, error) { return nil, nil }
func (fakeStore) FindByGcsIP(gcsIP string) ([]telemetry.DroneState, error) { return nil, nil }
func (fakeStore) DeleteByPort(port int) error { return nil }

func buildTestSupervisor() *Supervisor {
	engine := telemetry.NewStateEngine(30 * time.Second)
	ports := portscan.NewPortSet(20000, 20002, 10)
	probe := portscan.NewPortProbe(10*time.Millisecond, 1024)
	registry := listener.NewRegistry(5*time.Second, engine)
	orchestrator := portscan.NewScanOrchestrator(ports, probe, registry)
	hub := broadcast.NewHub(engine)
	persister := persist.NewPersister(engine, fakeStore{})
	reg := metrics.New()

	return New(orchestrator, registry, hub, persister, engine, reg)
}

func TestSupervisor_StartSetsRunning(t *testing.T) {
	s := buildTestSupervisor()
	s.Start(context.Background())
	defer s.Shutdown(2 * time.Second)

	if !s.Running().Load() {
		t.Fatal("expected Running() to be true after Start")
	}
}

func TestSupervisor_ShutdownClearsRunningAndReturns(t *testing.T) {
	s := buildTestSupervisor()
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Shutdown(2 * time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Shutdown did not return within its own deadline budget")
	}

	if s.Running().Load() {
		t.Fatal("expected Running() to be false after Shutdown")
	}
}

func TestSupervisor_ShutdownIsIdempotentSafe(t *testing.T) {
	s := buildTestSupervisor()
	s.Start(context.Background())
	s.Shutdown(time.Second)
	s.Shutdown(time.Second)
	if s.Running().Load() {
		t.Fatal("expected Running() to remain false")
	}
}
