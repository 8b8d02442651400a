// Package supervisor owns every long-lived task handle the hub starts and
// gives them an explicit, ordered start and shutdown sequence, rather than
// leaving them as ambient process-wide singletons (spec.md §9, "Global
// scheduler state").
package supervisor

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skywatch/telemetryhub/broadcast"
	"github.com/skywatch/telemetryhub/listener"
	"github.com/skywatch/telemetryhub/metrics"
	"github.com/skywatch/telemetryhub/persist"
	"github.com/skywatch/telemetryhub/portscan"
	"github.com/skywatch/telemetryhub/telemetry"
)

const (
	evictInterval         = 60 * time.Second
	metricsRefreshInterval = 5 * time.Second
	listenerShutdownWait  = 5 * time.Second
)

// Supervisor wires the orchestrator, listener registry, broadcast hub, and
// persister into one lifecycle, plus the two background sweeps (state
// eviction and metrics refresh) that spec.md attributes to no single
// component.
type Supervisor struct {
	orchestrator *portscan.ScanOrchestrator
	registry     *listener.Registry
	hub          *broadcast.Hub
	persister    *persist.Persister
	engine       *telemetry.StateEngine
	reg          *metrics.Registry

	running atomic.Bool

	cancelFront context.CancelFunc // orchestrator + health check + evictor + metrics refresh
	cancelHub   context.CancelFunc
	persisterDone chan struct{}
	cancelPersister context.CancelFunc

	wg sync.WaitGroup
}

// New wires every collaborator. Each is already fully constructed by the
// caller (cmd/telemetryhubd); Supervisor only manages their Run/Shutdown
// lifecycle.
func New(
	orchestrator *portscan.ScanOrchestrator,
	registry *listener.Registry,
	hub *broadcast.Hub,
	persister *persist.Persister,
	engine *telemetry.StateEngine,
	reg *metrics.Registry,
) *Supervisor {
	return &Supervisor{
		orchestrator: orchestrator,
		registry:     registry,
		hub:          hub,
		persister:    persister,
		engine:       engine,
		reg:          reg,
	}
}

// Running reports whether Start has completed and Shutdown has not yet
// begun. httpapi's /healthz polls this.
func (s *Supervisor) Running() *atomic.Bool {
	return &s.running
}

// Start launches every scheduler. It returns once all goroutines are
// spawned; it does not block for the system's lifetime.
func (s *Supervisor) Start(ctx context.Context) {
	frontCtx, cancelFront := context.WithCancel(ctx)
	s.cancelFront = cancelFront
	s.launch(frontCtx, s.orchestrator.Run)
	s.launch(frontCtx, s.registry.RunHealthCheck)
	s.launch(frontCtx, s.runEvictor)
	s.launch(frontCtx, s.runMetricsRefresh)

	hubCtx, cancelHub := context.WithCancel(ctx)
	s.cancelHub = cancelHub
	s.launch(hubCtx, s.hub.Run)

	persisterCtx, cancelPersister := context.WithCancel(ctx)
	s.cancelPersister = cancelPersister
	s.persisterDone = make(chan struct{})
	go func() {
		defer close(s.persisterDone)
		s.persister.Run(persisterCtx)
	}()

	s.running.Store(true)
}

func (s *Supervisor) launch(ctx context.Context, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

func (s *Supervisor) runEvictor(ctx context.Context) {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.engine.Evict()
		}
	}
}

func (s *Supervisor) runMetricsRefresh(ctx context.Context) {
	ticker := time.NewTicker(metricsRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reg.ActiveListeners.Set(float64(len(s.registry.Active())))
			s.reg.ActiveDrones.Set(float64(len(s.engine.ActiveSnapshot())))
		}
	}
}

// Shutdown cancels every scheduler in the order spec.md §5 mandates:
// ScanOrchestrator -> ListenerRegistry (await up to 5s) -> BroadcastHub ->
// Persister (final flush, then stop).
func (s *Supervisor) Shutdown(deadline time.Duration) {
	s.running.Store(false)

	if s.cancelFront != nil {
		s.cancelFront() // stops the scan ticker, health check, evictor, metrics refresh
	}

	s.registry.Shutdown(listenerShutdownWait)

	if s.cancelHub != nil {
		s.cancelHub() // hub.Run closes every session on ctx.Done
	}

	if s.cancelPersister != nil {
		s.cancelPersister() // persister.Run performs a final flush on ctx.Done
	}
	select {
	case <-s.persisterDone:
	case <-time.After(deadline):
		log.Printf("supervisor: persister did not finish its final flush within %s", deadline)
	}

	s.wg.Wait()
}
