// Package persist batches active drone state and flushes it to a durable
// store at a fixed cadence, tolerating store failures without losing
// recent updates. Changed records are not tracked: every flush writes every
// active record, whether or not it changed since the last flush.
package persist

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/skywatch/telemetryhub/telemetry"
)

const flushInterval = 5 * time.Second

// Store is the external durability contract. store.SQLiteStore implements
// it in production.
type Store interface {
	SaveAll(records []telemetry.DroneState) error
	FindByPort(port int) (*telemetry.DroneState, error)
	FindByGcsIP(gcsIP string) ([]telemetry.DroneState, error)
	DeleteByPort(port int) error
}

// DirtySource supplies the records a flush should consider. In production
// this is telemetry.StateEngine.ActiveSnapshot, which already excludes
// stale ports.
type DirtySource interface {
	ActiveSnapshot() []telemetry.DroneState
}

// Persister flushes the full active snapshot to Store every 5s. The store
// is best-effort: a failed batch is retried on the next tick rather than
// blocking ingestion or broadcast.
type Persister struct {
	source DirtySource
	store  Store

	mu      sync.Mutex
	pending map[int]telemetry.DroneState // retained on failure, keyed by port

	onFlush func(outcome string, size int) // optional hook, e.g. metrics
}

// NewPersister wires a snapshot source to a store.
func NewPersister(source DirtySource, store Store) *Persister {
	return &Persister{source: source, store: store, pending: make(map[int]telemetry.DroneState)}
}

// OnFlush installs a callback invoked once per flush attempt that produced
// a non-empty batch, with outcome "ok" or "failed".
func (p *Persister) OnFlush(fn func(outcome string, size int)) {
	p.onFlush = fn
}

// Run blocks, flushing every 5s until ctx is cancelled, then performs one
// final flush before returning.
func (p *Persister) Run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Persister) flush() {
	byPort := make(map[int]telemetry.DroneState)

	p.mu.Lock()
	for port, rec := range p.pending {
		byPort[port] = rec
	}
	p.pending = make(map[int]telemetry.DroneState)
	p.mu.Unlock()

	// Fresh snapshot state wins over a stale retained record for the same
	// port.
	for _, rec := range p.source.ActiveSnapshot() {
		byPort[rec.Port] = rec
	}

	if len(byPort) == 0 {
		return
	}
	batch := make([]telemetry.DroneState, 0, len(byPort))
	for _, rec := range byPort {
		batch = append(batch, rec)
	}

	if err := p.store.SaveAll(batch); err != nil {
		log.Printf("persist: batch of %d failed, retaining for retry: %v", len(batch), err)
		p.mu.Lock()
		for _, rec := range batch {
			p.pending[rec.Port] = rec
		}
		p.mu.Unlock()
		if p.onFlush != nil {
			p.onFlush("failed", len(batch))
		}
		return
	}
	if p.onFlush != nil {
		p.onFlush("ok", len(batch))
	}
}
