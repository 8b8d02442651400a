package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/skywatch/telemetryhub/telemetry"
)

const tickInterval = 100 * time.Millisecond

// SnapshotSource is the subset of telemetry.StateEngine the hub depends on.
type SnapshotSource interface {
	ActiveSnapshot() []telemetry.DroneState
}

// Hub holds every connected Session and fans out a serialized snapshot on a
// fixed-rate tick. It never blocks a producer: StateEngine.Apply only marks
// state dirty implicitly by updating it, and emission is driven solely by
// this timer.
type Hub struct {
	source SnapshotSource

	mu       sync.Mutex
	sessions map[*Session]struct{}

	onEmit func(filter string) // optional hook, e.g. metrics
}

// NewHub wires the hub to whatever produces snapshots (the live
// telemetry.StateEngine in production, a fake in tests).
func NewHub(source SnapshotSource) *Hub {
	return &Hub{source: source, sessions: make(map[*Session]struct{})}
}

// OnEmit installs a callback invoked once per successfully sent frame, with
// "all" or "port" depending on the session's filter kind.
func (h *Hub) OnEmit(fn func(filter string)) {
	h.onEmit = fn
}

// Register adds a session to the fan-out set.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
}

// Unregister removes and closes a session.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	s.Close()
}

// Run blocks, ticking every 100ms until ctx is cancelled. A tick that
// overruns the interval is simply followed by the next available tick
// (fixed rate, skip on overrun — time.Ticker's own behaviour).
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *Hub) tick() {
	snapshot := h.source.ActiveSnapshot()
	if len(snapshot) == 0 {
		return
	}

	now := time.Now()
	var allJSON []byte
	portJSON := make(map[int][]byte)
	portJSONDone := make(map[int]bool)

	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if s.closed.Load() {
			h.Unregister(s)
			continue
		}

		var data []byte
		filterLabel := "all"
		if s.filterPort == nil {
			if allJSON == nil {
				allJSON = marshalSnapshot(snapshot, now)
			}
			data = allJSON
		} else {
			filterLabel = "port"
			port := *s.filterPort
			if !portJSONDone[port] {
				portJSON[port] = marshalPortFiltered(snapshot, port, now)
				portJSONDone[port] = true
			}
			data = portJSON[port]
			if data == nil {
				continue // no drone on this port this tick
			}
		}

		if err := s.send(data); err != nil {
			log.Printf("broadcast: session %s: send failed: %v", s.id, err)
			h.Unregister(s)
			continue
		}
		if h.onEmit != nil {
			h.onEmit(filterLabel)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		s.Close()
	}
	h.sessions = make(map[*Session]struct{})
}

func marshalSnapshot(snapshot []telemetry.DroneState, now time.Time) []byte {
	payload := snapshotPayload{Drones: make([]droneDTO, 0, len(snapshot))}
	for _, s := range snapshot {
		payload.Drones = append(payload.Drones, toDTO(s, now))
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("broadcast: serialize snapshot: %v", err)
		return []byte(`{"drones":[]}`)
	}
	return data
}

func marshalPortFiltered(snapshot []telemetry.DroneState, port int, now time.Time) []byte {
	for _, s := range snapshot {
		if s.Port == port {
			data, err := json.Marshal(snapshotPayload{Drones: []droneDTO{toDTO(s, now)}})
			if err != nil {
				log.Printf("broadcast: serialize port %d: %v", port, err)
				return nil
			}
			return data
		}
	}
	return nil
}
