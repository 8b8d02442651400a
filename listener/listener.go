// Package listener owns the per-port UDP read loop: bind, decode, dispatch,
// idle out, release. It never touches which ports get probed — that is
// portscan's job — only what happens once a port is promoted.
package listener

import (
	"context"
	"log"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/skywatch/telemetryhub/mavcodec"
)

// Dispatcher receives every decoded message a Listener produces. Satisfied
// by *telemetry.StateEngine.
type Dispatcher interface {
	Apply(port int, sender string, msg mavcodec.Message)
}

const readIdleCheck = 1 * time.Second

// Listener reads one UDP port for its entire lifetime: bound at start,
// released on any exit path (idle timeout, decode stream closed, or
// cancellation).
type Listener struct {
	port            int
	idleThreshold   time.Duration
	dispatch        Dispatcher
}

// NewListener constructs a listener for port. It does not bind the socket;
// call Run to do that.
func NewListener(port int, idleThreshold time.Duration, dispatch Dispatcher) *Listener {
	return &Listener{port: port, idleThreshold: idleThreshold, dispatch: dispatch}
}

// Run binds the port and blocks until ctx is cancelled, an I/O error
// occurs, or the port goes idle for longer than idleThreshold. The socket
// is always released before Run returns.
func (l *Listener) Run(ctx context.Context) {
	dec, err := mavcodec.NewDecoder(l.port)
	if err != nil {
		log.Printf("listener: port %d: bind failed: %v", l.port, err)
		return
	}
	defer dec.Close()

	ticker := time.NewTicker(readIdleCheck)
	defer ticker.Stop()

	lastMessageAt := time.Now()
	events := dec.Events()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-events:
			if !ok {
				log.Printf("listener: port %d: event stream closed", l.port)
				return
			}
			switch e := evt.(type) {
			case *gomavlib.EventFrame:
				msg, ok := mavcodec.Convert(e)
				if !ok {
					continue
				}
				lastMessageAt = time.Now()
				l.dispatch.Apply(l.port, mavcodec.SenderIP(e.Channel.String()), msg)

			case *gomavlib.EventParseError:
				log.Printf("listener: port %d: decode error: %v", l.port, e.Error)
			}

		case <-ticker.C:
			if time.Since(lastMessageAt) > l.idleThreshold {
				return
			}
		}
	}
}
