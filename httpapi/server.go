// Package httpapi wires the telemetry WebSocket endpoints, the Prometheus
// exporter, a liveness probe, and a small admin surface onto a plain
// net/http.ServeMux.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skywatch/telemetryhub/broadcast"
	"github.com/skywatch/telemetryhub/portscan"
)

// ListenerStarter is the subset of listener.Registry the admin route
// depends on. Declared locally so httpapi carries no dependency on the
// listener package's internals beyond this contract.
type ListenerStarter interface {
	Active() []int
	Start(port int) bool
}

// Prober is the subset of portscan.PortProbe the admin route depends on.
type Prober interface {
	Probe(port int) portscan.Result
}

var sessionSeq atomic.Uint64

// Server owns the mux and every collaborator it dispatches to.
type Server struct {
	hub       *broadcast.Hub
	listeners ListenerStarter
	prober    Prober
	running   *atomic.Bool

	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New builds the router. running is polled by /healthz; the supervisor
// flips it once its schedulers are up and clears it on shutdown.
func New(hub *broadcast.Hub, listeners ListenerStarter, prober Prober, running *atomic.Bool) *Server {
	s := &Server{
		hub:       hub,
		listeners: listeners,
		prober:    prober,
		running:   running,
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/telemetry", s.handleTelemetryAll)
	s.mux.HandleFunc("/telemetry/", s.handleTelemetryPort)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/admin/listeners/", s.handleAdminListener)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleTelemetryAll(w http.ResponseWriter, r *http.Request) {
	s.upgradeAndRegister(w, r, nil)
}

func (s *Server) handleTelemetryPort(w http.ResponseWriter, r *http.Request) {
	portStr := strings.TrimPrefix(r.URL.Path, "/telemetry/")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		writeError(w, ErrTelemetry)
		return
	}
	s.upgradeAndRegister(w, r, &port)
}

func (s *Server) upgradeAndRegister(w http.ResponseWriter, r *http.Request, filterPort *int) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("httpapi: websocket upgrade failed: %v", err)
		return
	}
	id := strconv.FormatUint(sessionSeq.Add(1), 10)
	s.hub.Register(broadcast.NewSession(id, conn, filterPort))
}

// handleHealthz reports 200 while the supervisor's schedulers are running,
// 503 otherwise (e.g. during startup or graceful shutdown).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.running.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

type adminListenerResponse struct {
	Port    int  `json:"port"`
	Started bool `json:"started"`
}

// handleAdminListener lets an operator force port discovery ahead of the
// next scan tick. A port our registry already listens on is reported with
// started=false and not probed. Otherwise it probes the port directly: a
// live GCS promotes a listener immediately; a port already bound outside
// our registry maps to the PortAlreadyInUse error surface.
func (s *Server) handleAdminListener(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	portStr := strings.TrimPrefix(r.URL.Path, "/admin/listeners/")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		writeError(w, ErrTelemetry)
		return
	}

	for _, active := range s.listeners.Active() {
		if active == port {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(adminListenerResponse{Port: port, Started: false})
			return
		}
	}

	result := s.prober.Probe(port)
	switch result.Kind {
	case portscan.InUse:
		writeError(w, ErrPortAlreadyInUse)
		return
	case portscan.ProbeError:
		writeError(w, ErrTelemetry)
		return
	}

	started := s.listeners.Start(port)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(adminListenerResponse{Port: port, Started: started})
}
