package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/skywatch/telemetryhub/telemetry"
)

type fakeSource struct {
	snapshot []telemetry.DroneState
}

func (f *fakeSource) ActiveSnapshot() []telemetry.DroneState {
	return f.snapshot
}

func dialSession(t *testing.T, filterPort *int) (*Session, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var serverConn *websocket.Conn
	ready := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverConn = c
		close(ready)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + srv.URL[len("http"):]
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	<-ready
	return NewSession("test", serverConn, filterPort), clientConn
}

func TestHub_BroadcastsToAllDronesSession(t *testing.T) {
	source := &fakeSource{snapshot: []telemetry.DroneState{{Port: 14551, GcsIP: "10.0.0.5"}}}
	hub := NewHub(source)

	session, client := dialSession(t, nil)
	hub.Register(session)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("expected a broadcast message, got error: %v", err)
	}

	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}
	if len(payload.Drones) != 1 || payload.Drones[0].Port != 14551 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHub_PortFilterOnlySeesMatchingDrone(t *testing.T) {
	source := &fakeSource{snapshot: []telemetry.DroneState{
		{Port: 14551, GcsIP: "10.0.0.5"},
		{Port: 14552, GcsIP: "10.0.0.6"},
	}}
	hub := NewHub(source)

	filter := 14552
	session, client := dialSession(t, &filter)
	hub.Register(session)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("expected a broadcast message, got error: %v", err)
	}

	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}
	if len(payload.Drones) != 1 || payload.Drones[0].Port != 14552 {
		t.Fatalf("expected only port 14552, got %+v", payload)
	}
}

func TestHub_EmptySnapshotEmitsNothing(t *testing.T) {
	source := &fakeSource{}
	hub := NewHub(source)

	session, client := dialSession(t, nil)
	hub.Register(session)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := client.ReadMessage()
	if err == nil {
		t.Fatal("expected a read timeout, got a message for an empty snapshot")
	}
}
