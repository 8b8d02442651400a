package telemetry

import (
	"testing"
	"time"

	"github.com/skywatch/telemetryhub/mavcodec"
)

func heartbeat(sysID byte) mavcodec.Message {
	return mavcodec.Message{Kind: mavcodec.KindHeartbeat, SystemID: sysID}
}

func globalPosition(lat, lon int32, relAlt int32) mavcodec.Message {
	return mavcodec.Message{
		Kind: mavcodec.KindGlobalPositionInt,
		GlobalPositionInt: &mavcodec.GlobalPositionInt{
			Lat: lat, Lon: lon, RelativeAlt: relAlt,
		},
	}
}

func TestApply_CreatesStateWithSenderAndSystemID(t *testing.T) {
	e := NewStateEngine(30 * time.Second)
	e.Apply(14551, "10.0.0.5", heartbeat(1))

	snap := e.ActiveSnapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 active drone, got %d", len(snap))
	}
	if snap[0].GcsIP != "10.0.0.5" || snap[0].Port != 14551 || snap[0].SystemID != 1 {
		t.Fatalf("unexpected state: %+v", snap[0])
	}
}

func TestApply_IntegratedDistance(t *testing.T) {
	e := NewStateEngine(30 * time.Second)
	e.Apply(14551, "10.0.0.5", globalPosition(0, 0, 1000))
	e.Apply(14551, "10.0.0.5", globalPosition(0, 10000, 1000)) // lon=0.001 deg

	snap := e.ActiveSnapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 state, got %d", len(snap))
	}
	got := snap[0].DistTraveled
	want := 111.32
	if diff := got - want; diff > 0.5 || diff < -0.5 {
		t.Fatalf("distTraveled = %.4f, want ~%.2f", got, want)
	}
}

func TestApply_MissionItemDoesNotDedupe(t *testing.T) {
	e := NewStateEngine(30 * time.Second)
	item := &mavcodec.MissionItemInt{Seq: 0, X: 10000000, Y: 20000000, Z: 50}
	e.Apply(14551, "10.0.0.5", mavcodec.Message{Kind: mavcodec.KindMissionItemInt, MissionItemInt: item})
	e.Apply(14551, "10.0.0.5", mavcodec.Message{Kind: mavcodec.KindMissionItemInt, MissionItemInt: item})

	snap := e.ActiveSnapshot()
	if len(snap[0].Waypoints) != 2 {
		t.Fatalf("expected 2 waypoint entries (no dedupe), got %d", len(snap[0].Waypoints))
	}
	if snap[0].HomeLocation == nil {
		t.Fatal("expected home location to be set from seq=0 item")
	}
}

func TestApply_MissionItemDropsZeroSentinel(t *testing.T) {
	e := NewStateEngine(30 * time.Second)
	item := &mavcodec.MissionItemInt{Seq: 1, X: 0, Y: 0, Z: 50}
	e.Apply(14551, "10.0.0.5", mavcodec.Message{Kind: mavcodec.KindMissionItemInt, MissionItemInt: item})

	snap := e.ActiveSnapshot()
	if len(snap[0].Waypoints) != 0 {
		t.Fatalf("expected the (0,0) sentinel to be dropped, got %d entries", len(snap[0].Waypoints))
	}
}

func TestApply_MissionCountClearsWaypoints(t *testing.T) {
	e := NewStateEngine(30 * time.Second)
	item := &mavcodec.MissionItemInt{Seq: 0, X: 10000000, Y: 20000000, Z: 50}
	e.Apply(14551, "10.0.0.5", mavcodec.Message{Kind: mavcodec.KindMissionItemInt, MissionItemInt: item})
	e.Apply(14551, "10.0.0.5", mavcodec.Message{Kind: mavcodec.KindMissionCount, MissionCount: &mavcodec.MissionCount{Count: 3}})

	snap := e.ActiveSnapshot()
	if len(snap[0].Waypoints) != 0 {
		t.Fatalf("expected waypoints cleared on MISSION_COUNT, got %d", len(snap[0].Waypoints))
	}
}

func TestApply_ThrottleTimelineMonotonic(t *testing.T) {
	e := NewStateEngine(30 * time.Second)
	servo := func(ch3, ch9 uint16) *mavcodec.ServoOutputRaw {
		return &mavcodec.ServoOutputRaw{Servo3Raw: ch3, Servo9Raw: ch9, Servo10Raw: 1200, Servo11Raw: 1200, Servo12Raw: 1200}
	}

	// Rising edge: throttle active (ch3 below threshold, ch9-12 above 1000).
	e.Apply(14551, "10.0.0.5", mavcodec.Message{Kind: mavcodec.KindServoOutputRaw, ServoOutputRaw: servo(1000, 1200)})
	time.Sleep(15 * time.Millisecond)
	e.Apply(14551, "10.0.0.5", mavcodec.Message{Kind: mavcodec.KindServoOutputRaw, ServoOutputRaw: servo(1000, 1200)})

	snap := e.ActiveSnapshot()
	if !snap[0].ThrottleActive {
		t.Fatal("expected throttleActive after two active samples")
	}
	if snap[0].TotalThrottleTime <= 0 {
		t.Fatalf("expected totalThrottleTime to have accumulated, got %d", snap[0].TotalThrottleTime)
	}
	prior := snap[0].TotalThrottleTime

	time.Sleep(15 * time.Millisecond)
	// Falling edge: ch9 drops below 1000.
	e.Apply(14551, "10.0.0.5", mavcodec.Message{Kind: mavcodec.KindServoOutputRaw, ServoOutputRaw: servo(1000, 800)})

	snap = e.ActiveSnapshot()
	if snap[0].ThrottleActive {
		t.Fatal("expected throttleActive to clear on falling edge")
	}
	if snap[0].TotalThrottleTime < prior {
		t.Fatal("totalThrottleTime must not decrease while monotonic")
	}
}

func TestActiveSnapshot_ExcludesStale(t *testing.T) {
	e := NewStateEngine(10 * time.Millisecond)
	e.Apply(14551, "10.0.0.5", heartbeat(1))
	time.Sleep(20 * time.Millisecond)

	snap := e.ActiveSnapshot()
	if len(snap) != 0 {
		t.Fatalf("expected stale state excluded, got %d", len(snap))
	}
}

func TestEvict_RemovesOldEntries(t *testing.T) {
	e := NewStateEngine(5 * time.Millisecond)
	e.Apply(14551, "10.0.0.5", heartbeat(1))
	time.Sleep(15 * time.Millisecond) // > 2x staleThreshold

	e.Evict()

	e.mu.RLock()
	_, ok := e.cache[14551]
	e.mu.RUnlock()
	if ok {
		t.Fatal("expected evicted port to be removed from cache")
	}
}
