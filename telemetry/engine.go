package telemetry

import (
	"sync"
	"time"

	"github.com/skywatch/telemetryhub/mavcodec"
)

const (
	airborneAltitudeThreshold = 0.5   // metres
	throttleThreshold         = 1050 // PWM microseconds
)

// StateEngine owns every port's DroneState plus the auxiliary tables
// mission/position messages populate independently of an existing state
// record. A single mutex guards all of it: each port's Apply calls are
// already serialized by its one owning Listener goroutine, while Apply
// calls for different ports, and snapshot/evict readers, all contend on
// this one lock.
type StateEngine struct {
	staleThreshold time.Duration

	mu            sync.RWMutex
	cache         map[int]*DroneState
	lastActivity  map[int]time.Time
	lastKnownPos  map[int][2]float64 // lat, lon
	homeLocations map[int]HomeLocation
}

// NewStateEngine constructs an engine; staleThreshold governs both the
// broadcast visibility window and (at 2x) the eviction sweep.
func NewStateEngine(staleThreshold time.Duration) *StateEngine {
	return &StateEngine{
		staleThreshold: staleThreshold,
		cache:          make(map[int]*DroneState),
		lastActivity:   make(map[int]time.Time),
		lastKnownPos:   make(map[int][2]float64),
		homeLocations:  make(map[int]HomeLocation),
	}
}

// Apply updates the port's DroneState for one decoded message. sender is
// the originating IP address, as reported by the listener's socket.
func (e *StateEngine) Apply(port int, sender string, msg mavcodec.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.cache[port]
	if !ok {
		state = &DroneState{Port: port}
		e.cache[port] = state
	}
	state.GcsIP = sender
	state.SystemID = msg.SystemID
	e.lastActivity[port] = time.Now()

	switch msg.Kind {
	case mavcodec.KindGlobalPositionInt:
		e.applyGlobalPosition(state, msg.GlobalPositionInt)
	case mavcodec.KindSysStatus:
		applySysStatus(state, msg.SysStatus)
	case mavcodec.KindVfrHud:
		applyVfrHud(state, msg.VfrHud)
	case mavcodec.KindWind:
		state.WindVel = float64(msg.Wind.Speed)
	case mavcodec.KindGpsRawInt:
		state.GpsHdop = float64(msg.GpsRawInt.Eph)
	case mavcodec.KindAttitude:
		applyAttitude(state, msg.Attitude)
	case mavcodec.KindNavControllerOutput:
		state.WpDist = float64(msg.NavControllerOutput.WpDist)
	case mavcodec.KindServoOutputRaw:
		applyServoOutputs(state, msg.ServoOutputRaw)
	case mavcodec.KindMissionCount:
		state.Waypoints = nil
	case mavcodec.KindMissionItemInt:
		e.applyMissionItem(port, state, msg.MissionItemInt)
	case mavcodec.KindHeartbeat:
		// Liveness only; lastActivity above already covers it.
	}
}

func (e *StateEngine) applyGlobalPosition(state *DroneState, pos *mavcodec.GlobalPositionInt) {
	lat := float64(pos.Lat) / 1e7
	lon := float64(pos.Lon) / 1e7
	alt := float64(pos.RelativeAlt) / 1000.0

	state.Lat = lat
	state.Lon = lon
	state.Alt = alt
	state.Heading = float64(pos.Hdg) / 100.0
	state.GroundSpeed = float64(pos.Vx) / 100.0
	state.VerticalSpeed = float64(pos.Vz) / 100.0

	e.updateDistance(state, lat, lon)
	updateTimeInAir(state, alt)
}

// updateDistance integrates distTraveled from the prior known position and
// recomputes distToHome if a home location is known for this port. Caller
// holds e.mu.
func (e *StateEngine) updateDistance(state *DroneState, lat, lon float64) {
	if last, ok := e.lastKnownPos[state.Port]; ok {
		state.DistTraveled += haversineMetres(last[0], last[1], lat, lon)
	}
	e.lastKnownPos[state.Port] = [2]float64{lat, lon}

	if home, ok := e.homeLocations[state.Port]; ok {
		state.DistToHome = haversineMetres(lat, lon, home.Lat, home.Lon)
	}
}

func updateTimeInAir(state *DroneState, alt float64) {
	now := time.Now().UnixMilli()
	if alt > airborneAltitudeThreshold {
		if !state.Airborne {
			state.Airborne = true
			state.StartTime = now
		}
		state.TimeInAir = (now - state.StartTime) / 1000
	} else if state.Airborne {
		state.TimeInAir = (now - state.StartTime) / 1000
		state.Airborne = false
	}
}

func applySysStatus(state *DroneState, s *mavcodec.SysStatus) {
	state.BatteryVoltage = float64(s.VoltageBattery) / 1000.0
	state.BatteryCurrent = float64(s.CurrentBattery) / 100.0
}

func applyVfrHud(state *DroneState, h *mavcodec.VfrHud) {
	state.Airspeed = float64(h.Airspeed)
	state.GroundSpeed = float64(h.Groundspeed)
	state.VerticalSpeed = float64(h.Climb)
	state.Heading = float64(h.Heading)

	if state.GroundSpeed > 0 {
		state.Tot = round2(state.WpDist / state.GroundSpeed)
		state.Toh = round2(state.DistToHome / state.GroundSpeed)
	} else {
		state.Tot = 0
		state.Toh = 0
	}
}

func applyAttitude(state *DroneState, a *mavcodec.Attitude) {
	const radToDeg = 180.0 / 3.14159265358979323846
	state.Roll = round2(float64(a.Roll) * radToDeg)
	state.Pitch = round2(float64(a.Pitch) * radToDeg)
	state.Yaw = round2(float64(a.Yaw) * radToDeg)
}

func applyServoOutputs(state *DroneState, s *mavcodec.ServoOutputRaw) {
	now := time.Now().UnixMilli()

	ch3 := int(s.Servo3Raw)
	state.Ch3out = ch3
	state.Ch3percent = round2(((float64(ch3) - 1000.0) / 1000.0) * 100)
	state.Ch9out = int(s.Servo9Raw)
	state.Ch10out = int(s.Servo10Raw)
	state.Ch11out = int(s.Servo11Raw)
	state.Ch12out = int(s.Servo12Raw)

	if ch3 > throttleThreshold {
		state.FlightStatus = 1
	} else {
		state.FlightStatus = 0
	}

	if ch3 > throttleThreshold {
		if !state.Flying {
			state.Flying = true
			state.FlightStartTime = now
		}
		state.AutoTime = (now - state.FlightStartTime) / 1000
	} else if state.Flying {
		state.AutoTime = (now - state.FlightStartTime) / 1000
		state.Flying = false
	}

	throttleActive := state.Ch9out > 1000 && state.Ch10out > 1000 &&
		state.Ch11out > 1000 && state.Ch12out > 1000 && ch3 < throttleThreshold

	switch {
	case throttleActive && !state.ThrottleActive:
		state.ThrottleActive = true
		state.ThrottleStartTime = now
	case !throttleActive && state.ThrottleActive:
		state.TotalThrottleTime += now - state.ThrottleStartTime
		state.ThrottleActive = false
	case throttleActive:
		state.TotalThrottleTime += now - state.ThrottleStartTime
		state.ThrottleStartTime = now
	}
}

// applyMissionItem appends a waypoint unless it is the sentinel
// (0,0)-or-zero-altitude item the source drops, and records home on seq 0.
// Caller holds e.mu.
func (e *StateEngine) applyMissionItem(port int, state *DroneState, m *mavcodec.MissionItemInt) {
	lat := float64(m.X) / 1e7
	lon := float64(m.Y) / 1e7
	alt := float64(m.Z)

	if (lat == 0 && lon == 0) || alt == 0 {
		return
	}

	state.Waypoints = append(state.Waypoints, Waypoint{Seq: m.Seq, Lat: lat, Lon: lon, Alt: alt})

	if m.Seq == 0 {
		home := HomeLocation{Lat: lat, Lon: lon}
		e.homeLocations[port] = home
		state.HomeLocation = &home
	}
}

// ActiveSnapshot returns a copy of every DroneState whose port has had
// activity within staleThreshold, suitable for broadcast or persistence.
func (e *StateEngine) ActiveSnapshot() []DroneState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := time.Now()
	out := make([]DroneState, 0, len(e.cache))
	for port, state := range e.cache {
		if now.Sub(e.lastActivity[port]) <= e.staleThreshold {
			out = append(out, *state)
		}
	}
	return out
}

// Evict removes every port whose last activity exceeds 2x staleThreshold.
// Intended to run on a 60s ticker.
func (e *StateEngine) Evict() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := 2 * e.staleThreshold
	now := time.Now()
	for port, last := range e.lastActivity {
		if now.Sub(last) > cutoff {
			delete(e.cache, port)
			delete(e.lastActivity, port)
			delete(e.lastKnownPos, port)
			delete(e.homeLocations, port)
		}
	}
}
