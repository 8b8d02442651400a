// Package telemetry maintains per-port derived drone state from decoded
// MAVLink messages and exposes a read-only snapshot for broadcast.
package telemetry

// Waypoint is one ordered mission point.
type Waypoint struct {
	Seq uint16
	Lat float64
	Lon float64
	Alt float64
}

// HomeLocation is the waypoint seq=0 position, once known.
type HomeLocation struct {
	Lat float64
	Lon float64
}

// DroneState is the per-port derived record, one per active GCS source.
type DroneState struct {
	Port     int
	GcsIP    string
	SystemID byte

	Lat, Lon                         float64
	Alt                               float64
	Heading, TargetHeading, PrevHeading float64

	GroundSpeed, VerticalSpeed, Airspeed, WindVel float64
	Roll, Pitch, Yaw                              float64

	DistTraveled, DistToHome, WpDist float64
	Tot, Toh                         float64

	GpsHdop float64

	BatteryVoltage, BatteryCurrent float64

	Ch3out, Ch9out, Ch10out, Ch11out, Ch12out int
	Ch3percent                                 float64

	Airborne  bool
	StartTime int64 // unix millis
	TimeInAir int64 // seconds

	Flying         bool
	FlightStartTime int64
	AutoTime        int64

	ThrottleActive   bool
	ThrottleStartTime int64
	TotalThrottleTime int64 // millis
	FlightStatus      int

	HomeLocation *HomeLocation
	Waypoints    []Waypoint
}

// waypointsCount exists on the wire snapshot, not the struct: callers derive
// it as len(Waypoints).
func (d *DroneState) WaypointsCount() int {
	return len(d.Waypoints)
}
