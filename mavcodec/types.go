// Package mavcodec frames and decodes MAVLink v2 traffic for one UDP port,
// wrapping github.com/bluenviron/gomavlib/v3 and exposing the handled
// message kinds as a small tagged union so the rest of the codebase never
// imports the dialect package directly.
package mavcodec

// Kind discriminates the decoded payload carried by a Message. Only the
// kinds the telemetry state engine understands are named; anything else
// decodes to KindUnknown and is dropped by the caller.
type Kind int

const (
	KindUnknown Kind = iota
	KindHeartbeat
	KindGlobalPositionInt
	KindSysStatus
	KindVfrHud
	KindWind
	KindGpsRawInt
	KindAttitude
	KindNavControllerOutput
	KindServoOutputRaw
	KindMissionCount
	KindMissionItemInt
)

// Message is the tagged union dispatched to telemetry.StateEngine.Apply.
// For every Kind other than KindUnknown and KindHeartbeat, exactly the
// pointer field matching Kind is non-nil; heartbeats carry no payload.
type Message struct {
	Kind     Kind
	SystemID byte

	GlobalPositionInt  *GlobalPositionInt
	SysStatus          *SysStatus
	VfrHud             *VfrHud
	Wind               *Wind
	GpsRawInt          *GpsRawInt
	Attitude           *Attitude
	NavControllerOutput *NavControllerOutput
	ServoOutputRaw     *ServoOutputRaw
	MissionCount       *MissionCount
	MissionItemInt     *MissionItemInt
}

// GlobalPositionInt mirrors MAVLink's GLOBAL_POSITION_INT payload fields
// used by the state engine (raw units, unconverted).
type GlobalPositionInt struct {
	Lat         int32 // degrees * 1e7
	Lon         int32 // degrees * 1e7
	RelativeAlt int32 // millimetres above home
	Hdg         uint16 // centi-degrees
	Vx          int16  // cm/s
	Vz          int16  // cm/s
}

// SysStatus mirrors the SYS_STATUS fields used here.
type SysStatus struct {
	VoltageBattery uint16 // millivolts
	CurrentBattery int16  // centi-amps
}

// VfrHud mirrors the VFR_HUD fields used here.
type VfrHud struct {
	Airspeed    float32 // m/s
	Groundspeed float32 // m/s
	Climb       float32 // m/s
	Heading     int16   // degrees
}

// Wind mirrors the (ArduPilot-dialect) WIND message.
type Wind struct {
	Speed float32 // m/s
}

// GpsRawInt mirrors the GPS_RAW_INT fields used here.
type GpsRawInt struct {
	Eph uint16 // HDOP, cm
}

// Attitude mirrors the ATTITUDE fields used here (radians, as on the wire).
type Attitude struct {
	Roll, Pitch, Yaw float32
}

// NavControllerOutput mirrors the NAV_CONTROLLER_OUTPUT field used here.
type NavControllerOutput struct {
	WpDist uint16 // metres
}

// ServoOutputRaw mirrors the SERVO_OUTPUT_RAW channels used here.
type ServoOutputRaw struct {
	Servo3Raw, Servo9Raw, Servo10Raw, Servo11Raw, Servo12Raw uint16 // microseconds
}

// MissionCount mirrors the MISSION_COUNT field used here.
type MissionCount struct {
	Count uint16
}

// MissionItemInt mirrors the MISSION_ITEM_INT fields used here.
type MissionItemInt struct {
	Seq uint16
	X   int32   // lat * 1e7
	Y   int32   // lon * 1e7
	Z   float32 // altitude, metres
}
