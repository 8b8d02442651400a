package broadcast

import (
	"time"

	"github.com/skywatch/telemetryhub/telemetry"
)

// isoLocalDateTime mirrors Jackson's default serialization of a Java
// LocalDateTime (ISO_LOCAL_DATE_TIME, no zone offset, second precision).
const isoLocalDateTime = "2006-01-02T15:04:05"

// droneDTO is the wire shape served to WebSocket subscribers: a flattened,
// JSON-friendly view of telemetry.DroneState.
type droneDTO struct {
	Port           int              `json:"port"`
	GcsIP          string           `json:"gcsIp"`
	SystemID       byte             `json:"systemId"`
	Lat            float64          `json:"lat"`
	Lon            float64          `json:"lon"`
	Alt            float64          `json:"alt"`
	DistTraveled   float64          `json:"distTraveled"`
	WpDist         float64          `json:"wpDist"`
	Heading        float64          `json:"heading"`
	TargetHeading  float64          `json:"targetHeading"`
	DistToHome     float64          `json:"distToHome"`
	VerticalSpeed  float64          `json:"verticalSpeed"`
	GroundSpeed    float64          `json:"groundSpeed"`
	WindVel        float64          `json:"windVel"`
	Airspeed       float64          `json:"airspeed"`
	GpsHdop        float64          `json:"gpsHdop"`
	Roll           float64          `json:"roll"`
	Pitch          float64          `json:"pitch"`
	Yaw            float64          `json:"yaw"`
	Ch3percent     float64          `json:"ch3percent"`
	Ch3out         int              `json:"ch3out"`
	Tot            float64          `json:"tot"`
	Toh            float64          `json:"toh"`
	TimeInAir      int64            `json:"timeInAir"`
	BatteryVoltage float64          `json:"batteryVoltage"`
	BatteryCurrent float64          `json:"batteryCurrent"`
	WaypointsCount int              `json:"waypointsCount"`
	FlightStatus   int              `json:"flightStatus"`
	ThrottleActive bool             `json:"throttleActive"`
	Flying         bool             `json:"flying"`
	HomeLocation   *homeLocationDTO `json:"homeLocation,omitempty"`
	Waypoints      []waypointDTO    `json:"waypoints"`
	Timestamp      string           `json:"timestamp"`
}

type homeLocationDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type waypointDTO struct {
	Seq uint16  `json:"seq"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

type snapshotPayload struct {
	Drones []droneDTO `json:"drones"`
}

// toDTO flattens a DroneState into its wire shape. now is the tick's
// emission time, stamped identically onto every drone serialized within
// that tick.
func toDTO(s telemetry.DroneState, now time.Time) droneDTO {
	d := droneDTO{
		Port:           s.Port,
		GcsIP:          s.GcsIP,
		SystemID:       s.SystemID,
		Lat:            s.Lat,
		Lon:            s.Lon,
		Alt:            s.Alt,
		DistTraveled:   s.DistTraveled,
		WpDist:         s.WpDist,
		Heading:        s.Heading,
		TargetHeading:  s.TargetHeading,
		DistToHome:     s.DistToHome,
		VerticalSpeed:  s.VerticalSpeed,
		GroundSpeed:    s.GroundSpeed,
		WindVel:        s.WindVel,
		Airspeed:       s.Airspeed,
		GpsHdop:        s.GpsHdop,
		Roll:           s.Roll,
		Pitch:          s.Pitch,
		Yaw:            s.Yaw,
		Ch3percent:     s.Ch3percent,
		Ch3out:         s.Ch3out,
		Tot:            s.Tot,
		Toh:            s.Toh,
		TimeInAir:      s.TimeInAir,
		BatteryVoltage: s.BatteryVoltage,
		BatteryCurrent: s.BatteryCurrent,
		WaypointsCount: s.WaypointsCount(),
		FlightStatus:   s.FlightStatus,
		ThrottleActive: s.ThrottleActive,
		Flying:         s.Flying,
		Waypoints:      make([]waypointDTO, 0, len(s.Waypoints)),
		Timestamp:      now.Format(isoLocalDateTime),
	}
	for _, wp := range s.Waypoints {
		d.Waypoints = append(d.Waypoints, waypointDTO{Seq: wp.Seq, Lat: wp.Lat, Lon: wp.Lon, Alt: wp.Alt})
	}
	if s.HomeLocation != nil {
		d.HomeLocation = &homeLocationDTO{Lat: s.HomeLocation.Lat, Lon: s.HomeLocation.Lon}
	}
	return d
}
