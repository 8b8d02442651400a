package store

import (
	"encoding/json"

	"github.com/skywatch/telemetryhub/telemetry"
)

const selectColumns = `port, gcs_ip, system_id, lat, lon, alt, dist_traveled, dist_to_home,
	wp_dist, heading, ground_speed, vertical_speed, airspeed, wind_vel,
	roll, pitch, yaw, gps_hdop, battery_voltage, battery_current,
	ch3out, ch9out, ch10out, ch11out, ch12out, ch3percent, tot, toh,
	time_in_air, flight_status, waypoints_json, home_json`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRow(row scanner) (*telemetry.DroneState, error) {
	return scanRows(row)
}

func scanRows(row scanner) (*telemetry.DroneState, error) {
	var rec telemetry.DroneState
	var waypointsJSON, homeJSON string

	err := row.Scan(
		&rec.Port, &rec.GcsIP, &rec.SystemID, &rec.Lat, &rec.Lon, &rec.Alt,
		&rec.DistTraveled, &rec.DistToHome, &rec.WpDist, &rec.Heading,
		&rec.GroundSpeed, &rec.VerticalSpeed, &rec.Airspeed, &rec.WindVel,
		&rec.Roll, &rec.Pitch, &rec.Yaw, &rec.GpsHdop, &rec.BatteryVoltage,
		&rec.BatteryCurrent, &rec.Ch3out, &rec.Ch9out, &rec.Ch10out, &rec.Ch11out,
		&rec.Ch12out, &rec.Ch3percent, &rec.Tot, &rec.Toh, &rec.TimeInAir,
		&rec.FlightStatus, &waypointsJSON, &homeJSON,
	)
	if err != nil {
		return nil, err
	}

	if waypointsJSON != "" {
		if err := json.Unmarshal([]byte(waypointsJSON), &rec.Waypoints); err != nil {
			return nil, err
		}
	}
	if homeJSON != "" {
		var home telemetry.HomeLocation
		if err := json.Unmarshal([]byte(homeJSON), &home); err != nil {
			return nil, err
		}
		rec.HomeLocation = &home
	}

	return &rec, nil
}
