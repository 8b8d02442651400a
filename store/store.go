// Package store provides the sqlite-backed persist.Store implementation:
// one row per port, upserted in a single transaction per batch.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/skywatch/telemetryhub/telemetry"
)

// SQLiteStore implements persist.Store over database/sql + go-sqlite3.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates the parent directory if needed, opens the database at path,
// and ensures the schema exists.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the drone_state table if it does not already exist,
// the same idempotent check-then-create shape the teacher's data_analysis
// package uses for its own schema.
func (s *SQLiteStore) ensureSchema() error {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='drone_state'",
	).Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	log.Println("store: initializing drone_state schema")
	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS drone_state (
			port            INTEGER PRIMARY KEY,
			gcs_ip          TEXT,
			system_id       INTEGER,
			lat             REAL,
			lon             REAL,
			alt             REAL,
			dist_traveled   REAL,
			dist_to_home    REAL,
			wp_dist         REAL,
			heading         REAL,
			ground_speed    REAL,
			vertical_speed  REAL,
			airspeed        REAL,
			wind_vel        REAL,
			roll            REAL,
			pitch           REAL,
			yaw             REAL,
			gps_hdop        REAL,
			battery_voltage REAL,
			battery_current REAL,
			ch3out          INTEGER,
			ch9out          INTEGER,
			ch10out         INTEGER,
			ch11out         INTEGER,
			ch12out         INTEGER,
			ch3percent      REAL,
			tot             REAL,
			toh             REAL,
			time_in_air     INTEGER,
			flight_status   INTEGER,
			waypoints_json  TEXT,
			home_json       TEXT,
			updated_at      INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// SaveAll upserts every record in a single transaction. The transaction is
// rolled back and an error returned if any row fails to write.
func (s *SQLiteStore) SaveAll(records []telemetry.DroneState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store: prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, rec := range records {
		if err := execUpsert(stmt, rec, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: save port %d: %w", rec.Port, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Save upserts a single record.
func (s *SQLiteStore) Save(rec telemetry.DroneState) error {
	return s.SaveAll([]telemetry.DroneState{rec})
}

const upsertSQL = `
	INSERT INTO drone_state (
		port, gcs_ip, system_id, lat, lon, alt, dist_traveled, dist_to_home,
		wp_dist, heading, ground_speed, vertical_speed, airspeed, wind_vel,
		roll, pitch, yaw, gps_hdop, battery_voltage, battery_current,
		ch3out, ch9out, ch10out, ch11out, ch12out, ch3percent, tot, toh,
		time_in_air, flight_status, waypoints_json, home_json, updated_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(port) DO UPDATE SET
		gcs_ip=excluded.gcs_ip, system_id=excluded.system_id, lat=excluded.lat,
		lon=excluded.lon, alt=excluded.alt, dist_traveled=excluded.dist_traveled,
		dist_to_home=excluded.dist_to_home, wp_dist=excluded.wp_dist,
		heading=excluded.heading, ground_speed=excluded.ground_speed,
		vertical_speed=excluded.vertical_speed, airspeed=excluded.airspeed,
		wind_vel=excluded.wind_vel, roll=excluded.roll, pitch=excluded.pitch,
		yaw=excluded.yaw, gps_hdop=excluded.gps_hdop,
		battery_voltage=excluded.battery_voltage, battery_current=excluded.battery_current,
		ch3out=excluded.ch3out, ch9out=excluded.ch9out, ch10out=excluded.ch10out,
		ch11out=excluded.ch11out, ch12out=excluded.ch12out, ch3percent=excluded.ch3percent,
		tot=excluded.tot, toh=excluded.toh, time_in_air=excluded.time_in_air,
		flight_status=excluded.flight_status, waypoints_json=excluded.waypoints_json,
		home_json=excluded.home_json, updated_at=excluded.updated_at
`

func execUpsert(stmt *sql.Stmt, rec telemetry.DroneState, now int64) error {
	waypointsJSON, err := json.Marshal(rec.Waypoints)
	if err != nil {
		return fmt.Errorf("marshal waypoints: %w", err)
	}
	var homeJSON []byte
	if rec.HomeLocation != nil {
		homeJSON, err = json.Marshal(rec.HomeLocation)
		if err != nil {
			return fmt.Errorf("marshal home location: %w", err)
		}
	}

	_, err = stmt.Exec(
		rec.Port, rec.GcsIP, rec.SystemID, rec.Lat, rec.Lon, rec.Alt,
		rec.DistTraveled, rec.DistToHome, rec.WpDist, rec.Heading,
		rec.GroundSpeed, rec.VerticalSpeed, rec.Airspeed, rec.WindVel,
		rec.Roll, rec.Pitch, rec.Yaw, rec.GpsHdop, rec.BatteryVoltage,
		rec.BatteryCurrent, rec.Ch3out, rec.Ch9out, rec.Ch10out, rec.Ch11out,
		rec.Ch12out, rec.Ch3percent, rec.Tot, rec.Toh, rec.TimeInAir,
		rec.FlightStatus, string(waypointsJSON), string(homeJSON), now,
	)
	return err
}

// FindByPort returns the persisted record for port, or nil if none exists.
func (s *SQLiteStore) FindByPort(port int) (*telemetry.DroneState, error) {
	row := s.db.QueryRow("SELECT "+selectColumns+" FROM drone_state WHERE port = ?", port)
	rec, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find port %d: %w", port, err)
	}
	return rec, nil
}

// FindByGcsIP returns every persisted record whose gcs_ip matches.
func (s *SQLiteStore) FindByGcsIP(gcsIP string) ([]telemetry.DroneState, error) {
	rows, err := s.db.Query("SELECT "+selectColumns+" FROM drone_state WHERE gcs_ip = ?", gcsIP)
	if err != nil {
		return nil, fmt.Errorf("store: find by gcs ip %s: %w", gcsIP, err)
	}
	defer rows.Close()

	var out []telemetry.DroneState
	for rows.Next() {
		rec, err := scanRows(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteByPort removes the persisted record for port, if any.
func (s *SQLiteStore) DeleteByPort(port int) error {
	_, err := s.db.Exec("DELETE FROM drone_state WHERE port = ?", port)
	if err != nil {
		return fmt.Errorf("store: delete port %d: %w", port, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
