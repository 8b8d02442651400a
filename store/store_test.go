package store

import (
	"path/filepath"
	"testing"

	"github.com/skywatch/telemetryhub/telemetry"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndFindByPort(t *testing.T) {
	s := openTestStore(t)

	rec := telemetry.DroneState{
		Port: 14551, GcsIP: "10.0.0.5", SystemID: 1,
		Lat: 51.5, Lon: -0.1, Alt: 100,
		HomeLocation: &telemetry.HomeLocation{Lat: 51.5, Lon: -0.1},
		Waypoints:    []telemetry.Waypoint{{Seq: 0, Lat: 51.5, Lon: -0.1, Alt: 50}},
	}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.FindByPort(14551)
	if err != nil {
		t.Fatalf("FindByPort failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record, got nil")
	}
	if got.GcsIP != "10.0.0.5" || got.Lat != 51.5 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.HomeLocation == nil || got.HomeLocation.Lat != 51.5 {
		t.Fatalf("expected home location round-tripped, got %+v", got.HomeLocation)
	}
	if len(got.Waypoints) != 1 {
		t.Fatalf("expected 1 waypoint round-tripped, got %d", len(got.Waypoints))
	}
}

func TestStore_SaveUpsertsExistingPort(t *testing.T) {
	s := openTestStore(t)

	s.Save(telemetry.DroneState{Port: 14551, GcsIP: "10.0.0.5"})
	s.Save(telemetry.DroneState{Port: 14551, GcsIP: "10.0.0.9"})

	got, err := s.FindByPort(14551)
	if err != nil {
		t.Fatalf("FindByPort failed: %v", err)
	}
	if got.GcsIP != "10.0.0.9" {
		t.Fatalf("expected upsert to overwrite gcsIp, got %q", got.GcsIP)
	}
}

func TestStore_FindByPortMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)

	got, err := s.FindByPort(99999)
	if err != nil {
		t.Fatalf("expected no error for a missing port, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing port, got %+v", got)
	}
}

func TestStore_FindByGcsIP(t *testing.T) {
	s := openTestStore(t)

	s.SaveAll([]telemetry.DroneState{
		{Port: 14551, GcsIP: "10.0.0.5"},
		{Port: 14552, GcsIP: "10.0.0.5"},
		{Port: 14553, GcsIP: "10.0.0.6"},
	})

	got, err := s.FindByGcsIP("10.0.0.5")
	if err != nil {
		t.Fatalf("FindByGcsIP failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for 10.0.0.5, got %d", len(got))
	}
}

func TestStore_DeleteByPort(t *testing.T) {
	s := openTestStore(t)

	s.Save(telemetry.DroneState{Port: 14551, GcsIP: "10.0.0.5"})
	if err := s.DeleteByPort(14551); err != nil {
		t.Fatalf("DeleteByPort failed: %v", err)
	}

	got, err := s.FindByPort(14551)
	if err != nil {
		t.Fatalf("FindByPort failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected record deleted, got %+v", got)
	}
}

func TestStore_ReopenReusesExistingSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	s1.Save(telemetry.DroneState{Port: 14551, GcsIP: "10.0.0.5"})
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	got, err := s2.FindByPort(14551)
	if err != nil {
		t.Fatalf("FindByPort failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected previously persisted record to survive reopen")
	}
}
