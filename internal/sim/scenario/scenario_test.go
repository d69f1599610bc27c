package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 1337 || cfg.RunID != "run_1" || cfg.DefaultLocationID != "B083" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Start.Day != "Monday" || cfg.Start.Time != "08:00" {
		t.Fatalf("start = %+v", cfg.Start)
	}
	if len(cfg.TimeSlots) == 0 {
		t.Fatal("no default time slots")
	}
}

func TestLoad_File(t *testing.T) {
	doc := `
seed: 42
run_id: run_campus_7
default_location_id: B001
start:
  week: 2
  day: Thursday
  time: "10:15"
puzzle:
  location_id: B001
  date: "Week 2, Saturday"
  time_slot: "14:00-15:30"
  required_properties: [good_wifi]
  ground_truth:
    - item_name: Study Room 201
      properties: [good_wifi, projector]
advisor_availability:
  - advisor_id: advisor_wang
    date: "Week 2, Tuesday"
    available_slots: ["10:30-12:00"]
`
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 42 || cfg.RunID != "run_campus_7" || cfg.Start.Day != "Thursday" {
		t.Fatalf("cfg = %+v", cfg)
	}
	// Omitted fields still fall back to defaults.
	if cfg.WorkingHours.Start != "09:00" || cfg.WorkingHours.End != "17:00" {
		t.Fatalf("working hours = %+v", cfg.WorkingHours)
	}
	if cfg.Digest == "" || cfg.Digest == "defaults" {
		t.Fatalf("digest = %q", cfg.Digest)
	}
	if cfg.Puzzle.GroundTruth[0].ItemName != "Study Room 201" {
		t.Fatalf("puzzle = %+v", cfg.Puzzle)
	}
}

func TestLoad_RejectsIncompletePuzzle(t *testing.T) {
	doc := `
puzzle:
  location_id: B001
  date: "Week 1, Saturday"
  time_slot: "14:00-15:30"
`
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "ground_truth") {
		t.Fatalf("err = %v", err)
	}
}
