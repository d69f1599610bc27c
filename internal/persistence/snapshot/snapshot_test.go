package snapshot

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"campuslife.ai/internal/sim/campus"
	"campuslife.ai/internal/sim/campusdata"
	"campuslife.ai/internal/sim/scenario"
)

func smallWorld(t *testing.T) *campus.World {
	t.Helper()
	data := &campusdata.Data{
		Map: campusdata.MapData{
			Nodes: []campusdata.Node{
				{ID: "B001", Name: "Library", Zone: "Core", Type: "Library"},
				{ID: "B083", Name: "Dorm", Zone: "Residential", Type: "Dormitory"},
			},
			Edges: []campusdata.Edge{
				{Source: "B001", Target: "B083", TimeCost: 5},
			},
		},
		MapDigest:     "map-digest",
		CoursesDigest: "courses-digest",
	}
	cfg, err := scenario.Load("")
	if err != nil {
		t.Fatal(err)
	}
	w, err := campus.New(cfg, data)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func apply(t *testing.T, w *campus.World, op string, args map[string]any) {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	res := w.Apply(op, raw)
	if !res.IsSuccess() {
		t.Fatalf("%s: %s %s", op, res.ErrorCode, res.Message)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	w := smallWorld(t)
	apply(t, w, campus.OpAddEvent, map[string]any{
		"calendar_id": "self", "title": "Lecture", "location": "B001",
		"week": 1, "day": "Tuesday", "start": "09:00", "end": "10:30",
	})
	apply(t, w, campus.OpSetLocation, map[string]any{"building_id": "B001"})
	apply(t, w, campus.OpAdvanceTime, map[string]any{"week": 1, "day": "Monday", "time": "12:00"})

	path := filepath.Join(t.TempDir(), "snapshots", "3.snap.zst")
	snap := SnapshotV1{
		Header:         Header{Version: 1, RunID: w.Config().RunID, AppliedOps: w.AppliedOps()},
		Seed:           w.Config().Seed,
		ScenarioDigest: w.Config().Digest,
		MapDigest:      w.Data().MapDigest,
		CoursesDigest:  w.Data().CoursesDigest,
		State:          w.Export(),
	}
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header != snap.Header {
		t.Fatalf("header = %+v want %+v", got.Header, snap.Header)
	}
	if got.MapDigest != "map-digest" || got.ScenarioDigest != w.Config().Digest {
		t.Fatalf("digests = %+v", got)
	}

	fresh := smallWorld(t)
	if err := fresh.Restore(got.State); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if fresh.Digest() != w.Digest() {
		t.Fatal("restored state digest differs from source")
	}
	if fresh.Location() != "B001" || fresh.Clock().String() != "Week 1, Monday, 12:00" {
		t.Fatalf("restored world: loc=%s clock=%s", fresh.Location(), fresh.Clock())
	}
}

func TestReadSnapshot_MissingFile(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap.zst")); err == nil {
		t.Fatal("want error for missing snapshot")
	}
}
