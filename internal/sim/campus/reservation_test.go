package campus

import (
	"reflect"
	"testing"

	"campuslife.ai/internal/protocol"
)

func TestQueryAvailability_Deterministic(t *testing.T) {
	w1 := newTestWorld(t)
	w2 := newTestWorld(t)

	for _, date := range []string{"Week 1, Monday", "Week 1, Saturday", "Week 2, Thursday"} {
		r1 := mustSucceed(t, w1, OpQueryAvailability, map[string]any{"location_id": "B060", "date": date})
		r2 := mustSucceed(t, w2, OpQueryAvailability, map[string]any{"location_id": "B060", "date": date})
		if !reflect.DeepEqual(r1.Data, r2.Data) {
			t.Fatalf("grids diverge for %s:\n%v\n%v", date, r1.Data, r2.Data)
		}
	}

	// Re-deriving after cache eviction reproduces the identical grid.
	first := w1.gridFor("B010", "Week 1, Friday")
	delete(w1.grids, gridKey{LocationID: "B010", Date: "Week 1, Friday"})
	second := w1.gridFor("B010", "Week 1, Friday")
	if !reflect.DeepEqual(first.Slots, second.Slots) {
		t.Fatalf("re-derived grid differs:\n%v\n%v", first.Slots, second.Slots)
	}
}

func TestPuzzleGrid_OnlyGroundTruthSatisfiesConstraints(t *testing.T) {
	w := newTestWorld(t)
	p := w.Config().Puzzle

	g := w.gridFor(p.LocationID, p.Date)

	required := map[string]bool{}
	for _, r := range p.RequiredProperties {
		required[r] = true
	}
	satisfies := func(s GridSlot) bool {
		have := map[string]bool{}
		for _, pr := range s.Properties {
			have[pr] = true
		}
		for r := range required {
			if !have[r] {
				return false
			}
		}
		return true
	}

	var winners []string
	for _, s := range g.Slots {
		if s.TimeSlot != p.TimeSlot {
			continue
		}
		if satisfies(s) {
			winners = append(winners, s.ItemName)
		}
	}
	if !reflect.DeepEqual(winners, []string{"Study Room 201"}) {
		t.Fatalf("target-slot items satisfying all constraints = %v", winners)
	}

	// Distractors exist at the target slot.
	var targetSlotItems int
	for _, s := range g.Slots {
		if s.TimeSlot == p.TimeSlot {
			targetSlotItems++
		}
	}
	if targetSlotItems < 1+len(p.RequiredProperties) {
		t.Fatalf("expected ground truth plus %d distractors, got %d items", len(p.RequiredProperties), targetSlotItems)
	}
}

func TestMakeBooking_ExclusiveAndPermanent(t *testing.T) {
	w := newTestWorld(t)
	p := w.Config().Puzzle

	args := map[string]any{
		"location_id": p.LocationID,
		"item_name":   "Study Room 201",
		"date":        p.Date,
		"time_slot":   p.TimeSlot,
	}
	mustSucceed(t, w, OpMakeBooking, args)

	// Exactly-once: the same slot cannot be booked again.
	mustFail(t, w, OpMakeBooking, args, protocol.ErrConflict)

	// Booked entries disappear from availability.
	res := mustSucceed(t, w, OpQueryAvailability, map[string]any{"location_id": p.LocationID, "date": p.Date})
	avail := res.Data["availability"].(map[string]any)
	if entries, ok := avail[p.TimeSlot]; ok {
		for _, e := range entries.([]map[string]any) {
			if e["item_name"] == "Study Room 201" {
				t.Fatal("booked item still shown as available")
			}
		}
	}

	// A booking survives day boundaries.
	mustSucceed(t, w, OpNewDay, map[string]any{"week": 1, "day": "Sunday"})
	mustFail(t, w, OpMakeBooking, args, protocol.ErrConflict)

	// Unknown items and absent slots are E_NOT_FOUND.
	mustFail(t, w, OpMakeBooking, map[string]any{
		"location_id": p.LocationID, "item_name": "Imaginary Suite",
		"date": p.Date, "time_slot": p.TimeSlot,
	}, protocol.ErrNotFound)
}

func TestConfiguredAvailabilityPrecedence(t *testing.T) {
	w := newTestWorld(t)

	mustSucceed(t, w, OpApplyWorldChange, map[string]any{
		"change_type": "reservation_availability_set",
		"location_id": "B060",
		"item_name":   "Corner Booth",
		"times": []map[string]any{
			{"date": "Week 1, Monday", "time_slot": "14:00-15:30"},
		},
	})

	res := mustSucceed(t, w, OpQueryAvailability, map[string]any{"location_id": "B060", "date": "Week 1, Monday"})
	avail := res.Data["availability"].(map[string]any)
	if len(avail) != 1 {
		t.Fatalf("configured availability not exclusive: %v", avail)
	}
	entries := avail["14:00-15:30"].([]map[string]any)
	if len(entries) != 1 || entries[0]["item_name"] != "Corner Booth" {
		t.Fatalf("entries = %v", entries)
	}

	mustSucceed(t, w, OpMakeBooking, map[string]any{
		"location_id": "B060", "item_name": "Corner Booth",
		"date": "Week 1, Monday", "time_slot": "14:00-15:30",
	})
}

func TestGridSeedContract(t *testing.T) {
	a := gridSeed(1337, "B001", "Week 1, Saturday")
	b := gridSeed(1337, "B001", "Week 1, Saturday")
	if a != b {
		t.Fatal("gridSeed not stable")
	}
	if gridSeed(1337, "B001", "Week 1, Sunday") == a {
		t.Fatal("gridSeed ignores the date")
	}
	if gridSeed(1338, "B001", "Week 1, Saturday") == a {
		t.Fatal("gridSeed ignores the scenario seed")
	}
}
