package campus

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
)

// GridSlot is one bookable entry in a (location, date) availability grid.
type GridSlot struct {
	TimeSlot   string   `json:"time_slot"`
	ItemName   string   `json:"item_name"`
	SeatID     string   `json:"seat_id,omitempty"`
	Properties []string `json:"properties,omitempty"`
}

type slotGrid struct {
	Slots []GridSlot
}

type gridKey struct {
	LocationID string
	Date       string
}

// Booking is a confirmed, permanent reservation. Bookings are global: once
// recorded they mark the slot unavailable for every later query, from any
// task.
type Booking struct {
	LocationID string `json:"location_id"`
	ItemName   string `json:"item_name"`
	SeatID     string `json:"seat_id,omitempty"`
	Date       string `json:"date"`
	TimeSlot   string `json:"time_slot"`
}

// gridSeed derives the deterministic seed for one (location, date) grid.
// The formula (fnv64a over scenario seed, location and date) is a contract:
// re-deriving after cache eviction must reproduce the identical grid.
func gridSeed(scenarioSeed int64, locationID, date string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s", scenarioSeed, locationID, date)
	return int64(h.Sum64())
}

// gridFor returns the cached grid for (location, date), deriving it on first
// use. Derivation order of precedence: configured availability from a world
// change, the scenario puzzle grid for the designated target pair, then the
// unconstrained seeded grid.
func (w *World) gridFor(locationID, date string) *slotGrid {
	key := gridKey{LocationID: locationID, Date: date}
	if g, ok := w.grids[key]; ok {
		return g
	}
	var g *slotGrid
	switch {
	case w.hasConfiguredAvailability(locationID, date):
		g = w.configuredGrid(locationID, date)
	case w.cfg.Puzzle.LocationID == locationID && w.cfg.Puzzle.Date == date:
		g = w.puzzleGrid()
	default:
		g = w.seededGrid(locationID, date)
	}
	w.grids[key] = g
	return g
}

func (w *World) hasConfiguredAvailability(locationID, date string) bool {
	for k, times := range w.configuredAvail {
		if k.LocationID != locationID {
			continue
		}
		for _, t := range times {
			if t.Date == date {
				return true
			}
		}
	}
	return false
}

func (w *World) configuredGrid(locationID, date string) *slotGrid {
	g := &slotGrid{}
	keys := make([]availKey, 0, len(w.configuredAvail))
	for k := range w.configuredAvail {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].LocationID != keys[j].LocationID {
			return keys[i].LocationID < keys[j].LocationID
		}
		return keys[i].ItemName < keys[j].ItemName
	})
	for _, k := range keys {
		if k.LocationID != locationID {
			continue
		}
		for _, t := range w.configuredAvail[k] {
			if t.Date == date {
				g.Slots = append(g.Slots, GridSlot{TimeSlot: t.TimeSlot, ItemName: k.ItemName})
			}
		}
	}
	return g
}

// puzzleGrid builds the constrained grid for the scenario's target
// (location, date): the target time slot holds exactly the ground-truth
// items plus distractors that each miss at least one required property, and
// the remaining slots hold seeded filler. This is the acceptance property of
// the generator: only the ground truth satisfies every constraint.
func (w *World) puzzleGrid() *slotGrid {
	p := w.cfg.Puzzle
	g := &slotGrid{}

	for _, gt := range p.GroundTruth {
		g.Slots = append(g.Slots, GridSlot{
			TimeSlot:   p.TimeSlot,
			ItemName:   gt.ItemName,
			SeatID:     gt.SeatID,
			Properties: append([]string{}, gt.Properties...),
		})
	}

	rng := rand.New(rand.NewSource(gridSeed(w.cfg.Seed, p.LocationID, p.Date)))
	for i, missing := range p.RequiredProperties {
		props := make([]string, 0, len(p.RequiredProperties)-1)
		for _, q := range p.RequiredProperties {
			if q != missing {
				props = append(props, q)
			}
		}
		g.Slots = append(g.Slots, GridSlot{
			TimeSlot:   p.TimeSlot,
			ItemName:   fmt.Sprintf("Study Area %d", 100+rng.Intn(100)+i),
			Properties: props,
		})
	}

	for _, slot := range w.cfg.TimeSlots {
		if slot == p.TimeSlot {
			continue
		}
		g.Slots = append(g.Slots, randomSlots(rng, slot, 1+rng.Intn(2))...)
	}
	return g
}

// seededGrid is the unconstrained grid for every non-target (location, date):
// valid, plausible, and a pure function of the seed.
func (w *World) seededGrid(locationID, date string) *slotGrid {
	rng := rand.New(rand.NewSource(gridSeed(w.cfg.Seed, locationID, date)))
	g := &slotGrid{}
	for _, slot := range w.cfg.TimeSlots {
		g.Slots = append(g.Slots, randomSlots(rng, slot, 1+rng.Intn(3))...)
	}
	return g
}

var itemTemplates = []string{
	"Study Room %d",
	"Meeting Room %d",
	"Conference Room %d",
	"Seminar Room %d",
}

var slotProperties = []string{"good_wifi", "projector", "whiteboard", "quiet"}

func randomSlots(rng *rand.Rand, timeSlot string, count int) []GridSlot {
	out := make([]GridSlot, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf(itemTemplates[rng.Intn(len(itemTemplates))], 101+rng.Intn(199))
		props := make([]string, 0, 2)
		for _, j := range rng.Perm(len(slotProperties))[:2] {
			props = append(props, slotProperties[j])
		}
		sort.Strings(props)
		out = append(out, GridSlot{TimeSlot: timeSlot, ItemName: name, Properties: props})
	}
	return out
}

// Bookings returns all confirmed bookings in commit order.
func (w *World) Bookings() []Booking {
	return append([]Booking{}, w.bookings...)
}

// slotBooked reports whether an existing booking already claims this slot.
func (w *World) slotBooked(locationID, date string, s GridSlot) bool {
	for _, b := range w.bookings {
		if b.LocationID != locationID || b.Date != date {
			continue
		}
		if !slotsOverlap(b.TimeSlot, s.TimeSlot) {
			continue
		}
		if s.SeatID != "" && b.SeatID == s.SeatID {
			return true
		}
		if s.SeatID == "" && b.SeatID == "" && b.ItemName == s.ItemName {
			return true
		}
	}
	return false
}

// availableSlots renders the grid with all booked entries removed, grouped
// by time slot in template order.
func (w *World) availableSlots(locationID, date string) map[string][]GridSlot {
	g := w.gridFor(locationID, date)
	out := make(map[string][]GridSlot)
	for _, s := range g.Slots {
		if w.slotBooked(locationID, date, s) {
			continue
		}
		out[s.TimeSlot] = append(out[s.TimeSlot], s)
	}
	return out
}

// findGridSlot locates an exact (timeSlot, item[, seat]) entry in the grid.
func findGridSlot(g *slotGrid, timeSlot, itemName, seatID string) (GridSlot, bool) {
	for _, s := range g.Slots {
		if s.TimeSlot != timeSlot || s.ItemName != itemName {
			continue
		}
		if seatID != "" && s.SeatID != seatID {
			continue
		}
		return s, true
	}
	return GridSlot{}, false
}
