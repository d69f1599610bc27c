package campus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// StateV1 is the canonical serialized form of the aggregate: every map is
// flattened into a slice with a defined sort order, so marshaling the same
// world always yields the same bytes. Static inputs (map, courses, scenario)
// are not part of the state; they are re-loaded and checked by digest.
type StateV1 struct {
	Clock       ClockState `json:"clock"`
	LocationID  string     `json:"location_id"`
	WalkHistory [][]string `json:"walk_history,omitempty"`

	Calendars        []CalendarState        `json:"calendars"`
	AdvisorOverrides []AdvisorOverrideState `json:"advisor_overrides,omitempty"`

	Grids           []GridState            `json:"grids,omitempty"`
	Bookings        []Booking              `json:"bookings,omitempty"`
	ConfiguredAvail []ConfiguredAvailState `json:"configured_avail,omitempty"`

	Courses        []CourseStateEntry `json:"courses"`
	Draft          []DraftEntry       `json:"draft,omitempty"`
	DraftSubmitted bool               `json:"draft_submitted"`
	Enrollments    []Enrollment       `json:"enrollments,omitempty"`

	Emails []EmailRecord `json:"emails,omitempty"`

	AppliedOps uint64 `json:"applied_ops"`
}

type ClockState struct {
	Week   int    `json:"week"`
	Day    string `json:"day"`
	Minute int    `json:"minute"`
}

type CalendarState struct {
	ID           string          `json:"id"`
	NextEventSeq int             `json:"next_event_seq"`
	Events       []CalendarEvent `json:"events,omitempty"`
}

type AdvisorOverrideState struct {
	AdvisorID string   `json:"advisor_id"`
	Date      string   `json:"date"`
	Slots     []string `json:"slots"`
}

type GridState struct {
	LocationID string     `json:"location_id"`
	Date       string     `json:"date"`
	Slots      []GridSlot `json:"slots"`
}

type ConfiguredAvailState struct {
	LocationID string        `json:"location_id"`
	ItemName   string        `json:"item_name"`
	Times      []AvailWindow `json:"times"`
}

type AvailWindow struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
}

type CourseStateEntry struct {
	SectionID  string `json:"section_id"`
	Popularity int    `json:"popularity"`
	SeatsLeft  int    `json:"seats_left"`
}

// Export captures the full mutable state in canonical order.
func (w *World) Export() StateV1 {
	st := StateV1{
		Clock:          ClockState{Week: w.clock.Week, Day: w.clock.Day, Minute: w.clock.Minute},
		LocationID:     w.location,
		Bookings:       append([]Booking{}, w.bookings...),
		Draft:          append([]DraftEntry{}, w.draft...),
		DraftSubmitted: w.draftSubmitted,
		Enrollments:    append([]Enrollment{}, w.enrollments...),
		Emails:         append([]EmailRecord{}, w.emails...),
		AppliedOps:     w.appliedOps,
	}
	for _, p := range w.walkHistory {
		st.WalkHistory = append(st.WalkHistory, append([]string{}, p...))
	}

	calIDs := make([]string, 0, len(w.calendars))
	for id := range w.calendars {
		calIDs = append(calIDs, id)
	}
	sort.Strings(calIDs)
	for _, id := range calIDs {
		c := w.calendars[id]
		st.Calendars = append(st.Calendars, CalendarState{
			ID:           c.ID,
			NextEventSeq: c.nextEventSeq,
			Events:       append([]CalendarEvent{}, c.Events...),
		})
	}

	advIDs := make([]string, 0, len(w.advisorOverride))
	for id := range w.advisorOverride {
		advIDs = append(advIDs, id)
	}
	sort.Strings(advIDs)
	for _, id := range advIDs {
		dates := make([]string, 0, len(w.advisorOverride[id]))
		for d := range w.advisorOverride[id] {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		for _, d := range dates {
			st.AdvisorOverrides = append(st.AdvisorOverrides, AdvisorOverrideState{
				AdvisorID: id,
				Date:      d,
				Slots:     append([]string{}, w.advisorOverride[id][d]...),
			})
		}
	}

	gridKeys := make([]gridKey, 0, len(w.grids))
	for k := range w.grids {
		gridKeys = append(gridKeys, k)
	}
	sort.Slice(gridKeys, func(i, j int) bool {
		if gridKeys[i].LocationID != gridKeys[j].LocationID {
			return gridKeys[i].LocationID < gridKeys[j].LocationID
		}
		return gridKeys[i].Date < gridKeys[j].Date
	})
	for _, k := range gridKeys {
		st.Grids = append(st.Grids, GridState{
			LocationID: k.LocationID,
			Date:       k.Date,
			Slots:      append([]GridSlot{}, w.grids[k].Slots...),
		})
	}

	availKeys := make([]availKey, 0, len(w.configuredAvail))
	for k := range w.configuredAvail {
		availKeys = append(availKeys, k)
	}
	sort.Slice(availKeys, func(i, j int) bool {
		if availKeys[i].LocationID != availKeys[j].LocationID {
			return availKeys[i].LocationID < availKeys[j].LocationID
		}
		return availKeys[i].ItemName < availKeys[j].ItemName
	})
	for _, k := range availKeys {
		times := make([]AvailWindow, 0, len(w.configuredAvail[k]))
		for _, t := range w.configuredAvail[k] {
			times = append(times, AvailWindow{Date: t.Date, TimeSlot: t.TimeSlot})
		}
		st.ConfiguredAvail = append(st.ConfiguredAvail, ConfiguredAvailState{
			LocationID: k.LocationID,
			ItemName:   k.ItemName,
			Times:      times,
		})
	}

	sectionIDs := make([]string, 0, len(w.courseState))
	for id := range w.courseState {
		sectionIDs = append(sectionIDs, id)
	}
	sort.Strings(sectionIDs)
	for _, id := range sectionIDs {
		cs := w.courseState[id]
		st.Courses = append(st.Courses, CourseStateEntry{
			SectionID:  id,
			Popularity: cs.Popularity,
			SeatsLeft:  cs.SeatsLeft,
		})
	}
	return st
}

// Restore replaces the mutable state with a previously exported one. The
// world must have been constructed from the same static inputs; location and
// section references are re-checked against them.
func (w *World) Restore(st StateV1) error {
	if _, ok := dayIndex[st.Clock.Day]; !ok {
		return fmt.Errorf("restore: bad day %q", st.Clock.Day)
	}
	if _, ok := w.graph.Node(st.LocationID); !ok {
		return fmt.Errorf("restore: unknown location %q", st.LocationID)
	}
	for _, c := range st.Courses {
		if _, ok := w.section(c.SectionID); !ok {
			return fmt.Errorf("restore: unknown section %q", c.SectionID)
		}
	}

	w.clock = ClockTime{Week: st.Clock.Week, Day: st.Clock.Day, Minute: st.Clock.Minute}
	w.location = st.LocationID
	w.walkHistory = nil
	for _, p := range st.WalkHistory {
		w.walkHistory = append(w.walkHistory, append([]string{}, p...))
	}

	w.calendars = map[string]*Calendar{"self": {ID: "self"}}
	for _, cs := range st.Calendars {
		w.calendars[cs.ID] = &Calendar{
			ID:           cs.ID,
			Events:       append([]CalendarEvent{}, cs.Events...),
			nextEventSeq: cs.NextEventSeq,
		}
	}

	w.advisorOverride = map[string]map[string][]string{}
	for _, o := range st.AdvisorOverrides {
		w.setAdvisorOverride(o.AdvisorID, o.Date, o.Slots)
	}

	w.grids = map[gridKey]*slotGrid{}
	for _, g := range st.Grids {
		w.grids[gridKey{LocationID: g.LocationID, Date: g.Date}] = &slotGrid{
			Slots: append([]GridSlot{}, g.Slots...),
		}
	}
	w.bookings = append([]Booking{}, st.Bookings...)

	w.configuredAvail = map[availKey][]availTime{}
	for _, c := range st.ConfiguredAvail {
		times := make([]availTime, 0, len(c.Times))
		for _, t := range c.Times {
			times = append(times, availTime{Date: t.Date, TimeSlot: t.TimeSlot})
		}
		w.configuredAvail[availKey{LocationID: c.LocationID, ItemName: c.ItemName}] = times
	}

	w.courseState = map[string]*CourseState{}
	for _, c := range st.Courses {
		w.courseState[c.SectionID] = &CourseState{Popularity: c.Popularity, SeatsLeft: c.SeatsLeft}
	}
	w.draft = append([]DraftEntry{}, st.Draft...)
	w.draftSubmitted = st.DraftSubmitted
	w.enrollments = append([]Enrollment{}, st.Enrollments...)
	w.emails = append([]EmailRecord{}, st.Emails...)
	w.appliedOps = st.AppliedOps
	return nil
}

// Digest returns the sha256 of the canonical JSON encoding of the state.
// Two worlds with the same digest are behaviorally identical.
func (w *World) Digest() string {
	b, err := json.Marshal(w.Export())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
