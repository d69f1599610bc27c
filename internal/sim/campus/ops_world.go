package campus

import (
	"encoding/json"
	"fmt"

	"campuslife.ai/internal/protocol"
)

func (w *World) opGetWorldTime(json.RawMessage) protocol.Result {
	return protocol.Success(w.clock.String(), map[string]any{
		"week": w.clock.Week,
		"day":  w.clock.Day,
		"time": formatMinutes(w.clock.Minute),
		"date": w.clock.Date(),
	})
}

// opAdvanceTime moves the clock forward. The clock is monotonic: a target
// earlier than the current instant is rejected and the clock stays put.
func (w *World) opAdvanceTime(args json.RawMessage) protocol.Result {
	var a struct {
		Week int    `json:"week"`
		Day  string `json:"day"`
		Time string `json:"time"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if a.Week <= 0 {
		return protocol.Failure(protocol.ErrValidation, "week must be positive.")
	}
	if _, ok := dayIndex[a.Day]; !ok {
		return protocol.Failure(protocol.ErrValidation, fmt.Sprintf("bad day %q.", a.Day))
	}
	minute, err := parseHHMM(a.Time)
	if err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error()+".")
	}

	target := ClockTime{Week: a.Week, Day: a.Day, Minute: minute}
	if target.abs() < w.clock.abs() {
		return protocol.Failure(protocol.ErrValidation,
			fmt.Sprintf("Cannot move the clock backwards from %s to %s.", w.clock, target))
	}
	w.clock = target
	return protocol.Success(fmt.Sprintf("Time is now %s.", w.clock), nil)
}

// opNewDay is the day boundary: the clock jumps to the morning of the given
// day and the agent wakes up at the dormitory. Calendars, bookings, drafts,
// enrollments and emails all survive the boundary untouched.
func (w *World) opNewDay(args json.RawMessage) protocol.Result {
	var a struct {
		Week int    `json:"week"`
		Day  string `json:"day"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if a.Week <= 0 {
		return protocol.Failure(protocol.ErrValidation, "week must be positive.")
	}
	if _, ok := dayIndex[a.Day]; !ok {
		return protocol.Failure(protocol.ErrValidation, fmt.Sprintf("bad day %q.", a.Day))
	}
	morning, err := parseHHMM(w.cfg.Start.Time)
	if err != nil {
		return protocol.Errorf(err.Error())
	}

	target := ClockTime{Week: a.Week, Day: a.Day, Minute: morning}
	if target.abs() < w.clock.abs() {
		return protocol.Failure(protocol.ErrValidation,
			fmt.Sprintf("Cannot start a new day earlier than %s.", w.clock))
	}
	w.clock = target
	w.location = w.cfg.DefaultLocationID
	w.walkHistory = nil
	return protocol.Success(
		fmt.Sprintf("New day: %s. Back at %s.", w.clock.Date(), w.location),
		map[string]any{"date": w.clock.Date(), "location_id": w.location},
	)
}

func (w *World) opSetLocation(args json.RawMessage) protocol.Result {
	var a struct {
		BuildingID string `json:"building_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	n, ok := w.graph.Node(a.BuildingID)
	if !ok {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No building with id %q.", a.BuildingID))
	}
	w.location = n.ID
	return protocol.Success(
		fmt.Sprintf("Location set to %s (%s).", n.Name, n.ID),
		map[string]any{"location_id": n.ID},
	)
}

// World change kinds accepted by opApplyWorldChange.
const (
	changePopularity    = "popularity_update"
	changeSeatsLeft     = "seats_left_update"
	changeAdvisorAvail  = "advisor_availability_set"
	changeReservedAvail = "reservation_availability_set"
)

// opApplyWorldChange is the controller's hook for mid-run state injection
// between tasks: course popularity and seats, advisor free-slot overrides,
// and explicitly configured reservation availability.
func (w *World) opApplyWorldChange(args json.RawMessage) protocol.Result {
	var a struct {
		ChangeType string `json:"change_type"`

		SectionID  string `json:"section_id,omitempty"`
		Popularity *int   `json:"popularity,omitempty"`
		SeatsLeft  *int   `json:"seats_left,omitempty"`

		AdvisorID      string   `json:"advisor_id,omitempty"`
		Date           string   `json:"date,omitempty"`
		AvailableSlots []string `json:"available_slots,omitempty"`

		LocationID string `json:"location_id,omitempty"`
		ItemName   string `json:"item_name,omitempty"`
		Times      []struct {
			Date     string `json:"date"`
			TimeSlot string `json:"time_slot"`
		} `json:"times,omitempty"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}

	switch a.ChangeType {
	case changePopularity:
		st, ok := w.courseState[a.SectionID]
		if !ok {
			return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No course section %q.", a.SectionID))
		}
		if a.Popularity == nil || *a.Popularity < 0 || *a.Popularity > 100 {
			return protocol.Failure(protocol.ErrValidation, "popularity must be in [0, 100].")
		}
		st.Popularity = *a.Popularity
		return protocol.Success(
			fmt.Sprintf("Popularity of %s set to %d.", a.SectionID, *a.Popularity), nil)

	case changeSeatsLeft:
		st, ok := w.courseState[a.SectionID]
		if !ok {
			return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No course section %q.", a.SectionID))
		}
		if a.SeatsLeft == nil || *a.SeatsLeft < 0 {
			return protocol.Failure(protocol.ErrValidation, "seats_left must be non-negative.")
		}
		st.SeatsLeft = *a.SeatsLeft
		return protocol.Success(
			fmt.Sprintf("Seats left of %s set to %d.", a.SectionID, *a.SeatsLeft), nil)

	case changeAdvisorAvail:
		if kindOf(a.AdvisorID) != identityAdvisor {
			return protocol.Failure(protocol.ErrValidation,
				fmt.Sprintf("%q is not an advisor calendar.", a.AdvisorID))
		}
		if _, _, err := parseDate(a.Date); err != nil {
			return protocol.Failure(protocol.ErrValidation, err.Error()+".")
		}
		for _, s := range a.AvailableSlots {
			if _, _, err := parseSlot(s); err != nil {
				return protocol.Failure(protocol.ErrValidation, err.Error()+".")
			}
		}
		w.setAdvisorOverride(a.AdvisorID, a.Date, a.AvailableSlots)
		return protocol.Success(
			fmt.Sprintf("Availability of %s on %s configured.", a.AdvisorID, a.Date), nil)

	case changeReservedAvail:
		if _, ok := w.graph.Node(a.LocationID); !ok {
			return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No location with id %q.", a.LocationID))
		}
		if a.ItemName == "" {
			return protocol.Failure(protocol.ErrValidation, "item_name is required.")
		}
		if len(a.Times) == 0 {
			return protocol.Failure(protocol.ErrValidation, "times must not be empty.")
		}
		times := make([]availTime, 0, len(a.Times))
		for _, t := range a.Times {
			if _, _, err := parseDate(t.Date); err != nil {
				return protocol.Failure(protocol.ErrValidation, err.Error()+".")
			}
			if _, _, err := parseSlot(t.TimeSlot); err != nil {
				return protocol.Failure(protocol.ErrValidation, err.Error()+".")
			}
			times = append(times, availTime{Date: t.Date, TimeSlot: t.TimeSlot})
		}
		key := availKey{LocationID: a.LocationID, ItemName: a.ItemName}
		w.configuredAvail[key] = times
		// Cached grids for this location are stale now; drop them so the next
		// query re-derives with the configured entries in effect.
		for k := range w.grids {
			if k.LocationID == a.LocationID {
				delete(w.grids, k)
			}
		}
		return protocol.Success(
			fmt.Sprintf("Availability of %q at %s configured (%d slot(s)).", a.ItemName, a.LocationID, len(times)),
			nil)

	default:
		return protocol.Failure(protocol.ErrValidation,
			fmt.Sprintf("Unknown change_type %q.", a.ChangeType))
	}
}
