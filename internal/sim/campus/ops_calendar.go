package campus

import (
	"encoding/json"
	"fmt"
	"strings"

	"campuslife.ai/internal/protocol"
)

type eventDetails struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Week     int    `json:"week"`
	Day      string `json:"day"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

func (d eventDetails) toEvent() (CalendarEvent, error) {
	if strings.TrimSpace(d.Title) == "" {
		return CalendarEvent{}, fmt.Errorf("title is required")
	}
	if d.Week <= 0 {
		return CalendarEvent{}, fmt.Errorf("week must be positive")
	}
	if _, ok := dayIndex[d.Day]; !ok {
		return CalendarEvent{}, fmt.Errorf("bad day %q", d.Day)
	}
	start, end, err := parseSlot(d.Start + "-" + d.End)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("bad start/end interval %s-%s", d.Start, d.End)
	}
	return CalendarEvent{
		Title:    d.Title,
		Location: d.Location,
		Week:     d.Week,
		Day:      d.Day,
		Start:    start,
		End:      end,
	}, nil
}

func eventView(e CalendarEvent) map[string]any {
	return map[string]any{
		"event_id":  e.ID,
		"title":     e.Title,
		"location":  e.Location,
		"week":      e.Week,
		"day":       e.Day,
		"time_slot": e.TimeSlot(),
	}
}

func (w *World) opAddEvent(args json.RawMessage) protocol.Result {
	var a struct {
		CalendarID string `json:"calendar_id"`
		eventDetails
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if a.CalendarID == "" {
		return protocol.Failure(protocol.ErrValidation, "calendar_id is required.")
	}
	if !w.hasCalendarPerm(a.CalendarID, permAdd) {
		return protocol.Failure(protocol.ErrPermissionDenied,
			fmt.Sprintf("Not allowed to add events to calendar %q.", a.CalendarID))
	}
	ev, err := a.toEvent()
	if err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error()+".")
	}
	cal := w.calendar(a.CalendarID)
	if other, conflict := cal.conflicting(ev, ""); conflict {
		return protocol.Failure(protocol.ErrConflict,
			fmt.Sprintf("Overlaps existing event %s (%q, %s).", other.ID, other.Title, other.TimeSlot()))
	}
	ev.ID = cal.allocEventID()
	cal.Events = append(cal.Events, ev)
	return protocol.Success(
		fmt.Sprintf("Event %s added to %s.", ev.ID, a.CalendarID),
		map[string]any{"event_id": ev.ID},
	)
}

func (w *World) opRemoveEvent(args json.RawMessage) protocol.Result {
	var a struct {
		CalendarID string `json:"calendar_id"`
		EventID    string `json:"event_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if !w.hasCalendarPerm(a.CalendarID, permRemove) {
		return protocol.Failure(protocol.ErrPermissionDenied,
			fmt.Sprintf("Not allowed to remove events from calendar %q.", a.CalendarID))
	}
	cal := w.calendar(a.CalendarID)
	i, ok := cal.findEvent(a.EventID)
	if !ok {
		return protocol.Failure(protocol.ErrNotFound,
			fmt.Sprintf("No event %q on calendar %q.", a.EventID, a.CalendarID))
	}
	cal.Events = append(cal.Events[:i], cal.Events[i+1:]...)
	return protocol.Success(fmt.Sprintf("Event %s removed.", a.EventID), nil)
}

func (w *World) opUpdateEvent(args json.RawMessage) protocol.Result {
	var a struct {
		CalendarID string `json:"calendar_id"`
		EventID    string `json:"event_id"`
		NewDetails struct {
			Title    *string `json:"title,omitempty"`
			Location *string `json:"location,omitempty"`
			Week     *int    `json:"week,omitempty"`
			Day      *string `json:"day,omitempty"`
			Start    *string `json:"start,omitempty"`
			End      *string `json:"end,omitempty"`
		} `json:"new_details"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if !w.hasCalendarPerm(a.CalendarID, permUpdate) {
		return protocol.Failure(protocol.ErrPermissionDenied,
			fmt.Sprintf("Not allowed to update events on calendar %q.", a.CalendarID))
	}
	cal := w.calendar(a.CalendarID)
	i, ok := cal.findEvent(a.EventID)
	if !ok {
		return protocol.Failure(protocol.ErrNotFound,
			fmt.Sprintf("No event %q on calendar %q.", a.EventID, a.CalendarID))
	}

	ev := cal.Events[i]
	nd := a.NewDetails
	if nd.Title != nil {
		if strings.TrimSpace(*nd.Title) == "" {
			return protocol.Failure(protocol.ErrValidation, "title must not be empty.")
		}
		ev.Title = *nd.Title
	}
	if nd.Location != nil {
		ev.Location = *nd.Location
	}
	if nd.Week != nil {
		if *nd.Week <= 0 {
			return protocol.Failure(protocol.ErrValidation, "week must be positive.")
		}
		ev.Week = *nd.Week
	}
	if nd.Day != nil {
		if _, ok := dayIndex[*nd.Day]; !ok {
			return protocol.Failure(protocol.ErrValidation, fmt.Sprintf("bad day %q.", *nd.Day))
		}
		ev.Day = *nd.Day
	}
	if nd.Start != nil {
		m, err := parseHHMM(*nd.Start)
		if err != nil {
			return protocol.Failure(protocol.ErrValidation, err.Error()+".")
		}
		ev.Start = m
	}
	if nd.End != nil {
		m, err := parseHHMM(*nd.End)
		if err != nil {
			return protocol.Failure(protocol.ErrValidation, err.Error()+".")
		}
		ev.End = m
	}
	if ev.End <= ev.Start {
		return protocol.Failure(protocol.ErrValidation, "event end must be after start.")
	}
	if other, conflict := cal.conflicting(ev, ev.ID); conflict {
		return protocol.Failure(protocol.ErrConflict,
			fmt.Sprintf("Overlaps existing event %s (%q, %s).", other.ID, other.Title, other.TimeSlot()))
	}
	cal.Events[i] = ev
	return protocol.Success(fmt.Sprintf("Event %s updated.", ev.ID), map[string]any{"event": eventView(ev)})
}

func (w *World) opViewSchedule(args json.RawMessage) protocol.Result {
	var a struct {
		CalendarID string `json:"calendar_id"`
		Date       string `json:"date"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if !w.hasCalendarPerm(a.CalendarID, permView) {
		return protocol.Failure(protocol.ErrPermissionDenied,
			fmt.Sprintf("Not allowed to view calendar %q.", a.CalendarID))
	}
	week, day, err := parseDate(a.Date)
	if err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error()+".")
	}
	events := w.calendar(a.CalendarID).eventsOn(week, day)
	views := make([]map[string]any, 0, len(events))
	for _, e := range events {
		views = append(views, eventView(e))
	}
	return protocol.Success(
		fmt.Sprintf("%d event(s) on %s.", len(views), a.Date),
		map[string]any{"calendar_id": a.CalendarID, "date": a.Date, "events": views},
	)
}

// opQueryAdvisorAvailability is the only view into advisor calendars: free
// intervals within working hours, never the underlying commitments. A
// scenario or world-change override for the (advisor, date) pair takes
// precedence over the free/busy computation.
func (w *World) opQueryAdvisorAvailability(args json.RawMessage) protocol.Result {
	var a struct {
		AdvisorID string `json:"advisor_id"`
		Date      string `json:"date"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if kindOf(a.AdvisorID) != identityAdvisor {
		return protocol.Failure(protocol.ErrValidation,
			fmt.Sprintf("%q is not an advisor calendar.", a.AdvisorID))
	}
	week, day, err := parseDate(a.Date)
	if err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error()+".")
	}

	var slots []string
	if byDate, ok := w.advisorOverride[a.AdvisorID]; ok {
		if s, ok := byDate[a.Date]; ok {
			slots = append([]string{}, s...)
		}
	}
	if slots == nil {
		winStart, _ := parseHHMM(w.cfg.WorkingHours.Start)
		winEnd, _ := parseHHMM(w.cfg.WorkingHours.End)
		var busy [][2]int
		for _, e := range w.calendar(a.AdvisorID).eventsOn(week, day) {
			busy = append(busy, [2]int{e.Start, e.End})
		}
		slots = freeIntervals(winStart, winEnd, busy)
	}
	return protocol.Success(
		fmt.Sprintf("%s has %d free slot(s) on %s.", a.AdvisorID, len(slots), a.Date),
		map[string]any{"advisor_id": a.AdvisorID, "date": a.Date, "available_slots": slots},
	)
}
