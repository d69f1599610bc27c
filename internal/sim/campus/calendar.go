package campus

import (
	"fmt"
	"sort"
	"strings"
)

// Calendar identity kinds. Permission rules are an explicit table keyed by
// kind rather than string checks scattered through handlers.
type identityKind int

const (
	identitySelf identityKind = iota
	identityClub
	identityAdvisor
	identityOther
)

const (
	permAdd    = "add"
	permRemove = "remove"
	permUpdate = "update"
	permView   = "view"
)

var calendarPerms = map[identityKind]map[string]bool{
	identitySelf:    {permAdd: true, permRemove: true, permUpdate: true, permView: true},
	identityClub:    {permAdd: true, permView: true},
	identityAdvisor: {}, // free/busy queries only, never direct event access
	identityOther:   {permView: true},
}

func kindOf(calendarID string) identityKind {
	switch {
	case calendarID == "self":
		return identitySelf
	case strings.HasPrefix(calendarID, "club_"):
		return identityClub
	case strings.HasPrefix(calendarID, "advisor_"):
		return identityAdvisor
	default:
		return identityOther
	}
}

type CalendarEvent struct {
	ID       string `json:"event_id"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Week     int    `json:"week"`
	Day      string `json:"day"`
	Start    int    `json:"start_minute"`
	End      int    `json:"end_minute"`
}

func (e CalendarEvent) TimeSlot() string { return formatSlot(e.Start, e.End) }

func (e CalendarEvent) overlaps(o CalendarEvent) bool {
	if e.Week != o.Week || e.Day != o.Day {
		return false
	}
	return e.Start < o.End && o.Start < e.End
}

// Calendar is one identity's event container. Event ids are sequential and
// never reused within the calendar's lifetime, so ids from removed events
// stay permanently invalid.
type Calendar struct {
	ID     string
	Events []CalendarEvent

	nextEventSeq int
}

func (c *Calendar) allocEventID() string {
	c.nextEventSeq++
	return fmt.Sprintf("EVT-%d", c.nextEventSeq)
}

func (c *Calendar) findEvent(id string) (int, bool) {
	for i, e := range c.Events {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (c *Calendar) conflicting(ev CalendarEvent, ignoreID string) (CalendarEvent, bool) {
	for _, e := range c.Events {
		if e.ID == ignoreID {
			continue
		}
		if e.overlaps(ev) {
			return e, true
		}
	}
	return CalendarEvent{}, false
}

func (c *Calendar) eventsOn(week int, day string) []CalendarEvent {
	var out []CalendarEvent
	for _, e := range c.Events {
		if e.Week == week && e.Day == day {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (w *World) calendar(id string) *Calendar {
	c, ok := w.calendars[id]
	if !ok {
		c = &Calendar{ID: id}
		w.calendars[id] = c
	}
	return c
}

func (w *World) hasCalendarPerm(calendarID, action string) bool {
	return calendarPerms[kindOf(calendarID)][action]
}

// freeIntervals subtracts busy intervals (minute pairs) from the working
// window and returns the remaining free "HH:MM-HH:MM" slots.
func freeIntervals(windowStart, windowEnd int, busy [][2]int) []string {
	sort.Slice(busy, func(i, j int) bool { return busy[i][0] < busy[j][0] })
	var out []string
	cur := windowStart
	for _, b := range busy {
		s, e := b[0], b[1]
		if e <= cur || s >= windowEnd {
			continue
		}
		if s > cur {
			out = append(out, formatSlot(cur, min(s, windowEnd)))
		}
		if e > cur {
			cur = e
		}
	}
	if cur < windowEnd {
		out = append(out, formatSlot(cur, windowEnd))
	}
	return out
}
