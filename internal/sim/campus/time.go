package campus

import (
	"fmt"
	"strings"
)

// Days of the simulated week, in order.
var weekDays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var dayIndex = func() map[string]int {
	m := make(map[string]int, len(weekDays))
	for i, d := range weekDays {
		m[d] = i
	}
	return m
}()

// ClockTime is the simulated instant: (week, day-of-week, minute-of-day).
type ClockTime struct {
	Week   int
	Day    string
	Minute int
}

// abs returns minutes since the epoch (Week 1, Monday, 00:00) for ordering.
func (t ClockTime) abs() int {
	return ((t.Week-1)*7+dayIndex[t.Day])*24*60 + t.Minute
}

func (t ClockTime) Date() string {
	return fmt.Sprintf("Week %d, %s", t.Week, t.Day)
}

// TimeOfDay renders the minute-of-day as "HH:MM".
func (t ClockTime) TimeOfDay() string {
	return formatMinutes(t.Minute)
}

func (t ClockTime) String() string {
	return fmt.Sprintf("Week %d, %s, %s", t.Week, t.Day, formatMinutes(t.Minute))
}

func parseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("bad time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return h*60 + m, nil
}

func formatMinutes(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// parseSlot parses "HH:MM-HH:MM" into start/end minutes.
func parseSlot(s string) (start, end int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad time slot %q", s)
	}
	if start, err = parseHHMM(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("bad time slot %q", s)
	}
	if end, err = parseHHMM(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("bad time slot %q", s)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("bad time slot %q", s)
	}
	return start, end, nil
}

func formatSlot(start, end int) string {
	return formatMinutes(start) + "-" + formatMinutes(end)
}

// slotsOverlap reports whether two "HH:MM-HH:MM" slots intersect.
// Unparseable slots never overlap anything.
func slotsOverlap(a, b string) bool {
	as, ae, err := parseSlot(a)
	if err != nil {
		return false
	}
	bs, be, err := parseSlot(b)
	if err != nil {
		return false
	}
	return as < be && bs < ae
}

// parseDate parses "Week N, Day" (e.g. "Week 1, Saturday").
func parseDate(s string) (week int, day string, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("bad date %q", s)
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[0]), "Week %d", &week); err != nil || week <= 0 {
		return 0, "", fmt.Errorf("bad date %q", s)
	}
	day = strings.TrimSpace(parts[1])
	if _, ok := dayIndex[day]; !ok {
		return 0, "", fmt.Errorf("bad date %q", s)
	}
	return week, day, nil
}
