// Package campus implements the persistent campus world: one long-lived
// aggregate driven strictly sequentially by an external task controller, one
// operation at a time. Every operation validates before it mutates, so a
// rejected operation leaves all substate unchanged.
package campus

import (
	"fmt"

	"campuslife.ai/internal/sim/campusdata"
	"campuslife.ai/internal/sim/scenario"
)

type availKey struct {
	LocationID string
	ItemName   string
}

type availTime struct {
	Date     string
	TimeSlot string
}

type EmailRecord struct {
	Seq       int    `json:"seq"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	SentAt    string `json:"sent_at"`
}

// World owns all persistent campus state. It is not safe for concurrent use:
// a run owns exactly one World and applies operations from a single
// goroutine. Parallel evaluation runs must each construct their own World.
type World struct {
	cfg   scenario.Config
	data  *campusdata.Data
	graph *MapGraph

	clock       ClockTime
	location    string
	walkHistory [][]string

	calendars map[string]*Calendar
	// advisor -> date -> free slots; set by scenario or world changes and
	// consulted before the free/busy computation.
	advisorOverride map[string]map[string][]string

	grids           map[gridKey]*slotGrid
	bookings        []Booking
	configuredAvail map[availKey][]availTime

	courseState    map[string]*CourseState
	draft          []DraftEntry
	draftSubmitted bool
	enrollments    []Enrollment

	emails []EmailRecord

	appliedOps uint64
}

func New(cfg scenario.Config, data *campusdata.Data) (*World, error) {
	if err := validateOpDispatch(); err != nil {
		return nil, err
	}

	graph := NewMapGraph(&data.Map)
	if _, ok := graph.Node(cfg.DefaultLocationID); !ok {
		return nil, fmt.Errorf("default location %s not in map", cfg.DefaultLocationID)
	}
	startMinute, err := parseHHMM(cfg.Start.Time)
	if err != nil {
		return nil, fmt.Errorf("scenario start: %w", err)
	}
	if _, ok := dayIndex[cfg.Start.Day]; !ok {
		return nil, fmt.Errorf("scenario start: bad day %q", cfg.Start.Day)
	}
	if _, _, err := parseSlot(cfg.WorkingHours.Start + "-" + cfg.WorkingHours.End); err != nil {
		return nil, fmt.Errorf("scenario working_hours: %w", err)
	}

	w := &World{
		cfg:   cfg,
		data:  data,
		graph: graph,
		clock: ClockTime{
			Week:   cfg.Start.Week,
			Day:    cfg.Start.Day,
			Minute: startMinute,
		},
		location:        cfg.DefaultLocationID,
		calendars:       map[string]*Calendar{"self": {ID: "self"}},
		advisorOverride: map[string]map[string][]string{},
		grids:           map[gridKey]*slotGrid{},
		configuredAvail: map[availKey][]availTime{},
		courseState:     map[string]*CourseState{},
	}
	for _, c := range data.Courses.Courses {
		w.courseState[c.SectionID] = &CourseState{
			Popularity: c.PopularityIndex,
			SeatsLeft:  c.SeatsLeft,
		}
	}
	for _, a := range cfg.AdvisorAvailability {
		w.setAdvisorOverride(a.AdvisorID, a.Date, a.AvailableSlots)
	}
	return w, nil
}

func (w *World) setAdvisorOverride(advisorID, date string, slots []string) {
	byDate, ok := w.advisorOverride[advisorID]
	if !ok {
		byDate = map[string][]string{}
		w.advisorOverride[advisorID] = byDate
	}
	byDate[date] = append([]string{}, slots...)
}

// Clock returns the current simulated instant.
func (w *World) Clock() ClockTime { return w.clock }

// Location returns the agent's current location id.
func (w *World) Location() string { return w.location }

func (w *World) Config() scenario.Config { return w.cfg }

func (w *World) Data() *campusdata.Data { return w.data }

// AppliedOps counts successfully applied operations since construction.
func (w *World) AppliedOps() uint64 { return w.appliedOps }

func (w *World) section(id string) (campusdata.CourseSection, bool) {
	for _, c := range w.data.Courses.Courses {
		if c.SectionID == id {
			return c, true
		}
	}
	return campusdata.CourseSection{}, false
}
