// Package scenario loads the per-run scenario configuration: the world seed,
// the starting clock, and the reservation puzzle parameters that pin down the
// one constrained availability grid for the run.
package scenario

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Seed              int64  `yaml:"seed"`
	RunID             string `yaml:"run_id"`
	DefaultLocationID string `yaml:"default_location_id"`

	Start StartClock `yaml:"start"`

	WorkingHours WorkingHours `yaml:"working_hours"`

	// Slot templates used when deriving availability grids.
	TimeSlots []string `yaml:"time_slots"`

	Puzzle Puzzle `yaml:"puzzle"`

	// Pre-seeded advisor free-slot overrides, keyed by advisor then date.
	AdvisorAvailability []AdvisorAvailability `yaml:"advisor_availability,omitempty"`

	Digest string `yaml:"-"`
}

type StartClock struct {
	Week int    `yaml:"week"`
	Day  string `yaml:"day"`
	Time string `yaml:"time"`
}

type WorkingHours struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Puzzle designates the single (location, date) pair whose availability grid
// is constrained: it contains exactly the ground-truth items (plus
// distractors that each violate at least one required property). Every other
// (location, date) query yields an unconstrained seeded grid.
type Puzzle struct {
	LocationID         string       `yaml:"location_id"`
	Date               string       `yaml:"date"`
	TimeSlot           string       `yaml:"time_slot"`
	RequiredProperties []string     `yaml:"required_properties,omitempty"`
	GroundTruth        []PuzzleItem `yaml:"ground_truth"`
}

type PuzzleItem struct {
	ItemName   string   `yaml:"item_name"`
	SeatID     string   `yaml:"seat_id,omitempty"`
	Properties []string `yaml:"properties,omitempty"`
}

type AdvisorAvailability struct {
	AdvisorID      string   `yaml:"advisor_id"`
	Date           string   `yaml:"date"`
	AvailableSlots []string `yaml:"available_slots"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("scenario.yaml: %w", err)
	}
	sum := sha256.Sum256(b)
	cfg.Digest = hex.EncodeToString(sum[:])
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("scenario.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Seed:              1337,
		RunID:             "run_1",
		DefaultLocationID: "B083",
		Start:             StartClock{Week: 1, Day: "Monday", Time: "08:00"},
		WorkingHours:      WorkingHours{Start: "09:00", End: "17:00"},
		TimeSlots: []string{
			"09:00-10:30", "10:30-12:00", "14:00-15:30", "15:30-17:00", "16:30-18:00",
		},
	}
}

func (c *Config) normalize() {
	if c.Seed == 0 {
		c.Seed = 1337
	}
	if strings.TrimSpace(c.RunID) == "" {
		c.RunID = "run_1"
	}
	if strings.TrimSpace(c.DefaultLocationID) == "" {
		c.DefaultLocationID = "B083"
	}
	if c.Start.Week <= 0 {
		c.Start.Week = 1
	}
	if strings.TrimSpace(c.Start.Day) == "" {
		c.Start.Day = "Monday"
	}
	if strings.TrimSpace(c.Start.Time) == "" {
		c.Start.Time = "08:00"
	}
	if strings.TrimSpace(c.WorkingHours.Start) == "" {
		c.WorkingHours.Start = "09:00"
	}
	if strings.TrimSpace(c.WorkingHours.End) == "" {
		c.WorkingHours.End = "17:00"
	}
	if len(c.TimeSlots) == 0 {
		c.TimeSlots = defaults().TimeSlots
	}
	if c.Digest == "" {
		c.Digest = "defaults"
	}
}

func (c Config) Validate() error {
	if c.Puzzle.LocationID != "" {
		if strings.TrimSpace(c.Puzzle.Date) == "" {
			return fmt.Errorf("puzzle.date must be set when puzzle.location_id is set")
		}
		if strings.TrimSpace(c.Puzzle.TimeSlot) == "" {
			return fmt.Errorf("puzzle.time_slot must be set when puzzle.location_id is set")
		}
		if len(c.Puzzle.GroundTruth) == 0 {
			return fmt.Errorf("puzzle.ground_truth must not be empty")
		}
		for i, gt := range c.Puzzle.GroundTruth {
			if strings.TrimSpace(gt.ItemName) == "" {
				return fmt.Errorf("puzzle.ground_truth[%d] missing item_name", i)
			}
		}
	}
	for i, a := range c.AdvisorAvailability {
		if strings.TrimSpace(a.AdvisorID) == "" || strings.TrimSpace(a.Date) == "" {
			return fmt.Errorf("advisor_availability[%d] missing advisor_id/date", i)
		}
	}
	return nil
}
