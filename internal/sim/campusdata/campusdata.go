// Package campusdata loads the static campus inputs: the location/edge map
// and the course catalog. Both are read once at startup, validated, and
// treated as immutable afterwards.
package campusdata

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Data struct {
	Map     MapData
	Courses CourseCatalog

	MapDigest     string
	CoursesDigest string
}

type MapData struct {
	Nodes             []Node            `json:"nodes"`
	Edges             []Edge            `json:"edges"`
	BuildingComplexes []BuildingComplex `json:"building_complexes"`
}

type Node struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Zone    string `json:"zone"`
	Type    string `json:"type"`

	// Floor name -> ordered list of sub-rooms/amenities on that floor.
	InternalAmenities map[string][]string `json:"internal_amenities,omitempty"`
}

type Edge struct {
	Source     string            `json:"source"`
	Target     string            `json:"target"`
	TimeCost   int               `json:"time_cost"`
	OneWay     bool              `json:"one_way,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type BuildingComplex struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type CourseCatalog struct {
	Courses []CourseSection `json:"courses"`
}

type CourseSection struct {
	SectionID  string     `json:"section_id"`
	CourseName string     `json:"course_name"`
	Credits    int        `json:"credits"`
	Instructor Instructor `json:"instructor"`
	Schedule   Schedule   `json:"schedule"`
	Type       string     `json:"type,omitempty"`

	EnrollmentCapacity int `json:"enrollment_capacity"`
	PopularityIndex    int `json:"popularity_index"`
	SeatsLeft          int `json:"seats_left"`
}

type Instructor struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type Schedule struct {
	WeekStart int      `json:"week_start"`
	WeekEnd   int      `json:"week_end"`
	Days      []string `json:"days"`
	Time      string   `json:"time"`
	Location  RoomRef  `json:"location"`
}

type RoomRef struct {
	BuildingID   string `json:"building_id"`
	BuildingName string `json:"building_name"`
	Room         string `json:"room"`
}

// Load reads map.json and courses.json from configDir. If a schemas/
// subdirectory is present the raw documents are validated against
// map.schema.json and courses.schema.json before decoding.
func Load(configDir string) (*Data, error) {
	var d Data

	if err := loadJSON(configDir, "map.json", "map.schema.json", &d.Map, &d.MapDigest); err != nil {
		return nil, err
	}
	if err := loadJSON(configDir, "courses.json", "courses.schema.json", &d.Courses, &d.CoursesDigest); err != nil {
		return nil, err
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func loadJSON(configDir, name, schemaName string, out any, digest *string) error {
	path := filepath.Join(configDir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	*digest = sha256Hex(raw)

	schemaPath := filepath.Join(configDir, "schemas", schemaName)
	if _, err := os.Stat(schemaPath); err == nil {
		schema, err := jsonschema.Compile(schemaPath)
		if err != nil {
			return fmt.Errorf("%s: %w", schemaName, err)
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := schema.Validate(doc); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (d *Data) validate() error {
	nodeIDs := make(map[string]struct{}, len(d.Map.Nodes))
	for _, n := range d.Map.Nodes {
		if n.ID == "" {
			return fmt.Errorf("map.json: node with empty id")
		}
		if _, ok := nodeIDs[n.ID]; ok {
			return fmt.Errorf("map.json: duplicate node id %s", n.ID)
		}
		nodeIDs[n.ID] = struct{}{}
	}
	for i, e := range d.Map.Edges {
		if _, ok := nodeIDs[e.Source]; !ok {
			return fmt.Errorf("map.json: edge %d references unknown source %s", i, e.Source)
		}
		if _, ok := nodeIDs[e.Target]; !ok {
			return fmt.Errorf("map.json: edge %d references unknown target %s", i, e.Target)
		}
		if e.TimeCost < 0 {
			return fmt.Errorf("map.json: edge %d has negative time_cost", i)
		}
	}
	for _, c := range d.Map.BuildingComplexes {
		for _, id := range c.MemberIDs {
			if _, ok := nodeIDs[id]; !ok {
				return fmt.Errorf("map.json: complex %q references unknown member %s", c.Name, id)
			}
		}
	}

	sectionIDs := make(map[string]struct{}, len(d.Courses.Courses))
	for _, c := range d.Courses.Courses {
		if c.SectionID == "" {
			return fmt.Errorf("courses.json: course with empty section_id")
		}
		if _, ok := sectionIDs[c.SectionID]; ok {
			return fmt.Errorf("courses.json: duplicate section_id %s", c.SectionID)
		}
		sectionIDs[c.SectionID] = struct{}{}
		if c.PopularityIndex < 0 || c.PopularityIndex > 100 {
			return fmt.Errorf("courses.json: %s popularity_index out of range", c.SectionID)
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
