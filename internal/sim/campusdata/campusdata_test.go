package campusdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validMap = `{
  "nodes": [
    {"id": "B001", "name": "Library", "zone": "Core", "type": "Library"},
    {"id": "B083", "name": "Dorm", "zone": "Residential", "type": "Dormitory"}
  ],
  "edges": [
    {"source": "B001", "target": "B083", "time_cost": 5}
  ],
  "building_complexes": []
}`

const validCourses = `{
  "courses": [
    {
      "section_id": "CS101-01",
      "course_name": "Intro CS",
      "credits": 4,
      "instructor": {"name": "Prof. X", "id": "T1"},
      "schedule": {
        "week_start": 1, "week_end": 16, "days": ["Monday"], "time": "09:00-10:30",
        "location": {"building_id": "B001", "building_name": "Library", "room": "101"}
      },
      "enrollment_capacity": 100,
      "popularity_index": 90,
      "seats_left": 10
    }
  ]
}`

func writeConfig(t *testing.T, mapJSON, coursesJSON string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "map.json"), []byte(mapJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "courses.json"), []byte(coursesJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad_Valid(t *testing.T) {
	dir := writeConfig(t, validMap, validCourses)
	d, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(d.Map.Nodes) != 2 || len(d.Courses.Courses) != 1 {
		t.Fatalf("loaded %d nodes, %d courses", len(d.Map.Nodes), len(d.Courses.Courses))
	}
	if d.MapDigest == "" || d.CoursesDigest == "" || d.MapDigest == d.CoursesDigest {
		t.Fatalf("digests: map=%q courses=%q", d.MapDigest, d.CoursesDigest)
	}
}

func TestLoad_RejectsBadData(t *testing.T) {
	cases := []struct {
		name    string
		mapJSON string
		courses string
		wantErr string
	}{
		{
			name:    "duplicate node id",
			mapJSON: strings.Replace(validMap, `"id": "B083"`, `"id": "B001"`, 1),
			courses: validCourses,
			wantErr: "duplicate node id",
		},
		{
			name:    "edge to unknown node",
			mapJSON: strings.Replace(validMap, `"target": "B083"`, `"target": "B999"`, 1),
			courses: validCourses,
			wantErr: "unknown target",
		},
		{
			name:    "popularity out of range",
			mapJSON: validMap,
			courses: strings.Replace(validCourses, `"popularity_index": 90`, `"popularity_index": 130`, 1),
			wantErr: "popularity_index",
		},
		{
			name:    "malformed json",
			mapJSON: "{",
			courses: validCourses,
			wantErr: "map.json",
		},
	}
	for _, tc := range cases {
		dir := writeConfig(t, tc.mapJSON, tc.courses)
		_, err := Load(dir)
		if err == nil {
			t.Errorf("%s: want error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.wantErr)
		}
	}
}

func TestLoad_SchemaValidation(t *testing.T) {
	dir := writeConfig(t, validMap, validCourses)
	if err := os.MkdirAll(filepath.Join(dir, "schemas"), 0o755); err != nil {
		t.Fatal(err)
	}
	schema := `{
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "nodes": {"type": "array", "minItems": 3}
  }
}`
	if err := os.WriteFile(filepath.Join(dir, "schemas", "map.schema.json"), []byte(schema), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("want schema violation error")
	}
}
