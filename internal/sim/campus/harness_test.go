package campus

import (
	"encoding/json"
	"testing"

	"campuslife.ai/internal/protocol"
	"campuslife.ai/internal/sim/campusdata"
	"campuslife.ai/internal/sim/scenario"
)

func testData() *campusdata.Data {
	covered := map[string]string{"rain_exposure": "Covered", "surface": "Paved", "wheelchair_accessible": "Yes"}
	exposed := map[string]string{"rain_exposure": "Exposed", "surface": "Paved", "wheelchair_accessible": "Yes"}
	partial := map[string]string{"rain_exposure": "Partially Exposed", "surface": "Gravel", "wheelchair_accessible": "No"}

	return &campusdata.Data{
		Map: campusdata.MapData{
			Nodes: []campusdata.Node{
				{ID: "B001", Name: "Grand Central Library", Aliases: []string{"Main Library"}, Zone: "Academic Core", Type: "Library",
					InternalAmenities: map[string][]string{
						"Floor 2": {"Study Room 201", "Study Room 202"},
						"Floor 3": {"Quiet Reading Hall"},
					}},
				{ID: "B010", Name: "Sage Hall", Zone: "Academic Core", Type: "Teaching Building",
					InternalAmenities: map[string][]string{"Floor 1": {"Lecture Hall 101"}}},
				{ID: "B011", Name: "Turing Annex", Zone: "Academic Core", Type: "Teaching Building"},
				{ID: "B060", Name: "North Dining Hall", Zone: "Student Life", Type: "Dining"},
				{ID: "B083", Name: "Lakeside Dormitory", Aliases: []string{"Lakeside Dorm"}, Zone: "Residential", Type: "Dormitory"},
			},
			Edges: []campusdata.Edge{
				{Source: "B083", Target: "B060", TimeCost: 4, Properties: covered},
				{Source: "B083", Target: "B001", TimeCost: 9, Properties: exposed},
				{Source: "B060", Target: "B001", TimeCost: 5, Properties: covered},
				{Source: "B001", Target: "B010", TimeCost: 3, Properties: covered},
				{Source: "B083", Target: "B011", TimeCost: 12, Properties: partial},
			},
			BuildingComplexes: []campusdata.BuildingComplex{
				{Name: "Sage Complex", MemberIDs: []string{"B010", "B011"}},
			},
		},
		Courses: campusdata.CourseCatalog{
			Courses: []campusdata.CourseSection{
				{SectionID: "CS101-01", CourseName: "Introduction to Computer Science", Credits: 4,
					Instructor: campusdata.Instructor{Name: "Prof. Dana Whitfield", ID: "T1021"},
					Schedule: campusdata.Schedule{WeekStart: 1, WeekEnd: 16, Days: []string{"Monday"}, Time: "09:00-10:30",
						Location: campusdata.RoomRef{BuildingID: "B010", Room: "Lecture Hall 101"}},
					EnrollmentCapacity: 120, PopularityIndex: 90, SeatsLeft: 18},
				{SectionID: "CS230-02", CourseName: "Data Structures and Algorithms", Credits: 4,
					Instructor: campusdata.Instructor{Name: "Prof. Elias Margrave", ID: "T1034"},
					Schedule: campusdata.Schedule{WeekStart: 1, WeekEnd: 16, Days: []string{"Tuesday"}, Time: "10:30-12:00",
						Location: campusdata.RoomRef{BuildingID: "B010", Room: "Room 205"}},
					EnrollmentCapacity: 90, PopularityIndex: 96, SeatsLeft: 4},
				{SectionID: "MATH150-01", CourseName: "Calculus I", Credits: 5,
					Instructor: campusdata.Instructor{Name: "Prof. Imogen Clarke", ID: "T1107"},
					Schedule: campusdata.Schedule{WeekStart: 1, WeekEnd: 16, Days: []string{"Friday"}, Time: "08:00-09:00",
						Location: campusdata.RoomRef{BuildingID: "B011", Room: "Seminar Room 1"}},
					EnrollmentCapacity: 150, PopularityIndex: 80, SeatsLeft: 42},
			},
		},
		MapDigest:     "test-map",
		CoursesDigest: "test-courses",
	}
}

func testConfig() scenario.Config {
	return scenario.Config{
		Seed:              1337,
		RunID:             "test_run",
		DefaultLocationID: "B083",
		Start:             scenario.StartClock{Week: 1, Day: "Monday", Time: "08:00"},
		WorkingHours:      scenario.WorkingHours{Start: "09:00", End: "17:00"},
		TimeSlots: []string{
			"09:00-10:30", "10:30-12:00", "14:00-15:30", "15:30-17:00", "16:30-18:00",
		},
		Puzzle: scenario.Puzzle{
			LocationID:         "B001",
			Date:               "Week 1, Saturday",
			TimeSlot:           "14:00-15:30",
			RequiredProperties: []string{"good_wifi", "projector"},
			GroundTruth: []scenario.PuzzleItem{
				{ItemName: "Study Room 201", Properties: []string{"good_wifi", "projector", "whiteboard"}},
			},
		},
		AdvisorAvailability: []scenario.AdvisorAvailability{
			{AdvisorID: "advisor_wang", Date: "Week 1, Tuesday", AvailableSlots: []string{"10:30-12:00", "15:30-17:00"}},
		},
		Digest: "test-scenario",
	}
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(testConfig(), testData())
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func apply(t *testing.T, w *World, op string, args any) protocol.Result {
	t.Helper()
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			t.Fatalf("marshal args: %v", err)
		}
		raw = b
	}
	return w.Apply(op, raw)
}

func mustSucceed(t *testing.T, w *World, op string, args any) protocol.Result {
	t.Helper()
	res := apply(t, w, op, args)
	if !res.IsSuccess() {
		t.Fatalf("%s: want SUCCESS, got %s (%s: %s)", op, res.Status, res.ErrorCode, res.Message)
	}
	return res
}

func mustFail(t *testing.T, w *World, op string, args any, code string) protocol.Result {
	t.Helper()
	res := apply(t, w, op, args)
	if res.Status != protocol.StatusFailure {
		t.Fatalf("%s: want FAILURE, got %s (%s)", op, res.Status, res.Message)
	}
	if res.ErrorCode != code {
		t.Fatalf("%s: want error code %s, got %s (%s)", op, code, res.ErrorCode, res.Message)
	}
	return res
}
