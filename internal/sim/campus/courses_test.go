package campus

import (
	"testing"

	"campuslife.ai/internal/protocol"
)

func TestDraftRegistration_PassRules(t *testing.T) {
	w := newTestWorld(t)

	// CS101 popularity 90: below the A threshold (95), above B (85).
	mustSucceed(t, w, OpAddCourse, map[string]any{"section_id": "CS101-01"})
	mustSucceed(t, w, OpAssignPass, map[string]any{"section_id": "CS101-01", "pass_type": "A-Pass"})

	// CS230 popularity 96: even an A-Pass loses.
	mustSucceed(t, w, OpAddCourse, map[string]any{"section_id": "CS230-02"})
	mustSucceed(t, w, OpAssignPass, map[string]any{"section_id": "CS230-02", "pass_type": "A-Pass"})

	// MATH150 popularity 80: B-Pass is enough.
	mustSucceed(t, w, OpAddCourse, map[string]any{"section_id": "MATH150-01"})
	mustSucceed(t, w, OpAssignPass, map[string]any{"section_id": "MATH150-01", "pass_type": "B-Pass"})

	res := mustSucceed(t, w, OpSubmitDraft, nil)
	outcomes := res.Data["outcomes"].([]map[string]any)
	want := map[string]bool{"CS101-01": true, "CS230-02": false, "MATH150-01": true}
	if len(outcomes) != len(want) {
		t.Fatalf("outcomes = %v", outcomes)
	}
	for _, o := range outcomes {
		id := o["section_id"].(string)
		if o["enrolled"].(bool) != want[id] {
			t.Fatalf("%s enrolled=%v want %v (%v)", id, o["enrolled"], want[id], o["reason"])
		}
	}
}

func TestDraftMutation(t *testing.T) {
	w := newTestWorld(t)

	mustSucceed(t, w, OpAddCourse, map[string]any{"section_id": "CS101-01"})
	mustFail(t, w, OpAddCourse, map[string]any{"section_id": "CS101-01"}, protocol.ErrConflict)
	mustFail(t, w, OpAddCourse, map[string]any{"section_id": "NOPE-00"}, protocol.ErrNotFound)

	mustFail(t, w, OpAssignPass, map[string]any{"section_id": "CS101-01", "pass_type": "Z-Pass"}, protocol.ErrValidation)
	mustFail(t, w, OpAssignPass, map[string]any{"section_id": "MATH150-01", "pass_type": "S-Pass"}, protocol.ErrNotFound)

	mustSucceed(t, w, OpRemoveCourse, map[string]any{"section_id": "CS101-01"})
	mustFail(t, w, OpRemoveCourse, map[string]any{"section_id": "CS101-01"}, protocol.ErrNotFound)

	res := mustSucceed(t, w, OpViewDraft, nil)
	if entries := res.Data["entries"].([]map[string]any); len(entries) != 0 {
		t.Fatalf("draft entries = %v", entries)
	}
}

func TestSubmitDraft_NoPassFailsEntry(t *testing.T) {
	w := newTestWorld(t)

	mustSucceed(t, w, OpAddCourse, map[string]any{"section_id": "MATH150-01"})
	res := mustSucceed(t, w, OpSubmitDraft, nil)
	outcomes := res.Data["outcomes"].([]map[string]any)
	if len(outcomes) != 1 || outcomes[0]["enrolled"].(bool) {
		t.Fatalf("outcomes = %v", outcomes)
	}
}

func TestSubmitDraft_LatchesOnce(t *testing.T) {
	w := newTestWorld(t)

	mustFail(t, w, OpSubmitDraft, nil, protocol.ErrValidation) // empty draft

	mustSucceed(t, w, OpAddCourse, map[string]any{"section_id": "MATH150-01"})
	mustSucceed(t, w, OpAssignPass, map[string]any{"section_id": "MATH150-01", "pass_type": "S-Pass"})
	mustSucceed(t, w, OpSubmitDraft, nil)

	mustFail(t, w, OpSubmitDraft, nil, protocol.ErrAlreadyFinalized)
	mustFail(t, w, OpAddCourse, map[string]any{"section_id": "CS101-01"}, protocol.ErrAlreadyFinalized)
	mustFail(t, w, OpRemoveCourse, map[string]any{"section_id": "MATH150-01"}, protocol.ErrAlreadyFinalized)
}

func TestSubmitDraft_PopularityReadAtCommitTime(t *testing.T) {
	w := newTestWorld(t)

	// At add time CS101 sits at 90, too popular for a B-Pass.
	mustSucceed(t, w, OpAddCourse, map[string]any{"section_id": "CS101-01"})
	mustSucceed(t, w, OpAssignPass, map[string]any{"section_id": "CS101-01", "pass_type": "B-Pass"})

	// A world change between add and submit is intentional and decides the outcome.
	mustSucceed(t, w, OpApplyWorldChange, map[string]any{
		"change_type": "popularity_update",
		"section_id":  "CS101-01",
		"popularity":  70,
	})

	res := mustSucceed(t, w, OpSubmitDraft, nil)
	outcomes := res.Data["outcomes"].([]map[string]any)
	if len(outcomes) != 1 || !outcomes[0]["enrolled"].(bool) {
		t.Fatalf("outcomes = %v", outcomes)
	}
}

func TestBrowseCourses_Filters(t *testing.T) {
	w := newTestWorld(t)

	res := mustSucceed(t, w, OpBrowseCourses, map[string]any{
		"filters": map[string]any{"min_credits": 4, "max_credits": 4},
	})
	courses := res.Data["courses"].([]map[string]any)
	if len(courses) != 2 {
		t.Fatalf("credit filter matched %d courses", len(courses))
	}

	res = mustSucceed(t, w, OpBrowseCourses, map[string]any{
		"filters": map[string]any{"code": "math"},
	})
	courses = res.Data["courses"].([]map[string]any)
	if len(courses) != 1 || courses[0]["section_id"] != "MATH150-01" {
		t.Fatalf("code filter = %v", courses)
	}

	res = mustSucceed(t, w, OpBrowseCourses, map[string]any{
		"filters": map[string]any{"name": "algorithms"},
	})
	courses = res.Data["courses"].([]map[string]any)
	if len(courses) != 1 || courses[0]["section_id"] != "CS230-02" {
		t.Fatalf("name filter = %v", courses)
	}

	// Browse reflects live state, not the static catalog.
	mustSucceed(t, w, OpApplyWorldChange, map[string]any{
		"change_type": "seats_left_update", "section_id": "CS230-02", "seats_left": 0,
	})
	res = mustSucceed(t, w, OpBrowseCourses, map[string]any{
		"filters": map[string]any{"code": "CS230"},
	})
	courses = res.Data["courses"].([]map[string]any)
	if courses[0]["seats_left"] != 0 {
		t.Fatalf("seats_left = %v", courses[0]["seats_left"])
	}
}
