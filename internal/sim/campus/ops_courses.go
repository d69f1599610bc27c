package campus

import (
	"encoding/json"
	"fmt"
	"strings"

	"campuslife.ai/internal/protocol"
	"campuslife.ai/internal/sim/campusdata"
)

func (w *World) sectionView(c campusdata.CourseSection) map[string]any {
	st := w.courseState[c.SectionID]
	return map[string]any{
		"section_id":       c.SectionID,
		"course_name":      c.CourseName,
		"credits":          c.Credits,
		"instructor":       c.Instructor.Name,
		"schedule_days":    c.Schedule.Days,
		"schedule_time":    c.Schedule.Time,
		"location":         c.Schedule.Location,
		"popularity_index": st.Popularity,
		"seats_left":       st.SeatsLeft,
	}
}

func (w *World) opBrowseCourses(args json.RawMessage) protocol.Result {
	var a struct {
		Filters struct {
			MinCredits *int   `json:"min_credits,omitempty"`
			MaxCredits *int   `json:"max_credits,omitempty"`
			Code       string `json:"code,omitempty"`
			Name       string `json:"name,omitempty"`
		} `json:"filters,omitempty"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	f := a.Filters

	var results []map[string]any
	for _, c := range w.data.Courses.Courses {
		if f.MinCredits != nil && c.Credits < *f.MinCredits {
			continue
		}
		if f.MaxCredits != nil && c.Credits > *f.MaxCredits {
			continue
		}
		if f.Code != "" && !strings.Contains(strings.ToLower(c.SectionID), strings.ToLower(f.Code)) {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(c.CourseName), strings.ToLower(f.Name)) {
			continue
		}
		results = append(results, w.sectionView(c))
	}
	return protocol.Success(
		fmt.Sprintf("Found %d course section(s).", len(results)),
		map[string]any{"courses": results},
	)
}

func (w *World) opAddCourse(args json.RawMessage) protocol.Result {
	var a struct {
		SectionID string `json:"section_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if w.draftSubmitted {
		return protocol.Failure(protocol.ErrAlreadyFinalized, "Draft has already been submitted.")
	}
	if _, ok := w.section(a.SectionID); !ok {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No course section %q.", a.SectionID))
	}
	if w.draftIndex(a.SectionID) >= 0 {
		return protocol.Failure(protocol.ErrConflict, fmt.Sprintf("%s is already in the draft.", a.SectionID))
	}
	w.draft = append(w.draft, DraftEntry{SectionID: a.SectionID})
	return protocol.Success(
		fmt.Sprintf("%s added to the draft.", a.SectionID),
		map[string]any{"draft_size": len(w.draft)},
	)
}

func (w *World) opRemoveCourse(args json.RawMessage) protocol.Result {
	var a struct {
		SectionID string `json:"section_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if w.draftSubmitted {
		return protocol.Failure(protocol.ErrAlreadyFinalized, "Draft has already been submitted.")
	}
	i := w.draftIndex(a.SectionID)
	if i < 0 {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("%s is not in the draft.", a.SectionID))
	}
	w.draft = append(w.draft[:i], w.draft[i+1:]...)
	return protocol.Success(
		fmt.Sprintf("%s removed from the draft.", a.SectionID),
		map[string]any{"draft_size": len(w.draft)},
	)
}

func (w *World) opAssignPass(args json.RawMessage) protocol.Result {
	var a struct {
		SectionID string `json:"section_id"`
		PassType  string `json:"pass_type"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if w.draftSubmitted {
		return protocol.Failure(protocol.ErrAlreadyFinalized, "Draft has already been submitted.")
	}
	if _, ok := passThresholds[a.PassType]; !ok {
		return protocol.Failure(protocol.ErrValidation,
			fmt.Sprintf("pass_type must be one of %s, %s, %s.", PassS, PassA, PassB))
	}
	i := w.draftIndex(a.SectionID)
	if i < 0 {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("%s is not in the draft.", a.SectionID))
	}
	w.draft[i].Pass = a.PassType
	return protocol.Success(fmt.Sprintf("%s assigned to %s.", a.PassType, a.SectionID), nil)
}

func (w *World) opViewDraft(json.RawMessage) protocol.Result {
	entries := make([]map[string]any, 0, len(w.draft))
	for _, e := range w.draft {
		v := map[string]any{"section_id": e.SectionID}
		if e.Pass != "" {
			v["pass"] = e.Pass
		}
		entries = append(entries, v)
	}
	return protocol.Success(
		fmt.Sprintf("Draft holds %d section(s).", len(entries)),
		map[string]any{"entries": entries, "submitted": w.draftSubmitted},
	)
}

// opSubmitDraft resolves the draft against commit-time popularity and latches:
// the first submit decides everything, any later submit fails.
func (w *World) opSubmitDraft(json.RawMessage) protocol.Result {
	if w.draftSubmitted {
		return protocol.Failure(protocol.ErrAlreadyFinalized, "Draft has already been submitted.")
	}
	if len(w.draft) == 0 {
		return protocol.Failure(protocol.ErrValidation, "Draft is empty.")
	}

	outcomes, enrolled := w.resolveDraft()
	for _, e := range enrolled {
		if st := w.courseState[e.SectionID]; st.SeatsLeft > 0 {
			st.SeatsLeft--
		}
	}
	w.enrollments = append(w.enrollments, enrolled...)
	w.draft = nil
	w.draftSubmitted = true

	views := make([]map[string]any, 0, len(outcomes))
	for _, o := range outcomes {
		views = append(views, map[string]any{
			"section_id": o.SectionID,
			"enrolled":   o.Enrolled,
			"reason":     o.Reason,
		})
	}
	return protocol.Success(
		fmt.Sprintf("Draft submitted: %d of %d section(s) registered.", len(enrolled), len(outcomes)),
		map[string]any{"outcomes": views},
	)
}
