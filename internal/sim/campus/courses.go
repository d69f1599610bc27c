package campus

// Pass types and their commit-time popularity thresholds. An S-Pass always
// succeeds, an A-Pass needs popularity below 95, a B-Pass below 85, and an
// entry with no pass always fails resolution.
const (
	PassS = "S-Pass"
	PassA = "A-Pass"
	PassB = "B-Pass"
)

var passThresholds = map[string]int{
	PassS: 101,
	PassA: 95,
	PassB: 85,
}

// CourseState is the mutable per-section state; popularity is read at commit
// time, not at add time, so world changes between add and submit are
// intentional and affect the outcome.
type CourseState struct {
	Popularity int `json:"popularity"`
	SeatsLeft  int `json:"seats_left"`
}

type DraftEntry struct {
	SectionID string `json:"section_id"`
	Pass      string `json:"pass,omitempty"`
}

type Enrollment struct {
	SectionID string `json:"section_id"`
	Pass      string `json:"pass"`
}

type sectionOutcome struct {
	SectionID string `json:"section_id"`
	Enrolled  bool   `json:"enrolled"`
	Reason    string `json:"reason"`
}

func (w *World) draftIndex(sectionID string) int {
	for i, e := range w.draft {
		if e.SectionID == sectionID {
			return i
		}
	}
	return -1
}

// resolveDraft applies the pass rules against current popularity and returns
// the per-section outcomes plus the surviving enrollments.
func (w *World) resolveDraft() ([]sectionOutcome, []Enrollment) {
	outcomes := make([]sectionOutcome, 0, len(w.draft))
	var enrolled []Enrollment
	for _, e := range w.draft {
		st, ok := w.courseState[e.SectionID]
		if !ok {
			outcomes = append(outcomes, sectionOutcome{SectionID: e.SectionID, Reason: "section not found"})
			continue
		}
		if e.Pass == "" {
			outcomes = append(outcomes, sectionOutcome{SectionID: e.SectionID, Reason: "no pass assigned"})
			continue
		}
		if st.Popularity >= passThresholds[e.Pass] {
			outcomes = append(outcomes, sectionOutcome{
				SectionID: e.SectionID,
				Reason:    "section too popular for " + e.Pass,
			})
			continue
		}
		outcomes = append(outcomes, sectionOutcome{
			SectionID: e.SectionID,
			Enrolled:  true,
			Reason:    "registered with " + e.Pass,
		})
		enrolled = append(enrolled, Enrollment{SectionID: e.SectionID, Pass: e.Pass})
	}
	return outcomes, enrolled
}
