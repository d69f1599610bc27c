package campus

import (
	"encoding/json"
	"fmt"
	"sort"

	"campuslife.ai/internal/protocol"
)

// Operation names, grouped by subsystem.
const (
	OpFindBuildingID           = "find_building_id"
	OpGetBuildingDetails       = "get_building_details"
	OpFindRoomLocation         = "find_room_location"
	OpQueryBuildingsByProperty = "query_buildings_by_property"
	OpGetBuildingComplexInfo   = "get_building_complex_info"
	OpListValidQueryProperties = "list_valid_query_properties"
	OpFindOptimalPath          = "find_optimal_path"
	OpWalkTo                   = "walk_to"
	OpGetCurrentLocation       = "get_current_location"

	OpAddEvent                 = "add_event"
	OpRemoveEvent              = "remove_event"
	OpUpdateEvent              = "update_event"
	OpViewSchedule             = "view_schedule"
	OpQueryAdvisorAvailability = "query_advisor_availability"

	OpQueryAvailability = "query_availability"
	OpMakeBooking       = "make_booking"

	OpBrowseCourses = "browse_courses"
	OpAddCourse     = "add_course"
	OpRemoveCourse  = "remove_course"
	OpAssignPass    = "assign_pass"
	OpViewDraft     = "view_draft"
	OpSubmitDraft   = "submit_draft"

	OpSendEmail = "send_email"

	OpAdvanceTime      = "advance_time"
	OpNewDay           = "new_day"
	OpSetLocation      = "set_location"
	OpApplyWorldChange = "apply_world_change"
	OpGetWorldTime     = "get_world_time"
)

type opHandler func(w *World, args json.RawMessage) protocol.Result

var opDispatch = map[string]opHandler{
	OpFindBuildingID:           (*World).opFindBuildingID,
	OpGetBuildingDetails:       (*World).opGetBuildingDetails,
	OpFindRoomLocation:         (*World).opFindRoomLocation,
	OpQueryBuildingsByProperty: (*World).opQueryBuildingsByProperty,
	OpGetBuildingComplexInfo:   (*World).opGetBuildingComplexInfo,
	OpListValidQueryProperties: (*World).opListValidQueryProperties,
	OpFindOptimalPath:          (*World).opFindOptimalPath,
	OpWalkTo:                   (*World).opWalkTo,
	OpGetCurrentLocation:       (*World).opGetCurrentLocation,

	OpAddEvent:                 (*World).opAddEvent,
	OpRemoveEvent:              (*World).opRemoveEvent,
	OpUpdateEvent:              (*World).opUpdateEvent,
	OpViewSchedule:             (*World).opViewSchedule,
	OpQueryAdvisorAvailability: (*World).opQueryAdvisorAvailability,

	OpQueryAvailability: (*World).opQueryAvailability,
	OpMakeBooking:       (*World).opMakeBooking,

	OpBrowseCourses: (*World).opBrowseCourses,
	OpAddCourse:     (*World).opAddCourse,
	OpRemoveCourse:  (*World).opRemoveCourse,
	OpAssignPass:    (*World).opAssignPass,
	OpViewDraft:     (*World).opViewDraft,
	OpSubmitDraft:   (*World).opSubmitDraft,

	OpSendEmail: (*World).opSendEmail,

	OpAdvanceTime:      (*World).opAdvanceTime,
	OpNewDay:           (*World).opNewDay,
	OpSetLocation:      (*World).opSetLocation,
	OpApplyWorldChange: (*World).opApplyWorldChange,
	OpGetWorldTime:     (*World).opGetWorldTime,
}

var supportedOps = []string{
	OpFindBuildingID,
	OpGetBuildingDetails,
	OpFindRoomLocation,
	OpQueryBuildingsByProperty,
	OpGetBuildingComplexInfo,
	OpListValidQueryProperties,
	OpFindOptimalPath,
	OpWalkTo,
	OpGetCurrentLocation,
	OpAddEvent,
	OpRemoveEvent,
	OpUpdateEvent,
	OpViewSchedule,
	OpQueryAdvisorAvailability,
	OpQueryAvailability,
	OpMakeBooking,
	OpBrowseCourses,
	OpAddCourse,
	OpRemoveCourse,
	OpAssignPass,
	OpViewDraft,
	OpSubmitDraft,
	OpSendEmail,
	OpAdvanceTime,
	OpNewDay,
	OpSetLocation,
	OpApplyWorldChange,
	OpGetWorldTime,
}

// OperationNames returns the supported operation names in sorted order.
func OperationNames() []string {
	out := append([]string{}, supportedOps...)
	sort.Strings(out)
	return out
}

func validateOpDispatch() error {
	allowed := make(map[string]struct{}, len(supportedOps))
	for _, k := range supportedOps {
		if k == "" {
			return fmt.Errorf("opDispatch: empty supported key")
		}
		if _, ok := allowed[k]; ok {
			return fmt.Errorf("opDispatch: duplicate supported key %q", k)
		}
		allowed[k] = struct{}{}
	}
	if len(opDispatch) != len(allowed) {
		return fmt.Errorf("opDispatch size mismatch: got=%d want=%d", len(opDispatch), len(allowed))
	}
	for k := range opDispatch {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("opDispatch has unsupported key %q", k)
		}
	}
	return nil
}

// Apply runs one named operation against the aggregate and returns its
// structured result. Operations are strictly sequential; the caller must not
// interleave calls.
func (w *World) Apply(op string, args json.RawMessage) protocol.Result {
	h := opDispatch[op]
	if h == nil {
		return protocol.Failure(protocol.ErrValidation, fmt.Sprintf("Unknown operation %q.", op))
	}
	res := h(w, args)
	if res.IsSuccess() {
		w.appliedOps++
	}
	return res
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}
