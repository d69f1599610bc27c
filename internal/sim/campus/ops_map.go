package campus

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"campuslife.ai/internal/protocol"
)

func (w *World) opFindBuildingID(args json.RawMessage) protocol.Result {
	var a struct {
		BuildingName string `json:"building_name"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if strings.TrimSpace(a.BuildingName) == "" {
		return protocol.Failure(protocol.ErrValidation, "building_name is required.")
	}
	n, alias, ok := w.graph.FindBuilding(a.BuildingName)
	if !ok {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No building named %q.", a.BuildingName))
	}
	data := map[string]any{
		"building_id":   n.ID,
		"building_name": n.Name,
	}
	if alias != "" {
		data["matched_alias"] = alias
	}
	return protocol.Success(fmt.Sprintf("Found %s (%s).", n.Name, n.ID), data)
}

func (w *World) opGetBuildingDetails(args json.RawMessage) protocol.Result {
	var a struct {
		BuildingID string `json:"building_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	n, ok := w.graph.Node(a.BuildingID)
	if !ok {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No building with id %q.", a.BuildingID))
	}
	data := map[string]any{
		"building_id":   n.ID,
		"building_name": n.Name,
		"zone":          n.Zone,
		"building_type": n.Type,
	}
	if len(n.Aliases) > 0 {
		data["aliases"] = n.Aliases
	}
	if len(n.InternalAmenities) > 0 {
		data["internal_amenities"] = n.InternalAmenities
	}
	return protocol.Success(fmt.Sprintf("Details for %s.", n.Name), data)
}

func (w *World) opFindRoomLocation(args json.RawMessage) protocol.Result {
	var a struct {
		RoomQuery  string `json:"room_query"`
		BuildingID string `json:"building_id,omitempty"`
		Zone       string `json:"zone,omitempty"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	query := strings.ToLower(strings.TrimSpace(a.RoomQuery))
	if query == "" {
		return protocol.Failure(protocol.ErrValidation, "room_query is required.")
	}
	if a.BuildingID != "" {
		if _, ok := w.graph.Node(a.BuildingID); !ok {
			return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No building with id %q.", a.BuildingID))
		}
	}

	var matches []map[string]any
	for _, id := range w.graph.NodeIDs() {
		n, _ := w.graph.Node(id)
		if a.BuildingID != "" && n.ID != a.BuildingID {
			continue
		}
		if a.Zone != "" && !strings.EqualFold(n.Zone, a.Zone) {
			continue
		}
		floors := make([]string, 0, len(n.InternalAmenities))
		for f := range n.InternalAmenities {
			floors = append(floors, f)
		}
		sort.Strings(floors)
		for _, f := range floors {
			for _, room := range n.InternalAmenities[f] {
				if strings.Contains(strings.ToLower(room), query) {
					matches = append(matches, map[string]any{
						"building_id":   n.ID,
						"building_name": n.Name,
						"floor":         f,
						"room":          room,
					})
				}
			}
		}
	}
	if len(matches) == 0 {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No rooms matching %q.", a.RoomQuery))
	}
	return protocol.Success(
		fmt.Sprintf("Found %d room(s) matching %q.", len(matches), a.RoomQuery),
		map[string]any{"matches": matches},
	)
}

func (w *World) opQueryBuildingsByProperty(args json.RawMessage) protocol.Result {
	var a struct {
		Zone         string `json:"zone,omitempty"`
		BuildingType string `json:"building_type,omitempty"`
		Amenity      string `json:"amenity,omitempty"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if a.Zone == "" && a.BuildingType == "" && a.Amenity == "" {
		return protocol.Failure(protocol.ErrValidation, "At least one of zone, building_type, amenity is required.")
	}

	var results []map[string]any
	for _, id := range w.graph.NodeIDs() {
		n, _ := w.graph.Node(id)
		if a.Zone != "" && !strings.EqualFold(n.Zone, a.Zone) {
			continue
		}
		if a.BuildingType != "" && !strings.EqualFold(n.Type, a.BuildingType) {
			continue
		}
		if a.Amenity != "" && !nodeHasAmenity(n.InternalAmenities, a.Amenity) {
			continue
		}
		results = append(results, map[string]any{
			"building_id":   n.ID,
			"building_name": n.Name,
			"zone":          n.Zone,
			"building_type": n.Type,
		})
	}
	return protocol.Success(
		fmt.Sprintf("Found %d building(s).", len(results)),
		map[string]any{"buildings": results},
	)
}

func nodeHasAmenity(amenities map[string][]string, want string) bool {
	w := strings.ToLower(want)
	for _, rooms := range amenities {
		for _, r := range rooms {
			if strings.Contains(strings.ToLower(r), w) {
				return true
			}
		}
	}
	return false
}

func (w *World) opGetBuildingComplexInfo(args json.RawMessage) protocol.Result {
	var a struct {
		BuildingID string `json:"building_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	n, ok := w.graph.Node(a.BuildingID)
	if !ok {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No building with id %q.", a.BuildingID))
	}
	c, ok := w.graph.ComplexFor(n.ID)
	if !ok {
		return protocol.Success(
			fmt.Sprintf("%s is not part of a building complex.", n.Name),
			map[string]any{"building_id": n.ID, "in_complex": false},
		)
	}
	return protocol.Success(
		fmt.Sprintf("%s belongs to the %s complex.", n.Name, c.Name),
		map[string]any{
			"building_id":  n.ID,
			"in_complex":   true,
			"complex_name": c.Name,
			"member_ids":   c.MemberIDs,
		},
	)
}

func (w *World) opListValidQueryProperties(json.RawMessage) protocol.Result {
	zoneSet := map[string]struct{}{}
	typeSet := map[string]struct{}{}
	for _, id := range w.graph.NodeIDs() {
		n, _ := w.graph.Node(id)
		if n.Zone != "" {
			zoneSet[n.Zone] = struct{}{}
		}
		if n.Type != "" {
			typeSet[n.Type] = struct{}{}
		}
	}
	zones := make([]string, 0, len(zoneSet))
	for z := range zoneSet {
		zones = append(zones, z)
	}
	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(zones)
	sort.Strings(types)
	return protocol.Success("Valid query properties.", map[string]any{
		"zones":          zones,
		"building_types": types,
	})
}

func (w *World) opFindOptimalPath(args json.RawMessage) protocol.Result {
	var a struct {
		SourceBuildingID string            `json:"source_building_id"`
		TargetBuildingID string            `json:"target_building_id"`
		Constraints      map[string]string `json:"constraints,omitempty"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if _, ok := w.graph.Node(a.SourceBuildingID); !ok {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No building with id %q.", a.SourceBuildingID))
	}
	if _, ok := w.graph.Node(a.TargetBuildingID); !ok {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No building with id %q.", a.TargetBuildingID))
	}
	path, cost, ok := w.graph.FindPath(a.SourceBuildingID, a.TargetBuildingID, a.Constraints)
	if !ok {
		// A query with no satisfying route is a lookup miss, not a bad walk.
		return protocol.Failure(protocol.ErrNotFound,
			fmt.Sprintf("No path from %s to %s satisfies the given constraints.",
				a.SourceBuildingID, a.TargetBuildingID))
	}
	return protocol.Success(
		fmt.Sprintf("Path found with total time cost %d.", cost),
		map[string]any{"path": path, "total_cost": cost},
	)
}

func (w *World) opWalkTo(args json.RawMessage) protocol.Result {
	var a struct {
		Path []string `json:"path"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if len(a.Path) == 0 {
		return protocol.Failure(protocol.ErrValidation, "path must not be empty.")
	}
	if a.Path[0] != w.location {
		return protocol.Failure(protocol.ErrInvalidPath,
			fmt.Sprintf("Path must start at the current location %s, got %s.", w.location, a.Path[0]))
	}
	for _, id := range a.Path {
		if _, ok := w.graph.Node(id); !ok {
			return protocol.Failure(protocol.ErrInvalidPath, fmt.Sprintf("Unknown location %q in path.", id))
		}
	}
	for i := 1; i < len(a.Path); i++ {
		if !w.graph.HopExists(a.Path[i-1], a.Path[i]) {
			return protocol.Failure(protocol.ErrInvalidPath,
				fmt.Sprintf("No edge from %s to %s.", a.Path[i-1], a.Path[i]))
		}
	}
	dest := a.Path[len(a.Path)-1]
	w.location = dest
	w.walkHistory = append(w.walkHistory, append([]string{}, a.Path...))
	n, _ := w.graph.Node(dest)
	return protocol.Success(
		fmt.Sprintf("Walked to %s (%s).", n.Name, dest),
		map[string]any{"location_id": dest, "location_name": n.Name},
	)
}

func (w *World) opGetCurrentLocation(json.RawMessage) protocol.Result {
	n, _ := w.graph.Node(w.location)
	name := ""
	if n != nil {
		name = n.Name
	}
	return protocol.Success(
		fmt.Sprintf("Currently at %s (%s).", name, w.location),
		map[string]any{"location_id": w.location, "location_name": name},
	)
}
