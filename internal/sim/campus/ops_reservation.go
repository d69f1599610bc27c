package campus

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"campuslife.ai/internal/protocol"
)

func (w *World) opQueryAvailability(args json.RawMessage) protocol.Result {
	var a struct {
		LocationID string `json:"location_id"`
		Date       string `json:"date"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if _, ok := w.graph.Node(a.LocationID); !ok {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No location with id %q.", a.LocationID))
	}
	if _, _, err := parseDate(a.Date); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error()+".")
	}

	bySlot := w.availableSlots(a.LocationID, a.Date)
	slotKeys := make([]string, 0, len(bySlot))
	for k := range bySlot {
		slotKeys = append(slotKeys, k)
	}
	sort.Strings(slotKeys)

	total := 0
	availability := make(map[string]any, len(bySlot))
	for _, k := range slotKeys {
		entries := make([]map[string]any, 0, len(bySlot[k]))
		for _, s := range bySlot[k] {
			e := map[string]any{"item_name": s.ItemName}
			if s.SeatID != "" {
				e["seat_id"] = s.SeatID
			}
			if len(s.Properties) > 0 {
				e["properties"] = s.Properties
			}
			entries = append(entries, e)
		}
		availability[k] = entries
		total += len(entries)
	}
	return protocol.Success(
		fmt.Sprintf("%d available slot(s) at %s on %s.", total, a.LocationID, a.Date),
		map[string]any{"location_id": a.LocationID, "date": a.Date, "availability": availability},
	)
}

func (w *World) opMakeBooking(args json.RawMessage) protocol.Result {
	var a struct {
		LocationID string `json:"location_id"`
		ItemName   string `json:"item_name"`
		Date       string `json:"date"`
		TimeSlot   string `json:"time_slot"`
		SeatID     string `json:"seat_id,omitempty"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error())
	}
	if _, ok := w.graph.Node(a.LocationID); !ok {
		return protocol.Failure(protocol.ErrNotFound, fmt.Sprintf("No location with id %q.", a.LocationID))
	}
	if strings.TrimSpace(a.ItemName) == "" {
		return protocol.Failure(protocol.ErrValidation, "item_name is required.")
	}
	if _, _, err := parseDate(a.Date); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error()+".")
	}
	if _, _, err := parseSlot(a.TimeSlot); err != nil {
		return protocol.Failure(protocol.ErrValidation, err.Error()+".")
	}

	g := w.gridFor(a.LocationID, a.Date)
	slot, ok := findGridSlot(g, a.TimeSlot, a.ItemName, a.SeatID)
	if !ok {
		return protocol.Failure(protocol.ErrNotFound,
			fmt.Sprintf("%q is not offered at %s on %s %s.", a.ItemName, a.LocationID, a.Date, a.TimeSlot))
	}
	if w.slotBooked(a.LocationID, a.Date, slot) {
		return protocol.Failure(protocol.ErrConflict,
			fmt.Sprintf("%q at %s is already booked for %s %s.", a.ItemName, a.LocationID, a.Date, a.TimeSlot))
	}

	w.bookings = append(w.bookings, Booking{
		LocationID: a.LocationID,
		ItemName:   a.ItemName,
		SeatID:     slot.SeatID,
		Date:       a.Date,
		TimeSlot:   a.TimeSlot,
	})
	data := map[string]any{
		"location_id": a.LocationID,
		"item_name":   a.ItemName,
		"date":        a.Date,
		"time_slot":   a.TimeSlot,
	}
	if slot.SeatID != "" {
		data["seat_id"] = slot.SeatID
	}
	return protocol.Success(
		fmt.Sprintf("Booked %q at %s for %s %s.", a.ItemName, a.LocationID, a.Date, a.TimeSlot),
		data,
	)
}
