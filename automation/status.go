package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/cepro/campuswatch/telemetry"
)

// RoomState is the tri-state classification of a room at a point in time.
type RoomState string

const (
	// StateActive means a class is in session.
	StateActive RoomState = "active"
	// StateWasting means no class is in session but the room is drawing power,
	// on a fresh reading.
	StateWasting RoomState = "wasting"
	// StateIdle means the room is drawing at or below the idle threshold, or
	// has no fresh reading to judge by.
	StateIdle RoomState = "idle"
)

// RoomStatus is the dashboard view of one room.
type RoomStatus struct {
	Room         telemetry.Room
	State        RoomState
	PowerW       float64
	StaleReading bool
	CurrentClass *telemetry.TimetableEntry
	NextClass    *telemetry.TimetableEntry
	LastAction   *telemetry.AutomationLog
}

// Status classifies every room at `now`. It only reads; it is safe to call as
// often as a dashboard polls.
func (s *Scheduler) Status(ctx context.Context, now time.Time) ([]RoomStatus, error) {

	rooms, err := s.config.Rooms.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	statuses := make([]RoomStatus, 0, len(rooms))
	for _, room := range rooms {
		status, err := s.roomStatus(ctx, room, now)
		if err != nil {
			return nil, fmt.Errorf("status of room %s: %w", room.Code, err)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *Scheduler) roomStatus(ctx context.Context, room telemetry.Room, now time.Time) (RoomStatus, error) {

	entries, err := s.config.Timetable.TimetableFor(ctx, room.ID, now.In(s.config.Location).Weekday())
	if err != nil {
		return RoomStatus{}, fmt.Errorf("fetch timetable: %w", err)
	}
	current, next := classify(entries, now, s.config.Location)

	latest, err := s.config.Readings.LatestReading(ctx, room.ID)
	if err != nil {
		return RoomStatus{}, fmt.Errorf("fetch latest reading: %w", err)
	}

	lastAction, err := s.config.Logs.LatestAutomationLog(ctx, room.ID)
	if err != nil {
		return RoomStatus{}, fmt.Errorf("fetch last automation action: %w", err)
	}

	status := RoomStatus{
		Room:         room,
		CurrentClass: current,
		NextClass:    next,
		LastAction:   lastAction,
	}
	if latest != nil {
		status.PowerW = latest.PowerW
		status.StaleReading = now.Sub(latest.Time) > s.config.StaleAfter
	}

	switch {
	case current != nil:
		status.State = StateActive
	case latest != nil && !status.StaleReading && latest.PowerW > s.config.IdleThresholdW:
		status.State = StateWasting
	default:
		status.State = StateIdle
	}

	return status, nil
}
