// Package automation hosts the periodic reconciliation loop that compares live
// power draw against room timetables, raising waste alerts and recording
// automation actions, plus the read-only status query used by dashboards.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cepro/campuswatch/telemetry"
	"github.com/google/uuid"
)

const (
	// DefaultInterval is how often the reconciliation loop runs.
	DefaultInterval = 60 * time.Second

	// defaultStaleAfter is the reading age beyond which a room is treated as
	// having no usable data for this tick.
	defaultStaleAfter = 120 * time.Second

	defaultIdleThresholdW = 50.0

	// defaultPreCoolLead is how long before a class starts that a quiet room is
	// marked for pre-conditioning.
	defaultPreCoolLead = 15 * time.Minute
)

// RoomSource lists the rooms to reconcile.
type RoomSource interface {
	Rooms(ctx context.Context) ([]telemetry.Room, error)
}

// TimetableSource provides the class slots for a room on a weekday.
type TimetableSource interface {
	TimetableFor(ctx context.Context, roomID uuid.UUID, weekday time.Weekday) ([]telemetry.TimetableEntry, error)
}

// ReadingSource provides the most recent reading for a room, nil if none exists.
type ReadingSource interface {
	LatestReading(ctx context.Context, roomID uuid.UUID) (*telemetry.Reading, error)
}

// LogSource provides the most recent automation action for a room, nil if none
// exists. Only the status query uses it.
type LogSource interface {
	LatestAutomationLog(ctx context.Context, roomID uuid.UUID) (*telemetry.AutomationLog, error)
}

// AlertManager is the slice of the alerting layer the scheduler drives.
type AlertManager interface {
	RaiseScheduleMismatch(ctx context.Context, roomID uuid.UUID, powerW float64, now time.Time) (bool, error)
	RecordPreCool(ctx context.Context, roomID uuid.UUID, powerW float64, course string, now time.Time) (bool, error)
}

// Config carries the scheduler's dependencies and tuning.
type Config struct {
	Rooms     RoomSource
	Timetable TimetableSource
	Readings  ReadingSource
	Logs      LogSource
	Alerts    AlertManager

	// Location is the campus timezone used to interpret timetable clock times.
	Location *time.Location

	IdleThresholdW float64       // zero means defaultIdleThresholdW
	StaleAfter     time.Duration // zero means defaultStaleAfter
	PreCoolLead    time.Duration // zero means defaultPreCoolLead
}

// Scheduler runs the reconciliation pass over every room on each tick. Rooms
// are processed sequentially; campus fleets are tens of rooms, so a fan-out is
// not worth its complexity here.
type Scheduler struct {
	config Config
	logger *slog.Logger

	// ticking serialises ticks: if a tick is still running when the next one
	// fires, the new tick is skipped rather than run concurrently.
	ticking atomic.Bool
}

func New(config Config) *Scheduler {
	if config.IdleThresholdW == 0 {
		config.IdleThresholdW = defaultIdleThresholdW
	}
	if config.StaleAfter == 0 {
		config.StaleAfter = defaultStaleAfter
	}
	if config.PreCoolLead == 0 {
		config.PreCoolLead = defaultPreCoolLead
	}
	return &Scheduler{
		config: config,
		logger: slog.Default().With("component", "automation"),
	}
}

// Run executes one immediate reconciliation pass and then one pass per tick
// received, until the context is cancelled. The caller owns the ticker.
func (s *Scheduler) Run(ctx context.Context, ticks <-chan time.Time) {

	s.RunTick(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticks:
			s.RunTick(ctx, t)
		}
	}
}

// RunTick reconciles every room once, using `now` as the reference time. A
// failure in one room never stops the others. If the previous tick is still
// running this one is skipped.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) {

	if !s.ticking.CompareAndSwap(false, true) {
		s.logger.Warn("Previous reconciliation pass still running, skipping tick")
		return
	}
	defer s.ticking.Store(false)

	rooms, err := s.config.Rooms.Rooms(ctx)
	if err != nil {
		s.logger.Error("failed to list rooms", "error", err)
		return
	}

	for _, room := range rooms {
		if err := s.reconcileRoom(ctx, room, now); err != nil {
			s.logger.Error("failed to reconcile room", "room", room.Code, "error", err)
		}
	}
}

// ClassInSession reports whether a class is scheduled in the room at `t`. The
// ingestion pipeline uses this to stamp readings with the schedule flag.
func (s *Scheduler) ClassInSession(ctx context.Context, roomID uuid.UUID, t time.Time) (bool, error) {
	entries, err := s.config.Timetable.TimetableFor(ctx, roomID, t.In(s.config.Location).Weekday())
	if err != nil {
		return false, fmt.Errorf("fetch timetable: %w", err)
	}
	current, _ := classify(entries, t, s.config.Location)
	return current != nil, nil
}

// reconcileRoom runs the waste checks for one room.
func (s *Scheduler) reconcileRoom(ctx context.Context, room telemetry.Room, now time.Time) error {

	entries, err := s.config.Timetable.TimetableFor(ctx, room.ID, now.In(s.config.Location).Weekday())
	if err != nil {
		return fmt.Errorf("fetch timetable: %w", err)
	}
	current, next := classify(entries, now, s.config.Location)

	latest, err := s.config.Readings.LatestReading(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("fetch latest reading: %w", err)
	}
	if latest == nil {
		// No data for this room yet, nothing to reconcile
		return nil
	}
	if now.Sub(latest.Time) > s.config.StaleAfter {
		// A stale reading tells us nothing about current draw; the room is
		// treated as idle/no-data, never as wasting
		s.logger.Debug("Room reading is stale, skipping", "room", room.Code, "age", now.Sub(latest.Time))
		return nil
	}

	if current == nil && latest.PowerW > s.config.IdleThresholdW {
		created, err := s.config.Alerts.RaiseScheduleMismatch(ctx, room.ID, latest.PowerW, now)
		if err != nil {
			return fmt.Errorf("raise schedule mismatch: %w", err)
		}
		if created {
			s.logger.Info("Room wasting energy", "room", room.Code, "power_w", latest.PowerW)
		}
		return nil
	}

	// Quiet room with a class about to start: record a pre-cool action
	if current == nil && next != nil && latest.PowerW <= s.config.IdleThresholdW {
		start, ok := next.StartsAt(now, s.config.Location)
		if ok && start.Sub(now) <= s.config.PreCoolLead {
			_, err := s.config.Alerts.RecordPreCool(ctx, room.ID, latest.PowerW, next.Course, now)
			if err != nil {
				return fmt.Errorf("record pre-cool: %w", err)
			}
		}
	}

	return nil
}

// classify splits today's timetable into the slot in session at `now` (if any)
// and the next slot still to start today (if any).
func classify(entries []telemetry.TimetableEntry, now time.Time, loc *time.Location) (current, next *telemetry.TimetableEntry) {
	for i := range entries {
		entry := &entries[i]
		if entry.InSessionAt(now, loc) {
			current = entry
			continue
		}
		start, ok := entry.StartsAt(now, loc)
		if !ok || !start.After(now) {
			continue
		}
		if next == nil {
			next = entry
			continue
		}
		nextStart, _ := next.StartsAt(now, loc)
		if start.Before(nextStart) {
			next = entry
		}
	}
	return current, next
}
