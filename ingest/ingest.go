// Package ingest accepts meter payloads from the gateways, normalises them
// into canonical readings and drives them through metric derivation, anomaly
// scoring and alerting. A bad entry never aborts the rest of its batch.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cepro/campuswatch/anomaly"
	"github.com/cepro/campuswatch/tariff"
	"github.com/cepro/campuswatch/telemetry"
	"github.com/google/uuid"
)

// RoomDirectory resolves external room codes to room records. A nil room with a
// nil error means the code is unknown.
type RoomDirectory interface {
	RoomByCode(ctx context.Context, code string) (*telemetry.Room, error)
}

// Timetable answers whether a class is scheduled in a room at a point in time.
type Timetable interface {
	ClassInSession(ctx context.Context, roomID uuid.UUID, t time.Time) (bool, error)
}

// ReadingStore persists normalised readings.
type ReadingStore interface {
	AddReading(ctx context.Context, reading telemetry.Reading) error
}

// AlertSink receives the alerts derived from ingested readings.
type AlertSink interface {
	RaiseAnomaly(ctx context.Context, reading telemetry.Reading, assessment anomaly.Assessment) error
	RaiseIdle(ctx context.Context, reading telemetry.Reading) error
}

// EntryError describes why one entry of a payload was rejected.
type EntryError struct {
	Index    int    `json:"index"`
	RoomCode string `json:"roomCode"`
	Message  string `json:"message"`
}

// Result is the outcome of ingesting one payload: the readings that made it
// through, and the entries that did not.
type Result struct {
	Accepted []telemetry.Reading
	Errors   []EntryError
}

// Pipeline normalises and processes ingestion payloads.
type Pipeline struct {
	directory RoomDirectory
	timetable Timetable
	detector  anomaly.Detector
	store     ReadingStore
	alerts    AlertSink
	rates     tariff.Rates
	logger    *slog.Logger

	// Now is the clock used to stamp readings; override in tests.
	Now func() time.Time
}

func New(directory RoomDirectory, timetable Timetable, detector anomaly.Detector, store ReadingStore, alerts AlertSink, rates tariff.Rates) *Pipeline {
	return &Pipeline{
		directory: directory,
		timetable: timetable,
		detector:  detector,
		store:     store,
		alerts:    alerts,
		rates:     rates,
		logger:    slog.Default().With("component", "ingest"),
		Now:       time.Now,
	}
}

// entryPayload is one meter sample as the gateways send it.
type entryPayload struct {
	RoomCode string   `json:"roomCode"`
	Occupied int      `json:"occupied"`
	Voltage  float64  `json:"voltage"`
	Current  float64  `json:"current"`
	Power    *float64 `json:"power"`
	Energy   *float64 `json:"energy"`
}

// Ingest handles one payload. Two shapes are accepted, told apart by the
// presence of the "readings" key: a batch `{"readings": [...]}` or a bare
// single-entry object. A malformed payload is an error; a bad entry inside a
// well-formed payload is collected into the result instead.
func (p *Pipeline) Ingest(ctx context.Context, payload []byte) (Result, error) {

	var probe struct {
		Readings []json.RawMessage `json:"readings"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return Result{}, fmt.Errorf("parse payload: %w", err)
	}

	var entries []entryPayload
	if probe.Readings != nil {
		entries = make([]entryPayload, 0, len(probe.Readings))
		for i, raw := range probe.Readings {
			var entry entryPayload
			if err := json.Unmarshal(raw, &entry); err != nil {
				return Result{}, fmt.Errorf("parse batch entry %d: %w", i, err)
			}
			entries = append(entries, entry)
		}
	} else {
		var entry entryPayload
		if err := json.Unmarshal(payload, &entry); err != nil {
			return Result{}, fmt.Errorf("parse payload: %w", err)
		}
		entries = []entryPayload{entry}
	}

	result := Result{}
	for i, entry := range entries {
		reading, entryErr := p.processEntry(ctx, i, entry)
		if entryErr != nil {
			result.Errors = append(result.Errors, *entryErr)
			continue
		}
		result.Accepted = append(result.Accepted, reading)
	}
	return result, nil
}

// processEntry normalises a single entry and runs it through the full
// derivation/detection/alerting flow.
func (p *Pipeline) processEntry(ctx context.Context, index int, entry entryPayload) (telemetry.Reading, *EntryError) {

	fail := func(format string, args ...interface{}) (telemetry.Reading, *EntryError) {
		return telemetry.Reading{}, &EntryError{
			Index:    index,
			RoomCode: entry.RoomCode,
			Message:  fmt.Sprintf(format, args...),
		}
	}

	if entry.RoomCode == "" {
		return fail("missing room code")
	}
	if entry.Power == nil || entry.Energy == nil {
		return fail("missing power or energy value")
	}
	if *entry.Power < 0 || *entry.Energy < 0 {
		return fail("power and energy must be non-negative")
	}

	room, err := p.directory.RoomByCode(ctx, entry.RoomCode)
	if err != nil {
		return fail("resolve room: %v", err)
	}
	if room == nil {
		return fail("unknown room code %q", entry.RoomCode)
	}

	now := p.Now()

	scheduledClass, err := p.timetable.ClassInSession(ctx, room.ID, now)
	if err != nil {
		return fail("check timetable: %v", err)
	}

	metrics := tariff.Derive(*entry.Power, *entry.Energy, p.rates)

	reading := telemetry.Reading{
		ID:             uuid.New(),
		RoomID:         room.ID,
		Time:           now,
		Voltage:        entry.Voltage,
		Current:        entry.Current,
		PowerW:         *entry.Power,
		EnergyKWH:      *entry.Energy,
		Cost:           metrics.Cost,
		CO2:            metrics.CO2,
		IsIdle:         metrics.IsIdle,
		Occupancy:      entry.Occupied,
		ScheduledClass: scheduledClass,
	}

	// Score against history before this reading is added to it
	assessment, err := p.detector.Detect(ctx, anomaly.Observation{
		RoomID:         room.ID,
		Time:           now,
		PowerW:         reading.PowerW,
		Occupancy:      reading.Occupancy,
		ScheduledClass: reading.ScheduledClass,
	})
	if err != nil {
		return fail("score reading: %v", err)
	}
	reading.IsAnomaly = assessment.IsAnomaly
	reading.AnomalyScore = assessment.Score

	if err := p.store.AddReading(ctx, reading); err != nil {
		return fail("persist reading: %v", err)
	}

	// Alerting failures don't reject the entry: the reading is already persisted
	if assessment.IsAnomaly {
		if err := p.alerts.RaiseAnomaly(ctx, reading, assessment); err != nil {
			p.logger.Error("failed to raise anomaly alert", "room", entry.RoomCode, "error", err)
		}
	}
	if reading.IsIdle {
		if err := p.alerts.RaiseIdle(ctx, reading); err != nil {
			p.logger.Error("failed to raise idle alert", "room", entry.RoomCode, "error", err)
		}
	}

	return reading, nil
}
