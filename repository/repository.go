package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cepro/campuswatch/telemetry"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores readings, alerts and automation logs in a local SQLite
// database, and serves the room and timetable lookups the rest of the service
// needs. Read-committed visibility only; callers must not assume exactly-once.
type Repository struct {
	db *gorm.DB
}

func New(path string) (*Repository, error) {

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Migrate the schema
	err = db.AutoMigrate(
		&StoredReading{},
		&StoredAlert{},
		&StoredAutomationLog{},
		&StoredRoom{},
		&StoredTimetableEntry{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{
		db: db,
	}, nil
}

func (r *Repository) AddReading(ctx context.Context, reading telemetry.Reading) error {
	result := r.db.WithContext(ctx).Create(newStoredReading(reading))
	return result.Error
}

// PowerSamplesSince returns the power values of all readings for the room taken
// at or after `since`, oldest first.
func (r *Repository) PowerSamplesSince(ctx context.Context, roomID uuid.UUID, since time.Time) ([]float64, error) {
	var samples []float64
	result := r.db.WithContext(ctx).
		Model(&StoredReading{}).
		Where("room_id = ? AND time >= ?", roomID, since).
		Order("time asc").
		Pluck("power_w", &samples)
	if result.Error != nil {
		return nil, result.Error
	}
	return samples, nil
}

// LatestReading returns the most recent reading for the room, or nil if the
// room has no readings at all.
func (r *Repository) LatestReading(ctx context.Context, roomID uuid.UUID) (*telemetry.Reading, error) {
	var stored StoredReading
	result := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("time desc").
		First(&stored)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	reading := stored.Reading
	return &reading, nil
}

// AddAlert persists the alert unless a row with the same dedup key already
// exists. It returns true if the alert was actually created. An empty dedupKey
// disables deduplication for this alert.
func (r *Repository) AddAlert(ctx context.Context, alert telemetry.Alert, dedupKey string) (bool, error) {
	stored := newStoredAlert(alert, dedupKey)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&stored)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// HasRecentAlert reports whether an alert of the given type was created for the
// room at or after `since`.
func (r *Repository) HasRecentAlert(ctx context.Context, roomID uuid.UUID, alertType telemetry.AlertType, since time.Time) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&StoredAlert{}).
		Where("room_id = ? AND type = ? AND time >= ?", roomID, alertType, since).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// AddAutomationLog persists the log entry unless a row with the same dedup key
// already exists. It returns true if the entry was actually created.
func (r *Repository) AddAutomationLog(ctx context.Context, entry telemetry.AutomationLog, dedupKey string) (bool, error) {
	stored := newStoredAutomationLog(entry, dedupKey)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&stored)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LatestAutomationLog returns the most recent automation action for the room,
// or nil if there is none.
func (r *Repository) LatestAutomationLog(ctx context.Context, roomID uuid.UUID) (*telemetry.AutomationLog, error) {
	var stored StoredAutomationLog
	result := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("time desc").
		First(&stored)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	entry := stored.AutomationLog
	return &entry, nil
}

// HasRecentAutomationLog reports whether an entry with the given action was
// created for the room at or after `since`.
func (r *Repository) HasRecentAutomationLog(ctx context.Context, roomID uuid.UUID, action telemetry.AutomationAction, since time.Time) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&StoredAutomationLog{}).
		Where("room_id = ? AND action = ? AND time >= ?", roomID, action, since).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Rooms returns all known rooms.
func (r *Repository) Rooms(ctx context.Context) ([]telemetry.Room, error) {
	var stored []StoredRoom
	result := r.db.WithContext(ctx).Find(&stored)
	if result.Error != nil {
		return nil, result.Error
	}
	rooms := make([]telemetry.Room, 0, len(stored))
	for _, row := range stored {
		rooms = append(rooms, row.Room)
	}
	return rooms, nil
}

// RoomByCode resolves an external room code (e.g. "B2-101") to the room record,
// or nil if the code is unknown.
func (r *Repository) RoomByCode(ctx context.Context, code string) (*telemetry.Room, error) {
	var stored StoredRoom
	result := r.db.WithContext(ctx).Where("code = ?", code).First(&stored)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	room := stored.Room
	return &room, nil
}

// TimetableFor returns the timetable slots for the room on the given weekday.
func (r *Repository) TimetableFor(ctx context.Context, roomID uuid.UUID, weekday time.Weekday) ([]telemetry.TimetableEntry, error) {
	var stored []StoredTimetableEntry
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND weekday = ?", roomID, weekday).
		Order("start_hour asc, start_minute asc").
		Find(&stored)
	if result.Error != nil {
		return nil, result.Error
	}
	entries := make([]telemetry.TimetableEntry, 0, len(stored))
	for _, row := range stored {
		entries = append(entries, row.TimetableEntry)
	}
	return entries, nil
}

// GetPendingReadings returns readings that have not been uploaded yet. When
// `fresh` is true only rows with no failed attempts are returned, otherwise
// only rows that have already failed at least one upload.
func (r *Repository) GetPendingReadings(limit int, fresh bool) ([]StoredReading, error) {
	var readings []StoredReading

	query := r.db.Limit(limit).Order("upload_attempt_count asc, time desc").Where("uploaded = ?", false)
	if fresh {
		query = query.Where("upload_attempt_count = ?", 0)
	} else {
		query = query.Where("upload_attempt_count > ?", 0)
	}
	result := query.Find(&readings)
	if result.Error != nil {
		return nil, result.Error
	}
	return readings, nil
}

// GetPendingAlerts returns alerts that have not been uploaded yet, with the
// same fresh/stale split as GetPendingReadings.
func (r *Repository) GetPendingAlerts(limit int, fresh bool) ([]StoredAlert, error) {
	var alerts []StoredAlert

	query := r.db.Limit(limit).Order("upload_attempt_count asc, time desc").Where("uploaded = ?", false)
	if fresh {
		query = query.Where("upload_attempt_count = ?", 0)
	} else {
		query = query.Where("upload_attempt_count > ?", 0)
	}
	result := query.Find(&alerts)
	if result.Error != nil {
		return nil, result.Error
	}
	return alerts, nil
}

// MarkUploaded flags the given rows as uploaded. Rows are kept locally for the
// baseline queries; archival is handled outside this service.
func (r *Repository) MarkUploaded(rows interface{}) error {
	result := r.db.Model(rows).UpdateColumn("uploaded", true)
	return result.Error
}

func (r *Repository) IncrementUploadAttemptCount(rows interface{}) error {
	result := r.db.Model(rows).UpdateColumn("upload_attempt_count", gorm.Expr("upload_attempt_count + ?", 1))
	return result.Error
}
