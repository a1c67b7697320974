package repository

import "github.com/cepro/campuswatch/telemetry"

// StoredReading is a reading persisted to the SQLite database, with bookkeeping
// for the cloud upload. Readings are never deleted by this service, only marked
// as uploaded.
type StoredReading struct {
	telemetry.Reading
	Uploaded           bool `gorm:"index"`
	UploadAttemptCount uint
}

// StoredAlert is an alert persisted to the SQLite database. DedupKey carries a
// unique index so that two concurrent writers racing on the same cooldown
// window cannot both insert.
type StoredAlert struct {
	telemetry.Alert
	DedupKey           string `gorm:"uniqueIndex"`
	Uploaded           bool   `gorm:"index"`
	UploadAttemptCount uint
}

// StoredAutomationLog is an automation log entry persisted to the SQLite database.
type StoredAutomationLog struct {
	telemetry.AutomationLog
	DedupKey string `gorm:"uniqueIndex"`
}

// StoredRoom is a room row. Room management is handled elsewhere; this service
// only reads them.
type StoredRoom struct {
	telemetry.Room
}

// StoredTimetableEntry is a timetable row. Timetable management is handled
// elsewhere; this service only reads them.
type StoredTimetableEntry struct {
	telemetry.TimetableEntry
}

func newStoredReading(reading telemetry.Reading) StoredReading {
	return StoredReading{
		Reading:            reading,
		Uploaded:           false,
		UploadAttemptCount: 0,
	}
}

func newStoredAlert(alert telemetry.Alert, dedupKey string) StoredAlert {
	if dedupKey == "" {
		// No cooldown applies, so every alert gets its own key
		dedupKey = alert.ID.String()
	}
	return StoredAlert{
		Alert:              alert,
		DedupKey:           dedupKey,
		Uploaded:           false,
		UploadAttemptCount: 0,
	}
}

func newStoredAutomationLog(entry telemetry.AutomationLog, dedupKey string) StoredAutomationLog {
	if dedupKey == "" {
		dedupKey = entry.ID.String()
	}
	return StoredAutomationLog{
		AutomationLog: entry,
		DedupKey:      dedupKey,
	}
}
