package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// AlertType classifies what kind of condition an alert reports.
type AlertType string

const (
	AlertAnomaly          AlertType = "ANOMALY"
	AlertIdle             AlertType = "IDLE"
	AlertOffline          AlertType = "OFFLINE"
	AlertScheduleMismatch AlertType = "SCHEDULE_MISMATCH"
)

// Severity indicates how urgent an alert is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// AutomationAction is the action recorded against a room by the automation loop.
type AutomationAction string

const (
	ActionAutoOff   AutomationAction = "AUTO_OFF"
	ActionManualOff AutomationAction = "MANUAL_OFF"
	ActionPreCool   AutomationAction = "PRE_COOL"
)

// TriggeredBy records the origin of an automation action.
type TriggeredBy string

const (
	TriggeredByScheduler TriggeredBy = "scheduler"
	TriggeredByManual    TriggeredBy = "manual"
)

// Reading holds one normalised power-meter sample for a room, together with the
// metrics derived from it at ingestion time. Readings are never mutated after creation.
type Reading struct {
	ID             uuid.UUID
	RoomID         uuid.UUID
	Time           time.Time
	Voltage        float64
	Current        float64
	PowerW         float64
	EnergyKWH      float64
	Cost           float64
	CO2            float64
	IsAnomaly      bool
	IsIdle         bool
	AnomalyScore   float64
	Occupancy      int
	ScheduledClass bool
}

// Alert is a persisted notification about a room's consumption.
// Acknowledged is mutated only by an operator action outside this core.
type Alert struct {
	ID           uuid.UUID
	RoomID       uuid.UUID
	Time         time.Time
	Type         AlertType
	Severity     Severity
	Message      string
	ReadingID    *uuid.UUID
	Acknowledged bool
}

// AutomationLog records an action taken (or recommended) for a room by the
// automation loop or by an operator.
type AutomationLog struct {
	ID          uuid.UUID
	RoomID      uuid.UUID
	Time        time.Time
	Action      AutomationAction
	Reason      string
	PowerAtTime float64
	TriggeredBy TriggeredBy
}

// Room holds the metadata for a monitored campus room.
type Room struct {
	ID       uuid.UUID
	Code     string
	Name     string
	Building string
}

// TimetableEntry is one scheduled class slot for a room. Start is inclusive,
// End is exclusive: a class running 09:00-11:00 is in session at 09:00 but
// not at 11:00.
type TimetableEntry struct {
	ID          uuid.UUID
	RoomID      uuid.UUID
	Weekday     time.Weekday
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	Course      string
}
