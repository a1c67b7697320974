// Package alerting turns detector and scheduler findings into persisted alerts
// and automation log entries, suppressing duplicates with per-room, per-type
// cooldown windows.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cepro/campuswatch/anomaly"
	"github.com/cepro/campuswatch/telemetry"
	"github.com/google/uuid"
)

const (
	idleCooldown             = 5 * time.Minute
	scheduleMismatchCooldown = 10 * time.Minute
	preCoolCooldown          = 15 * time.Minute

	// highPowerWasteW is the power draw above which a schedule mismatch is
	// escalated from MEDIUM to HIGH.
	highPowerWasteW = 2000.0
)

// Store is the slice of the repository the alert manager needs.
type Store interface {
	AddAlert(ctx context.Context, alert telemetry.Alert, dedupKey string) (bool, error)
	HasRecentAlert(ctx context.Context, roomID uuid.UUID, alertType telemetry.AlertType, since time.Time) (bool, error)
	AddAutomationLog(ctx context.Context, entry telemetry.AutomationLog, dedupKey string) (bool, error)
	HasRecentAutomationLog(ctx context.Context, roomID uuid.UUID, action telemetry.AutomationAction, since time.Time) (bool, error)
}

// Manager creates alerts and automation logs, enforcing cooldowns.
type Manager struct {
	store  Store
	logger *slog.Logger

	// anomalyCooldown is zero by default: every anomalous reading produces a new
	// alert. Operators who are flooded can configure a window.
	anomalyCooldown time.Duration
}

func New(store Store) *Manager {
	return &Manager{
		store:  store,
		logger: slog.Default().With("component", "alerting"),
	}
}

// SetAnomalyCooldown enables a cooldown window for ANOMALY alerts.
func (m *Manager) SetAnomalyCooldown(window time.Duration) {
	m.anomalyCooldown = window
}

// SeverityForScore maps a composite detector score to an alert severity.
func SeverityForScore(score float64) telemetry.Severity {
	switch {
	case score >= 4:
		return telemetry.SeverityCritical
	case score >= 3:
		return telemetry.SeverityHigh
	case score >= 2:
		return telemetry.SeverityMedium
	default:
		return telemetry.SeverityLow
	}
}

// RaiseAnomaly creates an ANOMALY alert for the reading. The severity comes
// from the detector's z-score band when it supplied one, otherwise from the
// composite score mapping.
func (m *Manager) RaiseAnomaly(ctx context.Context, reading telemetry.Reading, assessment anomaly.Assessment) error {

	severity := assessment.Severity
	if severity == "" {
		severity = SeverityForScore(assessment.Score)
	}

	message := assessment.Reason
	if message == "" {
		message = fmt.Sprintf("anomalous consumption of %.0fW (score %.1f)", reading.PowerW, assessment.Score)
	}

	created, err := m.raise(ctx, telemetry.Alert{
		ID:        uuid.New(),
		RoomID:    reading.RoomID,
		Time:      reading.Time,
		Type:      telemetry.AlertAnomaly,
		Severity:  severity,
		Message:   message,
		ReadingID: &reading.ID,
	}, m.anomalyCooldown)
	if err != nil {
		return err
	}
	if created {
		m.logger.Info("Raised anomaly alert", "room_id", reading.RoomID, "severity", severity, "score", assessment.Score)
	}
	return nil
}

// RaiseIdle creates an IDLE alert for the reading unless one was created for
// the room within the last 5 minutes.
func (m *Manager) RaiseIdle(ctx context.Context, reading telemetry.Reading) error {
	created, err := m.raise(ctx, telemetry.Alert{
		ID:        uuid.New(),
		RoomID:    reading.RoomID,
		Time:      reading.Time,
		Type:      telemetry.AlertIdle,
		Severity:  telemetry.SeverityLow,
		Message:   fmt.Sprintf("room drawing only %.0fW", reading.PowerW),
		ReadingID: &reading.ID,
	}, idleCooldown)
	if err != nil {
		return err
	}
	if created {
		m.logger.Info("Raised idle alert", "room_id", reading.RoomID)
	}
	return nil
}

// RaiseScheduleMismatch creates a SCHEDULE_MISMATCH alert and the paired
// AUTO_OFF automation log for a room drawing power with no class in session.
// Both are gated by the same 10 minute cooldown decision, so either both are
// created or neither is. Returns true if they were created.
func (m *Manager) RaiseScheduleMismatch(ctx context.Context, roomID uuid.UUID, powerW float64, now time.Time) (bool, error) {

	suppressed, err := m.store.HasRecentAlert(ctx, roomID, telemetry.AlertScheduleMismatch, now.Add(-scheduleMismatchCooldown))
	if err != nil {
		return false, fmt.Errorf("check schedule mismatch cooldown: %w", err)
	}
	if suppressed {
		return false, nil
	}

	severity := telemetry.SeverityMedium
	if powerW > highPowerWasteW {
		severity = telemetry.SeverityHigh
	}

	dedupKey := dedupKeyFor(roomID, string(telemetry.AlertScheduleMismatch), now, scheduleMismatchCooldown)
	created, err := m.store.AddAlert(ctx, telemetry.Alert{
		ID:       uuid.New(),
		RoomID:   roomID,
		Time:     now,
		Type:     telemetry.AlertScheduleMismatch,
		Severity: severity,
		Message:  fmt.Sprintf("room drawing %.0fW with no class in session", powerW),
	}, dedupKey)
	if err != nil {
		return false, fmt.Errorf("create schedule mismatch alert: %w", err)
	}
	if !created {
		// Lost a race with a concurrent tick; treat as suppressed
		return false, nil
	}

	_, err = m.store.AddAutomationLog(ctx, telemetry.AutomationLog{
		ID:          uuid.New(),
		RoomID:      roomID,
		Time:        now,
		Action:      telemetry.ActionAutoOff,
		Reason:      "power draw outside scheduled hours",
		PowerAtTime: powerW,
		TriggeredBy: telemetry.TriggeredByScheduler,
	}, dedupKeyFor(roomID, string(telemetry.ActionAutoOff), now, scheduleMismatchCooldown))
	if err != nil {
		return false, fmt.Errorf("create auto-off log: %w", err)
	}

	m.logger.Info("Raised schedule mismatch", "room_id", roomID, "power_w", powerW, "severity", severity)
	return true, nil
}

// RecordPreCool records a PRE_COOL automation log for a room whose next class
// is about to start. At most one entry per room per 15 minutes.
func (m *Manager) RecordPreCool(ctx context.Context, roomID uuid.UUID, powerW float64, course string, now time.Time) (bool, error) {

	suppressed, err := m.store.HasRecentAutomationLog(ctx, roomID, telemetry.ActionPreCool, now.Add(-preCoolCooldown))
	if err != nil {
		return false, fmt.Errorf("check pre-cool cooldown: %w", err)
	}
	if suppressed {
		return false, nil
	}

	created, err := m.store.AddAutomationLog(ctx, telemetry.AutomationLog{
		ID:          uuid.New(),
		RoomID:      roomID,
		Time:        now,
		Action:      telemetry.ActionPreCool,
		Reason:      fmt.Sprintf("preparing room for %s", course),
		PowerAtTime: powerW,
		TriggeredBy: telemetry.TriggeredByScheduler,
	}, dedupKeyFor(roomID, string(telemetry.ActionPreCool), now, preCoolCooldown))
	if err != nil {
		return false, fmt.Errorf("create pre-cool log: %w", err)
	}
	return created, nil
}

// raise applies the cooldown window (if any) and persists the alert.
func (m *Manager) raise(ctx context.Context, alert telemetry.Alert, cooldown time.Duration) (bool, error) {

	dedupKey := ""
	if cooldown > 0 {
		suppressed, err := m.store.HasRecentAlert(ctx, alert.RoomID, alert.Type, alert.Time.Add(-cooldown))
		if err != nil {
			return false, fmt.Errorf("check %s cooldown: %w", alert.Type, err)
		}
		if suppressed {
			return false, nil
		}
		dedupKey = dedupKeyFor(alert.RoomID, string(alert.Type), alert.Time, cooldown)
	}

	created, err := m.store.AddAlert(ctx, alert, dedupKey)
	if err != nil {
		return false, fmt.Errorf("create %s alert: %w", alert.Type, err)
	}
	return created, nil
}

// dedupKeyFor buckets time by the cooldown window, so concurrent writers in the
// same window collide on the store's unique index rather than double-inserting.
func dedupKeyFor(roomID uuid.UUID, kind string, t time.Time, window time.Duration) string {
	return fmt.Sprintf("%s|%s|%d", roomID, kind, t.Truncate(window).Unix())
}
