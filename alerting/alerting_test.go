package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/cepro/campuswatch/anomaly"
	"github.com/cepro/campuswatch/telemetry"
	"github.com/google/uuid"
)

// memoryStore mimics the repository's alert persistence, including the unique
// dedup key behaviour.
type memoryStore struct {
	alerts    []telemetry.Alert
	logs      []telemetry.AutomationLog
	dedupKeys map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{dedupKeys: make(map[string]bool)}
}

func (s *memoryStore) AddAlert(_ context.Context, alert telemetry.Alert, dedupKey string) (bool, error) {
	if dedupKey == "" {
		dedupKey = alert.ID.String()
	}
	if s.dedupKeys[dedupKey] {
		return false, nil
	}
	s.dedupKeys[dedupKey] = true
	s.alerts = append(s.alerts, alert)
	return true, nil
}

func (s *memoryStore) HasRecentAlert(_ context.Context, roomID uuid.UUID, alertType telemetry.AlertType, since time.Time) (bool, error) {
	for _, alert := range s.alerts {
		if alert.RoomID == roomID && alert.Type == alertType && !alert.Time.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) AddAutomationLog(_ context.Context, entry telemetry.AutomationLog, dedupKey string) (bool, error) {
	if dedupKey == "" {
		dedupKey = entry.ID.String()
	}
	if s.dedupKeys[dedupKey] {
		return false, nil
	}
	s.dedupKeys[dedupKey] = true
	s.logs = append(s.logs, entry)
	return true, nil
}

func (s *memoryStore) HasRecentAutomationLog(_ context.Context, roomID uuid.UUID, action telemetry.AutomationAction, since time.Time) (bool, error) {
	for _, entry := range s.logs {
		if entry.RoomID == roomID && entry.Action == action && !entry.Time.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func TestSeverityForScore(t *testing.T) {
	subTests := []struct {
		score    float64
		expected telemetry.Severity
	}{
		{4.5, telemetry.SeverityCritical},
		{4, telemetry.SeverityCritical},
		{3.2, telemetry.SeverityHigh},
		{2.1, telemetry.SeverityMedium},
		{1.9, telemetry.SeverityLow},
		{0, telemetry.SeverityLow},
	}
	for _, subTest := range subTests {
		if got := SeverityForScore(subTest.score); got != subTest.expected {
			t.Errorf("SeverityForScore(%v) got %s, expected %s", subTest.score, got, subTest.expected)
		}
	}
}

func TestIdleAlertCooldown(t *testing.T) {
	store := newMemoryStore()
	manager := New(store)
	ctx := context.Background()
	roomID := uuid.New()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	reading := func(at time.Time) telemetry.Reading {
		return telemetry.Reading{ID: uuid.New(), RoomID: roomID, Time: at, PowerW: 12, IsIdle: true}
	}

	if err := manager.RaiseIdle(ctx, reading(base)); err != nil {
		t.Fatalf("RaiseIdle failed: %v", err)
	}
	if err := manager.RaiseIdle(ctx, reading(base.Add(2*time.Minute))); err != nil {
		t.Fatalf("RaiseIdle failed: %v", err)
	}
	if len(store.alerts) != 1 {
		t.Fatalf("got %d alerts after two raises within the cooldown, expected 1", len(store.alerts))
	}

	// Once the 5 minute window has passed a new alert is allowed
	if err := manager.RaiseIdle(ctx, reading(base.Add(6*time.Minute))); err != nil {
		t.Fatalf("RaiseIdle failed: %v", err)
	}
	if len(store.alerts) != 2 {
		t.Errorf("got %d alerts after the cooldown expired, expected 2", len(store.alerts))
	}
}

func TestAnomalyAlertsHaveNoCooldownByDefault(t *testing.T) {
	store := newMemoryStore()
	manager := New(store)
	ctx := context.Background()
	roomID := uuid.New()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	assessment := anomaly.Assessment{IsAnomaly: true, Score: 3.5, Severity: telemetry.SeverityHigh}
	for i := 0; i < 3; i++ {
		reading := telemetry.Reading{ID: uuid.New(), RoomID: roomID, Time: base.Add(time.Duration(i) * time.Second), PowerW: 4000}
		if err := manager.RaiseAnomaly(ctx, reading, assessment); err != nil {
			t.Fatalf("RaiseAnomaly failed: %v", err)
		}
	}
	if len(store.alerts) != 3 {
		t.Errorf("got %d alerts, expected 3 (no cooldown on anomalies)", len(store.alerts))
	}
}

func TestAnomalyAlertCooldownWhenConfigured(t *testing.T) {
	store := newMemoryStore()
	manager := New(store)
	manager.SetAnomalyCooldown(10 * time.Minute)
	ctx := context.Background()
	roomID := uuid.New()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	assessment := anomaly.Assessment{IsAnomaly: true, Score: 2.5}
	for i := 0; i < 3; i++ {
		reading := telemetry.Reading{ID: uuid.New(), RoomID: roomID, Time: base.Add(time.Duration(i) * time.Minute), PowerW: 4000}
		if err := manager.RaiseAnomaly(ctx, reading, assessment); err != nil {
			t.Fatalf("RaiseAnomaly failed: %v", err)
		}
	}
	if len(store.alerts) != 1 {
		t.Errorf("got %d alerts, expected 1 under a 10 minute cooldown", len(store.alerts))
	}
}

func TestAnomalySeverityFallsBackToScoreMapping(t *testing.T) {
	store := newMemoryStore()
	manager := New(store)
	ctx := context.Background()

	// The hybrid detector leaves Severity empty, so the score mapping applies
	reading := telemetry.Reading{ID: uuid.New(), RoomID: uuid.New(), Time: time.Now(), PowerW: 900}
	err := manager.RaiseAnomaly(ctx, reading, anomaly.Assessment{IsAnomaly: true, Score: 4.2})
	if err != nil {
		t.Fatalf("RaiseAnomaly failed: %v", err)
	}
	if len(store.alerts) != 1 {
		t.Fatalf("got %d alerts, expected 1", len(store.alerts))
	}
	if store.alerts[0].Severity != telemetry.SeverityCritical {
		t.Errorf("Severity got %s, expected CRITICAL", store.alerts[0].Severity)
	}
}

func TestScheduleMismatchPairsAlertAndLog(t *testing.T) {
	store := newMemoryStore()
	manager := New(store)
	ctx := context.Background()
	roomID := uuid.New()
	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	created, err := manager.RaiseScheduleMismatch(ctx, roomID, 800, base)
	if err != nil {
		t.Fatalf("RaiseScheduleMismatch failed: %v", err)
	}
	if !created {
		t.Fatalf("expected the first mismatch to be created")
	}
	if len(store.alerts) != 1 || len(store.logs) != 1 {
		t.Fatalf("got %d alerts and %d logs, expected 1 and 1", len(store.alerts), len(store.logs))
	}
	if store.alerts[0].Severity != telemetry.SeverityMedium {
		t.Errorf("Severity got %s, expected MEDIUM at 800W", store.alerts[0].Severity)
	}
	if store.logs[0].Action != telemetry.ActionAutoOff {
		t.Errorf("Action got %s, expected AUTO_OFF", store.logs[0].Action)
	}
	if store.logs[0].TriggeredBy != telemetry.TriggeredByScheduler {
		t.Errorf("TriggeredBy got %s, expected scheduler", store.logs[0].TriggeredBy)
	}

	// A second tick two minutes later must be suppressed entirely: no second
	// alert and no second log
	created, err = manager.RaiseScheduleMismatch(ctx, roomID, 800, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("RaiseScheduleMismatch failed: %v", err)
	}
	if created {
		t.Errorf("expected the second mismatch within the cooldown to be suppressed")
	}
	if len(store.alerts) != 1 || len(store.logs) != 1 {
		t.Errorf("got %d alerts and %d logs after the suppressed tick, expected 1 and 1", len(store.alerts), len(store.logs))
	}
}

func TestScheduleMismatchSeverityEscalatesOnHighPower(t *testing.T) {
	store := newMemoryStore()
	manager := New(store)

	created, err := manager.RaiseScheduleMismatch(context.Background(), uuid.New(), 2500, time.Now())
	if err != nil {
		t.Fatalf("RaiseScheduleMismatch failed: %v", err)
	}
	if !created {
		t.Fatalf("expected the mismatch to be created")
	}
	if store.alerts[0].Severity != telemetry.SeverityHigh {
		t.Errorf("Severity got %s, expected HIGH at 2500W", store.alerts[0].Severity)
	}
}

func TestPreCoolCooldown(t *testing.T) {
	store := newMemoryStore()
	manager := New(store)
	ctx := context.Background()
	roomID := uuid.New()
	base := time.Date(2026, 3, 2, 8, 50, 0, 0, time.UTC)

	created, err := manager.RecordPreCool(ctx, roomID, 20, "Thermodynamics", base)
	if err != nil {
		t.Fatalf("RecordPreCool failed: %v", err)
	}
	if !created {
		t.Fatalf("expected the first pre-cool to be recorded")
	}

	created, err = manager.RecordPreCool(ctx, roomID, 20, "Thermodynamics", base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("RecordPreCool failed: %v", err)
	}
	if created {
		t.Errorf("expected the second pre-cool within the cooldown to be suppressed")
	}
	if len(store.logs) != 1 {
		t.Errorf("got %d logs, expected 1", len(store.logs))
	}
}
