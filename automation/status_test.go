package automation

import (
	"context"
	"testing"
	"time"

	"github.com/cepro/campuswatch/telemetry"
)

func TestStatusTriState(t *testing.T) {
	fixture := newCampusFixture()

	activeRoom := fixture.addRoom("B2-101")
	wastingRoom := fixture.addRoom("B2-102")
	staleRoom := fixture.addRoom("B2-103")
	quietRoom := fixture.addRoom("B2-104")

	fixture.addClass(activeRoom, time.Monday, 9, 11, "Thermodynamics")
	fixture.addClass(wastingRoom, time.Monday, 14, 16, "Circuits")

	now := monday.Add(10 * time.Hour)
	fixture.setReading(activeRoom, now.Add(-30*time.Second), 1500)
	fixture.setReading(wastingRoom, now.Add(-30*time.Second), 800)
	fixture.setReading(staleRoom, now.Add(-150*time.Second), 3000)
	fixture.setReading(quietRoom, now.Add(-30*time.Second), 20)

	statuses, err := fixture.scheduler.Status(context.Background(), now)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(statuses) != 4 {
		t.Fatalf("got %d statuses, expected 4", len(statuses))
	}

	byCode := make(map[string]RoomStatus)
	for _, status := range statuses {
		byCode[status.Room.Code] = status
	}

	if got := byCode["B2-101"].State; got != StateActive {
		t.Errorf("room in class got state %q, expected active", got)
	}
	if byCode["B2-101"].CurrentClass == nil || byCode["B2-101"].CurrentClass.Course != "Thermodynamics" {
		t.Errorf("expected the active room to report its current class")
	}

	if got := byCode["B2-102"].State; got != StateWasting {
		t.Errorf("room drawing 800W with no class got state %q, expected wasting", got)
	}
	if byCode["B2-102"].NextClass == nil || byCode["B2-102"].NextClass.Course != "Circuits" {
		t.Errorf("expected the wasting room to report its next class")
	}

	// A stale reading counts as idle no matter how high the last power value was
	if got := byCode["B2-103"].State; got != StateIdle {
		t.Errorf("room with a stale reading got state %q, expected idle", got)
	}
	if !byCode["B2-103"].StaleReading {
		t.Errorf("expected the stale room to be marked stale")
	}

	if got := byCode["B2-104"].State; got != StateIdle {
		t.Errorf("quiet room got state %q, expected idle", got)
	}
}

func TestStatusReportsLastAutomationAction(t *testing.T) {
	fixture := newCampusFixture()
	room := fixture.addRoom("B2-101")

	now := monday.Add(12 * time.Hour)
	fixture.setReading(room, now.Add(-10*time.Second), 900)

	// A tick raises the mismatch and records the AUTO_OFF action
	fixture.scheduler.RunTick(context.Background(), now)

	statuses, err := fixture.scheduler.Status(context.Background(), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("got %d statuses, expected 1", len(statuses))
	}
	if statuses[0].LastAction == nil || statuses[0].LastAction.Action != telemetry.ActionAutoOff {
		t.Errorf("expected the status to report the AUTO_OFF action")
	}
}

func TestStatusHasNoSideEffects(t *testing.T) {
	fixture := newCampusFixture()
	room := fixture.addRoom("B2-101")

	now := monday.Add(12 * time.Hour)
	fixture.setReading(room, now.Add(-10*time.Second), 900)

	// Polling the status repeatedly must never create alerts or logs
	for i := 0; i < 5; i++ {
		_, err := fixture.scheduler.Status(context.Background(), now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
	}

	if got := fixture.store.alertCount(room.ID, telemetry.AlertScheduleMismatch); got != 0 {
		t.Errorf("got %d alerts from status polling, expected 0", got)
	}
	if got := fixture.store.logCount(room.ID, telemetry.ActionAutoOff); got != 0 {
		t.Errorf("got %d logs from status polling, expected 0", got)
	}
}
