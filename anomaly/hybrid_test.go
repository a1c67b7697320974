package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHybridUnoccupiedRoomDrawingPower(t *testing.T) {
	detector := NewHybrid()

	// A fresh window has too few samples for the statistical signal, the power is
	// below the schedule-mismatch threshold, so only the occupancy signal fires.
	// That alone puts the composite score exactly on the anomaly threshold.
	assessment, err := detector.Detect(context.Background(), Observation{
		RoomID:    uuid.New(),
		Time:      time.Now(),
		PowerW:    100,
		Occupancy: 0,
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if assessment.Score != 1.5 {
		t.Errorf("Score got %v, expected exactly 1.5", assessment.Score)
	}
	if !assessment.IsAnomaly {
		t.Errorf("expected a composite score of 1.5 to be anomalous")
	}
}

func TestHybridSignalCombinations(t *testing.T) {
	subTests := []struct {
		name            string
		powerW          float64
		occupancy       int
		scheduledClass  bool
		expectedScore   float64
		expectedAnomaly bool
	}{
		{"QuietRoom", 20, 0, false, 0, false},
		{"OccupiedAndScheduled", 800, 12, true, 0, false},
		{"NoClassButDrawingPower", 300, 3, false, 1.0, false},
		{"UnoccupiedNoClassDrawingPower", 300, 0, false, 2.5, true},
		{"ClassScheduledButDark", 20, 0, true, 0.5, false},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			detector := NewHybrid()
			assessment, err := detector.Detect(context.Background(), Observation{
				RoomID:         uuid.New(),
				Time:           time.Now(),
				PowerW:         subTest.powerW,
				Occupancy:      subTest.occupancy,
				ScheduledClass: subTest.scheduledClass,
			})
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if assessment.Score != subTest.expectedScore {
				t.Errorf("Score got %v, expected %v", assessment.Score, subTest.expectedScore)
			}
			if assessment.IsAnomaly != subTest.expectedAnomaly {
				t.Errorf("IsAnomaly got %t, expected %t", assessment.IsAnomaly, subTest.expectedAnomaly)
			}
		})
	}
}

func TestHybridStatisticalSpike(t *testing.T) {
	detector := NewHybrid()
	roomID := uuid.New()
	ctx := context.Background()

	// Build up a window of unremarkable history: alternating 90W and 110W
	for i := 0; i < 20; i++ {
		power := 90.0
		if i%2 == 1 {
			power = 110.0
		}
		_, err := detector.Detect(ctx, Observation{RoomID: roomID, Time: time.Now(), PowerW: power, Occupancy: 5, ScheduledClass: true})
		if err != nil {
			t.Fatalf("Detect failed while seeding window: %v", err)
		}
	}

	// A 400W spike during a scheduled, occupied class: only the z-score fires
	assessment, err := detector.Detect(ctx, Observation{RoomID: roomID, Time: time.Now(), PowerW: 400, Occupancy: 5, ScheduledClass: true})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !assessment.IsAnomaly {
		t.Errorf("expected a large spike to be anomalous")
	}
	if assessment.Score <= 2 {
		t.Errorf("Score got %v, expected a z-score well above 2", assessment.Score)
	}
}

func TestHybridWindowsAreIndependentPerRoom(t *testing.T) {
	detector := NewHybrid()
	ctx := context.Background()
	noisyRoom := uuid.New()
	quietRoom := uuid.New()

	for i := 0; i < 30; i++ {
		_, err := detector.Detect(ctx, Observation{RoomID: noisyRoom, Time: time.Now(), PowerW: float64(100 + i*50), Occupancy: 5, ScheduledClass: true})
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
	}

	// The quiet room's first reading must not be judged against the noisy room's window
	assessment, err := detector.Detect(ctx, Observation{RoomID: quietRoom, Time: time.Now(), PowerW: 60, Occupancy: 2, ScheduledClass: true})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if assessment.Score != 0 {
		t.Errorf("Score got %v, expected 0 for a fresh room window", assessment.Score)
	}
}
