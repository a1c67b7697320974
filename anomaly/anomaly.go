// Package anomaly scores power readings against a room's historical behaviour.
//
// Two detector strategies are provided: `Statistical` judges a reading purely on
// the z-score against a rolling 7-day baseline, while `Hybrid` combines the
// z-score with occupancy and timetable signals into one composite score. The
// strategy is chosen at wiring time via configuration.
package anomaly

import (
	"context"
	"math"
	"time"

	"github.com/cepro/campuswatch/telemetry"
	"github.com/google/uuid"
)

// SampleSource provides historical power samples for a room. The repository
// implements this; tests provide canned samples.
type SampleSource interface {
	PowerSamplesSince(ctx context.Context, roomID uuid.UUID, since time.Time) ([]float64, error)
}

// Observation is one reading in the form the detectors consume.
type Observation struct {
	RoomID         uuid.UUID
	Time           time.Time
	PowerW         float64
	Occupancy      int
	ScheduledClass bool
}

// Assessment is the outcome of scoring one observation.
//
// InsufficientData marks the room as having too little history to judge; it is
// a normal outcome, not an error, and always comes with IsAnomaly false.
// Severity is only set when the detector itself implies one (the statistical
// z-score bands); otherwise the alert layer maps Score to a severity.
type Assessment struct {
	IsAnomaly        bool
	Score            float64
	Severity         telemetry.Severity
	Reason           string
	InsufficientData bool
}

// Detector scores a single observation for a room.
type Detector interface {
	Detect(ctx context.Context, obs Observation) (Assessment, error)
}

// meanStddev returns the mean and population standard deviation of the values.
func meanStddev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}
