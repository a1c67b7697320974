package anomaly

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cepro/campuswatch/telemetry"
)

const (
	// baselineWindow is how far back we look for the room's baseline samples.
	baselineWindow = 7 * 24 * time.Hour

	// minBaselineSamples is the minimum history needed before a reading can be judged.
	minBaselineSamples = 10

	// flatBaselineStepW is the fallback threshold used when the baseline has zero
	// variance: any reading more than this many watts above the (constant) mean
	// is flagged.
	flatBaselineStepW = 50.0
)

// Statistical flags readings whose z-score against the room's 7-day baseline is
// too high. The baseline is recomputed from the store on every call, so there is
// no cached state to go stale.
type Statistical struct {
	samples SampleSource
}

func NewStatistical(samples SampleSource) *Statistical {
	return &Statistical{samples: samples}
}

func (d *Statistical) Detect(ctx context.Context, obs Observation) (Assessment, error) {

	values, err := d.samples.PowerSamplesSince(ctx, obs.RoomID, obs.Time.Add(-baselineWindow))
	if err != nil {
		return Assessment{}, fmt.Errorf("fetch baseline samples: %w", err)
	}

	if len(values) < minBaselineSamples {
		return Assessment{
			InsufficientData: true,
			Reason:           fmt.Sprintf("only %d baseline samples, need %d", len(values), minBaselineSamples),
		}, nil
	}

	mean, stddev := meanStddev(values)

	if stddev == 0 {
		// A perfectly flat baseline gives no z-score to work with, so fall back to
		// a fixed step above the mean.
		if obs.PowerW > mean+flatBaselineStepW {
			return Assessment{
				IsAnomaly: true,
				Severity:  telemetry.SeverityMedium,
				Reason:    fmt.Sprintf("power %.0fW exceeds flat baseline of %.0fW", obs.PowerW, mean),
			}, nil
		}
		return Assessment{}, nil
	}

	z := (obs.PowerW - mean) / stddev

	assessment := Assessment{Score: math.Abs(z)}
	switch {
	case z > 3:
		assessment.IsAnomaly = true
		assessment.Severity = telemetry.SeverityHigh
	case z > 2:
		assessment.IsAnomaly = true
		assessment.Severity = telemetry.SeverityMedium
	case z > 1.5:
		assessment.IsAnomaly = true
		assessment.Severity = telemetry.SeverityLow
	}
	if assessment.IsAnomaly {
		assessment.Reason = fmt.Sprintf("power %.0fW is %.1f standard deviations above the %.0fW baseline", obs.PowerW, z, mean)
	}

	return assessment, nil
}
