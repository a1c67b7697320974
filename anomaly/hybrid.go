package anomaly

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	hybridWindowSize   = 50
	hybridMinSamples   = 10
	hybridZThreshold   = 2.0
	hybridIdlePowerW   = 50.0
	hybridActivePowerW = 200.0

	// compositeThreshold is the composite score at and above which a reading is
	// considered anomalous.
	compositeThreshold = 1.5
)

// Hybrid combines several weak signals into one composite anomaly score: the
// z-score over a rolling in-memory window, power draw in an unoccupied room,
// and power draw that disagrees with the timetable. Each room gets its own
// window, fed by the readings the detector sees.
type Hybrid struct {
	mu      sync.Mutex
	windows map[uuid.UUID]*rollingWindow
}

func NewHybrid() *Hybrid {
	return &Hybrid{
		windows: make(map[uuid.UUID]*rollingWindow),
	}
}

func (d *Hybrid) Detect(_ context.Context, obs Observation) (Assessment, error) {

	d.mu.Lock()
	window, ok := d.windows[obs.RoomID]
	if !ok {
		window = newRollingWindow(hybridWindowSize)
		d.windows[obs.RoomID] = window
	}
	window.add(obs.PowerW)
	values := window.values()
	d.mu.Unlock()

	score := 0.0
	var reasons []string

	if len(values) >= hybridMinSamples {
		mean, stddev := meanStddev(values)
		if stddev > 0 {
			z := (obs.PowerW - mean) / stddev
			if math.Abs(z) > hybridZThreshold {
				score += z
				reasons = append(reasons, fmt.Sprintf("z-score %.1f", z))
			}
		}
	}

	if obs.Occupancy == 0 && obs.PowerW > hybridIdlePowerW {
		score += 1.5
		reasons = append(reasons, fmt.Sprintf("%.0fW drawn in unoccupied room", obs.PowerW))
	}

	if !obs.ScheduledClass && obs.PowerW > hybridActivePowerW {
		score += 1.0
		reasons = append(reasons, fmt.Sprintf("%.0fW drawn with no class scheduled", obs.PowerW))
	} else if obs.ScheduledClass && obs.PowerW < hybridIdlePowerW {
		score += 0.5
		reasons = append(reasons, fmt.Sprintf("only %.0fW drawn during a scheduled class", obs.PowerW))
	}

	return Assessment{
		IsAnomaly: score >= compositeThreshold,
		Score:     score,
		Reason:    strings.Join(reasons, "; "),
	}, nil
}

// rollingWindow keeps the most recent `size` values in insertion order.
type rollingWindow struct {
	size   int
	buffer []float64
	next   int
	full   bool
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{
		size:   size,
		buffer: make([]float64, size),
	}
}

func (w *rollingWindow) add(v float64) {
	w.buffer[w.next] = v
	w.next++
	if w.next == w.size {
		w.next = 0
		w.full = true
	}
}

func (w *rollingWindow) values() []float64 {
	if !w.full {
		return append([]float64(nil), w.buffer[:w.next]...)
	}
	return append([]float64(nil), w.buffer...)
}
