// Package tariff derives billing and emission metrics from raw meter samples.
// All functions are pure so the same sample always produces the same metrics.
package tariff

import "math"

// DefaultIdleThresholdW is the power draw below which a room is considered idle.
const DefaultIdleThresholdW = 50.0

// Rates holds the campus-wide constants used to derive metrics from a sample.
// They come from campus configuration, not from the meter.
type Rates struct {
	CostPerKWH     float64 // currency units per kWh
	CO2PerKWH      float64 // kg of CO2 per kWh
	IdleThresholdW float64 // watts; zero means DefaultIdleThresholdW
}

// Metrics is the derived view of one sample.
type Metrics struct {
	Cost   float64
	CO2    float64
	IsIdle bool
}

// Derive computes the cost, CO2 and idle flag for a sample with the given
// power draw (watts) and energy consumption (kWh). Cost is rounded to 2
// decimal places and CO2 to 3, matching the precision the billing side stores.
func Derive(powerW, energyKWH float64, rates Rates) Metrics {
	threshold := rates.IdleThresholdW
	if threshold == 0 {
		threshold = DefaultIdleThresholdW
	}
	return Metrics{
		Cost:   roundTo(energyKWH*rates.CostPerKWH, 2),
		CO2:    roundTo(energyKWH*rates.CO2PerKWH, 3),
		IsIdle: powerW < threshold,
	}
}

// roundTo rounds half away from zero to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
