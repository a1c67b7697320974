package forecast

import "math"

// point is a cartesian X,Y point on the prediction curve, X being the hour of
// day and Y the predicted consumption.
type point struct {
	x float64
	y float64
}

// curve is the piecewise-linear consumption curve built from hourly forecasts.
type curve struct {
	points []point
}

// predictionCurve builds a curve from the hourly points, skipping hours where
// the model produced no prediction.
func predictionCurve(hourly []HourlyPoint) curve {
	var c curve
	for _, h := range hourly {
		if h.Predicted == nil {
			continue
		}
		c.points = append(c.points, point{x: float64(h.Hour), y: *h.Predicted})
	}
	return c
}

// DeviationKW returns the vertical distance from the observed consumption to
// the predicted curve at the given hour of day, a positive number indicating
// that the observation is below the prediction, and vice-versa.
// NaN is returned if the distance could not be calculated, this can happen if
// the given hour is not within the horizontal span of the curve.
func (f *Forecast) DeviationKW(hour float64, observedKW float64) float64 {
	c := predictionCurve(f.Forecast24H)

	// Loop over each pair of points in the curve
	for i := 0; i < len(c.points)-1; i++ {
		p1 := c.points[i]
		p2 := c.points[i+1]

		// Check if the observation is 'within the vertical band' of the two current points
		if p1.x <= hour && hour <= p2.x {
			curveY := linearInterpolation(p1, p2, hour)
			return curveY - observedKW
		}
	}
	return math.NaN()
}

// linearInterpolation returns the y-value at `x` given two points.
func linearInterpolation(p1, p2 point, x float64) float64 {
	return p1.y + (x-p1.x)*((p2.y-p1.y)/(p2.x-p1.x))
}
