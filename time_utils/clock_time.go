package timeutils

import "time"

// ClockTime represents a time of day in the given locale, without a date.
type ClockTime struct {
	Hour     int
	Minute   int
	Second   int
	Location *time.Location
}

// OnDate returns a time with the given clock time on the given date
func (c *ClockTime) OnDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, c.Hour, c.Minute, c.Second, 0, c.Location)
}

// Period represents an absolute period between two instances in time, e.g. "2026/03/02 09:00:00 to 2026/03/02 11:00:00".
type Period struct {
	Start time.Time
	End   time.Time
}

// Equal returns true if the two periods cover the same span.
func (p *Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// Duration returns the length of the period.
func (p *Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}
