package timeutils

import (
	"time"
)

// ClockTimePeriod represents a period of time that is defined by local clock time, without any date information, e.g. "9am to 11am".
type ClockTimePeriod struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// AbsolutePeriod returns the equivilent `Period` instance for the given `ClockTimePeriod`, using `t` as the
// reference time that must be within the `ClockTimePeriod`.
// If `t` is outside of the `ClockTimePeriod` then the `ok` boolean is returned as false.
//
// This function is inclusive of the Period.Start, but exclusive of the Period.End: a 9am-11am
// period contains 9am exactly but not 11am exactly.
func (p *ClockTimePeriod) AbsolutePeriod(t time.Time) (Period, bool) {

	if p.Start.Location.String() != p.End.Location.String() {
		panic("Clock time period must start and end in the same timezone")
	}

	secsStart := p.Start.Hour*3600 + p.Start.Minute*60 + p.Start.Second
	secsEnd := p.End.Hour*3600 + p.End.Minute*60 + p.End.Second
	if secsEnd < secsStart {
		// Periods that cross midnight are not supported
		panic("Clock time period must end after it starts")
	}

	// Make sure that `t` is in the relevant timezone for the ClockTimePeriod configuration, otherwise the day can be wrong
	// if it is near midnight and there is a timezone offset
	t = t.In(p.Start.Location)
	year, month, day := t.Date()

	startDateTime := p.Start.OnDate(year, month, day)
	endDateTime := p.End.OnDate(year, month, day)

	isContained := (startDateTime.Before(t) && endDateTime.After(t)) || t.Equal(startDateTime)

	if !isContained {
		return Period{}, false
	}

	return Period{Start: startDateTime, End: endDateTime}, true
}

// Contains returns true if the given t is contained in the ClockTimePeriod
func (p *ClockTimePeriod) Contains(t time.Time) bool {
	_, contains := p.AbsolutePeriod(t)
	return contains
}
