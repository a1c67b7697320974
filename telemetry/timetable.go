package telemetry

import (
	"time"

	timeutils "github.com/cepro/campuswatch/time_utils"
)

// ClockPeriod returns the clock-time period of the timetable slot in the given location.
func (e *TimetableEntry) ClockPeriod(loc *time.Location) timeutils.ClockTimePeriod {
	return timeutils.ClockTimePeriod{
		Start: timeutils.ClockTime{Hour: e.StartHour, Minute: e.StartMinute, Location: loc},
		End:   timeutils.ClockTime{Hour: e.EndHour, Minute: e.EndMinute, Location: loc},
	}
}

// InSessionAt reports whether the class slot is running at `t`. The start of the
// slot is inclusive and the end is exclusive.
func (e *TimetableEntry) InSessionAt(t time.Time, loc *time.Location) bool {
	if t.In(loc).Weekday() != e.Weekday {
		return false
	}
	period := e.ClockPeriod(loc)
	return period.Contains(t)
}

// StartsAt returns the absolute start time of the slot on the day of `t`, which is
// useful for "next class" lookups. The second return is false if the slot is not
// on the same weekday as `t`.
func (e *TimetableEntry) StartsAt(t time.Time, loc *time.Location) (time.Time, bool) {
	local := t.In(loc)
	if local.Weekday() != e.Weekday {
		return time.Time{}, false
	}
	year, month, day := local.Date()
	start := timeutils.ClockTime{Hour: e.StartHour, Minute: e.StartMinute, Location: loc}
	return start.OnDate(year, month, day), true
}
