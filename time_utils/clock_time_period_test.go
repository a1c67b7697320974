package timeutils

import (
	"testing"
	"time"
)

func TestClockTimePeriodAbsolutePeriod(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("Failed to load Rome time: %v", err)
	}

	nineToEleven := ClockTimePeriod{
		Start: ClockTime{Hour: 9, Minute: 0, Second: 0, Location: rome},
		End:   ClockTime{Hour: 11, Minute: 0, Second: 0, Location: rome},
	}

	midnightTo2Am := ClockTimePeriod{
		Start: ClockTime{Hour: 0, Minute: 0, Second: 0, Location: rome},
		End:   ClockTime{Hour: 2, Minute: 0, Second: 0, Location: rome},
	}

	// An 'absolute' version of the nineToEleven period on the 2nd of March 2026
	nineToElevenAbsolute := Period{
		Start: time.Date(2026, 3, 2, 9, 0, 0, 0, rome),
		End:   time.Date(2026, 3, 2, 11, 0, 0, 0, rome),
	}

	subTests := []struct {
		name           string
		ctPeriod       ClockTimePeriod
		t              time.Time
		expectedPeriod Period
		expectedOK     bool
	}{
		{"OutsideBefore", nineToEleven, time.Date(2026, 3, 2, 8, 59, 59, 0, rome), Period{}, false},
		{"OutsideAfter", nineToEleven, time.Date(2026, 3, 2, 12, 0, 0, 0, rome), Period{}, false},
		{"ContainsOnStartBoundary", nineToEleven, time.Date(2026, 3, 2, 9, 0, 0, 0, rome), nineToElevenAbsolute, true},
		{"ExcludesEndBoundary", nineToEleven, time.Date(2026, 3, 2, 11, 0, 0, 0, rome), Period{}, false},
		{"ContainsInside", nineToEleven, time.Date(2026, 3, 2, 10, 30, 0, 0, rome), nineToElevenAbsolute, true},

		// Times fed in UTC must be mapped into the period's timezone before the day is derived
		{"UTCInputBeforeMidnight", midnightTo2Am, time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC), Period{}, false},
		{"UTCInputAfterMidnight", midnightTo2Am, time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC), Period{
			Start: time.Date(2026, 3, 2, 0, 0, 0, 0, rome),
			End:   time.Date(2026, 3, 2, 2, 0, 0, 0, rome),
		}, true},
	}
	for _, subTest := range subTests {
		t.Run(subTest.name, func(t *testing.T) {
			period, ok := subTest.ctPeriod.AbsolutePeriod(subTest.t)
			if ok != subTest.expectedOK {
				t.Errorf("OK boolean got %t, expected %t", ok, subTest.expectedOK)
			}
			if ok && !period.Equal(subTest.expectedPeriod) {
				t.Errorf("Period got %v, expected %v", period, subTest.expectedPeriod)
			}
		})
	}
}
