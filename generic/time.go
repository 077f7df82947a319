package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - Calendar month in the household's local time zone
// =============================================================================

type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t, evaluated in loc.
// A nil location means time.Local.
func MonthOf(t time.Time, loc *time.Location) Month {
	t = t.In(location(loc))
	return Month{Year: t.Year(), Month: t.Month()}
}

// PersistedTime strips the zone and monotonic reading so a stored timestamp
// compares field-for-field after a JSON round trip.
func PersistedTime(t time.Time) time.Time { return t.UTC().Round(0) }

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// Index is a monotonic month counter, convenient for distances.
func (m Month) Index() int { return m.Year*12 + int(m.Month) - 1 }

func monthFromIndex(i int) Month {
	return Month{Year: i / 12, Month: time.Month(i%12 + 1)}
}

func (m Month) AddMonths(n int) Month { return monthFromIndex(m.Index() + n) }
func (m Month) Before(o Month) bool   { return m.Index() < o.Index() }
func (m Month) After(o Month) bool    { return m.Index() > o.Index() }
func (m Month) IsZero() bool          { return m.Year == 0 && m.Month == 0 }

// Start returns the first instant of the month in loc.
func (m Month) Start(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, location(loc))
}

// End returns the first instant of the following month in loc (exclusive).
func (m Month) End(loc *time.Location) time.Time {
	return m.AddMonths(1).Start(loc)
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// MonthsBetween returns the signed number of months from a to b.
func MonthsBetween(a, b Month) int { return b.Index() - a.Index() }

// DayProgress returns how far t is into its month, in (0, 1].
func DayProgress(t time.Time, loc *time.Location) float64 {
	t = t.In(location(loc))
	m := Month{Year: t.Year(), Month: t.Month()}
	return float64(t.Day()) / float64(m.DaysIn())
}
