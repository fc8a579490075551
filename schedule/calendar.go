package schedule

import (
	"time"
)

// =============================================================================
// DATE - Day-granular calendar date (UTC, zero time-of-day)
// =============================================================================

type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

// AddMonths advances by n calendar months, clamping the day-of-month when
// the target month is shorter (Jan 31 + 1 month = Feb 29/28, not Mar 2).
// time.AddDate normalizes overflow instead of clamping, so this is explicit.
func (d Date) AddMonths(n int) Date {
	year, month := d.Year(), int(d.Month())+n
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	day := d.Day()
	if last := daysInMonth(year, time.Month(month)); day > last {
		day = last
	}
	return NewDate(year, time.Month(month), day)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WholeMonthsBetween returns the month-granularity difference from a to b,
// ignoring day-of-month. Negative when b's month precedes a's.
func WholeMonthsBetween(a, b Date) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// MinDate and MaxDate are used by the bounds resolver.
func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// =============================================================================
// MONTH KEY - Integer YYYYMM join key for the reporting layer
// =============================================================================

type MonthKey int

func MonthKeyOf(d Date) MonthKey {
	return MonthKey(d.Year()*100 + int(d.Month()))
}

func (mk MonthKey) Year() int         { return int(mk) / 100 }
func (mk MonthKey) Month() time.Month { return time.Month(int(mk) % 100) }
