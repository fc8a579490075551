package schedule_test

import (
	"testing"
	"time"

	"github.com/warp/instalment-engine/schedule"
)

// =============================================================================
// TEST HELPERS (shared across the package's tests)
// =============================================================================

func date(year int, month time.Month, day int) schedule.Date {
	return schedule.NewDate(year, month, day)
}

// =============================================================================
// MONTH ARITHMETIC
// =============================================================================

func TestAddMonths_ClampsShortMonths(t *testing.T) {
	// GIVEN: Jan 31
	// WHEN: Adding one month
	// THEN: Clamped to the last day of February, not normalized into March

	got := date(2024, time.January, 31).AddMonths(1)
	want := date(2024, time.February, 29) // 2024 is a leap year
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}

	got = date(2023, time.January, 31).AddMonths(1)
	want = date(2023, time.February, 28)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestAddMonths_CrossesYearBoundary(t *testing.T) {
	got := date(2024, time.November, 15).AddMonths(3)
	want := date(2025, time.February, 15)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestAddMonths_TwelveMonthsIsNextYear(t *testing.T) {
	got := date(2024, time.January, 1).AddMonths(12)
	want := date(2025, time.January, 1)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestWholeMonthsBetween_IgnoresDayOfMonth(t *testing.T) {
	// GIVEN: Jan 1 and May 10
	// THEN: 4 whole months, regardless of the day difference

	if got := schedule.WholeMonthsBetween(date(2024, time.January, 1), date(2024, time.May, 10)); got != 4 {
		t.Errorf("expected 4 months, got %d", got)
	}
	if got := schedule.WholeMonthsBetween(date(2024, time.January, 31), date(2024, time.February, 1)); got != 1 {
		t.Errorf("expected 1 month, got %d", got)
	}
	if got := schedule.WholeMonthsBetween(date(2024, time.May, 1), date(2024, time.January, 1)); got != -4 {
		t.Errorf("expected -4 months, got %d", got)
	}
}

// =============================================================================
// MONTH KEYS
// =============================================================================

func TestMonthKeyOf(t *testing.T) {
	if got := schedule.MonthKeyOf(date(2024, time.September, 10)); got != 202409 {
		t.Errorf("expected 202409, got %d", got)
	}
	if got := schedule.MonthKeyOf(date(2025, time.January, 1)); got != 202501 {
		t.Errorf("expected 202501, got %d", got)
	}
}
