package schedule

// =============================================================================
// SCHEDULE DATE GENERATOR - Expand an anchor into dated instalments
// =============================================================================

// GenerateDates returns the finite sequence of scheduled payment dates:
// payStart, payStart+interval, ... while <= policyEnd (inclusive).
//
// Each date is computed from the anchor, not from the previous date, so a
// day-of-month clamped at a short month (Jan 31 -> Feb 29) springs back in
// later months (Mar 31) instead of sticking at the clamped day.
//
// When payStart is already past policyEnd the sequence is empty: the event
// contributes zero rows. For upgrades that means the amount is dropped; the
// engine surfaces this as an issue instead of losing it silently.
func GenerateDates(payStart, policyEnd Date, intervalMonths int) []Date {
	var dates []Date
	for i := 0; ; i++ {
		d := payStart.AddMonths(i * intervalMonths)
		if d.After(policyEnd) {
			return dates
		}
		dates = append(dates, d)
	}
}
