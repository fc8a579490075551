package schedule

// =============================================================================
// ALIGNMENT RESOLVER - Snap upgrade starts onto the policy's payment cycle
// =============================================================================
//
// An upgrade's extra premium should, where possible, ride the policy's
// existing payment cycle rather than start on an arbitrary day. The
// reference cycle is the sequence of dates from policyStart stepping by the
// payment interval up to policyEnd, inclusive.

// ReferenceCycle returns the policy's scheduled cycle dates:
// policyStart, policyStart+interval, ... <= policyEnd.
// Dates are computed from the anchor so short-month clamping never sticks.
func ReferenceCycle(policyStart, policyEnd Date, intervalMonths int) []Date {
	var cycle []Date
	for i := 0; ; i++ {
		d := policyStart.AddMonths(i * intervalMonths)
		if d.After(policyEnd) {
			return cycle
		}
		cycle = append(cycle, d)
	}
}

// AlignStart computes the cycle-aligned start for an upgrade effective date.
//
// The offset is measured in whole months from policyStart, ignoring
// day-of-month. When the offset lands on a cycle boundary the effective date
// is already aligned and is kept as-is, day preserved. Otherwise the first
// cycle date on or after the effective date is used; if the upgrade lands
// after the last cycle date, the effective date is kept unchanged.
func AlignStart(policyStart, policyEnd, effective Date, intervalMonths int) (aligned Date, wasAligned bool) {
	offset := WholeMonthsBetween(policyStart, effective)
	if offset%intervalMonths == 0 {
		return effective, true
	}
	for _, d := range ReferenceCycle(policyStart, policyEnd, intervalMonths) {
		if d.AfterOrEqual(effective) {
			return d, false
		}
	}
	// Cycle exhausted: the upgrade lands after the last scheduled date.
	return effective, false
}
