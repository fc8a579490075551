/*
allocator.go - Base and upgrade instalment allocation

PURPOSE:
  Splits an event's annualized amounts into per-instalment amounts, per
  {product x component}, for every generated row.

BASE INSTALMENTS (non-Upgrade rows):
  baseInstalment[p][c] = annual[p][c] / instalmentCount
  The same per-instalment value repeats on every row of the event; it is not
  further divided by the row count, so the sum over a full untruncated
  schedule reconciles back to the annual amount.

UPGRADE INSTALMENTS (Upgrade rows):
  The remaining annual upgrade amount is spread over the cycle-aligned
  periods left in the term: first aligned date on/after the (possibly
  realigned) effective date through policy end, stepping by the interval.
  Minimum one period; annual frequency is always exactly one.

NULL PROPAGATION:
  An absent frequency leaves the instalment count unknown (nil). Amounts on
  those rows stay nil rather than becoming zero, so the gap is visible to
  reconciliation instead of vanishing into totals.
*/
package schedule

// allocateBase divides the event's annual amounts by its instalment count.
// Returns nil when the count is unknown.
func allocateBase(annual AmountSet, count *int) AmountSet {
	if count == nil || annual == nil {
		return nil
	}
	return annual.Div(int64(*count))
}

// UpgradeInstalmentCountFor counts the cycle-aligned periods from
// alignedStart through policyEnd, minimum 1. Annual frequency is forced to
// a single instalment regardless of the remaining span.
func UpgradeInstalmentCountFor(alignedStart, policyEnd Date, intervalMonths int) int {
	if intervalMonths == IntervalAnnual {
		return 1
	}
	n := len(GenerateDates(alignedStart, policyEnd, intervalMonths))
	if n < 1 {
		return 1
	}
	return n
}

// allocateUpgrade divides the annual upgrade amounts by the remaining
// aligned period count.
func allocateUpgrade(annual AmountSet, count int) AmountSet {
	if annual == nil {
		return nil
	}
	return annual.Div(int64(count))
}
