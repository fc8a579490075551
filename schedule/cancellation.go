/*
cancellation.go - Cancellation lookup and row classification

PURPOSE:
  A policy has at most one cancellation event. Its effective date is attached
  to every schedule row of that policy, and each row is classified relative
  to it so the reporting layer can re-attribute post-cancellation remainders
  into the cancellation month.

CLASSIFICATION (evaluated in precedence order):
  1. The row's own event is a Cancellation whose effective month is at or
     after the renewal month (policy start + 12 months) -> RenewalCancellation
  2. No cancellation date on the policy                  -> NoCancellation
  3. Pay date in the cancellation's calendar month       -> InCancellationMonth
  4. Pay date after the cancellation date                -> AfterCancellation
  5. Otherwise                                           -> BeforeCancellation

DATA INTEGRITY:
  More than one cancellation event per policy is undefined upstream. The
  lookup uses the earliest effective date (deterministic) and reports the
  condition as an issue rather than joining silently.
*/
package schedule

import "fmt"

// cancellationLookup maps each policy to its single cancellation effective
// date. Built once per run, applied per row.
type cancellationLookup map[PolicyID]Date

// buildCancellationLookup scans the events for cancellation types. When a
// policy carries several, the earliest effective date wins and an issue is
// recorded per extra event.
func buildCancellationLookup(events []PolicyEvent) (cancellationLookup, []Issue) {
	lookup := make(cancellationLookup)
	var issues []Issue
	for _, ev := range events {
		if ev.Type != TxCancellation {
			continue
		}
		existing, ok := lookup[ev.PolicyID]
		if !ok {
			lookup[ev.PolicyID] = ev.EffectiveDate
			continue
		}
		issues = append(issues, Issue{
			PolicyID: ev.PolicyID,
			RecordID: ev.RecordID,
			Code:     IssueMultipleCancellations,
			Message: fmt.Sprintf("additional cancellation effective %s; keeping earliest %s",
				ev.EffectiveDate, MinDate(existing, ev.EffectiveDate)),
		})
		lookup[ev.PolicyID] = MinDate(existing, ev.EffectiveDate)
	}
	return lookup, issues
}

// classifyCancellation assigns exactly one status to a row.
func classifyCancellation(txType TransactionType, policyStart, payDate Date, cancellation *Date) CancellationStatus {
	if txType == TxCancellation && cancellation != nil {
		renewalKey := MonthKeyOf(policyStart.AddMonths(12))
		if MonthKeyOf(*cancellation) >= renewalKey {
			return StatusRenewalCancellation
		}
	}
	switch {
	case cancellation == nil:
		return StatusNoCancellation
	case payDate.SameMonth(*cancellation):
		return StatusInCancellationMonth
	case payDate.After(*cancellation):
		return StatusAfterCancellation
	default:
		return StatusBeforeCancellation
	}
}
