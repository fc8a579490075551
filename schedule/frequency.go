package schedule

import "strings"

// =============================================================================
// FREQUENCY RESOLVER - Payment frequency label -> interval in months
// =============================================================================

const (
	IntervalMonthly   = 1
	IntervalQuarterly = 3
	IntervalAnnual    = 12
)

// ResolveInterval maps a payment frequency label to an interval in months.
// Matching is case and whitespace insensitive. Anything unrecognized,
// including blank, defaults to monthly - a deliberate source behavior; the
// engine reports the default as an issue rather than hiding it.
func ResolveInterval(label string) (months int, known bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "monthly":
		return IntervalMonthly, true
	case "quarterly":
		return IntervalQuarterly, true
	case "annual":
		return IntervalAnnual, true
	default:
		return IntervalMonthly, false
	}
}

// instalmentCountFor returns how many instalments an annualized amount is
// split into for a frequency label. Cancellations are always one lump sum.
// A blank label yields nil: the count is unknown and downstream amounts
// stay null rather than becoming zero.
func instalmentCountFor(txType TransactionType, label string) *int {
	if txType == TxCancellation {
		one := 1
		return &one
	}
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "monthly":
		n := 12
		return &n
	case "quarterly":
		n := 4
		return &n
	case "annual":
		n := 1
		return &n
	case "":
		return nil
	default:
		// Unrecognized label: the interval defaulted to monthly, so the
		// count follows it.
		n := 12
		return &n
	}
}
