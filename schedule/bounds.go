package schedule

// =============================================================================
// POLICY BOUNDS RESOLVER - One term window per policy
// =============================================================================

type policyBounds struct {
	Start Date
	End   Date
}

// resolvePolicyBounds aggregates min(start) / max(end) per policy. Every
// event of a policy must share one term window before any row-level stage
// runs; events can disagree when an upgrade record carries its own partial
// window.
func resolvePolicyBounds(events []PolicyEvent) map[PolicyID]policyBounds {
	bounds := make(map[PolicyID]policyBounds)
	for _, ev := range events {
		b, ok := bounds[ev.PolicyID]
		if !ok {
			bounds[ev.PolicyID] = policyBounds{Start: ev.PolicyStart, End: ev.PolicyEnd}
			continue
		}
		switch {
		case b.Start.IsZero():
			b.Start = ev.PolicyStart
		case !ev.PolicyStart.IsZero():
			b.Start = MinDate(b.Start, ev.PolicyStart)
		}
		b.End = MaxDate(b.End, ev.PolicyEnd)
		bounds[ev.PolicyID] = b
	}
	return bounds
}
