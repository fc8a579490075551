/*
engine.go - The staged schedule generation pipeline

PURPOSE:
  Composes the resolvers into one deterministic batch transformation:

    1. validate        - structural input checks (abort on failure)
    2. resolve bounds  - one term window per policy (group-by, min/max)
    3. lookup cancels  - one cancellation date per policy (group-by)
    4. expand rows     - per event: frequency -> alignment -> dates ->
                         classification -> allocation (row-local)
    5. sort rows       - stable (policyId, recordId, payDate) order

  Stages are pure functions over one run state; the input snapshot is never
  mutated. The two group-by stages must complete before row expansion; the
  expansion itself is row-local per event.

OUTPUT:
  Result.Rows in a fixed deterministic order, plus Result.Issues carrying
  every attributable data-quality condition found along the way. A run
  either completes over the full input or fails in total.

SEE ALSO:
  - frequency.go, alignment.go, generator.go: the per-event resolvers
  - cancellation.go: the per-policy lookup and the 5-way classifier
  - allocator.go: base and upgrade amount splitting
*/
package schedule

import (
	"sort"
	"strings"
)

// Engine generates payment schedules from policy lifecycle events.
// The zero value is ready to use.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Result is the output of one engine run.
type Result struct {
	EventCount int
	Rows       []ScheduleRow
	Issues     []Issue
}

// runState threads the immutable input and the accumulating output through
// the stages.
type runState struct {
	input         []PolicyEvent
	bounds        map[PolicyID]policyBounds
	cancellations cancellationLookup

	rows   []ScheduleRow
	issues []Issue
}

// stage is one step of the pipeline; stages run strictly in order and
// communicate only through the run state.
type stage func(*runState)

// Run executes the full pipeline over an immutable input snapshot.
// Structural failures (malformed required dates) abort the run; everything
// recoverable is collected on the result instead.
func (e *Engine) Run(events []PolicyEvent) (*Result, error) {
	if err := validateEvents(events); err != nil {
		return nil, err
	}

	st := &runState{input: events}
	stages := []stage{
		stageResolveBounds,        // group-by: one term window per policy
		stageLookupCancellations,  // group-by: one cancellation date per policy
		stageExpandRows,           // row-local: frequency, alignment, allocation
		stageSortRows,             // stable (policyId, recordId, payDate)
	}
	for _, s := range stages {
		s(st)
	}

	return &Result{EventCount: len(events), Rows: st.rows, Issues: st.issues}, nil
}

// =============================================================================
// VALIDATION - Structural input contract
// =============================================================================

func validateEvents(events []PolicyEvent) error {
	for _, ev := range events {
		switch {
		case ev.RecordID == "":
			return &StructuralError{PolicyID: ev.PolicyID, RecordID: ev.RecordID, Err: ErrEmptyRecordID}
		case ev.EffectiveDate.IsZero():
			return &StructuralError{PolicyID: ev.PolicyID, RecordID: ev.RecordID, Err: ErrMissingEffectiveDate}
		case ev.PolicyEnd.IsZero():
			return &StructuralError{PolicyID: ev.PolicyID, RecordID: ev.RecordID, Err: ErrMissingPolicyEnd}
		}
	}
	return nil
}

// =============================================================================
// STAGES
// =============================================================================

func stageResolveBounds(st *runState) {
	st.bounds = resolvePolicyBounds(st.input)
}

func stageLookupCancellations(st *runState) {
	lookup, issues := buildCancellationLookup(st.input)
	st.cancellations = lookup
	st.issues = append(st.issues, issues...)
}

func stageExpandRows(st *runState) {
	for _, ev := range st.input {
		st.expandEvent(ev)
	}
}

func stageSortRows(st *runState) {
	sort.SliceStable(st.rows, func(i, j int) bool {
		a, b := st.rows[i], st.rows[j]
		if a.PolicyID != b.PolicyID {
			return a.PolicyID < b.PolicyID
		}
		if a.RecordID != b.RecordID {
			return a.RecordID < b.RecordID
		}
		return a.PayDate.Before(b.PayDate)
	})
}

// =============================================================================
// PER-EVENT EXPANSION
// =============================================================================

func (st *runState) expandEvent(ev PolicyEvent) {
	bounds := st.bounds[ev.PolicyID]
	policyStart, policyEnd := bounds.Start, bounds.End

	interval, recognized := ResolveInterval(ev.PaymentFrequency)
	label := strings.TrimSpace(ev.PaymentFrequency)
	switch {
	case label == "":
		st.addIssue(ev, IssueMissingFrequency, "payment frequency absent; instalment amounts will be null")
	case !recognized:
		st.addIssue(ev, IssueUnknownFrequency, "unrecognized payment frequency "+label+"; defaulted to monthly")
	}

	count := instalmentCountFor(ev.Type, ev.PaymentFrequency)

	// Upgrades anchor on the cycle-aligned start; everything else anchors
	// on the effective date directly.
	payStart := ev.EffectiveDate
	var alignedStart *Date
	var upgradeCount *int
	var upgradeAmounts AmountSet
	if ev.Type == TxUpgrade {
		aligned, _ := AlignStart(policyStart, policyEnd, ev.EffectiveDate, interval)
		alignedStart = &aligned
		payStart = aligned
		n := UpgradeInstalmentCountFor(aligned, policyEnd, interval)
		upgradeCount = &n
		upgradeAmounts = allocateUpgrade(ev.Annual, n)
	}

	dates := GenerateDates(payStart, policyEnd, interval)
	if len(dates) == 0 {
		if ev.Type == TxUpgrade {
			st.addIssue(ev, IssueUpgradeDropped,
				"aligned start "+payStart.String()+" is past policy end "+policyEnd.String()+"; upgrade amount dropped")
		}
		return
	}

	var base AmountSet
	if ev.Type != TxUpgrade {
		base = allocateBase(ev.Annual, count)
	}

	var cancellation *Date
	var cancellationKey *MonthKey
	if c, ok := st.cancellations[ev.PolicyID]; ok {
		cancellation = &c
		mk := MonthKeyOf(c)
		cancellationKey = &mk
	}

	underwritten := MonthKeyOf(policyStart)
	for _, payDate := range dates {
		payKey := MonthKeyOf(payDate)
		st.rows = append(st.rows, ScheduleRow{
			RecordID:                      ev.RecordID,
			PolicyID:                      ev.PolicyID,
			Type:                          ev.Type,
			PayDate:                       payDate,
			PaymentMonthKey:               payKey,
			UnderwrittenMonthKey:          underwritten,
			IntervalMonths:                interval,
			AlignedStart:                  alignedStart,
			PayStart:                      payStart,
			CancellationEffectiveDate:     cancellation,
			CancellationEffectiveMonthKey: cancellationKey,
			CancellationStatus:            classifyCancellation(ev.Type, policyStart, payDate, cancellation),
			InstalmentCount:               count,
			UpgradeInstalmentCount:        upgradeCount,
			Base:                          base,
			Upgrade:                       upgradeAmounts,
		})
	}
}

func (st *runState) addIssue(ev PolicyEvent, code IssueCode, msg string) {
	st.issues = append(st.issues, Issue{
		PolicyID: ev.PolicyID,
		RecordID: ev.RecordID,
		Code:     code,
		Message:  msg,
	})
}
