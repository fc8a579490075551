package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/instalment-engine/schedule"
)

// =============================================================================
// SCHEDULE EXPANSION
// =============================================================================

func TestEngine_MonthlyNewBusiness(t *testing.T) {
	// GIVEN: POL-9001, monthly, Jan 1 - Dec 31 2024, product A annual
	//        premium 1200 and tax 100, New event effective Jan 1
	// WHEN: Running the engine
	// THEN: 12 rows Jan 1..Dec 1, instalment count 12, premium 100.00 and
	//       tax 8.33 per row

	events := []schedule.PolicyEvent{{
		RecordID:         "rec-1",
		PolicyID:         "POL-9001",
		Type:             schedule.TxNew,
		PolicyStart:      date(2024, time.January, 1),
		PolicyEnd:        date(2024, time.December, 31),
		EffectiveDate:    date(2024, time.January, 1),
		PaymentFrequency: "monthly",
		Annual:           amounts(map[schedule.ComponentKey]string{premiumA: "1200", taxA: "100"}),
	}}

	result, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(result.Rows))
	}

	for i, row := range result.Rows {
		wantDate := date(2024, time.January, 1).AddMonths(i)
		if !row.PayDate.Equal(wantDate) {
			t.Errorf("row %d: expected pay date %s, got %s", i, wantDate, row.PayDate)
		}
		if row.InstalmentCount == nil || *row.InstalmentCount != 12 {
			t.Errorf("row %d: expected instalment count 12, got %v", i, row.InstalmentCount)
		}
		if got := row.Base.Get(premiumA).StringFixed(2); got != "100.00" {
			t.Errorf("row %d: expected premium instalment 100.00, got %s", i, got)
		}
		if got := row.Base.Get(taxA).StringFixed(2); got != "8.33" {
			t.Errorf("row %d: expected tax instalment 8.33, got %s", i, got)
		}
		if row.UnderwrittenMonthKey != 202401 {
			t.Errorf("row %d: expected underwritten key 202401, got %d", i, row.UnderwrittenMonthKey)
		}
		if row.PaymentMonthKey != schedule.MonthKeyOf(row.PayDate) {
			t.Errorf("row %d: payment month key mismatch", i)
		}
		if row.Upgrade != nil {
			t.Errorf("row %d: upgrade amounts must be nil on non-upgrade rows", i)
		}
	}
}

func TestEngine_QuarterlyUpgradeRidesTheCycle(t *testing.T) {
	// GIVEN: Quarterly policy Jan 1 - Dec 31 2024, upgrade effective
	//        May 10 with annual upgrade premium 300
	// WHEN: Offset Jan->May is 4 months, misaligned against the quarterly
	//       cycle, so the start snaps to Jul 1
	// THEN: Two upgrade rows (Jul 1, Oct 1) at 150.00 each, base nil

	events := []schedule.PolicyEvent{
		{
			RecordID:         "rec-1",
			PolicyID:         "POL-9001",
			Type:             schedule.TxNew,
			PolicyStart:      date(2024, time.January, 1),
			PolicyEnd:        date(2024, time.December, 31),
			EffectiveDate:    date(2024, time.January, 1),
			PaymentFrequency: "quarterly",
			Annual:           amounts(map[schedule.ComponentKey]string{premiumA: "1200"}),
		},
		{
			RecordID:         "rec-2",
			PolicyID:         "POL-9001",
			Type:             schedule.TxUpgrade,
			PolicyStart:      date(2024, time.January, 1),
			PolicyEnd:        date(2024, time.December, 31),
			EffectiveDate:    date(2024, time.May, 10),
			PaymentFrequency: "quarterly",
			Annual:           amounts(map[schedule.ComponentKey]string{premiumA: "300"}),
		},
	}

	result, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var upgradeRows []schedule.ScheduleRow
	for _, row := range result.Rows {
		if row.RecordID == "rec-2" {
			upgradeRows = append(upgradeRows, row)
		}
	}
	if len(upgradeRows) != 2 {
		t.Fatalf("expected 2 upgrade rows, got %d", len(upgradeRows))
	}

	wantDates := []schedule.Date{date(2024, time.July, 1), date(2024, time.October, 1)}
	for i, row := range upgradeRows {
		if !row.PayDate.Equal(wantDates[i]) {
			t.Errorf("upgrade row %d: expected %s, got %s", i, wantDates[i], row.PayDate)
		}
		if row.AlignedStart == nil || !row.AlignedStart.Equal(date(2024, time.July, 1)) {
			t.Errorf("upgrade row %d: expected aligned start 2024-07-01, got %v", i, row.AlignedStart)
		}
		if row.UpgradeInstalmentCount == nil || *row.UpgradeInstalmentCount != 2 {
			t.Errorf("upgrade row %d: expected upgrade count 2, got %v", i, row.UpgradeInstalmentCount)
		}
		if got := row.Upgrade.Get(premiumA).StringFixed(2); got != "150.00" {
			t.Errorf("upgrade row %d: expected 150.00, got %s", i, got)
		}
		if row.Base != nil {
			t.Errorf("upgrade row %d: base amounts must be nil on upgrade rows", i)
		}
	}

	// Base rows keep nil upgrade amounts.
	for _, row := range result.Rows {
		if row.RecordID == "rec-1" && row.Upgrade != nil {
			t.Errorf("base row %s: expected nil upgrade amounts", row.PayDate)
		}
	}
}

func TestEngine_UpgradePastPolicyEndDropsWithIssue(t *testing.T) {
	// GIVEN: Upgrade effective after the policy term already ended
	// THEN: Zero rows for that event, and the loss is reported

	events := []schedule.PolicyEvent{{
		RecordID:         "rec-9",
		PolicyID:         "POL-9002",
		Type:             schedule.TxUpgrade,
		PolicyStart:      date(2024, time.January, 1),
		PolicyEnd:        date(2024, time.December, 31),
		EffectiveDate:    date(2025, time.February, 10),
		PaymentFrequency: "monthly",
		Annual:           amounts(map[schedule.ComponentKey]string{premiumA: "600"}),
	}}

	result, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Fatalf("expected zero rows, got %d", len(result.Rows))
	}

	found := false
	for _, issue := range result.Issues {
		if issue.Code == schedule.IssueUpgradeDropped && issue.RecordID == "rec-9" {
			found = true
		}
	}
	if !found {
		t.Error("expected an upgrade_dropped issue")
	}
}

// =============================================================================
// BOUNDS AND FREQUENCY EDGE CASES
// =============================================================================

func TestEngine_BoundsUnifiedAcrossPolicyEvents(t *testing.T) {
	// GIVEN: Two events of one policy disagreeing on the term window
	// THEN: Both use min(start) / max(end)

	events := []schedule.PolicyEvent{
		{
			RecordID:         "rec-1",
			PolicyID:         "POL-9003",
			Type:             schedule.TxNew,
			PolicyStart:      date(2024, time.March, 1),
			PolicyEnd:        date(2024, time.June, 30),
			EffectiveDate:    date(2024, time.March, 1),
			PaymentFrequency: "annual",
			Annual:           amounts(map[schedule.ComponentKey]string{premiumA: "1200"}),
		},
		{
			RecordID:         "rec-2",
			PolicyID:         "POL-9003",
			Type:             schedule.TxRenewal,
			PolicyStart:      date(2024, time.January, 1),
			PolicyEnd:        date(2024, time.December, 31),
			EffectiveDate:    date(2024, time.July, 1),
			PaymentFrequency: "annual",
			Annual:           amounts(map[schedule.ComponentKey]string{premiumA: "1200"}),
		},
	}

	result, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, row := range result.Rows {
		if row.UnderwrittenMonthKey != 202401 {
			t.Errorf("row %s/%s: expected underwritten key 202401, got %d", row.RecordID, row.PayDate, row.UnderwrittenMonthKey)
		}
	}
}

func TestEngine_UnknownFrequencyDefaultsAndReports(t *testing.T) {
	events := []schedule.PolicyEvent{{
		RecordID:         "rec-1",
		PolicyID:         "POL-9004",
		Type:             schedule.TxNew,
		PolicyStart:      date(2024, time.January, 1),
		PolicyEnd:        date(2024, time.March, 31),
		EffectiveDate:    date(2024, time.January, 1),
		PaymentFrequency: "weekly",
		Annual:           amounts(map[schedule.ComponentKey]string{premiumA: "1200"}),
	}}

	result, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 monthly-defaulted rows, got %d", len(result.Rows))
	}
	found := false
	for _, issue := range result.Issues {
		if issue.Code == schedule.IssueUnknownFrequency {
			found = true
		}
	}
	if !found {
		t.Error("expected an unknown_frequency issue")
	}
}

func TestEngine_MissingFrequencyPropagatesNull(t *testing.T) {
	// GIVEN: An event with no frequency at all
	// THEN: Interval defaults to monthly for date generation, but the
	//       instalment count and base amounts stay null, not zero

	events := []schedule.PolicyEvent{{
		RecordID:      "rec-1",
		PolicyID:      "POL-9005",
		Type:          schedule.TxNew,
		PolicyStart:   date(2024, time.January, 1),
		PolicyEnd:     date(2024, time.March, 31),
		EffectiveDate: date(2024, time.January, 1),
		Annual:        amounts(map[schedule.ComponentKey]string{premiumA: "1200"}),
	}}

	result, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) == 0 {
		t.Fatal("expected rows")
	}
	for _, row := range result.Rows {
		if row.InstalmentCount != nil {
			t.Errorf("row %s: expected nil instalment count", row.PayDate)
		}
		if row.Base != nil {
			t.Errorf("row %s: expected nil base amounts, got %v", row.PayDate, row.Base)
		}
	}
	found := false
	for _, issue := range result.Issues {
		if issue.Code == schedule.IssueMissingFrequency {
			found = true
		}
	}
	if !found {
		t.Error("expected a missing_frequency issue")
	}
}

func TestEngine_CancellationEventIsLumpSum(t *testing.T) {
	events := cancellableEvents(date(2024, time.September, 10))
	result, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, row := range result.Rows {
		if row.RecordID != "rec-2" {
			continue
		}
		if row.InstalmentCount == nil || *row.InstalmentCount != 1 {
			t.Errorf("cancellation row %s: expected instalment count 1, got %v", row.PayDate, row.InstalmentCount)
		}
	}
}

// =============================================================================
// STRUCTURAL FAILURES
// =============================================================================

func TestEngine_MissingEffectiveDateFailsRun(t *testing.T) {
	events := []schedule.PolicyEvent{{
		RecordID:         "rec-1",
		PolicyID:         "POL-9006",
		Type:             schedule.TxNew,
		PolicyStart:      date(2024, time.January, 1),
		PolicyEnd:        date(2024, time.December, 31),
		PaymentFrequency: "monthly",
	}}

	_, err := schedule.NewEngine().Run(events)
	if err == nil {
		t.Fatal("expected a structural error")
	}
	var structural *schedule.StructuralError
	if !errors.As(err, &structural) {
		t.Fatalf("expected StructuralError, got %T", err)
	}
	if structural.PolicyID != "POL-9006" {
		t.Errorf("expected attribution to POL-9006, got %s", structural.PolicyID)
	}
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestEngine_DeterministicOutput(t *testing.T) {
	// Running twice on identical input yields identical rows in identical
	// order.

	events := cancellableEvents(date(2024, time.September, 10))
	events = append(events, schedule.PolicyEvent{
		RecordID:         "rec-5",
		PolicyID:         "POL-0001",
		Type:             schedule.TxUpgrade,
		PolicyStart:      date(2024, time.January, 1),
		PolicyEnd:        date(2024, time.December, 31),
		EffectiveDate:    date(2024, time.May, 10),
		PaymentFrequency: "quarterly",
		Annual:           amounts(map[schedule.ComponentKey]string{premiumA: "300"}),
	})

	first, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.Rows) != len(second.Rows) {
		t.Fatalf("row counts differ: %d vs %d", len(first.Rows), len(second.Rows))
	}
	for i := range first.Rows {
		a, b := first.Rows[i], second.Rows[i]
		if a.RecordID != b.RecordID || !a.PayDate.Equal(b.PayDate) || a.CancellationStatus != b.CancellationStatus {
			t.Errorf("row %d differs between runs", i)
		}
	}

	// Sorted by (policyId, recordId, payDate): POL-0001 rows come first.
	if first.Rows[0].PolicyID != "POL-0001" {
		t.Errorf("expected POL-0001 rows first, got %s", first.Rows[0].PolicyID)
	}
}

func TestEngine_StatusTotality(t *testing.T) {
	valid := map[schedule.CancellationStatus]bool{
		schedule.StatusNoCancellation:      true,
		schedule.StatusBeforeCancellation:  true,
		schedule.StatusInCancellationMonth: true,
		schedule.StatusAfterCancellation:   true,
		schedule.StatusRenewalCancellation: true,
	}

	events := cancellableEvents(date(2024, time.September, 10))
	result, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, row := range result.Rows {
		if !valid[row.CancellationStatus] {
			t.Errorf("row %s: invalid status %q", row.PayDate, row.CancellationStatus)
		}
	}
}

func TestEngine_BaseInstalmentsReconcileToAnnual(t *testing.T) {
	// For an untruncated New event, the sum of base instalments across the
	// event's rows reconciles to the annual amount within a cent.

	events := []schedule.PolicyEvent{{
		RecordID:         "rec-1",
		PolicyID:         "POL-9007",
		Type:             schedule.TxNew,
		PolicyStart:      date(2024, time.January, 1),
		PolicyEnd:        date(2024, time.December, 31),
		EffectiveDate:    date(2024, time.January, 1),
		PaymentFrequency: "monthly",
		Annual:           amounts(map[schedule.ComponentKey]string{premiumA: "1200", taxA: "100"}),
	}}

	result, err := schedule.NewEngine().Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range []schedule.ComponentKey{premiumA, taxA} {
		sum := dec("0")
		for _, row := range result.Rows {
			sum = sum.Add(row.Base.Get(key))
		}
		want := events[0].Annual.Get(key)
		if sum.Sub(want).Abs().GreaterThan(dec("0.01")) {
			t.Errorf("%v: sum %s does not reconcile to annual %s", key, sum, want)
		}
	}
}
