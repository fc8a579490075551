/*
Package schedule implements the payment schedule generation engine.

PURPOSE:
  This package turns a set of immutable policy lifecycle events into a set of
  dated, component-level instalment rows. For every policy it answers, in an
  auditable way, "how much is due, for which component, on which date" -
  including cycle alignment for mid-term upgrades and status classification
  relative to cancellation.

KEY CONCEPTS IN THIS FILE (types.go):
  - PolicyEvent: An immutable lifecycle event (New, Renewal, Upgrade,
    Cancellation) carrying annualized amounts per product and component
  - ScheduleRow: One scheduled instalment, the engine's only output
  - ComponentKey: A {product, component} pair; all per-product logic in the
    engine iterates over the explicit enumeration in ComponentKeys()
  - AmountSet: Annualized or per-instalment amounts keyed by ComponentKey

DESIGN PRINCIPLES:
  1. Immutability: events are never modified; rows are built once per run
  2. Precision: decimal.Decimal for money, no floating-point division
  3. Determinism: identical input produces identical output in a fixed order
  4. Attributability: every data-quality issue names its policy and record

USAGE:
  events := []schedule.PolicyEvent{...}
  result, err := schedule.NewEngine().Run(events)
  for _, row := range result.Rows {
      fmt.Println(row.PayDate, row.PaymentMonthKey, row.Base)
  }

SEE ALSO:
  - calendar.go: Date arithmetic and YYYYMM month keys
  - engine.go: The staged pipeline that produces ScheduleRows
  - allocator.go: Base and upgrade instalment computation
*/
package schedule

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RecordID string
type PolicyID string

// =============================================================================
// TRANSACTION TYPE - Policy lifecycle event kind
// =============================================================================

type TransactionType string

const (
	TxNew          TransactionType = "new"
	TxRenewal      TransactionType = "renewal"
	TxUpgrade      TransactionType = "upgrade"
	TxCancellation TransactionType = "cancellation"
)

// =============================================================================
// PRODUCTS AND COMPONENTS
// =============================================================================

type Product string

const (
	ProductA Product = "A"
	ProductB Product = "B"
	ProductC Product = "C"
)

type Component string

const (
	ComponentPremium    Component = "premium"
	ComponentTax        Component = "tax"
	ComponentCommission Component = "commission"
	ComponentAdminFee   Component = "admin_fee"
)

// ComponentKey identifies one monetary column: a product crossed with a
// component. The engine never branches per product; it loops over the
// enumeration below, so adding a product is a data change.
type ComponentKey struct {
	Product   Product
	Component Component
}

// componentKeys is the canonical enumeration. Admin fee exists for products
// A and C only.
var componentKeys = []ComponentKey{
	{ProductA, ComponentPremium},
	{ProductA, ComponentTax},
	{ProductA, ComponentCommission},
	{ProductA, ComponentAdminFee},
	{ProductB, ComponentPremium},
	{ProductB, ComponentTax},
	{ProductB, ComponentCommission},
	{ProductC, ComponentPremium},
	{ProductC, ComponentTax},
	{ProductC, ComponentCommission},
	{ProductC, ComponentAdminFee},
}

// ComponentKeys returns the full {product x component} enumeration in its
// canonical order.
func ComponentKeys() []ComponentKey {
	keys := make([]ComponentKey, len(componentKeys))
	copy(keys, componentKeys)
	return keys
}

// =============================================================================
// AMOUNT SET - Monetary amounts keyed by {product x component}
// =============================================================================

// AmountSet holds one decimal per ComponentKey. A nil AmountSet means "no
// amounts apply" (e.g., base instalments on an Upgrade row) and is distinct
// from an AmountSet of zeros.
type AmountSet map[ComponentKey]decimal.Decimal

func NewAmountSet() AmountSet {
	return make(AmountSet, len(componentKeys))
}

// Get returns the amount for a key, zero when absent.
func (as AmountSet) Get(key ComponentKey) decimal.Decimal {
	if as == nil {
		return decimal.Zero
	}
	return as[key]
}

func (as AmountSet) Set(key ComponentKey, v decimal.Decimal) {
	as[key] = v
}

// Div returns a new AmountSet with every component divided by n.
func (as AmountSet) Div(n int64) AmountSet {
	if as == nil {
		return nil
	}
	divisor := decimal.NewFromInt(n)
	out := make(AmountSet, len(as))
	for k, v := range as {
		out[k] = v.Div(divisor)
	}
	return out
}

// Clone returns an independent copy.
func (as AmountSet) Clone() AmountSet {
	if as == nil {
		return nil
	}
	out := make(AmountSet, len(as))
	for k, v := range as {
		out[k] = v
	}
	return out
}

// IsZero reports whether every component is zero (or the set is empty).
func (as AmountSet) IsZero() bool {
	for _, v := range as {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

// =============================================================================
// POLICY EVENT - Engine input
// =============================================================================

// PolicyEvent is one immutable lifecycle event of a policy. The upstream
// normalization stage guarantees a non-zero EffectiveDate and PolicyEnd and
// monetary fields already zeroed under the "fully paid" rule.
type PolicyEvent struct {
	RecordID RecordID
	PolicyID PolicyID
	Type     TransactionType

	// Term bounds. The engine's bounds resolver rewrites these so every
	// event of one policy shares one window (min start, max end).
	PolicyStart Date
	PolicyEnd   Date

	// Date the event takes effect (already derived upstream).
	EffectiveDate Date

	// Payment frequency label: "monthly", "quarterly", "annual", or blank.
	PaymentFrequency string

	// Annualized amounts per {product x component}.
	Annual AmountSet
}

// =============================================================================
// CANCELLATION STATUS
// =============================================================================

// CancellationStatus classifies a row's pay date relative to the policy's
// cancellation effective date. Every row gets exactly one status.
type CancellationStatus string

const (
	StatusNoCancellation      CancellationStatus = "no_cancellation"
	StatusBeforeCancellation  CancellationStatus = "before_cancellation"
	StatusInCancellationMonth CancellationStatus = "in_cancellation_month"
	StatusAfterCancellation   CancellationStatus = "after_cancellation"
	StatusRenewalCancellation CancellationStatus = "renewal_cancellation"
)

// =============================================================================
// SCHEDULE ROW - Engine output
// =============================================================================

// ScheduleRow is one scheduled instalment for one event. Identity is
// (RecordID, PayDate). Rows are immutable once produced.
type ScheduleRow struct {
	RecordID RecordID
	PolicyID PolicyID
	Type     TransactionType

	PayDate              Date
	PaymentMonthKey      MonthKey
	UnderwrittenMonthKey MonthKey

	IntervalMonths int

	// AlignedStart is set for Upgrade rows only; PayStart is the actual
	// generation anchor for every row.
	AlignedStart *Date
	PayStart     Date

	CancellationEffectiveDate     *Date
	CancellationEffectiveMonthKey *MonthKey
	CancellationStatus            CancellationStatus

	// Nil counts mean "unknown" (missing frequency), propagated rather
	// than computed as zero. UpgradeInstalmentCount is Upgrade rows only.
	InstalmentCount        *int
	UpgradeInstalmentCount *int

	// Base is nil on Upgrade rows; Upgrade is nil on non-Upgrade rows.
	// A non-nil empty set is distinct: it means "applies, all zero".
	Base    AmountSet
	Upgrade AmountSet
}
