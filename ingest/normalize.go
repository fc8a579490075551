/*
Package ingest normalizes raw source records into clean policy events.

PURPOSE:
  The schedule engine's input contract requires parsed dates, a known
  transaction type, and monetary fields already zeroed when a policy was
  marked fully paid. This package is that upstream boundary: column
  projection, "fully paid" zeroing, optional date-range filtering, and
  per-record rejection with attributable errors. Rejected records never
  reach the engine.

COLUMN MAPPING:
  The source extract is a flat table with one monetary column per
  {product x component}. The mapping below is a data table (amountColumns),
  so a new product column is an entry, not a new branch.
*/
package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/instalment-engine/schedule"
)

const dateLayout = "2006-01-02"

// =============================================================================
// RAW RECORD - One row of the source extract, untyped
// =============================================================================

type RawRecord struct {
	RecordID           string
	PolicyID           string
	TransactionType    string
	PolicyStartDate    string
	PolicyEndDate      string
	EventEffectiveDate string
	PaymentFrequency   string
	FullyPaid          bool

	PremiumA    string
	TaxA        string
	CommissionA string
	AdminFeeA   string
	PremiumB    string
	TaxB        string
	CommissionB string
	PremiumC    string
	TaxC        string
	CommissionC string
	AdminFeeC   string
}

// amountColumns maps each monetary column onto its component key via a
// field accessor.
var amountColumns = []struct {
	key schedule.ComponentKey
	get func(RawRecord) string
}{
	{schedule.ComponentKey{Product: schedule.ProductA, Component: schedule.ComponentPremium}, func(r RawRecord) string { return r.PremiumA }},
	{schedule.ComponentKey{Product: schedule.ProductA, Component: schedule.ComponentTax}, func(r RawRecord) string { return r.TaxA }},
	{schedule.ComponentKey{Product: schedule.ProductA, Component: schedule.ComponentCommission}, func(r RawRecord) string { return r.CommissionA }},
	{schedule.ComponentKey{Product: schedule.ProductA, Component: schedule.ComponentAdminFee}, func(r RawRecord) string { return r.AdminFeeA }},
	{schedule.ComponentKey{Product: schedule.ProductB, Component: schedule.ComponentPremium}, func(r RawRecord) string { return r.PremiumB }},
	{schedule.ComponentKey{Product: schedule.ProductB, Component: schedule.ComponentTax}, func(r RawRecord) string { return r.TaxB }},
	{schedule.ComponentKey{Product: schedule.ProductB, Component: schedule.ComponentCommission}, func(r RawRecord) string { return r.CommissionB }},
	{schedule.ComponentKey{Product: schedule.ProductC, Component: schedule.ComponentPremium}, func(r RawRecord) string { return r.PremiumC }},
	{schedule.ComponentKey{Product: schedule.ProductC, Component: schedule.ComponentTax}, func(r RawRecord) string { return r.TaxC }},
	{schedule.ComponentKey{Product: schedule.ProductC, Component: schedule.ComponentCommission}, func(r RawRecord) string { return r.CommissionC }},
	{schedule.ComponentKey{Product: schedule.ProductC, Component: schedule.ComponentAdminFee}, func(r RawRecord) string { return r.AdminFeeC }},
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrBadDate            = errors.New("unparseable date")
	ErrUnknownTransaction = errors.New("unknown transaction type")
	ErrBadAmount          = errors.New("unparseable amount")
	ErrMissingRecordID    = errors.New("missing record id")
)

// Reject attributes a dropped record to its reason.
type Reject struct {
	RecordID string
	PolicyID string
	Err      error
}

func (r Reject) Error() string {
	return fmt.Sprintf("record %s (policy %s): %v", r.RecordID, r.PolicyID, r.Err)
}

func (r Reject) Unwrap() error { return r.Err }

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls normalization. A zero Options applies no filtering.
type Options struct {
	// Keep only policies whose start date falls in [From, To]. Either end
	// may be zero for an open range.
	From time.Time
	To   time.Time
}

func (o Options) inRange(start schedule.Date) bool {
	if !o.From.IsZero() && start.Time.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && start.Time.After(o.To) {
		return false
	}
	return true
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize projects raw records into engine events. Records that violate
// the contract are returned as rejects, never as events.
func Normalize(records []RawRecord, opts Options) ([]schedule.PolicyEvent, []Reject) {
	var events []schedule.PolicyEvent
	var rejects []Reject

	for _, rec := range records {
		ev, err := normalizeRecord(rec)
		if err != nil {
			rejects = append(rejects, Reject{RecordID: rec.RecordID, PolicyID: rec.PolicyID, Err: err})
			continue
		}
		if !opts.inRange(ev.PolicyStart) {
			continue
		}
		events = append(events, ev)
	}
	return events, rejects
}

func normalizeRecord(rec RawRecord) (schedule.PolicyEvent, error) {
	if strings.TrimSpace(rec.RecordID) == "" {
		return schedule.PolicyEvent{}, ErrMissingRecordID
	}

	txType, err := parseTransactionType(rec.TransactionType)
	if err != nil {
		return schedule.PolicyEvent{}, err
	}

	start, err := parseDate("policyStartDate", rec.PolicyStartDate)
	if err != nil {
		return schedule.PolicyEvent{}, err
	}
	end, err := parseDate("policyEndDate", rec.PolicyEndDate)
	if err != nil {
		return schedule.PolicyEvent{}, err
	}
	effective, err := parseDate("eventEffectiveDate", rec.EventEffectiveDate)
	if err != nil {
		return schedule.PolicyEvent{}, err
	}

	annual := schedule.NewAmountSet()
	for _, col := range amountColumns {
		v, err := parseAmount(col.get(rec))
		if err != nil {
			return schedule.PolicyEvent{}, fmt.Errorf("%s/%s: %w", col.key.Product, col.key.Component, err)
		}
		// Fully paid policies contribute nothing to the schedule.
		if rec.FullyPaid {
			v = decimal.Zero
		}
		annual.Set(col.key, v)
	}

	return schedule.PolicyEvent{
		RecordID:         schedule.RecordID(strings.TrimSpace(rec.RecordID)),
		PolicyID:         schedule.PolicyID(strings.TrimSpace(rec.PolicyID)),
		Type:             txType,
		PolicyStart:      start,
		PolicyEnd:        end,
		EffectiveDate:    effective,
		PaymentFrequency: rec.PaymentFrequency,
		Annual:           annual,
	}, nil
}

func parseTransactionType(label string) (schedule.TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "new":
		return schedule.TxNew, nil
	case "renewal":
		return schedule.TxRenewal, nil
	case "upgrade":
		return schedule.TxUpgrade, nil
	case "cancellation":
		return schedule.TxCancellation, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTransaction, label)
	}
}

func parseDate(field, value string) (schedule.Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return schedule.Date{}, fmt.Errorf("%w: %s %q", ErrBadDate, field, value)
	}
	return schedule.DateOf(t), nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrBadAmount, value)
	}
	return d, nil
}
