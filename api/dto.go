/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the engine's
  internal types from the wire contract. Dates travel as ISO strings,
  amounts as decimal strings, and the per-component amounts as maps keyed
  "premium_a", "tax_b", ... so absent keys express null sets.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Structural validation happens in ingest.Normalize and the engine; DTOs
  are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ingest/normalize.go: The record contract these mirror
*/
package api

import (
	"fmt"
	"strings"

	"github.com/warp/instalment-engine/ingest"
	"github.com/warp/instalment-engine/schedule"
	"github.com/warp/instalment-engine/store/sqlite"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// PolicyEventDTO mirrors one raw source record.
type PolicyEventDTO struct {
	RecordID           string `json:"recordId"`
	PolicyID           string `json:"policyId"`
	TransactionType    string `json:"transactionType"`
	PolicyStartDate    string `json:"policyStartDate"`
	PolicyEndDate      string `json:"policyEndDate"`
	EventEffectiveDate string `json:"eventEffectiveDate"`
	PaymentFrequency   string `json:"paymentFrequency"`
	FullyPaid          bool   `json:"fullyPaid,omitempty"`

	// Annualized amounts keyed "premium_a", "tax_a", "commission_a",
	// "admin_fee_a", "premium_b", ... Absent keys default to zero.
	Annual map[string]string `json:"annual,omitempty"`
}

// GenerateRequest carries the records for one engine run. The optional
// from/to dates filter policies by start date.
type GenerateRequest struct {
	Records []PolicyEventDTO `json:"records"`
	From    string           `json:"from,omitempty"`
	To      string           `json:"to,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ScheduleRowDTO is one generated instalment on the wire.
type ScheduleRowDTO struct {
	RecordID             string `json:"recordId"`
	PolicyID             string `json:"policyId"`
	TransactionType      string `json:"transactionType"`
	PayDate              string `json:"payDate"`
	PaymentMonthKey      int    `json:"paymentMonthKey"`
	UnderwrittenMonthKey int    `json:"underwrittenMonthKey"`
	IntervalMonths       int    `json:"intervalMonths"`

	AlignedStart *string `json:"alignedStart,omitempty"`
	PayStart     string  `json:"payStart"`

	CancellationEffectiveDate     *string `json:"cancellationEffectiveDate,omitempty"`
	CancellationEffectiveMonthKey *int    `json:"cancellationEffectiveMonthKey,omitempty"`
	CancellationStatus            string  `json:"cancellationStatus"`

	InstalmentCount        *int `json:"instalmentCount,omitempty"`
	UpgradeInstalmentCount *int `json:"upgradeInstalmentCount,omitempty"`

	Base    map[string]string `json:"base,omitempty"`
	Upgrade map[string]string `json:"upgrade,omitempty"`
}

// RejectDTO is one record the normalizer refused.
type RejectDTO struct {
	RecordID string `json:"recordId"`
	PolicyID string `json:"policyId"`
	Reason   string `json:"reason"`
}

// GenerateResponse is the output of a pure (non-persisting) run.
type GenerateResponse struct {
	Rows    []ScheduleRowDTO `json:"rows"`
	Issues  []schedule.Issue `json:"issues"`
	Rejects []RejectDTO      `json:"rejects"`
}

// CreateRunResponse is the output of a persisted run.
type CreateRunResponse struct {
	Run     *sqlite.RunSummary `json:"run"`
	Rejects []RejectDTO        `json:"rejects"`
}

// RowsResponse wraps a persisted run's rows.
type RowsResponse struct {
	RunID string           `json:"runId"`
	Rows  []ScheduleRowDTO `json:"rows"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// componentField names a component key on the wire, e.g. "admin_fee_c".
func componentField(key schedule.ComponentKey) string {
	return fmt.Sprintf("%s_%s", key.Component, strings.ToLower(string(key.Product)))
}

func toRawRecord(dto PolicyEventDTO) ingest.RawRecord {
	rec := ingest.RawRecord{
		RecordID:           dto.RecordID,
		PolicyID:           dto.PolicyID,
		TransactionType:    dto.TransactionType,
		PolicyStartDate:    dto.PolicyStartDate,
		PolicyEndDate:      dto.PolicyEndDate,
		EventEffectiveDate: dto.EventEffectiveDate,
		PaymentFrequency:   dto.PaymentFrequency,
		FullyPaid:          dto.FullyPaid,
	}

	assign := map[string]*string{
		"premium_a":    &rec.PremiumA,
		"tax_a":        &rec.TaxA,
		"commission_a": &rec.CommissionA,
		"admin_fee_a":  &rec.AdminFeeA,
		"premium_b":    &rec.PremiumB,
		"tax_b":        &rec.TaxB,
		"commission_b": &rec.CommissionB,
		"premium_c":    &rec.PremiumC,
		"tax_c":        &rec.TaxC,
		"commission_c": &rec.CommissionC,
		"admin_fee_c":  &rec.AdminFeeC,
	}
	for field, value := range dto.Annual {
		if target, ok := assign[field]; ok {
			*target = value
		}
	}
	return rec
}

func toAmountMap(set schedule.AmountSet) map[string]string {
	if set == nil {
		return nil
	}
	out := make(map[string]string, len(schedule.ComponentKeys()))
	for _, key := range schedule.ComponentKeys() {
		out[componentField(key)] = set.Get(key).String()
	}
	return out
}

func toRowDTO(row schedule.ScheduleRow) ScheduleRowDTO {
	dto := ScheduleRowDTO{
		RecordID:               string(row.RecordID),
		PolicyID:               string(row.PolicyID),
		TransactionType:        string(row.Type),
		PayDate:                row.PayDate.String(),
		PaymentMonthKey:        int(row.PaymentMonthKey),
		UnderwrittenMonthKey:   int(row.UnderwrittenMonthKey),
		IntervalMonths:         row.IntervalMonths,
		PayStart:               row.PayStart.String(),
		CancellationStatus:     string(row.CancellationStatus),
		InstalmentCount:        row.InstalmentCount,
		UpgradeInstalmentCount: row.UpgradeInstalmentCount,
		Base:                   toAmountMap(row.Base),
		Upgrade:                toAmountMap(row.Upgrade),
	}
	if row.AlignedStart != nil {
		s := row.AlignedStart.String()
		dto.AlignedStart = &s
	}
	if row.CancellationEffectiveDate != nil {
		s := row.CancellationEffectiveDate.String()
		dto.CancellationEffectiveDate = &s
	}
	if row.CancellationEffectiveMonthKey != nil {
		n := int(*row.CancellationEffectiveMonthKey)
		dto.CancellationEffectiveMonthKey = &n
	}
	return dto
}

func toRowDTOs(rows []schedule.ScheduleRow) []ScheduleRowDTO {
	dtos := make([]ScheduleRowDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toRowDTO(row))
	}
	return dtos
}

func toRejectDTOs(rejects []ingest.Reject) []RejectDTO {
	dtos := make([]RejectDTO, 0, len(rejects))
	for _, rej := range rejects {
		dtos = append(dtos, RejectDTO{
			RecordID: rej.RecordID,
			PolicyID: rej.PolicyID,
			Reason:   rej.Err.Error(),
		})
	}
	return dtos
}
