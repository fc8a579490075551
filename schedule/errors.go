/*
errors.go - Error taxonomy for the schedule engine

PURPOSE:
  Two severities, kept deliberately separate:

  1. Structural failures - malformed required dates reaching the engine.
     These abort the whole run (the input contract was broken upstream).
  2. Issues - recoverable data-quality conditions. These are collected on
     the run result with (policyId, recordId) attribution and never abort
     the batch: a silently-defaulted frequency, a duplicate cancellation,
     a dropped upgrade.

USAGE:
  result, err := engine.Run(events)
  if err != nil {
      // structural: nothing was produced
  }
  for _, issue := range result.Issues {
      log.Printf("%s %s: %s", issue.PolicyID, issue.Code, issue.Message)
  }

SEE ALSO:
  - engine.go: where issues are collected and structural checks run
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Structural failures, use with errors.Is()
// =============================================================================

var (
	// ErrMissingEffectiveDate means an event reached the engine with a zero
	// effective date, which the upstream contract forbids.
	ErrMissingEffectiveDate = errors.New("missing event effective date")

	// ErrMissingPolicyEnd means an event reached the engine with a zero
	// policy end date.
	ErrMissingPolicyEnd = errors.New("missing policy end date")

	// ErrEmptyRecordID means an event has no record identifier, so its rows
	// and issues could not be attributed.
	ErrEmptyRecordID = errors.New("missing record id")
)

// StructuralError attributes a structural failure to its source event.
type StructuralError struct {
	PolicyID PolicyID
	RecordID RecordID
	Err      error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("policy %s record %s: %v", e.PolicyID, e.RecordID, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// =============================================================================
// ISSUES - Collected data-quality conditions
// =============================================================================

type IssueCode string

const (
	// IssueUnknownFrequency: frequency label was not recognized and the
	// interval defaulted to monthly.
	IssueUnknownFrequency IssueCode = "unknown_frequency"

	// IssueMissingFrequency: frequency was entirely absent, so instalment
	// counts and amounts are null on this event's rows.
	IssueMissingFrequency IssueCode = "missing_frequency"

	// IssueMultipleCancellations: more than one cancellation event for one
	// policy; the earliest effective date was used.
	IssueMultipleCancellations IssueCode = "multiple_cancellations"

	// IssueUpgradeDropped: an upgrade's aligned start fell after the policy
	// end, so the event produced zero rows and its amount was dropped.
	IssueUpgradeDropped IssueCode = "upgrade_dropped"
)

// Issue is one attributable data-quality condition found during a run.
type Issue struct {
	PolicyID PolicyID  `json:"policyId"`
	RecordID RecordID  `json:"recordId,omitempty"`
	Code     IssueCode `json:"code"`
	Message  string    `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] policy=%s record=%s: %s", i.Code, i.PolicyID, i.RecordID, i.Message)
}
