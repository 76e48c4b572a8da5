package allocation

import (
	"github.com/google/uuid"
)

// MaterializationStatus summarizes a materialization run
type MaterializationStatus string

const (
	// MaterializationCompleted means every item landed as records.
	MaterializationCompleted MaterializationStatus = "COMPLETED"
	// MaterializationDegraded means at least one item failed to resolve;
	// the failures are listed and must reach the caller.
	MaterializationDegraded MaterializationStatus = "DEGRADED"
)

// String returns the string representation of MaterializationStatus
func (s MaterializationStatus) String() string {
	return string(s)
}

// MonthOutcome records one allocation row written during materialization
type MonthOutcome struct {
	Month     int       `json:"month"`
	RecordID  uuid.UUID `json:"record_id"`
	RubroCode string    `json:"rubro_code"`
}

// ItemFailure records one baseline item that could not materialize.
// The raw identifier is kept verbatim so the caller can remediate it.
type ItemFailure struct {
	RubroID  string `json:"rubro_id"`
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

// MonthFailure records one month whose allocation row failed to persist
// while its sibling months went through.
type MonthFailure struct {
	Month     int    `json:"month"`
	RubroCode string `json:"rubro_code"`
	Reason    string `json:"reason"`
}

// MaterializationResult is the caller-visible outcome of materializing
// one or more baseline items. A non-empty failure list makes the result
// degraded; it is never collapsed into a silent success.
type MaterializationResult struct {
	ProjectID     uuid.UUID             `json:"project_id"`
	BaselineID    uuid.UUID             `json:"baseline_id"`
	Status        MaterializationStatus `json:"status"`
	Outcomes      []MonthOutcome        `json:"outcomes"`
	Failures      []ItemFailure         `json:"failures,omitempty"`
	MonthFailures []MonthFailure        `json:"month_failures,omitempty"`
}

// NewMaterializationResult creates an empty result for a run
func NewMaterializationResult(projectID, baselineID uuid.UUID) *MaterializationResult {
	return &MaterializationResult{
		ProjectID:  projectID,
		BaselineID: baselineID,
		Status:     MaterializationCompleted,
		Outcomes:   make([]MonthOutcome, 0),
	}
}

// RecordOutcome appends one written month
func (r *MaterializationResult) RecordOutcome(month int, recordID uuid.UUID, rubroCode string) {
	r.Outcomes = append(r.Outcomes, MonthOutcome{
		Month:     month,
		RecordID:  recordID,
		RubroCode: rubroCode,
	})
}

// RecordFailure appends one failed item and degrades the result
func (r *MaterializationResult) RecordFailure(rubroID string, position int, reason string) {
	r.Failures = append(r.Failures, ItemFailure{
		RubroID:  rubroID,
		Position: position,
		Reason:   reason,
	})
	r.Status = MaterializationDegraded
}

// RecordMonthFailure appends one failed month and degrades the result.
// Sibling months are unaffected; the caller keeps going.
func (r *MaterializationResult) RecordMonthFailure(month int, rubroCode, reason string) {
	r.MonthFailures = append(r.MonthFailures, MonthFailure{
		Month:     month,
		RubroCode: rubroCode,
		Reason:    reason,
	})
	r.Status = MaterializationDegraded
}

// Merge folds another result for the same run into this one
func (r *MaterializationResult) Merge(other *MaterializationResult) {
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
	r.Failures = append(r.Failures, other.Failures...)
	r.MonthFailures = append(r.MonthFailures, other.MonthFailures...)
	if len(r.Failures) > 0 || len(r.MonthFailures) > 0 {
		r.Status = MaterializationDegraded
	}
}

// IsDegraded returns true if any item or month failed
func (r *MaterializationResult) IsDegraded() bool {
	return r.Status == MaterializationDegraded
}

// MonthsWritten returns the number of allocation rows written
func (r *MaterializationResult) MonthsWritten() int {
	return len(r.Outcomes)
}
