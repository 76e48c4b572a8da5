package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScanMode selects whether a remediation scan writes anything
type ScanMode string

const (
	// ScanModeDryRun classifies and counts without touching a single row.
	ScanModeDryRun ScanMode = "DRY_RUN"
	// ScanModeApply rewrites resolvable legacy identifiers in place.
	ScanModeApply ScanMode = "APPLY"
)

// IsValid returns true if the scan mode is a known value
func (m ScanMode) IsValid() bool {
	switch m {
	case ScanModeDryRun, ScanModeApply:
		return true
	}
	return false
}

// String returns the string representation of ScanMode
func (m ScanMode) String() string {
	return string(m)
}

// RemediationAction classifies what the scanner decided for one record
type RemediationAction string

const (
	// ActionAlreadyCanonical means the identifier needs no work.
	ActionAlreadyCanonical RemediationAction = "ALREADY_CANONICAL"
	// ActionRemediated means the identifier resolved through an alias and
	// was (or would be, in a dry run) rewritten to its canonical code.
	ActionRemediated RemediationAction = "REMEDIATED"
	// ActionUnresolvable means no canonical code exists; the record is
	// reported for human review and never rewritten automatically.
	ActionUnresolvable RemediationAction = "UNRESOLVABLE"
	// ActionConflicted means the rewrite target identity already exists;
	// applying it would collide with another record.
	ActionConflicted RemediationAction = "CONFLICTED"
	// ActionFailed means the rewrite itself could not be persisted. The
	// scan continues; the record is reported for a re-run.
	ActionFailed RemediationAction = "FAILED"
)

// RemediationFinding is one scanned record's classification
type RemediationFinding struct {
	RecordID      uuid.UUID         `json:"record_id"`
	Identifier    string            `json:"identifier"`
	CanonicalCode string            `json:"canonical_code,omitempty"`
	Action        RemediationAction `json:"action"`
}

// RemediationReport aggregates one scan run. Counts cover every record
// scanned; findings list only the records that need attention or were
// changed, so clean records do not bloat the report.
type RemediationReport struct {
	ScanID           string               `json:"scan_id"`
	Mode             ScanMode             `json:"mode"`
	StartedAt        time.Time            `json:"started_at"`
	CompletedAt      time.Time            `json:"completed_at"`
	Scanned          int                  `json:"scanned"`
	AlreadyCanonical int                  `json:"already_canonical"`
	Remediated       int                  `json:"remediated"`
	Unresolvable     int                  `json:"unresolvable"`
	Conflicted       int                  `json:"conflicted"`
	Failed           int                  `json:"failed"`
	Findings         []RemediationFinding `json:"findings,omitempty"`
	Resumed          bool                 `json:"resumed"`
}

// NewRemediationReport creates an empty report for a scan run
func NewRemediationReport(scanID string, mode ScanMode) *RemediationReport {
	return &RemediationReport{
		ScanID:    scanID,
		Mode:      mode,
		StartedAt: time.Now(),
		Findings:  make([]RemediationFinding, 0),
	}
}

// Observe folds one finding into the report
func (r *RemediationReport) Observe(finding RemediationFinding) {
	r.Scanned++
	switch finding.Action {
	case ActionAlreadyCanonical:
		r.AlreadyCanonical++
	case ActionRemediated:
		r.Remediated++
		r.Findings = append(r.Findings, finding)
	case ActionUnresolvable:
		r.Unresolvable++
		r.Findings = append(r.Findings, finding)
	case ActionConflicted:
		r.Conflicted++
		r.Findings = append(r.Findings, finding)
	case ActionFailed:
		r.Failed++
		r.Findings = append(r.Findings, finding)
	}
}

// Complete stamps the report as finished
func (r *RemediationReport) Complete() {
	r.CompletedAt = time.Now()
}

// Clean returns true if no record needs attention
func (r *RemediationReport) Clean() bool {
	return r.Remediated == 0 && r.Unresolvable == 0 && r.Conflicted == 0 && r.Failed == 0
}

// Checkpoint marks scan progress so an interrupted run resumes where it
// left off instead of rescanning from the start. Cursor is the last
// processed record ID under the scan's stable ordering.
type Checkpoint struct {
	ScanID           string    `json:"scan_id"`
	Mode             ScanMode  `json:"mode"`
	Cursor           string    `json:"cursor"`
	Scanned          int       `json:"scanned"`
	AlreadyCanonical int       `json:"already_canonical"`
	Remediated       int       `json:"remediated"`
	Unresolvable     int       `json:"unresolvable"`
	Conflicted       int       `json:"conflicted"`
	Failed           int       `json:"failed"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CheckpointOf captures a report's progress at a cursor position
func CheckpointOf(report *RemediationReport, cursor string) Checkpoint {
	return Checkpoint{
		ScanID:           report.ScanID,
		Mode:             report.Mode,
		Cursor:           cursor,
		Scanned:          report.Scanned,
		AlreadyCanonical: report.AlreadyCanonical,
		Remediated:       report.Remediated,
		Unresolvable:     report.Unresolvable,
		Conflicted:       report.Conflicted,
		Failed:           report.Failed,
		UpdatedAt:        time.Now(),
	}
}

// RestoreInto seeds a report with a checkpoint's progress
func (c Checkpoint) RestoreInto(report *RemediationReport) {
	report.Scanned = c.Scanned
	report.AlreadyCanonical = c.AlreadyCanonical
	report.Remediated = c.Remediated
	report.Unresolvable = c.Unresolvable
	report.Conflicted = c.Conflicted
	report.Failed = c.Failed
	report.Resumed = true
}

// CheckpointStore persists scan progress between runs
type CheckpointStore interface {
	// SaveCheckpoint stores progress for a scan with a TTL
	SaveCheckpoint(ctx context.Context, checkpoint Checkpoint, ttl time.Duration) error

	// LoadCheckpoint returns the stored progress for a scan, or nil when
	// none exists
	LoadCheckpoint(ctx context.Context, scanID string) (*Checkpoint, error)

	// ClearCheckpoint removes stored progress once a scan completes
	ClearCheckpoint(ctx context.Context, scanID string) error
}
