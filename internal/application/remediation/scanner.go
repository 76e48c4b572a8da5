package remediation

import (
	"context"
	"time"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/shared"
	"github.com/finz/backend/internal/domain/taxonomy"
	"github.com/finz/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 500
	checkpointTTL    = 24 * time.Hour
)

// ScanOptions configures one remediation scan run
type ScanOptions struct {
	// ScanID names the run; an empty ID gets a generated one. Resuming
	// requires the ID of the interrupted run.
	ScanID string
	// Mode selects DRY_RUN or APPLY
	Mode allocation.ScanMode
	// BatchSize bounds how many records one page holds
	BatchSize int
	// Resume continues from the run's stored checkpoint when one exists
	Resume bool
}

// Scanner walks the whole allocation ledger classifying every record's
// rubro identifier against the loaded taxonomy. In APPLY mode it
// rewrites resolvable legacy identifiers in place; unresolvable and
// conflicted records are only ever reported, never touched.
//
// The walk pages by record ID, so progress can be checkpointed and an
// interrupted run resumed without rescanning from the start.
type Scanner struct {
	store       *taxonomy.Store
	records     allocation.RecordRepository
	checkpoints allocation.CheckpointStore
	logger      *zap.Logger
}

// NewScanner creates a new Scanner. The checkpoint store may be nil,
// which disables resumption but not scanning.
func NewScanner(store *taxonomy.Store, records allocation.RecordRepository, checkpoints allocation.CheckpointStore, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		store:       store,
		records:     records,
		checkpoints: checkpoints,
		logger:      logger,
	}
}

// Scan runs one remediation pass over the ledger.
//
// A taxonomy that was never loaded aborts the run before any row is
// read. Everything else is per-record: a record that cannot be
// rewritten is counted and listed in the report while the scan keeps
// going. The returned report always reflects every record processed,
// including those carried over from a resumed checkpoint.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*allocation.RemediationReport, error) {
	if !opts.Mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_SCAN_MODE", "Scan mode must be DRY_RUN or APPLY")
	}
	if opts.ScanID == "" {
		opts.ScanID = uuid.NewString()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "remediation", "scan",
		telemetry.WithAttribute(telemetry.SpanAttrScanID, opts.ScanID),
		telemetry.WithAttribute(telemetry.SpanAttrScanMode, opts.Mode.String()),
	)
	defer span.End()

	snapshot, ok := s.store.Snapshot()
	if !ok {
		telemetry.RecordError(span, taxonomy.ErrNotLoaded)
		return nil, taxonomy.ErrNotLoaded
	}

	report := allocation.NewRemediationReport(opts.ScanID, opts.Mode)
	cursor := ""

	if opts.Resume && s.checkpoints != nil {
		checkpoint, err := s.checkpoints.LoadCheckpoint(ctx, opts.ScanID)
		if err != nil {
			return nil, err
		}
		if checkpoint != nil && checkpoint.Mode == opts.Mode {
			checkpoint.RestoreInto(report)
			cursor = checkpoint.Cursor
			s.logger.Info("resuming remediation scan",
				zap.String("scan_id", opts.ScanID),
				zap.String("cursor", cursor),
				zap.Int("scanned", checkpoint.Scanned))
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := s.records.ListPage(ctx, cursor, opts.BatchSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			report.Observe(s.classify(ctx, snapshot, &page[i], opts.Mode))
		}

		cursor = page[len(page)-1].ID.String()
		if s.checkpoints != nil {
			checkpoint := allocation.CheckpointOf(report, cursor)
			if err := s.checkpoints.SaveCheckpoint(ctx, checkpoint, checkpointTTL); err != nil {
				s.logger.Warn("remediation checkpoint save failed",
					zap.String("scan_id", opts.ScanID),
					zap.Error(err))
			}
		}

		if len(page) < opts.BatchSize {
			break
		}
	}

	report.Complete()
	telemetry.AddEvent(span, "scan_completed",
		"scanned", report.Scanned,
		"remediated", report.Remediated,
		"unresolvable", report.Unresolvable,
		"conflicted", report.Conflicted,
	)

	if s.checkpoints != nil {
		if err := s.checkpoints.ClearCheckpoint(ctx, opts.ScanID); err != nil {
			s.logger.Warn("remediation checkpoint clear failed",
				zap.String("scan_id", opts.ScanID),
				zap.Error(err))
		}
	}

	s.logger.Info("remediation scan finished",
		zap.String("scan_id", report.ScanID),
		zap.String("mode", report.Mode.String()),
		zap.Int("scanned", report.Scanned),
		zap.Int("already_canonical", report.AlreadyCanonical),
		zap.Int("remediated", report.Remediated),
		zap.Int("unresolvable", report.Unresolvable),
		zap.Int("conflicted", report.Conflicted),
		zap.Int("failed", report.Failed))

	return report, nil
}

// classify decides and, in APPLY mode, executes the remediation for one
// record. A rewrite whose target identity already exists is conflicted:
// rewriting would collide with another row, so it is left for a human.
func (s *Scanner) classify(ctx context.Context, snapshot *taxonomy.Snapshot, record *allocation.AllocationRecord, mode allocation.ScanMode) allocation.RemediationFinding {
	finding := allocation.RemediationFinding{
		RecordID:   record.ID,
		Identifier: record.RubroCode,
	}

	resolution := snapshot.Resolve(record.RubroCode)
	switch {
	case resolution.Kind == taxonomy.ResolutionUnresolved:
		finding.Action = allocation.ActionUnresolvable
		return finding

	case resolution.Code == record.RubroCode:
		finding.Action = allocation.ActionAlreadyCanonical
		return finding
	}

	finding.CanonicalCode = resolution.Code

	taken, err := s.records.ExistsIdentity(ctx, record.ProjectID, record.BaselineID, record.Month, resolution.Code)
	if err != nil {
		finding.Action = allocation.ActionFailed
		return finding
	}
	if taken {
		finding.Action = allocation.ActionConflicted
		return finding
	}

	if mode == allocation.ScanModeApply {
		record.RewriteIdentifier(resolution.Code)
		if err := s.records.UpdateIdentifier(ctx, record); err != nil {
			s.logger.Warn("identifier rewrite failed",
				zap.String("record_id", record.ID.String()),
				zap.String("identifier", finding.Identifier),
				zap.String("canonical_code", resolution.Code),
				zap.Error(err))
			finding.Action = allocation.ActionFailed
			return finding
		}
	}

	finding.Action = allocation.ActionRemediated
	return finding
}
