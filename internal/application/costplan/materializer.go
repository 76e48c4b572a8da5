package costplan

import (
	"context"
	"errors"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/project"
	"github.com/finz/backend/internal/domain/taxonomy"
	"github.com/finz/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Materializer expands accepted baseline items into monthly allocation
// records. Every write goes through the taxonomy gate, so only
// canonical rubro codes ever reach the ledger. Writes are keyed on
// (project, baseline, month, rubro code); re-running a materialization
// converges to the same rows instead of duplicating them.
type Materializer struct {
	gate    *taxonomy.Gate
	records allocation.RecordRepository
	logger  *zap.Logger
}

// NewMaterializer creates a new Materializer
func NewMaterializer(gate *taxonomy.Gate, records allocation.RecordRepository, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{
		gate:    gate,
		records: records,
		logger:  logger,
	}
}

// MaterializeItem expands one baseline item into its monthly records.
//
// The item's rubro identifier is resolved once up front: an
// unresolvable identifier is a configuration problem shared by every
// month, so it fails the whole item before any write. A taxonomy that
// was never loaded is an operational error and is returned as such.
//
// Per-month write failures degrade the result but do not abort the
// sibling months; the caller receives every outcome and is expected to
// act on a non-empty failure list.
func (m *Materializer) MaterializeItem(ctx context.Context, projectID, baselineID uuid.UUID, item project.BaselineCostItem, createdBy string) (*allocation.MaterializationResult, error) {
	result := allocation.NewMaterializationResult(projectID, baselineID)

	code, err := m.gate.Require(item.RubroID)
	if err != nil {
		if errors.Is(err, taxonomy.ErrNotLoaded) {
			return nil, err
		}
		m.logger.Warn("baseline item failed rubro resolution",
			zap.String("project_id", projectID.String()),
			zap.String("baseline_id", baselineID.String()),
			zap.String("rubro_id", item.RubroID),
			zap.Error(err))
		result.RecordFailure(item.RubroID, item.Position, err.Error())
		return result, nil
	}

	for _, month := range item.MaterializationMonths() {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		record, err := allocation.NewAllocationRecord(projectID, baselineID, month, code, item.BaseCostMoney(), item.RubroID, createdBy)
		if err != nil {
			result.RecordMonthFailure(month, code, err.Error())
			continue
		}

		if err := m.records.Upsert(ctx, record); err != nil {
			m.logger.Warn("allocation record upsert failed",
				zap.String("project_id", projectID.String()),
				zap.String("baseline_id", baselineID.String()),
				zap.Int("month", month),
				zap.String("rubro_code", code),
				zap.Error(err))
			result.RecordMonthFailure(month, code, err.Error())
			continue
		}

		result.RecordOutcome(month, record.ID, code)
	}

	return result, nil
}

// MaterializeBaseline expands every item of a baseline. Item outcomes
// are merged into one result; one item's failure never stops the rest.
func (m *Materializer) MaterializeBaseline(ctx context.Context, baseline *project.Baseline, createdBy string) (*allocation.MaterializationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "materializer", "materialize_baseline",
		telemetry.WithAttribute(telemetry.SpanAttrProjectID, baseline.ProjectID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrBaselineID, baseline.ID.String()),
	)
	defer span.End()

	result := allocation.NewMaterializationResult(baseline.ProjectID, baseline.ID)

	for _, item := range baseline.Items {
		itemResult, err := m.MaterializeItem(ctx, baseline.ProjectID, baseline.ID, item, createdBy)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		result.Merge(itemResult)
	}

	telemetry.AddEvent(span, "records_materialized",
		"months_written", result.MonthsWritten(),
		"item_failures", len(result.Failures),
		"month_failures", len(result.MonthFailures),
	)

	m.logger.Info("baseline materialized",
		zap.String("project_id", baseline.ProjectID.String()),
		zap.String("baseline_id", baseline.ID.String()),
		zap.Int("months_written", result.MonthsWritten()),
		zap.Int("item_failures", len(result.Failures)),
		zap.Int("month_failures", len(result.MonthFailures)),
		zap.String("status", result.Status.String()))

	return result, nil
}
