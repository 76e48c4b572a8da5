// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the cost planning system.
// It tracks rubro resolution outcomes, materialization activity, and
// remediation scan results.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	resolutionTotal         *Counter
	materializationRunTotal *Counter
	recordsWrittenTotal     *Counter
	monthFailureTotal       *Counter
	remediationActionTotal  *Counter

	// Gauge metrics (point-in-time values)
	taxonomyEntryCount   *Gauge
	taxonomyAliasCount   *Gauge
	ledgerRecordCount    *Gauge
	rewrittenRecordCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	ledgerProvider LedgerMetricsProvider
}

// LedgerMetricsProvider provides allocation ledger data for periodic
// metrics collection. The interface keeps the telemetry layer from
// depending on the allocation domain directly.
type LedgerMetricsProvider interface {
	// GetRecordCountByProject returns the number of allocation records per project
	GetRecordCountByProject(ctx context.Context) (map[string]int64, error)

	// GetRewrittenRecordCount returns how many records carry a remediated identifier
	GetRewrittenRecordCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	LedgerProvider  LedgerMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:          cfg.Meter,
		logger:         logger,
		stopChan:       make(chan struct{}),
		ledgerProvider: cfg.LedgerProvider,
	}

	// Initialize counter metrics
	var err error

	// Resolution metrics
	bm.resolutionTotal, err = NewCounter(
		cfg.Meter,
		"finz_rubro_resolution_total",
		"Total number of rubro identifier resolutions",
		"{resolutions}",
	)
	if err != nil {
		return nil, err
	}

	// Materialization metrics
	bm.materializationRunTotal, err = NewCounter(
		cfg.Meter,
		"finz_materialization_run_total",
		"Total number of baseline materialization runs",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	bm.recordsWrittenTotal, err = NewCounter(
		cfg.Meter,
		"finz_allocation_records_written_total",
		"Total number of allocation records written",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	bm.monthFailureTotal, err = NewCounter(
		cfg.Meter,
		"finz_materialization_month_failure_total",
		"Total number of per-month allocation write failures",
		"{failures}",
	)
	if err != nil {
		return nil, err
	}

	// Remediation metrics
	bm.remediationActionTotal, err = NewCounter(
		cfg.Meter,
		"finz_remediation_action_total",
		"Total number of remediation scan actions by outcome",
		"{actions}",
	)
	if err != nil {
		return nil, err
	}

	// Taxonomy and ledger gauge metrics
	bm.taxonomyEntryCount, err = NewGauge(
		cfg.Meter,
		"finz_taxonomy_entry_count",
		"Number of canonical rubro entries in the loaded snapshot",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	bm.taxonomyAliasCount, err = NewGauge(
		cfg.Meter,
		"finz_taxonomy_alias_count",
		"Number of rubro aliases in the loaded snapshot",
		"{aliases}",
	)
	if err != nil {
		return nil, err
	}

	bm.ledgerRecordCount, err = NewGauge(
		cfg.Meter,
		"finz_allocation_record_count",
		"Current number of allocation records in the ledger",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	bm.rewrittenRecordCount, err = NewGauge(
		cfg.Meter,
		"finz_rewritten_record_count",
		"Number of ledger records whose identifier was remediated",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Resolution Metrics
// =============================================================================

// ResolutionOutcome labels how an identifier resolved for metrics purposes.
type ResolutionOutcome string

const (
	ResolutionOutcomeCanonical  ResolutionOutcome = "canonical"
	ResolutionOutcomeAlias      ResolutionOutcome = "alias"
	ResolutionOutcomeUnresolved ResolutionOutcome = "unresolved"
)

// RecordResolution records a single rubro identifier resolution.
// This should be called from the application layer whenever the gate resolves.
func (bm *BusinessMetrics) RecordResolution(ctx context.Context, outcome ResolutionOutcome) {
	bm.resolutionTotal.Inc(ctx,
		AttrResolutionOutcome.String(string(outcome)),
	)
}

// =============================================================================
// Materialization Metrics
// =============================================================================

// MaterializationStatus labels the outcome of a materialization run.
type MaterializationStatus string

const (
	MaterializationStatusCompleted MaterializationStatus = "completed"
	MaterializationStatusDegraded  MaterializationStatus = "degraded"
)

// RecordMaterializationRun records one baseline materialization run.
// This should be called from the application layer when a baseline is accepted.
func (bm *BusinessMetrics) RecordMaterializationRun(ctx context.Context, projectID string, status MaterializationStatus) {
	bm.materializationRunTotal.Inc(ctx,
		AttrProjectID.String(projectID),
		AttrMaterializationStatus.String(string(status)),
	)
}

// RecordRecordsWritten records the number of allocation records written by a run.
func (bm *BusinessMetrics) RecordRecordsWritten(ctx context.Context, projectID string, count int64) {
	bm.recordsWrittenTotal.Add(ctx, count,
		AttrProjectID.String(projectID),
	)
}

// RecordMonthFailures records per-month write failures from a degraded run.
func (bm *BusinessMetrics) RecordMonthFailures(ctx context.Context, projectID string, count int64) {
	if count == 0 {
		return
	}
	bm.monthFailureTotal.Add(ctx, count,
		AttrProjectID.String(projectID),
	)
}

// =============================================================================
// Remediation Metrics
// =============================================================================

// RecordRemediationAction records one classified record from a remediation scan.
func (bm *BusinessMetrics) RecordRemediationAction(ctx context.Context, mode, action string) {
	bm.remediationActionTotal.Inc(ctx,
		AttrScanMode.String(mode),
		AttrRemediationAction.String(action),
	)
}

// =============================================================================
// Taxonomy Metrics
// =============================================================================

// RecordTaxonomySnapshot records the size of the currently loaded taxonomy
// snapshot. This should be called after every successful load.
func (bm *BusinessMetrics) RecordTaxonomySnapshot(ctx context.Context, entries, aliases int64) {
	bm.taxonomyEntryCount.Record(ctx, entries)
	bm.taxonomyAliasCount.Record(ctx, aliases)
}

// RecordLedgerSize records the current ledger record count for a project.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordLedgerSize(ctx context.Context, projectID string, count int64) {
	bm.ledgerRecordCount.Record(ctx, count,
		AttrProjectID.String(projectID),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects ledger metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectLedgerMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectLedgerMetrics(ctx)
		}
	}
}

// collectLedgerMetrics collects ledger gauge metrics.
func (bm *BusinessMetrics) collectLedgerMetrics(ctx context.Context) {
	if bm.ledgerProvider == nil {
		bm.logger.Debug("No ledger provider configured, skipping ledger metrics collection")
		return
	}

	countByProject, err := bm.ledgerProvider.GetRecordCountByProject(ctx)
	if err != nil {
		bm.logger.Error("Failed to get ledger record counts", zap.Error(err))
	} else {
		for projectID, count := range countByProject {
			bm.RecordLedgerSize(ctx, projectID, count)
		}
	}

	rewritten, err := bm.ledgerProvider.GetRewrittenRecordCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get rewritten record count", zap.Error(err))
	} else {
		bm.rewrittenRecordCount.Record(ctx, rewritten)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Business metrics attribute keys not already defined in metrics.go
var (
	AttrResolutionOutcome     = attribute.Key("resolution_outcome")
	AttrMaterializationStatus = attribute.Key("materialization_status")
	AttrScanMode              = attribute.Key("scan_mode")
	AttrRemediationAction     = attribute.Key("remediation_action")
)
