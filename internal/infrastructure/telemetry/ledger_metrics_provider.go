package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormLedgerMetricsProvider implements LedgerMetricsProvider using GORM.
// It queries the allocation_records table directly for aggregated metrics.
type GormLedgerMetricsProvider struct {
	db *gorm.DB
}

// NewGormLedgerMetricsProvider creates a new GormLedgerMetricsProvider.
func NewGormLedgerMetricsProvider(db *gorm.DB) *GormLedgerMetricsProvider {
	return &GormLedgerMetricsProvider{db: db}
}

// GetRecordCountByProject returns the number of allocation records per project.
func (p *GormLedgerMetricsProvider) GetRecordCountByProject(ctx context.Context) (map[string]int64, error) {
	type result struct {
		ProjectID   string `gorm:"column:project_id"`
		RecordCount int64  `gorm:"column:record_count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("allocation_records").
		Select("project_id, COUNT(*) as record_count").
		Group("project_id").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[string]int64, len(results))
	for _, r := range results {
		m[r.ProjectID] = r.RecordCount
	}

	return m, nil
}

// GetRewrittenRecordCount returns how many records carry a remediated identifier.
func (p *GormLedgerMetricsProvider) GetRewrittenRecordCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("allocation_records").
		Where("original_identifier IS NOT NULL AND original_identifier <> ''").
		Count(&count).Error

	return count, err
}
