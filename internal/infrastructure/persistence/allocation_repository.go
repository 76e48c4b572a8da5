package persistence

import (
	"context"
	"errors"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRecordRepository implements allocation.RecordRepository using GORM
type GormRecordRepository struct {
	db *gorm.DB
}

// NewGormRecordRepository creates a new GormRecordRepository
func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// Upsert writes a record keyed on (project, baseline, month, rubro code).
// A conflicting row gets its planned and forecast amounts replaced.
// Actuals accrue after materialization and survive re-runs, and the
// original identifier keeps its first-written value.
func (r *GormRecordRepository) Upsert(ctx context.Context, record *allocation.AllocationRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "project_id"},
			{Name: "baseline_id"},
			{Name: "month"},
			{Name: "rubro_code"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"planned_amount",
			"forecast_amount",
			"updated_at",
		}),
	}).Create(record).Error
}

// FindByID finds a record by its ID
func (r *GormRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.AllocationRecord, error) {
	var record allocation.AllocationRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByIdentity finds the record for one materialization identity, or
// nil when none exists
func (r *GormRecordRepository) FindByIdentity(ctx context.Context, projectID, baselineID uuid.UUID, month int, rubroCode string) (*allocation.AllocationRecord, error) {
	var record allocation.AllocationRecord
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND baseline_id = ? AND month = ? AND rubro_code = ?", projectID, baselineID, month, rubroCode).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ExistsIdentity reports whether a record exists for the identity
func (r *GormRecordRepository) ExistsIdentity(ctx context.Context, projectID, baselineID uuid.UUID, month int, rubroCode string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&allocation.AllocationRecord{}).
		Where("project_id = ? AND baseline_id = ? AND month = ? AND rubro_code = ?", projectID, baselineID, month, rubroCode).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByBaseline returns every record for a baseline ordered by month
// then rubro code
func (r *GormRecordRepository) ListByBaseline(ctx context.Context, projectID, baselineID uuid.UUID) ([]allocation.AllocationRecord, error) {
	var records []allocation.AllocationRecord
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND baseline_id = ?", projectID, baselineID).
		Order("month ASC, rubro_code ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListByProject returns a project's records matching the filter,
// ordered by month then rubro code
func (r *GormRecordRepository) ListByProject(ctx context.Context, projectID uuid.UUID, filter allocation.RecordFilter) ([]allocation.AllocationRecord, error) {
	query := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if filter.BaselineID != nil {
		query = query.Where("baseline_id = ?", *filter.BaselineID)
	}
	if filter.Month != nil {
		query = query.Where("month = ?", *filter.Month)
	}
	if filter.RubroCode != "" {
		query = query.Where("rubro_code = ?", filter.RubroCode)
	}

	order := "month ASC, rubro_code ASC"
	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, AllocationSortFields, "month")
		order = field + " " + ValidateSortOrder(filter.OrderDir)
	}

	var records []allocation.AllocationRecord
	if err := query.Order(order).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListPage returns records ordered by ID starting after the given cursor.
// Keyset pagination keeps long scans stable while records are being
// rewritten underneath them.
func (r *GormRecordRepository) ListPage(ctx context.Context, afterID string, limit int) ([]allocation.AllocationRecord, error) {
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}

	var records []allocation.AllocationRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateIdentifier persists a record's identifier fields only. The
// numeric columns are never part of this update.
func (r *GormRecordRepository) UpdateIdentifier(ctx context.Context, record *allocation.AllocationRecord) error {
	result := r.db.WithContext(ctx).
		Model(record).
		Select("rubro_code", "original_identifier", "updated_at").
		Updates(map[string]interface{}{
			"rubro_code":          record.RubroCode,
			"original_identifier": record.OriginalIdentifier,
			"updated_at":          record.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Save persists a record's current state
func (r *GormRecordRepository) Save(ctx context.Context, record *allocation.AllocationRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// CountAll returns the total number of allocation records
func (r *GormRecordRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&allocation.AllocationRecord{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormRecordRepository implements RecordRepository
var _ allocation.RecordRepository = (*GormRecordRepository)(nil)
