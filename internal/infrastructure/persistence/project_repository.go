package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/finz/backend/internal/domain/project"
	"github.com/finz/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProjectRepository implements project.ProjectRepository using GORM
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// FindByID finds a project by its ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	var p project.Project
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByCode finds a project by its code
func (r *GormProjectRepository) FindByCode(ctx context.Context, code string) (*project.Project, error) {
	var p project.Project
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindAll finds all projects matching the filter
func (r *GormProjectRepository) FindAll(ctx context.Context, filter shared.Filter) ([]project.Project, error) {
	var projects []project.Project
	query := r.applyFilter(r.db.WithContext(ctx).Model(&project.Project{}), filter)

	if err := query.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Count counts projects matching the filter
func (r *GormProjectRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&project.Project{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a project
func (r *GormProjectRepository) Save(ctx context.Context, p *project.Project) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// ExistsByCode checks if a project with the given code exists
func (r *GormProjectRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&project.Project{}).
		Where("code = ?", strings.ToUpper(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormProjectRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	field := ValidateSortField(filter.OrderBy, ProjectSortFields, "created_at")
	query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormProjectRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "manager":
			query = query.Where("manager = ?", value)
		}
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ?", pattern, pattern)
	}

	return query
}

// GormBaselineRepository implements project.BaselineRepository using GORM
type GormBaselineRepository struct {
	db *gorm.DB
}

// NewGormBaselineRepository creates a new GormBaselineRepository
func NewGormBaselineRepository(db *gorm.DB) *GormBaselineRepository {
	return &GormBaselineRepository{db: db}
}

// FindByID finds a baseline with its items
func (r *GormBaselineRepository) FindByID(ctx context.Context, id uuid.UUID) (*project.Baseline, error) {
	var baseline project.Baseline
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&baseline, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &baseline, nil
}

// ListByProject returns all baselines for a project with their items
func (r *GormBaselineRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]project.Baseline, error) {
	var baselines []project.Baseline
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&baselines).Error; err != nil {
		return nil, err
	}
	return baselines, nil
}

// FindAcceptedByProject returns the accepted baseline for a project, or
// nil when none has been accepted yet
func (r *GormBaselineRepository) FindAcceptedByProject(ctx context.Context, projectID uuid.UUID) (*project.Baseline, error) {
	var baseline project.Baseline
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("project_id = ? AND status = ?", projectID, project.BaselineStatusAccepted).
		Order("accepted_at DESC").
		First(&baseline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &baseline, nil
}

// Save creates or updates a baseline together with its items
func (r *GormBaselineRepository) Save(ctx context.Context, baseline *project.Baseline) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(baseline).Error; err != nil {
			return err
		}

		// Items removed from the draft are deleted, the rest saved
		currentItemIDs := make([]uuid.UUID, len(baseline.Items))
		for i, item := range baseline.Items {
			currentItemIDs[i] = item.ID
		}

		if len(currentItemIDs) > 0 {
			if err := tx.Where("baseline_id = ? AND id NOT IN ?", baseline.ID, currentItemIDs).
				Delete(&project.BaselineCostItem{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("baseline_id = ?", baseline.ID).
				Delete(&project.BaselineCostItem{}).Error; err != nil {
				return err
			}
		}

		for i := range baseline.Items {
			baseline.Items[i].BaselineID = baseline.ID
			if err := tx.Save(&baseline.Items[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// Ensure the repositories implement their interfaces
var (
	_ project.ProjectRepository  = (*GormProjectRepository)(nil)
	_ project.BaselineRepository = (*GormBaselineRepository)(nil)
)
