package project

import (
	"context"

	"github.com/finz/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProjectRepository defines the interface for project persistence
type ProjectRepository interface {
	// FindByID finds a project by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)

	// FindByCode finds a project by its code
	FindByCode(ctx context.Context, code string) (*Project, error)

	// FindAll finds all projects matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Project, error)

	// Count counts projects matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a project
	Save(ctx context.Context, project *Project) error

	// ExistsByCode checks if a project with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// BaselineRepository defines the interface for baseline persistence
type BaselineRepository interface {
	// FindByID finds a baseline with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Baseline, error)

	// ListByProject returns all baselines for a project with their items
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]Baseline, error)

	// FindAcceptedByProject returns the accepted baseline for a project,
	// or nil when none has been accepted yet
	FindAcceptedByProject(ctx context.Context, projectID uuid.UUID) (*Baseline, error)

	// Save creates or updates a baseline together with its items
	Save(ctx context.Context, baseline *Baseline) error
}
