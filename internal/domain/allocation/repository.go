package allocation

import (
	"context"

	"github.com/google/uuid"
)

// RecordFilter narrows project-scoped record queries. Nil or zero
// fields match everything.
type RecordFilter struct {
	BaselineID *uuid.UUID
	Month      *int
	RubroCode  string
	// OrderBy and OrderDir override the default month ordering. The
	// repository validates them against its column allowlist.
	OrderBy  string
	OrderDir string
}

// RecordRepository defines the interface for allocation record persistence
type RecordRepository interface {
	// Upsert writes a record keyed on (project, baseline, month, rubro
	// code). An existing row gets its planned and forecast amounts
	// replaced; actuals are left alone.
	Upsert(ctx context.Context, record *AllocationRecord) error

	// FindByID finds a record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*AllocationRecord, error)

	// FindByIdentity finds the record for one materialization identity,
	// or nil when none exists
	FindByIdentity(ctx context.Context, projectID, baselineID uuid.UUID, month int, rubroCode string) (*AllocationRecord, error)

	// ExistsIdentity reports whether a record exists for the identity
	ExistsIdentity(ctx context.Context, projectID, baselineID uuid.UUID, month int, rubroCode string) (bool, error)

	// ListByBaseline returns every record for a baseline ordered by
	// month then rubro code
	ListByBaseline(ctx context.Context, projectID, baselineID uuid.UUID) ([]AllocationRecord, error)

	// ListByProject returns a project's records matching the filter,
	// ordered by month then rubro code
	ListByProject(ctx context.Context, projectID uuid.UUID, filter RecordFilter) ([]AllocationRecord, error)

	// ListPage returns records ordered by ID starting after the given
	// cursor, for resumable full-table scans. An empty cursor starts
	// from the beginning.
	ListPage(ctx context.Context, afterID string, limit int) ([]AllocationRecord, error)

	// UpdateIdentifier persists a record's identifier fields only. The
	// numeric columns are never part of this update.
	UpdateIdentifier(ctx context.Context, record *AllocationRecord) error

	// Save persists a record's mutable amounts
	Save(ctx context.Context, record *AllocationRecord) error

	// CountAll returns the total number of allocation records
	CountAll(ctx context.Context) (int64, error)
}
