package costplan

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/project"
	"github.com/finz/backend/internal/domain/shared"
	"github.com/finz/backend/internal/domain/taxonomy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Taxonomy fixture
// ---------------------------------------------------------------------------

type stubEntryRepo struct {
	entries []taxonomy.Entry
}

func (r *stubEntryRepo) FindAll(ctx context.Context) ([]taxonomy.Entry, error) {
	return r.entries, nil
}

func (r *stubEntryRepo) FindByCode(ctx context.Context, code string) (*taxonomy.Entry, error) {
	for i := range r.entries {
		if r.entries[i].Code == code {
			return &r.entries[i], nil
		}
	}
	return nil, nil
}

type stubAliasRepo struct {
	aliases []taxonomy.Alias
}

func (r *stubAliasRepo) FindAll(ctx context.Context) ([]taxonomy.Alias, error) {
	return r.aliases, nil
}

// loadedTaxonomy builds a loaded store with the MOD-LEAD / MOD-SDM
// reference set used across these tests.
func loadedTaxonomy(t *testing.T) (*taxonomy.Store, *taxonomy.Gate) {
	t.Helper()

	lead, err := taxonomy.NewEntry("MOD-LEAD", "Lead delivery engineer", taxonomy.CostTypeOpex, taxonomy.ExecutionTypeInternal)
	require.NoError(t, err)
	sdm, err := taxonomy.NewEntry("MOD-SDM", "Service delivery manager", taxonomy.CostTypeOpex, taxonomy.ExecutionTypeInternal)
	require.NoError(t, err)

	pm, err := taxonomy.NewAlias("MOD-PM", "MOD-LEAD")
	require.NoError(t, err)
	slug, err := taxonomy.NewAlias("service-delivery-manager", "MOD-SDM")
	require.NoError(t, err)

	store := taxonomy.NewStore(
		&stubEntryRepo{entries: []taxonomy.Entry{*lead, *sdm}},
		&stubAliasRepo{aliases: []taxonomy.Alias{*pm, *slug}},
	)
	_, err = store.Load(context.Background())
	require.NoError(t, err)

	return store, taxonomy.NewGate(store)
}

// coldTaxonomy builds a store that was never loaded
func coldTaxonomy() (*taxonomy.Store, *taxonomy.Gate) {
	store := taxonomy.NewStore(&stubEntryRepo{}, &stubAliasRepo{})
	return store, taxonomy.NewGate(store)
}

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type memRecordRepo struct {
	mu   sync.Mutex
	rows map[string]*allocation.AllocationRecord
	// failMonth induces an upsert error for one month, simulating a
	// store failure mid fan-out.
	failMonth map[int]error
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{
		rows:      make(map[string]*allocation.AllocationRecord),
		failMonth: make(map[int]error),
	}
}

func identityKey(projectID, baselineID uuid.UUID, month int, rubroCode string) string {
	return fmt.Sprintf("%s|%s|%d|%s", projectID, baselineID, month, rubroCode)
}

func (r *memRecordRepo) Upsert(ctx context.Context, record *allocation.AllocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.failMonth[record.Month]; err != nil {
		return err
	}

	key := identityKey(record.ProjectID, record.BaselineID, record.Month, record.RubroCode)
	if existing, ok := r.rows[key]; ok {
		existing.PlannedAmount = record.PlannedAmount
		existing.ForecastAmount = record.ForecastAmount
		existing.UpdatedAt = record.UpdatedAt
		return nil
	}

	clone := *record
	r.rows[key] = &clone
	return nil
}

func (r *memRecordRepo) FindByID(ctx context.Context, id uuid.UUID) (*allocation.AllocationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			clone := *row
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRecordRepo) FindByIdentity(ctx context.Context, projectID, baselineID uuid.UUID, month int, rubroCode string) (*allocation.AllocationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[identityKey(projectID, baselineID, month, rubroCode)]; ok {
		clone := *row
		return &clone, nil
	}
	return nil, nil
}

func (r *memRecordRepo) ExistsIdentity(ctx context.Context, projectID, baselineID uuid.UUID, month int, rubroCode string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[identityKey(projectID, baselineID, month, rubroCode)]
	return ok, nil
}

func (r *memRecordRepo) ListByBaseline(ctx context.Context, projectID, baselineID uuid.UUID) ([]allocation.AllocationRecord, error) {
	return r.ListByProject(ctx, projectID, allocation.RecordFilter{BaselineID: &baselineID})
}

func (r *memRecordRepo) ListByProject(ctx context.Context, projectID uuid.UUID, filter allocation.RecordFilter) ([]allocation.AllocationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []allocation.AllocationRecord
	for _, row := range r.rows {
		if row.ProjectID != projectID {
			continue
		}
		if filter.BaselineID != nil && row.BaselineID != *filter.BaselineID {
			continue
		}
		if filter.Month != nil && row.Month != *filter.Month {
			continue
		}
		if filter.RubroCode != "" && row.RubroCode != filter.RubroCode {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].RubroCode < out[j].RubroCode
	})
	return out, nil
}

func (r *memRecordRepo) ListPage(ctx context.Context, afterID string, limit int) ([]allocation.AllocationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []allocation.AllocationRecord
	for _, row := range r.rows {
		all = append(all, *row)
	}
	sort.Slice(all, func(i, j int) bool {
		return strings.Compare(all[i].ID.String(), all[j].ID.String()) < 0
	})

	var out []allocation.AllocationRecord
	for _, row := range all {
		if afterID != "" && strings.Compare(row.ID.String(), afterID) <= 0 {
			continue
		}
		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRecordRepo) UpdateIdentifier(ctx context.Context, record *allocation.AllocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, row := range r.rows {
		if row.ID == record.ID {
			clone := *row
			clone.RubroCode = record.RubroCode
			clone.OriginalIdentifier = record.OriginalIdentifier
			clone.UpdatedAt = record.UpdatedAt
			delete(r.rows, key)
			r.rows[identityKey(clone.ProjectID, clone.BaselineID, clone.Month, clone.RubroCode)] = &clone
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memRecordRepo) Save(ctx context.Context, record *allocation.AllocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.rows[identityKey(record.ProjectID, record.BaselineID, record.Month, record.RubroCode)] = &clone
	return nil
}

func (r *memRecordRepo) CountAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

type memProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*project.Project
}

func newMemProjectRepo() *memProjectRepo {
	return &memProjectRepo{projects: make(map[uuid.UUID]*project.Project)}
}

func (r *memProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memProjectRepo) FindByCode(ctx context.Context, code string) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Code == strings.ToUpper(code) {
			clone := *p
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memProjectRepo) FindAll(ctx context.Context, filter shared.Filter) ([]project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []project.Project
	for _, p := range r.projects {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memProjectRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.projects)), nil
}

func (r *memProjectRepo) Save(ctx context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.projects[p.ID] = &clone
	return nil
}

func (r *memProjectRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByCode(ctx, code)
	if err != nil {
		return false, nil
	}
	return true, nil
}

type memBaselineRepo struct {
	mu        sync.Mutex
	baselines map[uuid.UUID]*project.Baseline
}

func newMemBaselineRepo() *memBaselineRepo {
	return &memBaselineRepo{baselines: make(map[uuid.UUID]*project.Baseline)}
}

func (r *memBaselineRepo) FindByID(ctx context.Context, id uuid.UUID) (*project.Baseline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.baselines[id]; ok {
		clone := *b
		clone.Items = append([]project.BaselineCostItem(nil), b.Items...)
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memBaselineRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]project.Baseline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []project.Baseline
	for _, b := range r.baselines {
		if b.ProjectID == projectID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memBaselineRepo) FindAcceptedByProject(ctx context.Context, projectID uuid.UUID) (*project.Baseline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.baselines {
		if b.ProjectID == projectID && b.Status == project.BaselineStatusAccepted {
			clone := *b
			clone.Items = append([]project.BaselineCostItem(nil), b.Items...)
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memBaselineRepo) Save(ctx context.Context, b *project.Baseline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *b
	clone.Items = append([]project.BaselineCostItem(nil), b.Items...)
	r.baselines[b.ID] = &clone
	return nil
}
