package remediation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/shared"
	"github.com/finz/backend/internal/domain/shared/valueobject"
	"github.com/finz/backend/internal/domain/taxonomy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func loadedStore(t *testing.T) *taxonomy.Store {
	t.Helper()

	lead, err := taxonomy.NewEntry("MOD-LEAD", "Lead delivery engineer", taxonomy.CostTypeOpex, taxonomy.ExecutionTypeInternal)
	require.NoError(t, err)
	sdm, err := taxonomy.NewEntry("MOD-SDM", "Service delivery manager", taxonomy.CostTypeOpex, taxonomy.ExecutionTypeInternal)
	require.NoError(t, err)

	pm, err := taxonomy.NewAlias("MOD-PM", "MOD-LEAD")
	require.NoError(t, err)

	store := taxonomy.NewStore(
		&stubEntryRepo{entries: []taxonomy.Entry{*lead, *sdm}},
		&stubAliasRepo{aliases: []taxonomy.Alias{*pm}},
	)
	_, err = store.Load(context.Background())
	require.NoError(t, err)
	return store
}

// memLedger is an identity-keyed in-memory RecordRepository with
// injectable rewrite failures.
type memLedger struct {
	mu         sync.Mutex
	rows       map[string]*allocation.AllocationRecord
	failUpdate error
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[string]*allocation.AllocationRecord)}
}

func ledgerKey(projectID, baselineID uuid.UUID, month int, rubroCode string) string {
	return fmt.Sprintf("%s|%s|%d|%s", projectID, baselineID, month, rubroCode)
}

func (r *memLedger) seed(t *testing.T, projectID, baselineID uuid.UUID, month int, rubroCode string) *allocation.AllocationRecord {
	t.Helper()
	cost, err := valueobject.NewMoney(decimal.NewFromInt(100), valueobject.USD)
	require.NoError(t, err)
	record, err := allocation.NewAllocationRecord(projectID, baselineID, month, rubroCode, cost, "", "seed")
	require.NoError(t, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[ledgerKey(projectID, baselineID, month, rubroCode)] = record
	return record
}

func (r *memLedger) Upsert(ctx context.Context, record *allocation.AllocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.rows[ledgerKey(record.ProjectID, record.BaselineID, record.Month, record.RubroCode)] = &clone
	return nil
}

func (r *memLedger) FindByID(ctx context.Context, id uuid.UUID) (*allocation.AllocationRecord, error) {
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

func (r *memLedger) FindByIdentity(ctx context.Context, projectID, baselineID uuid.UUID, month int, rubroCode string) (*allocation.AllocationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[ledgerKey(projectID, baselineID, month, rubroCode)]; ok {
		clone := *row
		return &clone, nil
	}
	return nil, nil
}

func (r *memLedger) ExistsIdentity(ctx context.Context, projectID, baselineID uuid.UUID, month int, rubroCode string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[ledgerKey(projectID, baselineID, month, rubroCode)]
	return ok, nil
}

func (r *memLedger) ListByBaseline(ctx context.Context, projectID, baselineID uuid.UUID) ([]allocation.AllocationRecord, error) {
	return r.ListByProject(ctx, projectID, allocation.RecordFilter{BaselineID: &baselineID})
}

func (r *memLedger) ListByProject(ctx context.Context, projectID uuid.UUID, filter allocation.RecordFilter) ([]allocation.AllocationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []allocation.AllocationRecord
	for _, row := range r.rows {
		if row.ProjectID == projectID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *memLedger) ListPage(ctx context.Context, afterID string, limit int) ([]allocation.AllocationRecord, error) {
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

func (r *memLedger) UpdateIdentifier(ctx context.Context, record *allocation.AllocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failUpdate != nil {
		return r.failUpdate
	}

	for key, row := range r.rows {
		if row.ID == record.ID {
			clone := *row
			clone.RubroCode = record.RubroCode
			clone.OriginalIdentifier = record.OriginalIdentifier
			clone.UpdatedAt = record.UpdatedAt
			delete(r.rows, key)
			r.rows[ledgerKey(clone.ProjectID, clone.BaselineID, clone.Month, clone.RubroCode)] = &clone
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memLedger) Save(ctx context.Context, record *allocation.AllocationRecord) error {
	return r.Upsert(ctx, record)
}

func (r *memLedger) CountAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

// memCheckpointStore keeps checkpoints in memory and logs every save so
// tests can replay an interruption.
type memCheckpointStore struct {
	mu          sync.Mutex
	checkpoints map[string]allocation.Checkpoint
	saves       []allocation.Checkpoint
}

func newMemCheckpointStore() *memCheckpointStore {
	return &memCheckpointStore{checkpoints: make(map[string]allocation.Checkpoint)}
}

func (s *memCheckpointStore) SaveCheckpoint(ctx context.Context, checkpoint allocation.Checkpoint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[checkpoint.ScanID] = checkpoint
	s.saves = append(s.saves, checkpoint)
	return nil
}

func (s *memCheckpointStore) LoadCheckpoint(ctx context.Context, scanID string) (*allocation.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if checkpoint, ok := s.checkpoints[scanID]; ok {
		return &checkpoint, nil
	}
	return nil, nil
}

func (s *memCheckpointStore) ClearCheckpoint(ctx context.Context, scanID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, scanID)
	return nil
}

func TestScanDryRunClassifies(t *testing.T) {
	store := loadedStore(t)
	ledger := newMemLedger()
	projectID, baselineID := uuid.New(), uuid.New()

	ledger.seed(t, projectID, baselineID, 1, "MOD-LEAD")
	aliased := ledger.seed(t, projectID, baselineID, 2, "MOD-PM")
	ledger.seed(t, projectID, baselineID, 3, "mod lead")
	ledger.seed(t, projectID, baselineID, 4, "rubro-misterioso")

	scanner := NewScanner(store, ledger, nil, nil)
	report, err := scanner.Scan(context.Background(), ScanOptions{Mode: allocation.ScanModeDryRun})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 1, report.AlreadyCanonical)
	assert.Equal(t, 2, report.Remediated)
	assert.Equal(t, 1, report.Unresolvable)
	assert.Zero(t, report.Conflicted)
	assert.False(t, report.Clean())
	assert.False(t, report.CompletedAt.IsZero())

	// A dry run never writes: the aliased record is untouched.
	stored, err := ledger.FindByID(context.Background(), aliased.ID)
	require.NoError(t, err)
	assert.Equal(t, "MOD-PM", stored.RubroCode)
	assert.Empty(t, stored.OriginalIdentifier)
}

func TestScanApplyRewrites(t *testing.T) {
	store := loadedStore(t)
	ledger := newMemLedger()
	ctx := context.Background()
	projectID, baselineID := uuid.New(), uuid.New()

	aliased := ledger.seed(t, projectID, baselineID, 1, "MOD-PM")

	scanner := NewScanner(store, ledger, nil, nil)
	report, err := scanner.Scan(ctx, ScanOptions{Mode: allocation.ScanModeApply})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Remediated)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "MOD-PM", report.Findings[0].Identifier)
	assert.Equal(t, "MOD-LEAD", report.Findings[0].CanonicalCode)

	stored, err := ledger.FindByID(ctx, aliased.ID)
	require.NoError(t, err)
	assert.Equal(t, "MOD-LEAD", stored.RubroCode)
	assert.Equal(t, "MOD-PM", stored.OriginalIdentifier)

	t.Run("second pass finds nothing to do", func(t *testing.T) {
		report, err := scanner.Scan(ctx, ScanOptions{Mode: allocation.ScanModeApply})
		require.NoError(t, err)
		assert.Equal(t, 1, report.AlreadyCanonical)
		assert.Zero(t, report.Remediated)
		assert.True(t, report.Clean())

		// The original spelling survives the second pass.
		stored, err := ledger.FindByID(ctx, aliased.ID)
		require.NoError(t, err)
		assert.Equal(t, "MOD-PM", stored.OriginalIdentifier)
	})
}

func TestScanConflictIsReportedNotApplied(t *testing.T) {
	store := loadedStore(t)
	ledger := newMemLedger()
	ctx := context.Background()
	projectID, baselineID := uuid.New(), uuid.New()

	// Rewriting MOD-PM in month 1 would collide with the MOD-LEAD row.
	ledger.seed(t, projectID, baselineID, 1, "MOD-LEAD")
	aliased := ledger.seed(t, projectID, baselineID, 1, "MOD-PM")

	scanner := NewScanner(store, ledger, nil, nil)
	report, err := scanner.Scan(ctx, ScanOptions{Mode: allocation.ScanModeApply})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Conflicted)
	assert.Zero(t, report.Remediated)

	stored, err := ledger.FindByID(ctx, aliased.ID)
	require.NoError(t, err)
	assert.Equal(t, "MOD-PM", stored.RubroCode)
}

func TestScanWriteFailureCountsAndContinues(t *testing.T) {
	store := loadedStore(t)
	ledger := newMemLedger()
	projectID, baselineID := uuid.New(), uuid.New()

	ledger.seed(t, projectID, baselineID, 1, "MOD-PM")
	ledger.seed(t, projectID, baselineID, 2, "MOD-LEAD")
	ledger.failUpdate = errors.New("connection reset")

	scanner := NewScanner(store, ledger, nil, nil)
	report, err := scanner.Scan(context.Background(), ScanOptions{Mode: allocation.ScanModeApply})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.AlreadyCanonical)
}

func TestScanRequiresLoadedTaxonomy(t *testing.T) {
	store := taxonomy.NewStore(&stubEntryRepo{}, &stubAliasRepo{})
	scanner := NewScanner(store, newMemLedger(), nil, nil)

	_, err := scanner.Scan(context.Background(), ScanOptions{Mode: allocation.ScanModeDryRun})
	assert.ErrorIs(t, err, taxonomy.ErrNotLoaded)
}

func TestScanRejectsUnknownMode(t *testing.T) {
	scanner := NewScanner(loadedStore(t), newMemLedger(), nil, nil)

	_, err := scanner.Scan(context.Background(), ScanOptions{Mode: "SOMETIMES"})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_SCAN_MODE", domainErr.Code)
}

func TestScanCheckpointsAndResumes(t *testing.T) {
	store := loadedStore(t)
	ledger := newMemLedger()
	ctx := context.Background()
	projectID, baselineID := uuid.New(), uuid.New()

	for month := 1; month <= 4; month++ {
		ledger.seed(t, projectID, baselineID, month, "MOD-LEAD")
	}

	checkpoints := newMemCheckpointStore()
	scanner := NewScanner(store, ledger, checkpoints, nil)

	report, err := scanner.Scan(ctx, ScanOptions{ScanID: "scan-1", Mode: allocation.ScanModeDryRun, BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scanned)
	assert.False(t, report.Resumed)

	// Progress was checkpointed per batch and cleared at the end.
	require.Len(t, checkpoints.saves, 2)
	assert.Equal(t, 2, checkpoints.saves[0].Scanned)
	assert.NotEmpty(t, checkpoints.saves[0].Cursor)
	cleared, err := checkpoints.LoadCheckpoint(ctx, "scan-1")
	require.NoError(t, err)
	assert.Nil(t, cleared)

	t.Run("resume picks up after the stored cursor", func(t *testing.T) {
		// Replay an interruption by restoring the first batch's checkpoint.
		resumed := newMemCheckpointStore()
		require.NoError(t, resumed.SaveCheckpoint(ctx, checkpoints.saves[0], time.Hour))

		scanner := NewScanner(store, ledger, resumed, nil)
		report, err := scanner.Scan(ctx, ScanOptions{ScanID: "scan-1", Mode: allocation.ScanModeDryRun, BatchSize: 2, Resume: true})
		require.NoError(t, err)

		assert.True(t, report.Resumed)
		assert.Equal(t, 4, report.Scanned)
		assert.Equal(t, 4, report.AlreadyCanonical)
	})

	t.Run("a checkpoint for another mode is ignored", func(t *testing.T) {
		resumed := newMemCheckpointStore()
		foreign := checkpoints.saves[0]
		foreign.Mode = allocation.ScanModeApply
		require.NoError(t, resumed.SaveCheckpoint(ctx, foreign, time.Hour))

		scanner := NewScanner(store, ledger, resumed, nil)
		report, err := scanner.Scan(ctx, ScanOptions{ScanID: "scan-1", Mode: allocation.ScanModeDryRun, BatchSize: 2, Resume: true})
		require.NoError(t, err)

		assert.False(t, report.Resumed)
		assert.Equal(t, 4, report.Scanned)
	})
}

func TestScanGeneratesScanID(t *testing.T) {
	scanner := NewScanner(loadedStore(t), newMemLedger(), nil, nil)

	report, err := scanner.Scan(context.Background(), ScanOptions{Mode: allocation.ScanModeDryRun})
	require.NoError(t, err)
	assert.NotEmpty(t, report.ScanID)
}
