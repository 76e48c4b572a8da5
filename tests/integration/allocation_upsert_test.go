package integration

import (
	"context"
	"testing"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/shared/valueobject"
	"github.com/finz/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAllocationRecordUpsert verifies the ON CONFLICT behavior of the
// allocation identity index against a real PostgreSQL instance. A second
// materialization of the same (project, baseline, month, rubro) must
// update amounts in place instead of inserting a duplicate row, and must
// leave actuals and the original identifier untouched.
func TestAllocationRecordUpsert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	repo := persistence.NewGormRecordRepository(tdb.DB)
	ctx := context.Background()

	projectID := uuid.New()
	baselineID := uuid.New()
	tdb.CreateTestProject(projectID)
	tdb.CreateTestBaseline(projectID, baselineID)

	planned, err := valueobject.NewMoneyFromFloat(1000, valueobject.USD)
	require.NoError(t, err)

	record, err := allocation.NewAllocationRecord(projectID, baselineID, 1, "MOD-LEAD", planned, "MOD-PM", "tester")
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, record))

	// Simulate accrued actuals between materializations.
	stored, err := repo.FindByIdentity(ctx, projectID, baselineID, 1, "MOD-LEAD")
	require.NoError(t, err)
	require.NotNil(t, stored)
	stored.ActualAmount = decimal.NewFromInt(250)
	require.NoError(t, repo.Save(ctx, stored))

	// Re-materialize with a new planned amount under the same identity.
	replanned, err := valueobject.NewMoneyFromFloat(1500, valueobject.USD)
	require.NoError(t, err)
	rerun, err := allocation.NewAllocationRecord(projectID, baselineID, 1, "MOD-LEAD", replanned, "MOD-PM", "tester")
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, rerun))

	var count int64
	require.NoError(t, tdb.DB.Model(&allocation.AllocationRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "upsert must not create a second row for the same identity")

	after, err := repo.FindByIdentity(ctx, projectID, baselineID, 1, "MOD-LEAD")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, stored.ID, after.ID, "row identity survives re-materialization")
	assert.True(t, after.PlannedAmount.Equal(decimal.NewFromInt(1500)), "planned amount replaced, got %s", after.PlannedAmount)
	assert.True(t, after.ForecastAmount.Equal(decimal.NewFromInt(1500)), "forecast reset to the new plan, got %s", after.ForecastAmount)
	assert.True(t, after.ActualAmount.Equal(decimal.NewFromInt(250)), "actuals survive re-materialization, got %s", after.ActualAmount)
	assert.Equal(t, "MOD-PM", after.OriginalIdentifier, "original identifier keeps its first-written value")
}

// TestAllocationRecordListByBaselineOrdering verifies month/rubro
// ordering at the database level.
func TestAllocationRecordListByBaselineOrdering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	repo := persistence.NewGormRecordRepository(tdb.DB)
	ctx := context.Background()

	projectID := uuid.New()
	baselineID := uuid.New()
	tdb.CreateTestProject(projectID)
	tdb.CreateTestBaseline(projectID, baselineID)

	amount, err := valueobject.NewMoneyFromFloat(100, valueobject.USD)
	require.NoError(t, err)

	for _, identity := range []struct {
		month int
		code  string
	}{
		{2, "MOD-SDM"},
		{1, "MOD-SDM"},
		{2, "MOD-LEAD"},
		{1, "MOD-LEAD"},
	} {
		record, err := allocation.NewAllocationRecord(projectID, baselineID, identity.month, identity.code, amount, identity.code, "tester")
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, record))
	}

	records, err := repo.ListByBaseline(ctx, projectID, baselineID)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, 1, records[0].Month)
	assert.Equal(t, "MOD-LEAD", records[0].RubroCode)
	assert.Equal(t, 1, records[1].Month)
	assert.Equal(t, "MOD-SDM", records[1].RubroCode)
	assert.Equal(t, 2, records[2].Month)
	assert.Equal(t, "MOD-LEAD", records[2].RubroCode)
	assert.Equal(t, 2, records[3].Month)
	assert.Equal(t, "MOD-SDM", records[3].RubroCode)
}
