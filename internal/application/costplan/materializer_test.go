package costplan

import (
	"context"
	"errors"
	"testing"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/project"
	"github.com/finz/backend/internal/domain/shared/valueobject"
	"github.com/finz/backend/internal/domain/taxonomy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(t *testing.T, baselineID uuid.UUID, rubroID string, baseCost int64, recurring bool, months, startMonth int) project.BaselineCostItem {
	t.Helper()
	cost, err := valueobject.NewMoney(decimal.NewFromInt(baseCost), valueobject.USD)
	require.NoError(t, err)
	item, err := project.NewBaselineCostItem(baselineID, rubroID, "", cost, recurring, months, startMonth)
	require.NoError(t, err)
	return *item
}

func TestMaterializeItemFanOut(t *testing.T) {
	_, gate := loadedTaxonomy(t)
	records := newMemRecordRepo()
	m := NewMaterializer(gate, records, nil)

	projectID, baselineID := uuid.New(), uuid.New()
	item := testItem(t, baselineID, "MOD-LEAD", 1000, true, 6, 3)

	result, err := m.MaterializeItem(context.Background(), projectID, baselineID, item, "ana")
	require.NoError(t, err)

	assert.Equal(t, allocation.MaterializationCompleted, result.Status)
	assert.Equal(t, 6, result.MonthsWritten())

	// Months 3 through 8 inclusive, nothing outside the range.
	for month := 3; month <= 8; month++ {
		record, err := records.FindByIdentity(context.Background(), projectID, baselineID, month, "MOD-LEAD")
		require.NoError(t, err)
		require.NotNil(t, record, "month %d", month)
		assert.True(t, record.PlannedAmount.Equal(decimal.NewFromInt(1000)))
		assert.True(t, record.ForecastAmount.Equal(decimal.NewFromInt(1000)))
		assert.True(t, record.ActualAmount.IsZero())
		assert.Equal(t, "ana", record.CreatedBy)
	}
	for _, month := range []int{2, 9} {
		record, err := records.FindByIdentity(context.Background(), projectID, baselineID, month, "MOD-LEAD")
		require.NoError(t, err)
		assert.Nil(t, record, "month %d", month)
	}
}

func TestMaterializeItemOneOff(t *testing.T) {
	_, gate := loadedTaxonomy(t)
	records := newMemRecordRepo()
	m := NewMaterializer(gate, records, nil)

	projectID, baselineID := uuid.New(), uuid.New()
	item := testItem(t, baselineID, "MOD-SDM", 500, false, 0, 4)

	result, err := m.MaterializeItem(context.Background(), projectID, baselineID, item, "ana")
	require.NoError(t, err)
	assert.Equal(t, 1, result.MonthsWritten())
	assert.Equal(t, 4, result.Outcomes[0].Month)
}

func TestMaterializeItemResolvesAlias(t *testing.T) {
	_, gate := loadedTaxonomy(t)
	records := newMemRecordRepo()
	m := NewMaterializer(gate, records, nil)

	projectID, baselineID := uuid.New(), uuid.New()
	item := testItem(t, baselineID, "MOD-PM", 1000, true, 2, 1)

	result, err := m.MaterializeItem(context.Background(), projectID, baselineID, item, "ana")
	require.NoError(t, err)
	require.Equal(t, 2, result.MonthsWritten())

	// Records land under the canonical code with the supplied identifier
	// preserved for audit.
	for _, month := range []int{1, 2} {
		record, err := records.FindByIdentity(context.Background(), projectID, baselineID, month, "MOD-LEAD")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "MOD-LEAD", record.RubroCode)
		assert.Equal(t, "MOD-PM", record.OriginalIdentifier)
		assert.True(t, record.PlannedAmount.Equal(decimal.NewFromInt(1000)))
	}
}

func TestMaterializeItemIdempotent(t *testing.T) {
	_, gate := loadedTaxonomy(t)
	records := newMemRecordRepo()
	m := NewMaterializer(gate, records, nil)

	projectID, baselineID := uuid.New(), uuid.New()
	item := testItem(t, baselineID, "MOD-LEAD", 1000, true, 3, 1)

	_, err := m.MaterializeItem(context.Background(), projectID, baselineID, item, "ana")
	require.NoError(t, err)
	first, err := records.ListByBaseline(context.Background(), projectID, baselineID)
	require.NoError(t, err)

	_, err = m.MaterializeItem(context.Background(), projectID, baselineID, item, "ana")
	require.NoError(t, err)
	second, err := records.ListByBaseline(context.Background(), projectID, baselineID)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.True(t, first[i].PlannedAmount.Equal(second[i].PlannedAmount))
		assert.True(t, first[i].ActualAmount.Equal(second[i].ActualAmount))
	}
}

func TestMaterializeItemUnresolvableShortCircuits(t *testing.T) {
	_, gate := loadedTaxonomy(t)
	records := newMemRecordRepo()
	m := NewMaterializer(gate, records, nil)

	projectID, baselineID := uuid.New(), uuid.New()
	item := testItem(t, baselineID, "rubro-misterioso", 1000, true, 6, 1)

	result, err := m.MaterializeItem(context.Background(), projectID, baselineID, item, "ana")
	require.NoError(t, err)

	assert.True(t, result.IsDegraded())
	assert.Equal(t, 0, result.MonthsWritten())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "rubro-misterioso", result.Failures[0].RubroID)

	// Not a single write happened.
	count, err := records.CountAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMaterializeItemNotLoadedIsOperational(t *testing.T) {
	_, gate := coldTaxonomy()
	m := NewMaterializer(gate, newMemRecordRepo(), nil)

	item := testItem(t, uuid.New(), "MOD-LEAD", 1000, false, 0, 1)
	_, err := m.MaterializeItem(context.Background(), uuid.New(), uuid.New(), item, "ana")
	assert.ErrorIs(t, err, taxonomy.ErrNotLoaded)
}

func TestMaterializeItemPartialFailureIsVisible(t *testing.T) {
	_, gate := loadedTaxonomy(t)
	records := newMemRecordRepo()
	records.failMonth[2] = errors.New("store unavailable")
	m := NewMaterializer(gate, records, nil)

	projectID, baselineID := uuid.New(), uuid.New()
	item := testItem(t, baselineID, "MOD-LEAD", 1000, true, 3, 1)

	result, err := m.MaterializeItem(context.Background(), projectID, baselineID, item, "ana")
	require.NoError(t, err)

	// Months 1 and 3 landed, month 2 is reported failed; the result is
	// degraded, never a silent success.
	assert.True(t, result.IsDegraded())
	assert.Equal(t, 2, result.MonthsWritten())
	require.Len(t, result.MonthFailures, 1)
	assert.Equal(t, 2, result.MonthFailures[0].Month)
	assert.Contains(t, result.MonthFailures[0].Reason, "store unavailable")
}

func TestMaterializeBaselineMergesItems(t *testing.T) {
	_, gate := loadedTaxonomy(t)
	records := newMemRecordRepo()
	m := NewMaterializer(gate, records, nil)

	projectID := uuid.New()
	baseline, err := project.NewBaseline(projectID, "2026 baseline")
	require.NoError(t, err)

	cost, err := valueobject.NewMoney(decimal.NewFromInt(1000), valueobject.USD)
	require.NoError(t, err)
	_, err = baseline.AddItem("MOD-PM", "", cost, true, 2, 1)
	require.NoError(t, err)
	_, err = baseline.AddItem("service-delivery-manager", "", cost, false, 0, 1)
	require.NoError(t, err)
	_, err = baseline.AddItem("rubro-misterioso", "", cost, false, 0, 2)
	require.NoError(t, err)

	result, err := m.MaterializeBaseline(context.Background(), baseline, "ana")
	require.NoError(t, err)

	assert.True(t, result.IsDegraded())
	assert.Equal(t, 3, result.MonthsWritten())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "rubro-misterioso", result.Failures[0].RubroID)
	assert.Equal(t, 2, result.Failures[0].Position)
}
