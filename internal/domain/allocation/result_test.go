package allocation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMaterializationResult(t *testing.T) {
	projectID := uuid.New()
	baselineID := uuid.New()

	t.Run("starts completed and empty", func(t *testing.T) {
		result := NewMaterializationResult(projectID, baselineID)
		assert.Equal(t, MaterializationCompleted, result.Status)
		assert.False(t, result.IsDegraded())
		assert.Equal(t, 0, result.MonthsWritten())
	})

	t.Run("outcomes accumulate per month", func(t *testing.T) {
		result := NewMaterializationResult(projectID, baselineID)
		result.RecordOutcome(1, uuid.New(), "MOD-LEAD")
		result.RecordOutcome(2, uuid.New(), "MOD-LEAD")

		assert.Equal(t, 2, result.MonthsWritten())
		assert.Equal(t, MaterializationCompleted, result.Status)
		assert.Equal(t, 1, result.Outcomes[0].Month)
		assert.Equal(t, 2, result.Outcomes[1].Month)
	})

	t.Run("a single failure degrades the result", func(t *testing.T) {
		result := NewMaterializationResult(projectID, baselineID)
		result.RecordOutcome(1, uuid.New(), "MOD-LEAD")
		result.RecordFailure("rubro-misterioso", 3, "unresolvable identifier")

		assert.True(t, result.IsDegraded())
		assert.Equal(t, MaterializationDegraded, result.Status)
		assert.Len(t, result.Failures, 1)
		assert.Equal(t, "rubro-misterioso", result.Failures[0].RubroID)
		assert.Equal(t, 3, result.Failures[0].Position)
	})

	t.Run("a month write failure degrades without dropping siblings", func(t *testing.T) {
		result := NewMaterializationResult(projectID, baselineID)
		result.RecordOutcome(1, uuid.New(), "MOD-LEAD")
		result.RecordMonthFailure(2, "MOD-LEAD", "store unavailable")
		result.RecordOutcome(3, uuid.New(), "MOD-LEAD")

		assert.True(t, result.IsDegraded())
		assert.Equal(t, 2, result.MonthsWritten())
		assert.Len(t, result.MonthFailures, 1)
		assert.Equal(t, 2, result.MonthFailures[0].Month)
	})

	t.Run("merge folds outcomes and failures", func(t *testing.T) {
		total := NewMaterializationResult(projectID, baselineID)
		total.RecordOutcome(1, uuid.New(), "MOD-LEAD")

		partial := NewMaterializationResult(projectID, baselineID)
		partial.RecordOutcome(2, uuid.New(), "MOD-SDM")
		partial.RecordFailure("rubro-misterioso", 2, "unresolvable identifier")

		total.Merge(partial)
		assert.Equal(t, 2, total.MonthsWritten())
		assert.True(t, total.IsDegraded())
		assert.Len(t, total.Failures, 1)
	})

	t.Run("merging a clean result keeps completed status", func(t *testing.T) {
		total := NewMaterializationResult(projectID, baselineID)
		partial := NewMaterializationResult(projectID, baselineID)
		partial.RecordOutcome(1, uuid.New(), "MOD-LEAD")

		total.Merge(partial)
		assert.False(t, total.IsDegraded())
	})
}
