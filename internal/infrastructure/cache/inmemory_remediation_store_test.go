package cache

import (
	"context"
	"testing"
	"time"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRemediationStore_Checkpoints(t *testing.T) {
	store := NewInMemoryRemediationStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("round-trips a checkpoint", func(t *testing.T) {
		checkpoint := allocation.Checkpoint{
			ScanID:  "scan-1",
			Mode:    allocation.ScanModeDryRun,
			Cursor:  "cursor-abc",
			Scanned: 42,
		}

		err := store.SaveCheckpoint(ctx, checkpoint, 1*time.Hour)
		require.NoError(t, err)

		loaded, err := store.LoadCheckpoint(ctx, "scan-1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "cursor-abc", loaded.Cursor)
		assert.Equal(t, 42, loaded.Scanned)
	})

	t.Run("returns nil for unknown scan", func(t *testing.T) {
		loaded, err := store.LoadCheckpoint(ctx, "never-ran")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("expired checkpoint reads as absent", func(t *testing.T) {
		checkpoint := allocation.Checkpoint{ScanID: "scan-2", Mode: allocation.ScanModeApply}

		err := store.SaveCheckpoint(ctx, checkpoint, 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		loaded, err := store.LoadCheckpoint(ctx, "scan-2")
		require.NoError(t, err)
		assert.Nil(t, loaded, "expired checkpoint should read as absent")
	})

	t.Run("clear removes the checkpoint", func(t *testing.T) {
		checkpoint := allocation.Checkpoint{ScanID: "scan-3", Mode: allocation.ScanModeDryRun}

		err := store.SaveCheckpoint(ctx, checkpoint, 1*time.Hour)
		require.NoError(t, err)

		err = store.ClearCheckpoint(ctx, "scan-3")
		require.NoError(t, err)

		loaded, err := store.LoadCheckpoint(ctx, "scan-3")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})
}

func TestInMemoryRemediationStore_Reports(t *testing.T) {
	store := NewInMemoryRemediationStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("round-trips a report", func(t *testing.T) {
		report := allocation.NewRemediationReport("scan-1", allocation.ScanModeDryRun)
		report.Scanned = 10
		report.Remediated = 3
		report.Complete()

		err := store.SaveReport(ctx, report, 1*time.Hour)
		require.NoError(t, err)

		loaded, err := store.GetReport(ctx, "scan-1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, 10, loaded.Scanned)
		assert.Equal(t, 3, loaded.Remediated)
	})

	t.Run("returns nil for unknown report", func(t *testing.T) {
		loaded, err := store.GetReport(ctx, "never-ran")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})
}

func TestInMemoryRemediationStore_Cleanup(t *testing.T) {
	store := NewInMemoryRemediationStore()
	defer store.Close()

	ctx := context.Background()

	err := store.SaveCheckpoint(ctx, allocation.Checkpoint{ScanID: "scan-1"}, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Size())

	time.Sleep(20 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 0, store.Size())
}
