package taxonomy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEntryRepo struct {
	entries []Entry
	err     error
	calls   int
}

func (r *stubEntryRepo) FindAll(ctx context.Context) ([]Entry, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.entries, nil
}

func (r *stubEntryRepo) FindByCode(ctx context.Context, code string) (*Entry, error) {
	for i := range r.entries {
		if r.entries[i].Code == code {
			return &r.entries[i], nil
		}
	}
	return nil, nil
}

type stubAliasRepo struct {
	aliases []Alias
	err     error
	calls   int
}

func (r *stubAliasRepo) FindAll(ctx context.Context) ([]Alias, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.aliases, nil
}

func testStore(t *testing.T) (*Store, *stubEntryRepo, *stubAliasRepo) {
	t.Helper()
	entryRepo := &stubEntryRepo{entries: []Entry{
		mustEntry(t, "MOD-LEAD", "Módulo Líder"),
		mustEntry(t, "MOD-SDM", "Service Delivery Manager"),
	}}
	aliasRepo := &stubAliasRepo{aliases: []Alias{
		mustAlias(t, "service-delivery-manager", "MOD-SDM"),
		mustAlias(t, "MOD-PM", "MOD-LEAD"),
	}}
	return NewStore(entryRepo, aliasRepo), entryRepo, aliasRepo
}

func TestStoreLoad(t *testing.T) {
	t.Run("loads a snapshot from the repositories", func(t *testing.T) {
		store, _, _ := testStore(t)

		snapshot, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, snapshot.EntryCount())
		assert.True(t, store.IsLoaded())
	})

	t.Run("second load returns the same snapshot without refetching", func(t *testing.T) {
		store, entryRepo, aliasRepo := testStore(t)

		first, err := store.Load(context.Background())
		require.NoError(t, err)
		second, err := store.Load(context.Background())
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, entryRepo.calls)
		assert.Equal(t, 1, aliasRepo.calls)
	})

	t.Run("entry fetch failure publishes nothing", func(t *testing.T) {
		entryRepo := &stubEntryRepo{err: errors.New("connection refused")}
		aliasRepo := &stubAliasRepo{}
		store := NewStore(entryRepo, aliasRepo)

		_, err := store.Load(context.Background())
		require.Error(t, err)
		assert.False(t, store.IsLoaded())

		_, ok := store.Snapshot()
		assert.False(t, ok)
	})

	t.Run("alias fetch failure publishes nothing", func(t *testing.T) {
		entryRepo := &stubEntryRepo{entries: []Entry{mustEntry(t, "MOD-LEAD", "Módulo Líder")}}
		aliasRepo := &stubAliasRepo{err: errors.New("connection refused")}
		store := NewStore(entryRepo, aliasRepo)

		_, err := store.Load(context.Background())
		require.Error(t, err)
		assert.False(t, store.IsLoaded())
	})

	t.Run("invalid taxonomy publishes nothing", func(t *testing.T) {
		entryRepo := &stubEntryRepo{entries: []Entry{mustEntry(t, "MOD-LEAD", "Módulo Líder")}}
		aliasRepo := &stubAliasRepo{aliases: []Alias{mustAlias(t, "MOD-PM", "MOD-GONE")}}
		store := NewStore(entryRepo, aliasRepo)

		_, err := store.Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown canonical code")
		assert.False(t, store.IsLoaded())
	})

	t.Run("load succeeds after a failed attempt", func(t *testing.T) {
		entryRepo := &stubEntryRepo{err: errors.New("connection refused")}
		aliasRepo := &stubAliasRepo{}
		store := NewStore(entryRepo, aliasRepo)

		_, err := store.Load(context.Background())
		require.Error(t, err)

		entryRepo.err = nil
		entryRepo.entries = []Entry{mustEntry(t, "MOD-LEAD", "Módulo Líder")}

		snapshot, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, snapshot.EntryCount())
	})
}

func TestStoreReload(t *testing.T) {
	t.Run("reload swaps in a fresh snapshot", func(t *testing.T) {
		store, entryRepo, _ := testStore(t)

		first, err := store.Load(context.Background())
		require.NoError(t, err)

		entryRepo.entries = append(entryRepo.entries, mustEntry(t, "MOD-QA", "Aseguramiento de Calidad"))
		second, err := store.Reload(context.Background())
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.Equal(t, 3, second.EntryCount())
		// The old snapshot stays consistent for readers still holding it.
		assert.Equal(t, 2, first.EntryCount())
	})

	t.Run("failed reload keeps the current snapshot", func(t *testing.T) {
		store, entryRepo, _ := testStore(t)

		first, err := store.Load(context.Background())
		require.NoError(t, err)

		entryRepo.err = errors.New("connection refused")
		_, err = store.Reload(context.Background())
		require.Error(t, err)

		current, ok := store.Snapshot()
		require.True(t, ok)
		assert.Same(t, first, current)
	})
}

func TestStoreSnapshot(t *testing.T) {
	t.Run("returns false before load", func(t *testing.T) {
		store, _, _ := testStore(t)
		_, ok := store.Snapshot()
		assert.False(t, ok)
		assert.False(t, store.IsLoaded())
	})
}
