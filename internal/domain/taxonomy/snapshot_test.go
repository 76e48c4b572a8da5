package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEntry(t *testing.T, code, name string) Entry {
	t.Helper()
	entry, err := NewEntry(code, name, CostTypeOpex, ExecutionTypeInternal)
	require.NoError(t, err)
	return *entry
}

func mustAlias(t *testing.T, alias, code string) Alias {
	t.Helper()
	a, err := NewAlias(alias, code)
	require.NoError(t, err)
	return *a
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	entries := []Entry{
		mustEntry(t, "MOD-LEAD", "Módulo Líder"),
		mustEntry(t, "MOD-SDM", "Service Delivery Manager"),
	}
	aliases := []Alias{
		mustAlias(t, "service-delivery-manager", "MOD-SDM"),
		mustAlias(t, "MOD-PM", "MOD-LEAD"),
	}
	snapshot, err := NewSnapshot(entries, aliases)
	require.NoError(t, err)
	return snapshot
}

func TestNewSnapshot(t *testing.T) {
	t.Run("builds from valid entries and aliases", func(t *testing.T) {
		snapshot := testSnapshot(t)
		assert.Equal(t, 2, snapshot.EntryCount())
		assert.Equal(t, 2, snapshot.AliasCount())
		assert.False(t, snapshot.LoadedAt().IsZero())
	})

	t.Run("fails on duplicate canonical code", func(t *testing.T) {
		entries := []Entry{
			mustEntry(t, "MOD-LEAD", "Módulo Líder"),
			mustEntry(t, "MOD-LEAD", "Duplicado"),
		}
		_, err := NewSnapshot(entries, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate canonical code")
	})

	t.Run("fails on duplicate alias", func(t *testing.T) {
		entries := []Entry{mustEntry(t, "MOD-LEAD", "Módulo Líder")}
		aliases := []Alias{
			mustAlias(t, "MOD-PM", "MOD-LEAD"),
			mustAlias(t, "MOD-PM", "MOD-LEAD"),
		}
		_, err := NewSnapshot(entries, aliases)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate alias")
	})

	t.Run("fails on alias pointing at unknown code", func(t *testing.T) {
		entries := []Entry{mustEntry(t, "MOD-LEAD", "Módulo Líder")}
		aliases := []Alias{mustAlias(t, "MOD-PM", "MOD-GONE")}
		_, err := NewSnapshot(entries, aliases)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown canonical code")
	})

	t.Run("fails on aliases whose normalized forms collide across codes", func(t *testing.T) {
		entries := []Entry{
			mustEntry(t, "MOD-LEAD", "Módulo Líder"),
			mustEntry(t, "MOD-SDM", "Service Delivery Manager"),
		}
		aliases := []Alias{
			mustAlias(t, "project manager", "MOD-LEAD"),
			mustAlias(t, "PROJECT-MANAGER", "MOD-SDM"),
		}
		_, err := NewSnapshot(entries, aliases)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "normalizing to")
	})

	t.Run("allows aliases whose normalized forms collide on the same code", func(t *testing.T) {
		entries := []Entry{mustEntry(t, "MOD-LEAD", "Módulo Líder")}
		aliases := []Alias{
			mustAlias(t, "project manager", "MOD-LEAD"),
			mustAlias(t, "PROJECT-MANAGER", "MOD-LEAD"),
		}
		_, err := NewSnapshot(entries, aliases)
		require.NoError(t, err)
	})

	t.Run("orders entries by sort order", func(t *testing.T) {
		first := mustEntry(t, "MOD-SDM", "Service Delivery Manager")
		first.SortOrder = 2
		second := mustEntry(t, "MOD-LEAD", "Módulo Líder")
		second.SortOrder = 1

		snapshot, err := NewSnapshot([]Entry{first, second}, nil)
		require.NoError(t, err)

		entries := snapshot.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "MOD-LEAD", entries[0].Code)
		assert.Equal(t, "MOD-SDM", entries[1].Code)
	})
}

func TestSnapshotLookup(t *testing.T) {
	snapshot := testSnapshot(t)

	t.Run("finds existing canonical code", func(t *testing.T) {
		entry, ok := snapshot.Lookup("MOD-LEAD")
		require.True(t, ok)
		assert.Equal(t, "MOD-LEAD", entry.Code)
		assert.Equal(t, "Módulo Líder", entry.Name)
	})

	t.Run("missing code is not found, not an error", func(t *testing.T) {
		entry, ok := snapshot.Lookup("MOD-GONE")
		assert.False(t, ok)
		assert.Nil(t, entry)
	})

	t.Run("lookup does not normalize", func(t *testing.T) {
		_, ok := snapshot.Lookup("mod-lead")
		assert.False(t, ok)
	})
}

func TestSnapshotResolve(t *testing.T) {
	snapshot := testSnapshot(t)

	t.Run("canonical code resolves to itself", func(t *testing.T) {
		res := snapshot.Resolve("MOD-LEAD")
		assert.Equal(t, ResolutionCanonical, res.Kind)
		assert.Equal(t, "MOD-LEAD", res.Code)
		assert.True(t, res.IsResolved())
		assert.True(t, res.IsCanonical())
	})

	t.Run("canonical match works on the normalized input", func(t *testing.T) {
		res := snapshot.Resolve("  mod-lead ")
		assert.Equal(t, ResolutionCanonical, res.Kind)
		assert.Equal(t, "MOD-LEAD", res.Code)
	})

	t.Run("literal alias resolves", func(t *testing.T) {
		res := snapshot.Resolve("service-delivery-manager")
		assert.Equal(t, ResolutionLegacyAlias, res.Kind)
		assert.Equal(t, "MOD-SDM", res.Code)
		assert.True(t, res.IsLegacyAlias())
	})

	t.Run("normalized alias resolves", func(t *testing.T) {
		res := snapshot.Resolve("mod pm")
		assert.Equal(t, ResolutionLegacyAlias, res.Kind)
		assert.Equal(t, "MOD-LEAD", res.Code)
	})

	t.Run("legacy alias MOD-PM resolves to MOD-LEAD", func(t *testing.T) {
		res := snapshot.Resolve("MOD-PM")
		assert.Equal(t, ResolutionLegacyAlias, res.Kind)
		assert.Equal(t, "MOD-LEAD", res.Code)
	})

	t.Run("canonical fast path wins over aliases", func(t *testing.T) {
		entries := []Entry{
			mustEntry(t, "MOD-LEAD", "Módulo Líder"),
			mustEntry(t, "MOD-PM", "Project Manager"),
		}
		// The alias exists but the code with the same normalized form
		// must take precedence.
		aliases := []Alias{mustAlias(t, "mod pm", "MOD-LEAD")}
		s, err := NewSnapshot(entries, aliases)
		require.NoError(t, err)

		res := s.Resolve("MOD-PM")
		assert.Equal(t, ResolutionCanonical, res.Kind)
		assert.Equal(t, "MOD-PM", res.Code)
	})

	t.Run("unknown identifier is unresolved", func(t *testing.T) {
		res := snapshot.Resolve("whatever-this-is")
		assert.Equal(t, ResolutionUnresolved, res.Kind)
		assert.Empty(t, res.Code)
		assert.False(t, res.IsResolved())
		assert.Equal(t, "whatever-this-is", res.Input)
		assert.Equal(t, "WHATEVER-THIS-IS", res.Normalized)
	})

	t.Run("accented spelling resolves through normalized alias", func(t *testing.T) {
		entries := []Entry{mustEntry(t, "MOD-QA", "Aseguramiento de Calidad")}
		aliases := []Alias{mustAlias(t, "aseguramiento de calidad", "MOD-QA")}
		s, err := NewSnapshot(entries, aliases)
		require.NoError(t, err)

		res := s.Resolve("Aseguramiento De Calidad")
		assert.Equal(t, ResolutionLegacyAlias, res.Kind)
		assert.Equal(t, "MOD-QA", res.Code)
	})
}

func TestSnapshotEntriesIsACopy(t *testing.T) {
	snapshot := testSnapshot(t)
	entries := snapshot.Entries()
	entries[0].Code = "MUTATED"

	again := snapshot.Entries()
	assert.NotEqual(t, "MUTATED", again[0].Code)
}
