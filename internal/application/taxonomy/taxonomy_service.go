package taxonomy

import (
	"context"
	"strings"

	"github.com/finz/backend/internal/domain/shared"
	"github.com/finz/backend/internal/domain/taxonomy"
)

// TaxonomyService exposes the rubro taxonomy for read access and
// diagnostic resolution. All reads are served from the process-wide
// snapshot; nothing here touches the database after warm-up.
type TaxonomyService struct {
	store *taxonomy.Store
	gate  *taxonomy.Gate
}

// NewTaxonomyService creates a new TaxonomyService
func NewTaxonomyService(store *taxonomy.Store, gate *taxonomy.Gate) *TaxonomyService {
	return &TaxonomyService{
		store: store,
		gate:  gate,
	}
}

// Warmup loads the taxonomy snapshot. The server calls this once during
// startup, before any request is served.
func (s *TaxonomyService) Warmup(ctx context.Context) (StatusResponse, error) {
	if _, err := s.store.Load(ctx); err != nil {
		return StatusResponse{}, err
	}
	return s.Status(), nil
}

// Reload rebuilds the snapshot from the backing store. Used after the
// taxonomy reference data is redeployed; a failed reload keeps the
// current snapshot serving.
func (s *TaxonomyService) Reload(ctx context.Context) (StatusResponse, error) {
	if _, err := s.store.Reload(ctx); err != nil {
		return StatusResponse{}, err
	}
	return s.Status(), nil
}

// Status reports whether the taxonomy is loaded and how big it is
func (s *TaxonomyService) Status() StatusResponse {
	snapshot, ok := s.store.Snapshot()
	if !ok {
		return StatusResponse{Loaded: false}
	}
	loadedAt := snapshot.LoadedAt()
	return StatusResponse{
		Loaded:   true,
		Entries:  snapshot.EntryCount(),
		Aliases:  snapshot.AliasCount(),
		LoadedAt: &loadedAt,
	}
}

// ListEntries returns taxonomy entries matching the filter
func (s *TaxonomyService) ListEntries(ctx context.Context, req ListEntriesRequest) ([]EntryResponse, error) {
	snapshot, ok := s.store.Snapshot()
	if !ok {
		return nil, taxonomy.ErrNotLoaded
	}

	entries := snapshot.Entries()
	out := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		if !req.IncludeInactive && !entry.Active {
			continue
		}
		if req.Category != "" && !strings.EqualFold(entry.Category, req.Category) {
			continue
		}
		if req.CostType != "" && entry.CostType.String() != req.CostType {
			continue
		}
		out = append(out, toEntryResponse(entry))
	}
	return out, nil
}

// GetEntry returns one entry by canonical code. The code is normalized
// first so "mod-lead" finds MOD-LEAD; aliases are not consulted here.
func (s *TaxonomyService) GetEntry(ctx context.Context, code string) (*EntryResponse, error) {
	snapshot, ok := s.store.Snapshot()
	if !ok {
		return nil, taxonomy.ErrNotLoaded
	}

	entry, found := snapshot.Lookup(taxonomy.Normalize(code))
	if !found {
		return nil, shared.ErrNotFound
	}
	resp := toEntryResponse(*entry)
	return &resp, nil
}

// ListAliases returns every legacy alias mapping
func (s *TaxonomyService) ListAliases(ctx context.Context) ([]AliasResponse, error) {
	snapshot, ok := s.store.Snapshot()
	if !ok {
		return nil, taxonomy.ErrNotLoaded
	}

	aliases := snapshot.Aliases()
	out := make([]AliasResponse, 0, len(aliases))
	for _, alias := range aliases {
		out = append(out, toAliasResponse(alias))
	}
	return out, nil
}

// Resolve runs one identifier through the resolver and returns the full
// resolution, including how it matched. Unresolved is a normal outcome
// here; this endpoint exists so operators can test identifiers without
// attempting a write.
func (s *TaxonomyService) Resolve(ctx context.Context, req ResolveRequest) (taxonomy.Resolution, error) {
	return s.gate.Resolve(req.RubroID)
}
