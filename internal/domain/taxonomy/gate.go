package taxonomy

// Gate is the fail-closed entry point every write path goes through.
// It refuses to hand back an identifier unless the identifier resolves
// to a canonical code, and it refuses everything while no snapshot is
// loaded. An unavailable taxonomy is reported distinctly from an
// invalid identifier.
type Gate struct {
	store *Store
}

// NewGate creates a gate backed by the given store
func NewGate(store *Store) *Gate {
	return &Gate{store: store}
}

// Require resolves a raw identifier and returns its canonical code.
// Returns ErrNotLoaded while no snapshot is available, and an
// unresolvable error when the identifier matches nothing.
func (g *Gate) Require(rawID string) (string, error) {
	snapshot, ok := g.store.Snapshot()
	if !ok {
		return "", ErrNotLoaded
	}

	resolution := snapshot.Resolve(rawID)
	if !resolution.IsResolved() {
		return "", NewUnresolvableError(rawID)
	}
	return resolution.Code, nil
}

// Resolve returns the full resolution for a raw identifier, including
// how it resolved. Returns ErrNotLoaded while no snapshot is available.
func (g *Gate) Resolve(rawID string) (Resolution, error) {
	snapshot, ok := g.store.Snapshot()
	if !ok {
		return Resolution{}, ErrNotLoaded
	}
	return snapshot.Resolve(rawID), nil
}
