package taxonomy

import (
	"context"
	"fmt"
	"sync"
)

// Store owns the process-wide taxonomy snapshot. The snapshot is loaded
// once and shared by reference; a load failure publishes nothing, so
// readers either see a complete snapshot or none at all.
type Store struct {
	entries EntryRepository
	aliases AliasRepository

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewStore creates a store backed by the given repositories
func NewStore(entries EntryRepository, aliases AliasRepository) *Store {
	return &Store{
		entries: entries,
		aliases: aliases,
	}
}

// Load builds the snapshot from the backing repositories. Calling Load
// on an already-loaded store returns the existing snapshot without
// touching the repositories again.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot != nil {
		return s.snapshot, nil
	}

	snapshot, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	s.snapshot = snapshot
	return snapshot, nil
}

// Reload rebuilds the snapshot from the backing repositories and swaps
// it in atomically. Readers holding the previous snapshot keep a
// consistent view; a failed reload leaves the current snapshot in place.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	snapshot, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	return snapshot, nil
}

// Snapshot returns the current snapshot, or false if none is loaded
func (s *Store) Snapshot() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil, false
	}
	return s.snapshot, true
}

// IsLoaded returns true once a snapshot has been published
func (s *Store) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot != nil
}

func (s *Store) build(ctx context.Context) (*Snapshot, error) {
	entries, err := s.entries.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy entries: %w", err)
	}

	aliases, err := s.aliases.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rubro aliases: %w", err)
	}

	return NewSnapshot(entries, aliases)
}
