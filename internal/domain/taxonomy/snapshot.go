package taxonomy

import (
	"sort"
	"time"
)

// Snapshot is an immutable view of the rubro taxonomy: every canonical
// entry plus every legacy alias, indexed for resolution. A snapshot is
// fully built and validated before anyone can observe it; there is no
// partially-populated state. Concurrent readers share one snapshot.
type Snapshot struct {
	entries         []Entry
	aliases         []Alias
	byCode          map[string]int
	aliasLiteral    map[string]string
	aliasNormalized map[string]string
	aliasCount      int
	loadedAt        time.Time
}

// NewSnapshot builds and validates a snapshot from taxonomy rows.
// It fails on duplicate codes, duplicate aliases, aliases pointing at
// unknown codes, and aliases whose normalized forms collide across
// different canonical codes. A failed build leaves nothing behind.
func NewSnapshot(entries []Entry, aliases []Alias) (*Snapshot, error) {
	s := &Snapshot{
		entries:         make([]Entry, len(entries)),
		aliases:         make([]Alias, len(aliases)),
		byCode:          make(map[string]int, len(entries)),
		aliasLiteral:    make(map[string]string, len(aliases)),
		aliasNormalized: make(map[string]string, len(aliases)),
		aliasCount:      len(aliases),
		loadedAt:        time.Now(),
	}

	copy(s.entries, entries)
	copy(s.aliases, aliases)
	sort.SliceStable(s.aliases, func(i, j int) bool {
		return s.aliases[i].Alias < s.aliases[j].Alias
	})
	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].SortOrder != s.entries[j].SortOrder {
			return s.entries[i].SortOrder < s.entries[j].SortOrder
		}
		return s.entries[i].Code < s.entries[j].Code
	})

	for i, entry := range s.entries {
		if _, exists := s.byCode[entry.Code]; exists {
			return nil, NewDuplicateCodeError(entry.Code)
		}
		s.byCode[entry.Code] = i
	}

	for _, alias := range aliases {
		if _, exists := s.aliasLiteral[alias.Alias]; exists {
			return nil, NewDuplicateAliasError(alias.Alias)
		}
		if _, exists := s.byCode[alias.CanonicalCode]; !exists {
			return nil, NewUnknownAliasTargetError(alias.Alias, alias.CanonicalCode)
		}
		s.aliasLiteral[alias.Alias] = alias.CanonicalCode

		normalized := Normalize(alias.Alias)
		if existing, exists := s.aliasNormalized[normalized]; exists && existing != alias.CanonicalCode {
			return nil, NewAmbiguousAliasError(normalized, existing, alias.CanonicalCode)
		}
		s.aliasNormalized[normalized] = alias.CanonicalCode
	}

	return s, nil
}

// Lookup returns the entry for a canonical code. A missing code is a
// not-found, not an error.
func (s *Snapshot) Lookup(code string) (*Entry, bool) {
	idx, ok := s.byCode[code]
	if !ok {
		return nil, false
	}
	entry := s.entries[idx]
	return &entry, true
}

// Resolve maps a raw rubro identifier to its canonical code.
//
// Order matters and is part of the contract:
//  1. the normalized input matching a canonical code wins outright,
//  2. then the literal input is checked against the alias table,
//  3. then the normalized input is checked against normalized aliases.
//
// The literal tier exists because historical data contains aliases that
// normalization would distort; it must stay ahead of the normalized tier.
func (s *Snapshot) Resolve(rawID string) Resolution {
	normalized := Normalize(rawID)

	if _, ok := s.byCode[normalized]; ok {
		return Resolution{Input: rawID, Normalized: normalized, Kind: ResolutionCanonical, Code: normalized}
	}

	if code, ok := s.aliasLiteral[rawID]; ok {
		return Resolution{Input: rawID, Normalized: normalized, Kind: ResolutionLegacyAlias, Code: code}
	}

	if code, ok := s.aliasNormalized[normalized]; ok {
		return Resolution{Input: rawID, Normalized: normalized, Kind: ResolutionLegacyAlias, Code: code}
	}

	return Resolution{Input: rawID, Normalized: normalized, Kind: ResolutionUnresolved}
}

// Entries returns a copy of all entries ordered by sort order
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Aliases returns a copy of all aliases ordered by their literal form
func (s *Snapshot) Aliases() []Alias {
	out := make([]Alias, len(s.aliases))
	copy(out, s.aliases)
	return out
}

// EntryCount returns the number of canonical entries
func (s *Snapshot) EntryCount() int {
	return len(s.entries)
}

// AliasCount returns the number of aliases the snapshot was built from
func (s *Snapshot) AliasCount() int {
	return s.aliasCount
}

// LoadedAt returns when the snapshot was built
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}
