package taxonomy

import (
	"context"
)

// EntryRepository defines the interface for taxonomy entry persistence
type EntryRepository interface {
	// FindAll returns every taxonomy entry
	FindAll(ctx context.Context) ([]Entry, error)

	// FindByCode finds an entry by its canonical code
	FindByCode(ctx context.Context, code string) (*Entry, error)
}

// AliasRepository defines the interface for rubro alias persistence
type AliasRepository interface {
	// FindAll returns every legacy alias
	FindAll(ctx context.Context) ([]Alias, error)
}
