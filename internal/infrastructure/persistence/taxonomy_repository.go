package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/finz/backend/internal/domain/shared"
	"github.com/finz/backend/internal/domain/taxonomy"
	"gorm.io/gorm"
)

// GormEntryRepository implements taxonomy.EntryRepository using GORM
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

// FindAll returns every taxonomy entry ordered for display
func (r *GormEntryRepository) FindAll(ctx context.Context) ([]taxonomy.Entry, error) {
	var entries []taxonomy.Entry
	if err := r.db.WithContext(ctx).
		Order("sort_order ASC, code ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByCode finds an entry by its canonical code
func (r *GormEntryRepository) FindByCode(ctx context.Context, code string) (*taxonomy.Entry, error) {
	var entry taxonomy.Entry
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GormAliasRepository implements taxonomy.AliasRepository using GORM
type GormAliasRepository struct {
	db *gorm.DB
}

// NewGormAliasRepository creates a new GormAliasRepository
func NewGormAliasRepository(db *gorm.DB) *GormAliasRepository {
	return &GormAliasRepository{db: db}
}

// FindAll returns every legacy alias
func (r *GormAliasRepository) FindAll(ctx context.Context) ([]taxonomy.Alias, error) {
	var aliases []taxonomy.Alias
	if err := r.db.WithContext(ctx).
		Order("alias ASC").
		Find(&aliases).Error; err != nil {
		return nil, err
	}
	return aliases, nil
}

// Ensure the repositories implement their interfaces
var (
	_ taxonomy.EntryRepository = (*GormEntryRepository)(nil)
	_ taxonomy.AliasRepository = (*GormAliasRepository)(nil)
)
