package taxonomy

import (
	"fmt"
	"strings"

	"github.com/finz/backend/internal/domain/shared"
)

// MaxAliasLength is the maximum length of a legacy alias
const MaxAliasLength = 120

// Alias maps a legacy rubro identifier to a canonical taxonomy code.
// Aliases exist to absorb identifiers written before the taxonomy was
// consolidated; new writes always go through canonical codes.
type Alias struct {
	shared.BaseEntity
	Alias         string `gorm:"type:varchar(120);not null;uniqueIndex"`
	CanonicalCode string `gorm:"type:varchar(50);not null;index"`
	Note          string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Alias) TableName() string {
	return "rubro_aliases"
}

// NewAlias creates a new legacy alias pointing at a canonical code
func NewAlias(alias, canonicalCode string) (*Alias, error) {
	if strings.TrimSpace(alias) == "" {
		return nil, shared.NewDomainError("INVALID_ALIAS", "Alias cannot be empty")
	}
	if len(alias) > MaxAliasLength {
		return nil, shared.NewDomainError("INVALID_ALIAS", fmt.Sprintf("Alias cannot exceed %d characters", MaxAliasLength))
	}
	if err := validateEntryCode(canonicalCode); err != nil {
		return nil, err
	}

	return &Alias{
		BaseEntity:    shared.NewBaseEntity(),
		Alias:         alias,
		CanonicalCode: strings.ToUpper(canonicalCode),
	}, nil
}
