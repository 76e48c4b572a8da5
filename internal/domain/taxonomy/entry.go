package taxonomy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/finz/backend/internal/domain/shared"
)

// MaxCodeLength is the maximum length of a canonical rubro code
const MaxCodeLength = 50

// CostType classifies how spend under a rubro is accounted
type CostType string

const (
	CostTypeOpex  CostType = "OPEX"
	CostTypeCapex CostType = "CAPEX"
)

// IsValid returns true if the cost type is a known value
func (t CostType) IsValid() bool {
	switch t {
	case CostTypeOpex, CostTypeCapex:
		return true
	}
	return false
}

// String returns the string representation of CostType
func (t CostType) String() string {
	return string(t)
}

// ExecutionType classifies who performs the work behind a rubro
type ExecutionType string

const (
	ExecutionTypeInternal ExecutionType = "INTERNAL"
	ExecutionTypeExternal ExecutionType = "EXTERNAL"
	ExecutionTypeMixed    ExecutionType = "MIXED"
)

// IsValid returns true if the execution type is a known value
func (t ExecutionType) IsValid() bool {
	switch t {
	case ExecutionTypeInternal, ExecutionTypeExternal, ExecutionTypeMixed:
		return true
	}
	return false
}

// String returns the string representation of ExecutionType
func (t ExecutionType) String() string {
	return string(t)
}

// codePattern is the shape every canonical rubro code must have.
// Codes are already in normalized form: uppercase, hyphen-separated.
var codePattern = regexp.MustCompile(`^[A-Z0-9]+(-[A-Z0-9]+)*$`)

// Entry represents one canonical rubro in the cost taxonomy.
// The code is the single identifier allocation records are written under.
type Entry struct {
	shared.BaseEntity
	Code          string        `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name          string        `gorm:"type:varchar(120);not null"`
	Description   string        `gorm:"type:text"`
	Category      string        `gorm:"type:varchar(120);index"`
	CategoryCode  string        `gorm:"type:varchar(50);index"`
	CostType      CostType      `gorm:"type:varchar(20);not null"`
	ExecutionType ExecutionType `gorm:"type:varchar(20);not null"`
	// SourceReference points at the row of the source catalog this entry
	// was consolidated from. Descriptive only, never used for resolution.
	SourceReference string `gorm:"type:varchar(120)"`
	SortOrder       int    `gorm:"not null;default:0"`
	Active          bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Entry) TableName() string {
	return "taxonomy_entries"
}

// NewEntry creates a new canonical taxonomy entry
func NewEntry(code, name string, costType CostType, executionType ExecutionType) (*Entry, error) {
	if err := validateEntryCode(code); err != nil {
		return nil, err
	}
	if err := validateEntryName(name); err != nil {
		return nil, err
	}
	if !costType.IsValid() {
		return nil, shared.NewDomainError("INVALID_COST_TYPE", fmt.Sprintf("Cost type %q is not valid", costType))
	}
	if !executionType.IsValid() {
		return nil, shared.NewDomainError("INVALID_EXECUTION_TYPE", fmt.Sprintf("Execution type %q is not valid", executionType))
	}

	return &Entry{
		BaseEntity:    shared.NewBaseEntity(),
		Code:          strings.ToUpper(code),
		Name:          name,
		CostType:      costType,
		ExecutionType: executionType,
		Active:        true,
	}, nil
}

// IsActive returns true if the entry is active
func (e *Entry) IsActive() bool {
	return e.Active
}

func validateEntryCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Rubro code cannot be empty")
	}
	if len(code) > MaxCodeLength {
		return shared.NewDomainError("INVALID_CODE", fmt.Sprintf("Rubro code cannot exceed %d characters", MaxCodeLength))
	}
	if !codePattern.MatchString(strings.ToUpper(code)) {
		return shared.NewDomainError("INVALID_CODE", "Rubro code may only contain letters, digits and hyphens")
	}
	return nil
}

func validateEntryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Rubro name cannot be empty")
	}
	if len(name) > 120 {
		return shared.NewDomainError("INVALID_NAME", "Rubro name cannot exceed 120 characters")
	}
	return nil
}
