package allocation

import (
	"strings"
	"time"

	"github.com/finz/backend/internal/domain/shared"
	"github.com/finz/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationRecord is one month of planned spend for one canonical rubro
// under a project baseline. Its identity is the tuple
// (project, baseline, month, rubro code); re-materializing the same item
// lands on the same row.
type AllocationRecord struct {
	shared.BaseEntity
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_identity,priority:1"`
	BaselineID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_identity,priority:2"`
	Month      int       `gorm:"not null;uniqueIndex:idx_allocation_identity,priority:3"`
	RubroCode  string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_allocation_identity,priority:4"`
	// OriginalIdentifier preserves the identifier a record was first
	// written or remediated from. Empty means the record was born
	// canonical.
	OriginalIdentifier string               `gorm:"type:varchar(120)"`
	PlannedAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	ForecastAmount     decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	ActualAmount       decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency           valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
	CreatedBy          string               `gorm:"type:varchar(120)"`
}

// TableName returns the table name for GORM
func (AllocationRecord) TableName() string {
	return "allocation_records"
}

// NewAllocationRecord creates a record for one materialized month.
// Planned and forecast both start at the base cost; actual starts at zero.
func NewAllocationRecord(projectID, baselineID uuid.UUID, month int, rubroCode string, baseCost valueobject.Money, originalIdentifier, createdBy string) (*AllocationRecord, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	if baselineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BASELINE", "Baseline ID cannot be empty")
	}
	if month < 1 {
		return nil, shared.NewDomainError("INVALID_MONTH", "Month must be 1 or greater")
	}
	if strings.TrimSpace(rubroCode) == "" {
		return nil, shared.NewDomainError("INVALID_RUBRO_CODE", "Rubro code cannot be empty")
	}
	if baseCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_BASE_COST", "Base cost cannot be negative")
	}

	return &AllocationRecord{
		BaseEntity:         shared.NewBaseEntity(),
		ProjectID:          projectID,
		BaselineID:         baselineID,
		Month:              month,
		RubroCode:          rubroCode,
		OriginalIdentifier: originalIdentifier,
		PlannedAmount:      baseCost.Amount(),
		ForecastAmount:     baseCost.Amount(),
		ActualAmount:       decimal.Zero,
		Currency:           baseCost.Currency(),
		CreatedBy:          createdBy,
	}, nil
}

// PlannedMoney returns the planned amount as Money
func (r *AllocationRecord) PlannedMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(r.PlannedAmount, r.Currency)
	return m
}

// ForecastMoney returns the forecast amount as Money
func (r *AllocationRecord) ForecastMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(r.ForecastAmount, r.Currency)
	return m
}

// ActualMoney returns the actual amount as Money
func (r *AllocationRecord) ActualMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(r.ActualAmount, r.Currency)
	return m
}

// UpdateForecast replaces the forecast amount
func (r *AllocationRecord) UpdateForecast(amount valueobject.Money) error {
	if amount.Currency() != r.Currency {
		return shared.NewDomainError("CURRENCY_MISMATCH", "Forecast currency does not match the record")
	}
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_FORECAST", "Forecast cannot be negative")
	}
	r.ForecastAmount = amount.Amount()
	r.UpdatedAt = time.Now()
	return nil
}

// RecordActual replaces the actual spend amount
func (r *AllocationRecord) RecordActual(amount valueobject.Money) error {
	if amount.Currency() != r.Currency {
		return shared.NewDomainError("CURRENCY_MISMATCH", "Actual currency does not match the record")
	}
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_ACTUAL", "Actual cannot be negative")
	}
	r.ActualAmount = amount.Amount()
	r.UpdatedAt = time.Now()
	return nil
}

// RewriteIdentifier rewrites a legacy identifier to its canonical code.
// The original spelling is preserved the first time only; repeated
// rewrites never overwrite it. Numeric fields are not touched.
func (r *AllocationRecord) RewriteIdentifier(canonicalCode string) {
	if r.OriginalIdentifier == "" {
		r.OriginalIdentifier = r.RubroCode
	}
	r.RubroCode = canonicalCode
	r.UpdatedAt = time.Now()
}
