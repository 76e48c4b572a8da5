package project

import (
	"strings"
	"time"

	"github.com/finz/backend/internal/domain/shared"
	"github.com/finz/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxHorizonMonths caps how far into a project an item may materialize
const MaxHorizonMonths = 60

// BaselineStatus represents the lifecycle state of a baseline
type BaselineStatus string

const (
	// BaselineStatusDraft is the editable state.
	BaselineStatusDraft BaselineStatus = "DRAFT"
	// BaselineStatusHandedOff means estimation handed the baseline to
	// delivery; items are frozen.
	BaselineStatusHandedOff BaselineStatus = "HANDED_OFF"
	// BaselineStatusAccepted means delivery accepted the baseline and its
	// items were materialized into allocation records.
	BaselineStatusAccepted BaselineStatus = "ACCEPTED"
)

// String returns the string representation of BaselineStatus
func (s BaselineStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s BaselineStatus) CanTransitionTo(target BaselineStatus) bool {
	switch s {
	case BaselineStatusDraft:
		return target == BaselineStatusHandedOff
	case BaselineStatusHandedOff:
		return target == BaselineStatusAccepted
	case BaselineStatusAccepted:
		return false // Terminal state
	}
	return false
}

// BaselineCostItem is one estimated cost line inside a baseline. The
// rubro identifier is stored exactly as entered; resolution to a
// canonical code happens at materialization time, not here.
type BaselineCostItem struct {
	ID             uuid.UUID
	BaselineID     uuid.UUID
	RubroID        string
	Description    string
	BaseCostAmount decimal.Decimal
	Currency       valueobject.Currency
	Recurring      bool
	Months         int
	StartMonth     int
	Position       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (BaselineCostItem) TableName() string {
	return "baseline_cost_items"
}

// NewBaselineCostItem creates a cost item for a baseline
func NewBaselineCostItem(baselineID uuid.UUID, rubroID, description string, baseCost valueobject.Money, recurring bool, months, startMonth int) (*BaselineCostItem, error) {
	if strings.TrimSpace(rubroID) == "" {
		return nil, shared.NewDomainError("INVALID_RUBRO_ID", "Rubro identifier cannot be empty")
	}
	if baseCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_BASE_COST", "Base cost cannot be negative")
	}
	if startMonth < 1 {
		return nil, shared.NewDomainError("INVALID_START_MONTH", "Start month must be 1 or greater")
	}
	if recurring && months < 1 {
		return nil, shared.NewDomainError("INVALID_MONTHS", "A recurring item needs at least one month")
	}
	span := 1
	if recurring {
		span = months
	}
	if startMonth+span-1 > MaxHorizonMonths {
		return nil, shared.NewDomainError("INVALID_MONTHS", "Item extends beyond the planning horizon")
	}

	now := time.Now()
	return &BaselineCostItem{
		ID:             uuid.New(),
		BaselineID:     baselineID,
		RubroID:        rubroID,
		Description:    description,
		BaseCostAmount: baseCost.Amount(),
		Currency:       baseCost.Currency(),
		Recurring:      recurring,
		Months:         months,
		StartMonth:     startMonth,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// BaseCostMoney returns the base cost as Money
func (i *BaselineCostItem) BaseCostMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(i.BaseCostAmount, i.Currency)
	return m
}

// MaterializationMonths returns the month numbers this item expands
/// into: a recurring item covers its month count starting at the start
// month, a one-off item covers the start month only.
func (i *BaselineCostItem) MaterializationMonths() []int {
	count := 1
	if i.Recurring {
		count = i.Months
	}
	months := make([]int, 0, count)
	for m := i.StartMonth; m < i.StartMonth+count; m++ {
		months = append(months, m)
	}
	return months
}

// TotalCostMoney returns base cost times the number of months covered
func (i *BaselineCostItem) TotalCostMoney() valueobject.Money {
	return i.BaseCostMoney().MultiplyByInt(int64(len(i.MaterializationMonths())))
}

// Baseline is a versioned cost estimate for a project. It is editable
// in draft, frozen at hand-off, and materialized into allocation
// records on acceptance.
type Baseline struct {
	shared.VersionedEntity
	ProjectID   uuid.UUID          `gorm:"type:uuid;not null;index"`
	Name        string             `gorm:"type:varchar(120);not null"`
	Status      BaselineStatus     `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	Items       []BaselineCostItem `gorm:"foreignKey:BaselineID"`
	HandedOffAt *time.Time
	HandedOffBy string `gorm:"type:varchar(120)"`
	AcceptedAt  *time.Time
	AcceptedBy  string `gorm:"type:varchar(120)"`
}

// TableName returns the table name for GORM
func (Baseline) TableName() string {
	return "baselines"
}

// NewBaseline creates a draft baseline for a project
func NewBaseline(projectID uuid.UUID, name string) (*Baseline, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Baseline name cannot be empty")
	}

	return &Baseline{
		VersionedEntity: shared.NewVersionedEntity(),
		ProjectID:       projectID,
		Name:            name,
		Status:          BaselineStatusDraft,
		Items:           make([]BaselineCostItem, 0),
	}, nil
}

// AddItem appends a cost item to a draft baseline
func (b *Baseline) AddItem(rubroID, description string, baseCost valueobject.Money, recurring bool, months, startMonth int) (*BaselineCostItem, error) {
	if b.Status != BaselineStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Items can only be added to a draft baseline")
	}

	item, err := NewBaselineCostItem(b.ID, rubroID, description, baseCost, recurring, months, startMonth)
	if err != nil {
		return nil, err
	}
	item.Position = len(b.Items)
	b.Items = append(b.Items, *item)
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return item, nil
}

// RemoveItem removes a cost item from a draft baseline
func (b *Baseline) RemoveItem(itemID uuid.UUID) error {
	if b.Status != BaselineStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Items can only be removed from a draft baseline")
	}

	for i, item := range b.Items {
		if item.ID == itemID {
			b.Items = append(b.Items[:i], b.Items[i+1:]...)
			for j := range b.Items {
				b.Items[j].Position = j
			}
			b.UpdatedAt = time.Now()
			b.IncrementVersion()
			return nil
		}
	}
	return shared.ErrNotFound
}

// HandOff freezes the baseline and hands it to delivery
func (b *Baseline) HandOff(by string) error {
	if !b.Status.CanTransitionTo(BaselineStatusHandedOff) {
		return shared.NewDomainError("INVALID_STATE", "Only a draft baseline can be handed off")
	}
	if len(b.Items) == 0 {
		return shared.NewDomainError("EMPTY_BASELINE", "A baseline without items cannot be handed off")
	}

	now := time.Now()
	b.Status = BaselineStatusHandedOff
	b.HandedOffAt = &now
	b.HandedOffBy = by
	b.UpdatedAt = now
	b.IncrementVersion()
	return nil
}

// Accept marks the baseline accepted by delivery. Materialization into
// allocation records is driven by the caller, which must surface any
// degraded outcome.
func (b *Baseline) Accept(by string) error {
	if !b.Status.CanTransitionTo(BaselineStatusAccepted) {
		return shared.NewDomainError("INVALID_STATE", "Only a handed-off baseline can be accepted")
	}

	now := time.Now()
	b.Status = BaselineStatusAccepted
	b.AcceptedAt = &now
	b.AcceptedBy = by
	b.UpdatedAt = now
	b.IncrementVersion()
	return nil
}

// IsDraft returns true while the baseline is editable
func (b *Baseline) IsDraft() bool {
	return b.Status == BaselineStatusDraft
}

// IsAccepted returns true once the baseline has been accepted
func (b *Baseline) IsAccepted() bool {
	return b.Status == BaselineStatusAccepted
}

// TotalPlannedMoney sums the total cost of all items
func (b *Baseline) TotalPlannedMoney() valueobject.Money {
	if len(b.Items) == 0 {
		return valueobject.ZeroUSD()
	}
	total := valueobject.Zero(b.Items[0].Currency)
	for _, item := range b.Items {
		total = total.MustAdd(item.TotalCostMoney())
	}
	return total
}
