package project

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/finz/backend/internal/domain/shared"
	"github.com/finz/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusActive ProjectStatus = "ACTIVE"
	ProjectStatusClosed ProjectStatus = "CLOSED"
)

// String returns the string representation of ProjectStatus
func (s ProjectStatus) String() string {
	return string(s)
}

var projectCodePattern = regexp.MustCompile(`^[A-Z0-9]+(-[A-Z0-9]+)*$`)

// Project is a cost-planning engagement. Its budget is the ceiling the
// monthly forecast grid is judged against.
type Project struct {
	shared.VersionedEntity
	Code         string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string               `gorm:"type:varchar(200);not null"`
	Description  string               `gorm:"type:text"`
	Manager      string               `gorm:"type:varchar(120)"`
	BudgetAmount decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
	Status       ProjectStatus        `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
}

// TableName returns the table name for GORM
func (Project) TableName() string {
	return "projects"
}

// NewProject creates a new active project
func NewProject(code, name, manager string, budget valueobject.Money) (*Project, error) {
	if err := validateProjectCode(code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Project name cannot be empty")
	}
	if budget.IsNegative() {
		return nil, shared.NewDomainError("INVALID_BUDGET", "Project budget cannot be negative")
	}

	return &Project{
		VersionedEntity: shared.NewVersionedEntity(),
		Code:            strings.ToUpper(code),
		Name:            name,
		Manager:         manager,
		BudgetAmount:    budget.Amount(),
		Currency:        budget.Currency(),
		Status:          ProjectStatusActive,
	}, nil
}

// BudgetMoney returns the budget as Money
func (p *Project) BudgetMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.BudgetAmount, p.Currency)
	return m
}

// HasBudget returns true if a positive budget is set
func (p *Project) HasBudget() bool {
	return p.BudgetAmount.IsPositive()
}

// UpdateBudget replaces the project budget
func (p *Project) UpdateBudget(budget valueobject.Money) error {
	if budget.IsNegative() {
		return shared.NewDomainError("INVALID_BUDGET", "Project budget cannot be negative")
	}
	if p.Status == ProjectStatusClosed {
		return shared.NewDomainError("INVALID_STATE", "Cannot change the budget of a closed project")
	}
	p.BudgetAmount = budget.Amount()
	p.Currency = budget.Currency()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Update updates the project's basic information
func (p *Project) Update(name, description, manager string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Project name cannot be empty")
	}
	p.Name = name
	p.Description = description
	p.Manager = manager
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Close closes the project
func (p *Project) Close() error {
	if p.Status == ProjectStatusClosed {
		return shared.NewDomainError("INVALID_STATE", "Project is already closed")
	}
	p.Status = ProjectStatusClosed
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// IsActive returns true if the project is active
func (p *Project) IsActive() bool {
	return p.Status == ProjectStatusActive
}

func validateProjectCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Project code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", fmt.Sprintf("Project code cannot exceed %d characters", 50))
	}
	if !projectCodePattern.MatchString(strings.ToUpper(code)) {
		return shared.NewDomainError("INVALID_CODE", "Project code may only contain letters, digits and hyphens")
	}
	return nil
}
