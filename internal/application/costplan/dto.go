package costplan

import (
	"time"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/project"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProjectRequest carries the fields for creating a project
type CreateProjectRequest struct {
	Code        string          `json:"code" binding:"required,max=50"`
	Name        string          `json:"name" binding:"required,max=200"`
	Description string          `json:"description" binding:"max=2000"`
	Manager     string          `json:"manager" binding:"max=120"`
	Budget      decimal.Decimal `json:"budget"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
}

// UpdateProjectRequest carries the mutable project fields
type UpdateProjectRequest struct {
	Name        string           `json:"name" binding:"required,max=200"`
	Description string           `json:"description" binding:"max=2000"`
	Manager     string           `json:"manager" binding:"max=120"`
	Budget      *decimal.Decimal `json:"budget"`
}

// ProjectResponse is the API representation of a project
type ProjectResponse struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Manager     string          `json:"manager,omitempty"`
	Budget      decimal.Decimal `json:"budget"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BaselineItemRequest is one estimated cost line in a baseline request.
// The rubro identifier is accepted in whatever shape the estimator
// supplies; it is canonicalized at materialization time.
type BaselineItemRequest struct {
	RubroID     string          `json:"rubro_id" binding:"required,rubroid,max=120"`
	Description string          `json:"description" binding:"max=500"`
	BaseCost    decimal.Decimal `json:"base_cost" binding:"required"`
	Recurring   bool            `json:"recurring"`
	Months      int             `json:"months" binding:"omitempty,min=1,max=60"`
	StartMonth  int             `json:"start_month" binding:"required,min=1,max=60"`
}

// CreateBaselineRequest carries a new draft baseline with its items
type CreateBaselineRequest struct {
	Name  string                `json:"name" binding:"required,max=120"`
	Items []BaselineItemRequest `json:"items" binding:"required,min=1,dive"`
}

// BaselineItemResponse is the API representation of one cost item
type BaselineItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	RubroID     string          `json:"rubro_id"`
	Description string          `json:"description,omitempty"`
	BaseCost    decimal.Decimal `json:"base_cost"`
	Currency    string          `json:"currency"`
	Recurring   bool            `json:"recurring"`
	Months      int             `json:"months"`
	StartMonth  int             `json:"start_month"`
	Position    int             `json:"position"`
}

// BaselineResponse is the API representation of a baseline
type BaselineResponse struct {
	ID           uuid.UUID              `json:"id"`
	ProjectID    uuid.UUID              `json:"project_id"`
	Name         string                 `json:"name"`
	Status       string                 `json:"status"`
	Items        []BaselineItemResponse `json:"items"`
	TotalPlanned decimal.Decimal        `json:"total_planned"`
	HandedOffAt  *time.Time             `json:"handed_off_at,omitempty"`
	HandedOffBy  string                 `json:"handed_off_by,omitempty"`
	AcceptedAt   *time.Time             `json:"accepted_at,omitempty"`
	AcceptedBy   string                 `json:"accepted_by,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// AcceptBaselineResponse couples the accepted baseline with the outcome
// of materializing its items. A degraded materialization is part of the
// response body, never hidden behind a plain success.
type AcceptBaselineResponse struct {
	Baseline        BaselineResponse                  `json:"baseline"`
	Materialization *allocation.MaterializationResult `json:"materialization"`
}

// AllocationResponse is the API representation of one ledger line
type AllocationResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProjectID          uuid.UUID       `json:"project_id"`
	BaselineID         uuid.UUID       `json:"baseline_id"`
	Month              int             `json:"month"`
	RubroCode          string          `json:"rubro_code"`
	OriginalIdentifier string          `json:"original_identifier,omitempty"`
	Planned            decimal.Decimal `json:"planned"`
	Forecast           decimal.Decimal `json:"forecast"`
	Actual             decimal.Decimal `json:"actual"`
	Currency           string          `json:"currency"`
	CreatedBy          string          `json:"created_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ListAllocationsRequest filters a project's allocation records
type ListAllocationsRequest struct {
	BaselineID string `form:"baseline_id" binding:"omitempty,uuid"`
	Month      *int   `form:"month" binding:"omitempty,min=1,max=60"`
	RubroCode  string `form:"rubro_code" binding:"omitempty,max=50"`
}

// ForecastCell is one rubro-month intersection of the forecast grid
type ForecastCell struct {
	Month    int             `json:"month"`
	Planned  decimal.Decimal `json:"planned"`
	Forecast decimal.Decimal `json:"forecast"`
	Actual   decimal.Decimal `json:"actual"`
}

// ForecastRow is one rubro's row across all months, with row totals
type ForecastRow struct {
	RubroCode     string          `json:"rubro_code"`
	RubroName     string          `json:"rubro_name,omitempty"`
	Cells         []ForecastCell  `json:"cells"`
	TotalPlanned  decimal.Decimal `json:"total_planned"`
	TotalForecast decimal.Decimal `json:"total_forecast"`
	TotalActual   decimal.Decimal `json:"total_actual"`
}

// ForecastTotals aggregates the whole grid
type ForecastTotals struct {
	Planned  decimal.Decimal `json:"planned"`
	Forecast decimal.Decimal `json:"forecast"`
	Actual   decimal.Decimal `json:"actual"`
}

// ForecastResponse is the rubro-by-month grid plus the budget health
// pill shown on the project dashboard
type ForecastResponse struct {
	ProjectID  uuid.UUID       `json:"project_id"`
	BaselineID *uuid.UUID      `json:"baseline_id,omitempty"`
	Budget     decimal.Decimal `json:"budget"`
	Currency   string          `json:"currency"`
	Months     []int           `json:"months"`
	Rows       []ForecastRow   `json:"rows"`
	Totals     ForecastTotals  `json:"totals"`
	Health     string          `json:"health"`
}

// toProjectResponse converts a domain project to its API representation
func toProjectResponse(p *project.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Manager:     p.Manager,
		Budget:      p.BudgetAmount,
		Currency:    string(p.Currency),
		Status:      p.Status.String(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// toBaselineResponse converts a domain baseline to its API representation
func toBaselineResponse(b *project.Baseline) BaselineResponse {
	items := make([]BaselineItemResponse, 0, len(b.Items))
	for _, item := range b.Items {
		items = append(items, BaselineItemResponse{
			ID:          item.ID,
			RubroID:     item.RubroID,
			Description: item.Description,
			BaseCost:    item.BaseCostAmount,
			Currency:    string(item.Currency),
			Recurring:   item.Recurring,
			Months:      item.Months,
			StartMonth:  item.StartMonth,
			Position:    item.Position,
		})
	}
	return BaselineResponse{
		ID:           b.ID,
		ProjectID:    b.ProjectID,
		Name:         b.Name,
		Status:       b.Status.String(),
		Items:        items,
		TotalPlanned: b.TotalPlannedMoney().Amount(),
		HandedOffAt:  b.HandedOffAt,
		HandedOffBy:  b.HandedOffBy,
		AcceptedAt:   b.AcceptedAt,
		AcceptedBy:   b.AcceptedBy,
		CreatedAt:    b.CreatedAt,
	}
}

// toAllocationResponse converts a domain record to its API representation
func toAllocationResponse(r allocation.AllocationRecord) AllocationResponse {
	return AllocationResponse{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		BaselineID:         r.BaselineID,
		Month:              r.Month,
		RubroCode:          r.RubroCode,
		OriginalIdentifier: r.OriginalIdentifier,
		Planned:            r.PlannedAmount,
		Forecast:           r.ForecastAmount,
		Actual:             r.ActualAmount,
		Currency:           string(r.Currency),
		CreatedBy:          r.CreatedBy,
		CreatedAt:          r.CreatedAt,
	}
}
