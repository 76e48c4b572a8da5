package costplan

import (
	"context"
	"strings"

	"github.com/finz/backend/internal/domain/project"
	"github.com/finz/backend/internal/domain/shared"
	"github.com/finz/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProjectService provides application-level project operations
type ProjectService struct {
	projects project.ProjectRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(projects project.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects}
}

// CreateProject creates a new active project
func (s *ProjectService) CreateProject(ctx context.Context, req CreateProjectRequest) (*ProjectResponse, error) {
	exists, err := s.projects.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A project with this code already exists")
	}

	budget, err := newMoney(req.Budget, req.Currency)
	if err != nil {
		return nil, err
	}

	p, err := project.NewProject(req.Code, req.Name, req.Manager, budget)
	if err != nil {
		return nil, err
	}
	p.Description = req.Description

	if err := s.projects.Save(ctx, p); err != nil {
		return nil, err
	}

	resp := toProjectResponse(p)
	return &resp, nil
}

// GetProject returns one project by ID
func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*ProjectResponse, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := toProjectResponse(p)
	return &resp, nil
}

// ListProjects returns a page of projects matching the filter
func (s *ProjectService) ListProjects(ctx context.Context, filter shared.Filter) (*shared.Paginated[ProjectResponse], error) {
	projects, err := s.projects.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.projects.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, toProjectResponse(&projects[i]))
	}

	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// UpdateProject updates a project's basic information and, when a
// budget is supplied, its budget ceiling
func (s *ProjectService) UpdateProject(ctx context.Context, id uuid.UUID, req UpdateProjectRequest) (*ProjectResponse, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := p.Update(req.Name, req.Description, req.Manager); err != nil {
		return nil, err
	}

	if req.Budget != nil {
		budget, err := valueobject.NewMoney(*req.Budget, p.Currency)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_BUDGET", err.Error())
		}
		if err := p.UpdateBudget(budget); err != nil {
			return nil, err
		}
	}

	if err := s.projects.Save(ctx, p); err != nil {
		return nil, err
	}

	resp := toProjectResponse(p)
	return &resp, nil
}

// CloseProject closes a project
func (s *ProjectService) CloseProject(ctx context.Context, id uuid.UUID) (*ProjectResponse, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := p.Close(); err != nil {
		return nil, err
	}

	if err := s.projects.Save(ctx, p); err != nil {
		return nil, err
	}

	resp := toProjectResponse(p)
	return &resp, nil
}

// newMoney builds a Money from an amount and an optional currency code,
// defaulting to USD like the rest of the cost plan
func newMoney(amount decimal.Decimal, currency string) (valueobject.Money, error) {
	cur := valueobject.DefaultCurrency
	if currency != "" {
		cur = valueobject.Currency(strings.ToUpper(currency))
	}
	money, err := valueobject.NewMoney(amount, cur)
	if err != nil {
		return valueobject.Money{}, shared.NewDomainError("INVALID_AMOUNT", err.Error())
	}
	return money, nil
}
