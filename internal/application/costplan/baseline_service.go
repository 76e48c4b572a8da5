package costplan

import (
	"context"

	"github.com/finz/backend/internal/domain/project"
	"github.com/finz/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaselineService drives the baseline lifecycle: draft creation,
// hand-off from estimation to delivery, and acceptance, which
// materializes the baseline's items into the allocation ledger.
type BaselineService struct {
	projects     project.ProjectRepository
	baselines    project.BaselineRepository
	materializer *Materializer
}

// NewBaselineService creates a new BaselineService
func NewBaselineService(projects project.ProjectRepository, baselines project.BaselineRepository, materializer *Materializer) *BaselineService {
	return &BaselineService{
		projects:     projects,
		baselines:    baselines,
		materializer: materializer,
	}
}

// CreateBaseline creates a draft baseline with its cost items. Item
// rubro identifiers are stored exactly as supplied; canonicalization
// happens at materialization time.
func (s *BaselineService) CreateBaseline(ctx context.Context, projectID uuid.UUID, req CreateBaselineRequest) (*BaselineResponse, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, shared.NewDomainError("INVALID_STATE", "Baselines can only be created for active projects")
	}

	baseline, err := project.NewBaseline(p.ID, req.Name)
	if err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		cost, err := newMoney(item.BaseCost, string(p.Currency))
		if err != nil {
			return nil, err
		}
		if _, err := baseline.AddItem(item.RubroID, item.Description, cost, item.Recurring, item.Months, item.StartMonth); err != nil {
			return nil, err
		}
	}

	if err := s.baselines.Save(ctx, baseline); err != nil {
		return nil, err
	}

	resp := toBaselineResponse(baseline)
	return &resp, nil
}

// GetBaseline returns one baseline of a project
func (s *BaselineService) GetBaseline(ctx context.Context, projectID, baselineID uuid.UUID) (*BaselineResponse, error) {
	baseline, err := s.findProjectBaseline(ctx, projectID, baselineID)
	if err != nil {
		return nil, err
	}

	resp := toBaselineResponse(baseline)
	return &resp, nil
}

// ListBaselines returns every baseline of a project, newest first
func (s *BaselineService) ListBaselines(ctx context.Context, projectID uuid.UUID) ([]BaselineResponse, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, err
	}

	baselines, err := s.baselines.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	out := make([]BaselineResponse, 0, len(baselines))
	for i := range baselines {
		out = append(out, toBaselineResponse(&baselines[i]))
	}
	return out, nil
}

// HandOff freezes a draft baseline and hands it to delivery
func (s *BaselineService) HandOff(ctx context.Context, projectID, baselineID uuid.UUID, by string) (*BaselineResponse, error) {
	baseline, err := s.findProjectBaseline(ctx, projectID, baselineID)
	if err != nil {
		return nil, err
	}

	if err := baseline.HandOff(by); err != nil {
		return nil, err
	}

	if err := s.baselines.Save(ctx, baseline); err != nil {
		return nil, err
	}

	resp := toBaselineResponse(baseline)
	return &resp, nil
}

// Accept accepts a handed-off baseline and materializes its items into
// allocation records. The materialization outcome travels in the
// response: a degraded outcome reaches the caller as data, never as a
// swallowed log line. Repeating the state transition is rejected, while
// the underlying writes are idempotent by identity.
func (s *BaselineService) Accept(ctx context.Context, projectID, baselineID uuid.UUID, by string) (*AcceptBaselineResponse, error) {
	baseline, err := s.findProjectBaseline(ctx, projectID, baselineID)
	if err != nil {
		return nil, err
	}

	if err := baseline.Accept(by); err != nil {
		return nil, err
	}

	// Materialize before persisting the transition: if the taxonomy is
	// unavailable the acceptance does not happen at all, and a retry
	// starts from HANDED_OFF again.
	result, err := s.materializer.MaterializeBaseline(ctx, baseline, by)
	if err != nil {
		return nil, err
	}

	if err := s.baselines.Save(ctx, baseline); err != nil {
		return nil, err
	}

	return &AcceptBaselineResponse{
		Baseline:        toBaselineResponse(baseline),
		Materialization: result,
	}, nil
}

// findProjectBaseline loads a baseline and checks it belongs to the
// project named in the URL; a baseline under another project is treated
// as absent rather than leaking its existence.
func (s *BaselineService) findProjectBaseline(ctx context.Context, projectID, baselineID uuid.UUID) (*project.Baseline, error) {
	baseline, err := s.baselines.FindByID(ctx, baselineID)
	if err != nil {
		return nil, err
	}
	if baseline.ProjectID != projectID {
		return nil, shared.ErrNotFound
	}
	return baseline, nil
}
