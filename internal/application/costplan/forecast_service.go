package costplan

import (
	"context"
	"sort"

	"github.com/finz/backend/internal/domain/allocation"
	"github.com/finz/backend/internal/domain/project"
	"github.com/finz/backend/internal/domain/shared/valueobject"
	"github.com/finz/backend/internal/domain/taxonomy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ForecastService aggregates allocation records into the rubro-by-month
// forecast grid and classifies the project's budget health.
type ForecastService struct {
	projects  project.ProjectRepository
	baselines project.BaselineRepository
	records   allocation.RecordRepository
	store     *taxonomy.Store
}

// NewForecastService creates a new ForecastService
func NewForecastService(projects project.ProjectRepository, baselines project.BaselineRepository, records allocation.RecordRepository, store *taxonomy.Store) *ForecastService {
	return &ForecastService{
		projects:  projects,
		baselines: baselines,
		records:   records,
		store:     store,
	}
}

// ListAllocations returns a project's allocation records matching the
// filter, ordered by month then rubro code
func (s *ForecastService) ListAllocations(ctx context.Context, projectID uuid.UUID, req ListAllocationsRequest) ([]AllocationResponse, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, err
	}

	filter := allocation.RecordFilter{
		Month:     req.Month,
		RubroCode: req.RubroCode,
	}
	if req.BaselineID != "" {
		baselineID, err := uuid.Parse(req.BaselineID)
		if err != nil {
			return nil, err
		}
		filter.BaselineID = &baselineID
	}

	records, err := s.records.ListByProject(ctx, projectID, filter)
	if err != nil {
		return nil, err
	}

	out := make([]AllocationResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toAllocationResponse(record))
	}
	return out, nil
}

// GetForecast builds the forecast grid for a project's accepted
// baseline. A project without an accepted baseline gets an empty grid;
// budget health is still computed so the dashboard pill renders.
func (s *ForecastService) GetForecast(ctx context.Context, projectID uuid.UUID) (*ForecastResponse, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	resp := &ForecastResponse{
		ProjectID: p.ID,
		Budget:    p.BudgetAmount,
		Currency:  string(p.Currency),
		Months:    make([]int, 0),
		Rows:      make([]ForecastRow, 0),
		Totals: ForecastTotals{
			Planned:  decimal.Zero,
			Forecast: decimal.Zero,
			Actual:   decimal.Zero,
		},
	}

	baseline, err := s.baselines.FindAcceptedByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var records []allocation.AllocationRecord
	if baseline != nil {
		resp.BaselineID = &baseline.ID
		records, err = s.records.ListByBaseline(ctx, projectID, baseline.ID)
		if err != nil {
			return nil, err
		}
	}

	s.buildGrid(resp, records)

	health, err := s.evaluateHealth(p, resp.Totals)
	if err != nil {
		return nil, err
	}
	resp.Health = health.String()

	return resp, nil
}

// buildGrid folds records into rows keyed by rubro code. Every row
// carries a cell for every month the grid spans, so the UI renders a
// rectangular table without patching holes client-side.
func (s *ForecastService) buildGrid(resp *ForecastResponse, records []allocation.AllocationRecord) {
	if len(records) == 0 {
		return
	}

	minMonth, maxMonth := records[0].Month, records[0].Month
	byRubro := make(map[string][]allocation.AllocationRecord)
	for _, record := range records {
		if record.Month < minMonth {
			minMonth = record.Month
		}
		if record.Month > maxMonth {
			maxMonth = record.Month
		}
		byRubro[record.RubroCode] = append(byRubro[record.RubroCode], record)
	}

	for month := minMonth; month <= maxMonth; month++ {
		resp.Months = append(resp.Months, month)
	}

	codes := make([]string, 0, len(byRubro))
	for code := range byRubro {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		cells := make(map[int]ForecastCell, len(byRubro[code]))
		for _, record := range byRubro[code] {
			cells[record.Month] = ForecastCell{
				Month:    record.Month,
				Planned:  record.PlannedAmount,
				Forecast: record.ForecastAmount,
				Actual:   record.ActualAmount,
			}
		}

		row := ForecastRow{
			RubroCode:     code,
			RubroName:     s.rubroName(code),
			Cells:         make([]ForecastCell, 0, len(resp.Months)),
			TotalPlanned:  decimal.Zero,
			TotalForecast: decimal.Zero,
			TotalActual:   decimal.Zero,
		}
		for _, month := range resp.Months {
			cell, ok := cells[month]
			if !ok {
				cell = ForecastCell{
					Month:    month,
					Planned:  decimal.Zero,
					Forecast: decimal.Zero,
					Actual:   decimal.Zero,
				}
			}
			row.Cells = append(row.Cells, cell)
			row.TotalPlanned = row.TotalPlanned.Add(cell.Planned)
			row.TotalForecast = row.TotalForecast.Add(cell.Forecast)
			row.TotalActual = row.TotalActual.Add(cell.Actual)
		}

		resp.Rows = append(resp.Rows, row)
		resp.Totals.Planned = resp.Totals.Planned.Add(row.TotalPlanned)
		resp.Totals.Forecast = resp.Totals.Forecast.Add(row.TotalForecast)
		resp.Totals.Actual = resp.Totals.Actual.Add(row.TotalActual)
	}
}

// rubroName looks up the display name for a code; a missing taxonomy or
// an unknown code simply leaves the name blank rather than failing the
// read path.
func (s *ForecastService) rubroName(code string) string {
	snapshot, ok := s.store.Snapshot()
	if !ok {
		return ""
	}
	entry, found := snapshot.Lookup(code)
	if !found {
		return ""
	}
	return entry.Name
}

func (s *ForecastService) evaluateHealth(p *project.Project, totals ForecastTotals) (project.BudgetHealth, error) {
	budget := p.BudgetMoney()
	actual, err := valueobject.NewMoney(totals.Actual, p.Currency)
	if err != nil {
		return "", err
	}
	forecast, err := valueobject.NewMoney(totals.Forecast, p.Currency)
	if err != nil {
		return "", err
	}
	return project.EvaluateBudgetHealth(budget, actual, forecast)
}
