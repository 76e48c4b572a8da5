package handler

import (
	costplanapp "github.com/finz/backend/internal/application/costplan"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ForecastHandler handles allocation ledger and forecast grid API endpoints
type ForecastHandler struct {
	BaseHandler
	forecastService *costplanapp.ForecastService
}

// NewForecastHandler creates a new ForecastHandler
func NewForecastHandler(forecastService *costplanapp.ForecastService) *ForecastHandler {
	return &ForecastHandler{
		forecastService: forecastService,
	}
}

// ListAllocations godoc
// @ID           listAllocations
//
//	@Summary		List allocation records
//	@Description	Retrieve a project's allocation ledger, optionally filtered by baseline, month, or rubro code
//	@Tags			allocations
//	@Produce		json
//	@Param			id			path		string	true	"Project ID"	format(uuid)
//	@Param			baseline_id	query		string	false	"Baseline ID"	format(uuid)
//	@Param			month		query		int		false	"Relative month (1-based)"
//	@Param			rubro_code	query		string	false	"Canonical rubro code"
//	@Success		200			{object}	APIResponse[[]costplanapp.AllocationResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/allocations [get]
func (h *ForecastHandler) ListAllocations(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	var req costplanapp.ListAllocationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	records, err := h.forecastService.ListAllocations(c.Request.Context(), projectID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, records)
}

// GetForecast godoc
// @ID           getProjectForecast
//
//	@Summary		Get the forecast grid
//	@Description	Build the rubro-by-month forecast grid from the project's allocation ledger, with row and grand totals and the budget health indicator
//	@Tags			allocations
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"	format(uuid)
//	@Success		200	{object}	APIResponse[costplanapp.ForecastResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/forecast [get]
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	forecast, err := h.forecastService.GetForecast(c.Request.Context(), projectID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, forecast)
}
