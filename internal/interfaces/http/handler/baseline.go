package handler

import (
	costplanapp "github.com/finz/backend/internal/application/costplan"
	"github.com/finz/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaselineHandler handles baseline API endpoints
type BaselineHandler struct {
	BaseHandler
	baselineService *costplanapp.BaselineService
}

// NewBaselineHandler creates a new BaselineHandler
func NewBaselineHandler(baselineService *costplanapp.BaselineService) *BaselineHandler {
	return &BaselineHandler{
		baselineService: baselineService,
	}
}

// actorName identifies who performed a lifecycle transition. The JWT
// username is preferred; the user ID is the fallback for tokens minted
// without one.
func actorName(c *gin.Context) string {
	if username := middleware.GetJWTUsername(c); username != "" {
		return username
	}
	return middleware.GetJWTUserID(c)
}

// Create godoc
// @ID           createBaseline
//
//	@Summary		Create a draft baseline
//	@Description	Create a draft cost baseline for a project. Rubro identifiers are accepted as supplied; canonicalization happens at acceptance time.
//	@Tags			baselines
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string								true	"Project ID"	format(uuid)
//	@Param			request	body		costplanapp.CreateBaselineRequest	true	"Baseline creation request"
//	@Success		201		{object}	APIResponse[costplanapp.BaselineResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/baselines [post]
func (h *BaselineHandler) Create(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	var req costplanapp.CreateBaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	baseline, err := h.baselineService.CreateBaseline(c.Request.Context(), projectID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, baseline)
}

// GetByID godoc
// @ID           getBaselineById
//
//	@Summary		Get baseline by ID
//	@Description	Retrieve one of a project's baselines with its cost items
//	@Tags			baselines
//	@Produce		json
//	@Param			id			path		string	true	"Project ID"	format(uuid)
//	@Param			baselineId	path		string	true	"Baseline ID"	format(uuid)
//	@Success		200			{object}	APIResponse[costplanapp.BaselineResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/baselines/{baselineId} [get]
func (h *BaselineHandler) GetByID(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	baselineID, err := uuid.Parse(c.Param("baselineId"))
	if err != nil {
		h.BadRequest(c, "Invalid baseline ID format")
		return
	}

	baseline, err := h.baselineService.GetBaseline(c.Request.Context(), projectID, baselineID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, baseline)
}

// List godoc
// @ID           listBaselines
//
//	@Summary		List baselines
//	@Description	Retrieve all baselines of a project, newest first
//	@Tags			baselines
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"	format(uuid)
//	@Success		200	{object}	APIResponse[[]costplanapp.BaselineResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/baselines [get]
func (h *BaselineHandler) List(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	baselines, err := h.baselineService.ListBaselines(c.Request.Context(), projectID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, baselines)
}

// HandOff godoc
// @ID           handOffBaseline
//
//	@Summary		Hand off a baseline
//	@Description	Move a draft baseline to HANDED_OFF, freezing its items for review
//	@Tags			baselines
//	@Produce		json
//	@Param			id			path		string	true	"Project ID"	format(uuid)
//	@Param			baselineId	path		string	true	"Baseline ID"	format(uuid)
//	@Success		200			{object}	APIResponse[costplanapp.BaselineResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/baselines/{baselineId}/handoff [post]
func (h *BaselineHandler) HandOff(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	baselineID, err := uuid.Parse(c.Param("baselineId"))
	if err != nil {
		h.BadRequest(c, "Invalid baseline ID format")
		return
	}

	baseline, err := h.baselineService.HandOff(c.Request.Context(), projectID, baselineID, actorName(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, baseline)
}

// Accept godoc
// @ID           acceptBaseline
//
//	@Summary		Accept a baseline
//	@Description	Accept a handed-off baseline and materialize its items into allocation records. The response carries the materialization outcome; a degraded materialization is reported in the body, not hidden behind a success.
//	@Tags			baselines
//	@Produce		json
//	@Param			id			path		string	true	"Project ID"	format(uuid)
//	@Param			baselineId	path		string	true	"Baseline ID"	format(uuid)
//	@Success		200			{object}	APIResponse[costplanapp.AcceptBaselineResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Failure		503			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/baselines/{baselineId}/accept [post]
func (h *BaselineHandler) Accept(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	baselineID, err := uuid.Parse(c.Param("baselineId"))
	if err != nil {
		h.BadRequest(c, "Invalid baseline ID format")
		return
	}

	result, err := h.baselineService.Accept(c.Request.Context(), projectID, baselineID, actorName(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
