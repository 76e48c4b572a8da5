package handler

import (
	taxonomyapp "github.com/finz/backend/internal/application/taxonomy"
	"github.com/gin-gonic/gin"
)

// TaxonomyHandler handles rubro taxonomy API endpoints
type TaxonomyHandler struct {
	BaseHandler
	taxonomyService *taxonomyapp.TaxonomyService
}

// NewTaxonomyHandler creates a new TaxonomyHandler
func NewTaxonomyHandler(taxonomyService *taxonomyapp.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{
		taxonomyService: taxonomyService,
	}
}

// Status godoc
// @ID           getTaxonomyStatus
//
//	@Summary		Get taxonomy status
//	@Description	Report whether the rubro taxonomy snapshot is loaded and how many entries and aliases it holds
//	@Tags			taxonomy
//	@Produce		json
//	@Success		200	{object}	APIResponse[taxonomyapp.StatusResponse]
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/status [get]
func (h *TaxonomyHandler) Status(c *gin.Context) {
	h.Success(c, h.taxonomyService.Status())
}

// Reload godoc
// @ID           reloadTaxonomy
//
//	@Summary		Reload the taxonomy
//	@Description	Replace the in-memory taxonomy snapshot with a fresh load from the backing store. The previous snapshot keeps serving until the new one validates.
//	@Tags			taxonomy
//	@Produce		json
//	@Success		200	{object}	APIResponse[taxonomyapp.StatusResponse]
//	@Failure		422	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/reload [post]
func (h *TaxonomyHandler) Reload(c *gin.Context) {
	status, err := h.taxonomyService.Reload(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, status)
}

// ListEntries godoc
// @ID           listTaxonomyEntries
//
//	@Summary		List taxonomy entries
//	@Description	Retrieve the canonical rubro entries, optionally filtered by category or cost type
//	@Tags			taxonomy
//	@Produce		json
//	@Param			category			query		string	false	"Category name"
//	@Param			cost_type			query		string	false	"Cost type"	Enums(OPEX, CAPEX)
//	@Param			include_inactive	query		boolean	false	"Include retired entries"
//	@Success		200					{object}	APIResponse[[]taxonomyapp.EntryResponse]
//	@Failure		400					{object}	ErrorResponse
//	@Failure		503					{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/entries [get]
func (h *TaxonomyHandler) ListEntries(c *gin.Context) {
	var req taxonomyapp.ListEntriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	entries, err := h.taxonomyService.ListEntries(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}

// GetEntry godoc
// @ID           getTaxonomyEntry
//
//	@Summary		Get a taxonomy entry
//	@Description	Retrieve one canonical rubro entry by its code
//	@Tags			taxonomy
//	@Produce		json
//	@Param			code	path		string	true	"Canonical rubro code"
//	@Success		200		{object}	APIResponse[taxonomyapp.EntryResponse]
//	@Failure		404		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/entries/{code} [get]
func (h *TaxonomyHandler) GetEntry(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		h.BadRequest(c, "Rubro code is required")
		return
	}

	entry, err := h.taxonomyService.GetEntry(c.Request.Context(), code)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entry)
}

// ListAliases godoc
// @ID           listTaxonomyAliases
//
//	@Summary		List taxonomy aliases
//	@Description	Retrieve the legacy alias mappings pointing at canonical rubro codes
//	@Tags			taxonomy
//	@Produce		json
//	@Success		200	{object}	APIResponse[[]taxonomyapp.AliasResponse]
//	@Failure		503	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/aliases [get]
func (h *TaxonomyHandler) ListAliases(c *gin.Context) {
	aliases, err := h.taxonomyService.ListAliases(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, aliases)
}

// Resolve godoc
// @ID           resolveRubroIdentifier
//
//	@Summary		Resolve a rubro identifier
//	@Description	Diagnostic endpoint showing how a raw identifier resolves: canonical, via legacy alias, or not at all. An unresolved identifier is a successful diagnosis, not an error.
//	@Tags			taxonomy
//	@Accept			json
//	@Produce		json
//	@Param			request	body		taxonomyapp.ResolveRequest	true	"Identifier to resolve"
//	@Success		200		{object}	APIResponse[taxonomy.Resolution]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/resolve [post]
func (h *TaxonomyHandler) Resolve(c *gin.Context) {
	var req taxonomyapp.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resolution, err := h.taxonomyService.Resolve(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resolution)
}
