package handler

import (
	remediationapp "github.com/finz/backend/internal/application/remediation"
	"github.com/finz/backend/internal/domain/allocation"
	"github.com/gin-gonic/gin"
)

// RemediationHandler handles remediation scan API endpoints
type RemediationHandler struct {
	BaseHandler
	remediationService *remediationapp.Service
}

// NewRemediationHandler creates a new RemediationHandler
func NewRemediationHandler(remediationService *remediationapp.Service) *RemediationHandler {
	return &RemediationHandler{
		remediationService: remediationService,
	}
}

// RunScanRequest represents a request to run a remediation scan
//
//	@Description	Request body for running a remediation scan over the allocation ledger
type RunScanRequest struct {
	Mode      string `json:"mode" binding:"omitempty,oneof=DRY_RUN APPLY" example:"DRY_RUN"`
	ScanID    string `json:"scan_id" binding:"max=120" example:"scan-20260829-nightly"`
	BatchSize int    `json:"batch_size" binding:"omitempty,min=1,max=5000" example:"500"`
	Resume    bool   `json:"resume" example:"false"`
}

// RunScan godoc
// @ID           runRemediationScan
//
//	@Summary		Run a remediation scan
//	@Description	Walk the allocation ledger classifying every rubro identifier against the loaded taxonomy. DRY_RUN (the default) only reports; APPLY rewrites resolvable legacy identifiers in place. Unresolvable and conflicted records are reported, never touched.
//	@Tags			remediation
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RunScanRequest	true	"Scan options"
//	@Success		200		{object}	APIResponse[allocation.RemediationReport]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/remediation/scans [post]
func (h *RemediationHandler) RunScan(c *gin.Context) {
	var req RunScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	mode := allocation.ScanMode(req.Mode)
	if req.Mode == "" {
		mode = allocation.ScanModeDryRun
	}

	report, err := h.remediationService.Run(c.Request.Context(), remediationapp.ScanOptions{
		ScanID:    req.ScanID,
		Mode:      mode,
		BatchSize: req.BatchSize,
		Resume:    req.Resume,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// GetReport godoc
// @ID           getRemediationReport
//
//	@Summary		Get a scan report
//	@Description	Retrieve the report of a recent remediation scan by its scan ID
//	@Tags			remediation
//	@Produce		json
//	@Param			scanId	path		string	true	"Scan ID"
//	@Success		200		{object}	APIResponse[allocation.RemediationReport]
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/remediation/scans/{scanId} [get]
func (h *RemediationHandler) GetReport(c *gin.Context) {
	scanID := c.Param("scanId")
	if scanID == "" {
		h.BadRequest(c, "Scan ID is required")
		return
	}

	report, err := h.remediationService.GetReport(c.Request.Context(), scanID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}
