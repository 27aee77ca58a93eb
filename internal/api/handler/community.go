package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/api/models"
	"github.com/saferide/saferide/internal/api/response"
	"github.com/saferide/saferide/internal/community"
	"github.com/saferide/saferide/internal/hazard"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// CommunityHandler handles community reports and the hazard catalogue.
type CommunityHandler struct {
	reports *community.Service
	zones   hazard.Repository
	logger  zerolog.Logger
}

// NewCommunityHandler creates a new CommunityHandler.
func NewCommunityHandler(reports *community.Service, zones hazard.Repository, logger zerolog.Logger) *CommunityHandler {
	return &CommunityHandler{reports: reports, zones: zones, logger: logger}
}

// SubmitReportResponse is a stored report and how it was judged.
type SubmitReportResponse struct {
	Report     *community.Report    `json:"report"`
	Validation community.Validation `json:"validation"`
}

// ListReports handles GET /v1/community/reports.
func (h *CommunityHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			response.BadRequest(w, r, "limit must be between 1 and 500", []models.FieldError{
				{Field: "limit", Message: "must be between 1 and 500", Code: "OUT_OF_RANGE"},
			})
			return
		}
		limit = n
	}

	reports, err := h.reports.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewListResponse(reports))
}

// SubmitReport handles POST /v1/community/reports.
func (h *CommunityHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req models.CommunityReportRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	report, validation, err := h.reports.Submit(r.Context(), community.SubmitInput{
		ReporterID:         req.ReporterID,
		ReporterTrustScore: req.ReporterTrustScore,
		Location:           req.Location.ToGeo(nowUTC()),
		Type:               community.Type(req.Type),
		Description:        req.Description,
		VerificationCount:  req.VerificationCount,
		IsVerified:         req.IsVerified,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, r, "/v1/community/reports/"+report.ID, SubmitReportResponse{
		Report:     report,
		Validation: validation,
	})
}

// ListHazards handles GET /v1/hazards.
func (h *CommunityHandler) ListHazards(w http.ResponseWriter, r *http.Request) {
	zones, err := listZones(r.Context(), h.zones)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewListResponse(zones))
}

func listZones(ctx context.Context, repo hazard.Repository) ([]hazard.Zone, error) {
	if repo == nil {
		return nil, nil
	}
	return repo.List(ctx)
}
