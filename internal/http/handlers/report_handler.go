// Report HTTP handlers.
//
// This file exposes the ingestion endpoint and the report read surface:
//   - POST /reports   (idempotent submission keyed on client_id)
//   - GET  /reports   (paginated listing, optional zone/category filters)
//
// Handlers are transport-thin: they bind and normalize the payload, delegate
// to the ingestion service, and map the service error taxonomy onto HTTP
// statuses. The retry contract matters more than usual here because the
// client-side submission queue branches on it: 422 means "drop and surface",
// 503 means "keep queued and retry on the next drain".
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/repo"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/services"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/utils"
)

// Handlers bundles the services the HTTP layer dispatches into.
type Handlers struct {
	ingest  *services.IngestService
	heatmap *services.HeatmapService
}

// New constructs a Handlers instance bound to the given services.
func New(ingest *services.IngestService, heatmap *services.HeatmapService) *Handlers {
	return &Handlers{ingest: ingest, heatmap: heatmap}
}

//
// DTOs
//

// PostReportRequest is the JSON payload for submitting a report.
type PostReportRequest struct {
	// ClientID is the client-generated idempotency key. Required.
	ClientID string `json:"client_id" binding:"required,min=1,max=64" example:"7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab"`
	// Category must be one of outage|danger|waste|maintenance|service-status.
	Category     string   `json:"category" binding:"required" example:"service-status"`
	ServiceType  *string  `json:"service_type,omitempty" example:"electricity"`
	Status       *string  `json:"status,omitempty" example:"cutoff"`
	Latitude     *float64 `json:"latitude,omitempty" example:"33.456"`
	Longitude    *float64 `json:"longitude,omitempty" example:"36.237"`
	Description  string   `json:"description" binding:"required" example:"No power on the whole street since morning"`
	ImageURL     *string  `json:"image_url,omitempty"`
	InfraPointID *string  `json:"infra_point_id,omitempty"`
	// CreatedAt is the client-asserted creation time (RFC 3339). Optional;
	// the server clock is used when absent.
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// PostReportResponse is the JSON envelope for an acknowledged report.
type PostReportResponse struct {
	Report *domain.Report `json:"report"`
	// Created is false when the submission was an idempotent replay.
	Created bool `json:"created"`
}

// ListReportsResponse contains a page of reports and pagination metadata.
type ListReportsResponse struct {
	Reports    []domain.Report `json:"reports"`
	Pagination Pagination      `json:"pagination"`
}

// Pagination is the standard pagination envelope.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// PostReport godoc
// @ID          postReport
// @Summary     Submit a citizen report
// @Description Persists a geotagged infrastructure report. Idempotent on client_id:
// @Description resubmitting the same key returns the originally persisted report.
// @Tags        Reports
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.PostReportRequest  true  "Report payload"
// @Success     200  {object}  handlers.PostReportResponse  "Acknowledged report"
// @Failure     400  {object}  handlers.ErrorResponse       "Malformed request"
// @Failure     422  {object}  handlers.ErrorResponse       "Validation or geofence rejection"
// @Failure     503  {object}  handlers.ErrorResponse       "Transient storage failure, retry later"
// @Router      /reports [post]
func (h *Handlers) PostReport(c *gin.Context) {
	ctx := c.Request.Context()

	var req PostReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client_id, category and description are required")
		return
	}

	sub := services.Submission{
		ClientID:     req.ClientID,
		Category:     req.Category,
		ServiceType:  req.ServiceType,
		Status:       req.Status,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		InfraPointID: req.InfraPointID,
	}
	if req.CreatedAt != nil {
		sub.CreatedAt = req.CreatedAt.UTC()
	}

	res, err := h.ingest.Ingest(ctx, sub)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOutsideMunicipality):
			fail(c, http.StatusUnprocessableEntity, ErrCodeGeofenceRejected, err.Error())
		case services.IsValidation(err):
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		default:
			// Storage blip: the client queue keeps the item and retries.
			fail(c, http.StatusServiceUnavailable, ErrCodeTransientStorage, "storage unavailable, retry later")
		}
		return
	}

	ok(c, http.StatusOK, PostReportResponse{Report: res.Report, Created: res.Created})
}

// ListReports godoc
// @ID          listReports
// @Summary     List reports
// @Description Returns a paginated list of reports, newest first.
// @Tags        Reports
// @Produce     json
// @Param       zone       query  string  false "Filter by zone ID"
// @Param       category   query  string  false "Filter by category"
// @Param       page       query  int     false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page" minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListReportsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reports [get]
func (h *Handlers) ListReports(c *gin.Context) {
	ctx := c.Request.Context()

	zoneID := c.Query("zone")
	category := c.Query("category")
	if category != "" && !domain.ValidCategory(category) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown category")
		return
	}

	page, pageSize := clampPagination(c)
	offset := (page - 1) * pageSize

	total, err := repo.CountReports(ctx, h.ingest.DB, zoneID, category)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	items, err := repo.ListReportsPage(ctx, h.ingest.DB, zoneID, category, offset, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListReportsResponse{
		Reports: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
