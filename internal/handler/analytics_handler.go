package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/middleware"
	"github.com/noah-isme/sma-analytics-api/internal/models"
	"github.com/noah-isme/sma-analytics-api/internal/service"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
	"github.com/noah-isme/sma-analytics-api/pkg/response"
)

type dashboardComposer interface {
	Compose(ctx context.Context, req service.DashboardRequest) (*dto.Dashboard, bool, error)
}

type dashboardExporter interface {
	Export(ctx context.Context, req service.ExportRequest) (*service.ExportResult, error)
}

type systemMetrics interface {
	Snapshot() models.AnalyticsSystemMetrics
}

// AnalyticsHandler exposes the role dashboards and their exports.
type AnalyticsHandler struct {
	dashboards dashboardComposer
	exports    dashboardExporter
	metrics    systemMetrics
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(dashboards dashboardComposer, exports dashboardExporter, metrics systemMetrics) *AnalyticsHandler {
	return &AnalyticsHandler{dashboards: dashboards, exports: exports, metrics: metrics}
}

// Dashboard godoc
// @Summary Role scoped analytics dashboard
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param range query string false "week, month, quarter or year. Defaults to week"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	if h.dashboards == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	req, ok := dashboardRequest(c)
	if !ok {
		return
	}
	dashboard, cacheHit, err := h.dashboards.Compose(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "range_fallback", dashboard.RangeFallback)
	response.JSON(c, http.StatusOK, dashboard.Payload(), middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the caller's dashboard
// @Tags Analytics
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param range query string false "week, month, quarter or year. Defaults to week"
// @Param format query string false "csv or pdf. Defaults to csv"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /analytics/dashboard/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	req, ok := dashboardRequest(c)
	if !ok {
		return
	}
	result, err := h.exports.Export(c.Request.Context(), service.ExportRequest{
		Dashboard: req,
		Format:    c.DefaultQuery("format", service.ExportFormatCSV),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.ContentType, result.Filename, result.Payload)
}

// System godoc
// @Summary Analytics engine instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.metrics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	snapshot := h.metrics.Snapshot()
	middleware.SetCacheHit(c, false)
	response.JSON(c, http.StatusOK, snapshot, middleware.ExtractMeta(c))
}

// dashboardRequest builds the engine request from verified claims. It writes the error
// response itself when the caller is anonymous.
func dashboardRequest(c *gin.Context) (service.DashboardRequest, bool) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.DashboardRequest{}, false
	}
	return service.DashboardRequest{Caller: claims.Caller(), Range: c.Query("range")}, true
}
