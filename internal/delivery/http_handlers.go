package delivery

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"adpulse/internal/daterange"
	"adpulse/internal/domain"
	"adpulse/internal/format"
	"adpulse/internal/usecase"
	"adpulse/pkg/logger"
	"adpulse/pkg/metrics"
)

// handles HTTP requests
type HTTPHandlers struct {
	dashboard *usecase.DashboardService
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewHTTPHandlers(dashboard *usecase.DashboardService, logger *logger.Logger, metrics *metrics.Metrics) *HTTPHandlers {
	return &HTTPHandlers{
		dashboard: dashboard,
		logger:    logger,
		metrics:   metrics,
	}
}

// GetDashboard serves the derived dashboard view for the requested
// filters. A cached snapshot is served immediately and revalidated in
// the background.
func (h *HTTPHandlers) GetDashboard(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid filter parameters",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	view, err := h.dashboard.GetDashboard(ctx, filter, c.Query("campaignId"))
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to serve dashboard")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "Failed to retrieve dashboard data",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       view,
		"formatted":  formattedBlock(view),
		"request_id": requestID,
	})
}

// formattedBlock renders the headline card strings.
func formattedBlock(v *usecase.DashboardView) gin.H {
	return gin.H{
		"revenue":        format.Currency(v.Totals.Revenue, v.DisplayCurrency),
		"spend":          format.Currency(v.Totals.Spend, v.DisplayCurrency),
		"cpc":            format.Currency(v.Totals.CPC, v.DisplayCurrency),
		"ctr":            format.Percent(v.Totals.CTR),
		"conversionRate": format.Percent(v.Totals.ConversionRate),
		"clicks":         format.Compact(float64(v.Totals.Clicks)),
		"impressions":    format.Compact(float64(v.Totals.Impressions)),
	}
}

// RefreshDashboard forces one synchronous upstream fetch.
func (h *HTTPHandlers) RefreshDashboard(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	opts := usecase.RefreshOptions{
		Trigger:       "manual",
		ForceRefresh:  c.DefaultQuery("force", "true") == "true",
		OverrideLabel: c.Query("label"),
	}
	if daysStr := c.Query("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Invalid days parameter",
				"message":    "days must be a positive integer",
				"request_id": requestID,
			})
			return
		}
		opts.OverrideDays = days
	}

	if err := h.dashboard.Refresh(ctx, opts); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Manual refresh failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "Refresh failed",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Dashboard refreshed",
		"request_id": requestID,
	})
}

// SetDateRange selects a new reporting window by label.
func (h *HTTPHandlers) SetDateRange(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	var body struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Label == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid request body",
			"message":    "label is required",
			"request_id": requestID,
		})
		return
	}

	rng := h.dashboard.SetDateRange(ctx, body.Label)
	c.JSON(http.StatusOK, gin.H{
		"label":      rng.Label,
		"startDate":  daterange.FormatDate(rng.StartDate),
		"endDate":    daterange.FormatDate(rng.EndDate),
		"dayCount":   rng.DayCount,
		"request_id": requestID,
	})
}

// ListDateRangeLabels returns the fixed enumerated label set.
func (h *HTTPHandlers) ListDateRangeLabels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"labels": daterange.Labels()})
}

// UpdateCampaignStatus toggles one campaign's enable/pause state
// optimistically; a rejected upstream PATCH rolls the change back.
func (h *HTTPHandlers) UpdateCampaignStatus(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	var body struct {
		CampaignID string `json:"campaignId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.CampaignID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid request body",
			"message":    "campaignId is required",
			"request_id": requestID,
		})
		return
	}

	status, err := h.dashboard.ToggleCampaignStatus(ctx, body.CampaignID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Campaign status toggle failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "Status update failed",
			"message":    err.Error(),
			"status":     status,
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaignId": body.CampaignID,
		"status":     status,
		"request_id": requestID,
	})
}

// GetEffectiveStats returns each headline stat tagged with its source.
func (h *HTTPHandlers) GetEffectiveStats(c *gin.Context) {
	requestID := uuid.New().String()
	c.JSON(http.StatusOK, gin.H{
		"stats":      h.dashboard.EffectiveStats(),
		"request_id": requestID,
	})
}

// ListRecommendations proxies the upstream recommendation list.
func (h *HTTPHandlers) ListRecommendations(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	recs, err := h.dashboard.ListRecommendations(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list recommendations")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "Failed to retrieve recommendations",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"request_id":      requestID,
	})
}

// ApplyRecommendation submits one recommendation upstream.
func (h *HTTPHandlers) ApplyRecommendation(c *gin.Context) {
	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	var rec domain.Recommendation
	if err := c.ShouldBindJSON(&rec); err != nil || rec.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid request body",
			"message":    "recommendation id is required",
			"request_id": requestID,
		})
		return
	}

	if err := h.dashboard.ApplyRecommendation(ctx, rec); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to apply recommendation")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "Failed to apply recommendation",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applied": rec.ID, "request_id": requestID})
}

// DismissRecommendation removes one recommendation by id.
func (h *HTTPHandlers) DismissRecommendation(c *gin.Context) {
	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Missing required parameter",
			"message":    "id parameter is required",
			"request_id": requestID,
		})
		return
	}

	if err := h.dashboard.DismissRecommendation(ctx, id); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to dismiss recommendation")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "Failed to dismiss recommendation",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dismissed": id, "request_id": requestID})
}

// GetIntegrationsStatus probes the integration connection endpoints.
func (h *HTTPHandlers) GetIntegrationsStatus(c *gin.Context) {
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := uuid.New().String()
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	c.JSON(http.StatusOK, gin.H{
		"connections": h.dashboard.IntegrationsStatus(ctx),
		"request_id":  requestID,
	})
}

// SetAutoRefresh toggles the background refresh loop.
func (h *HTTPHandlers) SetAutoRefresh(c *gin.Context) {
	requestID := uuid.New().String()

	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid request body",
			"message":    "enabled is required",
			"request_id": requestID,
		})
		return
	}

	if *body.Enabled {
		h.dashboard.StartAutoRefresh()
	} else {
		h.dashboard.StopAutoRefresh()
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled":    h.dashboard.AutoRefreshRunning(),
		"request_id": requestID,
	})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "adpulse",
		"version":   "1.0.0",
	})
}

func parseFilter(c *gin.Context) (domain.FilterState, error) {
	var f domain.FilterState

	f.Type = domain.CampaignType(c.Query("type"))
	if raw := c.Query("types"); raw != "" {
		for _, v := range strings.Split(raw, ",") {
			f.Types = append(f.Types, domain.CampaignType(strings.TrimSpace(v)))
		}
	}
	if raw := c.Query("statuses"); raw != "" {
		for _, v := range strings.Split(raw, ",") {
			f.Statuses = append(f.Statuses, domain.CampaignStatus(strings.TrimSpace(v)))
		}
	}
	f.Query = c.Query("q")

	for param, dst := range map[string]**float64{
		"minRoas":        &f.MinROAS,
		"minCtr":         &f.MinCTR,
		"minConversions": &f.MinConversions,
	} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.FilterState{}, err
		}
		*dst = &v
	}
	return f, nil
}
