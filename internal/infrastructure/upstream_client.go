package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"adpulse/internal/domain"
	"adpulse/pkg/config"
	"adpulse/pkg/logger"
	"adpulse/pkg/metrics"
)

// UpstreamClient implements domain.UpstreamClient against the aggregate
// dashboard backend.
type UpstreamClient struct {
	client      *http.Client
	baseURL     string
	probes      map[string]string
	logger      *logger.Logger
	metrics     *metrics.Metrics
	rateLimiter *rate.Limiter
}

// envelope is the upstream response wrapper shared by all endpoints.
type envelope struct {
	Success bool                     `json:"success"`
	Data    *domain.DashboardPayload `json:"data,omitempty"`
	Meta    *struct {
		FetchTime float64 `json:"fetchTime"`
	} `json:"meta,omitempty"`
	Error string `json:"error,omitempty"`
}

func NewUpstreamClient(cfg config.UpstreamConfig, log *logger.Logger, m *metrics.Metrics) *UpstreamClient {
	probes := map[string]string{}
	if cfg.AnalyticsProbeURL != "" {
		probes["analytics"] = cfg.AnalyticsProbeURL
	}
	if cfg.TagManagerProbeURL != "" {
		probes["tag_manager"] = cfg.TagManagerProbeURL
	}
	if cfg.RequestsProbeURL != "" {
		probes["client_requests"] = cfg.RequestsProbeURL
	}

	return &UpstreamClient{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     cfg.BaseURL,
		probes:      probes,
		logger:      log,
		metrics:     m,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst),
	}
}

// FetchDashboard issues exactly one GET per invocation. The dashboard
// deliberately uses a single combined endpoint instead of several
// round-trips.
func (c *UpstreamClient) FetchDashboard(ctx context.Context, q domain.DashboardQuery) (*domain.DashboardPayload, error) {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordUpstreamFailure("dashboard", "rate_limit")
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	params := url.Values{}
	params.Set("timeRange", strconv.Itoa(q.TimeRange))
	params.Set("startDate", q.StartDate)
	params.Set("endDate", q.EndDate)
	params.Set("label", q.Label)
	params.Set("forceRefresh", strconv.FormatBool(q.ForceRefresh))
	if q.CampaignID != "" {
		params.Set("campaignId", q.CampaignID)
	}

	endpoint := c.baseURL + "/api/google-ads/dashboard-data?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.metrics.RecordUpstreamFailure("dashboard", "request_creation")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure("dashboard", "network_error")
		return nil, fmt.Errorf("failed to fetch dashboard data: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamCall("dashboard", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, fmt.Errorf("dashboard API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamFailure("dashboard", "read_body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.metrics.RecordUpstreamFailure("dashboard", "json_parse")
		return nil, fmt.Errorf("failed to parse dashboard data: %w", err)
	}
	if !env.Success || env.Data == nil {
		c.metrics.RecordUpstreamCall("dashboard", "upstream_error", duration)
		return nil, fmt.Errorf("dashboard API reported failure: %s", env.Error)
	}

	c.metrics.RecordUpstreamCall("dashboard", "success", duration)

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"label":     q.Label,
		"timeRange": q.TimeRange,
		"duration":  duration,
		"campaigns": len(env.Data.Campaigns),
	}).Info("Successfully fetched dashboard data")

	return env.Data, nil
}

// UpdateCampaignStatus PATCHes a single campaign's enable/pause state.
func (c *UpstreamClient) UpdateCampaignStatus(ctx context.Context, campaignID, customerID string, status domain.CampaignStatus) error {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordUpstreamFailure("campaigns", "rate_limit")
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"campaignId": campaignID,
		"customerId": customerID,
		"status":     string(status),
	})
	if err != nil {
		c.metrics.RecordUpstreamFailure("campaigns", "json_marshal")
		return fmt.Errorf("failed to marshal status update: %w", err)
	}

	endpoint := c.baseURL + "/api/google-ads/campaigns"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		c.metrics.RecordUpstreamFailure("campaigns", "request_creation")
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure("campaigns", "network_error")
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordUpstreamCall("campaigns", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return fmt.Errorf("campaigns API returned status %d", resp.StatusCode)
	}

	c.metrics.RecordUpstreamCall("campaigns", "success", duration)
	return nil
}

// ListRecommendations fetches the current optimization suggestions.
func (c *UpstreamClient) ListRecommendations(ctx context.Context) ([]domain.Recommendation, error) {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "rate_limit")
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	endpoint := c.baseURL + "/api/google-ads/campaigns/recommendations"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "request_creation")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "network_error")
		return nil, fmt.Errorf("failed to fetch recommendations: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamCall("recommendations", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, fmt.Errorf("recommendations API returned status %d", resp.StatusCode)
	}

	var out struct {
		Success         bool                    `json:"success"`
		Recommendations []domain.Recommendation `json:"recommendations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "json_parse")
		return nil, fmt.Errorf("failed to parse recommendations: %w", err)
	}

	c.metrics.RecordUpstreamCall("recommendations", "success", duration)
	return out.Recommendations, nil
}

// ApplyRecommendation submits a recommendation for application.
func (c *UpstreamClient) ApplyRecommendation(ctx context.Context, rec domain.Recommendation) error {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "rate_limit")
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "json_marshal")
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}

	endpoint := c.baseURL + "/api/google-ads/campaigns/recommendations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "request_creation")
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "network_error")
		return fmt.Errorf("failed to apply recommendation: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordUpstreamCall("recommendations", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return fmt.Errorf("recommendations API returned status %d", resp.StatusCode)
	}

	c.metrics.RecordUpstreamCall("recommendations", "success", duration)
	return nil
}

// DismissRecommendation removes a recommendation by id.
func (c *UpstreamClient) DismissRecommendation(ctx context.Context, id string) error {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "rate_limit")
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	endpoint := c.baseURL + "/api/google-ads/campaigns/recommendations?id=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "request_creation")
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure("recommendations", "network_error")
		return fmt.Errorf("failed to dismiss recommendation: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordUpstreamCall("recommendations", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return fmt.Errorf("recommendations API returned status %d", resp.StatusCode)
	}

	c.metrics.RecordUpstreamCall("recommendations", "success", duration)
	return nil
}

// ProbeConnections checks the integration connection-status endpoints.
// A probe counts as connected only on a 2xx response carrying
// connected=true; any failure reads as disconnected.
func (c *UpstreamClient) ProbeConnections(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(c.probes))
	for name, probeURL := range c.probes {
		out[name] = c.probe(ctx, name, probeURL)
	}
	return out
}

func (c *UpstreamClient) probe(ctx context.Context, name, probeURL string) bool {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordUpstreamFailure("probe_"+name, "rate_limit")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		c.metrics.RecordUpstreamFailure("probe_"+name, "request_creation")
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure("probe_"+name, "network_error")
		return false
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamCall("probe_"+name, fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return false
	}

	var out struct {
		Connected bool `json:"connected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.RecordUpstreamFailure("probe_"+name, "json_parse")
		return false
	}

	c.metrics.RecordUpstreamCall("probe_"+name, "success", duration)
	return out.Connected
}
