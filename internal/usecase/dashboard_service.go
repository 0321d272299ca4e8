package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"adpulse/internal/currency"
	"adpulse/internal/daterange"
	"adpulse/internal/derive"
	"adpulse/internal/domain"
	"adpulse/pkg/logger"
	"adpulse/pkg/metrics"
)

// DashboardService owns the dashboard state and the fetch pipeline. It
// is an explicit service object with an Init/Close lifecycle; callers
// never reach around it to mutate state.
type DashboardService struct {
	store    domain.SnapshotStore
	upstream domain.UpstreamClient
	logger   *logger.Logger
	metrics  *metrics.Metrics

	defaultLabel string

	mu        sync.RWMutex
	snap      *domain.DashboardSnapshot
	dateRange domain.DateRangeSelection
	focusedID string
	loading   bool
	pending   map[string]pendingStatusOp

	scheduler *ScheduledRefresh
}

// pendingStatusOp is the two-phase record of an optimistic status
// toggle: tentative until the upstream PATCH commits or rolls back.
type pendingStatusOp struct {
	CampaignID string
	Previous   domain.CampaignStatus
	Tentative  domain.CampaignStatus
	StartedAt  time.Time
}

// DashboardView is one rendered read of the dashboard state.
type DashboardView struct {
	Campaigns       []domain.Campaign      `json:"campaigns"`
	Totals          derive.Totals          `json:"totals"`
	Stats           domain.StatsSnapshot   `json:"stats"`
	HealthScores    map[string]int         `json:"healthScores"`
	PerformanceData []json.RawMessage      `json:"performanceData,omitempty"`
	AIInsights      json.RawMessage        `json:"aiInsights,omitempty"`
	Recommendations []domain.Recommendation `json:"recommendations,omitempty"`
	DisplayCurrency string                 `json:"displayCurrency"`
	DateRange       domain.DateRangeSelection `json:"dateRange"`
	LastUpdated     time.Time              `json:"lastUpdated"`
	Stale           bool                   `json:"stale"`
	Refreshing      bool                   `json:"refreshing"`
}

func NewDashboardService(
	store domain.SnapshotStore,
	upstream domain.UpstreamClient,
	log *logger.Logger,
	m *metrics.Metrics,
	defaultLabel string,
	autoRefreshInterval time.Duration,
) *DashboardService {
	s := &DashboardService{
		store:        store,
		upstream:     upstream,
		logger:       log,
		metrics:      m,
		defaultLabel: defaultLabel,
		pending:      make(map[string]pendingStatusOp),
	}
	s.scheduler = NewScheduledRefresh(autoRefreshInterval, func(ctx context.Context) {
		if err := s.Refresh(ctx, RefreshOptions{Trigger: "auto", ForceRefresh: true}); err != nil {
			log.WithError(err).Error("Auto refresh failed")
		}
	})
	return s
}

// Init restores the persisted range label and snapshot. It is the
// read-once-at-startup counterpart of the original page load.
func (s *DashboardService) Init(ctx context.Context) {
	label, err := s.store.LoadRangeLabel(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to load persisted range label")
	}
	if label == "" {
		label = s.defaultLabel
	}

	snap := s.store.Load(ctx)
	s.mu.Lock()
	s.dateRange = daterange.Resolve(label, time.Now())
	s.snap = snap
	s.mu.Unlock()

	if snap != nil {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"campaigns": len(snap.Campaigns),
			"timeRange": snap.TimeRange,
		}).Info("Restored dashboard snapshot from cache")
	}
}

// Close stops the auto-refresh scheduler.
func (s *DashboardService) Close() {
	s.scheduler.Stop()
}

// GetDashboard serves the dashboard. When a snapshot is held it is
// returned immediately, stale or not, and exactly one background
// forced refresh is triggered (stale-while-revalidate). Without one the
// fetch happens synchronously.
func (s *DashboardService) GetDashboard(ctx context.Context, f domain.FilterState, focusID string) (*DashboardView, error) {
	s.mu.Lock()
	s.focusedID = focusID
	have := s.snap != nil
	s.mu.Unlock()

	if !have {
		if err := s.Refresh(ctx, RefreshOptions{Trigger: "initial"}); err != nil {
			return nil, err
		}
		return s.buildView(f, focusID), nil
	}

	view := s.buildView(f, focusID)
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.Refresh(bg, RefreshOptions{Trigger: "revalidate", ForceRefresh: true}); err != nil {
			s.logger.WithError(err).Error("Background revalidation failed")
		}
	}()
	return view, nil
}

// RefreshOptions parameterize one fetch of the aggregate endpoint.
type RefreshOptions struct {
	Trigger       string
	ForceRefresh  bool
	OverrideLabel string // takes precedence over current state
	OverrideDays  int    // overrides the derived day count tag
}

// Refresh performs one upstream fetch and, on success, replaces the
// whole snapshot and persists it. Failures preserve the prior state.
// Overlapping refreshes are not deduplicated or cancelled; the last
// write wins.
func (s *DashboardService) Refresh(ctx context.Context, opts RefreshOptions) error {
	start := time.Now()
	s.metrics.IncRefreshesInFlight()

	s.mu.Lock()
	s.loading = true
	focusID := s.focusedID
	rng := s.dateRange
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.metrics.DecRefreshesInFlight()
	}()

	// Effective range: override takes precedence over current state,
	// which takes precedence over the default label.
	if opts.OverrideLabel != "" {
		rng = daterange.Resolve(opts.OverrideLabel, time.Now())
	} else if rng.Label == "" {
		rng = daterange.Resolve(s.defaultLabel, time.Now())
	}
	days := rng.DayCount
	if opts.OverrideDays > 0 {
		days = opts.OverrideDays
	}

	q := domain.DashboardQuery{
		TimeRange:    days,
		StartDate:    daterange.FormatDate(rng.StartDate),
		EndDate:      daterange.FormatDate(rng.EndDate),
		Label:        rng.Label,
		ForceRefresh: opts.ForceRefresh,
		CampaignID:   focusID,
	}

	payload, err := s.upstream.FetchDashboard(ctx, q)
	if err != nil {
		s.metrics.RecordRefresh("failed", opts.Trigger, time.Since(start))
		s.logger.WithContext(ctx).WithError(err).Error("Dashboard refresh failed, keeping prior state")
		return fmt.Errorf("dashboard refresh failed: %w", err)
	}

	snap := &domain.DashboardSnapshot{
		Campaigns:       payload.Campaigns,
		Metrics:         payload.Metrics,
		PerformanceData: payload.PerformanceData,
		AIInsights:      payload.AIInsights,
		Recommendations: payload.Recommendations,
		TimeRange:       strconv.Itoa(days),
	}
	s.store.Save(ctx, snap) // stamps snap.Timestamp

	s.mu.Lock()
	s.snap = snap
	if opts.OverrideLabel != "" {
		s.dateRange = rng
	}
	s.mu.Unlock()

	if opts.OverrideLabel != "" {
		if err := s.store.SaveRangeLabel(ctx, rng.Label); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to persist range label")
		}
	}

	s.metrics.RecordRefresh("success", opts.Trigger, time.Since(start))
	s.metrics.RecordCampaignsRefreshed(opts.Trigger, len(payload.Campaigns))
	return nil
}

// SetDateRange resolves and persists a new range label. The caller
// decides whether to refresh afterwards.
func (s *DashboardService) SetDateRange(ctx context.Context, label string) domain.DateRangeSelection {
	rng := daterange.Resolve(label, time.Now())
	s.mu.Lock()
	s.dateRange = rng
	s.mu.Unlock()
	if err := s.store.SaveRangeLabel(ctx, label); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to persist range label")
	}
	return rng
}

// DateRange returns the current selection.
func (s *DashboardService) DateRange() domain.DateRangeSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dateRange
}

// ToggleCampaignStatus flips one campaign between ENABLED and PAUSED
// optimistically: the in-memory status changes first, and a failed
// upstream PATCH rolls back that campaign alone.
func (s *DashboardService) ToggleCampaignStatus(ctx context.Context, campaignID string) (domain.CampaignStatus, error) {
	s.mu.Lock()
	idx := -1
	if s.snap != nil {
		for i := range s.snap.Campaigns {
			if s.snap.Campaigns[i].ID == campaignID {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return "", fmt.Errorf("unknown campaign %q", campaignID)
	}
	c := s.snap.Campaigns[idx]
	if c.Status == domain.StatusRemoved {
		s.mu.Unlock()
		return "", fmt.Errorf("campaign %q is removed and cannot be toggled", campaignID)
	}
	next := domain.StatusPaused
	if c.Status == domain.StatusPaused {
		next = domain.StatusEnabled
	}

	// Phase 1: tentative.
	s.pending[campaignID] = pendingStatusOp{
		CampaignID: campaignID,
		Previous:   c.Status,
		Tentative:  next,
		StartedAt:  time.Now(),
	}
	s.snap.Campaigns[idx].Status = next
	customerID := c.CustomerID
	s.mu.Unlock()

	// Phase 2: commit or roll back.
	if err := s.upstream.UpdateCampaignStatus(ctx, campaignID, customerID, next); err != nil {
		s.mu.Lock()
		op := s.pending[campaignID]
		for i := range s.snap.Campaigns {
			if s.snap.Campaigns[i].ID == campaignID {
				s.snap.Campaigns[i].Status = op.Previous
				break
			}
		}
		delete(s.pending, campaignID)
		s.mu.Unlock()
		s.metrics.RecordStatusUpdate("rolled_back")
		s.logger.WithContext(ctx).WithError(err).WithField("campaign_id", campaignID).
			Error("Status update rejected, rolled back optimistic change")
		return op.Previous, fmt.Errorf("status update rejected: %w", err)
	}

	s.mu.Lock()
	delete(s.pending, campaignID)
	s.mu.Unlock()
	s.metrics.RecordStatusUpdate("committed")
	return next, nil
}

// effectiveStatKeys maps resolver keys to totals accessors.
var effectiveStatKeys = []string{
	"revenue", "spend", "roas", "ctr", "cpc",
	"conversionRate", "costPerConversion", "qualityScore",
}

// EffectiveStats resolves each headline stat from its highest-priority
// source: the upstream aggregate field, else an estimate recomputed
// from the campaign list, else nothing. Callers can assert provenance
// instead of inferring it from emptiness.
func (s *DashboardService) EffectiveStats() map[string]domain.SourcedValue {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	out := make(map[string]domain.SourcedValue, len(effectiveStatKeys))
	if snap == nil {
		for _, k := range effectiveStatKeys {
			out[k] = domain.SourcedValue{Source: domain.SourceNone}
		}
		return out
	}

	var totals *derive.Totals
	estimate := func() derive.Totals {
		if totals == nil {
			t := derive.Aggregate(snap.Campaigns, currency.USDConverter{})
			totals = &t
		}
		return *totals
	}

	for _, k := range effectiveStatKeys {
		if v, ok := snap.Metrics.Number(k); ok {
			out[k] = domain.SourcedValue{Source: domain.SourceAPI, Value: v}
			continue
		}
		if len(snap.Campaigns) > 0 {
			out[k] = domain.SourcedValue{Source: domain.SourceEstimated, Value: totalField(estimate(), k)}
			continue
		}
		out[k] = domain.SourcedValue{Source: domain.SourceNone}
	}
	return out
}

func totalField(t derive.Totals, key string) float64 {
	switch key {
	case "revenue":
		return t.Revenue
	case "spend":
		return t.Spend
	case "roas":
		return t.ROAS
	case "ctr":
		return t.CTR
	case "cpc":
		return t.CPC
	case "conversionRate":
		return t.ConversionRate
	case "costPerConversion":
		return t.CostPerConversion
	case "qualityScore":
		return t.QualityScore
	default:
		return 0
	}
}

// Recommendations lifecycle; fire-and-forget from the dashboard's
// perspective, so failures surface to the caller but never touch
// campaign state.

func (s *DashboardService) ListRecommendations(ctx context.Context) ([]domain.Recommendation, error) {
	return s.upstream.ListRecommendations(ctx)
}

func (s *DashboardService) ApplyRecommendation(ctx context.Context, rec domain.Recommendation) error {
	return s.upstream.ApplyRecommendation(ctx, rec)
}

func (s *DashboardService) DismissRecommendation(ctx context.Context, id string) error {
	if err := s.upstream.DismissRecommendation(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	if s.snap != nil {
		kept := s.snap.Recommendations[:0]
		for _, r := range s.snap.Recommendations {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		s.snap.Recommendations = kept
	}
	s.mu.Unlock()
	return nil
}

// IntegrationsStatus probes the connection-status endpoints.
func (s *DashboardService) IntegrationsStatus(ctx context.Context) map[string]bool {
	return s.upstream.ProbeConnections(ctx)
}

// StartAutoRefresh begins the fixed-interval background refresh.
func (s *DashboardService) StartAutoRefresh() { s.scheduler.Start() }

// StopAutoRefresh cancels it.
func (s *DashboardService) StopAutoRefresh() { s.scheduler.Stop() }

// AutoRefreshRunning reports the toggle state.
func (s *DashboardService) AutoRefreshRunning() bool { return s.scheduler.Running() }

func (s *DashboardService) buildView(f domain.FilterState, focusID string) *DashboardView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := &DashboardView{
		HealthScores: map[string]int{},
		DateRange:    s.dateRange,
		Refreshing:   s.loading,
	}
	if s.snap == nil {
		view.DisplayCurrency = "USD"
		return view
	}

	campaigns := s.snap.Campaigns
	var focused *domain.Campaign
	if focusID != "" {
		narrowed := campaigns[:0:0]
		for i := range campaigns {
			if campaigns[i].ID == focusID {
				narrowed = append(narrowed, campaigns[i])
				focused = &campaigns[i]
			}
		}
		campaigns = narrowed
	}

	filtered := derive.Filter(campaigns, f)
	conv := currency.ConverterFor(focused)
	totals := derive.Aggregate(filtered, conv)

	view.Campaigns = filtered
	view.Totals = totals
	view.Stats = derive.Stats(totals, s.snap.Metrics)
	for _, c := range filtered {
		view.HealthScores[c.ID] = derive.HealthScore(c)
	}
	view.PerformanceData = s.snap.PerformanceData
	view.AIInsights = s.snap.AIInsights
	view.Recommendations = s.snap.Recommendations
	view.DisplayCurrency = currency.DisplayCurrency(focused)
	view.LastUpdated = time.UnixMilli(s.snap.Timestamp)
	// Validity is judged against the range the user is looking at now,
	// not the range the snapshot was fetched for. A range switch makes
	// the held snapshot stale until the next refresh replaces it.
	view.Stale = !s.store.IsValid(s.snap, strconv.Itoa(s.dateRange.DayCount))
	return view
}
