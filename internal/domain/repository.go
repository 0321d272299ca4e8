package domain

import (
	"context"
	"encoding/json"
)

// DashboardQuery is the query for one aggregate upstream fetch.
type DashboardQuery struct {
	TimeRange    int    // day count tag
	StartDate    string // YYYY-MM-DD
	EndDate      string // YYYY-MM-DD
	Label        string
	ForceRefresh bool
	CampaignID   string // set when a single campaign is focused
}

// DashboardPayload is the data object of a successful upstream fetch.
type DashboardPayload struct {
	Campaigns       []Campaign        `json:"campaigns"`
	Metrics         AggregateMetrics  `json:"metrics,omitempty"`
	PerformanceData []json.RawMessage `json:"performanceData,omitempty"`
	AIInsights      json.RawMessage   `json:"aiInsights,omitempty"`
	Recommendations []Recommendation  `json:"recommendations,omitempty"`
}

// SnapshotStore persists the single dashboard snapshot plus the
// last-selected date-range label.
type SnapshotStore interface {
	// Save overwrites the stored snapshot wholesale, stamping the write
	// time. Persistence failures are logged and swallowed; in-memory
	// state is unaffected.
	Save(ctx context.Context, snap *DashboardSnapshot)
	// Load returns nil on absence or malformed content.
	Load(ctx context.Context) *DashboardSnapshot
	// IsValid reports whether the snapshot is within TTL and matches the
	// current time-range tag.
	IsValid(snap *DashboardSnapshot, timeRangeTag string) bool
	SaveRangeLabel(ctx context.Context, label string) error
	LoadRangeLabel(ctx context.Context) (string, error)
}

// UpstreamClient talks to the aggregate dashboard backend.
type UpstreamClient interface {
	// FetchDashboard issues exactly one GET per invocation.
	FetchDashboard(ctx context.Context, q DashboardQuery) (*DashboardPayload, error)
	// UpdateCampaignStatus PATCHes a single campaign's enable/pause
	// state; a non-2xx response is an error and the caller rolls back.
	UpdateCampaignStatus(ctx context.Context, campaignID, customerID string, status CampaignStatus) error
	ListRecommendations(ctx context.Context) ([]Recommendation, error)
	ApplyRecommendation(ctx context.Context, rec Recommendation) error
	DismissRecommendation(ctx context.Context, id string) error
	// ProbeConnections checks integration connection-status endpoints.
	ProbeConnections(ctx context.Context) map[string]bool
}
