package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// AggregateMetrics is the upstream-owned aggregate object. Only the
// change-percentage fields are read here; everything else is carried
// opaquely so snapshots round-trip exactly.
type AggregateMetrics map[string]json.RawMessage

// Number returns the numeric value stored under key, if any.
func (m AggregateMetrics) Number(key string) (float64, bool) {
	raw, ok := m[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Change returns the change percentage stored under key, else 0.
func (m AggregateMetrics) Change(key string) float64 {
	v, _ := m.Number(key)
	return v
}

// Recommendation is an upstream optimization suggestion. Lifecycle calls
// are fire-and-forget from the dashboard's perspective.
type Recommendation struct {
	ID         string `json:"id"`
	Type       string `json:"type,omitempty"`
	Title      string `json:"title,omitempty"`
	Detail     string `json:"detail,omitempty"`
	CampaignID string `json:"campaignId,omitempty"`
}

// DashboardSnapshot is the persisted dashboard state: everything one
// upstream fetch returns, plus the write timestamp and the time-range
// tag used for invalidation. At most one snapshot is persisted at a
// time; writes replace the prior one wholesale.
type DashboardSnapshot struct {
	Campaigns       []Campaign        `json:"campaigns"`
	Metrics         AggregateMetrics  `json:"metrics,omitempty"`
	PerformanceData []json.RawMessage `json:"performanceData,omitempty"`
	AIInsights      json.RawMessage   `json:"aiInsights,omitempty"`
	Recommendations []Recommendation  `json:"recommendations,omitempty"`
	Timestamp       int64             `json:"timestamp"` // epoch milliseconds of last write
	TimeRange       string            `json:"timeRange"`
}

// Age returns how long ago the snapshot was written.
func (s *DashboardSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.Timestamp))
}

// DateRangeSelection is the resolved reporting window.
// Invariant: StartDate <= EndDate, DayCount = ceil((end-start)/24h).
type DateRangeSelection struct {
	Label     string    `json:"label"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	DayCount  int       `json:"dayCount"`
}

// Stat pairs a derived value with its upstream-sourced change percentage.
type Stat struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

// StatsSnapshot is recomputed on every change to the filtered campaign
// set. Change percentages come from the upstream aggregate metrics when
// available, else 0.
type StatsSnapshot struct {
	Revenue           Stat `json:"revenue"`
	Spend             Stat `json:"spend"`
	ROAS              Stat `json:"roas"`
	CTR               Stat `json:"ctr"`
	CPC               Stat `json:"cpc"`
	ConversionRate    Stat `json:"conversionRate"`
	CostPerConversion Stat `json:"costPerConversion"`
	QualityScore      Stat `json:"qualityScore"`
}

// Source tags where an effective value came from.
type Source string

const (
	SourceAPI       Source = "api"
	SourceEstimated Source = "estimated"
	SourceNone      Source = "none"
)

// SourcedValue is the result of the prioritized-source resolver:
// prefer the upstream field, else a computed estimate, else nothing.
type SourcedValue struct {
	Source Source  `json:"source"`
	Value  float64 `json:"value"`
}
