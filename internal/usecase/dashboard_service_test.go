package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adpulse/internal/domain"
	"adpulse/pkg/logger"
	"adpulse/pkg/metrics"
)

// prometheus collectors register globally, so build them once per test binary
var testMetrics = metrics.New()

type mockStore struct {
	mu    sync.Mutex
	snap  *domain.DashboardSnapshot
	label string
	ttl   time.Duration
	now   func() time.Time
}

func newMockStore() *mockStore {
	return &mockStore{ttl: time.Hour, now: time.Now}
}

func (m *mockStore) Save(_ context.Context, snap *domain.DashboardSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Timestamp = m.now().UnixMilli()
	m.snap = snap
}

func (m *mockStore) Load(context.Context) *domain.DashboardSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockStore) IsValid(snap *domain.DashboardSnapshot, tag string) bool {
	if snap == nil {
		return false
	}
	return snap.Age(m.now()) < m.ttl && snap.TimeRange == tag
}

func (m *mockStore) SaveRangeLabel(_ context.Context, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.label = label
	return nil
}

func (m *mockStore) LoadRangeLabel(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.label, nil
}

type mockUpstream struct {
	mu           sync.Mutex
	fetches      []domain.DashboardQuery
	payload      *domain.DashboardPayload
	fetchErr     error
	statusErr    error
	statusCalls  int
	fetchedCh    chan domain.DashboardQuery
}

func (m *mockUpstream) FetchDashboard(_ context.Context, q domain.DashboardQuery) (*domain.DashboardPayload, error) {
	m.mu.Lock()
	m.fetches = append(m.fetches, q)
	ch := m.fetchedCh
	payload, err := m.payload, m.fetchErr
	m.mu.Unlock()
	if ch != nil {
		ch <- q
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (m *mockUpstream) UpdateCampaignStatus(context.Context, string, string, domain.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	return m.statusErr
}

func (m *mockUpstream) ListRecommendations(context.Context) ([]domain.Recommendation, error) {
	return nil, nil
}

func (m *mockUpstream) ApplyRecommendation(context.Context, domain.Recommendation) error { return nil }

func (m *mockUpstream) DismissRecommendation(context.Context, string) error { return nil }

func (m *mockUpstream) ProbeConnections(context.Context) map[string]bool {
	return map[string]bool{"analytics": true}
}

func (m *mockUpstream) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fetches)
}

func newService(store *mockStore, upstream *mockUpstream) *DashboardService {
	return NewDashboardService(store, upstream, logger.New("error"), testMetrics, "Today", time.Hour)
}

func payloadWith(campaigns ...domain.Campaign) *domain.DashboardPayload {
	return &domain.DashboardPayload{
		Campaigns: campaigns,
		Metrics:   domain.AggregateMetrics{"revenueChange": []byte("5")},
	}
}

func enabled(id string) domain.Campaign {
	return domain.Campaign{
		ID: id, Name: "Campaign " + id, Type: domain.TypeSearch, Status: domain.StatusEnabled,
		Cost: 100, ConversionsValue: 300, Clicks: 50, Impressions: 1000, Conversions: 10,
		Currency: "USD", CustomerID: "acct-1",
	}
}

func TestGetDashboard_CacheMissFetchesSynchronously(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{payload: payloadWith(enabled("c1"))}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()

	view, err := svc.GetDashboard(context.Background(), domain.FilterState{}, "")
	require.NoError(t, err)
	require.Len(t, view.Campaigns, 1)
	assert.Equal(t, 1, upstream.fetchCount())
	assert.Equal(t, "USD", view.DisplayCurrency)
	assert.InDelta(t, 3.0, view.Totals.ROAS, 1e-9)
	assert.Equal(t, 5.0, view.Stats.Revenue.Change)
}

func TestGetDashboard_StaleServedThenRevalidated(t *testing.T) {
	store := newMockStore()
	// snapshot written two hours ago, well past the TTL
	store.snap = &domain.DashboardSnapshot{
		Campaigns: []domain.Campaign{enabled("cached")},
		Timestamp: time.Now().Add(-2 * time.Hour).UnixMilli(),
		TimeRange: "1",
	}
	upstream := &mockUpstream{
		payload:   payloadWith(enabled("fresh")),
		fetchedCh: make(chan domain.DashboardQuery, 1),
	}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()

	view, err := svc.GetDashboard(context.Background(), domain.FilterState{}, "")
	require.NoError(t, err)

	// stale snapshot is served immediately
	require.Len(t, view.Campaigns, 1)
	assert.Equal(t, "cached", view.Campaigns[0].ID)
	assert.True(t, view.Stale)

	// exactly one forced background refresh follows
	select {
	case q := <-upstream.fetchedCh:
		assert.True(t, q.ForceRefresh)
	case <-time.After(2 * time.Second):
		t.Fatal("background revalidation never fired")
	}
	assert.Eventually(t, func() bool {
		v := svc.buildView(domain.FilterState{}, "")
		return len(v.Campaigns) == 1 && v.Campaigns[0].ID == "fresh"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, upstream.fetchCount())
}

func TestRefresh_FailurePreservesPriorState(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{payload: payloadWith(enabled("c1"))}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()

	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"}))

	upstream.mu.Lock()
	upstream.fetchErr = errors.New("upstream down")
	upstream.mu.Unlock()

	err := svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"})
	require.Error(t, err)

	view := svc.buildView(domain.FilterState{}, "")
	require.Len(t, view.Campaigns, 1)
	assert.Equal(t, "c1", view.Campaigns[0].ID)
}

func TestRefresh_OverrideLabelWinsAndPersists(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{payload: payloadWith(enabled("c1"))}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()

	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{
		Trigger:       "test",
		OverrideLabel: "Last 7 days",
	}))

	require.Equal(t, 1, upstream.fetchCount())
	q := upstream.fetches[0]
	assert.Equal(t, "Last 7 days", q.Label)
	assert.Equal(t, 7, q.TimeRange)
	assert.Equal(t, "Last 7 days", store.label)
	assert.Equal(t, "Last 7 days", svc.DateRange().Label)
}

func TestRangeSwitchMarksSnapshotStale(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{payload: payloadWith(enabled("c1"))}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()

	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"}))
	view := svc.buildView(domain.FilterState{}, "")
	assert.False(t, view.Stale, "fresh snapshot for the current range")

	// switching the window makes the held snapshot stale even though it
	// is well within the TTL
	svc.SetDateRange(context.Background(), "Last 30 days")
	view = svc.buildView(domain.FilterState{}, "")
	assert.True(t, view.Stale, "snapshot carries the old range tag")

	// the next refresh fetches for the new range and clears staleness
	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"}))
	view = svc.buildView(domain.FilterState{}, "")
	assert.False(t, view.Stale)
}

func TestViewReportsRefreshInFlight(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{payload: payloadWith(enabled("c1"))}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()

	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"}))
	assert.False(t, svc.buildView(domain.FilterState{}, "").Refreshing)

	svc.mu.Lock()
	svc.loading = true
	svc.mu.Unlock()
	assert.True(t, svc.buildView(domain.FilterState{}, "").Refreshing)
}

func TestToggleCampaignStatus_Commits(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{payload: payloadWith(enabled("c1"))}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()
	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"}))

	status, err := svc.ToggleCampaignStatus(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, status)

	view := svc.buildView(domain.FilterState{}, "")
	assert.Equal(t, domain.StatusPaused, view.Campaigns[0].Status)
}

func TestToggleCampaignStatus_RollbackIsIsolated(t *testing.T) {
	store := newMockStore()
	other := enabled("c2")
	other.Status = domain.StatusPaused
	upstream := &mockUpstream{payload: payloadWith(enabled("c1"), other)}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()
	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"}))

	upstream.mu.Lock()
	upstream.statusErr = errors.New("rejected")
	upstream.mu.Unlock()

	status, err := svc.ToggleCampaignStatus(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, domain.StatusEnabled, status, "rollback restores the original status")

	view := svc.buildView(domain.FilterState{}, "")
	byID := map[string]domain.CampaignStatus{}
	for _, c := range view.Campaigns {
		byID[c.ID] = c.Status
	}
	assert.Equal(t, domain.StatusEnabled, byID["c1"])
	assert.Equal(t, domain.StatusPaused, byID["c2"], "other campaigns untouched")
}

func TestToggleCampaignStatus_RemovedIsRejected(t *testing.T) {
	store := newMockStore()
	gone := enabled("c1")
	gone.Status = domain.StatusRemoved
	upstream := &mockUpstream{payload: payloadWith(gone)}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()
	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"}))

	_, err := svc.ToggleCampaignStatus(context.Background(), "c1")
	assert.Error(t, err)
	assert.Zero(t, upstream.statusCalls)
}

func TestEffectiveStats_Provenance(t *testing.T) {
	store := newMockStore()
	upstream := &mockUpstream{payload: &domain.DashboardPayload{
		Campaigns: []domain.Campaign{enabled("c1")},
		Metrics:   domain.AggregateMetrics{"revenue": []byte("500")},
	}}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()
	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"}))

	stats := svc.EffectiveStats()

	assert.Equal(t, domain.SourceAPI, stats["revenue"].Source)
	assert.Equal(t, 500.0, stats["revenue"].Value)

	assert.Equal(t, domain.SourceEstimated, stats["roas"].Source)
	assert.InDelta(t, 3.0, stats["roas"].Value, 1e-9)
}

func TestEffectiveStats_NoneWithoutData(t *testing.T) {
	svc := newService(newMockStore(), &mockUpstream{})
	svc.Init(context.Background())
	defer svc.Close()

	for key, v := range svc.EffectiveStats() {
		assert.Equal(t, domain.SourceNone, v.Source, key)
		assert.Zero(t, v.Value, key)
	}
}

func TestFocusedCampaign_NativeCurrency(t *testing.T) {
	store := newMockStore()
	eu := enabled("eu")
	eu.Currency = "EUR"
	upstream := &mockUpstream{payload: payloadWith(enabled("us"), eu)}
	svc := newService(store, upstream)
	svc.Init(context.Background())
	defer svc.Close()
	require.NoError(t, svc.Refresh(context.Background(), RefreshOptions{Trigger: "test"}))

	view := svc.buildView(domain.FilterState{}, "eu")
	require.Len(t, view.Campaigns, 1)
	assert.Equal(t, "EUR", view.DisplayCurrency)
	// native focus: amounts are not converted
	assert.InDelta(t, 100.0, view.Totals.Spend, 1e-9)
}

func TestScheduledRefresh_StartStop(t *testing.T) {
	var mu sync.Mutex
	runs := 0
	task := NewScheduledRefresh(10*time.Millisecond, func(context.Context) {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	assert.False(t, task.Running())
	task.Start()
	task.Start() // idempotent
	assert.True(t, task.Running())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 2
	}, time.Second, 5*time.Millisecond)

	task.Stop()
	task.Stop() // idempotent
	assert.False(t, task.Running())

	mu.Lock()
	after := runs
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.LessOrEqual(t, runs, after+1, "no further runs after stop")
	mu.Unlock()
}
