package derive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adpulse/internal/currency"
	"adpulse/internal/domain"
)

func sampleCampaigns() []domain.Campaign {
	return []domain.Campaign{
		{ID: "c1", Name: "Brand Search", Type: domain.TypeSearch, Status: domain.StatusEnabled,
			Cost: 100, ConversionsValue: 300, Clicks: 50, Impressions: 1000, Conversions: 10,
			CTR: 5, ROAS: 3, Currency: "USD"},
		{ID: "c2", Name: "Holiday Video", Type: domain.TypeVideo, Status: domain.StatusPaused,
			Cost: 40, ConversionsValue: 20, Clicks: 5, Impressions: 2000, Conversions: 1,
			CTR: 0.25, ROAS: 0.5, Currency: "USD"},
		{ID: "c3", Name: "Shopping Feed", Type: domain.TypeShopping, Status: domain.StatusRemoved,
			Cost: 0, ConversionsValue: 0, Clicks: 0, Impressions: 0, Conversions: 0, Currency: "USD"},
	}
}

func f64(v float64) *float64 { return &v }

func TestFilter_SubsetAndIdempotent(t *testing.T) {
	campaigns := sampleCampaigns()
	filters := []domain.FilterState{
		{},
		{Type: domain.TypeSearch},
		{Statuses: []domain.CampaignStatus{domain.StatusEnabled, domain.StatusPaused}},
		{Query: "holiday"},
		{MinROAS: f64(1)},
		{Type: domain.TypeVideo, MinCTR: f64(0.1), Query: "video"},
	}
	for _, f := range filters {
		once := Filter(campaigns, f)
		for _, c := range once {
			assert.Contains(t, campaigns, c)
		}
		twice := Filter(once, f)
		assert.Equal(t, once, twice)
	}
}

func TestFilter_Predicates(t *testing.T) {
	campaigns := sampleCampaigns()

	byType := Filter(campaigns, domain.FilterState{Type: domain.TypeSearch})
	require.Len(t, byType, 1)
	assert.Equal(t, "c1", byType[0].ID)

	byTypeSet := Filter(campaigns, domain.FilterState{
		Types: []domain.CampaignType{domain.TypeSearch, domain.TypeVideo},
	})
	assert.Len(t, byTypeSet, 2)

	byStatus := Filter(campaigns, domain.FilterState{
		Statuses: []domain.CampaignStatus{domain.StatusRemoved},
	})
	require.Len(t, byStatus, 1)
	assert.Equal(t, "c3", byStatus[0].ID)

	// query matches name or id, case-insensitively
	assert.Len(t, Filter(campaigns, domain.FilterState{Query: "HOLIDAY"}), 1)
	assert.Len(t, Filter(campaigns, domain.FilterState{Query: "C2"}), 1)
	assert.Empty(t, Filter(campaigns, domain.FilterState{Query: "absent"}))

	// thresholds compare with >=
	assert.Len(t, Filter(campaigns, domain.FilterState{MinROAS: f64(3)}), 1)
	assert.Len(t, Filter(campaigns, domain.FilterState{MinROAS: f64(0.5)}), 2)
	assert.Len(t, Filter(campaigns, domain.FilterState{MinConversions: f64(1)}), 2)
}

func TestAggregate_SingleCampaignScenario(t *testing.T) {
	campaigns := []domain.Campaign{{
		ID: "only", Status: domain.StatusEnabled,
		Cost: 100, ConversionsValue: 300, Clicks: 50, Impressions: 1000, Conversions: 10,
		Currency: "USD",
	}}
	totals := Aggregate(campaigns, currency.USDConverter{})

	assert.InDelta(t, 5.0, totals.CTR, 1e-9)
	assert.InDelta(t, 2.0, totals.CPC, 1e-9)
	assert.InDelta(t, 3.0, totals.ROAS, 1e-9)
	assert.InDelta(t, 20.0, totals.ConversionRate, 1e-9)
	assert.InDelta(t, 10.0, totals.CostPerConversion, 1e-9)
}

func TestAggregate_EmptySetIsAllZeros(t *testing.T) {
	totals := Aggregate(nil, currency.USDConverter{})

	for _, v := range []float64{
		totals.Revenue, totals.Spend, totals.CTR, totals.CPC, totals.ROAS,
		totals.ConversionRate, totals.CostPerConversion, totals.QualityScore,
	} {
		assert.Zero(t, v)
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestAggregate_ZeroDenominatorsProduceZero(t *testing.T) {
	campaigns := []domain.Campaign{{ID: "idle", Status: domain.StatusEnabled, Currency: "USD"}}
	totals := Aggregate(campaigns, currency.USDConverter{})

	assert.Zero(t, totals.CTR)
	assert.Zero(t, totals.CPC)
	assert.Zero(t, totals.ROAS)
	assert.Zero(t, totals.ConversionRate)
	assert.Zero(t, totals.CostPerConversion)
	assert.False(t, math.IsNaN(totals.QualityScore))
	assert.GreaterOrEqual(t, totals.QualityScore, 0.0)
	assert.LessOrEqual(t, totals.QualityScore, 10.0)
}

func TestAggregate_MixedCurrenciesConvertPerCampaign(t *testing.T) {
	campaigns := []domain.Campaign{
		{ID: "us", Cost: 100, ConversionsValue: 200, Currency: "USD"},
		{ID: "eu", Cost: 92, ConversionsValue: 184, Currency: "EUR"}, // 100 / 200 USD at 0.92
	}
	totals := Aggregate(campaigns, currency.USDConverter{})

	assert.InDelta(t, 200, totals.Spend, 1e-9)
	assert.InDelta(t, 400, totals.Revenue, 1e-9)
	assert.InDelta(t, 2, totals.ROAS, 1e-9)
}

func TestQualityScore_ExplicitValuesAveraged(t *testing.T) {
	campaigns := []domain.Campaign{
		{ID: "a", QualityScore: f64(8)},
		{ID: "b", QualityScore: f64(6)},
		{ID: "c"}, // no explicit value; ignored by the average
	}
	totals := Aggregate(campaigns, currency.USDConverter{})
	assert.InDelta(t, 7.0, totals.QualityScore, 1e-9)
}

func TestQualityScore_HeuristicClamped(t *testing.T) {
	// Huge CTR and conversion rate push the blend well past 10.
	campaigns := []domain.Campaign{{
		ID: "hot", Clicks: 500, Impressions: 1000, Conversions: 400,
		Cost: 10, ConversionsValue: 1000, Currency: "USD",
	}}
	totals := Aggregate(campaigns, currency.USDConverter{})
	assert.Equal(t, 10.0, totals.QualityScore)
}

func TestStats_ChangesFromUpstreamMetrics(t *testing.T) {
	m := domain.AggregateMetrics{
		"revenueChange": []byte("12.5"),
		"spendChange":   []byte("-3"),
	}
	stats := Stats(Totals{Revenue: 100, Spend: 50}, m)
	assert.Equal(t, 12.5, stats.Revenue.Change)
	assert.Equal(t, -3.0, stats.Spend.Change)
	assert.Zero(t, stats.ROAS.Change)
	assert.Equal(t, 100.0, stats.Revenue.Value)
}

func TestHealthScore_FloorAppliesUnconditionally(t *testing.T) {
	removed := domain.Campaign{ID: "gone", Status: domain.StatusRemoved}
	assert.Equal(t, 10, HealthScore(removed))
}

func TestHealthScore_Cap(t *testing.T) {
	maxed := domain.Campaign{
		ID: "best", Status: domain.StatusEnabled,
		Impressions: 5000, CTR: 6, Clicks: 100, Conversions: 20, ROAS: 5,
	}
	assert.Equal(t, 100, HealthScore(maxed))
}

func TestHealthScore_StepBoundaries(t *testing.T) {
	// Breakpoints are strict: exactly 1000 impressions lands in the
	// 15-point bucket, 1001 in the 20-point one.
	base := domain.Campaign{Status: domain.StatusEnabled}

	at := base
	at.Impressions = 1000
	above := base
	above.Impressions = 1001
	assert.Equal(t, 5, HealthScore(above)-HealthScore(at))

	paused := base
	paused.Status = domain.StatusPaused
	assert.Equal(t, 10, HealthScore(base)-HealthScore(paused))
}

func TestHealthScore_RangeForAllCampaigns(t *testing.T) {
	for _, c := range sampleCampaigns() {
		score := HealthScore(c)
		assert.GreaterOrEqual(t, score, 10)
		assert.LessOrEqual(t, score, 100)
	}
}
