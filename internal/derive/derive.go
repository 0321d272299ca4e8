// Package derive filters the in-memory campaign list and recomputes
// aggregate statistics from the filtered subset.
package derive

import (
	"strings"

	"adpulse/internal/currency"
	"adpulse/internal/domain"
)

// Filter applies the conjunction of all set predicates. The result is
// always a subset of the input and the operation is idempotent.
func Filter(campaigns []domain.Campaign, f domain.FilterState) []domain.Campaign {
	if f.IsZero() {
		out := make([]domain.Campaign, len(campaigns))
		copy(out, campaigns)
		return out
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		if f.Types != nil && !containsType(f.Types, c.Type) {
			continue
		}
		if f.Statuses != nil && !containsStatus(f.Statuses, c.Status) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(c.Name), query) &&
			!strings.Contains(strings.ToLower(c.ID), query) {
			continue
		}
		if f.MinROAS != nil && c.ROAS < *f.MinROAS {
			continue
		}
		if f.MinCTR != nil && c.CTR < *f.MinCTR {
			continue
		}
		if f.MinConversions != nil && c.Conversions < *f.MinConversions {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Totals are the aggregates recomputed from a filtered campaign set.
// Monetary fields are in the display currency of the converter used.
type Totals struct {
	Revenue           float64 `json:"revenue"`
	Spend             float64 `json:"spend"`
	Clicks            int64   `json:"clicks"`
	Conversions       float64 `json:"conversions"`
	Impressions       int64   `json:"impressions"`
	CTR               float64 `json:"ctr"`
	CPC               float64 `json:"cpc"`
	ROAS              float64 `json:"roas"`
	ConversionRate    float64 `json:"conversionRate"`
	CostPerConversion float64 `json:"costPerConversion"`
	QualityScore      float64 `json:"qualityScore"`
}

// Aggregate recomputes totals from the filtered set. Every monetary
// amount is converted per campaign before summing so mixed-currency
// aggregates are not distorted. All ratios are zero-guarded: a zero
// denominator yields 0, never NaN or Inf.
func Aggregate(campaigns []domain.Campaign, conv currency.Converter) Totals {
	var t Totals
	for _, c := range campaigns {
		cur := c.CurrencyOrDefault()
		t.Revenue += conv.ToDisplay(c.ConversionsValue, cur)
		t.Spend += conv.ToDisplay(c.Cost, cur)
		t.Clicks += c.Clicks
		t.Conversions += c.Conversions
		t.Impressions += c.Impressions
	}

	if t.Impressions > 0 {
		t.CTR = float64(t.Clicks) / float64(t.Impressions) * 100
	}
	if t.Clicks > 0 {
		t.CPC = t.Spend / float64(t.Clicks)
		t.ConversionRate = t.Conversions / float64(t.Clicks) * 100
	}
	if t.Spend > 0 {
		t.ROAS = t.Revenue / t.Spend
	}
	if t.Conversions > 0 {
		t.CostPerConversion = t.Spend / t.Conversions
	}
	t.QualityScore = qualityScore(campaigns, t)
	return t
}

// qualityScore averages explicit per-campaign quality values when any
// are present. Otherwise it falls back to a heuristic blend of CTR,
// conversion rate and inverse CPC. The heuristic is approximate, not a
// validated model.
func qualityScore(campaigns []domain.Campaign, t Totals) float64 {
	if len(campaigns) == 0 {
		return 0
	}
	var sum float64
	var n int
	for _, c := range campaigns {
		if c.QualityScore != nil {
			sum += *c.QualityScore
			n++
		}
	}
	if n > 0 {
		return sum / float64(n)
	}
	score := 0.3*t.CTR + 0.4*t.ConversionRate + 0.3*(10-min(10, t.CPC/2))
	return clamp(score, 0, 10)
}

// Stats pairs the recomputed totals with upstream change percentages.
func Stats(t Totals, m domain.AggregateMetrics) domain.StatsSnapshot {
	return domain.StatsSnapshot{
		Revenue:           domain.Stat{Value: t.Revenue, Change: m.Change("revenueChange")},
		Spend:             domain.Stat{Value: t.Spend, Change: m.Change("spendChange")},
		ROAS:              domain.Stat{Value: t.ROAS, Change: m.Change("roasChange")},
		CTR:               domain.Stat{Value: t.CTR, Change: m.Change("ctrChange")},
		CPC:               domain.Stat{Value: t.CPC, Change: m.Change("cpcChange")},
		ConversionRate:    domain.Stat{Value: t.ConversionRate, Change: m.Change("conversionRateChange")},
		CostPerConversion: domain.Stat{Value: t.CostPerConversion, Change: m.Change("costPerConversionChange")},
		QualityScore:      domain.Stat{Value: t.QualityScore, Change: m.Change("qualityScoreChange")},
	}
}

// HealthScore rates one campaign 0-100 as a sum of five bucketed
// sub-scores, each worth up to 20 points. The breakpoints are a step
// function and must not be interpolated. The floor of 10 applies
// unconditionally, REMOVED campaigns included.
func HealthScore(c domain.Campaign) int {
	score := statusPoints(c.Status) +
		impressionPoints(c.Impressions) +
		ctrPoints(c.CTR) +
		clickPoints(c.Clicks) +
		conversionPoints(c.Conversions, c.ROAS)
	return max(10, score)
}

func statusPoints(s domain.CampaignStatus) int {
	switch s {
	case domain.StatusEnabled:
		return 20
	case domain.StatusPaused:
		return 10
	default:
		return 0
	}
}

func impressionPoints(n int64) int {
	switch {
	case n > 1000:
		return 20
	case n > 500:
		return 15
	case n > 100:
		return 10
	case n > 10:
		return 5
	default:
		return 0
	}
}

func ctrPoints(ctr float64) int {
	switch {
	case ctr > 5:
		return 20
	case ctr > 3:
		return 15
	case ctr > 1:
		return 10
	case ctr > 0.5:
		return 5
	default:
		return 0
	}
}

func clickPoints(n int64) int {
	switch {
	case n > 50:
		return 20
	case n > 20:
		return 15
	case n > 5:
		return 10
	case n > 0:
		return 5
	default:
		return 0
	}
}

func conversionPoints(conversions, roas float64) int {
	switch {
	case conversions > 10 || roas > 4:
		return 20
	case conversions > 5 || roas > 2:
		return 15
	case conversions > 1 || roas > 1:
		return 10
	case conversions > 0 || roas > 0:
		return 5
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func containsType(ts []domain.CampaignType, t domain.CampaignType) bool {
	for _, v := range ts {
		if v == t {
			return true
		}
	}
	return false
}

func containsStatus(ss []domain.CampaignStatus, s domain.CampaignStatus) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
