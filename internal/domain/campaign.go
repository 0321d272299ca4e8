package domain

import "encoding/json"

type CampaignType string

const (
	TypeSearch         CampaignType = "SEARCH"
	TypeVideo          CampaignType = "VIDEO"
	TypeShopping       CampaignType = "SHOPPING"
	TypeDisplay        CampaignType = "DISPLAY"
	TypePerformanceMax CampaignType = "PERFORMANCE_MAX"
)

type CampaignStatus string

const (
	StatusEnabled CampaignStatus = "ENABLED"
	StatusPaused  CampaignStatus = "PAUSED"
	StatusRemoved CampaignStatus = "REMOVED"
)

type ReviewStatus string

const (
	ReviewApproved    ReviewStatus = "APPROVED"
	ReviewUnderReview ReviewStatus = "UNDER_REVIEW"
	ReviewDisapproved ReviewStatus = "DISAPPROVED"
)

// Campaign is one advertising campaign as returned by the upstream API.
// The client never constructs one from scratch; the only field mutated
// locally is Status, via the optimistic enable/pause toggle.
type Campaign struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Type   CampaignType   `json:"type"`
	Status CampaignStatus `json:"status"`

	// Metrics default to 0 when absent upstream.
	Cost              float64 `json:"cost,omitempty"`
	Impressions       int64   `json:"impressions,omitempty"`
	Clicks            int64   `json:"clicks,omitempty"`
	CTR               float64 `json:"ctr,omitempty"`
	Conversions       float64 `json:"conversions,omitempty"`
	ConversionsValue  float64 `json:"conversionsValue,omitempty"`
	AverageCpc        float64 `json:"averageCpc,omitempty"`
	AverageCpm        float64 `json:"averageCpm,omitempty"`
	CostPerConversion float64 `json:"costPerConversion,omitempty"`
	ROAS              float64 `json:"roas,omitempty"`

	// Explicit per-campaign quality value when the upstream provides one.
	QualityScore *float64 `json:"qualityScore,omitempty"`

	Currency   string `json:"currency,omitempty"`
	CustomerID string `json:"customerId,omitempty"`

	ReviewStatus         ReviewStatus `json:"reviewStatus,omitempty"`
	ReviewStatusLabel    string       `json:"reviewStatusLabel,omitempty"`
	PrimaryStatus        string       `json:"primaryStatus,omitempty"`
	PrimaryStatusReasons []string     `json:"primaryStatusReasons,omitempty"`

	// Extra carries upstream fields this service does not model.
	Extra map[string]json.RawMessage `json:"-"`
}

// CurrencyOrDefault returns the campaign currency, defaulting to USD.
func (c Campaign) CurrencyOrDefault() string {
	if c.Currency == "" {
		return "USD"
	}
	return c.Currency
}

// known top-level JSON keys, kept in sync with the struct tags above
var campaignFields = []string{
	"id", "name", "type", "status",
	"cost", "impressions", "clicks", "ctr", "conversions", "conversionsValue",
	"averageCpc", "averageCpm", "costPerConversion", "roas", "qualityScore",
	"currency", "customerId",
	"reviewStatus", "reviewStatusLabel", "primaryStatus", "primaryStatusReasons",
}

// UnmarshalJSON keeps unknown upstream fields in Extra so snapshots
// round-trip without loss.
func (c *Campaign) UnmarshalJSON(b []byte) error {
	type alias Campaign
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, k := range campaignFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*c = Campaign(a)
	return nil
}

func (c Campaign) MarshalJSON() ([]byte, error) {
	type alias Campaign
	b, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return b, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}
