package domain

// FilterState combines the user-selected campaign filters. Applying it
// is a pure conjunction of independent predicates, so order never
// affects the result.
type FilterState struct {
	// Single selected type; empty means "all".
	Type CampaignType `json:"type,omitempty"`
	// Allowed type set; nil means no constraint.
	Types []CampaignType `json:"types,omitempty"`
	// Allowed status set; nil means no constraint.
	Statuses []CampaignStatus `json:"statuses,omitempty"`
	// Case-insensitive substring match on name or id.
	Query string `json:"query,omitempty"`
	// Minimum-performance thresholds, compared with >=.
	MinROAS        *float64 `json:"minRoas,omitempty"`
	MinCTR         *float64 `json:"minCtr,omitempty"`
	MinConversions *float64 `json:"minConversions,omitempty"`
}

// IsZero reports whether no predicate is set.
func (f FilterState) IsZero() bool {
	return f.Type == "" && f.Types == nil && f.Statuses == nil &&
		f.Query == "" && f.MinROAS == nil && f.MinCTR == nil && f.MinConversions == nil
}
