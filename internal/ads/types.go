package ads

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies one of the provider's performance data exports.
type Category string

const (
	CategoryKeywords    Category = "keywords"
	CategorySearchTerms Category = "search_terms"
	CategoryNegatives   Category = "negatives"
	CategoryGeo         Category = "geo"
)

// Categories lists every data category in fetch order.
var Categories = []Category{CategoryKeywords, CategorySearchTerms, CategoryNegatives, CategoryGeo}

// MatchType is how literally a keyword must match a search query.
type MatchType string

const (
	MatchExact  MatchType = "EXACT"
	MatchPhrase MatchType = "PHRASE"
	MatchBroad  MatchType = "BROAD"
)

// Campaign targeting types. Automated campaign types bid on queries the
// advertiser never chose explicitly, which is where cannibalization of
// manually-targeted campaigns shows up.
const (
	CampaignTypeSearch         = "SEARCH"
	CampaignTypePerformanceMax = "PERFORMANCE_MAX"
	CampaignTypeDSA            = "DYNAMIC_SEARCH"
)

// IsAutomatedCampaignType reports whether the campaign type targets queries
// automatically rather than from an explicit keyword list.
func IsAutomatedCampaignType(t string) bool {
	return t == CampaignTypePerformanceMax || t == CampaignTypeDSA
}

// NegativeLevel is the level at which a negative keyword applies.
type NegativeLevel string

const (
	NegativeLevelAccount  NegativeLevel = "ACCOUNT"
	NegativeLevelCampaign NegativeLevel = "CAMPAIGN"
	NegativeLevelAdGroup  NegativeLevel = "AD_GROUP"
)

// Scope selects the slice of account data one analysis run covers.
type Scope struct {
	CustomerID  string    `json:"customer_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CampaignIDs []string  `json:"campaign_ids,omitempty"`
	AdGroupIDs  []string  `json:"ad_group_ids,omitempty"`
}

// Metrics is the performance bundle attached to every record.
type Metrics struct {
	Impressions     int64   `json:"impressions"`
	Clicks          int64   `json:"clicks"`
	Cost            float64 `json:"cost"`
	Conversions     float64 `json:"conversions"`
	ConversionValue float64 `json:"conversion_value"`
	QualityScore    *int    `json:"quality_score,omitempty"`
}

// Validate enforces the record invariants: non-negative counts and amounts,
// clicks bounded by impressions, quality score within 1-10 when present.
func (m Metrics) Validate() error {
	if m.Impressions < 0 {
		return fmt.Errorf("impressions must be non-negative, got %d", m.Impressions)
	}
	if m.Clicks < 0 || m.Clicks > m.Impressions {
		return fmt.Errorf("clicks must be within [0, impressions], got %d", m.Clicks)
	}
	if m.Cost < 0 {
		return fmt.Errorf("cost must be non-negative, got %f", m.Cost)
	}
	if m.Conversions < 0 {
		return fmt.Errorf("conversions must be non-negative, got %f", m.Conversions)
	}
	if m.ConversionValue < 0 {
		return fmt.Errorf("conversion value must be non-negative, got %f", m.ConversionValue)
	}
	if m.QualityScore != nil && (*m.QualityScore < 1 || *m.QualityScore > 10) {
		return fmt.Errorf("quality score must be within [1,10], got %d", *m.QualityScore)
	}
	return nil
}

// Record is one row of provider data: a keyword, search term, negative
// keyword, or geographic breakdown entry. Records are immutable once fetched.
type Record struct {
	Category     Category  `json:"category"`
	Text         string    `json:"text,omitempty"`
	MatchType    MatchType `json:"match_type,omitempty"`
	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name,omitempty"`
	CampaignType string    `json:"campaign_type,omitempty"`
	AdGroupID    string    `json:"ad_group_id,omitempty"`

	// Search-term rows carry the keyword that triggered them.
	MatchedKeyword string `json:"matched_keyword,omitempty"`

	// Negative rows carry the level they apply at.
	NegativeLevel NegativeLevel `json:"negative_level,omitempty"`

	// Geo rows carry a location instead of text.
	LocationID   string `json:"location_id,omitempty"`
	LocationName string `json:"location_name,omitempty"`

	Metrics Metrics `json:"metrics"`
}

// NormalizedText returns the record text lowercased and trimmed, the exact
// form used for grouping and cross-referencing. No fuzzy matching.
func (r Record) NormalizedText() string {
	return strings.ToLower(strings.TrimSpace(r.Text))
}

// Identity returns a stable key that is unique per logical record, used to
// deduplicate rows across page boundaries.
func (r Record) Identity() string {
	switch r.Category {
	case CategoryGeo:
		return fmt.Sprintf("%s|%s|%s", r.Category, r.CampaignID, r.LocationID)
	case CategorySearchTerms:
		return fmt.Sprintf("%s|%s|%s|%s|%s", r.Category, r.CampaignID, r.AdGroupID, r.NormalizedText(), strings.ToLower(strings.TrimSpace(r.MatchedKeyword)))
	default:
		return fmt.Sprintf("%s|%s|%s|%s|%s", r.Category, r.CampaignID, r.AdGroupID, r.NormalizedText(), r.MatchType)
	}
}

// Page is one page of provider results under offset-based pagination.
type Page struct {
	Records    []Record `json:"records"`
	Total      int      `json:"total"`
	NextOffset int      `json:"next_offset"`
	HasMore    bool     `json:"has_more"`
}

// Dataset is the complete, deduplicated result set for one analysis run.
type Dataset struct {
	Scope   Scope
	Records map[Category][]Record

	// Partial marks categories whose fetch exhausted retries but cleared
	// the completeness floor.
	Partial map[Category]bool
}

// TotalRecords returns the count of records across all categories.
func (d *Dataset) TotalRecords() int {
	n := 0
	for _, recs := range d.Records {
		n += len(recs)
	}
	return n
}

// IsPartial reports whether any category was fetched incompletely.
func (d *Dataset) IsPartial() bool {
	for _, p := range d.Partial {
		if p {
			return true
		}
	}
	return false
}
