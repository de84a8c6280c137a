package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical day rendering used for keys and JSON.
const DateLayout = "2006-01-02"

type Platform string

const (
	PlatformDV360     Platform = "dv360"
	PlatformGoogleAds Platform = "google-ads"
	PlatformSocial    Platform = "social"
)

// Platforms lists every supported source platform in detection priority order.
var Platforms = []Platform{PlatformDV360, PlatformGoogleAds, PlatformSocial}

func ParsePlatform(s string) (Platform, bool) {
	for _, p := range Platforms {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

func (p Platform) DisplayName() string {
	switch p {
	case PlatformDV360:
		return "Display & Video 360"
	case PlatformGoogleAds:
		return "Google Ads"
	case PlatformSocial:
		return "Social Media"
	}
	return string(p)
}

type AudienceType string

const (
	AudienceFirstParty AudienceType = "1st Party"
	AudienceThirdParty AudienceType = "3rd Party"
	AudienceConverged  AudienceType = "Converged"
	AudienceOther      AudienceType = "Other"
)

// AudienceTypes lists every audience classification.
var AudienceTypes = []AudienceType{AudienceFirstParty, AudienceThirdParty, AudienceConverged, AudienceOther}

func ParseAudienceType(s string) (AudienceType, bool) {
	for _, a := range AudienceTypes {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

type OptimizationType string

const (
	OptimizationGA      OptimizationType = "GA"
	OptimizationFL      OptimizationType = "FL"
	OptimizationUnknown OptimizationType = "Unknown"
)

// CampaignRecord is the canonical row every platform export is normalized into.
// Records are values; nothing mutates them once the normalizer returns.
type CampaignRecord struct {
	Date       time.Time `json:"-"`
	Platform   Platform  `json:"platform"`
	SourceFile string    `json:"source_file"`
	UploadID   string    `json:"upload_id,omitempty"`

	Campaign string `json:"campaign"`
	LineItem string `json:"line_item"` // line item, ad group or ad set
	Creative string `json:"creative,omitempty"`

	Impressions         int64           `json:"impressions"`
	Clicks              int64           `json:"clicks"`
	ViewableImpressions int64           `json:"viewable_impressions"`
	Revenue             decimal.Decimal `json:"revenue"`

	PostClickConversions decimal.Decimal `json:"post_click_conversions"`
	PostViewConversions  decimal.Decimal `json:"post_view_conversions"`
	TotalConversions     decimal.Decimal `json:"total_conversions"`

	AudienceType    AudienceType `json:"audience_type"`
	AudienceSegment string       `json:"audience_segment"`
	SegmentKey      string       `json:"segment_key"`
	CampaignType    string       `json:"campaign_type"`

	FloodlightActivity string `json:"floodlight_activity,omitempty"`
	FloodlightGroup    string `json:"floodlight_group,omitempty"`
	FloodlightTag      string `json:"floodlight_tag,omitempty"`

	OptimizedTargeting bool             `json:"optimized_targeting"`
	CustomBidding      bool             `json:"custom_bidding"`
	OptimizationType   OptimizationType `json:"optimization_type"`
	BusinessType       string           `json:"business_type"`

	CampaignID   string `json:"campaign_id,omitempty"`
	AmpID        string `json:"amp_id,omitempty"`
	AudienceName string `json:"audience_name,omitempty"`
}

func (r CampaignRecord) DateKey() string { return r.Date.Format(DateLayout) }

func (r CampaignRecord) MarshalJSON() ([]byte, error) {
	type alias CampaignRecord
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{Date: r.DateKey(), alias: alias(r)})
}

func (r *CampaignRecord) UnmarshalJSON(b []byte) error {
	type alias CampaignRecord
	aux := struct {
		Date string `json:"date"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		return nil
	}
	d, err := time.Parse(DateLayout, aux.Date)
	if err != nil {
		return err
	}
	r.Date = d
	return nil
}

// UploadInfo describes one ingested source file.
type UploadInfo struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Platform    Platform  `json:"platform,omitempty"`
	RowsParsed  int       `json:"rows_parsed"`
	RowsKept    int       `json:"rows_kept"`
	RowsDropped int       `json:"rows_dropped"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Summary is the headline metric block of the dashboard.
type Summary struct {
	Records              int     `json:"records"`
	Impressions          int64   `json:"impressions"`
	Clicks               int64   `json:"clicks"`
	Revenue              float64 `json:"revenue"`
	Conversions          float64 `json:"conversions"`
	PostClickConversions float64 `json:"post_click_conversions"`
	PostViewConversions  float64 `json:"post_view_conversions"`
	CTR                  float64 `json:"ctr"`
	CPM                  float64 `json:"cpm"`
	Viewability          float64 `json:"viewability"`
	ConversionRate       float64 `json:"conversion_rate"`
}

// Row is one line of an aggregation table.
type Row struct {
	Key                     string   `json:"key"`
	Label                   string   `json:"label"`
	Platforms               []string `json:"platforms,omitempty"`
	Impressions             int64    `json:"impressions"`
	Clicks                  int64    `json:"clicks"`
	ViewableImpressions     int64    `json:"viewable_impressions"`
	Revenue                 float64  `json:"revenue"`
	PostClickConversions    float64  `json:"post_click_conversions"`
	PostViewConversions     float64  `json:"post_view_conversions"`
	Conversions             float64  `json:"conversions"`
	CTR                     float64  `json:"ctr"`
	CPM                     float64  `json:"cpm"`
	CPC                     float64  `json:"cpc"`
	Viewability             float64  `json:"viewability"`
	ConversionRate          float64  `json:"conversion_rate"`
	PostClickConversionRate float64  `json:"post_click_conversion_rate"`
	PostViewConversionRate  float64  `json:"post_view_conversion_rate"`
	CPA                     float64  `json:"cpa"`
	CPAPostClick            float64  `json:"cpa_post_click"`
	CPAPostView             float64  `json:"cpa_post_view"`
}

// Series holds parallel chart arrays aligned on Labels.
type Series struct {
	Labels      []string  `json:"labels"`
	Impressions []int64   `json:"impressions"`
	Clicks      []int64   `json:"clicks"`
	Revenue     []float64 `json:"revenue"`
	Conversions []float64 `json:"conversions"`
	CTR         []float64 `json:"ctr"`
}
