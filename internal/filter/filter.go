// Package filter narrows the working dataset before aggregation.
//
// Every criterion is an independent predicate over one record and all active
// criteria are ANDed, so application order never changes the result. The
// zero Criteria matches everything.
package filter

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

// All is the sentinel accepted by string criteria in query strings.
const All = "all"

type Criteria struct {
	Platform models.Platform
	From, To time.Time // inclusive; zero means open

	AudienceType       models.AudienceType
	CampaignID         string
	Segment            string // matches SegmentKey
	OptimizedTargeting *bool
	CustomBidding      *bool
	OptimizationType   models.OptimizationType
	BusinessType       string
	CampaignType       string
	FloodlightActivity string
}

// Match reports whether r satisfies every active criterion.
func (c Criteria) Match(r models.CampaignRecord) bool {
	switch {
	case c.Platform != "" && r.Platform != c.Platform:
		return false
	case !c.From.IsZero() && r.Date.Before(c.From):
		return false
	case !c.To.IsZero() && r.Date.After(c.To):
		return false
	case c.AudienceType != "" && r.AudienceType != c.AudienceType:
		return false
	case c.CampaignID != "" && r.CampaignID != c.CampaignID:
		return false
	case c.Segment != "" && r.SegmentKey != c.Segment:
		return false
	case c.OptimizedTargeting != nil && r.OptimizedTargeting != *c.OptimizedTargeting:
		return false
	case c.CustomBidding != nil && r.CustomBidding != *c.CustomBidding:
		return false
	case c.OptimizationType != "" && r.OptimizationType != c.OptimizationType:
		return false
	case c.BusinessType != "" && r.BusinessType != c.BusinessType:
		return false
	case c.CampaignType != "" && r.CampaignType != c.CampaignType:
		return false
	case c.FloodlightActivity != "" && r.FloodlightActivity != c.FloodlightActivity:
		return false
	}
	return true
}

// IsZero reports whether no criterion is active.
func (c Criteria) IsZero() bool {
	return c.Platform == "" && c.From.IsZero() && c.To.IsZero() &&
		c.AudienceType == "" && c.CampaignID == "" && c.Segment == "" &&
		c.OptimizedTargeting == nil && c.CustomBidding == nil &&
		c.OptimizationType == "" && c.BusinessType == "" &&
		c.CampaignType == "" && c.FloodlightActivity == ""
}

// Apply returns the matching records in input order. recs is not modified.
func Apply(recs []models.CampaignRecord, c Criteria) []models.CampaignRecord {
	out := make([]models.CampaignRecord, 0, len(recs))
	for _, r := range recs {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// FromQuery reads criteria from query parameters. Empty, "all" and
// unparseable values leave the criterion inactive.
func FromQuery(v url.Values) Criteria {
	var c Criteria
	if p, ok := models.ParsePlatform(str(v, "platform")); ok {
		c.Platform = p
	}
	c.From = date(v, "from")
	c.To = date(v, "to")
	c.AudienceType = models.AudienceType(str(v, "audience_type"))
	c.CampaignID = str(v, "campaign_id")
	c.Segment = str(v, "segment")
	c.OptimizedTargeting = boolPtr(v, "optimized_targeting")
	c.CustomBidding = boolPtr(v, "custom_bidding")
	c.OptimizationType = models.OptimizationType(str(v, "optimization_type"))
	c.BusinessType = str(v, "business_type")
	c.CampaignType = str(v, "campaign_type")
	c.FloodlightActivity = str(v, "floodlight_activity")
	return c
}

func str(v url.Values, k string) string {
	s := strings.TrimSpace(v.Get(k))
	if strings.EqualFold(s, All) {
		return ""
	}
	return s
}

func date(v url.Values, k string) time.Time {
	t, err := time.Parse(models.DateLayout, str(v, k))
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolPtr(v url.Values, k string) *bool {
	b, err := strconv.ParseBool(str(v, k))
	if err != nil {
		return nil
	}
	return &b
}
