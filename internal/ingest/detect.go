package ingest

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

type platformRule struct {
	platform models.Platform
	headers  []string
	filename []string
}

// detectRules are tried in order; the first hit wins.
var detectRules = []platformRule{
	{
		platform: models.PlatformDV360,
		headers:  []string{"insertion order", "line item", "active view: viewable impressions", "advertiser currency", "revenue (adv currency)"},
		filename: []string{"dv360", "display", "video"},
	},
	{
		platform: models.PlatformGoogleAds,
		headers:  []string{"campaign id", "ad group", "quality score", "search impression share", "cost per conversion", "avg. cpc"},
		filename: []string{"google ads", "google_ads", "adwords"},
	},
	{
		platform: models.PlatformSocial,
		headers:  []string{"reach", "frequency", "post engagement", "link clicks", "video views", "ad set name", "amount spent"},
		filename: []string{"facebook", "instagram", "linkedin", "tiktok", "social"},
	},
}

// Detect classifies an export by its header row and filename. Matching is a
// caseless substring search over all headers joined together and, separately,
// over the filename. Files matching no rule are treated as DV360.
func Detect(headers []string, filename string) models.Platform {
	c := cases.Fold()
	hs := c.String(strings.Join(headers, "|"))
	fn := c.String(filename)
	for _, r := range detectRules {
		if containsAny(hs, r.headers) || containsAny(fn, r.filename) {
			return r.platform
		}
	}
	return models.PlatformDV360
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
