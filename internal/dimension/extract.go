package dimension

import (
	"regexp"
	"strings"
)

var (
	// cid123, CID_123, campaign id: 123, Campaign-ID#123
	campaignIDPattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:cid|campaign[ _-]?id)[ _:#-]*(\d+)`)
	// a standalone run of at least six digits
	longNumberPattern = regexp.MustCompile(`(?:^|\D)(\d{6,})(?:\D|$)`)
	// amp42, AMP_42, amp-id 42
	ampIDPattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])amp(?:[ _-]?id)?[ _:#-]*(\d+)`)
	// aud_Shoppers, Audience: InMarketAuto
	audienceNamePattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:aud|audience)[ _:-]+([a-z0-9]+)`)
)

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// CampaignID returns the digits following a "cid" or "campaign id" marker,
// or else the first standalone run of six or more digits.
func CampaignID(name string) (string, bool) {
	if id, ok := firstGroup(campaignIDPattern, name); ok {
		return id, true
	}
	return firstGroup(longNumberPattern, name)
}

// AmpID returns the digits following an "amp" or "amp id" marker.
func AmpID(name string) (string, bool) {
	return firstGroup(ampIDPattern, name)
}

// AudienceName returns the token following an "aud" or "audience" marker.
func AudienceName(name string) (string, bool) {
	return firstGroup(audienceNamePattern, name)
}

var (
	orderMarkers = []string{"order", "purchase", "buy"}
	leadMarkers  = []string{"lead", "signup", "register", "form", "contact"}
)

// IsOrderActivity reports whether a floodlight activity name counts toward
// cost per order. Matching is a caseless substring test.
func IsOrderActivity(activity string) bool {
	return containsAny(fold(strings.TrimSpace(activity)), orderMarkers)
}

// IsLeadActivity reports whether a floodlight activity name counts toward
// cost per lead. Substring matching means "performance" contains "form".
func IsLeadActivity(activity string) bool {
	return containsAny(fold(strings.TrimSpace(activity)), leadMarkers)
}
