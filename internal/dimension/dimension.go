// Package dimension derives classification fields from the free-text names
// platforms put on campaigns, line items, ad groups and ad sets.
//
// Every function is total: empty input yields the dimension's sentinel
// ("Other", "Unknown" or "Not Classified") and nothing panics.
package dimension

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

const (
	Unknown       = "Unknown"
	NotClassified = "Not Classified"

	segmentMaxLen      = 30
	campaignTypeMaxLen = 20
)

var tokenSep = regexp.MustCompile(`[_\-\s]+`)

type audienceRules struct {
	firstParty []string
	converged  []string
}

var audienceKeywords = map[models.Platform]audienceRules{
	models.PlatformDV360: {
		firstParty: []string{"1p", "first party", "fp_"},
		converged:  []string{"conv", "converged", "lookalike"},
	},
	models.PlatformGoogleAds: {
		firstParty: []string{"1p", "first party", "custom", "crm"},
		converged:  []string{"conv", "similar", "lookalike", "affinity"},
	},
	models.PlatformSocial: {
		firstParty: []string{"custom", "retargeting", "remarketing", "1p"},
		converged:  []string{"lookalike", "similar", "lal", "interests"},
	},
}

var thirdPartyKeywords = []string{"3p", "3rd party", "third party"}

var campaignTypeWords = map[string]struct{}{
	"search": {}, "display": {}, "video": {}, "shopping": {}, "discovery": {},
	"youtube": {}, "performance": {}, "brand": {}, "remarketing": {}, "prospecting": {},
}

// fold lowers s for caseless comparison.
func fold(s string) string { return cases.Fold().String(s) }

// Tokens splits a name on underscores, hyphens and whitespace, dropping empties.
func Tokens(s string) []string {
	parts := tokenSep.Split(strings.TrimSpace(s), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// AudienceType classifies the targeting source of a line item, ad group or
// ad set name. Keyword sets differ per platform; 1st Party wins over
// Converged, which wins over 3rd Party. Unknown platforms use the DV360 rules.
func AudienceType(name string, p models.Platform) models.AudienceType {
	n := fold(strings.TrimSpace(name))
	if n == "" {
		return models.AudienceOther
	}
	rules, ok := audienceKeywords[p]
	if !ok {
		rules = audienceKeywords[models.PlatformDV360]
	}
	switch {
	case containsAny(n, rules.firstParty):
		return models.AudienceFirstParty
	case containsAny(n, rules.converged):
		return models.AudienceConverged
	case containsAny(n, thirdPartyKeywords):
		return models.AudienceThirdParty
	}
	return models.AudienceOther
}

// AudienceSegment extracts a short segment label from a line item name.
// It looks for the token carrying the "1p" (or, failing that, "conv") marker
// and joins it with its neighbours: one token before, one after. A "1p"
// token must not be the last one. Without a usable marker the trimmed name
// is returned, capped at 30 characters for the label.
//
// The second return value is the grouping key: identical to the label for
// windowed segments, the untruncated name otherwise.
func AudienceSegment(lineItem string) (label, key string) {
	name := strings.TrimSpace(lineItem)
	if name == "" {
		return Unknown, Unknown
	}
	parts := Tokens(name)
	lower := fold(name)

	if strings.Contains(lower, "1p") {
		if i := tokenIndex(parts, "1p"); i >= 0 && i < len(parts)-1 {
			w := window(parts, i)
			return w, w
		}
	} else if strings.Contains(lower, "conv") {
		if i := tokenIndex(parts, "conv"); i >= 0 {
			w := window(parts, i)
			return w, w
		}
	}
	return Truncate(name, segmentMaxLen), name
}

func tokenIndex(parts []string, marker string) int {
	for i, p := range parts {
		if strings.Contains(fold(p), marker) {
			return i
		}
	}
	return -1
}

func window(parts []string, i int) string {
	lo := i - 1
	if lo < 0 {
		lo = 0
	}
	hi := i + 2
	if hi > len(parts) {
		hi = len(parts)
	}
	return strings.Join(parts[lo:hi], "_")
}

// CampaignType returns the first token of the campaign name found in the
// campaign-type vocabulary, keeping its original case. Otherwise it falls
// back to the 4th token, then the 2nd, then the name capped at 20 characters.
// The positional fallback assumes an Advertiser_Market_Product_Type_...
// naming convention and misclassifies names that don't follow it.
func CampaignType(campaign string) string {
	name := strings.TrimSpace(campaign)
	if name == "" {
		return Unknown
	}
	parts := Tokens(name)
	for _, p := range parts {
		if _, ok := campaignTypeWords[fold(p)]; ok {
			return p
		}
	}
	switch {
	case len(parts) >= 4:
		return parts[3]
	case len(parts) >= 2:
		return parts[1]
	}
	return Truncate(name, campaignTypeMaxLen)
}

// Truncate caps s at n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// phrase view of a name: folded tokens joined by single spaces.
func phrase(s string) (string, map[string]struct{}) {
	toks := Tokens(fold(s))
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return strings.Join(toks, " "), set
}

func hasToken(set map[string]struct{}, toks ...string) bool {
	for _, t := range toks {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

func OptimizedTargeting(lineItem string) bool {
	p, set := phrase(lineItem)
	return hasToken(set, "ot", "optimized") || containsAny(p, []string{"optimized targeting", "opt tgt"})
}

func CustomBidding(lineItem string) bool {
	p, set := phrase(lineItem)
	return hasToken(set, "cb") || strings.Contains(p, "custom bidding")
}

// OptimizationType reports whether a line item optimizes toward Google
// Analytics goals or Floodlight activities.
func OptimizationType(lineItem string) models.OptimizationType {
	p, set := phrase(lineItem)
	switch {
	case hasToken(set, "ga") || strings.Contains(p, "google analytics"):
		return models.OptimizationGA
	case hasToken(set, "fl") || strings.Contains(p, "floodlight"):
		return models.OptimizationFL
	}
	return models.OptimizationUnknown
}

// BusinessType reads a B2B/B2C marker token from a campaign name.
func BusinessType(campaign string) string {
	_, set := phrase(campaign)
	switch {
	case hasToken(set, "b2b"):
		return "B2B"
	case hasToken(set, "b2c"):
		return "B2C"
	}
	return NotClassified
}
