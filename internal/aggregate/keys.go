package aggregate

import (
	"time"

	"github.com/AngelCh415/campaign-analyzer/internal/dimension"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

// KeyFunc returns the grouping key of a record and the label shown for it.
type KeyFunc func(models.CampaignRecord) (key, label string)

func same(s string) (string, string) {
	if s == "" {
		return dimension.Unknown, dimension.Unknown
	}
	return s, s
}

func ByDate(r models.CampaignRecord) (string, string) { return same(r.DateKey()) }

// ByWeek keys a record by the Monday starting its ISO week. Sunday belongs
// to the week that started six days earlier.
func ByWeek(r models.CampaignRecord) (string, string) {
	return same(WeekStart(r.Date).Format(models.DateLayout))
}

func WeekStart(t time.Time) time.Time {
	wd := int(t.Weekday())
	diff := 1 - wd
	if wd == 0 {
		diff = -6
	}
	y, m, d := t.AddDate(0, 0, diff).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ByAudienceType(r models.CampaignRecord) (string, string) { return same(string(r.AudienceType)) }

// BySegment groups on the full segment key and labels with the display form.
func BySegment(r models.CampaignRecord) (string, string) {
	if r.SegmentKey == "" {
		return same(r.AudienceSegment)
	}
	label := r.AudienceSegment
	if label == "" {
		label = r.SegmentKey
	}
	return r.SegmentKey, label
}

func ByCampaignType(r models.CampaignRecord) (string, string) { return same(r.CampaignType) }

func ByFloodlightActivity(r models.CampaignRecord) (string, string) {
	return same(r.FloodlightActivity)
}

func ByPlatform(r models.CampaignRecord) (string, string) {
	return string(r.Platform), r.Platform.DisplayName()
}

func ByCampaign(r models.CampaignRecord) (string, string) { return same(r.Campaign) }

var keyFuncs = map[string]KeyFunc{
	"date":                ByDate,
	"week":                ByWeek,
	"audience_type":       ByAudienceType,
	"segment":             BySegment,
	"campaign_type":       ByCampaignType,
	"floodlight_activity": ByFloodlightActivity,
	"platform":            ByPlatform,
	"campaign":            ByCampaign,
}

// KeyFor looks up a KeyFunc by dimension name, as used in request paths.
func KeyFor(name string) (KeyFunc, bool) {
	k, ok := keyFuncs[name]
	return k, ok
}

// Dimensions lists the names KeyFor accepts.
func Dimensions() []string {
	return []string{"date", "week", "audience_type", "segment", "campaign_type", "floodlight_activity", "platform", "campaign"}
}
