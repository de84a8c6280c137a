package ingest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/campaign-analyzer/internal/dimension"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

// dateLayouts are tried in order; exports mix ISO, US and compact dates.
var dateLayouts = []string{
	models.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"20060102",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			// keep the calendar day as written, whatever the offset
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// num parses a decimal cell. Blank or malformed cells read as 0 and
// negatives clamp to 0. A leading currency sign and a trailing % are ignored.
func num(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// count parses an integer cell; decimal literals truncate.
func count(s string) int64 { return num(s).IntPart() }

// first returns the first non-empty value among the named columns.
func first(r RawRecord, cols ...string) string {
	for _, c := range cols {
		if v := r.Get(c); v != "" {
			return v
		}
	}
	return ""
}

func present(s string) bool {
	return s != "" && !strings.EqualFold(s, "null")
}

// base holds the columns every platform shares once mapped.
type base struct {
	date        string
	campaign    string
	lineItem    string
	creative    string
	impressions int64
	clicks      int64
	viewable    int64
	revenue     decimal.Decimal
	postClick   decimal.Decimal
	postView    decimal.Decimal
	total       decimal.Decimal
}

type platformRow interface {
	rawDate() string
	valid() bool
	record() models.CampaignRecord
	// audienceSource is the name the audience type is read from.
	audienceSource() string
}

func (b base) rawDate() string { return b.date }

type dv360Row struct {
	base
	flActivity string
	flGroup    string
	flTag      string
}

func readDV360(r RawRecord) platformRow {
	impr := count(r.Get("Impressions"))
	viewable := impr
	if v := r.Get("Active View: Viewable Impressions"); v != "" {
		viewable = count(v)
	}
	return dv360Row{
		base: base{
			date:        r.Get("Date"),
			campaign:    r.Get("Campaign"),
			lineItem:    r.Get("Line Item"),
			creative:    r.Get("Creative"),
			impressions: impr,
			clicks:      count(r.Get("Clicks")),
			viewable:    viewable,
			revenue:     num(first(r, "Revenue (Adv Currency)", "Revenue")),
			postClick:   num(r.Get("Post-Click Conversions")),
			postView:    num(r.Get("Post-View Conversions")),
			total:       num(r.Get("Total Conversions")),
		},
		flActivity: first(r, "Floodlight Activity Name", "Floodlight Activity"),
		flGroup:    first(r, "Floodlight Activity Group", "Floodlight Group"),
		flTag:      first(r, "Floodlight Activity ID", "Floodlight Tag"),
	}
}

func (d dv360Row) valid() bool {
	return present(d.date) && present(d.campaign) && present(d.lineItem)
}

func (d dv360Row) audienceSource() string { return d.lineItem }

func (d dv360Row) record() models.CampaignRecord {
	rec := d.base.record()
	rec.FloodlightActivity = d.flActivity
	rec.FloodlightGroup = d.flGroup
	rec.FloodlightTag = d.flTag
	return rec
}

type googleAdsRow struct {
	base
	campaignID string
}

func readGoogleAds(r RawRecord) platformRow {
	impr := count(r.Get("Impressions"))
	postClick := num(r.Get("Conversions"))
	postView := num(r.Get("View-through Conversions"))
	return googleAdsRow{
		base: base{
			date:        first(r, "Date", "Day"),
			campaign:    r.Get("Campaign"),
			lineItem:    r.Get("Ad Group"),
			creative:    first(r, "Ad", "Headline"),
			impressions: impr,
			clicks:      count(r.Get("Clicks")),
			viewable:    impr,
			revenue:     num(first(r, "Cost", "Cost (Local Currency)", "Amount Spent")),
			postClick:   postClick,
			postView:    postView,
			total:       postClick.Add(postView),
		},
		campaignID: r.Get("Campaign ID"),
	}
}

func (g googleAdsRow) valid() bool { return present(g.date) && present(g.campaign) }

func (g googleAdsRow) audienceSource() string {
	if g.lineItem != "" {
		return g.lineItem
	}
	return g.campaign
}

func (g googleAdsRow) record() models.CampaignRecord {
	rec := g.base.record()
	if g.campaignID != "" {
		rec.CampaignID = g.campaignID
	}
	return rec
}

type socialRow struct{ base }

func readSocial(r RawRecord) platformRow {
	impr := count(first(r, "Impressions", "Reach"))
	return socialRow{base{
		date:        first(r, "Date", "Reporting Starts"),
		campaign:    first(r, "Campaign", "Campaign Name"),
		lineItem:    r.Get("Ad Set Name"),
		creative:    r.Get("Ad Name"),
		impressions: impr,
		clicks:      count(first(r, "Clicks", "Link Clicks", "Post Clicks")),
		viewable:    impr,
		revenue:     num(first(r, "Amount Spent", "Spend", "Cost")),
		postClick:   num(first(r, "Conversions", "Results", "Purchases")),
		postView:    num(first(r, "View Conversions", "Video Views")),
		total:       num(first(r, "Conversions", "Results", "Purchases")),
	}}
}

func (s socialRow) valid() bool { return present(s.date) && present(s.campaign) }

func (s socialRow) audienceSource() string {
	if s.lineItem != "" {
		return s.lineItem
	}
	return s.campaign
}

func (s socialRow) record() models.CampaignRecord { return s.base.record() }

func (b base) record() models.CampaignRecord {
	return models.CampaignRecord{
		Campaign:             b.campaign,
		LineItem:             b.lineItem,
		Creative:             b.creative,
		Impressions:          b.impressions,
		Clicks:               b.clicks,
		ViewableImpressions:  b.viewable,
		Revenue:              b.revenue,
		PostClickConversions: b.postClick,
		PostViewConversions:  b.postView,
		TotalConversions:     b.total,
	}
}

func rowReader(p models.Platform) func(RawRecord) platformRow {
	switch p {
	case models.PlatformGoogleAds:
		return readGoogleAds
	case models.PlatformSocial:
		return readSocial
	}
	return readDV360
}

// Normalize maps raw rows of one export into canonical records. Rows missing
// a date, campaign or (DV360) line item are dropped, as are rows whose date
// does not parse. dropped counts both.
func Normalize(rows []RawRecord, p models.Platform, sourceFile string) (out []models.CampaignRecord, dropped int) {
	read := rowReader(p)
	out = make([]models.CampaignRecord, 0, len(rows))
	for _, raw := range rows {
		row := read(raw)
		if !row.valid() {
			dropped++
			continue
		}
		d, ok := parseDate(row.rawDate())
		if !ok {
			dropped++
			continue
		}
		rec := row.record()
		rec.Date = d
		rec.Platform = p
		rec.SourceFile = sourceFile
		derive(&rec, row.audienceSource())
		out = append(out, rec)
	}
	return out, dropped
}

// derive fills the classification fields from the record's names.
func derive(rec *models.CampaignRecord, audienceSource string) {
	rec.AudienceType = dimension.AudienceType(audienceSource, rec.Platform)
	segSource := rec.LineItem
	if segSource == "" {
		segSource = rec.Campaign
	}
	rec.AudienceSegment, rec.SegmentKey = dimension.AudienceSegment(segSource)
	rec.CampaignType = dimension.CampaignType(rec.Campaign)
	rec.OptimizedTargeting = dimension.OptimizedTargeting(rec.LineItem)
	rec.CustomBidding = dimension.CustomBidding(rec.LineItem)
	rec.OptimizationType = dimension.OptimizationType(rec.LineItem)
	rec.BusinessType = dimension.BusinessType(rec.Campaign)
	if rec.CampaignID == "" {
		rec.CampaignID, _ = dimension.CampaignID(rec.Campaign)
	}
	if id, ok := dimension.AmpID(rec.LineItem); ok {
		rec.AmpID = id
	} else {
		rec.AmpID, _ = dimension.AmpID(rec.Campaign)
	}
	rec.AudienceName, _ = dimension.AudienceName(segSource)
}
