// Package aggregate groups canonical records by a dimension and derives the
// ratio metrics shown in dashboard tables and charts.
//
// Summation and ratio derivation are separate passes: buckets only ever
// accumulate sums, and ratios are computed from the finished sums.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/campaign-analyzer/internal/models"
)

// Bucket holds the running sums for one dimension value.
type Bucket struct {
	Key   string
	Label string

	Records             int
	Impressions         int64
	Clicks              int64
	ViewableImpressions int64
	Revenue             decimal.Decimal
	PostClick           decimal.Decimal
	PostView            decimal.Decimal
	Conversions         decimal.Decimal

	platforms map[models.Platform]struct{}
}

func newBucket(key, label string) *Bucket {
	return &Bucket{Key: key, Label: label, platforms: map[models.Platform]struct{}{}}
}

func (b *Bucket) add(r models.CampaignRecord) {
	b.Records++
	b.Impressions += r.Impressions
	b.Clicks += r.Clicks
	b.ViewableImpressions += r.ViewableImpressions
	b.Revenue = b.Revenue.Add(r.Revenue)
	b.PostClick = b.PostClick.Add(r.PostClickConversions)
	b.PostView = b.PostView.Add(r.PostViewConversions)
	b.Conversions = b.Conversions.Add(r.TotalConversions)
	b.platforms[r.Platform] = struct{}{}
}

func (b *Bucket) merge(o *Bucket) {
	b.Records += o.Records
	b.Impressions += o.Impressions
	b.Clicks += o.Clicks
	b.ViewableImpressions += o.ViewableImpressions
	b.Revenue = b.Revenue.Add(o.Revenue)
	b.PostClick = b.PostClick.Add(o.PostClick)
	b.PostView = b.PostView.Add(o.PostView)
	b.Conversions = b.Conversions.Add(o.Conversions)
	for p := range o.platforms {
		b.platforms[p] = struct{}{}
	}
}

// Platforms lists the platforms that contributed to the bucket, sorted.
func (b *Bucket) Platforms() []string {
	out := make([]string, 0, len(b.platforms))
	for p := range b.platforms {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// Buckets maps a dimension key to its sums.
type Buckets map[string]*Bucket

// Aggregate sums recs into one bucket per key. Buckets are created on the
// first record carrying their key.
func Aggregate(recs []models.CampaignRecord, key KeyFunc) Buckets {
	out := Buckets{}
	for _, r := range recs {
		k, label := key(r)
		b, ok := out[k]
		if !ok {
			b = newBucket(k, label)
			out[k] = b
		}
		b.add(r)
	}
	return out
}

// Merge sums two aggregations over the same dimension into a new one.
// Neither input is modified.
func Merge(a, b Buckets) Buckets {
	out := make(Buckets, len(a)+len(b))
	for _, src := range []Buckets{a, b} {
		for k, v := range src {
			dst, ok := out[k]
			if !ok {
				dst = newBucket(v.Key, v.Label)
				out[k] = dst
			}
			dst.merge(v)
		}
	}
	return out
}

// Row derives the table row for a finished bucket.
func (b *Bucket) Row() models.Row {
	rev := b.Revenue.InexactFloat64()
	conv := b.Conversions.InexactFloat64()
	pc := b.PostClick.InexactFloat64()
	pv := b.PostView.InexactFloat64()
	impr := float64(b.Impressions)
	clicks := float64(b.Clicks)
	return models.Row{
		Key:                     b.Key,
		Label:                   b.Label,
		Platforms:               b.Platforms(),
		Impressions:             b.Impressions,
		Clicks:                  b.Clicks,
		ViewableImpressions:     b.ViewableImpressions,
		Revenue:                 round2(rev),
		PostClickConversions:    round2(pc),
		PostViewConversions:     round2(pv),
		Conversions:             round2(conv),
		CTR:                     round2(CTR(b.Clicks, b.Impressions)),
		CPM:                     round2(safeDivF(rev, impr) * 1000),
		CPC:                     round2(safeDivF(rev, clicks)),
		Viewability:             round2(safeDivF(float64(b.ViewableImpressions), impr) * 100),
		ConversionRate:          round2(safeDivF(conv, clicks) * 100),
		PostClickConversionRate: round2(safeDivF(pc, clicks) * 100),
		PostViewConversionRate:  round2(safeDivF(pv, clicks) * 100),
		CPA:                     round2(CPA(b.Revenue, b.Conversions)),
		CPAPostClick:            round2(CPA(b.Revenue, b.PostClick)),
		CPAPostView:             round2(CPA(b.Revenue, b.PostView)),
	}
}

// Rows derives every bucket's row, ranked by revenue.
func (bs Buckets) Rows() []models.Row {
	out := make([]models.Row, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Row())
	}
	Rank(out)
	return out
}

// Rank orders rows by revenue, highest first, ties by key.
func Rank(rows []models.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Revenue != rows[j].Revenue {
			return rows[i].Revenue > rows[j].Revenue
		}
		return rows[i].Key < rows[j].Key
	})
}

// SortedByKey orders rows by key ascending. Date keys sort chronologically.
func SortedByKey(rows []models.Row) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
}

// Table aggregates recs by key and returns revenue-ranked rows.
func Table(recs []models.CampaignRecord, key KeyFunc) []models.Row {
	return Aggregate(recs, key).Rows()
}

// Series aggregates recs by key into parallel arrays ordered by key, the
// shape line and bar charts consume.
func Series(recs []models.CampaignRecord, key KeyFunc) models.Series {
	rows := Table(recs, key)
	SortedByKey(rows)
	s := models.Series{
		Labels:      make([]string, len(rows)),
		Impressions: make([]int64, len(rows)),
		Clicks:      make([]int64, len(rows)),
		Revenue:     make([]float64, len(rows)),
		Conversions: make([]float64, len(rows)),
		CTR:         make([]float64, len(rows)),
	}
	for i, r := range rows {
		s.Labels[i] = r.Label
		s.Impressions[i] = r.Impressions
		s.Clicks[i] = r.Clicks
		s.Revenue[i] = r.Revenue
		s.Conversions[i] = r.Conversions
		s.CTR[i] = r.CTR
	}
	return s
}

// DefaultSegmentLimit caps segment charts.
const DefaultSegmentLimit = 10

// SegmentChart returns the top segments by revenue, optionally restricted to
// one audience type. limit <= 0 means DefaultSegmentLimit.
func SegmentChart(recs []models.CampaignRecord, at models.AudienceType, limit int) []models.Row {
	if limit <= 0 {
		limit = DefaultSegmentLimit
	}
	if at != "" {
		sub := make([]models.CampaignRecord, 0, len(recs))
		for _, r := range recs {
			if r.AudienceType == at {
				sub = append(sub, r)
			}
		}
		recs = sub
	}
	rows := Table(recs, BySegment)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
