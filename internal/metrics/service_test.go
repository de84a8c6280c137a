package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/campaign-analyzer/internal/cache"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func record(day string, p models.Platform, at models.AudienceType, segment string, impr, clicks int64, revenue string) models.CampaignRecord {
	d, _ := time.Parse(models.DateLayout, day)
	return models.CampaignRecord{
		Date: d, Platform: p, Campaign: "Camp_" + segment, AudienceType: at,
		AudienceSegment: segment, SegmentKey: segment, CampaignType: "Search",
		Impressions: impr, Clicks: clicks, ViewableImpressions: impr,
		Revenue: decimal.RequireFromString(revenue),
	}
}

func seeded() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.Append(
		record("2024-01-01", models.PlatformDV360, models.AudienceFirstParty, "1P_A", 1000, 50, "25"),
		record("2024-01-02", models.PlatformDV360, models.AudienceFirstParty, "1P_A", 2000, 100, "50"),
		record("2024-01-08", models.PlatformSocial, models.AudienceConverged, "LAL", 500, 5, "10"),
		record("2024-01-09", models.PlatformGoogleAds, models.AudienceOther, "Generic", 100, 1, "1"),
	)
	return st
}

func TestSummaryFilters(t *testing.T) {
	svc := NewService(seeded(), nil, quiet, nil)
	ctx := context.Background()

	all, err := svc.Summary(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 4, all.Records)
	assert.Equal(t, int64(3600), all.Impressions)

	dv, err := svc.Summary(ctx, url.Values{"platform": {"dv360"}})
	require.NoError(t, err)
	assert.Equal(t, 2, dv.Records)
	assert.Equal(t, 5.0, dv.CTR)
	assert.Equal(t, 75.0, dv.Revenue)

	rangeOnly, err := svc.Summary(ctx, url.Values{"from": {"2024-01-02"}, "to": {"2024-01-08"}})
	require.NoError(t, err)
	assert.Equal(t, 2, rangeOnly.Records)
}

func TestTable(t *testing.T) {
	svc := NewService(seeded(), nil, quiet, nil)
	ctx := context.Background()

	week, err := svc.Table(ctx, "week", url.Values{})
	require.NoError(t, err)
	require.Equal(t, 2, week.Total)
	assert.Equal(t, "2024-01-01", week.Items[0].Key)
	assert.Equal(t, int64(3000), week.Items[0].Impressions)
	assert.Equal(t, "2024-01-08", week.Items[1].Key)

	seg, err := svc.Table(ctx, "segment", url.Values{"limit": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, 3, seg.Total)
	require.Len(t, seg.Items, 2)
	assert.Equal(t, "1P_A", seg.Items[0].Key)
	assert.Equal(t, "LAL", seg.Items[1].Key)

	page2, err := svc.Table(ctx, "segment", url.Values{"limit": {"2"}, "offset": {"2"}})
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Equal(t, "Generic", page2.Items[0].Key)

	_, err = svc.Table(ctx, "colour", url.Values{})
	assert.ErrorIs(t, err, ErrUnknownDimension)
}

func TestSeriesAndSegments(t *testing.T) {
	svc := NewService(seeded(), nil, quiet, nil)
	ctx := context.Background()

	daily, err := svc.Series(ctx, "daily", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-08", "2024-01-09"}, daily.Labels)

	_, err = svc.Series(ctx, "hourly", url.Values{})
	assert.ErrorIs(t, err, ErrUnknownDimension)

	segs, err := svc.Segments(ctx, "1st Party", url.Values{})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "1P_A", segs[0].Key)

	segs, err = svc.Segments(ctx, "all", url.Values{"limit": {"2"}})
	require.NoError(t, err)
	assert.Len(t, segs, 2)

	_, err = svc.Segments(ctx, "foo", url.Values{})
	assert.ErrorIs(t, err, ErrUnknownAudienceType)
}

func TestRecordsPage(t *testing.T) {
	svc := NewService(seeded(), nil, quiet, nil)
	page, err := svc.Records(context.Background(), url.Values{"limit": {"3"}, "offset": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "2024-01-02", page.Items[0].DateKey())
}

func TestComparisonAndFloodlight(t *testing.T) {
	st := seeded()
	fl := record("2024-01-03", models.PlatformDV360, models.AudienceFirstParty, "1P_A", 10, 1, "8")
	fl.FloodlightActivity = "Purchase"
	fl.TotalConversions = decimal.NewFromInt(2)
	st.Append(fl)
	svc := NewService(st, nil, quiet, nil)
	ctx := context.Background()

	cmp, err := svc.AudienceComparison(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 3, cmp.FirstParty.Records)
	assert.Equal(t, 1, cmp.Converged.Records)

	rep, err := svc.Floodlight(ctx, url.Values{})
	require.NoError(t, err)
	require.Len(t, rep.Activities, 1)
	assert.Equal(t, 4.0, rep.CostPerOrder)
}

func TestCanonicalQuery(t *testing.T) {
	a := url.Values{"to": {"2024-01-31"}, "from": {"2024-01-01"}, "platform": {"dv360"}}
	b := url.Values{"platform": {"dv360"}, "from": {"2024-01-01"}, "to": {"2024-01-31"}}
	assert.Equal(t, canonical(a), canonical(b))
	assert.Equal(t, "from=2024-01-01&platform=dv360&to=2024-01-31", canonical(a))
}

func TestCacheKeyedByStoreVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedis(context.Background(), "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer rc.Close()

	st := seeded()
	tel := telemetry.New()
	svc := NewService(st, rc, quiet, tel)
	ctx := context.Background()

	first, err := svc.Summary(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 4, first.Records)
	assert.Len(t, mr.Keys(), 1)

	again, err := svc.Summary(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	st.Append(record("2024-01-10", models.PlatformDV360, models.AudienceOther, "X", 1, 0, "0"))
	after, err := svc.Summary(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 5, after.Records)
	assert.Len(t, mr.Keys(), 2)

	recs, err := svc.Records(ctx, url.Values{})
	require.NoError(t, err)
	cachedRecs, err := svc.Records(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, recs.Items[0].DateKey(), cachedRecs.Items[0].DateKey())
}

func TestClampLimitOffset(t *testing.T) {
	l, o := clampLimitOffset(5000, -3, 10)
	assert.Equal(t, maxLimit, l)
	assert.Zero(t, o)
	l, o = clampLimitOffset(0, 20, 10)
	assert.Equal(t, 10, l)
	assert.Equal(t, 10, o)
	assert.Equal(t, []int{}, paginate([]int{1, 2}, 5, 2))
}

func TestCacheSeparatesStoresSharingRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	rc, err := cache.NewRedis(ctx, "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer rc.Close()

	a, b := store.NewMemoryStore(), store.NewMemoryStore()
	a.Append(record("2024-01-01", models.PlatformDV360, models.AudienceOther, "A", 1000, 10, "5"))
	b.Append(record("2024-01-01", models.PlatformDV360, models.AudienceOther, "B", 7, 1, "1"))
	require.Equal(t, a.Version(), b.Version())
	require.NotEqual(t, a.ID(), b.ID())

	sa, err := NewService(a, rc, quiet, nil).Summary(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sa.Impressions)

	sb, err := NewService(b, rc, quiet, nil).Summary(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), sb.Impressions)
	assert.Len(t, mr.Keys(), 2)
}
