// Package metrics answers dashboard queries over the record store: it
// filters a snapshot, aggregates it and caches the rendered result.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/AngelCh415/campaign-analyzer/internal/aggregate"
	"github.com/AngelCh415/campaign-analyzer/internal/cache"
	"github.com/AngelCh415/campaign-analyzer/internal/filter"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
)

var (
	ErrUnknownDimension    = errors.New("unknown dimension")
	ErrUnknownAudienceType = errors.New("unknown audience type")
)

const maxLimit = 1000

type Service struct {
	st    *store.MemoryStore
	cache cache.Cache
	log   *slog.Logger
	tel   *telemetry.Metrics
}

// NewService builds a query service. c may be nil for no caching.
func NewService(st *store.MemoryStore, c cache.Cache, log *slog.Logger, tel *telemetry.Metrics) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	return &Service{st: st, cache: c, log: log, tel: tel}
}

// Page is a window over an ordered result.
type Page[T any] struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Items  []T `json:"items"`
}

// cached returns the value stored for (store instance, store version,
// endpoint, query) or computes and stores it. Cache failures are logged and
// otherwise ignored.
func cached[T any](ctx context.Context, s *Service, endpoint string, v url.Values, compute func([]models.CampaignRecord) (T, error)) (T, error) {
	key := fmt.Sprintf("%s:v%d:%s?%s", s.st.ID(), s.st.Version(), endpoint, canonical(v))
	var out T
	hit, err := s.cache.Get(ctx, key, &out)
	if err != nil {
		s.log.Warn("cache get", slog.String("key", key), slog.String("err", err.Error()))
	}
	s.tel.CacheResult(hit)
	if hit {
		return out, nil
	}
	recs := filter.Apply(s.st.Snapshot(), filter.FromQuery(v))
	out, err = compute(recs)
	if err != nil {
		return out, err
	}
	if err := s.cache.Set(ctx, key, out); err != nil {
		s.log.Warn("cache set", slog.String("key", key), slog.String("err", err.Error()))
	}
	return out, nil
}

// canonical encodes v with sorted keys and sorted values so equivalent
// queries share a cache entry.
func canonical(v url.Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		vals := append([]string(nil), v[k]...)
		sort.Strings(vals)
		for _, x := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(x))
		}
	}
	return b.String()
}

// Records returns the filtered records ordered by date then campaign.
func (s *Service) Records(ctx context.Context, v url.Values) (Page[models.CampaignRecord], error) {
	return cached(ctx, s, "records", v, func(recs []models.CampaignRecord) (Page[models.CampaignRecord], error) {
		sort.SliceStable(recs, func(i, j int) bool {
			if !recs[i].Date.Equal(recs[j].Date) {
				return recs[i].Date.Before(recs[j].Date)
			}
			return recs[i].Campaign < recs[j].Campaign
		})
		return pageOf(recs, v), nil
	})
}

func (s *Service) Summary(ctx context.Context, v url.Values) (models.Summary, error) {
	return cached(ctx, s, "summary", v, func(recs []models.CampaignRecord) (models.Summary, error) {
		return aggregate.Summarize(recs), nil
	})
}

// Table aggregates by the named dimension. Date and week tables are ordered
// by key; every other dimension is ranked by revenue.
func (s *Service) Table(ctx context.Context, dimension string, v url.Values) (Page[models.Row], error) {
	key, ok := aggregate.KeyFor(dimension)
	if !ok {
		return Page[models.Row]{}, fmt.Errorf("%w: %q", ErrUnknownDimension, dimension)
	}
	return cached(ctx, s, "table/"+dimension, v, func(recs []models.CampaignRecord) (Page[models.Row], error) {
		rows := aggregate.Table(recs, key)
		if dimension == "date" || dimension == "week" {
			aggregate.SortedByKey(rows)
		}
		return pageOf(rows, v), nil
	})
}

// Series returns chart arrays for "daily" or "weekly" buckets.
func (s *Service) Series(ctx context.Context, interval string, v url.Values) (models.Series, error) {
	var key aggregate.KeyFunc
	switch interval {
	case "daily":
		key = aggregate.ByDate
	case "weekly":
		key = aggregate.ByWeek
	default:
		return models.Series{}, fmt.Errorf("%w: %q", ErrUnknownDimension, interval)
	}
	return cached(ctx, s, "series/"+interval, v, func(recs []models.CampaignRecord) (models.Series, error) {
		return aggregate.Series(recs, key), nil
	})
}

// Segments returns the top segments for an audience type ("all" for every
// type), at most limit rows (default 10). Unknown types fail with
// ErrUnknownAudienceType.
func (s *Service) Segments(ctx context.Context, audienceType string, v url.Values) ([]models.Row, error) {
	var at models.AudienceType
	if !strings.EqualFold(audienceType, filter.All) {
		var ok bool
		if at, ok = models.ParseAudienceType(audienceType); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAudienceType, audienceType)
		}
	}
	limit := atoiDef(v.Get("limit"), aggregate.DefaultSegmentLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	return cached(ctx, s, "segments/"+audienceType, v, func(recs []models.CampaignRecord) ([]models.Row, error) {
		return aggregate.SegmentChart(recs, at, limit), nil
	})
}

func (s *Service) AudienceComparison(ctx context.Context, v url.Values) (aggregate.AudienceComparison, error) {
	return cached(ctx, s, "audiences/comparison", v, func(recs []models.CampaignRecord) (aggregate.AudienceComparison, error) {
		return aggregate.CompareAudiences(recs), nil
	})
}

func (s *Service) Floodlight(ctx context.Context, v url.Values) (aggregate.FloodlightReport, error) {
	return cached(ctx, s, "floodlight", v, func(recs []models.CampaignRecord) (aggregate.FloodlightReport, error) {
		return aggregate.Floodlight(recs), nil
	})
}

func pageOf[T any](rows []T, v url.Values) Page[T] {
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return Page[T]{Total: len(rows), Limit: limit, Offset: offset, Items: paginate(rows, limit, offset)}
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset > n {
		offset = n
	}
	return limit, offset
}
