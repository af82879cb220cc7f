package app

import (
	"context"
	"fmt"
	"time"

	"review_pulse/internal/domain"
)

type QueryService struct {
	store    domain.DatasetStore
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewQueryService(s domain.DatasetStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl, now: time.Now}
}

// DatasetSummary describes the loaded collection and its facets.
type DatasetSummary struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	LoadedAt   time.Time `json:"loadedAt"`
	RawRows    int       `json:"rawRows"`
	Reviews    int       `json:"reviews"`
	Listings   []string  `json:"listings"`
	Channels   []string  `json:"channels"`
	Categories []string  `json:"categories"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
}

func (s *QueryService) Current(ctx context.Context) (DatasetSummary, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return DatasetSummary{}, err
	}
	from, to, _ := DateBounds(ds.Reviews)
	return DatasetSummary{
		ID:         ds.ID,
		Source:     ds.Source,
		LoadedAt:   ds.LoadedAt,
		RawRows:    ds.RawRows,
		Reviews:    len(ds.Reviews),
		Listings:   Listings(ds.Reviews),
		Channels:   Channels(ds.Reviews),
		Categories: domain.CategoryNames(),
		From:       from,
		To:         to,
	}, nil
}

// Reviews is the filtered working view. Not cached: it is cheap and the
// predicate space is unbounded.
func (s *QueryService) Reviews(ctx context.Context, p domain.Predicates) ([]domain.Review, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(ds.Reviews, p), nil
}

func (s *QueryService) Sentiment(ctx context.Context, listing string) (domain.SentimentStats, error) {
	return cached(ctx, s, "sentiment", listing, func(rs []domain.Review) domain.SentimentStats {
		return SentimentDistribution(rs)
	})
}

func (s *QueryService) TopIssues(ctx context.Context, listing string, n int) ([]domain.TagCount, error) {
	return cached(ctx, s, fmt.Sprintf("issues:%d", n), listing, func(rs []domain.Review) []domain.TagCount {
		return TopIssues(rs, n)
	})
}

func (s *QueryService) PersistentIssues(ctx context.Context, listing string) ([]domain.PersistentIssue, error) {
	return cached(ctx, s, "persistent", listing, PersistentIssues)
}

func (s *QueryService) Analysis(ctx context.Context, listing string) (domain.ListingAnalysis, error) {
	return cached(ctx, s, "analysis", listing, func(rs []domain.Review) domain.ListingAnalysis {
		return Analyze(rs, listing)
	})
}

func (s *QueryService) Drilldown(ctx context.Context, listing, category, query string) (domain.Drilldown, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return domain.Drilldown{}, err
	}
	scoped := ForListing(ds.Reviews, listing)
	d, ok := Drilldown(scoped, category, query)
	if !ok {
		return domain.Drilldown{}, fmt.Errorf("category %q: %w", category, domain.ErrNotFound)
	}
	if isAll(listing) {
		d.TopListings = TopListingsForCategory(ds.Reviews, category, 5)
	}
	return d, nil
}

func (s *QueryService) Audit(ctx context.Context, listing string) (domain.AuditReport, error) {
	st, err := cached(ctx, s, "report", listing, ReportStats)
	if err != nil {
		return domain.AuditReport{}, err
	}
	return domain.AuditReport{Target: targetLabel(listing), GeneratedAt: s.now().UTC(), Stats: st}, nil
}

func (s *QueryService) Owner(ctx context.Context, listing string) (domain.OwnerSummary, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return domain.OwnerSummary{}, err
	}
	return OwnerSummary(ds.Reviews, listing, s.now()), nil
}

// cached is cache-aside over one aggregate of the listing-scoped reviews.
// Keys carry the dataset id, so a new upload never sees stale entries; the
// old id's keys are evicted by IngestionService.
func cached[T any](ctx context.Context, s *QueryService, kind, listing string, compute func([]domain.Review) T) (T, error) {
	var out T
	ds, err := s.store.Current(ctx)
	if err != nil {
		return out, err
	}
	if isAll(listing) {
		listing = "all"
	}
	key := cacheKeyPrefix(ds.ID) + kind + ":" + listing
	if s.cache != nil {
		if ok, err := s.cache.Get(ctx, key, &out); ok && err == nil {
			return out, nil
		}
	}
	out = compute(ForListing(ds.Reviews, listing))
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// cacheKeyPrefix namespaces analytics keys by dataset: analytics:<id>:<kind>:<listing>.
func cacheKeyPrefix(datasetID string) string {
	return "analytics:" + datasetID + ":"
}
