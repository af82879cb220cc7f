package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_pulse/internal/domain"
)

type IngestionService struct {
	store domain.DatasetStore
	cache domain.Cache
	norm  *Normalizer
	obs   domain.IngestObserver
	now   func() time.Time
}

// NewIngestionService wires ingestion. cache may be nil; when set, analytics
// cached for the replaced dataset are evicted on every load.
func NewIngestionService(store domain.DatasetStore, cache domain.Cache, norm *Normalizer, obs domain.IngestObserver) *IngestionService {
	if norm == nil {
		norm = NewNormalizer()
	}
	return &IngestionService{store: store, cache: cache, norm: norm, obs: obs, now: time.Now}
}

// IngestResult is what the upload endpoint reports back.
type IngestResult struct {
	DatasetID string   `json:"datasetId"`
	Source    string   `json:"source"`
	RawRows   int      `json:"rawRows"`
	Reviews   int      `json:"reviews"`
	Skipped   int      `json:"skipped"`
	Log       []string `json:"log,omitempty"`
}

// Ingest normalizes one batch and makes it the current dataset. Only a batch
// with no rows at all is rejected; rows without text are dropped silently.
func (s *IngestionService) Ingest(ctx context.Context, source string, rows []domain.RawRow) (IngestResult, error) {
	if len(rows) == 0 {
		return IngestResult{}, domain.ErrNoRows
	}

	var prevID string
	if prev, err := s.store.Current(ctx); err == nil {
		prevID = prev.ID
	}

	b := s.norm.Run(rows)

	ds := domain.Dataset{
		ID:       uuid.NewString(),
		Source:   source,
		LoadedAt: s.now().UTC(),
		RawRows:  b.RawRows,
		Reviews:  b.Reviews,
	}
	if err := s.store.Replace(ctx, ds); err != nil {
		return IngestResult{}, fmt.Errorf("replace dataset from %s: %w", source, err)
	}

	if prevID != "" && s.cache != nil {
		if err := s.cache.DelPrefix(ctx, cacheKeyPrefix(prevID)); err != nil {
			log.Warn().Err(err).Str("dataset", prevID).Msg("evict cached analytics failed")
		}
	}

	if s.obs != nil {
		s.obs.ObserveIngest(source, b.RawRows, len(b.Dropped), b.Reviews)
	}

	res := IngestResult{
		DatasetID: ds.ID,
		Source:    source,
		RawRows:   b.RawRows,
		Reviews:   len(b.Reviews),
		Skipped:   len(b.Dropped),
	}
	ev := log.Info()
	if len(b.Reviews) == 0 {
		// nothing usable: hand the diagnostics back so the user can fix the file
		res.Log = b.Log
		ev = log.Warn().Strs("diagnostics", b.Log)
	}
	ev.Str("dataset", ds.ID).
		Str("source", source).
		Int("raw_rows", b.RawRows).
		Int("reviews", len(b.Reviews)).
		Int("skipped", len(b.Dropped)).
		Msg("dataset loaded")

	return res, nil
}
