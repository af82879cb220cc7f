package memory

import (
	"context"
	"sync"

	"review_pulse/internal/domain"
)

// Store keeps the session's single dataset. Replace swaps it atomically.
type Store struct {
	mu sync.RWMutex
	ds *domain.Dataset
}

func New() *Store { return &Store{} }

func (s *Store) Replace(ctx context.Context, d domain.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// own the slice so callers cannot mutate the stored collection
	reviews := make([]domain.Review, len(d.Reviews))
	copy(reviews, d.Reviews)
	d.Reviews = reviews

	s.mu.Lock()
	s.ds = &d
	s.mu.Unlock()
	return nil
}

func (s *Store) Current(ctx context.Context) (domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return domain.Dataset{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return domain.Dataset{}, domain.ErrNoDataset
	}
	return *s.ds, nil
}
