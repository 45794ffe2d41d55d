package memory

import (
	"context"
	"sort"
	"sync"

	"token-escrow/internal/domain"
	"token-escrow/internal/storage"
)

// AttemptStore is an in-memory implementation of storage.AttemptStore.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts []*domain.CreationAttempt
	ids      map[string]struct{}
}

// NewAttemptStore creates a new in-memory attempt store.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		ids: make(map[string]struct{}),
	}
}

// Insert appends an attempt. Returns ErrDuplicateKey if attempt_id exists.
func (s *AttemptStore) Insert(_ context.Context, a *domain.CreationAttempt) error {
	if a == nil || a.AttemptID == "" || !a.Outcome.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[a.AttemptID]; exists {
		return storage.ErrDuplicateKey
	}

	s.ids[a.AttemptID] = struct{}{}
	s.attempts = append(s.attempts, copyAttempt(a))
	return nil
}

// GetByMint retrieves all attempts for a mint, ordered by attempted_at ASC.
func (s *AttemptStore) GetByMint(_ context.Context, mint string) ([]*domain.CreationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CreationAttempt
	for _, a := range s.attempts {
		if a.Mint == mint {
			result = append(result, copyAttempt(a))
		}
	}

	// Stable keeps insertion order within a millisecond
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AttemptedAt < result[j].AttemptedAt
	})
	return result, nil
}

// CountByOutcome returns the number of attempts per outcome.
func (s *AttemptStore) CountByOutcome(_ context.Context) (map[domain.Outcome]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.Outcome]uint64)
	for _, a := range s.attempts {
		counts[a.Outcome]++
	}
	return counts, nil
}

func copyAttempt(a *domain.CreationAttempt) *domain.CreationAttempt {
	c := *a
	if a.ErrorCode != nil {
		code := *a.ErrorCode
		c.ErrorCode = &code
	}
	return &c
}

var _ storage.AttemptStore = (*AttemptStore)(nil)
