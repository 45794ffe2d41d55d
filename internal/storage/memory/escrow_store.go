// Package memory provides in-memory store implementations for tests and --use-memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"token-escrow/internal/domain"
	"token-escrow/internal/storage"
)

// EscrowStore is an in-memory implementation of storage.EscrowStore.
type EscrowStore struct {
	mu        sync.RWMutex
	byAddress map[string]*domain.EscrowRecord
}

// NewEscrowStore creates a new in-memory escrow store.
func NewEscrowStore() *EscrowStore {
	return &EscrowStore{
		byAddress: make(map[string]*domain.EscrowRecord),
	}
}

// Insert adds a created escrow. Returns ErrDuplicateKey if address exists.
func (s *EscrowStore) Insert(_ context.Context, r *domain.EscrowRecord) error {
	if r == nil || r.Address == "" || !r.AuthorityKind.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[r.Address]; exists {
		return storage.ErrDuplicateKey
	}

	s.byAddress[r.Address] = copyEscrow(r)
	return nil
}

// GetByAddress retrieves an escrow by its address. Returns ErrNotFound if not exists.
func (s *EscrowStore) GetByAddress(_ context.Context, address string) (*domain.EscrowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.byAddress[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyEscrow(r), nil
}

// GetByMint retrieves all escrows for a mint, ordered by created_at ASC.
func (s *EscrowStore) GetByMint(_ context.Context, mint string) ([]*domain.EscrowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EscrowRecord
	for _, r := range s.byAddress {
		if r.Mint == mint {
			result = append(result, copyEscrow(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].Address < result[j].Address
	})
	return result, nil
}

func copyEscrow(r *domain.EscrowRecord) *domain.EscrowRecord {
	c := *r
	if r.AuthorityKey != nil {
		key := *r.AuthorityKey
		c.AuthorityKey = &key
	}
	return &c
}

var _ storage.EscrowStore = (*EscrowStore)(nil)
