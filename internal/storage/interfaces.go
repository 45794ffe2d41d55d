package storage

import (
	"context"

	"token-escrow/internal/domain"
)

// EscrowStore provides access to escrow_accounts storage.
type EscrowStore interface {
	// Insert adds a created escrow. Returns ErrDuplicateKey if address exists.
	Insert(ctx context.Context, r *domain.EscrowRecord) error

	// GetByAddress retrieves an escrow by its address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.EscrowRecord, error)

	// GetByMint retrieves all escrows for a mint, ordered by created_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.EscrowRecord, error)
}

// AttemptStore provides access to creation_attempts storage.
type AttemptStore interface {
	// Insert appends an attempt. Returns ErrDuplicateKey if attempt_id exists.
	Insert(ctx context.Context, a *domain.CreationAttempt) error

	// GetByMint retrieves all attempts for a mint, ordered by attempted_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.CreationAttempt, error)

	// CountByOutcome returns the number of attempts per outcome.
	CountByOutcome(ctx context.Context) (map[domain.Outcome]uint64, error)
}
