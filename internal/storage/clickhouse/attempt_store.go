package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"token-escrow/internal/domain"
	"token-escrow/internal/storage"
)

// AttemptStore implements storage.AttemptStore using ClickHouse.
type AttemptStore struct {
	conn *Conn
}

// NewAttemptStore creates a new AttemptStore.
func NewAttemptStore(conn *Conn) *AttemptStore {
	return &AttemptStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AttemptStore = (*AttemptStore)(nil)

// Insert appends an attempt. Returns ErrDuplicateKey if attempt_id exists.
// MergeTree does not enforce uniqueness, so the key is checked first.
func (s *AttemptStore) Insert(ctx context.Context, a *domain.CreationAttempt) error {
	if a == nil || a.AttemptID == "" || !a.Outcome.IsValid() {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, a.AttemptID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO creation_attempts (
			attempt_id, escrow, mint, payer,
			outcome, error_code, error_message, attempted_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		a.AttemptID, a.Escrow, a.Mint, a.Payer,
		string(a.Outcome), a.ErrorCode, a.ErrorMessage, uint64(a.AttemptedAt),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint retrieves all attempts for a mint, ordered by attempted_at ASC.
func (s *AttemptStore) GetByMint(ctx context.Context, mint string) ([]*domain.CreationAttempt, error) {
	query := `
		SELECT
			attempt_id, escrow, mint, payer,
			outcome, error_code, error_message, attempted_at
		FROM creation_attempts
		WHERE mint = ?
		ORDER BY attempted_at ASC, attempt_id ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// CountByOutcome returns the number of attempts per outcome.
func (s *AttemptStore) CountByOutcome(ctx context.Context) (map[domain.Outcome]uint64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT outcome, count() FROM creation_attempts GROUP BY outcome
	`)
	if err != nil {
		return nil, fmt.Errorf("count by outcome: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Outcome]uint64)
	for rows.Next() {
		var (
			outcome string
			count   uint64
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.Outcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// exists checks if an attempt with the given ID exists.
func (s *AttemptStore) exists(ctx context.Context, attemptID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM creation_attempts WHERE attempt_id = ?
	`, attemptID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanAttempts(rows driver.Rows) ([]*domain.CreationAttempt, error) {
	var result []*domain.CreationAttempt
	for rows.Next() {
		var (
			a           domain.CreationAttempt
			outcome     string
			attemptedAt uint64
		)
		err := rows.Scan(
			&a.AttemptID, &a.Escrow, &a.Mint, &a.Payer,
			&outcome, &a.ErrorCode, &a.ErrorMessage, &attemptedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Outcome = domain.Outcome(outcome)
		a.AttemptedAt = int64(attemptedAt)
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return result, nil
}
