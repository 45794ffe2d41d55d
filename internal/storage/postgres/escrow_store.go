package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-escrow/internal/domain"
	"token-escrow/internal/storage"
)

// EscrowStore implements storage.EscrowStore using PostgreSQL.
type EscrowStore struct {
	pool *Pool
}

// NewEscrowStore creates a new EscrowStore.
func NewEscrowStore(pool *Pool) *EscrowStore {
	return &EscrowStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EscrowStore = (*EscrowStore)(nil)

const escrowColumns = `address, mint, authority_kind, authority_key, bump, payer, size, lamports, created_at`

// Insert adds a created escrow. Returns ErrDuplicateKey if address exists.
func (s *EscrowStore) Insert(ctx context.Context, r *domain.EscrowRecord) error {
	if r == nil || r.Address == "" || !r.AuthorityKind.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO escrow_accounts (` + escrowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		r.Address,
		r.Mint,
		string(r.AuthorityKind),
		r.AuthorityKey,
		int16(r.Bump),
		r.Payer,
		r.Size,
		int64(r.Lamports),
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("insert escrow: %w", err)
	}
	return nil
}

// GetByAddress retrieves an escrow by its address. Returns ErrNotFound if not exists.
func (s *EscrowStore) GetByAddress(ctx context.Context, address string) (*domain.EscrowRecord, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrow_accounts WHERE address = $1`

	r, err := scanEscrow(s.pool.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get escrow by address: %w", err)
	}
	return r, nil
}

// GetByMint retrieves all escrows for a mint, ordered by created_at ASC.
func (s *EscrowStore) GetByMint(ctx context.Context, mint string) ([]*domain.EscrowRecord, error) {
	query := `
		SELECT ` + escrowColumns + `
		FROM escrow_accounts
		WHERE mint = $1
		ORDER BY created_at ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query escrows by mint: %w", err)
	}
	defer rows.Close()

	var result []*domain.EscrowRecord
	for rows.Next() {
		r, err := scanEscrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escrow: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escrows: %w", err)
	}
	return result, nil
}

// scanEscrow scans a single row into EscrowRecord.
func scanEscrow(row pgx.Row) (*domain.EscrowRecord, error) {
	var (
		r        domain.EscrowRecord
		kind     string
		bump     int16
		lamports int64
	)

	err := row.Scan(
		&r.Address,
		&r.Mint,
		&kind,
		&r.AuthorityKey,
		&bump,
		&r.Payer,
		&r.Size,
		&lamports,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.AuthorityKind = domain.AuthorityKind(kind)
	r.Bump = uint8(bump)
	r.Lamports = uint64(lamports)
	return &r, nil
}
