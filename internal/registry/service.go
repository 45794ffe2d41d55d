// Package registry executes create-escrow instructions against a ledger and
// keeps an off-chain record of what was created and what was attempted.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/domain"
	"token-escrow/internal/escrow"
	"token-escrow/internal/idhash"
	"token-escrow/internal/observability"
	"token-escrow/internal/runtime"
	"token-escrow/internal/state"
	"token-escrow/internal/storage"
)

// Account positions read from the instruction for the audit row.
const (
	metaEscrow = 0
	metaMint   = 2
	metaPayer  = 5
)

// Service runs the escrow processor and records outcomes.
type Service struct {
	escrows  storage.EscrowStore
	attempts storage.AttemptStore
	metrics  *observability.Metrics
	logger   *log.Logger
	now      func() time.Time
	seq      atomic.Uint64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics sink. The default is observability.DefaultMetrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service over the given stores.
func NewService(escrows storage.EscrowStore, attempts storage.AttemptStore, opts ...Option) *Service {
	s := &Service{
		escrows:  escrows,
		attempts: attempts,
		metrics:  observability.DefaultMetrics,
		logger:   log.New(io.Discard, "", 0),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEscrow executes ix on rt with the escrow processor. On success the
// created escrow is stored and returned. Every call appends one attempt.
// Errors from the processor or the runtime are returned unchanged.
func (s *Service) CreateEscrow(ctx context.Context, rt *runtime.Runtime, ix solana.Instruction, signers []solana.PublicKey) (*domain.EscrowRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := s.now()
	attempt := s.newAttempt(ix, started)

	execErr := rt.Execute(ix, signers, escrow.NewProcessor(rt))
	elapsed := s.now().Sub(started).Seconds()

	if execErr != nil {
		attempt.Outcome = domain.OutcomeFailed
		attempt.ErrorMessage = execErr.Error()
		errName := "host"
		if code, ok := escrow.CodeOf(execErr); ok {
			c := code.Code()
			attempt.Outcome = domain.OutcomeRejected
			attempt.ErrorCode = &c
			errName = code.Name()
		}
		s.metrics.RecordInstruction(attempt.Outcome.String(), errName, elapsed)
		s.logger.Printf("escrow %s: %s: %v", attempt.Escrow, attempt.Outcome, execErr)

		if err := s.insertAttempt(ctx, attempt); err != nil {
			return nil, errors.Join(execErr, err)
		}
		return nil, execErr
	}

	// The escrow is on the ledger from here on; the attempt is recorded even
	// when the projection cannot be stored.
	attempt.Outcome = domain.OutcomeCreated
	s.metrics.RecordInstruction(attempt.Outcome.String(), "", elapsed)

	rec, err := s.recordFromLedger(rt, ix, started)
	if err != nil {
		return nil, errors.Join(err, s.insertAttempt(ctx, attempt))
	}
	s.metrics.RecordEscrowCreated(rec.AuthorityKind.String(), rec.Lamports, started.Unix())
	s.logger.Printf("escrow %s created for mint %s (%s, bump %d)", rec.Address, rec.Mint, rec.AuthorityKind, rec.Bump)

	attemptErr := s.insertAttempt(ctx, attempt)
	if err := errors.Join(s.insertEscrow(ctx, rec), attemptErr); err != nil {
		return nil, err
	}
	return rec, nil
}

// Escrow returns a stored escrow by address.
func (s *Service) Escrow(ctx context.Context, address string) (*domain.EscrowRecord, error) {
	return s.escrows.GetByAddress(ctx, address)
}

// EscrowsByMint returns the stored escrows of mint.
func (s *Service) EscrowsByMint(ctx context.Context, mint string) ([]*domain.EscrowRecord, error) {
	return s.escrows.GetByMint(ctx, mint)
}

// Attempts returns the attempts recorded for mint.
func (s *Service) Attempts(ctx context.Context, mint string) ([]*domain.CreationAttempt, error) {
	return s.attempts.GetByMint(ctx, mint)
}

// Outcomes returns the number of recorded attempts per outcome.
func (s *Service) Outcomes(ctx context.Context) (map[domain.Outcome]uint64, error) {
	start := time.Now()
	counts, err := s.attempts.CountByOutcome(ctx)
	s.metrics.RecordDBQuery("attempts", "count", time.Since(start).Seconds(), err)
	return counts, err
}

func (s *Service) newAttempt(ix solana.Instruction, at time.Time) *domain.CreationAttempt {
	a := &domain.CreationAttempt{AttemptedAt: at.UnixMilli()}

	metas := ix.Accounts()
	if len(metas) > metaPayer {
		a.Escrow = metas[metaEscrow].PublicKey.String()
		a.Mint = metas[metaMint].PublicKey.String()
		a.Payer = metas[metaPayer].PublicKey.String()
	}
	a.AttemptID = idhash.ComputeAttemptID(a.Escrow, a.Mint, a.Payer, a.AttemptedAt, s.seq.Add(1))
	return a
}

// recordFromLedger reads the committed escrow back from the ledger.
func (s *Service) recordFromLedger(rt *runtime.Runtime, ix solana.Instruction, at time.Time) (*domain.EscrowRecord, error) {
	metas := ix.Accounts()
	addr := metas[metaEscrow].PublicKey

	acct, ok := rt.Ledger().Get(addr)
	if !ok {
		return nil, fmt.Errorf("escrow %s missing after commit", addr)
	}
	onchain, err := state.DecodeTokenOwnedEscrow(acct.Data)
	if err != nil {
		return nil, fmt.Errorf("decode escrow %s: %w", addr, err)
	}

	rec := &domain.EscrowRecord{
		Address:       addr.String(),
		Mint:          onchain.BaseToken.String(),
		AuthorityKind: domain.AuthorityTokenOwner,
		Bump:          onchain.Bump,
		Payer:         metas[metaPayer].PublicKey.String(),
		Size:          len(acct.Data),
		Lamports:      acct.Lamports,
		CreatedAt:     at.UnixMilli(),
	}
	if key := state.AuthorityKey(onchain.Authority); key != nil {
		k := key.String()
		rec.AuthorityKind = domain.AuthorityCreator
		rec.AuthorityKey = &k
	}
	return rec, nil
}

func (s *Service) insertEscrow(ctx context.Context, rec *domain.EscrowRecord) error {
	start := time.Now()
	err := s.escrows.Insert(ctx, rec)
	s.metrics.RecordDBQuery("escrows", "insert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("store escrow %s: %w", rec.Address, err)
	}
	return nil
}

func (s *Service) insertAttempt(ctx context.Context, a *domain.CreationAttempt) error {
	start := time.Now()
	err := s.attempts.Insert(ctx, a)
	s.metrics.RecordDBQuery("attempts", "insert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("store attempt %s: %w", a.AttemptID, err)
	}
	return nil
}
