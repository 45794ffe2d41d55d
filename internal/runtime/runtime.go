package runtime

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/pda"
)

// MaxPermittedDataLength is the largest allocation a single instruction may request.
const MaxPermittedDataLength = 10 * 1024 * 1024

// NativeLoaderID owns the builtin programs.
var NativeLoaderID = solana.MustPublicKeyFromBase58("NativeLoader1111111111111111111111111111111")

var builtinPrograms = []solana.PublicKey{solana.SystemProgramID, solana.TokenProgramID}

// IsBuiltin reports whether key is a program account every runtime registers.
func IsBuiltin(key solana.PublicKey) bool {
	for _, id := range builtinPrograms {
		if key == id {
			return true
		}
	}
	return false
}

// Handler is a program entrypoint.
type Handler interface {
	Process(programID solana.PublicKey, accounts []*AccountInfo, data []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(programID solana.PublicKey, accounts []*AccountInfo, data []byte) error

// Process calls f.
func (f HandlerFunc) Process(programID solana.PublicKey, accounts []*AccountInfo, data []byte) error {
	return f(programID, accounts, data)
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithRent overrides the rent parameters.
func WithRent(rent Rent) Option {
	return func(r *Runtime) {
		r.rent = rent
	}
}

// Runtime executes instructions against a ledger.
type Runtime struct {
	ledger *Ledger
	rent   Rent
}

// New creates a runtime over ledger and registers the builtin program accounts.
func New(ledger *Ledger, opts ...Option) *Runtime {
	r := &Runtime{
		ledger: ledger,
		rent:   DefaultRent,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, id := range builtinPrograms {
		if _, ok := ledger.Get(id); !ok {
			ledger.Put(id, &Account{Owner: NativeLoaderID, Lamports: 1, Executable: true})
		}
	}
	return r
}

// Ledger returns the underlying ledger.
func (r *Runtime) Ledger() *Ledger {
	return r.ledger
}

// Rent returns the rent parameters in effect.
func (r *Runtime) Rent() Rent {
	return r.rent
}

// Execute runs one instruction. Account metas are resolved against the ledger,
// addresses with no account become empty system-owned accounts, and every
// meta marked as signer must appear in signers. Changes are committed only
// if the handler succeeds, no read-only account was modified, and total
// lamports are unchanged. Executions are serialized on the ledger.
func (r *Runtime) Execute(ix solana.Instruction, signers []solana.PublicKey, handler Handler) error {
	data, err := ix.Data()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}

	signed := make(map[solana.PublicKey]bool, len(signers))
	for _, s := range signers {
		signed[s] = true
	}

	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	metas := ix.Accounts()
	infos := make([]*AccountInfo, len(metas))
	byKey := make(map[solana.PublicKey]*AccountInfo, len(metas))
	before := make(map[solana.PublicKey]*Account, len(metas))
	var order []solana.PublicKey

	for i, meta := range metas {
		if meta.IsSigner && !signed[meta.PublicKey] {
			return fmt.Errorf("%w: %s", ErrMissingRequiredSignature, meta.PublicKey)
		}

		// Repeated keys share one view, as in the real runtime.
		if info, ok := byKey[meta.PublicKey]; ok {
			info.IsSigner = info.IsSigner || meta.IsSigner
			info.IsWritable = info.IsWritable || meta.IsWritable
			infos[i] = info
			continue
		}

		acct := r.ledger.load(meta.PublicKey)
		info := &AccountInfo{
			Key:        meta.PublicKey,
			Owner:      acct.Owner,
			Lamports:   acct.Lamports,
			Data:       bytes.Clone(acct.Data),
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			Executable: acct.Executable,
		}
		before[meta.PublicKey] = acct
		byKey[meta.PublicKey] = info
		infos[i] = info
		order = append(order, meta.PublicKey)
	}

	if err := handler.Process(ix.ProgramID(), infos, data); err != nil {
		return err
	}

	var sumBefore, sumAfter uint64
	for _, key := range order {
		info, orig := byKey[key], before[key]
		sumBefore += orig.Lamports
		sumAfter += info.Lamports
		if !info.IsWritable && !orig.equal(info) {
			return fmt.Errorf("%w: %s", ErrAccountNotWritable, key)
		}
	}
	if sumBefore != sumAfter {
		return ErrUnbalancedInstruction
	}

	for _, key := range order {
		if info := byKey[key]; info.IsWritable {
			r.ledger.store(info)
		}
	}
	return nil
}

// CreateAccountRequest describes a program-signed account creation.
type CreateAccountRequest struct {
	// Owner is the program that signs with SignerSeeds and receives ownership.
	Owner         solana.PublicKey
	Target        *AccountInfo
	SystemProgram *AccountInfo
	Payer         *AccountInfo
	Space         int
	// SignerSeeds must include the bump and derive Target.Key under Owner.
	SignerSeeds [][]byte
}

// CreateAccount funds, allocates and assigns Target. A target that already
// holds lamports only receives the difference to the rent-exempt minimum.
// Nothing is modified unless every check passes.
func (r *Runtime) CreateAccount(req CreateAccountRequest) error {
	if req.SystemProgram == nil || req.SystemProgram.Key != solana.SystemProgramID {
		return ErrIncorrectProgramID
	}
	if req.Target == nil || req.Payer == nil {
		return fmt.Errorf("%w: missing target or payer", ErrInvalidInstructionData)
	}
	if req.Space < 0 || req.Space > MaxPermittedDataLength {
		return fmt.Errorf("%w: %d", ErrInvalidAccountDataLength, req.Space)
	}

	signer, err := pda.CreateProgramAddress(req.SignerSeeds, req.Owner)
	if err != nil || signer != req.Target.Key {
		return fmt.Errorf("%w: %s", ErrInvalidSignerSeeds, req.Target.Key)
	}

	required := r.rent.MinimumBalance(req.Space)
	if required == 0 {
		required = 1
	}
	if req.Target.Lamports >= required {
		required = 0
	} else {
		required -= req.Target.Lamports
	}

	if required > 0 {
		if !req.Payer.IsSigner {
			return fmt.Errorf("%w: payer %s", ErrMissingRequiredSignature, req.Payer.Key)
		}
		if !req.Payer.IsWritable {
			return fmt.Errorf("%w: payer %s", ErrAccountNotWritable, req.Payer.Key)
		}
		if req.Payer.Lamports < required {
			return fmt.Errorf("%w: need %d lamports, payer has %d", ErrInsufficientFunds, required, req.Payer.Lamports)
		}
	}

	if len(req.Target.Data) > 0 || !req.Target.IsSystemOwned() {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, req.Target.Key)
	}
	if !req.Target.IsWritable {
		return fmt.Errorf("%w: %s", ErrAccountNotWritable, req.Target.Key)
	}

	req.Payer.Lamports -= required
	req.Target.Lamports += required
	req.Target.Data = make([]byte, req.Space)
	req.Target.Owner = req.Owner
	return nil
}
