// Package escrow creates token-owned escrow accounts: program-owned records,
// addressed by (mint, authority), through which a non-fungible token can hold
// authority over other accounts.
package escrow

import (
	"errors"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/runtime"
	"token-escrow/internal/state"
	"token-escrow/internal/token"
)

// Allocator creates program-owned accounts on behalf of the processor.
type Allocator interface {
	CreateAccount(req runtime.CreateAccountRequest) error
}

// Processor executes escrow instructions. It implements runtime.Handler.
type Processor struct {
	allocator Allocator
}

// NewProcessor creates a processor that allocates through allocator.
func NewProcessor(allocator Allocator) *Processor {
	return &Processor{allocator: allocator}
}

var _ runtime.Handler = (*Processor)(nil)

// Process dispatches on the instruction tag.
func (p *Processor) Process(programID solana.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidInstruction
	}

	switch data[0] {
	case InstructionCreateEscrowAccount:
		_, err := p.CreateEscrowAccount(programID, accounts)
		return err
	default:
		return ErrInvalidInstruction
	}
}

// CreateEscrowAccounts is the positional account list of a create-escrow
// instruction. Authority is nil when the optional eighth account is omitted.
type CreateEscrowAccounts struct {
	Escrow        *runtime.AccountInfo
	Metadata      *runtime.AccountInfo
	Mint          *runtime.AccountInfo
	TokenAccount  *runtime.AccountInfo
	Edition       *runtime.AccountInfo
	Payer         *runtime.AccountInfo
	SystemProgram *runtime.AccountInfo
	Authority     *runtime.AccountInfo
}

// ParseCreateEscrowAccounts maps the account list onto named positions.
// Only 7 and 8 accounts are accepted.
func ParseCreateEscrowAccounts(accounts []*runtime.AccountInfo) (*CreateEscrowAccounts, error) {
	if len(accounts) != createEscrowFixedAccounts && len(accounts) != createEscrowFixedAccounts+1 {
		return nil, ErrInvalidInstructionAccounts
	}

	a := &CreateEscrowAccounts{
		Escrow:        accounts[accountEscrow],
		Metadata:      accounts[accountMetadata],
		Mint:          accounts[accountMint],
		TokenAccount:  accounts[accountTokenAccount],
		Edition:       accounts[accountEdition],
		Payer:         accounts[accountPayer],
		SystemProgram: accounts[accountSystemProgram],
	}
	if len(accounts) == createEscrowFixedAccounts+1 {
		a.Authority = accounts[accountAuthority]
	}
	return a, nil
}

// CreateEscrowAccount validates the supplied accounts, resolves the escrow
// authority, checks the escrow address against its derivation, then allocates
// and writes the record. Allocation and write are the only mutations and
// happen last.
func (p *Processor) CreateEscrowAccount(programID solana.PublicKey, accounts []*runtime.AccountInfo) (*state.TokenOwnedEscrow, error) {
	a, err := ParseCreateEscrowAccounts(accounts)
	if err != nil {
		return nil, err
	}

	if a.Metadata.Owner != programID {
		return nil, ErrIllegalOwner
	}
	if a.Mint.Owner != solana.TokenProgramID || a.TokenAccount.Owner != solana.TokenProgramID {
		return nil, ErrIllegalOwner
	}
	if !a.Payer.IsSigner {
		return nil, ErrMissingSignature
	}

	metadata, err := state.DecodeMetadata(a.Metadata.Data)
	if err != nil {
		return nil, wrap(ErrInvalidAccountData, err)
	}
	if metadata.Mint != a.Mint.Key {
		return nil, ErrMintMismatch
	}

	standard, err := ClassifyTokenStandard(programID, a.Mint, a.Edition)
	if err != nil {
		return nil, err
	}
	if standard != state.TokenStandardNonFungible {
		return nil, ErrMustBeNonFungible
	}

	creator := a.Payer
	if a.Authority != nil {
		creator = a.Authority
	}

	holding, err := token.UnpackAccount(a.TokenAccount.Data)
	if err != nil {
		if errors.Is(err, token.ErrUninitialized) {
			return nil, wrap(ErrUninitialized, err)
		}
		return nil, wrap(ErrInvalidAccountData, err)
	}
	if holding.Mint != a.Mint.Key {
		return nil, ErrMintMismatch
	}
	if holding.Amount < 1 {
		return nil, ErrNotEnoughTokens
	}
	// Same property against the metadata record, which comes from a different owner.
	if holding.Mint != metadata.Mint {
		return nil, ErrMintMismatch
	}

	var authority state.EscrowAuthority = state.Creator{Key: creator.Key}
	if holding.Owner == creator.Key {
		authority = state.TokenOwner{}
	}

	seeds := FindEscrowSeeds(programID, a.Mint.Key, authority)
	bump, err := assertDerivation(programID, a.Escrow, seeds)
	if err != nil {
		return nil, err
	}
	signerSeeds := withBump(seeds, bump)

	record := &state.TokenOwnedEscrow{
		Key:       state.KeyTokenOwnedEscrow,
		BaseToken: a.Mint.Key,
		Authority: authority,
		Bump:      bump,
	}

	serialized, err := state.EncodeTokenOwnedEscrow(record)
	if err != nil {
		return nil, wrap(ErrSerialization, err)
	}

	err = p.allocator.CreateAccount(runtime.CreateAccountRequest{
		Owner:         programID,
		Target:        a.Escrow,
		SystemProgram: a.SystemProgram,
		Payer:         a.Payer,
		Space:         len(serialized),
		SignerSeeds:   signerSeeds,
	})
	if err != nil {
		return nil, err
	}

	copy(a.Escrow.Data, serialized)
	return record, nil
}
