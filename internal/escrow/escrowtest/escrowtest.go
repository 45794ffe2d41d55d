// Package escrowtest builds ledgers holding a complete non-fungible token
// (mint, metadata, edition, holding account) for exercising escrow creation.
package escrowtest

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/escrow"
	"token-escrow/internal/runtime"
	"token-escrow/internal/state"
	"token-escrow/internal/token"
)

// ProgramID is the token metadata program used by fixtures.
var ProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// PayerLamports is the default payer balance.
const PayerLamports = 10_000_000_000

// Key returns a deterministic address for name.
func Key(name string) solana.PublicKey {
	return solana.PublicKeyFromBytes(hash(name))
}

func hash(name string) []byte {
	sum := sha256.Sum256([]byte("escrowtest/" + name))
	return sum[:]
}

type config struct {
	decimals      uint8
	supply        uint64
	amount        uint64
	editionKey    state.Key
	editionOwner  *solana.PublicKey
	noEdition     bool
	metadataMint  *solana.PublicKey
	holdingMint   *solana.PublicKey
	payerLamports uint64
	payerIsOwner  bool
}

// Option adjusts the fixture.
type Option func(*config)

// WithDecimals sets the mint decimals.
func WithDecimals(d uint8) Option { return func(c *config) { c.decimals = d } }

// WithSupply sets the mint supply.
func WithSupply(s uint64) Option { return func(c *config) { c.supply = s } }

// WithAmount sets the holding account balance.
func WithAmount(a uint64) Option { return func(c *config) { c.amount = a } }

// WithEditionKey writes the edition account with the given record type.
// KeyEditionV1 produces a print edition.
func WithEditionKey(k state.Key) Option { return func(c *config) { c.editionKey = k } }

// WithEditionOwner assigns the edition account to owner.
func WithEditionOwner(owner solana.PublicKey) Option {
	return func(c *config) { c.editionOwner = &owner }
}

// WithoutEdition leaves the edition address empty.
func WithoutEdition() Option { return func(c *config) { c.noEdition = true } }

// WithMetadataMint records mint in the metadata instead of the real one.
func WithMetadataMint(mint solana.PublicKey) Option {
	return func(c *config) { c.metadataMint = &mint }
}

// WithHoldingMint records mint in the token account instead of the real one.
func WithHoldingMint(mint solana.PublicKey) Option {
	return func(c *config) { c.holdingMint = &mint }
}

// WithPayerLamports sets the payer balance.
func WithPayerLamports(l uint64) Option { return func(c *config) { c.payerLamports = l } }

// WithSeparatePayer funds a payer distinct from the token owner.
func WithSeparatePayer() Option { return func(c *config) { c.payerIsOwner = false } }

// World is a ledger seeded with one non-fungible token.
type World struct {
	ProgramID    solana.PublicKey
	Mint         solana.PublicKey
	Metadata     solana.PublicKey
	Edition      solana.PublicKey
	TokenAccount solana.PublicKey
	Owner        solana.PublicKey
	Payer        solana.PublicKey

	Ledger  *runtime.Ledger
	Runtime *runtime.Runtime
}

// New builds a World. By default the token owner pays.
func New(opts ...Option) *World {
	cfg := config{
		supply:        1,
		amount:        1,
		editionKey:    state.KeyMasterEditionV2,
		payerLamports: PayerLamports,
		payerIsOwner:  true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &World{
		ProgramID:    ProgramID,
		Mint:         Key("mint"),
		Metadata:     Key("metadata"),
		Edition:      Key("edition"),
		TokenAccount: Key("token-account"),
		Owner:        Key("owner"),
		Ledger:       runtime.NewLedger(),
	}
	w.Payer = w.Owner
	if !cfg.payerIsOwner {
		w.Payer = Key("payer")
	}
	w.Runtime = runtime.New(w.Ledger)

	authority := w.Owner
	mint := &token.Mint{
		MintAuthority: &authority,
		Supply:        cfg.supply,
		Decimals:      cfg.decimals,
		IsInitialized: true,
	}
	w.put(w.Mint, solana.TokenProgramID, mint.Pack())

	metadataMint := w.Mint
	if cfg.metadataMint != nil {
		metadataMint = *cfg.metadataMint
	}
	md, err := state.EncodeMetadata(&state.Metadata{
		Key:             state.KeyMetadataV1,
		UpdateAuthority: w.Owner,
		Mint:            metadataMint,
		Data: state.Data{
			Name:   "Escrow Fixture",
			Symbol: "ESC",
			URI:    "https://example.com/escrow.json",
		},
		IsMutable: true,
	})
	if err != nil {
		panic(err)
	}
	w.put(w.Metadata, w.ProgramID, md)

	if !cfg.noEdition {
		var ed []byte
		if cfg.editionKey == state.KeyEditionV1 {
			ed, err = state.EncodeEdition(&state.Edition{Key: state.KeyEditionV1, Parent: Key("parent"), Edition: 1})
		} else {
			zero := uint64(0)
			ed, err = state.EncodeMasterEdition(&state.MasterEdition{Key: cfg.editionKey, MaxSupply: &zero})
		}
		if err != nil {
			panic(err)
		}
		owner := w.ProgramID
		if cfg.editionOwner != nil {
			owner = *cfg.editionOwner
		}
		w.put(w.Edition, owner, ed)
	}

	holdingMint := w.Mint
	if cfg.holdingMint != nil {
		holdingMint = *cfg.holdingMint
	}
	holding := &token.Account{
		Mint:   holdingMint,
		Owner:  w.Owner,
		Amount: cfg.amount,
		State:  token.AccountStateInitialized,
	}
	w.put(w.TokenAccount, solana.TokenProgramID, holding.Pack())

	w.Ledger.Put(w.Payer, &runtime.Account{Owner: solana.SystemProgramID, Lamports: cfg.payerLamports})
	return w
}

func (w *World) put(key, owner solana.PublicKey, data []byte) {
	w.Ledger.Put(key, &runtime.Account{
		Owner:    owner,
		Lamports: w.Runtime.Rent().MinimumBalance(len(data)),
		Data:     data,
	})
}

// EscrowAddress derives the escrow address for authority.
func (w *World) EscrowAddress(authority state.EscrowAuthority) solana.PublicKey {
	addr, _, err := escrow.DeriveEscrowAddress(w.ProgramID, w.Mint, authority)
	if err != nil {
		panic(err)
	}
	return addr
}

// Instruction builds a create-escrow instruction targeting escrowAddr.
func (w *World) Instruction(escrowAddr solana.PublicKey, authority *solana.PublicKey) *solana.GenericInstruction {
	return escrow.NewCreateEscrowAccountInstruction(
		w.ProgramID, escrowAddr, w.Metadata, w.Mint, w.TokenAccount, w.Edition, w.Payer, authority,
	)
}

// Signers returns the signatures an instruction from Instruction needs.
func (w *World) Signers(authority *solana.PublicKey) []solana.PublicKey {
	signers := []solana.PublicKey{w.Payer}
	if authority != nil {
		signers = append(signers, *authority)
	}
	return signers
}

// Infos resolves the metas of ix against the ledger, the way the runtime
// does, for calling a processor directly.
func (w *World) Infos(ix solana.Instruction) []*runtime.AccountInfo {
	metas := ix.Accounts()
	infos := make([]*runtime.AccountInfo, len(metas))
	for i, meta := range metas {
		info := &runtime.AccountInfo{
			Key:        meta.PublicKey,
			Owner:      solana.SystemProgramID,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
		if acct, ok := w.Ledger.Get(meta.PublicKey); ok {
			info.Owner = acct.Owner
			info.Lamports = acct.Lamports
			info.Data = acct.Data
			info.Executable = acct.Executable
		}
		infos[i] = info
	}
	return infos
}
