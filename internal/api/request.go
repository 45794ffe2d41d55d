// Package api holds the JSON shapes shared by the escrow CLI and HTTP server
// and resolves a create-escrow request into its full account list.
package api

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/escrow"
	"token-escrow/internal/pda"
	"token-escrow/internal/state"
	"token-escrow/internal/token"
)

// ErrInvalidRequest is returned for missing or malformed request fields.
var ErrInvalidRequest = errors.New("invalid request")

// CreateEscrowRequest names the accounts of a create-escrow instruction.
// Only mint and payer are required. Owner defaults to payer, token_account
// to the owner's associated token account, and metadata and edition to their
// derived addresses.
type CreateEscrowRequest struct {
	Mint         string `json:"mint"`
	Payer        string `json:"payer"`
	Owner        string `json:"owner,omitempty"`
	TokenAccount string `json:"token_account,omitempty"`
	Authority    string `json:"authority,omitempty"`
	Metadata     string `json:"metadata,omitempty"`
	Edition      string `json:"edition,omitempty"`
}

// Resolved is a request with every address filled in.
type Resolved struct {
	ProgramID    solana.PublicKey
	Escrow       solana.PublicKey
	Bump         uint8
	Metadata     solana.PublicKey
	Mint         solana.PublicKey
	TokenAccount solana.PublicKey
	Edition      solana.PublicKey
	Payer        solana.PublicKey
	Owner        solana.PublicKey
	Authority    *solana.PublicKey

	// EscrowAuthority is the variant the processor will record, given that
	// Owner holds the token.
	EscrowAuthority state.EscrowAuthority
}

// Resolve fills defaults and derives the escrow address under programID.
func (r CreateEscrowRequest) Resolve(programID solana.PublicKey) (*Resolved, error) {
	if r.Mint == "" {
		return nil, fmt.Errorf("%w: mint is required", ErrInvalidRequest)
	}
	if r.Payer == "" {
		return nil, fmt.Errorf("%w: payer is required", ErrInvalidRequest)
	}

	var (
		res = &Resolved{ProgramID: programID}
		err error
	)
	if res.Mint, err = parseKey("mint", r.Mint); err != nil {
		return nil, err
	}
	if res.Payer, err = parseKey("payer", r.Payer); err != nil {
		return nil, err
	}

	res.Owner = res.Payer
	if r.Owner != "" {
		if res.Owner, err = parseKey("owner", r.Owner); err != nil {
			return nil, err
		}
	}

	if r.Authority != "" {
		auth, err := parseKey("authority", r.Authority)
		if err != nil {
			return nil, err
		}
		res.Authority = &auth
	}

	if r.TokenAccount != "" {
		if res.TokenAccount, err = parseKey("token_account", r.TokenAccount); err != nil {
			return nil, err
		}
	} else if res.TokenAccount, err = token.AssociatedAddress(res.Owner, res.Mint); err != nil {
		return nil, fmt.Errorf("derive token account: %w", err)
	}

	if r.Metadata != "" {
		if res.Metadata, err = parseKey("metadata", r.Metadata); err != nil {
			return nil, err
		}
	} else if res.Metadata, err = escrow.DeriveMetadataAddress(programID, res.Mint); err != nil {
		return nil, fmt.Errorf("derive metadata: %w", err)
	}

	if r.Edition != "" {
		if res.Edition, err = parseKey("edition", r.Edition); err != nil {
			return nil, err
		}
	} else if res.Edition, err = escrow.DeriveEditionAddress(programID, res.Mint); err != nil {
		return nil, fmt.Errorf("derive edition: %w", err)
	}

	creator := res.Payer
	if res.Authority != nil {
		creator = *res.Authority
	}
	res.EscrowAuthority = state.TokenOwner{}
	if res.Owner != creator {
		res.EscrowAuthority = state.Creator{Key: creator}
	}

	if res.Escrow, res.Bump, err = escrow.DeriveEscrowAddress(programID, res.Mint, res.EscrowAuthority); err != nil {
		return nil, fmt.Errorf("derive escrow: %w", err)
	}
	return res, nil
}

// Instruction builds the create-escrow instruction.
func (r *Resolved) Instruction() *solana.GenericInstruction {
	return escrow.NewCreateEscrowAccountInstruction(
		r.ProgramID, r.Escrow, r.Metadata, r.Mint, r.TokenAccount, r.Edition, r.Payer, r.Authority,
	)
}

// Signers returns the keys that must sign the instruction.
func (r *Resolved) Signers() []solana.PublicKey {
	signers := []solana.PublicKey{r.Payer}
	if r.Authority != nil && *r.Authority != r.Payer {
		signers = append(signers, *r.Authority)
	}
	return signers
}

// ParseAuthority reads an optional creator address into an escrow authority.
// An empty string is the token owner.
func ParseAuthority(s string) (state.EscrowAuthority, error) {
	if s == "" {
		return state.TokenOwner{}, nil
	}
	key, err := parseKey("authority", s)
	if err != nil {
		return nil, err
	}
	return state.Creator{Key: key}, nil
}

func parseKey(field, s string) (solana.PublicKey, error) {
	key, err := pda.Parse(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, field, err)
	}
	return key, nil
}
