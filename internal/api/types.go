package api

import (
	"encoding/base64"
	"errors"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/domain"
	"token-escrow/internal/escrow"
	"token-escrow/internal/state"
)

// AccountMeta is one account of an instruction.
type AccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// Instruction is the JSON form of an instruction. Data is base64.
type Instruction struct {
	ProgramID string        `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      string        `json:"data"`
}

// NewInstruction converts ix to its JSON form.
func NewInstruction(ix solana.Instruction) (*Instruction, error) {
	data, err := ix.Data()
	if err != nil {
		return nil, err
	}
	out := &Instruction{
		ProgramID: ix.ProgramID().String(),
		Data:      base64.StdEncoding.EncodeToString(data),
	}
	for _, m := range ix.Accounts() {
		out.Accounts = append(out.Accounts, AccountMeta{
			Pubkey:     m.PublicKey.String(),
			IsSigner:   m.IsSigner,
			IsWritable: m.IsWritable,
		})
	}
	return out, nil
}

// InstructionResponse is returned by the build endpoints.
type InstructionResponse struct {
	Escrow      string       `json:"escrow"`
	Bump        uint8        `json:"bump"`
	Authority   string       `json:"authority"`
	Signers     []string     `json:"signers"`
	Instruction *Instruction `json:"instruction"`
}

// NewInstructionResponse describes the instruction for a resolved request.
func NewInstructionResponse(r *Resolved) (*InstructionResponse, error) {
	ix, err := NewInstruction(r.Instruction())
	if err != nil {
		return nil, err
	}
	resp := &InstructionResponse{
		Escrow:      r.Escrow.String(),
		Bump:        r.Bump,
		Authority:   r.EscrowAuthority.String(),
		Instruction: ix,
	}
	for _, s := range r.Signers() {
		resp.Signers = append(resp.Signers, s.String())
	}
	return resp, nil
}

// DeriveResponse is the escrow address of a (mint, authority) pair.
type DeriveResponse struct {
	Address   string `json:"address"`
	Bump      uint8  `json:"bump"`
	Mint      string `json:"mint"`
	Authority string `json:"authority"`
}

// NewDeriveResponse derives the escrow address.
func NewDeriveResponse(programID, mint solana.PublicKey, authority state.EscrowAuthority) (*DeriveResponse, error) {
	addr, bump, err := escrow.DeriveEscrowAddress(programID, mint, authority)
	if err != nil {
		return nil, err
	}
	return &DeriveResponse{
		Address:   addr.String(),
		Bump:      bump,
		Mint:      mint.String(),
		Authority: authority.String(),
	}, nil
}

// Escrow is the JSON form of a stored escrow.
type Escrow struct {
	Address      string  `json:"address"`
	Mint         string  `json:"mint"`
	Authority    string  `json:"authority"`
	AuthorityKey *string `json:"authority_key,omitempty"`
	Bump         uint8   `json:"bump"`
	Payer        string  `json:"payer"`
	Size         int     `json:"size"`
	Lamports     uint64  `json:"lamports"`
	CreatedAt    int64   `json:"created_at"`
}

// NewEscrow converts a stored record.
func NewEscrow(r *domain.EscrowRecord) *Escrow {
	return &Escrow{
		Address:      r.Address,
		Mint:         r.Mint,
		Authority:    r.AuthorityKind.String(),
		AuthorityKey: r.AuthorityKey,
		Bump:         r.Bump,
		Payer:        r.Payer,
		Size:         r.Size,
		Lamports:     r.Lamports,
		CreatedAt:    r.CreatedAt,
	}
}

// Attempt is the JSON form of a recorded attempt.
type Attempt struct {
	AttemptID    string  `json:"attempt_id"`
	Escrow       string  `json:"escrow"`
	Mint         string  `json:"mint"`
	Payer        string  `json:"payer"`
	Outcome      string  `json:"outcome"`
	ErrorCode    *uint32 `json:"error_code,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	AttemptedAt  int64   `json:"attempted_at"`
}

// NewAttempt converts a recorded attempt.
func NewAttempt(a *domain.CreationAttempt) *Attempt {
	return &Attempt{
		AttemptID:    a.AttemptID,
		Escrow:       a.Escrow,
		Mint:         a.Mint,
		Payer:        a.Payer,
		Outcome:      a.Outcome.String(),
		ErrorCode:    a.ErrorCode,
		ErrorMessage: a.ErrorMessage,
		AttemptedAt:  a.AttemptedAt,
	}
}

// ErrorResponse carries an error. Program errors include their code and name.
type ErrorResponse struct {
	Error string  `json:"error"`
	Code  *uint32 `json:"code,omitempty"`
	Name  string  `json:"name,omitempty"`
}

// NewErrorResponse converts err.
func NewErrorResponse(err error) *ErrorResponse {
	resp := &ErrorResponse{Error: err.Error()}
	if code, ok := escrow.CodeOf(err); ok {
		c := code.Code()
		resp.Code = &c
		resp.Name = code.Name()
	}
	return resp
}

// IsInvalidRequest reports whether err came from request validation.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
