// Package runtime is an in-process host for on-chain programs: an account
// ledger, instruction execution with all-or-nothing commit, and the system
// program's account creation.
package runtime

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
)

// AccountInfo is the view of an account handed to a program during execution.
type AccountInfo struct {
	Key        solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Data       []byte
	IsSigner   bool
	IsWritable bool
	Executable bool
}

// Account is an account as stored in the ledger.
type Account struct {
	Owner      solana.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

// IsSystemOwned reports whether the account is owned by the system program.
func (i *AccountInfo) IsSystemOwned() bool {
	return i.Owner == solana.SystemProgramID
}

func (a *Account) clone() *Account {
	c := *a
	c.Data = bytes.Clone(a.Data)
	return &c
}

func (a *Account) equal(i *AccountInfo) bool {
	return a.Owner == i.Owner &&
		a.Lamports == i.Lamports &&
		a.Executable == i.Executable &&
		bytes.Equal(a.Data, i.Data)
}
