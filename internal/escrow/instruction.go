package escrow

import (
	"github.com/gagliardetto/solana-go"
)

// Instruction tags in the token metadata instruction enum.
const (
	InstructionCreateEscrowAccount uint8 = 38
)

// Positions in the create-escrow account list. The trailing authority is optional.
const (
	accountEscrow = iota
	accountMetadata
	accountMint
	accountTokenAccount
	accountEdition
	accountPayer
	accountSystemProgram
	accountAuthority

	createEscrowFixedAccounts = accountAuthority
)

// NewCreateEscrowAccountInstruction builds the create-escrow instruction.
// Account order is fixed:
//
//	0. escrow          writable
//	1. metadata        read-only
//	2. mint            read-only
//	3. token account   read-only
//	4. edition         read-only
//	5. payer           writable, signer
//	6. system program  read-only
//	7. authority       read-only, signer (only when authority != nil)
func NewCreateEscrowAccountInstruction(
	programID solana.PublicKey,
	escrow solana.PublicKey,
	metadata solana.PublicKey,
	mint solana.PublicKey,
	tokenAccount solana.PublicKey,
	edition solana.PublicKey,
	payer solana.PublicKey,
	authority *solana.PublicKey,
) *solana.GenericInstruction {
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(escrow, true, false),
		solana.NewAccountMeta(metadata, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(tokenAccount, false, false),
		solana.NewAccountMeta(edition, false, false),
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}

	if authority != nil {
		accounts = append(accounts, solana.NewAccountMeta(*authority, false, true))
	}

	return solana.NewInstruction(programID, accounts, []byte{InstructionCreateEscrowAccount})
}
