package escrow

import (
	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/pda"
	"token-escrow/internal/runtime"
	"token-escrow/internal/state"
)

const (
	seedPrefix  = "metadata"
	seedPostfix = "escrow"
)

// FindEscrowSeeds returns the escrow derivation seeds without the bump:
// "metadata" | program id | mint | authority tag [| creator] | "escrow".
func FindEscrowSeeds(programID, mint solana.PublicKey, authority state.EscrowAuthority) [][]byte {
	seeds := [][]byte{
		[]byte(seedPrefix),
		programID.Bytes(),
		mint.Bytes(),
	}
	seeds = append(seeds, authority.Seeds()...)
	return append(seeds, []byte(seedPostfix))
}

// DeriveEscrowAddress returns the escrow address for (mint, authority) and the
// bump that makes it valid. The result depends on nothing else.
func DeriveEscrowAddress(programID, mint solana.PublicKey, authority state.EscrowAuthority) (solana.PublicKey, uint8, error) {
	return pda.FindProgramAddress(FindEscrowSeeds(programID, mint, authority), programID)
}

// assertDerivation returns the canonical bump for seeds if they derive
// account's address, and ErrDerivedKeyInvalid otherwise.
func assertDerivation(programID solana.PublicKey, account *runtime.AccountInfo, seeds [][]byte) (uint8, error) {
	addr, bump, err := pda.FindProgramAddress(seeds, programID)
	if err != nil {
		return 0, wrap(ErrDerivedKeyInvalid, err)
	}
	if addr != account.Key {
		return 0, ErrDerivedKeyInvalid
	}
	return bump, nil
}

const seedEdition = "edition"

// DeriveMetadataAddress returns the metadata account address of mint.
func DeriveMetadataAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := pda.FindProgramAddress([][]byte{
		[]byte(seedPrefix),
		programID.Bytes(),
		mint.Bytes(),
	}, programID)
	return addr, err
}

// DeriveEditionAddress returns the (master or print) edition account address of mint.
func DeriveEditionAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := pda.FindProgramAddress([][]byte{
		[]byte(seedPrefix),
		programID.Bytes(),
		mint.Bytes(),
		[]byte(seedEdition),
	}, programID)
	return addr, err
}

// withBump returns a new seed list ending in bump; seeds is not modified.
func withBump(seeds [][]byte, bump uint8) [][]byte {
	out := make([][]byte, 0, len(seeds)+1)
	out = append(out, seeds...)
	return append(out, []byte{bump})
}
