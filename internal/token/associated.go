package token

import (
	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/pda"
)

// AssociatedAddress returns the associated token account of wallet for mint.
func AssociatedAddress(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := pda.FindProgramAddress([][]byte{
		wallet.Bytes(),
		solana.TokenProgramID.Bytes(),
		mint.Bytes(),
	}, solana.SPLAssociatedTokenAccountProgramID)
	return addr, err
}
