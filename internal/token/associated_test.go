package token

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestAssociatedAddress_MatchesSolanaGo(t *testing.T) {
	wallet := solana.MustPublicKeyFromBase58("6AeAybc46Z7Lp5tQFDTZMQ2ZvHZNmT9tXwGPAjSUtvCe")
	mint := solana.MustPublicKeyFromBase58("81VHLTj2BqdgV17U1jkpxWXCPt2np3TrT5SNJptPkJHa")

	got, err := AssociatedAddress(wallet, mint)
	if err != nil {
		t.Fatalf("AssociatedAddress: %v", err)
	}

	want, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress: %v", err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
