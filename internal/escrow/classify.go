package escrow

import (
	"errors"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/runtime"
	"token-escrow/internal/state"
	"token-escrow/internal/token"
)

// ClassifyTokenStandard decides the token standard of mint. An edition record
// only counts when it is owned by programID and the mint has zero decimals and
// a supply of exactly one. edition may be nil.
func ClassifyTokenStandard(programID solana.PublicKey, mint, edition *runtime.AccountInfo) (state.TokenStandard, error) {
	m, err := token.UnpackMint(mint.Data)
	if err != nil {
		if errors.Is(err, token.ErrUninitialized) {
			return 0, wrap(ErrUninitialized, err)
		}
		return 0, wrap(ErrInvalidAccountData, err)
	}

	unique := m.Decimals == 0 && m.Supply == 1
	if edition != nil && edition.Owner == programID && unique {
		if _, err := state.DecodeMasterEdition(edition.Data); err == nil {
			return state.TokenStandardNonFungible, nil
		}
		if _, err := state.DecodeEdition(edition.Data); err == nil {
			return state.TokenStandardNonFungibleEdition, nil
		}
	}

	if m.Decimals == 0 {
		return state.TokenStandardFungibleAsset, nil
	}
	return state.TokenStandardFungible, nil
}
