package escrow

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/runtime"
	"token-escrow/internal/state"
	"token-escrow/internal/token"
)

func mintInfo(decimals uint8, supply uint64) *runtime.AccountInfo {
	m := &token.Mint{Supply: supply, Decimals: decimals, IsInitialized: true}
	return &runtime.AccountInfo{Key: key(2), Owner: solana.TokenProgramID, Data: m.Pack()}
}

func editionInfo(t *testing.T, owner solana.PublicKey, k state.Key) *runtime.AccountInfo {
	t.Helper()
	var (
		data []byte
		err  error
	)
	if k == state.KeyEditionV1 {
		data, err = state.EncodeEdition(&state.Edition{Key: k, Parent: key(8), Edition: 3})
	} else {
		data, err = state.EncodeMasterEdition(&state.MasterEdition{Key: k, Supply: 0})
	}
	if err != nil {
		t.Fatal(err)
	}
	return &runtime.AccountInfo{Key: key(6), Owner: owner, Data: data}
}

func TestClassifyTokenStandard(t *testing.T) {
	program := key(1)

	tests := []struct {
		name     string
		mint     *runtime.AccountInfo
		edition  *runtime.AccountInfo
		expected state.TokenStandard
	}{
		{"master edition v2", mintInfo(0, 1), editionInfo(t, program, state.KeyMasterEditionV2), state.TokenStandardNonFungible},
		{"master edition v1", mintInfo(0, 1), editionInfo(t, program, state.KeyMasterEditionV1), state.TokenStandardNonFungible},
		{"print edition", mintInfo(0, 1), editionInfo(t, program, state.KeyEditionV1), state.TokenStandardNonFungibleEdition},
		{"no edition", mintInfo(0, 1), nil, state.TokenStandardFungibleAsset},
		{"empty edition", mintInfo(0, 1), &runtime.AccountInfo{Key: key(6), Owner: solana.SystemProgramID}, state.TokenStandardFungibleAsset},
		{"edition wrong owner", mintInfo(0, 1), editionInfo(t, key(9), state.KeyMasterEditionV2), state.TokenStandardFungibleAsset},
		{"supply above one", mintInfo(0, 5), editionInfo(t, program, state.KeyMasterEditionV2), state.TokenStandardFungibleAsset},
		{"decimals", mintInfo(6, 1), editionInfo(t, program, state.KeyMasterEditionV2), state.TokenStandardFungible},
		{"fungible no edition", mintInfo(9, 1000), nil, state.TokenStandardFungible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyTokenStandard(program, tt.mint, tt.edition)
			if err != nil {
				t.Fatalf("ClassifyTokenStandard: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestClassifyTokenStandard_BadMint(t *testing.T) {
	program := key(1)

	short := &runtime.AccountInfo{Key: key(2), Data: []byte{1, 2, 3}}
	if _, err := ClassifyTokenStandard(program, short, nil); !errors.Is(err, ErrInvalidAccountData) {
		t.Errorf("short mint: err = %v, want %v", err, ErrInvalidAccountData)
	}

	uninit := &runtime.AccountInfo{Key: key(2), Data: make([]byte, token.MintLen)}
	if _, err := ClassifyTokenStandard(program, uninit, nil); !errors.Is(err, ErrUninitialized) {
		t.Errorf("uninitialized mint: err = %v, want %v", err, ErrUninitialized)
	}
}
