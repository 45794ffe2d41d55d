// Package token reads the account layouts of the SPL token program.
package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	spltoken "github.com/gagliardetto/solana-go/programs/token"
)

// Packed sizes of SPL token accounts.
const (
	MintLen    = 82
	AccountLen = 165
)

var (
	// ErrInvalidAccountData is returned when the buffer length or an option tag is wrong.
	ErrInvalidAccountData = errors.New("invalid token account data")

	// ErrUninitialized is returned for accounts that were allocated but never initialized.
	ErrUninitialized = errors.New("token account not initialized")
)

// AccountState is the state byte of a token account.
type AccountState = spltoken.AccountState

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

// Mint is an SPL token mint.
// Layout: mint_authority COption<Pubkey>(36) | supply u64 | decimals u8 |
// is_initialized bool | freeze_authority COption<Pubkey>(36)
type Mint spltoken.Mint

// Account is an SPL token account.
// Layout: mint(32) | owner(32) | amount u64 | delegate COption<Pubkey>(36) |
// state u8 | is_native COption<u64>(12) | delegated_amount u64 |
// close_authority COption<Pubkey>(36)
type Account spltoken.Account

// COption tag offsets.
var (
	mintOptionTags    = []int{0, 46}
	accountOptionTags = []int{72, 109, 129}
)

// UnpackMint parses an initialized mint.
func UnpackMint(data []byte) (*Mint, error) {
	if len(data) != MintLen {
		return nil, fmt.Errorf("%w: mint length %d", ErrInvalidAccountData, len(data))
	}
	if err := checkOptionTags(data, mintOptionTags); err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	switch data[45] {
	case 0:
		return nil, ErrUninitialized
	case 1:
	default:
		return nil, fmt.Errorf("%w: is_initialized %d", ErrInvalidAccountData, data[45])
	}

	var m spltoken.Mint
	if err := m.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	out := Mint(m)
	return &out, nil
}

// UnpackAccount parses an initialized token account.
func UnpackAccount(data []byte) (*Account, error) {
	if len(data) != AccountLen {
		return nil, fmt.Errorf("%w: account length %d", ErrInvalidAccountData, len(data))
	}
	if err := checkOptionTags(data, accountOptionTags); err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}
	switch AccountState(data[108]) {
	case AccountStateUninitialized:
		return nil, ErrUninitialized
	case AccountStateInitialized, AccountStateFrozen:
	default:
		return nil, fmt.Errorf("%w: state %d", ErrInvalidAccountData, data[108])
	}

	var a spltoken.Account
	if err := a.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	out := Account(a)
	return &out, nil
}

// Pack serializes the mint into its 82 byte layout.
func (m *Mint) Pack() []byte {
	data := make([]byte, MintLen)
	writeOptionKey(data[0:36], m.MintAuthority)
	binary.LittleEndian.PutUint64(data[36:44], m.Supply)
	data[44] = m.Decimals
	if m.IsInitialized {
		data[45] = 1
	}
	writeOptionKey(data[46:82], m.FreezeAuthority)
	return data
}

// Pack serializes the account into its 165 byte layout.
func (a *Account) Pack() []byte {
	data := make([]byte, AccountLen)
	copy(data[0:32], a.Mint[:])
	copy(data[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(data[64:72], a.Amount)
	writeOptionKey(data[72:108], a.Delegate)
	data[108] = byte(a.State)
	if a.IsNative != nil {
		binary.LittleEndian.PutUint32(data[109:113], 1)
		binary.LittleEndian.PutUint64(data[113:121], *a.IsNative)
	}
	binary.LittleEndian.PutUint64(data[121:129], a.DelegatedAmount)
	writeOptionKey(data[129:165], a.CloseAuthority)
	return data
}

// checkOptionTags rejects COption tags other than 0 (None) and 1 (Some).
func checkOptionTags(data []byte, offsets []int) error {
	for _, off := range offsets {
		if tag := binary.LittleEndian.Uint32(data[off : off+4]); tag > 1 {
			return fmt.Errorf("%w: option tag %d at offset %d", ErrInvalidAccountData, tag, off)
		}
	}
	return nil
}

func writeOptionKey(b []byte, key *solana.PublicKey) {
	if key == nil {
		return
	}
	binary.LittleEndian.PutUint32(b[0:4], 1)
	copy(b[4:36], key[:])
}
