// Package snapshot builds ledgers from YAML fixture files or from accounts
// fetched over RPC, and writes ledgers back out as fixtures.
package snapshot

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"

	"token-escrow/internal/pda"
	"token-escrow/internal/runtime"
	solanarpc "token-escrow/internal/solana"
)

// Data encodings accepted in fixtures.
const (
	EncodingBase64 = "base64"
	EncodingBase58 = "base58"
	EncodingHex    = "hex"
)

// ErrInvalidFixture is returned for malformed fixture content.
var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is the YAML document form of a ledger.
type Fixture struct {
	Accounts []FixtureAccount `yaml:"accounts"`
}

// FixtureAccount is one account entry. Encoding defaults to base64.
type FixtureAccount struct {
	Address    string `yaml:"address"`
	Owner      string `yaml:"owner"`
	Lamports   uint64 `yaml:"lamports"`
	Data       string `yaml:"data,omitempty"`
	Encoding   string `yaml:"encoding,omitempty"`
	Executable bool   `yaml:"executable,omitempty"`
}

// LoadFile reads a fixture file into a new ledger.
func LoadFile(path string) (*runtime.Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	ledger, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ledger, nil
}

// Load decodes a fixture document into a new ledger.
func Load(r io.Reader) (*runtime.Ledger, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	ledger := runtime.NewLedger()
	for i, a := range fx.Accounts {
		key, acct, err := a.account()
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		if _, exists := ledger.Get(key); exists {
			return nil, fmt.Errorf("%w: duplicate address %s", ErrInvalidFixture, a.Address)
		}
		ledger.Put(key, acct)
	}
	return ledger, nil
}

func (a FixtureAccount) account() (solana.PublicKey, *runtime.Account, error) {
	key, err := pda.Parse(a.Address)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: address: %v", ErrInvalidFixture, err)
	}

	owner := solana.SystemProgramID
	if a.Owner != "" {
		if owner, err = pda.Parse(a.Owner); err != nil {
			return solana.PublicKey{}, nil, fmt.Errorf("%w: owner: %v", ErrInvalidFixture, err)
		}
	}

	data, err := decodeData(a.Data, a.Encoding)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: %s data: %v", ErrInvalidFixture, a.Address, err)
	}

	return key, &runtime.Account{
		Owner:      owner,
		Lamports:   a.Lamports,
		Data:       data,
		Executable: a.Executable,
	}, nil
}

func decodeData(s, encoding string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	switch encoding {
	case "", EncodingBase64:
		return base64.StdEncoding.DecodeString(s)
	case EncodingBase58:
		return base58.Decode(s)
	case EncodingHex:
		return hex.DecodeString(s)
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
}

// Write encodes the accounts of ledger as a fixture document, data in base64.
// Builtin program accounts are left out; the runtime registers them itself.
func Write(w io.Writer, ledger *runtime.Ledger) error {
	fx := Fixture{Accounts: make([]FixtureAccount, 0, ledger.Len())}
	for _, key := range ledger.Keys() {
		if runtime.IsBuiltin(key) {
			continue
		}
		acct, ok := ledger.Get(key)
		if !ok {
			continue
		}
		a := FixtureAccount{
			Address:    key.String(),
			Owner:      acct.Owner.String(),
			Lamports:   acct.Lamports,
			Executable: acct.Executable,
		}
		if len(acct.Data) > 0 {
			a.Data = base64.StdEncoding.EncodeToString(acct.Data)
			a.Encoding = EncodingBase64
		}
		fx.Accounts = append(fx.Accounts, a)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&fx); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return enc.Close()
}

// WriteFile writes ledger to path as a fixture.
func WriteFile(path string, ledger *runtime.Ledger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fixture: %w", err)
	}
	if err := Write(f, ledger); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FetchAccounts builds a ledger from the current state of addresses.
// Accounts that do not exist are left out; the runtime treats them as empty.
func FetchAccounts(ctx context.Context, rpc solanarpc.RPCClient, addresses []solana.PublicKey) (*runtime.Ledger, error) {
	keys := make([]string, len(addresses))
	for i, a := range addresses {
		keys[i] = a.String()
	}

	infos, err := rpc.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}
	if len(infos) != len(addresses) {
		return nil, fmt.Errorf("fetch accounts: got %d, requested %d", len(infos), len(addresses))
	}

	ledger := runtime.NewLedger()
	for i, info := range infos {
		if info == nil {
			continue
		}
		owner, err := pda.Parse(info.Owner)
		if err != nil {
			return nil, fmt.Errorf("account %s owner: %w", keys[i], err)
		}
		ledger.Put(addresses[i], &runtime.Account{
			Owner:      owner,
			Lamports:   info.Lamports,
			Data:       info.Data,
			Executable: info.Executable,
		})
	}
	return ledger, nil
}

// Hydrate fetches the addresses absent from ledger and stores the ones that
// exist. It returns the number of accounts added.
func Hydrate(ctx context.Context, rpc solanarpc.RPCClient, ledger *runtime.Ledger, addresses []solana.PublicKey) (int, error) {
	var missing []solana.PublicKey
	for _, a := range addresses {
		if _, ok := ledger.Get(a); !ok {
			missing = append(missing, a)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	fetched, err := FetchAccounts(ctx, rpc, missing)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, key := range fetched.Keys() {
		if _, ok := ledger.Get(key); ok {
			continue
		}
		acct, _ := fetched.Get(key)
		ledger.Put(key, acct)
		added++
	}
	return added, nil
}

// InstructionAccounts returns the distinct accounts referenced by ix that have
// to be loaded, skipping builtin programs.
func InstructionAccounts(ix solana.Instruction) []solana.PublicKey {
	seen := make(map[solana.PublicKey]bool)
	var out []solana.PublicKey
	for _, meta := range ix.Accounts() {
		if seen[meta.PublicKey] || runtime.IsBuiltin(meta.PublicKey) {
			continue
		}
		seen[meta.PublicKey] = true
		out = append(out, meta.PublicKey)
	}
	return out
}
