// Package stub provides in-memory RPC and WebSocket clients for tests.
package stub

import (
	"context"
	"errors"
	"sync"

	"token-escrow/internal/runtime"
	"token-escrow/internal/solana"
)

// ErrUnavailable is returned by every call once Fail is set.
var ErrUnavailable = errors.New("rpc unavailable")

// RPCClient implements solana.RPCClient over a map of accounts.
type RPCClient struct {
	mu       sync.Mutex
	accounts map[string]*solana.AccountInfo

	// CurrentSlot is returned by GetSlot.
	CurrentSlot int64
	// Rent computes GetMinimumBalanceForRentExemption.
	Rent runtime.Rent
	// Fail makes every call return ErrUnavailable.
	Fail bool
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		accounts: make(map[string]*solana.AccountInfo),
		Rent:     runtime.DefaultRent,
	}
}

// SetAccount stores an account at address, replacing any existing one.
func (c *RPCClient) SetAccount(address string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[address] = info
}

// SetFromLedger copies every account of ledger into the stub.
func (c *RPCClient) SetFromLedger(ledger *runtime.Ledger) {
	for _, key := range ledger.Keys() {
		acct, _ := ledger.Get(key)
		c.SetAccount(key.String(), &solana.AccountInfo{
			Lamports:   acct.Lamports,
			Owner:      acct.Owner.String(),
			Data:       acct.Data,
			Executable: acct.Executable,
		})
	}
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, address string) (*solana.AccountInfo, error) {
	if c.Fail {
		return nil, ErrUnavailable
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accounts[address], nil
}

// GetMultipleAccounts returns the stored accounts in request order.
func (c *RPCClient) GetMultipleAccounts(ctx context.Context, addresses []string) ([]*solana.AccountInfo, error) {
	out := make([]*solana.AccountInfo, len(addresses))
	for i, a := range addresses {
		info, err := c.GetAccountInfo(ctx, a)
		if err != nil {
			return nil, err
		}
		out[i] = info
	}
	return out, nil
}

// GetMinimumBalanceForRentExemption applies Rent to size.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, size int) (uint64, error) {
	if c.Fail {
		return 0, ErrUnavailable
	}
	return c.Rent.MinimumBalance(size), nil
}

// GetSlot returns CurrentSlot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	if c.Fail {
		return 0, ErrUnavailable
	}
	return c.CurrentSlot, nil
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)
