package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/pda"
	solanarpc "token-escrow/internal/solana"
	"token-escrow/internal/state"
)

// ErrSubscriptionClosed is returned when the notification stream ends first.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Found describes the escrow that was observed.
type Found struct {
	Address   string `json:"address"`
	Mint      string `json:"mint"`
	Authority string `json:"authority"`
	Bump      uint8  `json:"bump"`
	Lamports  uint64 `json:"lamports"`
	Slot      int64  `json:"slot,omitempty"`
}

// Watcher waits for an escrow account to be initialized.
type Watcher struct {
	programID solana.PublicKey
	rpc       solanarpc.RPCClient // optional initial check
	ws        solanarpc.WSClient
	logger    *log.Logger
}

// NewWatcher creates a watcher. rpc may be nil.
func NewWatcher(programID solana.PublicKey, rpc solanarpc.RPCClient, ws solanarpc.WSClient, logger *log.Logger) *Watcher {
	return &Watcher{programID: programID, rpc: rpc, ws: ws, logger: logger}
}

// Wait blocks until address holds a token-owned escrow owned by the program.
// The subscription is opened before the initial RPC check so a creation in
// between is not missed.
func (w *Watcher) Wait(ctx context.Context, address solana.PublicKey) (*Found, error) {
	ch, err := w.ws.SubscribeAccount(ctx, address.String())
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", address, err)
	}

	if w.rpc != nil {
		info, err := w.rpc.GetAccountInfo(ctx, address.String())
		if err != nil {
			w.logger.Printf("Initial check failed, waiting for notifications: %v", err)
		} else if found := w.inspect(address, info, 0); found != nil {
			return found, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case n, ok := <-ch:
			if !ok {
				return nil, ErrSubscriptionClosed
			}
			if found := w.inspect(address, n.Account, n.Slot); found != nil {
				return found, nil
			}
			w.logger.Printf("Slot %d: %s not an escrow yet", n.Slot, address)
		}
	}
}

// inspect returns the escrow held by info, or nil if there is none.
func (w *Watcher) inspect(address solana.PublicKey, info *solanarpc.AccountInfo, slot int64) *Found {
	if info == nil || len(info.Data) == 0 {
		return nil
	}
	owner, err := pda.Parse(info.Owner)
	if err != nil || owner != w.programID {
		return nil
	}
	rec, err := state.DecodeTokenOwnedEscrow(info.Data)
	if err != nil {
		w.logger.Printf("Slot %d: %s holds undecodable data: %v", slot, address, err)
		return nil
	}
	return &Found{
		Address:   address.String(),
		Mint:      rec.BaseToken.String(),
		Authority: rec.Authority.String(),
		Bump:      rec.Bump,
		Lamports:  info.Lamports,
		Slot:      slot,
	}
}
