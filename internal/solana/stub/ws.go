package stub

import (
	"context"
	"sync"

	"token-escrow/internal/solana"
)

// WSClient implements solana.WSClient; tests push notifications with Publish.
type WSClient struct {
	mu     sync.Mutex
	subs   map[string][]chan solana.AccountNotification
	closed bool
}

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{subs: make(map[string][]chan solana.AccountNotification)}
}

// SubscribeAccount registers a subscriber for address.
func (c *WSClient) SubscribeAccount(_ context.Context, address string) (<-chan solana.AccountNotification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, solana.ErrClientClosed
	}
	ch := make(chan solana.AccountNotification, 16)
	c.subs[address] = append(c.subs[address], ch)
	return ch, nil
}

// Subscribers returns the number of subscriptions on address.
func (c *WSClient) Subscribers(address string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs[address])
}

// Publish delivers n to every subscriber of address.
func (c *WSClient) Publish(address string, n solana.AccountNotification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs[address] {
		ch <- n
	}
}

// Close closes every subscription channel.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, chs := range c.subs {
		for _, ch := range chs {
			close(ch)
		}
	}
	return nil
}

// Compile-time interface check.
var _ solana.WSClient = (*WSClient)(nil)
