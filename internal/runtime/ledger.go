package runtime

import (
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Ledger is an in-memory account bank keyed by address.
type Ledger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*Account
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[solana.PublicKey]*Account),
	}
}

// Get returns a copy of the account at key, or false if it does not exist.
func (l *Ledger) Get(key solana.PublicKey) (*Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[key]
	if !ok {
		return nil, false
	}
	return acct.clone(), true
}

// Put stores a copy of acct at key, replacing any existing account.
func (l *Ledger) Put(key solana.PublicKey, acct *Account) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts[key] = acct.clone()
}

// Keys returns all addresses sorted by their base58 form.
func (l *Ledger) Keys() []solana.PublicKey {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]solana.PublicKey, 0, len(l.accounts))
	for k := range l.accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.accounts)
}

// load returns a copy of the account or an empty system-owned account.
// Callers hold l.mu.
func (l *Ledger) load(key solana.PublicKey) *Account {
	if acct, ok := l.accounts[key]; ok {
		return acct.clone()
	}
	return &Account{Owner: solana.SystemProgramID}
}

// store writes back an account; zero-lamport empty accounts are dropped.
// Callers hold l.mu.
func (l *Ledger) store(info *AccountInfo) {
	if info.Lamports == 0 && len(info.Data) == 0 && info.IsSystemOwned() {
		delete(l.accounts, info.Key)
		return
	}
	l.accounts[info.Key] = &Account{
		Owner:      info.Owner,
		Lamports:   info.Lamports,
		Data:       info.Data,
		Executable: info.Executable,
	}
}
