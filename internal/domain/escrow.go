package domain

// AuthorityKind names the escrow authority variant.
type AuthorityKind string

const (
	AuthorityTokenOwner AuthorityKind = "TOKEN_OWNER"
	AuthorityCreator    AuthorityKind = "CREATOR"
)

// String returns the string representation of AuthorityKind.
func (k AuthorityKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k AuthorityKind) IsValid() bool {
	return k == AuthorityTokenOwner || k == AuthorityCreator
}

// EscrowRecord is the off-chain projection of a created token-owned escrow.
// Corresponds to escrow_accounts table in PostgreSQL.
type EscrowRecord struct {
	Address       string        // PRIMARY KEY, escrow account address
	Mint          string        // base token mint
	AuthorityKind AuthorityKind // TOKEN_OWNER | CREATOR
	AuthorityKey  *string       // creator address (nullable, CREATOR only)
	Bump          uint8         // derivation nonce stored in the record
	Payer         string        // account that funded creation
	Size          int           // account data length in bytes
	Lamports      uint64        // balance after creation
	CreatedAt     int64         // Unix timestamp in milliseconds
}
