// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeAttemptID computes a deterministic attempt_id using SHA256.
// Formula: SHA256(escrow|mint|payer|attempted_at|seq)
// seq disambiguates attempts landing in the same millisecond.
// Returns hex-encoded hash (64 characters).
func ComputeAttemptID(
	escrow string,
	mint string,
	payer string,
	attemptedAt int64,
	seq uint64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		escrow,
		mint,
		payer,
		attemptedAt,
		seq,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
