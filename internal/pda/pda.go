// Package pda derives program addresses the same way the Solana runtime does.
package pda

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Derivation limits enforced by the runtime.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

var pdaMarker = []byte("ProgramDerivedAddress")

var (
	// ErrMaxSeedLengthExceeded is returned when there are too many seeds or a seed is too long.
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	// ErrInvalidSeeds is returned when the seeds hash to a point on the ed25519 curve.
	ErrInvalidSeeds = errors.New("provided seeds do not result in a valid address")

	// ErrNoViableBump is returned when no bump in [0, 255] yields an off-curve address.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

// CreateProgramAddress computes sha256(seeds || programID || "ProgramDerivedAddress")
// and rejects results that are valid ed25519 points.
func CreateProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return solana.PublicKey{}, ErrMaxSeedLengthExceeded
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return solana.PublicKey{}, ErrMaxSeedLengthExceeded
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write(pdaMarker)

	var addr solana.PublicKey
	copy(addr[:], h.Sum(nil))

	if IsOnCurve(addr[:]) {
		return solana.PublicKey{}, ErrInvalidSeeds
	}
	return addr, nil
}

// FindProgramAddress searches bumps from 255 down to 0 and returns the first
// off-curve address together with the bump that produced it.
func FindProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return solana.PublicKey{}, 0, ErrMaxSeedLengthExceeded
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}

		addr, err := CreateProgramAddress(withBump, programID)
		if errors.Is(err, ErrInvalidSeeds) {
			continue
		}
		if err != nil {
			return solana.PublicKey{}, 0, err
		}
		return addr, uint8(bump), nil
	}

	return solana.PublicKey{}, 0, ErrNoViableBump
}

// IsOnCurve reports whether point is a valid compressed ed25519 point.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// Encode renders an address in base58.
func Encode(addr solana.PublicKey) string {
	return base58.Encode(addr[:])
}

// Parse decodes a base58 address and checks its length.
func Parse(s string) (solana.PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("decode address %q: %w", s, err)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("address %q: invalid length %d", s, len(raw))
	}
	var addr solana.PublicKey
	copy(addr[:], raw)
	return addr, nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) solana.PublicKey {
	addr, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return addr
}
