package state

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// AuthorityKind is the Borsh tag of an EscrowAuthority.
type AuthorityKind uint8

const (
	AuthorityTokenOwner AuthorityKind = 0
	AuthorityCreator    AuthorityKind = 1
)

func (k AuthorityKind) String() string {
	switch k {
	case AuthorityTokenOwner:
		return "TokenOwner"
	case AuthorityCreator:
		return "Creator"
	default:
		return fmt.Sprintf("AuthorityKind(%d)", uint8(k))
	}
}

// EscrowAuthority is who controls an escrow. It is either TokenOwner or Creator;
// no other implementations exist.
type EscrowAuthority interface {
	Kind() AuthorityKind
	// Seeds returns the derivation seeds contributed by the authority.
	Seeds() [][]byte
	String() string
	isEscrowAuthority()
}

// TokenOwner grants control to whoever currently holds the token.
type TokenOwner struct{}

func (TokenOwner) Kind() AuthorityKind { return AuthorityTokenOwner }
func (TokenOwner) Seeds() [][]byte     { return [][]byte{{byte(AuthorityTokenOwner)}} }
func (TokenOwner) isEscrowAuthority()  {}
func (TokenOwner) String() string      { return "TokenOwner" }

// Creator grants control to an explicit principal.
type Creator struct {
	Key solana.PublicKey
}

func (Creator) Kind() AuthorityKind { return AuthorityCreator }
func (c Creator) Seeds() [][]byte {
	key := c.Key
	return [][]byte{{byte(AuthorityCreator)}, key[:]}
}
func (Creator) isEscrowAuthority() {}
func (c Creator) String() string   { return "Creator(" + c.Key.String() + ")" }

// AuthorityKey returns the explicit principal of a Creator authority, or nil.
func AuthorityKey(a EscrowAuthority) *solana.PublicKey {
	if c, ok := a.(Creator); ok {
		key := c.Key
		return &key
	}
	return nil
}

// TokenOwnedEscrow is the escrow record bound to a single mint.
type TokenOwnedEscrow struct {
	Key       Key
	BaseToken solana.PublicKey
	Authority EscrowAuthority
	Bump      uint8
}

// Encoded sizes of a TokenOwnedEscrow for each authority kind.
const (
	TokenOwnedEscrowOwnerLen   = 1 + 32 + 1 + 1
	TokenOwnedEscrowCreatorLen = 1 + 32 + 1 + 32 + 1
)

// Size is the exact encoded length of the record.
func (e *TokenOwnedEscrow) Size() int {
	if e.Authority != nil && e.Authority.Kind() == AuthorityCreator {
		return TokenOwnedEscrowCreatorLen
	}
	return TokenOwnedEscrowOwnerLen
}

// MarshalWithEncoder writes the Borsh layout: key, base token, authority tag
// (+ creator key), bump.
func (e *TokenOwnedEscrow) MarshalWithEncoder(enc *bin.Encoder) error {
	if e.Authority == nil {
		return fmt.Errorf("escrow authority is not set")
	}
	if err := enc.WriteUint8(uint8(e.Key)); err != nil {
		return err
	}
	if err := enc.WriteBytes(e.BaseToken[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint8(uint8(e.Authority.Kind())); err != nil {
		return err
	}
	switch a := e.Authority.(type) {
	case TokenOwner:
	case Creator:
		if err := enc.WriteBytes(a.Key[:], false); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: authority %T", ErrInvalidTag, e.Authority)
	}
	return enc.WriteUint8(e.Bump)
}

// UnmarshalWithDecoder reads the Borsh layout written by MarshalWithEncoder.
func (e *TokenOwnedEscrow) UnmarshalWithDecoder(dec *bin.Decoder) error {
	key, err := dec.ReadUint8()
	if err != nil {
		return fmt.Errorf("%w: key: %v", ErrDataTooShort, err)
	}
	e.Key = Key(key)

	if e.BaseToken, err = readPublicKey(dec); err != nil {
		return fmt.Errorf("base token: %w", err)
	}

	tag, err := dec.ReadUint8()
	if err != nil {
		return fmt.Errorf("%w: authority: %v", ErrDataTooShort, err)
	}
	switch AuthorityKind(tag) {
	case AuthorityTokenOwner:
		e.Authority = TokenOwner{}
	case AuthorityCreator:
		creator, err := readPublicKey(dec)
		if err != nil {
			return fmt.Errorf("creator: %w", err)
		}
		e.Authority = Creator{Key: creator}
	default:
		return fmt.Errorf("%w: authority tag %d", ErrInvalidTag, tag)
	}

	if e.Bump, err = dec.ReadUint8(); err != nil {
		return fmt.Errorf("%w: bump: %v", ErrDataTooShort, err)
	}
	return nil
}

// EncodeTokenOwnedEscrow serializes the record.
func EncodeTokenOwnedEscrow(e *TokenOwnedEscrow) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := e.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTokenOwnedEscrow parses account data. Trailing bytes are ignored.
func DecodeTokenOwnedEscrow(data []byte) (*TokenOwnedEscrow, error) {
	key, err := KeyOf(data)
	if err != nil {
		return nil, err
	}
	if key != KeyTokenOwnedEscrow {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrDataTypeMismatch, KeyTokenOwnedEscrow, key)
	}

	var e TokenOwnedEscrow
	if err := e.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return &e, nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrDataTooShort, err)
	}
	return solana.PublicKeyFromBytes(raw), nil
}
