package state

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// MetadataCreator is an entry of the metadata creators list.
type MetadataCreator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

// Data is the descriptive part of a metadata record.
type Data struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []MetadataCreator // nil when absent
}

// Metadata is the token metadata record. Only the fields up to the token
// standard are decoded; later extensions are left untouched.
type Metadata struct {
	Key                 Key
	UpdateAuthority     solana.PublicKey
	Mint                solana.PublicKey
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
	EditionNonce        *uint8
	TokenStandard       *TokenStandard
}

// MarshalWithEncoder writes the Borsh layout of the record.
func (m *Metadata) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(uint8(m.Key)); err != nil {
		return err
	}
	if err := enc.WriteBytes(m.UpdateAuthority[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(m.Mint[:], false); err != nil {
		return err
	}
	if err := writeString(enc, m.Data.Name); err != nil {
		return err
	}
	if err := writeString(enc, m.Data.Symbol); err != nil {
		return err
	}
	if err := writeString(enc, m.Data.URI); err != nil {
		return err
	}
	if err := enc.WriteUint16(m.Data.SellerFeeBasisPoints, binary.LittleEndian); err != nil {
		return err
	}
	if err := writeOptionTag(enc, m.Data.Creators != nil); err != nil {
		return err
	}
	if m.Data.Creators != nil {
		if err := enc.WriteUint32(uint32(len(m.Data.Creators)), binary.LittleEndian); err != nil {
			return err
		}
		for _, c := range m.Data.Creators {
			if err := enc.WriteBytes(c.Address[:], false); err != nil {
				return err
			}
			if err := enc.WriteBool(c.Verified); err != nil {
				return err
			}
			if err := enc.WriteUint8(c.Share); err != nil {
				return err
			}
		}
	}
	if err := enc.WriteBool(m.PrimarySaleHappened); err != nil {
		return err
	}
	if err := enc.WriteBool(m.IsMutable); err != nil {
		return err
	}
	if err := writeOptionTag(enc, m.EditionNonce != nil); err != nil {
		return err
	}
	if m.EditionNonce != nil {
		if err := enc.WriteUint8(*m.EditionNonce); err != nil {
			return err
		}
	}
	if err := writeOptionTag(enc, m.TokenStandard != nil); err != nil {
		return err
	}
	if m.TokenStandard != nil {
		return enc.WriteUint8(uint8(*m.TokenStandard))
	}
	return nil
}

// UnmarshalWithDecoder reads the Borsh layout of the record. Legacy accounts
// end after the mutability flag; the missing options decode as absent.
func (m *Metadata) UnmarshalWithDecoder(dec *bin.Decoder) error {
	key, err := dec.ReadUint8()
	if err != nil {
		return fmt.Errorf("%w: key: %v", ErrDataTooShort, err)
	}
	m.Key = Key(key)

	if m.UpdateAuthority, err = readPublicKey(dec); err != nil {
		return fmt.Errorf("update authority: %w", err)
	}
	if m.Mint, err = readPublicKey(dec); err != nil {
		return fmt.Errorf("mint: %w", err)
	}

	if m.Data.Name, err = readString(dec); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	if m.Data.Symbol, err = readString(dec); err != nil {
		return fmt.Errorf("symbol: %w", err)
	}
	if m.Data.URI, err = readString(dec); err != nil {
		return fmt.Errorf("uri: %w", err)
	}
	if m.Data.SellerFeeBasisPoints, err = dec.ReadUint16(binary.LittleEndian); err != nil {
		return fmt.Errorf("%w: seller fee: %v", ErrDataTooShort, err)
	}

	hasCreators, err := readOptionTag(dec)
	if err != nil {
		return fmt.Errorf("creators: %w", err)
	}
	if hasCreators {
		n, err := dec.ReadUint32(binary.LittleEndian)
		if err != nil {
			return fmt.Errorf("%w: creators length: %v", ErrDataTooShort, err)
		}
		m.Data.Creators = make([]MetadataCreator, 0, n)
		for i := uint32(0); i < n; i++ {
			var c MetadataCreator
			if c.Address, err = readPublicKey(dec); err != nil {
				return fmt.Errorf("creator %d: %w", i, err)
			}
			flags, err := dec.ReadNBytes(2)
			if err != nil {
				return fmt.Errorf("%w: creator %d: %v", ErrDataTooShort, i, err)
			}
			c.Verified = flags[0] != 0
			c.Share = flags[1]
			m.Data.Creators = append(m.Data.Creators, c)
		}
	}

	flags, err := dec.ReadNBytes(2)
	if err != nil {
		return fmt.Errorf("%w: flags: %v", ErrDataTooShort, err)
	}
	m.PrimarySaleHappened = flags[0] != 0
	m.IsMutable = flags[1] != 0

	if dec.Remaining() == 0 {
		return nil
	}
	hasNonce, err := readOptionTag(dec)
	if err != nil {
		return fmt.Errorf("edition nonce: %w", err)
	}
	if hasNonce {
		nonce, err := dec.ReadUint8()
		if err != nil {
			return fmt.Errorf("%w: edition nonce: %v", ErrDataTooShort, err)
		}
		m.EditionNonce = &nonce
	}

	if dec.Remaining() == 0 {
		return nil
	}
	hasStandard, err := readOptionTag(dec)
	if err != nil {
		return fmt.Errorf("token standard: %w", err)
	}
	if hasStandard {
		raw, err := dec.ReadUint8()
		if err != nil {
			return fmt.Errorf("%w: token standard: %v", ErrDataTooShort, err)
		}
		if raw > uint8(TokenStandardNonFungibleEdition) {
			return fmt.Errorf("%w: token standard %d", ErrInvalidTag, raw)
		}
		standard := TokenStandard(raw)
		m.TokenStandard = &standard
	}
	return nil
}

// EncodeMetadata serializes a metadata record.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMetadata parses a MetadataV1 account.
func DecodeMetadata(data []byte) (*Metadata, error) {
	key, err := KeyOf(data)
	if err != nil {
		return nil, err
	}
	if key != KeyMetadataV1 {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrDataTypeMismatch, KeyMetadataV1, key)
	}

	var m Metadata
	if err := m.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return &m, nil
}

// readString reads a Borsh string (u32 length, then bytes) and strips the
// zero padding the program applies to fixed-width fields.
func readString(dec *bin.Decoder) (string, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDataTooShort, err)
	}
	if int(n) > dec.Remaining() {
		return "", fmt.Errorf("%w: string length %d", ErrDataTooShort, n)
	}
	b, err := dec.ReadNBytes(int(n))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDataTooShort, err)
	}
	return strings.TrimRight(string(b), "\x00"), nil
}

func writeString(enc *bin.Encoder, s string) error {
	if err := enc.WriteUint32(uint32(len(s)), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(s), false)
}

func readOptionTag(dec *bin.Decoder) (bool, error) {
	tag, err := dec.ReadUint8()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDataTooShort, err)
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: option tag %d", ErrInvalidTag, tag)
	}
}

func writeOptionTag(enc *bin.Encoder, some bool) error {
	if some {
		return enc.WriteUint8(1)
	}
	return enc.WriteUint8(0)
}
