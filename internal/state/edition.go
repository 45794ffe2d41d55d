package state

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// MasterEdition is the edition record of an original (non-print) token.
type MasterEdition struct {
	Key       Key
	Supply    uint64
	MaxSupply *uint64
}

// Edition is the edition record of a print.
type Edition struct {
	Key     Key
	Parent  solana.PublicKey
	Edition uint64
}

// EncodeMasterEdition serializes a master edition record.
func EncodeMasterEdition(e *MasterEdition) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(uint8(e.Key)); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(e.Supply, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := writeOptionTag(enc, e.MaxSupply != nil); err != nil {
		return nil, err
	}
	if e.MaxSupply != nil {
		if err := enc.WriteUint64(*e.MaxSupply, binary.LittleEndian); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeMasterEdition parses a MasterEditionV1 or MasterEditionV2 account.
func DecodeMasterEdition(data []byte) (*MasterEdition, error) {
	key, err := KeyOf(data)
	if err != nil {
		return nil, err
	}
	if key != KeyMasterEditionV1 && key != KeyMasterEditionV2 {
		return nil, fmt.Errorf("%w: expected master edition, got %s", ErrDataTypeMismatch, key)
	}

	dec := bin.NewBorshDecoder(data[1:])
	e := &MasterEdition{Key: key}
	if e.Supply, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: supply: %v", ErrDataTooShort, err)
	}
	hasMax, err := readOptionTag(dec)
	if err != nil {
		return nil, fmt.Errorf("max supply: %w", err)
	}
	if hasMax {
		maxSupply, err := dec.ReadUint64(binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("%w: max supply: %v", ErrDataTooShort, err)
		}
		e.MaxSupply = &maxSupply
	}
	return e, nil
}

// EncodeEdition serializes a print edition record.
func EncodeEdition(e *Edition) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(uint8(e.Key)); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(e.Parent[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(e.Edition, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeEdition parses an EditionV1 account.
func DecodeEdition(data []byte) (*Edition, error) {
	key, err := KeyOf(data)
	if err != nil {
		return nil, err
	}
	if key != KeyEditionV1 {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrDataTypeMismatch, KeyEditionV1, key)
	}

	dec := bin.NewBorshDecoder(data[1:])
	e := &Edition{Key: key}
	if e.Parent, err = readPublicKey(dec); err != nil {
		return nil, fmt.Errorf("parent: %w", err)
	}
	if e.Edition, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: edition: %v", ErrDataTooShort, err)
	}
	return e, nil
}
