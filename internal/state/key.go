// Package state holds the persisted records of the token metadata program and
// their Borsh encoding.
package state

import (
	"errors"
	"fmt"
)

// Key is the leading discriminant byte of every program-owned record.
type Key uint8

const (
	KeyUninitialized             Key = 0
	KeyEditionV1                 Key = 1
	KeyMasterEditionV1           Key = 2
	KeyReservationListV1         Key = 3
	KeyMetadataV1                Key = 4
	KeyReservationListV2         Key = 5
	KeyMasterEditionV2           Key = 6
	KeyEditionMarker             Key = 7
	KeyUseAuthorityRecord        Key = 8
	KeyCollectionAuthorityRecord Key = 9
	KeyTokenOwnedEscrow          Key = 10
)

var keyNames = map[Key]string{
	KeyUninitialized:             "Uninitialized",
	KeyEditionV1:                 "EditionV1",
	KeyMasterEditionV1:           "MasterEditionV1",
	KeyReservationListV1:         "ReservationListV1",
	KeyMetadataV1:                "MetadataV1",
	KeyReservationListV2:         "ReservationListV2",
	KeyMasterEditionV2:           "MasterEditionV2",
	KeyEditionMarker:             "EditionMarker",
	KeyUseAuthorityRecord:        "UseAuthorityRecord",
	KeyCollectionAuthorityRecord: "CollectionAuthorityRecord",
	KeyTokenOwnedEscrow:          "TokenOwnedEscrow",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// TokenStandard classifies a mint.
type TokenStandard uint8

const (
	TokenStandardNonFungible        TokenStandard = 0
	TokenStandardFungibleAsset      TokenStandard = 1
	TokenStandardFungible           TokenStandard = 2
	TokenStandardNonFungibleEdition TokenStandard = 3
)

func (s TokenStandard) String() string {
	switch s {
	case TokenStandardNonFungible:
		return "NonFungible"
	case TokenStandardFungibleAsset:
		return "FungibleAsset"
	case TokenStandardFungible:
		return "Fungible"
	case TokenStandardNonFungibleEdition:
		return "NonFungibleEdition"
	default:
		return fmt.Sprintf("TokenStandard(%d)", uint8(s))
	}
}

// Decoding errors.
var (
	// ErrDataTypeMismatch is returned when the discriminant does not match the requested record.
	ErrDataTypeMismatch = errors.New("data type mismatch")

	// ErrDataTooShort is returned when the buffer ends before the record does.
	ErrDataTooShort = errors.New("account data too short")

	// ErrInvalidTag is returned for an unknown enum or option tag.
	ErrInvalidTag = errors.New("invalid enum tag")
)

// KeyOf returns the discriminant of an encoded record.
func KeyOf(data []byte) (Key, error) {
	if len(data) == 0 {
		return KeyUninitialized, ErrDataTooShort
	}
	return Key(data[0]), nil
}
