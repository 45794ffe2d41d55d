package state

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func TestEncodeTokenOwnedEscrow_TokenOwnerLayout(t *testing.T) {
	mint := testKey(7)
	e := &TokenOwnedEscrow{
		Key:       KeyTokenOwnedEscrow,
		BaseToken: mint,
		Authority: TokenOwner{},
		Bump:      254,
	}

	data, err := EncodeTokenOwnedEscrow(e)
	if err != nil {
		t.Fatalf("EncodeTokenOwnedEscrow: %v", err)
	}

	if len(data) != TokenOwnedEscrowOwnerLen || len(data) != e.Size() {
		t.Fatalf("encoded length = %d, want %d", len(data), TokenOwnedEscrowOwnerLen)
	}
	if data[0] != byte(KeyTokenOwnedEscrow) {
		t.Errorf("discriminant = %d, want %d", data[0], KeyTokenOwnedEscrow)
	}
	if !bytes.Equal(data[1:33], mint[:]) {
		t.Error("base token bytes mismatch")
	}
	if data[33] != byte(AuthorityTokenOwner) {
		t.Errorf("authority tag = %d, want 0", data[33])
	}
	if data[34] != 254 {
		t.Errorf("bump = %d, want 254", data[34])
	}
}

func TestEncodeTokenOwnedEscrow_CreatorLayout(t *testing.T) {
	mint := testKey(7)
	creator := testKey(9)
	e := &TokenOwnedEscrow{
		Key:       KeyTokenOwnedEscrow,
		BaseToken: mint,
		Authority: Creator{Key: creator},
		Bump:      200,
	}

	data, err := EncodeTokenOwnedEscrow(e)
	if err != nil {
		t.Fatalf("EncodeTokenOwnedEscrow: %v", err)
	}

	if len(data) != TokenOwnedEscrowCreatorLen || len(data) != e.Size() {
		t.Fatalf("encoded length = %d, want %d", len(data), TokenOwnedEscrowCreatorLen)
	}
	if data[33] != byte(AuthorityCreator) {
		t.Errorf("authority tag = %d, want 1", data[33])
	}
	if !bytes.Equal(data[34:66], creator[:]) {
		t.Error("creator bytes mismatch")
	}
	if data[66] != 200 {
		t.Errorf("bump = %d, want 200", data[66])
	}

	decoded, err := DecodeTokenOwnedEscrow(data)
	if err != nil {
		t.Fatalf("DecodeTokenOwnedEscrow: %v", err)
	}
	c, ok := decoded.Authority.(Creator)
	if !ok {
		t.Fatalf("authority = %T, want Creator", decoded.Authority)
	}
	if c.Key != creator || decoded.BaseToken != mint || decoded.Bump != 200 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDecodeTokenOwnedEscrow_IgnoresPadding(t *testing.T) {
	data, err := EncodeTokenOwnedEscrow(&TokenOwnedEscrow{
		Key:       KeyTokenOwnedEscrow,
		BaseToken: testKey(1),
		Authority: TokenOwner{},
		Bump:      1,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	padded := append(data, make([]byte, 32)...)
	decoded, err := DecodeTokenOwnedEscrow(padded)
	if err != nil {
		t.Fatalf("decode padded: %v", err)
	}
	if _, ok := decoded.Authority.(TokenOwner); !ok {
		t.Errorf("authority = %T, want TokenOwner", decoded.Authority)
	}
}

func TestDecodeTokenOwnedEscrow_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrDataTooShort},
		{"wrong key", append([]byte{byte(KeyMetadataV1)}, make([]byte, 40)...), ErrDataTypeMismatch},
		{"truncated mint", []byte{byte(KeyTokenOwnedEscrow), 1, 2}, ErrDataTooShort},
		{"bad tag", append(append([]byte{byte(KeyTokenOwnedEscrow)}, make([]byte, 32)...), 5, 1), ErrInvalidTag},
		{"truncated creator", append(append([]byte{byte(KeyTokenOwnedEscrow)}, make([]byte, 32)...), 1, 9), ErrDataTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTokenOwnedEscrow(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEncodeTokenOwnedEscrow_NilAuthority(t *testing.T) {
	if _, err := EncodeTokenOwnedEscrow(&TokenOwnedEscrow{Key: KeyTokenOwnedEscrow}); err == nil {
		t.Error("expected error for missing authority")
	}
}

func TestEscrowAuthority_Seeds(t *testing.T) {
	owner := TokenOwner{}.Seeds()
	if len(owner) != 1 || !bytes.Equal(owner[0], []byte{0}) {
		t.Errorf("TokenOwner seeds = %v", owner)
	}

	key := testKey(3)
	creator := Creator{Key: key}.Seeds()
	if len(creator) != 2 || !bytes.Equal(creator[0], []byte{1}) || !bytes.Equal(creator[1], key[:]) {
		t.Errorf("Creator seeds = %v", creator)
	}

	if AuthorityKey(TokenOwner{}) != nil {
		t.Error("TokenOwner has no authority key")
	}
	if k := AuthorityKey(Creator{Key: key}); k == nil || *k != key {
		t.Errorf("AuthorityKey(Creator) = %v", k)
	}
}
