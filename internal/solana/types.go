package solana

import (
	"encoding/base64"
	"fmt"
)

// AccountInfo represents Solana account information with decoded data.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
	RentEpoch  uint64
}

// accountValue is the wire form of an account with base64 data.
type accountValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [payload, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

func (v *accountValue) decode() (*AccountInfo, error) {
	info := &AccountInfo{
		Lamports:   v.Lamports,
		Owner:      v.Owner,
		Executable: v.Executable,
		RentEpoch:  v.RentEpoch,
	}

	if len(v.Data) == 0 {
		return info, nil
	}
	if len(v.Data) > 1 && v.Data[1] != "base64" {
		return nil, fmt.Errorf("unsupported account encoding %q", v.Data[1])
	}

	data, err := base64.StdEncoding.DecodeString(v.Data[0])
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	info.Data = data
	return info, nil
}

// rpcContext carries the slot a response was evaluated at.
type rpcContext struct {
	Slot int64 `json:"slot"`
}
