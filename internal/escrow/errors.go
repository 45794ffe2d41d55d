package escrow

import (
	"errors"
	"fmt"
)

// Error is a numbered program error. Codes are stable and part of the public
// contract; clients match them with errors.Is or by Code.
type Error uint32

const (
	ErrInvalidInstruction         Error = 1
	ErrInvalidInstructionAccounts Error = 2
	ErrIllegalOwner               Error = 3
	ErrMissingSignature           Error = 4
	ErrMintMismatch               Error = 5
	ErrMustBeNonFungible          Error = 6
	ErrNotEnoughTokens            Error = 7
	ErrDerivedKeyInvalid          Error = 8
	ErrSerialization              Error = 9
	ErrUninitialized              Error = 10
	ErrInvalidAccountData         Error = 11
)

var errorInfo = map[Error]struct {
	name string
	desc string
}{
	ErrInvalidInstruction:         {"InvalidInstruction", "instruction data is not a known instruction"},
	ErrInvalidInstructionAccounts: {"InvalidInstructionAccounts", "instruction expects 7 or 8 accounts"},
	ErrIllegalOwner:               {"IllegalOwner", "account is not owned by the expected program"},
	ErrMissingSignature:           {"MissingSignature", "a required signature is missing"},
	ErrMintMismatch:               {"MintMismatch", "mint does not match across supplied accounts"},
	ErrMustBeNonFungible:          {"MustBeNonFungible", "escrow accounts require a non-fungible mint"},
	ErrNotEnoughTokens:            {"NotEnoughTokens", "token account holds no tokens"},
	ErrDerivedKeyInvalid:          {"DerivedKeyInvalid", "escrow address does not match its derivation"},
	ErrSerialization:              {"SerializationError", "failed to serialize escrow record"},
	ErrUninitialized:              {"Uninitialized", "account is not initialized"},
	ErrInvalidAccountData:         {"InvalidAccountData", "account data could not be decoded"},
}

// Code returns the numeric error code.
func (e Error) Code() uint32 {
	return uint32(e)
}

// Name returns the symbolic name, e.g. "MintMismatch".
func (e Error) Name() string {
	if info, ok := errorInfo[e]; ok {
		return info.name
	}
	return fmt.Sprintf("Error(%d)", uint32(e))
}

func (e Error) Error() string {
	if info, ok := errorInfo[e]; ok {
		return info.desc
	}
	return fmt.Sprintf("program error %d", uint32(e))
}

// CodeOf extracts the program error from err, if any.
func CodeOf(err error) (Error, bool) {
	var e Error
	if errors.As(err, &e) {
		return e, true
	}
	return 0, false
}

// wrap annotates a program error with its cause while keeping errors.Is working.
func wrap(code Error, cause error) error {
	return fmt.Errorf("%w: %v", code, cause)
}
