package runtime

import "errors"

// Host errors surfaced to callers unchanged.
var (
	// ErrAccountAlreadyInUse is returned when allocating an address that already holds data or an owner.
	ErrAccountAlreadyInUse = errors.New("account already in use")

	// ErrInsufficientFunds is returned when the payer cannot cover the transfer.
	ErrInsufficientFunds = errors.New("insufficient funds for instruction")

	// ErrInvalidSignerSeeds is returned when signer seeds do not derive the target address.
	ErrInvalidSignerSeeds = errors.New("signer seeds do not derive target address")

	// ErrMissingRequiredSignature is returned when an account that must sign did not.
	ErrMissingRequiredSignature = errors.New("missing required signature for instruction")

	// ErrIncorrectProgramID is returned when the system program account is not the system program.
	ErrIncorrectProgramID = errors.New("incorrect program id for instruction")

	// ErrAccountNotWritable is returned when an instruction modifies an account not marked writable.
	ErrAccountNotWritable = errors.New("instruction modified an account not marked writable")

	// ErrUnbalancedInstruction is returned when lamports were created or destroyed.
	ErrUnbalancedInstruction = errors.New("sum of account balances before and after instruction do not match")

	// ErrInvalidAccountDataLength is returned for allocations over the permitted size.
	ErrInvalidAccountDataLength = errors.New("invalid account data length")

	// ErrInvalidInstructionData is returned when instruction data cannot be read.
	ErrInvalidInstructionData = errors.New("invalid instruction data")
)
