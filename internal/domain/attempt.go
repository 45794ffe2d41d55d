package domain

// Outcome is the result of a create-escrow attempt.
type Outcome string

const (
	OutcomeCreated  Outcome = "CREATED"
	OutcomeRejected Outcome = "REJECTED" // program error
	OutcomeFailed   Outcome = "FAILED"   // host error (allocation, signatures, balances)
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	return string(o)
}

// IsValid checks if the outcome is a valid value.
func (o Outcome) IsValid() bool {
	return o == OutcomeCreated || o == OutcomeRejected || o == OutcomeFailed
}

// CreationAttempt is one processed create-escrow instruction.
// Corresponds to creation_attempts table in ClickHouse.
type CreationAttempt struct {
	AttemptID    string  // deterministic hash, see idhash.ComputeAttemptID
	Escrow       string  // escrow address named by the instruction
	Mint         string  // mint named by the instruction
	Payer        string  // payer named by the instruction
	Outcome      Outcome // CREATED | REJECTED | FAILED
	ErrorCode    *uint32 // program error code (nullable, REJECTED only)
	ErrorMessage string  // empty on success
	AttemptedAt  int64   // Unix timestamp in milliseconds
}
