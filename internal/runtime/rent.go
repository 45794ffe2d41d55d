package runtime

// AccountStorageOverhead is the per-account size added when computing rent.
const AccountStorageOverhead = 128

// Rent holds the rent parameters of the cluster.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64 // years
}

// DefaultRent matches the mainnet rent sysvar.
var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionThreshold:  2,
}

// MinimumBalance returns the lamports needed for an account of size bytes to be rent exempt.
func (r Rent) MinimumBalance(size int) uint64 {
	return (AccountStorageOverhead + uint64(size)) * r.LamportsPerByteYear * r.ExemptionThreshold
}
