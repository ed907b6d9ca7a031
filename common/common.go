package common

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/keccak256"
)

const shortHashLen = 10

// Keccak returns the keccak256 hash of the concatenation of the given byte
// slices as a common.Hash.
func Keccak(data ...[]byte) common.Hash {
	return common.BytesToHash(keccak256.Hash(data...))
}

// ShortHash returns a truncated human readable representation of a hash,
// suitable for display purposes ("0x12345678..."). The full digest must be
// kept around separately, this is lossy.
func ShortHash(h common.Hash) string {
	return h.Hex()[:shortHashLen] + "..."
}
