// Package tree builds per block-range commitment trees over L2 state roots.
//
// The tree is a complete binary Merkle tree kept as a flat breadth first
// array: index 0 is the root, the children of node i are at 2i+1 and 2i+2,
// and the n leaves occupy the last n slots [n-1, 2n-2]. Leaf sequences are
// padded to a power of two length before building, so every internal node
// always has exactly two children.
package tree

import (
	"errors"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrNotFound is returned when no envelope exists at the requested path.
	ErrNotFound = errors.New("not found")
)

// Config is the configuration of the commitment tree builder.
type Config struct {
	// OutputPath is the file where the current tree envelope is persisted.
	OutputPath string `mapstructure:"OutputPath"`
}

func hashChildren(left, right common.Hash) common.Hash {
	var hash common.Hash
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(left[:])
	hasher.Write(right[:])
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// BuildBFS builds a binary Merkle tree from the given leaves and returns it
// as a breadth first array of 2n-1 nodes. Identical leaf sequences always
// yield identical arrays. A single leaf is its own root (no hashing), an
// empty input yields an empty array.
func BuildBFS(leaves []common.Hash) []common.Hash {
	n := len(leaves)
	if n == 0 {
		return []common.Hash{}
	}

	tree := make([]common.Hash, 2*n-1)
	leafStart := n - 1
	copy(tree[leafStart:], leaves)

	// internal nodes bottom-up, so both children are final before the parent
	for i := leafStart - 1; i >= 0; i-- {
		tree[i] = hashChildren(tree[2*i+1], tree[2*i+2])
	}
	return tree
}

// Pad extends stateRoots to a power of two length and returns the padded
// sequence, the tree depth and how many filler leaves were appended. Depth is
// at least 1, so a single state root is duplicated once.
//
// The filler is the LAST real state root, not a zero digest, so padded
// branches hash like real data instead of standing out as an all zero
// subtree. That also means padded leaves are indistinguishable from real ones
// by value: the returned padding count (persisted as PaddingLeaves) is the
// only reliable signal of how many trailing leaves are synthetic.
func Pad(stateRoots []common.Hash) (padded []common.Hash, depth int, padding int) {
	n := len(stateRoots)
	depth = 1
	if n > 1 {
		depth = bits.Len(uint(n - 1)) // ceil(log2(n))
	}
	targetSize := 1 << depth
	padding = targetSize - n

	padded = make([]common.Hash, 0, targetSize)
	padded = append(padded, stateRoots...)

	var filler common.Hash
	if n > 0 {
		filler = stateRoots[n-1]
	}
	for i := 0; i < padding; i++ {
		padded = append(padded, filler)
	}
	return padded, depth, padding
}
