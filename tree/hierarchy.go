package tree

import (
	"github.com/ethereum/go-ethereum/common"

	dashcommon "github.com/rollupops/disputedash/common"
)

// HierarchicalNode is the nested projection of a BFS array node, shaped for
// the frontend tree renderer. It is derived on every read and never
// persisted.
type HierarchicalNode struct {
	Name       string              `json:"name"`
	Hash       common.Hash         `json:"hash"`
	Depth      int                 `json:"depth"`
	BlockRange [2]uint64           `json:"blockRange"`
	IsLeaf     bool                `json:"isLeaf"`
	Children   []*HierarchicalNode `json:"children,omitempty"`
}

// HierarchyMetadata summarizes the envelope a hierarchy was projected from.
type HierarchyMetadata struct {
	BlockStart     uint64      `json:"blockStart"`
	BlockEnd       uint64      `json:"blockEnd"`
	Depth          int         `json:"depth"`
	TotalNodes     int         `json:"totalNodes"`
	RootCommitment common.Hash `json:"rootCommitment"`
}

// Hierarchy is the full hierarchical view of an envelope.
type Hierarchy struct {
	Metadata HierarchyMetadata `json:"metadata"`
	Tree     *HierarchicalNode `json:"tree"`
	Blocks   []BlockInfo       `json:"blocks"`
}

// Hierarchy converts the envelope into its nested representation. It is the
// only projection entry point on purpose: the BFS array and the
// (blockStart, blockEnd, depth) triple must come from the same envelope, or
// the block-range labels would be structurally valid but semantically wrong.
func (e *Envelope) Hierarchy() *Hierarchy {
	return &Hierarchy{
		Metadata: HierarchyMetadata{
			BlockStart:     e.BlockStart,
			BlockEnd:       e.BlockEnd,
			Depth:          e.Depth,
			TotalNodes:     len(e.CommitmentsBFS),
			RootCommitment: e.RootCommitment,
		},
		Tree:   project(e.CommitmentsBFS, 0, 0, e.BlockStart, e.BlockEnd, e.Depth),
		Blocks: e.Blocks,
	}
}

// project recursively descends the BFS array assigning each node the block
// sub-range it covers. A node is a leaf iff its level equals the tree depth.
// The range is halved at every internal node, mirroring how leaves were laid
// out at build time: left covers [rangeStart, mid], right [mid+1, rangeEnd].
//
// Out of bounds children are skipped and a node whose children are both
// missing carries no children field at all. A well formed envelope never
// produces that, but a truncated array must not make the projector fail.
func project(bfs []common.Hash, index, level int, rangeStart, rangeEnd uint64, depth int) *HierarchicalNode {
	if index >= len(bfs) {
		return nil
	}

	hash := bfs[index]
	isLeaf := level == depth

	node := &HierarchicalNode{
		Name:       dashcommon.ShortHash(hash),
		Hash:       hash,
		Depth:      level,
		BlockRange: [2]uint64{rangeStart, rangeEnd},
		IsLeaf:     isLeaf,
	}
	if isLeaf {
		return node
	}

	mid := (rangeStart + rangeEnd) / 2
	left := project(bfs, 2*index+1, level+1, rangeStart, mid, depth)
	right := project(bfs, 2*index+2, level+1, mid+1, rangeEnd, depth)
	if left != nil {
		node.Children = append(node.Children, left)
	}
	if right != nil {
		node.Children = append(node.Children, right)
	}
	return node
}
