package tree

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
)

const envelopeFilePerms = os.FileMode(0644)

// BlockInfo associates a block number with its state root.
type BlockInfo struct {
	Number    uint64      `json:"number"`
	StateRoot common.Hash `json:"stateRoot"`
}

// Envelope is the persisted unit bundling a BFS commitment array with its
// block range and depth metadata. There is exactly one "current" envelope per
// output path: each build fully overwrites the previous one, and readers
// never mutate it.
type Envelope struct {
	BlockStart     uint64        `json:"blockStart"`
	BlockEnd       uint64        `json:"blockEnd"`
	Depth          int           `json:"depth"`
	NumBlocks      int           `json:"numBlocks"`
	NumLeaves      int           `json:"numLeaves"`
	PaddingLeaves  int           `json:"paddingLeaves"`
	RootCommitment common.Hash   `json:"rootCommitment"`
	Blocks         []BlockInfo   `json:"blocks"`
	CommitmentsBFS []common.Hash `json:"commitmentsBFS"`
}

// SaveEnvelope writes the envelope to path as JSON, creating parent
// directories as needed and overwriting any previous envelope.
func SaveEnvelope(path string, e *Envelope) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating envelope dir %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling envelope: %w", err)
	}
	if err := os.WriteFile(path, data, envelopeFilePerms); err != nil {
		return fmt.Errorf("error writing envelope to %s: %w", path, err)
	}
	return nil
}

// LoadEnvelope reads the envelope persisted at path. A missing or unparsable
// file yields ErrNotFound: having no tree is a normal steady state (before
// the first build), not a failure. Envelopes with missing blocks or
// commitmentsBFS fields are tolerated, the fields load as empty.
func LoadEnvelope(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrNotFound
	}
	e := &Envelope{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, ErrNotFound
	}
	return e, nil
}
