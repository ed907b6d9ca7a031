package tree

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/semaphore"

	"github.com/rollupops/disputedash/events"
	"github.com/rollupops/disputedash/log"
)

// maxEventBuffer caps the progress channel buffer. Streams over ranges larger
// than this rely on the consumer keeping up; slower consumers lose progress
// checkpoints but never stall the build.
const maxEventBuffer = 1024

// StateRootFetcher returns the state root of a single L2 block. Any error
// means the root is not available, the orchestrator does not distinguish
// failure causes.
type StateRootFetcher interface {
	StateRootByNumber(ctx context.Context, blockNum uint64) (common.Hash, error)
}

// BuildSummary is the Complete payload of a tree build.
type BuildSummary struct {
	Depth        int         `json:"depth"`
	TotalNodes   int         `json:"total_nodes"`
	Leaves       int         `json:"leaves"`
	ActualBlocks int         `json:"actual_blocks"`
	Padding      int         `json:"padding"`
	Root         common.Hash `json:"root"`
	Path         string      `json:"path"`
}

// Orchestrator drives tree builds: it collects one state root per block,
// pads, builds the BFS array, persists the envelope and reports progress as
// an event stream. Builds are serialized, the envelope path is a single
// shared slot and racing writers would be last-writer-wins otherwise.
type Orchestrator struct {
	logger     *log.Logger
	fetcher    StateRootFetcher
	outputPath string
	building   *semaphore.Weighted
}

// NewOrchestrator returns an Orchestrator persisting envelopes at
// cfg.OutputPath.
func NewOrchestrator(logger *log.Logger, fetcher StateRootFetcher, cfg Config) *Orchestrator {
	return &Orchestrator{
		logger:     logger,
		fetcher:    fetcher,
		outputPath: cfg.OutputPath,
		building:   semaphore.NewWeighted(1),
	}
}

// OutputPath returns the envelope location this orchestrator writes to.
func (o *Orchestrator) OutputPath() string {
	return o.outputPath
}

// BuildTree builds the commitment tree for blocks [blockStart, blockEnd] and
// returns the progress event stream. The build runs in its own goroutine and
// completes (and persists) whether or not the caller keeps reading; the
// channel is closed after the terminal event. On any missing state root the
// build aborts with an Error event and nothing is written, partial trees are
// never persisted. Only one build may run at a time: a concurrent call gets
// an immediate Error event.
func (o *Orchestrator) BuildTree(ctx context.Context, blockStart, blockEnd uint64) <-chan events.Event {
	buffer := maxEventBuffer
	if blockStart <= blockEnd {
		if n := int(blockEnd-blockStart) + 8; n > 0 && n < buffer {
			buffer = n
		}
	}
	ch := make(chan events.Event, buffer)

	if blockStart > blockEnd {
		ch <- events.NewError(fmt.Sprintf("invalid block range [%d, %d]", blockStart, blockEnd))
		close(ch)
		return ch
	}
	if !o.building.TryAcquire(1) {
		ch <- events.NewError("a tree build is already in progress")
		close(ch)
		return ch
	}

	go func() {
		defer close(ch)
		defer o.building.Release(1)
		o.run(ctx, blockStart, blockEnd, ch)
	}()
	return ch
}

func (o *Orchestrator) run(ctx context.Context, blockStart, blockEnd uint64, ch chan events.Event) {
	events.Emit(ch, events.NewProgress(events.ProgressData{
		Step:    "started",
		Message: fmt.Sprintf("Building tree for blocks %d -> %d", blockStart, blockEnd),
	}))

	numBlocks := int(blockEnd-blockStart) + 1
	stateRoots := make([]common.Hash, 0, numBlocks)
	blocks := make([]BlockInfo, 0, numBlocks)

	// strictly sequential: the per block fetch latency IS the progress
	// stream, and the target node may be rate limited
	for blockNum := blockStart; blockNum <= blockEnd; blockNum++ {
		i := len(stateRoots)
		events.Emit(ch, events.NewProgress(events.ProgressData{
			Step:    "collecting",
			Current: blockNum,
			Index:   i + 1,
			Total:   numBlocks,
			Message: fmt.Sprintf("Collecting state root %d/%d (block %d)", i+1, numBlocks, blockNum),
		}))

		root, err := o.fetcher.StateRootByNumber(ctx, blockNum)
		if err != nil {
			o.logger.Errorf("state root fetch failed for block %d: %v", blockNum, err)
			events.Emit(ch, events.NewError(
				fmt.Sprintf("Failed to get state root for block %d", blockNum)))
			return
		}
		stateRoots = append(stateRoots, root)
		blocks = append(blocks, BlockInfo{Number: blockNum, StateRoot: root})
	}

	events.Emit(ch, events.NewProgress(events.ProgressData{
		Step:    "building",
		Message: fmt.Sprintf("Collected %d state roots, building tree...", len(stateRoots)),
	}))

	padded, depth, padding := Pad(stateRoots)
	bfs := BuildBFS(padded)

	envelope := &Envelope{
		BlockStart:     blockStart,
		BlockEnd:       blockEnd,
		Depth:          depth,
		NumBlocks:      numBlocks,
		NumLeaves:      len(padded),
		PaddingLeaves:  padding,
		RootCommitment: bfs[0],
		Blocks:         blocks,
		CommitmentsBFS: bfs,
	}
	if err := SaveEnvelope(o.outputPath, envelope); err != nil {
		o.logger.Error("persisting envelope: ", err)
		events.Emit(ch, events.NewError(fmt.Sprintf("Failed to persist tree: %v", err)))
		return
	}

	o.logger.Infof("built tree for blocks [%d, %d]: depth %d, %d leaves (%d padding), root %s",
		blockStart, blockEnd, depth, len(padded), padding, bfs[0])

	events.Emit(ch, events.NewComplete(BuildSummary{
		Depth:        depth,
		TotalNodes:   len(bfs),
		Leaves:       len(padded),
		ActualBlocks: numBlocks,
		Padding:      padding,
		Root:         bfs[0],
		Path:         o.outputPath,
	}))
}
