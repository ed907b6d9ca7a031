package rpc

import (
	"context"

	"github.com/rollupops/disputedash/events"
	"github.com/rollupops/disputedash/tree"
)

type L2Clienter interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	SafeBlock(ctx context.Context) (uint64, error)
}

type TreeBuilder interface {
	BuildTree(ctx context.Context, blockStart, blockEnd uint64) <-chan events.Event
	OutputPath() string
}

type TxBatcher interface {
	SendBatch(ctx context.Context, count int) <-chan events.Event
}

type CostEstimater interface {
	Run(ctx context.Context, blockStart, blockEnd uint64) <-chan events.Event
}

// EnvelopeLoader reads the persisted tree envelope. tree.LoadEnvelope in
// production, swappable in tests.
type EnvelopeLoader func(path string) (*tree.Envelope, error)
