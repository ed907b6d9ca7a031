// Package etherman gives the dashboard access to the L2 devnet over plain
// JSON-RPC: state roots per block, chain head and safe block, chain id.
package etherman

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/rollupops/disputedash/config/types"
	"github.com/rollupops/disputedash/log"
)

// ErrNotFound is returned when the requested block does not exist on the
// target node.
var ErrNotFound = errors.New("not found")

// Config represents the configuration of the L2 client.
type Config struct {
	// URL is the JSON-RPC endpoint of the L2 node.
	URL string `mapstructure:"URL"`
	// Timeout is the per request timeout. Zero disables it.
	Timeout types.Duration `mapstructure:"Timeout"`
}

// Client talks to the L2 node. It embeds the go-ethereum client, so the full
// ethclient surface is available to callers that need it (the tx sender
// does).
type Client struct {
	*ethclient.Client
	logger  *log.Logger
	timeout time.Duration
}

// NewClient connects to the configured L2 node. The connection is lazy, a
// node that is down at startup only fails when first used.
func NewClient(logger *log.Logger, cfg Config) (*Client, error) {
	ethClient, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s: %w", cfg.URL, err)
	}
	return &Client{
		Client:  ethClient,
		logger:  logger,
		timeout: cfg.Timeout.Duration,
	}, nil
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout == 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// StateRootByNumber returns the state root of the given L2 block, or
// ErrNotFound if the node does not have it.
func (c *Client) StateRootByNumber(ctx context.Context, blockNum uint64) (common.Hash, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNum))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return common.Hash{}, ErrNotFound
		}
		return common.Hash{}, fmt.Errorf("error getting header for block %d: %w", blockNum, err)
	}
	if header == nil {
		return common.Hash{}, ErrNotFound
	}
	return header.Root, nil
}

// CurrentBlock returns the current L2 block number.
func (c *Client) CurrentBlock(ctx context.Context) (uint64, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.BlockNumber(ctx)
}

// SafeBlock returns the latest safe L2 block number, or ErrNotFound if the
// node does not track safety (pre-merge devnets).
func (c *Client) SafeBlock(ctx context.Context) (uint64, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	header, err := c.HeaderByNumber(ctx, big.NewInt(rpc.SafeBlockNumber.Int64()))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("error getting safe block: %w", err)
	}
	if header == nil {
		return 0, ErrNotFound
	}
	return header.Number.Uint64(), nil
}
