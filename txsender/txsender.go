// Package txsender generates load on the L2 devnet by sending batches of
// plain value transfers and streaming per transaction progress. The block
// range mined while a batch runs is what tree builds are usually pointed at.
package txsender

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rollupops/disputedash/config/types"
	"github.com/rollupops/disputedash/events"
	"github.com/rollupops/disputedash/log"
)

const eventBuffer = 256

// EthClienter is the subset of the ethclient surface the sender needs.
type EthClienter interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// Config represents the configuration of the tx sender.
type Config struct {
	// PrivateKey is the hex encoded key of the funded devnet account.
	PrivateKey string `mapstructure:"PrivateKey"`
	// To is the transfer destination.
	To common.Address `mapstructure:"To"`
	// ValueWei is the amount sent per transaction.
	ValueWei uint64 `mapstructure:"ValueWei"`
	// GasLimit for the plain transfers.
	GasLimit uint64 `mapstructure:"GasLimit"`
	// TxDelay is the pause between consecutive transactions.
	TxDelay types.Duration `mapstructure:"TxDelay"`
	// WaitForBlocks is how long to wait for the last txs to be mined
	// before reading the end block.
	WaitForBlocks types.Duration `mapstructure:"WaitForBlocks"`
}

// Summary is the Complete payload of a tx batch.
type Summary struct {
	BlockStart uint64   `json:"block_start"`
	BlockEnd   uint64   `json:"block_end"`
	TxCount    int      `json:"tx_count"`
	TxHashes   []string `json:"tx_hashes"`
}

// Sender sends signed value transfers to the devnet.
type Sender struct {
	logger *log.Logger
	client EthClienter
	cfg    Config
	key    *ecdsa.PrivateKey
	from   common.Address
}

// New builds a Sender from the configured private key.
func New(logger *log.Logger, client EthClienter, cfg Config) (*Sender, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("error parsing sender private key: %w", err)
	}
	return &Sender{
		logger: logger,
		client: client,
		cfg:    cfg,
		key:    key,
		from:   crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// From returns the sender account address.
func (s *Sender) From() common.Address {
	return s.from
}

// SendBatch sends count transfers and returns the progress event stream. The
// batch runs in its own goroutine; the first failure terminates it with an
// Error event.
func (s *Sender) SendBatch(ctx context.Context, count int) <-chan events.Event {
	ch := make(chan events.Event, eventBuffer)
	go func() {
		defer close(ch)
		s.run(ctx, count, ch)
	}()
	return ch
}

func (s *Sender) run(ctx context.Context, count int, ch chan events.Event) {
	startBlock, err := s.client.BlockNumber(ctx)
	if err != nil {
		events.Emit(ch, events.NewError("Cannot connect to L2 RPC"))
		return
	}

	events.Emit(ch, events.NewProgress(events.ProgressData{
		Step:    "started",
		Message: fmt.Sprintf("Starting TX generation (current block: %d)", startBlock),
		Current: startBlock,
	}))

	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		events.Emit(ch, events.NewError(fmt.Sprintf("Failed to get chain id: %v", err)))
		return
	}
	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		events.Emit(ch, events.NewError(fmt.Sprintf("Failed to get nonce: %v", err)))
		return
	}
	signer := ethtypes.LatestSignerForChainID(chainID)

	txHashes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		events.Emit(ch, events.NewProgress(events.ProgressData{
			Step:    "sending",
			Index:   i + 1,
			Total:   count,
			Message: fmt.Sprintf("Sending TX %d/%d...", i+1, count),
		}))

		hash, err := s.sendOne(ctx, signer, nonce)
		if err != nil {
			s.logger.Errorf("tx %d/%d failed: %v", i+1, count, err)
			events.Emit(ch, events.Event{Name: events.Error, Data: events.ErrorData{
				Message: err.Error(),
				Step:    "tx_failed",
				Index:   i + 1,
			}})
			return
		}
		nonce++
		txHashes = append(txHashes, hash.Hex())

		events.Emit(ch, events.NewProgress(events.ProgressData{
			Step:   "tx_sent",
			Index:  i + 1,
			Total:  count,
			TxHash: hash.Hex(),
		}))

		if s.cfg.TxDelay.Duration > 0 {
			time.Sleep(s.cfg.TxDelay.Duration)
		}
	}

	events.Emit(ch, events.NewProgress(events.ProgressData{
		Step:    "waiting",
		Message: "Waiting for blocks to be mined...",
	}))
	if s.cfg.WaitForBlocks.Duration > 0 {
		time.Sleep(s.cfg.WaitForBlocks.Duration)
	}

	endBlock, err := s.client.BlockNumber(ctx)
	if err != nil {
		// keep the batch result, the txs are already out
		s.logger.Warn("error reading end block: ", err)
		endBlock = startBlock
	}

	events.Emit(ch, events.NewComplete(Summary{
		BlockStart: startBlock,
		BlockEnd:   endBlock,
		TxCount:    count,
		TxHashes:   txHashes,
	}))
}

func (s *Sender) sendOne(ctx context.Context, signer ethtypes.Signer, nonce uint64) (common.Hash, error) {
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("error getting gas price: %w", err)
	}

	tx := ethtypes.NewTransaction(
		nonce, s.cfg.To, new(big.Int).SetUint64(s.cfg.ValueWei), s.cfg.GasLimit, gasPrice, nil)
	signedTx, err := ethtypes.SignTx(tx, signer, s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("error signing tx: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("error sending tx: %w", err)
	}
	return signedTx.Hash(), nil
}
