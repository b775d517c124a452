// Copyright 2025 Certen Protocol
//
// Package ethanchor anchors PoJ block commitments to an EVM chain by
// submitting a zero-value transaction whose calldata carries the block hash;
// the slot is reported back only in the completion result. Grounded on pkg/ethereum/client.go's connection, nonce, gas-price
// and send/wait discipline, narrowed from that file's general-purpose
// contract-call surface down to the single "anchor this hash" operation the
// anchor-queue contract (§4F) exposes.

package ethanchor

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/certen/poj-chain/pkg/anchorqueue"
)

// Config configures a Queue.
type Config struct {
	RPCURL        string
	ChainID       int64
	PrivateKeyHex string // hex-encoded ECDSA key, "0x" prefix optional
	AnchorAddress string // destination address calldata is sent to
	GasLimit      uint64
	Logger        *log.Logger
}

// DefaultConfig returns ethanchor's default configuration. RPCURL,
// PrivateKeyHex and AnchorAddress have no sane default and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		GasLimit: 60000,
		Logger:   log.New(log.Writer(), "[AnchorQueue:eth] ", log.LstdFlags),
	}
}

// Queue submits each enqueued item as an EVM transaction in its own
// goroutine, then invokes the registered handler with the outcome.
type Queue struct {
	mu sync.Mutex

	client     *ethclient.Client
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	from       common.Address
	to         common.Address
	gasLimit   uint64
	logger     *log.Logger

	handler anchorqueue.CompletionHandler
}

// New dials the configured RPC endpoint and prepares the signing key.
func New(cfg *Config) (*Queue, error) {
	if cfg == nil || cfg.RPCURL == "" || cfg.PrivateKeyHex == "" || cfg.AnchorAddress == "" {
		return nil, fmt.Errorf("ethanchor: RPCURL, PrivateKeyHex and AnchorAddress are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[AnchorQueue:eth] ", log.LstdFlags)
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 60000
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ethanchor: dial %s: %w", cfg.RPCURL, err)
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("ethanchor: parse private key: %w", err)
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("ethanchor: failed to derive public key")
	}

	return &Queue{
		client:     client,
		chainID:    big.NewInt(cfg.ChainID),
		privateKey: privateKey,
		from:       crypto.PubkeyToAddress(*publicKeyECDSA),
		to:         common.HexToAddress(cfg.AnchorAddress),
		gasLimit:   gasLimit,
		logger:     logger,
	}, nil
}

// OnComplete registers the handler invoked when an anchor transaction lands
// (or fails). Only one handler is kept; registering a second replaces it.
func (q *Queue) OnComplete(handler anchorqueue.CompletionHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// Enqueue submits payload as calldata in its own goroutine and returns
// immediately; the result reaches the registered handler asynchronously,
// never blocking the caller.
func (q *Queue) Enqueue(id string, payload anchorqueue.Payload) error {
	go q.submit(id, payload)
	return nil
}

func (q *Queue) submit(id string, payload anchorqueue.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result := anchorqueue.CompletionResult{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Slot:      payload.Slot,
	}

	hashBytes, err := hex.DecodeString(payload.Hash)
	if err != nil {
		result.Error = fmt.Sprintf("decode block hash: %v", err)
		q.deliver(result)
		return
	}

	nonce, err := q.client.PendingNonceAt(ctx, q.from)
	if err != nil {
		result.Error = fmt.Sprintf("get nonce: %v", err)
		q.deliver(result)
		return
	}
	gasPrice, err := q.client.SuggestGasPrice(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("get gas price: %v", err)
		q.deliver(result)
		return
	}

	tx := types.NewTransaction(nonce, q.to, big.NewInt(0), q.gasLimit, gasPrice, hashBytes)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(q.chainID), q.privateKey)
	if err != nil {
		result.Error = fmt.Sprintf("sign transaction: %v", err)
		q.deliver(result)
		return
	}
	if err := q.client.SendTransaction(ctx, signedTx); err != nil {
		result.Error = fmt.Sprintf("send transaction: %v", err)
		q.deliver(result)
		return
	}

	receipt, err := waitMined(ctx, q.client, signedTx.Hash())
	if err != nil {
		result.Error = fmt.Sprintf("wait for receipt: %v", err)
		q.deliver(result)
		return
	}

	result.Success = receipt.Status == types.ReceiptStatusSuccessful
	result.Signature = signedTx.Hash().Hex()
	if !result.Success {
		result.Error = "transaction reverted"
	}
	q.logger.Printf("anchor tx for %s: hash=%s status=%d", id, result.Signature, receipt.Status)
	q.deliver(result)
}

func (q *Queue) deliver(result anchorqueue.CompletionResult) {
	q.mu.Lock()
	handler := q.handler
	q.mu.Unlock()
	if handler != nil {
		handler(result)
	}
}

func waitMined(ctx context.Context, client *ethclient.Client, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
