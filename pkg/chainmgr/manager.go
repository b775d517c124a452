// Copyright 2025 Certen Protocol
//
// Chain Manager: pending-judgment queue, batch-size-or-time policy, genesis
// synthesis, block construction and foreign-block validation, optional
// anchor-queue integration. Grounded on the single-threaded, mutex-guarded
// shape of pkg/batch/collector.go (FIFO rollback-on-failure via slice
// truncation) combined with pkg/batch/scheduler.go's timer-driven flush,
// adapted from that file's periodic time.Ticker to the single-shot,
// re-armable time.Timer this chain's batch semantics require (§4E, §9).

package chainmgr

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/certen/poj-chain/pkg/anchorqueue"
	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/chainstore"
	"github.com/certen/poj-chain/pkg/pojcrypto"
	"github.com/certen/poj-chain/pkg/registry"
)

// AnchorStatusKind is one of the states an anchored block's status may hold.
type AnchorStatusKind string

const (
	AnchorPending  AnchorStatusKind = "PENDING"
	AnchorQueued   AnchorStatusKind = "QUEUED"
	AnchorAnchored AnchorStatusKind = "ANCHORED"
	AnchorFailed   AnchorStatusKind = "FAILED"
)

// AnchorState is the per-block anchor status the manager tracks (§3).
type AnchorState struct {
	Status    AnchorStatusKind
	Slot      uint64
	Attempts  int
	Signature string
	Error     string
}

// Stats mirrors the counters named in §4E.
type Stats struct {
	BlocksCreated    int
	BlocksReceived   int
	BlocksRejected   int
	BlocksAnchored   int
	AnchorsFailed    int
	BlocksFinalized  int
	FinalityTimeouts int
}

// Config configures a Manager. A nil cfg selects DefaultConfig; otherwise
// zero-value BatchSize, BatchTimeout and Logger fall back to the defaults
// below, and the boolean fields are taken exactly as given.
type Config struct {
	BatchSize         int
	BatchTimeout      time.Duration
	RequireSignatures bool
	VerifyReceived    bool // VerifyReceivedBlocks in §4E; true in DefaultConfig, false when a Config leaves it unset
	AutoAnchor        bool

	Registry    *registry.Registry // nil selects legacy single-key mode
	LegacyKey   []byte             // operator identity used when Registry is nil
	AnchorQueue anchorqueue.Queue  // nil leaves anchor status at PENDING

	OnBlockCreated func(b *blockcodec.Block) // errors from this are swallowed

	Logger *log.Logger
}

// DefaultConfig returns the manager's default configuration.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      10,
		BatchTimeout:   60 * time.Second,
		VerifyReceived: true,
		Logger:         log.New(log.Writer(), "[ChainManager] ", log.LstdFlags),
	}
}

// Manager is the single-writer core of the chain: it owns the pending
// queue, the batch timer, the head pointer, and per-block anchor status. All
// public methods serialize through mu, matching the single-threaded
// cooperative model of §5: timer and anchor callbacks are re-entries that
// queue on the same lock rather than interleaving with in-flight calls.
type Manager struct {
	mu sync.Mutex

	store chainstore.Store
	reg   *registry.Registry
	legacyKey []byte

	batchSize         int
	batchTimeout      time.Duration
	requireSignatures bool
	verifyReceived    bool
	autoAnchor        bool
	anchorQueue       anchorqueue.Queue
	onBlockCreated    func(b *blockcodec.Block)
	logger            *log.Logger

	head    *blockcodec.Block
	pending []blockcodec.JudgmentRef
	timer   *time.Timer
	closed  bool

	anchorStatus map[pojcrypto.Hash]*AnchorState
	stats        Stats

	p2pEnabled       bool
	p2pNodeURL       string
	finalityDeadline time.Duration
	pendingFinality  map[pojcrypto.Hash]*finalityWaiter
}

// New constructs a Manager bound to store. Call Initialize before any other
// method.
func New(store chainstore.Store, cfg *Config) *Manager {
	d := DefaultConfig()
	if cfg == nil {
		cfg = d
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = d.BatchSize
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = d.BatchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = d.Logger
	}

	m := &Manager{
		store:             store,
		reg:               cfg.Registry,
		legacyKey:         cfg.LegacyKey,
		batchSize:         cfg.BatchSize,
		batchTimeout:      cfg.BatchTimeout,
		requireSignatures: cfg.RequireSignatures,
		verifyReceived:    cfg.VerifyReceived,
		autoAnchor:        cfg.AutoAnchor,
		anchorQueue:       cfg.AnchorQueue,
		onBlockCreated:    cfg.OnBlockCreated,
		logger:            cfg.Logger,
		anchorStatus:      make(map[pojcrypto.Hash]*AnchorState),
	}
	if m.anchorQueue != nil {
		m.anchorQueue.OnComplete(m.onAnchorComplete)
	}
	return m
}

// Initialize loads the current head from the store, synthesizing genesis if
// the store is empty. Calling it again is a no-op.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.head != nil {
		return nil
	}

	head, err := m.store.Head()
	if err != nil {
		return err
	}
	if head != nil {
		m.head = head
		return nil
	}

	genesis := &blockcodec.Block{
		Slot:          0,
		PrevHash:      GenesisPrevHash(),
		JudgmentsRoot: pojcrypto.GenesisJudgmentsRoot(),
		Timestamp:     nowMillis(),
	}
	genesis.Hash = genesis.RecomputeHash()
	if err := m.store.PutBlock(genesis); err != nil {
		return err
	}
	m.head = genesis
	m.logger.Printf("genesis block written: hash=%s", genesis.Hash.Hex())
	return nil
}

// Head returns the manager's current head block.
func (m *Manager) Head() *blockcodec.Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.head
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// AnchorStatus returns the tracked anchor state for a block hash, if any.
func (m *Manager) AnchorStatus(hash pojcrypto.Hash) (AnchorState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.anchorStatus[hash]
	if !ok {
		return AnchorState{}, false
	}
	return *st, true
}

// AddJudgment normalizes and appends j to the pending queue (§4E step 2). If
// pending reaches batch_size, a block is created synchronously; otherwise
// the batch timer is armed if not already running.
func (m *Manager) AddJudgment(j blockcodec.JudgmentRef) (*blockcodec.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.head == nil {
		return nil, ErrNotInitialized
	}
	if j.JudgmentID == "" {
		j.JudgmentID = generateJudgmentID()
	}

	m.pending = append(m.pending, j)

	if len(m.pending) >= m.batchSize {
		return m.createBlockLocked()
	}
	m.armTimerLocked()
	return nil, nil
}

// Flush forces block creation if pending is non-empty (§4E step 3, B1).
func (m *Manager) Flush() (*blockcodec.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.head == nil {
		return nil, ErrNotInitialized
	}
	if len(m.pending) == 0 {
		return nil, nil
	}
	return m.createBlockLocked()
}

// Close flushes pending (best-effort), cancels the timer, and marks the
// manager closed. Persistence errors during close are logged, not raised
// (§5 Cancellation).
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.cancelTimerLocked()
	m.rejectAllFinalityWaitersLocked()
	if len(m.pending) > 0 {
		if _, err := m.createBlockLocked(); err != nil {
			m.logger.Printf("flush on close failed, pending judgments are dropped from this session: %v", err)
		}
	}
	m.closed = true
	return nil
}

func (m *Manager) armTimerLocked() {
	if m.timer != nil {
		return
	}
	m.timer = time.AfterFunc(m.batchTimeout, m.onTimerFired)
}

func (m *Manager) cancelTimerLocked() {
	if m.timer == nil {
		return
	}
	m.timer.Stop()
	m.timer = nil
}

func (m *Manager) onTimerFired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timer = nil
	if m.closed || len(m.pending) == 0 {
		return
	}
	if _, err := m.createBlockLocked(); err != nil {
		m.logger.Printf("batch-timeout block creation failed: %v", err)
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// generateJudgmentID mints an id for a judgment ref that arrived without
// one (§4E step 2), grounded on pkg/batch/collector.go's use of
// github.com/google/uuid for TransactionData/ClosedBatchResult ids (§11.3).
func generateJudgmentID() string {
	return "judgment_" + uuid.NewString()
}
