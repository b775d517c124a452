// Copyright 2025 Certen Protocol
//
// Optional P2P finality path (§4E "Finality waiters", §3 pending_finality).
// p2p_enabled/p2p_node_url are opaque flags per §4E; this file is the part
// of the manager that actually consumes them, deferring anchor enqueueing
// until an external network confirms finality instead of enqueueing
// immediately after create_block.

package chainmgr

import (
	"time"

	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/pojcrypto"
)

// finalityWaiter tracks one block awaiting external confirmation.
type finalityWaiter struct {
	block   *blockcodec.Block
	deadline time.Time
	timer   *time.Timer
}

// EnableP2PFinality turns on the optional finality-waiter path: every
// block this manager creates gets a pending_finality entry with the given
// deadline, and anchor enqueueing (if auto_anchor) is deferred until
// OnBlockFinalized reports it, instead of happening immediately in
// create_block. p2pNodeURL is carried only for anchor-status reporting
// (§4E: "treated as opaque flags").
func (m *Manager) EnableP2PFinality(deadline time.Duration, p2pNodeURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p2pEnabled = true
	m.p2pNodeURL = p2pNodeURL
	m.finalityDeadline = deadline
	if m.pendingFinality == nil {
		m.pendingFinality = make(map[pojcrypto.Hash]*finalityWaiter)
	}
}

// installFinalityWaiterLocked is called from createBlockLocked after a
// successful PutBlock when the P2P finality path is enabled. Caller must
// hold mu.
func (m *Manager) installFinalityWaiterLocked(b *blockcodec.Block) {
	if !m.p2pEnabled {
		return
	}
	w := &finalityWaiter{block: b, deadline: time.Now().Add(m.finalityDeadline)}
	w.timer = time.AfterFunc(m.finalityDeadline, func() { m.onFinalityTimeout(b.Hash) })
	m.pendingFinality[b.Hash] = w
}

func (m *Manager) onFinalityTimeout(hash pojcrypto.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pendingFinality[hash]; !ok {
		return
	}
	delete(m.pendingFinality, hash)
	m.stats.FinalityTimeouts++
}

// FinalityStatus is the status reported for a finalized block via
// OnBlockFinalized.
type FinalityStatus string

const (
	FinalityConfirmed FinalityStatus = "confirmed"
	FinalityRejected  FinalityStatus = "rejected"
)

// OnBlockFinalized is the P2P layer's callback reporting that blockHash at
// slot has reached the given confirmation status. If the hash is a known
// pending-finality waiter, the waiter is removed. Only FinalityConfirmed
// then increments blocks_finalized and — if auto_anchor is enabled —
// enqueues the block for anchoring (deferred from create_block, per §4E);
// any other status drops the waiter without counting or anchoring.
func (m *Manager) OnBlockFinalized(blockHash pojcrypto.Hash, slot uint64, status FinalityStatus, confirmations int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.pendingFinality[blockHash]
	if !ok {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	delete(m.pendingFinality, blockHash)

	if status != FinalityConfirmed {
		return
	}
	m.stats.BlocksFinalized++
	if m.autoAnchor && m.anchorQueue != nil {
		m.maybeEnqueueAnchorLocked(w.block)
	}
}

// rejectAllFinalityWaitersLocked is called from Close: every outstanding
// waiter is dropped without resolving (§5 Cancellation: "rejects
// outstanding finality waiters"). Caller must hold mu.
func (m *Manager) rejectAllFinalityWaitersLocked() {
	for hash, w := range m.pendingFinality {
		if w.timer != nil {
			w.timer.Stop()
		}
		delete(m.pendingFinality, hash)
	}
}
