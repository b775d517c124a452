// Copyright 2025 Certen Protocol
//
// Anchor-queue integration (§4E "Anchor integration"). The manager treats
// the queue as fire-and-forget: enqueue happens synchronously with block
// creation (or with finality confirmation when the P2P finality path is
// enabled), but the completion callback arrives later and is folded back in
// as a re-entrant, mutex-guarded call, matching §5's suspension-point rule.

package chainmgr

import (
	"errors"
	"fmt"

	"github.com/certen/poj-chain/pkg/anchorqueue"
	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/pojcrypto"
)

var errNoSuchSlot = errors.New("chainmgr: no tracked anchor status for slot")

// maybeEnqueueAnchorLocked enqueues b for external anchoring when a queue is
// configured and auto_anchor is enabled; otherwise status stays PENDING.
func (m *Manager) maybeEnqueueAnchorLocked(b *blockcodec.Block) {
	if m.anchorQueue == nil || !m.autoAnchor {
		m.anchorStatus[b.Hash] = &AnchorState{Status: AnchorPending, Slot: b.Slot}
		return
	}

	state := &AnchorState{Status: AnchorQueued, Slot: b.Slot, Attempts: 1}
	m.anchorStatus[b.Hash] = state

	payload := anchorqueue.Payload{
		Hash:          b.Hash.Hex(),
		Slot:          b.Slot,
		JudgmentsRoot: b.JudgmentsRoot.Hex(),
		Timestamp:     b.Timestamp,
		JudgmentCount: len(b.Judgments),
	}
	id := fmt.Sprintf("poj_block_%d", b.Slot)
	if err := m.anchorQueue.Enqueue(id, payload); err != nil {
		state.Status = AnchorFailed
		state.Error = err.Error()
		m.stats.AnchorsFailed++
	}
}

// onAnchorComplete is the anchor queue's completion callback (§4F). It is
// registered once at construction and re-enters the manager under mu, so it
// never interleaves with AddJudgment/Flush/ReceiveBlock.
func (m *Manager) onAnchorComplete(result anchorqueue.CompletionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	hash, err := m.hashFromSlotLocked(result.Slot)
	if err != nil {
		return
	}
	state, ok := m.anchorStatus[hash]
	if !ok {
		return
	}

	if result.Success {
		state.Status = AnchorAnchored
		state.Signature = result.Signature
		m.stats.BlocksAnchored++
	} else {
		state.Status = AnchorFailed
		state.Error = result.Error
		m.stats.AnchorsFailed++
	}
}

// hashFromSlotLocked finds the hash currently tracked in anchorStatus for
// slot, so the completion callback (keyed by id/slot in the external queue)
// can find its entry without the queue needing to know about
// content-addressed hashes. Caller must hold mu.
func (m *Manager) hashFromSlotLocked(slot uint64) (pojcrypto.Hash, error) {
	for h, st := range m.anchorStatus {
		if st.Slot == slot {
			return h, nil
		}
	}
	return pojcrypto.Hash{}, errNoSuchSlot
}
