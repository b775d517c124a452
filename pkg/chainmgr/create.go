// Copyright 2025 Certen Protocol

package chainmgr

import (
	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/pojcrypto"
)

// createBlockLocked implements §4E's create_block algorithm. Caller must
// hold mu. Returns (nil, nil) only when pending was already empty; any
// store failure restores batch to the front of pending, preserving order
// (B3), and is reported as an error rather than swallowed.
func (m *Manager) createBlockLocked() (*blockcodec.Block, error) {
	if len(m.pending) == 0 {
		return nil, nil
	}
	m.cancelTimerLocked()

	batch := m.pending
	m.pending = nil

	leaves := make([]pojcrypto.Hash, len(batch))
	for i, j := range batch {
		leaves[i] = blockcodec.HashJudgmentRef(j)
	}
	judgmentsRoot := pojcrypto.MerkleRoot(leaves)

	timestamp := nowMillis()
	if timestamp < m.head.Timestamp {
		timestamp = m.head.Timestamp
	}

	b := &blockcodec.Block{
		Slot:          m.head.Slot + 1,
		PrevHash:      m.head.Hash,
		JudgmentsRoot: judgmentsRoot,
		Timestamp:     timestamp,
		Judgments:     batch,
	}

	if m.reg != nil {
		operator, name, sig, err := m.reg.SignBlock(b.Header())
		if err != nil {
			m.restorePendingLocked(batch)
			return nil, err
		}
		b.Operator = operator
		b.OperatorName = name
		b.Signature = sig
	} else {
		key := m.legacyKey
		if len(key) > 16 {
			key = key[:16]
		}
		b.Operator = key
	}
	b.Hash = b.RecomputeHash()

	if err := m.store.PutBlock(b); err != nil {
		m.restorePendingLocked(batch)
		return nil, err
	}

	m.head = b
	m.stats.BlocksCreated++

	if m.onBlockCreated != nil {
		func() {
			defer func() { recover() }()
			m.onBlockCreated(b)
		}()
	}

	if m.p2pEnabled {
		m.anchorStatus[b.Hash] = &AnchorState{Status: AnchorPending, Slot: b.Slot}
		m.installFinalityWaiterLocked(b)
	} else {
		m.maybeEnqueueAnchorLocked(b)
	}
	return b, nil
}

// restorePendingLocked puts batch back at the front of pending, ahead of
// anything added while creation was in flight, preserving FIFO order (B3).
func (m *Manager) restorePendingLocked(batch []blockcodec.JudgmentRef) {
	m.pending = append(append([]blockcodec.JudgmentRef{}, batch...), m.pending...)
	if len(m.pending) > 0 {
		m.armTimerLocked()
	}
}
