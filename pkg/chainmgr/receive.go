// Copyright 2025 Certen Protocol

package chainmgr

import "github.com/certen/poj-chain/pkg/blockcodec"

// ReceiveBlock validates and, if valid, commits a foreign block (§4E
// receive_block). Checks run in the documented order and the first failure
// is returned; there is never partial acceptance.
func (m *Manager) ReceiveBlock(b *blockcodec.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.receiveBlockLocked(b); err != nil {
		m.stats.BlocksRejected++
		return err
	}
	return nil
}

func (m *Manager) receiveBlockLocked(b *blockcodec.Block) error {
	if m.store == nil {
		return ErrStoreUnavailable
	}
	if m.head == nil {
		return ErrNotInitialized
	}
	if b.PrevHash.IsZero() || b.Timestamp == 0 || len(b.Operator) == 0 {
		return ErrMissingFields
	}
	for _, j := range b.Judgments {
		if j.JudgmentID == "" {
			return ErrMissingFields
		}
	}
	if m.requireSignatures && len(b.Signature) == 0 {
		return ErrMissingSignature
	}
	if m.reg != nil {
		if err := m.reg.VerifyBlock(b); err != nil {
			return err
		}
	}
	if b.Slot != m.head.Slot+1 {
		return ErrSlotMismatch
	}
	if b.PrevHash != m.head.Hash {
		return ErrParentMismatch
	}
	if m.verifyReceived {
		if b.RecomputeJudgmentsRoot() != b.JudgmentsRoot {
			return ErrMerkleMismatch
		}
		if b.RecomputeHash() != b.Hash {
			return ErrHashMismatch
		}
	}
	if err := m.store.PutBlock(b); err != nil {
		return ErrStoreError
	}

	m.head = b
	m.stats.BlocksReceived++
	return nil
}
