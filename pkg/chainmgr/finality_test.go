// Copyright 2025 Certen Protocol

package chainmgr

import (
	"testing"
	"time"

	"github.com/certen/poj-chain/pkg/anchorqueue/noop"
	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/chainstore"
)

func TestFinality_ConfirmedTriggersDeferredAnchor(t *testing.T) {
	store := chainstore.NewMemoryStore(0, 0)
	q := noop.New()
	m := New(store, &Config{BatchSize: 1, AutoAnchor: true, AnchorQueue: q})
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	m.EnableP2PFinality(time.Hour, "wss://peer.example")

	b, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "a"})
	if err != nil || b == nil {
		t.Fatalf("AddJudgment: %v, %+v", err, b)
	}

	st, _ := m.AnchorStatus(b.Hash)
	if st.Status != AnchorPending {
		t.Fatalf("anchor status = %v before finality, want PENDING", st.Status)
	}

	m.OnBlockFinalized(b.Hash, b.Slot, FinalityConfirmed, 6)

	if got := m.Stats().BlocksFinalized; got != 1 {
		t.Fatalf("blocks_finalized = %d, want 1", got)
	}
	st, _ = m.AnchorStatus(b.Hash)
	if st.Status != AnchorQueued {
		t.Fatalf("anchor status = %v after finality, want QUEUED (the noop queue accepts the item but never calls on_anchor_complete)", st.Status)
	}
}

func TestFinality_TimeoutIncrementsCounter(t *testing.T) {
	store := chainstore.NewMemoryStore(0, 0)
	m := New(store, &Config{BatchSize: 1})
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	m.EnableP2PFinality(10*time.Millisecond, "")

	if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "a"}); err != nil {
		t.Fatalf("AddJudgment: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.Stats().FinalityTimeouts > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := m.Stats().FinalityTimeouts; got != 1 {
		t.Fatalf("finality_timeouts = %d, want 1", got)
	}
}
