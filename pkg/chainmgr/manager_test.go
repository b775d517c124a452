// Copyright 2025 Certen Protocol

package chainmgr

import (
	"errors"
	"testing"
	"time"

	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/chainstore"
	"github.com/certen/poj-chain/pkg/registry"
)

func newTestManager(t *testing.T, cfg *Config) *Manager {
	t.Helper()
	store := chainstore.NewMemoryStore(0, 0)
	m := New(store, cfg)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return m
}

func TestManager_GenesisThenTwoBatches(t *testing.T) {
	store := chainstore.NewMemoryStore(0, 0)
	m := New(store, &Config{BatchSize: 2})
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "a"}); err != nil {
		t.Fatalf("AddJudgment(a): %v", err)
	}
	b, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "b"})
	if err != nil {
		t.Fatalf("AddJudgment(b): %v", err)
	}
	if b == nil || b.Slot != 1 {
		t.Fatalf("expected block at slot 1 to be created synchronously, got %+v", b)
	}

	if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "c"}); err != nil {
		t.Fatalf("AddJudgment(c): %v", err)
	}
	b2, err := m.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if b2 == nil || b2.Slot != 2 || len(b2.Judgments) != 1 {
		t.Fatalf("expected block at slot 2 with 1 judgment, got %+v", b2)
	}

	st, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalBlocks != 3 || st.HeadSlot != 2 {
		t.Fatalf("Stats = %+v, want 3 blocks / head 2", st)
	}
	report, err := store.VerifyIntegrity()
	if err != nil || !report.Valid {
		t.Fatalf("VerifyIntegrity = %+v, %v", report, err)
	}
}

func TestManager_SignedForeignBlockAccepted(t *testing.T) {
	reg1 := registry.New(nil)
	self1, err := reg1.InitializeSelf(registry.SelfOptions{Name: "m1"})
	if err != nil {
		t.Fatalf("InitializeSelf(reg1): %v", err)
	}

	reg2 := registry.New(nil)
	if _, err := reg2.InitializeSelf(registry.SelfOptions{Name: "m2"}); err != nil {
		t.Fatalf("InitializeSelf(reg2): %v", err)
	}
	if _, err := reg2.RegisterOperator(registry.OperatorOptions{PublicKey: self1.PublicKey, Name: "m1"}); err != nil {
		t.Fatalf("RegisterOperator(pk1 on reg2): %v", err)
	}

	m1 := newTestManager(t, &Config{BatchSize: 1, Registry: reg1})
	// m2 starts from m1's genesis block, so m1's slot-1 block links to m2's head.
	store2 := chainstore.NewMemoryStore(0, 0)
	if err := store2.PutBlock(m1.Head()); err != nil {
		t.Fatalf("PutBlock(m1 genesis): %v", err)
	}
	m2 := New(store2, &Config{BatchSize: 1, Registry: reg2})
	if err := m2.Initialize(); err != nil {
		t.Fatalf("Initialize(m2): %v", err)
	}

	b, err := m1.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "x"})
	if err != nil {
		t.Fatalf("AddJudgment: %v", err)
	}
	if b == nil {
		t.Fatalf("expected m1 to create a block synchronously")
	}

	if err := m2.ReceiveBlock(b); err != nil {
		t.Fatalf("ReceiveBlock: expected Accepted, got %v", err)
	}
	if m2.Head().Slot != 1 {
		t.Fatalf("m2 head slot = %d, want 1", m2.Head().Slot)
	}
	if got := m2.Stats().BlocksReceived; got != 1 {
		t.Fatalf("blocks_received = %d, want 1", got)
	}
}

func TestManager_ForeignBlockFromUnknownOperatorRejected(t *testing.T) {
	reg1 := registry.New(nil)
	if _, err := reg1.InitializeSelf(registry.SelfOptions{Name: "m1"}); err != nil {
		t.Fatalf("InitializeSelf(reg1): %v", err)
	}
	reg2 := registry.New(nil) // does NOT know about reg1's key
	if _, err := reg2.InitializeSelf(registry.SelfOptions{Name: "m2"}); err != nil {
		t.Fatalf("InitializeSelf(reg2): %v", err)
	}

	m1 := newTestManager(t, &Config{BatchSize: 1, Registry: reg1})
	m2 := newTestManager(t, &Config{BatchSize: 1, Registry: reg2})

	b, err := m1.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "x"})
	if err != nil || b == nil {
		t.Fatalf("AddJudgment: %v, %+v", err, b)
	}

	headBefore := m2.Head()
	err = m2.ReceiveBlock(b)
	if !errors.Is(err, registry.ErrUnknownOperator) {
		t.Fatalf("ReceiveBlock err = %v, want ErrUnknownOperator", err)
	}
	if m2.Stats().BlocksRejected != 1 {
		t.Fatalf("blocks_rejected = %d, want 1", m2.Stats().BlocksRejected)
	}
	if m2.Head() != headBefore {
		t.Fatalf("head changed after rejection")
	}
}

func TestManager_WrongSlotRejected(t *testing.T) {
	m := newTestManager(t, &Config{BatchSize: 100})
	head := m.Head()

	bad := &blockcodec.Block{
		Slot:          99,
		PrevHash:      head.Hash,
		JudgmentsRoot: head.JudgmentsRoot,
		Timestamp:     head.Timestamp + 1,
		Operator:      make([]byte, 32),
	}
	bad.Hash = bad.RecomputeHash()

	err := m.ReceiveBlock(bad)
	if !errors.Is(err, ErrSlotMismatch) {
		t.Fatalf("ReceiveBlock err = %v, want ErrSlotMismatch", err)
	}
	if m.Head() != head {
		t.Fatalf("head changed after rejection")
	}
	if m.Stats().BlocksRejected != 1 {
		t.Fatalf("blocks_rejected = %d, want 1", m.Stats().BlocksRejected)
	}
}

type failingStore struct {
	chainstore.Store
	failNth int
	calls   int
}

func (f *failingStore) PutBlock(b *blockcodec.Block) error {
	f.calls++
	if f.calls == f.failNth {
		return errors.New("simulated store failure")
	}
	return f.Store.PutBlock(b)
}

func TestManager_StoreFailureRecoversPending(t *testing.T) {
	mem := chainstore.NewMemoryStore(0, 0)
	fs := &failingStore{Store: mem, failNth: 2} // genesis write succeeds, block write fails
	m := New(fs, &Config{BatchSize: 2})
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "a"}); err != nil {
		t.Fatalf("AddJudgment(a): %v", err)
	}
	_, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "b"})
	if err == nil {
		t.Fatalf("expected the second AddJudgment to surface the simulated store failure")
	}

	m.mu.Lock()
	pending := append([]blockcodec.JudgmentRef{}, m.pending...)
	m.mu.Unlock()
	if len(pending) != 2 || pending[0].JudgmentID != "a" || pending[1].JudgmentID != "b" {
		t.Fatalf("pending = %+v, want [a, b] in original order", pending)
	}
	if m.Stats().BlocksCreated != 0 {
		t.Fatalf("blocks_created = %d, want 0", m.Stats().BlocksCreated)
	}
}

func TestManager_IntegrityAuditOnTamperedStore(t *testing.T) {
	mem := chainstore.NewMemoryStore(0, 0)
	m := New(mem, &Config{BatchSize: 1})
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "a"}); err != nil {
		t.Fatalf("AddJudgment: %v", err)
	}
	if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "b"}); err != nil {
		t.Fatalf("AddJudgment: %v", err)
	}

	b1, err := mem.BySlot(1)
	if err != nil || b1 == nil {
		t.Fatalf("BySlot(1): %v, %+v", err, b1)
	}
	b1.PrevHash = blockHashOfGarbage()

	report, err := mem.VerifyIntegrity()
	if err != nil {
		t.Fatalf("VerifyIntegrity: %v", err)
	}
	if report.Valid {
		t.Fatalf("expected VerifyIntegrity to report invalid over a tampered chain")
	}
	found := false
	for _, e := range report.Errors {
		if e.Slot == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("VerifyIntegrity errors %+v do not name slot 1", report.Errors)
	}
}

func TestManager_EmptyFlushIsNoop(t *testing.T) {
	m := newTestManager(t, nil)
	b, err := m.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if b != nil {
		t.Fatalf("Flush on empty pending returned a block: %+v", b)
	}
}

func TestManager_RemovingSelfOperatorFails(t *testing.T) {
	reg := registry.New(nil)
	self, err := reg.InitializeSelf(registry.SelfOptions{Name: "self"})
	if err != nil {
		t.Fatalf("InitializeSelf: %v", err)
	}
	if _, err := reg.RemoveOperator(self.PublicKey); !errors.Is(err, registry.ErrCannotRemoveSelf) {
		t.Fatalf("RemoveOperator(self) err = %v, want ErrCannotRemoveSelf", err)
	}
}

func TestManager_CloseFlushesPendingAndIsIdempotent(t *testing.T) {
	m := newTestManager(t, &Config{BatchSize: 100, BatchTimeout: time.Hour})
	if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "a"}); err != nil {
		t.Fatalf("AddJudgment: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.Stats().BlocksCreated != 1 {
		t.Fatalf("blocks_created = %d, want 1 after close-flush", m.Stats().BlocksCreated)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "b"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("AddJudgment after close err = %v, want ErrClosed", err)
	}
}

func blockHashOfGarbage() (h [32]byte) {
	copy(h[:], []byte("not-a-real-parent-hash-xxxxxxxx"))
	return h
}
