// Copyright 2025 Certen Protocol

package chainmgr

import (
	"testing"

	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/chainstore"
)

func TestExportImportChain_RoundTrip(t *testing.T) {
	src := chainstore.NewMemoryStore(0, 0)
	m := New(src, &Config{BatchSize: 1})
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: id}); err != nil {
			t.Fatalf("AddJudgment(%s): %v", id, err)
		}
	}

	exported, err := ExportChain(src)
	if err != nil {
		t.Fatalf("ExportChain: %v", err)
	}
	if exported.TotalBlocks != 4 { // genesis + 3 batches of 1
		t.Fatalf("TotalBlocks = %d, want 4", exported.TotalBlocks)
	}

	dst := chainstore.NewMemoryStore(0, 0)
	res, err := ImportChain(dst, exported, DefaultImportOptions())
	if err != nil {
		t.Fatalf("ImportChain: %v", err)
	}
	if res.Imported != 4 || res.Skipped != 0 {
		t.Fatalf("ImportResult = %+v, want 4 imported / 0 skipped", res)
	}

	srcHead, _ := src.Head()
	dstHead, _ := dst.Head()
	if dstHead == nil || dstHead.Hash != srcHead.Hash || dstHead.Slot != srcHead.Slot {
		t.Fatalf("dst head = %+v, want match of src head %+v", dstHead, srcHead)
	}

	reimport, err := ImportChain(dst, exported, DefaultImportOptions())
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if reimport.Skipped != 4 || reimport.Imported != 0 {
		t.Fatalf("re-import result = %+v, want all skipped", reimport)
	}
}

func TestImportChain_RejectsBrokenLinks(t *testing.T) {
	src := chainstore.NewMemoryStore(0, 0)
	m := New(src, &Config{BatchSize: 1})
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := m.AddJudgment(blockcodec.JudgmentRef{JudgmentID: "a"}); err != nil {
		t.Fatalf("AddJudgment: %v", err)
	}

	exported, err := ExportChain(src)
	if err != nil {
		t.Fatalf("ExportChain: %v", err)
	}
	exported.Blocks[1].PrevHash = exported.Blocks[1].Hash // corrupt the link

	dst := chainstore.NewMemoryStore(0, 0)
	if _, err := ImportChain(dst, exported, DefaultImportOptions()); err == nil {
		t.Fatalf("expected ImportChain to reject a broken prev_hash link")
	}
}
