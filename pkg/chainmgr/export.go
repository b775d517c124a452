// Copyright 2025 Certen Protocol
//
// Chain export/import (§6 "Export/Import of chain"). Grounded on
// pkg/registry/export.go's export/import split, generalized from a flat
// operator list to the block sequence, reading and writing through the
// Store's ordered range queries (§4D) rather than any in-memory cache.

package chainmgr

import (
	"fmt"

	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/chainstore"
)

// ExportedChain is the wire envelope described in §6.
type ExportedChain struct {
	Version     int                   `json:"version"`
	ExportedAt  int64                 `json:"exportedAt"`
	Blocks      []blockcodec.WireBlock `json:"blocks"`
	TotalBlocks int                   `json:"totalBlocks"`
}

const exportFormatVersion = 1

// ExportChain reads every block from store (ascending by slot, starting
// from genesis and continuing via repeated Since calls) and returns the §6
// export envelope.
func ExportChain(store chainstore.Store) (ExportedChain, error) {
	const pageSize = 1000

	var blocks []blockcodec.WireBlock

	genesis, err := store.BySlot(0)
	if err != nil {
		return ExportedChain{}, err
	}
	var lastSlot uint64
	if genesis != nil {
		blocks = append(blocks, genesis.ToWire())
		lastSlot = genesis.Slot
	}

	for {
		page, err := store.Since(lastSlot, pageSize)
		if err != nil {
			return ExportedChain{}, err
		}
		if len(page) == 0 {
			break
		}
		for _, b := range page {
			blocks = append(blocks, b.ToWire())
			lastSlot = b.Slot
		}
		if len(page) < pageSize {
			break
		}
	}

	return ExportedChain{
		Version:     exportFormatVersion,
		ExportedAt:  nowMillis(),
		Blocks:      blocks,
		TotalBlocks: len(blocks),
	}, nil
}

// ImportOptions configures ImportChain (§6 "Import options").
type ImportOptions struct {
	ValidateLinks bool // default true: verify prev_hash chaining across imported blocks
	SkipExisting  bool // default true: silently skip blocks already present at their slot
	FromBlock     *uint64
}

// DefaultImportOptions returns the §6-documented defaults.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{ValidateLinks: true, SkipExisting: true}
}

// ImportResult reports what ImportChain did.
type ImportResult struct {
	Imported int
	Skipped  int
}

// ImportChain sorts exported.Blocks by slot ascending and writes each to
// store via PutBlock. If opts.ValidateLinks is set and a non-first block's
// PrevHash does not match the previous imported block's Hash, the import
// fails and names every offending slot (§6).
func ImportChain(store chainstore.Store, exported ExportedChain, opts ImportOptions) (ImportResult, error) {
	blocks := make([]*blockcodec.Block, 0, len(exported.Blocks))
	for _, w := range exported.Blocks {
		b, err := blockcodec.FromWire(w)
		if err != nil {
			return ImportResult{}, fmt.Errorf("chainmgr: decode exported block slot %d: %w", w.Slot, err)
		}
		if opts.FromBlock != nil && b.Slot < *opts.FromBlock {
			continue
		}
		blocks = append(blocks, b)
	}
	sortBlocksBySlot(blocks)

	if opts.ValidateLinks {
		var badSlots []uint64
		for i := 1; i < len(blocks); i++ {
			if blocks[i].PrevHash != blocks[i-1].Hash {
				badSlots = append(badSlots, blocks[i].Slot)
			}
		}
		if len(badSlots) > 0 {
			return ImportResult{}, fmt.Errorf("chainmgr: import failed, prev_hash mismatch at slots %v", badSlots)
		}
	}

	var res ImportResult
	for _, b := range blocks {
		if opts.SkipExisting {
			existing, err := store.BySlot(b.Slot)
			if err != nil {
				return res, err
			}
			if existing != nil {
				res.Skipped++
				continue
			}
		}
		if err := store.PutBlock(b); err != nil {
			return res, fmt.Errorf("chainmgr: import slot %d: %w", b.Slot, err)
		}
		res.Imported++
	}
	return res, nil
}

func sortBlocksBySlot(blocks []*blockcodec.Block) {
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && blocks[j].Slot < blocks[j-1].Slot; j-- {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
		}
	}
}
