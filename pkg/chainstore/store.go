// Copyright 2025 Certen Protocol
//
// Chain Store interface (component D). Concrete implementations are
// selected at construction, never switched per call, per the §9 redesign
// note on the source's "dynamic fallback chain" (PG → file → memory →
// none).

package chainstore

import "github.com/certen/poj-chain/pkg/blockcodec"

// Stats is a snapshot of store-wide counters (§4D stats()).
type Stats struct {
	TotalBlocks    int
	HeadSlot       int64 // -1 when the store is empty
	GenesisSlot    int64 // -1 when the store is empty
	TotalJudgments int
}

// IntegrityError names one violation found by VerifyIntegrity.
type IntegrityError struct {
	Slot    uint64
	Message string
}

// IntegrityReport is the result of VerifyIntegrity: traversal continues
// past a failure to enumerate every problem, per §4D.
type IntegrityReport struct {
	Valid        bool
	BlocksChecked int
	Errors       []IntegrityError
}

// Store is the seven-operation contract the chain manager and nothing else
// consumes from persistence (§1, §4D, §6). A relational database, a local
// embedded KV store, or the degraded in-memory/file variant may all
// implement it.
type Store interface {
	// PutBlock durably writes b. It rejects with ErrSlotExists,
	// ErrSlotGap, or ErrParentMismatch per §4D before attempting any
	// write; on success the block is durable before PutBlock returns.
	PutBlock(b *blockcodec.Block) error

	// Head returns the highest-slot block, or nil if the store is empty.
	Head() (*blockcodec.Block, error)

	// BySlot returns the block at the exact slot n, or nil if absent.
	BySlot(n uint64) (*blockcodec.Block, error)

	// Recent returns up to limit blocks, descending by slot.
	Recent(limit int) ([]*blockcodec.Block, error)

	// Since returns blocks with slot strictly greater than slot,
	// ascending, bounded by limit.
	Since(slot uint64, limit int) ([]*blockcodec.Block, error)

	// Stats returns a snapshot of store-wide counters.
	Stats() (Stats, error)

	// VerifyIntegrity walks the chain from slot 0 upward checking I1-I3,
	// accumulating every violation found rather than stopping at the
	// first one.
	VerifyIntegrity() (IntegrityReport, error)
}
