// Copyright 2025 Certen Protocol
//
// Durable embedded-KV Store backed by cometbft-db (GoLevelDB by default).
// Grounded on pkg/kvdb/adapter.go's dbm.DB-to-KV wrapping (Get/SetSync) and
// pkg/ledger/store.go's big-endian height-keying discipline, generalized
// from a generic ledger KV store into a Store implementation that keys
// directly on block slot.

package chainstore

import (
	"encoding/binary"
	"encoding/json"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/pojcrypto"
)

var headKey = []byte("head")

func blockKey(slot uint64) []byte {
	key := make([]byte, 6+8)
	copy(key, "block:")
	binary.BigEndian.PutUint64(key[6:], slot)
	return key
}

// LevelDBStore is a durable embedded-KV Store implementation. It tracks the
// current head slot under a dedicated key so Head() stays O(1).
type LevelDBStore struct {
	db dbm.DB
}

// NewLevelDBStore opens (or creates) a GoLevelDB database at dir under the
// given name.
func NewLevelDBStore(name, dir string) (*LevelDBStore, error) {
	db, err := dbm.NewDB(name, dbm.GoLevelDBBackend, dir)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) Close() error { return s.db.Close() }

func (s *LevelDBStore) readHeadSlot() (int64, bool, error) {
	v, err := s.db.Get(headKey)
	if err != nil {
		return 0, false, err
	}
	if v == nil {
		return 0, false, nil
	}
	return int64(binary.BigEndian.Uint64(v)), true, nil
}

func (s *LevelDBStore) readBlock(slot uint64) (*blockcodec.Block, error) {
	v, err := s.db.Get(blockKey(slot))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	var wire blockcodec.WireBlock
	if err := json.Unmarshal(v, &wire); err != nil {
		return nil, err
	}
	return blockcodec.FromWire(wire)
}

func (s *LevelDBStore) PutBlock(b *blockcodec.Block) error {
	if existing, err := s.readBlock(b.Slot); err != nil {
		return err
	} else if existing != nil {
		return ErrSlotExists
	}
	headSlot, hasHead, err := s.readHeadSlot()
	if err != nil {
		return err
	}
	if !hasHead {
		if b.Slot != 0 {
			return ErrSlotGap
		}
	} else {
		if b.Slot != uint64(headSlot)+1 {
			return ErrSlotGap
		}
		head, err := s.readBlock(uint64(headSlot))
		if err != nil {
			return err
		}
		if b.PrevHash != head.Hash {
			return ErrParentMismatch
		}
	}

	body, err := json.Marshal(b.ToWire())
	if err != nil {
		return err
	}
	if err := s.db.SetSync(blockKey(b.Slot), body); err != nil {
		return err
	}
	newHead := make([]byte, 8)
	binary.BigEndian.PutUint64(newHead, b.Slot)
	return s.db.SetSync(headKey, newHead)
}

func (s *LevelDBStore) Head() (*blockcodec.Block, error) {
	slot, hasHead, err := s.readHeadSlot()
	if err != nil || !hasHead {
		return nil, err
	}
	return s.readBlock(uint64(slot))
}

func (s *LevelDBStore) BySlot(n uint64) (*blockcodec.Block, error) { return s.readBlock(n) }

func (s *LevelDBStore) Recent(limit int) ([]*blockcodec.Block, error) {
	headSlot, hasHead, err := s.readHeadSlot()
	if err != nil || !hasHead {
		return nil, err
	}
	var out []*blockcodec.Block
	for slot := headSlot; slot >= 0; slot-- {
		b, err := s.readBlock(uint64(slot))
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *LevelDBStore) Since(slot uint64, limit int) ([]*blockcodec.Block, error) {
	headSlot, hasHead, err := s.readHeadSlot()
	if err != nil || !hasHead {
		return nil, err
	}
	var out []*blockcodec.Block
	for s2 := slot + 1; int64(s2) <= headSlot; s2++ {
		b, err := s.readBlock(s2)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *LevelDBStore) Stats() (Stats, error) {
	st := Stats{HeadSlot: -1, GenesisSlot: -1}
	headSlot, hasHead, err := s.readHeadSlot()
	if err != nil {
		return st, err
	}
	if !hasHead {
		return st, nil
	}
	st.HeadSlot = headSlot
	genesis, err := s.readBlock(0)
	if err != nil {
		return st, err
	}
	if genesis != nil {
		st.GenesisSlot = 0
	}
	for slot := int64(0); slot <= headSlot; slot++ {
		b, err := s.readBlock(uint64(slot))
		if err != nil {
			return st, err
		}
		if b != nil {
			st.TotalBlocks++
			st.TotalJudgments += len(b.Judgments)
		}
	}
	return st, nil
}

func (s *LevelDBStore) VerifyIntegrity() (IntegrityReport, error) {
	report := IntegrityReport{Valid: true}
	var prev *blockcodec.Block
	slot := uint64(0)
	for {
		b, err := s.readBlock(slot)
		if err != nil {
			return report, err
		}
		if b == nil {
			break
		}
		report.BlocksChecked++
		if prev != nil {
			if b.Slot != prev.Slot+1 {
				report.Valid = false
				report.Errors = append(report.Errors, IntegrityError{Slot: b.Slot, Message: "slot is not prev.slot + 1"})
			}
			if b.PrevHash != prev.Hash {
				report.Valid = false
				report.Errors = append(report.Errors, IntegrityError{Slot: b.Slot, Message: "prev_hash does not match previous block's hash"})
			}
		}
		// Genesis carries sha256("genesis") rather than the empty-tree root.
		isGenesisRoot := b.Slot == 0 && len(b.Judgments) == 0 && b.JudgmentsRoot == pojcrypto.GenesisJudgmentsRoot()
		if !isGenesisRoot && b.RecomputeJudgmentsRoot() != b.JudgmentsRoot {
			report.Valid = false
			report.Errors = append(report.Errors, IntegrityError{Slot: b.Slot, Message: "judgments_root does not match recomputed merkle root"})
		}
		prev = b
		slot++
	}
	return report, nil
}
