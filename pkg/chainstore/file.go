// Copyright 2025 Certen Protocol
//
// File-backed Store: wraps MemoryStore and additionally rewrites a single
// JSON document to disk on every mutating call, matching §6's described
// on-disk form `{ "blocks": [block...], "triggers_state": ... }`.

package chainstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/certen/poj-chain/pkg/blockcodec"
)

type fileDocument struct {
	Blocks        []blockcodec.WireBlock `json:"blocks"`
	TriggersState struct {
		HeadSlot int64 `json:"head_slot"`
	} `json:"triggers_state"`
}

// FileStore is the in-memory store overlaid with synchronous single-file
// persistence. The on-disk form is internal and MAY change (§6).
type FileStore struct {
	mu   sync.Mutex
	mem  *MemoryStore
	path string
}

// NewFileStore opens (or creates) the JSON document at path, replaying any
// previously persisted blocks into a fresh MemoryStore.
func NewFileStore(path string, capacity, trimTo int) (*FileStore, error) {
	fs := &FileStore{mem: NewMemoryStore(capacity, trimTo), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return fs, nil
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for _, wb := range doc.Blocks {
		b, err := blockcodec.FromWire(wb)
		if err != nil {
			return nil, err
		}
		if err := fs.mem.PutBlock(b); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// persist rewrites the whole document. Called synchronously after every
// mutating call; PoJ mutations flush synchronously per §4D/§6.
func (fs *FileStore) persist() error {
	blocks, err := fs.mem.Recent(0)
	if err != nil {
		return err
	}
	// Recent() is descending; the on-disk form is ascending for readability.
	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}
	doc := fileDocument{Blocks: make([]blockcodec.WireBlock, len(blocks))}
	for i, b := range blocks {
		doc.Blocks[i] = b.ToWire()
	}
	head, err := fs.mem.Head()
	if err != nil {
		return err
	}
	if head != nil {
		doc.TriggersState.HeadSlot = int64(head.Slot)
	} else {
		doc.TriggersState.HeadSlot = -1
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return err
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}

func (fs *FileStore) PutBlock(b *blockcodec.Block) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mem.PutBlock(b); err != nil {
		return err
	}
	return fs.persist()
}

func (fs *FileStore) Head() (*blockcodec.Block, error)                   { return fs.mem.Head() }
func (fs *FileStore) BySlot(n uint64) (*blockcodec.Block, error)         { return fs.mem.BySlot(n) }
func (fs *FileStore) Recent(limit int) ([]*blockcodec.Block, error)      { return fs.mem.Recent(limit) }
func (fs *FileStore) Since(slot uint64, limit int) ([]*blockcodec.Block, error) {
	return fs.mem.Since(slot, limit)
}
func (fs *FileStore) Stats() (Stats, error)                    { return fs.mem.Stats() }
func (fs *FileStore) VerifyIntegrity() (IntegrityReport, error) { return fs.mem.VerifyIntegrity() }
