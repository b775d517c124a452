// Copyright 2025 Certen Protocol

package blockcodec

import (
	"encoding/hex"

	"github.com/certen/poj-chain/pkg/pojcrypto"
)

// Block is an immutable, committed chain entry: header fields, the
// judgments it commits, its signature, and its computed hash.
type Block struct {
	Slot          uint64
	PrevHash      pojcrypto.Hash
	JudgmentsRoot pojcrypto.Hash
	Timestamp     int64
	Operator      []byte // Ed25519 public key, 32 bytes
	OperatorName  string // optional, excluded from hashing per §4C

	Judgments []JudgmentRef
	Signature []byte // 64 bytes, empty in unsigned legacy-key mode
	Hash      pojcrypto.Hash
}

// Header extracts the signable/hashable portion of b.
func (b *Block) Header() Header {
	return Header{
		Slot:          b.Slot,
		PrevHash:      b.PrevHash,
		JudgmentsRoot: b.JudgmentsRoot,
		Timestamp:     b.Timestamp,
		Operator:      b.Operator,
	}
}

// RecomputeHash returns b.Hash recomputed from its current fields, used when
// a block is built and by receive-path validation (I4).
func (b *Block) RecomputeHash() pojcrypto.Hash {
	return HashHeader(b.Header(), b.Signature)
}

// RecomputeJudgmentsRoot returns the Merkle root over b.Judgments,
// recomputed independently of the stored JudgmentsRoot field (I3/P3).
func (b *Block) RecomputeJudgmentsRoot() pojcrypto.Hash {
	leaves := make([]pojcrypto.Hash, len(b.Judgments))
	for i, j := range b.Judgments {
		leaves[i] = HashJudgmentRef(j)
	}
	return pojcrypto.MerkleRoot(leaves)
}

// WireBlock is the over-the-wire / export representation described in §6:
// hex-encoded fixed-width fields, lowercase, no "0x" prefix.
type WireBlock struct {
	Slot          uint64        `json:"slot"`
	PrevHash      string        `json:"prev_hash"`
	JudgmentsRoot string        `json:"judgments_root"`
	Timestamp     int64         `json:"timestamp"`
	Operator      string        `json:"operator"`
	OperatorName  string        `json:"operator_name,omitempty"`
	Signature     string        `json:"signature"`
	Judgments     []JudgmentRef `json:"judgments"`
	Hash          string        `json:"hash"`
}

// ToWire converts b to its wire representation.
func (b *Block) ToWire() WireBlock {
	return WireBlock{
		Slot:          b.Slot,
		PrevHash:      b.PrevHash.Hex(),
		JudgmentsRoot: b.JudgmentsRoot.Hex(),
		Timestamp:     b.Timestamp,
		Operator:      hex.EncodeToString(b.Operator),
		OperatorName:  b.OperatorName,
		Signature:     hex.EncodeToString(b.Signature),
		Judgments:     b.Judgments,
		Hash:          b.Hash.Hex(),
	}
}

// FromWire parses a WireBlock back into a Block. It does not verify any
// invariant; callers run the same validation pipeline used for foreign
// blocks (receive_block, §4E) before trusting the result.
func FromWire(w WireBlock) (*Block, error) {
	prevHash, err := pojcrypto.HashFromHex(w.PrevHash)
	if err != nil {
		return nil, err
	}
	root, err := pojcrypto.HashFromHex(w.JudgmentsRoot)
	if err != nil {
		return nil, err
	}
	hash, err := pojcrypto.HashFromHex(w.Hash)
	if err != nil {
		return nil, err
	}
	operator, err := hex.DecodeString(w.Operator)
	if err != nil {
		return nil, err
	}
	sig, err := hex.DecodeString(w.Signature)
	if err != nil {
		return nil, err
	}
	return &Block{
		Slot:          w.Slot,
		PrevHash:      prevHash,
		JudgmentsRoot: root,
		Timestamp:     w.Timestamp,
		Operator:      operator,
		OperatorName:  w.OperatorName,
		Judgments:     w.Judgments,
		Signature:     sig,
		Hash:          hash,
	}, nil
}
