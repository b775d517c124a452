// Copyright 2025 Certen Protocol
//
// Canonical encoding of a block header for signing and hashing. This
// implementation adopts the JSON form for the four positional fields, with
// the operator public key appended afterward, per the decision recorded in
// SPEC_FULL.md §9: it preserves interop with chains that hash/sign the JSON
// string form, and the same byte sequence is used uniformly for both
// signing and hashing (I4) everywhere in this codebase — never a second,
// divergent encoding.

package blockcodec

import (
	"encoding/json"

	"github.com/certen/poj-chain/pkg/pojcrypto"
)

// Header is the signable, hashable portion of a block: everything invariant
// I4/I5 are defined over. It excludes the judgments body and the signature
// itself.
type Header struct {
	Slot          uint64
	PrevHash      pojcrypto.Hash
	JudgmentsRoot pojcrypto.Hash
	Timestamp     int64 // unix ms
	Operator      []byte // Ed25519 public key, 32 bytes
}

// canonicalFields is the exact four-field JSON payload described in §4C.
// Field order is fixed by Go's struct-field-order JSON encoding (no maps),
// which makes the encoding deterministic without needing a custom
// marshaler.
type canonicalFields struct {
	Slot          uint64 `json:"slot"`
	PrevHash      string `json:"prev_hash"`
	JudgmentsRoot string `json:"judgments_root"`
	Timestamp     int64  `json:"timestamp"`
}

// CanonicalHeaderBytes returns the exact byte sequence signed by the
// operator registry and hashed to produce block.hash: the JSON form of the
// four positional fields, followed immediately by the raw operator public
// key bytes.
func CanonicalHeaderBytes(h Header) []byte {
	fields := canonicalFields{
		Slot:          h.Slot,
		PrevHash:      h.PrevHash.Hex(),
		JudgmentsRoot: h.JudgmentsRoot.Hex(),
		Timestamp:     h.Timestamp,
	}
	// json.Marshal of a struct never fails for these field types.
	core, _ := json.Marshal(fields)
	return append(core, h.Operator...)
}

// HashHeader computes block.hash = SHA256(canonical_header ∥ signature).
// Pass a nil or empty signature for the unsigned legacy-key variant (§4E
// step 7); the hash is still well-defined in that case.
func HashHeader(h Header, signature []byte) pojcrypto.Hash {
	payload := CanonicalHeaderBytes(h)
	payload = append(payload, signature...)
	return pojcrypto.SHA256(payload)
}
