// Copyright 2025 Certen Protocol
//
// Package chainmgr provides sentinel errors for block creation and
// reception, following this codebase's minimal-sentinel-file convention.

package chainmgr

import "errors"

// receive_block rejection reasons (§4E, §7), tried in the documented order.
var (
	ErrStoreUnavailable = errors.New("chainmgr: persistence is not available")
	ErrMissingFields    = errors.New("chainmgr: block is missing required fields")
	ErrMissingSignature = errors.New("chainmgr: block has no signature and require_signatures is set")
	ErrSlotMismatch     = errors.New("chainmgr: slot is not head.slot + 1")
	ErrParentMismatch   = errors.New("chainmgr: prev_hash does not match head.hash")
	ErrMerkleMismatch   = errors.New("chainmgr: judgments_root does not match recomputed merkle root")
	ErrHashMismatch     = errors.New("chainmgr: hash does not match recomputed value")
	ErrStoreError       = errors.New("chainmgr: store rejected the block")
)

// ErrClosed is returned by any operation attempted after Close.
var ErrClosed = errors.New("chainmgr: manager is closed")

// ErrNotInitialized is returned by AddJudgment/Flush/ReceiveBlock when
// Initialize has not yet synthesized or loaded a head block.
var ErrNotInitialized = errors.New("chainmgr: Initialize has not been called")
