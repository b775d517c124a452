// Copyright 2025 Certen Protocol
//
// Package chainstore provides sentinel errors for block storage
// operations, following this codebase's minimal-sentinel-file convention
// (see pkg/ledger/errors.go, pkg/batch/errors.go).

package chainstore

import "errors"

// Sentinel errors for put_block rejection reasons (§4D).
var (
	ErrSlotExists     = errors.New("chainstore: slot already present")
	ErrSlotGap        = errors.New("chainstore: slot is not head.slot + 1")
	ErrParentMismatch = errors.New("chainstore: prev_hash does not match head.hash")
	ErrBlockNotFound  = errors.New("chainstore: block not found")
	ErrStoreUnavailable = errors.New("chainstore: persistence is not available")
)
