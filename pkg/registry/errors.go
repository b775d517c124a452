// Copyright 2025 Certen Protocol
//
// Package registry provides sentinel errors for operator registry
// operations, following the minimal-sentinel-file convention used
// throughout this codebase.

package registry

import "errors"

// Sentinel errors for self-initialization and operator management.
var (
	ErrNotInitialized   = errors.New("registry: self operator not initialized")
	ErrAlreadyInitialized = errors.New("registry: self operator already initialized with different parameters")
	ErrMissingKey       = errors.New("registry: public key is required")
	ErrCapacityExceeded = errors.New("registry: max_operators reached")
	ErrCannotRemoveSelf = errors.New("registry: cannot remove the self operator")
)

// Block verification reasons (§4B verify_block, §7).
var (
	ErrNoOperator      = errors.New("registry: block has no operator public key")
	ErrNoSignature     = errors.New("registry: block has no signature")
	ErrUnknownOperator = errors.New("registry: operator is not registered")
	ErrBadSignature    = errors.New("registry: signature does not verify")
)
