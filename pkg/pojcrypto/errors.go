// Copyright 2025 Certen Protocol
//
// Package pojcrypto provides sentinel errors for the chain's crypto primitives.

package pojcrypto

import "errors"

// Sentinel errors for crypto primitive operations.
var (
	// ErrInvalidPublicKeySize is returned when an Ed25519 public key is not 32
	// bytes; HashFromHex also returns it when the decoded hash is not 32 bytes.
	ErrInvalidPublicKeySize = errors.New("pojcrypto: public key must be 32 bytes")
	// ErrInvalidPrivateKeySize is returned when an Ed25519 private key is not
	// 64 bytes; KeyPairFromSeed also returns it when the seed is not 32 bytes.
	ErrInvalidPrivateKeySize = errors.New("pojcrypto: private key must be 64 bytes")
	// ErrInvalidSignatureSize is returned when a signature is not 64 bytes.
	ErrInvalidSignatureSize = errors.New("pojcrypto: signature must be 64 bytes")
	// ErrLeafNotFound is returned when a requested Merkle leaf does not exist.
	ErrLeafNotFound = errors.New("pojcrypto: leaf not found")
	// ErrInvalidProof is returned when a Merkle proof fails verification.
	ErrInvalidProof = errors.New("pojcrypto: invalid merkle proof")
)
