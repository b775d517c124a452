// Copyright 2025 Certen Protocol
//
// Ed25519 keypair generation, signing and verification for operator
// identities and block signatures.

package pojcrypto

import (
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"encoding/hex"
)

// Hash is a fixed-width 32-byte SHA-256 digest.
type Hash [32]byte

// Hex returns the lowercase hex encoding of h, with no "0x" prefix.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromHex decodes a lowercase hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, ErrInvalidPublicKeySize
	}
	copy(h[:], b)
	return h, nil
}

// KeyPair holds an Ed25519 public/private key pair. The private key never
// leaves the process boundary except through Sign.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair creates a new random Ed25519 keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(cryptorand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// KeyPairFromSeed derives a deterministic keypair from a 32-byte seed. Used
// for reproducible self-operator keys supplied via configuration.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidPrivateKeySize
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &KeyPair{PublicKey: priv.Public().(ed25519.PublicKey), PrivateKey: priv}, nil
}

// Sign produces a 64-byte Ed25519 signature over msg using sk.
func Sign(sk ed25519.PrivateKey, msg []byte) ([]byte, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return nil, ErrInvalidPrivateKeySize
	}
	return ed25519.Sign(sk, msg), nil
}

// Verify checks an Ed25519 signature. It never panics: malformed key or
// signature lengths resolve to false rather than an error, matching the
// chain's never-throws verification contract.
func Verify(pk ed25519.PublicKey, msg, sig []byte) bool {
	if len(pk) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	defer func() { recover() }() //nolint:errcheck // ed25519.Verify can panic on exotic inputs upstream
	return ed25519.Verify(pk, msg, sig)
}
