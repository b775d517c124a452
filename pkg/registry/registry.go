// Copyright 2025 Certen Protocol
//
// Operator Registry: identity, key management, block signing and
// verification, quorum tracking. Grounded on the signer shape of
// pkg/attestation/strategy/ed25519_strategy.go and the quorum/stats
// bookkeeping of pkg/attestation/service.go, consolidated into the single
// co-located, single-writer component the chain manager owns directly
// (per SPEC_FULL.md §5: "an implementer should co-locate the registry with
// the manager or guard it by the same lock").

package registry

import (
	"crypto/ed25519"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/certen/poj-chain/pkg/blockcodec"
	"github.com/certen/poj-chain/pkg/pojcrypto"
)

// Operator is a registered signing identity.
type Operator struct {
	PublicKey      ed25519.PublicKey
	Name           string
	Weight         int
	IsSelf         bool
	RegisteredAt   time.Time
	BlocksProposed int
	LastBlockAt    time.Time
}

// Stats mirrors the counters named in §4B.
type Stats struct {
	OperatorsRegistered int
	OperatorsRemoved    int
	BlocksValidated     int
	SignaturesVerified  int
	SignaturesFailed    int
}

// Observer is the narrow event contract described in §9: one method per
// event kind rather than a dynamic listener-array pub/sub mechanism.
type Observer interface {
	OnSelfInitialized(op *Operator)
	OnOperatorRegistered(op *Operator)
	OnOperatorRemoved(pk ed25519.PublicKey)
}

// NopObserver implements Observer with no-ops; the default when none is
// configured.
type NopObserver struct{}

func (NopObserver) OnSelfInitialized(*Operator)             {}
func (NopObserver) OnOperatorRegistered(*Operator)           {}
func (NopObserver) OnOperatorRemoved(ed25519.PublicKey)      {}

// Config configures a Registry. Zero-value fields fall back to defaults in
// New, matching this codebase's cfg == nil / cfg.Field == nil idiom.
type Config struct {
	MinOperators int
	MaxOperators int
	Logger       *log.Logger
	Observer     Observer
}

// DefaultConfig returns the registry's default configuration.
func DefaultConfig() *Config {
	return &Config{
		MinOperators: 1,
		MaxOperators: 100,
		Logger:       log.New(log.Writer(), "[Registry] ", log.LstdFlags),
		Observer:     NopObserver{},
	}
}

// Registry is the operator table plus the self-signing key. It is
// single-writer: callers (typically one Chain Manager) must serialize
// register/remove/sign/verify_block calls, though the mutex also makes it
// safe to call concurrently if an embedder chooses to.
type Registry struct {
	mu sync.RWMutex

	minOperators int
	maxOperators int
	logger       *log.Logger
	observer     Observer

	operators map[string]*Operator // keyed by hex-encoded public key
	selfKey   string                // hex public key of the self operator, "" if uninitialized
	selfPriv  ed25519.PrivateKey

	stats Stats
}

// New constructs a Registry. A nil cfg, or zero fields within one, fall
// back to DefaultConfig's values.
func New(cfg *Config) *Registry {
	d := DefaultConfig()
	if cfg == nil {
		cfg = d
	}
	if cfg.MinOperators == 0 {
		cfg.MinOperators = d.MinOperators
	}
	if cfg.MaxOperators == 0 {
		cfg.MaxOperators = d.MaxOperators
	}
	if cfg.Logger == nil {
		cfg.Logger = d.Logger
	}
	if cfg.Observer == nil {
		cfg.Observer = d.Observer
	}
	return &Registry{
		minOperators: cfg.MinOperators,
		maxOperators: cfg.MaxOperators,
		logger:       cfg.Logger,
		observer:     cfg.Observer,
		operators:    make(map[string]*Operator),
	}
}

func keyHex(pk ed25519.PublicKey) string { return hex.EncodeToString(pk) }

// SelfOptions configures InitializeSelf.
type SelfOptions struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	Name       string
	Weight     int
}

// InitializeSelf generates a keypair if one isn't supplied, and registers
// it as the self operator. Calling it again with identical inputs is a
// no-op; calling it again with different inputs fails with
// ErrAlreadyInitialized.
func (r *Registry) InitializeSelf(opts SelfOptions) (*Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selfKey != "" {
		existing := r.operators[r.selfKey]
		if opts.PublicKey != nil && keyHex(opts.PublicKey) != r.selfKey {
			return nil, ErrAlreadyInitialized
		}
		if opts.Name != "" && opts.Name != existing.Name {
			return nil, ErrAlreadyInitialized
		}
		if opts.Weight > 0 && opts.Weight != existing.Weight {
			return nil, ErrAlreadyInitialized
		}
		return existing, nil
	}

	pub, priv := opts.PublicKey, opts.PrivateKey
	if pub == nil || priv == nil {
		kp, err := pojcrypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		pub, priv = kp.PublicKey, kp.PrivateKey
	}

	weight := opts.Weight
	if weight <= 0 {
		weight = 1
	}

	op := &Operator{
		PublicKey:    pub,
		Name:         opts.Name,
		Weight:       weight,
		IsSelf:       true,
		RegisteredAt: time.Now(),
	}

	k := keyHex(pub)
	r.operators[k] = op
	r.selfKey = k
	r.selfPriv = priv
	r.stats.OperatorsRegistered++

	r.logger.Printf("Self operator initialized: %s", k)
	r.observer.OnSelfInitialized(op)
	return op, nil
}

// Sign produces a raw Ed25519 signature over msg using the self key.
func (r *Registry) Sign(msg []byte) ([]byte, error) {
	r.mu.RLock()
	priv := r.selfPriv
	r.mu.RUnlock()
	if priv == nil {
		return nil, ErrNotInitialized
	}
	return pojcrypto.Sign(priv, msg)
}

// RegisterResult reports whether RegisterOperator added a new entry or
// updated an existing one.
type RegisterResult int

const (
	Added RegisterResult = iota
	Updated
)

// OperatorOptions configures RegisterOperator.
type OperatorOptions struct {
	PublicKey ed25519.PublicKey
	Name      string
	Weight    int
}

// RegisterOperator adds or updates a peer operator's registration.
func (r *Registry) RegisterOperator(opts OperatorOptions) (RegisterResult, error) {
	if len(opts.PublicKey) == 0 {
		return 0, ErrMissingKey
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyHex(opts.PublicKey)
	weight := opts.Weight
	if weight <= 0 {
		weight = 1
	}

	if existing, ok := r.operators[k]; ok {
		existing.Name = opts.Name
		existing.Weight = weight
		return Updated, nil
	}

	if len(r.operators) >= r.maxOperators {
		return 0, ErrCapacityExceeded
	}

	op := &Operator{
		PublicKey:    opts.PublicKey,
		Name:         opts.Name,
		Weight:       weight,
		RegisteredAt: time.Now(),
	}
	r.operators[k] = op
	r.stats.OperatorsRegistered++
	r.logger.Printf("Registered operator: %s (%s)", opts.Name, k)
	r.observer.OnOperatorRegistered(op)
	return Added, nil
}

// RemoveOperator removes a peer operator. Removing the self operator
// always fails; removing an unknown key returns (false, nil).
func (r *Registry) RemoveOperator(pk ed25519.PublicKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyHex(pk)
	if k == r.selfKey {
		return false, ErrCannotRemoveSelf
	}
	if _, ok := r.operators[k]; !ok {
		return false, nil
	}
	delete(r.operators, k)
	r.stats.OperatorsRemoved++
	r.logger.Printf("Removed operator: %s", k)
	r.observer.OnOperatorRemoved(pk)
	return true, nil
}

// VerifySignature checks a raw signature against a registered public key.
// Returns false (never an error) if pk is unregistered or malformed.
func (r *Registry) VerifySignature(msg, sig []byte, pk ed25519.PublicKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.operators[keyHex(pk)]
	if !ok {
		return false
	}
	ok = pojcrypto.Verify(op.PublicKey, msg, sig)
	if ok {
		r.stats.SignaturesVerified++
	} else {
		r.stats.SignaturesFailed++
	}
	return ok
}

// SignBlock signs header with the self key and attaches operator metadata,
// producing the fields a freshly-created block carries (§4E step 7).
func (r *Registry) SignBlock(header blockcodec.Header) (operator []byte, operatorName string, signature []byte, err error) {
	r.mu.RLock()
	priv := r.selfPriv
	selfKey := r.selfKey
	r.mu.RUnlock()
	if priv == nil {
		return nil, "", nil, ErrNotInitialized
	}

	r.mu.Lock()
	self := r.operators[selfKey]
	name := self.Name
	r.mu.Unlock()

	header.Operator = self.PublicKey
	sig, err := pojcrypto.Sign(priv, blockcodec.CanonicalHeaderBytes(header))
	if err != nil {
		return nil, "", nil, err
	}

	r.mu.Lock()
	self.BlocksProposed++
	self.LastBlockAt = time.Now()
	r.mu.Unlock()

	return self.PublicKey, name, sig, nil
}

// VerifyBlock checks a received block's signature against the registry,
// returning one of the typed reasons in §4B/§7.
func (r *Registry) VerifyBlock(b *blockcodec.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.BlocksValidated++

	if len(b.Operator) == 0 {
		return ErrNoOperator
	}
	if len(b.Signature) == 0 {
		return ErrNoSignature
	}
	op, ok := r.operators[hex.EncodeToString(b.Operator)]
	if !ok {
		r.stats.SignaturesFailed++
		return ErrUnknownOperator
	}
	if !pojcrypto.Verify(op.PublicKey, blockcodec.CanonicalHeaderBytes(b.Header()), b.Signature) {
		r.stats.SignaturesFailed++
		return ErrBadSignature
	}
	r.stats.SignaturesVerified++
	return nil
}

// HasQuorum reports whether the registered operator count meets the
// configured minimum. Used only for readiness signaling, never for voting.
func (r *Registry) HasQuorum() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.operators) >= r.minOperators
}

// Stats returns a snapshot of the registry's counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// SelfPublicKey returns the self operator's public key, or nil if
// uninitialized.
func (r *Registry) SelfPublicKey() ed25519.PublicKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selfKey == "" {
		return nil
	}
	return r.operators[r.selfKey].PublicKey
}
