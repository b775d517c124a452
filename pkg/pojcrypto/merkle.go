// Copyright 2025 Certen Protocol
//
// Binary Merkle tree over judgment-reference hashes. The construction rule
// (duplicate the last leaf on an odd count) is preserved bit-for-bit from
// the chain this protocol was distilled from, including its known
// second-preimage weakness under leaf duplication: an implementer choosing
// a fresh design would want a domain-separated leaf/inner-node prefix
// instead, but wire compatibility requires carrying the rule forward as-is.

package pojcrypto

import "crypto/subtle"

// emptyTreeSeed and genesisSeed are the domain-separated constants hashed
// to produce the empty-Merkle root and the anomalous genesis root
// respectively (see §4A / §9 of the design).
var (
	emptyTreeSeed = []byte("empty")
	genesisSeed   = []byte("genesis")
)

// EmptyMerkleRoot is sha256("empty"), the root of a tree with zero leaves.
func EmptyMerkleRoot() Hash {
	return SHA256(emptyTreeSeed)
}

// GenesisJudgmentsRoot is sha256("genesis"), the root the chain's genesis
// block carries in place of the empty-Merkle value. Preserved verbatim for
// compatibility; see SPEC_FULL.md §9.
func GenesisJudgmentsRoot() Hash {
	return SHA256(genesisSeed)
}

// MerkleRoot computes the binary Merkle root over leaves using the chain's
// duplicate-last-on-odd rule. An empty slice yields EmptyMerkleRoot(); a
// single leaf is returned unchanged.
func MerkleRoot(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return EmptyMerkleRoot()
	}
	level := make([]Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

// Tree retains every level of a Merkle construction so that inclusion
// proofs can be produced for individual leaves after the fact.
type Tree struct {
	levels [][]Hash // levels[0] is the leaf level
	leaves int      // original (pre-padding) leaf count
}

// BuildTree constructs a Tree over leaves, retaining all intermediate
// levels for proof generation. Mirrors MerkleRoot's padding rule exactly,
// so Tree.Root() always equals MerkleRoot(leaves).
func BuildTree(leaves []Hash) *Tree {
	t := &Tree{leaves: len(leaves)}
	if len(leaves) == 0 {
		t.levels = [][]Hash{{EmptyMerkleRoot()}}
		return t
	}

	level := make([]Hash, len(leaves))
	copy(level, leaves)
	t.levels = append(t.levels, append([]Hash{}, level...))

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t
}

// Root returns the tree's Merkle root.
func (t *Tree) Root() Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// ProofStep is one sibling hash on the path from a leaf to the root.
type ProofStep struct {
	Sibling Hash
	// OnRight reports whether Sibling sits to the right of the running hash
	// at this step (i.e. the running hash is the left operand of hashPair).
	OnRight bool
}

// GenerateProof returns the inclusion proof for the leaf at index idx.
func (t *Tree) GenerateProof(idx int) ([]ProofStep, error) {
	if idx < 0 || idx >= t.leaves {
		return nil, ErrLeafNotFound
	}
	var proof []ProofStep
	for lvl := 0; lvl < len(t.levels)-1; lvl++ {
		level := t.levels[lvl]
		siblingIdx := idx ^ 1
		if siblingIdx >= len(level) {
			siblingIdx = idx // odd-length level duplicated the last leaf
		}
		proof = append(proof, ProofStep{
			Sibling: level[siblingIdx],
			OnRight: siblingIdx > idx,
		})
		idx /= 2
	}
	return proof, nil
}

// VerifyProof checks that leaf combines through proof to reach root, using
// a constant-time comparison at the final step.
func VerifyProof(leaf Hash, proof []ProofStep, root Hash) bool {
	running := leaf
	for _, step := range proof {
		if step.OnRight {
			running = hashPair(running, step.Sibling)
		} else {
			running = hashPair(step.Sibling, running)
		}
	}
	return subtle.ConstantTimeCompare(running[:], root[:]) == 1
}
