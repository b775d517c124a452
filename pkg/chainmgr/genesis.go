// Copyright 2025 Certen Protocol

package chainmgr

import "github.com/certen/poj-chain/pkg/pojcrypto"

// genesisPrevHashSeed is the domain-separated constant hashed to produce the
// genesis block's prev_hash (§3, §4E step 1).
var genesisPrevHashSeed = []byte("CYNIC_GENESIS_φ")

// GenesisPrevHash is sha256("CYNIC_GENESIS_φ"), the prev_hash every genesis
// block (slot 0) carries.
func GenesisPrevHash() pojcrypto.Hash {
	return pojcrypto.SHA256(genesisPrevHashSeed)
}
