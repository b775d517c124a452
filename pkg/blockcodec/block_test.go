// Copyright 2025 Certen Protocol

package blockcodec

import (
	"testing"

	"github.com/certen/poj-chain/pkg/pojcrypto"
)

func sampleBlock() *Block {
	b := &Block{
		Slot:          1,
		PrevHash:      pojcrypto.SHA256([]byte("prev")),
		JudgmentsRoot: pojcrypto.SHA256([]byte("root")),
		Timestamp:     1700000000000,
		Operator:      make([]byte, 32),
		OperatorName:  "operator-1",
		Judgments: []JudgmentRef{
			{JudgmentID: "a", Timestamp: 1},
			{JudgmentID: "b", Timestamp: 2},
		},
		Signature: make([]byte, 64),
	}
	for i := range b.Operator {
		b.Operator[i] = byte(i)
	}
	b.Hash = b.RecomputeHash()
	return b
}

func TestHashHeader_Deterministic(t *testing.T) {
	b := sampleBlock()
	h1 := HashHeader(b.Header(), b.Signature)
	h2 := HashHeader(b.Header(), b.Signature)
	if h1 != h2 {
		t.Fatalf("HashHeader not deterministic: %x != %x", h1, h2)
	}
}

func TestHashHeader_IgnoresOperatorNameAndJudgments(t *testing.T) {
	b := sampleBlock()
	base := HashHeader(b.Header(), b.Signature)

	b.OperatorName = "renamed"
	b.Judgments = append(b.Judgments, JudgmentRef{JudgmentID: "extra"})
	after := HashHeader(b.Header(), b.Signature)

	if base != after {
		t.Fatalf("hash changed when only operator_name/judgments changed")
	}
}

func TestWireRoundTrip_PreservesHash(t *testing.T) {
	b := sampleBlock()
	wire := b.ToWire()
	back, err := FromWire(wire)
	if err != nil {
		t.Fatalf("FromWire: %v", err)
	}
	if back.Hash != b.Hash {
		t.Fatalf("hash changed across wire round-trip: %x != %x", back.Hash, b.Hash)
	}
	if back.RecomputeHash() != b.Hash {
		t.Fatalf("recomputed hash after round-trip diverged: %x != %x", back.RecomputeHash(), b.Hash)
	}
}

func TestDecodeJudgmentRef_AcceptsBothSpellings(t *testing.T) {
	snake := []byte(`{"judgment_id":"x","q_score":42,"verdict":"ok","timestamp":5}`)
	camel := []byte(`{"judgmentId":"x","qScore":42,"verdict":"ok","timestamp":5}`)

	a, err := DecodeJudgmentRef(snake)
	if err != nil {
		t.Fatalf("DecodeJudgmentRef(snake): %v", err)
	}
	b, err := DecodeJudgmentRef(camel)
	if err != nil {
		t.Fatalf("DecodeJudgmentRef(camel): %v", err)
	}
	if a.JudgmentID != b.JudgmentID || *a.QScore != *b.QScore {
		t.Fatalf("snake/camel ingress diverged: %+v vs %+v", a, b)
	}
}

func TestRecomputeJudgmentsRoot_MatchesMerkleRoot(t *testing.T) {
	b := sampleBlock()
	leaves := make([]pojcrypto.Hash, len(b.Judgments))
	for i, j := range b.Judgments {
		leaves[i] = HashJudgmentRef(j)
	}
	want := pojcrypto.MerkleRoot(leaves)
	if got := b.RecomputeJudgmentsRoot(); got != want {
		t.Fatalf("RecomputeJudgmentsRoot() = %x, want %x", got, want)
	}
}
