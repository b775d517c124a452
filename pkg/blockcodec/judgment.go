// Copyright 2025 Certen Protocol

package blockcodec

import (
	"encoding/json"

	"github.com/certen/poj-chain/pkg/pojcrypto"
)

// JudgmentRef is the opaque reference the chain persists for one judgment.
// The body/semantics of the judgment itself are out of scope for the core.
type JudgmentRef struct {
	JudgmentID string `json:"judgment_id"`
	QScore     *int   `json:"q_score,omitempty"`
	Verdict    string `json:"verdict,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// judgmentRefIngress accepts both the canonical snake_case spelling and the
// camelCase spelling the surrounding system may emit, per the §9 redesign
// note on mixed-case field ingress. Deserializers MUST accept both; the
// canonical internal model (JudgmentRef) always uses snake_case.
type judgmentRefIngress struct {
	JudgmentID  string `json:"judgment_id"`
	JudgmentID2 string `json:"judgmentId"`
	QScore      *int   `json:"q_score"`
	QScore2     *int   `json:"qScore"`
	Verdict     string `json:"verdict"`
	Timestamp   int64  `json:"timestamp"`
}

// DecodeJudgmentRef parses a judgment reference accepting either field-name
// spelling, and emits the canonical snake_case form.
func DecodeJudgmentRef(data []byte) (JudgmentRef, error) {
	var in judgmentRefIngress
	if err := json.Unmarshal(data, &in); err != nil {
		return JudgmentRef{}, err
	}
	ref := JudgmentRef{
		JudgmentID: in.JudgmentID,
		Verdict:    in.Verdict,
		Timestamp:  in.Timestamp,
	}
	if ref.JudgmentID == "" {
		ref.JudgmentID = in.JudgmentID2
	}
	if in.QScore != nil {
		ref.QScore = in.QScore
	} else if in.QScore2 != nil {
		ref.QScore = in.QScore2
	}
	return ref, nil
}

// canonicalJudgmentFields mirrors canonicalFields' discipline: fixed field
// order, no maps, deterministic bytes for hashing.
type canonicalJudgmentFields struct {
	JudgmentID string `json:"judgment_id"`
	QScore     *int   `json:"q_score"`
	Verdict    string `json:"verdict"`
	Timestamp  int64  `json:"timestamp"`
}

// CanonicalJudgmentBytes returns the deterministic encoding of a judgment
// reference's four fields, used as the pre-image of its leaf hash.
func CanonicalJudgmentBytes(j JudgmentRef) []byte {
	fields := canonicalJudgmentFields{
		JudgmentID: j.JudgmentID,
		QScore:     j.QScore,
		Verdict:    j.Verdict,
		Timestamp:  j.Timestamp,
	}
	b, _ := json.Marshal(fields)
	return b
}

// HashJudgmentRef computes h_j = sha256(canonical_judgment_ref(j)) (§4E
// step 4).
func HashJudgmentRef(j JudgmentRef) pojcrypto.Hash {
	return pojcrypto.SHA256(CanonicalJudgmentBytes(j))
}
