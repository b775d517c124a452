// Copyright 2025 Certen Protocol

package pojcrypto

import "testing"

func TestMerkleRoot_Empty(t *testing.T) {
	got := MerkleRoot(nil)
	want := SHA256([]byte("empty"))
	if got != want {
		t.Fatalf("MerkleRoot(nil) = %x, want %x", got, want)
	}
}

func TestMerkleRoot_SingleLeaf(t *testing.T) {
	leaf := SHA256([]byte("judgment-a"))
	got := MerkleRoot([]Hash{leaf})
	if got != leaf {
		t.Fatalf("MerkleRoot of one leaf = %x, want leaf itself %x", got, leaf)
	}
}

func TestMerkleRoot_TwoLeaves(t *testing.T) {
	a := SHA256([]byte("a"))
	b := SHA256([]byte("b"))
	got := MerkleRoot([]Hash{a, b})
	want := hashPair(a, b)
	if got != want {
		t.Fatalf("MerkleRoot([a,b]) = %x, want %x", got, want)
	}
}

func TestMerkleRoot_OddCountDuplicatesLast(t *testing.T) {
	a := SHA256([]byte("a"))
	b := SHA256([]byte("b"))
	c := SHA256([]byte("c"))

	ab := hashPair(a, b)
	cc := hashPair(c, c)
	want := hashPair(ab, cc)

	got := MerkleRoot([]Hash{a, b, c})
	if got != want {
		t.Fatalf("MerkleRoot([a,b,c]) = %x, want %x", got, want)
	}
}

func TestBuildTree_RootMatchesMerkleRoot(t *testing.T) {
	leaves := []Hash{
		SHA256([]byte("1")),
		SHA256([]byte("2")),
		SHA256([]byte("3")),
		SHA256([]byte("4")),
		SHA256([]byte("5")),
	}
	tree := BuildTree(leaves)
	if tree.Root() != MerkleRoot(leaves) {
		t.Fatalf("Tree.Root() diverged from MerkleRoot() for odd leaf count")
	}
}

func TestGenerateProof_VerifiesForEveryLeaf(t *testing.T) {
	leaves := []Hash{
		SHA256([]byte("1")),
		SHA256([]byte("2")),
		SHA256([]byte("3")),
		SHA256([]byte("4")),
		SHA256([]byte("5")),
	}
	tree := BuildTree(leaves)
	root := tree.Root()

	for i, leaf := range leaves {
		proof, err := tree.GenerateProof(i)
		if err != nil {
			t.Fatalf("GenerateProof(%d): %v", i, err)
		}
		if !VerifyProof(leaf, proof, root) {
			t.Fatalf("VerifyProof failed for leaf %d", i)
		}
	}
}

func TestGenerateProof_OutOfRange(t *testing.T) {
	tree := BuildTree([]Hash{SHA256([]byte("only"))})
	if _, err := tree.GenerateProof(5); err != ErrLeafNotFound {
		t.Fatalf("GenerateProof(5) error = %v, want ErrLeafNotFound", err)
	}
}

func TestVerifyProof_RejectsWrongLeaf(t *testing.T) {
	leaves := []Hash{SHA256([]byte("1")), SHA256([]byte("2")), SHA256([]byte("3"))}
	tree := BuildTree(leaves)
	proof, err := tree.GenerateProof(0)
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}
	wrongLeaf := SHA256([]byte("not-a-member"))
	if VerifyProof(wrongLeaf, proof, tree.Root()) {
		t.Fatalf("VerifyProof accepted a non-member leaf")
	}
}
