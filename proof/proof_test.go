package proof

import (
	"context"
	"fmt"
	"testing"

	"github.com/dapol-go/dapol/merkletree"
	"github.com/dapol-go/dapol/ndm"
	"github.com/dapol-go/dapol/secret"
)

func buildTestTree(t *testing.T, n int, height merkletree.Height, storeDepth uint8) (*merkletree.Tree, secret.Secret, []string) {
	t.Helper()
	var master secret.Secret
	master[0] = 0x11

	ids := make([][]byte, n)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("entity-%d", i)
		ids[i] = []byte(name)
		names[i] = name
	}

	placement, err := ndm.Place(ids, master, uint8(height))
	if err != nil {
		t.Fatalf("ndm.Place: %v", err)
	}

	leaves := make([]merkletree.LeafInput, n)
	for i, id := range ids {
		x, _ := placement.IndexOf(id)
		leaves[i] = merkletree.LeafInput{Coord: merkletree.Coordinate{X: x, Y: 0}, EntityID: id, Value: uint64(i + 1)}
	}

	tree, err := merkletree.Build(context.Background(), leaves, master, merkletree.BuildParams{
		Height:     height,
		StoreDepth: storeDepth,
		MaxThreads: 4,
		RangeBits:  16,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tree, master, names
}

func TestGenerateAndVerifyRoundTrip(t *testing.T) {
	tree, master, names := buildTestTree(t, 5, 5, 2)

	for i, name := range names {
		p, err := Generate(context.Background(), tree, master, []byte(name), 16)
		if err != nil {
			t.Fatalf("Generate(%q): %v", name, err)
		}

		leafSecret, err := secret.Derive(master, []byte(name))
		if err != nil {
			t.Fatal(err)
		}
		expectedCommitment := merkletree.Leaf(p.LeafCoord, uint64(i+1), leafSecret).Commitment

		if err := Verify(p, tree.RootHash(), expectedCommitment); err != nil {
			t.Errorf("Verify(%q) = %v, want nil", name, err)
		}
	}
}

func TestGenerateUnknownEntity(t *testing.T) {
	tree, master, _ := buildTestTree(t, 3, 4, 2)
	_, err := Generate(context.Background(), tree, master, []byte("ghost"), 16)
	if err == nil {
		t.Fatal("expected UnknownEntity error")
	}
}

func TestVerifyRejectsTamperedSiblingHash(t *testing.T) {
	tree, master, names := buildTestTree(t, 5, 5, 2)
	name := names[0]

	p, err := Generate(context.Background(), tree, master, []byte(name), 16)
	if err != nil {
		t.Fatal(err)
	}
	leafSecret, err := secret.Derive(master, []byte(name))
	if err != nil {
		t.Fatal(err)
	}
	expected := merkletree.Leaf(p.LeafCoord, 1, leafSecret).Commitment

	p.Path[0].Hash[0] ^= 0xFF
	if err := Verify(p, tree.RootHash(), expected); err == nil {
		t.Fatal("expected Verify to fail after tampering with a sibling hash")
	}
}

func TestDeterminismAcrossStoreDepths(t *testing.T) {
	treeShallow, master, names := buildTestTree(t, 20, 8, 1)
	treeDeep, _, _ := buildTestTree(t, 20, 8, 8)

	if treeShallow.RootHash() != treeDeep.RootHash() {
		t.Fatalf("root hash differs across store depths")
	}

	for i, name := range names {
		pShallow, err := Generate(context.Background(), treeShallow, master, []byte(name), 16)
		if err != nil {
			t.Fatalf("Generate(shallow, %q): %v", name, err)
		}
		pDeep, err := Generate(context.Background(), treeDeep, master, []byte(name), 16)
		if err != nil {
			t.Fatalf("Generate(deep, %q): %v", name, err)
		}

		leafSecret, err := secret.Derive(master, []byte(name))
		if err != nil {
			t.Fatal(err)
		}
		expected := merkletree.Leaf(pShallow.LeafCoord, uint64(i+1), leafSecret).Commitment

		if err := Verify(pShallow, treeShallow.RootHash(), expected); err != nil {
			t.Errorf("Verify(shallow, %q) = %v", name, err)
		}
		if err := Verify(pDeep, treeDeep.RootHash(), expected); err != nil {
			t.Errorf("Verify(deep, %q) = %v", name, err)
		}
	}
}
