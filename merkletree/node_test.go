package merkletree

import (
	"testing"

	"github.com/dapol-go/dapol/secret"
)

func testMaster() secret.Secret {
	var m secret.Secret
	m[15] = 0x42
	return m
}

func TestCombineIsInteriorInvariant(t *testing.T) {
	m := testMaster()
	ls, err := secret.Derive(m, []byte("alice"))
	if err != nil {
		t.Fatal(err)
	}
	rs, err := secret.Derive(m, []byte("bob"))
	if err != nil {
		t.Fatal(err)
	}
	left := Leaf(Coordinate{X: 0, Y: 0}, 3, ls)
	right := Leaf(Coordinate{X: 1, Y: 0}, 5, rs)

	parent := Combine(left, right)
	if parent.Value != 8 {
		t.Errorf("parent.Value = %d, want 8", parent.Value)
	}
	if parent.Coord != (Coordinate{X: 0, Y: 1}) {
		t.Errorf("parent.Coord = %v, want {0 1}", parent.Coord)
	}
	if !parent.Commitment.Equal(left.Commitment.Add(right.Commitment)) {
		t.Errorf("parent.Commitment does not equal the sum of its children's commitments")
	}
}

func TestPadIsDeterministic(t *testing.T) {
	m := testMaster()
	coord := Coordinate{X: 5, Y: 2}
	a, err := Pad(coord, m)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Pad(coord, m)
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash != b.Hash || !a.Commitment.Equal(b.Commitment) {
		t.Errorf("Pad is not deterministic for identical (master, coord)")
	}
	if a.Value != 0 {
		t.Errorf("padding node value = %d, want 0", a.Value)
	}
}

func TestPadVariesByCoordinate(t *testing.T) {
	m := testMaster()
	a, err := Pad(Coordinate{X: 1, Y: 2}, m)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Pad(Coordinate{X: 2, Y: 2}, m)
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash == b.Hash {
		t.Errorf("padding nodes at different coordinates must hash differently")
	}
}

func TestLeafHashBindsSalt(t *testing.T) {
	m := testMaster()
	ls, err := secret.Derive(m, []byte("alice"))
	if err != nil {
		t.Fatal(err)
	}
	leaf := Leaf(Coordinate{X: 0, Y: 0}, 3, ls)

	other := ls
	other.Salt[0] ^= 0xFF
	tampered := Leaf(Coordinate{X: 0, Y: 0}, 3, other)

	if leaf.Hash == tampered.Hash {
		t.Errorf("leaf hash must change when the salt changes")
	}
}
