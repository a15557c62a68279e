package merkletree

import (
	"github.com/dapol-go/dapol/primitives"
	"github.com/dapol-go/dapol/secret"
)

// Digest is a fixed-width 32-byte cryptographic hash output.
type Digest = primitives.Digest

// Node is one entry in the tree: a leaf, an interior node, or a padding
// node. Every node carries its own commitment, plaintext sum (known to the
// builder/prover, never serialized), aggregate blinding factor, and binding
// hash, per spec §3.1.
type Node struct {
	Coord      Coordinate
	Commitment primitives.Point
	Value      uint64
	Blinding   primitives.Scalar
	Hash       Digest
}

// Leaf constructs the leaf node for entityID with liability value, using the
// blinding factor and salt derived for it by the secret package. Invariant 2:
// L.commitment = v·G + r·H, L.hash = H(L.commitment ‖ salt).
func Leaf(coord Coordinate, value uint64, l secret.Leaf) Node {
	commitment := primitives.Commit(value, l.Blinding)
	hash := primitives.HashNode(commitment, Digest(l.Salt))
	return Node{
		Coord:      coord,
		Commitment: commitment,
		Value:      value,
		Blinding:   l.Blinding,
		Hash:       hash,
	}
}

// Combine builds the parent of left and right, per invariant 1:
// P.commitment = L.commitment + R.commitment, P.value = L.value + R.value,
// P.hash = H(P.commitment ‖ L.hash ‖ R.hash).
func Combine(left, right Node) Node {
	commitment := left.Commitment.Add(right.Commitment)
	hash := primitives.HashNode(commitment, left.Hash, right.Hash)
	return Node{
		Coord:      Parent(left.Coord),
		Commitment: commitment,
		Value:      left.Value + right.Value,
		Blinding:   left.Blinding.Add(right.Blinding),
		Hash:       hash,
	}
}

// Pad produces the deterministic zero-value node for a subtree with no
// placed leaves at coord, per invariant 3: two independent builders given
// the same master secret produce bit-identical padding nodes.
func Pad(coord Coordinate, master secret.Secret) (Node, error) {
	p, err := secret.DerivePadding(master, coord.X, coord.Y)
	if err != nil {
		return Node{}, err
	}
	commitment := primitives.Commit(0, p.Blinding)
	hash := primitives.HashNode(commitment, Digest(p.Extra))
	return Node{
		Coord:      coord,
		Commitment: commitment,
		Value:      0,
		Blinding:   p.Blinding,
		Hash:       hash,
	}, nil
}
