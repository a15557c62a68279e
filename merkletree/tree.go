package merkletree

import (
	"github.com/dapol-go/dapol/primitives"
	"github.com/dapol-go/dapol/secret"
)

// Tree is an immutable, fully built DAPOL+ sparse Merkle sum tree.
type Tree struct {
	Height                 Height
	StoreDepth             uint8
	Root                   Node
	Store                  *Store
	MasterSecretCommitment primitives.Point

	// RangeBits is the per-node range bound every inclusion proof generated
	// against this tree is aggregated over. Build stamps it from
	// BuildParams.RangeBits so Prove/Verify need not take it as a separate
	// argument.
	RangeBits uint8

	// Leaves holds every placed (coordinate, entity id, value) triple,
	// sorted by coordinate x, so the proof package can recompute any
	// sibling subtree the store discarded below the retention frontier.
	// It is nil on a Tree produced by DeserializeTree from input whose leaf
	// section lists no leaves (see serialize.DeserializeTree); proof
	// generation against such a tree can only reach coordinates the
	// store actually retained.
	Leaves []LeafInput

	leafIndex map[string]int
}

// RootHash returns the tree's root digest.
func (t *Tree) RootHash() Digest {
	return t.Root.Hash
}

// LeafByEntity returns the LeafInput placed for entityID, if known.
func (t *Tree) LeafByEntity(entityID []byte) (LeafInput, bool) {
	if t.leafIndex == nil {
		return LeafInput{}, false
	}
	i, ok := t.leafIndex[string(entityID)]
	if !ok {
		return LeafInput{}, false
	}
	return t.Leaves[i], true
}

// SetLeaves installs leaves (and builds the entity lookup index), used by
// Build and by DeserializeTree when the leaf extension section is present.
func (t *Tree) SetLeaves(leaves []LeafInput) {
	t.Leaves = leaves
	t.leafIndex = make(map[string]int, len(leaves))
	for i, l := range leaves {
		t.leafIndex[string(l.EntityID)] = i
	}
}

// LeafInput describes one placed entity awaiting construction into a leaf
// node: its assigned coordinate, id, and plaintext liability value.
type LeafInput struct {
	Coord    Coordinate
	EntityID []byte
	Value    uint64
}

// BuildParams configures a Build call. Zero values are not valid; callers
// go through dapol.BuildParams.normalize (or set every field explicitly)
// before calling Build.
type BuildParams struct {
	Height     Height
	StoreDepth uint8
	MaxThreads int
	RangeBits  uint8
}

// masterSecretCommitment derives a binding fingerprint of master that can
// be safely serialized in place of the secret itself: a Pedersen commitment
// to the value 0 under a blinding factor derived solely from master, so
// DeserializeTree can check that the master secret supplied matches the one
// the tree was built with without ever storing it in the clear.
func masterSecretCommitment(master secret.Secret) (primitives.Point, error) {
	blinding, err := primitives.HashToScalar("dapol/master-commit", master[:])
	if err != nil {
		return primitives.Point{}, err
	}
	return primitives.Commit(0, blinding), nil
}
