// Package dapol provides the public API for building a DAPOL+ sparse
// Merkle sum tree over a set of entities, generating inclusion proofs
// against it, and persisting both to the canonical wire format.
package dapol

import (
	"context"
	"io"
	"runtime"

	"github.com/dapol-go/dapol/dapolerr"
	"github.com/dapol-go/dapol/merkletree"
	"github.com/dapol-go/dapol/ndm"
	"github.com/dapol-go/dapol/primitives"
	"github.com/dapol-go/dapol/proof"
	"github.com/dapol-go/dapol/secret"
	"github.com/dapol-go/dapol/serialize"
)

// Entity is one liability holder: an opaque identifier and a plaintext
// liability value committed into the tree.
type Entity struct {
	ID        []byte
	Liability uint64
}

// BuildParams configures BuildTree. Height is the only required field;
// StoreDepth, MaxThreads and RangeBits default per normalize when left at
// their zero value.
type BuildParams struct {
	// Height is the tree height H, in [2, 64].
	Height uint8

	// StoreDepth selects which levels the store retains: every node at
	// level y >= Height-StoreDepth, i.e. the top StoreDepth+1 levels
	// counting the root (see merkletree.Build). Zero means "use the
	// default," height/2.
	StoreDepth uint8

	// MaxThreads bounds the build's worker pool. Zero or negative means
	// "use runtime.GOMAXPROCS(0)" — the original Rust source's
	// max_thread_count.rs clamps rather than errors on an out-of-range
	// thread count, and this mirrors that (see DESIGN.md).
	MaxThreads int

	// RangeBits bounds every committed value to [0, 2^RangeBits). Zero
	// means "use the default," 64.
	RangeBits uint8
}

func (p BuildParams) normalize() merkletree.BuildParams {
	height := p.Height
	storeDepth := p.StoreDepth
	if storeDepth == 0 {
		storeDepth = height / 2
	}
	maxThreads := p.MaxThreads
	if maxThreads <= 0 {
		maxThreads = runtime.GOMAXPROCS(0)
	}
	rangeBits := p.RangeBits
	if rangeBits == 0 {
		rangeBits = 64
	}
	return merkletree.BuildParams{
		StoreDepth: storeDepth,
		MaxThreads: maxThreads,
		RangeBits:  rangeBits,
	}
}

// Tree is a built DAPOL+ tree, ready to be queried for its root hash,
// serialized, or used to generate inclusion proofs. It retains the master
// secret it was built or deserialized with, per Design Notes §9: callers
// supply the secret once, at load time, rather than on every Prove call.
type Tree struct {
	inner  *merkletree.Tree
	master secret.Secret
}

// BuildTree places entities into leaf coordinates via the non-deterministic
// mapping (ndm.Place) and builds the tree over them (merkletree.Build).
func BuildTree(ctx context.Context, entities []Entity, master secret.Secret, params BuildParams) (*Tree, error) {
	if len(entities) == 0 {
		return nil, dapolerr.New(dapolerr.InvalidArgument, dapolerr.EmptyEntitySet, "dapol: no entities to build")
	}

	height, err := merkletree.NewHeight(params.Height)
	if err != nil {
		return nil, err
	}

	mp := params.normalize()
	mp.Height = height

	ids := make([][]byte, len(entities))
	seen := make(map[string]bool, len(entities))
	for i, e := range entities {
		if seen[string(e.ID)] {
			return nil, dapolerr.Errorf(dapolerr.InvalidArgument, dapolerr.DuplicateEntity,
				"dapol: duplicate entity id %q", e.ID)
		}
		seen[string(e.ID)] = true
		ids[i] = e.ID
	}

	placement, err := ndm.Place(ids, master, uint8(height))
	if err != nil {
		return nil, err
	}

	leaves := make([]merkletree.LeafInput, len(entities))
	for i, e := range entities {
		x, _ := placement.IndexOf(e.ID)
		leaves[i] = merkletree.LeafInput{Coord: merkletree.Coordinate{X: x, Y: 0}, EntityID: e.ID, Value: e.Liability}
	}

	t, err := merkletree.Build(ctx, leaves, master, mp)
	if err != nil {
		return nil, err
	}
	return &Tree{inner: t, master: master}, nil
}

// RootHash returns the tree's root digest.
func (t *Tree) RootHash() merkletree.Digest {
	return t.inner.RootHash()
}

// Serialize writes the tree to w in the canonical wire format.
func (t *Tree) Serialize(w io.Writer) error {
	return serialize.SerializeTree(w, t.inner)
}

// DeserializeTree reads a tree written by (*Tree).Serialize. master must be
// the secret the tree was built with.
func DeserializeTree(r io.Reader, master secret.Secret) (*Tree, error) {
	inner, err := serialize.DeserializeTree(r, master)
	if err != nil {
		return nil, err
	}
	return &Tree{inner: inner, master: master}, nil
}

// Prove generates an inclusion proof for entityID against t, using the
// master secret t was built or deserialized with.
func (t *Tree) Prove(ctx context.Context, entityID []byte) (*proof.InclusionProof, error) {
	return proof.Generate(ctx, t.inner, t.master, entityID, t.inner.RangeBits)
}

// Verify checks p against rootHash and the independently derived
// entityCommitment, using the range bound p.RangeBits was generated with.
func Verify(p *proof.InclusionProof, rootHash merkletree.Digest, entityCommitment primitives.Point) error {
	return proof.Verify(p, rootHash, entityCommitment)
}
