// Package merkletree implements the DAPOL+ sparse Merkle sum tree: node
// algebra, a parallel recursive builder, and a concurrent-safe node store.
//
// The package layout and the divide-and-conquer recursion in build.go follow
// google/trillian's merkle/smt.HStar3 update propagation and
// server/map_tree_updater.go's errgroup-sharded tree construction, adapted
// from a batch hash-update algorithm operating on a fixed-depth tile to a
// from-scratch parallel build of a whole tree.
package merkletree

import "github.com/dapol-go/dapol/dapolerr"

// Height is a validated tree height. Spec §7 requires height in [2, 64]
// (the original Rust source's binary_tree/height.rs enforces the same
// MIN_HEIGHT = Height(2) bound with a dedicated newtype); NewHeight enforces
// it once at construction so every later consumer can treat a Height as
// already valid.
type Height uint8

// NewHeight validates h and returns it as a Height, or an error with Kind
// HeightOutOfRange.
func NewHeight(h uint8) (Height, error) {
	if h < 2 || h > 64 {
		return 0, dapolerr.Errorf(dapolerr.FailedPrecondition, dapolerr.HeightOutOfRange,
			"merkletree: height %d out of range [2, 64]", h)
	}
	return Height(h), nil
}

// Coordinate identifies a node's position in the tree. Level y=0 is the
// leaf level, y=H is the root; x is the horizontal index at level y, in
// [0, 2^(H-y)).
type Coordinate struct {
	X uint64
	Y uint8
}

// Sibling returns the coordinate of c's sibling: (x XOR 1, y).
func Sibling(c Coordinate) Coordinate {
	return Coordinate{X: c.X ^ 1, Y: c.Y}
}

// Parent returns the coordinate of c's parent: (x >> 1, y+1).
func Parent(c Coordinate) Coordinate {
	return Coordinate{X: c.X >> 1, Y: c.Y + 1}
}

// LeafRange returns the half-open range of leaf x-coordinates, [lo, hi),
// covered by the subtree rooted at c.
func LeafRange(c Coordinate) (lo, hi uint64) {
	span := uint64(1) << c.Y
	return c.X * span, (c.X + 1) * span
}
