// Package secret implements the domain-separated key derivation that turns
// one master secret into the per-leaf blinding factors, salts, placement
// indices, and padding-node material the rest of the tree depends on.
//
// Every derivation here is a thin wrapper around primitives.HashToScalar and
// primitives.HashToDigest with a fixed domain tag, following the KDF pattern
// google/trillian's crypto/keys package uses for deriving subordinate key
// material from a root: one domain string per purpose, never reused.
package secret

import (
	"encoding/binary"

	"github.com/dapol-go/dapol/primitives"
)

// Secret is a 32-byte master secret. Zero overwrites the backing array once
// the secret is no longer needed; Go offers no hard erasure guarantee (the
// runtime may have copied the bytes during a GC or an earlier append), so
// this is best-effort hygiene, not a security boundary.
type Secret [32]byte

// Zero overwrites s with zero bytes.
func (s *Secret) Zero() {
	for i := range s {
		s[i] = 0
	}
}

// Leaf holds the blinding factor and salt derived for one entity's leaf
// node.
type Leaf struct {
	Blinding primitives.Scalar
	Salt     [32]byte
}

// Padding holds the blinding factor and extra hash preimage material
// derived for a padding node at a given coordinate.
type Padding struct {
	Blinding primitives.Scalar
	Extra    [32]byte
}

// Derive computes the blinding factor and salt for the leaf belonging to
// entityID, per spec §4.2: blinding_bytes = H("dapol/blind" ‖ m ‖ e),
// salt_bytes = H("dapol/salt" ‖ m ‖ e).
func Derive(master Secret, entityID []byte) (Leaf, error) {
	blinding, err := primitives.HashToScalar("dapol/blind", master[:], entityID)
	if err != nil {
		return Leaf{}, err
	}
	salt := primitives.HashToDigest("dapol/salt", master[:], entityID)
	return Leaf{Blinding: blinding, Salt: [32]byte(salt)}, nil
}

// DeriveIndex computes index_bytes = H("dapol/idx" ‖ m ‖ e ‖ counter) and
// returns it reduced to a uint64, used by the NDM placement algorithm in
// §4.3. counter starts at 0 for the candidate slot and increments on
// collision.
func DeriveIndex(master Secret, entityID []byte, counter uint32) uint64 {
	var cbuf [4]byte
	binary.BigEndian.PutUint32(cbuf[:], counter)
	d := primitives.HashToDigest("dapol/idx", master[:], entityID, cbuf[:])
	return binary.BigEndian.Uint64(d[:8])
}

// DerivePadding computes the (blinding, extra) pair for the deterministic
// padding node at coordinate (x, y), per §4.2/§3.1 invariant 3: two
// independent builders given the same master secret produce bit-identical
// padding nodes.
//
// Coordinate is passed as (x, y) rather than a merkletree.Coordinate value
// to keep this package free of a dependency on merkletree, which itself
// depends on secret for Pad.
func DerivePadding(master Secret, x uint64, y uint8) (Padding, error) {
	var buf [9]byte
	binary.BigEndian.PutUint64(buf[:8], x)
	buf[8] = y
	blinding, err := primitives.HashToScalar("dapol/pad", master[:], buf[:])
	if err != nil {
		return Padding{}, err
	}
	extra := primitives.HashToDigest("dapol/pad-extra", master[:], buf[:])
	return Padding{Blinding: blinding, Extra: [32]byte(extra)}, nil
}
