// Package primitives implements the scalar/point arithmetic and Pedersen
// commitment scheme that every other DAPOL+ component builds on.
//
// The group is the edwards25519 prime-order subgroup, via
// filippo.io/edwards25519 — the same curve library google/trillian pulls in
// transitively (filippo.io/edwards25519 appears in trillian's go.mod indirect
// requires). The domain hash is blake2b-256, from golang.org/x/crypto, which
// trillian depends on directly; the original DAPOL source uses blake3, for
// which no complete example repository in the retrieval pack vendors a Go
// binding.
package primitives

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/blake2b"
)

// curveOrder is L, the prime order of the edwards25519 base point's
// subgroup: 2^252 + 27742317777372353535851937790883648493. edwards25519's
// Scalar type exposes no Invert method, so the range-proof subsystem's
// Inner Product Argument (which needs y^-1 to fold generator vectors) goes
// through math/big instead.
var curveOrder, _ = new(big.Int).SetString(
	"7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)

// Scalar wraps an edwards25519 scalar (an integer mod the group order).
type Scalar struct {
	s *edwards25519.Scalar
}

// Point wraps an edwards25519 group element.
type Point struct {
	p *edwards25519.Point
}

// Digest is a fixed-width 32-byte cryptographic hash output.
type Digest [32]byte

var (
	// basepointG is the curve's standard base point, used as the value
	// generator in C = v*G + r*H.
	basepointG = edwards25519.NewGeneratorPoint()

	// basepointH is an independent generator derived by hashing G's
	// canonical encoding with a fixed domain tag, per the tie-break in
	// spec §4.1: it must have no known discrete-log relation to G.
	basepointH = deriveH()
)

// deriveH hashes G's encoding, the domain tag and a counter byte straight
// into a point encoding, trying successive counters until one decodes to a
// point that is not of small order once multiplied by the cofactor. No
// scalar multiple of G is ever formed, so H's discrete log is unknown.
func deriveH() *edwards25519.Point {
	for counter := 0; counter < 256; counter++ {
		d := HashToDigest("dapol/generator-h", basepointG.Bytes(), []byte{byte(counter)})
		p, err := edwards25519.NewIdentityPoint().SetBytes(d[:])
		if err != nil {
			continue
		}
		h := edwards25519.NewIdentityPoint().MultByCofactor(p)
		if h.Equal(edwards25519.NewIdentityPoint()) != 1 {
			return h
		}
	}
	panic("primitives: failed to derive generator H")
}

// ScalarFromUint64 builds a Scalar from a non-negative 64-bit integer.
func ScalarFromUint64(v uint64) Scalar {
	var buf [32]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(buf[:])
	if err != nil {
		// A little-endian u64 zero-extended to 32 bytes is always < L.
		panic(fmt.Sprintf("primitives: unreachable canonical bytes error: %v", err))
	}
	return Scalar{s: s}
}

// ScalarFromBytes decodes a canonical 32-byte little-endian scalar encoding;
// an encoding of a value >= L is rejected with an error rather than reduced.
// Used when a caller already has exactly 32 bytes of scalar material (e.g. a
// stored blinding factor).
func ScalarFromBytes(b [32]byte) (Scalar, error) {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b[:])
	if err != nil {
		return Scalar{}, fmt.Errorf("primitives: invalid scalar encoding: %w", err)
	}
	return Scalar{s: s}, nil
}

// Bytes returns the canonical little-endian encoding of the scalar.
func (s Scalar) Bytes() [32]byte {
	var out [32]byte
	copy(out[:], s.s.Bytes())
	return out
}

// RandomScalar returns a uniformly random scalar, used by the range-proof
// subsystem for its blinding scalars and random masking vectors.
func RandomScalar() (Scalar, error) {
	var wide [64]byte
	if _, err := rand.Read(wide[:]); err != nil {
		return Scalar{}, fmt.Errorf("primitives: reading randomness: %w", err)
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return Scalar{}, fmt.Errorf("primitives: wide reduction failed: %w", err)
	}
	return Scalar{s: s}, nil
}

// Add returns s + o mod L.
func (s Scalar) Add(o Scalar) Scalar {
	return Scalar{s: edwards25519.NewScalar().Add(s.s, o.s)}
}

// Sub returns s - o mod L.
func (s Scalar) Sub(o Scalar) Scalar {
	return Scalar{s: edwards25519.NewScalar().Subtract(s.s, o.s)}
}

// Mul returns s * o mod L.
func (s Scalar) Mul(o Scalar) Scalar {
	return Scalar{s: edwards25519.NewScalar().Multiply(s.s, o.s)}
}

// Negate returns -s mod L.
func (s Scalar) Negate() Scalar {
	return Scalar{s: edwards25519.NewScalar().Negate(s.s)}
}

// Invert returns s^-1 mod L. Panics if s is zero, since zero has no
// multiplicative inverse; callers (the IPA folding rounds) only ever invert
// Fiat-Shamir challenge scalars, which are zero with negligible probability
// and are never trusted blindly regardless.
func (s Scalar) Invert() Scalar {
	if s.IsZero() {
		panic("primitives: cannot invert zero scalar")
	}
	b := s.Bytes()
	// Scalar.Bytes is little-endian; math/big wants big-endian.
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	x := new(big.Int).SetBytes(be)
	inv := new(big.Int).ModInverse(x, curveOrder)
	if inv == nil {
		panic("primitives: modular inverse does not exist")
	}
	invBytes := inv.FillBytes(make([]byte, 32))
	var le [32]byte
	for i, c := range invBytes {
		le[31-i] = c
	}
	out, err := ScalarFromBytes(le)
	if err != nil {
		panic(fmt.Sprintf("primitives: inverted scalar not canonical: %v", err))
	}
	return out
}

// IsZero reports whether the scalar is the additive identity.
func (s Scalar) IsZero() bool {
	var zero [32]byte
	b := s.Bytes()
	return subtle.ConstantTimeCompare(b[:], zero[:]) == 1
}

// Commit computes the Pedersen commitment C = value*G + blinding*H.
func Commit(value uint64, blinding Scalar) Point {
	vs := ScalarFromUint64(value)
	vG := edwards25519.NewIdentityPoint().ScalarMult(vs.s, basepointG)
	rH := edwards25519.NewIdentityPoint().ScalarMult(blinding.s, basepointH)
	return Point{p: edwards25519.NewIdentityPoint().Add(vG, rH)}
}

// CommitScalar computes C = value*G + blinding*H for an arbitrary scalar
// value, used by the range-proof subsystem's polynomial commitments.
func CommitScalar(value, blinding Scalar) Point {
	vG := edwards25519.NewIdentityPoint().ScalarMult(value.s, basepointG)
	rH := edwards25519.NewIdentityPoint().ScalarMult(blinding.s, basepointH)
	return Point{p: edwards25519.NewIdentityPoint().Add(vG, rH)}
}

// Add returns the group sum p + o. Pedersen commitments are additively
// homomorphic, which is what lets an interior node's commitment equal the
// sum of its children's commitments.
func (p Point) Add(o Point) Point {
	return Point{p: edwards25519.NewIdentityPoint().Add(p.p, o.p)}
}

// ScalarMult returns s*p.
func (p Point) ScalarMult(s Scalar) Point {
	return Point{p: edwards25519.NewIdentityPoint().ScalarMult(s.s, p.p)}
}

// Sub returns p - o.
func (p Point) Sub(o Point) Point {
	neg := edwards25519.NewIdentityPoint().Negate(o.p)
	return Point{p: edwards25519.NewIdentityPoint().Add(p.p, neg)}
}

// Equal reports whether two points encode to the same canonical bytes.
func (p Point) Equal(o Point) bool {
	return subtle.ConstantTimeCompare(p.Bytes(), o.Bytes()) == 1
}

// Bytes returns the canonical compressed encoding of the point.
func (p Point) Bytes() []byte {
	return p.p.Bytes()
}

// PointFromBytes decodes a canonical compressed point encoding.
func PointFromBytes(b []byte) (Point, error) {
	pt, err := edwards25519.NewIdentityPoint().SetBytes(b)
	if err != nil {
		return Point{}, fmt.Errorf("primitives: invalid point encoding: %w", err)
	}
	return Point{p: pt}, nil
}

// BasepointG returns the value generator G.
func BasepointG() Point { return Point{p: basepointG} }

// BasepointH returns the independent blinding generator H.
func BasepointH() Point { return Point{p: basepointH} }

// hashToWideBytes computes blake2b-512 over a domain tag followed by the
// given parts, giving 64 bytes of uniform output suitable for wide reduction
// into a scalar (spec §4.2's "wide reduction").
func hashToWideBytes(domain string, parts ...[]byte) [64]byte {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic(fmt.Sprintf("primitives: blake2b-512 unavailable: %v", err))
	}
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write(p)
	}
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashToScalar performs a domain-separated, wide-reduced hash into a scalar,
// used by component B to derive blinding factors.
func HashToScalar(domain string, parts ...[]byte) (Scalar, error) {
	wide := hashToWideBytes(domain, parts...)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return Scalar{}, fmt.Errorf("primitives: wide reduction failed: %w", err)
	}
	return Scalar{s: s}, nil
}

// HashToDigest performs a domain-separated hash into a 32-byte digest, used
// by component B to derive salts and index material.
func HashToDigest(domain string, parts ...[]byte) Digest {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(fmt.Sprintf("primitives: blake2b-256 unavailable: %v", err))
	}
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write(p)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashNode computes the domain-separated digest binding a node's commitment
// to its children's (or extra salt material's) digests, per spec invariant
// 1 and 2: H(commitment ‖ extra...).
func HashNode(commitment Point, extra ...Digest) Digest {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(fmt.Sprintf("primitives: blake2b-256 unavailable: %v", err))
	}
	h.Write([]byte("dapol/node"))
	h.Write(commitment.Bytes())
	for _, e := range extra {
		h.Write(e[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
