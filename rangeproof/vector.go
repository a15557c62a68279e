package rangeproof

import (
	"github.com/dapol-go/dapol/primitives"
)

// bitVectorLen rounds rangeBits up to the next power of two (minimum 1),
// the per-value length of the bit vectors the Bulletproofs construction
// commits to. Bulletproofs' inner-product compression halves its vector
// every round, so it needs a power-of-two length; any padding bit positions
// are forced to zero in both aL and aR's z-vector term, so they contribute
// nothing to the value they prove a range over.
func bitVectorLen(rangeBits uint8) int {
	n := 1
	for n < int(rangeBits) {
		n *= 2
	}
	return n
}

// generatorVector derives n independent, nothing-up-my-sleeve generators by
// hashing a domain tag and an index into a scalar and multiplying the curve
// base point by it.
func generatorVector(domain string, n int) ([]primitives.Point, error) {
	out := make([]primitives.Point, n)
	for i := 0; i < n; i++ {
		s, err := primitives.HashToScalar(domain, indexBytes(i))
		if err != nil {
			return nil, err
		}
		out[i] = primitives.BasepointG().ScalarMult(s)
	}
	return out, nil
}

// ipaGeneratorU derives the extra generator Bulletproofs' inner-product
// argument binds the claimed inner-product value to, keeping it
// independent of G, H and every vector generator by domain-separating its
// derivation from generatorVector's.
func ipaGeneratorU() (primitives.Point, error) {
	s, err := primitives.HashToScalar("dapol/rangeproof-generator-u")
	if err != nil {
		return primitives.Point{}, err
	}
	return primitives.BasepointG().ScalarMult(s), nil
}

func indexBytes(i int) []byte {
	var buf [8]byte
	for j := 0; j < 8; j++ {
		buf[j] = byte(i >> (8 * j))
	}
	return buf[:]
}

// powerVector returns [1, y, y^2, ..., y^(n-1)].
func powerVector(y primitives.Scalar, n int) []primitives.Scalar {
	out := make([]primitives.Scalar, n)
	if n == 0 {
		return out
	}
	cur := primitives.ScalarFromUint64(1)
	for i := 0; i < n; i++ {
		out[i] = cur
		cur = cur.Mul(y)
	}
	return out
}

func sumScalars(v []primitives.Scalar) primitives.Scalar {
	sum := primitives.ScalarFromUint64(0)
	for _, s := range v {
		sum = sum.Add(s)
	}
	return sum
}

func vecAddScalar(v []primitives.Scalar, c primitives.Scalar) []primitives.Scalar {
	out := make([]primitives.Scalar, len(v))
	for i, s := range v {
		out[i] = s.Add(c)
	}
	return out
}

func vecSubScalar(v []primitives.Scalar, c primitives.Scalar) []primitives.Scalar {
	out := make([]primitives.Scalar, len(v))
	for i, s := range v {
		out[i] = s.Sub(c)
	}
	return out
}

// hadamard returns the componentwise (Hadamard) product of a and b.
func hadamard(a, b []primitives.Scalar) []primitives.Scalar {
	out := make([]primitives.Scalar, len(a))
	for i := range a {
		out[i] = a[i].Mul(b[i])
	}
	return out
}

func vecAdd(a, b []primitives.Scalar) []primitives.Scalar {
	out := make([]primitives.Scalar, len(a))
	for i := range a {
		out[i] = a[i].Add(b[i])
	}
	return out
}

func vecScalarMul(v []primitives.Scalar, c primitives.Scalar) []primitives.Scalar {
	out := make([]primitives.Scalar, len(v))
	for i, s := range v {
		out[i] = s.Mul(c)
	}
	return out
}

func innerProduct(a, b []primitives.Scalar) primitives.Scalar {
	sum := primitives.ScalarFromUint64(0)
	for i := range a {
		sum = sum.Add(a[i].Mul(b[i]))
	}
	return sum
}

// msm computes the multi-scalar multiplication sum(scalars[i]*points[i]).
func msm(points []primitives.Point, scalars []primitives.Scalar) primitives.Point {
	sum := points[0].ScalarMult(scalars[0])
	for i := 1; i < len(points); i++ {
		sum = sum.Add(points[i].ScalarMult(scalars[i]))
	}
	return sum
}

func sumPoints(points []primitives.Point) primitives.Point {
	sum := points[0]
	for i := 1; i < len(points); i++ {
		sum = sum.Add(points[i])
	}
	return sum
}
