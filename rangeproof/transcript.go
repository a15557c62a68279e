package rangeproof

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/dapol-go/dapol/primitives"
)

// transcript accumulates a Fiat-Shamir challenge the way
// wyf-ACCEPT-eth2030's pkg/crypto/ipa.go chains a running SHA-256 state
// across appended points and scalars; this transcript uses blake2b-256 to
// stay consistent with the hash this module uses everywhere else.
type transcript struct {
	state []byte
}

func newTranscript(label string) *transcript {
	h := blake2b.Sum256([]byte(label))
	return &transcript{state: h[:]}
}

func (t *transcript) appendBytes(b []byte) {
	h, _ := blake2b.New256(nil)
	h.Write(t.state)
	h.Write(b)
	t.state = h.Sum(nil)
}

func (t *transcript) appendPoint(p primitives.Point) {
	t.appendBytes(p.Bytes())
}

func (t *transcript) appendUint64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	t.appendBytes(buf[:])
}

// challengeScalar derives a scalar challenge from the transcript's current
// state without mutating it further, so a verifier replaying the same
// appends up to this point derives the identical challenge.
func (t *transcript) challengeScalar(label string) (primitives.Scalar, error) {
	return primitives.HashToScalar("dapol/rangeproof-challenge/"+label, t.state)
}
