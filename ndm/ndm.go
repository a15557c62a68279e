// Package ndm implements the Non-Deterministic Mapping placement algorithm:
// assigning each entity id a distinct leaf x-coordinate, deterministically
// given the master secret but indistinguishable from random to an observer
// without it.
//
// The rehash-on-collision loop below mirrors the bounded-retry pattern
// google/trillian's storage/tree node-ID allocation uses when probing for a
// free slot, capped rather than unbounded so a pathological input can never
// spin forever.
package ndm

import (
	"fmt"

	"github.com/dapol-go/dapol/dapolerr"
	"github.com/dapol-go/dapol/secret"
)

// maxRehashes is K from spec §4.3: the maximum number of collision retries
// before placement fails for an entity.
const maxRehashes = 128

// Placement holds the result of placing a set of entity ids into leaf
// x-coordinates, plus the reverse map the proof subsystem needs to identify
// which entity occupies a given coordinate.
type Placement struct {
	byID map[string]uint64
	byX  map[uint64]string
}

// IndexOf returns the leaf x-coordinate assigned to entityID.
func (p *Placement) IndexOf(entityID []byte) (uint64, bool) {
	x, ok := p.byID[string(entityID)]
	return x, ok
}

// EntityAt returns the entity id occupying leaf x-coordinate x.
func (p *Placement) EntityAt(x uint64) (string, bool) {
	id, ok := p.byX[x]
	return id, ok
}

// Len returns the number of placed entities.
func (p *Placement) Len() int { return len(p.byID) }

// Place maps each id in ids to a distinct leaf x-coordinate in [0, 2^height),
// per spec §4.3: candidate index is secret.DeriveIndex(..., 0) reduced
// modulo 2^height; on collision, rehash with an incrementing counter up to
// maxRehashes before failing with dapolerr.PlacementExhausted.
func Place(ids [][]byte, master secret.Secret, height uint8) (*Placement, error) {
	if height < 2 || height > 64 {
		return nil, dapolerr.Errorf(dapolerr.FailedPrecondition, dapolerr.HeightOutOfRange,
			"ndm: height %d out of range [2, 64]", height)
	}

	// uint64(1) << 64 wraps to 0 per the Go spec's unsigned shift rule, so
	// mask becomes all 64 bits set — the full range, not a truncated one.
	mask := (uint64(1) << height) - 1
	p := &Placement{
		byID: make(map[string]uint64, len(ids)),
		byX:  make(map[uint64]string, len(ids)),
	}

	for _, id := range ids {
		placed := false
		for counter := uint32(0); counter < maxRehashes; counter++ {
			idx := secret.DeriveIndex(master, id, counter) & mask
			if _, taken := p.byX[idx]; taken {
				continue
			}
			p.byID[string(id)] = idx
			p.byX[idx] = string(id)
			placed = true
			break
		}
		if !placed {
			return nil, dapolerr.Errorf(dapolerr.ResourceExhausted, dapolerr.PlacementExhausted,
				"ndm: placement exhausted after %d rehashes for entity %q", maxRehashes, fmt.Sprintf("%x", id))
		}
	}

	return p, nil
}
