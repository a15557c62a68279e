package merkletree

import (
	"context"
	"sort"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/dapol-go/dapol/dapolerr"
	"github.com/dapol-go/dapol/secret"
)

// Build constructs a tree from leaves (already placed by the ndm package)
// using a recursive divide-and-conquer strategy bounded by a shared worker
// pool, per spec §4.5.
//
// leaves need not be sorted; Build sorts a copy by x-coordinate itself.
func Build(ctx context.Context, leaves []LeafInput, master secret.Secret, params BuildParams) (*Tree, error) {
	start := time.Now()

	if params.StoreDepth > uint8(params.Height) {
		return nil, dapolerr.Errorf(dapolerr.InvalidArgument, dapolerr.InvalidStoreDepth,
			"merkletree: store depth %d exceeds height %d", params.StoreDepth, params.Height)
	}
	if len(leaves) == 0 {
		return nil, dapolerr.New(dapolerr.InvalidArgument, dapolerr.EmptyEntitySet, "merkletree: no entities to build")
	}
	capacity := uint64(1) << uint8(params.Height)
	if params.Height < 64 && capacity < 2*uint64(len(leaves)) {
		return nil, dapolerr.Errorf(dapolerr.FailedPrecondition, dapolerr.HeightTooSmall,
			"merkletree: height %d (capacity %d) too small for %d entities", params.Height, capacity, len(leaves))
	}
	rangeCeiling := uint64(1) << params.RangeBits
	// Every node's value is a sum of leaf values, so bounding the total of
	// all leaves bounds every node on every proof path.
	var total uint64
	for _, l := range leaves {
		if params.RangeBits < 64 && l.Value >= rangeCeiling {
			return nil, dapolerr.Errorf(dapolerr.OutOfRange, dapolerr.RangeExceeded,
				"merkletree: entity %q value %d exceeds range bound 2^%d", l.EntityID, l.Value, params.RangeBits)
		}
		sum := total + l.Value
		if sum < total || (params.RangeBits < 64 && sum >= rangeCeiling) {
			return nil, dapolerr.Errorf(dapolerr.OutOfRange, dapolerr.RangeExceeded,
				"merkletree: sum of liabilities exceeds range bound 2^%d", params.RangeBits)
		}
		total = sum
	}

	sorted := make([]LeafInput, len(leaves))
	copy(sorted, leaves)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Coord.X < sorted[j].Coord.X })

	pool := newWorkerPool(params.MaxThreads)
	// spec §4.5 "Pre-allocation": the retained-node map is sized from an
	// upper bound on the number of non-padding ancestors of the placed
	// leaves, N*(S+1). Padding nodes retained above the frontier are not
	// counted in that bound, so the map can still grow during a build.
	storeCapacityHint := len(leaves) * (int(params.StoreDepth) + 1)
	store := NewStore(storeCapacityHint)
	retainFrom := uint8(params.Height) - params.StoreDepth

	root, err := buildSubtree(ctx, Coordinate{X: 0, Y: uint8(params.Height)}, sorted, master, retainFrom, pool, store)
	if err != nil {
		return nil, err
	}
	store.Seal()

	msc, err := masterSecretCommitment(master)
	if err != nil {
		return nil, err
	}

	buildDurationSeconds.Observe(time.Since(start).Seconds())
	glog.V(1).Infof("merkletree: build complete: height=%d leaves=%d duration=%s", params.Height, len(leaves), time.Since(start))

	tree := &Tree{
		Height:                 params.Height,
		StoreDepth:             params.StoreDepth,
		Root:                   root,
		Store:                  store,
		MasterSecretCommitment: msc,
		RangeBits:              params.RangeBits,
	}
	tree.SetLeaves(sorted)
	return tree, nil
}

// RebuildNode recomputes the single node at coord from scratch, restricted
// to the subset of leaves within coord's x-range. Used by the proof package
// when a sibling subtree was pruned below the store's retention frontier
// (spec §4.7: "recompute that sibling's entire subtree ... local, bounded
// by the subtree size"). The recomputation is transient: no intermediate
// node is written to any shared store.
func RebuildNode(ctx context.Context, coord Coordinate, leaves []LeafInput, master secret.Secret) (Node, error) {
	lo, hi := LeafRange(coord)
	start := sort.Search(len(leaves), func(i int) bool { return leaves[i].Coord.X >= lo })
	end := sort.Search(len(leaves), func(i int) bool { return leaves[i].Coord.X >= hi })
	subset := leaves[start:end]

	proofRecomputeTotal.Inc()
	// retainFrom below keeps scratch permanently empty, so no capacity hint
	// is needed here.
	scratch := NewStore(0)
	pool := newWorkerPool(0)
	// retainFrom = coord.Y+1 ensures nothing at or below coord.Y is ever
	// inserted into the throwaway scratch store.
	return buildSubtree(ctx, coord, subset, master, coord.Y+1, pool, scratch)
}

// buildSubtree recursively builds the subtree rooted at coord over the
// (sorted-by-x, already-range-checked) slice of leaves it covers.
func buildSubtree(ctx context.Context, coord Coordinate, leaves []LeafInput, master secret.Secret, retainFrom uint8, pool *workerPool, store *Store) (Node, error) {
	if err := ctx.Err(); err != nil {
		return Node{}, dapolerr.New(dapolerr.Canceled, dapolerr.Cancelled, "merkletree: build cancelled")
	}

	var node Node
	var err error

	switch {
	case len(leaves) == 0:
		node, err = Pad(coord, master)
	case coord.Y == 0:
		if len(leaves) > 1 {
			return Node{}, dapolerr.Errorf(dapolerr.Internal, dapolerr.BuildAborted,
				"merkletree: %d leaves collide at coordinate %v, ndm placement invariant violated", len(leaves), coord)
		}
		node, err = buildLeaf(coord, leaves[0], master)
	default:
		node, err = buildInterior(ctx, coord, leaves, master, retainFrom, pool, store)
	}
	if err != nil {
		return Node{}, err
	}

	if coord.Y >= retainFrom {
		store.Insert(node)
	}
	buildNodesTotal.Inc()
	return node, nil
}

func buildLeaf(coord Coordinate, l LeafInput, master secret.Secret) (Node, error) {
	leafSecret, err := secret.Derive(master, l.EntityID)
	if err != nil {
		return Node{}, err
	}
	return Leaf(coord, l.Value, leafSecret), nil
}

func buildInterior(ctx context.Context, coord Coordinate, leaves []LeafInput, master secret.Secret, retainFrom uint8, pool *workerPool, store *Store) (Node, error) {
	mid := coord.X<<coord.Y + (uint64(1) << (coord.Y - 1))
	splitIdx := sort.Search(len(leaves), func(i int) bool { return leaves[i].Coord.X >= mid })
	leftLeaves, rightLeaves := leaves[:splitIdx], leaves[splitIdx:]

	leftCoord := Coordinate{X: coord.X * 2, Y: coord.Y - 1}
	rightCoord := Coordinate{X: coord.X*2 + 1, Y: coord.Y - 1}

	var left, right Node

	if pool.tryAcquire() {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer pool.release()
			n, err := buildSubtree(gctx, rightCoord, rightLeaves, master, retainFrom, pool, store)
			right = n
			return err
		})
		var lerr error
		left, lerr = buildSubtree(ctx, leftCoord, leftLeaves, master, retainFrom, pool, store)
		if err := g.Wait(); err != nil {
			return Node{}, err
		}
		if lerr != nil {
			return Node{}, lerr
		}
	} else {
		glog.Warningf("merkletree: worker pool saturated at coord %v, building children serially", coord)
		var err error
		left, err = buildSubtree(ctx, leftCoord, leftLeaves, master, retainFrom, pool, store)
		if err != nil {
			return Node{}, err
		}
		right, err = buildSubtree(ctx, rightCoord, rightLeaves, master, retainFrom, pool, store)
		if err != nil {
			return Node{}, err
		}
	}

	return Combine(left, right), nil
}
