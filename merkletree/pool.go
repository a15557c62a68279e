package merkletree

import (
	"runtime"

	"golang.org/x/sync/semaphore"
)

// workerPool bounds the number of subtree-build tasks executing
// concurrently. It is shared across an entire Build call the way
// server/map_tree_updater.go shares one errgroup-bounded fan-out budget
// across all of a map revision's tile updates.
type workerPool struct {
	sem *semaphore.Weighted
}

// newWorkerPool returns a pool sized to maxThreads. maxThreads <= 0 is
// clamped to runtime.GOMAXPROCS(0), mirroring the original Rust source's
// max_thread_count.rs clamp-not-error behavior.
func newWorkerPool(maxThreads int) *workerPool {
	if maxThreads <= 0 {
		maxThreads = runtime.GOMAXPROCS(0)
	}
	return &workerPool{sem: semaphore.NewWeighted(int64(maxThreads))}
}

// tryAcquire claims one worker slot without blocking. The caller runs its
// work on a new goroutine if it succeeds, and inline otherwise — a task
// never blocks waiting for a slot during its own compute phase.
func (p *workerPool) tryAcquire() bool {
	return p.sem.TryAcquire(1)
}

func (p *workerPool) release() {
	p.sem.Release(1)
}
