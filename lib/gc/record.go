package gc

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// record is the allocation record of one managed value: the header
// (mark bit, root count) paired with the value.
//
// Records are owned by the registry of their collector. Handles only hold
// non-owning references and validate them through the swept flag.
type record struct {
	id        uint64
	typeName  string
	value     ITraceable
	collector *Collector

	// mark bit, recomputed every cycle
	marked atomic.Bool

	// set exactly once by the sweep phase
	swept atomic.Bool

	// per-record lock, independent of the registry lock
	mu        sync.Mutex
	rootCount uint32
}

func newRecord(c *Collector, id uint64, value ITraceable) *record {
	return &record{
		id:        id,
		typeName:  fmt.Sprintf("%T", value),
		value:     value,
		collector: c,
		rootCount: 1, // the handle returned by Wrap
	}
}

// --------------------------------------------------------------------------
// Root count
// --------------------------------------------------------------------------

// roots returns the current root count
func (r *record) roots() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rootCount
}

// isRooted returns true if the root count is above zero.
// The answer is a snapshot, the count may change right after.
func (r *record) isRooted() bool {
	return r.roots() > 0
}

// incRoot increments the root count. Saturating at math.MaxUint32 is a violation.
func (r *record) incRoot() {
	if r.swept.Load() {
		violation(r, ViolationUseAfterSweep)
	}

	r.collector.barrierMu.RLock()
	defer r.collector.barrierMu.RUnlock()

	r.mu.Lock()
	if r.rootCount == math.MaxUint32 {
		r.mu.Unlock()
		violation(r, ViolationRootCountOverflow)
	}
	r.rootCount++
	r.mu.Unlock()

	r.collector.barrier(r)
}

// decRoot decrements the root count. Decrementing zero is a violation.
func (r *record) decRoot() {
	r.collector.barrierMu.RLock()
	defer r.collector.barrierMu.RUnlock()

	r.mu.Lock()
	if r.rootCount == 0 {
		r.mu.Unlock()
		violation(r, ViolationRootCountUnderflow)
	}
	r.rootCount--
	zero := r.rootCount == 0
	r.mu.Unlock()

	if zero {
		r.collector.barrier(r)
	}
}

// --------------------------------------------------------------------------
// Mark bit
// --------------------------------------------------------------------------

func (r *record) isMarked() bool {
	return r.marked.Load()
}

// unmark clears the mark bit. Not recursive.
func (r *record) unmark() {
	r.marked.Store(false)
}

// mark sets the mark bit and traces the value.
// Recursion ends at records that are already marked, so cycles terminate.
// Only the collector goroutine traces.
func (r *record) mark() {
	if r.shade() {
		r.value.Mark()
	}
}

// shade sets the mark bit without tracing the value. It returns true if the
// bit was clear before, the caller then owns tracing the value.
func (r *record) shade() bool {
	if r.swept.Load() {
		violation(r, ViolationEdgeToSwept)
	}
	return r.marked.CompareAndSwap(false, true)
}

// --------------------------------------------------------------------------
// Destruction
// --------------------------------------------------------------------------

// finalize runs the destructor of the value, if it has one.
// Must only be called by the sweep phase, after the record was flagged swept.
func (r *record) finalize() {
	if f, ok := r.value.(IFinalizer); ok {
		f.Finalize()
	}
}
