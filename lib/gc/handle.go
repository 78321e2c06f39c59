package gc

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Handle is a tracked reference to a managed value.
//
// A handle does not own the value: the record belongs to the registry of its
// collector. A handle only votes on rootedness through the root count of the
// record. Independently held handles are roots, handles stored inside other
// managed values are graph edges (see SetNotRoot).
//
// Handles must be used by pointer. Use Clone to get a second root and Drop to
// give one up.
type Handle[T ITraceable] struct {
	rec   *record
	value T

	mu      sync.Mutex // guards the isRoot and dropped transitions
	isRoot  bool
	dropped atomic.Bool
}

// Wrap moves value into a new record of the default collector and returns a rooted handle to it.
// Handles stored in value are demoted to graph edges.
//
// Thread-safety: This function is thread-safe, it waits for a running collection cycle to finish.
func Wrap[T ITraceable](value T) *Handle[T] {
	return WrapIn(Default(), value)
}

// WrapIn moves value into a new record of the collector c and returns a rooted handle to it.
// All handles stored in value must belong to c.
//
// Thread-safety: This function is thread-safe, it waits for a running collection cycle to finish.
func WrapIn[T ITraceable](c *Collector, value T) *Handle[T] {
	rec := c.register(value)
	return newHandle(rec, value, true)
}

func newHandle[T ITraceable](rec *record, value T, root bool) *Handle[T] {
	h := &Handle[T]{
		rec:    rec,
		value:  value,
		isRoot: root,
	}
	if root && rec.collector.opts.ReleaseLeakedRoots {
		runtime.SetFinalizer(h, (*Handle[T]).Drop)
	}
	return h
}

// --------------------------------------------------------------------------
// Smart pointer surface
// --------------------------------------------------------------------------

// Get returns the managed value.
// Panics with an InvariantViolation if the handle was dropped or the record was swept.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (h *Handle[T]) Get() T {
	if h.dropped.Load() {
		violation(h.rec, ViolationUseAfterDrop)
	}
	if h.rec.swept.Load() {
		violation(h.rec, ViolationUseAfterSweep)
	}
	return h.value
}

// Clone returns a new rooted handle to the same record.
// Cloning a graph edge (a demoted handle) is how a root is taken out of a managed graph.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (h *Handle[T]) Clone() *Handle[T] {
	if h.dropped.Load() {
		violation(h.rec, ViolationUseAfterDrop)
	}
	h.rec.incRoot()
	return newHandle(h.rec, h.value, true)
}

// Drop gives up this handle. If it is still a root, the root count of the record is decremented.
// Drop never frees anything, that is left to the sweep phase. Calling Drop more than once is a no-op.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (h *Handle[T]) Drop() {
	h.mu.Lock()
	if h.dropped.Load() {
		h.mu.Unlock()
		return
	}
	wasRoot := h.isRoot
	h.isRoot = false
	h.dropped.Store(true)
	h.mu.Unlock()

	if wasRoot {
		h.clearFinalizer()
		h.rec.decRoot()
	}
}

// SetNotRoot demotes the handle to a graph edge.
// Call it after the handle was stored in another managed value. Idempotent.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (h *Handle[T]) SetNotRoot() {
	if h == nil {
		return
	}
	h.mu.Lock()
	wasRoot := h.isRoot
	h.isRoot = false
	h.mu.Unlock()

	if wasRoot {
		h.clearFinalizer()
		h.rec.decRoot()
	}
}

func (h *Handle[T]) clearFinalizer() {
	if h.rec.collector.opts.ReleaseLeakedRoots {
		runtime.SetFinalizer(h, nil)
	}
}

// --------------------------------------------------------------------------
// Record level operations (used by ITraceable implementations)
// --------------------------------------------------------------------------

// Mark, IncRootCount, DecRootCount and SetNotRoot accept a nil handle and do
// nothing, a nil *Handle stored in an IHandle is an empty edge.

// Mark marks the referenced record and traces its value, unless it is already marked
func (h *Handle[T]) Mark() {
	if h != nil {
		h.rec.mark()
	}
}

// IncRootCount increments the root count of the referenced record without changing IsRoot
func (h *Handle[T]) IncRootCount() {
	if h != nil {
		h.rec.incRoot()
	}
}

// DecRootCount decrements the root count of the referenced record without changing IsRoot
func (h *Handle[T]) DecRootCount() {
	if h != nil {
		h.rec.decRoot()
	}
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// IsRoot reports whether this handle currently counts as a root
func (h *Handle[T]) IsRoot() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isRoot
}

// RootCount returns the current root count of the referenced record
func (h *Handle[T]) RootCount() uint32 {
	return h.rec.roots()
}

// ID returns the id of the referenced record. Two handles are equal if their ids are equal.
func (h *Handle[T]) ID() uint64 {
	return h.rec.id
}

// Alive reports whether the referenced record was not swept yet
func (h *Handle[T]) Alive() bool {
	return !h.rec.swept.Load()
}

// Dropped reports whether Drop was called on this handle
func (h *Handle[T]) Dropped() bool {
	return h.dropped.Load()
}

// Collector returns the collector that owns the referenced record
func (h *Handle[T]) Collector() *Collector {
	return h.rec.collector
}

// String formats the managed value
func (h *Handle[T]) String() string {
	if h.rec.swept.Load() {
		return fmt.Sprintf("<swept %s #%d>", h.rec.typeName, h.rec.id)
	}
	return fmt.Sprintf("%v", h.value)
}

var _ IHandle = (*Handle[Leaf])(nil)
