package gc

// --------------------------------------------------------------------------
// Tracing Capability
// --------------------------------------------------------------------------

// ITraceable is implemented by every value managed by a Collector.
//
// A value's outgoing references are exactly the handles it stores as fields.
// Every method must forward to every one of those handles. Missing a field in
// any of the methods is not a cosmetic bug: the collector will free a value
// that is still reachable, or keep counting an edge as a root forever.
//
// Values without handle fields can embed Leaf.
type ITraceable interface {
	// Mark calls Mark() on every handle field
	Mark()

	// IncRootCount calls IncRootCount() on every handle field
	IncRootCount()

	// DecRootCount calls DecRootCount() on every handle field
	DecRootCount()

	// SetNotRoot calls SetNotRoot() on every handle field.
	// It is invoked exactly once, by Wrap, on the value being wrapped.
	SetNotRoot()
}

// IFinalizer is the destructor of a managed value. If the value of a record
// implements it, Finalize is called exactly once after the record was swept.
//
// Finalize runs on the goroutine that executed the collection cycle, after the
// registry lock was released. It may allocate new managed values.
type IFinalizer interface {
	Finalize()
}

// IHandle is the type independent view of a Handle[T].
// It allows heterogeneous edge sets to be traced uniformly.
type IHandle interface {
	// Mark marks the referenced record and traces its value, unless it is already marked
	Mark()

	// IncRootCount increments the root count of the referenced record
	IncRootCount()

	// DecRootCount decrements the root count of the referenced record
	DecRootCount()

	// SetNotRoot demotes the handle to a graph edge. Idempotent.
	SetNotRoot()

	// IsRoot reports whether this handle currently counts as a root
	IsRoot() bool

	// RootCount returns the current root count of the referenced record
	RootCount() uint32

	// ID returns the id of the referenced record
	ID() uint64

	// Alive reports whether the referenced record was not swept yet
	Alive() bool
}

// --------------------------------------------------------------------------
// Helpers for common value shapes
// --------------------------------------------------------------------------

// Leaf implements ITraceable with no-ops. Embed it in values without handle fields.
type Leaf struct{}

func (Leaf) Mark()         {}
func (Leaf) IncRootCount() {}
func (Leaf) DecRootCount() {}
func (Leaf) SetNotRoot()   {}

// Value wraps a plain value (int, string, ...) so it can be managed
type Value[V any] struct {
	Leaf
	V V
}

// Edges is a list of handles to values of the same type.
// Nil entries are skipped, so optional edges can be stored as nil.
type Edges[T ITraceable] []*Handle[T]

func (e Edges[T]) Mark() {
	for _, h := range e {
		if h != nil {
			h.Mark()
		}
	}
}

func (e Edges[T]) IncRootCount() {
	for _, h := range e {
		if h != nil {
			h.IncRootCount()
		}
	}
}

func (e Edges[T]) DecRootCount() {
	for _, h := range e {
		if h != nil {
			h.DecRootCount()
		}
	}
}

func (e Edges[T]) SetNotRoot() {
	for _, h := range e {
		if h != nil {
			h.SetNotRoot()
		}
	}
}

// EdgeSet is a list of handles to values of different types.
// Nil entries are skipped, a nil *Handle included.
type EdgeSet []IHandle

func (e EdgeSet) Mark() {
	for _, h := range e {
		if h != nil {
			h.Mark()
		}
	}
}

func (e EdgeSet) IncRootCount() {
	for _, h := range e {
		if h != nil {
			h.IncRootCount()
		}
	}
}

func (e EdgeSet) DecRootCount() {
	for _, h := range e {
		if h != nil {
			h.DecRootCount()
		}
	}
}

func (e EdgeSet) SetNotRoot() {
	for _, h := range e {
		if h != nil {
			h.SetNotRoot()
		}
	}
}
