package gc

import "sync/atomic"

// --------------------------------------------------------------------------
// Grey list
// --------------------------------------------------------------------------

// greyNode is one entry of the grey list
type greyNode struct {
	r    *record
	next *greyNode
}

// greyList holds records that were shaded by the mark-phase barrier: their
// mark bit is set but their value was not traced yet. Tracing happens on the
// collector goroutine when the list is drained.
//
// Thread-safety: push is lock-free and can be called by any number of
// goroutines, take is called by the collector only.
type greyList struct {
	head atomic.Pointer[greyNode]
}

// push adds a shaded record
func (g *greyList) push(r *record) {
	n := &greyNode{r: r}
	for {
		head := g.head.Load()
		n.next = head
		if g.head.CompareAndSwap(head, n) {
			return
		}
	}
}

// take removes and returns all records currently on the list
func (g *greyList) take() []*record {
	var records []*record
	for n := g.head.Swap(nil); n != nil; n = n.next {
		records = append(records, n.r)
	}
	return records
}

// empty returns true if no record waits for tracing
func (g *greyList) empty() bool {
	return g.head.Load() == nil
}
