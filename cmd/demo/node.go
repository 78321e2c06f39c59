package demo

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dGC/lib/gc"
)

// --------------------------------------------------------------------------
// Node
// --------------------------------------------------------------------------

// Node is a managed graph node holding a number and a list of edges.
//
// Thread-safety: All methods are thread-safe. The edge list is guarded by the
// node's own lock, which is also taken by the tracing methods.
type Node struct {
	mu   sync.RWMutex
	n    int32
	next gc.Edges[*Node]
	log  *DestructorLog
}

// NewNode creates a node with the given edges. The edges are demoted when the node is wrapped.
func NewNode(n int32, log *DestructorLog, next ...*gc.Handle[*Node]) *Node {
	return &Node{
		n:    n,
		next: next,
		log:  log,
	}
}

// Value returns the number of the node
func (n *Node) Value() int32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.n
}

// SetValue replaces the number of the node
func (n *Node) SetValue(v int32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.n = v
}

// Link stores h as an edge of the node and demotes it
func (n *Node) Link(h *gc.Handle[*Node]) {
	n.mu.Lock()
	n.next = append(n.next, h)
	n.mu.Unlock()
	h.SetNotRoot()
}

// Unlink removes the first edge and returns it, or nil if the node has no edges.
// The returned handle is not a root: Clone it to keep the target alive, Drop it otherwise.
func (n *Node) Unlink() *gc.Handle[*Node] {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.next) == 0 {
		return nil
	}
	h := n.next[0]
	n.next[0] = nil
	n.next = n.next[1:]
	return h
}

// Next returns a copy of the edge list. The handles are edges, not roots.
func (n *Node) Next() []*gc.Handle[*Node] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	next := make([]*gc.Handle[*Node], len(n.next))
	copy(next, n.next)
	return next
}

// Len returns the number of edges
func (n *Node) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.next)
}

func (n *Node) Mark() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	n.next.Mark()
}

func (n *Node) IncRootCount() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	n.next.IncRootCount()
}

func (n *Node) DecRootCount() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	n.next.DecRootCount()
}

func (n *Node) SetNotRoot() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	n.next.SetNotRoot()
}

// Finalize records the destruction of the node
func (n *Node) Finalize() {
	if n.log != nil {
		n.log.Record(fmt.Sprintf("dropped node %d", n.Value()))
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("Node{n: %d, next: %d}", n.Value(), n.Len())
}

var _ gc.IFinalizer = (*Node)(nil)

// Describe prints the graph reachable from h, nodes that were already printed are shown as references
func Describe(h *gc.Handle[*Node]) string {
	var sb strings.Builder
	describe(&sb, h, make(map[uint64]bool))
	return sb.String()
}

func describe(sb *strings.Builder, h *gc.Handle[*Node], seen map[uint64]bool) {
	if seen[h.ID()] {
		fmt.Fprintf(sb, "<#%d>", h.ID())
		return
	}
	seen[h.ID()] = true

	node := h.Get()
	fmt.Fprintf(sb, "#%d Node{n: %d, next: [", h.ID(), node.Value())
	for i, e := range node.Next() {
		if i > 0 {
			sb.WriteString(", ")
		}
		describe(sb, e, seen)
	}
	sb.WriteString("]}")
}

// --------------------------------------------------------------------------
// Destructor log
// --------------------------------------------------------------------------

// DestructorLog collects the messages of node finalizers
type DestructorLog struct {
	keep    bool
	mu      sync.Mutex
	entries []string
	count   atomic.Int64
}

// NewDestructorLog creates a log. If keep is false only the number of finalized nodes is tracked.
func NewDestructorLog(keep bool) *DestructorLog {
	return &DestructorLog{keep: keep}
}

// Record adds an entry
func (l *DestructorLog) Record(entry string) {
	l.count.Add(1)
	if !l.keep {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of all recorded entries
func (l *DestructorLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Count returns the number of recorded entries, also when they are not kept
func (l *DestructorLog) Count() int64 {
	return l.count.Load()
}
