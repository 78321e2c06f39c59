package internal

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// eventNode is a single link of the queue
type eventNode struct {
	event *Event
	next  atomic.Pointer[eventNode]
}

// EventQueue is a lock-free multi-producer single-consumer queue of collector events.
//
// Producers are the goroutines that register records and run collection cycles.
// They must never block on telemetry, so Push only appends to a linked list with
// CAS operations. A single internal goroutine moves the events to the channel
// returned by Recv.
//
// Ordering between concurrent producers is decided by whoever wins the CAS on the tail,
// events of a single producer are delivered in push order.
type EventQueue struct {
	head     atomic.Pointer[eventNode]
	tail     atomic.Pointer[eventNode]
	out      chan *Event
	consumer sync.WaitGroup
	closed   atomic.Bool

	// wakes the forwarding goroutine when the list runs empty
	mu   sync.Mutex
	cond *sync.Cond
}

// NewEventQueue creates an empty queue and starts its forwarding goroutine
func NewEventQueue() *EventQueue {
	sentinel := &eventNode{}

	q := &EventQueue{
		out: make(chan *Event),
	}
	q.cond = sync.NewCond(&q.mu)

	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.forward()

	return q
}

// Push appends an event to the queue.
// Returns false if the event is nil or the queue is closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *EventQueue) Push(event *Event) bool {
	if event == nil || q.closed.Load() {
		return false
	}

	n := &eventNode{event: event}

	var backoff uint8
	for {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				// another producer may already have moved the tail, that's fine
				q.tail.CompareAndSwap(tail, n)
				q.signal()
				return true
			}
		} else {
			// help a producer that linked its node but did not move the tail yet
			q.tail.CompareAndSwap(tail, next)
		}

		// spin a little under low contention, yield under high contention
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// forward moves events from the linked list to the out channel until the queue is closed and drained
func (q *EventQueue) forward() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		forwarded := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			forwarded = true

			event := next.event
			q.head.Store(next)
			q.out <- event

			// the node is the new sentinel, drop the payload reference
			next.event = nil
		}

		if !forwarded && q.closed.Load() {
			return
		}

		if !forwarded {
			q.mu.Lock()
			if q.head.Load().next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns the channel the events are delivered on.
// The channel is closed after Close once all pending events were delivered.
func (q *EventQueue) Recv() <-chan *Event {
	return q.out
}

// Close stops accepting events. Pending events are still delivered.
func (q *EventQueue) Close() {
	q.closed.Store(true)
	q.signal()
}

// signal wakes the forwarding goroutine. Taking mu prevents the wakeup from
// slipping in between the emptiness check and cond.Wait in forward.
func (q *EventQueue) signal() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// IsClosed returns true if the queue is closed
func (q *EventQueue) IsClosed() bool {
	return q.closed.Load()
}

// Len counts the events not yet handed to the forwarding goroutine.
// This is O(n) and only meant for debugging and tests.
func (q *EventQueue) Len() int {
	count := 0
	for n := q.head.Load().next.Load(); n != nil; n = n.next.Load() {
		count++
	}
	return count
}
