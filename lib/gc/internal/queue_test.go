package internal

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

// TestPushRecv tests basic push and consume functionality
func TestPushRecv(t *testing.T) {
	q := NewEventQueue()
	defer q.Close()

	for i := 0; i < 10; i++ {
		if !q.Push(&Event{Type: EventTRegister, RecordID: uint64(i)}) {
			t.Fatalf("Failed to push event %d", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case event := <-q.Recv():
			if event.RecordID != uint64(i) {
				t.Errorf("Expected record %d, got %v", i, event)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", i)
		}
	}

	select {
	case event := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", event)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestPushNil(t *testing.T) {
	q := NewEventQueue()
	defer q.Close()

	if q.Push(nil) {
		t.Error("Pushing nil should fail")
	}
}

// TestConcurrentProducers pushes from many goroutines, every event must arrive exactly once
func TestConcurrentProducers(t *testing.T) {
	q := NewEventQueue()
	defer q.Close()

	const numProducers = 10
	const eventsPerProducer = 1000
	total := numProducers * eventsPerProducer

	received := make(map[uint64]bool, total)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for len(received) < total {
			select {
			case event := <-q.Recv():
				if received[event.RecordID] {
					t.Errorf("Duplicate event received: %v", event)
					return
				}
				received[event.RecordID] = true
			case <-time.After(2 * time.Second):
				t.Errorf("Timeout waiting for events, received %d of %d", len(received), total)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func(producer int) {
			defer wg.Done()
			base := producer * eventsPerProducer
			for i := 0; i < eventsPerProducer; i++ {
				if !q.Push(&Event{Type: EventTRegister, RecordID: uint64(base + i)}) {
					t.Errorf("Producer %d failed to push event %d", producer, i)
				}
				if i%100 == 0 {
					runtime.Gosched()
				}
			}
		}(p)
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout waiting for consumer to finish")
	}
	if len(received) != total {
		t.Errorf("Expected %d events, got %d", total, len(received))
	}
}

// TestPerProducerOrder checks that events of a single producer keep their order
func TestPerProducerOrder(t *testing.T) {
	q := NewEventQueue()
	defer q.Close()

	for i := 1; i <= 500; i++ {
		q.Push(&Event{Type: EventTCycle, Cycle: uint64(i)})
	}

	for i := 1; i <= 500; i++ {
		select {
		case event := <-q.Recv():
			if event.Cycle != uint64(i) {
				t.Fatalf("Expected cycle %d, got %d", i, event.Cycle)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for cycle %d", i)
		}
	}
}

// TestClose verifies that pending events are delivered and the channel is closed
func TestClose(t *testing.T) {
	q := NewEventQueue()

	for i := 0; i < 5; i++ {
		q.Push(&Event{Type: EventTRegister, RecordID: uint64(i)})
	}
	q.Close()

	if !q.IsClosed() {
		t.Error("Queue should be closed")
	}
	if q.Push(&Event{Type: EventTRegister}) {
		t.Error("Should not be able to push after queue is closed")
	}

	count := 0
	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-q.Recv():
			if !ok {
				if count != 5 {
					t.Errorf("Expected 5 pending events, got %d", count)
				}
				return
			}
			count++
		case <-timeout:
			t.Fatalf("Channel was not closed after Close, received %d events", count)
		}
	}
}

// TestWakeupAfterIdle pushes after the forwarding goroutine went to sleep
func TestWakeupAfterIdle(t *testing.T) {
	q := NewEventQueue()
	defer q.Close()

	for round := 0; round < 20; round++ {
		time.Sleep(time.Millisecond)
		q.Push(&Event{Type: EventTCycle, Cycle: uint64(round)})

		select {
		case event := <-q.Recv():
			if event.Cycle != uint64(round) {
				t.Fatalf("Expected cycle %d, got %d", round, event.Cycle)
			}
		case <-time.After(time.Second):
			t.Fatalf("Lost wakeup in round %d", round)
		}
	}
}

func TestEventString(t *testing.T) {
	register := Event{Type: EventTRegister, RecordID: 3, TypeName: "*main.Node"}
	if got := register.String(); got != "Event{Type: Register, RecordID: 3, TypeName: *main.Node}" {
		t.Errorf("Unexpected string: %s", got)
	}

	cycle := Event{Type: EventTCycle, Cycle: 1, Trigger: "forced", Scanned: 3, Marked: 2, Freed: 1, Pause: time.Millisecond}
	if got := cycle.String(); got != "Event{Type: Cycle, Cycle: 1, Trigger: forced, Scanned: 3, Marked: 2, Freed: 1, Pause: 1ms}" {
		t.Errorf("Unexpected string: %s", got)
	}

	if EventType(9).String() != "Unknown" {
		t.Errorf("Unexpected string for unknown event type")
	}
}
