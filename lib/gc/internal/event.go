package internal

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Event Types are used to report collector activity to the telemetry consumer
// --------------------------------------------------------------------------

type EventType int

const (
	EventTRegister EventType = iota
	EventTCycle
)

func (e EventType) String() string {
	switch e {
	case EventTRegister:
		return "Register"
	case EventTCycle:
		return "Cycle"
	default:
		return "Unknown"
	}
}

// Event describes a single registration or a finished collection cycle.
// Fields that don't apply to the event type are left zero.
type Event struct {
	Type EventType

	// EventTRegister
	RecordID uint64
	TypeName string

	// EventTCycle
	Cycle   uint64
	Trigger string
	Scanned int
	Marked  int
	Freed   int
	Pause   time.Duration
}

func (e Event) String() string {
	switch e.Type {
	case EventTRegister:
		return fmt.Sprintf("Event{Type: %s, RecordID: %d, TypeName: %s}", e.Type, e.RecordID, e.TypeName)
	case EventTCycle:
		return fmt.Sprintf("Event{Type: %s, Cycle: %d, Trigger: %s, Scanned: %d, Marked: %d, Freed: %d, Pause: %s}",
			e.Type, e.Cycle, e.Trigger, e.Scanned, e.Marked, e.Freed, e.Pause)
	default:
		return fmt.Sprintf("Event{Type: %s}", e.Type)
	}
}
