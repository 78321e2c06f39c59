// Package internal contains the telemetry plumbing of the collector.
//
// Registrations and finished cycles are reported as Event values through an
// EventQueue, a lock-free multi-producer single-consumer queue. The mutator
// and collector goroutines only ever append to the queue; a single consumer
// goroutine owned by the collector turns the events into metrics and debug
// logs. That way no telemetry work happens while the registry lock is held.
//
// This package is not part of the public API.
package internal
