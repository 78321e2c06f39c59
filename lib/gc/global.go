package gc

import (
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Process-wide default collector
// --------------------------------------------------------------------------

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
	initialized      atomic.Bool
)

// Init creates the default collector and starts its background loop.
// Calling Init more than once does nothing. Wrap calls it lazily.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func Init() {
	InitWithOptions(nil)
}

// InitWithOptions creates the default collector with the given options.
// Returns false if the default collector already existed, in which case opts are ignored.
// The default collector is never closed.
func InitWithOptions(opts *Options) bool {
	created := false
	defaultOnce.Do(func() {
		if opts == nil {
			opts = DefaultOptions()
		}
		defaultCollector = newCollector(opts, true)
		initialized.Store(true)
		created = true
	})
	return created
}

// IsInit returns true if the default collector was created
func IsInit() bool {
	return initialized.Load()
}

// Default returns the default collector, creating it if needed
func Default() *Collector {
	Init()
	return defaultCollector
}

// ForceCollect runs a full collection cycle on the default collector.
// See (*Collector).ForceCollect.
func ForceCollect() CycleStats {
	return Default().ForceCollect()
}
