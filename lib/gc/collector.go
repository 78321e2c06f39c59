package gc

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dGC/lib/gc/internal"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	log      = logger.GetLogger("gc")
	eventLog = logger.GetLogger("gc/events")
)

// --------------------------------------------------------------------------
// Constants and helper types
// --------------------------------------------------------------------------

const (
	defaultInterval = 1 * time.Millisecond // pause between two background cycles
	defaultName     = "default"
)

// Phase is the state of the collector within a collection cycle
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseUnmarking
	PhaseMarking
	PhaseSweeping
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseUnmarking:
		return "Unmarking"
	case PhaseMarking:
		return "Marking"
	case PhaseSweeping:
		return "Sweeping"
	default:
		return "Unknown"
	}
}

// Trigger tells what started a collection cycle
type Trigger int

const (
	TriggerBackground Trigger = iota
	TriggerForced
)

func (t Trigger) String() string {
	switch t {
	case TriggerBackground:
		return "background"
	case TriggerForced:
		return "forced"
	default:
		return "unknown"
	}
}

// CycleStats describes one finished collection cycle
type CycleStats struct {
	Cycle   uint64        `json:"cycle"`   // sequence number of the cycle, starting at 1
	Trigger Trigger       `json:"trigger"` // what started the cycle
	Scanned int           `json:"scanned"` // records registered when the cycle started
	Marked  int           `json:"marked"`  // records proven reachable
	Freed   int           `json:"freed"`   // records swept
	Pause   time.Duration `json:"pause"`   // time the registry lock was held plus finalizer time
}

// Options configures a Collector
type Options struct {
	Name               string        // Name used in logs and metric labels
	Interval           time.Duration // Pause between background cycles (0 = default: 1ms)
	Manual             bool          // Disable the background loop, only ForceCollect runs cycles
	ReleaseLeakedRoots bool          // Drop rooted handles that became unreachable without Drop
}

// DefaultOptions returns the default collector options
func DefaultOptions() *Options {
	return &Options{
		Name:     defaultName,
		Interval: defaultInterval,
	}
}

// --------------------------------------------------------------------------
// Collector
// --------------------------------------------------------------------------

// Collector owns a registry of allocation records and runs mark/sweep cycles over it.
//
// Two levels of synchronization are used:
//   - mu excludes registrations and collection cycles from each other
//   - every record protects its own root count and mark bit, so root count
//     updates never touch mu
type Collector struct {
	opts      Options
	isDefault bool

	// registry
	mu      sync.Mutex
	records *xsync.MapOf[uint64, *record]
	owners  *xsync.MapOf[uintptr, uint64] // address of pointer values -> record id, detects double registration
	nextID  atomic.Uint64

	// cycle state
	phase     atomic.Int32
	barrierMu sync.RWMutex // read: root count change plus barrier, write: end of marking
	grey      greyList     // shaded by the barrier, not traced yet
	cycles    atomic.Uint64

	// background loop
	running   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// telemetry
	events  *internal.EventQueue
	metrics *collectorMetrics
}

// NewCollector creates a new collector with the given options (optional) and starts
// its background loop unless opts.Manual is set.
//
// A collector that is not needed anymore should be closed with Close.
func NewCollector(opts *Options) *Collector {
	return newCollector(opts, false)
}

func newCollector(opts *Options, isDefault bool) *Collector {
	if opts == nil {
		opts = DefaultOptions()
	}

	c := &Collector{
		opts:      *opts,
		isDefault: isDefault,
		records:   xsync.NewMapOf[uint64, *record](),
		owners:    xsync.NewMapOf[uintptr, uint64](),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		events:    internal.NewEventQueue(),
	}
	if c.opts.Name == "" {
		c.opts.Name = defaultName
	}
	if c.opts.Interval <= 0 {
		c.opts.Interval = defaultInterval
	}
	c.metrics = newCollectorMetrics(c.opts.Name, func() float64 {
		return float64(c.records.Size())
	})

	go c.consumeEvents()

	if !c.opts.Manual {
		c.startLoop()
	}

	log.Infof("collector %q started (interval=%s, manual=%t)", c.opts.Name, c.opts.Interval, c.opts.Manual)
	return c
}

// Name returns the name of the collector
func (c *Collector) Name() string {
	return c.opts.Name
}

// Len returns the number of registered records
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Collector) Len() int {
	return c.records.Size()
}

// Phase returns the current phase of the collector
func (c *Collector) Phase() Phase {
	return Phase(c.phase.Load())
}

// Cycles returns the number of finished collection cycles
func (c *Collector) Cycles() uint64 {
	return c.cycles.Load()
}

// --------------------------------------------------------------------------
// Registration
// --------------------------------------------------------------------------

// register demotes the handles stored in value, creates a record with a root
// count of one and adds it to the registry.
//
// Demotion happens under the registry lock: a cycle must never observe the
// demoted children before their new parent is registered.
func (c *Collector) register(value ITraceable) *record {
	c.mu.Lock()
	defer c.mu.Unlock()

	value.SetNotRoot()

	r := newRecord(c, c.nextID.Add(1), value)

	if addr, ok := address(value); ok {
		if _, loaded := c.owners.LoadOrStore(addr, r.id); loaded {
			violation(r, ViolationDoubleRegistration)
		}
	}
	c.records.Store(r.id, r)

	c.metrics.registered.Inc(1)
	c.events.Push(&internal.Event{
		Type:     internal.EventTRegister,
		RecordID: r.id,
		TypeName: r.typeName,
	})

	return r
}

// address returns the address of pointer values. Wrapping the same pointer
// twice would let two records own one value. The address stays valid as long
// as the record holds the value.
//
// Pointers to zero-size values are skipped: the runtime may hand out the same
// address for all of them, so the address does not identify the value.
func address(value ITraceable) (uintptr, bool) {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Type().Elem().Size() == 0 {
		return 0, false
	}
	return v.Pointer(), true
}

// --------------------------------------------------------------------------
// Mark phase barrier
// --------------------------------------------------------------------------

// barrier is called after every root count increment and after every
// decrement that reached zero. While the collector is marking, the record is
// shaded and put on the grey list:
//   - an edge that was taken out of an already traced value and turned into a
//     root is not missed
//   - a root that was given up after its new parent had been traced is not missed
//
// The barrier never calls Mark. The value is traced by the collector when it
// drains the grey list, so a caller may hold the lock of any value.
//
// The caller must hold barrierMu for reading since before the root count
// changed, marking can then not end between the change and the barrier.
func (c *Collector) barrier(r *record) {
	if Phase(c.phase.Load()) == PhaseMarking && r.shade() {
		c.grey.push(r)
	}
}

// --------------------------------------------------------------------------
// Collection
// --------------------------------------------------------------------------

// ForceCollect runs one full collection cycle and returns once sweeping is
// done and the finalizers of all swept values ran.
//
// Thread-safety: This method is thread-safe, concurrent cycles are serialized.
func (c *Collector) ForceCollect() CycleStats {
	return c.collect(TriggerForced)
}

// collect runs one cycle: Idle -> Unmarking -> Marking -> Sweeping -> Idle
func (c *Collector) collect(trigger Trigger) CycleStats {
	start := time.Now()
	stats := CycleStats{Trigger: trigger}

	garbage := c.markAndSweep(&stats)

	// run destructors outside the registry lock, they may allocate
	for _, r := range garbage {
		r.finalize()
	}

	stats.Freed = len(garbage)
	stats.Pause = time.Since(start)

	c.metrics.observeCycle(stats)
	c.events.Push(&internal.Event{
		Type:    internal.EventTCycle,
		Cycle:   stats.Cycle,
		Trigger: stats.Trigger.String(),
		Scanned: stats.Scanned,
		Marked:  stats.Marked,
		Freed:   stats.Freed,
		Pause:   stats.Pause,
	})

	return stats
}

// markAndSweep runs the phases of a cycle under the registry lock and returns
// the swept records. A panic in a Mark implementation leaves the collector
// idle and unlocked.
func (c *Collector) markAndSweep(stats *CycleStats) []*record {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.phase.Store(int32(PhaseIdle))

	// Unmarking: no recursion needed. Leftovers of an aborted cycle are dropped.
	c.phase.Store(int32(PhaseUnmarking))
	c.grey.take()
	c.records.Range(func(_ uint64, r *record) bool {
		r.unmark()
		stats.Scanned++
		return true
	})

	// Marking: start at every rooted record, recurse through the handle fields
	c.phase.Store(int32(PhaseMarking))
	c.records.Range(func(_ uint64, r *record) bool {
		if r.isRooted() {
			r.mark()
		}
		return true
	})
	c.finishMarking()

	// Sweeping: everything still unmarked is unreachable
	var garbage []*record
	c.records.Range(func(_ uint64, r *record) bool {
		if r.isMarked() {
			stats.Marked++
		} else {
			garbage = append(garbage, r)
		}
		return true
	})
	for _, r := range garbage {
		c.records.Delete(r.id)
		if addr, ok := address(r.value); ok {
			c.owners.Delete(addr)
		}
		r.swept.Store(true)
	}

	stats.Cycle = c.cycles.Add(1)
	return garbage
}

// finishMarking traces the records shaded by the barrier until none is left.
// The phase moves to Sweeping while no root count change is in flight and the
// grey list is empty, every marked record is traced at that point.
func (c *Collector) finishMarking() {
	for {
		c.drainGrey()

		c.barrierMu.Lock()
		if c.grey.empty() {
			c.phase.Store(int32(PhaseSweeping))
			c.barrierMu.Unlock()
			return
		}
		c.barrierMu.Unlock()
	}
}

// drainGrey traces the values of all shaded records on the calling goroutine
func (c *Collector) drainGrey() {
	for records := c.grey.take(); len(records) > 0; records = c.grey.take() {
		for _, r := range records {
			r.value.Mark()
		}
	}
}

// --------------------------------------------------------------------------
// Background loop
// --------------------------------------------------------------------------

// startLoop starts the background collection loop.
// If the loop is already running, this function does nothing.
func (c *Collector) startLoop() {
	if c.running.CompareAndSwap(false, true) {
		go c.collectionLoop()
	}
}

// collectionLoop sleeps for the configured interval and runs a cycle, until Close is called.
// The loop of the default collector is never stopped.
func (c *Collector) collectionLoop() {
	defer close(c.done)

	timer := time.NewTimer(c.opts.Interval)
	defer timer.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-timer.C:
			c.collect(TriggerBackground)
			timer.Reset(c.opts.Interval)
		}
	}
}

// Close stops the background loop and the telemetry consumer.
// Records stay registered and handles stay usable, ForceCollect still works.
// Closing the default collector does nothing, it lives for the whole process.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Collector) Close() {
	if c.isDefault {
		log.Warningf("ignoring Close on the default collector")
		return
	}

	c.closeOnce.Do(func() {
		if c.running.CompareAndSwap(true, false) {
			close(c.stop)
			<-c.done
		}
		c.events.Close()
		log.Infof("collector %q closed after %d cycles", c.opts.Name, c.cycles.Load())
	})
}

// consumeEvents turns collector events into metrics and debug logs
func (c *Collector) consumeEvents() {
	for event := range c.events.Recv() {
		switch event.Type {
		case internal.EventTRegister:
			c.metrics.exportRegister()
			eventLog.Debugf("registered record %d (%s)", event.RecordID, event.TypeName)
		case internal.EventTCycle:
			c.metrics.exportCycle(event)
			if event.Freed > 0 || event.Trigger == TriggerForced.String() {
				eventLog.Debugf("cycle %d (%s): scanned=%d marked=%d freed=%d pause=%s",
					event.Cycle, event.Trigger, event.Scanned, event.Marked, event.Freed, event.Pause)
			}
		default:
			eventLog.Errorf("unknown collector event %s", event)
		}
	}
}
