// Package gc implements a concurrent mark-and-sweep garbage collector for
// application managed object graphs. Values are handed to a Collector and
// accessed through tracked handles, which makes cyclic shared ownership
// possible without manual lifetime bookkeeping.
//
// The package focuses on:
//   - Reclaiming values that are not reachable from any rooted handle, cycles included
//   - A background collection loop that runs concurrently with the application
//   - Root counting that never touches the registry lock
//   - Detecting broken bookkeeping early and loudly
//
// Key Components:
//
//   - ITraceable: The tracing capability every managed value implements. Its
//     four methods forward to every handle the value stores. Leaf, Value,
//     Edges and EdgeSet cover the common shapes. The testing package
//     (github.com/ValentinKolb/dGC/lib/gc/testing) checks custom implementations.
//
//   - Handle: The smart pointer. Wrap and WrapIn register a value and return a
//     rooted handle. Clone adds a root, Drop gives one up, Get dereferences.
//     A handle stored inside another managed value is a graph edge, Wrap
//     demotes all handles of the wrapped value through SetNotRoot.
//
//   - Collector: Owns the registry of allocation records and runs cycles:
//     Idle -> Unmarking -> Marking -> Sweeping -> Idle. Every record with a
//     root count above zero is a root of the marking phase. Swept records are
//     flagged, removed from the registry and their IFinalizer runs once.
//
//   - Default collector: Wrap and ForceCollect use a process-wide collector,
//     created lazily (or by Init) with a 1ms background loop. Its goroutine is
//     never stopped or joined, the collector lives as long as the process.
//     NewCollector creates independent collectors that can be closed.
//
//   - Telemetry: Info, Snapshot and WritePrometheus report the state of a
//     collector. Registrations and cycles are reported through a lock-free
//     event queue to a consumer goroutine, so the exported metrics lag behind
//     slightly.
//
// Synchronization:
//   - The registry lock excludes registrations and cycles from each other.
//     Wrap blocks while a cycle runs and vice versa.
//   - Root counts are guarded per record. Clone, Drop and SetNotRoot only take
//     the record lock and never call Mark. At the end of the marking phase they
//     may wait for the collector to check that no record is left to trace.
//   - Root count changes during the marking phase shade the record and put it
//     on a grey list (mark-phase barrier). The collector traces the grey list
//     on its own goroutine before sweeping, so graph mutations that race with a
//     cycle can't make a reachable value look unreachable.
//
// Rules for applications:
//   - Mark implementations take the locks of their own value. Never call Wrap
//     while holding a lock that a Mark implementation takes: the cycle holding
//     the registry lock would wait for your lock while you wait for the registry.
//     Clone, Drop and SetNotRoot are fine under such a lock.
//   - A handle stored in a managed value after it was wrapped must be demoted
//     with SetNotRoot, otherwise it stays a root and keeps its target alive.
//   - Taking a handle out of a managed value means Clone. Store only edges,
//     keep only clones.
//   - Go has no scope end destructor. Call Drop, or enable
//     Options.ReleaseLeakedRoots to let the Go runtime drop forgotten handles.
//   - Handles of one collector must not be stored in values of another.
//
// Contract violations (root count underflow or overflow, double registration,
// marking an edge to a swept record, use of a dropped handle) panic with an
// *InvariantViolation. They are bugs in an ITraceable implementation or in the
// handle usage and there is no way to recover from them.
package gc
