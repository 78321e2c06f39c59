package gc

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// CollectorInfo is a point in time summary of a collector
type CollectorInfo struct {
	Name       string         `json:"name"`
	Phase      string         `json:"phase"`
	Interval   time.Duration  `json:"interval"`
	Manual     bool           `json:"manual"`
	Records    int            `json:"records"`    // live records
	ByType     map[string]int `json:"byType"`     // live records per value type
	Cycles     int64          `json:"cycles"`     // finished cycles
	Registered int64          `json:"registered"` // records registered since the collector was created
	Freed      int64          `json:"freed"`      // records swept since the collector was created
	Pause      PauseStats     `json:"pause"`
}

func (i CollectorInfo) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Collector %q\n", i.Name)
	fmt.Fprintf(&b, "  %-12s %s\n", "phase", i.Phase)
	fmt.Fprintf(&b, "  %-12s %s\n", "interval", i.Interval)
	fmt.Fprintf(&b, "  %-12s %t\n", "manual", i.Manual)
	fmt.Fprintf(&b, "  %-12s %d\n", "records", i.Records)
	fmt.Fprintf(&b, "  %-12s %d\n", "cycles", i.Cycles)
	fmt.Fprintf(&b, "  %-12s %d\n", "registered", i.Registered)
	fmt.Fprintf(&b, "  %-12s %d\n", "freed", i.Freed)
	fmt.Fprintf(&b, "  %-12s mean=%s p50=%s p99=%s max=%s\n", "pause", i.Pause.Mean, i.Pause.P50, i.Pause.P99, i.Pause.Max)

	types := make([]string, 0, len(i.ByType))
	for t := range i.ByType {
		types = append(types, t)
	}
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(&b, "    %-40s %d\n", t, i.ByType[t])
	}

	return b.String()
}

// ObjectInfo describes one live record
type ObjectInfo struct {
	ID        uint64 `json:"id"`
	Type      string `json:"type"`
	RootCount uint32 `json:"rootCount"`
	Marked    bool   `json:"marked"` // result of the last cycle
	Value     string `json:"value"`
}

// Info returns a summary of the collector.
//
// Thread-safety: This method is thread-safe, the counters may be updated concurrently.
func (c *Collector) Info() CollectorInfo {
	byType := make(map[string]int)
	records := 0
	c.records.Range(func(_ uint64, r *record) bool {
		byType[r.typeName]++
		records++
		return true
	})

	return CollectorInfo{
		Name:       c.opts.Name,
		Phase:      c.Phase().String(),
		Interval:   c.opts.Interval,
		Manual:     c.opts.Manual,
		Records:    records,
		ByType:     byType,
		Cycles:     c.metrics.cycles.Count(),
		Registered: c.metrics.registered.Count(),
		Freed:      c.metrics.freed.Count(),
		Pause:      c.metrics.pauseStats(),
	}
}

// Snapshot returns all live records sorted by id.
// It waits for a running cycle to finish, so the mark bits are the result of the last cycle.
//
// The values are formatted with fmt, their String methods must not call Wrap.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Collector) Snapshot() []ObjectInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	objects := make([]ObjectInfo, 0, c.records.Size())
	c.records.Range(func(_ uint64, r *record) bool {
		objects = append(objects, ObjectInfo{
			ID:        r.id,
			Type:      r.typeName,
			RootCount: r.roots(),
			Marked:    r.isMarked(),
			Value:     fmt.Sprintf("%v", r.value),
		})
		return true
	})

	slices.SortFunc(objects, func(a, b ObjectInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return objects
}

// WritePrometheus writes the metrics of the collector in Prometheus text format to w.
// The exported values are updated asynchronously and may lag slightly behind Info.
func (c *Collector) WritePrometheus(w io.Writer) {
	c.metrics.set.WritePrometheus(w)
}
