package gc

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dGC/lib/gc/internal"
	vm "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

const (
	sampleSize  = 1028  // reservoir size of the pause histogram
	sampleAlpha = 0.015 // bias towards the last five minutes
)

// collectorMetrics holds the telemetry of one collector.
//
// The go-metrics registry is updated synchronously and backs Info().
// The VictoriaMetrics set is fed by the event consumer goroutine and backs
// WritePrometheus(), so exported values may lag a few microseconds behind.
type collectorMetrics struct {
	// in-process statistics
	registry   gometrics.Registry
	registered gometrics.Counter
	freed      gometrics.Counter
	cycles     gometrics.Counter
	pause      gometrics.Histogram // nanoseconds

	// prometheus exposition
	set          *vm.Set
	vmRegistered *vm.Counter
	vmFreed      *vm.Counter
	vmCycles     *vm.Counter
	vmForced     *vm.Counter
	vmPause      *vm.Histogram // seconds
}

func newCollectorMetrics(name string, records func() float64) *collectorMetrics {
	label := func(metric string) string {
		return fmt.Sprintf(`%s{collector=%q}`, metric, name)
	}

	reg := gometrics.NewRegistry()
	set := vm.NewSet()

	m := &collectorMetrics{
		registry:   reg,
		registered: gometrics.NewRegisteredCounter("gc.registered", reg),
		freed:      gometrics.NewRegisteredCounter("gc.freed", reg),
		cycles:     gometrics.NewRegisteredCounter("gc.cycles", reg),
		pause:      gometrics.NewRegisteredHistogram("gc.pause", reg, gometrics.NewExpDecaySample(sampleSize, sampleAlpha)),

		set:          set,
		vmRegistered: set.NewCounter(label("dgc_records_registered_total")),
		vmFreed:      set.NewCounter(label("dgc_records_freed_total")),
		vmCycles:     set.NewCounter(label("dgc_cycles_total")),
		vmForced:     set.NewCounter(label("dgc_cycles_forced_total")),
		vmPause:      set.NewHistogram(label("dgc_cycle_pause_seconds")),
	}
	set.NewGauge(label("dgc_records_live"), records)

	return m
}

// observeCycle updates the in-process statistics, called by the cycle itself
func (m *collectorMetrics) observeCycle(stats CycleStats) {
	m.cycles.Inc(1)
	m.freed.Inc(int64(stats.Freed))
	m.pause.Update(stats.Pause.Nanoseconds())
}

// exportRegister updates the exported metrics for a registration event
func (m *collectorMetrics) exportRegister() {
	m.vmRegistered.Inc()
}

// exportCycle updates the exported metrics for a cycle event
func (m *collectorMetrics) exportCycle(event *internal.Event) {
	m.vmCycles.Inc()
	if event.Trigger == TriggerForced.String() {
		m.vmForced.Inc()
	}
	m.vmFreed.Add(event.Freed)
	m.vmPause.Update(event.Pause.Seconds())
}

// PauseStats summarizes the pause times of the collection cycles
type PauseStats struct {
	Count int64         `json:"count"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

func (m *collectorMetrics) pauseStats() PauseStats {
	snap := m.pause.Snapshot()
	if snap.Count() == 0 {
		return PauseStats{}
	}
	ps := snap.Percentiles([]float64{0.5, 0.99})
	return PauseStats{
		Count: snap.Count(),
		Mean:  time.Duration(snap.Mean()),
		P50:   time.Duration(ps[0]),
		P99:   time.Duration(ps[1]),
		Max:   time.Duration(snap.Max()),
	}
}
