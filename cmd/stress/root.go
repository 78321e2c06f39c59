package stress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ValentinKolb/dGC/cmd/demo"
	"github.com/ValentinKolb/dGC/cmd/util"
	"github.com/ValentinKolb/dGC/lib/gc"
	"github.com/spf13/cobra"
)

const (
	// maxEdges is the number of children a worker node keeps before it unlinks the oldest
	maxEdges = 8

	finalizerTimeout = 5 * time.Second
)

var (
	threads     int
	iterations  int
	withMetrics bool

	// StressCmd represents the stress command
	StressCmd = &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent workload against the collector",
		Long: util.WrapString(`Every worker owns a node linked into a shared root. ` +
			`Each iteration clones and drops the shared root, allocates a child, links it and unlinks the oldest child, ` +
			`while the collector runs in the background. Afterwards the root count, the liveness of all reachable nodes ` +
			`and the number of finalized nodes are verified.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := util.SetupCollector(cmd); err != nil {
				return err
			}
			return Run(cmd.OutOrStdout(), gc.Default(), Options{
				Threads:    threads,
				Iterations: iterations,
				Metrics:    withMetrics,
			})
		},
	}
)

func init() {
	StressCmd.Flags().IntVar(&threads, "threads", 8, util.WrapString("Number of concurrent workers"))
	StressCmd.Flags().IntVar(&iterations, "iterations", 10000, util.WrapString("Iterations per worker"))
	StressCmd.Flags().BoolVar(&withMetrics, "metrics", false, util.WrapString("Print the collector metrics in Prometheus text format"))
}

// Options configures the stress workload
type Options struct {
	Threads    int
	Iterations int
	Metrics    bool
}

// Run executes the workload on the collector c and writes the report to w.
// Returns an error if one of the checks failed.
func Run(w io.Writer, c *gc.Collector, opts Options) error {
	if opts.Threads <= 0 || opts.Iterations <= 0 {
		return fmt.Errorf("threads and iterations must be positive")
	}

	dlog := demo.NewDestructorLog(false)
	root := gc.WrapIn(c, demo.NewNode(-1, dlog))
	before := c.Len()

	// one node per worker, reachable only through the root
	workers := make([]*gc.Handle[*demo.Node], opts.Threads)
	for i := range workers {
		workers[i] = gc.WrapIn(c, demo.NewNode(int32(i), dlog))
		root.Get().Link(workers[i].Clone())
	}

	start := time.Now()
	errs := make(chan error, opts.Threads)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(worker *gc.Handle[*demo.Node]) {
			defer wg.Done()
			defer worker.Drop()
			errs <- work(c, root, worker, dlog, opts.Iterations)
		}(workers[i])
	}
	wg.Wait()
	close(errs)
	elapsed := time.Since(start)

	for err := range errs {
		if err != nil {
			return err
		}
	}

	// every worker node must still be reachable through the root
	for i, e := range root.Get().Next() {
		if !e.Alive() {
			return fmt.Errorf("worker node %d was collected while reachable", i)
		}
		if got := e.Get().Len(); got > maxEdges {
			return fmt.Errorf("worker node %d has %d children, expected at most %d", i, got, maxEdges)
		}
	}
	if rc := root.RootCount(); rc != 1 {
		return fmt.Errorf("root count of the shared root is %d, expected 1", rc)
	}

	allocated := int64(1 + opts.Threads + opts.Threads*opts.Iterations)
	root.Drop()
	c.ForceCollect()

	if c.Len() > before-1 {
		return fmt.Errorf("%d records left after dropping the root, expected at most %d", c.Len(), before-1)
	}
	// a background cycle may still be running the finalizers of records it swept
	deadline := time.Now().Add(finalizerTimeout)
	for dlog.Count() < allocated && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := dlog.Count(); got != allocated {
		return fmt.Errorf("%d nodes finalized, expected %d", got, allocated)
	}

	ops := opts.Threads * opts.Iterations
	fmt.Fprintf(w, "%d workers, %d iterations each: %s (%.0f iterations/s)\n",
		opts.Threads, opts.Iterations, elapsed, float64(ops)/elapsed.Seconds())
	fmt.Fprintf(w, "allocated and finalized %d nodes\n", allocated)
	fmt.Fprint(w, c.Info().String())

	if opts.Metrics {
		fmt.Fprintln(w)
		c.WritePrometheus(w)
	}
	return nil
}

// work runs the iterations of one worker
func work(c *gc.Collector, root, worker *gc.Handle[*demo.Node], dlog *demo.DestructorLog, iterations int) error {
	for i := 0; i < iterations; i++ {
		// root count traffic on a shared record
		clone := root.Clone()
		if i%3 == 0 {
			clone.Clone().Drop()
		}
		clone.Drop()

		// allocate a child and link it, the worker is the only path to it
		child := gc.WrapIn(c, demo.NewNode(int32(i), dlog))
		worker.Get().Link(child)

		// children that are still linked must be alive
		for _, e := range worker.Get().Next() {
			if !e.Alive() {
				return fmt.Errorf("child %d of worker %d was collected while reachable", e.ID(), worker.Get().Value())
			}
		}

		if worker.Get().Len() > maxEdges {
			worker.Get().Unlink().Drop()
		}
	}
	return nil
}
