package demo

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ValentinKolb/dGC/cmd/util"
	"github.com/ValentinKolb/dGC/lib/gc"
	"github.com/spf13/cobra"
)

var (
	withCycle bool
	asJSON    bool

	// DemoCmd represents the demo command
	DemoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Build a sample graph, drop it and collect it",
		Long: util.WrapString(`Builds the chain 0 -> 1 -> 2 in the default collector, prints it, ` +
			`drops the only root and forces a collection. The destructor log shows which nodes were reclaimed.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := util.SetupCollector(cmd); err != nil {
				return err
			}
			return Run(cmd.OutOrStdout(), gc.Default(), Options{Cycle: withCycle, JSON: asJSON})
		},
	}
)

func init() {
	DemoCmd.Flags().BoolVar(&withCycle, "cycle", false, util.WrapString("Additionally build the cycle A <-> B and show that it is reclaimed"))
	DemoCmd.Flags().BoolVar(&asJSON, "json", false, util.WrapString("Print the heap snapshot as JSON"))
}

// Options selects the parts of the demo
type Options struct {
	Cycle bool // build and collect a two node cycle
	JSON  bool // print the heap snapshot as JSON instead of a table
}

// Run executes the demo on the collector c and writes the report to w
func Run(w io.Writer, c *gc.Collector, opts Options) error {
	dlog := NewDestructorLog(true)

	// 0 -> 1 -> 2
	two := gc.WrapIn(c, NewNode(2, dlog))
	one := gc.WrapIn(c, NewNode(1, dlog, two))
	zero := gc.WrapIn(c, NewNode(0, dlog, one))

	fmt.Fprintf(w, "graph: %s\n", Describe(zero))
	if err := printSnapshot(w, c, opts.JSON); err != nil {
		return err
	}

	stats := c.ForceCollect()
	fmt.Fprintf(w, "collect while rooted: freed=%d live=%d\n", stats.Freed, c.Len())

	zero.Drop()
	stats = c.ForceCollect()
	fmt.Fprintf(w, "collect after drop: freed=%d live=%d\n", stats.Freed, c.Len())

	if opts.Cycle {
		a := gc.WrapIn(c, NewNode(10, dlog))
		b := gc.WrapIn(c, NewNode(11, dlog))
		a.Get().Link(b.Clone())
		b.Get().Link(a.Clone())

		fmt.Fprintf(w, "cycle: %s\n", Describe(a))

		a.Drop()
		b.Drop()
		stats = c.ForceCollect()
		fmt.Fprintf(w, "collect after dropping the cycle: freed=%d live=%d\n", stats.Freed, c.Len())
	}

	fmt.Fprintln(w, "destructor log:")
	for _, entry := range dlog.Entries() {
		fmt.Fprintf(w, "  %s\n", entry)
	}
	return nil
}

func printSnapshot(w io.Writer, c *gc.Collector, asJSON bool) error {
	objects := c.Snapshot()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(objects); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return nil
	}

	fmt.Fprintf(w, "%-6s %-30s %-6s %s\n", "ID", "TYPE", "ROOTS", "VALUE")
	for _, o := range objects {
		fmt.Fprintf(w, "%-6d %-30s %-6d %s\n", o.ID, o.Type, o.RootCount, o.Value)
	}
	return nil
}
