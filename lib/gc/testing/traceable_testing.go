package testing

import (
	"testing"

	"github.com/ValentinKolb/dGC/lib/gc"
	"github.com/stretchr/testify/require"
)

// Factory builds a value that is ready to be wrapped in the collector c.
//
// It must return the value together with every handle stored in it. The handles
// must be fresh, rooted handles of c (e.g. created with gc.WrapIn and not cloned),
// each stored exactly once.
type Factory[T gc.ITraceable] func(c *gc.Collector) (T, []gc.IHandle)

// RunTraceableTests runs a test suite that checks that an ITraceable implementation
// forwards all four methods to every handle it stores.
func RunTraceableTests[T gc.ITraceable](t *testing.T, name string, factory Factory[T]) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetNotRootDemotesEdges", func(t *testing.T) {
			testSetNotRootDemotesEdges(t, newCollector(t), factory)
		})

		t.Run("IncDecRootCount", func(t *testing.T) {
			testIncDecRootCount(t, newCollector(t), factory)
		})

		t.Run("MarkKeepsEdgesAlive", func(t *testing.T) {
			testMarkKeepsEdgesAlive(t, newCollector(t), factory)
		})

		t.Run("UnreachableAfterDrop", func(t *testing.T) {
			testUnreachableAfterDrop(t, newCollector(t), factory)
		})

		t.Run("RepeatedCollect", func(t *testing.T) {
			testRepeatedCollect(t, newCollector(t), factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// newCollector creates a collector without background loop, closed when the test ends
func newCollector(t *testing.T) *gc.Collector {
	t.Helper()
	c := gc.NewCollector(&gc.Options{Name: t.Name(), Manual: true})
	t.Cleanup(c.Close)
	return c
}

func requireAllAlive(t *testing.T, edges []gc.IHandle) {
	t.Helper()
	for i, e := range edges {
		require.Truef(t, e.Alive(), "edge %d (record %d) was swept", i, e.ID())
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetNotRootDemotesEdges[T gc.ITraceable](t *testing.T, c *gc.Collector, factory Factory[T]) {
	value, edges := factory(c)

	for i, e := range edges {
		require.Truef(t, e.IsRoot(), "edge %d must be a root before wrapping", i)
		require.EqualValuesf(t, 1, e.RootCount(), "edge %d must be a fresh handle", i)
	}

	h := gc.WrapIn(c, value)
	defer h.Drop()

	require.True(t, h.IsRoot())
	require.EqualValues(t, 1, h.RootCount())
	for i, e := range edges {
		require.Falsef(t, e.IsRoot(), "edge %d was not demoted by SetNotRoot", i)
		require.EqualValuesf(t, 0, e.RootCount(), "edge %d still counts as a root", i)
	}

	// demotion is idempotent
	h.Get().SetNotRoot()
	for i, e := range edges {
		require.EqualValuesf(t, 0, e.RootCount(), "second SetNotRoot changed the root count of edge %d", i)
	}
}

func testIncDecRootCount[T gc.ITraceable](t *testing.T, c *gc.Collector, factory Factory[T]) {
	value, edges := factory(c)
	h := gc.WrapIn(c, value)
	defer h.Drop()

	h.Get().IncRootCount()
	for i, e := range edges {
		require.EqualValuesf(t, 1, e.RootCount(), "IncRootCount was not forwarded to edge %d", i)
		require.Falsef(t, e.IsRoot(), "IncRootCount must not change IsRoot of edge %d", i)
	}

	h.Get().DecRootCount()
	for i, e := range edges {
		require.EqualValuesf(t, 0, e.RootCount(), "DecRootCount was not forwarded to edge %d", i)
	}
}

func testMarkKeepsEdgesAlive[T gc.ITraceable](t *testing.T, c *gc.Collector, factory Factory[T]) {
	value, edges := factory(c)
	h := gc.WrapIn(c, value)
	defer h.Drop()

	c.ForceCollect()

	require.True(t, h.Alive())
	requireAllAlive(t, edges)
}

func testUnreachableAfterDrop[T gc.ITraceable](t *testing.T, c *gc.Collector, factory Factory[T]) {
	value, edges := factory(c)
	h := gc.WrapIn(c, value)

	h.Drop()
	stats := c.ForceCollect()

	require.False(t, h.Alive())
	require.GreaterOrEqual(t, stats.Freed, 1+len(edges))
	for i, e := range edges {
		require.Falsef(t, e.Alive(), "edge %d survived although its parent is unreachable", i)
	}
}

func testRepeatedCollect[T gc.ITraceable](t *testing.T, c *gc.Collector, factory Factory[T]) {
	value, edges := factory(c)
	h := gc.WrapIn(c, value)
	defer h.Drop()

	c.ForceCollect()
	live := c.Len()

	for i := 0; i < 3; i++ {
		stats := c.ForceCollect()
		require.Equal(t, 0, stats.Freed)
		require.Equal(t, live, c.Len())
	}
	requireAllAlive(t, edges)
}
