package demo

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ValentinKolb/dGC/lib/gc"
	gctesting "github.com/ValentinKolb/dGC/lib/gc/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manualCollector(t *testing.T) *gc.Collector {
	t.Helper()
	c := gc.NewCollector(&gc.Options{Name: t.Name(), Manual: true})
	t.Cleanup(c.Close)
	return c
}

func TestNodeConformance(t *testing.T) {
	gctesting.RunTraceableTests[*Node](t, "Node", func(c *gc.Collector) (*Node, []gc.IHandle) {
		a := gc.WrapIn(c, NewNode(1, nil))
		b := gc.WrapIn(c, NewNode(2, nil, gc.WrapIn(c, NewNode(3, nil))))
		return NewNode(0, nil, a, b), []gc.IHandle{a, b}
	})
}

func TestNodeLinkUnlink(t *testing.T) {
	c := manualCollector(t)
	dlog := NewDestructorLog(true)

	parent := gc.WrapIn(c, NewNode(0, dlog))
	defer parent.Drop()
	parent.Get().Link(gc.WrapIn(c, NewNode(1, dlog)))
	parent.Get().Link(gc.WrapIn(c, NewNode(2, dlog)))

	require.Equal(t, 2, parent.Get().Len())
	for _, e := range parent.Get().Next() {
		require.False(t, e.IsRoot())
	}

	first := parent.Get().Unlink()
	require.EqualValues(t, 1, first.Get().Value())
	first.Drop()

	stats := c.ForceCollect()
	require.Equal(t, 1, stats.Freed)
	require.Equal(t, []string{"dropped node 1"}, dlog.Entries())

	parent.Get().Unlink().Drop()
	require.Nil(t, parent.Get().Unlink())
}

func TestDescribe(t *testing.T) {
	c := manualCollector(t)

	two := gc.WrapIn(c, NewNode(2, nil))
	one := gc.WrapIn(c, NewNode(1, nil, two))
	zero := gc.WrapIn(c, NewNode(0, nil, one))
	defer zero.Drop()

	out := Describe(zero)
	assert.Contains(t, out, "Node{n: 0, next: [")
	assert.Contains(t, out, "Node{n: 1, next: [")
	assert.Contains(t, out, "Node{n: 2, next: []}")

	// cycles are printed as references
	zero.Get().Link(zero.Clone())
	assert.Contains(t, Describe(zero), "<#")
}

func TestDestructorLogCountOnly(t *testing.T) {
	dlog := NewDestructorLog(false)
	dlog.Record("a")
	dlog.Record("b")
	require.EqualValues(t, 2, dlog.Count())
	require.Empty(t, dlog.Entries())
}

func TestRun(t *testing.T) {
	c := manualCollector(t)

	var out bytes.Buffer
	require.NoError(t, Run(&out, c, Options{}))

	report := out.String()
	assert.Contains(t, report, "collect while rooted: freed=0 live=3")
	assert.Contains(t, report, "collect after drop: freed=3 live=0")
	for _, entry := range []string{"dropped node 0", "dropped node 1", "dropped node 2"} {
		assert.Contains(t, report, entry)
	}
	assert.NotContains(t, report, "cycle")
}

func TestRunWithCycle(t *testing.T) {
	c := manualCollector(t)

	var out bytes.Buffer
	require.NoError(t, Run(&out, c, Options{Cycle: true}))

	report := out.String()
	assert.Contains(t, report, "collect after dropping the cycle: freed=2 live=0")
	assert.Contains(t, report, "dropped node 10")
	assert.Contains(t, report, "dropped node 11")
	require.Equal(t, 0, c.Len())
}

func TestRunJSON(t *testing.T) {
	c := manualCollector(t)

	var out bytes.Buffer
	require.NoError(t, Run(&out, c, Options{JSON: true}))

	// the snapshot is the first json document after the graph line
	report := out.Bytes()
	start := bytes.Index(report, []byte("[\n"))
	end := bytes.Index(report, []byte("\n]\n"))
	require.True(t, start >= 0 && end > start)

	var objects []gc.ObjectInfo
	require.NoError(t, json.Unmarshal(report[start:end+2], &objects))
	require.Len(t, objects, 3)
	assert.Equal(t, "*demo.Node", objects[0].Type)
}
