package stress

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/dGC/lib/gc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunManual(t *testing.T) {
	c := gc.NewCollector(&gc.Options{Name: t.Name(), Manual: true})
	t.Cleanup(c.Close)

	var out bytes.Buffer
	require.NoError(t, Run(&out, c, Options{Threads: 4, Iterations: 200}))

	assert.Contains(t, out.String(), "allocated and finalized 805 nodes")
	require.Equal(t, 0, c.Len())
}

func TestRunWithBackgroundLoop(t *testing.T) {
	c := gc.NewCollector(&gc.Options{Name: t.Name(), Interval: 50 * time.Microsecond})
	t.Cleanup(c.Close)

	var out bytes.Buffer
	require.NoError(t, Run(&out, c, Options{Threads: 8, Iterations: 500, Metrics: true}))

	report := out.String()
	assert.Contains(t, report, "allocated and finalized 4009 nodes")
	assert.Contains(t, report, fmt.Sprintf(`dgc_records_live{collector=%q}`, t.Name()))
}

func TestRunRejectsInvalidOptions(t *testing.T) {
	c := gc.NewCollector(&gc.Options{Name: t.Name(), Manual: true})
	t.Cleanup(c.Close)

	require.Error(t, Run(&bytes.Buffer{}, c, Options{Threads: 0, Iterations: 10}))
	require.Error(t, Run(&bytes.Buffer{}, c, Options{Threads: 1, Iterations: 0}))
}
