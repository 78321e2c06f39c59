// Package testing provides a standardised test suite for gc.ITraceable
// implementations.
//
// An ITraceable implementation that forgets a handle field in one of its
// methods makes the collector free reachable values or leak unreachable ones.
// RunTraceableTests detects that by wrapping the value in a manual collector
// and checking the root counts and liveness of every stored handle.
//
// Example usage:
//
//	factory := func(c *gc.Collector) (*MyNode, []gc.IHandle) {
//		left := gc.WrapIn(c, &MyNode{})
//		right := gc.WrapIn(c, &MyNode{})
//		return &MyNode{Left: left, Right: right}, []gc.IHandle{left, right}
//	}
//
//	gctesting.RunTraceableTests(t, "MyNode", factory)
package testing
