// Package cmd implements the command-line interface of dGC. It provides
// commands that exercise the collector library and report its state.
//
// The package is organized into several subpackages:
//
//   - demo: Builds the sample node graphs, collects them and prints the destructor log
//   - stress: Concurrent clone/drop/link workload with conservation checks
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dgc -help for a list of all commands.
package cmd
