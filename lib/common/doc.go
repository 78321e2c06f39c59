// Package common provides the configuration and logging utilities shared by
// the dgc command line tool and applications embedding the collector.
//
// Key Components:
//
//   - CollectorConfig: Configuration of the default collector as it is read
//     from flags and environment variables. Validate checks it and ToOptions
//     converts it to gc.Options.
//
//   - Logger: Custom logging implementation that plugs into the dragonboat
//     logger registry used by the gc package. All loggers share one output
//     (stderr unless SetLogOutput redirects it). InitLoggers installs the
//     factory and applies a level spec such as "warn,gc/events=debug" to the
//     gc, gc/events and cmd loggers.
package common
