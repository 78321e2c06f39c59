package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dGC/lib/gc"
)

// --------------------------------------------------------------------------
// Collector configuration struct
// --------------------------------------------------------------------------

// CollectorConfig holds all configuration parameters of the default collector
type CollectorConfig struct {
	// Name used in logs and metric labels
	Name string

	// Pause between two background cycles
	Interval time.Duration

	// Disable the background loop, cycles only run on ForceCollect
	Manual bool

	// Let the go runtime drop rooted handles that were lost without Drop
	ReleaseLeakedRoots bool

	// Log level spec, e.g. "info" or "warn,gc/events=debug"
	LogLevel string
}

// DefaultCollectorConfig returns the configuration matching gc.DefaultOptions
func DefaultCollectorConfig() CollectorConfig {
	opts := gc.DefaultOptions()
	return CollectorConfig{
		Name:     opts.Name,
		Interval: opts.Interval,
		LogLevel: "info",
	}
}

// Validate checks the configuration for values the collector can't work with
func (c *CollectorConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("collector name must not be empty")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("collector interval must be positive, got %s", c.Interval)
	}
	if _, err := ParseLogLevels(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ToOptions converts the configuration to gc.Options
func (c *CollectorConfig) ToOptions() *gc.Options {
	return &gc.Options{
		Name:               c.Name,
		Interval:           c.Interval,
		Manual:             c.Manual,
		ReleaseLeakedRoots: c.ReleaseLeakedRoots,
	}
}

// String returns a formatted string representation of the configuration
func (c *CollectorConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Collector")
	addField("Name", c.Name)
	if c.Manual {
		addField("Background Loop", "disabled")
	} else {
		addField("Background Loop", "enabled")
		addField("Interval", c.Interval.String())
	}
	addField("Release Leaked Roots", fmt.Sprintf("%t", c.ReleaseLeakedRoots))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
