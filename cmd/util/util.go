package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dGC/lib/common"
	"github.com/ValentinKolb/dGC/lib/gc"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

var log = logger.GetLogger("cmd")

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupCollectorFlags adds the flags configuring the default collector to a command
func SetupCollectorFlags(cmd *cobra.Command) {
	defaults := common.DefaultCollectorConfig()

	key := "name"
	cmd.PersistentFlags().String(key, defaults.Name, WrapString("Name of the collector, used in logs and metric labels"))

	key = "interval"
	cmd.PersistentFlags().Duration(key, defaults.Interval, WrapString("Pause between two background collection cycles"))

	key = "manual"
	cmd.PersistentFlags().Bool(key, defaults.Manual, WrapString("Disable the background collection loop, cycles only run when forced"))

	key = "release-leaked-roots"
	cmd.PersistentFlags().Bool(key, defaults.ReleaseLeakedRoots, WrapString("Let the Go runtime drop rooted handles that were lost without calling Drop"))

	key = "log-level"
	cmd.PersistentFlags().String(key, defaults.LogLevel, WrapString("Log level (debug, info, warn, error), optionally followed by per logger levels like gc/events=debug"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dgc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetCollectorConfig reads the collector configuration from viper
func GetCollectorConfig() *common.CollectorConfig {
	return &common.CollectorConfig{
		Name:               viper.GetString("name"),
		Interval:           viper.GetDuration("interval"),
		Manual:             viper.GetBool("manual"),
		ReleaseLeakedRoots: viper.GetBool("release-leaked-roots"),
		LogLevel:           viper.GetString("log-level"),
	}
}

// SetupCollector validates the configuration, initializes the loggers and creates the default collector
func SetupCollector(cmd *cobra.Command) (*common.CollectorConfig, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	config := GetCollectorConfig()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := common.InitLoggers(config.LogLevel); err != nil {
		return nil, err
	}

	if !gc.InitWithOptions(config.ToOptions()) {
		log.Warningf("default collector already initialized, ignoring configuration")
	}
	return config, nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
