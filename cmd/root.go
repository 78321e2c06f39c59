package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dGC/cmd/demo"
	"github.com/ValentinKolb/dGC/cmd/stress"
	"github.com/ValentinKolb/dGC/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dgc",
		Short: "concurrent mark-and-sweep garbage collector",
		Long: fmt.Sprintf(`dGC (v%s)

A concurrent mark-and-sweep garbage collector for Go object graphs.
Values are managed through tracked handles, so cyclic shared ownership
works without manual lifetime bookkeeping.

The collector can be configured via command line flags or environment
variables. The format of the environment variables is DGC_<flag>
(e.g. DGC_LOG_LEVEL=debug).`, Version),
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dGC",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dGC v%s\n", Version)
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Print the effective collector configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := util.SetupCollector(cmd)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.String())
			return nil
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(demo.DemoCmd)
	RootCmd.AddCommand(stress.StressCmd)
	RootCmd.AddCommand(infoCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupCollectorFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
