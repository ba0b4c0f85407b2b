package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bailuo/redspot/internal/core"
)

var (
	flagConfig   string
	flagNetwork  string
	flagLogLevel string
	flagLogFile  string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "redspot",
	Short: "Task runner for ink! smart contract development",
	Long: `Redspot runs the tasks of an ink! smart contract project.

Tasks come built in (help, config, contracts, rpc) or are defined by the
Lua plugins listed in redspot.config.yaml. A plugin can define a task with
an existing name to override it and call the original through runSuper.

Global options go before the command:
  redspot --network substrate run rpc system_chain`,
	SilenceErrors:    true,
	SilenceUsage:     true,
	TraverseChildren: true,
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error %s", err))
		os.Exit(1)
	}
}

// runtimeArguments collects the global options.
func runtimeArguments() core.RuntimeArguments {
	logLevel := flagLogLevel
	if logLevel == "" {
		logLevel = os.Getenv("REDSPOT_LOG_LEVEL")
	}
	if flagVerbose && logLevel == "" {
		logLevel = "debug"
	}
	return core.RuntimeArguments{
		Network:  flagNetwork,
		LogLevel: logLevel,
		Config:   flagConfig,
		Verbose:  flagVerbose,
		LogFile:  flagLogFile,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "A redspot config file")
	rootCmd.PersistentFlags().StringVar(&flagNetwork, "network", "", "The network to connect to")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: error, warn, info, debug, trace or 0-4")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Also append every log message to this file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
