// Package cmd provides the command-line interface of the line simulator.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/smtline/smtline/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smtline",
	Short: "smtline simulates SMT PCB production lines.",
	Long: `smtline simulates SMT PCB production lines described in YAML. ` +
		`It reports the throughput, cycle times, utilization and energy ` +
		`of every part of the line.`,
	SilenceUsage: true,
}

var defaults config.Defaults

func init() {
	cobra.OnInitialize(loadDefaults)
}

func loadDefaults() {
	d, err := config.DefaultsFromEnv()
	if err != nil {
		logrus.WithError(err).Warn("ignoring environment defaults")

		d = config.Defaults{LogLevel: "info"}
	}

	defaults = d
}

func setLogLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}

	logrus.SetLevel(level)

	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Registered exit handlers, such as the flushing of
// recordings, run before the program ends.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
