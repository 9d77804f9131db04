package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smtline/smtline/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config.yaml]",
	Short: "Check a line description without running it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(args[0])
		if err != nil {
			return err
		}

		if err := c.Validate(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: line %s is valid\n",
			args[0], c.Name)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
