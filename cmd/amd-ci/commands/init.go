package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/amd-ci/cmd/amd-ci/handlers"
)

// Init returns the interactive config generator command.
func Init() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a configuration file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), output, force, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: amd-ci.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
