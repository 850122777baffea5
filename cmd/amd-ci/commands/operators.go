package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/amd-ci/cmd/amd-ci/handlers"
)

// Operators returns the operator-stack installation command.
func Operators(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "operators",
		Short: "Install the AMD GPU operator stack on the cluster",
		Long: `Install and configure the GPU operator stack on an already-deployed
cluster: verify platform prerequisites, configure the image registry,
blacklist the inbox amdgpu driver, install NFD, Kernel Module Management and
the AMD GPU Operator through OLM, then create the NFD instance,
NodeFeatureRule and DeviceConfig.

The command is safe to re-run; already-correct resources are left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Operators(cmd.Context(), *opts)
		},
	}
}

// Cleanup returns the operator-stack removal command.
func Cleanup(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the AMD GPU operator stack from the cluster",
		Long: `Remove everything the operators command installed, in reverse order.
Teardown is best-effort: resources that are already gone are skipped, and a
failing step is logged without stopping the rest.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Cleanup(cmd.Context(), *opts)
		},
	}
}

// DryRun returns the plan-printing command.
func DryRun(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Print the effective plan without executing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DryRun(cmd.Context(), *opts, os.Stdout)
		},
	}
}
