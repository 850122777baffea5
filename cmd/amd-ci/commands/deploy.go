package commands

import (
	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/amd-ci/cmd/amd-ci/handlers"
)

// Deploy returns the cluster deployment command.
func Deploy(opts *handlers.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the OpenShift cluster",
		Long: `Deploy an OpenShift cluster through kcli on the configured libvirt host.

Any existing cluster with the same name is deleted first. "major.minor"
versions resolve to the latest accepted stable patch release. The command
waits for the cluster API and all nodes, then installs the admin kubeconfig
at /root/kubeconfig on the host.

Operators are not installed here; run "amd-ci operators" afterwards.

Examples:
  # Deploy using amd-ci.yaml in the current directory
  amd-ci deploy

  # Deploy on a remote libvirt host
  amd-ci deploy -c lab.yaml --remote-host 10.0.0.5 --remote-key ~/.ssh/lab`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), *opts)
		},
	}

	cmd.Flags().StringVar(&opts.KubeconfigOut, "kubeconfig-out", "", "Also write the admin kubeconfig to this local path")

	return cmd
}

// Delete returns the cluster teardown command.
func Delete(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the cluster VMs and kcli artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Delete(cmd.Context(), *opts)
		},
	}
}
