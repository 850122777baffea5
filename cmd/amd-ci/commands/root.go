// Package commands defines the CLI command structure and flag bindings.
// Argument parsing and validation live here; execution is delegated to the
// handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/amd-ci/cmd/amd-ci/handlers"
)

// Root returns the root command for the amd-ci CLI.
func Root() *cobra.Command {
	var opts handlers.Options

	cmd := &cobra.Command{
		Use:   "amd-ci",
		Short: "Provision ephemeral OpenShift clusters and the AMD GPU operator stack",
		Long: `amd-ci deploys kcli/libvirt-backed OpenShift clusters, locally or on a
remote host over SSH, and installs the AMD GPU operator stack
(NFD -> Kernel Module Management -> AMD GPU Operator) through OLM.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: amd-ci.yaml)")
	pf.StringVar(&opts.RemoteHost, "remote-host", "", "Remote libvirt host (overrides the config file)")
	pf.StringVar(&opts.RemoteUser, "remote-user", "", "SSH user for the remote host")
	pf.StringVar(&opts.RemoteKey, "remote-key", "", "SSH private key path for the remote host")

	cmd.AddCommand(Deploy(&opts))
	cmd.AddCommand(Operators(&opts))
	cmd.AddCommand(Cleanup(&opts))
	cmd.AddCommand(Delete(&opts))
	cmd.AddCommand(DryRun(&opts))
	cmd.AddCommand(Init())
	cmd.AddCommand(Version())

	return cmd
}
