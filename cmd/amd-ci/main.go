// Package main is the entry point for the amd-ci CLI.
//
// amd-ci provisions ephemeral OpenShift clusters with kcli on libvirt,
// locally or on a remote host over SSH, and installs the AMD GPU operator
// stack (NFD, Kernel Module Management, AMD GPU Operator) through OLM.
//
// Commands: init, deploy, operators, cleanup, delete, dry-run, version.
//
// For detailed usage information, run:
//
//	amd-ci --help
package main

import (
	"fmt"
	"os"

	"github.com/rh-ecosystem-edge/amd-ci/cmd/amd-ci/commands"
)

// Version information set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
