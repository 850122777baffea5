package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/kcli"
	"github.com/rh-ecosystem-edge/amd-ci/internal/kubeconfig"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/operators"
	"github.com/rh-ecosystem-edge/amd-ci/internal/operators/manifests"
	"github.com/rh-ecosystem-edge/amd-ci/internal/orchestrator"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
)

// DryRun prints the effective plan without touching the transport: resolved
// configuration, phase ordering, wait budgets, kcli parameters, and the
// manifests the operators pipeline would apply.
func DryRun(ctx context.Context, opts Options, out io.Writer) error {
	cfg, timeouts, err := loadConfig(opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "cluster: %s (%s), OpenShift %s, domain %s\n",
		cfg.Cluster.Name, cfg.Cluster.Topology(), cfg.Cluster.Version, cfg.Cluster.Domain)
	if cfg.Remote != nil {
		fmt.Fprintf(out, "target:  %s@%s (SSH)\n", cfg.Remote.User, cfg.Remote.Host)
	} else {
		fmt.Fprintf(out, "target:  local libvirt\n")
	}

	fmt.Fprintf(out, "\nkcli create cluster openshift parameters:\n")
	for _, p := range kcli.RenderParams(cfg.Cluster) {
		value := p.Value
		if p.Key == "pull_secret" {
			value = p.Value + " (path)"
		}
		fmt.Fprintf(out, "  -P %s=%s\n", p.Key, value)
	}

	// Phase listings come from the real pipeline builders against inert
	// components, so dry-run can never drift from what deploy/operators do.
	inert := transport.NewFake()
	deps := &orchestrator.Deps{
		Transport: inert,
		KCLI:      kcli.NewRunner(inert, nil),
		OCP:       ocp.NewClient(inert, kubeconfig.HostPath),
		Kube:      kubeconfig.NewManager(inert, nil),
	}
	stack := operators.NewStack(deps.OCP, cfg.Operators, timeouts, cfg.Cluster.Version, nil)

	printPhases(out, "deploy", orchestrator.PlanOf(orchestrator.DeployPhases(deps)))
	printPhases(out, "operators", orchestrator.PlanOf(orchestrator.OperatorPhases(deps, stack)))
	printPhases(out, "cleanup", orchestrator.PlanOf(orchestrator.CleanupPhases(deps, stack)))

	fmt.Fprintf(out, "\nwait budgets:\n")
	for _, b := range timeouts.Budgets() {
		fmt.Fprintf(out, "  %-18s %s\n", b.Name, b.Timeout)
	}

	fmt.Fprintf(out, "\nmanifests the operators pipeline applies:\n")
	if err := printManifests(out, cfg); err != nil {
		return err
	}
	return nil
}

func printPhases(out io.Writer, pipeline string, names []string) {
	fmt.Fprintf(out, "\n%s phases:\n", pipeline)
	for i, name := range names {
		fmt.Fprintf(out, "  %d. %s\n", i+1, name)
	}
}

func printManifests(out io.Writer, cfg *config.Config) error {
	o := cfg.Operators
	renders := []struct {
		what string
		fn   func() (string, error)
	}{
		{"NFD instance", func() (string, error) {
			return manifests.NFDInstance(o.NFDInstanceName, o.NFD.Namespace, cfg.Cluster.Version)
		}},
		{"NodeFeatureRule", func() (string, error) {
			return manifests.NodeFeatureRule(o.NFDFeatureRuleName, o.AMDGPU.Namespace)
		}},
		{"blacklist MachineConfig", func() (string, error) {
			return manifests.BlacklistMachineConfig(o.BlacklistMachineConfig, o.MachineConfigRole)
		}},
	}
	for _, r := range renders {
		manifest, err := r.fn()
		if err != nil {
			return fmt.Errorf("rendering %s: %w", r.what, err)
		}
		fmt.Fprintf(out, "\n--- %s ---\n%s\n", r.what, strings.TrimRight(manifest, "\n"))
	}
	return nil
}
