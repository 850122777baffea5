package orchestrator

import (
	"fmt"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"

	"github.com/rh-ecosystem-edge/amd-ci/internal/kcli"
	"github.com/rh-ecosystem-edge/amd-ci/internal/kubeconfig"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/release"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

// Deps bundles the components the pipelines drive. Handlers construct it
// once per invocation; nothing here outlives the run.
type Deps struct {
	Transport transport.Transport
	KCLI      *kcli.Runner
	OCP       *ocp.Client
	Kube      *kubeconfig.Manager
	Resolver  *release.Resolver

	// LocalKubeconfigPath, when set, receives a local copy of the admin
	// kubeconfig after deploy.
	LocalKubeconfigPath string
}

// DeployPhases builds the cluster deployment pipeline. Operators are not
// installed here; that is the operators command's pipeline.
func DeployPhases(deps *Deps) []Phase {
	// Run-local copy; version resolution must not mutate the loaded config.
	var spec config.ClusterSpec

	return []Phase{
		PhaseFunc("preflight transport", func(rc *Context) error {
			spec = rc.Config.Cluster
			return transport.Check(rc.Ctx, deps.Transport)
		}),
		PhaseFunc("resolve release", func(rc *Context) error {
			resolved, err := deps.Resolver.ResolveOpenShiftVersion(rc.Ctx, spec.Version)
			if err != nil {
				return fmt.Errorf("resolving OpenShift version %q: %w", spec.Version, err)
			}
			if resolved != spec.Version {
				rc.Logf("resolved OpenShift %s to %s", spec.Version, resolved)
			}
			spec.Version = resolved
			return nil
		}),
		PhaseFunc("remove stale cluster", func(rc *Context) error {
			name := spec.Name
			if err := deps.KCLI.DeleteCluster(rc.Ctx, name); err != nil {
				return err
			}
			return deps.KCLI.RemoveArtifacts(rc.Ctx, name)
		}),
		PhaseFunc("create cluster", func(rc *Context) error {
			rc.Logf("deploying %s (%s, OpenShift %s)", spec.Name, spec.Topology(), spec.Version)
			return deps.KCLI.StartCreate(rc.Ctx, spec)
		}),
		PhaseFunc("wait for cluster VMs", func(rc *Context) error {
			cond := deps.KCLI.VMsAppearedCondition(spec.Name, 1, rc.Timeouts.VMAppearance)
			if err := waiter.Wait(rc.Ctx, cond, rc); err != nil {
				if waiter.IsTimeout(err) {
					if tail := deps.KCLI.CreateLogTail(rc.Ctx, spec.Name, 20); tail != "" {
						return fmt.Errorf("%w\nkcli create log tail:\n%s", err, tail)
					}
				}
				return err
			}
			return nil
		}),
		PhaseFunc("install kubeconfig", func(rc *Context) error {
			cond := deps.Kube.AvailableCondition(spec.Name, rc.Timeouts.Deploy)
			if err := waiter.Wait(rc.Ctx, cond, rc); err != nil {
				return err
			}
			data, err := deps.Kube.Install(rc.Ctx, spec.Name)
			if err != nil {
				return err
			}
			if deps.LocalKubeconfigPath != "" {
				if err := kubeconfig.WriteLocal(deps.LocalKubeconfigPath, data); err != nil {
					return err
				}
				rc.Logf("kubeconfig written to %s", deps.LocalKubeconfigPath)
			}
			return deps.Kube.EnsureHostsEntry(rc.Ctx, spec.Name, spec.Domain, spec.APIIP)
		}),
		PhaseFunc("wait for cluster API", func(rc *Context) error {
			return waiter.Wait(rc.Ctx, deps.OCP.APIReadyCondition(rc.Timeouts.APIReady), rc)
		}),
		PhaseFunc("wait for installation complete", func(rc *Context) error {
			if err := waiter.Wait(rc.Ctx, deps.OCP.NodesReadyCondition(spec.NodeCount(), rc.Timeouts.Deploy), rc); err != nil {
				return err
			}
			return waiter.Wait(rc.Ctx, deps.OCP.ClusterVersionReadyCondition(rc.Timeouts.Deploy), rc)
		}),
	}
}

// DeletePhases tears down the cluster VMs and kcli artifacts.
func DeletePhases(deps *Deps) []Phase {
	return []Phase{
		PhaseFunc("preflight transport", func(rc *Context) error {
			return transport.Check(rc.Ctx, deps.Transport)
		}),
		PhaseFunc("delete cluster", func(rc *Context) error {
			name := rc.Config.Cluster.Name
			if err := deps.KCLI.DeleteCluster(rc.Ctx, name); err != nil {
				return err
			}
			return deps.KCLI.RemoveArtifacts(rc.Ctx, name)
		}),
	}
}
