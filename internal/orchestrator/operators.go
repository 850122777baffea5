package orchestrator

import (
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/operators"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
)

// OperatorPhases builds the GPU operator-stack installation pipeline. Every
// phase checks before it mutates, so the whole pipeline is safe to re-run
// after a partial failure.
func OperatorPhases(deps *Deps, stack *operators.Stack) []Phase {
	return []Phase{
		PhaseFunc("preflight transport", func(rc *Context) error {
			return transport.Check(rc.Ctx, deps.Transport)
		}),
		PhaseFunc("verify prerequisites", func(rc *Context) error {
			return stack.VerifyPrerequisites(rc.Ctx)
		}),
		PhaseFunc("configure image registry", func(rc *Context) error {
			return stack.ConfigureRegistry(rc.Ctx)
		}),
		PhaseFunc("wait for cluster stability", func(rc *Context) error {
			return stack.WaitForClusterStability(rc.Ctx)
		}),
		PhaseFunc("blacklist inbox amdgpu driver", func(rc *Context) error {
			outcome, err := stack.EnsureBlacklistMachineConfig(rc.Ctx)
			if err != nil {
				return err
			}
			rc.Logf("blacklist MachineConfig: %s", outcome)
			if err := stack.WaitForMCPUpdated(rc.Ctx); err != nil {
				return err
			}
			// A rollout reboots nodes; let the operators land on a quiet
			// cluster.
			return stack.WaitForClusterStability(rc.Ctx)
		}),
		PhaseFunc("install operators", func(rc *Context) error {
			return stack.InstallAll(rc.Ctx)
		}),
		PhaseFunc("configure GPU stack", func(rc *Context) error {
			steps := []struct {
				what string
				run  func() (ocp.ApplyOutcome, error)
			}{
				{"NFD instance", func() (ocp.ApplyOutcome, error) { return stack.EnsureNFDInstance(rc.Ctx) }},
				{"NodeFeatureRule", func() (ocp.ApplyOutcome, error) { return stack.EnsureNodeFeatureRule(rc.Ctx) }},
				{"DeviceConfig", func() (ocp.ApplyOutcome, error) { return stack.EnsureDeviceConfig(rc.Ctx) }},
			}
			for _, step := range steps {
				outcome, err := step.run()
				if err != nil {
					return err
				}
				rc.Logf("%s: %s", step.what, outcome)
			}
			return stack.EnableClusterMonitoring(rc.Ctx)
		}),
		PhaseFunc("wait for stack settled", func(rc *Context) error {
			return stack.WaitForClusterStability(rc.Ctx)
		}),
		PhaseFunc("verify GPU availability", func(rc *Context) error {
			if !rc.Config.Operators.GPUVerificationEnabled() {
				rc.Logf("GPU verification disabled, skipping")
				return nil
			}
			return stack.WaitForGPUReady(rc.Ctx)
		}),
	}
}

// CleanupPhases builds the reverse-teardown pipeline. Teardown is
// best-effort throughout; absent resources are not errors.
func CleanupPhases(deps *Deps, stack *operators.Stack) []Phase {
	return []Phase{
		PhaseFunc("preflight transport", func(rc *Context) error {
			return transport.Check(rc.Ctx, deps.Transport)
		}),
		PhaseFunc("remove GPU operator stack", func(rc *Context) error {
			return stack.Cleanup(rc.Ctx)
		}),
	}
}
