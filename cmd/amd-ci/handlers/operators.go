package handlers

import (
	"context"
	"fmt"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/operators"
	"github.com/rh-ecosystem-edge/amd-ci/internal/orchestrator"
	"github.com/rh-ecosystem-edge/amd-ci/internal/release"
)

// Operators installs and configures the NFD -> KMM -> AMD GPU operator
// stack on an already-deployed cluster.
func Operators(ctx context.Context, opts Options) error {
	cfg, timeouts, err := loadConfig(opts)
	if err != nil {
		return err
	}

	obs := newObserver()
	deps, err := buildDeps(cfg, opts, obs)
	if err != nil {
		return err
	}

	if err := resolveOperatorVersion(ctx, cfg, deps.Resolver, obs); err != nil {
		return err
	}

	stack := operators.NewStack(deps.OCP, cfg.Operators, timeouts, cfg.Cluster.Version, logAdapter{obs})
	return runPipeline(ctx, cfg, timeouts, obs, orchestrator.OperatorPhases(deps, stack))
}

// Cleanup removes the GPU operator stack from the cluster, best-effort.
func Cleanup(ctx context.Context, opts Options) error {
	cfg, timeouts, err := loadConfig(opts)
	if err != nil {
		return err
	}

	obs := newObserver()
	deps, err := buildDeps(cfg, opts, obs)
	if err != nil {
		return err
	}

	stack := operators.NewStack(deps.OCP, cfg.Operators, timeouts, cfg.Cluster.Version, logAdapter{obs})
	return runPipeline(ctx, cfg, timeouts, obs, orchestrator.CleanupPhases(deps, stack))
}

// resolveOperatorVersion pins a "major.minor" GPU operator request to the
// newest published release and warns when the line is not yet in the
// certified catalog.
func resolveOperatorVersion(ctx context.Context, cfg *config.Config, resolver *release.Resolver, obs orchestrator.Observer) error {
	requested := cfg.Operators.GPUOperatorVersion
	if !release.IsMinorOnly(requested) {
		return nil
	}
	rel, err := resolver.ResolveGPUOperatorVersion(ctx, requested)
	if err != nil {
		return fmt.Errorf("resolving gpu operator version %q: %w", requested, err)
	}
	cfg.Operators.GPUOperatorVersion = rel.Version
	if obs != nil {
		if rel.Certified {
			obs.Progress(fmt.Sprintf("resolved AMD GPU operator %s to %s (certified)", requested, rel.Version))
		} else {
			obs.Progress(fmt.Sprintf("resolved AMD GPU operator %s to %s; not yet in the certified catalog, install may not resolve", requested, rel.Version))
		}
	}
	return nil
}
