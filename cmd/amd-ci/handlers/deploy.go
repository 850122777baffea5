package handlers

import (
	"context"

	"github.com/rh-ecosystem-edge/amd-ci/internal/orchestrator"
)

// Deploy provisions the OpenShift cluster through kcli. Operators are
// installed separately by the operators command.
func Deploy(ctx context.Context, opts Options) error {
	cfg, timeouts, err := loadConfig(opts)
	if err != nil {
		return err
	}

	obs := newObserver()
	deps, err := buildDeps(cfg, opts, obs)
	if err != nil {
		return err
	}

	return runPipeline(ctx, cfg, timeouts, obs, orchestrator.DeployPhases(deps))
}

// Delete tears down the cluster VMs and kcli artifacts.
func Delete(ctx context.Context, opts Options) error {
	cfg, timeouts, err := loadConfig(opts)
	if err != nil {
		return err
	}

	obs := newObserver()
	deps, err := buildDeps(cfg, opts, obs)
	if err != nil {
		return err
	}

	return runPipeline(ctx, cfg, timeouts, obs, orchestrator.DeletePhases(deps))
}
