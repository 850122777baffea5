// Package operators installs and configures the AMD GPU operator stack on a
// running cluster: prerequisite verification, internal registry setup, the
// OLM installs (NFD, KMM, AMD GPU Operator, strictly in that order), and the
// post-install resources (NFD operand, NodeFeatureRule, amdgpu blacklist
// MachineConfig, DeviceConfig, monitoring label).
//
// Every step checks idempotency before mutating, so a partially failed run
// can be retried end to end.
package operators

import (
	"context"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

// Stack drives the operator installation against one cluster.
type Stack struct {
	oc       *ocp.Client
	cfg      config.OperatorsConfig
	timeouts *config.Timeouts

	// ocpVersion selects version-dependent operand settings (the NFD
	// operand image must be explicit on 4.16).
	ocpVersion string

	log waiter.Logger
}

// NewStack creates a Stack. cfg must already carry resolved defaults; the
// GPU operator version should be a full x.y.z when pinning is wanted.
func NewStack(oc *ocp.Client, cfg config.OperatorsConfig, timeouts *config.Timeouts, ocpVersion string, log waiter.Logger) *Stack {
	return &Stack{oc: oc, cfg: cfg, timeouts: timeouts, ocpVersion: ocpVersion, log: log}
}

func (s *Stack) logf(format string, v ...any) {
	if s.log != nil {
		s.log.Printf(format, v...)
	}
}

// WaitForClusterStability blocks until all nodes are Ready and all
// ClusterOperators are healthy.
func (s *Stack) WaitForClusterStability(ctx context.Context) error {
	return waiter.Wait(ctx, s.oc.ClusterStableCondition(s.timeouts.ClusterStability), s.log)
}

// WaitForGPUReady blocks until device-plugin pods run and at least one
// amd.com/gpu resource is reported.
func (s *Stack) WaitForGPUReady(ctx context.Context) error {
	return waiter.Wait(ctx, s.oc.GPUReadyCondition(s.cfg.AMDGPU.Namespace, s.timeouts.GPUReady), s.log)
}
