package operators

import (
	"context"
	"fmt"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
)

// gpuNodeLabels are the labels the node labeller and NFD put on GPU nodes.
// Cleanup strips all of them so a reinstalled stack starts from clean state.
var gpuNodeLabels = []string{
	"amd.com/gpu",
	"amd.com/gpu.cu-count",
	"amd.com/gpu.device-id",
	"amd.com/gpu.driver-version",
	"amd.com/gpu.family",
	"amd.com/gpu.simd-count",
	"amd.com/gpu.vram",
	"beta.amd.com/gpu.cu-count",
	"beta.amd.com/gpu.device-id",
	"beta.amd.com/gpu.family",
	"beta.amd.com/gpu.simd-count",
	"beta.amd.com/gpu.vram",
	"feature.node.kubernetes.io/amd-gpu",
	"feature.node.kubernetes.io/amd-vgpu",
}

const (
	nodeFeatureRuleResource = "nodefeaturerules.nfd.openshift.io"
	nfdInstanceResource     = "nodefeaturediscoveries.nfd.openshift.io"
)

// Cleanup tears the operator stack down in reverse install order. Every
// step is best-effort: absent resources are skipped and other failures are
// logged without stopping the remaining steps, so a half-installed stack
// can still be cleaned.
func (s *Stack) Cleanup(ctx context.Context) error {
	s.logf("Cleaning up AMD GPU operator stack...")

	s.deleteQuiet(ctx, s.cfg.DeviceConfigCRD, s.cfg.DeviceConfigName, s.cfg.AMDGPU.Namespace)
	s.deleteQuiet(ctx, nodeFeatureRuleResource, s.cfg.NFDFeatureRuleName, s.cfg.AMDGPU.Namespace)
	s.deleteQuiet(ctx, nfdInstanceResource, s.cfg.NFDInstanceName, s.cfg.NFD.Namespace)

	s.uninstallOperator(ctx, s.cfg.AMDGPU)
	s.uninstallOperator(ctx, s.cfg.KMM)
	s.uninstallOperator(ctx, s.cfg.NFD)

	s.deleteQuiet(ctx, "machineconfig", s.cfg.BlacklistMachineConfig, "")

	s.removeGPUNodeLabels(ctx)

	if err := s.oc.Patch(ctx, registryConfigKind, registryConfigName, "", registryRemovedPatch); err != nil {
		s.logf("Warning: failed to reset image registry: %v", err)
	}

	s.deleteQuiet(ctx, "namespace", s.cfg.AMDGPU.Namespace, "")
	s.deleteQuiet(ctx, "namespace", s.cfg.KMM.Namespace, "")
	s.deleteQuiet(ctx, "namespace", s.cfg.NFD.Namespace, "")

	s.logf("AMD GPU operator stack cleanup complete.")
	return nil
}

// uninstallOperator removes an OLM-installed operator: the Subscription,
// the CSV it resolved to, and every OperatorGroup in the namespace.
func (s *Stack) uninstallOperator(ctx context.Context, src config.OLMSource) {
	var csvName string
	if sub, err := s.oc.Subscription(ctx, src.Namespace, src.SubscriptionName); err == nil {
		csvName = ocp.InstalledCSVName(sub)
	}

	s.deleteQuiet(ctx, "subscription", src.SubscriptionName, src.Namespace)
	if csvName != "" {
		s.deleteQuiet(ctx, "csv", csvName, src.Namespace)
	}

	groups, err := s.oc.OperatorGroupNames(ctx, src.Namespace)
	if err != nil {
		s.logf("Warning: cannot list operatorgroups in %s: %v", src.Namespace, err)
		return
	}
	for _, og := range groups {
		s.deleteQuiet(ctx, "operatorgroup", og, src.Namespace)
	}
}

// removeGPUNodeLabels strips the GPU labels from every node.
func (s *Stack) removeGPUNodeLabels(ctx context.Context) {
	nodes, err := s.oc.Nodes(ctx)
	if err != nil {
		s.logf("Warning: cannot list nodes for label cleanup: %v", err)
		return
	}
	removals := make([]string, len(gpuNodeLabels))
	for i, lbl := range gpuNodeLabels {
		removals[i] = lbl + "-"
	}
	for _, node := range nodes.Items {
		if err := s.oc.Label(ctx, "node", node.Name, "", removals...); err != nil {
			s.logf("Warning: label cleanup on node %s: %v", node.Name, err)
		}
	}
}

func (s *Stack) deleteQuiet(ctx context.Context, kind, name, namespace string) {
	if err := s.oc.Delete(ctx, kind, name, namespace); err != nil {
		target := kind + "/" + name
		if namespace != "" {
			target = fmt.Sprintf("%s/%s -n %s", kind, name, namespace)
		}
		s.logf("Warning: delete %s: %v", target, err)
	}
}
