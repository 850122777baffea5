package operators

import (
	"context"
	"fmt"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/rh-ecosystem-edge/amd-ci/api/v1alpha1"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/operators/manifests"
	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

// amdGPUSelectorLabel is the NFD label the DeviceConfig selects nodes by.
const amdGPUSelectorLabel = "feature.node.kubernetes.io/amd-gpu"

const monitoringLabel = "openshift.io/cluster-monitoring=true"

// EnsureNFDInstance applies the NodeFeatureDiscovery operand CR that starts
// the NFD pods. AMD GPU detection rules live in a separate NodeFeatureRule.
func (s *Stack) EnsureNFDInstance(ctx context.Context) (ocp.ApplyOutcome, error) {
	manifest, err := manifests.NFDInstance(s.cfg.NFDInstanceName, s.cfg.NFD.Namespace, s.ocpVersion)
	if err != nil {
		return ocp.Applied, err
	}
	outcome, err := s.oc.Apply(ctx, manifest)
	if err != nil {
		return outcome, fmt.Errorf("applying NodeFeatureDiscovery instance: %w", err)
	}
	s.logf("NodeFeatureDiscovery instance %s (%s).", s.cfg.NFDInstanceName, outcome)
	return outcome, nil
}

// EnsureNodeFeatureRule applies the PCI-device rule that labels nodes
// carrying AMD GPUs and vGPUs.
func (s *Stack) EnsureNodeFeatureRule(ctx context.Context) (ocp.ApplyOutcome, error) {
	manifest, err := manifests.NodeFeatureRule(s.cfg.NFDFeatureRuleName, s.cfg.AMDGPU.Namespace)
	if err != nil {
		return ocp.Applied, err
	}
	outcome, err := s.oc.Apply(ctx, manifest)
	if err != nil {
		return outcome, fmt.Errorf("applying NodeFeatureRule: %w", err)
	}
	s.logf("NodeFeatureRule %s (%s).", s.cfg.NFDFeatureRuleName, outcome)
	return outcome, nil
}

// EnsureBlacklistMachineConfig applies the MachineConfig that blacklists the
// in-tree amdgpu module. When anything changed, the MachineConfigOperator
// reboots the affected nodes; callers follow up with WaitForMCPUpdated.
func (s *Stack) EnsureBlacklistMachineConfig(ctx context.Context) (ocp.ApplyOutcome, error) {
	manifest, err := manifests.BlacklistMachineConfig(s.cfg.BlacklistMachineConfig, s.cfg.MachineConfigRole)
	if err != nil {
		return ocp.Applied, err
	}
	outcome, err := s.oc.Apply(ctx, manifest)
	if err != nil {
		return outcome, fmt.Errorf("applying amdgpu blacklist MachineConfig: %w", err)
	}
	s.logf("amdgpu blacklist MachineConfig %s (role %s, %s).",
		s.cfg.BlacklistMachineConfig, s.cfg.MachineConfigRole, outcome)
	return outcome, nil
}

// WaitForMCPUpdated blocks until the MachineConfigPool rollout (including
// any reboot) completes.
func (s *Stack) WaitForMCPUpdated(ctx context.Context) error {
	return waiter.Wait(ctx, s.oc.MCPUpdatedCondition(s.timeouts.MCPUpdate), s.log)
}

// EnsureDeviceConfig waits for the DeviceConfig CRD to be Established, then
// applies the DeviceConfig CR that triggers the out-of-tree driver build.
// Succeeds with no GPU hardware present; the driver simply has no nodes to
// target until NFD labels appear.
func (s *Stack) EnsureDeviceConfig(ctx context.Context) (ocp.ApplyOutcome, error) {
	apiVersion, err := s.waitForDeviceConfigCRD(ctx)
	if err != nil {
		return ocp.Applied, err
	}

	dc := v1alpha1.DeviceConfig{
		TypeMeta: metav1.TypeMeta{
			APIVersion: apiVersion,
			Kind:       v1alpha1.Kind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      s.cfg.DeviceConfigName,
			Namespace: s.cfg.AMDGPU.Namespace,
		},
		Spec: v1alpha1.DeviceConfigSpec{
			Driver: v1alpha1.DriverSpec{
				Enable:  v1alpha1.Bool(true),
				Image:   s.cfg.DriverImage,
				Version: s.cfg.DriverVersion,
			},
			DevicePlugin: v1alpha1.DevicePluginSpec{
				EnableNodeLabeller: v1alpha1.Bool(true),
			},
			Selector: map[string]string{amdGPUSelectorLabel: "true"},
		},
	}
	if s.cfg.MetricsEnabled() {
		dc.Spec.MetricsExporter = &v1alpha1.MetricsExporterSpec{
			Enable: v1alpha1.Bool(true),
			Prometheus: &v1alpha1.PrometheusConfig{
				ServiceMonitor: &v1alpha1.ServiceMonitorConfig{
					Enable:         v1alpha1.Bool(true),
					Interval:       "60s",
					AttachMetadata: &v1alpha1.AttachMetadata{Node: v1alpha1.Bool(true)},
				},
			},
		}
	}

	manifest, err := sigsyaml.Marshal(dc)
	if err != nil {
		return ocp.Applied, fmt.Errorf("encoding DeviceConfig: %w", err)
	}
	outcome, err := s.oc.Apply(ctx, string(manifest))
	if err != nil {
		return outcome, fmt.Errorf("applying DeviceConfig: %w", err)
	}
	s.logf("DeviceConfig %s (%s).", s.cfg.DeviceConfigName, outcome)
	return outcome, nil
}

// waitForDeviceConfigCRD waits for the DeviceConfig CRD to be Established
// and returns the apiVersion to use for the CR. The CRD name is discovered
// from the installed AMD CSV's owned CRDs when possible (the certified
// operator may publish under a different group); otherwise the configured
// default applies. On timeout the error enumerates the AMD-related CRDs
// actually present, which may legitimately be none.
func (s *Stack) waitForDeviceConfigCRD(ctx context.Context) (string, error) {
	crdName := s.cfg.DeviceConfigCRD
	apiVersion := v1alpha1.GroupVersion
	if discovered := s.deviceConfigCRDFromCSV(ctx); discovered != nil {
		crdName = discovered.Name
		apiVersion = ocp.APIVersionForCRD(*discovered)
	}

	cond := waiter.Condition{
		Name:     fmt.Sprintf("CRD %s Established", crdName),
		Interval: 5 * time.Second,
		Timeout:  s.timeouts.CRDEstablish,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			established, err := s.oc.CRDEstablished(ctx, crdName)
			if err != nil {
				return waiter.Pending("cannot read CRD: %v", err), nil
			}
			if established {
				return waiter.Satisfied(), nil
			}
			return waiter.Pending("CRD not Established yet"), nil
		},
	}
	if err := waiter.Wait(ctx, cond, s.log); err != nil {
		if waiter.IsTimeout(err) {
			return "", fmt.Errorf("%w; %s", err, s.deviceConfigCRDDiagnostics(ctx))
		}
		return "", err
	}
	return apiVersion, nil
}

// deviceConfigCRDFromCSV finds the DeviceConfig CRD declared by the AMD GPU
// Operator's installed CSV. KMM (AllNamespaces) also places a CSV in this
// namespace, so matching goes by owned-CRD kind, not by CSV presence.
func (s *Stack) deviceConfigCRDFromCSV(ctx context.Context) *ocp.CSVOwnedCRD {
	for _, crd := range s.amdCSVOwnedCRDs(ctx) {
		if crd.Kind == v1alpha1.Kind || strings.Contains(strings.ToLower(crd.Name), "deviceconfig") {
			found := crd
			return &found
		}
	}
	return nil
}

// amdCSVOwnedCRDs returns the owned CRDs of the AMD GPU Operator CSV:
// preferably the one named by the subscription's installedCSV, otherwise any
// Succeeded CSV in the namespace that owns a DeviceConfig kind.
func (s *Stack) amdCSVOwnedCRDs(ctx context.Context) []ocp.CSVOwnedCRD {
	ns := s.cfg.AMDGPU.Namespace

	sub, err := s.oc.Subscription(ctx, ns, s.cfg.AMDGPU.SubscriptionName)
	if err == nil {
		if name := ocp.InstalledCSVName(sub); name != "" {
			csv, err := s.oc.CSV(ctx, ns, name)
			if err == nil && string(csv.Status.Phase) == "Succeeded" {
				return ocp.OwnedCRDs(csv)
			}
		}
	}

	list, err := s.oc.CSVs(ctx, ns)
	if err != nil {
		return nil
	}
	for i := range list.Items {
		csv := &list.Items[i]
		if string(csv.Status.Phase) != "Succeeded" {
			continue
		}
		owned := ocp.OwnedCRDs(csv)
		for _, crd := range owned {
			if crd.Kind == v1alpha1.Kind || strings.Contains(strings.ToLower(crd.Name), "deviceconfig") {
				return owned
			}
		}
	}
	return nil
}

func (s *Stack) deviceConfigCRDDiagnostics(ctx context.Context) string {
	amdCRDs, err := s.oc.ListCRDNames(ctx, "amd")
	var present string
	switch {
	case err != nil:
		present = "AMD-related CRDs present: unknown (" + err.Error() + ")"
	case len(amdCRDs) == 0:
		present = "no AMD-related CRDs present"
	default:
		present = "AMD-related CRDs present: " + strings.Join(amdCRDs, ", ")
	}

	owned := s.amdCSVOwnedCRDs(ctx)
	if len(owned) == 0 {
		return present
	}
	names := make([]string, 0, len(owned))
	for _, crd := range owned {
		names = append(names, crd.Name)
	}
	return present + "; AMD GPU Operator CSV owns: " + strings.Join(names, ", ")
}

// EnableClusterMonitoring labels the GPU namespace for OpenShift cluster
// monitoring. Metadata only, always idempotent.
func (s *Stack) EnableClusterMonitoring(ctx context.Context) error {
	if err := s.oc.Label(ctx, "namespace", s.cfg.AMDGPU.Namespace, "", monitoringLabel); err != nil {
		return fmt.Errorf("labelling namespace for monitoring: %w", err)
	}
	s.logf("Cluster monitoring enabled for %s.", s.cfg.AMDGPU.Namespace)
	return nil
}
