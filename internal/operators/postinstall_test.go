package operators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

const establishedCRD = `{
	"metadata":{"name":"deviceconfigs.amd.com"},
	"status":{"conditions":[{"type":"Established","status":"True"}]}
}`

func TestEnsureNFDInstanceUnchangedOnRerun(t *testing.T) {
	fake := transport.NewFake().
		OnOutput("apply -f -", "nodefeaturediscovery.nfd.openshift.io/amd-gpu-nfd-instance unchanged")
	s := newTestStack(t, fake)

	outcome, err := s.EnsureNFDInstance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ocp.Unchanged, outcome)
}

func TestEnsureBlacklistMachineConfigManifest(t *testing.T) {
	fake := transport.NewFake()
	applies := recordApplies(fake, "machineconfig.machineconfiguration.openshift.io/amdgpu-module-blacklist created")
	s := newTestStack(t, fake)

	outcome, err := s.EnsureBlacklistMachineConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ocp.Applied, outcome)

	require.Len(t, applies.applies, 1)
	manifest := applies.applies[0].manifest
	assert.Contains(t, manifest, "machineconfiguration.openshift.io/role: master")
	assert.Contains(t, manifest, "name: amdgpu-module-blacklist")
	assert.Contains(t, manifest, "YmxhY2tsaXN0IGFtZGdwdQo=")
}

func TestEnsureDeviceConfigUsesCRDFromCSV(t *testing.T) {
	fake := transport.NewFake().
		OnOutput("get subscription amd-gpu-operator", `{"status":{"installedCSV":"amd-gpu-operator.v1.4.1"}}`).
		OnOutput("get csv amd-gpu-operator.v1.4.1", `{
			"metadata":{"name":"amd-gpu-operator.v1.4.1"},
			"spec":{"customResourceDefinitions":{"owned":[
				{"name":"deviceconfigs.gpu.amd.com","kind":"DeviceConfig","version":"v1beta1"}
			]}},
			"status":{"phase":"Succeeded"}
		}`).
		OnOutput("get crd deviceconfigs.gpu.amd.com", `{
			"metadata":{"name":"deviceconfigs.gpu.amd.com"},
			"status":{"conditions":[{"type":"Established","status":"True"}]}
		}`)
	applies := recordApplies(fake, "deviceconfig.gpu.amd.com/amd-gpu-device-config created")
	s := newTestStack(t, fake)

	outcome, err := s.EnsureDeviceConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ocp.Applied, outcome)

	require.Len(t, applies.applies, 1)
	manifest := applies.applies[0].manifest
	assert.Contains(t, manifest, "apiVersion: gpu.amd.com/v1beta1")
	assert.Contains(t, manifest, "kind: DeviceConfig")
	assert.Contains(t, manifest, "version: 30.20.1")
	assert.Contains(t, manifest, `feature.node.kubernetes.io/amd-gpu: "true"`)
	assert.Contains(t, manifest, "metricsExporter")
}

func TestEnsureDeviceConfigFallsBackToConfiguredCRD(t *testing.T) {
	fake := transport.NewFake().
		OnExit("get subscription amd-gpu-operator", 1, "Error from server (NotFound): not found").
		OnOutput("get csv -o json", `{"items":[]}`).
		OnOutput("get crd deviceconfigs.amd.com", establishedCRD)
	applies := recordApplies(fake, "deviceconfig.amd.com/amd-gpu-device-config created")
	s := newTestStack(t, fake)

	_, err := s.EnsureDeviceConfig(context.Background())
	require.NoError(t, err)
	require.Len(t, applies.applies, 1)
	assert.Contains(t, applies.applies[0].manifest, "apiVersion: amd.com/v1alpha1")
}

func TestEnsureDeviceConfigMetricsDisabled(t *testing.T) {
	fake := transport.NewFake().
		OnExit("get subscription amd-gpu-operator", 1, "Error from server (NotFound): not found").
		OnOutput("get csv -o json", `{"items":[]}`).
		OnOutput("get crd deviceconfigs.amd.com", establishedCRD)
	applies := recordApplies(fake, "created")

	cfg := testConfig(t)
	disabled := false
	cfg.EnableMetrics = &disabled
	s := NewStack(ocp.NewClient(fake, "/root/kubeconfig"), cfg, testTimeouts(), "4.17.9", nil)

	_, err := s.EnsureDeviceConfig(context.Background())
	require.NoError(t, err)
	require.Len(t, applies.applies, 1)
	assert.NotContains(t, applies.applies[0].manifest, "metricsExporter")
}

func TestEnsureDeviceConfigCRDTimeoutWithNoAMDCRDs(t *testing.T) {
	fake := transport.NewFake().
		OnExit("get subscription amd-gpu-operator", 1, "Error from server (NotFound): not found").
		OnOutput("get csv -o json", `{"items":[]}`).
		OnExit("get crd deviceconfigs.amd.com", 1, "Error from server (NotFound): not found").
		OnOutput("get crd -o json", `{"items":[]}`)
	s := newTestStack(t, fake)

	_, err := s.EnsureDeviceConfig(context.Background())
	require.Error(t, err)
	assert.True(t, waiter.IsTimeout(err), "expected a wait timeout, got %v", err)
	assert.Contains(t, err.Error(), "no AMD-related CRDs present")
	assert.Empty(t, fake.CallsMatching("apply -f -"), "no DeviceConfig may be applied after a CRD timeout")
}

func TestEnsureDeviceConfigCRDTimeoutEnumeratesPresentCRDs(t *testing.T) {
	fake := transport.NewFake().
		OnExit("get subscription amd-gpu-operator", 1, "Error from server (NotFound): not found").
		OnOutput("get csv -o json", `{"items":[]}`).
		OnExit("get crd deviceconfigs.amd.com", 1, "Error from server (NotFound): not found").
		OnOutput("get crd -o json", `{"items":[
			{"metadata":{"name":"deviceconfigs.gpu.amd.com"}},
			{"metadata":{"name":"amdexporters.amd.com"}}
		]}`)
	s := newTestStack(t, fake)

	_, err := s.EnsureDeviceConfig(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amdexporters.amd.com")
	assert.Contains(t, err.Error(), "deviceconfigs.gpu.amd.com")
}

func TestNFDInstanceOperandImageOn416(t *testing.T) {
	fake := transport.NewFake()
	applies := recordApplies(fake, "created")
	s := NewStack(ocp.NewClient(fake, "/root/kubeconfig"), testConfig(t), testTimeouts(), "4.16.21", nil)

	_, err := s.EnsureNFDInstance(context.Background())
	require.NoError(t, err)
	require.Len(t, applies.applies, 1)
	assert.Contains(t, applies.applies[0].manifest, "quay.io/openshift/origin-node-feature-discovery")
}

func TestEnableClusterMonitoring(t *testing.T) {
	fake := transport.NewFake()
	s := newTestStack(t, fake)

	require.NoError(t, s.EnableClusterMonitoring(context.Background()))
	calls := fake.CallsMatching("label namespace openshift-amd-gpu")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "openshift.io/cluster-monitoring=true")
	assert.Contains(t, calls[0], "--overwrite")
}
