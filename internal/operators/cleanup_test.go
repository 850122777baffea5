package operators

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
)

func TestCleanupOrderAndBestEffort(t *testing.T) {
	fake := transport.NewFake().
		OnOutput("get subscription amd-gpu-operator", `{"status":{"installedCSV":"amd-gpu-operator.v1.4.1"}}`).
		OnExit("get subscription kmm", 1, "Error from server (NotFound): not found").
		OnOutput("get subscription nfd", `{"status":{"installedCSV":"nfd.v4.17.0"}}`).
		OnOutput("get operatorgroup", `{"items":[{"metadata":{"name":"openshift-amd-gpu"}}]}`).
		OnOutput("get nodes", `{"items":[{"metadata":{"name":"ocp-ctlplane-0"}}]}`)
	s := newTestStack(t, fake)

	require.NoError(t, s.Cleanup(context.Background()))

	// Custom resources go before the operators that serve them.
	dcIdx := fake.FirstIndex("delete deviceconfigs.amd.com amd-gpu-device-config")
	subIdx := fake.FirstIndex("delete subscription amd-gpu-operator")
	require.GreaterOrEqual(t, dcIdx, 0)
	require.GreaterOrEqual(t, subIdx, 0)
	assert.Less(t, dcIdx, subIdx)

	// The resolved CSV is deleted along with its subscription.
	assert.NotEmpty(t, fake.CallsMatching("delete csv amd-gpu-operator.v1.4.1"))
	// KMM's subscription was absent; its CSV is unknown and skipped, but
	// cleanup continues regardless.
	assert.Empty(t, fake.CallsMatching("delete csv kmm"))
	assert.NotEmpty(t, fake.CallsMatching("delete subscription kmm"))

	// Namespaces are torn down last.
	nsIdx := fake.FirstIndex("delete namespace openshift-nfd")
	require.GreaterOrEqual(t, nsIdx, 0)
	assert.Greater(t, nsIdx, fake.FirstIndex("delete machineconfig amdgpu-module-blacklist"))

	// Registry back to Removed.
	assert.NotEmpty(t, fake.CallsMatching("Removed"))
}

func TestCleanupStripsAllGPUNodeLabels(t *testing.T) {
	fake := transport.NewFake().
		OnOutput("get nodes", `{"items":[
			{"metadata":{"name":"ocp-worker-0"}},
			{"metadata":{"name":"ocp-worker-1"}}
		]}`)
	s := newTestStack(t, fake)

	require.NoError(t, s.Cleanup(context.Background()))

	labelCalls := fake.CallsMatching("label node")
	require.Len(t, labelCalls, 2)
	for _, call := range labelCalls {
		for _, lbl := range gpuNodeLabels {
			assert.Contains(t, call, lbl+"-")
		}
		assert.Contains(t, call, "--overwrite")
	}
	assert.True(t, strings.Contains(labelCalls[0], "ocp-worker-0"))
	assert.True(t, strings.Contains(labelCalls[1], "ocp-worker-1"))
}

func TestCleanupSurvivesUnreachableDeletes(t *testing.T) {
	fake := transport.NewFake().
		OnExit("delete machineconfig", 1, "error: the server is currently unable to handle the request")
	s := newTestStack(t, fake)

	// One failing delete must not stop the rest of the teardown.
	require.NoError(t, s.Cleanup(context.Background()))
	assert.NotEmpty(t, fake.CallsMatching("delete namespace openshift-nfd"))
}
