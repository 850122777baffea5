package operators

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
)

const allPrereqPods = `{"items":[
	{"metadata":{"namespace":"openshift-service-ca","name":"service-ca-7d4f8"},"status":{"phase":"Running"}},
	{"metadata":{"namespace":"openshift-operator-lifecycle-manager","name":"olm-operator-6b9c4"},"status":{"phase":"Running"}},
	{"metadata":{"namespace":"openshift-machine-config-operator","name":"machine-config-operator-5f6d7"},"status":{"phase":"Running"}},
	{"metadata":{"namespace":"openshift-image-registry","name":"cluster-image-registry-operator-8c9d0"},"status":{"phase":"Running"}}
]}`

func TestVerifyPrerequisitesAllRunning(t *testing.T) {
	fake := transport.NewFake().OnOutput("get pods -o json -A", allPrereqPods)
	s := newTestStack(t, fake)

	require.NoError(t, s.VerifyPrerequisites(context.Background()))
	assert.Len(t, fake.CallsMatching("get pods"), 1, "already-met prerequisites need exactly one poll")
}

func TestVerifyPrerequisitesReportsFirstMissing(t *testing.T) {
	// Image registry operator pod absent; everything else running.
	fake := transport.NewFake().OnOutput("get pods -o json -A", `{"items":[
		{"metadata":{"namespace":"openshift-service-ca","name":"service-ca-7d4f8"},"status":{"phase":"Running"}},
		{"metadata":{"namespace":"openshift-operator-lifecycle-manager","name":"olm-operator-6b9c4"},"status":{"phase":"Running"}},
		{"metadata":{"namespace":"openshift-machine-config-operator","name":"machine-config-operator-5f6d7"},"status":{"phase":"Running"}}
	]}`)
	s := newTestStack(t, fake)

	err := s.VerifyPrerequisites(context.Background())
	require.Error(t, err)

	var missing *PrerequisiteMissing
	require.True(t, errors.As(err, &missing), "expected *PrerequisiteMissing, got %v", err)
	assert.Equal(t, "Cluster Image Registry Operator", missing.Name)
	assert.Equal(t, "image-registry", missing.Pattern)
}

func TestVerifyPrerequisitesIgnoresNonRunningPods(t *testing.T) {
	fake := transport.NewFake().OnOutput("get pods -o json -A", `{"items":[
		{"metadata":{"namespace":"openshift-service-ca","name":"service-ca-7d4f8"},"status":{"phase":"Pending"}}
	]}`)
	s := newTestStack(t, fake)

	err := s.VerifyPrerequisites(context.Background())
	require.Error(t, err)

	var missing *PrerequisiteMissing
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Service CA Operator", missing.Name)
}

func TestConfigureRegistryPatchesThenWaits(t *testing.T) {
	fake := transport.NewFake().
		OnOutput("get pods -o json -n openshift-image-registry", `{"items":[
			{"metadata":{"namespace":"openshift-image-registry","name":"image-registry-5d8f9"},"status":{"phase":"Running"}}
		]}`)
	s := newTestStack(t, fake)

	require.NoError(t, s.ConfigureRegistry(context.Background()))

	patches := fake.CallsMatching("patch configs.imageregistry.operator.openshift.io cluster")
	require.Len(t, patches, 2)
	assert.Contains(t, patches[0], "emptyDir")
	assert.Contains(t, patches[1], "Managed")

	assert.Greater(t, fake.FirstIndex("get pods"), fake.FirstIndex("Managed"),
		"the pod wait must follow both patches")
}

func TestConfigureRegistryTimesOutWithoutPod(t *testing.T) {
	fake := transport.NewFake().
		OnOutput("get pods -o json -n openshift-image-registry", `{"items":[
			{"metadata":{"namespace":"openshift-image-registry","name":"cluster-image-registry-operator-8c9d0"},"status":{"phase":"Running"}}
		]}`)
	s := newTestStack(t, fake)

	// Only the operator pod exists; the registry deployment itself never
	// comes up, so the wait must expire.
	err := s.ConfigureRegistry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry pod")
}
