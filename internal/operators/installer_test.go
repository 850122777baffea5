package operators

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

func testConfig(t *testing.T) config.OperatorsConfig {
	t.Helper()
	cfg, err := config.Load([]byte(`
cluster:
  name: ocp
  version: "4.17.9"
  pull_secret: /root/pull-secret.json
operators:
  gpu_operator_version: "1.4.1"
`))
	require.NoError(t, err)
	return cfg.Operators
}

func testTimeouts() *config.Timeouts {
	t := config.LoadTimeouts(nil)
	// Keep failing waits from stalling the test run.
	t.OperatorInstall = 2 * time.Second
	t.CRDEstablish = 50 * time.Millisecond
	t.Prerequisites = 50 * time.Millisecond
	t.Registry = 50 * time.Millisecond
	return t
}

// applyRecorder captures every applied manifest together with its position
// in the fake transport's call sequence.
type applyRecorder struct {
	fake    *transport.Fake
	applies []recordedApply
	stdout  string
}

type recordedApply struct {
	index    int
	manifest string
}

func recordApplies(fake *transport.Fake, stdout string) *applyRecorder {
	r := &applyRecorder{fake: fake, stdout: stdout}
	fake.On("apply -f -", func(cmd transport.Command) (*transport.Result, error) {
		r.applies = append(r.applies, recordedApply{index: len(fake.Calls) - 1, manifest: cmd.Stdin})
		return &transport.Result{Stdout: r.stdout}, nil
	})
	return r
}

func (r *applyRecorder) find(substr string) *recordedApply {
	for i := range r.applies {
		if strings.Contains(r.applies[i].manifest, substr) {
			return &r.applies[i]
		}
	}
	return nil
}

func newTestStack(t *testing.T, fake *transport.Fake) *Stack {
	t.Helper()
	return NewStack(ocp.NewClient(fake, "/root/kubeconfig"), testConfig(t), testTimeouts(), "4.17.9", nil)
}

func healthyOLMFake() *transport.Fake {
	fake := transport.NewFake()
	fake.OnOutput("get namespace", `{"metadata":{"name":"x"}}`)
	fake.OnOutput("get subscription nfd", `{"status":{"installedCSV":"nfd.v4.17.0"}}`)
	fake.OnOutput("get subscription kmm", `{"status":{"installedCSV":"kmm.v2.1.0"}}`)
	fake.OnOutput("get subscription amd-gpu-operator", `{"status":{"installedCSV":"amd-gpu-operator.v1.4.1"}}`)
	fake.OnOutput("get csv nfd.v4.17.0", `{"metadata":{"name":"nfd.v4.17.0"},"status":{"phase":"Succeeded"}}`)
	fake.OnOutput("get csv kmm.v2.1.0", `{"metadata":{"name":"kmm.v2.1.0"},"status":{"phase":"Succeeded"}}`)
	fake.OnOutput("get csv amd-gpu-operator.v1.4.1", `{"metadata":{"name":"amd-gpu-operator.v1.4.1"},"status":{"phase":"Succeeded"}}`)
	return fake
}

func TestInstallAllOrderingNFDBeforeKMM(t *testing.T) {
	fake := healthyOLMFake()
	applies := recordApplies(fake, "created")
	s := newTestStack(t, fake)

	require.NoError(t, s.InstallAll(context.Background()))

	kmmSub := applies.find("name: kmm")
	require.NotNil(t, kmmSub, "KMM subscription was never applied")
	nfdCSVRead := fake.FirstIndex("get csv nfd.v4.17.0")
	require.GreaterOrEqual(t, nfdCSVRead, 0, "NFD CSV phase was never checked")
	assert.Greater(t, kmmSub.index, nfdCSVRead,
		"KMM subscription applied before the NFD CSV reached Succeeded")

	amdSub := applies.find("name: amd-gpu-operator")
	require.NotNil(t, amdSub)
	kmmCSVRead := fake.FirstIndex("get csv kmm.v2.1.0")
	assert.Greater(t, amdSub.index, kmmCSVRead,
		"AMD GPU subscription applied before the KMM CSV reached Succeeded")
}

func TestInstallAllPinsFullVersionAsStartingCSV(t *testing.T) {
	fake := healthyOLMFake()
	applies := recordApplies(fake, "created")
	s := newTestStack(t, fake)

	require.NoError(t, s.InstallAll(context.Background()))

	amdSub := applies.find("name: amd-gpu-operator")
	require.NotNil(t, amdSub)
	assert.Contains(t, amdSub.manifest, "startingCSV: amd-gpu-operator.v1.4.1")

	nfdSub := applies.find("name: nfd")
	require.NotNil(t, nfdSub)
	assert.NotContains(t, nfdSub.manifest, "startingCSV")
}

func TestInstallAllOperatorGroupModes(t *testing.T) {
	fake := healthyOLMFake()
	applies := recordApplies(fake, "created")
	s := newTestStack(t, fake)

	require.NoError(t, s.InstallAll(context.Background()))

	var nfdOG *recordedApply
	for i := range applies.applies {
		m := applies.applies[i].manifest
		if strings.Contains(m, "kind: OperatorGroup") && strings.Contains(m, "name: openshift-nfd") {
			nfdOG = &applies.applies[i]
			break
		}
	}
	require.NotNil(t, nfdOG)
	assert.Contains(t, nfdOG.manifest, "targetNamespaces")

	for i := range applies.applies {
		m := applies.applies[i].manifest
		if strings.Contains(m, "kind: OperatorGroup") && strings.Contains(m, "name: openshift-kmm") {
			assert.NotContains(t, m, "targetNamespaces",
				"KMM needs an AllNamespaces OperatorGroup (empty spec)")
		}
	}
}

func TestInstallAllStopsOnKMMFailure(t *testing.T) {
	fake := healthyOLMFake()
	fake.OnOutput("get csv kmm.v2.1.0",
		`{"metadata":{"name":"kmm.v2.1.0"},"status":{"phase":"Failed","message":"install strategy failed"}}`)
	applies := recordApplies(fake, "created")
	s := newTestStack(t, fake)

	start := time.Now()
	err := s.InstallAll(context.Background())
	require.Error(t, err)

	assert.True(t, waiter.IsObservedFailure(err), "CSV Failed should surface as an observed failure, got %v", err)
	assert.Contains(t, err.Error(), "KMM")
	assert.Contains(t, err.Error(), "openshift-kmm")
	assert.Contains(t, err.Error(), "install strategy failed")
	assert.Less(t, time.Since(start), testTimeouts().OperatorInstall,
		"failure must short-circuit the wait budget")

	assert.Nil(t, applies.find("name: amd-gpu-operator"),
		"AMD GPU subscription must not be created after KMM failed")
}

func TestInstallAllResolutionFailure(t *testing.T) {
	fake := healthyOLMFake()
	fake.OnOutput("get subscription amd-gpu-operator", `{
		"status":{"conditions":[{"type":"ResolutionFailed","status":"True","message":"no operators found in package amd-gpu-operator"}]}
	}`)
	recordApplies(fake, "created")
	s := newTestStack(t, fake)

	err := s.InstallAll(context.Background())
	require.Error(t, err)
	assert.True(t, waiter.IsObservedFailure(err))
	assert.Contains(t, err.Error(), "no operators found")
	assert.Contains(t, err.Error(), "certified-operators")
}

func TestInstallAllSecondRunAllUnchanged(t *testing.T) {
	fake := healthyOLMFake()
	applies := recordApplies(fake, "subscription.operators.coreos.com/x unchanged")
	s := newTestStack(t, fake)

	start := time.Now()
	require.NoError(t, s.InstallAll(context.Background()))

	// Everything already converged: no namespace creation, every CSV wait
	// satisfied on its first poll, well inside one wait budget.
	assert.Empty(t, fake.CallsMatching("create namespace"))
	assert.Len(t, fake.CallsMatching("get csv nfd.v4.17.0"), 1)
	assert.Len(t, fake.CallsMatching("get csv kmm.v2.1.0"), 1)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.NotEmpty(t, applies.applies)
}
