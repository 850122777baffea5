package kcli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

func testSpec() config.ClusterSpec {
	return config.ClusterSpec{
		Name:               "amd-ci",
		Domain:             "lab.local",
		Network:            "default",
		Version:            "4.17.9",
		Channel:            "stable",
		PullSecret:         "/root/pull-secret.json",
		APIIP:              "192.168.122.253",
		ControlPlanes:      1,
		Workers:            0,
		ControlPlaneCPUs:   16,
		ControlPlaneMemory: 65536,
		WorkerCPUs:         8,
		WorkerMemory:       32768,
		DiskSize:           200,
	}
}

func TestRenderParamsOrderAndValues(t *testing.T) {
	spec := testSpec()
	params := RenderParams(spec)

	keys := make([]string, len(params))
	for i, p := range params {
		keys[i] = p.Key
	}
	assert.Equal(t, []string{
		"cluster", "domain", "network", "ctlplanes", "workers",
		"ctlplane_memory", "ctlplane_numcpus", "worker_memory",
		"worker_numcpus", "disk_size", "tag", "pull_secret", "api_ip",
		"version",
	}, keys)

	args := renderArgs(params)
	assert.Contains(t, args, "-P cluster=amd-ci")
	assert.Contains(t, args, "-P tag=4.17.9")
	assert.Contains(t, args, "-P version=stable")
	assert.Contains(t, args, "-P api_ip=192.168.122.253")
}

func TestRenderParamsPCIDevices(t *testing.T) {
	spec := testSpec()
	spec.PCIDevices = []string{"0000:b3:00.0", "0000:c3:00.0"}

	args := renderArgs(RenderParams(spec))
	assert.Contains(t, args, "'pcidevices=[0000:b3:00.0,0000:c3:00.0]'")
}

func TestStartCreateDetachesWithLog(t *testing.T) {
	fake := transport.NewFake()
	fake.OnOutput("kcli create cluster", "12345\n")

	r := NewRunner(fake, nil)
	require.NoError(t, r.StartCreate(context.Background(), testSpec()))

	require.Len(t, fake.Calls, 1)
	script := fake.Calls[0]
	assert.True(t, strings.HasPrefix(script, "nohup kcli create cluster openshift "), script)
	assert.Contains(t, script, ">/tmp/kcli-create-amd-ci.log 2>&1 &")
	assert.Contains(t, script, "-P cluster=amd-ci")
}

func TestCountClusterVMs(t *testing.T) {
	fake := transport.NewFake()
	fake.OnOutput("kcli list vm", strings.Join([]string{
		"+-----------------+--------+",
		"| amd-ci-ctlplane-0 | up   |",
		"| amd-ci-bootstrap  | up   |",
		"| other-vm          | up   |",
		"+-----------------+--------+",
	}, "\n"))

	r := NewRunner(fake, nil)
	n, err := r.CountClusterVMs(context.Background(), "amd-ci")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestVMsAppearedCondition(t *testing.T) {
	fake := transport.NewFake()
	fake.OnOutput("kcli list vm", "| amd-ci-ctlplane-0 | up |\n")

	r := NewRunner(fake, nil)
	cond := r.VMsAppearedCondition("amd-ci", 1, time.Second)
	cond.Interval = 10 * time.Millisecond

	err := waiter.Wait(context.Background(), cond, nil)
	require.NoError(t, err)
}

func TestVMsAppearedConditionToleratesListErrors(t *testing.T) {
	fake := transport.NewFake()
	fake.OnError("kcli list vm", &transport.TransportError{Target: "host", Op: "run", Err: context.DeadlineExceeded})

	r := NewRunner(fake, nil)
	cond := r.VMsAppearedCondition("amd-ci", 1, 100*time.Millisecond)
	cond.Interval = 20 * time.Millisecond

	err := waiter.Wait(context.Background(), cond, nil)
	require.Error(t, err)
	assert.True(t, waiter.IsTimeout(err))
}

func TestDeleteCluster(t *testing.T) {
	fake := transport.NewFake()
	r := NewRunner(fake, nil)

	require.NoError(t, r.DeleteCluster(context.Background(), "amd-ci"))
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "kcli delete cluster amd-ci --yes", fake.Calls[0])
}

func TestDeleteClusterToleratesAbsence(t *testing.T) {
	fake := transport.NewFake()
	fake.OnExit("kcli delete cluster", 1, "Cluster amd-ci not found\n")

	r := NewRunner(fake, nil)
	assert.NoError(t, r.DeleteCluster(context.Background(), "amd-ci"))
}

func TestRemoveArtifacts(t *testing.T) {
	fake := transport.NewFake()
	r := NewRunner(fake, nil)

	require.NoError(t, r.RemoveArtifacts(context.Background(), "amd-ci"))
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "rm -rf ~/.kcli/clusters/amd-ci", fake.Calls[0])
}

func TestRemoveArtifactsRejectsUnsafeNames(t *testing.T) {
	r := NewRunner(transport.NewFake(), nil)
	assert.Error(t, r.RemoveArtifacts(context.Background(), ""))
	assert.Error(t, r.RemoveArtifacts(context.Background(), "../etc"))
}
