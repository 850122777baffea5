package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/kcli"
	"github.com/rh-ecosystem-edge/amd-ci/internal/kubeconfig"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/release"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
)

type recordingObserver struct {
	started  []string
	finished []PhaseResult
	progress []string
}

func (r *recordingObserver) PhaseStarted(name string)      { r.started = append(r.started, name) }
func (r *recordingObserver) PhaseFinished(res PhaseResult) { r.finished = append(r.finished, res) }
func (r *recordingObserver) Progress(line string)          { r.progress = append(r.progress, line) }

func testContext(obs Observer) *Context {
	cfg := &config.Config{}
	cfg.Cluster.Name = "amd-ci"
	return &Context{
		Ctx:      context.Background(),
		Config:   cfg,
		Timeouts: config.LoadTimeouts(nil),
		Observer: obs,
	}
}

func TestRunPhasesAllSucceed(t *testing.T) {
	obs := &recordingObserver{}
	var order []string

	phases := []Phase{
		PhaseFunc("first", func(*Context) error { order = append(order, "first"); return nil }),
		PhaseFunc("second", func(*Context) error { order = append(order, "second"); return nil }),
	}

	results, err := RunPhases(testContext(obs), phases)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, []string{"first", "second"}, obs.started)

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, StatusSucceeded, res.Status)
		assert.NoError(t, res.Err)
	}
}

func TestRunPhasesFirstFailureHalts(t *testing.T) {
	obs := &recordingObserver{}
	boom := errors.New("boom")
	ran := false

	phases := []Phase{
		PhaseFunc("prepare", func(*Context) error { return nil }),
		PhaseFunc("explode", func(*Context) error { return boom }),
		PhaseFunc("after", func(*Context) error { ran = true; return nil }),
	}

	results, err := RunPhases(testContext(obs), phases)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "explode phase failed")
	assert.False(t, ran)

	require.Len(t, results, 3)
	assert.Equal(t, StatusSucceeded, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, StatusSkipped, results[2].Status)
	// The skipped phase was never started.
	assert.Equal(t, []string{"prepare", "explode"}, obs.started)
}

func TestRunPhasesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := testContext(nil)
	rc.Ctx = ctx

	ran := false
	_, err := RunPhases(rc, []Phase{
		PhaseFunc("never", func(*Context) error { ran = true; return nil }),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestPlanOf(t *testing.T) {
	phases := []Phase{
		PhaseFunc("a", nil),
		PhaseFunc("b", nil),
	}
	assert.Equal(t, []string{"a", "b"}, PlanOf(phases))
}

func newDeps(fake *transport.Fake) *Deps {
	return &Deps{
		Transport: fake,
		KCLI:      kcli.NewRunner(fake, nil),
		OCP:       ocp.NewClient(fake, "/root/kubeconfig"),
		Kube:      kubeconfig.NewManager(fake, nil),
		Resolver:  release.NewResolver(),
	}
}

func TestDeployUnreachableTransportFailsBeforeKcli(t *testing.T) {
	fake := transport.NewFake()
	fake.OnError("true", &transport.TransportError{
		Target: "root@10.0.0.9", Op: "dial", Err: errors.New("connection refused"),
	})

	obs := &recordingObserver{}
	rc := testContext(obs)
	rc.Config.Cluster.Version = "4.17.9"

	results, err := RunPhases(rc, DeployPhases(newDeps(fake)))
	require.Error(t, err)
	assert.True(t, transport.IsTransport(err))
	assert.Contains(t, err.Error(), "preflight transport phase failed")

	assert.Empty(t, fake.CallsMatching("kcli"))
	for _, res := range results[1:] {
		assert.Equal(t, StatusSkipped, res.Status)
	}
}

func TestDeletePipelineShape(t *testing.T) {
	fake := transport.NewFake()

	rc := testContext(nil)
	_, err := RunPhases(rc, DeletePhases(newDeps(fake)))
	require.NoError(t, err)

	require.Len(t, fake.CallsMatching("kcli delete cluster"), 1)
	assert.Equal(t, "kcli delete cluster amd-ci --yes", fake.CallsMatching("kcli delete cluster")[0])
	require.Len(t, fake.CallsMatching("rm -rf"), 1)
}
