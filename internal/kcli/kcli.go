// Package kcli drives the external kcli tool through the command transport
// to create and delete libvirt-backed OpenShift clusters. kcli is a black
// box here: the orchestrator depends only on exit codes and parseable
// list output.
package kcli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

// Runner executes kcli on the provisioning host.
type Runner struct {
	t   transport.Transport
	log waiter.Logger
}

// NewRunner creates a Runner on the given transport.
func NewRunner(t transport.Transport, log waiter.Logger) *Runner {
	return &Runner{t: t, log: log}
}

func (r *Runner) logf(format string, v ...any) {
	if r.log != nil {
		r.log.Printf(format, v...)
	}
}

// Param is one -P key=value kcli parameter.
type Param struct {
	Key   string
	Value string
}

// RenderParams flattens a ClusterSpec into the kcli create parameters, in
// stable order. The version must already be a full x.y.z tag.
func RenderParams(spec config.ClusterSpec) []Param {
	params := []Param{
		{"cluster", spec.Name},
		{"domain", spec.Domain},
		{"network", spec.Network},
		{"ctlplanes", strconv.Itoa(spec.ControlPlanes)},
		{"workers", strconv.Itoa(spec.Workers)},
		{"ctlplane_memory", strconv.Itoa(spec.ControlPlaneMemory)},
		{"ctlplane_numcpus", strconv.Itoa(spec.ControlPlaneCPUs)},
		{"worker_memory", strconv.Itoa(spec.WorkerMemory)},
		{"worker_numcpus", strconv.Itoa(spec.WorkerCPUs)},
		{"disk_size", strconv.Itoa(spec.DiskSize)},
		{"tag", spec.Version},
		{"pull_secret", spec.PullSecret},
		{"api_ip", spec.APIIP},
		{"version", spec.Channel},
	}
	if len(spec.PCIDevices) > 0 {
		params = append(params, Param{"pcidevices", "[" + strings.Join(spec.PCIDevices, ",") + "]"})
	}
	return params
}

func renderArgs(params []Param) string {
	parts := make([]string, 0, len(params)*2)
	for _, p := range params {
		parts = append(parts, "-P", transport.ShellQuote(p.Key+"="+p.Value))
	}
	return strings.Join(parts, " ")
}

// CreateLogPath is where a detached create writes its output on the host.
func CreateLogPath(cluster string) string {
	return fmt.Sprintf("/tmp/kcli-create-%s.log", cluster)
}

// StartCreate launches "kcli create cluster openshift" detached on the
// provisioning host and returns as soon as the process is started. Creation
// takes tens of minutes; progress is observed by polling VM counts and then
// the cluster API, not by holding the session open.
func (r *Runner) StartCreate(ctx context.Context, spec config.ClusterSpec) error {
	logPath := CreateLogPath(spec.Name)
	script := fmt.Sprintf("nohup kcli create cluster openshift %s >%s 2>&1 & echo $!",
		renderArgs(RenderParams(spec)), logPath)

	res, err := r.t.Run(ctx, transport.Command{Script: script, Timeout: 30 * time.Second})
	if err != nil {
		return fmt.Errorf("starting kcli create: %w", err)
	}
	r.logf("kcli create cluster started (pid %s, log %s)", strings.TrimSpace(res.Stdout), logPath)
	return nil
}

// CreateCluster runs "kcli create cluster openshift" synchronously. Used by
// local flows that want kcli's own exit code to gate success.
func (r *Runner) CreateCluster(ctx context.Context, spec config.ClusterSpec, timeout time.Duration) error {
	script := "kcli create cluster openshift " + renderArgs(RenderParams(spec))
	if _, err := r.t.Run(ctx, transport.Command{Script: script, Timeout: timeout}); err != nil {
		return fmt.Errorf("kcli create cluster: %w", err)
	}
	return nil
}

// DeleteCluster removes the cluster's VMs and plan. A cluster that does not
// exist is not an error.
func (r *Runner) DeleteCluster(ctx context.Context, name string) error {
	script := fmt.Sprintf("kcli delete cluster %s --yes", transport.ShellQuote(name))
	if _, err := r.t.Run(ctx, transport.Command{Script: script, Timeout: 10 * time.Minute}); err != nil {
		if ce, ok := transport.AsCommand(err); ok && strings.Contains(strings.ToLower(ce.Stderr+ce.Script), "not found") {
			return nil
		}
		return fmt.Errorf("kcli delete cluster %s: %w", name, err)
	}
	return nil
}

// RemoveArtifacts deletes the cluster's kcli state directory so a fresh
// create does not inherit stale auth material.
func (r *Runner) RemoveArtifacts(ctx context.Context, name string) error {
	if name == "" || strings.ContainsAny(name, "/ ") {
		return fmt.Errorf("refusing to remove artifacts for cluster name %q", name)
	}
	script := fmt.Sprintf("rm -rf ~/.kcli/clusters/%s", name)
	if _, err := r.t.Run(ctx, transport.Command{Script: script, Timeout: time.Minute}); err != nil {
		return fmt.Errorf("removing kcli artifacts for %s: %w", name, err)
	}
	return nil
}

// CountClusterVMs counts the VMs whose name starts with the cluster prefix
// in kcli's VM listing.
func (r *Runner) CountClusterVMs(ctx context.Context, name string) (int, error) {
	res, err := r.t.Run(ctx, transport.Command{Script: "kcli list vm", Timeout: time.Minute})
	if err != nil {
		return 0, fmt.Errorf("kcli list vm: %w", err)
	}
	prefix := name + "-"
	count := 0
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.Contains(line, prefix) {
			count++
		}
	}
	return count, nil
}

// VMsAppearedCondition waits until at least want cluster VMs are visible,
// the first sign that a detached create is making progress.
func (r *Runner) VMsAppearedCondition(name string, want int, timeout time.Duration) waiter.Condition {
	return waiter.Condition{
		Name:     fmt.Sprintf("%d VM(s) of cluster %s visible", want, name),
		Interval: 10 * time.Second,
		Timeout:  timeout,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			count, err := r.CountClusterVMs(ctx, name)
			if err != nil {
				return waiter.Pending("cannot list VMs: %v", err), nil
			}
			if count >= want {
				return waiter.Satisfied(), nil
			}
			return waiter.Pending("%d/%d VMs visible", count, want), nil
		},
	}
}

// CreateLogTail returns the last lines of the detached create's log, for
// diagnostics when the VM wait times out.
func (r *Runner) CreateLogTail(ctx context.Context, cluster string, lines int) string {
	script := fmt.Sprintf("tail -n %d %s", lines, CreateLogPath(cluster))
	res, err := r.t.Run(ctx, transport.Command{Script: script, Timeout: 30 * time.Second})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}
