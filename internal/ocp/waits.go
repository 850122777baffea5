package ocp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

// Condition constructors for the cluster-health waits shared by deploy and
// operator installation. Each tolerates a temporarily unreachable API by
// reporting Pending, because SNO reboots take the API server down with the
// node.

// ClusterStableCondition is satisfied when every node is Ready and every
// ClusterOperator is Available, not Progressing and not Degraded. The
// pending observation summarizes the first three issues plus a count.
func (c *Client) ClusterStableCondition(timeout time.Duration) waiter.Condition {
	return waiter.Condition{
		Name:     "cluster stability (nodes Ready, ClusterOperators healthy)",
		Interval: 20 * time.Second,
		Timeout:  timeout,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			nodes, err := c.Nodes(ctx)
			if err != nil {
				return waiter.Pending("API not reachable: %v", err), nil
			}
			var issues []string
			for _, node := range nodes.Items {
				if !IsNodeReady(node) {
					issues = append(issues, fmt.Sprintf("node %q not Ready", node.Name))
				}
			}

			cos, err := c.ClusterOperators(ctx)
			if err != nil {
				return waiter.Pending("cannot check ClusterOperators: %v", err), nil
			}
			for _, co := range cos.Items {
				name := co.Metadata.Name
				if co.Condition("Available") != "True" {
					issues = append(issues, fmt.Sprintf("clusteroperator %q not Available", name))
				}
				if co.Condition("Progressing") == "True" {
					issues = append(issues, fmt.Sprintf("clusteroperator %q still Progressing", name))
				}
				if co.Condition("Degraded") == "True" {
					issues = append(issues, fmt.Sprintf("clusteroperator %q is Degraded", name))
				}
			}

			if len(issues) == 0 {
				return waiter.Satisfied(), nil
			}
			return waiter.Pending("%s", summarizeIssues(issues)), nil
		},
	}
}

// NodesReadyCondition is satisfied when at least want nodes are Ready.
func (c *Client) NodesReadyCondition(want int, timeout time.Duration) waiter.Condition {
	return waiter.Condition{
		Name:     fmt.Sprintf("%d node(s) Ready", want),
		Interval: 30 * time.Second,
		Timeout:  timeout,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			nodes, err := c.Nodes(ctx)
			if err != nil {
				return waiter.Pending("API not reachable: %v", err), nil
			}
			ready := 0
			for _, node := range nodes.Items {
				if IsNodeReady(node) {
					ready++
				}
			}
			if ready >= want {
				return waiter.Satisfied(), nil
			}
			return waiter.Pending("%d/%d nodes Ready", ready, want), nil
		},
	}
}

// ClusterVersionReadyCondition is satisfied when the ClusterVersion reports
// Available=True and Progressing=False, the signal that bootstrap finished.
func (c *Client) ClusterVersionReadyCondition(timeout time.Duration) waiter.Condition {
	return waiter.Condition{
		Name:     "ClusterVersion Available=True Progressing=False",
		Interval: 30 * time.Second,
		Timeout:  timeout,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			cv, err := c.GetClusterVersion(ctx)
			if err != nil {
				return waiter.Pending("clusterversion not readable: %v", err), nil
			}
			available := cv.Condition("Available")
			progressing := cv.Condition("Progressing")
			if available == "True" && progressing == "False" {
				return waiter.Satisfied(), nil
			}
			return waiter.Pending("version %s: Available=%s Progressing=%s",
				cv.Status.Desired.Version, orUnknown(available), orUnknown(progressing)), nil
		},
	}
}

// APIReadyCondition is satisfied when the API server answers /version.
func (c *Client) APIReadyCondition(timeout time.Duration) waiter.Condition {
	return waiter.Condition{
		Name:     "Kubernetes API responding",
		Interval: 30 * time.Second,
		Timeout:  timeout,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			if c.APIReachable(ctx) {
				return waiter.Satisfied(), nil
			}
			return waiter.Pending("API not responding yet"), nil
		},
	}
}

// MCPUpdatedCondition is satisfied when every MachineConfigPool reports
// Updated=True with no pool Updating. A pool that claims Updated without
// Updating ever being observed may simply not have started rolling out yet,
// so satisfaction is deferred until a settle window has passed. Once an
// update was seen, Updated means the reboot completed and we stop early.
// API unreachability is a pending observation (the node is rebooting).
func (c *Client) MCPUpdatedCondition(timeout time.Duration) waiter.Condition {
	const settleWindow = 60 * time.Second
	start := time.Now()
	sawUpdating := false

	return waiter.Condition{
		Name:     "MachineConfigPool rollout complete",
		Interval: 20 * time.Second,
		Timeout:  timeout,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			pools, err := c.MachineConfigPools(ctx)
			if err != nil {
				sawUpdating = true
				return waiter.Pending("API not reachable (node likely rebooting)"), nil
			}
			if len(pools.Items) == 0 {
				return waiter.Pending("no MachineConfigPools visible yet"), nil
			}

			allUpdated := true
			var lagging []string
			for _, pool := range pools.Items {
				switch {
				case pool.Condition("Updating") == "True":
					sawUpdating = true
					allUpdated = false
					lagging = append(lagging, fmt.Sprintf("pool %q still updating", pool.Metadata.Name))
				case pool.Condition("Updated") != "True":
					allUpdated = false
					lagging = append(lagging, fmt.Sprintf("pool %q not yet updated", pool.Metadata.Name))
				}
			}

			if !allUpdated {
				return waiter.Pending("%s", summarizeIssues(lagging)), nil
			}
			if !sawUpdating && time.Since(start) < settleWindow {
				return waiter.Pending("pools report updated but rollout may not have started yet"), nil
			}
			return waiter.Satisfied(), nil
		},
	}
}

// GPUReadyCondition is satisfied when device-plugin pods are Running in the
// GPU namespace and the summed amd.com/gpu node capacity is at least one.
func (c *Client) GPUReadyCondition(gpuNamespace string, timeout time.Duration) waiter.Condition {
	return waiter.Condition{
		Name:     "AMD GPU resources available",
		Interval: 30 * time.Second,
		Timeout:  timeout,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			pods, err := c.Pods(ctx, gpuNamespace)
			if err != nil {
				return waiter.Pending("cannot list pods in %s: %v", gpuNamespace, err), nil
			}
			devicePlugins := 0
			for _, pod := range pods.Items {
				if strings.Contains(pod.Name, "device-plugin") && IsPodRunning(pod) {
					devicePlugins++
				}
			}

			nodes, err := c.Nodes(ctx)
			if err != nil {
				return waiter.Pending("cannot list nodes: %v", err), nil
			}
			totalGPUs := int64(0)
			for _, node := range nodes.Items {
				if qty, ok := node.Status.Capacity["amd.com/gpu"]; ok {
					totalGPUs += qty.Value()
				}
			}

			if devicePlugins > 0 && totalGPUs >= 1 {
				return waiter.Satisfied(), nil
			}
			return waiter.Pending("%d device-plugin pod(s) Running, amd.com/gpu capacity %d", devicePlugins, totalGPUs), nil
		},
	}
}

func summarizeIssues(issues []string) string {
	if len(issues) <= 3 {
		return strings.Join(issues, "; ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(issues[:3], "; "), len(issues)-3)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
