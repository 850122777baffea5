package ocp

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
)

// The OpenShift config and machine-configuration API groups are not
// vendored; decoding their objects needs only names and conditions, so
// minimal local structs cover them.

// StatusCondition is the shared {type, status, message} condition shape.
type StatusCondition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// ClusterOperator is a minimal config.openshift.io/v1 ClusterOperator.
type ClusterOperator struct {
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Status struct {
		Conditions []StatusCondition `json:"conditions"`
	} `json:"status"`
}

// ClusterOperatorList is the -o json list wrapper.
type ClusterOperatorList struct {
	Items []ClusterOperator `json:"items"`
}

// Condition returns the status value for a condition type, or "" if absent.
func (co ClusterOperator) Condition(condType string) string {
	for _, c := range co.Status.Conditions {
		if c.Type == condType {
			return c.Status
		}
	}
	return ""
}

// ClusterVersion is a minimal config.openshift.io/v1 ClusterVersion.
type ClusterVersion struct {
	Status struct {
		Conditions []StatusCondition `json:"conditions"`
		Desired    struct {
			Version string `json:"version"`
		} `json:"desired"`
	} `json:"status"`
}

// Condition returns the status value for a condition type, or "" if absent.
func (cv ClusterVersion) Condition(condType string) string {
	for _, c := range cv.Status.Conditions {
		if c.Type == condType {
			return c.Status
		}
	}
	return ""
}

// MachineConfigPool is a minimal machineconfiguration.openshift.io/v1 pool.
type MachineConfigPool struct {
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Status struct {
		Conditions []StatusCondition `json:"conditions"`
	} `json:"status"`
}

// MachineConfigPoolList is the -o json list wrapper.
type MachineConfigPoolList struct {
	Items []MachineConfigPool `json:"items"`
}

// Condition returns the status value for a condition type, or "" if absent.
func (p MachineConfigPool) Condition(condType string) string {
	for _, c := range p.Status.Conditions {
		if c.Type == condType {
			return c.Status
		}
	}
	return ""
}

// Nodes lists cluster nodes.
func (c *Client) Nodes(ctx context.Context) (*corev1.NodeList, error) {
	var list corev1.NodeList
	if err := c.List(ctx, "nodes", "", false, &list); err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	return &list, nil
}

// Pods lists pods in a namespace, or across all namespaces when empty.
func (c *Client) Pods(ctx context.Context, namespace string) (*corev1.PodList, error) {
	var list corev1.PodList
	if err := c.List(ctx, "pods", namespace, namespace == "", &list); err != nil {
		return nil, fmt.Errorf("listing pods: %w", err)
	}
	return &list, nil
}

// ClusterOperators lists all ClusterOperators.
func (c *Client) ClusterOperators(ctx context.Context) (*ClusterOperatorList, error) {
	var list ClusterOperatorList
	if err := c.List(ctx, "clusteroperators", "", false, &list); err != nil {
		return nil, fmt.Errorf("listing clusteroperators: %w", err)
	}
	return &list, nil
}

// GetClusterVersion reads the cluster's version object.
func (c *Client) GetClusterVersion(ctx context.Context) (*ClusterVersion, error) {
	var cv ClusterVersion
	if err := c.GetInto(ctx, "clusterversion", "version", "", &cv); err != nil {
		return nil, err
	}
	return &cv, nil
}

// MachineConfigPools lists all MachineConfigPools.
func (c *Client) MachineConfigPools(ctx context.Context) (*MachineConfigPoolList, error) {
	var list MachineConfigPoolList
	if err := c.List(ctx, "machineconfigpools", "", false, &list); err != nil {
		return nil, fmt.Errorf("listing machineconfigpools: %w", err)
	}
	return &list, nil
}

// IsNodeReady reports whether the node's Ready condition is True.
func IsNodeReady(node corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// IsPodRunning reports whether the pod phase is Running.
func IsPodRunning(pod corev1.Pod) bool {
	return pod.Status.Phase == corev1.PodRunning
}
