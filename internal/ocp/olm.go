package ocp

import (
	"context"
	"fmt"
	"strings"

	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
)

// Subscription reads an OLM Subscription.
func (c *Client) Subscription(ctx context.Context, namespace, name string) (*operatorsv1alpha1.Subscription, error) {
	var sub operatorsv1alpha1.Subscription
	if err := c.GetInto(ctx, "subscription", name, namespace, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CSV reads a ClusterServiceVersion by name.
func (c *Client) CSV(ctx context.Context, namespace, name string) (*operatorsv1alpha1.ClusterServiceVersion, error) {
	var csv operatorsv1alpha1.ClusterServiceVersion
	if err := c.GetInto(ctx, "csv", name, namespace, &csv); err != nil {
		return nil, err
	}
	return &csv, nil
}

// CSVs lists the ClusterServiceVersions in a namespace.
func (c *Client) CSVs(ctx context.Context, namespace string) (*operatorsv1alpha1.ClusterServiceVersionList, error) {
	var list operatorsv1alpha1.ClusterServiceVersionList
	if err := c.List(ctx, "csv", namespace, false, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// OperatorGroupNames lists the OperatorGroup names in a namespace.
func (c *Client) OperatorGroupNames(ctx context.Context, namespace string) ([]string, error) {
	var list struct {
		Items []struct {
			Metadata struct {
				Name string `json:"name"`
			} `json:"metadata"`
		} `json:"items"`
	}
	if err := c.List(ctx, "operatorgroup", namespace, false, &list); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Items))
	for _, it := range list.Items {
		names = append(names, it.Metadata.Name)
	}
	return names, nil
}

// SubscriptionResolutionFailure returns the ResolutionFailed condition
// message when the subscription cannot resolve (missing package, empty
// channel), or "" when resolution has not failed.
func SubscriptionResolutionFailure(sub *operatorsv1alpha1.Subscription) string {
	for _, cond := range sub.Status.Conditions {
		if cond.Type == operatorsv1alpha1.SubscriptionResolutionFailed && cond.Status == "True" {
			if cond.Message != "" {
				return cond.Message
			}
			return "subscription resolution failed"
		}
	}
	return ""
}

// InstalledCSVName returns the CSV name the subscription resolved to, or "".
func InstalledCSVName(sub *operatorsv1alpha1.Subscription) string {
	return strings.TrimSpace(sub.Status.InstalledCSV)
}

// CSVOwnedCRD is one owned-CRD declaration from a CSV spec.
type CSVOwnedCRD struct {
	Name    string
	Kind    string
	Version string
}

// OwnedCRDs extracts the owned CRD declarations from a CSV.
func OwnedCRDs(csv *operatorsv1alpha1.ClusterServiceVersion) []CSVOwnedCRD {
	owned := csv.Spec.CustomResourceDefinitions.Owned
	out := make([]CSVOwnedCRD, 0, len(owned))
	for _, crd := range owned {
		out = append(out, CSVOwnedCRD{Name: crd.Name, Kind: crd.Kind, Version: crd.Version})
	}
	return out
}

// APIVersionForCRD derives the group/version to use for instances of an
// owned CRD, e.g. ("deviceconfigs.amd.com", "v1alpha1") -> "amd.com/v1alpha1".
func APIVersionForCRD(crd CSVOwnedCRD) string {
	version := crd.Version
	if version == "" {
		version = "v1alpha1"
	}
	if i := strings.Index(crd.Name, "."); i >= 0 {
		return fmt.Sprintf("%s/%s", crd.Name[i+1:], version)
	}
	return "amd.com/" + version
}
