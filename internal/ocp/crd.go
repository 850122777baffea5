package ocp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
)

// CRDEstablished reports whether the named CRD exists and its Established
// condition is True. Absence is not an error; it reports false.
func (c *Client) CRDEstablished(ctx context.Context, name string) (bool, error) {
	var crd apiextensionsv1.CustomResourceDefinition
	err := c.GetInto(ctx, "crd", name, "", &crd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	for _, cond := range crd.Status.Conditions {
		if cond.Type == apiextensionsv1.Established {
			return cond.Status == apiextensionsv1.ConditionTrue, nil
		}
	}
	return false, nil
}

// ListCRDNames returns the names of CRDs whose name contains substring
// (case-insensitive), sorted. An empty substring lists everything. Used for
// timeout diagnostics: "which AMD-related CRDs actually exist here".
func (c *Client) ListCRDNames(ctx context.Context, substring string) ([]string, error) {
	var list apiextensionsv1.CustomResourceDefinitionList
	if err := c.List(ctx, "crd", "", false, &list); err != nil {
		return nil, fmt.Errorf("listing CRDs: %w", err)
	}
	needle := strings.ToLower(substring)
	var names []string
	for _, crd := range list.Items {
		if needle == "" || strings.Contains(strings.ToLower(crd.Name), needle) {
			names = append(names, crd.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}
