// Package v1alpha1 holds the DeviceConfig types served by the AMD GPU
// Operator. Only the spec fields this project sets are declared; the CR is
// rendered to YAML and applied, never watched.
package v1alpha1

const (
	// Group is the default API group the AMD GPU Operator registers.
	Group = "amd.com"
	// Version is the served CRD version.
	Version = "v1alpha1"
	// Kind is the DeviceConfig kind name.
	Kind = "DeviceConfig"
)

// GroupVersion is the default apiVersion for DeviceConfig resources. The
// installed CSV may own the CRD under a different group; callers override
// the TypeMeta apiVersion with the discovered value in that case.
const GroupVersion = Group + "/" + Version
