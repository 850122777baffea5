// Package config loads and validates the declarative configuration file
// driving cluster deployment and operator installation.
package config

import "fmt"

// Config holds the full application configuration. A single YAML document
// supplies all of it; the system keeps no other persisted state.
type Config struct {
	Cluster   ClusterSpec       `mapstructure:"cluster" yaml:"cluster"`
	Remote    *RemoteTarget     `mapstructure:"remote" yaml:"remote,omitempty"`
	Operators OperatorsConfig   `mapstructure:"operators" yaml:"operators"`
	Timeouts  map[string]string `mapstructure:"timeouts" yaml:"timeouts,omitempty"`
}

// ClusterSpec is the desired cluster shape handed to kcli. Immutable once a
// deployment run starts.
type ClusterSpec struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Domain  string `mapstructure:"domain" yaml:"domain"`
	Network string `mapstructure:"network" yaml:"network"`

	// Version is the OpenShift version, either "major.minor" (resolved to
	// the latest stable patch before deploying) or a full "x.y.z".
	Version string `mapstructure:"version" yaml:"version"`
	// Channel is the release channel; only "stable" is supported.
	Channel string `mapstructure:"channel" yaml:"channel"`

	PullSecret string `mapstructure:"pull_secret" yaml:"pull_secret"`
	APIIP      string `mapstructure:"api_ip" yaml:"api_ip"`

	ControlPlanes      int `mapstructure:"ctlplanes" yaml:"ctlplanes"`
	Workers            int `mapstructure:"workers" yaml:"workers"`
	ControlPlaneCPUs   int `mapstructure:"ctlplane_numcpus" yaml:"ctlplane_numcpus"`
	ControlPlaneMemory int `mapstructure:"ctlplane_memory" yaml:"ctlplane_memory"`
	WorkerCPUs         int `mapstructure:"worker_numcpus" yaml:"worker_numcpus"`
	WorkerMemory       int `mapstructure:"worker_memory" yaml:"worker_memory"`
	DiskSize           int `mapstructure:"disk_size" yaml:"disk_size"`

	// PCIDevices lists host PCI addresses to pass through to the first
	// control plane VM (e.g. "0000:b3:00.0").
	PCIDevices []string `mapstructure:"pci_devices" yaml:"pci_devices,omitempty"`
}

// IsSNO reports whether the spec describes Single Node OpenShift.
func (s ClusterSpec) IsSNO() bool {
	return s.ControlPlanes == 1 && s.Workers == 0
}

// Topology returns a human-readable topology description.
func (s ClusterSpec) Topology() string {
	if s.IsSNO() {
		return "SNO (Single Node OpenShift)"
	}
	return fmt.Sprintf("%d control plane(s) + %d worker(s)", s.ControlPlanes, s.Workers)
}

// NodeCount is the number of cluster nodes expected to reach Ready.
func (s ClusterSpec) NodeCount() int {
	return s.ControlPlanes + s.Workers
}

// RemoteTarget describes the remote libvirt host. Absent means local
// execution. Recreated per invocation; no ownership beyond the run.
type RemoteTarget struct {
	Host string `mapstructure:"host" yaml:"host"`
	User string `mapstructure:"user" yaml:"user"`
	Key  string `mapstructure:"key" yaml:"key"`
	Port int    `mapstructure:"port" yaml:"port,omitempty"`
}

// OLMSource identifies one operator's OLM subscription coordinates. Every
// field is overridable so a renamed or alternate operator build can be
// targeted without code changes.
type OLMSource struct {
	Namespace        string `mapstructure:"namespace" yaml:"namespace"`
	SubscriptionName string `mapstructure:"subscription" yaml:"subscription"`
	Package          string `mapstructure:"package" yaml:"package"`
	Catalog          string `mapstructure:"catalog" yaml:"catalog"`
	Channel          string `mapstructure:"channel" yaml:"channel"`
	StartingCSV      string `mapstructure:"starting_csv" yaml:"starting_csv,omitempty"`

	// AllNamespaces selects an AllNamespaces OperatorGroup (empty spec)
	// instead of one targeting the operator's own namespace.
	AllNamespaces bool `mapstructure:"all_namespaces" yaml:"all_namespaces"`
}

// OperatorsConfig controls operator installation and post-install
// configuration. Defaults are declared in defaults.go and flow into
// components via constructor values, never package-level mutable globals.
type OperatorsConfig struct {
	// MachineConfigRole selects the MachineConfigPool for the driver
	// blacklist rollout: "worker", or "master" for SNO.
	MachineConfigRole string `mapstructure:"machine_config_role" yaml:"machine_config_role"`

	// GPUOperatorVersion is the AMD GPU Operator version, "major.minor"
	// (resolved against GitHub releases) or full "x.y.z" (pinned as
	// startingCSV).
	GPUOperatorVersion string `mapstructure:"gpu_operator_version" yaml:"gpu_operator_version"`

	DriverVersion string `mapstructure:"driver_version" yaml:"driver_version"`
	DriverImage   string `mapstructure:"driver_image" yaml:"driver_image"`

	// EnableMetrics toggles the metrics exporter and ServiceMonitor in the
	// DeviceConfig. Nil means the default (enabled).
	EnableMetrics *bool `mapstructure:"enable_metrics" yaml:"enable_metrics,omitempty"`

	// VerifyGPU enables the final amd.com/gpu capacity wait. Nil means the
	// default (enabled); disable on hardware-less dev clusters.
	VerifyGPU *bool `mapstructure:"verify_gpu" yaml:"verify_gpu,omitempty"`

	NFD    OLMSource `mapstructure:"nfd" yaml:"nfd"`
	KMM    OLMSource `mapstructure:"kmm" yaml:"kmm"`
	AMDGPU OLMSource `mapstructure:"amd_gpu" yaml:"amd_gpu"`

	// DeviceConfigCRD overrides the expected DeviceConfig CRD name for
	// environments where the certified operator publishes it differently.
	DeviceConfigCRD  string `mapstructure:"device_config_crd" yaml:"device_config_crd"`
	DeviceConfigName string `mapstructure:"device_config_name" yaml:"device_config_name"`

	NFDInstanceName    string `mapstructure:"nfd_instance" yaml:"nfd_instance"`
	NFDFeatureRuleName string `mapstructure:"nfd_feature_rule" yaml:"nfd_feature_rule"`

	BlacklistMachineConfig string `mapstructure:"blacklist_machine_config" yaml:"blacklist_machine_config"`
}

// MetricsEnabled resolves the EnableMetrics toggle with its default.
func (o OperatorsConfig) MetricsEnabled() bool {
	return o.EnableMetrics == nil || *o.EnableMetrics
}

// GPUVerificationEnabled resolves the VerifyGPU toggle with its default.
func (o OperatorsConfig) GPUVerificationEnabled() bool {
	return o.VerifyGPU == nil || *o.VerifyGPU
}
