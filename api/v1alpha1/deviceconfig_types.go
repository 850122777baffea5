package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DeviceConfig triggers the out-of-tree AMD GPU driver build and the device
// plugin / node labeller rollout on matching nodes.
type DeviceConfig struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec DeviceConfigSpec `json:"spec,omitempty"`
}

// DeviceConfigSpec selects the nodes to drive and configures the driver,
// device plugin and optional metrics exporter.
type DeviceConfigSpec struct {
	Driver          DriverSpec           `json:"driver,omitempty"`
	DevicePlugin    DevicePluginSpec     `json:"devicePlugin,omitempty"`
	Selector        map[string]string    `json:"selector,omitempty"`
	MetricsExporter *MetricsExporterSpec `json:"metricsExporter,omitempty"`
}

// DriverSpec enables the out-of-tree amdgpu driver build via KMM.
type DriverSpec struct {
	Enable *bool `json:"enable,omitempty"`
	// Image is the registry location for the compiled kernel-module image.
	Image   string `json:"image,omitempty"`
	Version string `json:"version,omitempty"`
}

// DevicePluginSpec configures the device plugin daemonset.
type DevicePluginSpec struct {
	EnableNodeLabeller *bool `json:"enableNodeLabeller,omitempty"`
}

// MetricsExporterSpec enables the GPU metrics exporter.
type MetricsExporterSpec struct {
	Enable     *bool             `json:"enable,omitempty"`
	Prometheus *PrometheusConfig `json:"prometheus,omitempty"`
}

// PrometheusConfig wires the exporter into cluster monitoring.
type PrometheusConfig struct {
	ServiceMonitor *ServiceMonitorConfig `json:"serviceMonitor,omitempty"`
}

// ServiceMonitorConfig configures the generated ServiceMonitor.
type ServiceMonitorConfig struct {
	Enable         *bool           `json:"enable,omitempty"`
	Interval       string          `json:"interval,omitempty"`
	AttachMetadata *AttachMetadata `json:"attachMetadata,omitempty"`
}

// AttachMetadata attaches node metadata to scraped series.
type AttachMetadata struct {
	Node *bool `json:"node,omitempty"`
}

// Bool returns a pointer to b, for the optional spec fields.
func Bool(b bool) *bool { return &b }
