package config

// Cluster defaults match the SNO lab topology the CI pipeline deploys.
// Control planes need 6 vCPUs minimum for KMM, the AMD GPU Operator and NFD
// to schedule alongside the platform.
const (
	DefaultClusterName        = "ocp"
	DefaultDomain             = "example.com"
	DefaultNetwork            = "default"
	DefaultChannel            = "stable"
	DefaultAPIIP              = "192.168.122.253"
	DefaultControlPlanes      = 1
	DefaultWorkers            = 0
	DefaultControlPlaneCPUs   = 6
	DefaultControlPlaneMemory = 18432
	DefaultWorkerCPUs         = 4
	DefaultWorkerMemory       = 16384
	DefaultDiskSize           = 120
)

// OLM coordinates for the three operators. The KMM channel can vary by
// catalog; when "stable" fails with "no operators found in channel", check
// the packagemanifest's published channels and override in config.
const (
	DefaultNFDNamespace = "openshift-nfd"
	DefaultNFDPackage   = "nfd"
	DefaultNFDCatalog   = "redhat-operators"
	DefaultNFDChannel   = "stable"

	DefaultKMMNamespace = "openshift-kmm"
	DefaultKMMPackage   = "kernel-module-management"
	DefaultKMMCatalog   = "redhat-operators"
	DefaultKMMChannel   = "stable"

	DefaultAMDGPUNamespace = "openshift-amd-gpu"
	DefaultAMDGPUPackage   = "amd-gpu-operator"
	DefaultAMDGPUCatalog   = "certified-operators"
	// The certified catalog publishes AMD GPU Operator bundles on "alpha";
	// "stable" has no bundles and fails subscription resolution.
	DefaultAMDGPUChannel = "alpha"
)

// Post-install resource names and driver defaults.
const (
	DefaultDeviceConfigCRD        = "deviceconfigs.amd.com"
	DefaultDeviceConfigName       = "amd-gpu-device-config"
	DefaultDriverVersion          = "30.20.1"
	DefaultDriverImage            = "image-registry.openshift-image-registry.svc:5000/$MOD_NAMESPACE/amdgpu_kmod"
	DefaultGPUOperatorVersion     = "1.4"
	DefaultNFDInstanceName        = "amd-gpu-nfd-instance"
	DefaultNFDFeatureRuleName     = "amd-gpu-feature-rule"
	DefaultBlacklistMachineConfig = "amdgpu-module-blacklist"
)

// Default returns a Config with every default filled in, the starting
// point for the init wizard.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills every zero-valued field. It never overwrites an
// explicit value, so re-encoding a loaded config round-trips.
func applyDefaults(cfg *Config) {
	c := &cfg.Cluster
	setString(&c.Name, DefaultClusterName)
	setString(&c.Domain, DefaultDomain)
	setString(&c.Network, DefaultNetwork)
	setString(&c.Channel, DefaultChannel)
	setString(&c.APIIP, DefaultAPIIP)
	setInt(&c.ControlPlanes, DefaultControlPlanes)
	setInt(&c.ControlPlaneCPUs, DefaultControlPlaneCPUs)
	setInt(&c.ControlPlaneMemory, DefaultControlPlaneMemory)
	setInt(&c.WorkerCPUs, DefaultWorkerCPUs)
	setInt(&c.WorkerMemory, DefaultWorkerMemory)
	setInt(&c.DiskSize, DefaultDiskSize)

	o := &cfg.Operators
	if o.MachineConfigRole == "" {
		if cfg.Cluster.IsSNO() {
			o.MachineConfigRole = "master"
		} else {
			o.MachineConfigRole = "worker"
		}
	}
	setString(&o.GPUOperatorVersion, DefaultGPUOperatorVersion)
	setString(&o.DriverVersion, DefaultDriverVersion)
	setString(&o.DriverImage, DefaultDriverImage)
	setString(&o.DeviceConfigCRD, DefaultDeviceConfigCRD)
	setString(&o.DeviceConfigName, DefaultDeviceConfigName)
	setString(&o.NFDInstanceName, DefaultNFDInstanceName)
	setString(&o.NFDFeatureRuleName, DefaultNFDFeatureRuleName)
	setString(&o.BlacklistMachineConfig, DefaultBlacklistMachineConfig)

	applySourceDefaults(&o.NFD, OLMSource{
		Namespace:        DefaultNFDNamespace,
		SubscriptionName: "nfd",
		Package:          DefaultNFDPackage,
		Catalog:          DefaultNFDCatalog,
		Channel:          DefaultNFDChannel,
	})
	applySourceDefaults(&o.KMM, OLMSource{
		Namespace:        DefaultKMMNamespace,
		SubscriptionName: "kmm",
		Package:          DefaultKMMPackage,
		Catalog:          DefaultKMMCatalog,
		Channel:          DefaultKMMChannel,
		AllNamespaces:    true,
	})
	applySourceDefaults(&o.AMDGPU, OLMSource{
		Namespace:        DefaultAMDGPUNamespace,
		SubscriptionName: "amd-gpu-operator",
		Package:          DefaultAMDGPUPackage,
		Catalog:          DefaultAMDGPUCatalog,
		Channel:          DefaultAMDGPUChannel,
		AllNamespaces:    true,
	})
}

func applySourceDefaults(src *OLMSource, def OLMSource) {
	setString(&src.Namespace, def.Namespace)
	setString(&src.SubscriptionName, def.SubscriptionName)
	setString(&src.Package, def.Package)
	setString(&src.Catalog, def.Catalog)
	setString(&src.Channel, def.Channel)
	// KMM and the AMD GPU Operator only support AllNamespaces install mode;
	// a single-namespace OperatorGroup leaves the CSV stuck in Pending.
	if def.AllNamespaces {
		src.AllNamespaces = true
	}
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
