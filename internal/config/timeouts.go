package config

import (
	"os"
	"time"
)

// Timeouts holds every wait budget in the system. Defaults are declared
// here; the config file's timeouts section overrides them, and
// AMD_CI_TIMEOUT_* environment variables override both.
type Timeouts struct {
	Prerequisites    time.Duration // required platform operators running
	Registry         time.Duration // internal registry pod after reconfiguration
	OperatorInstall  time.Duration // per operator: subscription resolution + CSV Succeeded
	ClusterStability time.Duration // nodes Ready + ClusterOperators healthy
	MCPUpdate        time.Duration // MachineConfigPool rollout (includes reboots)
	CRDEstablish     time.Duration // DeviceConfig CRD Established
	GPUReady         time.Duration // device-plugin pods + amd.com/gpu capacity
	Deploy           time.Duration // overall cluster deployment
	VMAppearance     time.Duration // first kcli VMs visible after create
	APIReady         time.Duration // API /version responding after deploy
}

// timeout key in the config file's timeouts section -> env variable suffix.
var timeoutKeys = []struct {
	key string
	env string
	get func(*Timeouts) *time.Duration
}{
	{"prerequisites", "AMD_CI_TIMEOUT_PREREQUISITES", func(t *Timeouts) *time.Duration { return &t.Prerequisites }},
	{"registry", "AMD_CI_TIMEOUT_REGISTRY", func(t *Timeouts) *time.Duration { return &t.Registry }},
	{"operator_install", "AMD_CI_TIMEOUT_OPERATOR_INSTALL", func(t *Timeouts) *time.Duration { return &t.OperatorInstall }},
	{"cluster_stability", "AMD_CI_TIMEOUT_CLUSTER_STABILITY", func(t *Timeouts) *time.Duration { return &t.ClusterStability }},
	{"mcp_update", "AMD_CI_TIMEOUT_MCP_UPDATE", func(t *Timeouts) *time.Duration { return &t.MCPUpdate }},
	{"crd_establish", "AMD_CI_TIMEOUT_CRD_ESTABLISH", func(t *Timeouts) *time.Duration { return &t.CRDEstablish }},
	{"gpu_ready", "AMD_CI_TIMEOUT_GPU_READY", func(t *Timeouts) *time.Duration { return &t.GPUReady }},
	{"deploy", "AMD_CI_TIMEOUT_DEPLOY", func(t *Timeouts) *time.Duration { return &t.Deploy }},
	{"vm_appearance", "AMD_CI_TIMEOUT_VM_APPEARANCE", func(t *Timeouts) *time.Duration { return &t.VMAppearance }},
	{"api_ready", "AMD_CI_TIMEOUT_API_READY", func(t *Timeouts) *time.Duration { return &t.APIReady }},
}

// LoadTimeouts resolves the effective wait budgets from defaults, the
// config file overrides, and the environment (in increasing precedence).
func LoadTimeouts(overrides map[string]string) *Timeouts {
	t := &Timeouts{
		Prerequisites:    15 * time.Minute,
		Registry:         2 * time.Minute,
		OperatorInstall:  10 * time.Minute,
		ClusterStability: 15 * time.Minute,
		MCPUpdate:        15 * time.Minute,
		CRDEstablish:     3 * time.Minute,
		GPUReady:         30 * time.Minute,
		Deploy:           60 * time.Minute,
		VMAppearance:     10 * time.Minute,
		APIReady:         30 * time.Minute,
	}

	for _, k := range timeoutKeys {
		dst := k.get(t)
		if raw, ok := overrides[k.key]; ok {
			if d, err := time.ParseDuration(raw); err == nil {
				*dst = d
			}
		}
		*dst = parseDuration(k.env, *dst)
	}

	return t
}

// Budget is one named wait budget, for display.
type Budget struct {
	Name    string
	Timeout time.Duration
}

// Budgets lists the effective wait budgets in declaration order.
func (t *Timeouts) Budgets() []Budget {
	out := make([]Budget, 0, len(timeoutKeys))
	for _, k := range timeoutKeys {
		out = append(out, Budget{Name: k.key, Timeout: *k.get(t)})
	}
	return out
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}
