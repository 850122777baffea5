package manifests

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNodeFeatureRule(t *testing.T) {
	out, err := NodeFeatureRule("amd-gpu-feature-rule", "openshift-amd-gpu")
	require.NoError(t, err)

	assert.Contains(t, out, "name: amd-gpu-feature-rule")
	assert.Contains(t, out, "namespace: openshift-amd-gpu")
	assert.Contains(t, out, `vendor: {op: In, value: ["1002"]}`)
	assert.Contains(t, out, `feature.node.kubernetes.io/amd-gpu: "true"`)
	assert.Contains(t, out, `feature.node.kubernetes.io/amd-vgpu: "true"`)
	// Spot-check one device ID from each rule.
	assert.Contains(t, out, `"740f"`)
	assert.Contains(t, out, `"74b9"`)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc), "rendered rule must be valid YAML")
}

func TestBlacklistMachineConfig(t *testing.T) {
	out, err := BlacklistMachineConfig("amdgpu-module-blacklist", "worker")
	require.NoError(t, err)

	assert.Contains(t, out, "machineconfiguration.openshift.io/role: worker")
	assert.Contains(t, out, "name: amdgpu-module-blacklist")
	assert.Contains(t, out, "/etc/modprobe.d/amdgpu-blacklist.conf")
	// base64("blacklist amdgpu\n")
	assert.Contains(t, out, "data:text/plain;base64,YmxhY2tsaXN0IGFtZGdwdQo=")

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
}

func TestNFDInstanceOperandImage(t *testing.T) {
	tests := []struct {
		version     string
		wantOperand bool
	}{
		{"4.16.21", true},
		{"4.17.9", false},
		{"4.20.1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("ocp "+tt.version, func(t *testing.T) {
			out, err := NFDInstance("amd-gpu-nfd-instance", "openshift-nfd", tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOperand, strings.Contains(out, "operand:"))
			assert.Contains(t, out, "workerConfig")

			var doc map[string]any
			require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
		})
	}
}
