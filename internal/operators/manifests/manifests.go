// Package manifests renders the YAML manifests that are more template than
// struct: the NFD operand instance, the AMD PCI-device NodeFeatureRule and
// the amdgpu blacklist MachineConfig.
package manifests

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.yaml
var templatesFS embed.FS

// nfdOperandImage is required on OpenShift 4.16; 4.17+ auto-selects it.
const nfdOperandImage = "quay.io/openshift/origin-node-feature-discovery:latest"

// blacklistContentsB64 is base64("blacklist amdgpu\n"), the modprobe snippet
// that keeps the in-tree driver from binding before the out-of-tree build.
const blacklistContentsB64 = "YmxhY2tsaXN0IGFtZGdwdQo="

func render(name string, data any) (string, error) {
	content, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest template %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// NFDInstance renders the NodeFeatureDiscovery operand CR.
func NFDInstance(name, namespace, ocpVersion string) (string, error) {
	data := struct {
		Name, Namespace, OperandImage string
	}{Name: name, Namespace: namespace}
	if strings.HasPrefix(ocpVersion, "4.16") {
		data.OperandImage = nfdOperandImage
	}
	return render("nfdinstance.yaml", data)
}

// NodeFeatureRule renders the AMD GPU / vGPU PCI detection rule. The device
// ID sets are fixed in the template; vendor 1002 is AMD.
func NodeFeatureRule(name, namespace string) (string, error) {
	return render("nodefeaturerule.yaml", struct {
		Name, Namespace string
	}{name, namespace})
}

// BlacklistMachineConfig renders the MachineConfig that blacklists the
// in-tree amdgpu module on nodes of the given role. Applying it makes the
// MachineConfigOperator reboot those nodes.
func BlacklistMachineConfig(name, role string) (string, error) {
	return render("machineconfig.yaml", struct {
		Name, Role, ContentsB64 string
	}{name, role, blacklistContentsB64})
}
