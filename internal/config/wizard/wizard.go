// Package wizard is the interactive first-run configuration generator
// behind the init command. It asks the handful of questions that have no
// sane universal default and writes a commented starter config.
package wizard

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
)

// Topology selects the cluster shape.
type Topology string

const (
	TopologySNO     Topology = "sno"
	TopologyCompact Topology = "compact"
)

// Result holds the user's choices.
type Result struct {
	ClusterName string
	Domain      string
	Network     string
	Version     string
	PullSecret  string
	APIIP       string
	Topology    Topology

	GPUOperatorVersion string
	VerifyGPU          bool

	Remote     bool
	RemoteHost string
	RemoteUser string
	RemoteKey  string
}

// Function variable for dependency injection in tests.
var stdinIsTTY = func() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// Run executes the interactive form. Without a terminal it refuses and
// tells the user to write the config file by hand.
func Run(ctx context.Context) (*Result, error) {
	if !stdinIsTTY() {
		return nil, fmt.Errorf("init needs an interactive terminal; write %s by hand instead", config.DefaultConfigFile)
	}

	result := &Result{
		Network:            "default",
		Version:            "4.17",
		GPUOperatorVersion: "1.4",
		Topology:           TopologySNO,
		VerifyGPU:          true,
		RemoteUser:         "root",
		RemoteKey:          "~/.ssh/id_rsa",
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster name").
				Description("DNS-safe, lowercase").
				Placeholder("amd-ci").
				Value(&result.ClusterName).
				Validate(ValidateClusterName),
			huh.NewInput().
				Title("Base domain").
				Placeholder("lab.local").
				Value(&result.Domain).
				Validate(ValidateDomain),
			huh.NewInput().
				Title("Libvirt network").
				Value(&result.Network),
		),

		huh.NewGroup(
			huh.NewSelect[Topology]().
				Title("Topology").
				Description("SNO keeps the footprint small; compact runs 3 control planes").
				Options(
					huh.NewOption("Single Node OpenShift (1 node)", TopologySNO),
					huh.NewOption("Compact (3 control planes)", TopologyCompact),
				).
				Value(&result.Topology),
			huh.NewInput().
				Title("OpenShift version").
				Description("major.minor resolves to the latest stable patch").
				Value(&result.Version).
				Validate(ValidateVersion),
			huh.NewInput().
				Title("Pull secret path").
				Placeholder("/root/pull-secret.json").
				Value(&result.PullSecret).
				Validate(required("pull secret path")),
			huh.NewInput().
				Title("API VIP").
				Description("Static IP on the libvirt network for the cluster API").
				Placeholder("192.168.122.253").
				Value(&result.APIIP).
				Validate(ValidateIP),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("AMD GPU operator version").
				Description("major.minor resolves against the published releases").
				Value(&result.GPUOperatorVersion).
				Validate(ValidateVersion),
			huh.NewConfirm().
				Title("Verify GPU availability after install?").
				Description("Disable on hosts without AMD GPU hardware").
				Value(&result.VerifyGPU),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Provision through a remote libvirt host?").
				Value(&result.Remote),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Remote host").
				Placeholder("10.0.0.5").
				Value(&result.RemoteHost).
				Validate(required("remote host")),
			huh.NewInput().
				Title("Remote user").
				Value(&result.RemoteUser),
			huh.NewInput().
				Title("SSH private key path").
				Value(&result.RemoteKey),
		).WithHideFunc(func() bool { return !result.Remote }),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}
	return result, nil
}

// ToConfig expands the wizard answers into a full Config with defaults
// applied, ready to validate and write.
func (r *Result) ToConfig() *config.Config {
	cfg := config.Default()
	cfg.Cluster.Name = r.ClusterName
	cfg.Cluster.Domain = r.Domain
	cfg.Cluster.Network = r.Network
	cfg.Cluster.Version = r.Version
	cfg.Cluster.PullSecret = r.PullSecret
	cfg.Cluster.APIIP = r.APIIP

	switch r.Topology {
	case TopologyCompact:
		cfg.Cluster.ControlPlanes = 3
		cfg.Cluster.Workers = 0
		cfg.Operators.MachineConfigRole = "master"
	default:
		cfg.Cluster.ControlPlanes = 1
		cfg.Cluster.Workers = 0
		cfg.Operators.MachineConfigRole = "master"
	}

	cfg.Operators.GPUOperatorVersion = r.GPUOperatorVersion
	verify := r.VerifyGPU
	cfg.Operators.VerifyGPU = &verify

	if r.Remote {
		cfg.Remote = &config.RemoteTarget{
			Host: r.RemoteHost,
			User: r.RemoteUser,
			Key:  r.RemoteKey,
		}
	}
	return cfg
}

// ValidateClusterName enforces a DNS-safe lowercase name.
func ValidateClusterName(s string) error {
	if s == "" {
		return fmt.Errorf("cluster name is required")
	}
	if len(s) > 63 {
		return fmt.Errorf("cluster name must be 63 characters or less")
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return fmt.Errorf("cluster name can only contain lowercase letters, numbers, and hyphens")
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return fmt.Errorf("cluster name cannot start or end with a hyphen")
	}
	return nil
}

// ValidateDomain requires at least two dot-separated labels.
func ValidateDomain(s string) error {
	if s == "" {
		return fmt.Errorf("domain is required")
	}
	if len(strings.Split(s, ".")) < 2 {
		return fmt.Errorf("invalid domain format (expected example.com)")
	}
	return nil
}

// ValidateVersion accepts "major.minor" or "major.minor.patch".
func ValidateVersion(s string) error {
	parts := strings.Split(s, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return fmt.Errorf("version must be major.minor or major.minor.patch")
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("version must be major.minor or major.minor.patch")
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return fmt.Errorf("version components must be numeric")
			}
		}
	}
	return nil
}

// ValidateIP checks for a dotted-quad IPv4 address.
func ValidateIP(s string) error {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return fmt.Errorf("expected an IPv4 address")
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return fmt.Errorf("expected an IPv4 address")
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return fmt.Errorf("expected an IPv4 address")
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return fmt.Errorf("expected an IPv4 address")
		}
	}
	return nil
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}
