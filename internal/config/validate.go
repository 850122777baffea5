package config

import (
	"fmt"
	"log"
	"regexp"
)

var versionRe = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

// Validate checks the configuration for internal consistency. It is called
// by Load; exported so the wizard can validate what it is about to write.
func (c *Config) Validate() error {
	s := c.Cluster
	if s.Name == "" {
		return fmt.Errorf("cluster.name is required")
	}
	if s.Version == "" {
		return fmt.Errorf("cluster.version is required (e.g. \"4.20\" or \"4.20.6\")")
	}
	if !versionRe.MatchString(s.Version) {
		return fmt.Errorf("cluster.version %q is invalid: expected X.Y or X.Y.Z", s.Version)
	}
	if s.Channel != "stable" {
		return fmt.Errorf("cluster.channel %q is not supported; only \"stable\" is", s.Channel)
	}
	if s.PullSecret == "" {
		return fmt.Errorf("cluster.pull_secret is required")
	}
	if s.ControlPlanes < 1 {
		return fmt.Errorf("cluster.ctlplanes must be >= 1, got %d", s.ControlPlanes)
	}
	if s.Workers < 0 {
		return fmt.Errorf("cluster.workers must be >= 0, got %d", s.Workers)
	}

	o := c.Operators
	if o.MachineConfigRole != "worker" && o.MachineConfigRole != "master" {
		return fmt.Errorf("operators.machine_config_role must be \"worker\" or \"master\", got %q", o.MachineConfigRole)
	}
	if s.IsSNO() && o.MachineConfigRole != "master" {
		// Not fatal: the MCP wait will surface the consequence, so a
		// warning is enough.
		log.Printf("warning: SNO topology with machine_config_role=%q; the single node is in the master pool, role \"master\" is usually required", o.MachineConfigRole)
	}
	if !versionRe.MatchString(o.GPUOperatorVersion) {
		return fmt.Errorf("operators.gpu_operator_version %q is invalid: expected X.Y or X.Y.Z", o.GPUOperatorVersion)
	}

	if r := c.Remote; r != nil {
		if r.Host == "" {
			return fmt.Errorf("remote.host is required when a remote target is configured")
		}
		if r.User == "" {
			return fmt.Errorf("remote.user is required when a remote target is configured")
		}
		if r.Key == "" {
			return fmt.Errorf("remote.key is required when a remote target is configured")
		}
	}

	return nil
}
