// Package handlers implements the command logic behind the cobra commands.
// Commands parse flags; handlers load config, wire components, and run the
// pipelines. External constructors are factory variables so tests can
// substitute fakes.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/kcli"
	"github.com/rh-ecosystem-edge/amd-ci/internal/kubeconfig"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/orchestrator"
	"github.com/rh-ecosystem-edge/amd-ci/internal/release"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
)

// Options carries the root-level flags shared by every command. Remote
// overrides take precedence over the config file's remote section.
type Options struct {
	ConfigPath string

	RemoteHost string
	RemoteUser string
	RemoteKey  string

	// KubeconfigOut is a local path receiving the admin kubeconfig after
	// deploy. Empty skips the local copy.
	KubeconfigOut string
}

// Factory function variables - replaced in tests.
var (
	loadConfigFile = config.LoadFile

	newTransport = func(cfg *config.Config) (transport.Transport, error) {
		if cfg.Remote == nil {
			return transport.NewLocal(), nil
		}
		return transport.NewSSH(transport.SSHConfig{
			Host:    cfg.Remote.Host,
			User:    cfg.Remote.User,
			KeyPath: cfg.Remote.Key,
			Port:    cfg.Remote.Port,
		})
	}

	newResolver = func() *release.Resolver { return release.NewResolver() }

	newObserver = func() orchestrator.Observer { return orchestrator.NewConsole(os.Stderr) }
)

// loadConfig loads the config file and applies flag overrides.
func loadConfig(opts Options) (*config.Config, *config.Timeouts, error) {
	cfg, err := loadConfigFile(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	if opts.RemoteHost != "" {
		if cfg.Remote == nil {
			cfg.Remote = &config.RemoteTarget{}
		}
		cfg.Remote.Host = opts.RemoteHost
	}
	if cfg.Remote != nil {
		if opts.RemoteUser != "" {
			cfg.Remote.User = opts.RemoteUser
		}
		if opts.RemoteKey != "" {
			cfg.Remote.Key = opts.RemoteKey
		}
		if cfg.Remote.User == "" {
			cfg.Remote.User = "root"
		}
		if cfg.Remote.Key == "" {
			return nil, nil, fmt.Errorf("remote host %s configured without an SSH key (set remote.key or --remote-key)", cfg.Remote.Host)
		}
	}

	return cfg, config.LoadTimeouts(cfg.Timeouts), nil
}

// buildDeps wires the pipeline components for a loaded config.
func buildDeps(cfg *config.Config, opts Options, obs orchestrator.Observer) (*orchestrator.Deps, error) {
	t, err := newTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("setting up transport: %w", err)
	}

	lg := logAdapter{obs}
	return &orchestrator.Deps{
		Transport:           t,
		KCLI:                kcli.NewRunner(t, lg),
		OCP:                 ocp.NewClient(t, kubeconfig.HostPath),
		Kube:                kubeconfig.NewManager(t, lg),
		Resolver:            newResolver(),
		LocalKubeconfigPath: opts.KubeconfigOut,
	}, nil
}

// logAdapter exposes an Observer as a wait-progress logger.
type logAdapter struct {
	obs orchestrator.Observer
}

func (l logAdapter) Printf(format string, v ...any) {
	if l.obs != nil {
		l.obs.Progress(fmt.Sprintf(format, v...))
	}
}

// runPipeline executes phases and reports the outcome. The returned error
// already names the failing phase.
func runPipeline(ctx context.Context, cfg *config.Config, timeouts *config.Timeouts, obs orchestrator.Observer, phases []orchestrator.Phase) error {
	rc := &orchestrator.Context{
		Ctx:      ctx,
		Config:   cfg,
		Timeouts: timeouts,
		Observer: obs,
	}
	_, err := orchestrator.RunPhases(rc, phases)
	return err
}
