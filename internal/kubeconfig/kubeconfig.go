// Package kubeconfig retrieves the admin kubeconfig produced by a kcli
// deployment and installs it where the rest of the pipeline expects it:
// /root/kubeconfig on the provisioning host, plus an optional local copy.
package kubeconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"k8s.io/client-go/tools/clientcmd"

	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
	"github.com/rh-ecosystem-edge/amd-ci/internal/waiter"
)

// HostPath is the canonical kubeconfig location on the provisioning host.
const HostPath = "/root/kubeconfig"

// SourcePath returns where kcli drops the admin kubeconfig for a cluster.
func SourcePath(cluster string) string {
	return fmt.Sprintf("~/.kcli/clusters/%s/auth/kubeconfig", cluster)
}

// Manager installs cluster credentials over the command transport.
type Manager struct {
	t   transport.Transport
	log waiter.Logger
}

func NewManager(t transport.Transport, log waiter.Logger) *Manager {
	return &Manager{t: t, log: log}
}

// AvailableCondition waits until kcli has written the cluster's kubeconfig.
// The file appears partway through the create, well before the API is up.
func (m *Manager) AvailableCondition(cluster string, timeout time.Duration) waiter.Condition {
	src := SourcePath(cluster)
	return waiter.Condition{
		Name:     fmt.Sprintf("kubeconfig for cluster %s written", cluster),
		Interval: 15 * time.Second,
		Timeout:  timeout,
		Poll: func(ctx context.Context) (waiter.Observation, error) {
			script := fmt.Sprintf("test -s %s", src)
			if _, err := m.t.Run(ctx, transport.Command{Script: script, Timeout: 30 * time.Second}); err != nil {
				if _, ok := transport.AsCommand(err); ok {
					return waiter.Pending("%s not written yet", src), nil
				}
				return waiter.Pending("host unreachable: %v", err), nil
			}
			return waiter.Satisfied(), nil
		},
	}
}

// Install copies the cluster kubeconfig to HostPath on the provisioning
// host and returns its contents, validated.
func (m *Manager) Install(ctx context.Context, cluster string) ([]byte, error) {
	src := SourcePath(cluster)
	script := fmt.Sprintf("cp %s %s && cat %s", src, HostPath, HostPath)
	res, err := m.t.Run(ctx, transport.Command{Script: script, Timeout: time.Minute})
	if err != nil {
		return nil, fmt.Errorf("installing kubeconfig for %s: %w", cluster, err)
	}

	raw := []byte(res.Stdout)
	normalized, err := Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("kubeconfig for %s is not usable: %w", cluster, err)
	}
	if m.log != nil {
		m.log.Printf("kubeconfig installed at %s", HostPath)
	}
	return normalized, nil
}

// WriteLocal persists kubeconfig bytes to a local path with owner-only
// permissions, creating parent directories as needed.
func WriteLocal(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating kubeconfig directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing kubeconfig: %w", err)
	}
	return nil
}

// Normalize parses, validates and re-serializes a kubeconfig so that
// malformed or truncated files are rejected before anything depends on them.
func Normalize(raw []byte) ([]byte, error) {
	cfg, err := clientcmd.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing kubeconfig: %w", err)
	}
	if err := clientcmd.Validate(*cfg); err != nil {
		return nil, fmt.Errorf("validating kubeconfig: %w", err)
	}
	out, err := clientcmd.Write(*cfg)
	if err != nil {
		return nil, fmt.Errorf("serializing kubeconfig: %w", err)
	}
	return out, nil
}

// EnsureHostsEntry makes api.<cluster>.<domain> resolve to the API VIP on
// the provisioning host. Idempotent: the entry is appended only when it is
// not already present.
func (m *Manager) EnsureHostsEntry(ctx context.Context, cluster, domain, apiIP string) error {
	fqdn := fmt.Sprintf("api.%s.%s", cluster, domain)
	script := fmt.Sprintf("grep -q %s /etc/hosts || echo %s >> /etc/hosts",
		transport.ShellQuote(fqdn),
		transport.ShellQuote(apiIP+" "+fqdn))
	if _, err := m.t.Run(ctx, transport.Command{Script: script, Timeout: 30 * time.Second}); err != nil {
		return fmt.Errorf("adding hosts entry for %s: %w", fqdn, err)
	}
	return nil
}
