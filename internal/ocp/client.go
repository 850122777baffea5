// Package ocp applies and reads cluster resources by driving oc through the
// command transport. The cluster API VIP is only routable from the libvirt
// host, so every verb is an oc invocation there rather than a direct
// client-go connection; typed decoding of -o json output still uses the
// upstream API structs.
package ocp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
)

// ErrNotFound is returned by Get when the resource does not exist.
var ErrNotFound = errors.New("resource not found")

// ApplyOutcome classifies what an Apply did.
type ApplyOutcome int

const (
	// Applied means the server created or reconfigured at least one resource.
	Applied ApplyOutcome = iota
	// Unchanged means every resource in the manifest already matched; the
	// apply was a no-op (no new revision, no timestamp change).
	Unchanged
)

func (o ApplyOutcome) String() string {
	if o == Unchanged {
		return "unchanged"
	}
	return "applied"
}

const defaultCommandTimeout = 60 * time.Second

// Client runs oc against one cluster.
type Client struct {
	t          transport.Transport
	kubeconfig string
}

// NewClient creates a client for the cluster reachable through t with the
// given kubeconfig path (a path on the transport's host).
func NewClient(t transport.Transport, kubeconfigPath string) *Client {
	return &Client{t: t, kubeconfig: kubeconfigPath}
}

// Transport exposes the underlying transport for callers that need raw
// commands on the same host (e.g. kubeconfig installation).
func (c *Client) Transport() transport.Transport { return c.t }

// run executes oc with the given arguments.
func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) (*transport.Result, error) {
	return c.runStdin(ctx, timeout, "", args...)
}

func (c *Client) runStdin(ctx context.Context, timeout time.Duration, stdin string, args ...string) (*transport.Result, error) {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, "oc")
	for _, a := range args {
		quoted = append(quoted, transport.ShellQuote(a))
	}
	return c.t.Run(ctx, transport.Command{
		Script:  strings.Join(quoted, " "),
		Stdin:   stdin,
		Env:     map[string]string{"KUBECONFIG": c.kubeconfig},
		Timeout: timeout,
	})
}

// Get reads a resource as raw JSON. Namespace may be empty for
// cluster-scoped kinds. Returns ErrNotFound when the resource is absent.
func (c *Client) Get(ctx context.Context, kind, name, namespace string) ([]byte, error) {
	args := []string{"get", kind, name, "-o", "json"}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	res, err := c.run(ctx, 0, args...)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s %s/%s: %w", kind, namespace, name, ErrNotFound)
		}
		return nil, err
	}
	return []byte(res.Stdout), nil
}

// GetInto reads a resource and decodes it into out.
func (c *Client) GetInto(ctx context.Context, kind, name, namespace string, out any) error {
	raw, err := c.Get(ctx, kind, name, namespace)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s %s/%s: %w", kind, namespace, name, err)
	}
	return nil
}

// List reads a resource list as raw JSON and decodes it into out.
// Namespace may be empty; pass allNamespaces for -A.
func (c *Client) List(ctx context.Context, kind, namespace string, allNamespaces bool, out any) error {
	args := []string{"get", kind, "-o", "json"}
	switch {
	case allNamespaces:
		args = append(args, "-A")
	case namespace != "":
		args = append(args, "-n", namespace)
	}
	res, err := c.run(ctx, 0, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(res.Stdout), out); err != nil {
		return fmt.Errorf("decoding %s list: %w", kind, err)
	}
	return nil
}

// Apply applies a YAML manifest idempotently via server-side comparison:
// oc apply leaves already-correct resources untouched and reports them
// "unchanged", which Apply surfaces so a retry run can prove it mutated
// nothing.
func (c *Client) Apply(ctx context.Context, manifest string) (ApplyOutcome, error) {
	res, err := c.runStdin(ctx, 2*time.Minute, manifest, "apply", "-f", "-")
	if err != nil {
		return Applied, fmt.Errorf("oc apply failed: %w", err)
	}

	outcome := Unchanged
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasSuffix(line, " unchanged") {
			outcome = Applied
		}
	}
	return outcome, nil
}

// Delete removes a resource, tolerating absence. Namespace may be empty.
func (c *Client) Delete(ctx context.Context, kind, name, namespace string) error {
	args := []string{"delete", kind, name, "--ignore-not-found"}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	_, err := c.run(ctx, 2*time.Minute, args...)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// Patch merge-patches a resource. Resource is "kind" or "kind/name" style
// arguments as oc expects; name goes separately.
func (c *Client) Patch(ctx context.Context, kind, name, namespace, mergePatch string) error {
	args := []string{"patch", kind, name, "--type=merge", "--patch=" + mergePatch}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	_, err := c.run(ctx, 0, args...)
	return err
}

// Label sets labels on a resource with --overwrite, a metadata-only and
// always-idempotent mutation. Labels ending in "-" are removed.
func (c *Client) Label(ctx context.Context, kind, name, namespace string, labels ...string) error {
	args := append([]string{"label", kind, name}, labels...)
	args = append(args, "--overwrite")
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	_, err := c.run(ctx, 0, args...)
	return err
}

// EnsureNamespace creates the namespace if absent.
func (c *Client) EnsureNamespace(ctx context.Context, name string) error {
	if _, err := c.Get(ctx, "namespace", name, ""); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, err := c.run(ctx, 0, "create", "namespace", name); err != nil {
		// Lost the race with another creator: fine.
		if ce, ok := transport.AsCommand(err); ok && strings.Contains(ce.Stderr, "AlreadyExists") {
			return nil
		}
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// APIReachable probes the API server by asking for its version. Transport
// and command failures both mean "not reachable yet"; callers polling
// during reboots treat that as a pending observation.
func (c *Client) APIReachable(ctx context.Context) bool {
	res, err := c.run(ctx, 30*time.Second, "version", "--request-timeout=10s", "-o", "json")
	return err == nil && strings.Contains(res.Stdout, "serverVersion")
}

// isNotFound detects oc's NotFound exit for get/delete verbs.
func isNotFound(err error) bool {
	ce, ok := transport.AsCommand(err)
	if !ok {
		return false
	}
	s := strings.ToLower(ce.Stderr)
	return strings.Contains(s, "notfound") || strings.Contains(s, "not found")
}
