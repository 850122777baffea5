// Package transport executes shell commands either on the local host or on a
// remote libvirt host over SSH. Every layer above it (kcli, oc, kubeconfig
// handling) issues commands through the Transport interface so the rest of
// the system never cares where the cluster actually lives.
//
// The package distinguishes two failure classes: a *TransportError means the
// execution environment could not be reached (dial failure, auth failure,
// broken session) and may be retried; a *CommandError means the environment
// was reached and the command ran but exited non-zero, which is surfaced
// immediately so real misconfigurations are not masked by retries.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Command is a single shell command to execute.
type Command struct {
	// Script is the shell command line, executed via "sh -c" locally or as
	// the remote command over SSH.
	Script string

	// Stdin is piped to the command when non-empty (used for "oc apply -f -").
	Stdin string

	// Env holds environment variables prepended to the command
	// (e.g. KUBECONFIG for cluster verbs).
	Env map[string]string

	// Timeout bounds this single invocation. Zero means no per-command
	// timeout beyond the caller's context.
	Timeout time.Duration
}

// Result holds the outcome of an executed command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Transport runs commands against an execution environment.
//
// Run returns a *TransportError when the environment is unreachable, and a
// *CommandError (with the Result still populated) when the command ran but
// exited non-zero. A context cancellation surfaces as the context's error,
// not as either taxonomy type.
type Transport interface {
	Run(ctx context.Context, cmd Command) (*Result, error)

	// Target describes where commands execute ("local" or "user@host"),
	// for logging and error messages.
	Target() string
}

// TransportError indicates the execution environment could not be reached:
// SSH dial failure, authentication failure, or a session that could not be
// established. Eligible for bounded retry.
type TransportError struct {
	Target string
	Op     string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s: %v", e.Target, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CommandError indicates the command ran in the environment and exited
// non-zero. Never retried by this package.
type CommandError struct {
	Script   string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited %d", summarize(e.Script), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLines(s, 3)
	}
	return msg
}

// IsTransport reports whether err (or anything it wraps) is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsCommand extracts a CommandError from err, if present.
func AsCommand(err error) (*CommandError, bool) {
	var ce *CommandError
	ok := errors.As(err, &ce)
	return ce, ok
}

// Check verifies the environment is reachable by running a trivial command.
// A failure is always reported as a *TransportError.
func Check(ctx context.Context, t Transport) error {
	_, err := t.Run(ctx, Command{Script: "true", Timeout: 30 * time.Second})
	if err == nil {
		return nil
	}
	if IsTransport(err) {
		return err
	}
	return &TransportError{Target: t.Target(), Op: "preflight", Err: err}
}

// envPrefix renders Env as a "K=V K2=V2 " shell prefix with stable ordering.
func envPrefix(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	// Small maps only; insertion-order independence matters more than speed.
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(ShellQuote(env[k]))
		b.WriteByte(' ')
	}
	return b.String()
}

// ShellQuote single-quotes s for safe interpolation into a shell command line.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'\\$`&|;<>()*?[]#~%{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func summarize(script string) string {
	if len(script) > 120 {
		return script[:117] + "..."
	}
	return script
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " / ")
}
