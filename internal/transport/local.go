package transport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// Local executes commands on the host running amd-ci.
type Local struct{}

// NewLocal creates a transport that runs commands on the local host.
func NewLocal() *Local { return &Local{} }

// Target implements Transport.
func (l *Local) Target() string { return "local" }

// Run implements Transport. The command inherits the process environment
// plus cmd.Env.
func (l *Local) Run(ctx context.Context, cmd Command) (*Result, error) {
	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	proc := exec.CommandContext(runCtx, "sh", "-c", cmd.Script)
	proc.Env = os.Environ()
	for k, v := range cmd.Env {
		proc.Env = append(proc.Env, k+"="+v)
	}
	if cmd.Stdin != "" {
		proc.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, ctx.Err()
	case runCtx.Err() != nil:
		// Per-command timeout fired: the command never completed, which is
		// indistinguishable from an unreachable environment for callers.
		return res, &TransportError{Target: l.Target(), Op: "timeout", Err: runCtx.Err()}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &CommandError{Script: cmd.Script, ExitCode: res.ExitCode, Stderr: res.Stderr}
		}
		// The process never ran (sh missing, fork failure): the local
		// environment itself is broken.
		return res, &TransportError{Target: l.Target(), Op: "exec", Err: err}
	}
}
