package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/rh-ecosystem-edge/amd-ci/internal/util/retry"
)

const (
	defaultSSHPort     = 22
	defaultDialTimeout = 10 * time.Second
	defaultDialRetries = 3
	defaultRetryDelay  = 2 * time.Second
	defaultDialMaxWait = 10 * time.Second
)

// SSHConfig holds the remote target descriptor.
type SSHConfig struct {
	Host    string
	User    string
	KeyPath string
	Port    int

	// DialTimeout is the timeout for establishing the TCP connection.
	// If zero, a default is used.
	DialTimeout time.Duration

	// DialRetries is the number of connection retry attempts for transient
	// dial failures. Auth failures are never retried.
	DialRetries int

	// HostKeyCallback handles host key verification. If nil, host keys are
	// not verified, which matches the ephemeral CI lab hosts this tool
	// targets.
	HostKeyCallback ssh.HostKeyCallback
}

// SSH executes commands on a remote host. The private key is parsed once at
// construction; a connection is dialed per Run call and a session opened per
// command, so a half-dead multiplexed channel can never poison later calls.
type SSH struct {
	cfg    SSHConfig
	signer ssh.Signer
}

// NewSSH creates an SSH transport and validates the private key.
func NewSSH(cfg SSHConfig) (*SSH, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("remote host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("remote user cannot be empty")
	}
	if cfg.KeyPath == "" {
		return nil, fmt.Errorf("remote key path cannot be empty")
	}

	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key %s: %w", cfg.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key %s: %w", cfg.KeyPath, err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultSSHPort
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.DialRetries == 0 {
		cfg.DialRetries = defaultDialRetries
	}
	if cfg.HostKeyCallback == nil {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Ephemeral CI lab hosts
	}

	return &SSH{cfg: cfg, signer: signer}, nil
}

// Target implements Transport.
func (s *SSH) Target() string {
	return fmt.Sprintf("%s@%s", s.cfg.User, s.cfg.Host)
}

// Run implements Transport.
func (s *SSH) Run(ctx context.Context, cmd Command) (*Result, error) {
	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	client, err := s.connect(runCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return nil, &TransportError{Target: s.Target(), Op: "session", Err: err}
	}
	defer func() { _ = session.Close() }()

	if cmd.Stdin != "" {
		session.Stdin = strings.NewReader(cmd.Stdin)
	}
	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	// Environment goes on the command line: sshd commonly rejects Setenv
	// for anything outside AcceptEnv.
	script := envPrefix(cmd.Env) + cmd.Script

	done := make(chan error, 1)
	go func() { done <- session.Run(script) }()

	select {
	case <-runCtx.Done():
		_ = session.Signal(ssh.SIGKILL)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Target: s.Target(), Op: "timeout", Err: runCtx.Err()}
	case err = <-done:
	}

	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, &CommandError{Script: cmd.Script, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, &TransportError{Target: s.Target(), Op: "run", Err: err}
}

// connect dials the remote host, retrying transient failures.
// Authentication rejections are fatal and abort the retry loop.
func (s *SSH) connect(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(s.signer)},
		HostKeyCallback: s.cfg.HostKeyCallback,
		Timeout:         s.cfg.DialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var client *ssh.Client

	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		client, dialErr = ssh.Dial("tcp", addr, config)
		if dialErr != nil && strings.Contains(dialErr.Error(), "unable to authenticate") {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxRetries(s.cfg.DialRetries),
		retry.WithInitialDelay(defaultRetryDelay),
		retry.WithMaxDelay(defaultDialMaxWait),
	)
	if err != nil {
		return nil, &TransportError{Target: s.Target(), Op: "dial", Err: err}
	}
	return client, nil
}
