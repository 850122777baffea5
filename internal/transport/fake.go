package transport

import (
	"context"
	"strings"
	"sync"
)

// Responder produces the outcome for a matched command.
type Responder func(cmd Command) (*Result, error)

// fakeRule pairs a script substring with its responder.
type fakeRule struct {
	substring string
	respond   Responder
}

// Fake is a scripted Transport for tests. Rules are matched in registration
// order by script substring; unmatched commands succeed with empty output.
// Every issued command is recorded so tests can assert ordering.
type Fake struct {
	mu    sync.Mutex
	rules []fakeRule

	// Calls holds every script issued through Run, in order.
	Calls []string
}

// NewFake creates an empty fake transport.
func NewFake() *Fake { return &Fake{} }

// Target implements Transport.
func (f *Fake) Target() string { return "fake" }

// On registers a responder for commands whose script contains substring.
// Later registrations for the same substring override earlier ones.
func (f *Fake) On(substring string, respond Responder) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append([]fakeRule{{substring: substring, respond: respond}}, f.rules...)
	return f
}

// OnOutput registers a fixed stdout response for matching commands.
func (f *Fake) OnOutput(substring, stdout string) *Fake {
	return f.On(substring, func(Command) (*Result, error) {
		return &Result{Stdout: stdout}, nil
	})
}

// OnError registers a fixed error response for matching commands.
func (f *Fake) OnError(substring string, err error) *Fake {
	return f.On(substring, func(Command) (*Result, error) {
		return nil, err
	})
}

// OnExit registers a non-zero exit for matching commands.
func (f *Fake) OnExit(substring string, code int, stderr string) *Fake {
	return f.On(substring, func(cmd Command) (*Result, error) {
		res := &Result{ExitCode: code, Stderr: stderr}
		return res, &CommandError{Script: cmd.Script, ExitCode: code, Stderr: stderr}
	})
}

// Run implements Transport.
func (f *Fake) Run(ctx context.Context, cmd Command) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd.Script)
	rules := f.rules
	f.mu.Unlock()

	for _, r := range rules {
		if strings.Contains(cmd.Script, r.substring) {
			return r.respond(cmd)
		}
	}
	return &Result{}, nil
}

// CallsMatching returns the recorded scripts containing substring, in order.
func (f *Fake) CallsMatching(substring string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if strings.Contains(c, substring) {
			out = append(out, c)
		}
	}
	return out
}

// FirstIndex returns the index of the first recorded call containing
// substring, or -1.
func (f *Fake) FirstIndex(substring string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.Calls {
		if strings.Contains(c, substring) {
			return i
		}
	}
	return -1
}
