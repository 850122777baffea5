// Package waiter implements the single polling primitive behind every
// asynchronous convergence check in the system: cluster bootstrap, node
// readiness, CSV phases, CRD establishment, MachineConfigPool rollout.
//
// A Condition pairs a named predicate with a poll interval and a deadline.
// The predicate reports Pending (keep polling, with a human-readable
// observation), Satisfied (stop, success) or Failed (stop immediately, do
// not burn the remaining budget). Timeouts carry the last observation so an
// operator can see what was stuck, not just that something timed out.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// State classifies a single poll of a condition.
type State int

const (
	// StatePending means the condition is not yet met; keep polling.
	StatePending State = iota
	// StateSatisfied means the condition is met; stop with success.
	StateSatisfied
	// StateFailed means the condition transitioned to an explicit failure
	// state; stop immediately.
	StateFailed
)

// Observation is the outcome of one poll.
type Observation struct {
	State State
	// Message describes the raw observed state (Pending) or the failure
	// reason (Failed).
	Message string
}

// Pending reports an unmet condition with the raw observed state.
func Pending(format string, args ...any) Observation {
	return Observation{State: StatePending, Message: fmt.Sprintf(format, args...)}
}

// Satisfied reports a met condition.
func Satisfied() Observation {
	return Observation{State: StateSatisfied}
}

// Failed reports a terminal failure; polling stops immediately.
func Failed(format string, args ...any) Observation {
	return Observation{State: StateFailed, Message: fmt.Sprintf(format, args...)}
}

// Condition is a named predicate over cluster state plus its polling budget.
type Condition struct {
	// Name identifies the condition in logs and errors,
	// e.g. "csv amd-gpu-operator.v1.4.1 in openshift-amd-gpu Succeeded".
	Name string

	// Interval between polls. Zero means DefaultInterval.
	Interval time.Duration

	// Timeout is the per-wait deadline. Zero means DefaultTimeout.
	Timeout time.Duration

	// Poll reads authoritative state and classifies it. A returned error
	// aborts the wait (it is not a Pending observation); predicates that
	// tolerate a flapping API during reboots must swallow those errors
	// themselves and report Pending.
	Poll func(ctx context.Context) (Observation, error)
}

const (
	// DefaultInterval is the poll cadence when a condition does not set one.
	DefaultInterval = 10 * time.Second
	// DefaultTimeout is the per-wait deadline when a condition does not set one.
	DefaultTimeout = 10 * time.Minute
)

// TimeoutError reports a condition that never converged within its deadline.
type TimeoutError struct {
	Condition    string
	Timeout      time.Duration
	LastObserved string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.Condition)
	if e.LastObserved != "" {
		msg += fmt.Sprintf(" (last observed: %s)", e.LastObserved)
	}
	return msg
}

// ObservedFailure reports a condition that transitioned to an explicit
// failure state before its deadline.
type ObservedFailure struct {
	Condition string
	Reason    string
}

func (e *ObservedFailure) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Condition, e.Reason)
}

// Logger receives wait progress lines. The orchestrator's observer satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Wait polls cond until it is satisfied, fails, or the deadline passes.
// The first poll runs immediately, so an already-true condition completes
// within one poll. Cancellation of ctx (the run-level deadline) aborts the
// wait promptly and surfaces ctx's error; exhausting the per-wait budget
// returns a *TimeoutError carrying the last observation.
func Wait(ctx context.Context, cond Condition, log Logger) error {
	interval := cond.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := cond.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var lastObserved string
	var failure *ObservedFailure

	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(pollCtx context.Context) (bool, error) {
		obs, err := cond.Poll(pollCtx)
		if err != nil {
			return false, fmt.Errorf("polling %s: %w", cond.Name, err)
		}
		switch obs.State {
		case StateSatisfied:
			return true, nil
		case StateFailed:
			failure = &ObservedFailure{Condition: cond.Name, Reason: obs.Message}
			return false, failure
		default:
			if obs.Message != "" && obs.Message != lastObserved && log != nil {
				log.Printf("  waiting for %s: %s", cond.Name, obs.Message)
			}
			lastObserved = obs.Message
			return false, nil
		}
	})

	switch {
	case err == nil:
		return nil
	case failure != nil:
		return failure
	case ctx.Err() != nil:
		return fmt.Errorf("wait for %s aborted: %w", cond.Name, ctx.Err())
	case wait.Interrupted(err):
		return &TimeoutError{Condition: cond.Name, Timeout: timeout, LastObserved: lastObserved}
	default:
		return err
	}
}

// IsTimeout reports whether err is a wait deadline expiry.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsObservedFailure reports whether err is an explicit condition failure.
func IsObservedFailure(err error) bool {
	var of *ObservedFailure
	return errors.As(err, &of)
}
