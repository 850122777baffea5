// Package orchestrator sequences the deployment and operator-installation
// pipelines. Phases run strictly in order, each timed and reported through
// the Observer; the first failure halts the run. There is no automatic
// rollback: the cleanup command is the recovery path.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
)

// Status is the outcome of one phase.
type Status string

const (
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
	StatusSkipped   Status = "Skipped"
)

// PhaseResult records one phase's outcome. Results are ephemeral per run;
// re-running re-derives everything from live cluster state.
type PhaseResult struct {
	Name    string
	Status  Status
	Elapsed time.Duration
	Err     error
}

// Context is the shared state handed to every phase of a run.
type Context struct {
	Ctx      context.Context
	Config   *config.Config
	Timeouts *config.Timeouts
	Observer Observer
}

// Logf emits a progress line through the observer, if any.
func (c *Context) Logf(format string, v ...any) {
	if c.Observer != nil {
		c.Observer.Progress(fmt.Sprintf(format, v...))
	}
}

// Printf makes Context usable as a wait-progress logger.
func (c *Context) Printf(format string, v ...any) {
	c.Logf(format, v...)
}

// Phase is one sequential step of a pipeline.
type Phase interface {
	Name() string
	Run(*Context) error
}

type phaseFunc struct {
	name string
	run  func(*Context) error
}

func (p phaseFunc) Name() string          { return p.name }
func (p phaseFunc) Run(rc *Context) error { return p.run(rc) }

// PhaseFunc wraps a function as a Phase.
func PhaseFunc(name string, run func(*Context) error) Phase {
	return phaseFunc{name: name, run: run}
}

// RunPhases executes phases in order. The first failure halts the pipeline;
// phases after it are reported Skipped. The returned error names the failing
// phase and wraps its cause unchanged.
func RunPhases(rc *Context, phases []Phase) ([]PhaseResult, error) {
	results := make([]PhaseResult, 0, len(phases))
	var runErr error

	for _, p := range phases {
		if runErr != nil {
			results = append(results, PhaseResult{Name: p.Name(), Status: StatusSkipped})
			continue
		}
		if err := rc.Ctx.Err(); err != nil {
			runErr = fmt.Errorf("%s phase not started: %w", p.Name(), err)
			results = append(results, PhaseResult{Name: p.Name(), Status: StatusSkipped, Err: runErr})
			continue
		}

		if rc.Observer != nil {
			rc.Observer.PhaseStarted(p.Name())
		}
		start := time.Now()
		err := p.Run(rc)
		res := PhaseResult{Name: p.Name(), Status: StatusSucceeded, Elapsed: time.Since(start)}
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			runErr = fmt.Errorf("%s phase failed: %w", p.Name(), err)
		}
		results = append(results, res)
		if rc.Observer != nil {
			rc.Observer.PhaseFinished(res)
		}
	}

	return results, runErr
}

// PlanOf lists the phase names in execution order, for dry-run output.
func PlanOf(phases []Phase) []string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name()
	}
	return names
}
