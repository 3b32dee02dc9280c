package queuecheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newtron-network/queuecheck/pkg/fixture"
	"github.com/newtron-network/queuecheck/pkg/util"
)

// RunOptions controls which checks run and how.
type RunOptions struct {
	// Checks selects checks by name or alias; empty runs all of them.
	Checks []string
	// SkipDisruptive reports disruptive checks as skipped instead of running them.
	SkipDisruptive bool
	// CheckTimeout bounds each check; zero means no bound.
	CheckTimeout time.Duration
}

// Runner executes checks sequentially against one device.
type Runner struct {
	Env      *Env
	Progress ProgressReporter

	// release, when set, runs after the last check and before RunEnd.
	release func(context.Context) error
}

// NewRunner creates a runner for env.
func NewRunner(env *Env) *Runner {
	return &Runner{Env: env}
}

// RunFixture runs the selected checks against f and always releases f.
// A release failure is recorded on the result.
func RunFixture(ctx context.Context, f *fixture.Fixture, progress ProgressReporter, opts RunOptions) (*RunResult, error) {
	r := &Runner{Env: EnvFromFixture(f), Progress: progress, release: f.Release}
	res, err := r.Run(ctx, opts)
	if err != nil {
		if relErr := f.Release(ctx); relErr != nil {
			util.Logger.Warnf("releasing %s: %v", f.Ifname, relErr)
		}
		return nil, err
	}
	return res, nil
}

// Run executes the selected checks in declared order. No outcome of one
// check prevents the next from running. The returned error is non-nil only
// for invalid options.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	checks, err := SelectChecks(opts.Checks)
	if err != nil {
		return nil, err
	}

	res := &RunResult{
		Interface: r.Env.Ifname,
		Ifindex:   r.Env.Ifindex,
		Started:   time.Now(),
	}

	r.progress(func(p ProgressReporter) { p.RunStart(r.Env.Ifname, checks) })

	for i, c := range checks {
		r.progress(func(p ProgressReporter) { p.CheckStart(c, i, len(checks)) })
		result := r.runCheck(ctx, c, opts)
		res.Checks = append(res.Checks, result)
		r.progress(func(p ProgressReporter) { p.CheckEnd(result, i, len(checks)) })
	}

	if r.release != nil {
		if err := r.release(ctx); err != nil {
			res.ReleaseError = err.Error()
		}
	}
	res.Duration = time.Since(res.Started)
	r.progress(func(p ProgressReporter) { p.RunEnd(res) })
	return res, nil
}

func (r *Runner) runCheck(ctx context.Context, c *Check, opts RunOptions) *CheckResult {
	result := &CheckResult{
		Name:       c.Name,
		Alias:      c.Alias,
		Disruptive: c.Disruptive,
	}
	log := util.WithCheck(c.Name, r.Env.Ifname)

	switch {
	case c.Disruptive && opts.SkipDisruptive:
		result.Status = StatusSkipped
		result.Message = "disruptive checks disabled"
		return result
	case c.Privileged && !r.Env.Privileged:
		result.Status = StatusSkipped
		result.Message = "requires CAP_NET_ADMIN"
		return result
	}

	if opts.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.CheckTimeout)
		defer cancel()
	}

	env, scope := r.Env.withScope()
	start := time.Now()
	err := runProtected(ctx, c, env)
	cleanupErr := scope.Close(ctx)
	result.Duration = time.Since(start)

	result.Status = classify(err)
	if err != nil {
		var skip *SkipError
		if errors.As(err, &skip) {
			result.Message = skip.Reason
		} else {
			result.Message = err.Error()
		}
		var rerr *RestoreError
		if errors.As(err, &rerr) {
			result.RestoreFailed = true
		}
	}

	if cleanupErr != nil {
		// A device left in a changed state fails the check whatever it reported.
		result.CleanupError = cleanupErr.Error()
		result.RestoreFailed = true
		if result.Status == StatusPassed || result.Status == StatusSkipped {
			result.Status = StatusFailed
			result.Message = cleanupErr.Error()
		}
	}

	log.WithField("status", result.Status).Debugf("check finished in %s", result.Duration)
	return result
}

// runProtected runs the check, converting a panic into an error so that the
// per-check cleanups still run.
func runProtected(ctx context.Context, c *Check, env *Env) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("check panicked: %v", p)
		}
	}()
	return c.Run(ctx, env)
}

func (r *Runner) progress(fn func(ProgressReporter)) {
	if r.Progress != nil {
		fn(r.Progress)
	}
}

// ExitCode maps a run to a process exit status: 1 when any check failed or
// errored or the fixture could not be released cleanly, else 0.
func ExitCode(res *RunResult) int {
	if res == nil {
		return 1
	}
	switch res.Status() {
	case StatusFailed, StatusError:
		return 1
	}
	return 0
}
