package resultdb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/queuecheck/pkg/queuecheck"
)

type fakePublisher struct {
	checks []string
	runs   []string
	err    error
}

func (p *fakePublisher) PublishCheck(ctx context.Context, ifname string, r *queuecheck.CheckResult) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	p.checks = append(p.checks, ifname+"/"+r.Name)
	return p.err
}

func (p *fakePublisher) PublishRun(ctx context.Context, r *queuecheck.RunResult) error {
	p.runs = append(p.runs, r.Interface)
	return p.err
}

func TestReporterPublishes(t *testing.T) {
	p := &fakePublisher{}
	r := NewReporter(p)

	r.RunStart("eth0", nil)
	r.CheckEnd(&queuecheck.CheckResult{Name: "check_static_consistency"}, 0, 2)
	r.CheckEnd(&queuecheck.CheckResult{Name: "check_down_error_behavior"}, 1, 2)
	r.RunEnd(&queuecheck.RunResult{Interface: "eth0"})

	assert.Equal(t, []string{"eth0/check_static_consistency", "eth0/check_down_error_behavior"}, p.checks)
	assert.Equal(t, []string{"eth0"}, p.runs)
	assert.NoError(t, r.Err())
}

func TestReporterCollectsErrors(t *testing.T) {
	p := &fakePublisher{err: errors.New("connection refused")}
	r := NewReporter(p)

	r.RunStart("eth0", nil)
	r.CheckEnd(&queuecheck.CheckResult{Name: "check_static_consistency"}, 0, 1)
	r.RunEnd(&queuecheck.RunResult{Interface: "eth0"})

	err := r.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	// Both publishes were attempted.
	assert.Len(t, p.checks, 1)
	assert.Len(t, p.runs, 1)
}
