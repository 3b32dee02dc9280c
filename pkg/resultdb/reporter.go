package resultdb

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/newtron-network/queuecheck/pkg/queuecheck"
	"github.com/newtron-network/queuecheck/pkg/util"
)

// Publisher stores results as they are produced.
type Publisher interface {
	PublishCheck(ctx context.Context, ifname string, r *queuecheck.CheckResult) error
	PublishRun(ctx context.Context, r *queuecheck.RunResult) error
}

// DefaultPublishTimeout bounds each write to the results database.
const DefaultPublishTimeout = 5 * time.Second

// Reporter is a queuecheck.ProgressReporter that publishes each check
// result when it ends and the run summary when the run ends. Publishing
// failures never affect the run; they are logged and kept for Err.
type Reporter struct {
	Publisher Publisher
	Timeout   time.Duration

	mu     sync.Mutex
	ifname string
	errs   []error
}

// NewReporter creates a reporter publishing through p.
func NewReporter(p Publisher) *Reporter {
	return &Reporter{Publisher: p, Timeout: DefaultPublishTimeout}
}

func (r *Reporter) RunStart(ifname string, checks []*queuecheck.Check) {
	r.mu.Lock()
	r.ifname = ifname
	r.mu.Unlock()
}

func (r *Reporter) CheckStart(check *queuecheck.Check, index, total int) {}

func (r *Reporter) CheckEnd(result *queuecheck.CheckResult, index, total int) {
	r.mu.Lock()
	ifname := r.ifname
	r.mu.Unlock()
	r.publish(func(ctx context.Context) error {
		return r.Publisher.PublishCheck(ctx, ifname, result)
	})
}

func (r *Reporter) RunEnd(result *queuecheck.RunResult) {
	r.publish(func(ctx context.Context) error {
		return r.Publisher.PublishRun(ctx, result)
	})
}

func (r *Reporter) publish(fn func(ctx context.Context) error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		util.Logger.Warnf("publishing results: %v", err)
		r.mu.Lock()
		r.errs = append(r.errs, err)
		r.mu.Unlock()
	}
}

// Err returns the publishing failures seen so far, joined.
func (r *Reporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}
