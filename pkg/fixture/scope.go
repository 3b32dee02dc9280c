package fixture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newtron-network/queuecheck/pkg/util"
)

// Action is a cleanup step registered with a Scope.
type Action func(ctx context.Context) error

type deferred struct {
	name string
	fn   Action
}

// Scope is a LIFO stack of cleanup actions. Every action registered before
// Close runs exactly once, in reverse registration order, whether or not
// earlier actions fail.
type Scope struct {
	mu      sync.Mutex
	actions []deferred
	closed  bool
}

// NewScope returns an empty Scope.
func NewScope() *Scope {
	return &Scope{}
}

// Defer registers fn to run when the scope closes. Registering on a closed
// scope runs fn immediately with a background context.
func (s *Scope) Defer(name string, fn Action) {
	s.mu.Lock()
	if !s.closed {
		s.actions = append(s.actions, deferred{name: name, fn: fn})
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	util.Warnf("scope already closed, running %q now", name)
	if err := fn(context.Background()); err != nil {
		util.Errorf("deferred %q: %v", name, err)
	}
}

// Len returns the number of pending actions.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// Close runs pending actions in LIFO order and returns their joined errors.
// Cancellation of ctx is not propagated to the actions so that restore steps
// still run after a run was interrupted. Subsequent calls are no-ops.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	actions := s.actions
	s.actions = nil
	s.closed = true
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		util.Debugf("running deferred %q", a.name)
		if err := a.fn(ctx); err != nil {
			util.Warnf("deferred %q failed: %v", a.name, err)
			errs = append(errs, &ActionError{Name: a.name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// ActionError is a failed deferred action.
type ActionError struct {
	Name string
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("deferred %s: %v", e.Name, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
