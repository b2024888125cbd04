package dispatch

import (
	"context"
	"fmt"
	"path"

	"golang.org/x/sync/semaphore"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
)

// Executor handles one delivered event. Mutations inside Execute must go
// through step.Run so redelivery of the same task is idempotent.
type Executor interface {
	Execute(ctx context.Context, step *StepContext, event *types.Event) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, step *StepContext, event *types.Event) error

func (f ExecutorFunc) Execute(ctx context.Context, step *StepContext, event *types.Event) error {
	return f(ctx, step, event)
}

type registration struct {
	pattern  string
	executor Executor
	// sem bounds in-flight events for this family, not globally.
	sem *semaphore.Weighted
}

// Registry routes event names to executors by glob pattern, e.g.
// `entities.*.validated`. First registered match wins, so register the
// most specific patterns first.
type Registry struct {
	regs []*registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds pattern to executor with at most maxConcurrent events
// in flight. Invalid patterns are rejected up front rather than at
// match time.
func (r *Registry) Register(pattern string, maxConcurrent int64, executor Executor) error {
	if _, err := path.Match(pattern, "probe.probe.probe"); err != nil {
		return fmt.Errorf("%w: bad executor pattern %q", pkgerrors.ErrValidation, pattern)
	}
	if maxConcurrent < 1 {
		return fmt.Errorf("%w: pattern %q needs maxConcurrent >= 1", pkgerrors.ErrValidation, pattern)
	}
	if executor == nil {
		return fmt.Errorf("%w: pattern %q has nil executor", pkgerrors.ErrValidation, pattern)
	}
	r.regs = append(r.regs, &registration{
		pattern:  pattern,
		executor: executor,
		sem:      semaphore.NewWeighted(maxConcurrent),
	})
	return nil
}

// MustRegister is Register for static wiring at startup.
func (r *Registry) MustRegister(pattern string, maxConcurrent int64, executor Executor) {
	if err := r.Register(pattern, maxConcurrent, executor); err != nil {
		panic(err)
	}
}

// Lookup returns the executor subscribed to name. Drivers that bring
// their own concurrency control (Temporal) use this instead of the
// worker's semaphore-guarded path.
func (r *Registry) Lookup(name string) (Executor, bool) {
	reg := r.match(name)
	if reg == nil {
		return nil, false
	}
	return reg.executor, true
}

func (r *Registry) match(name string) *registration {
	for _, reg := range r.regs {
		if ok, _ := path.Match(reg.pattern, name); ok {
			return reg
		}
	}
	return nil
}

// Patterns lists the registered globs in registration order.
func (r *Registry) Patterns() []string {
	out := make([]string, 0, len(r.regs))
	for _, reg := range r.regs {
		out = append(out, reg.pattern)
	}
	return out
}
