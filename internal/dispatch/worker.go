package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	tasksrepo "github.com/Synap-core/backend-sub006/internal/data/repos/tasks"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

type WorkerConfig struct {
	PollInterval   time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	StaleRunning   time.Duration
	HeartbeatEvery time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval:   500 * time.Millisecond,
		MaxAttempts:    3,
		RetryDelay:     5 * time.Second,
		StaleRunning:   2 * time.Minute,
		HeartbeatEvery: 15 * time.Second,
	}
}

// Worker claims runnable tasks and drives them through their family's
// executor. Transient failures requeue the task for retry up to the
// attempt bound; permanent failures terminate it on the dead status and
// are logged loudly rather than silently swallowed.
type Worker struct {
	tasks    tasksrepo.TaskRepo
	steps    tasksrepo.TaskStepRepo
	registry *Registry
	cfg      WorkerConfig
	log      *logger.Logger
	wg       sync.WaitGroup
}

func NewWorker(tasks tasksrepo.TaskRepo, steps tasksrepo.TaskStepRepo, registry *Registry, cfg WorkerConfig, baseLog *logger.Logger) *Worker {
	return &Worker{
		tasks:    tasks,
		steps:    steps,
		registry: registry,
		cfg:      cfg,
		log:      baseLog.With("component", "dispatch_worker"),
	}
}

// Run polls until ctx is cancelled, then waits for in-flight executions
// to finish.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("worker started", "patterns", w.registry.Patterns())
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.log.Info("worker stopped")
			return
		default:
		}

		task, err := w.tasks.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
		if err != nil {
			w.log.Error("claim failed", "error", err)
			w.sleep(ctx)
			continue
		}
		if task == nil {
			w.sleep(ctx)
			continue
		}
		w.start(ctx, task)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.PollInterval):
	}
}

func (w *Worker) start(ctx context.Context, task *types.Task) {
	reg := w.registry.match(task.Name)
	if reg == nil {
		// No executor for a dispatched name is a wiring bug, not a
		// retryable condition.
		w.finish(ctx, task, fmt.Errorf("%w: no executor registered for %q", pkgerrors.ErrValidation, task.Name))
		return
	}
	if err := reg.sem.Acquire(ctx, 1); err != nil {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer reg.sem.Release(1)
		w.finish(ctx, task, w.process(ctx, reg, task))
	}()
}

func (w *Worker) process(ctx context.Context, reg *registration, task *types.Task) error {
	var event types.Event
	if err := json.Unmarshal(task.Payload, &event); err != nil {
		return fmt.Errorf("%w: task %s payload: %v", pkgerrors.ErrValidation, task.ID, err)
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeat(hbCtx, task)

	step := NewStepContext(task.ID, dbctx.Context{Ctx: ctx}, w.steps, w.log)
	return reg.executor.Execute(ctx, step, &event)
}

func (w *Worker) heartbeat(ctx context.Context, task *types.Task) {
	ticker := time.NewTicker(w.cfg.HeartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.tasks.Heartbeat(dbctx.Context{Ctx: ctx}, task.ID); err != nil {
				w.log.Warn("heartbeat failed", "task_id", task.ID, "error", err)
			}
		}
	}
}

func (w *Worker) finish(ctx context.Context, task *types.Task, execErr error) {
	dbc := dbctx.Context{Ctx: ctx}
	if execErr == nil {
		if err := w.tasks.MarkDone(dbc, task.ID); err != nil {
			w.log.Error("mark done failed", "task_id", task.ID, "error", err)
		}
		return
	}

	if pkgerrors.Permanent(execErr) || task.Attempts >= w.cfg.MaxAttempts {
		w.log.Error("task terminated",
			"task_id", task.ID,
			"name", task.Name,
			"event_id", task.EventID,
			"attempts", task.Attempts,
			"error", execErr,
		)
		if err := w.tasks.MarkDead(dbc, task.ID, execErr.Error()); err != nil {
			w.log.Error("mark dead failed", "task_id", task.ID, "error", err)
		}
		return
	}

	w.log.Warn("task failed, will retry",
		"task_id", task.ID,
		"name", task.Name,
		"attempts", task.Attempts,
		"error", execErr,
	)
	if err := w.tasks.MarkFailed(dbc, task.ID, execErr.Error()); err != nil {
		w.log.Error("mark failed errored", "task_id", task.ID, "error", err)
	}
}
