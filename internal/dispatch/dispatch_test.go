package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	tasksrepo "github.com/Synap-core/backend-sub006/internal/data/repos/tasks"
	"github.com/Synap-core/backend-sub006/internal/data/repos/testutil"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
)

func TestQueueDispatcherEnqueuesTask(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := tasksrepo.NewTaskRepo(db, testutil.Logger(t))
	d := NewQueueDispatcher(repo, testutil.Logger(t))

	event := &types.Event{
		ID:          uuid.New(),
		Type:        "entities.create.validated",
		SubjectID:   "e1",
		SubjectType: "entity",
		UserID:      uuid.New(),
		Source:      "api",
	}
	if err := d.Send(dbc, event); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var task types.Task
	if err := tx.Where("event_id = ?", event.ID).First(&task).Error; err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Name != event.Type || task.Status != types.TaskQueued || task.UserID != event.UserID {
		t.Fatalf("unexpected task: %+v", task)
	}
	var decoded types.Event
	if err := json.Unmarshal(task.Payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.ID != event.ID || decoded.Type != event.Type {
		t.Fatalf("payload does not round-trip: %+v", decoded)
	}

	if err := d.Send(dbc, nil); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("Send(nil): expected validation error, got %v", err)
	}
}

func TestRegistryGlobMatching(t *testing.T) {
	r := NewRegistry()
	noop := ExecutorFunc(func(ctx context.Context, step *StepContext, event *types.Event) error { return nil })

	r.MustRegister("entities.create.validated", 1, noop)
	r.MustRegister("entities.*.validated", 4, noop)
	r.MustRegister("*.*.requested", 2, noop)

	if reg := r.match("entities.create.validated"); reg == nil || reg.pattern != "entities.create.validated" {
		t.Fatalf("exact pattern should win: %+v", reg)
	}
	if reg := r.match("entities.update.validated"); reg == nil || reg.pattern != "entities.*.validated" {
		t.Fatalf("family glob should match update: %+v", reg)
	}
	if reg := r.match("projects.create.requested"); reg == nil || reg.pattern != "*.*.requested" {
		t.Fatalf("requested glob should match: %+v", reg)
	}
	if reg := r.match("projects.create.validated"); reg != nil {
		t.Fatalf("expected no match, got %q", reg.pattern)
	}

	if err := r.Register("ok.pattern", 0, noop); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("zero concurrency: expected validation error, got %v", err)
	}
	if err := r.Register("bad[pattern", 1, noop); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("bad glob: expected validation error, got %v", err)
	}
}

func TestStepContextMemoizes(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	steps := tasksrepo.NewTaskStepRepo(db, testutil.Logger(t))
	taskID := uuid.New()
	step := NewStepContext(taskID, dbc, steps, testutil.Logger(t))

	runs := 0
	fn := func() (map[string]any, error) {
		runs++
		return map[string]any{"id": "e1"}, nil
	}

	first, err := step.Run("mutate", fn)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	// Same label on a fresh context for the same task replays the
	// recorded result without re-running fn.
	replayed, err := NewStepContext(taskID, dbc, steps, testutil.Logger(t)).Run("mutate", fn)
	if err != nil {
		t.Fatalf("replayed Run: %v", err)
	}
	if runs != 1 {
		t.Fatalf("fn ran %d times, want 1", runs)
	}
	if first["id"] != "e1" || replayed["id"] != "e1" {
		t.Fatalf("results differ: %v vs %v", first, replayed)
	}

	// A failing step records nothing and re-runs next time.
	boom := errors.New("boom")
	if _, err := step.Run("flaky", func() (map[string]any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	out, err := step.Run("flaky", func() (map[string]any, error) { return map[string]any{"ok": true}, nil })
	if err != nil {
		t.Fatalf("retried Run: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("unexpected result: %v", out)
	}
}

func enqueueEventTask(t *testing.T, repo tasksrepo.TaskRepo, dbc dbctx.Context, eventType string) (*types.Task, *types.Event) {
	t.Helper()
	event := &types.Event{
		ID:          uuid.New(),
		Type:        eventType,
		SubjectID:   uuid.New().String(),
		SubjectType: "entity",
		UserID:      uuid.New(),
		Source:      "api",
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	task := &types.Task{
		ID:      uuid.New(),
		Name:    eventType,
		EventID: event.ID,
		UserID:  event.UserID,
		Payload: datatypes.JSON(payload),
		Status:  types.TaskQueued,
	}
	if err := repo.Enqueue(dbc, task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return task, event
}

func workerConfigForTest() WorkerConfig {
	cfg := DefaultWorkerConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.RetryDelay = 0
	cfg.HeartbeatEvery = 50 * time.Millisecond
	return cfg
}

func waitForStatus(t *testing.T, repo tasksrepo.TaskRepo, dbc dbctx.Context, id uuid.UUID, status string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := repo.GetByIDs(dbc, []uuid.UUID{id})
		if err != nil {
			t.Fatalf("load task: %v", err)
		}
		if len(got) == 1 && got[0].Status == status {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached status %q", id, status)
}

func TestWorkerRunsExecutorToDone(t *testing.T) {
	db := testutil.DB(t)
	repo := tasksrepo.NewTaskRepo(db, testutil.Logger(t))
	steps := tasksrepo.NewTaskStepRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	task, event := enqueueEventTask(t, repo, dbc, "entities.create.validated")

	seen := make(chan uuid.UUID, 1)
	registry := NewRegistry()
	registry.MustRegister("entities.*.validated", 2, ExecutorFunc(func(ctx context.Context, step *StepContext, ev *types.Event) error {
		seen <- ev.ID
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := NewWorker(repo, steps, registry, workerConfigForTest(), testutil.Logger(t))
	go worker.Run(ctx)

	select {
	case id := <-seen:
		if id != event.ID {
			t.Fatalf("executor saw event %s, want %s", id, event.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("executor never ran")
	}
	waitForStatus(t, repo, dbc, task.ID, types.TaskDone)
}

func TestWorkerPermanentFailureGoesDead(t *testing.T) {
	db := testutil.DB(t)
	repo := tasksrepo.NewTaskRepo(db, testutil.Logger(t))
	steps := tasksrepo.NewTaskStepRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	task, _ := enqueueEventTask(t, repo, dbc, "entities.delete.validated")

	attempts := 0
	registry := NewRegistry()
	registry.MustRegister("entities.*.validated", 1, ExecutorFunc(func(ctx context.Context, step *StepContext, ev *types.Event) error {
		attempts++
		return pkgerrors.ErrNotFound
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := NewWorker(repo, steps, registry, workerConfigForTest(), testutil.Logger(t))
	go worker.Run(ctx)

	waitForStatus(t, repo, dbc, task.ID, types.TaskDead)
	if attempts != 1 {
		t.Fatalf("permanent failure retried: %d attempts", attempts)
	}
}

func TestWorkerRetriesTransientThenDies(t *testing.T) {
	db := testutil.DB(t)
	repo := tasksrepo.NewTaskRepo(db, testutil.Logger(t))
	steps := tasksrepo.NewTaskStepRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	task, _ := enqueueEventTask(t, repo, dbc, "entities.update.validated")

	attempts := 0
	registry := NewRegistry()
	registry.MustRegister("entities.*.validated", 1, ExecutorFunc(func(ctx context.Context, step *StepContext, ev *types.Event) error {
		attempts++
		return errors.New("transient db hiccup")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := workerConfigForTest()
	cfg.MaxAttempts = 2
	worker := NewWorker(repo, steps, registry, cfg, testutil.Logger(t))
	go worker.Run(ctx)

	waitForStatus(t, repo, dbc, task.ID, types.TaskDead)
	if attempts != 2 {
		t.Fatalf("expected 2 attempts before dead, got %d", attempts)
	}
}

func TestWorkerUnroutableTaskGoesDead(t *testing.T) {
	db := testutil.DB(t)
	repo := tasksrepo.NewTaskRepo(db, testutil.Logger(t))
	steps := tasksrepo.NewTaskStepRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	task, _ := enqueueEventTask(t, repo, dbc, "mystery.create.validated")

	registry := NewRegistry()
	registry.MustRegister("entities.*.validated", 1, ExecutorFunc(func(ctx context.Context, step *StepContext, ev *types.Event) error {
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := NewWorker(repo, steps, registry, workerConfigForTest(), testutil.Logger(t))
	go worker.Run(ctx)

	waitForStatus(t, repo, dbc, task.ID, types.TaskDead)
}
