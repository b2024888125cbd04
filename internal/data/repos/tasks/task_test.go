package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Synap-core/backend-sub006/internal/data/repos/testutil"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
)

func TestTaskClaimLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewTaskRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	task := testutil.SeedTask(t, dbc.Ctx, tx, "entities.create.validated", uuid.New())

	claimed, err := repo.ClaimNextRunnable(dbc, 3, 30*time.Second, 2*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed == nil || claimed.ID != task.ID {
		t.Fatalf("ClaimNextRunnable: expected task %s, got %+v", task.ID, claimed)
	}
	if claimed.Status != types.TaskRunning || claimed.Attempts != 1 {
		t.Fatalf("ClaimNextRunnable: unexpected state %s/%d", claimed.Status, claimed.Attempts)
	}

	// A running task with a fresh heartbeat is not claimable again.
	again, err := repo.ClaimNextRunnable(dbc, 3, 30*time.Second, 2*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable (running): %v", err)
	}
	if again != nil {
		t.Fatalf("ClaimNextRunnable (running): expected nil, got %+v", again)
	}

	if err := repo.MarkDone(dbc, task.ID); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	done, err := repo.CountByStatus(dbc, types.TaskDone)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if done != 1 {
		t.Fatalf("CountByStatus(done): expected 1, got %d", done)
	}
}

func TestTaskRetryAndDead(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewTaskRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	task := testutil.SeedTask(t, dbc.Ctx, tx, "projects.update.validated", uuid.New())

	claimed, err := repo.ClaimNextRunnable(dbc, 3, 0, 2*time.Minute)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	if err := repo.MarkFailed(dbc, task.ID, "transient db error"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	// retryDelay 0 makes the failed task immediately runnable again.
	reclaimed, err := repo.ClaimNextRunnable(dbc, 3, 0, 2*time.Minute)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed == nil || reclaimed.ID != task.ID || reclaimed.Attempts != 2 {
		t.Fatalf("reclaim: unexpected %+v", reclaimed)
	}

	if err := repo.MarkDead(dbc, task.ID, "permanent: not found"); err != nil {
		t.Fatalf("MarkDead: %v", err)
	}
	dead, err := repo.ClaimNextRunnable(dbc, 3, 0, 2*time.Minute)
	if err != nil {
		t.Fatalf("claim after dead: %v", err)
	}
	if dead != nil {
		t.Fatalf("dead task must never be re-claimed, got %+v", dead)
	}
}

func TestTaskStepMemo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewTaskStepRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	taskID := uuid.New()

	step, err := repo.GetCompleted(dbc, taskID, "apply")
	if err != nil {
		t.Fatalf("GetCompleted: %v", err)
	}
	if step != nil {
		t.Fatalf("GetCompleted: expected nil before completion")
	}

	if err := repo.RecordCompleted(dbc, taskID, "apply", datatypes.JSON([]byte(`{"ok":true}`))); err != nil {
		t.Fatalf("RecordCompleted: %v", err)
	}
	// Duplicate record from a racing redelivery is a no-op.
	if err := repo.RecordCompleted(dbc, taskID, "apply", datatypes.JSON([]byte(`{"ok":false}`))); err != nil {
		t.Fatalf("RecordCompleted duplicate: %v", err)
	}

	step, err = repo.GetCompleted(dbc, taskID, "apply")
	if err != nil {
		t.Fatalf("GetCompleted after record: %v", err)
	}
	if step == nil || string(step.Result) != `{"ok":true}` {
		t.Fatalf("GetCompleted: first writer must win, got %+v", step)
	}

	steps, err := repo.ListByTask(dbc, taskID)
	if err != nil {
		t.Fatalf("ListByTask: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("ListByTask: expected 1, got %d", len(steps))
	}
}
