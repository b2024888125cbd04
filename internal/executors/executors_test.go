package executors

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	tasksrepo "github.com/Synap-core/backend-sub006/internal/data/repos/tasks"
	"github.com/Synap-core/backend-sub006/internal/data/repos/testutil"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
)

type recordingEmitter struct {
	names []events.Name
}

func (r *recordingEmitter) EmitCompleted(dbc dbctx.Context, name events.Name, subjectType, subjectID string, userID uuid.UUID, data map[string]any, correlationID string) error {
	r.names = append(r.names, name)
	return nil
}

func validatedEvent(t *testing.T, eventType, subjectID string, userID uuid.UUID, data map[string]any) *types.Event {
	t.Helper()
	event, err := events.New(events.Input{
		Type:          eventType,
		SubjectID:     subjectID,
		SubjectType:   "entity",
		Data:          data,
		UserID:        userID,
		CorrelationID: "corr-exec",
	})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	return event
}

func TestEntityExecutorLifecycleIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	base := testutil.Logger(t)
	emitter := &recordingEmitter{}
	// Repos are bound to the test transaction so the executor's writes
	// roll back with it.
	repo := podrepo.NewEntityRepo(tx, base, emitter)
	exec := NewEntityExecutor(repo, base)
	steps := tasksrepo.NewTaskStepRepo(tx, base)

	userID := uuid.New()
	entityID := uuid.New()
	create := validatedEvent(t, "entities.create.validated", entityID.String(), userID, map[string]any{"title": "Doc"})

	taskID := uuid.New()
	step := dispatch.NewStepContext(taskID, dbc, steps, base)
	if err := exec.Execute(dbc.Ctx, step, create); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Redelivery of the same task replays the memoized step: no second
	// insert, no second completed event.
	replayStep := dispatch.NewStepContext(taskID, dbc, steps, base)
	if err := exec.Execute(dbc.Ctx, replayStep, create); err != nil {
		t.Fatalf("redelivered create: %v", err)
	}
	var count int64
	if err := tx.Model(&types.Entity{}).Where("id = ?", entityID).Count(&count).Error; err != nil {
		t.Fatalf("count entities: %v", err)
	}
	if count != 1 {
		t.Fatalf("redelivery duplicated the entity: %d rows", count)
	}
	if len(emitter.names) != 1 {
		t.Fatalf("redelivery duplicated completed events: %d", len(emitter.names))
	}

	update := validatedEvent(t, "entities.update.validated", entityID.String(), userID, map[string]any{"title": "Doc2"})
	step = dispatch.NewStepContext(uuid.New(), dbc, steps, base)
	if err := exec.Execute(dbc.Ctx, step, update); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetByID(dbc, entityID, userID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Doc2" {
		t.Fatalf("update not applied: %q", got.Title)
	}

	// First delete removes the row; redelivery on a fresh task finds
	// nothing and still succeeds.
	del := validatedEvent(t, "entities.delete.validated", entityID.String(), userID, nil)
	step = dispatch.NewStepContext(uuid.New(), dbc, steps, base)
	if err := exec.Execute(dbc.Ctx, step, del); err != nil {
		t.Fatalf("delete: %v", err)
	}
	step = dispatch.NewStepContext(uuid.New(), dbc, steps, base)
	if err := exec.Execute(dbc.Ctx, step, del); err != nil {
		t.Fatalf("redelivered delete should converge, got %v", err)
	}
}

func TestEntityExecutorRejectsBadInput(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	base := testutil.Logger(t)
	repo := podrepo.NewEntityRepo(tx, base, &recordingEmitter{})
	exec := NewEntityExecutor(repo, base)
	steps := tasksrepo.NewTaskStepRepo(tx, base)
	step := dispatch.NewStepContext(uuid.New(), dbc, steps, base)

	// A requested event must never reach a family executor.
	requested := validatedEvent(t, "entities.create.requested", uuid.New().String(), uuid.New(), map[string]any{"title": "x"})
	if err := exec.Execute(dbc.Ctx, step, requested); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("requested phase: expected validation error, got %v", err)
	}

	// Non-uuid subjects cannot be projected.
	bad := validatedEvent(t, "entities.create.validated", "e1", uuid.New(), map[string]any{"title": "x"})
	if err := exec.Execute(dbc.Ctx, step, bad); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("bad subject: expected validation error, got %v", err)
	}
}

func TestWorkspaceExecutorBootstrapsOwner(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	base := testutil.Logger(t)
	emitter := &recordingEmitter{}
	workspaces := podrepo.NewWorkspaceRepo(tx, base, emitter)
	members := podrepo.NewMemberRepo(tx, base, emitter)
	exec := NewWorkspaceExecutor(workspaces, members, base)
	steps := tasksrepo.NewTaskStepRepo(tx, base)

	ownerID := uuid.New()
	wsID := uuid.New()
	create, err := events.New(events.Input{
		Type:        "workspaces.create.validated",
		SubjectID:   wsID.String(),
		SubjectType: "workspace",
		Data:        map[string]any{"name": "Research"},
		UserID:      ownerID,
	})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}

	step := dispatch.NewStepContext(uuid.New(), dbc, steps, base)
	if err := exec.Execute(dbc.Ctx, step, create); err != nil {
		t.Fatalf("create: %v", err)
	}

	member, err := members.GetByWorkspaceAndUser(dbc, wsID, ownerID)
	if err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}
	if member.Role != types.RoleOwner {
		t.Fatalf("owner bootstrapped with role %q", member.Role)
	}
}

func TestMemberExecutorRequiresTarget(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	base := testutil.Logger(t)
	members := podrepo.NewMemberRepo(tx, base, &recordingEmitter{})
	exec := NewMemberExecutor(members, base)
	steps := tasksrepo.NewTaskStepRepo(tx, base)
	step := dispatch.NewStepContext(uuid.New(), dbc, steps, base)

	event, err := events.New(events.Input{
		Type:        "workspace_members.add.validated",
		SubjectID:   uuid.New().String(),
		SubjectType: "workspace_member",
		Data:        map[string]any{"role": types.RoleEditor},
		UserID:      uuid.New(),
	})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if err := exec.Execute(dbc.Ctx, step, event); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("missing userId: expected validation error, got %v", err)
	}
}
