package executors

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/authz"
	"github.com/Synap-core/backend-sub006/internal/commands"
	eventsrepo "github.com/Synap-core/backend-sub006/internal/data/repos/events"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	tasksrepo "github.com/Synap-core/backend-sub006/internal/data/repos/tasks"
	"github.com/Synap-core/backend-sub006/internal/data/repos/testutil"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	"github.com/Synap-core/backend-sub006/internal/policy"
)

type captureDispatcher struct {
	sent []*types.Event
}

func (c *captureDispatcher) Send(dbc dbctx.Context, event *types.Event) error {
	c.sent = append(c.sent, event)
	return nil
}

type validatorHarness struct {
	dbc        dbctx.Context
	logRepo    eventsrepo.EventLogRepo
	dispatcher *captureDispatcher
	validator  *Validator
	steps      tasksrepo.TaskStepRepo
}

func newValidatorHarness(t *testing.T) *validatorHarness {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	base := testutil.Logger(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	logRepo := eventsrepo.NewEventLogRepo(tx, base)
	dispatcher := &captureDispatcher{}
	gw := commands.NewGateway(logRepo, dispatcher, policy.NewService(base, nil, policy.BuiltinDefaults()), nil, base)
	gate := authz.NewGate(podrepo.NewMemberRepo(tx, base, gw), base)
	return &validatorHarness{
		dbc:        dbc,
		logRepo:    logRepo,
		dispatcher: dispatcher,
		validator:  NewValidator(gw, gate, base),
		steps:      tasksrepo.NewTaskStepRepo(tx, base),
	}
}

func (h *validatorHarness) requested(t *testing.T, eventType, subjectID string, userID uuid.UUID, data map[string]any) *types.Event {
	t.Helper()
	event, err := events.New(events.Input{
		Type:          eventType,
		SubjectID:     subjectID,
		SubjectType:   "entity",
		Data:          data,
		UserID:        userID,
		CorrelationID: "corr-" + subjectID,
	})
	if err != nil {
		t.Fatalf("build requested event: %v", err)
	}
	if err := h.logRepo.Append(h.dbc, event); err != nil {
		t.Fatalf("append requested event: %v", err)
	}
	return event
}

func (h *validatorHarness) run(t *testing.T, event *types.Event) error {
	t.Helper()
	step := dispatch.NewStepContext(uuid.New(), h.dbc, h.steps, testutil.Logger(t))
	return h.validator.Execute(h.dbc.Ctx, step, event)
}

func TestValidatorApprovesSufficientRole(t *testing.T) {
	h := newValidatorHarness(t)
	editor := uuid.New()
	ws := testutil.SeedWorkspace(t, h.dbc.Ctx, h.dbc.Tx, uuid.New())
	testutil.SeedMember(t, h.dbc.Ctx, h.dbc.Tx, ws.ID, editor, types.RoleEditor)

	requested := h.requested(t, "entities.update.requested", uuid.New().String(), editor,
		map[string]any{"title": "New", "workspaceId": ws.ID.String()})
	if err := h.run(t, requested); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(h.dispatcher.sent) != 1 {
		t.Fatalf("expected one validated dispatch, got %d", len(h.dispatcher.sent))
	}
	validated := h.dispatcher.sent[0]
	if validated.Type != "entities.update.validated" {
		t.Fatalf("dispatched %q", validated.Type)
	}
	if validated.CorrelationID != requested.CorrelationID || validated.UserID != editor {
		t.Fatalf("validated event lost provenance: %+v", validated)
	}
}

func TestValidatorRejectsInsufficientRole(t *testing.T) {
	h := newValidatorHarness(t)
	viewer := uuid.New()
	ws := testutil.SeedWorkspace(t, h.dbc.Ctx, h.dbc.Tx, uuid.New())
	testutil.SeedMember(t, h.dbc.Ctx, h.dbc.Tx, ws.ID, viewer, types.RoleViewer)

	requested := h.requested(t, "entities.update.requested", uuid.New().String(), viewer,
		map[string]any{"title": "New", "workspaceId": ws.ID.String()})
	// A rejection is the successful outcome of the task, not a failure.
	if err := h.run(t, requested); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(h.dispatcher.sent) != 0 {
		t.Fatalf("rejected command must not dispatch, got %d", len(h.dispatcher.sent))
	}
	logged, err := h.logRepo.GetByCorrelation(h.dbc, requested.CorrelationID)
	if err != nil {
		t.Fatalf("GetByCorrelation: %v", err)
	}
	found := false
	for _, e := range logged {
		if e.Type == events.TypeValidationRejected {
			found = true
		}
		if e.Type == "entities.update.validated" {
			t.Fatal("rejected command was validated anyway")
		}
	}
	if !found {
		t.Fatalf("rejection not recorded: %+v", logged)
	}
}

func TestValidatorRejectsNonMember(t *testing.T) {
	h := newValidatorHarness(t)
	stranger := uuid.New()
	ws := testutil.SeedWorkspace(t, h.dbc.Ctx, h.dbc.Tx, uuid.New())

	requested := h.requested(t, "entities.create.requested", uuid.New().String(), stranger,
		map[string]any{"title": "Sneak", "workspaceId": ws.ID.String()})
	if err := h.run(t, requested); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(h.dispatcher.sent) != 0 {
		t.Fatal("non-member command must not dispatch")
	}
}

func TestValidatorMembershipCommandsNeedAdmin(t *testing.T) {
	h := newValidatorHarness(t)
	ws := testutil.SeedWorkspace(t, h.dbc.Ctx, h.dbc.Tx, uuid.New())
	editor := uuid.New()
	admin := uuid.New()
	testutil.SeedMember(t, h.dbc.Ctx, h.dbc.Tx, ws.ID, editor, types.RoleEditor)
	testutil.SeedMember(t, h.dbc.Ctx, h.dbc.Tx, ws.ID, admin, types.RoleAdmin)
	target := uuid.New()

	// Editors cannot grow the workspace.
	requested := h.requested(t, "workspace_members.add.requested", ws.ID.String(), editor,
		map[string]any{"userId": target.String(), "role": types.RoleViewer})
	if err := h.run(t, requested); err != nil {
		t.Fatalf("Execute(editor): %v", err)
	}
	if len(h.dispatcher.sent) != 0 {
		t.Fatal("editor membership command must be rejected")
	}

	// Admins can.
	requested = h.requested(t, "workspace_members.add.requested", ws.ID.String(), admin,
		map[string]any{"userId": target.String(), "role": types.RoleViewer})
	if err := h.run(t, requested); err != nil {
		t.Fatalf("Execute(admin): %v", err)
	}
	if len(h.dispatcher.sent) != 1 || h.dispatcher.sent[0].Type != "workspace_members.add.validated" {
		t.Fatalf("admin membership command should validate, got %+v", h.dispatcher.sent)
	}
}

func TestValidatorSkipsCheckWithoutWorkspace(t *testing.T) {
	h := newValidatorHarness(t)
	user := uuid.New()

	// A personal entity has no workspace; tenant scoping in the repos
	// is the guard.
	requested := h.requested(t, "entities.create.requested", uuid.New().String(), user,
		map[string]any{"title": "Personal"})
	if err := h.run(t, requested); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(h.dispatcher.sent) != 1 || h.dispatcher.sent[0].Type != "entities.create.validated" {
		t.Fatalf("expected validated dispatch, got %+v", h.dispatcher.sent)
	}
}
