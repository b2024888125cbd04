package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	eventsrepo "github.com/Synap-core/backend-sub006/internal/data/repos/events"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	"github.com/Synap-core/backend-sub006/internal/data/repos/testutil"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/policy"
)

var _ podrepo.CompletedEmitter = (*Gateway)(nil)

type fakeDispatcher struct {
	sent []*types.Event
	err  error
}

func (f *fakeDispatcher) Send(dbc dbctx.Context, event *types.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, event)
	return nil
}

type stubSettings struct {
	overrides map[string]bool
	err       error
}

func (s *stubSettings) ValidationOverrides(ctx context.Context, workspaceID uuid.UUID) (map[string]bool, error) {
	return s.overrides, s.err
}

func metadataOf(t *testing.T, event *types.Event) map[string]any {
	t.Helper()
	var meta map[string]any
	if len(event.Metadata) > 0 {
		if err := json.Unmarshal(event.Metadata, &meta); err != nil {
			t.Fatalf("decode metadata: %v", err)
		}
	}
	return meta
}

func TestEmitRequestEventFastPath(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	base := testutil.Logger(t)
	logRepo := eventsrepo.NewEventLogRepo(db, base)
	dispatcher := &fakeDispatcher{}
	wsID := uuid.New()
	settings := &stubSettings{overrides: map[string]bool{"entity": false}}
	gw := NewGateway(logRepo, dispatcher, policy.NewService(base, settings, policy.BuiltinDefaults()), nil, base)

	userID := uuid.New()
	err := gw.EmitRequestEvent(dbc, Input{
		Type:          "entities.create.requested",
		SubjectID:     "e1",
		SubjectType:   "entity",
		Data:          map[string]any{"title": "Test"},
		UserID:        userID,
		WorkspaceID:   &wsID,
		UserRole:      "editor",
		CorrelationID: "corr-fast",
	})
	if err != nil {
		t.Fatalf("EmitRequestEvent: %v", err)
	}

	logged, err := logRepo.GetByCorrelation(dbc, "corr-fast")
	if err != nil {
		t.Fatalf("GetByCorrelation: %v", err)
	}
	if len(logged) != 1 {
		t.Fatalf("expected exactly one appended event, got %d", len(logged))
	}
	if logged[0].Type != "entities.create.validated" {
		t.Fatalf("fast path appended %q", logged[0].Type)
	}
	meta := metadataOf(t, logged[0])
	if meta["fastPath"] != true {
		t.Fatalf("fast path not tagged: %v", meta)
	}
	if meta["policySource"] != policy.SourceWorkspaceConfig {
		t.Fatalf("policy source missing: %v", meta)
	}

	if len(dispatcher.sent) != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", len(dispatcher.sent))
	}
	if dispatcher.sent[0].Type != "entities.create.validated" {
		t.Fatalf("dispatched under %q", dispatcher.sent[0].Type)
	}
	if dispatcher.sent[0].ID != logged[0].ID {
		t.Fatal("dispatched event is not the appended event")
	}
}

func TestEmitRequestEventStandardPath(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	base := testutil.Logger(t)
	logRepo := eventsrepo.NewEventLogRepo(db, base)
	dispatcher := &fakeDispatcher{}
	wsID := uuid.New()
	settings := &stubSettings{overrides: map[string]bool{"entity": true}}
	gw := NewGateway(logRepo, dispatcher, policy.NewService(base, settings, policy.BuiltinDefaults()), nil, base)

	err := gw.EmitRequestEvent(dbc, Input{
		Type:          "entities.create.requested",
		SubjectID:     "e1",
		SubjectType:   "entity",
		Data:          map[string]any{"title": "Test"},
		UserID:        uuid.New(),
		WorkspaceID:   &wsID,
		UserRole:      "editor",
		CorrelationID: "corr-std",
	})
	if err != nil {
		t.Fatalf("EmitRequestEvent: %v", err)
	}

	logged, err := logRepo.GetByCorrelation(dbc, "corr-std")
	if err != nil {
		t.Fatalf("GetByCorrelation: %v", err)
	}
	if len(logged) != 1 || logged[0].Type != "entities.create.requested" {
		t.Fatalf("standard path should append the requested type, got %+v", logged)
	}
	meta := metadataOf(t, logged[0])
	if _, tagged := meta["fastPath"]; tagged {
		t.Fatalf("requested event must not carry fastPath: %v", meta)
	}
	if meta["policyReason"] == nil {
		t.Fatalf("policy reason missing: %v", meta)
	}
	if len(dispatcher.sent) != 1 || dispatcher.sent[0].Type != "entities.create.requested" {
		t.Fatalf("expected one dispatch under requested type, got %+v", dispatcher.sent)
	}
}

func TestEmitRequestEventAbortsBeforeDispatch(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	base := testutil.Logger(t)
	logRepo := eventsrepo.NewEventLogRepo(db, base)
	dispatcher := &fakeDispatcher{}
	wsID := uuid.New()

	// Policy store failure aborts the whole emission: no append, no
	// dispatch, never a silent fast path.
	storeErr := errors.New("settings store down")
	gw := NewGateway(logRepo, dispatcher, policy.NewService(base, &stubSettings{err: storeErr}, policy.BuiltinDefaults()), nil, base)
	before, err := logRepo.CountAll(dbc)
	if err != nil {
		t.Fatalf("CountAll: %v", err)
	}
	err = gw.EmitRequestEvent(dbc, Input{
		Type:        "entities.create.requested",
		SubjectID:   "e1",
		SubjectType: "entity",
		Data:        map[string]any{"title": "Test"},
		UserID:      uuid.New(),
		WorkspaceID: &wsID,
		UserRole:    "editor",
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	after, err := logRepo.CountAll(dbc)
	if err != nil {
		t.Fatalf("CountAll: %v", err)
	}
	if before != after || len(dispatcher.sent) != 0 {
		t.Fatal("aborted emission must leave no append and no dispatch")
	}

	// Invalid input fails synchronously before policy or append.
	gw = NewGateway(logRepo, dispatcher, policy.NewService(base, nil, policy.BuiltinDefaults()), nil, base)
	cases := []Input{
		{Type: "entities.create.validated", SubjectID: "e1", SubjectType: "entity", Data: map[string]any{"title": "x"}, UserID: uuid.New()},
		{Type: "entities.bogus", SubjectID: "e1", SubjectType: "entity", UserID: uuid.New()},
		{Type: "entities.create.requested", SubjectID: "e1", SubjectType: "entity", Data: map[string]any{"title": "x"}},
	}
	for i, in := range cases {
		if err := gw.EmitRequestEvent(dbc, in); !errors.Is(err, pkgerrors.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if len(dispatcher.sent) != 0 {
		t.Fatal("invalid input must not dispatch")
	}
}

func TestEmitValidatedAndReject(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	base := testutil.Logger(t)
	logRepo := eventsrepo.NewEventLogRepo(db, base)
	dispatcher := &fakeDispatcher{}
	gw := NewGateway(logRepo, dispatcher, policy.NewService(base, nil, policy.BuiltinDefaults()), nil, base)

	requested, err := events.New(events.Input{
		Type:          "entities.update.requested",
		SubjectID:     "e9",
		SubjectType:   "entity",
		Data:          map[string]any{"title": "Next"},
		UserID:        uuid.New(),
		CorrelationID: "corr-val",
	})
	if err != nil {
		t.Fatalf("build requested event: %v", err)
	}
	if err := logRepo.Append(dbc, requested); err != nil {
		t.Fatalf("append requested: %v", err)
	}

	if err := gw.EmitValidated(dbc, requested, nil); err != nil {
		t.Fatalf("EmitValidated: %v", err)
	}
	if len(dispatcher.sent) != 1 || dispatcher.sent[0].Type != "entities.update.validated" {
		t.Fatalf("expected validated dispatch, got %+v", dispatcher.sent)
	}
	validated := dispatcher.sent[0]
	if validated.CorrelationID != "corr-val" || validated.SubjectID != "e9" || validated.UserID != requested.UserID {
		t.Fatalf("validated event lost provenance: %+v", validated)
	}
	meta := metadataOf(t, validated)
	if meta["validatedFrom"] != requested.ID.String() {
		t.Fatalf("validatedFrom missing: %v", meta)
	}

	// Validating a non-requested event is a programming error.
	if err := gw.EmitValidated(dbc, validated, nil); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := gw.RejectRequested(dbc, requested, "editor lacks entity.update"); err != nil {
		t.Fatalf("RejectRequested: %v", err)
	}
	logged, err := logRepo.GetByCorrelation(dbc, "corr-val")
	if err != nil {
		t.Fatalf("GetByCorrelation: %v", err)
	}
	var rejection *types.Event
	for _, e := range logged {
		if e.Type == events.TypeValidationRejected {
			rejection = e
		}
	}
	if rejection == nil {
		t.Fatalf("rejection not logged: %+v", logged)
	}
	// Rejections terminate the flow: still only the one validated dispatch.
	if len(dispatcher.sent) != 1 {
		t.Fatalf("rejection must not dispatch, got %d sends", len(dispatcher.sent))
	}
}

func TestEmitCompletedAppendsWithoutDispatch(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	base := testutil.Logger(t)
	logRepo := eventsrepo.NewEventLogRepo(db, base)
	dispatcher := &fakeDispatcher{}
	gw := NewGateway(logRepo, dispatcher, policy.NewService(base, nil, policy.BuiltinDefaults()), nil, base)

	name := events.Name{Family: events.FamilyEntities, Action: "update", Phase: events.PhaseCompleted}
	userID := uuid.New()
	if err := gw.EmitCompleted(dbc, name, "entity", "e3", userID, map[string]any{"id": "e3"}, "corr-done"); err != nil {
		t.Fatalf("EmitCompleted: %v", err)
	}

	logged, err := logRepo.GetByCorrelation(dbc, "corr-done")
	if err != nil {
		t.Fatalf("GetByCorrelation: %v", err)
	}
	if len(logged) != 1 || logged[0].Type != "entities.update.completed" {
		t.Fatalf("expected one completed event, got %+v", logged)
	}
	if len(dispatcher.sent) != 0 {
		t.Fatal("completed events are audit records, not dispatches")
	}

	badName := name.WithPhase(events.PhaseRequested)
	if err := gw.EmitCompleted(dbc, badName, "entity", "e3", userID, nil, ""); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("expected validation error for non-completed phase, got %v", err)
	}
}
