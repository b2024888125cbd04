package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/commands"
	eventsrepo "github.com/Synap-core/backend-sub006/internal/data/repos/events"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	"github.com/Synap-core/backend-sub006/internal/data/repos/testutil"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/policy"
)

type recordingDispatcher struct {
	sent []*types.Event
}

func (d *recordingDispatcher) Send(dbc dbctx.Context, event *types.Event) error {
	d.sent = append(d.sent, event)
	return nil
}

type openSettings struct{}

func (openSettings) ValidationOverrides(ctx context.Context, workspaceID uuid.UUID) (map[string]bool, error) {
	return nil, nil
}

type proposalFixture struct {
	svc        ProposalService
	proposals  podrepo.ProposalRepo
	events     eventsrepo.EventLogRepo
	dispatcher *recordingDispatcher
	dbc        dbctx.Context
}

func newProposalFixture(t *testing.T) *proposalFixture {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	base := testutil.Logger(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	logRepo := eventsrepo.NewEventLogRepo(db, base)
	dispatcher := &recordingDispatcher{}
	gateway := commands.NewGateway(logRepo, dispatcher, policy.NewService(base, openSettings{}, policy.BuiltinDefaults()), nil, base)
	proposals := podrepo.NewProposalRepo(db, base)

	return &proposalFixture{
		svc:        NewProposalService(proposals, gateway, base),
		proposals:  proposals,
		events:     logRepo,
		dispatcher: dispatcher,
		dbc:        dbc,
	}
}

func TestProposalSubmitEmitsNothing(t *testing.T) {
	f := newProposalFixture(t)
	userID := uuid.New()
	corr := "corr-" + uuid.NewString()

	p, err := f.svc.Submit(f.dbc, userID, nil, "entity", uuid.NewString(), "entities.update.requested",
		map[string]any{"title": "Proposed"}, corr)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.Status != types.ProposalPending {
		t.Fatalf("status = %q, want %q", p.Status, types.ProposalPending)
	}

	logged, err := f.events.GetByCorrelation(f.dbc, corr)
	if err != nil {
		t.Fatalf("GetByCorrelation: %v", err)
	}
	if len(logged) != 0 {
		t.Fatalf("submit logged %d events, want none", len(logged))
	}
	if len(f.dispatcher.sent) != 0 {
		t.Fatalf("submit dispatched %d events, want none", len(f.dispatcher.sent))
	}
}

func TestProposalSubmitRejectsNonRequestedType(t *testing.T) {
	f := newProposalFixture(t)
	_, err := f.svc.Submit(f.dbc, uuid.New(), nil, "entity", uuid.NewString(), "entities.update.completed", nil, "c1")
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestProposalApproveReleasesDeferredCommand(t *testing.T) {
	f := newProposalFixture(t)
	authorID := uuid.New()
	reviewerID := uuid.New()
	targetID := uuid.NewString()
	corr := "corr-" + uuid.NewString()

	p, err := f.svc.Submit(f.dbc, authorID, nil, "entity", targetID, "entities.update.requested",
		map[string]any{"title": "Proposed"}, corr)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	approved, err := f.svc.Approve(f.dbc, reviewerID, p.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != types.ProposalValidated {
		t.Fatalf("status = %q, want %q", approved.Status, types.ProposalValidated)
	}

	if len(f.dispatcher.sent) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(f.dispatcher.sent))
	}
	released := f.dispatcher.sent[0]
	if released.Type != "entities.update.validated" {
		t.Fatalf("released type = %q, want entities.update.validated", released.Type)
	}
	if released.UserID != authorID {
		t.Fatalf("released actor = %s, want original author %s", released.UserID, authorID)
	}
	if released.SubjectID != targetID || released.CorrelationID != corr {
		t.Fatalf("released subject/correlation = %s/%s, want %s/%s",
			released.SubjectID, released.CorrelationID, targetID, corr)
	}

	var meta map[string]any
	if err := json.Unmarshal(released.Metadata, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta["proposalId"] != p.ID.String() {
		t.Fatalf("metadata proposalId = %v, want %s", meta["proposalId"], p.ID)
	}
	if meta["reviewerId"] != reviewerID.String() {
		t.Fatalf("metadata reviewerId = %v, want %s", meta["reviewerId"], reviewerID)
	}

	logged, err := f.events.GetByCorrelation(f.dbc, corr)
	if err != nil {
		t.Fatalf("GetByCorrelation: %v", err)
	}
	if len(logged) != 1 {
		t.Fatalf("approval logged %d events, want exactly the released one", len(logged))
	}
}

func TestProposalRejectEmitsNothing(t *testing.T) {
	f := newProposalFixture(t)
	corr := "corr-" + uuid.NewString()

	p, err := f.svc.Submit(f.dbc, uuid.New(), nil, "entity", uuid.NewString(), "entities.delete.requested", nil, corr)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rejected, err := f.svc.Reject(f.dbc, uuid.New(), p.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != types.ProposalRejected {
		t.Fatalf("status = %q, want %q", rejected.Status, types.ProposalRejected)
	}

	logged, err := f.events.GetByCorrelation(f.dbc, corr)
	if err != nil {
		t.Fatalf("GetByCorrelation: %v", err)
	}
	if len(logged) != 0 {
		t.Fatalf("reject logged %d events, want none", len(logged))
	}
	if len(f.dispatcher.sent) != 0 {
		t.Fatalf("reject dispatched %d events, want none", len(f.dispatcher.sent))
	}
}
