package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Synap-core/backend-sub006/internal/data/repos/testutil"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
)

func TestEventLogAppendOnly(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewEventLogRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	userID := uuid.New()
	ev := &types.Event{
		ID:            uuid.New(),
		Type:          "entities.create.validated",
		SubjectID:     "e1",
		SubjectType:   "entity",
		Data:          datatypes.JSON([]byte(`{"title":"Test"}`)),
		UserID:        userID,
		Source:        "api",
		CorrelationID: "corr-1",
	}
	if err := repo.Append(dbc, ev); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Re-appending the same id must be treated as the same immutable record.
	dup := *ev
	dup.Type = "entities.update.validated"
	if err := repo.Append(dbc, &dup); err != nil {
		t.Fatalf("Append duplicate: %v", err)
	}
	got, err := repo.GetByID(dbc, ev.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Type != "entities.create.validated" {
		t.Fatalf("duplicate append mutated record: %q", got.Type)
	}

	count, err := repo.CountAll(dbc)
	if err != nil {
		t.Fatalf("CountAll: %v", err)
	}
	if count != 1 {
		t.Fatalf("CountAll: expected 1, got %d", count)
	}
}

func TestEventLogReads(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewEventLogRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	userID := uuid.New()
	for _, typ := range []string{"entities.create.requested", "entities.create.validated", "entities.create.completed"} {
		ev := &types.Event{
			ID:            uuid.New(),
			Type:          typ,
			SubjectID:     "subj-reads",
			SubjectType:   "entity",
			UserID:        userID,
			Source:        "api",
			CorrelationID: "corr-reads",
		}
		if err := repo.Append(dbc, ev); err != nil {
			t.Fatalf("Append %s: %v", typ, err)
		}
	}

	bySubject, err := repo.GetBySubject(dbc, "subj-reads")
	if err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}
	if len(bySubject) != 3 {
		t.Fatalf("GetBySubject: expected 3, got %d", len(bySubject))
	}

	byCorr, err := repo.GetByCorrelation(dbc, "corr-reads")
	if err != nil {
		t.Fatalf("GetByCorrelation: %v", err)
	}
	if len(byCorr) != 3 {
		t.Fatalf("GetByCorrelation: expected 3, got %d", len(byCorr))
	}

	byUser, err := repo.GetByUserID(dbc, userID, 2)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("GetByUserID: expected limit 2, got %d", len(byUser))
	}
}
