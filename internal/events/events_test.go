package events

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
)

func TestParseName(t *testing.T) {
	n, err := ParseName("entities.create.requested")
	if err != nil {
		t.Fatalf("ParseName: %v", err)
	}
	if n.Family != "entities" || n.Action != "create" || n.Phase != PhaseRequested {
		t.Fatalf("ParseName: unexpected result %+v", n)
	}

	if got := n.WithPhase(PhaseValidated).String(); got != "entities.create.validated" {
		t.Fatalf("WithPhase: got %q", got)
	}

	for _, bad := range []string{"", "entities", "entities.create", "entities.create.nope", "a..completed", "entities.create.requested.extra"} {
		if _, err := ParseName(bad); !errors.Is(err, pkgerrors.ErrValidation) {
			t.Fatalf("ParseName(%q): expected validation error, got %v", bad, err)
		}
	}
}

func TestRegistry(t *testing.T) {
	valid := []string{
		"entities.create.requested",
		"entities.update.validated",
		"entities.delete.completed",
		"workspace_members.add.validated",
		"workspace_members.updateRole.completed",
		"system.validation.rejected",
	}
	for _, v := range valid {
		if !IsValidType(v) {
			t.Fatalf("IsValidType(%q): expected true", v)
		}
	}

	invalid := []string{
		"entities.frobnicate.requested",
		"entity.create.requested", // singular family is not a type
		"workspace_members.create.requested",
		"api_keys.update.requested", // api keys are create/delete only
		"garbage",
	}
	for _, v := range invalid {
		if IsValidType(v) {
			t.Fatalf("IsValidType(%q): expected false", v)
		}
	}
}

func TestSubjectTypeFor(t *testing.T) {
	st, ok := SubjectTypeFor("entities")
	if !ok || st != "entity" {
		t.Fatalf("SubjectTypeFor(entities): got %q, %v", st, ok)
	}
	if _, ok := SubjectTypeFor("unknown"); ok {
		t.Fatalf("SubjectTypeFor(unknown): expected false")
	}
}

func TestNewEnvelope(t *testing.T) {
	userID := uuid.New()

	ev, err := New(Input{
		Type:        "entities.create.requested",
		SubjectID:   "e1",
		SubjectType: "entity",
		Data:        map[string]any{"title": "Test"},
		UserID:      userID,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ev.ID == uuid.Nil {
		t.Fatalf("New: expected generated id")
	}
	if ev.Source != "api" {
		t.Fatalf("New: expected default source api, got %q", ev.Source)
	}
	if ev.CreatedAt.IsZero() {
		t.Fatalf("New: expected timestamp")
	}

	// Missing actor is a validation error, never defaulted.
	if _, err := New(Input{Type: "entities.create.requested", SubjectID: "e1", SubjectType: "entity", Data: map[string]any{"title": "x"}}); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("New without user: expected validation error, got %v", err)
	}

	// Unregistered type.
	if _, err := New(Input{Type: "entities.zap.requested", SubjectID: "e1", SubjectType: "entity", UserID: userID}); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("New with bad type: expected validation error, got %v", err)
	}

	// Registered schema violated.
	if _, err := New(Input{Type: "entities.create.requested", SubjectID: "e1", SubjectType: "entity", Data: map[string]any{}, UserID: userID}); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("New with missing title: expected validation error, got %v", err)
	}

	// Unknown source.
	if _, err := New(Input{Type: "entities.delete.requested", SubjectID: "e1", SubjectType: "entity", UserID: userID, Source: "cli"}); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("New with bad source: expected validation error, got %v", err)
	}
}
