package policy

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Synap-core/backend-sub006/internal/data/repos/testutil"
	types "github.com/Synap-core/backend-sub006/internal/domain"
)

type stubSettings struct {
	overrides map[string]bool
	err       error
}

func (s *stubSettings) ValidationOverrides(ctx context.Context, workspaceID uuid.UUID) (map[string]bool, error) {
	return s.overrides, s.err
}

func TestEvaluateRuleOrder(t *testing.T) {
	wsID := uuid.New()
	settings := &stubSettings{overrides: map[string]bool{
		"entity":        true,
		"entity.delete": false,
	}}
	svc := NewService(testutil.Logger(t), settings, BuiltinDefaults())
	ctx := context.Background()

	// Admin and owner skip everything, including workspace config.
	for _, role := range []string{"admin", "owner"} {
		res, err := svc.Evaluate(ctx, Input{Operation: "create", SubjectType: "entity", WorkspaceID: &wsID, UserRole: role})
		if err != nil {
			t.Fatalf("Evaluate(%s): %v", role, err)
		}
		if res.RequiresValidation || res.Source != SourceRoleOverride {
			t.Fatalf("Evaluate(%s): got %+v", role, res)
		}
	}

	// Workspace config fires for lower roles; the operation-qualified
	// key beats the subject-type key.
	res, err := svc.Evaluate(ctx, Input{Operation: "create", SubjectType: "entity", WorkspaceID: &wsID, UserRole: "editor"})
	if err != nil {
		t.Fatalf("Evaluate(editor create): %v", err)
	}
	if !res.RequiresValidation || res.Source != SourceWorkspaceConfig {
		t.Fatalf("Evaluate(editor create): got %+v", res)
	}
	res, err = svc.Evaluate(ctx, Input{Operation: "delete", SubjectType: "entity", WorkspaceID: &wsID, UserRole: "editor"})
	if err != nil {
		t.Fatalf("Evaluate(editor delete): %v", err)
	}
	if res.RequiresValidation || res.Source != SourceWorkspaceConfig {
		t.Fatalf("Evaluate(editor delete): got %+v", res)
	}

	// No workspace in scope: subject-type default applies.
	res, err = svc.Evaluate(ctx, Input{Operation: "create", SubjectType: "api_key", UserRole: "editor"})
	if err != nil {
		t.Fatalf("Evaluate(api_key): %v", err)
	}
	if !res.RequiresValidation || res.Source != SourceSubjectDefault {
		t.Fatalf("Evaluate(api_key): got %+v", res)
	}
	res, err = svc.Evaluate(ctx, Input{Operation: "create", SubjectType: "template", UserRole: "viewer"})
	if err != nil {
		t.Fatalf("Evaluate(template): %v", err)
	}
	if res.RequiresValidation {
		t.Fatalf("Evaluate(template): got %+v", res)
	}

	// Unknown subject types fall back to requiring validation.
	res, err = svc.Evaluate(ctx, Input{Operation: "create", SubjectType: "mystery", UserRole: "editor"})
	if err != nil {
		t.Fatalf("Evaluate(mystery): %v", err)
	}
	if !res.RequiresValidation {
		t.Fatalf("Evaluate(mystery): got %+v", res)
	}
}

func TestEvaluateFailsClosedOnStoreError(t *testing.T) {
	wsID := uuid.New()
	storeErr := errors.New("connection refused")
	svc := NewService(testutil.Logger(t), &stubSettings{err: storeErr}, BuiltinDefaults())

	_, err := svc.Evaluate(context.Background(), Input{Operation: "create", SubjectType: "entity", WorkspaceID: &wsID, UserRole: "editor"})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestWorkspaceSettingsFromDB(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	raw, err := json.Marshal(map[string]any{
		"validation": map[string]bool{"entity": true},
	})
	if err != nil {
		t.Fatalf("marshal settings: %v", err)
	}
	ws := &types.Workspace{
		ID:          uuid.New(),
		OwnerUserID: uuid.New(),
		Name:        "ws",
		Settings:    datatypes.JSON(raw),
	}
	if err := tx.WithContext(ctx).Create(ws).Error; err != nil {
		t.Fatalf("seed workspace: %v", err)
	}

	store := NewWorkspaceSettings(tx)
	overrides, err := store.ValidationOverrides(ctx, ws.ID)
	if err != nil {
		t.Fatalf("ValidationOverrides: %v", err)
	}
	if required, ok := overrides["entity"]; !ok || !required {
		t.Fatalf("expected entity override, got %v", overrides)
	}

	if _, err := store.ValidationOverrides(ctx, uuid.New()); err == nil {
		t.Fatal("expected error for missing workspace")
	}
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := []byte("fallback: true\nsubjects:\n  entity: false\n  api_key: true\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	d, err := LoadDefaults(path)
	if err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	if d.For("entity") {
		t.Fatal("entity should not require validation")
	}
	if !d.For("api_key") || !d.For("unlisted") {
		t.Fatal("api_key and unlisted subjects should require validation")
	}

	if _, err := LoadDefaults(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
