package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/Synap-core/backend-sub006/internal/domain"
)

func SeedWorkspace(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) *types.Workspace {
	tb.Helper()
	ws := &types.Workspace{
		ID:          uuid.New(),
		Name:        "workspace",
		OwnerUserID: ownerID,
		Settings:    datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(ws).Error; err != nil {
		tb.Fatalf("seed workspace: %v", err)
	}
	return ws
}

func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, workspaceID, userID uuid.UUID, role string) *types.WorkspaceMember {
	tb.Helper()
	m := &types.WorkspaceMember{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

func SeedEntity(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, workspaceID *uuid.UUID) *types.Entity {
	tb.Helper()
	e := &types.Entity{
		ID:          uuid.New(),
		UserID:      userID,
		WorkspaceID: workspaceID,
		Title:       "entity",
		Metadata:    datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed entity: %v", err)
	}
	return e
}

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, workspaceID uuid.UUID) *types.Project {
	tb.Helper()
	p := &types.Project{
		ID:          uuid.New(),
		UserID:      userID,
		WorkspaceID: workspaceID,
		Name:        "project",
		Status:      "active",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedTask(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, userID uuid.UUID) *types.Task {
	tb.Helper()
	task := &types.Task{
		ID:      uuid.New(),
		Name:    name,
		EventID: uuid.New(),
		UserID:  userID,
		Payload: datatypes.JSON([]byte(`{}`)),
		Status:  types.TaskQueued,
	}
	if err := tx.WithContext(ctx).Create(task).Error; err != nil {
		tb.Fatalf("seed task: %v", err)
	}
	return task
}
