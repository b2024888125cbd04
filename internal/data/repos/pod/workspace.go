package pod

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

type WorkspaceRepo interface {
	Create(dbc dbctx.Context, ws *types.Workspace, correlationID string) (*types.Workspace, error)
	Update(dbc dbctx.Context, id, ownerID uuid.UUID, updates map[string]any, correlationID string) (*types.Workspace, error)
	Delete(dbc dbctx.Context, id, ownerID uuid.UUID, correlationID string) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Workspace, error)
}

type workspaceRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	emitter CompletedEmitter
}

func NewWorkspaceRepo(db *gorm.DB, baseLog *logger.Logger, emitter CompletedEmitter) WorkspaceRepo {
	return &workspaceRepo{
		db:      db,
		log:     baseLog.With("repo", "WorkspaceRepo"),
		emitter: emitter,
	}
}

func (r *workspaceRepo) Create(dbc dbctx.Context, ws *types.Workspace, correlationID string) (*types.Workspace, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ws.OwnerUserID == uuid.Nil {
		return nil, fmt.Errorf("%w: workspace requires an owner", pkgerrors.ErrValidation)
	}
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(ws).Error; err != nil {
		return nil, err
	}
	name := events.Name{Family: events.FamilyWorkspaces, Action: "create", Phase: events.PhaseCompleted}
	if err := r.emitter.EmitCompleted(dbc, name, "workspace", ws.ID.String(), ws.OwnerUserID, map[string]any{"id": ws.ID.String(), "name": ws.Name}, correlationID); err != nil {
		return nil, err
	}
	return ws, nil
}

func (r *workspaceRepo) Update(dbc dbctx.Context, id, ownerID uuid.UUID, updates map[string]any, correlationID string) (*types.Workspace, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates["updated_at"] = time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Workspace{}).
		Where("id = ? AND owner_user_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: workspace %s", pkgerrors.ErrNotFound, id)
	}
	var ws types.Workspace
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&ws).Error; err != nil {
		return nil, err
	}
	name := events.Name{Family: events.FamilyWorkspaces, Action: "update", Phase: events.PhaseCompleted}
	if err := r.emitter.EmitCompleted(dbc, name, "workspace", ws.ID.String(), ownerID, map[string]any{"id": ws.ID.String()}, correlationID); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *workspaceRepo) Delete(dbc dbctx.Context, id, ownerID uuid.UUID, correlationID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerID).
		Delete(&types.Workspace{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: workspace %s", pkgerrors.ErrNotFound, id)
	}
	name := events.Name{Family: events.FamilyWorkspaces, Action: "delete", Phase: events.PhaseCompleted}
	return r.emitter.EmitCompleted(dbc, name, "workspace", id.String(), ownerID, map[string]any{"id": id.String()}, correlationID)
}

func (r *workspaceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Workspace, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ws types.Workspace
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: workspace %s", pkgerrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}
