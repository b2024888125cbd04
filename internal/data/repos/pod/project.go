package pod

import (
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

type ProjectRepo interface {
	Create(dbc dbctx.Context, project *types.Project, correlationID string) (*types.Project, error)
	Update(dbc dbctx.Context, id, userID uuid.UUID, updates map[string]any, correlationID string) (*types.Project, error)
	Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error
	GetByID(dbc dbctx.Context, id, userID uuid.UUID) (*types.Project, error)
	ListByWorkspace(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.Project, error)
}

type projectRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	emitter CompletedEmitter
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger, emitter CompletedEmitter) ProjectRepo {
	return &projectRepo{
		db:      db,
		log:     baseLog.With("repo", "ProjectRepo"),
		emitter: emitter,
	}
}

func (r *projectRepo) Create(dbc dbctx.Context, project *types.Project, correlationID string) (*types.Project, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if project.UserID == uuid.Nil || project.WorkspaceID == uuid.Nil {
		return nil, fmt.Errorf("%w: project requires user and workspace ids", pkgerrors.ErrValidation)
	}
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(project).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "create", project, correlationID); err != nil {
		return nil, err
	}
	return project, nil
}

func (r *projectRepo) Update(dbc dbctx.Context, id, userID uuid.UUID, updates map[string]any, correlationID string) (*types.Project, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates["updated_at"] = time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Project{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: project %s", pkgerrors.ErrNotFound, id)
	}
	var project types.Project
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&project).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "update", &project, correlationID); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: project %s", pkgerrors.ErrNotFound, id)
	}
	return r.emitCompleted(dbc, "delete", &types.Project{ID: id, UserID: userID}, correlationID)
}

func (r *projectRepo) GetByID(dbc dbctx.Context, id, userID uuid.UUID) (*types.Project, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var project types.Project
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&project).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: project %s", pkgerrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) ListByWorkspace(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.Project, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Project
	if workspaceID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepo) emitCompleted(dbc dbctx.Context, action string, project *types.Project, correlationID string) error {
	name := events.Name{Family: events.FamilyProjects, Action: action, Phase: events.PhaseCompleted}
	data := map[string]any{"id": project.ID.String()}
	if project.Name != "" {
		data["name"] = project.Name
	}
	return r.emitter.EmitCompleted(dbc, name, "project", project.ID.String(), project.UserID, data, correlationID)
}
