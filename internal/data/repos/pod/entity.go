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

// EntityRepo mutates the entity projection. Every write is scoped by
// (id, user_id) in the query itself, and every successful write is followed
// by exactly one completed event.
type EntityRepo interface {
	Create(dbc dbctx.Context, entity *types.Entity, correlationID string) (*types.Entity, error)
	Update(dbc dbctx.Context, id, userID uuid.UUID, updates map[string]any, correlationID string) (*types.Entity, error)
	Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error
	GetByID(dbc dbctx.Context, id, userID uuid.UUID) (*types.Entity, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, workspaceID *uuid.UUID) ([]*types.Entity, error)
}

type entityRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	emitter CompletedEmitter
}

func NewEntityRepo(db *gorm.DB, baseLog *logger.Logger, emitter CompletedEmitter) EntityRepo {
	return &entityRepo{
		db:      db,
		log:     baseLog.With("repo", "EntityRepo"),
		emitter: emitter,
	}
}

func (r *entityRepo) Create(dbc dbctx.Context, entity *types.Entity, correlationID string) (*types.Entity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if entity.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: entity requires a user id", pkgerrors.ErrValidation)
	}
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "create", entity, correlationID); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *entityRepo) Update(dbc dbctx.Context, id, userID uuid.UUID, updates map[string]any, correlationID string) (*types.Entity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates["updated_at"] = time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Entity{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Either the row doesn't exist or it belongs to someone else;
		// the two cases are indistinguishable on purpose.
		return nil, fmt.Errorf("%w: entity %s", pkgerrors.ErrNotFound, id)
	}
	var entity types.Entity
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entity).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "update", &entity, correlationID); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *entityRepo) Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Entity{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: entity %s", pkgerrors.ErrNotFound, id)
	}
	return r.emitCompleted(dbc, "delete", &types.Entity{ID: id, UserID: userID}, correlationID)
}

func (r *entityRepo) GetByID(dbc dbctx.Context, id, userID uuid.UUID) (*types.Entity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var entity types.Entity
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entity).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: entity %s", pkgerrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *entityRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, workspaceID *uuid.UUID) ([]*types.Entity, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Entity
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).Where("user_id = ?", userID)
	if workspaceID != nil {
		q = q.Where("workspace_id = ?", *workspaceID)
	}
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityRepo) emitCompleted(dbc dbctx.Context, action string, entity *types.Entity, correlationID string) error {
	name := events.Name{Family: events.FamilyEntities, Action: action, Phase: events.PhaseCompleted}
	data := map[string]any{"id": entity.ID.String()}
	if entity.Title != "" {
		data["title"] = entity.Title
	}
	return r.emitter.EmitCompleted(dbc, name, "entity", entity.ID.String(), entity.UserID, data, correlationID)
}
