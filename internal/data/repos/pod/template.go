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

type TemplateRepo interface {
	Create(dbc dbctx.Context, tpl *types.Template, correlationID string) (*types.Template, error)
	Update(dbc dbctx.Context, id, userID uuid.UUID, updates map[string]any, correlationID string) (*types.Template, error)
	Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Template, error)
}

type templateRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	emitter CompletedEmitter
}

func NewTemplateRepo(db *gorm.DB, baseLog *logger.Logger, emitter CompletedEmitter) TemplateRepo {
	return &templateRepo{
		db:      db,
		log:     baseLog.With("repo", "TemplateRepo"),
		emitter: emitter,
	}
}

func (r *templateRepo) Create(dbc dbctx.Context, tpl *types.Template, correlationID string) (*types.Template, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if tpl.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: template requires a user id", pkgerrors.ErrValidation)
	}
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(tpl).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "create", tpl, correlationID); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (r *templateRepo) Update(dbc dbctx.Context, id, userID uuid.UUID, updates map[string]any, correlationID string) (*types.Template, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates["updated_at"] = time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Template{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: template %s", pkgerrors.ErrNotFound, id)
	}
	var tpl types.Template
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&tpl).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "update", &tpl, correlationID); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepo) Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Template{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: template %s", pkgerrors.ErrNotFound, id)
	}
	return r.emitCompleted(dbc, "delete", &types.Template{ID: id, UserID: userID}, correlationID)
}

func (r *templateRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Template, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Template
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *templateRepo) emitCompleted(dbc dbctx.Context, action string, tpl *types.Template, correlationID string) error {
	name := events.Name{Family: events.FamilyTemplates, Action: action, Phase: events.PhaseCompleted}
	return r.emitter.EmitCompleted(dbc, name, "template", tpl.ID.String(), tpl.UserID, map[string]any{"id": tpl.ID.String()}, correlationID)
}
