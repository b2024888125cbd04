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

type MessageRepo interface {
	Create(dbc dbctx.Context, msg *types.Message, correlationID string) (*types.Message, error)
	Update(dbc dbctx.Context, id, userID uuid.UUID, updates map[string]any, correlationID string) (*types.Message, error)
	Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error
	ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.Message, error)
}

type messageRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	emitter CompletedEmitter
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger, emitter CompletedEmitter) MessageRepo {
	return &messageRepo{
		db:      db,
		log:     baseLog.With("repo", "MessageRepo"),
		emitter: emitter,
	}
}

func (r *messageRepo) Create(dbc dbctx.Context, msg *types.Message, correlationID string) (*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if msg.UserID == uuid.Nil || msg.Body == "" {
		return nil, fmt.Errorf("%w: message requires user id and body", pkgerrors.ErrValidation)
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "create", msg, correlationID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepo) Update(dbc dbctx.Context, id, userID uuid.UUID, updates map[string]any, correlationID string) (*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates["updated_at"] = time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: message %s", pkgerrors.ErrNotFound, id)
	}
	var msg types.Message
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&msg).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "update", &msg, correlationID); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: message %s", pkgerrors.ErrNotFound, id)
	}
	return r.emitCompleted(dbc, "delete", &types.Message{ID: id, UserID: userID}, correlationID)
}

func (r *messageRepo) ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Message
	if threadID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) emitCompleted(dbc dbctx.Context, action string, msg *types.Message, correlationID string) error {
	name := events.Name{Family: events.FamilyMessages, Action: action, Phase: events.PhaseCompleted}
	return r.emitter.EmitCompleted(dbc, name, "message", msg.ID.String(), msg.UserID, map[string]any{"id": msg.ID.String()}, correlationID)
}
