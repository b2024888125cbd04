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

type APIKeyRepo interface {
	Create(dbc dbctx.Context, key *types.APIKey, correlationID string) (*types.APIKey, error)
	Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error
	GetByPrefix(dbc dbctx.Context, prefix string) ([]*types.APIKey, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.APIKey, error)
	TouchLastUsed(dbc dbctx.Context, id uuid.UUID) error
}

type apiKeyRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	emitter CompletedEmitter
}

func NewAPIKeyRepo(db *gorm.DB, baseLog *logger.Logger, emitter CompletedEmitter) APIKeyRepo {
	return &apiKeyRepo{
		db:      db,
		log:     baseLog.With("repo", "APIKeyRepo"),
		emitter: emitter,
	}
}

func (r *apiKeyRepo) Create(dbc dbctx.Context, key *types.APIKey, correlationID string) (*types.APIKey, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key.UserID == uuid.Nil || key.KeyHash == "" {
		return nil, fmt.Errorf("%w: api key requires user id and hash", pkgerrors.ErrValidation)
	}
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(key).Error; err != nil {
		return nil, err
	}
	name := events.Name{Family: events.FamilyAPIKeys, Action: "create", Phase: events.PhaseCompleted}
	data := map[string]any{"id": key.ID.String(), "name": key.Name, "prefix": key.KeyPrefix}
	if err := r.emitter.EmitCompleted(dbc, name, "api_key", key.ID.String(), key.UserID, data, correlationID); err != nil {
		return nil, err
	}
	return key, nil
}

func (r *apiKeyRepo) Delete(dbc dbctx.Context, id, userID uuid.UUID, correlationID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.APIKey{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: api key %s", pkgerrors.ErrNotFound, id)
	}
	name := events.Name{Family: events.FamilyAPIKeys, Action: "delete", Phase: events.PhaseCompleted}
	return r.emitter.EmitCompleted(dbc, name, "api_key", id.String(), userID, map[string]any{"id": id.String()}, correlationID)
}

// GetByPrefix narrows candidates before the bcrypt comparison; the prefix is
// not a credential by itself.
func (r *apiKeyRepo) GetByPrefix(dbc dbctx.Context, prefix string) ([]*types.APIKey, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.APIKey
	if prefix == "" {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("key_prefix = ?", prefix).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *apiKeyRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.APIKey, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.APIKey
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

func (r *apiKeyRepo) TouchLastUsed(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", now).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
