package events

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// EventLogRepo is the append-only event store. There are deliberately no
// update or delete methods: the log is the source of truth and projections
// are rebuilt by replaying it.
type EventLogRepo interface {
	Append(dbc dbctx.Context, event *types.Event) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Event, error)
	GetBySubject(dbc dbctx.Context, subjectID string) ([]*types.Event, error)
	GetByCorrelation(dbc dbctx.Context, correlationID string) ([]*types.Event, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Event, error)
	CountAll(dbc dbctx.Context) (int64, error)
}

type eventLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventLogRepo(db *gorm.DB, baseLog *logger.Logger) EventLogRepo {
	return &eventLogRepo{
		db:  db,
		log: baseLog.With("repo", "EventLogRepo"),
	}
}

// Append inserts the envelope. Re-appending an existing id is a no-op
// (ON CONFLICT DO NOTHING), so redelivered writes converge on the same
// immutable record instead of failing or mutating it.
func (r *eventLogRepo) Append(dbc dbctx.Context, event *types.Event) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if event == nil {
		return fmt.Errorf("%w: nil event", pkgerrors.ErrValidation)
	}
	if event.ID == uuid.Nil || event.UserID == uuid.Nil {
		return fmt.Errorf("%w: event id and user id are required", pkgerrors.ErrValidation)
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(event).Error
}

func (r *eventLogRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Event, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ev types.Event
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&ev).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: event %s", pkgerrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *eventLogRepo) GetBySubject(dbc dbctx.Context, subjectID string) ([]*types.Event, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Event
	if subjectID == "" {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventLogRepo) GetByCorrelation(dbc dbctx.Context, correlationID string) ([]*types.Event, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Event
	if correlationID == "" {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("correlation_id = ?", correlationID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventLogRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Event, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Event
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventLogRepo) CountAll(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Event{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
