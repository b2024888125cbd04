package tasks

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// TaskStepRepo is the durable step memo behind StepContext.Run. A completed
// (task_id, label) pair is never re-executed on redelivery.
type TaskStepRepo interface {
	GetCompleted(dbc dbctx.Context, taskID uuid.UUID, label string) (*types.TaskStep, error)
	RecordCompleted(dbc dbctx.Context, taskID uuid.UUID, label string, result datatypes.JSON) error
	ListByTask(dbc dbctx.Context, taskID uuid.UUID) ([]*types.TaskStep, error)
}

type taskStepRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskStepRepo(db *gorm.DB, baseLog *logger.Logger) TaskStepRepo {
	return &taskStepRepo{
		db:  db,
		log: baseLog.With("repo", "TaskStepRepo"),
	}
}

// GetCompleted returns nil, nil when the step has not completed yet.
func (r *taskStepRepo) GetCompleted(dbc dbctx.Context, taskID uuid.UUID, label string) (*types.TaskStep, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var step types.TaskStep
	err := transaction.WithContext(dbc.Ctx).
		Where("task_id = ? AND label = ?", taskID, label).
		First(&step).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &step, nil
}

func (r *taskStepRepo) RecordCompleted(dbc dbctx.Context, taskID uuid.UUID, label string, result datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	step := &types.TaskStep{
		ID:          uuid.New(),
		TaskID:      taskID,
		Label:       label,
		Result:      result,
		CompletedAt: time.Now(),
	}
	// A concurrent redelivery may have recorded the step already; the first
	// writer wins and both executions converge.
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "label"}},
			DoNothing: true,
		}).
		Create(step).Error
}

func (r *taskStepRepo) ListByTask(dbc dbctx.Context, taskID uuid.UUID) ([]*types.TaskStep, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TaskStep
	if err := transaction.WithContext(dbc.Ctx).
		Where("task_id = ?", taskID).
		Order("completed_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
