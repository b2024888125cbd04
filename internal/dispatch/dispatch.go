// Package dispatch delivers appended events to family executors through
// a durable task queue. Delivery is at-least-once: executors run their
// mutations inside memoized steps so redelivery converges instead of
// double-applying.
package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	tasksrepo "github.com/Synap-core/backend-sub006/internal/data/repos/tasks"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// Dispatcher hands an appended event to the async layer. The event's
// type doubles as the routing name.
type Dispatcher interface {
	Send(dbc dbctx.Context, event *types.Event) error
}

// QueueDispatcher enqueues one task row per event. When dbc carries a
// transaction the enqueue shares it with the log append, so an emission
// is either fully durable or fully absent.
type QueueDispatcher struct {
	tasks tasksrepo.TaskRepo
	log   *logger.Logger
}

func NewQueueDispatcher(tasks tasksrepo.TaskRepo, baseLog *logger.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		tasks: tasks,
		log:   baseLog.With("component", "queue_dispatcher"),
	}
}

func (d *QueueDispatcher) Send(dbc dbctx.Context, event *types.Event) error {
	if event == nil || event.ID == uuid.Nil {
		return fmt.Errorf("%w: dispatch requires a persisted event", pkgerrors.ErrValidation)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	task := &types.Task{
		ID:      uuid.New(),
		Name:    event.Type,
		EventID: event.ID,
		UserID:  event.UserID,
		Payload: datatypes.JSON(payload),
		Status:  types.TaskQueued,
	}
	if err := d.tasks.Enqueue(dbc, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", event.Type, err)
	}
	d.log.Debug("dispatched", "task_id", task.ID, "name", event.Type, "event_id", event.ID)
	return nil
}
