package eventflow

import (
	"encoding/json"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// Dispatcher sends events into Temporal instead of the DB task queue.
// The workflow id embeds the event id, so a re-send of the same event
// dedupes on the Temporal side.
type Dispatcher struct {
	tc        temporalsdkclient.Client
	taskQueue string
	log       *logger.Logger
}

func NewDispatcher(tc temporalsdkclient.Client, taskQueue string, baseLog *logger.Logger) *Dispatcher {
	return &Dispatcher{
		tc:        tc,
		taskQueue: taskQueue,
		log:       baseLog.With("component", "temporal_dispatcher"),
	}
}

func (d *Dispatcher) Send(dbc dbctx.Context, event *types.Event) error {
	if event == nil {
		return fmt.Errorf("dispatch requires an event")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	_, err = d.tc.ExecuteWorkflow(dbc.Ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        "event-" + event.ID.String(),
		TaskQueue: d.taskQueue,
	}, WorkflowName, payload)
	if err != nil {
		return fmt.Errorf("start event flow %s: %w", event.Type, err)
	}
	d.log.Debug("event dispatched to temporal", "type", event.Type, "event_id", event.ID)
	return nil
}
