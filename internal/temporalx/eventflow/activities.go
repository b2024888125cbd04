package eventflow

import (
	"context"
	"encoding/json"
	"fmt"

	"go.temporal.io/sdk/temporal"
	"gorm.io/gorm"

	tasksrepo "github.com/Synap-core/backend-sub006/internal/data/repos/tasks"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Steps    tasksrepo.TaskStepRepo
	Registry *dispatch.Registry
}

// Run delivers one event to its executor. Steps are memoized under the
// event id, so activity retries replay completed work instead of
// re-applying it; the same guarantee the queue worker gives.
func (a *Activities) Run(ctx context.Context, payload []byte) error {
	if a == nil || a.DB == nil || a.Steps == nil || a.Registry == nil {
		return fmt.Errorf("eventflow: activity not configured")
	}
	var event types.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return temporal.NewNonRetryableApplicationError("eventflow: undecodable event", PermanentErrorType, err)
	}

	executor, ok := a.Registry.Lookup(event.Type)
	if !ok {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("eventflow: no executor for %s", event.Type), PermanentErrorType, nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	step := dispatch.NewStepContext(event.ID, dbc, a.Steps, a.Log)
	if err := executor.Execute(ctx, step, &event); err != nil {
		if pkgerrors.Permanent(err) {
			return temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("eventflow: %s terminal", event.Type), PermanentErrorType, err)
		}
		return err
	}
	return nil
}
