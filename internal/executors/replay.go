package executors

import (
	"context"
	"fmt"

	eventsrepo "github.com/Synap-core/backend-sub006/internal/data/repos/events"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// ReplayExecutor rebuilds a subject's projection by re-dispatching its
// validated history in log order. Projections are derived state; the
// log is the source of truth, so a rebuild is just a redelivery. The
// run is closed out with a replay.completed record.
type ReplayExecutor struct {
	logRepo    eventsrepo.EventLogRepo
	dispatcher dispatch.Dispatcher
	log        *logger.Logger
}

func NewReplayExecutor(logRepo eventsrepo.EventLogRepo, dispatcher dispatch.Dispatcher, baseLog *logger.Logger) *ReplayExecutor {
	return &ReplayExecutor{
		logRepo:    logRepo,
		dispatcher: dispatcher,
		log:        baseLog.With("executor", "replay"),
	}
}

func (e *ReplayExecutor) Execute(ctx context.Context, step *dispatch.StepContext, event *types.Event) error {
	if event.Type != events.TypeReplayRequested {
		return fmt.Errorf("%w: replay executor got %q", pkgerrors.ErrValidation, event.Type)
	}
	dbc := dbctx.Context{Ctx: ctx}

	history, err := e.logRepo.GetBySubject(dbc, event.SubjectID)
	if err != nil {
		return err
	}

	redispatched := 0
	for _, past := range history {
		name, err := events.ParseName(past.Type)
		if err != nil {
			// System records in the history are not replayable.
			continue
		}
		if name.Phase != events.PhaseValidated {
			continue
		}
		label := fmt.Sprintf("redispatch:%s", past.ID)
		if _, err := step.Run(label, func() (map[string]any, error) {
			return nil, e.dispatcher.Send(dbc, past)
		}); err != nil {
			return err
		}
		redispatched++
	}

	_, err = step.Run("completed", func() (map[string]any, error) {
		record, err := events.New(events.Input{
			Type:          events.TypeReplayCompleted,
			SubjectID:     event.SubjectID,
			SubjectType:   event.SubjectType,
			Data:          map[string]any{"redispatched": redispatched},
			UserID:        event.UserID,
			Source:        event.Source,
			CorrelationID: event.CorrelationID,
		})
		if err != nil {
			return nil, err
		}
		return nil, e.logRepo.Append(dbc, record)
	})
	if err != nil {
		return err
	}
	e.log.Info("replay finished", "subject_id", event.SubjectID, "redispatched", redispatched)
	return nil
}
