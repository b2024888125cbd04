package executors

import (
	"context"
	"errors"

	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

var messageUpdateKeys = map[string]string{
	"body": "body",
}

type MessageExecutor struct {
	messages podrepo.MessageRepo
	log      *logger.Logger
}

func NewMessageExecutor(messages podrepo.MessageRepo, baseLog *logger.Logger) *MessageExecutor {
	return &MessageExecutor{
		messages: messages,
		log:      baseLog.With("executor", "messages"),
	}
}

func (e *MessageExecutor) Execute(ctx context.Context, step *dispatch.StepContext, event *types.Event) error {
	name, err := parsedName(event, events.PhaseValidated)
	if err != nil {
		return err
	}
	data, err := decodeData(event)
	if err != nil {
		return err
	}
	id, err := subjectUUID(event)
	if err != nil {
		return err
	}
	dbc := dbctx.Context{Ctx: ctx}

	switch name.Action {
	case "create":
		_, err := step.Run("create", func() (map[string]any, error) {
			msg := &types.Message{
				ID:          id,
				UserID:      event.UserID,
				WorkspaceID: uuidField(data, "workspaceId"),
				ThreadID:    uuidField(data, "threadId"),
				Body:        stringField(data, "body"),
			}
			created, err := e.messages.Create(dbc, msg, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": created.ID.String()}, nil
		})
		return err
	case "update":
		_, err := step.Run("update", func() (map[string]any, error) {
			updated, err := e.messages.Update(dbc, id, event.UserID, pick(data, messageUpdateKeys), event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": updated.ID.String()}, nil
		})
		return err
	case "delete":
		_, err := step.Run("delete", func() (map[string]any, error) {
			err := e.messages.Delete(dbc, id, event.UserID, event.CorrelationID)
			if errors.Is(err, pkgerrors.ErrNotFound) {
				e.log.Debug("message already deleted", "message_id", id)
				return map[string]any{"alreadyDeleted": true}, nil
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id.String()}, nil
		})
		return err
	default:
		return unknownAction(events.FamilyMessages, name)
	}
}
