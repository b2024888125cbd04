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

var entityUpdateKeys = map[string]string{
	"title": "title",
	"body":  "body",
}

type EntityExecutor struct {
	entities podrepo.EntityRepo
	log      *logger.Logger
}

func NewEntityExecutor(entities podrepo.EntityRepo, baseLog *logger.Logger) *EntityExecutor {
	return &EntityExecutor{
		entities: entities,
		log:      baseLog.With("executor", "entities"),
	}
}

func (e *EntityExecutor) Execute(ctx context.Context, step *dispatch.StepContext, event *types.Event) error {
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
			entity := &types.Entity{
				ID:          id,
				UserID:      event.UserID,
				WorkspaceID: uuidField(data, "workspaceId"),
				ProjectID:   uuidField(data, "projectId"),
				Title:       stringField(data, "title"),
				Body:        stringField(data, "body"),
			}
			created, err := e.entities.Create(dbc, entity, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": created.ID.String()}, nil
		})
		return err
	case "update":
		_, err := step.Run("update", func() (map[string]any, error) {
			updated, err := e.entities.Update(dbc, id, event.UserID, pick(data, entityUpdateKeys), event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": updated.ID.String()}, nil
		})
		return err
	case "delete":
		_, err := step.Run("delete", func() (map[string]any, error) {
			err := e.entities.Delete(dbc, id, event.UserID, event.CorrelationID)
			if errors.Is(err, pkgerrors.ErrNotFound) {
				// Already gone; a redelivered delete converges.
				e.log.Debug("entity already deleted", "entity_id", id)
				return map[string]any{"alreadyDeleted": true}, nil
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id.String()}, nil
		})
		return err
	default:
		return unknownAction(events.FamilyEntities, name)
	}
}
