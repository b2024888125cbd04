package executors

import (
	"context"
	"errors"
	"fmt"

	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

var projectUpdateKeys = map[string]string{
	"name":        "name",
	"description": "description",
	"status":      "status",
}

type ProjectExecutor struct {
	projects podrepo.ProjectRepo
	log      *logger.Logger
}

func NewProjectExecutor(projects podrepo.ProjectRepo, baseLog *logger.Logger) *ProjectExecutor {
	return &ProjectExecutor{
		projects: projects,
		log:      baseLog.With("executor", "projects"),
	}
}

func (e *ProjectExecutor) Execute(ctx context.Context, step *dispatch.StepContext, event *types.Event) error {
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
			wsID := uuidField(data, "workspaceId")
			if wsID == nil {
				return nil, fmt.Errorf("%w: project requires a workspace id", pkgerrors.ErrValidation)
			}
			project := &types.Project{
				ID:          id,
				UserID:      event.UserID,
				WorkspaceID: *wsID,
				Name:        stringField(data, "name"),
				Description: stringField(data, "description"),
			}
			created, err := e.projects.Create(dbc, project, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": created.ID.String()}, nil
		})
		return err
	case "update":
		_, err := step.Run("update", func() (map[string]any, error) {
			updated, err := e.projects.Update(dbc, id, event.UserID, pick(data, projectUpdateKeys), event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": updated.ID.String()}, nil
		})
		return err
	case "delete":
		_, err := step.Run("delete", func() (map[string]any, error) {
			err := e.projects.Delete(dbc, id, event.UserID, event.CorrelationID)
			if errors.Is(err, pkgerrors.ErrNotFound) {
				e.log.Debug("project already deleted", "project_id", id)
				return map[string]any{"alreadyDeleted": true}, nil
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id.String()}, nil
		})
		return err
	default:
		return unknownAction(events.FamilyProjects, name)
	}
}
