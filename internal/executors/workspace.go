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

var workspaceUpdateKeys = map[string]string{
	"name": "name",
}

// WorkspaceExecutor also bootstraps the owner membership on create so a
// fresh workspace is never ownerless.
type WorkspaceExecutor struct {
	workspaces podrepo.WorkspaceRepo
	members    podrepo.MemberRepo
	log        *logger.Logger
}

func NewWorkspaceExecutor(workspaces podrepo.WorkspaceRepo, members podrepo.MemberRepo, baseLog *logger.Logger) *WorkspaceExecutor {
	return &WorkspaceExecutor{
		workspaces: workspaces,
		members:    members,
		log:        baseLog.With("executor", "workspaces"),
	}
}

func (e *WorkspaceExecutor) Execute(ctx context.Context, step *dispatch.StepContext, event *types.Event) error {
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
		if _, err := step.Run("create", func() (map[string]any, error) {
			ws := &types.Workspace{
				ID:          id,
				OwnerUserID: event.UserID,
				Name:        stringField(data, "name"),
			}
			created, err := e.workspaces.Create(dbc, ws, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": created.ID.String()}, nil
		}); err != nil {
			return err
		}
		_, err := step.Run("owner-membership", func() (map[string]any, error) {
			member, err := e.members.Add(dbc, &types.WorkspaceMember{
				WorkspaceID: id,
				UserID:      event.UserID,
				Role:        types.RoleOwner,
			}, event.UserID, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"memberId": member.ID.String()}, nil
		})
		return err
	case "update":
		_, err := step.Run("update", func() (map[string]any, error) {
			updated, err := e.workspaces.Update(dbc, id, event.UserID, pick(data, workspaceUpdateKeys), event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": updated.ID.String()}, nil
		})
		return err
	case "delete":
		_, err := step.Run("delete", func() (map[string]any, error) {
			err := e.workspaces.Delete(dbc, id, event.UserID, event.CorrelationID)
			if errors.Is(err, pkgerrors.ErrNotFound) {
				e.log.Debug("workspace already deleted", "workspace_id", id)
				return map[string]any{"alreadyDeleted": true}, nil
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id.String()}, nil
		})
		return err
	default:
		return unknownAction(events.FamilyWorkspaces, name)
	}
}
