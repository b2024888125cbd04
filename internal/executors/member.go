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

// MemberExecutor treats the event subject as the workspace; the target
// user and role travel in the payload.
type MemberExecutor struct {
	members podrepo.MemberRepo
	log     *logger.Logger
}

func NewMemberExecutor(members podrepo.MemberRepo, baseLog *logger.Logger) *MemberExecutor {
	return &MemberExecutor{
		members: members,
		log:     baseLog.With("executor", "workspace_members"),
	}
}

func (e *MemberExecutor) Execute(ctx context.Context, step *dispatch.StepContext, event *types.Event) error {
	name, err := parsedName(event, events.PhaseValidated)
	if err != nil {
		return err
	}
	data, err := decodeData(event)
	if err != nil {
		return err
	}
	workspaceID, err := subjectUUID(event)
	if err != nil {
		return err
	}
	target := uuidField(data, "userId")
	if target == nil {
		return fmt.Errorf("%w: membership event requires data.userId", pkgerrors.ErrValidation)
	}
	dbc := dbctx.Context{Ctx: ctx}

	switch name.Action {
	case "add":
		_, err := step.Run("add", func() (map[string]any, error) {
			member, err := e.members.Add(dbc, &types.WorkspaceMember{
				WorkspaceID: workspaceID,
				UserID:      *target,
				Role:        stringField(data, "role"),
			}, event.UserID, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"memberId": member.ID.String()}, nil
		})
		return err
	case "remove":
		_, err := step.Run("remove", func() (map[string]any, error) {
			err := e.members.Remove(dbc, workspaceID, *target, event.UserID, event.CorrelationID)
			if errors.Is(err, pkgerrors.ErrNotFound) {
				e.log.Debug("member already removed", "workspace_id", workspaceID, "user_id", *target)
				return map[string]any{"alreadyRemoved": true}, nil
			}
			if err != nil {
				return nil, err
			}
			return nil, nil
		})
		return err
	case "updateRole":
		_, err := step.Run("updateRole", func() (map[string]any, error) {
			member, err := e.members.UpdateRole(dbc, workspaceID, *target, stringField(data, "role"), event.UserID, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"memberId": member.ID.String(), "role": member.Role}, nil
		})
		return err
	default:
		return unknownAction(events.FamilyWorkspaceMembers, name)
	}
}
