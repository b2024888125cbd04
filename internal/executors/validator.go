package executors

import (
	"context"

	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/authz"
	"github.com/Synap-core/backend-sub006/internal/commands"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// Validator is the single consumer of `*.requested` events. It checks
// the actor against the workspace role hierarchy and either re-emits
// the command as validated or terminates it with a rejection record. A
// rejection completes the task; nothing executes downstream of it.
type Validator struct {
	gateway *commands.Gateway
	gate    *authz.Gate
	log     *logger.Logger
}

func NewValidator(gateway *commands.Gateway, gate *authz.Gate, baseLog *logger.Logger) *Validator {
	return &Validator{
		gateway: gateway,
		gate:    gate,
		log:     baseLog.With("executor", "validator"),
	}
}

func (v *Validator) Execute(ctx context.Context, step *dispatch.StepContext, event *types.Event) error {
	name, err := parsedName(event, events.PhaseRequested)
	if err != nil {
		return err
	}
	data, err := decodeData(event)
	if err != nil {
		return err
	}
	dbc := dbctx.Context{Ctx: ctx}

	if wsID := v.workspaceInScope(name, event, data); wsID != nil {
		minRole := requiredRole(name)
		if _, err := v.gate.RequireWorkspaceRole(dbc, *wsID, event.UserID, minRole); err != nil {
			if !pkgerrors.Permanent(err) {
				return err
			}
			_, rerr := step.Run("reject", func() (map[string]any, error) {
				return map[string]any{"rejected": true}, v.gateway.RejectRequested(dbc, event, err.Error())
			})
			return rerr
		}
	}

	_, err = step.Run("emit-validated", func() (map[string]any, error) {
		return nil, v.gateway.EmitValidated(dbc, event, map[string]any{"validatedBy": "global-validator"})
	})
	return err
}

// workspaceInScope finds the workspace a command must be authorized
// against. Membership commands target their subject workspace; other
// commands carry it in the payload. Commands without a workspace (a
// personal entity, a new workspace) skip the role check and rely on the
// repositories' tenant scoping.
func (v *Validator) workspaceInScope(name events.Name, event *types.Event, data map[string]any) *uuid.UUID {
	if name.Family == events.FamilyWorkspaceMembers {
		if id, err := uuid.Parse(event.SubjectID); err == nil {
			return &id
		}
		return nil
	}
	if name.Family == events.FamilyWorkspaces {
		return nil
	}
	return uuidField(data, "workspaceId")
}

func requiredRole(name events.Name) string {
	if name.Family == events.FamilyWorkspaceMembers {
		return types.RoleAdmin
	}
	return types.RoleEditor
}
