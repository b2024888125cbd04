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

// APIKeyExecutor persists key records. The payload carries only the
// bcrypt hash and display prefix; the plaintext secret never enters the
// event flow.
type APIKeyExecutor struct {
	keys podrepo.APIKeyRepo
	log  *logger.Logger
}

func NewAPIKeyExecutor(keys podrepo.APIKeyRepo, baseLog *logger.Logger) *APIKeyExecutor {
	return &APIKeyExecutor{
		keys: keys,
		log:  baseLog.With("executor", "api_keys"),
	}
}

func (e *APIKeyExecutor) Execute(ctx context.Context, step *dispatch.StepContext, event *types.Event) error {
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
			hash := stringField(data, "keyHash")
			prefix := stringField(data, "keyPrefix")
			if hash == "" || prefix == "" {
				return nil, fmt.Errorf("%w: api key event requires keyHash and keyPrefix", pkgerrors.ErrValidation)
			}
			key := &types.APIKey{
				ID:          id,
				UserID:      event.UserID,
				WorkspaceID: uuidField(data, "workspaceId"),
				Name:        stringField(data, "name"),
				KeyHash:     hash,
				KeyPrefix:   prefix,
			}
			created, err := e.keys.Create(dbc, key, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": created.ID.String()}, nil
		})
		return err
	case "delete":
		_, err := step.Run("delete", func() (map[string]any, error) {
			err := e.keys.Delete(dbc, id, event.UserID, event.CorrelationID)
			if errors.Is(err, pkgerrors.ErrNotFound) {
				e.log.Debug("api key already deleted", "key_id", id)
				return map[string]any{"alreadyDeleted": true}, nil
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id.String()}, nil
		})
		return err
	default:
		return unknownAction(events.FamilyAPIKeys, name)
	}
}
