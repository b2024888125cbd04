package executors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

type TemplateExecutor struct {
	templates podrepo.TemplateRepo
	log       *logger.Logger
}

func NewTemplateExecutor(templates podrepo.TemplateRepo, baseLog *logger.Logger) *TemplateExecutor {
	return &TemplateExecutor{
		templates: templates,
		log:       baseLog.With("executor", "templates"),
	}
}

func (e *TemplateExecutor) Execute(ctx context.Context, step *dispatch.StepContext, event *types.Event) error {
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
			content, err := templateContent(data)
			if err != nil {
				return nil, err
			}
			tpl := &types.Template{
				ID:          id,
				UserID:      event.UserID,
				WorkspaceID: uuidField(data, "workspaceId"),
				Name:        stringField(data, "name"),
				Content:     content,
			}
			created, err := e.templates.Create(dbc, tpl, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": created.ID.String()}, nil
		})
		return err
	case "update":
		_, err := step.Run("update", func() (map[string]any, error) {
			updates := pick(data, map[string]string{"name": "name"})
			if _, ok := data["content"]; ok {
				content, err := templateContent(data)
				if err != nil {
					return nil, err
				}
				updates["content"] = content
			}
			updated, err := e.templates.Update(dbc, id, event.UserID, updates, event.CorrelationID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": updated.ID.String()}, nil
		})
		return err
	case "delete":
		_, err := step.Run("delete", func() (map[string]any, error) {
			err := e.templates.Delete(dbc, id, event.UserID, event.CorrelationID)
			if errors.Is(err, pkgerrors.ErrNotFound) {
				e.log.Debug("template already deleted", "template_id", id)
				return map[string]any{"alreadyDeleted": true}, nil
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id.String()}, nil
		})
		return err
	default:
		return unknownAction(events.FamilyTemplates, name)
	}
}

func templateContent(data map[string]any) (datatypes.JSON, error) {
	raw, ok := data["content"]
	if !ok || raw == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: template content not serializable: %v", pkgerrors.ErrValidation, err)
	}
	return datatypes.JSON(encoded), nil
}
