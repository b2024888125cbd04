package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
)

// payloadSchemas lists required top-level keys per event type. Types without
// an entry accept any payload.
var payloadSchemas = map[string][]string{
	"entities.create.requested":              {"title"},
	"entities.create.validated":              {"title"},
	"projects.create.requested":              {"name"},
	"projects.create.validated":              {"name"},
	"templates.create.requested":             {"name"},
	"templates.create.validated":             {"name"},
	"messages.create.requested":              {"body"},
	"messages.create.validated":              {"body"},
	"workspace_members.add.requested":        {"role"},
	"workspace_members.add.validated":        {"role"},
	"workspace_members.updateRole.requested": {"role"},
	"workspace_members.updateRole.validated": {"role"},
}

// Input is everything needed to construct an envelope. CorrelationID and
// Metadata are optional.
type Input struct {
	Type          string
	SubjectID     string
	SubjectType   string
	Data          map[string]any
	UserID        uuid.UUID
	Source        string
	CorrelationID string
	Metadata      map[string]any
}

// New constructs an immutable event envelope. Construction is pure:
// persistence happens separately through the event log repository.
//
// It fails with ErrValidation when the actor is missing (never silently
// defaulted), the type is not registered, or a registered payload schema is
// not satisfied.
func New(in Input) (*types.Event, error) {
	if in.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: event requires a user id", pkgerrors.ErrValidation)
	}
	if !IsValidType(in.Type) {
		return nil, fmt.Errorf("%w: unknown event type %q", pkgerrors.ErrValidation, in.Type)
	}
	if in.SubjectID == "" {
		return nil, fmt.Errorf("%w: event requires a subject id", pkgerrors.ErrValidation)
	}
	if err := checkSchema(in.Type, in.Data); err != nil {
		return nil, err
	}

	source := in.Source
	if source == "" {
		source = types.SourceAPI
	}
	switch source {
	case types.SourceAPI, types.SourceAutomation, types.SourceSync, types.SourceMigration:
	default:
		return nil, fmt.Errorf("%w: unknown event source %q", pkgerrors.ErrValidation, in.Source)
	}

	data, err := marshalJSON(in.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: event data not serializable: %v", pkgerrors.ErrValidation, err)
	}
	meta, err := marshalJSON(in.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: event metadata not serializable: %v", pkgerrors.ErrValidation, err)
	}

	return &types.Event{
		ID:            uuid.New(),
		Type:          in.Type,
		SubjectID:     in.SubjectID,
		SubjectType:   in.SubjectType,
		Data:          data,
		UserID:        in.UserID,
		Source:        source,
		CorrelationID: in.CorrelationID,
		Metadata:      meta,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func checkSchema(eventType string, data map[string]any) error {
	required, ok := payloadSchemas[eventType]
	if !ok {
		return nil
	}
	for _, key := range required {
		v, present := data[key]
		if !present || v == nil || v == "" {
			return fmt.Errorf("%w: event %s requires data key %q", pkgerrors.ErrValidation, eventType, key)
		}
	}
	return nil
}

func marshalJSON(m map[string]any) (datatypes.JSON, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
