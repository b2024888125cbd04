// Package executors holds the per-family consumers of validated events
// and the global validator that turns requested events into validated
// ones. Executors run under the dispatch worker: at-least-once, so every
// mutation goes through a memoized step.
package executors

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/events"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
)

func decodeData(event *types.Event) (map[string]any, error) {
	if len(event.Data) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(event.Data, &out); err != nil {
		return nil, fmt.Errorf("%w: event %s data: %v", pkgerrors.ErrValidation, event.ID, err)
	}
	return out, nil
}

func subjectUUID(event *types.Event) (uuid.UUID, error) {
	id, err := uuid.Parse(event.SubjectID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject id %q is not a uuid", pkgerrors.ErrValidation, event.SubjectID)
	}
	return id, nil
}

func parsedName(event *types.Event, want events.Phase) (events.Name, error) {
	name, err := events.ParseName(event.Type)
	if err != nil {
		return events.Name{}, err
	}
	if name.Phase != want {
		return events.Name{}, fmt.Errorf("%w: executor for %s events got %q", pkgerrors.ErrValidation, want, event.Type)
	}
	return name, nil
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func uuidField(data map[string]any, key string) *uuid.UUID {
	raw, ok := data[key].(string)
	if !ok || raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// pick copies the listed keys that are present in data, for column
// update maps. Keys arrive camelCase on the wire and map to snake_case
// columns.
func pick(data map[string]any, keys map[string]string) map[string]any {
	out := map[string]any{}
	for wire, column := range keys {
		if v, ok := data[wire]; ok {
			out[column] = v
		}
	}
	return out
}

func unknownAction(family string, name events.Name) error {
	return fmt.Errorf("%w: unknown %s action %q", pkgerrors.ErrValidation, family, name.Action)
}
