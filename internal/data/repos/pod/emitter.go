package pod

import (
	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
)

// CompletedEmitter appends a `{family}.{action}.completed` audit event after
// a successful projection write. Implemented by the command gateway; repos
// receive it as a constructor dependency instead of resolving a global
// publisher.
type CompletedEmitter interface {
	EmitCompleted(dbc dbctx.Context, name events.Name, subjectType, subjectID string, userID uuid.UUID, data map[string]any, correlationID string) error
}
