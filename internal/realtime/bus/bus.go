// Package bus fans persisted events out to live subscribers. The log
// append is the durable record; bus delivery is best-effort.
package bus

import (
	"context"

	types "github.com/Synap-core/backend-sub006/internal/domain"
)

type Bus interface {
	Publish(ctx context.Context, event *types.Event) error
	StartForwarder(ctx context.Context, onEvent func(event *types.Event)) error
	Close() error
}
