// Package commands is the single entry point for write intents. Every
// mutation enters as a `*.requested` name, is routed by the validation
// policy onto the fast path or through the global validator, and leaves
// as exactly one appended event plus exactly one dispatch.
package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	eventsrepo "github.com/Synap-core/backend-sub006/internal/data/repos/events"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
	"github.com/Synap-core/backend-sub006/internal/policy"
)

// Publisher fans a persisted event out to live subscribers. Fanout is
// best-effort; the log append is the durable record.
type Publisher interface {
	Publish(ctx context.Context, event *types.Event) error
}

type Input struct {
	Type          string
	SubjectID     string
	SubjectType   string
	Data          map[string]any
	UserID        uuid.UUID
	WorkspaceID   *uuid.UUID
	ProjectID     *uuid.UUID
	UserRole      string
	Source        string
	CorrelationID string
	Metadata      map[string]any
}

type Gateway struct {
	logRepo    eventsrepo.EventLogRepo
	dispatcher dispatch.Dispatcher
	policy     *policy.Service
	publisher  Publisher
	log        *logger.Logger
}

// NewGateway wires the gateway's collaborators explicitly. publisher
// may be nil when no realtime fanout is configured.
func NewGateway(logRepo eventsrepo.EventLogRepo, dispatcher dispatch.Dispatcher, policySvc *policy.Service, publisher Publisher, baseLog *logger.Logger) *Gateway {
	return &Gateway{
		logRepo:    logRepo,
		dispatcher: dispatcher,
		policy:     policySvc,
		publisher:  publisher,
		log:        baseLog.With("component", "command_gateway"),
	}
}

// EmitRequestEvent routes one write intent. The input type must carry
// the requested phase. Policy failure or append failure aborts before
// any dispatch; a durable append always precedes its dispatch.
func (g *Gateway) EmitRequestEvent(dbc dbctx.Context, in Input) error {
	name, err := events.ParseName(in.Type)
	if err != nil {
		return err
	}
	if name.Phase != events.PhaseRequested {
		return fmt.Errorf("%w: emitRequestEvent takes a requested type, got %q", pkgerrors.ErrValidation, in.Type)
	}

	decision, err := g.policy.Evaluate(dbc.Ctx, policy.Input{
		Operation:   name.Action,
		SubjectType: in.SubjectType,
		WorkspaceID: in.WorkspaceID,
		ProjectID:   in.ProjectID,
		UserRole:    in.UserRole,
	})
	if err != nil {
		return fmt.Errorf("policy evaluation: %w", err)
	}

	metadata := map[string]any{}
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	metadata["policyReason"] = decision.Reason
	metadata["policySource"] = decision.Source

	eventType := in.Type
	if !decision.RequiresValidation {
		eventType = name.WithPhase(events.PhaseValidated).String()
		metadata["fastPath"] = true
	}

	event, err := events.New(events.Input{
		Type:          eventType,
		SubjectID:     in.SubjectID,
		SubjectType:   in.SubjectType,
		Data:          in.Data,
		UserID:        in.UserID,
		Source:        in.Source,
		CorrelationID: in.CorrelationID,
		Metadata:      metadata,
	})
	if err != nil {
		return err
	}

	return g.appendAndDispatch(dbc, event)
}

// EmitValidated re-emits a requested event as validated. Used by the
// global validator after its authorization check passes; the new event
// keeps the subject, data, actor, and correlation id of the original.
func (g *Gateway) EmitValidated(dbc dbctx.Context, requested *types.Event, metadata map[string]any) error {
	name, err := events.ParseName(requested.Type)
	if err != nil {
		return err
	}
	if name.Phase != events.PhaseRequested {
		return fmt.Errorf("%w: cannot validate a %s event", pkgerrors.ErrValidation, name.Phase)
	}

	merged := map[string]any{"validatedFrom": requested.ID.String()}
	for k, v := range metadata {
		merged[k] = v
	}
	event, err := events.New(events.Input{
		Type:          name.WithPhase(events.PhaseValidated).String(),
		SubjectID:     requested.SubjectID,
		SubjectType:   requested.SubjectType,
		Data:          decodeData(requested),
		UserID:        requested.UserID,
		Source:        requested.Source,
		CorrelationID: requested.CorrelationID,
		Metadata:      merged,
	})
	if err != nil {
		return err
	}

	return g.appendAndDispatch(dbc, event)
}

// RejectRequested appends the terminal audit record for a requested
// event that failed validation. Rejections are not dispatched; nothing
// executes downstream of them.
func (g *Gateway) RejectRequested(dbc dbctx.Context, requested *types.Event, reason string) error {
	event, err := events.New(events.Input{
		Type:        events.TypeValidationRejected,
		SubjectID:   requested.SubjectID,
		SubjectType: requested.SubjectType,
		Data: map[string]any{
			"rejectedType": requested.Type,
			"rejectedId":   requested.ID.String(),
			"reason":       reason,
		},
		UserID:        requested.UserID,
		Source:        requested.Source,
		CorrelationID: requested.CorrelationID,
	})
	if err != nil {
		return err
	}
	if err := g.logRepo.Append(dbc, event); err != nil {
		return fmt.Errorf("append rejection: %w", err)
	}
	g.log.Warn("request rejected",
		"rejected_type", requested.Type,
		"subject_id", requested.SubjectID,
		"user_id", requested.UserID,
		"reason", reason,
	)
	g.fanout(dbc.Ctx, event)
	return nil
}

// EmitCompleted appends the audit record for a projection write that
// already happened. Completed events are notifications, not triggers,
// so there is no dispatch.
func (g *Gateway) EmitCompleted(dbc dbctx.Context, name events.Name, subjectType, subjectID string, userID uuid.UUID, data map[string]any, correlationID string) error {
	if name.Phase != events.PhaseCompleted {
		return fmt.Errorf("%w: emitCompleted takes a completed type, got %q", pkgerrors.ErrValidation, name.String())
	}
	event, err := events.New(events.Input{
		Type:          name.String(),
		SubjectID:     subjectID,
		SubjectType:   subjectType,
		Data:          data,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return err
	}
	if err := g.logRepo.Append(dbc, event); err != nil {
		return fmt.Errorf("append completed: %w", err)
	}
	g.fanout(dbc.Ctx, event)
	return nil
}

func (g *Gateway) appendAndDispatch(dbc dbctx.Context, event *types.Event) error {
	if err := g.logRepo.Append(dbc, event); err != nil {
		return fmt.Errorf("append %s: %w", event.Type, err)
	}
	if err := g.dispatcher.Send(dbc, event); err != nil {
		return fmt.Errorf("dispatch %s: %w", event.Type, err)
	}
	g.log.Debug("emitted", "type", event.Type, "event_id", event.ID, "subject_id", event.SubjectID)
	g.fanout(dbc.Ctx, event)
	return nil
}

func (g *Gateway) fanout(ctx context.Context, event *types.Event) {
	if g.publisher == nil {
		return
	}
	if err := g.publisher.Publish(ctx, event); err != nil {
		g.log.Warn("realtime publish failed", "type", event.Type, "event_id", event.ID, "error", err)
	}
}

func decodeData(event *types.Event) map[string]any {
	if len(event.Data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(event.Data, &out); err != nil {
		return nil
	}
	return out
}
