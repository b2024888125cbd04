package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/commands"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// ProposalService reviews pending changes. A proposal holds a deferred
// command: its change document carries the requested type and payload.
// Creating or mutating the proposal row emits nothing; only approval
// releases the underlying command into the validated flow.
type ProposalService interface {
	Submit(dbc dbctx.Context, userID uuid.UUID, workspaceID *uuid.UUID, targetType, targetID, requestedType string, data map[string]any, correlationID string) (*types.Proposal, error)
	Approve(dbc dbctx.Context, reviewerID, proposalID uuid.UUID) (*types.Proposal, error)
	Reject(dbc dbctx.Context, reviewerID, proposalID uuid.UUID) (*types.Proposal, error)
	ListPending(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.Proposal, error)
}

type proposalChange struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

type proposalService struct {
	proposals podrepo.ProposalRepo
	gateway   *commands.Gateway
	log       *logger.Logger
}

func NewProposalService(proposals podrepo.ProposalRepo, gateway *commands.Gateway, baseLog *logger.Logger) ProposalService {
	return &proposalService{
		proposals: proposals,
		gateway:   gateway,
		log:       baseLog.With("service", "ProposalService"),
	}
}

func (s *proposalService) Submit(dbc dbctx.Context, userID uuid.UUID, workspaceID *uuid.UUID, targetType, targetID, requestedType string, data map[string]any, correlationID string) (*types.Proposal, error) {
	name, err := events.ParseName(requestedType)
	if err != nil {
		return nil, err
	}
	if name.Phase != events.PhaseRequested {
		return nil, fmt.Errorf("%w: a proposal defers a requested command, got %q", pkgerrors.ErrValidation, requestedType)
	}
	change, err := json.Marshal(proposalChange{Type: requestedType, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: proposal change not serializable: %v", pkgerrors.ErrValidation, err)
	}
	return s.proposals.Create(dbc, &types.Proposal{
		UserID:        userID,
		WorkspaceID:   workspaceID,
		TargetType:    targetType,
		TargetID:      targetID,
		Change:        change,
		CorrelationID: correlationID,
	})
}

// Approve marks the proposal validated and releases its deferred
// command as a validated event. The released event keeps the original
// author and correlation id; the reviewer is recorded in metadata.
func (s *proposalService) Approve(dbc dbctx.Context, reviewerID, proposalID uuid.UUID) (*types.Proposal, error) {
	p, err := s.proposals.GetByID(dbc, proposalID)
	if err != nil {
		return nil, err
	}
	var change proposalChange
	if err := json.Unmarshal(p.Change, &change); err != nil {
		return nil, fmt.Errorf("%w: proposal %s change: %v", pkgerrors.ErrValidation, p.ID, err)
	}

	approved, err := s.proposals.SetStatus(dbc, proposalID, types.ProposalValidated, reviewerID)
	if err != nil {
		return nil, err
	}

	deferred, err := events.New(events.Input{
		Type:          change.Type,
		SubjectID:     p.TargetID,
		SubjectType:   p.TargetType,
		Data:          change.Data,
		UserID:        p.UserID,
		CorrelationID: p.CorrelationID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.gateway.EmitValidated(dbc, deferred, map[string]any{
		"proposalId": p.ID.String(),
		"reviewerId": reviewerID.String(),
	}); err != nil {
		return nil, err
	}
	s.log.Info("proposal approved", "proposal_id", p.ID, "released_type", change.Type, "reviewer_id", reviewerID)
	return approved, nil
}

func (s *proposalService) Reject(dbc dbctx.Context, reviewerID, proposalID uuid.UUID) (*types.Proposal, error) {
	return s.proposals.SetStatus(dbc, proposalID, types.ProposalRejected, reviewerID)
}

func (s *proposalService) ListPending(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.Proposal, error) {
	return s.proposals.ListPending(dbc, workspaceID)
}
