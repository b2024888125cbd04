package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/authz"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/http/response"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
	"github.com/Synap-core/backend-sub006/internal/services"
)

type ProposalHandler struct {
	proposals podrepo.ProposalRepo
	svc       services.ProposalService
	gate      *authz.Gate
	log       *logger.Logger
}

func NewProposalHandler(proposals podrepo.ProposalRepo, svc services.ProposalService, gate *authz.Gate, baseLog *logger.Logger) *ProposalHandler {
	return &ProposalHandler{
		proposals: proposals,
		svc:       svc,
		gate:      gate,
		log:       baseLog.With("handler", "ProposalHandler"),
	}
}

func (h *ProposalHandler) Submit(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req struct {
		WorkspaceID   *uuid.UUID     `json:"workspace_id"`
		TargetType    string         `json:"target_type" binding:"required"`
		TargetID      string         `json:"target_id" binding:"required"`
		RequestedType string         `json:"requested_type" binding:"required"`
		Data          map[string]any `json:"data"`
		CorrelationID string         `json:"correlation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	proposal, err := h.svc.Submit(dbcFrom(c), userID, req.WorkspaceID, req.TargetType, req.TargetID,
		req.RequestedType, req.Data, orNewCorrelation(req.CorrelationID))
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, proposal)
}

func (h *ProposalHandler) ListPending(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	dbc := dbcFrom(c)
	if _, err := h.gate.RequireWorkspaceRole(dbc, workspaceID, userID, types.RoleAdmin); err != nil {
		response.RespondFromError(c, err)
		return
	}
	rows, err := h.svc.ListPending(dbc, workspaceID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"proposals": rows})
}

func (h *ProposalHandler) Approve(c *gin.Context) {
	h.review(c, true)
}

func (h *ProposalHandler) Reject(c *gin.Context) {
	h.review(c, false)
}

// review gates on the proposal's scope: workspace proposals need an
// admin reviewer, personal ones the resource owner.
func (h *ProposalHandler) review(c *gin.Context, approve bool) {
	reviewerID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	dbc := dbcFrom(c)
	proposal, err := h.proposals.GetByID(dbc, id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if err := h.authorizeReview(dbc, proposal, reviewerID); err != nil {
		response.RespondFromError(c, err)
		return
	}

	if approve {
		proposal, err = h.svc.Approve(dbc, reviewerID, id)
	} else {
		proposal, err = h.svc.Reject(dbc, reviewerID, id)
	}
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, proposal)
}

func (h *ProposalHandler) authorizeReview(dbc dbctx.Context, proposal *types.Proposal, reviewerID uuid.UUID) error {
	if proposal.WorkspaceID != nil {
		_, err := h.gate.RequireWorkspaceRole(dbc, *proposal.WorkspaceID, reviewerID, types.RoleAdmin)
		return err
	}
	return authz.RequireResourceOwner(proposal.UserID, reviewerID)
}
