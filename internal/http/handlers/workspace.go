package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/authz"
	"github.com/Synap-core/backend-sub006/internal/commands"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/http/response"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
	"github.com/Synap-core/backend-sub006/internal/services"
)

type WorkspaceHandler struct {
	commandEmitter
	workspaces services.WorkspaceService
	gate       *authz.Gate
}

func NewWorkspaceHandler(workspaces services.WorkspaceService, gate *authz.Gate, gateway *commands.Gateway, members podrepo.MemberRepo, baseLog *logger.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		commandEmitter: commandEmitter{
			gateway: gateway,
			members: members,
			log:     baseLog.With("handler", "WorkspaceHandler"),
		},
		workspaces: workspaces,
		gate:       gate,
	}
}

func (h *WorkspaceHandler) Create(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req struct {
		Name          string `json:"name" binding:"required"`
		CorrelationID string `json:"correlation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	correlationID := orNewCorrelation(req.CorrelationID)
	workspaceID, err := h.workspaces.Create(dbcFrom(c), userID, req.Name, correlationID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"workspace_id":   workspaceID,
		"correlation_id": correlationID,
	})
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	dbc := dbcFrom(c)
	if _, err := h.gate.RequireWorkspaceRole(dbc, id, userID, types.RoleViewer); err != nil {
		response.RespondFromError(c, err)
		return
	}
	ws, err := h.workspaces.Get(dbc, id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, ws)
}

func (h *WorkspaceHandler) Update(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name          string `json:"name" binding:"required"`
		CorrelationID string `json:"correlation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "workspaces.update.requested",
		SubjectID:     id.String(),
		Data:          map[string]any{"name": req.Name},
		WorkspaceID:   &id,
		CorrelationID: req.CorrelationID,
	})
}

func (h *WorkspaceHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.emit(c, userID, commandRequest{
		Type:        "workspaces.delete.requested",
		SubjectID:   id.String(),
		WorkspaceID: &id,
	})
}

func (h *WorkspaceHandler) ListMembers(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	dbc := dbcFrom(c)
	if _, err := h.gate.RequireWorkspaceRole(dbc, id, userID, types.RoleViewer); err != nil {
		response.RespondFromError(c, err)
		return
	}
	members, err := h.workspaces.Members(dbc, id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"members": members})
}

type memberWriteRequest struct {
	UserID        uuid.UUID `json:"user_id" binding:"required"`
	Role          string    `json:"role"`
	CorrelationID string    `json:"correlation_id"`
}

// Membership commands ride the standard flow: the subject is the
// workspace, the target user travels in the payload.
func (h *WorkspaceHandler) AddMember(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req memberWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "workspace_members.add.requested",
		SubjectID:     id.String(),
		Data:          map[string]any{"userId": req.UserID.String(), "role": req.Role},
		WorkspaceID:   &id,
		CorrelationID: req.CorrelationID,
	})
}

func (h *WorkspaceHandler) UpdateMemberRole(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	var req struct {
		Role          string `json:"role" binding:"required"`
		CorrelationID string `json:"correlation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "workspace_members.updateRole.requested",
		SubjectID:     id.String(),
		Data:          map[string]any{"userId": memberID.String(), "role": req.Role},
		WorkspaceID:   &id,
		CorrelationID: req.CorrelationID,
	})
}

func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	h.emit(c, userID, commandRequest{
		Type:        "workspace_members.remove.requested",
		SubjectID:   id.String(),
		Data:        map[string]any{"userId": memberID.String()},
		WorkspaceID: &id,
	})
}
