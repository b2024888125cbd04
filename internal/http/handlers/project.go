package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/commands"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	"github.com/Synap-core/backend-sub006/internal/http/response"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

type ProjectHandler struct {
	commandEmitter
	projects podrepo.ProjectRepo
}

func NewProjectHandler(projects podrepo.ProjectRepo, gateway *commands.Gateway, members podrepo.MemberRepo, baseLog *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		commandEmitter: commandEmitter{
			gateway: gateway,
			members: members,
			log:     baseLog.With("handler", "ProjectHandler"),
		},
		projects: projects,
	}
}

func (h *ProjectHandler) ListByWorkspace(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.projects.ListByWorkspace(dbcFrom(c), workspaceID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"projects": rows})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	project, err := h.projects.GetByID(dbcFrom(c), id, userID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, project)
}

type projectWriteRequest struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	WorkspaceID   *uuid.UUID `json:"workspace_id"`
	CorrelationID string     `json:"correlation_id"`
}

func (r projectWriteRequest) payload() map[string]any {
	data := map[string]any{}
	if r.Name != "" {
		data["name"] = r.Name
	}
	if r.Description != "" {
		data["description"] = r.Description
	}
	if r.Status != "" {
		data["status"] = r.Status
	}
	if r.WorkspaceID != nil {
		data["workspaceId"] = r.WorkspaceID.String()
	}
	return data
}

func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req projectWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "projects.create.requested",
		Data:          req.payload(),
		WorkspaceID:   req.WorkspaceID,
		CorrelationID: req.CorrelationID,
	})
}

func (h *ProjectHandler) Update(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req projectWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "projects.update.requested",
		SubjectID:     id.String(),
		Data:          req.payload(),
		WorkspaceID:   req.WorkspaceID,
		CorrelationID: req.CorrelationID,
	})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.emit(c, userID, commandRequest{
		Type:      "projects.delete.requested",
		SubjectID: id.String(),
	})
}
