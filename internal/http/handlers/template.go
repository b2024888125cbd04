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

type TemplateHandler struct {
	commandEmitter
	templates podrepo.TemplateRepo
}

func NewTemplateHandler(templates podrepo.TemplateRepo, gateway *commands.Gateway, members podrepo.MemberRepo, baseLog *logger.Logger) *TemplateHandler {
	return &TemplateHandler{
		commandEmitter: commandEmitter{
			gateway: gateway,
			members: members,
			log:     baseLog.With("handler", "TemplateHandler"),
		},
		templates: templates,
	}
}

func (h *TemplateHandler) List(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	rows, err := h.templates.ListByUser(dbcFrom(c), userID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"templates": rows})
}

type templateWriteRequest struct {
	Name          string         `json:"name"`
	Content       map[string]any `json:"content"`
	WorkspaceID   *uuid.UUID     `json:"workspace_id"`
	CorrelationID string         `json:"correlation_id"`
}

func (r templateWriteRequest) payload() map[string]any {
	data := map[string]any{}
	if r.Name != "" {
		data["name"] = r.Name
	}
	if r.Content != nil {
		data["content"] = r.Content
	}
	if r.WorkspaceID != nil {
		data["workspaceId"] = r.WorkspaceID.String()
	}
	return data
}

func (h *TemplateHandler) Create(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req templateWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "templates.create.requested",
		Data:          req.payload(),
		WorkspaceID:   req.WorkspaceID,
		CorrelationID: req.CorrelationID,
	})
}

func (h *TemplateHandler) Update(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req templateWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "templates.update.requested",
		SubjectID:     id.String(),
		Data:          req.payload(),
		WorkspaceID:   req.WorkspaceID,
		CorrelationID: req.CorrelationID,
	})
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.emit(c, userID, commandRequest{
		Type:      "templates.delete.requested",
		SubjectID: id.String(),
	})
}
