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

type EntityHandler struct {
	commandEmitter
	entities podrepo.EntityRepo
}

func NewEntityHandler(entities podrepo.EntityRepo, gateway *commands.Gateway, members podrepo.MemberRepo, baseLog *logger.Logger) *EntityHandler {
	return &EntityHandler{
		commandEmitter: commandEmitter{
			gateway: gateway,
			members: members,
			log:     baseLog.With("handler", "EntityHandler"),
		},
		entities: entities,
	}
}

func (h *EntityHandler) List(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var workspaceID *uuid.UUID
	if raw := c.Query("workspace_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		workspaceID = &id
	}
	rows, err := h.entities.ListByUser(dbcFrom(c), userID, workspaceID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entities": rows})
}

func (h *EntityHandler) Get(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	entity, err := h.entities.GetByID(dbcFrom(c), id, userID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, entity)
}

type entityWriteRequest struct {
	Title         string         `json:"title"`
	Body          string         `json:"body"`
	WorkspaceID   *uuid.UUID     `json:"workspace_id"`
	ProjectID     *uuid.UUID     `json:"project_id"`
	Data          map[string]any `json:"data"`
	CorrelationID string         `json:"correlation_id"`
}

func (r entityWriteRequest) payload() map[string]any {
	data := map[string]any{}
	for k, v := range r.Data {
		data[k] = v
	}
	if r.Title != "" {
		data["title"] = r.Title
	}
	if r.Body != "" {
		data["body"] = r.Body
	}
	if r.WorkspaceID != nil {
		data["workspaceId"] = r.WorkspaceID.String()
	}
	if r.ProjectID != nil {
		data["projectId"] = r.ProjectID.String()
	}
	return data
}

func (h *EntityHandler) Create(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req entityWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "entities.create.requested",
		Data:          req.payload(),
		WorkspaceID:   req.WorkspaceID,
		ProjectID:     req.ProjectID,
		CorrelationID: req.CorrelationID,
	})
}

func (h *EntityHandler) Update(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req entityWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "entities.update.requested",
		SubjectID:     id.String(),
		Data:          req.payload(),
		WorkspaceID:   req.WorkspaceID,
		ProjectID:     req.ProjectID,
		CorrelationID: req.CorrelationID,
	})
}

func (h *EntityHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.emit(c, userID, commandRequest{
		Type:      "entities.delete.requested",
		SubjectID: id.String(),
	})
}
