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

type MessageHandler struct {
	commandEmitter
	messages podrepo.MessageRepo
}

func NewMessageHandler(messages podrepo.MessageRepo, gateway *commands.Gateway, members podrepo.MemberRepo, baseLog *logger.Logger) *MessageHandler {
	return &MessageHandler{
		commandEmitter: commandEmitter{
			gateway: gateway,
			members: members,
			log:     baseLog.With("handler", "MessageHandler"),
		},
		messages: messages,
	}
}

func (h *MessageHandler) ListByThread(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}
	threadID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.messages.ListByThread(dbcFrom(c), threadID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": rows})
}

type messageWriteRequest struct {
	Body          string     `json:"body"`
	ThreadID      *uuid.UUID `json:"thread_id"`
	WorkspaceID   *uuid.UUID `json:"workspace_id"`
	CorrelationID string     `json:"correlation_id"`
}

func (r messageWriteRequest) payload() map[string]any {
	data := map[string]any{}
	if r.Body != "" {
		data["body"] = r.Body
	}
	if r.ThreadID != nil {
		data["threadId"] = r.ThreadID.String()
	}
	if r.WorkspaceID != nil {
		data["workspaceId"] = r.WorkspaceID.String()
	}
	return data
}

func (h *MessageHandler) Create(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req messageWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "messages.create.requested",
		Data:          req.payload(),
		WorkspaceID:   req.WorkspaceID,
		CorrelationID: req.CorrelationID,
	})
}

func (h *MessageHandler) Update(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req messageWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, commandRequest{
		Type:          "messages.update.requested",
		SubjectID:     id.String(),
		Data:          req.payload(),
		WorkspaceID:   req.WorkspaceID,
		CorrelationID: req.CorrelationID,
	})
}

func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.emit(c, userID, commandRequest{
		Type:      "messages.delete.requested",
		SubjectID: id.String(),
	})
}
