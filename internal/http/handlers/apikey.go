package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/commands"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	"github.com/Synap-core/backend-sub006/internal/http/response"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
	"github.com/Synap-core/backend-sub006/internal/services"
)

type APIKeyHandler struct {
	commandEmitter
	auth services.AuthService
	keys podrepo.APIKeyRepo
}

func NewAPIKeyHandler(auth services.AuthService, keys podrepo.APIKeyRepo, gateway *commands.Gateway, members podrepo.MemberRepo, baseLog *logger.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		commandEmitter: commandEmitter{
			gateway: gateway,
			members: members,
			log:     baseLog.With("handler", "APIKeyHandler"),
		},
		auth: auth,
		keys: keys,
	}
}

// Create mints the secret synchronously so the plaintext can be shown
// exactly once, then sends only the hash and prefix through the event
// flow. The projection row appears when the executor runs.
func (h *APIKeyHandler) Create(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req struct {
		Name          string     `json:"name" binding:"required"`
		WorkspaceID   *uuid.UUID `json:"workspace_id"`
		CorrelationID string     `json:"correlation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	minted, err := h.auth.MintKey()
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	correlationID := orNewCorrelation(req.CorrelationID)

	data := map[string]any{
		"name":      req.Name,
		"keyHash":   minted.Hash,
		"keyPrefix": minted.Prefix,
	}
	if req.WorkspaceID != nil {
		data["workspaceId"] = req.WorkspaceID.String()
	}

	dbc := dbcFrom(c)
	err = h.gateway.EmitRequestEvent(dbc, commands.Input{
		Type:          "api_keys.create.requested",
		SubjectID:     minted.ID.String(),
		SubjectType:   "api_key",
		Data:          data,
		UserID:        userID,
		WorkspaceID:   req.WorkspaceID,
		UserRole:      h.roleIn(dbc, req.WorkspaceID, userID),
		Source:        sourceFor(c),
		CorrelationID: correlationID,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"id":             minted.ID,
		"key":            minted.Plaintext,
		"key_prefix":     minted.Prefix,
		"correlation_id": correlationID,
	})
}

func (h *APIKeyHandler) List(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	rows, err := h.keys.ListByUser(dbcFrom(c), userID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"api_keys": rows})
}

func (h *APIKeyHandler) Delete(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.emit(c, userID, commandRequest{
		Type:      "api_keys.delete.requested",
		SubjectID: id.String(),
	})
}
