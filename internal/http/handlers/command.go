package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/commands"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/http/response"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

type commandRequest struct {
	Type          string         `json:"type" binding:"required"`
	SubjectID     string         `json:"subject_id"`
	SubjectType   string         `json:"subject_type"`
	Data          map[string]any `json:"data"`
	WorkspaceID   *uuid.UUID     `json:"workspace_id"`
	ProjectID     *uuid.UUID     `json:"project_id"`
	CorrelationID string         `json:"correlation_id"`
	Metadata      map[string]any `json:"metadata"`
}

// commandEmitter is shared by every write handler: it resolves the
// actor's workspace role, routes the intent through the gateway, and
// answers 202 with the accepted subject and correlation ids.
type commandEmitter struct {
	gateway *commands.Gateway
	members podrepo.MemberRepo
	log     *logger.Logger
}

func (e *commandEmitter) emit(c *gin.Context, userID uuid.UUID, req commandRequest) {
	name, err := events.ParseName(req.Type)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}

	subjectType := req.SubjectType
	if subjectType == "" {
		if st, known := events.SubjectTypeFor(name.Family); known {
			subjectType = st
		}
	}
	subjectID := req.SubjectID
	if subjectID == "" {
		subjectID = uuid.NewString()
	}
	correlationID := orNewCorrelation(req.CorrelationID)

	dbc := dbcFrom(c)
	err = e.gateway.EmitRequestEvent(dbc, commands.Input{
		Type:          req.Type,
		SubjectID:     subjectID,
		SubjectType:   subjectType,
		Data:          req.Data,
		UserID:        userID,
		WorkspaceID:   req.WorkspaceID,
		ProjectID:     req.ProjectID,
		UserRole:      e.roleIn(dbc, req.WorkspaceID, userID),
		Source:        sourceFor(c),
		CorrelationID: correlationID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"subject_id":     subjectID,
		"correlation_id": correlationID,
		"type":           req.Type,
	})
}

// roleIn resolves the actor's role inside the command's workspace for
// the policy's role-override rule. Non-members simply carry no role.
func (e *commandEmitter) roleIn(dbc dbctx.Context, workspaceID *uuid.UUID, userID uuid.UUID) string {
	if workspaceID == nil {
		return ""
	}
	member, err := e.members.GetByWorkspaceAndUser(dbc, *workspaceID, userID)
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrNotFound) {
			e.log.Warn("membership lookup failed", "workspace_id", workspaceID, "error", err)
		}
		return ""
	}
	return member.Role
}

// CommandHandler is the generic write endpoint: any registered
// `*.requested` type can be emitted through it. Typed handlers cover
// the common cases; this one covers the rest of the grid.
type CommandHandler struct {
	commandEmitter
}

func NewCommandHandler(gateway *commands.Gateway, members podrepo.MemberRepo, baseLog *logger.Logger) *CommandHandler {
	return &CommandHandler{commandEmitter{
		gateway: gateway,
		members: members,
		log:     baseLog.With("handler", "CommandHandler"),
	}}
}

func (h *CommandHandler) Emit(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.emit(c, userID, req)
}
