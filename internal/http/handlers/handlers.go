package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/http/response"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/requestdata"
)

func dbcFrom(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// actorID pulls the authenticated user out of the request context. The
// auth middleware guarantees it for protected routes; a missing actor
// here is a wiring bug surfaced as 401.
func actorID(c *gin.Context) (uuid.UUID, bool) {
	userID := requestdata.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized",
			fmt.Errorf("%w: no actor identity", pkgerrors.ErrUnauthorized))
		return uuid.Nil, false
	}
	return userID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id",
			fmt.Errorf("%w: %s is not a uuid", pkgerrors.ErrValidation, name))
		return uuid.Nil, false
	}
	return id, true
}

// sourceFor tags provenance: API-key callers are automations, browser
// sessions are plain api traffic.
func sourceFor(c *gin.Context) string {
	if rd := requestdata.Get(c.Request.Context()); rd != nil && rd.AuthKind == requestdata.KindAPIKey {
		return types.SourceAutomation
	}
	return types.SourceAPI
}

func orNewCorrelation(correlationID string) string {
	if correlationID != "" {
		return correlationID
	}
	return uuid.NewString()
}
