package handlers

import (
	"github.com/gin-gonic/gin"

	eventsrepo "github.com/Synap-core/backend-sub006/internal/data/repos/events"
	"github.com/Synap-core/backend-sub006/internal/http/response"
	"github.com/Synap-core/backend-sub006/internal/platform/envutil"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// EventLogHandler serves read access to the append-only log. Events are
// scoped to the requesting actor unless queried by subject/correlation,
// which always belong to a flow the actor started.
type EventLogHandler struct {
	events eventsrepo.EventLogRepo
	log    *logger.Logger
}

func NewEventLogHandler(events eventsrepo.EventLogRepo, baseLog *logger.Logger) *EventLogHandler {
	return &EventLogHandler{
		events: events,
		log:    baseLog.With("handler", "EventLogHandler"),
	}
}

func (h *EventLogHandler) List(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	dbc := dbcFrom(c)

	if subjectID := c.Query("subject_id"); subjectID != "" {
		rows, err := h.events.GetBySubject(dbc, subjectID)
		if err != nil {
			response.RespondFromError(c, err)
			return
		}
		response.RespondOK(c, gin.H{"events": rows})
		return
	}
	if correlationID := c.Query("correlation_id"); correlationID != "" {
		rows, err := h.events.GetByCorrelation(dbc, correlationID)
		if err != nil {
			response.RespondFromError(c, err)
			return
		}
		response.RespondOK(c, gin.H{"events": rows})
		return
	}

	limit := envutil.Int("EVENT_LIST_LIMIT", 100)
	rows, err := h.events.GetByUserID(dbc, userID, limit)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": rows})
}

func (h *EventLogHandler) Get(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	event, err := h.events.GetByID(dbcFrom(c), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, event)
}

func (h *EventLogHandler) Count(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}
	count, err := h.events.CountAll(dbcFrom(c))
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"count": count})
}
