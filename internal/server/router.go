package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/Synap-core/backend-sub006/internal/http/handlers"
	httpMW "github.com/Synap-core/backend-sub006/internal/http/middleware"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	CommandHandler   *httpH.CommandHandler
	EventLogHandler  *httpH.EventLogHandler
	EntityHandler    *httpH.EntityHandler
	ProjectHandler   *httpH.ProjectHandler
	WorkspaceHandler *httpH.WorkspaceHandler
	APIKeyHandler    *httpH.APIKeyHandler
	ProposalHandler  *httpH.ProposalHandler
	TemplateHandler  *httpH.TemplateHandler
	MessageHandler   *httpH.MessageHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())
	r.Use(otelgin.Middleware("datapod"))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Commands (generic write endpoint)
	if cfg.CommandHandler != nil {
		protected.POST("/commands", cfg.CommandHandler.Emit)
	}

	// Event log (reads)
	if cfg.EventLogHandler != nil {
		protected.GET("/events", cfg.EventLogHandler.List)
		protected.GET("/events/count", cfg.EventLogHandler.Count)
		protected.GET("/events/:id", cfg.EventLogHandler.Get)
	}

	// Entities
	if cfg.EntityHandler != nil {
		protected.GET("/entities", cfg.EntityHandler.List)
		protected.GET("/entities/:id", cfg.EntityHandler.Get)
		protected.POST("/entities", cfg.EntityHandler.Create)
		protected.PATCH("/entities/:id", cfg.EntityHandler.Update)
		protected.DELETE("/entities/:id", cfg.EntityHandler.Delete)
	}

	// Projects
	if cfg.ProjectHandler != nil {
		protected.GET("/projects/:id", cfg.ProjectHandler.Get)
		protected.POST("/projects", cfg.ProjectHandler.Create)
		protected.PATCH("/projects/:id", cfg.ProjectHandler.Update)
		protected.DELETE("/projects/:id", cfg.ProjectHandler.Delete)
	}

	// Workspaces and members
	if cfg.WorkspaceHandler != nil {
		protected.POST("/workspaces", cfg.WorkspaceHandler.Create)
		protected.GET("/workspaces/:id", cfg.WorkspaceHandler.Get)
		protected.PATCH("/workspaces/:id", cfg.WorkspaceHandler.Update)
		protected.DELETE("/workspaces/:id", cfg.WorkspaceHandler.Delete)
		protected.GET("/workspaces/:id/members", cfg.WorkspaceHandler.ListMembers)
		protected.POST("/workspaces/:id/members", cfg.WorkspaceHandler.AddMember)
		protected.PATCH("/workspaces/:id/members/:userId", cfg.WorkspaceHandler.UpdateMemberRole)
		protected.DELETE("/workspaces/:id/members/:userId", cfg.WorkspaceHandler.RemoveMember)
	}
	if cfg.ProjectHandler != nil {
		protected.GET("/workspaces/:id/projects", cfg.ProjectHandler.ListByWorkspace)
	}
	if cfg.ProposalHandler != nil {
		protected.GET("/workspaces/:id/proposals", cfg.ProposalHandler.ListPending)
	}

	// API keys
	if cfg.APIKeyHandler != nil {
		protected.GET("/api-keys", cfg.APIKeyHandler.List)
		protected.POST("/api-keys", cfg.APIKeyHandler.Create)
		protected.DELETE("/api-keys/:id", cfg.APIKeyHandler.Delete)
	}

	// Proposals
	if cfg.ProposalHandler != nil {
		protected.POST("/proposals", cfg.ProposalHandler.Submit)
		protected.POST("/proposals/:id/approve", cfg.ProposalHandler.Approve)
		protected.POST("/proposals/:id/reject", cfg.ProposalHandler.Reject)
	}

	// Templates
	if cfg.TemplateHandler != nil {
		protected.GET("/templates", cfg.TemplateHandler.List)
		protected.POST("/templates", cfg.TemplateHandler.Create)
		protected.PATCH("/templates/:id", cfg.TemplateHandler.Update)
		protected.DELETE("/templates/:id", cfg.TemplateHandler.Delete)
	}

	// Messages
	if cfg.MessageHandler != nil {
		protected.GET("/threads/:id/messages", cfg.MessageHandler.ListByThread)
		protected.POST("/messages", cfg.MessageHandler.Create)
		protected.PATCH("/messages/:id", cfg.MessageHandler.Update)
		protected.DELETE("/messages/:id", cfg.MessageHandler.Delete)
	}

	return r
}
