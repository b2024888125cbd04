package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Synap-core/backend-sub006/internal/authz"
	"github.com/Synap-core/backend-sub006/internal/commands"
	eventsrepo "github.com/Synap-core/backend-sub006/internal/data/repos/events"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	tasksrepo "github.com/Synap-core/backend-sub006/internal/data/repos/tasks"
	"github.com/Synap-core/backend-sub006/internal/db"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/executors"
	httpH "github.com/Synap-core/backend-sub006/internal/http/handlers"
	httpMW "github.com/Synap-core/backend-sub006/internal/http/middleware"
	"github.com/Synap-core/backend-sub006/internal/observability"
	"github.com/Synap-core/backend-sub006/internal/platform/envutil"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
	"github.com/Synap-core/backend-sub006/internal/policy"
	"github.com/Synap-core/backend-sub006/internal/realtime/bus"
	"github.com/Synap-core/backend-sub006/internal/server"
	"github.com/Synap-core/backend-sub006/internal/services"
	"github.com/Synap-core/backend-sub006/internal/temporalx"
	"github.com/Synap-core/backend-sub006/internal/temporalx/eventflow"
	"github.com/Synap-core/backend-sub006/internal/temporalx/temporalworker"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "datapod"),
		Environment: envutil.String("APP_ENV", "development"),
	})
	defer otelShutdown(context.Background())

	// Env
	jwtSecretKey := envutil.String("JWT_SECRET_KEY", "")
	if jwtSecretKey == "" {
		log.Error("JWT_SECRET_KEY is required")
		os.Exit(1)
	}
	accessTTL := envutil.DurationSeconds("ACCESS_TOKEN_TTL", 3600)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()
	if err := db.AutoMigrateAll(thePG); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}

	// Infra repos
	log.Info("Setting up repos from main...")
	eventLogRepo := eventsrepo.NewEventLogRepo(thePG, log)
	taskRepo := tasksrepo.NewTaskRepo(thePG, log)
	taskStepRepo := tasksrepo.NewTaskStepRepo(thePG, log)

	// Validation policy
	defaults := policy.BuiltinDefaults()
	if path := envutil.String("POLICY_DEFAULTS", ""); path != "" {
		defaults, err = policy.LoadDefaults(path)
		if err != nil {
			log.Error("Could not load policy defaults", "path", path, "error", err)
			os.Exit(1)
		}
	}
	policyService := policy.NewService(log, policy.NewWorkspaceSettings(thePG), defaults)

	// Dispatch driver. Temporal when configured, DB queue otherwise.
	registry := dispatch.NewRegistry()
	var dispatcher dispatch.Dispatcher
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Temporal client init failed", "error", err)
		os.Exit(1)
	}
	if tc != nil {
		defer tc.Close()
		dispatcher = eventflow.NewDispatcher(tc, temporalx.LoadConfig().TaskQueue, log)
	} else {
		dispatcher = dispatch.NewQueueDispatcher(taskRepo, log)
	}

	// Realtime fanout
	var publisher commands.Publisher
	if envutil.String("REDIS_ADDR", "") != "" {
		redisBus, err := bus.NewRedisBus(log)
		if err != nil {
			log.Error("Could not init Redis bus", "error", err)
			os.Exit(1)
		}
		defer redisBus.Close()
		publisher = redisBus
	}

	// Command gateway
	gateway := commands.NewGateway(eventLogRepo, dispatcher, policyService, publisher, log)

	// Projection repos
	entityRepo := podrepo.NewEntityRepo(thePG, log, gateway)
	projectRepo := podrepo.NewProjectRepo(thePG, log, gateway)
	workspaceRepo := podrepo.NewWorkspaceRepo(thePG, log, gateway)
	memberRepo := podrepo.NewMemberRepo(thePG, log, gateway)
	apiKeyRepo := podrepo.NewAPIKeyRepo(thePG, log, gateway)
	templateRepo := podrepo.NewTemplateRepo(thePG, log, gateway)
	messageRepo := podrepo.NewMessageRepo(thePG, log, gateway)
	proposalRepo := podrepo.NewProposalRepo(thePG, log)

	// Executors
	gate := authz.NewGate(memberRepo, log)
	replayExec := executors.NewReplayExecutor(eventLogRepo, dispatcher, log)
	executors.RegisterAll(registry, gateway, gate, replayExec, executors.Repos{
		Entities:   entityRepo,
		Projects:   projectRepo,
		Workspaces: workspaceRepo,
		Members:    memberRepo,
		APIKeys:    apiKeyRepo,
		Templates:  templateRepo,
		Messages:   messageRepo,
	}, log)

	// Task consumers
	if tc != nil {
		runner, err := temporalworker.NewRunner(log, tc, thePG, taskStepRepo, registry)
		if err != nil {
			log.Error("Could not init Temporal worker", "error", err)
			os.Exit(1)
		}
		if err := runner.Start(ctx); err != nil {
			log.Error("Temporal worker failed to start", "error", err)
			os.Exit(1)
		}
	} else {
		worker := dispatch.NewWorker(taskRepo, taskStepRepo, registry, dispatch.DefaultWorkerConfig(), log)
		go worker.Run(ctx)
	}

	// Services
	log.Info("Setting up services from main...")
	authService := services.NewAuthService(log, apiKeyRepo, jwtSecretKey, accessTTL)
	proposalService := services.NewProposalService(proposalRepo, gateway, log)
	workspaceService := services.NewWorkspaceService(workspaceRepo, memberRepo, gateway, log)

	// Handlers
	log.Info("Setting up handlers from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, authService),

		HealthHandler:    httpH.NewHealthHandler(thePG),
		CommandHandler:   httpH.NewCommandHandler(gateway, memberRepo, log),
		EventLogHandler:  httpH.NewEventLogHandler(eventLogRepo, log),
		EntityHandler:    httpH.NewEntityHandler(entityRepo, gateway, memberRepo, log),
		ProjectHandler:   httpH.NewProjectHandler(projectRepo, gateway, memberRepo, log),
		WorkspaceHandler: httpH.NewWorkspaceHandler(workspaceService, gate, gateway, memberRepo, log),
		APIKeyHandler:    httpH.NewAPIKeyHandler(authService, apiKeyRepo, gateway, memberRepo, log),
		ProposalHandler:  httpH.NewProposalHandler(proposalRepo, proposalService, gate, log),
		TemplateHandler:  httpH.NewTemplateHandler(templateRepo, gateway, memberRepo, log),
		MessageHandler:   httpH.NewMessageHandler(messageRepo, gateway, memberRepo, log),
	})

	port := envutil.String("PORT", "8080")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown", "error", err)
	}
}
