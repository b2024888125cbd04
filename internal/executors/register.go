package executors

import (
	"github.com/Synap-core/backend-sub006/internal/authz"
	"github.com/Synap-core/backend-sub006/internal/commands"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	"github.com/Synap-core/backend-sub006/internal/dispatch"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// Concurrency bounds per family. Backpressure against the database,
// not an ordering guarantee.
const (
	defaultConcurrency   = 10
	validatorConcurrency = 20
)

type Repos struct {
	Entities   podrepo.EntityRepo
	Projects   podrepo.ProjectRepo
	Workspaces podrepo.WorkspaceRepo
	Members    podrepo.MemberRepo
	APIKeys    podrepo.APIKeyRepo
	Templates  podrepo.TemplateRepo
	Messages   podrepo.MessageRepo
}

// RegisterAll binds every family executor plus the global validator
// onto the registry. The validator subscribes to all requested names;
// family executors consume only validated ones. The replay pattern must
// precede the requested catch-all because first match wins.
func RegisterAll(registry *dispatch.Registry, gateway *commands.Gateway, gate *authz.Gate, replay *ReplayExecutor, repos Repos, baseLog *logger.Logger) {
	registry.MustRegister("system.replay.requested", 1, replay)
	registry.MustRegister("*.*.requested", validatorConcurrency, NewValidator(gateway, gate, baseLog))

	registry.MustRegister("entities.*.validated", defaultConcurrency, NewEntityExecutor(repos.Entities, baseLog))
	registry.MustRegister("projects.*.validated", defaultConcurrency, NewProjectExecutor(repos.Projects, baseLog))
	registry.MustRegister("workspaces.*.validated", defaultConcurrency, NewWorkspaceExecutor(repos.Workspaces, repos.Members, baseLog))
	registry.MustRegister("workspace_members.*.validated", defaultConcurrency, NewMemberExecutor(repos.Members, baseLog))
	registry.MustRegister("api_keys.*.validated", defaultConcurrency, NewAPIKeyExecutor(repos.APIKeys, baseLog))
	registry.MustRegister("templates.*.validated", defaultConcurrency, NewTemplateExecutor(repos.Templates, baseLog))
	registry.MustRegister("messages.*.validated", defaultConcurrency, NewMessageExecutor(repos.Messages, baseLog))
}
