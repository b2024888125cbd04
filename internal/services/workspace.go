package services

import (
	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/commands"
	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// WorkspaceService routes workspace commands into the event flow. The
// executor creates the row and bootstraps the owner membership; callers
// get back the accepted subject id, not the row.
type WorkspaceService interface {
	Create(dbc dbctx.Context, userID uuid.UUID, name, correlationID string) (uuid.UUID, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Workspace, error)
	Members(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.WorkspaceMember, error)
}

type workspaceService struct {
	workspaces podrepo.WorkspaceRepo
	members    podrepo.MemberRepo
	gateway    *commands.Gateway
	log        *logger.Logger
}

func NewWorkspaceService(workspaces podrepo.WorkspaceRepo, members podrepo.MemberRepo, gateway *commands.Gateway, baseLog *logger.Logger) WorkspaceService {
	return &workspaceService{
		workspaces: workspaces,
		members:    members,
		gateway:    gateway,
		log:        baseLog.With("service", "WorkspaceService"),
	}
}

func (s *workspaceService) Create(dbc dbctx.Context, userID uuid.UUID, name, correlationID string) (uuid.UUID, error) {
	subjectID := uuid.New()
	err := s.gateway.EmitRequestEvent(dbc, commands.Input{
		Type:          "workspaces.create.requested",
		SubjectID:     subjectID.String(),
		SubjectType:   "workspace",
		Data:          map[string]any{"name": name},
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return subjectID, nil
}

func (s *workspaceService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Workspace, error) {
	return s.workspaces.GetByID(dbc, id)
}

func (s *workspaceService) Members(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.WorkspaceMember, error) {
	return s.members.ListByWorkspace(dbc, workspaceID)
}
