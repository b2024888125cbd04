package pod

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/events"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// MemberRepo manages workspace memberships. Its completed events use the
// membership verbs (add/remove/updateRole) instead of create/update/delete.
type MemberRepo interface {
	Add(dbc dbctx.Context, member *types.WorkspaceMember, actorID uuid.UUID, correlationID string) (*types.WorkspaceMember, error)
	Remove(dbc dbctx.Context, workspaceID, userID, actorID uuid.UUID, correlationID string) error
	UpdateRole(dbc dbctx.Context, workspaceID, userID uuid.UUID, role string, actorID uuid.UUID, correlationID string) (*types.WorkspaceMember, error)
	GetByWorkspaceAndUser(dbc dbctx.Context, workspaceID, userID uuid.UUID) (*types.WorkspaceMember, error)
	ListByWorkspace(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.WorkspaceMember, error)
}

type memberRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	emitter CompletedEmitter
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger, emitter CompletedEmitter) MemberRepo {
	return &memberRepo{
		db:      db,
		log:     baseLog.With("repo", "MemberRepo"),
		emitter: emitter,
	}
}

func (r *memberRepo) Add(dbc dbctx.Context, member *types.WorkspaceMember, actorID uuid.UUID, correlationID string) (*types.WorkspaceMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if member.WorkspaceID == uuid.Nil || member.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: membership requires workspace and user ids", pkgerrors.ErrValidation)
	}
	if !validRole(member.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", pkgerrors.ErrValidation, member.Role)
	}
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(member).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "add", member, actorID, correlationID); err != nil {
		return nil, err
	}
	return member, nil
}

func (r *memberRepo) Remove(dbc dbctx.Context, workspaceID, userID, actorID uuid.UUID, correlationID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var member types.WorkspaceMember
	err := transaction.WithContext(dbc.Ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: membership", pkgerrors.ErrNotFound)
	}
	if err != nil {
		return err
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Delete(&types.WorkspaceMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: membership", pkgerrors.ErrNotFound)
	}
	return r.emitCompleted(dbc, "remove", &member, actorID, correlationID)
}

func (r *memberRepo) UpdateRole(dbc dbctx.Context, workspaceID, userID uuid.UUID, role string, actorID uuid.UUID, correlationID string) (*types.WorkspaceMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if !validRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", pkgerrors.ErrValidation, role)
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Updates(map[string]any{"role": role, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: membership", pkgerrors.ErrNotFound)
	}
	var member types.WorkspaceMember
	if err := transaction.WithContext(dbc.Ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	if err := r.emitCompleted(dbc, "updateRole", &member, actorID, correlationID); err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) GetByWorkspaceAndUser(dbc dbctx.Context, workspaceID, userID uuid.UUID) (*types.WorkspaceMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var member types.WorkspaceMember
	err := transaction.WithContext(dbc.Ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: membership", pkgerrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) ListByWorkspace(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.WorkspaceMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WorkspaceMember
	if workspaceID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memberRepo) emitCompleted(dbc dbctx.Context, action string, member *types.WorkspaceMember, actorID uuid.UUID, correlationID string) error {
	name := events.Name{Family: events.FamilyWorkspaceMembers, Action: action, Phase: events.PhaseCompleted}
	data := map[string]any{
		"id":           member.ID.String(),
		"workspace_id": member.WorkspaceID.String(),
		"user_id":      member.UserID.String(),
		"role":         member.Role,
	}
	return r.emitter.EmitCompleted(dbc, name, "workspace_member", member.ID.String(), actorID, data, correlationID)
}

func validRole(role string) bool {
	switch role {
	case types.RoleViewer, types.RoleEditor, types.RoleAdmin, types.RoleOwner:
		return true
	default:
		return false
	}
}
