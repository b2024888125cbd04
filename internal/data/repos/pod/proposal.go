package pod

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// ProposalRepo deliberately takes no CompletedEmitter. Proposals are a
// manifestation of the requested->validated flow itself; logging their
// mutations would double-record the same transition.
type ProposalRepo interface {
	Create(dbc dbctx.Context, p *types.Proposal) (*types.Proposal, error)
	SetStatus(dbc dbctx.Context, id uuid.UUID, status string, reviewerID uuid.UUID) (*types.Proposal, error)
	Delete(dbc dbctx.Context, id, userID uuid.UUID) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Proposal, error)
	ListPending(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.Proposal, error)
}

type proposalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProposalRepo(db *gorm.DB, baseLog *logger.Logger) ProposalRepo {
	return &proposalRepo{
		db:  db,
		log: baseLog.With("repo", "ProposalRepo"),
	}
}

func (r *proposalRepo) Create(dbc dbctx.Context, p *types.Proposal) (*types.Proposal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if p.UserID == uuid.Nil || p.TargetType == "" || p.TargetID == "" {
		return nil, fmt.Errorf("%w: proposal requires user, target type and target id", pkgerrors.ErrValidation)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = types.ProposalPending
	}
	if err := transaction.WithContext(dbc.Ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *proposalRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, status string, reviewerID uuid.UUID) (*types.Proposal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	switch status {
	case types.ProposalValidated, types.ProposalRejected:
	default:
		return nil, fmt.Errorf("%w: invalid proposal status %q", pkgerrors.ErrValidation, status)
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Proposal{}).
		Where("id = ? AND status = ?", id, types.ProposalPending).
		Updates(map[string]any{
			"status":      status,
			"reviewer_id": reviewerID,
			"reviewed_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: pending proposal %s", pkgerrors.ErrNotFound, id)
	}
	return r.GetByID(dbc, id)
}

func (r *proposalRepo) Delete(dbc dbctx.Context, id, userID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Proposal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: proposal %s", pkgerrors.ErrNotFound, id)
	}
	return nil
}

func (r *proposalRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Proposal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.Proposal
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: proposal %s", pkgerrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *proposalRepo) ListPending(dbc dbctx.Context, workspaceID uuid.UUID) ([]*types.Proposal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Proposal
	q := transaction.WithContext(dbc.Ctx).Where("status = ?", types.ProposalPending)
	if workspaceID != uuid.Nil {
		q = q.Where("workspace_id = ?", workspaceID)
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
