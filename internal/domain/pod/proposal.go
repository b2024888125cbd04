package pod

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Proposal statuses.
const (
	ProposalPending   = "pending"
	ProposalValidated = "validated"
	ProposalRejected  = "rejected"
)

// Proposal is a pending validated-state change awaiting review. Proposals are
// themselves artifacts of the requested->validated flow, so their repository
// never emits log events of its own.
type Proposal struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	WorkspaceID   *uuid.UUID     `gorm:"type:uuid;index" json:"workspace_id,omitempty"`
	TargetType    string         `gorm:"column:target_type;not null;index" json:"target_type"`
	TargetID      string         `gorm:"column:target_id;not null;index" json:"target_id"`
	Change        datatypes.JSON `gorm:"column:change;type:jsonb" json:"change"`
	Status        string         `gorm:"column:status;not null;default:pending;index" json:"status"`
	Reason        string         `gorm:"column:reason;type:text" json:"reason,omitempty"`
	ReviewerID    *uuid.UUID     `gorm:"type:uuid" json:"reviewer_id,omitempty"`
	ReviewedAt    *time.Time     `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	CorrelationID string         `gorm:"column:correlation_id;index" json:"correlation_id,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Proposal) TableName() string { return "proposal" }
