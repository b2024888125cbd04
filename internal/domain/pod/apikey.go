package pod

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type APIKey struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	WorkspaceID *uuid.UUID     `gorm:"type:uuid;index" json:"workspace_id,omitempty"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	// KeyHash is a bcrypt hash of the secret; the plaintext is shown once at
	// creation and never stored.
	KeyHash    string         `gorm:"column:key_hash;not null" json:"-"`
	KeyPrefix  string         `gorm:"column:key_prefix;not null;index" json:"key_prefix"`
	LastUsedAt *time.Time     `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (APIKey) TableName() string { return "api_key" }
