package tasks

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Task statuses.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusDead    = "dead"
)

// Task is one durable dispatch of an event to an executor. Delivery is
// at-least-once: a claimed row whose heartbeat goes stale is re-claimed by
// another worker, so executors must be idempotent.
type Task struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null;index" json:"name"`
	EventID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"event_id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error       string         `gorm:"column:error;type:text" json:"error,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Task) TableName() string { return "task" }

// TaskStep records a completed durable step inside a task execution. On
// redelivery a step whose (task_id, label) row exists is skipped and its
// stored result replayed, which is what makes retries idempotent-safe.
type TaskStep struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uniq_task_step,priority:1" json:"task_id"`
	Label       string         `gorm:"column:label;not null;uniqueIndex:uniq_task_step,priority:2" json:"label"`
	Result      datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	CompletedAt time.Time      `gorm:"not null" json:"completed_at"`
}

func (TaskStep) TableName() string { return "task_step" }
