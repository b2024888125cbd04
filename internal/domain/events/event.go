package events

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event source provenance tags.
const (
	SourceAPI        = "api"
	SourceAutomation = "automation"
	SourceSync       = "sync"
	SourceMigration  = "migration"
)

// Event is the immutable unit of truth. Rows are append-only: nothing in the
// codebase updates or deletes them, and the table is the source from which
// every projection can be rebuilt.
type Event struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Type          string         `gorm:"column:type;not null;index:idx_event_type_created,priority:1" json:"type"`
	SubjectID     string         `gorm:"column:subject_id;not null;index" json:"subject_id"`
	SubjectType   string         `gorm:"column:subject_type;not null;index" json:"subject_type"`
	Data          datatypes.JSON `gorm:"column:data;type:jsonb" json:"data"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Source        string         `gorm:"column:source;not null" json:"source"`
	CorrelationID string         `gorm:"column:correlation_id;index" json:"correlation_id,omitempty"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_event_type_created,priority:2" json:"created_at"`
}

func (Event) TableName() string { return "event_log" }
