package db

import (
	"gorm.io/gorm"

	types "github.com/Synap-core/backend-sub006/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Event log (source of truth)
		// =========================
		&types.Event{},

		// =========================
		// Dispatch queue
		// =========================
		&types.Task{},
		&types.TaskStep{},

		// =========================
		// Projections
		// =========================
		&types.Workspace{},
		&types.WorkspaceMember{},
		&types.Entity{},
		&types.Project{},
		&types.APIKey{},
		&types.Proposal{},
		&types.Template{},
		&types.Message{},
	)
}
