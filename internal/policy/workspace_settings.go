package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Synap-core/backend-sub006/internal/domain"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
)

// gormSettings reads validation overrides out of the workspace row's
// settings document, under the "validation" key:
//
//	{"validation": {"entity": true, "entity.delete": false}}
type gormSettings struct {
	db *gorm.DB
}

func NewWorkspaceSettings(db *gorm.DB) WorkspaceSettings {
	return &gormSettings{db: db}
}

func (g *gormSettings) ValidationOverrides(ctx context.Context, workspaceID uuid.UUID) (map[string]bool, error) {
	var ws types.Workspace
	err := g.db.WithContext(ctx).
		Where("id = ?", workspaceID).
		First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: workspace %s", pkgerrors.ErrNotFound, workspaceID)
	}
	if err != nil {
		return nil, fmt.Errorf("load workspace %s: %w", workspaceID, err)
	}
	if len(ws.Settings) == 0 {
		return map[string]bool{}, nil
	}

	var doc struct {
		Validation map[string]bool `json:"validation"`
	}
	if err := json.Unmarshal(ws.Settings, &doc); err != nil {
		return nil, fmt.Errorf("%w: workspace %s settings: %v", pkgerrors.ErrValidation, workspaceID, err)
	}
	if doc.Validation == nil {
		return map[string]bool{}, nil
	}
	return doc.Validation, nil
}
