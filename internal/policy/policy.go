// Package policy decides whether a command needs to pass through the
// global validator before execution. Evaluation is a pure function of
// the actor's role, the workspace's stored configuration, and the
// per-subject-type defaults; it never mutates state.
package policy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// Rule sources, recorded on every result for the audit trail.
const (
	SourceRoleOverride    = "role-override"
	SourceWorkspaceConfig = "workspace-config"
	SourceSubjectDefault  = "subject-type-default"
)

type Input struct {
	Operation   string
	SubjectType string
	WorkspaceID *uuid.UUID
	ProjectID   *uuid.UUID
	UserRole    string
}

type Result struct {
	RequiresValidation bool
	Reason             string
	Source             string
}

// WorkspaceSettings reads the per-workspace validation overrides. Keys
// are subject types ("entity") or operation-qualified subject types
// ("entity.delete"); the more specific key wins.
type WorkspaceSettings interface {
	ValidationOverrides(ctx context.Context, workspaceID uuid.UUID) (map[string]bool, error)
}

type Service struct {
	log      *logger.Logger
	settings WorkspaceSettings
	defaults Defaults
}

// NewService wires the evaluator. settings may be nil when no workspace
// store is available (the workspace-config rule is then skipped).
func NewService(baseLog *logger.Logger, settings WorkspaceSettings, defaults Defaults) *Service {
	return &Service{
		log:      baseLog.With("component", "policy"),
		settings: settings,
		defaults: defaults,
	}
}

// Evaluate applies the rules in fixed order: role override, then
// workspace configuration, then subject-type default. A settings store
// failure is returned as an error so the caller aborts the emission
// instead of silently skipping validation.
func (s *Service) Evaluate(ctx context.Context, in Input) (Result, error) {
	if in.UserRole == "admin" || in.UserRole == "owner" {
		return Result{
			RequiresValidation: false,
			Reason:             fmt.Sprintf("%s role bypasses validation", in.UserRole),
			Source:             SourceRoleOverride,
		}, nil
	}

	if s.settings != nil && in.WorkspaceID != nil {
		overrides, err := s.settings.ValidationOverrides(ctx, *in.WorkspaceID)
		if err != nil {
			return Result{}, fmt.Errorf("workspace validation settings: %w", err)
		}
		qualified := in.SubjectType + "." + in.Operation
		if required, ok := overrides[qualified]; ok {
			return s.configured(qualified, required), nil
		}
		if required, ok := overrides[in.SubjectType]; ok {
			return s.configured(in.SubjectType, required), nil
		}
	}

	required := s.defaults.For(in.SubjectType)
	return Result{
		RequiresValidation: required,
		Reason:             fmt.Sprintf("default for subject type %q", in.SubjectType),
		Source:             SourceSubjectDefault,
	}, nil
}

func (s *Service) configured(key string, required bool) Result {
	return Result{
		RequiresValidation: required,
		Reason:             fmt.Sprintf("workspace override for %q", key),
		Source:             SourceWorkspaceConfig,
	}
}
