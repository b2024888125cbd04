package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	tasksrepo "github.com/Synap-core/backend-sub006/internal/data/repos/tasks"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
)

// StepContext gives an executor durably memoized units of work. A step
// that completed on a previous delivery of the same task is skipped and
// its recorded result replayed, which is what makes at-least-once
// delivery safe for non-idempotent mutations.
type StepContext struct {
	taskID uuid.UUID
	dbc    dbctx.Context
	steps  tasksrepo.TaskStepRepo
	log    *logger.Logger
}

func NewStepContext(taskID uuid.UUID, dbc dbctx.Context, steps tasksrepo.TaskStepRepo, baseLog *logger.Logger) *StepContext {
	return &StepContext{
		taskID: taskID,
		dbc:    dbc,
		steps:  steps,
		log:    baseLog.With("task_id", taskID),
	}
}

// Run executes fn at most once per (task, label). The returned result
// map is persisted with the completion record; on a replayed step it is
// decoded from that record instead of re-running fn.
func (s *StepContext) Run(label string, fn func() (map[string]any, error)) (map[string]any, error) {
	done, err := s.steps.GetCompleted(s.dbc, s.taskID, label)
	if err != nil {
		return nil, fmt.Errorf("step %q lookup: %w", label, err)
	}
	if done != nil {
		s.log.Debug("step already completed, replaying result", "label", label)
		return decodeStepResult(done.Result)
	}

	result, err := fn()
	if err != nil {
		return nil, err
	}

	var raw datatypes.JSON
	if result != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("step %q result: %w", label, err)
		}
		raw = datatypes.JSON(encoded)
	}
	if err := s.steps.RecordCompleted(s.dbc, s.taskID, label, raw); err != nil {
		return nil, fmt.Errorf("step %q record: %w", label, err)
	}
	return result, nil
}

func decodeStepResult(raw datatypes.JSON) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode step result: %w", err)
	}
	return out, nil
}
