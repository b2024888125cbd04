package eventflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow drives one event through its executor. Retries live in the
// activity's retry policy; permanent failures are non-retryable and
// fail the workflow, which is the observable terminal state.
func Workflow(ctx workflow.Context, payload []byte) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{PermanentErrorType},
		},
	})
	return workflow.ExecuteActivity(ctx, ActivityRun, payload).Get(ctx, nil)
}
