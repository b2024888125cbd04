package eventflow

const (
	WorkflowName = "event_flow"
	ActivityRun  = "event_flow_run"

	// PermanentErrorType marks application errors the retry policy must
	// not retry: validation, authorization, and missing-row failures.
	PermanentErrorType = "permanent"
)
