package workflow

// Status enumerates workflow execution states as the domain sees them.
type Status string

const (
	StatusRunning        Status = "RUNNING"
	StatusCompleted      Status = "COMPLETED"
	StatusFailed         Status = "FAILED"
	StatusCanceled       Status = "CANCELED"
	StatusTerminated     Status = "TERMINATED"
	StatusTimedOut       Status = "TIMED_OUT"
	StatusContinuedAsNew Status = "CONTINUED_AS_NEW"
	StatusNotFound       Status = "NOT_FOUND"
)

// State is the describe result for a workflow execution: the domain
// status, whether it is final, and a human-readable reason suitable for
// displaying to the task's owner.
type State struct {
	Status     Status `json:"status"`
	IsTerminal bool   `json:"is_terminal"`
	Reason     string `json:"reason"`
}

var stateByStatus = map[Status]State{
	StatusRunning: {
		Status:     StatusRunning,
		IsTerminal: false,
		Reason:     "Task is running.",
	},
	StatusContinuedAsNew: {
		Status:     StatusContinuedAsNew,
		IsTerminal: false,
		Reason:     "Task is running.",
	},
	StatusCompleted: {
		Status:     StatusCompleted,
		IsTerminal: true,
		Reason:     "Task completed successfully.",
	},
	StatusFailed: {
		Status:     StatusFailed,
		IsTerminal: true,
		Reason: "Task encountered terminal failure. " +
			"Please contact support if retrying does not resolve the issue.",
	},
	StatusCanceled: {
		Status:     StatusCanceled,
		IsTerminal: true,
		Reason:     "Task canceled by the user.",
	},
	StatusTerminated: {
		Status:     StatusTerminated,
		IsTerminal: true,
		Reason:     "Task canceled by the user.",
	},
	StatusTimedOut: {
		Status:     StatusTimedOut,
		IsTerminal: true,
		Reason:     "Task timed out. Please contact support if retrying does not resolve the issue",
	},
	StatusNotFound: {
		Status:     StatusNotFound,
		IsTerminal: true,
		Reason:     "Task not found.",
	},
}

// StateFor returns the canonical State for a status, including the
// user-facing reason. Unknown statuses are reported as running so
// callers never treat an unmapped state as final.
func StateFor(status Status) *State {
	if state, ok := stateByStatus[status]; ok {
		return &state
	}
	running := stateByStatus[StatusRunning]
	return &running
}
