package task

import (
	"time"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/workflow"
)

// Task is the persisted record of one prompt submitted to an agent. Its ID
// doubles as the task workflow ID and as the key of the conversational
// state blob in Redis.
type Task struct {
	ID           core.ID   `db:"id,pk"         json:"id"`
	AgentID      core.ID   `db:"agent_id"      json:"agent_id"`
	Prompt       string    `db:"prompt"        json:"prompt"`
	Status       *string   `db:"status"        json:"status,omitempty"`
	StatusReason *string   `db:"status_reason" json:"status_reason,omitempty"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

// SetStatus records the last observed workflow state on the row.
func (t *Task) SetStatus(status string, reason string) {
	t.Status = &status
	if reason == "" {
		t.StatusReason = nil
		return
	}
	t.StatusReason = &reason
}

// IsTerminal reports whether the stored status is final. Rows that never
// observed a workflow state count as non-terminal so reads keep polling
// the engine until one is recorded.
func (t *Task) IsTerminal() bool {
	if t.Status == nil {
		return false
	}
	return workflow.StateFor(workflow.Status(*t.Status)).IsTerminal
}
