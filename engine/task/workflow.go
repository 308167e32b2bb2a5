package task

import "github.com/agentplane/agentplane/engine/agent"

// WorkflowInput is the argument of the task workflow. The agent carries its
// runtime fields (model, instructions, actions) hydrated from the agent
// spec at task-creation time, so the workflow never reads the database to
// decide what tools exist.
type WorkflowInput struct {
	Task            Task        `json:"task"`
	Agent           agent.Agent `json:"agent"`
	RequireApproval bool        `json:"require_approval"`
}

// Result is what the task workflow returns once the tool loop finishes.
// Content carries the agent's final assistant message.
type Result struct {
	Status  string `json:"status"`
	Content string `json:"content"`
}
