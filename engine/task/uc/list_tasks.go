package uc

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/task"
)

// ListTasks retrieves all task rows, newest first. Listings serve the
// stored status as-is; the read-through refresh happens on single-task
// reads only.
type ListTasks struct {
	tasks task.Repository
}

func NewListTasks(tasks task.Repository) *ListTasks {
	return &ListTasks{tasks: tasks}
}

func (uc *ListTasks) Execute(ctx context.Context) ([]task.Task, error) {
	tasks, err := uc.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}
