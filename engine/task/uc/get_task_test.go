package uc_test

import (
	"context"
	"testing"
	"time"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/agentplane/agentplane/engine/task/uc"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoredTask(t *testing.T, status string, reason string) *task.Task {
	t.Helper()
	now := time.Now().UTC()
	stored := &task.Task{
		ID:        core.MustNewID(),
		AgentID:   core.MustNewID(),
		Prompt:    "Summarize the latest report",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status != "" {
		stored.SetStatus(status, reason)
	}
	return stored
}

func TestGetTask(t *testing.T) {
	t.Run("Should refresh a non-terminal status from the workflow engine", func(t *testing.T) {
		stored := newStoredTask(t, string(workflow.StatusRunning), "Task is running.")
		tasks := newFakeTaskRepo(stored)
		engine := &fakeEngine{states: map[string]*workflow.State{
			stored.ID.String(): workflow.StateFor(workflow.StatusCompleted),
		}}

		out, err := uc.NewGetTask(tasks, engine, newFakeStateStore(), stored.ID).Execute(context.Background())
		require.NoError(t, err)
		require.NotNil(t, out.Status)
		assert.Equal(t, string(workflow.StatusCompleted), *out.Status)
		require.NotNil(t, out.State)
		assert.Equal(t, workflow.StatusCompleted, out.State.Status)
		assert.True(t, out.State.IsTerminal)
		assert.Equal(t, []string{string(workflow.StatusCompleted)}, tasks.statusUpdates)
	})

	t.Run("Should not persist when the stored status is current", func(t *testing.T) {
		stored := newStoredTask(t, string(workflow.StatusRunning), "Task is running.")
		tasks := newFakeTaskRepo(stored)
		engine := &fakeEngine{states: map[string]*workflow.State{
			stored.ID.String(): workflow.StateFor(workflow.StatusRunning),
		}}

		out, err := uc.NewGetTask(tasks, engine, newFakeStateStore(), stored.ID).Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, engine.describes)
		assert.Empty(t, tasks.statusUpdates)
		require.NotNil(t, out.Status)
		assert.Equal(t, string(workflow.StatusRunning), *out.Status)
	})

	t.Run("Should serve a terminal status without querying the engine", func(t *testing.T) {
		stored := newStoredTask(t, string(workflow.StatusCompleted), "Task completed successfully.")
		tasks := newFakeTaskRepo(stored)
		engine := &fakeEngine{}

		out, err := uc.NewGetTask(tasks, engine, newFakeStateStore(), stored.ID).Execute(context.Background())
		require.NoError(t, err)
		assert.Zero(t, engine.describes)
		require.NotNil(t, out.State)
		assert.Equal(t, workflow.StatusCompleted, out.State.Status)
		assert.True(t, out.State.IsTerminal)
	})

	t.Run("Should resolve a fresh task with no stored status", func(t *testing.T) {
		stored := newStoredTask(t, "", "")
		tasks := newFakeTaskRepo(stored)
		engine := &fakeEngine{states: map[string]*workflow.State{
			stored.ID.String(): workflow.StateFor(workflow.StatusRunning),
		}}

		out, err := uc.NewGetTask(tasks, engine, newFakeStateStore(), stored.ID).Execute(context.Background())
		require.NoError(t, err)
		require.NotNil(t, out.Status)
		assert.Equal(t, string(workflow.StatusRunning), *out.Status)
		assert.Equal(t, []string{string(workflow.StatusRunning)}, tasks.statusUpdates)
	})

	t.Run("Should include the stored conversation", func(t *testing.T) {
		stored := newStoredTask(t, string(workflow.StatusCompleted), "Task completed successfully.")
		tasks := newFakeTaskRepo(stored)
		states := newFakeStateStore()
		blob := state.NewAgentState()
		blob.Messages = append(blob.Messages,
			llm.UserMessage("Summarize the latest report"),
			llm.AssistantMessage("Here is the summary."),
		)
		blob.Context["iterations"] = 2
		states.blobs[stored.ID] = blob

		out, err := uc.NewGetTask(tasks, &fakeEngine{}, states, stored.ID).Execute(context.Background())
		require.NoError(t, err)
		require.Len(t, out.Messages, 2)
		assert.Equal(t, llm.RoleAssistant, out.Messages[1].Role)
		assert.Equal(t, 2, out.Context["iterations"])
	})

	t.Run("Should return an empty conversation for an unseen task", func(t *testing.T) {
		stored := newStoredTask(t, string(workflow.StatusCompleted), "Task completed successfully.")
		tasks := newFakeTaskRepo(stored)

		out, err := uc.NewGetTask(tasks, &fakeEngine{}, newFakeStateStore(), stored.ID).Execute(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, out.Messages)
		assert.Empty(t, out.Messages)
	})

	t.Run("Should return NOT_FOUND for an unknown task", func(t *testing.T) {
		tasks := newFakeTaskRepo()

		_, err := uc.NewGetTask(tasks, &fakeEngine{}, newFakeStateStore(), core.MustNewID()).Execute(context.Background())
		require.Error(t, err)
		assert.True(t, core.IsCode(err, core.CodeNotFound))
	})
}

func TestListTasks(t *testing.T) {
	t.Run("Should list stored tasks as-is", func(t *testing.T) {
		first := newStoredTask(t, string(workflow.StatusRunning), "Task is running.")
		second := newStoredTask(t, string(workflow.StatusCompleted), "Task completed successfully.")
		tasks := newFakeTaskRepo(first, second)

		listed, err := uc.NewListTasks(tasks).Execute(context.Background())
		require.NoError(t, err)
		assert.Len(t, listed, 2)
	})

	t.Run("Should return an empty slice when no tasks exist", func(t *testing.T) {
		listed, err := uc.NewListTasks(newFakeTaskRepo()).Execute(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, listed)
		assert.Empty(t, listed)
	})
}
