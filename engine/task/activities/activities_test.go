package activities_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/infra/server/router/routertest"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/agentplane/agentplane/engine/task/activities"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	configs []*llm.Config
	choice  *llm.Choice
	err     error
}

func (f *fakeGateway) Completion(_ context.Context, cfg *llm.Config) (*llm.Choice, error) {
	f.configs = append(f.configs, cfg)
	if f.err != nil {
		return nil, f.err
	}
	return f.choice, nil
}

func (f *fakeGateway) Close() error { return nil }

func newTestStates(t *testing.T) *state.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return state.NewService(state.NewRedisRepository(client))
}

func testTask() task.Task {
	now := time.Now().UTC()
	return task.Task{
		ID:        core.MustNewID(),
		AgentID:   core.MustNewID(),
		Prompt:    "Summarize the latest changes.",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testAgent() agent.Agent {
	return agent.Agent{
		ID:           core.MustNewID(),
		Name:         "writer",
		Model:        "gpt-4o-mini",
		Instructions: "You are a research assistant.",
		Actions: []agent.Action{{
			Schema: agent.ActionSchema{
				Name:        "search",
				Description: "Search the corpus.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{"type": "string"},
					},
					"required": []any{"query"},
				},
			},
		}},
	}
}

func TestInitTaskState(t *testing.T) {
	t.Run("Should seed instructions and prompt", func(t *testing.T) {
		states := newTestStates(t)
		tk := testTask()
		act := activities.NewInitTaskState(states)

		err := act.Run(context.Background(), &activities.InitTaskStateInput{
			Task: tk, Agent: testAgent(),
		})

		require.NoError(t, err)
		messages, err := states.Messages.GetAll(context.Background(), tk.ID)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, llm.RoleSystem, messages[0].Role)
		assert.Equal(t, "You are a research assistant.", messages[0].Content)
		assert.Equal(t, llm.RoleUser, messages[1].Role)
		assert.Equal(t, tk.Prompt, messages[1].Content)
	})
	t.Run("Should seed only the prompt when instructions are empty", func(t *testing.T) {
		states := newTestStates(t)
		tk := testTask()
		a := testAgent()
		a.Instructions = ""
		act := activities.NewInitTaskState(states)

		err := act.Run(context.Background(), &activities.InitTaskStateInput{Task: tk, Agent: a})

		require.NoError(t, err)
		messages, err := states.Messages.GetAll(context.Background(), tk.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, llm.RoleUser, messages[0].Role)
	})
}

func TestDecideAction(t *testing.T) {
	t.Run("Should send the conversation and tools to the model", func(t *testing.T) {
		states := newTestStates(t)
		tk := testTask()
		a := testAgent()
		require.NoError(t, states.Messages.BatchAppend(context.Background(), tk.ID, []llm.Message{
			llm.SystemMessage(a.Instructions),
			llm.UserMessage(tk.Prompt),
		}))
		gateway := &fakeGateway{choice: &llm.Choice{
			FinishReason: llm.FinishReasonToolCalls,
			Message: llm.AssistantMessage("", llm.ToolCall{
				ID:       "call_1",
				Type:     llm.ToolCallTypeFunction,
				Function: llm.FunctionCall{Name: "search", Arguments: `{"query":"go"}`},
			}),
		}}
		act := activities.NewDecideAction(states, gateway)

		out, err := act.Run(context.Background(), &activities.DecideActionInput{Task: tk, Agent: a})

		require.NoError(t, err)
		assert.Equal(t, llm.FinishReasonToolCalls, out.FinishReason)
		require.Len(t, gateway.configs, 1)
		cfg := gateway.configs[0]
		assert.Equal(t, "gpt-4o-mini", cfg.Model)
		require.Len(t, cfg.Messages, 2)
		require.Len(t, cfg.Tools, 1)
		assert.Equal(t, "search", cfg.Tools[0].Name)
		assert.Equal(t, "Search the corpus.", cfg.Tools[0].Description)
	})
	t.Run("Should append the assistant message to the conversation", func(t *testing.T) {
		states := newTestStates(t)
		tk := testTask()
		gateway := &fakeGateway{choice: &llm.Choice{
			FinishReason: llm.FinishReasonStop,
			Message:      llm.AssistantMessage("All done."),
		}}
		act := activities.NewDecideAction(states, gateway)

		_, err := act.Run(context.Background(), &activities.DecideActionInput{
			Task: tk, Agent: testAgent(),
		})

		require.NoError(t, err)
		messages, err := states.Messages.GetAll(context.Background(), tk.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, llm.RoleAssistant, messages[0].Role)
		assert.Equal(t, "All done.", messages[0].Content)
	})
	t.Run("Should not touch the conversation when the model errors", func(t *testing.T) {
		states := newTestStates(t)
		tk := testTask()
		gateway := &fakeGateway{err: assert.AnError}
		act := activities.NewDecideAction(states, gateway)

		_, err := act.Run(context.Background(), &activities.DecideActionInput{
			Task: tk, Agent: testAgent(),
		})

		assert.ErrorIs(t, err, assert.AnError)
		messages, err := states.Messages.GetAll(context.Background(), tk.ID)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})
}

func TestTakeAction(t *testing.T) {
	t.Run("Should call the action server and record the tool message", func(t *testing.T) {
		states := newTestStates(t)
		tk := testTask()
		p := &routertest.StubPlatform{Response: map[string]any{"results": []any{"doc-1"}}}
		act := activities.NewTakeAction(states, p, "agents")

		response, err := act.Run(context.Background(), &activities.TakeActionInput{
			Task:        tk,
			ServiceName: "writer",
			ToolCallID:  "call_1",
			ToolName:    "search",
			ToolArgs:    map[string]any{"query": "go"},
			Schema:      testAgent().Actions[0].Schema.Parameters,
		})

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"results": []any{"doc-1"}}, response)
		require.Len(t, p.Calls, 1)
		call := p.Calls[0]
		assert.Equal(t, "agents", call.Namespace)
		assert.Equal(t, "writer", call.Name)
		assert.Equal(t, "/search", call.Path)
		assert.Equal(t, http.MethodPost, call.Method)
		assert.Equal(t, map[string]any{"query": "go"}, call.Payload)

		messages, err := states.Messages.GetAll(context.Background(), tk.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, llm.RoleTool, messages[0].Role)
		assert.Equal(t, "call_1", messages[0].ToolCallID)
		assert.Equal(t, "search", messages[0].Name)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(messages[0].Content), &decoded))
		assert.Equal(t, map[string]any{"results": []any{"doc-1"}}, decoded)
	})
	t.Run("Should reject arguments that violate the action schema", func(t *testing.T) {
		states := newTestStates(t)
		tk := testTask()
		p := &routertest.StubPlatform{Response: map[string]any{}}
		act := activities.NewTakeAction(states, p, "agents")

		_, err := act.Run(context.Background(), &activities.TakeActionInput{
			Task:        tk,
			ServiceName: "writer",
			ToolCallID:  "call_1",
			ToolName:    "search",
			ToolArgs:    map[string]any{"limit": float64(3)},
			Schema:      testAgent().Actions[0].Schema.Parameters,
		})

		assert.True(t, core.IsCode(err, core.CodeClientError))
		assert.Empty(t, p.Calls)
		messages, err := states.Messages.GetAll(context.Background(), tk.ID)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})
	t.Run("Should skip validation when the action has no schema", func(t *testing.T) {
		states := newTestStates(t)
		p := &routertest.StubPlatform{Response: map[string]any{"ok": true}}
		act := activities.NewTakeAction(states, p, "agents")

		_, err := act.Run(context.Background(), &activities.TakeActionInput{
			Task:        testTask(),
			ServiceName: "writer",
			ToolCallID:  "call_1",
			ToolName:    "ping",
			ToolArgs:    map[string]any{"anything": "goes"},
		})

		require.NoError(t, err)
		require.Len(t, p.Calls, 1)
	})
	t.Run("Should not record a tool message when the call fails", func(t *testing.T) {
		states := newTestStates(t)
		tk := testTask()
		p := &routertest.StubPlatform{CallErr: assert.AnError}
		act := activities.NewTakeAction(states, p, "agents")

		_, err := act.Run(context.Background(), &activities.TakeActionInput{
			Task:        tk,
			ServiceName: "writer",
			ToolCallID:  "call_1",
			ToolName:    "search",
			ToolArgs:    map[string]any{"query": "go"},
		})

		assert.ErrorIs(t, err, assert.AnError)
		messages, err := states.Messages.GetAll(context.Background(), tk.ID)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})
}

func TestAppendInstruction(t *testing.T) {
	t.Run("Should append the human prompt as a user message", func(t *testing.T) {
		states := newTestStates(t)
		tk := testTask()
		act := activities.NewAppendInstruction(states)

		err := act.Run(context.Background(), &activities.AppendInstructionInput{
			TaskID: tk.ID,
			Prompt: "Focus on the API changes.",
		})

		require.NoError(t, err)
		messages, err := states.Messages.GetAll(context.Background(), tk.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, llm.RoleUser, messages[0].Role)
		assert.Equal(t, "Focus on the API changes.", messages[0].Content)
	})
}
