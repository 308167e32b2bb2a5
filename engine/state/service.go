package state

import (
	"context"
	"sort"
	"time"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/infra/cache"
	"github.com/agentplane/agentplane/engine/llm"
)

const (
	stateLockPrefix = "lock:state:"
	stateLockTTL    = 30 * time.Second
)

// Service exposes conversational state operations grouped by concern:
// message-list operations under Messages, context-map operations under
// Context, and whole-blob operations on the service itself.
//
// Every write is a read-modify-write of the whole blob. With a lock manager
// configured, writes to the same task serialize on a per-task lock, which
// keeps sibling tool results of one iteration contiguous in the message list.
type Service struct {
	Messages *MessagesService
	Context  *ContextService

	repo  Repository
	locks cache.LockManager
}

// Option customizes a Service.
type Option func(*Service)

// WithLockManager serializes same-task writes through per-task locks.
func WithLockManager(locks cache.LockManager) Option {
	return func(s *Service) {
		s.locks = locks
	}
}

// NewService creates the state service on top of a repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	s.Messages = &MessagesService{svc: s}
	s.Context = &ContextService{svc: s}
	return s
}

// Get returns the task's current state, empty when none was saved yet.
func (s *Service) Get(ctx context.Context, taskID core.ID) (*AgentState, error) {
	return s.repo.Load(ctx, taskID)
}

// Set replaces the task's whole state blob.
func (s *Service) Set(ctx context.Context, taskID core.ID, state *AgentState) error {
	unlock, err := s.lock(ctx, taskID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.repo.Save(ctx, taskID, state)
}

// Delete removes the task's state. Missing state is not an error.
func (s *Service) Delete(ctx context.Context, taskID core.ID) error {
	return s.repo.Delete(ctx, taskID)
}

// lock takes the per-task lock when a lock manager is configured. The
// returned function releases it and is always safe to call.
func (s *Service) lock(ctx context.Context, taskID core.ID) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	lock, err := s.locks.Acquire(ctx, stateLockPrefix+taskID.String(), stateLockTTL)
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}

// mutate loads the state, applies fn, and saves the result, all under the
// per-task lock when one is configured.
func (s *Service) mutate(ctx context.Context, taskID core.ID, fn func(state *AgentState)) error {
	unlock, err := s.lock(ctx, taskID)
	if err != nil {
		return err
	}
	defer unlock()
	state, err := s.repo.Load(ctx, taskID)
	if err != nil {
		return err
	}
	fn(state)
	return s.repo.Save(ctx, taskID, state)
}

// MessagesService operates on the ordered message list of a task.
type MessagesService struct {
	svc *Service
}

// GetAll returns all messages in order.
func (m *MessagesService) GetAll(ctx context.Context, taskID core.ID) ([]llm.Message, error) {
	state, err := m.svc.repo.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return state.Messages, nil
}

// GetByIndex returns the message at index, or nil when out of range.
func (m *MessagesService) GetByIndex(ctx context.Context, taskID core.ID, index int) (*llm.Message, error) {
	state, err := m.svc.repo.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(state.Messages) {
		return nil, nil
	}
	msg := state.Messages[index]
	return &msg, nil
}

// BatchGetByIndices returns one entry per requested index, nil for indices
// out of range.
func (m *MessagesService) BatchGetByIndices(
	ctx context.Context,
	taskID core.ID,
	indices []int,
) ([]*llm.Message, error) {
	state, err := m.svc.repo.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make([]*llm.Message, len(indices))
	for i, index := range indices {
		if index >= 0 && index < len(state.Messages) {
			msg := state.Messages[index]
			out[i] = &msg
		}
	}
	return out, nil
}

// Append adds a message at the end of the list.
func (m *MessagesService) Append(ctx context.Context, taskID core.ID, message llm.Message) error {
	return m.svc.mutate(ctx, taskID, func(state *AgentState) {
		state.Messages = append(state.Messages, message)
	})
}

// BatchAppend adds messages at the end of the list, preserving their order.
func (m *MessagesService) BatchAppend(ctx context.Context, taskID core.ID, messages []llm.Message) error {
	return m.svc.mutate(ctx, taskID, func(state *AgentState) {
		state.Messages = append(state.Messages, messages...)
	})
}

// Insert places a message at index, shifting later messages right. Indices
// outside the list clamp to the nearest end.
func (m *MessagesService) Insert(ctx context.Context, taskID core.ID, index int, message llm.Message) error {
	return m.svc.mutate(ctx, taskID, func(state *AgentState) {
		state.Messages = insertMessage(state.Messages, index, message)
	})
}

// BatchInsert applies inserts in ascending index order so the result does
// not depend on map iteration order.
func (m *MessagesService) BatchInsert(
	ctx context.Context,
	taskID core.ID,
	inserts map[int]llm.Message,
) error {
	indices := make([]int, 0, len(inserts))
	for index := range inserts {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return m.svc.mutate(ctx, taskID, func(state *AgentState) {
		for _, index := range indices {
			state.Messages = insertMessage(state.Messages, index, inserts[index])
		}
	})
}

// Override replaces the message at index. Out-of-range indices leave the
// state untouched.
func (m *MessagesService) Override(ctx context.Context, taskID core.ID, index int, message llm.Message) error {
	return m.svc.mutate(ctx, taskID, func(state *AgentState) {
		if index >= 0 && index < len(state.Messages) {
			state.Messages[index] = message
		}
	})
}

// BatchOverride replaces messages at the given indices, skipping those out
// of range.
func (m *MessagesService) BatchOverride(
	ctx context.Context,
	taskID core.ID,
	updates map[int]llm.Message,
) error {
	return m.svc.mutate(ctx, taskID, func(state *AgentState) {
		for index, message := range updates {
			if index >= 0 && index < len(state.Messages) {
				state.Messages[index] = message
			}
		}
	})
}

// DeleteAll clears the message list but keeps the context map.
func (m *MessagesService) DeleteAll(ctx context.Context, taskID core.ID) error {
	return m.svc.mutate(ctx, taskID, func(state *AgentState) {
		state.Messages = []llm.Message{}
	})
}

func insertMessage(messages []llm.Message, index int, message llm.Message) []llm.Message {
	if index < 0 {
		index = 0
	}
	if index > len(messages) {
		index = len(messages)
	}
	messages = append(messages, llm.Message{})
	copy(messages[index+1:], messages[index:])
	messages[index] = message
	return messages
}

// ContextService operates on the context map of a task.
type ContextService struct {
	svc *Service
}

// GetAll returns the whole context map.
func (c *ContextService) GetAll(ctx context.Context, taskID core.ID) (map[string]any, error) {
	state, err := c.svc.repo.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return state.Context, nil
}

// GetValue returns the value under key, or nil when absent.
func (c *ContextService) GetValue(ctx context.Context, taskID core.ID, key string) (any, error) {
	state, err := c.svc.repo.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return state.Context[key], nil
}

// BatchGetValues returns one entry per requested key, nil for absent keys.
func (c *ContextService) BatchGetValues(
	ctx context.Context,
	taskID core.ID,
	keys []string,
) (map[string]any, error) {
	state, err := c.svc.repo.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		out[key] = state.Context[key]
	}
	return out, nil
}

// SetValue stores value under key.
func (c *ContextService) SetValue(ctx context.Context, taskID core.ID, key string, value any) error {
	return c.svc.mutate(ctx, taskID, func(state *AgentState) {
		state.Context[key] = value
	})
}

// BatchSetValue stores every entry of updates.
func (c *ContextService) BatchSetValue(ctx context.Context, taskID core.ID, updates map[string]any) error {
	return c.svc.mutate(ctx, taskID, func(state *AgentState) {
		for key, value := range updates {
			state.Context[key] = value
		}
	})
}

// DeleteValue removes key from the context. Missing keys are ignored.
func (c *ContextService) DeleteValue(ctx context.Context, taskID core.ID, key string) error {
	return c.svc.mutate(ctx, taskID, func(state *AgentState) {
		delete(state.Context, key)
	})
}

// BatchDeleteValues removes every key in keys, ignoring missing ones.
func (c *ContextService) BatchDeleteValues(ctx context.Context, taskID core.ID, keys []string) error {
	return c.svc.mutate(ctx, taskID, func(state *AgentState) {
		for _, key := range keys {
			delete(state.Context, key)
		}
	})
}

// DeleteAll clears the context map but keeps the message list.
func (c *ContextService) DeleteAll(ctx context.Context, taskID core.ID) error {
	return c.svc.mutate(ctx, taskID, func(state *AgentState) {
		state.Context = map[string]any{}
	})
}
