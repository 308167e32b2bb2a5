package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/infra/cache"
	"github.com/redis/go-redis/v9"
)

// RedisRepository persists AgentState blobs in Redis, one JSON value per
// task, keyed by the literal task id.
type RedisRepository struct {
	redis cache.RedisInterface
}

// NewRedisRepository creates a repository on top of a Redis client.
func NewRedisRepository(r cache.RedisInterface) *RedisRepository {
	return &RedisRepository{redis: r}
}

// Load implements Repository. A missing key yields a fresh empty state.
func (r *RedisRepository) Load(ctx context.Context, taskID core.ID) (*AgentState, error) {
	data, err := r.redis.Get(ctx, taskID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return NewAgentState(), nil
	}
	if err != nil {
		return nil, r.storeError(err, "load", taskID)
	}
	state := &AgentState{}
	if err := json.Unmarshal([]byte(data), state); err != nil {
		return nil, r.storeError(fmt.Errorf("decoding state: %w", err), "load", taskID)
	}
	state.normalize()
	return state, nil
}

// Save implements Repository.
func (r *RedisRepository) Save(ctx context.Context, taskID core.ID, state *AgentState) error {
	if state == nil {
		state = NewAgentState()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return r.storeError(fmt.Errorf("encoding state: %w", err), "save", taskID)
	}
	if err := r.redis.Set(ctx, taskID.String(), data, 0).Err(); err != nil {
		return r.storeError(err, "save", taskID)
	}
	return nil
}

// Delete implements Repository. Deleting absent state is not an error.
func (r *RedisRepository) Delete(ctx context.Context, taskID core.ID) error {
	if err := r.redis.Del(ctx, taskID.String()).Err(); err != nil {
		return r.storeError(err, "delete", taskID)
	}
	return nil
}

func (r *RedisRepository) storeError(err error, op string, taskID core.ID) error {
	return core.NewError(
		fmt.Errorf("state %s: %w", op, err),
		core.CodeServiceError,
		map[string]any{"task_id": taskID.String()},
	)
}
