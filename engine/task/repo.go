package task

import (
	"context"

	"github.com/agentplane/agentplane/engine/core"
)

// Repository persists task records. GetByID returns (nil, nil) when the
// task does not exist.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id core.ID) (*Task, error)
	List(ctx context.Context) ([]Task, error)
	UpdateStatus(ctx context.Context, id core.ID, status string, reason string) error
	Delete(ctx context.Context, id core.ID) error
}
