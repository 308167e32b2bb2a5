package agent

import (
	"context"

	"github.com/agentplane/agentplane/engine/core"
)

// Repository persists agent records. Lookups return (nil, nil) when the
// agent does not exist; callers decide whether absence is an error.
type Repository interface {
	Create(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id core.ID) (*Agent, error)
	GetByName(ctx context.Context, name string) (*Agent, error)
	List(ctx context.Context) ([]Agent, error)
	Update(ctx context.Context, a *Agent) error
	// UpdateStatus overwrites only the status columns so concurrent writers
	// (task workflows flipping Active/Idle, builds recording images) never
	// clobber each other's fields.
	UpdateStatus(ctx context.Context, id core.ID, status Status, reason string) error
	Delete(ctx context.Context, id core.ID) error
}
