// Package temporal adapts the workflow engine port to a Temporal
// cluster. It owns the client connection shared by the API server and
// the worker host.
package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/agentplane/agentplane/pkg/logger"
)

type Config struct {
	HostPort  string
	Namespace string
	// Identity labels this process in Temporal's task attribution, so
	// worker versions are distinguishable in the UI and CLI.
	Identity string
}

// Engine implements the workflow engine port on top of a Temporal
// client connection.
type Engine struct {
	client client.Client
}

// New dials the Temporal frontend and wraps the connection.
func New(cfg *Config) (*Engine, error) {
	options := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Identity:  cfg.Identity,
		Logger:    logger.GetDefault(),
	}
	temporalClient, err := client.Dial(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}
	if err := ensureClientInstruments(); err != nil {
		logger.GetDefault().Warn("Workflow client metrics not initialized; continuing without them", "error", err)
	}
	return &Engine{client: temporalClient}, nil
}

// NewFromClient wraps an existing connection. Useful when the caller
// manages the client lifecycle, such as the workflow test environment.
func NewFromClient(c client.Client) *Engine {
	return &Engine{client: c}
}

// Client exposes the underlying connection for worker registration.
func (e *Engine) Client() client.Client {
	return e.client
}

// NewWorker creates a worker polling the given task queue.
func (e *Engine) NewWorker(taskQueue string, options worker.Options) worker.Worker {
	return worker.New(e.client, taskQueue, options)
}

func (e *Engine) Close() {
	e.client.Close()
}
