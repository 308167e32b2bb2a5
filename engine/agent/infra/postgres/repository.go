package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const agentsTable = "agents"

var agentColumns = []string{
	"id",
	"name",
	"description",
	"docker_image",
	"status",
	"status_reason",
	"build_job_name",
	"build_job_namespace",
	"workflow_name",
	"workflow_queue_name",
	"action_service_port",
	"created_at",
	"updated_at",
}

// DBInterface abstracts database operations for testability
type DBInterface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements agent.Repository on PostgreSQL.
type Repository struct {
	db DBInterface
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db DBInterface) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, a *agent.Agent) error {
	query, args, err := sq.Insert(agentsTable).
		Columns(agentColumns...).
		Values(
			a.ID,
			a.Name,
			a.Description,
			a.DockerImage,
			a.Status,
			a.StatusReason,
			a.BuildJobName,
			a.BuildJobNamespace,
			a.WorkflowName,
			a.WorkflowQueueName,
			a.ActionServicePort,
			a.CreatedAt,
			a.UpdatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building create agent query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return core.NewError(
				fmt.Errorf("agent %q already exists", a.Name),
				core.CodeDuplicateItem,
				map[string]any{"name": a.Name},
			)
		}
		return fmt.Errorf("creating agent: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id core.ID) (*agent.Agent, error) {
	return r.getBy(ctx, sq.Eq{"id": id})
}

func (r *Repository) GetByName(ctx context.Context, name string) (*agent.Agent, error) {
	return r.getBy(ctx, sq.Eq{"name": name})
}

func (r *Repository) getBy(ctx context.Context, pred sq.Eq) (*agent.Agent, error) {
	query, args, err := sq.Select(agentColumns...).
		From(agentsTable).
		Where(pred).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get agent query: %w", err)
	}
	var a agent.Agent
	if err := pgxscan.Get(ctx, r.db, &a, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting agent: %w", err)
	}
	return &a, nil
}

func (r *Repository) List(ctx context.Context) ([]agent.Agent, error) {
	query, args, err := sq.Select(agentColumns...).
		From(agentsTable).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list agents query: %w", err)
	}
	agents := make([]agent.Agent, 0)
	if err := pgxscan.Select(ctx, r.db, &agents, query, args...); err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	return agents, nil
}

// Update writes the full row back and refreshes updated_at. The agent passed
// in is mutated so callers see the new timestamp.
func (r *Repository) Update(ctx context.Context, a *agent.Agent) error {
	a.UpdatedAt = time.Now().UTC()
	query, args, err := sq.Update(agentsTable).
		Set("name", a.Name).
		Set("description", a.Description).
		Set("docker_image", a.DockerImage).
		Set("status", a.Status).
		Set("status_reason", a.StatusReason).
		Set("build_job_name", a.BuildJobName).
		Set("build_job_namespace", a.BuildJobNamespace).
		Set("workflow_name", a.WorkflowName).
		Set("workflow_queue_name", a.WorkflowQueueName).
		Set("action_service_port", a.ActionServicePort).
		Set("updated_at", a.UpdatedAt).
		Where(sq.Eq{"id": a.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update agent query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return core.NewError(
				fmt.Errorf("agent %q already exists", a.Name),
				core.CodeDuplicateItem,
				map[string]any{"name": a.Name},
			)
		}
		return fmt.Errorf("updating agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewError(
			fmt.Errorf("agent %s not found", a.ID),
			core.CodeNotFound,
			map[string]any{"agent_id": a.ID.String()},
		)
	}
	return nil
}

// UpdateStatus touches only the status columns. An empty reason clears the
// stored one.
func (r *Repository) UpdateStatus(ctx context.Context, id core.ID, status agent.Status, reason string) error {
	var reasonArg *string
	if reason != "" {
		reasonArg = &reason
	}
	query, args, err := sq.Update(agentsTable).
		Set("status", status).
		Set("status_reason", reasonArg).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update agent status query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating agent status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewError(
			fmt.Errorf("agent %s not found", id),
			core.CodeNotFound,
			map[string]any{"agent_id": id.String()},
		)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id core.ID) error {
	query, args, err := sq.Delete(agentsTable).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete agent query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewError(
			fmt.Errorf("agent %s not found", id),
			core.CodeNotFound,
			map[string]any{"agent_id": id.String()},
		)
	}
	return nil
}
